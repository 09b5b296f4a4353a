package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fenilmodi00/flight-deals-backend/models"
	"github.com/fenilmodi00/flight-deals-backend/shared"
	"github.com/sirupsen/logrus"
)

const dealStoreName = "DealStore"

// DealStore persists parsed search results. Flights, trips and legs are
// immutable once written; deals keep their latest price and link.
type DealStore struct {
	db         *sql.DB
	metrics    *shared.SearchMetrics
	maxRetries int
	baseDelay  time.Duration
}

// NewDealStore wraps an open connection pool
func NewDealStore(db *sql.DB, metrics *shared.SearchMetrics) *DealStore {
	return &DealStore{
		db:         db,
		metrics:    metrics,
		maxRetries: 3,
		baseDelay:  100 * time.Millisecond,
	}
}

// SaveParsedDeals writes one result set in a single transaction
func (s *DealStore) SaveParsedDeals(ctx context.Context, parsed *models.ParsedDeals) error {
	if parsed == nil || len(parsed.Deals) == 0 {
		return nil
	}

	err := s.executeWithRetry(ctx, func() error {
		return s.saveTx(ctx, parsed)
	})
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, "SAVE_DEALS_FAILED", dealStoreName, "SaveParsedDeals", isRetryableDBError(err))
	}

	if s.metrics != nil {
		s.metrics.DealsStored.Add(float64(len(parsed.Deals)))
	}

	logrus.WithFields(logrus.Fields{
		"component": dealStoreName,
		"method":    "SaveParsedDeals",
		"deals":     len(parsed.Deals),
		"flights":   len(parsed.Flights),
		"legs":      len(parsed.Legs),
		"trips":     len(parsed.Trips),
	}).Info("Stored parsed deals")
	return nil
}

func (s *DealStore) saveTx(ctx context.Context, parsed *models.ParsedDeals) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, trip := range parsed.Trips {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO trips (id, created_at) VALUES ($1, $2)
			ON CONFLICT (id) DO NOTHING`,
			trip.ID, trip.CreatedAt); err != nil {
			return fmt.Errorf("insert trip %s: %w", trip.ID, err)
		}
	}

	for _, f := range parsed.Flights {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO flights (
				id, flight_number, airline, origin, destination,
				departure_date, departure_time, arrival_date, arrival_time,
				duration_minutes, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO NOTHING`,
			f.ID, f.FlightNumber, f.Airline, f.Origin, f.Destination,
			f.DepartureDate, f.DepartureTime, f.ArrivalDate, f.ArrivalTime,
			f.Duration, f.CreatedAt); err != nil {
			return fmt.Errorf("insert flight %s: %w", f.ID, err)
		}
	}

	for _, leg := range parsed.Legs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO legs (id, trip_id, flight_id, inbound, leg_order, connection_minutes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING`,
			leg.ID, leg.Trip, leg.Flight, leg.Inbound, leg.Order, leg.ConnectionTime, leg.CreatedAt); err != nil {
			return fmt.Errorf("insert leg %s: %w", leg.ID, err)
		}
	}

	for _, d := range parsed.Deals {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO deals (
				id, trip_id, origin, destination, is_round,
				departure_date, departure_time, return_date, return_time,
				source, provider, price, link, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (id) DO UPDATE SET
				price = EXCLUDED.price,
				link = EXCLUDED.link,
				updated_at = EXCLUDED.updated_at`,
			d.ID, d.Trip, d.Origin, d.Destination, d.IsRound,
			d.DepartureDate, d.DepartureTime, d.ReturnDate, d.ReturnTime,
			d.Source, d.Provider, d.Price, d.Link, d.CreatedAt, d.UpdatedAt); err != nil {
			return fmt.Errorf("upsert deal %s: %w", d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CheapestDeals returns stored deals for a route ordered by price
func (s *DealStore) CheapestDeals(ctx context.Context, origin, destination string, limit int) ([]models.Deal, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trip_id, origin, destination, is_round,
			to_char(departure_date, 'YYYY-MM-DD'), departure_time,
			to_char(return_date, 'YYYY-MM-DD'), return_time,
			source, provider, price, link, created_at, updated_at
		FROM deals
		WHERE origin = $1 AND destination = $2
		ORDER BY price ASC, updated_at DESC
		LIMIT $3`, origin, destination, limit)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "QUERY_DEALS_FAILED", dealStoreName, "CheapestDeals", isRetryableDBError(err))
	}
	defer rows.Close()

	deals := make([]models.Deal, 0)
	for rows.Next() {
		var d models.Deal
		var returnDate, returnTime sql.NullString
		if err := rows.Scan(&d.ID, &d.Trip, &d.Origin, &d.Destination, &d.IsRound,
			&d.DepartureDate, &d.DepartureTime, &returnDate, &returnTime,
			&d.Source, &d.Provider, &d.Price, &d.Link, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		if returnDate.Valid {
			d.ReturnDate = &returnDate.String
		}
		if returnTime.Valid {
			d.ReturnTime = &returnTime.String
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

// executeWithRetry retries transient database failures with exponential backoff
func (s *DealStore) executeWithRetry(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.baseDelay << (attempt - 1)
			logrus.WithFields(logrus.Fields{
				"component": dealStoreName,
				"attempt":   attempt,
				"delay":     delay,
				"error":     lastErr,
			}).Warn("Retrying database operation")

			if err := shared.SleepContext(ctx, delay); err != nil {
				return err
			}
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		if !isRetryableDBError(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("database operation failed after %d retries: %w", s.maxRetries, lastErr)
}

// isRetryableDBError matches the transient failures worth another attempt
func isRetryableDBError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, retryable := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadlock",
		"bad connection",
		"server shutdown",
	} {
		if strings.Contains(errStr, retryable) {
			return true
		}
	}
	return false
}
