package services

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/fenilmodi00/flight-deals-backend/database"
	"github.com/fenilmodi00/flight-deals-backend/fixtures"
	"github.com/fenilmodi00/flight-deals-backend/shared"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDatabase connects to TEST_DATABASE_URL and applies the schema, or skips
func openTestDatabase(t *testing.T) *sql.DB {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping deal store tests - TEST_DATABASE_URL not set")
	}

	if err := database.Connect(dbURL); err != nil {
		t.Skipf("Skipping deal store tests - database not available: %v", err)
	}
	t.Cleanup(database.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, database.Migrate(ctx))
	return database.DB
}

func TestDealStoreSaveIsIdempotentAndUpdatesPrice(t *testing.T) {
	db := openTestDatabase(t)
	metrics := shared.NewSearchMetrics("test")
	store := NewDealStore(db, metrics)
	ctx := context.Background()

	parsed, err := NewDealParser(Skyscanner().Profile).Parse(fixtures.MustRead(fixtures.SkyscannerRoundTrip), capturedAt)
	require.NoError(t, err)
	require.NoError(t, store.SaveParsedDeals(ctx, parsed))

	parsed.Deals[0].Price = 29900
	parsed.Deals[0].UpdatedAt = capturedAt.Add(time.Hour)
	require.NoError(t, store.SaveParsedDeals(ctx, parsed))

	deals, err := store.CheapestDeals(ctx, "BER", "MAD", 10)
	require.NoError(t, err)

	var found bool
	for _, d := range deals {
		if d.ID == parsed.Deals[0].ID {
			found = true
			assert.Equal(t, 29900, d.Price)
			require.NotNil(t, d.ReturnDate)
			assert.Equal(t, "2026-02-04", *d.ReturnDate)
		}
	}
	assert.True(t, found)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.DealsStored))
}

func TestDealStoreSkipsEmptyResults(t *testing.T) {
	store := NewDealStore(nil, nil)
	assert.NoError(t, store.SaveParsedDeals(context.Background(), nil))
}

func TestExecuteWithRetry(t *testing.T) {
	store := NewDealStore(nil, nil)
	store.baseDelay = time.Millisecond

	t.Run("transient errors are retried", func(t *testing.T) {
		calls := 0
		err := store.executeWithRetry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("read tcp: connection reset by peer")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("constraint violations are not", func(t *testing.T) {
		calls := 0
		err := store.executeWithRetry(context.Background(), func() error {
			calls++
			return errors.New("pq: insert or update on table \"legs\" violates foreign key constraint")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("budget is bounded", func(t *testing.T) {
		calls := 0
		err := store.executeWithRetry(context.Background(), func() error {
			calls++
			return errors.New("i/o timeout")
		})
		assert.ErrorContains(t, err, "after 3 retries")
		assert.Equal(t, 4, calls)
	})
}
