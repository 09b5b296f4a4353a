package jobs

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fenilmodi00/flight-deals-backend/models"
	"github.com/fenilmodi00/flight-deals-backend/shared"
	"github.com/sirupsen/logrus"
)

// Searcher runs one provider search
type Searcher interface {
	Search(ctx context.Context, provider string, input models.SearchInput) (*models.SearchResult, error)
}

// DealSaver persists a finished result set
type DealSaver interface {
	SaveParsedDeals(ctx context.Context, parsed *models.ParsedDeals) error
}

// WatchRoute is one provider/route pair the job searches on every run
type WatchRoute struct {
	Provider string
	Input    models.SearchInput
}

func (r WatchRoute) String() string {
	s := fmt.Sprintf("%s:%s-%s:%s", r.Provider, r.Input.Origin, r.Input.Destination, r.Input.DepartureDate)
	if r.Input.IsRoundTrip() {
		s += ":" + *r.Input.ReturnDate
	}
	return s
}

// ParseWatchRoutes reads "provider:ORG-DST:YYYY-MM-DD[:YYYY-MM-DD]" entries separated by commas
func ParseWatchRoutes(value string) ([]WatchRoute, error) {
	var routes []WatchRoute
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("watch route %q: want provider:ORG-DST:date[:return]", entry)
		}

		airports := strings.Split(parts[1], "-")
		if len(airports) != 2 {
			return nil, fmt.Errorf("watch route %q: want ORG-DST", entry)
		}

		route := WatchRoute{
			Provider: strings.ToLower(parts[0]),
			Input: models.SearchInput{
				Origin:        strings.ToUpper(airports[0]),
				Destination:   strings.ToUpper(airports[1]),
				DepartureDate: parts[2],
			},
		}
		if len(parts) == 4 && parts[3] != "" {
			returnDate := parts[3]
			route.Input.ReturnDate = &returnDate
		}

		if err := route.Input.Validate(); err != nil {
			return nil, fmt.Errorf("watch route %q: %w", entry, err)
		}
		routes = append(routes, route)
	}
	return routes, nil
}

// WatchSummary describes one job run
type WatchSummary struct {
	Routes      int           `json:"routes"`
	Failed      int           `json:"failed"`
	DealsStored int           `json:"deals_stored"`
	Duration    time.Duration `json:"duration"`
}

// PriceWatchJob re-runs the configured searches and stores their deals
type PriceWatchJob struct {
	searcher Searcher
	store    DealSaver
	routes   []WatchRoute
	interval time.Duration
	metrics  *shared.SearchMetrics

	// running serializes manual and scheduled runs
	running sync.Mutex
}

// NewPriceWatchJob creates the job. store may be nil, in which case results are only logged.
func NewPriceWatchJob(searcher Searcher, store DealSaver, routes []WatchRoute, interval time.Duration, metrics *shared.SearchMetrics) *PriceWatchJob {
	return &PriceWatchJob{
		searcher: searcher,
		store:    store,
		routes:   routes,
		interval: interval,
		metrics:  metrics,
	}
}

// Routes returns the configured watch routes
func (j *PriceWatchJob) Routes() []WatchRoute {
	return j.routes
}

// Start runs the job immediately and then on every interval until ctx is done
func (j *PriceWatchJob) Start(ctx context.Context) {
	if len(j.routes) == 0 {
		logrus.Info("Price watch job disabled: no WATCH_ROUTES configured")
		return
	}
	if j.interval <= 0 {
		j.interval = 6 * time.Hour
	}

	logrus.WithFields(logrus.Fields{
		"routes":   len(j.routes),
		"interval": j.interval,
	}).Info("Starting price watch job")

	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.Run(ctx)
		for {
			select {
			case <-ctx.Done():
				logrus.Info("Price watch job stopped")
				return
			case <-ticker.C:
				j.Run(ctx)
			}
		}
	}()
}

// Run searches every route sequentially. A failing route is logged and counted; the rest still run.
func (j *PriceWatchJob) Run(ctx context.Context) WatchSummary {
	j.running.Lock()
	defer j.running.Unlock()

	startTime := time.Now()
	summary := WatchSummary{Routes: len(j.routes)}

	for _, route := range j.routes {
		if ctx.Err() != nil {
			break
		}

		logger := logrus.WithFields(logrus.Fields{
			"component": "PriceWatchJob",
			"route":     route.String(),
		})

		result, err := j.searcher.Search(ctx, route.Provider, route.Input)
		if err != nil {
			summary.Failed++
			j.countFailure()
			logger.WithError(err).Warn("Watch route search failed")
			continue
		}

		if j.store != nil {
			if err := j.store.SaveParsedDeals(ctx, &result.Data); err != nil {
				summary.Failed++
				j.countFailure()
				logger.WithError(err).Error("Failed to store watch route deals")
				continue
			}
			summary.DealsStored += len(result.Data.Deals)
		}

		logger.WithFields(logrus.Fields{
			"deals":    len(result.Data.Deals),
			"cheapest": cheapest(result.Data.Deals),
		}).Info("Watch route searched")
	}

	summary.Duration = time.Since(startTime)
	logrus.WithFields(logrus.Fields{
		"routes":       summary.Routes,
		"failed":       summary.Failed,
		"deals_stored": summary.DealsStored,
		"duration":     summary.Duration,
	}).Info("Price watch job completed")

	return summary
}

func (j *PriceWatchJob) countFailure() {
	if j.metrics != nil {
		j.metrics.WatchRunsFailed.Inc()
	}
}

func cheapest(deals []models.Deal) int {
	lowest := 0
	for i, d := range deals {
		if i == 0 || d.Price < lowest {
			lowest = d.Price
		}
	}
	return lowest
}
