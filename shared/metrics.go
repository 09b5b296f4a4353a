package shared

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// SearchMetrics holds the prometheus collectors for provider searches
type SearchMetrics struct {
	registry *prometheus.Registry

	SearchesTotal   *prometheus.CounterVec
	SearchDuration  *prometheus.HistogramVec
	PollRetries     *prometheus.HistogramVec
	EntitiesParsed  *prometheus.CounterVec
	DealsStored     prometheus.Counter
	WatchRunsFailed prometheus.Counter
}

// NewSearchMetrics registers the collectors on a fresh registry
func NewSearchMetrics(namespace string) *SearchMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &SearchMetrics{
		registry: registry,
		SearchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "The total number of provider searches by outcome",
		}, []string{"provider", "outcome"}),
		SearchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Time taken by a provider search end to end",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"provider"}),
		PollRetries: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_retries",
			Help:      "Unfinished poll responses seen before results were ready",
			Buckets:   prometheus.LinearBuckets(0, 2, 11),
		}, []string{"provider"}),
		EntitiesParsed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_parsed_total",
			Help:      "The total number of parsed entities by kind",
		}, []string{"provider", "kind"}),
		DealsStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deals_stored_total",
			Help:      "The total number of deals written to the database",
		}),
		WatchRunsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_runs_failed_total",
			Help:      "The total number of failed price-watch searches",
		}),
	}
}

// RecordSearch records one finished search. outcome is "success" or an error category.
func (m *SearchMetrics) RecordSearch(provider, outcome string, duration time.Duration, pollRetries int) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(provider, outcome).Inc()
	m.SearchDuration.WithLabelValues(provider).Observe(duration.Seconds())
	if outcome == "success" {
		m.PollRetries.WithLabelValues(provider).Observe(float64(pollRetries))
	}

	logrus.WithFields(logrus.Fields{
		"component":    "SearchMetrics",
		"provider":     provider,
		"outcome":      outcome,
		"duration":     duration,
		"poll_retries": pollRetries,
	}).Debug("Recorded search metrics")
}

// RecordEntities counts parsed entities per kind
func (m *SearchMetrics) RecordEntities(provider string, deals, flights, legs, trips int) {
	if m == nil {
		return
	}
	m.EntitiesParsed.WithLabelValues(provider, "deal").Add(float64(deals))
	m.EntitiesParsed.WithLabelValues(provider, "flight").Add(float64(flights))
	m.EntitiesParsed.WithLabelValues(provider, "leg").Add(float64(legs))
	m.EntitiesParsed.WithLabelValues(provider, "trip").Add(float64(trips))
}

// Registry exposes the underlying registry, mainly for tests
func (m *SearchMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format
func (m *SearchMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
