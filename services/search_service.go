package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fenilmodi00/flight-deals-backend/models"
	"github.com/fenilmodi00/flight-deals-backend/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const searchServiceName = "SearchService"

// SearchService runs one provider search end to end: URL, retrieval, parsing, envelope
type SearchService struct {
	config    shared.ProviderConfig
	retriever *PollRetriever
	metrics   *shared.SearchMetrics
	now       func() time.Time
}

// NewSearchService wires a retriever over a pooled client from factory
func NewSearchService(cfg shared.ProviderConfig, factory *shared.HTTPClientFactory, metrics *shared.SearchMetrics, opts ...RetrieverOption) *SearchService {
	cfg.ApplyDefaults()
	client := factory.CreateOptimizedHTTPClient(cfg.HTTPRequestTimeout)
	return &SearchService{
		config:    cfg,
		retriever: NewPollRetriever(client, cfg, opts...),
		metrics:   metrics,
		now:       time.Now,
	}
}

// BaseURL is the provider host searches are sent to
func (s *SearchService) BaseURL() string {
	return s.config.BaseURL
}

// Search validates input, retrieves results from providerName and parses them.
// It either returns a complete result or an error, never partial data.
func (s *SearchService) Search(ctx context.Context, providerName string, input models.SearchInput) (*models.SearchResult, error) {
	runID := uuid.New().String()
	logger := logrus.WithFields(logrus.Fields{
		"component": searchServiceName,
		"method":    "Search",
		"run_id":    runID,
		"provider":  providerName,
		"route":     input.Origin + "-" + input.Destination,
	})

	provider, ok := LookupProvider(providerName)
	if !ok {
		return nil, shared.NewServiceError(shared.ErrorCategoryNotFound, "UNKNOWN_PROVIDER",
			fmt.Sprintf("unknown provider %q", providerName), searchServiceName, "Search", false, nil)
	}

	if err := input.Validate(); err != nil {
		return nil, shared.NewServiceError(shared.ErrorCategoryValidation, "INVALID_SEARCH_INPUT",
			err.Error(), searchServiceName, "Search", false, err)
	}

	start := s.now()
	ctx, cancel := context.WithTimeout(ctx, s.config.SearchTimeout)
	defer cancel()

	searchURL := provider.SearchURL(s.config.BaseURL, input)
	logger.WithField("search_url", searchURL).Info("Starting provider search")

	retrieval, err := s.retriever.Retrieve(ctx, provider, searchURL, provider.PollURL(s.config.BaseURL))
	if err != nil {
		return nil, s.fail(logger, provider.Name, start, err)
	}

	parsed, err := NewDealParser(provider.Profile).Parse(retrieval.Payload.ResultsHTML, s.now().UTC())
	if err != nil {
		return nil, s.fail(logger, provider.Name, start, err)
	}

	elapsed := s.now().Sub(start)
	result := &models.SearchResult{
		Data: *parsed,
		Metadata: models.SearchMetadata{
			RunID:           runID,
			Provider:        provider.Name,
			NumberOfDeals:   len(parsed.Deals),
			NumberOfFlights: len(parsed.Flights),
			NumberOfLegs:    len(parsed.Legs),
			NumberOfTrips:   len(parsed.Trips),
			PollRetries:     retrieval.Retries,
			Errors:          []string{},
			TimeSpentMs:     elapsed.Milliseconds(),
		},
	}

	s.metrics.RecordSearch(provider.Name, "success", elapsed, retrieval.Retries)
	s.metrics.RecordEntities(provider.Name, len(parsed.Deals), len(parsed.Flights), len(parsed.Legs), len(parsed.Trips))

	logger.WithFields(logrus.Fields{
		"deals":        result.Metadata.NumberOfDeals,
		"flights":      result.Metadata.NumberOfFlights,
		"poll_retries": result.Metadata.PollRetries,
		"duration":     elapsed,
	}).Info("Provider search completed")

	return result, nil
}

func (s *SearchService) fail(logger *logrus.Entry, provider string, start time.Time, err error) error {
	classified := shared.ClassifyError(err, searchServiceName, "Search")
	s.metrics.RecordSearch(provider, string(classified.Category), s.now().Sub(start), 0)
	logger.WithFields(logrus.Fields{
		"error_category": classified.Category,
		"retryable":      classified.Retryable,
	}).WithError(err).Warn("Provider search failed")
	return err
}
