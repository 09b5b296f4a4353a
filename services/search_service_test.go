package services

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fenilmodi00/flight-deals-backend/fakeserver"
	"github.com/fenilmodi00/flight-deals-backend/models"
	"github.com/fenilmodi00/flight-deals-backend/shared"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeProvider(t *testing.T, pending int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(adaptor.FiberApp(fakeserver.NewApp(fakeserver.Options{PendingPolls: pending})))
	t.Cleanup(server.Close)
	return server
}

func newTestSearchService(baseURL string, metrics *shared.SearchMetrics) (*SearchService, *sleepRecorder) {
	cfg := shared.NewDefaultProviderConfig()
	cfg.BaseURL = baseURL
	cfg.SearchTimeout = 10 * time.Second

	sleeper := &sleepRecorder{}
	factory := shared.NewHTTPClientFactory(cfg.HTTPRequestTimeout)
	return NewSearchService(cfg, factory, metrics, WithSleep(sleeper.sleep)), sleeper
}

func roundTripInput() models.SearchInput {
	return models.SearchInput{
		Origin:        "BER",
		Destination:   "MAD",
		DepartureDate: "2026-02-01",
		ReturnDate:    strPtr("2026-02-04"),
	}
}

func TestSearchSkyscannerRoundTripAgainstFakeProvider(t *testing.T) {
	server := newFakeProvider(t, 3)
	metrics := shared.NewSearchMetrics("test")
	svc, sleeper := newTestSearchService(server.URL, metrics)

	result, err := svc.Search(context.Background(), "skyscanner", roundTripInput())
	require.NoError(t, err)

	assert.Len(t, result.Data.Deals, 1)
	assert.Len(t, result.Data.Flights, 4)
	assert.Len(t, result.Data.Legs, 4)
	assert.Len(t, result.Data.Trips, 1)
	assert.Equal(t, 36100, result.Data.Deals[0].Price)

	meta := result.Metadata
	assert.Equal(t, ProviderSkyscanner, meta.Provider)
	assert.Equal(t, 3, meta.PollRetries)
	assert.Len(t, sleeper.calls, 3)
	assert.NotNil(t, meta.Errors)
	assert.Empty(t, meta.Errors)
	assert.NotEmpty(t, meta.RunID)
	assert.Equal(t, 1, meta.NumberOfDeals)
	assert.Equal(t, 4, meta.NumberOfFlights)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SearchesTotal.WithLabelValues(ProviderSkyscanner, "success")))
}

func TestSearchSkyscannerOneWayAgainstFakeProvider(t *testing.T) {
	server := newFakeProvider(t, 0)
	svc, _ := newTestSearchService(server.URL, nil)

	input := roundTripInput()
	input.ReturnDate = nil

	result, err := svc.Search(context.Background(), "skyscanner", input)
	require.NoError(t, err)
	require.Len(t, result.Data.Deals, 1)
	assert.False(t, result.Data.Deals[0].IsRoundTrip())
	assert.Equal(t, 46700, result.Data.Deals[0].Price)
	assert.Equal(t, 0, result.Metadata.PollRetries)
}

func TestSearchKiwiAgainstFakeProvider(t *testing.T) {
	server := newFakeProvider(t, 4)
	svc, sleeper := newTestSearchService(server.URL, nil)

	result, err := svc.Search(context.Background(), "Kiwi", roundTripInput())
	require.NoError(t, err)

	require.Len(t, result.Data.Deals, 1)
	assert.Equal(t, 14500, result.Data.Deals[0].Price)
	assert.Equal(t, ProviderKiwi, result.Metadata.Provider)
	assert.Equal(t, 0, result.Metadata.PollRetries)
	assert.Empty(t, sleeper.calls)
}

func TestSearchRejectsUnknownProvider(t *testing.T) {
	svc, _ := newTestSearchService("http://127.0.0.1:1", nil)

	_, err := svc.Search(context.Background(), "momondo", roundTripInput())

	var serviceErr *shared.ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, shared.ErrorCategoryNotFound, serviceErr.Category)
	assert.Equal(t, "UNKNOWN_PROVIDER", serviceErr.Code)
}

func TestSearchRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestSearchService("http://127.0.0.1:1", nil)

	input := roundTripInput()
	input.Destination = "BER"

	_, err := svc.Search(context.Background(), "skyscanner", input)

	var serviceErr *shared.ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, shared.ErrorCategoryValidation, serviceErr.Category)
}

func TestSearchCountsFailures(t *testing.T) {
	server := newFakeProvider(t, 100)
	metrics := shared.NewSearchMetrics("test")
	svc, _ := newTestSearchService(server.URL, metrics)
	svc.retriever.maxRetries = 2

	_, err := svc.Search(context.Background(), "skyscanner", roundTripInput())

	var exhausted *shared.RetryBudgetExhaustedError
	require.True(t, errors.As(err, &exhausted), "got %v", err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SearchesTotal.WithLabelValues(ProviderSkyscanner, string(shared.ErrorCategoryRetryExhausted))))
}
