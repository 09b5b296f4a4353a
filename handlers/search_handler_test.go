package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fenilmodi00/flight-deals-backend/jobs"
	"github.com/fenilmodi00/flight-deals-backend/models"
	"github.com/fenilmodi00/flight-deals-backend/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	provider string
	input    models.SearchInput
	err      error
}

func (s *stubSearcher) Search(_ context.Context, provider string, input models.SearchInput) (*models.SearchResult, error) {
	s.provider = provider
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &models.SearchResult{
		Data: models.ParsedDeals{Deals: []models.Deal{{ID: "d1", Price: 36100}}},
		Metadata: models.SearchMetadata{
			Provider:      provider,
			NumberOfDeals: 1,
			PollRetries:   2,
			Errors:        []string{},
		},
	}, nil
}

func newSearchApp(searcher Searcher) *fiber.App {
	app := fiber.New()
	h := NewSearchHandler(searcher)
	app.Get("/api/v1/providers", h.ListProviders)
	app.Get("/api/v1/search/:provider", h.Search)
	return app
}

func doJSON(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return resp.StatusCode, body
}

func TestSearchHandlerSuccess(t *testing.T) {
	searcher := &stubSearcher{}
	app := newSearchApp(searcher)

	status, body := doJSON(t, app, httptest.NewRequest(http.MethodGet,
		"/api/v1/search/skyscanner?origin=ber&destination=MAD&departure_date=2026-02-01&return_date=2026-02-04", nil))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "skyscanner", searcher.provider)
	assert.Equal(t, "BER", searcher.input.Origin)
	require.NotNil(t, searcher.input.ReturnDate)
	assert.Equal(t, "2026-02-04", *searcher.input.ReturnDate)

	metadata := body["metadata"].(map[string]interface{})
	assert.Equal(t, float64(2), metadata["poll_retries"])
	assert.Equal(t, []interface{}{}, metadata["errors"])
}

func TestSearchHandlerOmitsEmptyReturnDate(t *testing.T) {
	searcher := &stubSearcher{}
	app := newSearchApp(searcher)

	status, _ := doJSON(t, app, httptest.NewRequest(http.MethodGet,
		"/api/v1/search/kiwi?origin=OTP&destination=MAD&departure_date=2026-02-01&return_date=", nil))

	assert.Equal(t, http.StatusOK, status)
	assert.Nil(t, searcher.input.ReturnDate)
}

func TestSearchHandlerErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name:   "validation",
			err:    shared.NewServiceError(shared.ErrorCategoryValidation, "INVALID_SEARCH_INPUT", "bad", "SearchService", "Search", false, nil),
			status: http.StatusBadRequest,
			code:   "INVALID_SEARCH_INPUT",
		},
		{
			name:   "unknown provider",
			err:    shared.NewServiceError(shared.ErrorCategoryNotFound, "UNKNOWN_PROVIDER", "unknown", "SearchService", "Search", false, nil),
			status: http.StatusNotFound,
			code:   "UNKNOWN_PROVIDER",
		},
		{
			name:   "transport",
			err:    &shared.TransportError{URL: "http://x/portal/sky", StatusCode: 503, Cause: errors.New("unexpected status")},
			status: http.StatusBadGateway,
			code:   "NETWORK_FAILURE",
		},
		{
			name:   "protocol",
			err:    &shared.ProtocolFormatError{Field: "_token", Reason: "missing"},
			status: http.StatusBadGateway,
			code:   "PROTOCOL_FAILURE",
		},
		{
			name:   "parse",
			err:    &shared.ParseFatalError{ModalID: "myModal0", Reason: "no price"},
			status: http.StatusBadGateway,
			code:   "PARSE_FAILURE",
		},
		{
			name:   "retry budget",
			err:    &shared.RetryBudgetExhaustedError{URL: "http://x/portal/sky/poll", MaxRetries: 20},
			status: http.StatusGatewayTimeout,
			code:   "RETRY_EXHAUSTED_FAILURE",
		},
		{
			name:   "timeout",
			err:    context.DeadlineExceeded,
			status: http.StatusGatewayTimeout,
			code:   "SEARCH_TIMEOUT",
		},
		{
			name:   "client went away",
			err:    fmt.Errorf("waiting between polls: %w", context.Canceled),
			status: StatusClientClosedRequest,
			code:   "SEARCH_CANCELED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newSearchApp(&stubSearcher{err: tt.err})
			status, body := doJSON(t, app, httptest.NewRequest(http.MethodGet,
				"/api/v1/search/skyscanner?origin=BER&destination=MAD&departure_date=2026-02-01", nil))

			assert.Equal(t, tt.status, status)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestSearchHandlerReportsRetryBudget(t *testing.T) {
	app := newSearchApp(&stubSearcher{err: &shared.RetryBudgetExhaustedError{MaxRetries: 20}})
	_, body := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/search/skyscanner", nil))
	assert.Equal(t, float64(20), body["max_retries"])
	assert.Equal(t, map[string]interface{}{"max_retries": float64(20)}, body["details"])
}

func TestSearchHandlerReportsTransportDetails(t *testing.T) {
	app := newSearchApp(&stubSearcher{err: &shared.TransportError{URL: "http://x/portal/sky/poll", Attempt: 2, StatusCode: 503}})
	_, body := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/search/skyscanner", nil))

	assert.Equal(t, true, body["retryable"])
	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok, "%v", body)
	assert.Equal(t, float64(2), details["attempt"])
	assert.Equal(t, float64(503), details["status_code"])
}

func TestListProviders(t *testing.T) {
	app := newSearchApp(&stubSearcher{})
	status, body := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/providers", nil))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []interface{}{"kiwi", "skyscanner"}, body["data"])
}

type stubDeals struct {
	origin, destination string
	limit               int
	err                 error
}

func (s *stubDeals) CheapestDeals(_ context.Context, origin, destination string, limit int) ([]models.Deal, error) {
	s.origin, s.destination, s.limit = origin, destination, limit
	if s.err != nil {
		return nil, s.err
	}
	return []models.Deal{{ID: "d1", Price: 120}}, nil
}

func TestGetCheapestDeals(t *testing.T) {
	store := &stubDeals{}
	app := fiber.New()
	app.Get("/api/v1/deals/:origin/:destination", NewDealHandler(store).GetCheapestDeals)

	status, body := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/deals/ber/mad?limit=5", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, "BER", store.origin)
	assert.Equal(t, 5, store.limit)

	status, _ = doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/deals/BERLIN/MAD", nil))
	assert.Equal(t, http.StatusBadRequest, status)

	store.err = errors.New("connection refused")
	status, body = doJSON(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/deals/BER/MAD", nil))
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "QUERY_DEALS_FAILED", body["code"])
}

type stubWatch struct {
	runs int
}

func (s *stubWatch) Run(context.Context) jobs.WatchSummary {
	s.runs++
	return jobs.WatchSummary{Routes: 2, Failed: 1, DealsStored: 3, Duration: time.Second}
}

func TestTriggerWatchRunRequiresToken(t *testing.T) {
	watch := &stubWatch{}
	app := fiber.New()
	admin := app.Group("/api/v1/admin", RequireAdminToken("secret"))
	admin.Post("/watch/run", NewAdminHandler(watch).TriggerWatchRun)

	status, _ := doJSON(t, app, httptest.NewRequest(http.MethodPost, "/api/v1/admin/watch/run", nil))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 0, watch.runs)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/watch/run", nil)
	req.Header.Set("X-Admin-Token", "secret")
	status, body := doJSON(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, watch.runs)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["deals_stored"])
}

func TestRequireAdminTokenLocksWhenUnset(t *testing.T) {
	app := fiber.New()
	app.Get("/admin", RequireAdminToken(""), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Admin-Token", "")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
