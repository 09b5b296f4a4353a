package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/fenilmodi00/flight-deals-backend/models"
	"github.com/fenilmodi00/flight-deals-backend/services"
	"github.com/fenilmodi00/flight-deals-backend/shared"
	"github.com/gofiber/fiber/v2"
)

// Searcher runs a provider search
type Searcher interface {
	Search(ctx context.Context, provider string, input models.SearchInput) (*models.SearchResult, error)
}

type SearchHandler struct {
	Service Searcher
}

func NewSearchHandler(service Searcher) *SearchHandler {
	return &SearchHandler{Service: service}
}

// Search runs GET /api/v1/search/:provider?origin=&destination=&departure_date=&return_date=
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	input := models.SearchInput{
		Origin:        strings.ToUpper(c.Query("origin")),
		Destination:   strings.ToUpper(c.Query("destination")),
		DepartureDate: c.Query("departure_date"),
	}
	if returnDate := c.Query("return_date"); returnDate != "" {
		input.ReturnDate = &returnDate
	}

	result, err := h.Service.Search(c.UserContext(), c.Params("provider"), input)
	if err != nil {
		return errorResponse(c, shared.ClassifyError(err, "SearchHandler", "Search"))
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"data":     result.Data,
		"metadata": result.Metadata,
	})
}

// ListProviders returns the provider names accepted by Search
func (h *SearchHandler) ListProviders(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    services.ProviderNames(),
	})
}

// StatusClientClosedRequest is returned when the caller went away mid-search
const StatusClientClosedRequest = 499

// StatusForCategory maps an error category to the HTTP status returned to clients
func StatusForCategory(category shared.ErrorCategory) int {
	switch category {
	case shared.ErrorCategoryValidation:
		return fiber.StatusBadRequest
	case shared.ErrorCategoryNotFound:
		return fiber.StatusNotFound
	case shared.ErrorCategoryNetwork, shared.ErrorCategoryProtocol, shared.ErrorCategoryParse:
		return fiber.StatusBadGateway
	case shared.ErrorCategoryRetryExhausted, shared.ErrorCategoryTimeout:
		return fiber.StatusGatewayTimeout
	case shared.ErrorCategoryDatabase:
		return fiber.StatusServiceUnavailable
	case shared.ErrorCategoryCanceled:
		return StatusClientClosedRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, err *shared.ServiceError) error {
	err.LogError()
	body := fiber.Map{
		"success":   false,
		"error":     err.Message,
		"code":      err.Code,
		"category":  err.Category,
		"retryable": err.IsRetryable(),
	}
	if err.Details != nil {
		body["details"] = err.Details
	}

	var exhausted *shared.RetryBudgetExhaustedError
	if errors.As(err, &exhausted) {
		body["max_retries"] = exhausted.MaxRetries
	}

	return c.Status(StatusForCategory(err.Category)).JSON(body)
}
