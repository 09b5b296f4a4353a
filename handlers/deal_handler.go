package handlers

import (
	"context"
	"strings"

	"github.com/fenilmodi00/flight-deals-backend/models"
	"github.com/fenilmodi00/flight-deals-backend/shared"
	"github.com/gofiber/fiber/v2"
)

// DealQuerier reads stored deals
type DealQuerier interface {
	CheapestDeals(ctx context.Context, origin, destination string, limit int) ([]models.Deal, error)
}

type DealHandler struct {
	Store DealQuerier
}

func NewDealHandler(store DealQuerier) *DealHandler {
	return &DealHandler{Store: store}
}

// GetCheapestDeals serves GET /api/v1/deals/:origin/:destination?limit=
func (h *DealHandler) GetCheapestDeals(c *fiber.Ctx) error {
	origin := strings.ToUpper(c.Params("origin"))
	destination := strings.ToUpper(c.Params("destination"))
	if !models.IsIATACode(origin) || !models.IsIATACode(destination) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "origin and destination must be 3-letter IATA codes",
		})
	}

	deals, err := h.Store.CheapestDeals(c.UserContext(), origin, destination, c.QueryInt("limit", 20))
	if err != nil {
		return errorResponse(c, shared.WrapError(err, shared.ErrorCategoryDatabase, "QUERY_DEALS_FAILED", "DealHandler", "GetCheapestDeals", true))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    deals,
		"count":   len(deals),
	})
}
