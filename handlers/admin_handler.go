package handlers

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/fenilmodi00/flight-deals-backend/jobs"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// WatchRunner runs the price watch once
type WatchRunner interface {
	Run(ctx context.Context) jobs.WatchSummary
}

type AdminHandler struct {
	WatchJob WatchRunner
}

func NewAdminHandler(watchJob WatchRunner) *AdminHandler {
	return &AdminHandler{WatchJob: watchJob}
}

// TriggerWatchRun manually runs the price watch job
func (h *AdminHandler) TriggerWatchRun(c *fiber.Ctx) error {
	logrus.Info("Manual price watch run triggered via admin endpoint")

	summary := h.WatchJob.Run(c.UserContext())

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Price watch job completed",
		"data":      summary,
		"duration":  summary.Duration.String(),
		"timestamp": time.Now(),
	})
}

// RequireAdminToken rejects requests without a matching X-Admin-Token header.
// An empty token locks the admin routes entirely.
func RequireAdminToken(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		given := c.Get("X-Admin-Token")
		if token == "" || subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "unauthorized",
			})
		}
		return c.Next()
	}
}
