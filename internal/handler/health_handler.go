package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/hosting-checkout/pkg/kvstore"
)

// Pinger is an interface for health check ping operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the service's backing stores are reachable.
type HealthHandler struct {
	pool    Pinger
	markers kvstore.Store
}

// NewHealthHandler creates a new HealthHandler with the given database pool
// and notification marker store.
func NewHealthHandler(pool Pinger, markers kvstore.Store) *HealthHandler {
	return &HealthHandler{pool: pool, markers: markers}
}

// Check performs a health check against the database and the marker store.
// Returns 200 OK with {"status": "healthy"} when both are reachable, 503
// Service Unavailable otherwise.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if err := h.pool.Ping(c.Context()); err != nil {
		log.Error().Err(err).Msg("health check failed: database unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "database connection failed",
		})
	}
	if _, _, err := h.markers.Get("healthcheck"); err != nil {
		log.Error().Err(err).Msg("health check failed: marker store unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "marker store unavailable",
		})
	}
	return c.JSON(fiber.Map{
		"status": "healthy",
	})
}
