package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/hosting-checkout/internal/model"
	"github.com/fairyhunter13/hosting-checkout/internal/service"
)

// DispatchServiceInterface defines the interface for order confirmation logic.
type DispatchServiceInterface interface {
	GetOrder(ctx context.Context, id string) (*model.FinalizedOrder, error)
	Dispatch(ctx context.Context, orderID string) (*model.DispatchResponse, error)
	Notified(ctx context.Context, order *model.FinalizedOrder) (bool, error)
}

// OrderHandler handles HTTP requests for finalized orders.
type OrderHandler struct {
	dispatch DispatchServiceInterface
}

// NewOrderHandler creates a new OrderHandler with the given dispatch service.
func NewOrderHandler(dispatch DispatchServiceInterface) *OrderHandler {
	return &OrderHandler{dispatch: dispatch}
}

// Get handles GET /api/orders/:id, the confirmation view after checkout.
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	order, err := h.dispatch.GetOrder(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
		}
		log.Error().Err(err).Str("order_id", c.Params("id")).Msg("failed to get order")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	notified, err := h.dispatch.Notified(c.Context(), order)
	if err != nil {
		log.Error().Err(err).Str("order_id", order.ID).Msg("failed to check notification marker")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(fiber.Map{
		"order":    order,
		"notified": notified,
	})
}

// Notify handles POST /api/orders/:id/notify. Delivery failures are reported
// with a 200 and a retryable status rather than an error.
func (h *OrderHandler) Notify(c *fiber.Ctx) error {
	resp, err := h.dispatch.Dispatch(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("order_id", c.Params("id")).
			Msg("failed to dispatch order notification")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(resp)
}
