package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/hosting-checkout/internal/catalog"
)

// PlanHandler serves the hosting plan catalog.
type PlanHandler struct{}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler() *PlanHandler {
	return &PlanHandler{}
}

// List handles GET /api/plans requests.
func (h *PlanHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"plans": catalog.List()})
}

// Get handles GET /api/plans/:id requests.
func (h *PlanHandler) Get(c *fiber.Ctx) error {
	plan := catalog.GetByID(c.Params("id"))
	if plan == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "plan not found"})
	}
	return c.JSON(plan)
}
