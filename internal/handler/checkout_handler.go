package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/hosting-checkout/internal/model"
	"github.com/fairyhunter13/hosting-checkout/internal/service"
)

// CheckoutServiceInterface defines the interface for checkout business logic.
type CheckoutServiceInterface interface {
	CreateSession(ctx context.Context, req *model.CreateSessionRequest) (*model.CheckoutSession, error)
	GetSession(ctx context.Context, id string) (*model.CheckoutSession, error)
	UpdateDraft(ctx context.Context, id string, req *model.UpdateSessionRequest) (*model.CheckoutSession, error)
	Quote(ctx context.Context, id string) (*model.QuoteResponse, error)
	Submit(ctx context.Context, id string) (*model.FinalizedOrder, error)
}

// EmailPipelineInterface runs the email verification pipeline for a session.
type EmailPipelineInterface interface {
	Verify(ctx context.Context, sessionID string) (*model.EmailValidationResponse, error)
}

// RedeemServiceInterface applies redeem codes to a session.
type RedeemServiceInterface interface {
	Apply(ctx context.Context, sessionID, rawCode string) (*model.RedeemResponse, error)
}

// CheckoutHandler handles HTTP requests for the checkout flow.
type CheckoutHandler struct {
	service   CheckoutServiceInterface
	email     EmailPipelineInterface
	redeem    RedeemServiceInterface
	validator *validator.Validate
}

// NewCheckoutHandler creates a new CheckoutHandler with the given services and validator.
func NewCheckoutHandler(svc CheckoutServiceInterface, email EmailPipelineInterface, redeem RedeemServiceInterface, v *validator.Validate) *CheckoutHandler {
	return &CheckoutHandler{service: svc, email: email, redeem: redeem, validator: v}
}

// formatSessionValidationError converts validator errors on session DTOs to
// field-level messages.
func formatSessionValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Field()
			tag := fe.Tag()

			switch field {
			case "AdditionalBackups", "AdditionalPorts":
				if tag == "gte" || tag == "lte" {
					return "invalid request: add-on quantities must be between 0 and 5"
				}
				return "invalid request: " + field + " is invalid"
			case "BillingCycle":
				return "invalid request: billing_cycle must be monthly, quarterly or yearly"
			default:
				if tag == "required" {
					return "invalid request: " + field + " is required"
				}
				if tag == "max" {
					return "invalid request: " + field + " exceeds maximum length"
				}
				return "invalid request: " + field + " is invalid"
			}
		}
	}
	return "invalid request"
}

// CreateSession handles POST /api/checkout/sessions requests to open a draft.
func (h *CheckoutHandler) CreateSession(c *fiber.Ctx) error {
	var req model.CreateSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatSessionValidationError(err)})
	}

	sess, err := h.service.CreateSession(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrPlanNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "plan not found"})
		}
		log.Error().Err(err).Msg("failed to create checkout session")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(sess)
}

// GetSession handles GET /api/checkout/sessions/:id requests.
func (h *CheckoutHandler) GetSession(c *fiber.Ctx) error {
	sess, err := h.service.GetSession(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "checkout session not found"})
		}
		log.Error().Err(err).Str("session_id", c.Params("id")).Msg("failed to get checkout session")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(sess)
}

// UpdateSession handles PATCH /api/checkout/sessions/:id requests for draft edits.
func (h *CheckoutHandler) UpdateSession(c *fiber.Ctx) error {
	var req model.UpdateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatSessionValidationError(err)})
	}

	sess, err := h.service.UpdateDraft(c.Context(), c.Params("id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "checkout session not found"})
		case errors.Is(err, service.ErrSessionFinalized):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "checkout session already finalized"})
		case errors.Is(err, service.ErrPlanNotFound):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "plan not found"})
		case errors.Is(err, service.ErrInvalidRequest):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().Err(err).Str("session_id", c.Params("id")).Msg("failed to update checkout session")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(sess)
}

// VerifyEmail handles POST /api/checkout/sessions/:id/verify-email, the
// blur-event entry point of the email pipeline.
func (h *CheckoutHandler) VerifyEmail(c *fiber.Ctx) error {
	state, err := h.email.Verify(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "checkout session not found"})
		}
		log.Error().Err(err).Str("session_id", c.Params("id")).Msg("email verification failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(state)
}

// Redeem handles POST /api/checkout/sessions/:id/redeem, the explicit
// apply action for a discount code. Rejections return 200 with applied=false;
// only malformed requests and unknown sessions are errors.
func (h *CheckoutHandler) Redeem(c *fiber.Ctx) error {
	var req model.RedeemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: code is required"})
	}

	resp, err := h.redeem.Apply(c.Context(), c.Params("id"), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "checkout session not found"})
		case errors.Is(err, service.ErrSessionFinalized):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "checkout session already finalized"})
		case errors.Is(err, service.ErrInvalidRequest):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: code is required"})
		}
		log.Error().Err(err).Str("session_id", c.Params("id")).Msg("failed to apply redeem code")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(resp)
}

// Quote handles GET /api/checkout/sessions/:id/quote for the live total.
func (h *CheckoutHandler) Quote(c *fiber.Ctx) error {
	quote, err := h.service.Quote(c.Context(), c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "checkout session not found"})
		case errors.Is(err, service.ErrPlanNotFound):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no plan selected"})
		}
		log.Error().Err(err).Str("session_id", c.Params("id")).Msg("failed to compute quote")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(quote)
}

// Submit handles POST /api/checkout/sessions/:id/submit requests.
func (h *CheckoutHandler) Submit(c *fiber.Ctx) error {
	order, err := h.service.Submit(c.Context(), c.Params("id"))
	if err != nil {
		var mfe *service.MissingFieldError
		switch {
		case errors.As(err, &mfe):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request: " + mfe.Field + " is required",
				"field": mfe.Field,
			})
		case errors.Is(err, service.ErrEmailNotVerified):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
				"field": "email",
			})
		case errors.Is(err, service.ErrSessionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "checkout session not found"})
		case errors.Is(err, service.ErrAlreadySubmitted):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "order already submitted for this session"})
		case errors.Is(err, service.ErrPlanNotFound):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request: plan_id is required",
				"field": "plan_id",
			})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("session_id", c.Params("id")).
			Msg("failed to submit checkout")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("session_id", c.Params("id")).
		Str("order_id", order.ID).
		Int("total", order.Total).
		Msg("checkout submitted")

	return c.Status(fiber.StatusCreated).JSON(order)
}
