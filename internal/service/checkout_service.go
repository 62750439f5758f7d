package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/hosting-checkout/internal/catalog"
	"github.com/fairyhunter13/hosting-checkout/internal/model"
	"github.com/fairyhunter13/hosting-checkout/internal/pricing"
	"github.com/fairyhunter13/hosting-checkout/pkg/database"
)

// SessionStore is the session persistence the checkout flow needs.
type SessionStore interface {
	Insert(ctx context.Context, s *model.CheckoutSession) error
	GetByID(ctx context.Context, id string) (*model.CheckoutSession, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.CheckoutSession, error)
	UpdateDraft(ctx context.Context, s *model.CheckoutSession) error
	ResetEmailState(ctx context.Context, id string) error
	MarkFinalized(ctx context.Context, tx database.TxQuerier, id string) error
}

// OrderStore persists finalized order snapshots.
type OrderStore interface {
	Insert(ctx context.Context, tx database.TxQuerier, o *model.FinalizedOrder) error
	GetBySessionID(ctx context.Context, sessionID string) (*model.FinalizedOrder, error)
}

// EmailVerifyRunner forces a full email pipeline run for a session.
type EmailVerifyRunner interface {
	Verify(ctx context.Context, sessionID string) (*model.EmailValidationResponse, error)
}

// CodeConsumer sends the best-effort mark-used signal for a redeem code.
type CodeConsumer interface {
	Consume(ctx context.Context, code string) error
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// consumeTimeout bounds the detached mark-used call fired during submit.
const consumeTimeout = 15 * time.Second

// CheckoutService owns the draft order: it wires field mutations, drives the
// pricing calculator for live totals, and produces the finalized order
// payload on submit.
type CheckoutService struct {
	pool     TxBeginner
	sessions SessionStore
	orders   OrderStore
	email    EmailVerifyRunner
	consumer CodeConsumer
}

// NewCheckoutService creates a CheckoutService with the given pool and collaborators.
func NewCheckoutService(pool *pgxpool.Pool, sessions SessionStore, orders OrderStore, email EmailVerifyRunner, consumer CodeConsumer) *CheckoutService {
	return &CheckoutService{pool: pool, sessions: sessions, orders: orders, email: email, consumer: consumer}
}

// NewCheckoutServiceWithTxBeginner creates a CheckoutService with a custom TxBeginner.
// Primarily used for testing.
func NewCheckoutServiceWithTxBeginner(pool TxBeginner, sessions SessionStore, orders OrderStore, email EmailVerifyRunner, consumer CodeConsumer) *CheckoutService {
	return &CheckoutService{pool: pool, sessions: sessions, orders: orders, email: email, consumer: consumer}
}

// CreateSession opens an empty draft session. A plan may be preselected.
func (s *CheckoutService) CreateSession(ctx context.Context, req *model.CreateSessionRequest) (*model.CheckoutSession, error) {
	planID := ""
	if req != nil && req.PlanID != "" {
		if catalog.GetByID(req.PlanID) == nil {
			return nil, ErrPlanNotFound
		}
		planID = req.PlanID
	}

	sess := &model.CheckoutSession{
		ID:           uuid.NewString(),
		PlanID:       planID,
		BillingCycle: "monthly",
		EmailStatus:  model.EmailUnknown,
		RedeemStatus: model.RedeemUnknown,
	}
	if err := s.sessions.Insert(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSession retrieves a draft session.
// Returns ErrSessionNotFound if it doesn't exist.
func (s *CheckoutService) GetSession(ctx context.Context, id string) (*model.CheckoutSession, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// UpdateDraft applies a partial field update to the draft. Changing the email
// value resets the email validation state; changing the redeem-code text
// clears the stored discount and outcome, so a new code always requires a new
// explicit apply action.
func (s *CheckoutService) UpdateDraft(ctx context.Context, id string, req *model.UpdateSessionRequest) (*model.CheckoutSession, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Finalized {
		return nil, ErrSessionFinalized
	}

	if req.ServerName != nil {
		sess.ServerName = strings.TrimSpace(*req.ServerName)
	}
	if req.CustomerName != nil {
		sess.CustomerName = strings.TrimSpace(*req.CustomerName)
	}
	if req.Password != nil {
		sess.Password = *req.Password
	}
	if req.Phone != nil {
		sess.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Discord != nil {
		sess.Discord = strings.TrimSpace(*req.Discord)
	}
	if req.BillingCycle != nil {
		sess.BillingCycle = *req.BillingCycle
	}
	if req.PlanID != nil {
		if catalog.GetByID(*req.PlanID) == nil {
			return nil, ErrPlanNotFound
		}
		sess.PlanID = *req.PlanID
	}
	if req.AdditionalBackups != nil {
		sess.AdditionalBackups = clampAddOn(*req.AdditionalBackups)
	}
	if req.AdditionalPorts != nil {
		sess.AdditionalPorts = clampAddOn(*req.AdditionalPorts)
	}

	emailChanged := false
	if req.Email != nil && strings.TrimSpace(*req.Email) != sess.Email {
		sess.Email = strings.TrimSpace(*req.Email)
		emailChanged = true
	}

	if req.RedeemCode != nil && *req.RedeemCode != sess.RedeemCode {
		sess.RedeemCode = *req.RedeemCode
		sess.RedeemStatus = model.RedeemUnknown
		sess.AppliedCode = ""
		sess.DiscountAmount = 0
		sess.DiscountKind = ""
	}

	if err := s.sessions.UpdateDraft(ctx, sess); err != nil {
		return nil, err
	}

	if emailChanged {
		if err := s.sessions.ResetEmailState(ctx, id); err != nil {
			return nil, err
		}
		sess.EmailStatus = model.EmailUnknown
		sess.EmailMessage = ""
		sess.EmailSuggestion = ""
		sess.EmailChecking = false
	}

	return sess, nil
}

// Quote computes the live total for the session's current draft state.
func (s *CheckoutService) Quote(ctx context.Context, id string) (*model.QuoteResponse, error) {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	plan := catalog.GetByID(sess.PlanID)
	if plan == nil {
		return nil, ErrPlanNotFound
	}

	discount := sess.AppliedDiscount()
	total := pricing.ComputeTotal(plan, clampAddOn(sess.AdditionalBackups), clampAddOn(sess.AdditionalPorts), discount)
	return &model.QuoteResponse{
		Total:     total,
		Secondary: pricing.ToSecondaryCurrency(total),
		Discount:  discount,
	}, nil
}

// Submit runs the ordered, fail-fast submit algorithm and finalizes the
// session into an immutable order snapshot exactly once.
func (s *CheckoutService) Submit(ctx context.Context, id string) (*model.FinalizedOrder, error) {
	// 1. Force a blocking re-verification regardless of prior state. The
	// order payload never leaves with an unverified address.
	emailState, err := s.email.Verify(ctx, id)
	if err != nil {
		return nil, err
	}

	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Finalized {
		return nil, ErrAlreadySubmitted
	}

	// 2. Required fields, checked before any further remote work.
	for _, rf := range []struct{ field, value string }{
		{"server_name", sess.ServerName},
		{"customer_name", sess.CustomerName},
		{"password", sess.Password},
		{"plan_id", sess.PlanID},
	} {
		if strings.TrimSpace(rf.value) == "" {
			return nil, &MissingFieldError{Field: rf.field}
		}
	}

	// 3. The forced re-verification must have resolved to valid.
	if emailState.Status != model.EmailValid {
		if emailState.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrEmailNotVerified, emailState.Message)
		}
		return nil, ErrEmailNotVerified
	}

	plan := catalog.GetByID(sess.PlanID)
	if plan == nil {
		return nil, ErrPlanNotFound
	}

	// 4. Final total with the currently applied discount. An attempted but
	// failed code contributes nothing and does not block.
	discount := sess.AppliedDiscount()
	total := pricing.ComputeTotal(plan, clampAddOn(sess.AdditionalBackups), clampAddOn(sess.AdditionalPorts), discount)

	// 5. Best-effort mark-used signal, not awaited.
	if discount != nil && sess.AppliedCode != "" {
		code := sess.AppliedCode
		go func() {
			cctx, cancel := context.WithTimeout(context.Background(), consumeTimeout)
			defer cancel()
			_ = s.consumer.Consume(cctx, code)
		}()
	}

	now := time.Now().UTC()
	order := &model.FinalizedOrder{
		ID:             uuid.NewString(),
		SessionID:      sess.ID,
		IdempotencyKey: IdempotencyKey(sess.Email, sess.PlanID, sess.ServerName, now),
		ServerName:     sess.ServerName,
		CustomerName:   sess.CustomerName,
		Email:          sess.Email,
		Phone:          sess.Phone,
		Discord:        sess.Discord,
		PlanID:         plan.ID,
		PlanName:       plan.Name,
		Backups:        clampAddOn(sess.AdditionalBackups),
		Ports:          clampAddOn(sess.AdditionalPorts),
		Total:          total,
		Discount:       discount,
		BillingCycle:   sess.BillingCycle,
		CreatedAt:      now,
	}

	// 6. Finalize under a row lock so a racing duplicate submit loses.
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	locked, err := s.sessions.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	if locked.Finalized {
		return nil, ErrAlreadySubmitted
	}

	if err := s.sessions.MarkFinalized(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := s.orders.Insert(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit submit: %w", err)
	}

	log.Info().
		Str("session_id", sess.ID).
		Str("order_id", order.ID).
		Str("plan_id", plan.ID).
		Int("total", total).
		Msg("checkout submitted")

	return order, nil
}

// IdempotencyKey derives the deterministic duplicate-order detector from the
// customer email, plan, server name and UTC calendar day.
func IdempotencyKey(email, planID, serverName string, at time.Time) string {
	input := strings.ToLower(strings.TrimSpace(email)) + "|" + planID + "|" + serverName + "|" + at.UTC().Format("2006-01-02")
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

func clampAddOn(v int) int {
	if v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}
