package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/hosting-checkout/internal/model"
	"github.com/fairyhunter13/hosting-checkout/internal/remote"
)

// RedeemSessionStore is the session persistence the validator needs.
type RedeemSessionStore interface {
	GetByID(ctx context.Context, id string) (*model.CheckoutSession, error)
	UpdateDraft(ctx context.Context, s *model.CheckoutSession) error
}

// RedeemCheckStore memoizes definitive authority answers per session.
type RedeemCheckStore interface {
	Get(ctx context.Context, sessionID, code string) (*model.RedeemCheck, error)
	Upsert(ctx context.Context, c *model.RedeemCheck) error
}

// RedeemAuthority is the remote redeem-code collaborator.
type RedeemAuthority interface {
	Validate(ctx context.Context, code string) (*remote.RedeemResult, error)
	Consume(ctx context.Context, code string) error
}

// RedeemService validates and applies one-time discount codes. The remote
// authority stays the source of truth: only confirmed-invalid answers are
// short-circuited locally, because a valid code may expire or be consumed
// between checks.
type RedeemService struct {
	sessions  RedeemSessionStore
	checks    RedeemCheckStore
	authority RedeemAuthority
}

// NewRedeemService creates a RedeemService with the given stores and authority.
func NewRedeemService(sessions RedeemSessionStore, checks RedeemCheckStore, authority RedeemAuthority) *RedeemService {
	return &RedeemService{sessions: sessions, checks: checks, authority: authority}
}

// NormalizeCode trims and upper-cases a raw code before any comparison or
// remote call.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Apply validates code for the session and, on success, stores the discount
// descriptor on it. Rejections are not errors: the response carries
// applied=false and a message, and submission remains possible without the
// discount.
func (s *RedeemService) Apply(ctx context.Context, sessionID, rawCode string) (*model.RedeemResponse, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.Finalized {
		return nil, ErrSessionFinalized
	}

	code := NormalizeCode(rawCode)
	if code == "" {
		return nil, ErrInvalidRequest
	}

	check, err := s.checks.Get(ctx, sessionID, code)
	if err != nil {
		return nil, fmt.Errorf("lookup redeem check: %w", err)
	}
	if check != nil && !check.Valid {
		// Known-bad code: answer locally, no round-trip.
		log.Debug().
			Str("session_id", sessionID).
			Str("code", code).
			Msg("redeem code short-circuited as already rejected")
		if err := s.storeOutcome(ctx, sess, model.RedeemInvalid, "", 0, ""); err != nil {
			return nil, err
		}
		message := check.Message
		if message == "" {
			message = "this code is not valid"
		}
		return &model.RedeemResponse{Applied: false, Message: message}, nil
	}

	result, err := s.authority.Validate(ctx, code)
	if err != nil {
		// Fail closed but do not memoize: a transport failure is not a
		// verdict, so re-applying the same code retries the authority.
		log.Warn().Err(err).Str("session_id", sessionID).Str("code", code).Msg("redeem code validation call failed")
		if err := s.storeOutcome(ctx, sess, model.RedeemInvalid, "", 0, ""); err != nil {
			return nil, err
		}
		return &model.RedeemResponse{Applied: false, Message: "could not validate code, please try again"}, nil
	}

	memo := &model.RedeemCheck{
		SessionID:      sessionID,
		Code:           code,
		Valid:          result.Success,
		DiscountAmount: result.DiscountAmount,
		DiscountKind:   result.DiscountType,
		Message:        result.Message,
	}
	if err := s.checks.Upsert(ctx, memo); err != nil {
		return nil, fmt.Errorf("memoize redeem check: %w", err)
	}

	if !result.Success {
		if err := s.storeOutcome(ctx, sess, model.RedeemInvalid, "", 0, ""); err != nil {
			return nil, err
		}
		message := result.Message
		if message == "" {
			message = "this code is not valid"
		}
		return &model.RedeemResponse{Applied: false, Message: message}, nil
	}

	if err := s.storeOutcome(ctx, sess, model.RedeemValid, code, result.DiscountAmount, result.DiscountType); err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", sessionID).
		Str("code", code).
		Int("discount_amount", result.DiscountAmount).
		Str("discount_kind", result.DiscountType).
		Msg("redeem code applied")

	return &model.RedeemResponse{
		Applied:  true,
		Discount: &model.Discount{Amount: result.DiscountAmount, Kind: model.DiscountKind(result.DiscountType)},
		Message:  result.Message,
	}, nil
}

func (s *RedeemService) storeOutcome(ctx context.Context, sess *model.CheckoutSession, status, appliedCode string, amount int, kind string) error {
	sess.RedeemStatus = status
	sess.AppliedCode = appliedCode
	sess.DiscountAmount = amount
	sess.DiscountKind = kind
	if err := s.sessions.UpdateDraft(ctx, sess); err != nil {
		return fmt.Errorf("store redeem outcome: %w", err)
	}
	return nil
}

// Consume sends the best-effort "mark used" signal for a code on a completed
// order. Failure never blocks the order; it is logged for reconciliation.
func (s *RedeemService) Consume(ctx context.Context, code string) error {
	if err := s.authority.Consume(ctx, code); err != nil {
		log.Error().Err(err).Str("code", code).Msg("redeem code consume failed, needs manual reconciliation")
		return err
	}
	log.Info().Str("code", code).Msg("redeem code consumed")
	return nil
}
