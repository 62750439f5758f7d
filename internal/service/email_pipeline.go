package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/hosting-checkout/internal/model"
	"github.com/fairyhunter13/hosting-checkout/internal/remote"
)

// emailFormatPattern is the stage-1 structural check. Failing it never
// reaches the network.
var emailFormatPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// EmailSessionStore is the session persistence the pipeline needs.
type EmailSessionStore interface {
	GetByID(ctx context.Context, id string) (*model.CheckoutSession, error)
	BeginEmailCheck(ctx context.Context, id string) (int64, error)
	ApplyEmailOutcome(ctx context.Context, id, email string, generation int64, status, message, suggestion string) (bool, error)
}

// EmailVerifier is the remote deliverability collaborator.
type EmailVerifier interface {
	Verify(ctx context.Context, email string) (*remote.EmailResult, error)
}

// EmailPipeline runs the two-stage email validation: a synchronous format
// check, then a remote deliverability check. Every remote request is tagged
// with the email value and a generation number at issue time; outcomes are
// applied through a guarded update, so a response for a superseded request or
// an edited value is a true no-op.
type EmailPipeline struct {
	sessions EmailSessionStore
	verifier EmailVerifier
}

// NewEmailPipeline creates an EmailPipeline with the given store and verifier.
func NewEmailPipeline(sessions EmailSessionStore, verifier EmailVerifier) *EmailPipeline {
	return &EmailPipeline{sessions: sessions, verifier: verifier}
}

// CheckFormat reports whether email passes the stage-1 structural check.
func CheckFormat(email string) bool {
	return emailFormatPattern.MatchString(email)
}

// Verify runs the full pipeline for the session's current email value and
// returns the resulting validation state. Transport failures and malformed
// responses resolve to invalid, never valid.
func (p *EmailPipeline) Verify(ctx context.Context, sessionID string) (*model.EmailValidationResponse, error) {
	sess, err := p.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}

	email := strings.TrimSpace(sess.Email)

	// Bumping the generation first means this check supersedes any response
	// still in flight for an older value.
	generation, err := p.sessions.BeginEmailCheck(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("begin email check: %w", err)
	}

	var status, message, suggestion string
	if !CheckFormat(email) {
		status = model.EmailInvalid
		message = "please enter a valid email address"
	} else {
		result, verifyErr := p.verifier.Verify(ctx, email)
		switch {
		case verifyErr != nil:
			// Fail closed: an unreachable or malformed verifier never
			// produces a valid outcome.
			log.Warn().Err(verifyErr).Str("session_id", sessionID).Msg("email verification call failed")
			status = model.EmailInvalid
			message = "could not verify email address, please try again"
		case result.IsValid:
			status = model.EmailValid
		default:
			status = model.EmailInvalid
			message = result.Message
			if message == "" {
				message = "email address appears to be undeliverable"
			}
			suggestion = result.Suggestion
		}
	}

	applied, err := p.sessions.ApplyEmailOutcome(ctx, sessionID, sess.Email, generation, status, message, suggestion)
	if err != nil {
		return nil, fmt.Errorf("apply email outcome: %w", err)
	}
	if !applied {
		// The field changed or a newer check was issued while this one was
		// in flight. Discard silently and report whatever is current.
		log.Debug().
			Str("session_id", sessionID).
			Int64("generation", generation).
			Msg("discarded stale email verification outcome")
	}

	current, err := p.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("reload session: %w", err)
	}
	if current == nil {
		return nil, ErrSessionNotFound
	}
	return &model.EmailValidationResponse{
		Status:     current.EmailStatus,
		Message:    current.EmailMessage,
		Suggestion: current.EmailSuggestion,
		Checking:   current.EmailChecking,
	}, nil
}
