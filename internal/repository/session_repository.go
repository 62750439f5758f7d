package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/hosting-checkout/internal/model"
	"github.com/fairyhunter13/hosting-checkout/internal/service"
	"github.com/fairyhunter13/hosting-checkout/pkg/database"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const sessionColumns = `id, server_name, customer_name, email, password, phone, discord,
	plan_id, additional_backups, additional_ports, redeem_code, billing_cycle,
	email_status, email_message, email_suggestion, email_checking, email_generation,
	redeem_status, applied_code, discount_amount, discount_kind,
	finalized, created_at, updated_at`

func scanSession(row pgx.Row) (*model.CheckoutSession, error) {
	var s model.CheckoutSession
	err := row.Scan(
		&s.ID, &s.ServerName, &s.CustomerName, &s.Email, &s.Password, &s.Phone, &s.Discord,
		&s.PlanID, &s.AdditionalBackups, &s.AdditionalPorts, &s.RedeemCode, &s.BillingCycle,
		&s.EmailStatus, &s.EmailMessage, &s.EmailSuggestion, &s.EmailChecking, &s.EmailGeneration,
		&s.RedeemStatus, &s.AppliedCode, &s.DiscountAmount, &s.DiscountKind,
		&s.Finalized, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SessionRepository provides data access for checkout sessions using pgx.
type SessionRepository struct {
	pool PoolInterface
}

// NewSessionRepository creates a new SessionRepository with the given pool.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// NewSessionRepositoryWithPool creates a new SessionRepository with a custom pool interface.
// This is primarily used for testing.
func NewSessionRepositoryWithPool(pool PoolInterface) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Insert creates a new draft session row.
func (r *SessionRepository) Insert(ctx context.Context, s *model.CheckoutSession) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO checkout_sessions (id, plan_id, billing_cycle, email_status, redeem_status)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.PlanID, s.BillingCycle, s.EmailStatus, s.RedeemStatus)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetByID retrieves a session by its id.
// Returns nil, nil if the session is not found (service layer handles this).
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE id = $1`

	s, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return s, nil
}

// GetForUpdate retrieves a session with a row lock (SELECT FOR UPDATE).
// This locks the row until the transaction completes.
// Returns service.ErrSessionNotFound if the session doesn't exist.
func (r *SessionRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE id = $1 FOR UPDATE`

	s, err := scanSession(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session for update %s: %w", id, err)
	}
	return s, nil
}

// UpdateDraft persists the mutable draft fields and the redeem outcome.
// Email validation state is deliberately excluded: it only moves through
// ResetEmailState / BeginEmailCheck / ApplyEmailOutcome so the generation
// counter is never overwritten by a concurrent field edit.
func (r *SessionRepository) UpdateDraft(ctx context.Context, s *model.CheckoutSession) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE checkout_sessions SET
			server_name = $2, customer_name = $3, email = $4, password = $5,
			phone = $6, discord = $7, plan_id = $8,
			additional_backups = $9, additional_ports = $10,
			redeem_code = $11, billing_cycle = $12,
			redeem_status = $13, applied_code = $14, discount_amount = $15, discount_kind = $16,
			updated_at = now()
		 WHERE id = $1`,
		s.ID, s.ServerName, s.CustomerName, s.Email, s.Password,
		s.Phone, s.Discord, s.PlanID,
		s.AdditionalBackups, s.AdditionalPorts,
		s.RedeemCode, s.BillingCycle,
		s.RedeemStatus, s.AppliedCode, s.DiscountAmount, s.DiscountKind)
	if err != nil {
		return fmt.Errorf("update draft %s: %w", s.ID, err)
	}
	return nil
}

// ResetEmailState returns the email validation state to unknown. Called when
// the email field itself changes.
func (r *SessionRepository) ResetEmailState(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE checkout_sessions SET
			email_status = 'unknown', email_message = '', email_suggestion = '',
			email_checking = FALSE, updated_at = now()
		 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("reset email state %s: %w", id, err)
	}
	return nil
}

// BeginEmailCheck marks a new verification request in flight and returns its
// generation number. The counter increases monotonically, so each issued
// request is uniquely tagged.
func (r *SessionRepository) BeginEmailCheck(ctx context.Context, id string) (int64, error) {
	var generation int64
	err := r.pool.QueryRow(ctx,
		`UPDATE checkout_sessions SET
			email_checking = TRUE, email_generation = email_generation + 1, updated_at = now()
		 WHERE id = $1
		 RETURNING email_generation`, id).Scan(&generation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, service.ErrSessionNotFound
		}
		return 0, fmt.Errorf("begin email check %s: %w", id, err)
	}
	return generation, nil
}

// ApplyEmailOutcome writes a verification outcome only if the session still
// holds the email value the request was issued for AND the request is still
// the most recent one. A stale outcome matches zero rows and is a true no-op:
// it neither mutates state nor clears a newer request's in-flight flag.
// Returns whether the outcome was applied.
func (r *SessionRepository) ApplyEmailOutcome(ctx context.Context, id, email string, generation int64, status, message, suggestion string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE checkout_sessions SET
			email_status = $4, email_message = $5, email_suggestion = $6,
			email_checking = FALSE, updated_at = now()
		 WHERE id = $1 AND email = $2 AND email_generation = $3`,
		id, email, generation, status, message, suggestion)
	if err != nil {
		return false, fmt.Errorf("apply email outcome %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFinalized flags the session as submitted. Must be called within a
// transaction after locking the row.
func (r *SessionRepository) MarkFinalized(ctx context.Context, tx database.TxQuerier, id string) error {
	_, err := tx.Exec(ctx,
		`UPDATE checkout_sessions SET finalized = TRUE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark finalized %s: %w", id, err)
	}
	return nil
}
