package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/hosting-checkout/internal/model"
)

// RedeemCheckRepository memoizes definitive redeem-authority answers per
// session. Only answers that actually came back from the authority are
// stored; transport failures are never recorded, so they stay retryable.
type RedeemCheckRepository struct {
	pool PoolInterface
}

// NewRedeemCheckRepository creates a new RedeemCheckRepository with the given pool.
func NewRedeemCheckRepository(pool *pgxpool.Pool) *RedeemCheckRepository {
	return &RedeemCheckRepository{pool: pool}
}

// NewRedeemCheckRepositoryWithPool creates a RedeemCheckRepository with a custom pool interface.
// This is primarily used for testing.
func NewRedeemCheckRepositoryWithPool(pool PoolInterface) *RedeemCheckRepository {
	return &RedeemCheckRepository{pool: pool}
}

// Get retrieves the memoized check for (sessionID, code).
// Returns nil, nil when the code was never checked in this session.
func (r *RedeemCheckRepository) Get(ctx context.Context, sessionID, code string) (*model.RedeemCheck, error) {
	query := `SELECT session_id, code, valid, discount_amount, discount_kind, message, created_at
		FROM redeem_checks WHERE session_id = $1 AND code = $2`

	var c model.RedeemCheck
	err := r.pool.QueryRow(ctx, query, sessionID, code).Scan(
		&c.SessionID, &c.Code, &c.Valid, &c.DiscountAmount, &c.DiscountKind, &c.Message, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get redeem check %s/%s: %w", sessionID, code, err)
	}
	return &c, nil
}

// Upsert records the authority's answer for (sessionID, code), replacing any
// earlier answer. Codes can move from valid to invalid between checks, so the
// latest answer always wins.
func (r *RedeemCheckRepository) Upsert(ctx context.Context, c *model.RedeemCheck) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO redeem_checks (session_id, code, valid, discount_amount, discount_kind, message)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (session_id, code) DO UPDATE SET
			valid = EXCLUDED.valid,
			discount_amount = EXCLUDED.discount_amount,
			discount_kind = EXCLUDED.discount_kind,
			message = EXCLUDED.message`,
		c.SessionID, c.Code, c.Valid, c.DiscountAmount, c.DiscountKind, c.Message)
	if err != nil {
		return fmt.Errorf("upsert redeem check %s/%s: %w", c.SessionID, c.Code, err)
	}
	return nil
}
