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

const orderColumns = `id, session_id, idempotency_key, server_name, customer_name, email,
	phone, discord, plan_id, plan_name, additional_backups, additional_ports,
	total, discount_amount, discount_kind, billing_cycle, created_at`

// OrderRepository persists finalized order snapshots. A snapshot is the
// read-once handoff between checkout submission and the order dispatcher;
// the UNIQUE constraint on session_id makes submission single-shot.
type OrderRepository struct {
	pool PoolInterface
}

// NewOrderRepository creates a new OrderRepository with the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// NewOrderRepositoryWithPool creates an OrderRepository with a custom pool interface.
// This is primarily used for testing.
func NewOrderRepositoryWithPool(pool PoolInterface) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Insert persists a finalized order within the submit transaction.
// Returns service.ErrAlreadySubmitted if the session already has an order.
func (r *OrderRepository) Insert(ctx context.Context, tx database.TxQuerier, o *model.FinalizedOrder) error {
	var discountAmount int
	var discountKind string
	if o.Discount != nil {
		discountAmount = o.Discount.Amount
		discountKind = string(o.Discount.Kind)
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO orders (id, session_id, idempotency_key, server_name, customer_name, email,
			phone, discord, plan_id, plan_name, additional_backups, additional_ports,
			total, discount_amount, discount_kind, billing_cycle)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		o.ID, o.SessionID, o.IdempotencyKey, o.ServerName, o.CustomerName, o.Email,
		o.Phone, o.Discord, o.PlanID, o.PlanName, o.Backups, o.Ports,
		o.Total, discountAmount, discountKind, o.BillingCycle)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrAlreadySubmitted
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func scanOrder(row pgx.Row) (*model.FinalizedOrder, error) {
	var o model.FinalizedOrder
	var discountAmount int
	var discountKind string
	err := row.Scan(
		&o.ID, &o.SessionID, &o.IdempotencyKey, &o.ServerName, &o.CustomerName, &o.Email,
		&o.Phone, &o.Discord, &o.PlanID, &o.PlanName, &o.Backups, &o.Ports,
		&o.Total, &discountAmount, &discountKind, &o.BillingCycle, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if discountKind != "" {
		o.Discount = &model.Discount{Amount: discountAmount, Kind: model.DiscountKind(discountKind)}
	}
	return &o, nil
}

// GetByID retrieves a finalized order by its id.
// Returns nil, nil if the order is not found (service layer handles this).
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*model.FinalizedOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return o, nil
}

// GetBySessionID retrieves the finalized order for a session, if any.
func (r *OrderRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.FinalizedOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE session_id = $1`

	o, err := scanOrder(r.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order for session %s: %w", sessionID, err)
	}
	return o, nil
}
