package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// schema is the checkout schema DDL. Every statement is idempotent, so
// EnsureSchema is safe to run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS checkout_sessions (
	id                 UUID PRIMARY KEY,
	server_name        TEXT        NOT NULL DEFAULT '',
	customer_name      TEXT        NOT NULL DEFAULT '',
	email              TEXT        NOT NULL DEFAULT '',
	password           TEXT        NOT NULL DEFAULT '',
	phone              TEXT        NOT NULL DEFAULT '',
	discord            TEXT        NOT NULL DEFAULT '',
	plan_id            TEXT        NOT NULL DEFAULT '',
	additional_backups INT         NOT NULL DEFAULT 0,
	additional_ports   INT         NOT NULL DEFAULT 0,
	redeem_code        TEXT        NOT NULL DEFAULT '',
	billing_cycle      TEXT        NOT NULL DEFAULT 'monthly',
	email_status       TEXT        NOT NULL DEFAULT 'unknown',
	email_message      TEXT        NOT NULL DEFAULT '',
	email_suggestion   TEXT        NOT NULL DEFAULT '',
	email_checking     BOOLEAN     NOT NULL DEFAULT FALSE,
	email_generation   BIGINT      NOT NULL DEFAULT 0,
	redeem_status      TEXT        NOT NULL DEFAULT 'unknown',
	applied_code       TEXT        NOT NULL DEFAULT '',
	discount_amount    INT         NOT NULL DEFAULT 0,
	discount_kind      TEXT        NOT NULL DEFAULT '',
	finalized          BOOLEAN     NOT NULL DEFAULT FALSE,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS redeem_checks (
	session_id      UUID        NOT NULL REFERENCES checkout_sessions(id) ON DELETE CASCADE,
	code            TEXT        NOT NULL,
	valid           BOOLEAN     NOT NULL,
	discount_amount INT         NOT NULL DEFAULT 0,
	discount_kind   TEXT        NOT NULL DEFAULT '',
	message         TEXT        NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, code)
);

CREATE TABLE IF NOT EXISTS orders (
	id                 UUID        PRIMARY KEY,
	session_id         UUID        NOT NULL UNIQUE REFERENCES checkout_sessions(id),
	idempotency_key    TEXT        NOT NULL,
	server_name        TEXT        NOT NULL,
	customer_name      TEXT        NOT NULL,
	email              TEXT        NOT NULL,
	phone              TEXT        NOT NULL DEFAULT '',
	discord            TEXT        NOT NULL DEFAULT '',
	plan_id            TEXT        NOT NULL,
	plan_name          TEXT        NOT NULL,
	additional_backups INT         NOT NULL DEFAULT 0,
	additional_ports   INT         NOT NULL DEFAULT 0,
	total              INT         NOT NULL,
	discount_amount    INT         NOT NULL DEFAULT 0,
	discount_kind      TEXT        NOT NULL DEFAULT '',
	billing_cycle      TEXT        NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_orders_idempotency_key ON orders (idempotency_key);
`

// EnsureSchema creates the checkout tables if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	log.Info().Msg("database schema ensured")
	return nil
}
