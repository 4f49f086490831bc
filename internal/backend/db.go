// Package backend implements the hosted Postgres collaborators: catalog
// queries, the account directory and order submission.
package backend

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of *pgxpool.Pool the collaborators use.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB owns the connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// Connect opens a pool. maxConns <= 0 keeps the pgx default.
func Connect(ctx context.Context, dsn string, maxConns int) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close releases every pooled connection.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Ready checks that the database answers queries.
func (db *DB) Ready(ctx context.Context) error {
	var one int
	return db.Pool.QueryRow(ctx, "select 1").Scan(&one)
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS products (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    slug            TEXT,
    price           BIGINT NOT NULL CHECK (price >= 0),
    original_price  BIGINT,
    category        TEXT NOT NULL DEFAULT '',
    subcategory     TEXT,
    rating          DOUBLE PRECISION NOT NULL DEFAULT 0,
    reviews         INTEGER,
    in_stock        BOOLEAN NOT NULL DEFAULT TRUE,
    stock_count     INTEGER,
    description     TEXT,
    features        TEXT[],
    image_url       TEXT,
    tags            TEXT[]
);

CREATE TABLE IF NOT EXISTS users (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    email           TEXT NOT NULL UNIQUE,
    password_hash   TEXT NOT NULL,
    language        TEXT NOT NULL DEFAULT 'en',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS orders (
    id              BIGSERIAL PRIMARY KEY,
    order_id        TEXT NOT NULL,
    user_id         TEXT,
    product_id      TEXT NOT NULL,
    product_name    TEXT NOT NULL,
    product_image   TEXT,
    price           BIGINT NOT NULL,
    quantity        INTEGER NOT NULL CHECK (quantity > 0),
    total_amount    BIGINT NOT NULL,
    payment_type    TEXT NOT NULL,
    payment_status  TEXT NOT NULL,
    order_status    TEXT NOT NULL,
    full_name       TEXT NOT NULL,
    mobile_number   TEXT NOT NULL,
    email           TEXT NOT NULL,
    address         TEXT NOT NULL,
    city            TEXT NOT NULL,
    pincode         TEXT NOT NULL,
    notes           TEXT NOT NULL DEFAULT '',
    order_date      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, order_date DESC);
CREATE INDEX IF NOT EXISTS idx_orders_order_id ON orders(order_id);
`

// EnsureSchema creates the backend tables when absent.
func EnsureSchema(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
