package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles analytics data persistence. Trade records and report
// snapshots are read and written here only.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new analytics repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the analytics tables when they do not exist yet.
// Called once at startup; every statement is idempotent.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE SCHEMA IF NOT EXISTS analytics`,
		`CREATE TABLE IF NOT EXISTS analytics.trade_records (
			id            TEXT PRIMARY KEY,
			ts            TIMESTAMPTZ NOT NULL,
			symbol        TEXT NOT NULL,
			side          TEXT NOT NULL DEFAULT '',
			quantity      DOUBLE PRECISION NOT NULL DEFAULT 0,
			price         DOUBLE PRECISION NOT NULL DEFAULT 0,
			realized_pnl  DOUBLE PRECISION NOT NULL DEFAULT 0,
			fee           DOUBLE PRECISION NOT NULL DEFAULT 0,
			funding       DOUBLE PRECISION NOT NULL DEFAULT 0,
			kind          TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trade_records_ts
			ON analytics.trade_records (ts)`,
		`CREATE INDEX IF NOT EXISTS idx_trade_records_symbol_ts
			ON analytics.trade_records (symbol, ts)`,
		`CREATE TABLE IF NOT EXISTS analytics.reports (
			as_of       TIMESTAMPTZ NOT NULL,
			granularity TEXT NOT NULL,
			lookback    TEXT NOT NULL,
			report      JSONB NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (as_of, granularity)
		)`,
	}

	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	return nil
}
