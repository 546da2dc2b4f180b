package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pools (
		pool_address TEXT PRIMARY KEY,
		authority TEXT NOT NULL,
		asset_x TEXT NOT NULL,
		asset_y TEXT NOT NULL,
		lp_mint TEXT NOT NULL,
		custody_x TEXT NOT NULL,
		custody_y TEXT NOT NULL,
		reserve_x NUMERIC(20,0) NOT NULL,
		reserve_y NUMERIC(20,0) NOT NULL,
		lp_supply NUMERIC(20,0) NOT NULL,
		fee_bps INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pool_events (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		pool_address TEXT NOT NULL,
		caller TEXT NOT NULL,
		amount_x NUMERIC(20,0) NOT NULL,
		amount_y NUMERIC(20,0) NOT NULL,
		lp_amount NUMERIC(20,0) NOT NULL,
		fee_x NUMERIC(20,0) NOT NULL,
		fee_y NUMERIC(20,0) NOT NULL,
		reserve_x NUMERIC(20,0) NOT NULL,
		reserve_y NUMERIC(20,0) NOT NULL,
		lp_supply NUMERIC(20,0) NOT NULL,
		fee_bps INTEGER NOT NULL,
		event_ts BIGINT NOT NULL,
		seq BIGSERIAL
	)`,
	`CREATE INDEX IF NOT EXISTS pool_events_ts_idx ON pool_events (event_ts, seq)`,
	`CREATE TABLE IF NOT EXISTS snapshots (
		name TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pool_window_metrics (
		pool_address TEXT NOT NULL,
		window_size_seconds BIGINT NOT NULL,
		window_start_ts TIMESTAMPTZ NOT NULL,
		window_end_ts TIMESTAMPTZ NOT NULL,
		swap_count BIGINT NOT NULL,
		deposit_count BIGINT NOT NULL,
		withdraw_count BIGINT NOT NULL,
		volume_x NUMERIC NOT NULL,
		volume_y NUMERIC NOT NULL,
		fee_x NUMERIC NOT NULL,
		fee_y NUMERIC NOT NULL,
		fee_rate_x NUMERIC,
		fee_rate_y NUMERIC,
		reserve_x NUMERIC(20,0) NOT NULL,
		reserve_y NUMERIC(20,0) NOT NULL,
		lp_supply NUMERIC(20,0) NOT NULL,
		product_growth NUMERIC,
		growth_apr NUMERIC,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (pool_address, window_size_seconds, window_start_ts)
	)`,
	`CREATE TABLE IF NOT EXISTS report_state (
		name TEXT PRIMARY KEY,
		last_processed_ts BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates the tables the store writes to.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
