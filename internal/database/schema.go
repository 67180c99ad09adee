package database

import (
	"context"
	"fmt"
)

// schema is applied at startup. Statements are idempotent so repeated runs
// against an existing database are safe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ozon_products (
		offer_id    TEXT PRIMARY KEY,
		product_id  BIGINT NOT NULL,
		archived    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS ozon_product_details (
		offer_id         TEXT PRIMARY KEY REFERENCES ozon_products(offer_id) ON DELETE CASCADE,
		product_id       BIGINT NOT NULL,
		current_price    TEXT NOT NULL DEFAULT '',
		old_price        TEXT NOT NULL DEFAULT '',
		fbs_commission   DOUBLE PRECISION NOT NULL DEFAULT 0,
		width_mm         INTEGER NOT NULL DEFAULT 0,
		height_mm        INTEGER NOT NULL DEFAULT 0,
		length_mm        INTEGER NOT NULL DEFAULT 0,
		weight_g         INTEGER NOT NULL DEFAULT 0,
		calculated_price INTEGER,
		price_steps      JSONB,
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS supplier_parts (
		offer_id        TEXT PRIMARY KEY REFERENCES ozon_products(offer_id) ON DELETE CASCADE,
		part_code       TEXT NOT NULL,
		brand           TEXT NOT NULL DEFAULT '',
		number          TEXT NOT NULL DEFAULT '',
		detail_url      TEXT NOT NULL DEFAULT '',
		warehouse       TEXT NOT NULL DEFAULT '',
		qty             INTEGER NOT NULL DEFAULT 0,
		purchase_price  DOUBLE PRECISION NOT NULL DEFAULT 0,
		deadline        TEXT NOT NULL DEFAULT '',
		markup_percent  DOUBLE PRECISION NOT NULL DEFAULT 0,
		status          TEXT NOT NULL DEFAULT 'pending',
		error_message   TEXT NOT NULL DEFAULT '',
		fetched_at      TIMESTAMPTZ,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_supplier_parts_status ON supplier_parts(status)`,

	`CREATE TABLE IF NOT EXISTS sync_runs (
		id          UUID PRIMARY KEY,
		kind        TEXT NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		finished_at TIMESTAMPTZ,
		total       INTEGER NOT NULL DEFAULT 0,
		succeeded   INTEGER NOT NULL DEFAULT 0,
		failed      INTEGER NOT NULL DEFAULT 0,
		error       TEXT NOT NULL DEFAULT ''
	)`,
}

// InitSchema creates all tables and indexes if they do not exist yet.
func (db *DB) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
