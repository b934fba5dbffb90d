package repository

import (
	"context"
	"database/sql"
	"fmt"

	"siesa-sync/internal/domain/inventory"
	"siesa-sync/internal/domain/order"
)

// InitSchema creates the four tables with their status constraints, cascade
// foreign keys and indexes. All statements are idempotent and run in one
// transaction, so a half-created schema never survives a failed migration.
func InitSchema(ctx context.Context, db *sql.DB) error {
	orderStatuses := make([]string, 0, 4)
	for _, s := range order.StatusValues() {
		orderStatuses = append(orderStatuses, string(s))
	}
	logLevels := make([]string, 0, 3)
	for _, l := range order.LogLevelValues() {
		logLevels = append(logLevels, string(l))
	}
	syncStatuses := make([]string, 0, 4)
	for _, s := range inventory.SyncStatusValues() {
		syncStatuses = append(syncStatuses, string(s))
	}
	batchStatuses := make([]string, 0, 4)
	for _, s := range inventory.BatchStatusValues() {
		batchStatuses = append(batchStatuses, string(s))
	}

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			shopify_order_id VARCHAR(255) NOT NULL UNIQUE,
			shopify_order_number VARCHAR(50) NOT NULL,
			raw_payload JSONB NOT NULL,
			flat_file_name VARCHAR(255),
			flat_file_path VARCHAR(500),
			status VARCHAR(20) NOT NULL DEFAULT 'pending' CHECK (status IN (%s)),
			error_message TEXT,
			attempts INTEGER NOT NULL DEFAULT 0 CHECK (attempts >= 0),
			processed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, quotedList(orderStatuses)),
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders (created_at)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS order_logs (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			level VARCHAR(10) NOT NULL CHECK (level IN (%s)),
			message TEXT NOT NULL,
			context JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, quotedList(logLevels)),
		`CREATE INDEX IF NOT EXISTS idx_order_logs_order_id ON order_logs (order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_order_logs_level ON order_logs (level)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS inventory_sync_batches (
			id BIGSERIAL PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ,
			total_products INTEGER NOT NULL DEFAULT 0 CHECK (total_products >= 0),
			successful_syncs INTEGER NOT NULL DEFAULT 0 CHECK (successful_syncs >= 0),
			failed_syncs INTEGER NOT NULL DEFAULT 0 CHECK (failed_syncs >= 0),
			skipped_syncs INTEGER NOT NULL DEFAULT 0 CHECK (skipped_syncs >= 0),
			status VARCHAR(20) NOT NULL DEFAULT 'running' CHECK (status IN (%s)),
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, quotedList(batchStatuses)),
		`CREATE INDEX IF NOT EXISTS idx_sync_batches_status ON inventory_sync_batches (status)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_batches_started_at ON inventory_sync_batches (started_at)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS inventory_syncs (
			id BIGSERIAL PRIMARY KEY,
			sync_batch_id BIGINT NOT NULL REFERENCES inventory_sync_batches(id) ON DELETE CASCADE,
			sku VARCHAR(100) NOT NULL,
			product_name VARCHAR(500) NOT NULL,
			shopify_product_id VARCHAR(255),
			shopify_variant_id VARCHAR(255),
			shopify_inventory_item_id VARCHAR(255),
			shopify_location_id VARCHAR(255),
			siesa_quantity INTEGER NOT NULL,
			shopify_quantity_before INTEGER,
			shopify_quantity_after INTEGER,
			status VARCHAR(20) NOT NULL DEFAULT 'pending' CHECK (status IN (%s)),
			error_message TEXT,
			synced_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, quotedList(syncStatuses)),
		`CREATE INDEX IF NOT EXISTS idx_inventory_syncs_batch ON inventory_syncs (sync_batch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_syncs_sku ON inventory_syncs (sku)`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_syncs_status ON inventory_syncs (status)`,
	}

	return WithTx(ctx, db, func(tx DBTX) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
		}
		return nil
	})
}
