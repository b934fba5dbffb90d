package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"siesa-sync/internal/domain/inventory"
	syncerrors "siesa-sync/pkg/errors"
)

const batchColumns = `id, started_at, finished_at, total_products, successful_syncs, failed_syncs, skipped_syncs, status, error_message, created_at, updated_at`

type syncBatchRepository struct {
	db DBTX
}

func NewSyncBatchRepository(db DBTX) SyncBatchRepository {
	return &syncBatchRepository{db: db}
}

func (r *syncBatchRepository) Create(ctx context.Context, b *inventory.SyncBatch) error {
	row := r.db.QueryRowContext(ctx, `
        INSERT INTO inventory_sync_batches (started_at, status)
        VALUES ($1,$2)
        RETURNING id, created_at, updated_at
    `, b.StartedAt, b.Status)
	return row.Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *syncBatchRepository) GetByID(ctx context.Context, id int64) (inventory.SyncBatch, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM inventory_sync_batches WHERE id = $1`, id)
	return scanBatch(row)
}

func (r *syncBatchRepository) ListRecent(ctx context.Context, limit int) ([]inventory.SyncBatch, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+batchColumns+` FROM inventory_sync_batches
        ORDER BY started_at DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []inventory.SyncBatch
	for rows.Next() {
		var b inventory.SyncBatch
		if err := rows.Scan(
			&b.ID, &b.StartedAt, &b.FinishedAt,
			&b.TotalProducts, &b.SuccessfulSyncs, &b.FailedSyncs, &b.SkippedSyncs,
			&b.Status, &b.ErrorMessage, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return batches, nil
}

// IncrementCounters applies the rollup for one resolved item in a single
// UPDATE; the database serializes concurrent workers so no increment is
// lost. Only legal while the batch is running.
func (r *syncBatchRepository) IncrementCounters(ctx context.Context, id int64, status inventory.SyncStatus) error {
	var counter string
	switch status {
	case inventory.SyncStatusSuccess:
		counter = "successful_syncs"
	case inventory.SyncStatusFailed:
		counter = "failed_syncs"
	case inventory.SyncStatusSkipped:
		counter = "skipped_syncs"
	default:
		return fmt.Errorf("cannot record outcome %q: %w", status, syncerrors.ErrInvalidTransition)
	}

	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`
        UPDATE inventory_sync_batches
        SET total_products = total_products + 1, %s = %s + 1, updated_at = now()
        WHERE id = $1 AND status = $2
    `, counter, counter), id, inventory.BatchStatusRunning)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return r.conflict(ctx, id)
	}
	return nil
}

func (r *syncBatchRepository) Close(ctx context.Context, id int64, status inventory.BatchStatus) (inventory.SyncBatch, error) {
	if !status.IsFinished() {
		return inventory.SyncBatch{}, fmt.Errorf("close to %q: %w", status, syncerrors.ErrInvalidTransition)
	}
	row := r.db.QueryRowContext(ctx, `
        UPDATE inventory_sync_batches
        SET status = $1, finished_at = now(), updated_at = now()
        WHERE id = $2 AND status = $3
        RETURNING `+batchColumns+`
    `, status, id, inventory.BatchStatusRunning)

	b, err := scanBatch(row)
	if errors.Is(err, syncerrors.ErrNotFound) {
		return inventory.SyncBatch{}, r.conflict(ctx, id)
	}
	return b, err
}

// Abort terminates a running batch on a fatal, batch-wide error, bypassing
// the per-item counters.
func (r *syncBatchRepository) Abort(ctx context.Context, id int64, errMsg string) (inventory.SyncBatch, error) {
	row := r.db.QueryRowContext(ctx, `
        UPDATE inventory_sync_batches
        SET status = $1, error_message = $2, finished_at = now(), updated_at = now()
        WHERE id = $3 AND status = $4
        RETURNING `+batchColumns+`
    `, inventory.BatchStatusFailed, errMsg, id, inventory.BatchStatusRunning)

	b, err := scanBatch(row)
	if errors.Is(err, syncerrors.ErrNotFound) {
		return inventory.SyncBatch{}, r.conflict(ctx, id)
	}
	return b, err
}

func (r *syncBatchRepository) conflict(ctx context.Context, id int64) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return syncerrors.ErrInvalidTransition
}

func scanBatch(row *sql.Row) (inventory.SyncBatch, error) {
	var b inventory.SyncBatch
	err := row.Scan(
		&b.ID, &b.StartedAt, &b.FinishedAt,
		&b.TotalProducts, &b.SuccessfulSyncs, &b.FailedSyncs, &b.SkippedSyncs,
		&b.Status, &b.ErrorMessage, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return inventory.SyncBatch{}, syncerrors.ErrNotFound
		}
		return inventory.SyncBatch{}, err
	}
	return b, nil
}
