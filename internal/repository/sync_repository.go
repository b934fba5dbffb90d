package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"siesa-sync/internal/domain/inventory"
	syncerrors "siesa-sync/pkg/errors"
)

const syncColumns = `id, sync_batch_id, sku, product_name, shopify_product_id, shopify_variant_id, shopify_inventory_item_id, shopify_location_id, siesa_quantity, shopify_quantity_before, shopify_quantity_after, status, error_message, synced_at, created_at`

type syncRepository struct {
	db DBTX
}

func NewSyncRepository(db DBTX) SyncRepository {
	return &syncRepository{db: db}
}

func (r *syncRepository) Create(ctx context.Context, s *inventory.Sync) error {
	row := r.db.QueryRowContext(ctx, `
        INSERT INTO inventory_syncs (sync_batch_id, sku, product_name, siesa_quantity, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at
    `, s.SyncBatchID, s.SKU, s.ProductName, s.SiesaQuantity, s.Status)

	if err := row.Scan(&s.ID, &s.CreatedAt); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("batch %d: %w", s.SyncBatchID, syncerrors.ErrReferential)
		}
		return err
	}
	return nil
}

func (r *syncRepository) GetByID(ctx context.Context, id int64) (inventory.Sync, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+syncColumns+` FROM inventory_syncs WHERE id = $1`, id)
	return scanSync(row)
}

func (r *syncRepository) ListByBatch(ctx context.Context, batchID int64) ([]inventory.Sync, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+syncColumns+` FROM inventory_syncs
        WHERE sync_batch_id = $1
        ORDER BY id ASC
    `, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var syncs []inventory.Sync
	for rows.Next() {
		var s inventory.Sync
		if err := rows.Scan(
			&s.ID, &s.SyncBatchID, &s.SKU, &s.ProductName,
			&s.ShopifyProductID, &s.ShopifyVariantID, &s.ShopifyInventoryItemID, &s.ShopifyLocationID,
			&s.SiesaQuantity, &s.ShopifyQuantityBefore, &s.ShopifyQuantityAfter,
			&s.Status, &s.ErrorMessage, &s.SyncedAt, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		syncs = append(syncs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return syncs, nil
}

// ResolveSuccess records the reconciliation result for one SKU. The WHERE
// clause on the pending status makes every resolve a one-shot transition;
// a second resolve of any kind matches zero rows.
func (r *syncRepository) ResolveSuccess(ctx context.Context, id int64, refs inventory.ShopifyRefs, qtyBefore, qtyAfter int) (inventory.Sync, error) {
	row := r.db.QueryRowContext(ctx, `
        UPDATE inventory_syncs
        SET status = $1,
            shopify_product_id = $2, shopify_variant_id = $3,
            shopify_inventory_item_id = $4, shopify_location_id = $5,
            shopify_quantity_before = $6, shopify_quantity_after = $7,
            synced_at = now()
        WHERE id = $8 AND status = $9
        RETURNING `+syncColumns+`
    `, inventory.SyncStatusSuccess,
		refs.ProductID, refs.VariantID, refs.InventoryItemID, refs.LocationID,
		qtyBefore, qtyAfter, id, inventory.SyncStatusPending)

	s, err := scanSync(row)
	if errors.Is(err, syncerrors.ErrNotFound) {
		return inventory.Sync{}, r.conflict(ctx, id)
	}
	return s, err
}

func (r *syncRepository) ResolveFailed(ctx context.Context, id int64, errMsg string) (inventory.Sync, error) {
	row := r.db.QueryRowContext(ctx, `
        UPDATE inventory_syncs
        SET status = $1, error_message = $2, synced_at = now()
        WHERE id = $3 AND status = $4
        RETURNING `+syncColumns+`
    `, inventory.SyncStatusFailed, errMsg, id, inventory.SyncStatusPending)

	s, err := scanSync(row)
	if errors.Is(err, syncerrors.ErrNotFound) {
		return inventory.Sync{}, r.conflict(ctx, id)
	}
	return s, err
}

func (r *syncRepository) ResolveSkipped(ctx context.Context, id int64, reason string) (inventory.Sync, error) {
	row := r.db.QueryRowContext(ctx, `
        UPDATE inventory_syncs
        SET status = $1, error_message = $2, synced_at = now()
        WHERE id = $3 AND status = $4
        RETURNING `+syncColumns+`
    `, inventory.SyncStatusSkipped, reason, id, inventory.SyncStatusPending)

	s, err := scanSync(row)
	if errors.Is(err, syncerrors.ErrNotFound) {
		return inventory.Sync{}, r.conflict(ctx, id)
	}
	return s, err
}

func (r *syncRepository) conflict(ctx context.Context, id int64) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return syncerrors.ErrInvalidTransition
}

func scanSync(row *sql.Row) (inventory.Sync, error) {
	var s inventory.Sync
	err := row.Scan(
		&s.ID, &s.SyncBatchID, &s.SKU, &s.ProductName,
		&s.ShopifyProductID, &s.ShopifyVariantID, &s.ShopifyInventoryItemID, &s.ShopifyLocationID,
		&s.SiesaQuantity, &s.ShopifyQuantityBefore, &s.ShopifyQuantityAfter,
		&s.Status, &s.ErrorMessage, &s.SyncedAt, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return inventory.Sync{}, syncerrors.ErrNotFound
		}
		return inventory.Sync{}, err
	}
	return s, nil
}
