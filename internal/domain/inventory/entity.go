package inventory

import (
	"database/sql"
	"time"
)

// SyncBatch represents the inventory_sync_batches table: one reconciliation
// run covering a set of SKUs, with aggregate counters and a single outcome.
type SyncBatch struct {
	ID              int64
	StartedAt       time.Time
	FinishedAt      sql.NullTime
	TotalProducts   int
	SuccessfulSyncs int
	FailedSyncs     int
	SkippedSyncs    int
	Status          BatchStatus
	ErrorMessage    sql.NullString
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CountersConsistent verifies successful + failed + skipped never exceeds
// total; the sums are equal once the batch is finished.
func (b SyncBatch) CountersConsistent() bool {
	resolved := b.SuccessfulSyncs + b.FailedSyncs + b.SkippedSyncs
	if b.Status.IsFinished() && !b.ErrorMessage.Valid {
		return resolved == b.TotalProducts
	}
	return resolved <= b.TotalProducts
}

// DeriveCloseStatus computes the terminal status for a normally closed
// batch. A batch with no items at all closes COMPLETED by policy.
func (b SyncBatch) DeriveCloseStatus() BatchStatus {
	switch {
	case b.TotalProducts == 0:
		return BatchStatusCompleted
	case b.FailedSyncs == 0:
		return BatchStatusCompleted
	case b.SuccessfulSyncs == 0:
		return BatchStatusFailed
	default:
		return BatchStatusPartial
	}
}

// Sync represents the inventory_syncs table: one SKU's outcome within a
// batch. Each run creates fresh rows; history is retained, not overwritten.
type Sync struct {
	ID                     int64
	SyncBatchID            int64
	SKU                    string
	ProductName            string
	ShopifyProductID       sql.NullString
	ShopifyVariantID       sql.NullString
	ShopifyInventoryItemID sql.NullString
	ShopifyLocationID      sql.NullString
	SiesaQuantity          int
	ShopifyQuantityBefore  sql.NullInt64
	ShopifyQuantityAfter   sql.NullInt64
	Status                 SyncStatus
	ErrorMessage           sql.NullString
	SyncedAt               sql.NullTime
	CreatedAt              time.Time
}

// ShopifyRefs carries the storefront identifiers recorded when an item
// resolves successfully.
type ShopifyRefs struct {
	ProductID       string
	VariantID       string
	InventoryItemID string
	LocationID      string
}

func (SyncBatch) TableName() string {
	return "inventory_sync_batches"
}

func (Sync) TableName() string {
	return "inventory_syncs"
}
