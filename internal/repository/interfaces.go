package repository

import (
	"context"
	"time"

	"siesa-sync/internal/domain/inventory"
	"siesa-sync/internal/domain/order"
)

type OrderRepository interface {
	Create(ctx context.Context, o *order.Order) error
	GetByID(ctx context.Context, id int64) (order.Order, error)
	GetByShopifyOrderID(ctx context.Context, shopifyOrderID string) (order.Order, error)
	ListByStatus(ctx context.Context, status order.Status, limit int) ([]order.Order, error)
	ListExportable(ctx context.Context, maxAttempts, limit int) ([]order.Order, error)

	// BeginProcessing is the dispatch lock: a single conditional UPDATE that
	// moves the order to processing and increments attempts, so two
	// concurrent runners can never both claim the same order.
	BeginProcessing(ctx context.Context, id int64, maxAttempts int) (order.Order, error)
	MarkCompleted(ctx context.Context, id int64, fileName, filePath string) (order.Order, error)
	MarkFailed(ctx context.Context, id int64, errMsg string) (order.Order, error)
	Reset(ctx context.Context, id int64) (order.Order, error)
	RequeueStalled(ctx context.Context, threshold time.Duration) (int64, error)
}

type OrderLogRepository interface {
	Create(ctx context.Context, l *order.OrderLog) error
	ListByOrder(ctx context.Context, orderID int64) ([]order.OrderLog, error)
}

type SyncBatchRepository interface {
	Create(ctx context.Context, b *inventory.SyncBatch) error
	GetByID(ctx context.Context, id int64) (inventory.SyncBatch, error)
	ListRecent(ctx context.Context, limit int) ([]inventory.SyncBatch, error)

	// IncrementCounters bumps total_products plus the counter matching the
	// item's terminal status in one UPDATE; concurrent workers report
	// outcomes without a lost update.
	IncrementCounters(ctx context.Context, id int64, status inventory.SyncStatus) error
	Close(ctx context.Context, id int64, status inventory.BatchStatus) (inventory.SyncBatch, error)
	Abort(ctx context.Context, id int64, errMsg string) (inventory.SyncBatch, error)
}

type SyncRepository interface {
	Create(ctx context.Context, s *inventory.Sync) error
	GetByID(ctx context.Context, id int64) (inventory.Sync, error)
	ListByBatch(ctx context.Context, batchID int64) ([]inventory.Sync, error)

	ResolveSuccess(ctx context.Context, id int64, refs inventory.ShopifyRefs, qtyBefore, qtyAfter int) (inventory.Sync, error)
	ResolveFailed(ctx context.Context, id int64, errMsg string) (inventory.Sync, error)
	ResolveSkipped(ctx context.Context, id int64, reason string) (inventory.Sync, error)
}
