package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"siesa-sync/internal/clients/shopify"
	"siesa-sync/internal/clients/siesa"
	"siesa-sync/internal/domain/inventory"
	"siesa-sync/internal/repository"
	syncerrors "siesa-sync/pkg/errors"
	"siesa-sync/pkg/logger"

	"go.uber.org/zap"
)

// InventoryService owns the reconciliation lane: it opens a batch, fans the
// ERP's SKUs out to a bounded pool of workers, resolves each SKU exactly
// once, rolls the outcomes up into the batch counters, and closes the batch
// with a status derived from those counters.
type InventoryService struct {
	batches repository.SyncBatchRepository
	items   repository.SyncRepository
	siesa   siesa.Client
	shopify shopify.Client
	log     *logger.Logger
	workers int
}

func NewInventoryService(
	batches repository.SyncBatchRepository,
	items repository.SyncRepository,
	siesaClient siesa.Client,
	shopifyClient shopify.Client,
	log *logger.Logger,
	workers int,
) *InventoryService {
	if workers < 1 {
		workers = 1
	}
	return &InventoryService{
		batches: batches,
		items:   items,
		siesa:   siesaClient,
		shopify: shopifyClient,
		log:     log,
		workers: workers,
	}
}

// OpenBatch starts a reconciliation run: running, counters at zero.
func (s *InventoryService) OpenBatch(ctx context.Context) (inventory.SyncBatch, error) {
	b := inventory.SyncBatch{
		StartedAt: time.Now().UTC(),
		Status:    inventory.BatchStatusRunning,
	}
	if err := s.batches.Create(ctx, &b); err != nil {
		return inventory.SyncBatch{}, err
	}
	s.log.InfoCtx(ctx, "inventory sync batch opened", zap.Int64("batch_id", b.ID))
	return b, nil
}

// OpenItem creates the pending row for one SKU within a batch.
func (s *InventoryService) OpenItem(ctx context.Context, batchID int64, sku, productName string, siesaQty int) (inventory.Sync, error) {
	item := inventory.Sync{
		SyncBatchID:   batchID,
		SKU:           sku,
		ProductName:   productName,
		SiesaQuantity: siesaQty,
		Status:        inventory.SyncStatusPending,
	}
	if err := s.items.Create(ctx, &item); err != nil {
		return inventory.Sync{}, err
	}
	return item, nil
}

// ResolveSuccess finishes one item: the storefront now reports qtyAfter,
// which equals the ERP quantity at sync time.
func (s *InventoryService) ResolveSuccess(ctx context.Context, itemID int64, refs inventory.ShopifyRefs, qtyBefore, qtyAfter int) (inventory.Sync, error) {
	return s.items.ResolveSuccess(ctx, itemID, refs, qtyBefore, qtyAfter)
}

func (s *InventoryService) ResolveFailed(ctx context.Context, itemID int64, errMsg string) (inventory.Sync, error) {
	return s.items.ResolveFailed(ctx, itemID, errMsg)
}

func (s *InventoryService) ResolveSkipped(ctx context.Context, itemID int64, reason string) (inventory.Sync, error) {
	return s.items.ResolveSkipped(ctx, itemID, reason)
}

// RecordItemOutcome rolls one resolved item into the batch counters. Called
// exactly once per resolved item; resolution itself stays with the item
// tracker.
func (s *InventoryService) RecordItemOutcome(ctx context.Context, batchID int64, status inventory.SyncStatus) error {
	return s.batches.IncrementCounters(ctx, batchID, status)
}

// CloseBatch derives the terminal status from the counters and stamps
// finished_at. A batch that processed nothing closes completed by policy.
func (s *InventoryService) CloseBatch(ctx context.Context, batchID int64) (inventory.SyncBatch, error) {
	b, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return inventory.SyncBatch{}, err
	}
	closed, err := s.batches.Close(ctx, batchID, b.DeriveCloseStatus())
	if err != nil {
		return inventory.SyncBatch{}, err
	}
	s.log.InfoCtx(ctx, "inventory sync batch closed",
		zap.Int64("batch_id", closed.ID),
		zap.String("status", string(closed.Status)),
		zap.Int("total", closed.TotalProducts),
		zap.Int("success", closed.SuccessfulSyncs),
		zap.Int("failed", closed.FailedSyncs),
		zap.Int("skipped", closed.SkippedSyncs),
	)
	return closed, nil
}

// AbortBatch terminates a run on a fatal, batch-wide error before or during
// item work.
func (s *InventoryService) AbortBatch(ctx context.Context, batchID int64, errMsg string) (inventory.SyncBatch, error) {
	b, err := s.batches.Abort(ctx, batchID, errMsg)
	if err != nil {
		return inventory.SyncBatch{}, err
	}
	s.log.ErrorCtx(ctx, "inventory sync batch aborted",
		zap.Int64("batch_id", b.ID),
		zap.String("error", errMsg),
	)
	return b, nil
}

func (s *InventoryService) GetBatch(ctx context.Context, id int64) (inventory.SyncBatch, error) {
	return s.batches.GetByID(ctx, id)
}

func (s *InventoryService) ListBatches(ctx context.Context, limit int) ([]inventory.SyncBatch, error) {
	return s.batches.ListRecent(ctx, limit)
}

func (s *InventoryService) BatchItems(ctx context.Context, batchID int64) ([]inventory.Sync, error) {
	if _, err := s.batches.GetByID(ctx, batchID); err != nil {
		return nil, err
	}
	return s.items.ListByBatch(ctx, batchID)
}

// RunReconciliation executes one full reconciliation pass. The ERP being
// unreachable is fatal and aborts the batch; per-SKU failures are isolated
// and only affect that SKU's row and the failed counter.
func (s *InventoryService) RunReconciliation(ctx context.Context) (inventory.SyncBatch, error) {
	batch, err := s.OpenBatch(ctx)
	if err != nil {
		return inventory.SyncBatch{}, err
	}
	ctx = context.WithValue(ctx, logger.BatchIdKey, batch.ID)

	stock, err := s.siesa.FetchInventory(ctx)
	if err != nil {
		msg := fmt.Sprintf("siesa inventory unavailable: %v", err)
		if _, abortErr := s.AbortBatch(ctx, batch.ID, msg); abortErr != nil {
			s.log.Errorf("batch %d abort not recorded: %v", batch.ID, abortErr)
		}
		return inventory.SyncBatch{}, fmt.Errorf("%s: %w", msg, syncerrors.ErrFatalBatch)
	}

	skus := make([]string, 0, len(stock))
	for sku := range stock {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sku := range jobs {
				s.reconcileSKU(ctx, batch.ID, stock[sku])
			}
		}()
	}

feed:
	for _, sku := range skus {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- sku:
		}
	}
	close(jobs)
	wg.Wait()

	if ctx.Err() != nil {
		// Cancelled: unresolved items stay pending and the batch stays
		// running; never fabricate a terminal state on shutdown.
		return inventory.SyncBatch{}, ctx.Err()
	}
	return s.CloseBatch(ctx, batch.ID)
}

// reconcileSKU runs one SKU through open → resolve → rollup. Every exit
// path resolves the item exactly once and reports exactly one outcome.
func (s *InventoryService) reconcileSKU(ctx context.Context, batchID int64, stock siesa.InventoryItem) {
	item, err := s.OpenItem(ctx, batchID, stock.SKU, stock.ProductName, stock.Quantity)
	if err != nil {
		s.log.Errorf("batch %d: sku %s not opened: %v", batchID, stock.SKU, err)
		return
	}

	status := s.resolveItem(ctx, item, stock)
	if status == inventory.SyncStatusPending {
		// Cancelled before resolution; the row stays pending for audit.
		return
	}
	if err := s.RecordItemOutcome(ctx, batchID, status); err != nil {
		s.log.Errorf("batch %d: outcome for sku %s not rolled up: %v", batchID, stock.SKU, err)
	}
}

func (s *InventoryService) resolveItem(ctx context.Context, item inventory.Sync, stock siesa.InventoryItem) inventory.SyncStatus {
	variant, found, err := s.shopify.VariantBySKU(ctx, item.SKU)
	if err != nil {
		if ctx.Err() != nil {
			return inventory.SyncStatusPending
		}
		return s.markFailed(ctx, item, fmt.Sprintf("variant lookup failed: %v", err))
	}
	if !found {
		if _, err := s.ResolveSkipped(ctx, item.ID, "sku has no shopify product"); err != nil {
			s.logResolveError(item, err)
			return inventory.SyncStatusPending
		}
		return inventory.SyncStatusSkipped
	}

	refs := inventory.ShopifyRefs{
		ProductID:       variant.ProductID,
		VariantID:       variant.VariantID,
		InventoryItemID: variant.InventoryItemID,
		LocationID:      variant.LocationID,
	}

	qtyBefore := variant.Available
	qtyAfter := qtyBefore
	if qtyBefore != stock.Quantity {
		qtyAfter, err = s.shopify.SetInventoryLevel(ctx, variant.InventoryItemID, variant.LocationID, stock.Quantity)
		if err != nil {
			if ctx.Err() != nil {
				return inventory.SyncStatusPending
			}
			return s.markFailed(ctx, item, fmt.Sprintf("inventory update failed: %v", err))
		}
	}

	if _, err := s.ResolveSuccess(ctx, item.ID, refs, qtyBefore, qtyAfter); err != nil {
		s.logResolveError(item, err)
		return inventory.SyncStatusPending
	}
	return inventory.SyncStatusSuccess
}

func (s *InventoryService) markFailed(ctx context.Context, item inventory.Sync, msg string) inventory.SyncStatus {
	if _, err := s.ResolveFailed(ctx, item.ID, msg); err != nil {
		s.logResolveError(item, err)
		return inventory.SyncStatusPending
	}
	return inventory.SyncStatusFailed
}

func (s *InventoryService) logResolveError(item inventory.Sync, err error) {
	if errors.Is(err, syncerrors.ErrInvalidTransition) {
		// Double resolution is a bug in the caller, not a data problem.
		s.log.Errorf("sync item %d (sku %s) resolved twice: %v", item.ID, item.SKU, err)
		return
	}
	s.log.Errorf("sync item %d (sku %s) resolution not recorded: %v", item.ID, item.SKU, err)
}
