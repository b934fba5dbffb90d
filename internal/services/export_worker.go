package services

import (
	"context"
	"sync"
	"time"

	"siesa-sync/internal/export"
	"siesa-sync/pkg/logger"

	"go.uber.org/zap"
)

// ExportWorker polls for exportable orders and drives each through one
// attempt: claim, write the flat file, complete or fail. Failures on one
// order never abort the rest of the batch.
type ExportWorker struct {
	orders           *OrderService
	exporter         export.Exporter
	log              *logger.Logger
	interval         time.Duration
	batchSize        int
	stalledThreshold time.Duration
	stopChan         chan struct{}
	wg               sync.WaitGroup
}

func NewExportWorker(orders *OrderService, exporter export.Exporter, log *logger.Logger, interval time.Duration, batchSize int, stalledThreshold time.Duration) *ExportWorker {
	return &ExportWorker{
		orders:           orders,
		exporter:         exporter,
		log:              log,
		interval:         interval,
		batchSize:        batchSize,
		stalledThreshold: stalledThreshold,
		stopChan:         make(chan struct{}),
	}
}

// Start begins the worker loop
func (w *ExportWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop gracefully shuts down
func (w *ExportWorker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}

func (w *ExportWorker) run(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.sweepStalled(ctx)
			w.processBatch(ctx)
		}
	}
}

func (w *ExportWorker) sweepStalled(ctx context.Context) {
	if _, err := w.orders.RequeueStalled(ctx, w.stalledThreshold); err != nil {
		w.log.Errorf("stalled order sweep failed: %v", err)
	}
}

func (w *ExportWorker) processBatch(ctx context.Context) {
	batch, err := w.orders.ListExportable(ctx, w.batchSize)
	if err != nil {
		w.log.Errorf("list exportable orders failed: %v", err)
		return
	}

	for _, o := range batch {
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.processOrder(ctx, o.ID)
	}
}

func (w *ExportWorker) processOrder(ctx context.Context, id int64) {
	o, err := w.orders.BeginProcessing(ctx, id)
	if err != nil {
		// Lost the claim race to another runner, or the order progressed
		// since listing. Not an error for this worker.
		w.log.Logger.Debug("order claim skipped", zap.Int64("order_id", id), zap.Error(err))
		return
	}

	fileName, filePath, err := w.exporter.Export(ctx, o, w.orders.Snapshot(o))
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled mid-attempt: leave the order in processing for the
			// stalled sweep instead of fabricating a terminal state.
			return
		}
		if _, failErr := w.orders.Fail(ctx, o.ID, err.Error()); failErr != nil {
			w.log.Errorf("order %d could not be marked failed: %v", o.ID, failErr)
		}
		return
	}

	if _, err := w.orders.Complete(ctx, o.ID, fileName, filePath); err != nil {
		w.log.Errorf("order %d export succeeded but completion not recorded: %v", o.ID, err)
	}
}
