package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"siesa-sync/internal/clients/shopify"
	"siesa-sync/internal/domain/order"
	"siesa-sync/internal/repository"
	syncerrors "siesa-sync/pkg/errors"
	"siesa-sync/pkg/logger"

	"go.uber.org/zap"
)

// OrderService owns the order export lifecycle: capture from Shopify,
// dispatch to a flat-file attempt, terminal completion or failure, and the
// operator actions (reset, stalled sweep). Every transition is a conditional
// update in the repository; the service adds validation, audit entries and
// logging around them.
type OrderService struct {
	orders      repository.OrderRepository
	storefront  shopify.Client
	audit       *AuditRecorder
	log         *logger.Logger
	maxAttempts int
}

func NewOrderService(orders repository.OrderRepository, storefront shopify.Client, audit *AuditRecorder, log *logger.Logger, maxAttempts int) *OrderService {
	return &OrderService{
		orders:      orders,
		storefront:  storefront,
		audit:       audit,
		log:         log,
		maxAttempts: maxAttempts,
	}
}

// Ingest captures one Shopify order. It is an idempotent upsert keyed on the
// Shopify order id: re-delivery of a known order returns the stored row
// untouched and never resets status, attempts or payload.
func (s *OrderService) Ingest(ctx context.Context, shopifyOrderID, orderNumber string, payload []byte) (order.Order, error) {
	if strings.TrimSpace(shopifyOrderID) == "" {
		return order.Order{}, fmt.Errorf("shopify order id is required: %w", syncerrors.ErrValidation)
	}
	if strings.TrimSpace(orderNumber) == "" {
		return order.Order{}, fmt.Errorf("order number is required: %w", syncerrors.ErrValidation)
	}
	if !json.Valid(payload) {
		return order.Order{}, fmt.Errorf("order payload is not valid JSON: %w", syncerrors.ErrValidation)
	}

	o := order.Order{
		ShopifyOrderID:     shopifyOrderID,
		ShopifyOrderNumber: orderNumber,
		RawPayload:         payload,
		Status:             order.StatusPending,
	}
	err := s.orders.Create(ctx, &o)
	if errors.Is(err, syncerrors.ErrAlreadyExists) {
		existing, getErr := s.orders.GetByShopifyOrderID(ctx, shopifyOrderID)
		if getErr != nil {
			return order.Order{}, getErr
		}
		s.log.InfoCtx(ctx, "duplicate order delivery ignored",
			zap.String("shopify_order_id", shopifyOrderID),
			zap.Int64("order_id", existing.ID),
		)
		return existing, nil
	}
	if err != nil {
		return order.Order{}, err
	}

	s.audit.Record(ctx, o.ID, order.LogLevelInfo, "order captured", map[string]any{
		"shopify_order_id": shopifyOrderID,
		"order_number":     orderNumber,
	})
	s.log.InfoCtx(ctx, "order ingested",
		zap.Int64("order_id", o.ID),
		zap.String("shopify_order_id", shopifyOrderID),
	)
	return o, nil
}

// Backfill fetches orders created since the cutoff straight from the
// storefront API and ingests the ones not yet captured. Covers webhook
// deliveries lost while the service was down; ingestion stays idempotent so
// overlap with delivered webhooks is harmless.
func (s *OrderService) Backfill(ctx context.Context, since time.Time) (created, skipped int, err error) {
	fetched, err := s.storefront.FetchOrdersSince(ctx, since)
	if err != nil {
		return 0, 0, err
	}
	for _, wo := range fetched {
		if ctx.Err() != nil {
			return created, skipped, ctx.Err()
		}
		shopifyOrderID := strconv.FormatInt(wo.ID, 10)
		if _, getErr := s.orders.GetByShopifyOrderID(ctx, shopifyOrderID); getErr == nil {
			skipped++
			continue
		}
		if _, ingestErr := s.Ingest(ctx, shopifyOrderID, strconv.FormatInt(wo.OrderNumber, 10), wo.Raw); ingestErr != nil {
			s.log.Errorf("backfill: order %s not ingested: %v", shopifyOrderID, ingestErr)
			skipped++
			continue
		}
		created++
	}
	s.log.InfoCtx(ctx, "order backfill finished",
		zap.Time("since", since),
		zap.Int("created", created),
		zap.Int("skipped", skipped),
	)
	return created, skipped, nil
}

// BeginProcessing claims the order for an export attempt. The processing
// status is the dispatch lock: concurrent callers race on a conditional
// update and exactly one wins.
func (s *OrderService) BeginProcessing(ctx context.Context, id int64) (order.Order, error) {
	o, err := s.orders.BeginProcessing(ctx, id, s.maxAttempts)
	if err != nil {
		return o, err
	}
	s.log.InfoCtx(ctx, "order processing started",
		zap.Int64("order_id", o.ID),
		zap.Int("attempt", o.Attempts),
	)
	return o, nil
}

// Complete records a delivered flat file. Legal only from processing.
func (s *OrderService) Complete(ctx context.Context, id int64, fileName, filePath string) (order.Order, error) {
	o, err := s.orders.MarkCompleted(ctx, id, fileName, filePath)
	if err != nil {
		return o, err
	}
	s.audit.Record(ctx, o.ID, order.LogLevelInfo, "flat file exported", map[string]any{
		"file_name": fileName,
		"file_path": filePath,
		"attempt":   o.Attempts,
	})
	s.log.InfoCtx(ctx, "order export completed",
		zap.Int64("order_id", o.ID),
		zap.String("file_name", fileName),
	)
	return o, nil
}

// Fail records a failed attempt. The order remains retryable until attempts
// reaches the budget; processed_at stays empty because it means
// "successfully delivered".
func (s *OrderService) Fail(ctx context.Context, id int64, errMsg string) (order.Order, error) {
	o, err := s.orders.MarkFailed(ctx, id, errMsg)
	if err != nil {
		return o, err
	}
	s.audit.Record(ctx, o.ID, order.LogLevelError, "export attempt failed", map[string]any{
		"error":   errMsg,
		"attempt": o.Attempts,
	})
	s.log.ErrorCtx(ctx, "order export failed",
		zap.Int64("order_id", o.ID),
		zap.Int("attempt", o.Attempts),
		zap.String("error", errMsg),
	)
	return o, nil
}

// Reset is the operator action that re-enters an exhausted order into the
// retry cycle: attempts to zero, status to pending. Never automatic.
func (s *OrderService) Reset(ctx context.Context, id int64) (order.Order, error) {
	o, err := s.orders.Reset(ctx, id)
	if err != nil {
		return o, err
	}
	s.audit.Record(ctx, o.ID, order.LogLevelWarning, "order manually requeued", nil)
	s.log.InfoCtx(ctx, "order reset by operator", zap.Int64("order_id", o.ID))
	return o, nil
}

// RequeueStalled sweeps orders stuck in processing past the threshold,
// which indicates a crashed worker. Swept orders land in failed with the
// crashed attempt counted, so the retry budget still applies.
func (s *OrderService) RequeueStalled(ctx context.Context, threshold time.Duration) (int64, error) {
	n, err := s.orders.RequeueStalled(ctx, threshold)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Infof("requeued %d stalled orders (threshold %s)", n, threshold)
	}
	return n, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (order.Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, status order.Status, limit int) ([]order.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown order status %q: %w", status, syncerrors.ErrValidation)
	}
	return s.orders.ListByStatus(ctx, status, limit)
}

func (s *OrderService) ListExportable(ctx context.Context, limit int) ([]order.Order, error) {
	return s.orders.ListExportable(ctx, s.maxAttempts, limit)
}

func (s *OrderService) OrderLogs(ctx context.Context, orderID int64) ([]order.OrderLog, error) {
	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.audit.logs.ListByOrder(ctx, orderID)
}

// Snapshot exposes the typed payload view without re-parsing at every call
// site. Missing payload fields surface as zero values, never as errors.
func (s *OrderService) Snapshot(o order.Order) order.Snapshot {
	snapshot, err := order.ParseSnapshot(o.RawPayload)
	if err != nil {
		// The payload was validated at ingestion; a parse failure here
		// means the row predates validation or was edited out of band.
		s.log.Errorf("order %d payload unreadable: %v", o.ID, err)
		return order.Snapshot{}
	}
	return snapshot
}
