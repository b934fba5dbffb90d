package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"siesa-sync/internal/clients/shopify"
	"siesa-sync/internal/domain/order"
	syncerrors "siesa-sync/pkg/errors"
	"siesa-sync/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeOrderRepo reproduces the conditional-update semantics of the postgres
// repository in memory, so service tests exercise the same transition rules.
type fakeOrderRepo struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]order.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[int64]order.Order{}}
}

func (r *fakeOrderRepo) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.orders {
		if existing.ShopifyOrderID == o.ShopifyOrderID {
			return fmt.Errorf("order %s: %w", o.ShopifyOrderID, syncerrors.ErrAlreadyExists)
		}
	}
	r.nextID++
	o.ID = r.nextID
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	r.orders[o.ID] = *o
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id int64) (order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return order.Order{}, syncerrors.ErrNotFound
	}
	return o, nil
}

func (r *fakeOrderRepo) GetByShopifyOrderID(_ context.Context, shopifyOrderID string) (order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ShopifyOrderID == shopifyOrderID {
			return o, nil
		}
	}
	return order.Order{}, syncerrors.ErrNotFound
}

func (r *fakeOrderRepo) ListByStatus(_ context.Context, status order.Status, limit int) ([]order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []order.Order
	for _, o := range r.orders {
		if o.Status == status && len(out) < limit {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) ListExportable(_ context.Context, maxAttempts, limit int) ([]order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []order.Order
	for _, o := range r.orders {
		if o.CanRetry(maxAttempts) && len(out) < limit {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) BeginProcessing(_ context.Context, id int64, maxAttempts int) (order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return order.Order{}, syncerrors.ErrNotFound
	}
	if !o.CanRetry(maxAttempts) {
		return o, fmt.Errorf("order %d is %s: %w", id, o.Status, syncerrors.ErrInvalidTransition)
	}
	o.Status = order.StatusProcessing
	o.Attempts++
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return o, nil
}

func (r *fakeOrderRepo) MarkCompleted(_ context.Context, id int64, fileName, filePath string) (order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return order.Order{}, syncerrors.ErrNotFound
	}
	if o.Status != order.StatusProcessing {
		return o, fmt.Errorf("order %d is %s: %w", id, o.Status, syncerrors.ErrInvalidTransition)
	}
	o.Status = order.StatusCompleted
	o.FlatFileName = sql.NullString{String: fileName, Valid: true}
	o.FlatFilePath = sql.NullString{String: filePath, Valid: true}
	o.ErrorMessage = sql.NullString{}
	o.ProcessedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return o, nil
}

func (r *fakeOrderRepo) MarkFailed(_ context.Context, id int64, errMsg string) (order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return order.Order{}, syncerrors.ErrNotFound
	}
	if o.Status != order.StatusProcessing {
		return o, fmt.Errorf("order %d is %s: %w", id, o.Status, syncerrors.ErrInvalidTransition)
	}
	o.Status = order.StatusFailed
	o.ErrorMessage = sql.NullString{String: errMsg, Valid: true}
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return o, nil
}

func (r *fakeOrderRepo) Reset(_ context.Context, id int64) (order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return order.Order{}, syncerrors.ErrNotFound
	}
	if o.Status != order.StatusFailed {
		return o, fmt.Errorf("order %d is %s: %w", id, o.Status, syncerrors.ErrInvalidTransition)
	}
	o.Status = order.StatusPending
	o.Attempts = 0
	o.ErrorMessage = sql.NullString{}
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return o, nil
}

func (r *fakeOrderRepo) RequeueStalled(_ context.Context, threshold time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().UTC().Add(-threshold)
	var n int64
	for id, o := range r.orders {
		if o.Status == order.StatusProcessing && o.UpdatedAt.Before(cutoff) {
			o.Status = order.StatusFailed
			o.ErrorMessage = sql.NullString{String: "processing stalled past threshold", Valid: true}
			o.UpdatedAt = time.Now().UTC()
			r.orders[id] = o
			n++
		}
	}
	return n, nil
}

type fakeOrderLogRepo struct {
	mu        sync.Mutex
	nextID    int64
	logs      []order.OrderLog
	createErr error
}

func (r *fakeOrderLogRepo) Create(_ context.Context, l *order.OrderLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	l.ID = r.nextID
	l.CreatedAt = time.Now().UTC()
	r.logs = append(r.logs, *l)
	return nil
}

func (r *fakeOrderLogRepo) ListByOrder(_ context.Context, orderID int64) ([]order.OrderLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []order.OrderLog
	for _, l := range r.logs {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func newTestOrderService(t *testing.T) (*OrderService, *fakeOrderRepo, *fakeOrderLogRepo) {
	t.Helper()
	repo := newFakeOrderRepo()
	logs := &fakeOrderLogRepo{}
	log := &logger.Logger{Logger: zap.NewNop()}
	audit := NewAuditRecorder(logs, log)
	storefront := &fakeShopifyClient{writes: map[string]int{}}
	return NewOrderService(repo, storefront, audit, log, 3), repo, logs
}

const orderPayload = `{"id": 5001, "order_number": 1001, "total_price": "59.90", "currency": "COP"}`

func TestIngestIsIdempotent(t *testing.T) {
	svc, _, logs := newTestOrderService(t)
	ctx := context.Background()

	first, err := svc.Ingest(ctx, "5001", "1001", []byte(orderPayload))
	require.NoError(t, err)
	require.Equal(t, order.StatusPending, first.Status)

	// Move the order forward so a re-delivery would be observable if it reset
	// anything.
	_, err = svc.BeginProcessing(ctx, first.ID)
	require.NoError(t, err)

	again, err := svc.Ingest(ctx, "5001", "1001", []byte(orderPayload))
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)
	require.Equal(t, order.StatusProcessing, again.Status)
	require.Equal(t, 1, again.Attempts)

	entries, err := logs.ListByOrder(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1, "duplicate delivery must not add audit entries")
}

func TestIngestValidation(t *testing.T) {
	svc, _, _ := newTestOrderService(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "", "1001", []byte(`{}`))
	require.ErrorIs(t, err, syncerrors.ErrValidation)

	_, err = svc.Ingest(ctx, "5001", "   ", []byte(`{}`))
	require.ErrorIs(t, err, syncerrors.ErrValidation)

	_, err = svc.Ingest(ctx, "5001", "1001", []byte(`{broken`))
	require.ErrorIs(t, err, syncerrors.ErrValidation)
}

func TestOrderRetryCycle(t *testing.T) {
	svc, _, logs := newTestOrderService(t)
	ctx := context.Background()

	o, err := svc.Ingest(ctx, "5001", "1001", []byte(orderPayload))
	require.NoError(t, err)

	// First attempt fails.
	claimed, err := svc.BeginProcessing(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, 1, claimed.Attempts)

	failed, err := svc.Fail(ctx, o.ID, "siesa share unreachable")
	require.NoError(t, err)
	require.Equal(t, order.StatusFailed, failed.Status)
	require.Equal(t, "siesa share unreachable", failed.ErrorMessage.String)
	require.False(t, failed.ProcessedAt.Valid)

	// Second attempt succeeds.
	claimed, err = svc.BeginProcessing(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, 2, claimed.Attempts)

	done, err := svc.Complete(ctx, o.ID, "PEDIDO_1001.txt", "/siesa/pedidos/PEDIDO_1001.txt")
	require.NoError(t, err)
	require.Equal(t, order.StatusCompleted, done.Status)
	require.Equal(t, "PEDIDO_1001.txt", done.FlatFileName.String)
	require.Equal(t, "/siesa/pedidos/PEDIDO_1001.txt", done.FlatFilePath.String)
	require.True(t, done.ProcessedAt.Valid)
	require.Equal(t, 2, done.Attempts)

	// Completed orders accept no further attempts.
	_, err = svc.BeginProcessing(ctx, o.ID)
	require.ErrorIs(t, err, syncerrors.ErrInvalidTransition)

	entries, err := logs.ListByOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, order.LogLevelError, entries[1].Level)
	require.Equal(t, "export attempt failed", entries[1].Message)
}

func TestBeginProcessingSingleWinner(t *testing.T) {
	svc, _, _ := newTestOrderService(t)
	ctx := context.Background()

	o, err := svc.Ingest(ctx, "5001", "1001", []byte(orderPayload))
	require.NoError(t, err)

	const runners = 8
	var wins int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < runners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.BeginProcessing(ctx, o.ID); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, wins)
	final, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusProcessing, final.Status)
	require.Equal(t, 1, final.Attempts)
}

func TestRetryBudgetExhaustionAndReset(t *testing.T) {
	svc, _, _ := newTestOrderService(t)
	ctx := context.Background()

	o, err := svc.Ingest(ctx, "5001", "1001", []byte(orderPayload))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.BeginProcessing(ctx, o.ID)
		require.NoError(t, err)
		_, err = svc.Fail(ctx, o.ID, "erp rejected file")
		require.NoError(t, err)
	}

	// Budget spent: no automatic retry.
	_, err = svc.BeginProcessing(ctx, o.ID)
	require.ErrorIs(t, err, syncerrors.ErrInvalidTransition)

	exportable, err := svc.ListExportable(ctx, 100)
	require.NoError(t, err)
	require.Empty(t, exportable)

	// Operator reset re-enters the cycle with a fresh budget.
	reset, err := svc.Reset(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusPending, reset.Status)
	require.Zero(t, reset.Attempts)
	require.False(t, reset.ErrorMessage.Valid)

	_, err = svc.BeginProcessing(ctx, o.ID)
	require.NoError(t, err)
}

func TestResetRequiresFailed(t *testing.T) {
	svc, _, _ := newTestOrderService(t)
	ctx := context.Background()

	o, err := svc.Ingest(ctx, "5001", "1001", []byte(orderPayload))
	require.NoError(t, err)

	_, err = svc.Reset(ctx, o.ID)
	require.ErrorIs(t, err, syncerrors.ErrInvalidTransition)
}

func TestRequeueStalled(t *testing.T) {
	svc, repo, _ := newTestOrderService(t)
	ctx := context.Background()

	o, err := svc.Ingest(ctx, "5001", "1001", []byte(orderPayload))
	require.NoError(t, err)
	_, err = svc.BeginProcessing(ctx, o.ID)
	require.NoError(t, err)

	// Backdate the claim so it looks like a crashed worker.
	repo.mu.Lock()
	stuck := repo.orders[o.ID]
	stuck.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	repo.orders[o.ID] = stuck
	repo.mu.Unlock()

	n, err := svc.RequeueStalled(ctx, 10*time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	swept, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusFailed, swept.Status)
	require.Equal(t, 1, swept.Attempts, "the crashed attempt still counts")
}

func TestAuditFailureNeverBlocksTransition(t *testing.T) {
	svc, _, logs := newTestOrderService(t)
	ctx := context.Background()

	o, err := svc.Ingest(ctx, "5001", "1001", []byte(orderPayload))
	require.NoError(t, err)
	_, err = svc.BeginProcessing(ctx, o.ID)
	require.NoError(t, err)

	// The audit store goes down; transitions must still land.
	logs.mu.Lock()
	logs.createErr = fmt.Errorf("order_logs insert: %w", syncerrors.ErrExternal)
	logs.mu.Unlock()

	failed, err := svc.Fail(ctx, o.ID, "siesa share unreachable")
	require.NoError(t, err)
	require.Equal(t, order.StatusFailed, failed.Status)

	_, err = svc.BeginProcessing(ctx, o.ID)
	require.NoError(t, err)
	done, err := svc.Complete(ctx, o.ID, "PEDIDO_1001.txt", "/siesa/pedidos/PEDIDO_1001.txt")
	require.NoError(t, err)
	require.Equal(t, order.StatusCompleted, done.Status)

	persisted, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusCompleted, persisted.Status)
	require.Equal(t, "PEDIDO_1001.txt", persisted.FlatFileName.String)
}

func TestAuditRecorderReportsFailure(t *testing.T) {
	logs := &fakeOrderLogRepo{createErr: fmt.Errorf("order_logs insert: %w", syncerrors.ErrExternal)}
	audit := NewAuditRecorder(logs, &logger.Logger{Logger: zap.NewNop()})

	_, err := audit.Record(context.Background(), 1, order.LogLevelInfo, "order captured", nil)
	require.ErrorIs(t, err, syncerrors.ErrExternal)
}

func TestBackfillIngestsOnlyMissingOrders(t *testing.T) {
	svc, _, _ := newTestOrderService(t)
	ctx := context.Background()

	// 5001 already arrived via webhook; the backfill must not touch it.
	known, err := svc.Ingest(ctx, "5001", "1001", []byte(orderPayload))
	require.NoError(t, err)

	svc.storefront.(*fakeShopifyClient).orders = []shopify.WebhookOrder{
		{ID: 5001, OrderNumber: 1001, Raw: []byte(orderPayload)},
		{ID: 5002, OrderNumber: 1002, Raw: []byte(`{"id": 5002, "order_number": 1002}`)},
	}

	created, skipped, err := svc.Backfill(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, created)
	require.Equal(t, 1, skipped)

	unchanged, err := svc.GetOrder(ctx, known.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusPending, unchanged.Status)

	fetched, err := svc.ListOrders(ctx, order.StatusPending, 10)
	require.NoError(t, err)
	require.Len(t, fetched, 2)
}

func TestListOrdersRejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newTestOrderService(t)
	_, err := svc.ListOrders(context.Background(), order.Status("archived"), 10)
	require.ErrorIs(t, err, syncerrors.ErrValidation)
}

func TestOrderLogsRequireExistingOrder(t *testing.T) {
	svc, _, _ := newTestOrderService(t)
	_, err := svc.OrderLogs(context.Background(), 42)
	require.ErrorIs(t, err, syncerrors.ErrNotFound)
}
