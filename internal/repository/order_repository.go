package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"siesa-sync/internal/domain/order"
	syncerrors "siesa-sync/pkg/errors"
)

const orderColumns = `id, shopify_order_id, shopify_order_number, raw_payload, flat_file_name, flat_file_path, status, error_message, attempts, processed_at, created_at, updated_at`

type orderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	row := r.db.QueryRowContext(ctx, `
        INSERT INTO orders (shopify_order_id, shopify_order_number, raw_payload, status, attempts)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at
    `,
		o.ShopifyOrderID,
		o.ShopifyOrderNumber,
		o.RawPayload,
		o.Status,
		o.Attempts,
	)
	if err := row.Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return syncerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (order.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (r *orderRepository) GetByShopifyOrderID(ctx context.Context, shopifyOrderID string) (order.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE shopify_order_id = $1`, shopifyOrderID)
	return scanOrder(row)
}

func (r *orderRepository) ListByStatus(ctx context.Context, status order.Status, limit int) ([]order.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+orderColumns+` FROM orders
        WHERE status = $1
        ORDER BY created_at ASC
        LIMIT $2
    `, status, limit)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

// ListExportable returns orders eligible for an export attempt: pending, or
// failed with retry budget remaining.
func (r *orderRepository) ListExportable(ctx context.Context, maxAttempts, limit int) ([]order.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+orderColumns+` FROM orders
        WHERE status = $1 OR (status = $2 AND attempts < $3)
        ORDER BY created_at ASC
        LIMIT $4
    `, order.StatusPending, order.StatusFailed, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

// BeginProcessing claims the order with a conditional UPDATE. Zero affected
// rows means the transition is illegal: already processing, completed, out
// of retry budget, or the row does not exist.
func (r *orderRepository) BeginProcessing(ctx context.Context, id int64, maxAttempts int) (order.Order, error) {
	row := r.db.QueryRowContext(ctx, `
        UPDATE orders
        SET status = $1, attempts = attempts + 1, updated_at = now()
        WHERE id = $2
          AND (status = $3 OR (status = $4 AND attempts < $5))
        RETURNING `+orderColumns+`
    `, order.StatusProcessing, id, order.StatusPending, order.StatusFailed, maxAttempts)

	o, err := scanOrder(row)
	if errors.Is(err, syncerrors.ErrNotFound) {
		return r.transitionConflict(ctx, id)
	}
	return o, err
}

func (r *orderRepository) MarkCompleted(ctx context.Context, id int64, fileName, filePath string) (order.Order, error) {
	row := r.db.QueryRowContext(ctx, `
        UPDATE orders
        SET status = $1, flat_file_name = $2, flat_file_path = $3,
            error_message = NULL, processed_at = now(), updated_at = now()
        WHERE id = $4 AND status = $5
        RETURNING `+orderColumns+`
    `, order.StatusCompleted, fileName, filePath, id, order.StatusProcessing)

	o, err := scanOrder(row)
	if errors.Is(err, syncerrors.ErrNotFound) {
		return r.transitionConflict(ctx, id)
	}
	return o, err
}

func (r *orderRepository) MarkFailed(ctx context.Context, id int64, errMsg string) (order.Order, error) {
	row := r.db.QueryRowContext(ctx, `
        UPDATE orders
        SET status = $1, error_message = $2, updated_at = now()
        WHERE id = $3 AND status = $4
        RETURNING `+orderColumns+`
    `, order.StatusFailed, errMsg, id, order.StatusProcessing)

	o, err := scanOrder(row)
	if errors.Is(err, syncerrors.ErrNotFound) {
		return r.transitionConflict(ctx, id)
	}
	return o, err
}

// Reset is the operator escape hatch for exhausted orders: attempts back to
// zero, status back to pending. Legal only from failed.
func (r *orderRepository) Reset(ctx context.Context, id int64) (order.Order, error) {
	row := r.db.QueryRowContext(ctx, `
        UPDATE orders
        SET status = $1, attempts = 0, error_message = NULL, updated_at = now()
        WHERE id = $2 AND status = $3
        RETURNING `+orderColumns+`
    `, order.StatusPending, id, order.StatusFailed)

	o, err := scanOrder(row)
	if errors.Is(err, syncerrors.ErrNotFound) {
		return r.transitionConflict(ctx, id)
	}
	return o, err
}

// RequeueStalled moves orders stuck in processing past the threshold to
// failed, so the normal retry budget applies to the crashed attempt.
func (r *orderRepository) RequeueStalled(ctx context.Context, threshold time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE orders
        SET status = $1, error_message = $2, updated_at = now()
        WHERE status = $3 AND updated_at < now() - $4::interval
    `, order.StatusFailed, "processing stalled, requeued by sweep", order.StatusProcessing,
		fmt.Sprintf("%d seconds", int(threshold.Seconds())))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// transitionConflict distinguishes a missing row from an illegal transition
// after a conditional update matched nothing.
func (r *orderRepository) transitionConflict(ctx context.Context, id int64) (order.Order, error) {
	o, err := r.GetByID(ctx, id)
	if err != nil {
		return order.Order{}, err
	}
	return o, syncerrors.ErrInvalidTransition
}

func scanOrder(row *sql.Row) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID,
		&o.ShopifyOrderID,
		&o.ShopifyOrderNumber,
		&o.RawPayload,
		&o.FlatFileName,
		&o.FlatFilePath,
		&o.Status,
		&o.ErrorMessage,
		&o.Attempts,
		&o.ProcessedAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return order.Order{}, syncerrors.ErrNotFound
		}
		return order.Order{}, err
	}
	return o, nil
}

func scanOrders(rows *sql.Rows) ([]order.Order, error) {
	defer rows.Close()
	var orders []order.Order
	for rows.Next() {
		var o order.Order
		if err := rows.Scan(
			&o.ID,
			&o.ShopifyOrderID,
			&o.ShopifyOrderNumber,
			&o.RawPayload,
			&o.FlatFileName,
			&o.FlatFilePath,
			&o.Status,
			&o.ErrorMessage,
			&o.Attempts,
			&o.ProcessedAt,
			&o.CreatedAt,
			&o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}
