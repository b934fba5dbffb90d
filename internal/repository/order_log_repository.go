package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"siesa-sync/internal/domain/order"
	syncerrors "siesa-sync/pkg/errors"
)

type orderLogRepository struct {
	db DBTX
}

func NewOrderLogRepository(db DBTX) OrderLogRepository {
	return &orderLogRepository{db: db}
}

// Create appends one audit row. Rows are immutable: there is no update or
// delete on this repository, and the table cascades with its order.
func (r *orderLogRepository) Create(ctx context.Context, l *order.OrderLog) error {
	var contextJSON []byte
	if l.Context != nil {
		data, err := json.Marshal(l.Context)
		if err != nil {
			return fmt.Errorf("marshal log context: %w", err)
		}
		contextJSON = data
	}

	row := r.db.QueryRowContext(ctx, `
        INSERT INTO order_logs (order_id, level, message, context)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at
    `, l.OrderID, l.Level, l.Message, contextJSON)

	if err := row.Scan(&l.ID, &l.CreatedAt); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("order %d: %w", l.OrderID, syncerrors.ErrReferential)
		}
		return err
	}
	return nil
}

func (r *orderLogRepository) ListByOrder(ctx context.Context, orderID int64) ([]order.OrderLog, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, order_id, level, message, context, created_at
        FROM order_logs
        WHERE order_id = $1
        ORDER BY created_at ASC, id ASC
    `, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []order.OrderLog
	for rows.Next() {
		var l order.OrderLog
		var contextJSON []byte
		if err := rows.Scan(&l.ID, &l.OrderID, &l.Level, &l.Message, &contextJSON, &l.CreatedAt); err != nil {
			return nil, err
		}
		if len(contextJSON) > 0 {
			if err := json.Unmarshal(contextJSON, &l.Context); err != nil {
				return nil, fmt.Errorf("unmarshal log context: %w", err)
			}
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
