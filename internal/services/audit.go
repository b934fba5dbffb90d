package services

import (
	"context"

	"siesa-sync/internal/domain/order"
	"siesa-sync/internal/repository"
	"siesa-sync/pkg/logger"

	"go.uber.org/zap"
)

// AuditRecorder appends immutable order audit entries. Recording is
// best-effort: a failed append is logged and reported but must never block
// or roll back the state transition it documents, so callers record after
// the transition has been persisted.
type AuditRecorder struct {
	logs repository.OrderLogRepository
	log  *logger.Logger
}

func NewAuditRecorder(logs repository.OrderLogRepository, log *logger.Logger) *AuditRecorder {
	return &AuditRecorder{logs: logs, log: log}
}

func (a *AuditRecorder) Record(ctx context.Context, orderID int64, level order.LogLevel, message string, details map[string]any) (order.OrderLog, error) {
	entry := order.OrderLog{
		OrderID: orderID,
		Level:   level,
		Message: message,
		Context: details,
	}
	if err := a.logs.Create(ctx, &entry); err != nil {
		a.log.Logger.Error("audit entry not recorded",
			zap.Int64("order_id", orderID),
			zap.String("level", string(level)),
			zap.String("message", message),
			zap.Error(err),
		)
		return order.OrderLog{}, err
	}
	return entry, nil
}
