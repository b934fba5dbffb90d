package order

import (
	"database/sql"
	"time"
)

// Order represents the orders table: one Shopify order pending or being
// exported to SIESA as a flat file.
type Order struct {
	ID                 int64
	ShopifyOrderID     string
	ShopifyOrderNumber string
	RawPayload         []byte
	FlatFileName       sql.NullString
	FlatFilePath       sql.NullString
	Status             Status
	ErrorMessage       sql.NullString
	Attempts           int
	ProcessedAt        sql.NullTime
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CanRetry reports whether this order is eligible for another processing
// attempt under the given budget. A failed order whose attempts reached the
// budget stays failed until an operator reset.
func (o Order) CanRetry(maxAttempts int) bool {
	if !o.Status.CanRetry() {
		return false
	}
	if o.Status.IsFailed() && o.Attempts >= maxAttempts {
		return false
	}
	return true
}

// OrderLog represents the order_logs table: one immutable audit entry.
// Rows are append-only and cascade-delete with their order.
type OrderLog struct {
	ID        int64
	OrderID   int64
	Level     LogLevel
	Message   string
	Context   map[string]any
	CreatedAt time.Time
}

func (Order) TableName() string {
	return "orders"
}

func (OrderLog) TableName() string {
	return "order_logs"
}
