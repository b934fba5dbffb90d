package httpdto

import (
	"time"

	"siesa-sync/internal/domain/order"
)

type OrderResponse struct {
	ID                 int64      `json:"id"`
	ShopifyOrderID     string     `json:"shopify_order_id"`
	ShopifyOrderNumber string     `json:"shopify_order_number"`
	Status             string     `json:"status"`
	Attempts           int        `json:"attempts"`
	ErrorMessage       string     `json:"error_message,omitempty"`
	FlatFileName       string     `json:"flat_file_name,omitempty"`
	FlatFilePath       string     `json:"flat_file_path,omitempty"`
	CustomerName       string     `json:"customer_name,omitempty"`
	CustomerEmail      string     `json:"customer_email,omitempty"`
	TotalPrice         float64    `json:"total_price"`
	ProcessedAt        *time.Time `json:"processed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type OrderLogResponse struct {
	ID        int64          `json:"id"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type ListOrdersResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}

type RequeueStalledResponse struct {
	Requeued int64 `json:"requeued"`
}

type BackfillResponse struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

func FromOrder(o order.Order, snapshot order.Snapshot) OrderResponse {
	resp := OrderResponse{
		ID:                 o.ID,
		ShopifyOrderID:     o.ShopifyOrderID,
		ShopifyOrderNumber: o.ShopifyOrderNumber,
		Status:             string(o.Status),
		Attempts:           o.Attempts,
		CustomerName:       snapshot.CustomerName(),
		CustomerEmail:      snapshot.CustomerEmail(),
		TotalPrice:         snapshot.Total(),
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	if o.ErrorMessage.Valid {
		resp.ErrorMessage = o.ErrorMessage.String
	}
	if o.FlatFileName.Valid {
		resp.FlatFileName = o.FlatFileName.String
	}
	if o.FlatFilePath.Valid {
		resp.FlatFilePath = o.FlatFilePath.String
	}
	if o.ProcessedAt.Valid {
		t := o.ProcessedAt.Time
		resp.ProcessedAt = &t
	}
	return resp
}

func FromOrderLog(l order.OrderLog) OrderLogResponse {
	return OrderLogResponse{
		ID:        l.ID,
		Level:     string(l.Level),
		Message:   l.Message,
		Context:   l.Context,
		CreatedAt: l.CreatedAt,
	}
}

func FromOrderLogSlice(logs []order.OrderLog) []OrderLogResponse {
	out := make([]OrderLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, FromOrderLog(l))
	}
	return out
}
