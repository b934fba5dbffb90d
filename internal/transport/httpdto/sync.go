package httpdto

import (
	"time"

	"siesa-sync/internal/domain/inventory"
)

type SyncBatchResponse struct {
	ID              int64      `json:"id"`
	Status          string     `json:"status"`
	TotalProducts   int        `json:"total_products"`
	SuccessfulSyncs int        `json:"successful_syncs"`
	FailedSyncs     int        `json:"failed_syncs"`
	SkippedSyncs    int        `json:"skipped_syncs"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

type SyncItemResponse struct {
	ID                    int64      `json:"id"`
	SKU                   string     `json:"sku"`
	ProductName           string     `json:"product_name"`
	Status                string     `json:"status"`
	SiesaQuantity         int        `json:"siesa_quantity"`
	ShopifyQuantityBefore *int64     `json:"shopify_quantity_before,omitempty"`
	ShopifyQuantityAfter  *int64     `json:"shopify_quantity_after,omitempty"`
	ErrorMessage          string     `json:"error_message,omitempty"`
	SyncedAt              *time.Time `json:"synced_at,omitempty"`
}

type ListBatchesResponse struct {
	Batches []SyncBatchResponse `json:"batches"`
	Total   int                 `json:"total"`
}

type BatchDetailResponse struct {
	Batch SyncBatchResponse  `json:"batch"`
	Items []SyncItemResponse `json:"items"`
}

func FromSyncBatch(b inventory.SyncBatch) SyncBatchResponse {
	resp := SyncBatchResponse{
		ID:              b.ID,
		Status:          string(b.Status),
		TotalProducts:   b.TotalProducts,
		SuccessfulSyncs: b.SuccessfulSyncs,
		FailedSyncs:     b.FailedSyncs,
		SkippedSyncs:    b.SkippedSyncs,
		StartedAt:       b.StartedAt,
	}
	if b.ErrorMessage.Valid {
		resp.ErrorMessage = b.ErrorMessage.String
	}
	if b.FinishedAt.Valid {
		t := b.FinishedAt.Time
		resp.FinishedAt = &t
	}
	return resp
}

func FromSyncBatchSlice(batches []inventory.SyncBatch) []SyncBatchResponse {
	out := make([]SyncBatchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, FromSyncBatch(b))
	}
	return out
}

func FromSyncItem(s inventory.Sync) SyncItemResponse {
	resp := SyncItemResponse{
		ID:            s.ID,
		SKU:           s.SKU,
		ProductName:   s.ProductName,
		Status:        string(s.Status),
		SiesaQuantity: s.SiesaQuantity,
	}
	if s.ShopifyQuantityBefore.Valid {
		v := s.ShopifyQuantityBefore.Int64
		resp.ShopifyQuantityBefore = &v
	}
	if s.ShopifyQuantityAfter.Valid {
		v := s.ShopifyQuantityAfter.Int64
		resp.ShopifyQuantityAfter = &v
	}
	if s.ErrorMessage.Valid {
		resp.ErrorMessage = s.ErrorMessage.String
	}
	if s.SyncedAt.Valid {
		t := s.SyncedAt.Time
		resp.SyncedAt = &t
	}
	return resp
}

func FromSyncItemSlice(items []inventory.Sync) []SyncItemResponse {
	out := make([]SyncItemResponse, 0, len(items))
	for _, s := range items {
		out = append(out, FromSyncItem(s))
	}
	return out
}
