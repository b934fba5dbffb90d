package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"siesa-sync/config"
	syncerrors "siesa-sync/pkg/errors"

	"github.com/go-resty/resty/v2"
)

// Variant carries the storefront identifiers needed to address a SKU's
// inventory level.
type Variant struct {
	ProductID       string
	VariantID       string
	InventoryItemID string
	LocationID      string
	Available       int
}

// Client is the storefront API collaborator: order fetching and inventory
// level writes. Rate-limit pacing and auth headers live here; callers only
// decide what to write.
type Client interface {
	FetchOrdersSince(ctx context.Context, since time.Time) ([]WebhookOrder, error)
	VariantBySKU(ctx context.Context, sku string) (Variant, bool, error)
	SetInventoryLevel(ctx context.Context, inventoryItemID, locationID string, quantity int) (int, error)
}

// WebhookOrder is the slice of an order payload the ingestion path needs;
// the raw body is kept verbatim for the snapshot.
type WebhookOrder struct {
	ID          int64  `json:"id"`
	OrderNumber int64  `json:"order_number"`
	Raw         []byte `json:"-"`
}

type client struct {
	http           *resty.Client
	locationID     string
	rateLimitDelay time.Duration
}

func NewClient(cfg config.ShopifyConfig) Client {
	httpClient := resty.New().
		SetBaseURL(fmt.Sprintf("https://%s/admin/api/%s", cfg.ShopDomain, cfg.APIVersion)).
		SetHeader("X-Shopify-Access-Token", cfg.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.APITimeout).
		SetRetryCount(cfg.MaxRetries)

	return &client{
		http:           httpClient,
		locationID:     cfg.LocationID,
		rateLimitDelay: cfg.RateLimitDelay,
	}
}

func (c *client) FetchOrdersSince(ctx context.Context, since time.Time) ([]WebhookOrder, error) {
	var result struct {
		Orders []json.RawMessage `json:"orders"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("created_at_min", since.UTC().Format(time.RFC3339)).
		SetQueryParam("status", "any").
		SetResult(&result).
		Get("/orders.json")
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w: %v", syncerrors.ErrExternal, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch orders: status %d: %w", resp.StatusCode(), syncerrors.ErrExternal)
	}

	c.pace()
	orders := make([]WebhookOrder, 0, len(result.Orders))
	for _, raw := range result.Orders {
		var o WebhookOrder
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, fmt.Errorf("decode order payload: %w", err)
		}
		// Ingestion stores the payload verbatim, not a re-marshal.
		o.Raw = raw
		orders = append(orders, o)
	}
	return orders, nil
}

// VariantBySKU resolves a SKU to its storefront identifiers. The second
// return is false when the SKU has no storefront counterpart, which is a
// skip, not a failure.
func (c *client) VariantBySKU(ctx context.Context, sku string) (Variant, bool, error) {
	var result struct {
		Products []struct {
			ID       int64 `json:"id"`
			Variants []struct {
				ID                int64  `json:"id"`
				SKU               string `json:"sku"`
				InventoryItemID   int64  `json:"inventory_item_id"`
				InventoryQuantity int    `json:"inventory_quantity"`
			} `json:"variants"`
		} `json:"products"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("fields", "id,variants").
		SetResult(&result).
		Get("/products.json")
	if err != nil {
		return Variant{}, false, fmt.Errorf("variant lookup %q: %w: %v", sku, syncerrors.ErrExternal, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return Variant{}, false, fmt.Errorf("variant lookup %q: status %d: %w", sku, resp.StatusCode(), syncerrors.ErrExternal)
	}

	c.pace()
	for _, p := range result.Products {
		for _, v := range p.Variants {
			if v.SKU == sku {
				return Variant{
					ProductID:       fmt.Sprintf("%d", p.ID),
					VariantID:       fmt.Sprintf("%d", v.ID),
					InventoryItemID: fmt.Sprintf("%d", v.InventoryItemID),
					LocationID:      c.locationID,
					Available:       v.InventoryQuantity,
				}, true, nil
			}
		}
	}
	return Variant{}, false, nil
}

// SetInventoryLevel pushes an absolute quantity and returns the quantity the
// storefront reports back.
func (c *client) SetInventoryLevel(ctx context.Context, inventoryItemID, locationID string, quantity int) (int, error) {
	var result struct {
		InventoryLevel struct {
			Available int `json:"available"`
		} `json:"inventory_level"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"inventory_item_id": inventoryItemID,
			"location_id":       locationID,
			"available":         quantity,
		}).
		SetResult(&result).
		Post("/inventory_levels/set.json")
	if err != nil {
		return 0, fmt.Errorf("set inventory level: %w: %v", syncerrors.ErrExternal, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("set inventory level: status %d: %w", resp.StatusCode(), syncerrors.ErrExternal)
	}

	c.pace()
	return result.InventoryLevel.Available, nil
}

// pace spaces consecutive calls to stay under the storefront's rate limit.
func (c *client) pace() {
	if c.rateLimitDelay > 0 {
		time.Sleep(c.rateLimitDelay)
	}
}
