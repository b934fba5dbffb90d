package siesa

import (
	"context"
	"fmt"
	"net/http"

	"siesa-sync/config"
	"siesa-sync/internal/redis"
	syncerrors "siesa-sync/pkg/errors"

	"github.com/go-resty/resty/v2"
)

// Client is the ERP collaborator: it answers one question, the authoritative
// stock quantity per SKU, as a mapping for an entire batch.
type Client interface {
	FetchInventory(ctx context.Context) (map[string]InventoryItem, error)
}

// InventoryItem is one SKU's authoritative state in the ERP.
type InventoryItem struct {
	SKU         string `json:"sku"`
	ProductName string `json:"descripcion"`
	Quantity    int    `json:"cantidad"`
}

type client struct {
	http              *resty.Client
	username          string
	password          string
	tokenEndpoint     string
	inventoryEndpoint string
	tokens            *redis.TokenCache
}

func NewClient(cfg config.SiesaConfig, tokens *redis.TokenCache) Client {
	httpClient := resty.New().
		SetBaseURL(cfg.APIURL).
		SetTimeout(cfg.APITimeout)

	return &client{
		http:              httpClient,
		username:          cfg.Username,
		password:          cfg.Password,
		tokenEndpoint:     cfg.TokenEndpoint,
		inventoryEndpoint: cfg.InventoryEndpoint,
		tokens:            tokens,
	}
}

// token returns a bearer token, from the redis cache when present, otherwise
// freshly issued by the ERP and cached under the configured TTL.
func (c *client) token(ctx context.Context) (string, error) {
	cached, err := c.tokens.Get(ctx)
	if err == nil && cached != "" {
		return cached, nil
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": c.username,
			"password": c.password,
		}).
		SetResult(&result).
		Post(c.tokenEndpoint)
	if err != nil {
		return "", fmt.Errorf("siesa token: %w: %v", syncerrors.ErrExternal, err)
	}
	if resp.StatusCode() != http.StatusOK || result.AccessToken == "" {
		return "", fmt.Errorf("siesa token: status %d: %w", resp.StatusCode(), syncerrors.ErrExternal)
	}

	// Cache failures are not fatal; the token still works for this call.
	_ = c.tokens.Set(ctx, result.AccessToken)
	return result.AccessToken, nil
}

func (c *client) FetchInventory(ctx context.Context) (map[string]InventoryItem, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var items []InventoryItem
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&items).
		Get(c.inventoryEndpoint)
	if err != nil {
		return nil, fmt.Errorf("siesa inventory: %w: %v", syncerrors.ErrExternal, err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		// Token revoked before its TTL; drop it so the next run re-issues.
		_ = c.tokens.Invalidate(ctx)
		return nil, fmt.Errorf("siesa inventory: token rejected: %w", syncerrors.ErrExternal)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("siesa inventory: status %d: %w", resp.StatusCode(), syncerrors.ErrExternal)
	}

	inventory := make(map[string]InventoryItem, len(items))
	for _, item := range items {
		if item.SKU == "" {
			continue
		}
		inventory[item.SKU] = item
	}
	return inventory, nil
}
