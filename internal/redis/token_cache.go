package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const siesaTokenKey = "siesa:api_token"

// TokenCache stores the SIESA bearer token between jobs so every batch does
// not re-authenticate against the ERP.
type TokenCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewTokenCache(client *goredis.Client, ttl time.Duration) *TokenCache {
	return &TokenCache{client: client, ttl: ttl}
}

// Get returns the cached token, or "" on a cache miss.
func (c *TokenCache) Get(ctx context.Context) (string, error) {
	token, err := c.client.Get(ctx, siesaTokenKey).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (c *TokenCache) Set(ctx context.Context, token string) error {
	return c.client.Set(ctx, siesaTokenKey, token, c.ttl).Err()
}

// Invalidate drops the cached token, forcing re-authentication on the next
// request. Used after the ERP rejects a token before its TTL expired.
func (c *TokenCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, siesaTokenKey).Err()
}
