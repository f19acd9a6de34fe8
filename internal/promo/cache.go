package promo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keeps promo codes in Redis as JSON, keyed by normalized code.
type Cache struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

// NewCache constructs a cache helper. A nil client or non-positive TTL disables caching.
func NewCache(client redis.Cmdable, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl, prefix: "promo:code:"}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

func (c *Cache) key(code string) string {
	return c.prefix + code
}

// Get loads a cached promo. It reports whether the key existed.
func (c *Cache) Get(ctx context.Context, code string) (Promo, bool, error) {
	var p Promo
	if !c.enabled() || code == "" {
		return p, false, nil
	}
	data, err := c.client.Get(ctx, c.key(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return p, false, nil
		}
		return p, false, err
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, false, err
	}
	return p, true, nil
}

// Set stores p under its code with the configured TTL.
func (c *Cache) Set(ctx context.Context, p Promo) error {
	if !c.enabled() || p.Code == "" {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(p.Code), data, c.ttl).Err()
}

// Invalidate drops the cached entry for code.
func (c *Cache) Invalidate(ctx context.Context, code string) error {
	if !c.enabled() || code == "" {
		return nil
	}
	return c.client.Del(ctx, c.key(code)).Err()
}
