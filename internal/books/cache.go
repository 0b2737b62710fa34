package books

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"bookkeeper/pkg/domain"
)

// DefaultCacheTTL bounds how long a cached result page stays valid.
const DefaultCacheTTL = 24 * time.Hour

// Cache stores search result pages in Redis under a TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache builds a Redis-backed result cache.
func NewCache(addr, password string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		ttl: ttl,
	}
}

// NewCacheWithClient wraps an existing Redis client.
func NewCacheWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached page for key, reporting whether one was present.
func (c *Cache) Get(ctx context.Context, key string) ([]domain.Volume, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var volumes []domain.Volume
	if err := json.Unmarshal(raw, &volumes); err != nil {
		return nil, false, err
	}
	return volumes, true, nil
}

// Put stores a result page under key with the cache TTL.
func (c *Cache) Put(ctx context.Context, key string, volumes []domain.Volume) error {
	raw, err := json.Marshal(volumes)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}
