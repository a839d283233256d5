package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// MetricsCache stores serialized metrics payloads with a short TTL so
// dashboard polling does not recompute aggregations on every request.
type MetricsCache struct {
	client *redis.Client
}

// NewMetricsCache builds a redis-backed cache.
func NewMetricsCache(r *Redis) *MetricsCache {
	if r == nil {
		return &MetricsCache{}
	}
	return &MetricsCache{client: r.Client}
}

// Get returns the cached payload, or redis.Nil-wrapped miss.
func (c *MetricsCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("metrics cache not configured")
	}
	return c.client.Get(ctx, "metrics:"+key).Bytes()
}

// Set stores the payload for ttl.
func (c *MetricsCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return errors.New("metrics cache not configured")
	}
	return c.client.Set(ctx, "metrics:"+key, payload, ttl).Err()
}

// IsMiss reports whether err is a cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}
