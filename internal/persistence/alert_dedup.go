package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// AlertDedup suppresses duplicate at-risk alerts for the same ticket. Claim
// uses SETNX with a TTL so the same signal only fires once per window, even
// with several sweep ticks inside it.
type AlertDedup struct {
	client *redis.Client
}

// NewAlertDedup builds a redis-backed dedup store.
func NewAlertDedup(r *Redis) *AlertDedup {
	if r == nil {
		return &AlertDedup{}
	}
	return &AlertDedup{client: r.Client}
}

// Claim attempts to reserve the alert key for ttl. Returns true when this
// caller won the claim and should dispatch the alert.
func (d *AlertDedup) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if d == nil || d.client == nil {
		return false, errors.New("alert dedup store not configured")
	}
	return d.client.SetNX(ctx, "alert:"+key, 1, ttl).Result()
}
