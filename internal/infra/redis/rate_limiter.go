package redis

import (
	"context"
	"fmt"
	"time"
)

type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow implements a fixed-window counter. Fails open on Redis errors so a
// cache outage does not take payments down with it.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return true, err
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			return true, err
		}
	}

	if count > int64(limit) {
		return false, nil
	}
	return true, nil
}

func UserRouteKey(userID, route string) string {
	return fmt.Sprintf("rate_limit:%s:%s", userID, route)
}

func IPRouteKey(ip, route string) string {
	return fmt.Sprintf("rate_limit:ip:%s:%s", ip, route)
}
