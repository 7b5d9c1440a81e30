package redis

import (
	"context"
	"time"
)

// ReplayGuard remembers webhook delivery ids briefly so replayed deliveries
// can be acknowledged without touching the database. The database-side
// idempotency (guarded status update plus the ledger's unique reference)
// remains the real guarantee; this is only a cheap first filter.
type ReplayGuard struct {
	client RedisClient
	ttl    time.Duration
}

func NewReplayGuard(client RedisClient, ttl time.Duration) *ReplayGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ReplayGuard{client: client, ttl: ttl}
}

// FirstDelivery returns true the first time a webhook id is seen within the
// TTL window. On Redis errors it reports true so processing proceeds.
func (g *ReplayGuard) FirstDelivery(ctx context.Context, webhookID string) (bool, error) {
	if webhookID == "" {
		return true, nil
	}
	ok, err := g.client.SetNX(ctx, "webhook_seen:"+webhookID, 1, g.ttl)
	if err != nil {
		return true, err
	}
	return ok, nil
}

// Forget releases a delivery id so the provider's retry of the same id is
// processed again. Must be called whenever handling fails after
// FirstDelivery returned true; retries carry the original webhook id.
func (g *ReplayGuard) Forget(ctx context.Context, webhookID string) error {
	if webhookID == "" {
		return nil
	}
	return g.client.Del(ctx, "webhook_seen:"+webhookID)
}
