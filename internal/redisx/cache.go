package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// OrderCache is the redis-backed cache used by the fulfillment worker and the
// API read path. All operations are best effort: a cache miss or a redis
// failure must never fail the request, postgres stays the source of truth.
type OrderCache struct {
	Client  *redis.Client
	Service string
}

func (c *OrderCache) SeenEvent(ctx context.Context, eventID string) bool {
	key := fmt.Sprintf(KeyDedup, c.Service, eventID)
	ok, _ := Exists(ctx, c.Client, key)
	return ok
}

func (c *OrderCache) MarkEvent(ctx context.Context, eventID string) {
	key := fmt.Sprintf(KeyDedup, c.Service, eventID)
	_ = c.Client.Set(ctx, key, "1", TTLDedup).Err()
}

func (c *OrderCache) GetOrder(ctx context.Context, orderID string) ([]byte, bool) {
	key := fmt.Sprintf(KeyOrderDetail, orderID)
	b, err := c.Client.Get(ctx, key).Bytes()
	if err != nil || len(b) == 0 {
		return nil, false
	}
	return b, true
}

func (c *OrderCache) SetOrder(ctx context.Context, orderID string, body []byte) {
	key := fmt.Sprintf(KeyOrderDetail, orderID)
	_ = c.Client.Set(ctx, key, body, TTLOrderDetail).Err()
}

func (c *OrderCache) InvalidateOrder(ctx context.Context, orderID string) {
	key := fmt.Sprintf(KeyOrderDetail, orderID)
	_ = c.Client.Del(ctx, key).Err()
}
