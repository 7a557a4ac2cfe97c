package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "sigillum/pkg/domain"
)

const outcomeTTL = 24 * time.Hour

// RedisCache keeps recent command outcomes in Redis so replayed commands can
// be answered without a Postgres round trip. Failures are swallowed; the
// store remains the source of truth.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func cacheKey(tenantID id.TenantID, aggregateID, commandID string) string {
	return fmt.Sprintf("sigillum:cmd:%s:%s:%s", tenantID, aggregateID, commandID)
}

func (c *RedisCache) Get(ctx context.Context, tenantID id.TenantID, aggregateID, commandID string) (*Record, bool) {
	raw, err := c.client.Get(ctx, cacheKey(tenantID, aggregateID, commandID)).Bytes()
	if err != nil {
		return nil, false
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false
	}
	return &rec, true
}

func (c *RedisCache) Put(ctx context.Context, rec Record) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	c.client.Set(ctx, cacheKey(rec.TenantID, rec.AggregateID, rec.CommandID), raw, outcomeTTL)
}
