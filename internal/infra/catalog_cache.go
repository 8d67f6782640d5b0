package infra

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const catalogVersionKey = "catalog:version"

// CatalogCache is a read-through cache for catalog lookups (price check,
// barcode scan). Entries are namespaced by a version counter: bumping the
// counter invalidates every entry at once without a SCAN. A nil client makes
// every method a no-op, so callers never branch on whether Redis is configured.
type CatalogCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCatalogCache(rdb *redis.Client, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CatalogCache{rdb: rdb, ttl: ttl}
}

// Enabled reports whether a Redis client backs the cache.
func (c *CatalogCache) Enabled() bool { return c != nil && c.rdb != nil }

func (c *CatalogCache) key(ctx context.Context, k string) (string, error) {
	v, err := c.rdb.Get(ctx, catalogVersionKey).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return "catalog:v" + strconv.FormatInt(v, 10) + ":" + k, nil
}

// Get decodes the cached value for k into dst and reports whether it hit.
// It also returns the versioned key it looked under; on a miss, hand that key
// to Fill so a value read before a concurrent Invalidate lands in the retired
// version instead of the current one. The key is "" when the cache is off.
func (c *CatalogCache) Get(ctx context.Context, k string, dst any) (string, bool) {
	if !c.Enabled() {
		return "", false
	}
	key, err := c.key(ctx, k)
	if err != nil {
		return "", false
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return key, false
	}
	return key, json.Unmarshal(b, dst) == nil
}

// Fill stores v under a key obtained from Get. Best effort: failures are
// logged, never returned.
func (c *CatalogCache) Fill(ctx context.Context, key string, v any) {
	if !c.Enabled() || key == "" {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("catalog cache: fill failed")
	}
}

// Invalidate bumps the version counter. Called after any commit that changes
// prices or stock.
func (c *CatalogCache) Invalidate(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.rdb.Incr(ctx, catalogVersionKey).Err(); err != nil {
		log.Warn().Err(err).Msg("catalog cache: invalidate failed")
	}
}
