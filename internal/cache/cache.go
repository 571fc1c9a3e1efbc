// Package cache provides the Redis-backed analytics cache.  Aggregates
// computed from paid orders are expensive, so analytics handlers store
// their JSON results here with a short TTL; the order-events consumer
// drops the whole namespace whenever order data changes.  The cache is
// never load-bearing: a nil client or any Redis failure just means the
// caller recomputes.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mantasj/ticket-marketplace/internal/config"
)

type Cache struct {
	rdb *redis.Client
	cfg config.CacheConfig
}

// New returns a Cache.  A nil Redis client disables it; every method
// then reports a miss or no-op.
func New(rdb *redis.Client, cfg config.CacheConfig) *Cache {
	return &Cache{rdb: rdb, cfg: cfg}
}

func (c *Cache) key(suffix string) string { return c.cfg.Prefix + ":" + suffix }

// Get unmarshals the cached value for the key suffix into dest and
// reports whether there was a hit.
func (c *Cache) Get(ctx context.Context, suffix string, dest interface{}) bool {
	if c.rdb == nil || !c.cfg.Enabled {
		return false
	}
	raw, err := c.rdb.Get(ctx, c.key(suffix)).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false
	}
	return true
}

// Set stores the value under the key suffix with the configured TTL.
// Failures are logged and swallowed.
func (c *Cache) Set(ctx context.Context, suffix string, value interface{}) {
	if c.rdb == nil || !c.cfg.Enabled {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("cache: marshal %s failed: %v", suffix, err)
		return
	}
	if err := c.rdb.Set(ctx, c.key(suffix), raw, c.cfg.TTL).Err(); err != nil {
		log.Printf("cache: set %s failed: %v", suffix, err)
	}
}

// InvalidateOrderRelated drops every key in the analytics namespace.
// Called by the order-events consumer after an order is created or paid.
func (c *Cache) InvalidateOrderRelated(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	start := time.Now()
	iter := c.rdb.Scan(ctx, 0, c.cfg.Prefix+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("cache: invalidation scan failed: %v", err)
		return
	}
	if len(keys) > 0 {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			log.Printf("cache: invalidation delete failed: %v", err)
			return
		}
	}
	log.Printf("cache: invalidated %d analytics keys in %s", len(keys), time.Since(start))
}
