package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ObjectCache is a thin wrapper over redis string values for short-lived
// configuration snapshots (business profile, prompt templates). A nil
// client turns every operation into a no-op and every read into a miss,
// so callers always fall through to the database.
type ObjectCache struct {
	rdb *redis.Client
}

func NewObjectCache(rdb *redis.Client) *ObjectCache {
	return &ObjectCache{rdb: rdb}
}

func (c *ObjectCache) Get(ctx context.Context, key string) (string, bool) {
	if c == nil || c.rdb == nil {
		return "", false
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *ObjectCache) Set(ctx context.Context, key, value string, ttlSeconds int) {
	if c == nil || c.rdb == nil {
		return
	}
	c.rdb.Set(ctx, key, value, time.Duration(ttlSeconds)*time.Second)
}

func (c *ObjectCache) Delete(ctx context.Context, keys ...string) {
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return
	}
	c.rdb.Del(ctx, keys...)
}
