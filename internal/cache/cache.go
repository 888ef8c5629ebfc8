package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/askerp/askerp-server/internal/platform/logger"
	"github.com/askerp/askerp-server/internal/store/model"
)

const (
	keyPrefix = "askerp:cache:"
	indexKey  = "askerp:cache:index"
)

// Tools whose results must never be served from cache: anything that
// writes, or whose answer depends on who is asking.
var uncacheableTools = map[string]bool{
	"create_alert":    true,
	"delete_alert":    true,
	"schedule_report": true,
	"export_pdf":      true,
	"export_excel":    true,
}

// Read-only data queries that are safe to cache.
var cacheableTools = map[string]bool{
	"query_records":         true,
	"count_records":         true,
	"get_document":          true,
	"run_sql_query":         true,
	"get_financial_summary": true,
	"compare_periods":       true,
	"list_alerts":           true,
}

// SettingsSource supplies the cache knobs from the settings document.
type SettingsSource interface {
	Get(ctx context.Context) (*model.Settings, error)
}

// Stats summarizes the state of the query cache for the admin dashboard.
type Stats struct {
	TotalEntries int `json:"total_entries"`
	IndexSize    int `json:"index_size"`
}

// QueryCache stores tool execution results in redis so repeated questions
// don't re-run the same database queries. When the redis client is nil the
// cache degrades to a no-op and every lookup is a miss.
type QueryCache struct {
	rdb      *redis.Client
	settings SettingsSource
}

func NewQueryCache(rdb *redis.Client, settings SettingsSource) *QueryCache {
	return &QueryCache{rdb: rdb, settings: settings}
}

// Enabled reports whether lookups can succeed at all.
func (c *QueryCache) Enabled(ctx context.Context) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	enabled, _, _ := c.config(ctx)
	return enabled
}

// config resolves (enabled, ttl, maxEntries) from settings, falling back to
// disabled when the settings row cannot be read.
func (c *QueryCache) config(ctx context.Context) (bool, time.Duration, int64) {
	s, err := c.settings.Get(ctx)
	if err != nil || s == nil {
		return false, 15 * time.Minute, 500
	}
	ttlMinutes := s.CacheTTLMinutes
	if ttlMinutes <= 0 {
		ttlMinutes = 15
	}
	maxEntries := int64(s.CacheMaxEntries)
	if maxEntries < 10 {
		maxEntries = 500
	}
	return s.EnableQueryCache, time.Duration(ttlMinutes) * time.Minute, maxEntries
}

// Key builds the deterministic cache key for a tool call. The input is
// normalized through json.Marshal, which sorts map keys, so semantically
// identical calls hash to the same key.
func Key(tool string, input map[string]any) string {
	normalized, err := json.Marshal(map[string]any{"tool": tool, "input": input})
	if err != nil {
		normalized = []byte(tool)
	}
	digest := sha256.Sum256(normalized)
	return fmt.Sprintf("%s%s:%x", keyPrefix, tool, digest[:12])
}

// Cacheable reports whether results for the named tool may be cached.
func Cacheable(tool string) bool {
	return cacheableTools[tool] && !uncacheableTools[tool]
}

// Lookup returns the cached result for a tool call, or ok=false on a miss.
// Redis errors are treated as misses.
func (c *QueryCache) Lookup(ctx context.Context, tool string, input map[string]any) (json.RawMessage, bool) {
	if c == nil || c.rdb == nil || !Cacheable(tool) {
		return nil, false
	}
	enabled, _, _ := c.config(ctx)
	if !enabled {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, Key(tool, input)).Bytes()
	if err != nil {
		return nil, false
	}
	return json.RawMessage(raw), true
}

// Store caches a tool result under the configured TTL and records the key in
// the cache index, evicting the oldest entries when the index grows past the
// configured maximum. Failures are logged at debug and otherwise ignored.
func (c *QueryCache) Store(ctx context.Context, tool string, input map[string]any, result json.RawMessage) {
	if c == nil || c.rdb == nil || !Cacheable(tool) || len(result) == 0 {
		return
	}
	enabled, ttl, maxEntries := c.config(ctx)
	if !enabled || ttl <= 0 {
		return
	}
	key := Key(tool, input)
	if err := c.rdb.Set(ctx, key, []byte(result), ttl).Err(); err != nil {
		logger.Debug("cache write failed", zap.Error(err))
		return
	}
	c.updateIndex(ctx, key, maxEntries)
}

// updateIndex keeps a bounded, recency-ordered list of live cache keys.
// Best effort: index drift only costs extra deletes on the next clear.
func (c *QueryCache) updateIndex(ctx context.Context, key string, maxEntries int64) {
	pipe := c.rdb.TxPipeline()
	pipe.LRem(ctx, indexKey, 0, key)
	pipe.RPush(ctx, indexKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return
	}
	size, err := c.rdb.LLen(ctx, indexKey).Result()
	if err != nil {
		return
	}
	for size > maxEntries {
		old, err := c.rdb.LPop(ctx, indexKey).Result()
		if err != nil {
			return
		}
		c.rdb.Del(ctx, old)
		size--
	}
}

// ClearAll deletes every indexed cache entry and the index itself.
// Returns how many entries were cleared.
func (c *QueryCache) ClearAll(ctx context.Context) (int, error) {
	if c == nil || c.rdb == nil {
		return 0, nil
	}
	keys, err := c.rdb.LRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	if len(keys) > 0 {
		c.rdb.Del(ctx, keys...)
	}
	c.rdb.Del(ctx, indexKey)
	return len(keys), nil
}

// ClearTools removes cached entries belonging to the named tools. Keys embed
// the tool name, so a prefix check against the index is enough.
func (c *QueryCache) ClearTools(ctx context.Context, tools ...string) (int, error) {
	if c == nil || c.rdb == nil {
		return 0, nil
	}
	keys, err := c.rdb.LRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	cleared := 0
	for _, key := range keys {
		for _, tool := range tools {
			if matchesTool(key, tool) {
				c.rdb.Del(ctx, key)
				c.rdb.LRem(ctx, indexKey, 0, key)
				cleared++
				break
			}
		}
	}
	return cleared, nil
}

func matchesTool(key, tool string) bool {
	prefix := keyPrefix + tool + ":"
	return len(key) > len(prefix) && key[:len(prefix)] == prefix
}

// Stats counts live entries for the admin dashboard.
func (c *QueryCache) Stats(ctx context.Context) Stats {
	if c == nil || c.rdb == nil {
		return Stats{}
	}
	keys, err := c.rdb.LRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return Stats{}
	}
	alive := 0
	for _, key := range keys {
		if n, err := c.rdb.Exists(ctx, key).Result(); err == nil && n > 0 {
			alive++
		}
	}
	return Stats{TotalEntries: alive, IndexSize: len(keys)}
}
