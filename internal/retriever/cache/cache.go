// Package cache memoises search results in Redis. Keys embed the engine's
// corpus version, so any document mutation makes earlier entries
// unreachable without an explicit flush.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/internal/retriever"
	"github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/retrieval-engine/pkg/redis"
)

const keyPrefix = "retriever:"

// Store is the key-value backend. *pkgredis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies one cached search.
type Key struct {
	Query   string
	Options retriever.SearchOptions
	Version uint64
}

// QueryCache wraps a Store with singleflight so concurrent misses for the
// same key compute once.
type QueryCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a QueryCache. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached results for k. Backend and decode failures count
// as misses.
func (c *QueryCache) Get(ctx context.Context, k Key) ([]retriever.Result, bool) {
	key := BuildKey(k)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.recordMiss()
		return nil, false
	}
	var results []retriever.Result
	if err := json.Unmarshal(data, &results); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	c.logger.Debug("cache hit", "query", k.Query, "key", key)
	return results, true
}

// Set stores results under k. Failures are logged, not returned.
func (c *QueryCache) Set(ctx context.Context, k Key, results []retriever.Result) {
	key := BuildKey(k)
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns cached results for k, or runs compute and caches its
// output. The bool reports a cache hit.
func (c *QueryCache) GetOrCompute(ctx context.Context, k Key, compute func() []retriever.Result) ([]retriever.Result, bool) {
	if results, ok := c.Get(ctx, k); ok {
		return results, true
	}
	key := BuildKey(k)
	val, _, _ := c.group.Do(key, func() (any, error) {
		results := compute()
		c.Set(ctx, k, results)
		return results, nil
	})
	return val.([]retriever.Result), false
}

// Invalidate deletes every key this cache owns.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns hit and miss counts since creation.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// BuildKey hashes the normalised query together with the search options and
// corpus version.
func BuildKey(k Key) string {
	raw := fmt.Sprintf("%s|cat=%s|k=%d|t=%g|v=%d",
		normalizeQuery(k.Query),
		k.Options.Category,
		k.Options.TopK,
		k.Options.Threshold,
		k.Version,
	)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizeQuery folds case and whitespace. Word order is kept so a cached
// score matches a fresh search bit for bit.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
