package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/concierge/internal/db"
)

// tier2 is the consumer interface for the shared networked cache tier.
type tier2 interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// QueryCache is the two-tier cache for answers, hours snapshots, and query
// embeddings. Reads go L1 then L2 (populating L1 on an L2 hit); writes go
// to both tiers unconditionally. Every tier-2 operation degrades to a no-op
// when the store is unreachable: the cache stays fully functional L1-only.
type QueryCache struct {
	local  *LocalCache
	shared tier2 // nil when tier 2 is not configured

	keyMu sync.Mutex
	keys  map[string]*keyLock

	resultTotal *prometheus.CounterVec
	logger      *zap.Logger
}

// New creates a QueryCache. shared may be nil (L1-only mode). resultTotal
// is a counter vec with labels "tier" and "result", passed explicitly.
func New(local *LocalCache, shared tier2, resultTotal *prometheus.CounterVec, logger *zap.Logger) *QueryCache {
	return &QueryCache{
		local:       local,
		shared:      shared,
		keys:        make(map[string]*keyLock),
		resultTotal: resultTotal,
		logger:      logger,
	}
}

// Get reads L1 then L2. An L2 hit backfills L1 with the remaining TTL
// semantics of the namespace (the caller's ttl).
func (c *QueryCache) Get(ctx context.Context, key string, ttl time.Duration) ([]byte, bool) {
	if v, ok := c.local.Get(key); ok {
		c.count("l1", "hit")
		return v, true
	}
	c.count("l1", "miss")

	if c.shared == nil {
		return nil, false
	}

	v, err := c.shared.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("cache tier-2 read failed, continuing L1-only",
				zap.String("key", key), zap.Error(err))
		}
		c.count("l2", "miss")
		return nil, false
	}

	c.count("l2", "hit")
	c.local.Set(key, v, ttl)
	return v, true
}

// Set writes both tiers unconditionally. Tier-2 failures are logged and
// swallowed.
func (c *QueryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	c.local.Set(key, value, ttl)

	if c.shared == nil {
		return
	}
	if err := c.shared.SetWithTTL(ctx, key, value, ttl); err != nil {
		c.logger.Warn("cache tier-2 write failed, continuing L1-only",
			zap.String("key", key), zap.Error(err))
	}
}

// Delete removes one exact key at both tiers. The count reflects tier 1
// only; a tier-2 DEL on an absent key is indistinguishable from a hit.
func (c *QueryCache) Delete(ctx context.Context, key string) int {
	removed := 0
	if c.local.Delete(key) {
		removed = 1
	}

	if c.shared == nil {
		return removed
	}
	if err := c.shared.Del(ctx, key); err != nil {
		c.logger.Warn("cache tier-2 delete failed",
			zap.String("key", key), zap.Error(err))
	}
	return removed
}

// InvalidatePrefix deletes all entries whose key begins with prefix at both
// tiers. Tier 2 uses a cursor SCAN over prefix*, never a full enumeration.
func (c *QueryCache) InvalidatePrefix(ctx context.Context, prefix string) int {
	removed := c.local.DeletePrefix(prefix)

	if c.shared == nil {
		return removed
	}

	keys, err := c.shared.Scan(ctx, prefix+"*")
	if err != nil {
		c.logger.Warn("cache tier-2 scan failed during invalidation",
			zap.String("prefix", prefix), zap.Error(err))
		return removed
	}
	if len(keys) == 0 {
		return removed
	}
	if err := c.shared.Del(ctx, keys...); err != nil {
		c.logger.Warn("cache tier-2 delete failed during invalidation",
			zap.String("prefix", prefix), zap.Error(err))
		return removed
	}
	return removed + len(keys)
}

// LockKey acquires the per-key mutual-exclusion handle for stampede
// protection: on a miss the first caller holds it while recomputing, and
// concurrent callers for the same key wait on it instead of recomputing.
// Handles are created lazily in a lock-guarded registry and refcounted, so
// the registry only ever holds locks with live waiters.
func (c *QueryCache) LockKey(key string) (unlock func()) {
	c.keyMu.Lock()
	kl, ok := c.keys[key]
	if !ok {
		kl = &keyLock{}
		c.keys[key] = kl
	}
	kl.refs++
	c.keyMu.Unlock()

	kl.mu.Lock()
	return func() {
		kl.mu.Unlock()
		c.keyMu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(c.keys, key)
		}
		c.keyMu.Unlock()
	}
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// LocalLen reports the tier-1 entry count for health reporting.
func (c *QueryCache) LocalLen() int {
	return c.local.Len()
}

func (c *QueryCache) count(tier, result string) {
	if c.resultTotal != nil {
		c.resultTotal.WithLabelValues(tier, result).Inc()
	}
}
