package cache

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultCleanupInterval = 30 * time.Second

// InMemoryPriceCache is the L1 price cache. Concurrent lookups of the same
// key are coalesced into a single computation: one caller computes, the
// rest wait on the in-flight result. A waiter whose context expires stops
// waiting without cancelling the computation the others depend on.
type InMemoryPriceCache struct {
	shards  []priceCacheShard
	config  Config
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped int32

	hits      int64
	misses    int64
	coalesced int64
}

type priceCacheShard struct {
	mu      sync.Mutex
	entries map[string]*priceEntry
	flights map[string]*priceFlight
}

// priceEntry keeps the scope alongside the result so rule mutations can
// invalidate exactly the entries their scope touches.
type priceEntry struct {
	result    *pricing.ComputationResult
	tenantID  uuid.UUID
	scope     pricing.RuleScope
	expiresAt time.Time
}

func (e *priceEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

type priceFlight struct {
	done   chan struct{}
	result *pricing.ComputationResult
	err    error
}

// InMemoryPriceCacheOption is a functional option for configuring the cache
type InMemoryPriceCacheOption func(*InMemoryPriceCache)

// WithInMemoryConfig sets the cache configuration
func WithInMemoryConfig(config Config) InMemoryPriceCacheOption {
	return func(c *InMemoryPriceCache) {
		c.config = config.withDefaults()
	}
}

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemoryPriceCacheOption {
	return func(c *InMemoryPriceCache) {
		c.logger = logger
	}
}

// NewInMemoryPriceCache creates a new in-memory price cache
func NewInMemoryPriceCache(opts ...InMemoryPriceCacheOption) *InMemoryPriceCache {
	cache := &InMemoryPriceCache{
		config: DefaultConfig(),
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(cache)
	}

	cache.shards = make([]priceCacheShard, cache.config.Shards)
	for i := range cache.shards {
		cache.shards[i] = priceCacheShard{
			entries: make(map[string]*priceEntry),
			flights: make(map[string]*priceFlight),
		}
	}

	go cache.cleanupExpired()
	return cache
}

// GetOrCompute returns the cached result for the context or computes it.
// The boolean reports whether the result came from cache.
func (c *InMemoryPriceCache) GetOrCompute(ctx context.Context, pctx pricing.Context, compute func(ctx context.Context) (*pricing.ComputationResult, error)) (*pricing.ComputationResult, bool, error) {
	key := pctx.CacheKey()
	shard := c.shardFor(key)

	shard.mu.Lock()
	if entry, ok := shard.entries[key]; ok {
		if !entry.isExpired() {
			shard.mu.Unlock()
			atomic.AddInt64(&c.hits, 1)
			return entry.result, true, nil
		}
		delete(shard.entries, key)
	}

	if flight, ok := shard.flights[key]; ok {
		shard.mu.Unlock()
		atomic.AddInt64(&c.coalesced, 1)
		select {
		case <-flight.done:
			if flight.err != nil {
				return nil, false, flight.err
			}
			return flight.result, true, nil
		case <-ctx.Done():
			// Only this waiter gives up; the computation keeps running
			// for everyone else.
			return nil, false, ctx.Err()
		}
	}

	flight := &priceFlight{done: make(chan struct{})}
	shard.flights[key] = flight
	shard.mu.Unlock()
	atomic.AddInt64(&c.misses, 1)

	result, err := compute(ctx)
	flight.result = result
	flight.err = err

	shard.mu.Lock()
	if current, ok := shard.flights[key]; ok && current == flight {
		delete(shard.flights, key)
	}
	if err == nil && result != nil {
		shard.entries[key] = &priceEntry{
			result:    result,
			tenantID:  pctx.TenantID,
			scope:     pctx.Scope(),
			expiresAt: time.Now().Add(c.config.L1TTL),
		}
	}
	shard.mu.Unlock()
	close(flight.done)

	return result, false, err
}

// Invalidate removes every entry of the tenant whose scope falls inside the
// given rule scope. A wildcard scope clears the whole tenant.
func (c *InMemoryPriceCache) Invalidate(tenantID uuid.UUID, scope pricing.RuleScope) int {
	removed := 0
	for i := range c.shards {
		shard := &c.shards[i]
		shard.mu.Lock()
		for key, entry := range shard.entries {
			if entry.tenantID == tenantID && scope.Matches(entry.scope) {
				delete(shard.entries, key)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	if removed > 0 {
		c.logger.Debug("invalidated cached prices",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("removed", removed))
	}
	return removed
}

// InvalidateTenant removes every entry of the tenant
func (c *InMemoryPriceCache) InvalidateTenant(tenantID uuid.UUID) int {
	return c.Invalidate(tenantID, pricing.RuleScope{})
}

// Stats returns hit, miss and coalesced-wait counters
func (c *InMemoryPriceCache) Stats() (hits, misses, coalesced int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses), atomic.LoadInt64(&c.coalesced)
}

// Stop terminates the cleanup goroutine
func (c *InMemoryPriceCache) Stop() {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
}

func (c *InMemoryPriceCache) shardFor(key string) *priceCacheShard {
	if len(c.shards) == 1 {
		return &c.shards[0]
	}
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(key))
	return &c.shards[hasher.Sum32()%uint32(len(c.shards))]
}

func (c *InMemoryPriceCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			removed := 0
			for i := range c.shards {
				shard := &c.shards[i]
				shard.mu.Lock()
				for key, entry := range shard.entries {
					if entry.isExpired() {
						delete(shard.entries, key)
						removed++
					}
				}
				shard.mu.Unlock()
			}
			if removed > 0 {
				c.logger.Debug("cleaned up expired price cache entries", zap.Int("removed", removed))
			}
		}
	}
}
