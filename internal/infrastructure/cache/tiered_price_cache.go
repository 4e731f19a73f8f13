package cache

import (
	"context"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TieredPriceCache layers the in-process L1 over the shared Redis L2.
// The L1 flight is the coalescing point, so even an L2 probe happens at
// most once per key at a time.
type TieredPriceCache struct {
	l1     *InMemoryPriceCache
	l2     *RedisPriceCache
	logger *zap.Logger
}

// NewTieredPriceCache creates a tiered cache. The L2 may be nil, in which
// case only the in-process tier is used.
func NewTieredPriceCache(l1 *InMemoryPriceCache, l2 *RedisPriceCache, logger *zap.Logger) *TieredPriceCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TieredPriceCache{l1: l1, l2: l2, logger: logger}
}

// GetOrCompute checks L1, then L2, then computes. Computed results are
// written through to both tiers.
func (c *TieredPriceCache) GetOrCompute(ctx context.Context, pctx pricing.Context, compute func(ctx context.Context) (*pricing.ComputationResult, error)) (*pricing.ComputationResult, bool, error) {
	fromL2 := false
	result, l1Hit, err := c.l1.GetOrCompute(ctx, pctx, func(ctx context.Context) (*pricing.ComputationResult, error) {
		if c.l2 != nil {
			cached, err := c.l2.Get(ctx, pctx.CacheKey())
			if err != nil {
				// L2 being down degrades to computing, never to failing.
				c.logger.Warn("shared price cache unavailable", zap.Error(err))
			} else if cached != nil {
				fromL2 = true
				return cached, nil
			}
		}

		computed, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if c.l2 != nil {
			if err := c.l2.Set(ctx, pctx.CacheKey(), computed); err != nil {
				c.logger.Warn("failed to write price to shared cache", zap.Error(err))
			}
		}
		return computed, nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, l1Hit || fromL2, nil
}

// Invalidate clears matching L1 entries and the tenant's L2 entries.
// The L2 keeps no scope index, so a scoped invalidation clears the whole
// tenant there; correctness over precision.
func (c *TieredPriceCache) Invalidate(ctx context.Context, tenantID uuid.UUID, scope pricing.RuleScope) {
	c.l1.Invalidate(tenantID, scope)
	if c.l2 != nil {
		if err := c.l2.InvalidateTenant(ctx, tenantID); err != nil {
			c.logger.Warn("failed to invalidate shared price cache",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		}
	}
}

// Stop terminates the L1 maintenance goroutine
func (c *TieredPriceCache) Stop() {
	c.l1.Stop()
}
