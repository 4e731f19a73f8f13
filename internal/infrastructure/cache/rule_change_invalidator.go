package cache

import (
	"context"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/domain/shared"
	"go.uber.org/zap"
)

// RuleChangeInvalidator subscribes to rule mutation events and drops the
// cache entries the changed rule's scope could have priced. Stale entries
// disappear at most one event-bus hop after the mutation commits.
type RuleChangeInvalidator struct {
	cache  *TieredPriceCache
	logger *zap.Logger
}

// NewRuleChangeInvalidator creates a new invalidation handler
func NewRuleChangeInvalidator(cache *TieredPriceCache, logger *zap.Logger) *RuleChangeInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleChangeInvalidator{cache: cache, logger: logger}
}

// EventTypes returns the rule mutation event types
func (h *RuleChangeInvalidator) EventTypes() []string {
	return pricing.RuleChangeEventTypes()
}

// Handle drops the cache entries the changed rule covers. Events without a
// scope payload fall back to clearing the whole tenant.
func (h *RuleChangeInvalidator) Handle(ctx context.Context, event shared.DomainEvent) error {
	scope := pricing.RuleScope{}
	if change, ok := event.(*pricing.RuleChangeEvent); ok {
		scope = change.Scope
	}

	h.cache.Invalidate(ctx, event.TenantID(), scope)
	h.logger.Debug("price cache invalidated on rule change",
		zap.String("tenant_id", event.TenantID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_id", event.AggregateID().String()))
	return nil
}
