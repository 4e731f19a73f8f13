package pricing

import (
	"context"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/google/uuid"
)

// ScopeHint narrows the candidate set fetched from storage. It is an
// optimization only: the matcher re-checks every condition, so an overly
// broad hint is correct, just slower.
type ScopeHint struct {
	ArticleID     string
	ArticleFamily string
	Channel       string
}

// RuleRepository defines the persistence interface for price rules.
// The engine treats rule storage as read-mostly; writes come from the
// admin layer through the same interface.
type RuleRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*PriceRule, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]PriceRule, int64, error)
	// ListActive returns the active rules for a tenant that could match the
	// given scope hint, including wildcard rules.
	ListActive(ctx context.Context, tenantID uuid.UUID, hint ScopeHint) ([]PriceRule, error)
	Save(ctx context.Context, rule *PriceRule) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	// IncrementUsage atomically bumps the usage counters of the given rules.
	// The increment is eventually consistent with reads, never part of the
	// lookup transaction.
	IncrementUsage(ctx context.Context, tenantID uuid.UUID, ruleIDs []uuid.UUID) error
}
