package pricing

import (
	"context"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockRuleRepository is a mock implementation of pricing.RuleRepository
type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*pricing.PriceRule, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.PriceRule), args.Error(1)
}

func (m *MockRuleRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]pricing.PriceRule, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]pricing.PriceRule), args.Get(1).(int64), args.Error(2)
}

func (m *MockRuleRepository) ListActive(ctx context.Context, tenantID uuid.UUID, hint pricing.ScopeHint) ([]pricing.PriceRule, error) {
	args := m.Called(ctx, tenantID, hint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pricing.PriceRule), args.Error(1)
}

func (m *MockRuleRepository) Save(ctx context.Context, rule *pricing.PriceRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockRuleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockRuleRepository) IncrementUsage(ctx context.Context, tenantID uuid.UUID, ruleIDs []uuid.UUID) error {
	args := m.Called(ctx, tenantID, ruleIDs)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// passthroughCache always misses and runs the computation inline
type passthroughCache struct{}

func (passthroughCache) GetOrCompute(ctx context.Context, pctx pricing.Context, compute func(ctx context.Context) (*pricing.ComputationResult, error)) (*pricing.ComputationResult, bool, error) {
	result, err := compute(ctx)
	return result, false, err
}

// staticCache returns a fixed result without computing
type staticCache struct {
	result *pricing.ComputationResult
}

func (c staticCache) GetOrCompute(ctx context.Context, pctx pricing.Context, compute func(ctx context.Context) (*pricing.ComputationResult, error)) (*pricing.ComputationResult, bool, error) {
	return c.result, true, nil
}

// capturingRecorder stores every analytics log it receives
type capturingRecorder struct {
	logs []*pricing.ComputationLog
}

func (r *capturingRecorder) Record(log *pricing.ComputationLog) {
	r.logs = append(r.logs, log)
}
