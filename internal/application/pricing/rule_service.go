package pricing

import (
	"context"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/domain/shared"
	"github.com/erp/pricing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RuleService handles price rule administration. Every successful mutation
// publishes exactly one domain event, which drives cache invalidation and
// webhook fan-out.
type RuleService struct {
	ruleRepo pricing.RuleRepository
	events   shared.EventPublisher
	logger   *zap.Logger
}

// NewRuleService creates a new rule service
func NewRuleService(ruleRepo pricing.RuleRepository, events shared.EventPublisher, logger *zap.Logger) *RuleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleService{
		ruleRepo: ruleRepo,
		events:   events,
		logger:   logger,
	}
}

// Create creates a new price rule
func (s *RuleService) Create(ctx context.Context, tenantID uuid.UUID, req RuleRequest) (*RuleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "price_rule", "create")
	defer span.End()

	rule, err := pricing.NewPriceRule(tenantID, req.Name, pricing.AdjustmentType(req.AdjustmentType), req.AdjustmentValue)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := req.apply(rule); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := rule.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.saveAndPublish(ctx, rule); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("price rule created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("rule_id", rule.ID.String()),
		zap.String("name", rule.Name))
	return ToRuleResponse(rule), nil
}

// Get returns a single rule
func (s *RuleService) Get(ctx context.Context, tenantID, ruleID uuid.UUID) (*RuleResponse, error) {
	rule, err := s.ruleRepo.FindByIDForTenant(ctx, tenantID, ruleID)
	if err != nil {
		return nil, err
	}
	return ToRuleResponse(rule), nil
}

// List returns the tenant's rules with pagination
func (s *RuleService) List(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[RuleResponse], error) {
	rules, total, err := s.ruleRepo.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToRuleResponses(rules), total, filter.Page, filter.PageSize)
	return &page, nil
}

// Update replaces a rule's configuration
func (s *RuleService) Update(ctx context.Context, tenantID, ruleID uuid.UUID, req RuleRequest) (*RuleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "price_rule", "update")
	defer span.End()

	rule, err := s.ruleRepo.FindByIDForTenant(ctx, tenantID, ruleID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	updated := *rule
	if err := req.apply(&updated); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := rule.Update(updated); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.saveAndPublish(ctx, rule); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return ToRuleResponse(rule), nil
}

// Delete removes a rule
func (s *RuleService) Delete(ctx context.Context, tenantID, ruleID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "price_rule", "delete")
	defer span.End()

	rule, err := s.ruleRepo.FindByIDForTenant(ctx, tenantID, ruleID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	rule.MarkDeleted()
	events := rule.GetDomainEvents()
	rule.ClearDomainEvents()

	if err := s.ruleRepo.Delete(ctx, tenantID, ruleID); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	s.publish(ctx, events)
	s.logger.Info("price rule deleted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("rule_id", ruleID.String()))
	return nil
}

// Toggle flips a rule's active flag
func (s *RuleService) Toggle(ctx context.Context, tenantID, ruleID uuid.UUID) (*RuleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "price_rule", "toggle")
	defer span.End()

	rule, err := s.ruleRepo.FindByIDForTenant(ctx, tenantID, ruleID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	rule.Toggle()

	if err := s.saveAndPublish(ctx, rule); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return ToRuleResponse(rule), nil
}

// Duplicate copies a rule under a new name. The copy starts inactive.
func (s *RuleService) Duplicate(ctx context.Context, tenantID, ruleID uuid.UUID, req DuplicateRuleRequest) (*RuleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "price_rule", "duplicate")
	defer span.End()

	rule, err := s.ruleRepo.FindByIDForTenant(ctx, tenantID, ruleID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	copied, err := rule.Duplicate(req.Name)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.saveAndPublish(ctx, copied); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return ToRuleResponse(copied), nil
}

// BulkToggle activates or deactivates a batch of rules. Rules already in
// the requested state are left untouched and publish no event.
func (s *RuleService) BulkToggle(ctx context.Context, tenantID uuid.UUID, req BulkToggleRequest) ([]RuleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "price_rule", "bulk_toggle")
	defer span.End()

	out := make([]RuleResponse, 0, len(req.RuleIDs))
	for _, ruleID := range req.RuleIDs {
		rule, err := s.ruleRepo.FindByIDForTenant(ctx, tenantID, ruleID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if rule.IsActive != req.Active {
			rule.Toggle()
			if err := s.saveAndPublish(ctx, rule); err != nil {
				telemetry.RecordError(span, err)
				return nil, err
			}
		}
		out = append(out, *ToRuleResponse(rule))
	}
	return out, nil
}

func (s *RuleService) saveAndPublish(ctx context.Context, rule *pricing.PriceRule) error {
	events := rule.GetDomainEvents()
	rule.ClearDomainEvents()
	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return err
	}
	s.publish(ctx, events)
	return nil
}

// publish sends the events after the write committed. A publish failure is
// logged, never surfaced: the rule change already happened.
func (s *RuleService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish rule change events",
			zap.Int("event_count", len(events)),
			zap.Error(err))
	}
}
