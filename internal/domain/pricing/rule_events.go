package pricing

import (
	"github.com/erp/pricing/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypePriceRule = "PriceRule"

// Event type constants. The values double as the webhook event types
// delivered to external subscribers.
const (
	EventTypeRuleCreated = "RULE_CREATED"
	EventTypeRuleUpdated = "RULE_UPDATED"
	EventTypeRuleDeleted = "RULE_DELETED"
	EventTypeRuleToggled = "RULE_TOGGLED"
)

// RuleChangeEvent is published on every successful rule mutation. One
// mutation produces exactly one event; the cache invalidator and the
// webhook enqueuer both consume it.
type RuleChangeEvent struct {
	shared.BaseDomainEvent
	RuleID   uuid.UUID `json:"rule_id"`
	RuleName string    `json:"rule_name"`
	Scope    RuleScope `json:"scope"`
	IsActive bool      `json:"is_active"`
	Priority int       `json:"priority"`
}

func newRuleChangeEvent(eventType string, rule *PriceRule) *RuleChangeEvent {
	return &RuleChangeEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypePriceRule, rule.ID, rule.TenantID),
		RuleID:          rule.ID,
		RuleName:        rule.Name,
		Scope:           rule.Scope(),
		IsActive:        rule.IsActive,
		Priority:        rule.Priority,
	}
}

// NewRuleCreatedEvent is raised when a rule is created or duplicated
func NewRuleCreatedEvent(rule *PriceRule) *RuleChangeEvent {
	return newRuleChangeEvent(EventTypeRuleCreated, rule)
}

// NewRuleUpdatedEvent is raised when a rule's configuration changes
func NewRuleUpdatedEvent(rule *PriceRule) *RuleChangeEvent {
	return newRuleChangeEvent(EventTypeRuleUpdated, rule)
}

// NewRuleDeletedEvent is raised just before a rule is removed
func NewRuleDeletedEvent(rule *PriceRule) *RuleChangeEvent {
	return newRuleChangeEvent(EventTypeRuleDeleted, rule)
}

// NewRuleToggledEvent is raised when the active flag flips
func NewRuleToggledEvent(rule *PriceRule) *RuleChangeEvent {
	return newRuleChangeEvent(EventTypeRuleToggled, rule)
}

// RuleChangeEventTypes lists every rule mutation event type
func RuleChangeEventTypes() []string {
	return []string{EventTypeRuleCreated, EventTypeRuleUpdated, EventTypeRuleDeleted, EventTypeRuleToggled}
}
