package pricing

import (
	"strings"
	"time"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/erp/pricing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustmentType determines how a matched rule transforms the running price
type AdjustmentType string

const (
	AdjustmentFixedPrice         AdjustmentType = "FIXED_PRICE"
	AdjustmentPercentageDiscount AdjustmentType = "PERCENTAGE_DISCOUNT"
	AdjustmentFixedDiscount      AdjustmentType = "FIXED_DISCOUNT"
	AdjustmentUnitBased          AdjustmentType = "UNIT_BASED"
)

// IsValid returns true for a known adjustment type
func (t AdjustmentType) IsValid() bool {
	switch t {
	case AdjustmentFixedPrice, AdjustmentPercentageDiscount, AdjustmentFixedDiscount, AdjustmentUnitBased:
		return true
	}
	return false
}

// RuleScope is the set of optional match constraints narrowing when a rule
// applies. An empty field is a wildcard. The scope is also the granularity
// at which cached prices are invalidated on rule mutation.
type RuleScope struct {
	Channel         string `json:"channel,omitempty"`
	ArticleID       string `json:"article_id,omitempty"`
	ArticleFamily   string `json:"article_family,omitempty"`
	CustomerSegment string `json:"customer_segment,omitempty"`
}

// Matches reports whether a cache entry's scope falls inside this scope.
// Wildcard fields match everything.
func (s RuleScope) Matches(other RuleScope) bool {
	if s.Channel != "" && !strings.EqualFold(s.Channel, other.Channel) {
		return false
	}
	if s.ArticleID != "" && s.ArticleID != other.ArticleID {
		return false
	}
	if s.ArticleFamily != "" && !strings.HasPrefix(strings.ToUpper(other.ArticleFamily), strings.ToUpper(s.ArticleFamily)) {
		return false
	}
	if s.CustomerSegment != "" && !strings.EqualFold(s.CustomerSegment, other.CustomerSegment) {
		return false
	}
	return true
}

// PriceRule is the aggregate root for one pricing policy. The engine reads
// active snapshots; mutations come from the admin layer and raise exactly
// one domain event each.
type PriceRule struct {
	shared.TenantAggregateRoot
	Name            string           `gorm:"type:varchar(200);not null"`
	Channel         string           `gorm:"type:varchar(50);index"`
	ArticleID       string           `gorm:"type:varchar(100);index"`
	ArticleFamily   string           `gorm:"type:varchar(100);index"`
	CustomerSegment string           `gorm:"type:varchar(100)"`
	MinQuantity     *decimal.Decimal `gorm:"type:decimal(18,4)"`
	MaxQuantity     *decimal.Decimal `gorm:"type:decimal(18,4)"`
	ValidFrom       *time.Time       `gorm:"index"`
	ValidUntil      *time.Time       `gorm:"index"`
	AdjustmentType  AdjustmentType   `gorm:"type:varchar(30);not null"`
	AdjustmentValue decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	PricePerUnit    decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	PriceUnit       valueobject.Unit `gorm:"type:varchar(10)"`
	Priority        int              `gorm:"not null;default:100;index"`
	Stackable       bool             `gorm:"not null;default:true"`
	IsActive        bool             `gorm:"not null;default:true;index"`
	UsageCount      int64            `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (PriceRule) TableName() string {
	return "price_rules"
}

// NewPriceRule creates a new price rule
func NewPriceRule(tenantID uuid.UUID, name string, adjustmentType AdjustmentType, adjustmentValue decimal.Decimal) (*PriceRule, error) {
	rule := &PriceRule{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                strings.TrimSpace(name),
		AdjustmentType:      adjustmentType,
		AdjustmentValue:     adjustmentValue,
		Priority:            100,
		Stackable:           true,
		IsActive:            true,
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	rule.AddDomainEvent(NewRuleCreatedEvent(rule))
	return rule, nil
}

func (r *PriceRule) Validate() error {
	if r.Name == "" {
		return shared.NewDomainError("INVALID_RULE_CONFIG", "rule name cannot be empty")
	}
	if !r.AdjustmentType.IsValid() {
		return shared.NewDomainError("INVALID_RULE_CONFIG", "unknown adjustment type")
	}
	if r.AdjustmentType == AdjustmentPercentageDiscount {
		if r.AdjustmentValue.IsNegative() || r.AdjustmentValue.GreaterThan(decimal.NewFromInt(100)) {
			return shared.NewDomainError("INVALID_RULE_CONFIG", "percentage discount must be between 0 and 100")
		}
	}
	if r.AdjustmentType == AdjustmentUnitBased && r.PriceUnit.IsZero() {
		return shared.NewDomainError("INVALID_RULE_CONFIG", "unit based rule requires a price unit")
	}
	if r.MinQuantity != nil && r.MaxQuantity != nil && r.MinQuantity.GreaterThan(*r.MaxQuantity) {
		return shared.NewDomainError("INVALID_RULE_CONFIG", "minimum quantity cannot exceed maximum quantity")
	}
	if r.ValidFrom != nil && r.ValidUntil != nil && r.ValidFrom.After(*r.ValidUntil) {
		return shared.NewDomainError("INVALID_RULE_CONFIG", "validity window start cannot be after its end")
	}
	return nil
}

// Scope returns the rule's match constraints as a RuleScope
func (r *PriceRule) Scope() RuleScope {
	return RuleScope{
		Channel:         r.Channel,
		ArticleID:       r.ArticleID,
		ArticleFamily:   r.ArticleFamily,
		CustomerSegment: r.CustomerSegment,
	}
}

// SameScope reports whether two rules constrain exactly the same context
// fields, quantity range, and validity window.
func (r *PriceRule) SameScope(other *PriceRule) bool {
	if r.Scope() != other.Scope() {
		return false
	}
	if !equalDecimalPtr(r.MinQuantity, other.MinQuantity) || !equalDecimalPtr(r.MaxQuantity, other.MaxQuantity) {
		return false
	}
	return equalTimePtr(r.ValidFrom, other.ValidFrom) && equalTimePtr(r.ValidUntil, other.ValidUntil)
}

func equalDecimalPtr(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// MatchesContext reports whether the rule's conditions are satisfied by the
// given context. Absent constraints are wildcards. Inactive rules never match.
func (r *PriceRule) MatchesContext(pctx Context) bool {
	if !r.IsActive {
		return false
	}
	if r.ValidFrom != nil && pctx.Timestamp.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && pctx.Timestamp.After(*r.ValidUntil) {
		return false
	}
	if r.MinQuantity != nil && pctx.Quantity.LessThan(*r.MinQuantity) {
		return false
	}
	if r.MaxQuantity != nil && pctx.Quantity.GreaterThan(*r.MaxQuantity) {
		return false
	}
	return r.Scope().Matches(RuleScope{
		Channel:         pctx.Channel,
		ArticleID:       pctx.ArticleID,
		ArticleFamily:   pctx.ArticleFamily,
		CustomerSegment: pctx.CustomerSegment,
	})
}

// Update applies new configuration to the rule
func (r *PriceRule) Update(updated PriceRule) error {
	snapshot := *r

	r.Name = strings.TrimSpace(updated.Name)
	r.Channel = updated.Channel
	r.ArticleID = updated.ArticleID
	r.ArticleFamily = updated.ArticleFamily
	r.CustomerSegment = updated.CustomerSegment
	r.MinQuantity = updated.MinQuantity
	r.MaxQuantity = updated.MaxQuantity
	r.ValidFrom = updated.ValidFrom
	r.ValidUntil = updated.ValidUntil
	r.AdjustmentType = updated.AdjustmentType
	r.AdjustmentValue = updated.AdjustmentValue
	r.PricePerUnit = updated.PricePerUnit
	r.PriceUnit = updated.PriceUnit
	r.Priority = updated.Priority
	r.Stackable = updated.Stackable

	if err := r.Validate(); err != nil {
		*r = snapshot
		return err
	}

	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	r.AddDomainEvent(NewRuleUpdatedEvent(r))
	return nil
}

// Toggle flips the active flag
func (r *PriceRule) Toggle() {
	r.IsActive = !r.IsActive
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	r.AddDomainEvent(NewRuleToggledEvent(r))
}

// MarkDeleted raises the deletion event before the rule is removed
func (r *PriceRule) MarkDeleted() {
	r.AddDomainEvent(NewRuleDeletedEvent(r))
}

// Duplicate returns a copy of the rule under a new identity and name.
// The copy starts inactive so an operator can review it before it takes
// effect, and its usage counter starts at zero.
func (r *PriceRule) Duplicate(name string) (*PriceRule, error) {
	copied := *r
	copied.TenantAggregateRoot = shared.NewTenantAggregateRoot(r.TenantID)
	copied.Name = strings.TrimSpace(name)
	copied.IsActive = false
	copied.UsageCount = 0
	copied.ClearDomainEvents()

	if err := copied.Validate(); err != nil {
		return nil, err
	}

	copied.AddDomainEvent(NewRuleCreatedEvent(&copied))
	return &copied, nil
}
