package pricing

import (
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/domain/shared"
	"github.com/erp/pricing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteRequest asks for the price of one article in a commercial context
type QuoteRequest struct {
	ArticleID       string          `json:"article_id" binding:"required"`
	ArticleFamily   string          `json:"article_family"`
	Channel         string          `json:"channel"`
	CustomerSegment string          `json:"customer_segment"`
	BasePrice       decimal.Decimal `json:"base_price" binding:"required"`
	Quantity        decimal.Decimal `json:"quantity"`
	BaseUnit        string          `json:"base_unit"`
	Timestamp       *time.Time      `json:"timestamp"`
}

// ToContext converts the request into a pricing context. An absent
// quantity defaults to one piece, an absent timestamp to now.
func (r QuoteRequest) ToContext(tenantID uuid.UUID) (pricing.Context, error) {
	if r.BasePrice.IsNegative() {
		return pricing.Context{}, shared.NewDomainError("INVALID_INPUT", "base price cannot be negative")
	}
	quantity := r.Quantity
	if quantity.IsZero() {
		quantity = decimal.NewFromInt(1)
	}
	if quantity.IsNegative() {
		return pricing.Context{}, shared.NewDomainError("INVALID_INPUT", "quantity cannot be negative")
	}

	unitCode := r.BaseUnit
	if unitCode == "" {
		unitCode = "PCS"
	}
	unit, err := valueobject.ParseUnit(unitCode)
	if err != nil {
		return pricing.Context{}, err
	}

	ts := time.Now()
	pinned := r.Timestamp != nil
	if pinned {
		ts = *r.Timestamp
	}

	return pricing.Context{
		TenantID:        tenantID,
		ArticleID:       r.ArticleID,
		ArticleFamily:   r.ArticleFamily,
		Channel:         r.Channel,
		CustomerSegment: r.CustomerSegment,
		Quantity:        quantity,
		BaseUnit:        unit,
		Timestamp:       ts,
		PinnedTimestamp: pinned,
	}, nil
}

// AppliedStepDTO is one line of the price breakdown
type AppliedStepDTO struct {
	RuleID         uuid.UUID       `json:"rule_id"`
	RuleName       string          `json:"rule_name"`
	AdjustmentType string          `json:"adjustment_type"`
	PriceBefore    decimal.Decimal `json:"price_before"`
	PriceAfter     decimal.Decimal `json:"price_after"`
}

// QuoteResponse is the outcome of a price lookup
type QuoteResponse struct {
	BasePrice      decimal.Decimal  `json:"base_price"`
	FinalPrice     decimal.Decimal  `json:"final_price"`
	TotalDiscount  decimal.Decimal  `json:"total_discount"`
	AppliedRuleIDs []uuid.UUID      `json:"applied_rule_ids"`
	Steps          []AppliedStepDTO `json:"steps"`
	UnitUsed       string           `json:"unit_used"`
	Warnings       []string         `json:"warnings,omitempty"`
	CacheHit       bool             `json:"cache_hit"`
	ComputedAt     time.Time        `json:"computed_at"`
}

// ToQuoteResponse converts a computation result to its API shape
func ToQuoteResponse(result *pricing.ComputationResult, cacheHit bool) *QuoteResponse {
	steps := make([]AppliedStepDTO, 0, len(result.Steps))
	for _, step := range result.Steps {
		steps = append(steps, AppliedStepDTO{
			RuleID:         step.RuleID,
			RuleName:       step.RuleName,
			AdjustmentType: string(step.AdjustmentType),
			PriceBefore:    step.PriceBefore,
			PriceAfter:     step.PriceAfter,
		})
	}
	return &QuoteResponse{
		BasePrice:      result.BasePrice,
		FinalPrice:     result.FinalPrice,
		TotalDiscount:  result.TotalDiscount(),
		AppliedRuleIDs: result.AppliedRuleIDs,
		Steps:          steps,
		UnitUsed:       result.UnitUsed,
		Warnings:       result.Warnings,
		CacheHit:       cacheHit,
		ComputedAt:     result.ComputedAt,
	}
}

// RuleRequest carries the full configuration of a rule on create or update
type RuleRequest struct {
	Name            string           `json:"name" binding:"required"`
	Channel         string           `json:"channel"`
	ArticleID       string           `json:"article_id"`
	ArticleFamily   string           `json:"article_family"`
	CustomerSegment string           `json:"customer_segment"`
	MinQuantity     *decimal.Decimal `json:"min_quantity"`
	MaxQuantity     *decimal.Decimal `json:"max_quantity"`
	ValidFrom       *time.Time       `json:"valid_from"`
	ValidUntil      *time.Time       `json:"valid_until"`
	AdjustmentType  string           `json:"adjustment_type" binding:"required"`
	AdjustmentValue decimal.Decimal  `json:"adjustment_value"`
	PricePerUnit    decimal.Decimal  `json:"price_per_unit"`
	PriceUnit       string           `json:"price_unit"`
	Priority        *int             `json:"priority"`
	Stackable       *bool            `json:"stackable"`
}

func (r RuleRequest) apply(rule *pricing.PriceRule) error {
	rule.Name = r.Name
	rule.Channel = r.Channel
	rule.ArticleID = r.ArticleID
	rule.ArticleFamily = r.ArticleFamily
	rule.CustomerSegment = r.CustomerSegment
	rule.MinQuantity = r.MinQuantity
	rule.MaxQuantity = r.MaxQuantity
	rule.ValidFrom = r.ValidFrom
	rule.ValidUntil = r.ValidUntil
	rule.AdjustmentType = pricing.AdjustmentType(r.AdjustmentType)
	rule.AdjustmentValue = r.AdjustmentValue
	rule.PricePerUnit = r.PricePerUnit
	if r.PriceUnit != "" {
		unit, err := valueobject.ParseUnit(r.PriceUnit)
		if err != nil {
			return err
		}
		rule.PriceUnit = unit
	} else {
		rule.PriceUnit = valueobject.Unit{}
	}
	if r.Priority != nil {
		rule.Priority = *r.Priority
	}
	if r.Stackable != nil {
		rule.Stackable = *r.Stackable
	}
	return nil
}

// RuleResponse is the API shape of a price rule
type RuleResponse struct {
	ID              uuid.UUID        `json:"id"`
	Name            string           `json:"name"`
	Channel         string           `json:"channel,omitempty"`
	ArticleID       string           `json:"article_id,omitempty"`
	ArticleFamily   string           `json:"article_family,omitempty"`
	CustomerSegment string           `json:"customer_segment,omitempty"`
	MinQuantity     *decimal.Decimal `json:"min_quantity,omitempty"`
	MaxQuantity     *decimal.Decimal `json:"max_quantity,omitempty"`
	ValidFrom       *time.Time       `json:"valid_from,omitempty"`
	ValidUntil      *time.Time       `json:"valid_until,omitempty"`
	AdjustmentType  string           `json:"adjustment_type"`
	AdjustmentValue decimal.Decimal  `json:"adjustment_value"`
	PricePerUnit    decimal.Decimal  `json:"price_per_unit"`
	PriceUnit       string           `json:"price_unit,omitempty"`
	Priority        int              `json:"priority"`
	Stackable       bool             `json:"stackable"`
	IsActive        bool             `json:"is_active"`
	UsageCount      int64            `json:"usage_count"`
	Version         int              `json:"version"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ToRuleResponse converts a domain rule to its API shape
func ToRuleResponse(rule *pricing.PriceRule) *RuleResponse {
	return &RuleResponse{
		ID:              rule.ID,
		Name:            rule.Name,
		Channel:         rule.Channel,
		ArticleID:       rule.ArticleID,
		ArticleFamily:   rule.ArticleFamily,
		CustomerSegment: rule.CustomerSegment,
		MinQuantity:     rule.MinQuantity,
		MaxQuantity:     rule.MaxQuantity,
		ValidFrom:       rule.ValidFrom,
		ValidUntil:      rule.ValidUntil,
		AdjustmentType:  string(rule.AdjustmentType),
		AdjustmentValue: rule.AdjustmentValue,
		PricePerUnit:    rule.PricePerUnit,
		PriceUnit:       rule.PriceUnit.Code(),
		Priority:        rule.Priority,
		Stackable:       rule.Stackable,
		IsActive:        rule.IsActive,
		UsageCount:      rule.UsageCount,
		Version:         rule.GetVersion(),
		CreatedAt:       rule.CreatedAt,
		UpdatedAt:       rule.UpdatedAt,
	}
}

// ToRuleResponses converts a slice of rules
func ToRuleResponses(rules []pricing.PriceRule) []RuleResponse {
	out := make([]RuleResponse, 0, len(rules))
	for i := range rules {
		out = append(out, *ToRuleResponse(&rules[i]))
	}
	return out
}

// BulkToggleRequest activates or deactivates a batch of rules
type BulkToggleRequest struct {
	RuleIDs []uuid.UUID `json:"rule_ids" binding:"required,min=1,max=100"`
	Active  bool        `json:"active"`
}

// DuplicateRuleRequest names the copy of an existing rule
type DuplicateRuleRequest struct {
	Name string `json:"name" binding:"required"`
}
