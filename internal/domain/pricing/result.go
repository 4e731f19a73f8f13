package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AppliedStep records one rule application inside a computation, for
// breakdown display and auditing.
type AppliedStep struct {
	RuleID         uuid.UUID       `json:"rule_id"`
	RuleName       string          `json:"rule_name"`
	AdjustmentType AdjustmentType  `json:"adjustment_type"`
	PriceBefore    decimal.Decimal `json:"price_before"`
	PriceAfter     decimal.Decimal `json:"price_after"`
}

// ComputationResult is the immutable outcome of one price computation.
// It is cached by value and returned to every waiter of a coalesced
// computation.
type ComputationResult struct {
	BasePrice      decimal.Decimal `json:"base_price"`
	FinalPrice     decimal.Decimal `json:"final_price"`
	AppliedRuleIDs []uuid.UUID     `json:"applied_rule_ids"`
	Steps          []AppliedStep   `json:"steps"`
	UnitUsed       string          `json:"unit_used"`
	Warnings       []string        `json:"warnings,omitempty"`
	ComputedAt     time.Time       `json:"computed_at"`
}

// TotalDiscount returns the absolute discount granted against the base price
func (r *ComputationResult) TotalDiscount() decimal.Decimal {
	return r.BasePrice.Sub(r.FinalPrice)
}
