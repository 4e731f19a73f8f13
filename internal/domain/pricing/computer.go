package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// finalPrecision is the decimal precision of a finished price. Intermediate
// values keep full precision so stacked rules do not compound rounding error.
const finalPrecision = 2

// Computer folds an ordered rule set into a final price.
type Computer struct {
	logger *zap.Logger
}

// NewComputer creates a new Computer
func NewComputer(logger *zap.Logger) *Computer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Computer{logger: logger}
}

// Compute applies the ordered rules to the base article price. Rules apply
// in sequence; a non-stackable rule applies and then stops evaluation. A
// rule whose unit data is dimensionally incompatible with the article is
// skipped with a warning: one misconfigured rule must not break checkout
// pricing. Rounding happens once, on the final value.
func (c *Computer) Compute(baseArticlePrice decimal.Decimal, pctx Context, orderedRules []*PriceRule) *ComputationResult {
	current := baseArticlePrice
	result := &ComputationResult{
		BasePrice:      baseArticlePrice,
		AppliedRuleIDs: make([]uuid.UUID, 0, len(orderedRules)),
		Steps:          make([]AppliedStep, 0, len(orderedRules)),
		UnitUsed:       pctx.BaseUnit.Code(),
		ComputedAt:     time.Now(),
	}

	for _, rule := range orderedRules {
		next, err := c.apply(rule, current, pctx)
		if err != nil {
			if errors.Is(err, shared.ErrIncompatibleUnits) {
				warning := fmt.Sprintf("rule %s skipped: price unit %s is incompatible with article unit %s",
					rule.ID, rule.PriceUnit.Code(), pctx.BaseUnit.Code())
				result.Warnings = append(result.Warnings, warning)
				c.logger.Warn("skipping price rule with incompatible unit",
					zap.String("tenant_id", pctx.TenantID.String()),
					zap.String("rule_id", rule.ID.String()),
					zap.String("rule_unit", rule.PriceUnit.Code()),
					zap.String("article_unit", pctx.BaseUnit.Code()),
				)
				continue
			}
			// Any other rule failure is a configuration problem too; skip it
			// rather than failing the lookup.
			result.Warnings = append(result.Warnings, fmt.Sprintf("rule %s skipped: %v", rule.ID, err))
			c.logger.Warn("skipping misconfigured price rule",
				zap.String("rule_id", rule.ID.String()),
				zap.Error(err),
			)
			continue
		}

		result.Steps = append(result.Steps, AppliedStep{
			RuleID:         rule.ID,
			RuleName:       rule.Name,
			AdjustmentType: rule.AdjustmentType,
			PriceBefore:    current,
			PriceAfter:     next,
		})
		result.AppliedRuleIDs = append(result.AppliedRuleIDs, rule.ID)
		current = next

		if !rule.Stackable {
			break
		}
	}

	if current.IsNegative() {
		current = decimal.Zero
	}
	result.FinalPrice = current.Round(finalPrecision)
	return result
}

// apply evaluates a single rule against the running price
func (c *Computer) apply(rule *PriceRule, current decimal.Decimal, pctx Context) (decimal.Decimal, error) {
	switch rule.AdjustmentType {
	case AdjustmentFixedPrice:
		return rule.AdjustmentValue, nil

	case AdjustmentPercentageDiscount:
		factor := decimal.NewFromInt(1).Sub(rule.AdjustmentValue.Div(decimal.NewFromInt(100)))
		return current.Mul(factor), nil

	case AdjustmentFixedDiscount:
		next := current.Sub(rule.AdjustmentValue)
		// Price never goes negative, even mid-chain.
		if next.IsNegative() {
			return decimal.Zero, nil
		}
		return next, nil

	case AdjustmentUnitBased:
		if pctx.BaseUnit.IsZero() {
			return decimal.Zero, shared.ErrIncompatibleUnits
		}
		perBaseUnit, err := rule.PriceUnit.ConvertPrice(rule.PricePerUnit, pctx.BaseUnit)
		if err != nil {
			return decimal.Zero, err
		}
		return perBaseUnit.Mul(pctx.Quantity), nil

	default:
		return decimal.Zero, shared.NewDomainError("INVALID_RULE_CONFIG",
			fmt.Sprintf("unknown adjustment type: %s", rule.AdjustmentType))
	}
}
