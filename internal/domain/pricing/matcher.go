package pricing

import (
	"sort"

	"go.uber.org/zap"
)

// Matcher selects and orders the rules applicable to a pricing context.
type Matcher struct {
	logger *zap.Logger
}

// NewMatcher creates a new Matcher
func NewMatcher(logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{logger: logger}
}

// Match filters the candidate rules against the context and returns the
// matches in evaluation order: priority ascending, ties broken by createdAt
// ascending then ID ascending. The order is total, so replaying the same
// rule set against the same context always yields the same sequence.
func (m *Matcher) Match(pctx Context, candidates []PriceRule) []*PriceRule {
	matched := make([]*PriceRule, 0, len(candidates))
	for i := range candidates {
		if candidates[i].MatchesContext(pctx) {
			matched = append(matched, &candidates[i])
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})

	return m.resolveConflicts(pctx, matched)
}

// resolveConflicts drops rules that can never win: when two non-stackable
// rules share the same scope and priority, only the first in the total
// order is kept. The ambiguity is an admin configuration problem; it is
// logged and survived rather than surfaced to checkout.
func (m *Matcher) resolveConflicts(pctx Context, matched []*PriceRule) []*PriceRule {
	if len(matched) < 2 {
		return matched
	}

	result := matched[:0:0]
	for _, rule := range matched {
		conflict := false
		for _, kept := range result {
			if kept.Priority == rule.Priority && !kept.Stackable && !rule.Stackable && kept.SameScope(rule) {
				conflict = true
				m.logger.Warn("conflicting non-stackable price rules with identical scope and priority, keeping first",
					zap.String("tenant_id", pctx.TenantID.String()),
					zap.String("kept_rule_id", kept.ID.String()),
					zap.String("dropped_rule_id", rule.ID.String()),
					zap.Int("priority", rule.Priority),
				)
				break
			}
		}
		if !conflict {
			result = append(result, rule)
		}
	}
	return result
}
