package pricing

import (
	"testing"
	"time"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/erp/pricing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPriceRule_RaisesCreatedEvent(t *testing.T) {
	tenantID := uuid.New()

	rule, err := NewPriceRule(tenantID, "  Launch promo  ", AdjustmentPercentageDiscount, decimal.NewFromInt(15))
	require.NoError(t, err)

	assert.Equal(t, "Launch promo", rule.Name)
	assert.Equal(t, tenantID, rule.TenantID)
	assert.Equal(t, 100, rule.Priority)
	assert.True(t, rule.Stackable)
	assert.True(t, rule.IsActive)

	events := rule.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeRuleCreated, events[0].EventType())
	assert.Equal(t, tenantID, events[0].TenantID())
}

func TestNewPriceRule_Validation(t *testing.T) {
	tenantID := uuid.New()

	tests := []struct {
		name    string
		mutate  func(*PriceRule)
		ruleErr bool
	}{
		{name: "valid fixed price", mutate: func(r *PriceRule) {}},
		{name: "empty name", mutate: func(r *PriceRule) { r.Name = "" }, ruleErr: true},
		{name: "unknown adjustment type", mutate: func(r *PriceRule) { r.AdjustmentType = "RANDOM" }, ruleErr: true},
		{name: "percentage above 100", mutate: func(r *PriceRule) {
			r.AdjustmentType = AdjustmentPercentageDiscount
			r.AdjustmentValue = decimal.NewFromInt(150)
		}, ruleErr: true},
		{name: "negative percentage", mutate: func(r *PriceRule) {
			r.AdjustmentType = AdjustmentPercentageDiscount
			r.AdjustmentValue = decimal.NewFromInt(-1)
		}, ruleErr: true},
		{name: "unit based without unit", mutate: func(r *PriceRule) {
			r.AdjustmentType = AdjustmentUnitBased
		}, ruleErr: true},
		{name: "min above max", mutate: func(r *PriceRule) {
			min := decimal.NewFromInt(10)
			max := decimal.NewFromInt(5)
			r.MinQuantity = &min
			r.MaxQuantity = &max
		}, ruleErr: true},
		{name: "window start after end", mutate: func(r *PriceRule) {
			from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
			until := from.Add(-time.Hour)
			r.ValidFrom = &from
			r.ValidUntil = &until
		}, ruleErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &PriceRule{
				TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
				Name:                "Base",
				AdjustmentType:      AdjustmentFixedPrice,
				AdjustmentValue:     decimal.NewFromInt(50),
			}
			tt.mutate(rule)

			err := rule.Validate()
			if tt.ruleErr {
				require.Error(t, err)
				var domainErr *shared.DomainError
				require.ErrorAs(t, err, &domainErr)
				assert.Equal(t, "INVALID_RULE_CONFIG", domainErr.Code)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPriceRule_UpdateRestoresSnapshotOnInvalidConfig(t *testing.T) {
	tenantID := uuid.New()
	rule, err := NewPriceRule(tenantID, "Original", AdjustmentFixedPrice, decimal.NewFromInt(40))
	require.NoError(t, err)
	rule.ClearDomainEvents()

	bad := *rule
	bad.Name = ""
	err = rule.Update(bad)

	require.Error(t, err)
	assert.Equal(t, "Original", rule.Name)
	assert.Empty(t, rule.GetDomainEvents())
	assert.Equal(t, 1, rule.GetVersion())
}

func TestPriceRule_UpdateRaisesUpdatedEvent(t *testing.T) {
	tenantID := uuid.New()
	rule, err := NewPriceRule(tenantID, "Original", AdjustmentFixedPrice, decimal.NewFromInt(40))
	require.NoError(t, err)
	rule.ClearDomainEvents()

	updated := *rule
	updated.Name = "Renamed"
	updated.Priority = 5
	require.NoError(t, rule.Update(updated))

	assert.Equal(t, "Renamed", rule.Name)
	assert.Equal(t, 5, rule.Priority)
	assert.Equal(t, 2, rule.GetVersion())

	events := rule.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeRuleUpdated, events[0].EventType())
}

func TestPriceRule_Toggle(t *testing.T) {
	rule, err := NewPriceRule(uuid.New(), "Switchable", AdjustmentFixedDiscount, decimal.NewFromInt(2))
	require.NoError(t, err)
	rule.ClearDomainEvents()

	rule.Toggle()
	assert.False(t, rule.IsActive)
	rule.Toggle()
	assert.True(t, rule.IsActive)

	events := rule.GetDomainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, EventTypeRuleToggled, events[0].EventType())
	assert.Equal(t, EventTypeRuleToggled, events[1].EventType())
}

func TestPriceRule_DuplicateStartsInactiveWithFreshIdentity(t *testing.T) {
	tenantID := uuid.New()
	rule, err := NewPriceRule(tenantID, "Original", AdjustmentUnitBased, decimal.Zero)
	require.NoError(t, err)
	rule.PriceUnit = valueobject.MustParseUnit("KG")
	rule.PricePerUnit = decimal.NewFromInt(3)
	rule.UsageCount = 42
	rule.ClearDomainEvents()

	copied, err := rule.Duplicate("Copy of Original")
	require.NoError(t, err)

	assert.NotEqual(t, rule.ID, copied.ID)
	assert.Equal(t, tenantID, copied.TenantID)
	assert.Equal(t, "Copy of Original", copied.Name)
	assert.False(t, copied.IsActive)
	assert.Zero(t, copied.UsageCount)
	assert.True(t, copied.PricePerUnit.Equal(rule.PricePerUnit))

	events := copied.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeRuleCreated, events[0].EventType())
	assert.Empty(t, rule.GetDomainEvents())
}

func TestRuleScope_Matches(t *testing.T) {
	tests := []struct {
		name  string
		scope RuleScope
		other RuleScope
		want  bool
	}{
		{name: "empty scope matches anything", scope: RuleScope{}, other: RuleScope{Channel: "web", ArticleID: "A"}, want: true},
		{name: "channel case insensitive", scope: RuleScope{Channel: "WEB"}, other: RuleScope{Channel: "web"}, want: true},
		{name: "channel mismatch", scope: RuleScope{Channel: "store"}, other: RuleScope{Channel: "web"}, want: false},
		{name: "article exact match", scope: RuleScope{ArticleID: "A-1"}, other: RuleScope{ArticleID: "A-1"}, want: true},
		{name: "article mismatch", scope: RuleScope{ArticleID: "A-1"}, other: RuleScope{ArticleID: "A-2"}, want: false},
		{name: "family prefix", scope: RuleScope{ArticleFamily: "STEEL"}, other: RuleScope{ArticleFamily: "steel-bars"}, want: true},
		{name: "family prefix not suffix", scope: RuleScope{ArticleFamily: "BARS"}, other: RuleScope{ArticleFamily: "STEEL-BARS"}, want: false},
		{name: "segment case insensitive", scope: RuleScope{CustomerSegment: "Wholesale"}, other: RuleScope{CustomerSegment: "WHOLESALE"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scope.Matches(tt.other))
		})
	}
}

func TestPriceRule_SameScope(t *testing.T) {
	tenantID := uuid.New()
	min := decimal.NewFromInt(10)
	sameMin := decimal.NewFromInt(10)
	otherMin := decimal.NewFromInt(20)

	a, err := NewPriceRule(tenantID, "A", AdjustmentFixedPrice, decimal.NewFromInt(9))
	require.NoError(t, err)
	a.ArticleFamily = "STEEL"
	a.MinQuantity = &min

	b, err := NewPriceRule(tenantID, "B", AdjustmentFixedPrice, decimal.NewFromInt(8))
	require.NoError(t, err)
	b.ArticleFamily = "STEEL"
	b.MinQuantity = &sameMin

	assert.True(t, a.SameScope(b))

	b.MinQuantity = &otherMin
	assert.False(t, a.SameScope(b))

	b.MinQuantity = nil
	assert.False(t, a.SameScope(b))
}
