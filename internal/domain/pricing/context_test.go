package pricing

import (
	"strings"
	"testing"
	"time"

	"github.com/erp/pricing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_FingerprintStable(t *testing.T) {
	tenantID := uuid.New()
	pctx := Context{
		TenantID:        tenantID,
		ArticleID:       "ART-7",
		ArticleFamily:   "steel",
		Channel:         "Web",
		CustomerSegment: "Wholesale",
		Quantity:        decimal.NewFromInt(3),
		BaseUnit:        valueobject.MustParseUnit("KG"),
		Timestamp:       time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	first := pctx.Fingerprint()
	assert.Len(t, first, 64)
	assert.Equal(t, first, pctx.Fingerprint())

	// The cache TTL bounds time sensitivity for clock-derived timestamps,
	// so they never feed the fingerprint.
	later := pctx
	later.Timestamp = later.Timestamp.Add(45 * time.Second)
	assert.Equal(t, first, later.Fingerprint())

	// Channel, family and segment are case normalized.
	shouted := pctx
	shouted.Channel = "WEB"
	shouted.ArticleFamily = "STEEL"
	shouted.CustomerSegment = "wholesale"
	assert.Equal(t, first, shouted.Fingerprint())
}

func TestContext_FingerprintChangesWithCommercialFields(t *testing.T) {
	base := Context{
		TenantID:  uuid.New(),
		ArticleID: "ART-7",
		Channel:   "web",
		Quantity:  decimal.NewFromInt(3),
		BaseUnit:  valueobject.MustParseUnit("KG"),
	}

	variants := []func(Context) Context{
		func(c Context) Context { c.ArticleID = "ART-8"; return c },
		func(c Context) Context { c.Channel = "store"; return c },
		func(c Context) Context { c.CustomerSegment = "vip"; return c },
		func(c Context) Context { c.Quantity = decimal.NewFromInt(4); return c },
		func(c Context) Context { c.BaseUnit = valueobject.MustParseUnit("G"); return c },
	}
	for _, change := range variants {
		assert.NotEqual(t, base.Fingerprint(), change(base).Fingerprint())
	}
}

func TestContext_CacheKeySegregatesTenants(t *testing.T) {
	a := Context{TenantID: uuid.New(), ArticleID: "ART-7", Quantity: decimal.NewFromInt(1), BaseUnit: valueobject.MustParseUnit("PCS")}
	b := a
	b.TenantID = uuid.New()

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.CacheKey(), b.CacheKey())
	assert.True(t, strings.HasPrefix(a.CacheKey(), a.TenantID.String()+":"))
	assert.Contains(t, a.CacheKey(), ":ART-7:")
}

func TestContext_CacheKeyHonorsPinnedTimestamp(t *testing.T) {
	tenantID := uuid.New()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	launch := now.AddDate(0, 1, 0)

	current := Context{
		TenantID:  tenantID,
		ArticleID: "ART-7",
		Quantity:  decimal.NewFromInt(1),
		BaseUnit:  valueobject.MustParseUnit("PCS"),
		Timestamp: now,
	}
	dated := current
	dated.Timestamp = launch
	dated.PinnedTimestamp = true

	// A launch-window rule matches only the dated lookup, so the two must
	// not share a cache entry.
	rule, err := NewPriceRule(tenantID, "Launch promo", AdjustmentPercentageDiscount, decimal.NewFromInt(10))
	require.NoError(t, err)
	rule.ValidFrom = &launch
	assert.False(t, rule.MatchesContext(current))
	assert.True(t, rule.MatchesContext(dated))
	assert.NotEqual(t, current.CacheKey(), dated.CacheKey())

	// Two lookups pinned to the same instant do share one entry
	repeat := dated
	assert.Equal(t, dated.CacheKey(), repeat.CacheKey())
}

func TestContext_ScopeMirror(t *testing.T) {
	pctx := Context{
		Channel:         "web",
		ArticleID:       "ART-7",
		ArticleFamily:   "STEEL",
		CustomerSegment: "vip",
	}

	scope := pctx.Scope()
	assert.Equal(t, "web", scope.Channel)
	assert.Equal(t, "ART-7", scope.ArticleID)
	assert.Equal(t, "STEEL", scope.ArticleFamily)
	assert.Equal(t, "vip", scope.CustomerSegment)
}
