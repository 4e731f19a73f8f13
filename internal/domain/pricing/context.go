package pricing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/erp/pricing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Context is the ephemeral commercial context of one price lookup.
// It is constructed per request and never persisted.
type Context struct {
	TenantID        uuid.UUID
	ArticleID       string
	ArticleFamily   string
	Channel         string
	CustomerSegment string
	Quantity        decimal.Decimal
	BaseUnit        valueobject.Unit
	Timestamp       time.Time
	// PinnedTimestamp marks a timestamp the caller supplied explicitly, as
	// opposed to one derived from the clock at request time.
	PinnedTimestamp bool
}

// Scope returns the context's position in rule-scope space, used to decide
// which cached entries a rule mutation invalidates.
func (c Context) Scope() RuleScope {
	return RuleScope{
		Channel:         c.Channel,
		ArticleID:       c.ArticleID,
		ArticleFamily:   c.ArticleFamily,
		CustomerSegment: c.CustomerSegment,
	}
}

// Fingerprint returns a deterministic hash of the commercial fields.
// A clock-derived timestamp is excluded, so identical contexts within the
// cache TTL share one entry and time-window drift is bounded by the TTL.
// A pinned timestamp feeds the hash: a quote dated into a different rule
// validity window must never reuse the entry computed for today. The field
// order is fixed in code, which makes the hash stable across processes and
// releases.
func (c Context) Fingerprint() string {
	var b strings.Builder
	b.WriteString("article=")
	b.WriteString(c.ArticleID)
	b.WriteString("|family=")
	b.WriteString(strings.ToUpper(c.ArticleFamily))
	b.WriteString("|channel=")
	b.WriteString(strings.ToLower(c.Channel))
	b.WriteString("|segment=")
	b.WriteString(strings.ToLower(c.CustomerSegment))
	b.WriteString("|qty=")
	b.WriteString(c.Quantity.String())
	b.WriteString("|unit=")
	b.WriteString(c.BaseUnit.Code())
	if c.PinnedTimestamp {
		b.WriteString("|at=")
		b.WriteString(c.Timestamp.UTC().Format(time.RFC3339Nano))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// CacheKey builds the cache key for this context. The tenant ID is a
// distinct key segment rather than an input to the fingerprint, so entries
// of different tenants can never collide, hash collision or not.
func (c Context) CacheKey() string {
	return fmt.Sprintf("%s:%s:%s", c.TenantID, c.ArticleID, c.Fingerprint())
}
