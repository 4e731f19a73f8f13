package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ComputationLog is one row of pricing analytics. Rows are written
// asynchronously after a lookup returns; losing one under pressure is
// acceptable, slowing a lookup down is not.
type ComputationLog struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ArticleID       string          `gorm:"type:varchar(100);not null;index"`
	ArticleFamily   string          `gorm:"type:varchar(100)"`
	Channel         string          `gorm:"type:varchar(50)"`
	CustomerSegment string          `gorm:"type:varchar(100)"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4)"`
	UnitUsed        string          `gorm:"type:varchar(10)"`
	BasePrice       decimal.Decimal `gorm:"type:decimal(18,4)"`
	FinalPrice      decimal.Decimal `gorm:"type:decimal(18,4)"`
	AppliedRuleIDs  []byte          `gorm:"type:jsonb"`
	RuleCount       int             `gorm:"not null;default:0"`
	WarningCount    int             `gorm:"not null;default:0"`
	CacheHit        bool            `gorm:"not null;default:false"`
	DurationMicros  int64           `gorm:"not null;default:0"`
	Fingerprint     string          `gorm:"type:varchar(64);index"`
	ComputedAt      time.Time       `gorm:"index"`
	CreatedAt       time.Time
}

// TableName returns the table name for GORM
func (ComputationLog) TableName() string {
	return "price_computation_logs"
}

// RuleUsage aggregates how often a rule has been applied
type RuleUsage struct {
	RuleID       uuid.UUID       `json:"rule_id"`
	RuleName     string          `json:"rule_name"`
	TimesApplied int64           `json:"times_applied"`
	TotalGranted decimal.Decimal `json:"total_granted"`
}

// UsageSummary aggregates lookup traffic over a time range
type UsageSummary struct {
	Lookups       int64           `json:"lookups"`
	CacheHits     int64           `json:"cache_hits"`
	AvgDurationUs int64           `json:"avg_duration_us"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
}

// ComputationLogRepository defines persistence for pricing analytics
type ComputationLogRepository interface {
	Save(ctx context.Context, logs ...*ComputationLog) error
	Summary(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*UsageSummary, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}
