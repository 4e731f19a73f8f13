package persistence

import (
	"context"
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormComputationLogRepository implements pricing.ComputationLogRepository using GORM
type GormComputationLogRepository struct {
	db *gorm.DB
}

// NewGormComputationLogRepository creates a new GormComputationLogRepository
func NewGormComputationLogRepository(db *gorm.DB) *GormComputationLogRepository {
	return &GormComputationLogRepository{db: db}
}

// Save persists a batch of computation logs in one insert
func (r *GormComputationLogRepository) Save(ctx context.Context, logs ...*pricing.ComputationLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(logs).Error
}

// Summary aggregates lookup traffic for a tenant over a time range
func (r *GormComputationLogRepository) Summary(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*pricing.UsageSummary, error) {
	var row struct {
		Lookups       int64
		CacheHits     int64
		AvgDurationUs float64
		TotalDiscount decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&pricing.ComputationLog{}).
		Select(`COUNT(*) as lookups,
			COUNT(*) FILTER (WHERE cache_hit) as cache_hits,
			COALESCE(AVG(duration_micros), 0) as avg_duration_us,
			COALESCE(SUM(base_price - final_price), 0) as total_discount`).
		Where("tenant_id = ? AND computed_at >= ? AND computed_at < ?", tenantID, from, to).
		Find(&row).Error; err != nil {
		return nil, err
	}

	return &pricing.UsageSummary{
		Lookups:       row.Lookups,
		CacheHits:     row.CacheHits,
		AvgDurationUs: int64(row.AvgDurationUs),
		TotalDiscount: row.TotalDiscount,
	}, nil
}

// DeleteOlderThan prunes computation logs older than the given time
func (r *GormComputationLogRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("computed_at < ?", before).
		Delete(&pricing.ComputationLog{})
	return result.RowsAffected, result.Error
}

// Ensure GormComputationLogRepository implements ComputationLogRepository
var _ pricing.ComputationLogRepository = (*GormComputationLogRepository)(nil)
