package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/erp/pricing/internal/domain/webhook"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDeliveryRepository implements webhook.DeliveryRepository using GORM
type GormDeliveryRepository struct {
	db *gorm.DB
}

// NewGormDeliveryRepository creates a new GormDeliveryRepository
func NewGormDeliveryRepository(db *gorm.DB) *GormDeliveryRepository {
	return &GormDeliveryRepository{db: db}
}

// Save persists one or more deliveries
func (r *GormDeliveryRepository) Save(ctx context.Context, deliveries ...*webhook.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(deliveries).Error
}

// staleClaimTimeout is how long a delivery may sit in PROCESSING before the
// claiming dispatcher is presumed dead and the delivery is re-driven.
const staleClaimTimeout = 5 * time.Minute

// FindDue retrieves pending deliveries, failed ones whose next attempt is
// before the given time, and stale PROCESSING claims abandoned by a crashed
// dispatcher, oldest first
func (r *GormDeliveryRepository) FindDue(ctx context.Context, before time.Time, limit int) ([]*webhook.Delivery, error) {
	var deliveries []*webhook.Delivery
	if err := r.db.WithContext(ctx).
		Where("status = ?", webhook.DeliveryStatusPending).
		Or("status = ? AND next_attempt_at <= ?", webhook.DeliveryStatusFailed, before).
		Or("status = ? AND updated_at <= ?", webhook.DeliveryStatusProcessing, before.Add(-staleClaimTimeout)).
		Order("created_at ASC").
		Limit(limit).
		Find(&deliveries).Error; err != nil {
		return nil, err
	}
	return deliveries, nil
}

// MarkProcessing atomically claims the given deliveries and returns the ones
// actually claimed. A delivery freshly claimed by a concurrent dispatcher is
// skipped, so two pollers never attempt the same delivery; a stale claim is
// taken over because its dispatcher is presumed dead.
func (r *GormDeliveryRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*webhook.Delivery, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	result := r.db.WithContext(ctx).
		Model(&webhook.Delivery{}).
		Where("id IN ? AND (status IN ? OR (status = ? AND updated_at <= ?))", ids,
			[]webhook.DeliveryStatus{
				webhook.DeliveryStatusPending,
				webhook.DeliveryStatusFailed,
			},
			webhook.DeliveryStatusProcessing, time.Now().Add(-staleClaimTimeout)).
		Updates(map[string]interface{}{
			"status":     webhook.DeliveryStatusProcessing,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}

	var claimed []*webhook.Delivery
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND status = ?", ids, webhook.DeliveryStatusProcessing).
		Find(&claimed).Error; err != nil {
		return nil, err
	}
	return claimed, nil
}

// Update updates an existing delivery
func (r *GormDeliveryRepository) Update(ctx context.Context, delivery *webhook.Delivery) error {
	return r.db.WithContext(ctx).Save(delivery).Error
}

// FindDead retrieves dead deliveries for a tenant with pagination
func (r *GormDeliveryRepository) FindDead(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]*webhook.Delivery, int64, error) {
	base := r.db.WithContext(ctx).
		Model(&webhook.Delivery{}).
		Where("tenant_id = ? AND status = ?", tenantID, webhook.DeliveryStatusDead)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base.Session(&gorm.Session{}).Order("updated_at DESC")
	if page > 0 && pageSize > 0 {
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	var deliveries []*webhook.Delivery
	if err := query.Find(&deliveries).Error; err != nil {
		return nil, 0, err
	}
	return deliveries, total, nil
}

// FindByID retrieves a single delivery
func (r *GormDeliveryRepository) FindByID(ctx context.Context, id uuid.UUID) (*webhook.Delivery, error) {
	var delivery webhook.Delivery
	if err := r.db.WithContext(ctx).First(&delivery, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &delivery, nil
}

// DeleteOlderThan prunes delivered and dead deliveries older than the given time
func (r *GormDeliveryRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", []webhook.DeliveryStatus{
			webhook.DeliveryStatusDelivered,
			webhook.DeliveryStatusDead,
		}, before).
		Delete(&webhook.Delivery{})
	return result.RowsAffected, result.Error
}

// CountByStatus returns the number of deliveries per status
func (r *GormDeliveryRepository) CountByStatus(ctx context.Context) (map[webhook.DeliveryStatus]int64, error) {
	var rows []struct {
		Status webhook.DeliveryStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&webhook.Delivery{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[webhook.DeliveryStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Ensure GormDeliveryRepository implements DeliveryRepository
var _ webhook.DeliveryRepository = (*GormDeliveryRepository)(nil)
