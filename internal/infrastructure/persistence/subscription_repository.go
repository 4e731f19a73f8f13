package persistence

import (
	"context"
	"errors"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/erp/pricing/internal/domain/webhook"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSubscriptionRepository implements webhook.SubscriptionRepository using GORM
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// FindByIDForTenant finds a subscription by ID within a tenant
func (r *GormSubscriptionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*webhook.Subscription, error) {
	var sub webhook.Subscription
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// FindAllForTenant finds all subscriptions for a tenant
func (r *GormSubscriptionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]webhook.Subscription, error) {
	var subs []webhook.Subscription
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// FindActiveForEvent returns the active subscriptions of a tenant that want
// the given event type. The event type filter runs in memory because the
// list is stored as a JSON array and also supports the "*" wildcard.
func (r *GormSubscriptionRepository) FindActiveForEvent(ctx context.Context, tenantID uuid.UUID, eventType string) ([]webhook.Subscription, error) {
	var subs []webhook.Subscription
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Find(&subs).Error; err != nil {
		return nil, err
	}

	matched := subs[:0]
	for _, sub := range subs {
		if sub.SubscribesTo(eventType) {
			matched = append(matched, sub)
		}
	}
	return matched, nil
}

// Save creates or updates a subscription
func (r *GormSubscriptionRepository) Save(ctx context.Context, sub *webhook.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

// Delete deletes a subscription within a tenant
func (r *GormSubscriptionRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&webhook.Subscription{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormSubscriptionRepository implements SubscriptionRepository
var _ webhook.SubscriptionRepository = (*GormSubscriptionRepository)(nil)
