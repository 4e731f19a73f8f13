package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SubscriptionRepository defines persistence for webhook subscriptions
type SubscriptionRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Subscription, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]Subscription, error)
	// FindActiveForEvent returns the active subscriptions of a tenant that
	// want the given event type.
	FindActiveForEvent(ctx context.Context, tenantID uuid.UUID, eventType string) ([]Subscription, error)
	Save(ctx context.Context, sub *Subscription) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// DeliveryRepository defines persistence for the delivery queue
type DeliveryRepository interface {
	// Save persists one or more deliveries
	Save(ctx context.Context, deliveries ...*Delivery) error
	// FindDue retrieves pending deliveries plus failed ones whose next
	// attempt is before the given time, up to limit.
	FindDue(ctx context.Context, before time.Time, limit int) ([]*Delivery, error)
	// MarkProcessing atomically claims the given deliveries and returns them
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*Delivery, error)
	// Update updates an existing delivery
	Update(ctx context.Context, delivery *Delivery) error
	// FindDead retrieves dead deliveries for a tenant with pagination
	FindDead(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]*Delivery, int64, error)
	// FindByID retrieves a single delivery
	FindByID(ctx context.Context, id uuid.UUID) (*Delivery, error)
	// DeleteOlderThan prunes finished deliveries older than the given time
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	// CountByStatus returns the number of deliveries per status
	CountByStatus(ctx context.Context) (map[DeliveryStatus]int64, error)
}
