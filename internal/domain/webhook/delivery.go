package webhook

import (
	"time"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/google/uuid"
)

// DeliveryStatus represents the state of one webhook delivery
type DeliveryStatus string

const (
	DeliveryStatusPending    DeliveryStatus = "PENDING"
	DeliveryStatusProcessing DeliveryStatus = "PROCESSING"
	DeliveryStatusDelivered  DeliveryStatus = "DELIVERED"
	DeliveryStatusFailed     DeliveryStatus = "FAILED"
	DeliveryStatusDead       DeliveryStatus = "DEAD"
)

// Default retry configuration
const (
	DefaultMaxAttempts = 5
	DefaultBaseBackoff = time.Second
)

// Delivery is one pending or finished webhook delivery. The payload is
// snapshotted at enqueue time so a later rule mutation never rewrites what
// a subscriber receives, and the event ID doubles as the idempotency key
// the receiver can deduplicate on.
type Delivery struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID      `gorm:"type:uuid;not null;index"`
	SubscriptionID uuid.UUID      `gorm:"type:uuid;not null;index"`
	EventID        uuid.UUID      `gorm:"type:uuid;not null;index"`
	EventType      string         `gorm:"type:varchar(50);not null"`
	Payload        []byte         `gorm:"type:jsonb;not null"`
	Status         DeliveryStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Attempts       int            `gorm:"not null;default:0"`
	MaxAttempts    int            `gorm:"not null;default:5"`
	LastError      string         `gorm:"type:text"`
	NextAttemptAt  *time.Time     `gorm:"index"`
	DeliveredAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName returns the table name for GORM
func (Delivery) TableName() string {
	return "webhook_deliveries"
}

// NewDelivery enqueues an event for one subscription
func NewDelivery(sub *Subscription, event shared.DomainEvent, payload []byte) *Delivery {
	now := time.Now()
	maxAttempts := sub.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Delivery{
		ID:             uuid.New(),
		TenantID:       sub.TenantID,
		SubscriptionID: sub.ID,
		EventID:        event.EventID(),
		EventType:      event.EventType(),
		Payload:        payload,
		Status:         DeliveryStatusPending,
		Attempts:       0,
		MaxAttempts:    maxAttempts,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// MarkProcessing claims the delivery for an attempt
func (d *Delivery) MarkProcessing() error {
	if d.Status != DeliveryStatusPending && d.Status != DeliveryStatusFailed {
		return shared.NewDomainError("INVALID_STATE", "can only process pending or failed deliveries")
	}
	d.Status = DeliveryStatusProcessing
	d.UpdatedAt = time.Now()
	return nil
}

// MarkDelivered records a successful attempt
func (d *Delivery) MarkDelivered() {
	now := time.Now()
	d.Attempts++
	d.Status = DeliveryStatusDelivered
	d.DeliveredAt = &now
	d.NextAttemptAt = nil
	d.UpdatedAt = now
}

// MarkFailed records a failed attempt and schedules the next one with
// exponential backoff: 1s, 2s, 4s, 8s. After the final attempt the delivery
// goes dead and leaves the retry loop.
func (d *Delivery) MarkFailed(errMsg string) {
	d.Attempts++
	d.LastError = errMsg
	d.UpdatedAt = time.Now()

	if d.Attempts >= d.MaxAttempts {
		d.Status = DeliveryStatusDead
		d.NextAttemptAt = nil
		return
	}
	d.Status = DeliveryStatusFailed
	backoff := DefaultBaseBackoff * time.Duration(1<<uint(d.Attempts-1))
	next := time.Now().Add(backoff)
	d.NextAttemptAt = &next
}

// MarkDead removes the delivery from the retry loop immediately, without
// spending the remaining attempts.
func (d *Delivery) MarkDead(reason string) {
	d.LastError = reason
	d.Status = DeliveryStatusDead
	d.NextAttemptAt = nil
	d.UpdatedAt = time.Now()
}

// CanRetry returns true when another attempt is still allowed
func (d *Delivery) CanRetry() bool {
	return d.Status == DeliveryStatusFailed && d.Attempts < d.MaxAttempts
}

// IsDead returns true when the delivery exhausted its attempts
func (d *Delivery) IsDead() bool {
	return d.Status == DeliveryStatusDead
}

// ResetForRetry requeues a dead delivery after operator intervention
func (d *Delivery) ResetForRetry() error {
	if d.Status != DeliveryStatusDead {
		return shared.NewDomainError("INVALID_STATE", "can only requeue dead deliveries")
	}
	d.Status = DeliveryStatusPending
	d.Attempts = 0
	d.LastError = ""
	d.NextAttemptAt = nil
	d.UpdatedAt = time.Now()
	return nil
}
