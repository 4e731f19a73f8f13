package webhook

import (
	"time"

	"github.com/erp/pricing/internal/domain/webhook"
	"github.com/google/uuid"
)

// SubscriptionRequest creates or updates a webhook subscription
type SubscriptionRequest struct {
	Name       string   `json:"name" binding:"required"`
	URL        string   `json:"url" binding:"required,url"`
	EventTypes []string `json:"event_types" binding:"required,min=1"`
}

// SubscriptionResponse is the API shape of a subscription. The secret is
// returned only on creation and rotation, never on reads.
type SubscriptionResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	EventTypes  []string  `json:"event_types"`
	Secret      string    `json:"secret,omitempty"`
	IsActive    bool      `json:"is_active"`
	MaxAttempts int       `json:"max_attempts"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToSubscriptionResponse converts a subscription without exposing its secret
func ToSubscriptionResponse(sub *webhook.Subscription) *SubscriptionResponse {
	return &SubscriptionResponse{
		ID:          sub.ID,
		Name:        sub.Name,
		URL:         sub.URL,
		EventTypes:  sub.EventTypes,
		IsActive:    sub.IsActive,
		MaxAttempts: sub.MaxAttempts,
		CreatedAt:   sub.CreatedAt,
		UpdatedAt:   sub.UpdatedAt,
	}
}

// ToSubscriptionResponseWithSecret includes the signing secret
func ToSubscriptionResponseWithSecret(sub *webhook.Subscription) *SubscriptionResponse {
	resp := ToSubscriptionResponse(sub)
	resp.Secret = sub.Secret
	return resp
}

// TestDeliveryResponse reports the outcome of a connectivity test
type TestDeliveryResponse struct {
	EventID     uuid.UUID `json:"event_id"`
	URL         string    `json:"url"`
	Delivered   bool      `json:"delivered"`
	Error       string    `json:"error,omitempty"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// DeliveryResponse is the API shape of a delivery attempt record
type DeliveryResponse struct {
	ID             uuid.UUID  `json:"id"`
	SubscriptionID uuid.UUID  `json:"subscription_id"`
	EventID        uuid.UUID  `json:"event_id"`
	EventType      string     `json:"event_type"`
	Status         string     `json:"status"`
	Attempts       int        `json:"attempts"`
	MaxAttempts    int        `json:"max_attempts"`
	LastError      string     `json:"last_error,omitempty"`
	NextAttemptAt  *time.Time `json:"next_attempt_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ToDeliveryResponse converts a delivery to its API shape
func ToDeliveryResponse(d *webhook.Delivery) *DeliveryResponse {
	return &DeliveryResponse{
		ID:             d.ID,
		SubscriptionID: d.SubscriptionID,
		EventID:        d.EventID,
		EventType:      d.EventType,
		Status:         string(d.Status),
		Attempts:       d.Attempts,
		MaxAttempts:    d.MaxAttempts,
		LastError:      d.LastError,
		NextAttemptAt:  d.NextAttemptAt,
		DeliveredAt:    d.DeliveredAt,
		CreatedAt:      d.CreatedAt,
	}
}
