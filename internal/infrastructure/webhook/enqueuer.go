package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/domain/shared"
	"github.com/erp/pricing/internal/domain/webhook"
	"go.uber.org/zap"
)

// envelope is the JSON body a subscriber receives. The event ID doubles as
// the idempotency key, repeated on redelivery.
type envelope struct {
	EventID    string      `json:"event_id"`
	EventType  string      `json:"event_type"`
	TenantID   string      `json:"tenant_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// Enqueuer turns rule change events into pending deliveries, one per
// matching subscription. The payload is snapshotted here, at event time.
type Enqueuer struct {
	subRepo      webhook.SubscriptionRepository
	deliveryRepo webhook.DeliveryRepository
	logger       *zap.Logger
}

// NewEnqueuer creates a new delivery enqueuer
func NewEnqueuer(subRepo webhook.SubscriptionRepository, deliveryRepo webhook.DeliveryRepository, logger *zap.Logger) *Enqueuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enqueuer{
		subRepo:      subRepo,
		deliveryRepo: deliveryRepo,
		logger:       logger,
	}
}

// EventTypes returns the rule mutation event types
func (e *Enqueuer) EventTypes() []string {
	return pricing.RuleChangeEventTypes()
}

// Handle creates one pending delivery per active subscription that wants
// the event type. A tenant with no subscriptions costs one indexed query.
func (e *Enqueuer) Handle(ctx context.Context, event shared.DomainEvent) error {
	subs, err := e.subRepo.FindActiveForEvent(ctx, event.TenantID(), event.EventType())
	if err != nil {
		return fmt.Errorf("failed to load webhook subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	payload, err := json.Marshal(envelope{
		EventID:    event.EventID().String(),
		EventType:  event.EventType(),
		TenantID:   event.TenantID().String(),
		OccurredAt: event.OccurredAt(),
		Data:       event,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	deliveries := make([]*webhook.Delivery, 0, len(subs))
	for i := range subs {
		deliveries = append(deliveries, webhook.NewDelivery(&subs[i], event, payload))
	}
	if err := e.deliveryRepo.Save(ctx, deliveries...); err != nil {
		return fmt.Errorf("failed to enqueue webhook deliveries: %w", err)
	}

	e.logger.Debug("webhook deliveries enqueued",
		zap.String("tenant_id", event.TenantID().String()),
		zap.String("event_type", event.EventType()),
		zap.Int("subscriptions", len(deliveries)))
	return nil
}
