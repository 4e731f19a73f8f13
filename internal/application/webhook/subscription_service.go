package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/erp/pricing/internal/domain/webhook"
	"github.com/erp/pricing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TestEventType is the synthetic event type used for connectivity tests
const TestEventType = "WEBHOOK_TEST"

// Sender performs one delivery attempt against a subscriber endpoint
type Sender interface {
	Send(ctx context.Context, sub *webhook.Subscription, delivery *webhook.Delivery) error
}

// SubscriptionService manages webhook subscriptions and their dead letters
type SubscriptionService struct {
	subRepo      webhook.SubscriptionRepository
	deliveryRepo webhook.DeliveryRepository
	sender       Sender
	logger       *zap.Logger
}

// NewSubscriptionService creates a new subscription service. The sender is
// only needed for test deliveries and may be nil.
func NewSubscriptionService(
	subRepo webhook.SubscriptionRepository,
	deliveryRepo webhook.DeliveryRepository,
	sender Sender,
	logger *zap.Logger,
) *SubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{
		subRepo:      subRepo,
		deliveryRepo: deliveryRepo,
		sender:       sender,
		logger:       logger,
	}
}

// Create registers a new subscription. The response is the only place the
// generated secret appears in clear text.
func (s *SubscriptionService) Create(ctx context.Context, tenantID uuid.UUID, req SubscriptionRequest) (*SubscriptionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "webhook_subscription", "create")
	defer span.End()

	sub, err := webhook.NewSubscription(tenantID, req.Name, req.URL, req.EventTypes)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.subRepo.Save(ctx, sub); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("webhook subscription created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("subscription_id", sub.ID.String()),
		zap.String("url", sub.URL))
	return ToSubscriptionResponseWithSecret(sub), nil
}

// Get returns a single subscription
func (s *SubscriptionService) Get(ctx context.Context, tenantID, subID uuid.UUID) (*SubscriptionResponse, error) {
	sub, err := s.subRepo.FindByIDForTenant(ctx, tenantID, subID)
	if err != nil {
		return nil, err
	}
	return ToSubscriptionResponse(sub), nil
}

// List returns the tenant's subscriptions
func (s *SubscriptionService) List(ctx context.Context, tenantID uuid.UUID) ([]SubscriptionResponse, error) {
	subs, err := s.subRepo.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]SubscriptionResponse, 0, len(subs))
	for i := range subs {
		out = append(out, *ToSubscriptionResponse(&subs[i]))
	}
	return out, nil
}

// Update replaces a subscription's endpoint and event selection
func (s *SubscriptionService) Update(ctx context.Context, tenantID, subID uuid.UUID, req SubscriptionRequest) (*SubscriptionResponse, error) {
	sub, err := s.subRepo.FindByIDForTenant(ctx, tenantID, subID)
	if err != nil {
		return nil, err
	}
	if err := sub.Update(req.Name, req.URL, req.EventTypes); err != nil {
		return nil, err
	}
	if err := s.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}
	return ToSubscriptionResponse(sub), nil
}

// Delete removes a subscription
func (s *SubscriptionService) Delete(ctx context.Context, tenantID, subID uuid.UUID) error {
	if _, err := s.subRepo.FindByIDForTenant(ctx, tenantID, subID); err != nil {
		return err
	}
	return s.subRepo.Delete(ctx, tenantID, subID)
}

// Toggle flips a subscription's active flag
func (s *SubscriptionService) Toggle(ctx context.Context, tenantID, subID uuid.UUID) (*SubscriptionResponse, error) {
	sub, err := s.subRepo.FindByIDForTenant(ctx, tenantID, subID)
	if err != nil {
		return nil, err
	}
	sub.Toggle()
	if err := s.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}
	return ToSubscriptionResponse(sub), nil
}

// RotateSecret replaces the signing secret and returns it once
func (s *SubscriptionService) RotateSecret(ctx context.Context, tenantID, subID uuid.UUID) (*SubscriptionResponse, error) {
	sub, err := s.subRepo.FindByIDForTenant(ctx, tenantID, subID)
	if err != nil {
		return nil, err
	}
	if err := sub.RotateSecret(); err != nil {
		return nil, err
	}
	if err := s.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("webhook signing secret rotated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("subscription_id", sub.ID.String()))
	return ToSubscriptionResponseWithSecret(sub), nil
}

// SendTest posts a synthetic event to the subscription endpoint so an
// operator can verify connectivity and signature handling before real rule
// events flow. The attempt is not persisted and does not count against the
// retry budget; a failed send is reported in the response, not as an error.
func (s *SubscriptionService) SendTest(ctx context.Context, tenantID, subID uuid.UUID) (*TestDeliveryResponse, error) {
	sub, err := s.subRepo.FindByIDForTenant(ctx, tenantID, subID)
	if err != nil {
		return nil, err
	}
	if s.sender == nil {
		return nil, shared.NewDomainError("INVALID_STATE", "Webhook delivery is not configured")
	}

	event := shared.NewBaseDomainEvent(TestEventType, "webhook_subscription", sub.ID, tenantID)
	payload, err := json.Marshal(map[string]interface{}{
		"event_id":    event.EventID().String(),
		"event_type":  event.EventType(),
		"tenant_id":   tenantID.String(),
		"occurred_at": event.OccurredAt(),
		"data":        map[string]string{"subscription_id": sub.ID.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal test payload: %w", err)
	}

	delivery := webhook.NewDelivery(sub, &event, payload)
	resp := &TestDeliveryResponse{
		EventID:     delivery.EventID,
		URL:         sub.URL,
		AttemptedAt: time.Now(),
	}
	if err := s.sender.Send(ctx, sub, delivery); err != nil {
		s.logger.Warn("webhook test delivery failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("subscription_id", sub.ID.String()),
			zap.Error(err))
		resp.Error = err.Error()
		return resp, nil
	}
	resp.Delivered = true
	return resp, nil
}

// ListDeadDeliveries pages through deliveries that exhausted their retries
func (s *SubscriptionService) ListDeadDeliveries(ctx context.Context, tenantID uuid.UUID, page, pageSize int) (*shared.Paginated[DeliveryResponse], error) {
	deliveries, total, err := s.deliveryRepo.FindDead(ctx, tenantID, page, pageSize)
	if err != nil {
		return nil, err
	}
	items := make([]DeliveryResponse, 0, len(deliveries))
	for _, d := range deliveries {
		items = append(items, *ToDeliveryResponse(d))
	}
	result := shared.NewPaginated(items, total, page, pageSize)
	return &result, nil
}

// RequeueDelivery puts a dead delivery back in the queue
func (s *SubscriptionService) RequeueDelivery(ctx context.Context, tenantID, deliveryID uuid.UUID) (*DeliveryResponse, error) {
	delivery, err := s.deliveryRepo.FindByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if delivery.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	if err := delivery.ResetForRetry(); err != nil {
		return nil, err
	}
	if err := s.deliveryRepo.Update(ctx, delivery); err != nil {
		return nil, err
	}

	s.logger.Info("dead webhook delivery requeued",
		zap.String("tenant_id", tenantID.String()),
		zap.String("delivery_id", deliveryID.String()))
	return ToDeliveryResponse(delivery), nil
}
