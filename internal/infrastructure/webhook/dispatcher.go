package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/erp/pricing/internal/domain/webhook"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DispatcherConfig holds configuration for the delivery dispatcher
type DispatcherConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultDispatcherConfig returns default configuration
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		BatchSize:        100,
		PollInterval:     2 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// Dispatcher drains the delivery queue in the background. Due deliveries
// are claimed, attempted once, and either finished or rescheduled with
// backoff by the delivery itself.
type Dispatcher struct {
	deliveryRepo webhook.DeliveryRepository
	subRepo      webhook.SubscriptionRepository
	sender       Sender
	config       DispatcherConfig
	logger       *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a new delivery dispatcher
func NewDispatcher(
	deliveryRepo webhook.DeliveryRepository,
	subRepo webhook.SubscriptionRepository,
	sender Sender,
	config DispatcherConfig,
	logger *zap.Logger,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		deliveryRepo: deliveryRepo,
		subRepo:      subRepo,
		sender:       sender,
		config:       config,
		logger:       logger,
	}
}

// Start starts the background dispatch loop
func (d *Dispatcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.dispatchLoop(ctx)

	if d.config.CleanupEnabled {
		d.wg.Add(1)
		go d.cleanupLoop(ctx)
	}

	d.logger.Info("webhook dispatcher started",
		zap.Int("batch_size", d.config.BatchSize),
		zap.Duration("poll_interval", d.config.PollInterval))
	return nil
}

// Stop gracefully stops the dispatcher
func (d *Dispatcher) Stop(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("webhook dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) dispatchLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.dispatchBatch(ctx)
		}
	}
}

// dispatchBatch claims and attempts one batch of due deliveries
func (d *Dispatcher) dispatchBatch(ctx context.Context) {
	due, err := d.deliveryRepo.FindDue(ctx, time.Now(), d.config.BatchSize)
	if err != nil {
		d.logger.Error("failed to find due webhook deliveries", zap.Error(err))
		return
	}
	if len(due) == 0 {
		return
	}

	ids := make([]uuid.UUID, len(due))
	for i, delivery := range due {
		ids[i] = delivery.ID
	}
	claimed, err := d.deliveryRepo.MarkProcessing(ctx, ids)
	if err != nil {
		d.logger.Error("failed to claim webhook deliveries", zap.Error(err))
		return
	}

	subs := make(map[uuid.UUID]*webhook.Subscription)
	for _, delivery := range claimed {
		d.attempt(ctx, delivery, subs)
	}
}

// attempt performs one delivery attempt and persists the outcome
func (d *Dispatcher) attempt(ctx context.Context, delivery *webhook.Delivery, subs map[uuid.UUID]*webhook.Subscription) {
	sub, ok := subs[delivery.SubscriptionID]
	if !ok {
		loaded, err := d.subRepo.FindByIDForTenant(ctx, delivery.TenantID, delivery.SubscriptionID)
		if err != nil {
			if err == shared.ErrNotFound {
				// Subscription is gone; the queued delivery dies with it.
				delivery.MarkDead("subscription no longer exists")
				d.update(ctx, delivery)
				return
			}
			d.logger.Error("failed to load subscription for delivery",
				zap.String("delivery_id", delivery.ID.String()),
				zap.Error(err))
			delivery.MarkFailed("subscription lookup failed: " + err.Error())
			d.update(ctx, delivery)
			return
		}
		sub = loaded
		subs[delivery.SubscriptionID] = sub
	}

	if !sub.IsActive {
		delivery.MarkFailed("subscription is inactive")
		d.update(ctx, delivery)
		return
	}

	if err := d.sender.Send(ctx, sub, delivery); err != nil {
		delivery.MarkFailed(err.Error())
		d.logger.Warn("webhook delivery attempt failed",
			zap.String("delivery_id", delivery.ID.String()),
			zap.String("url", sub.URL),
			zap.Int("attempt", delivery.Attempts),
			zap.Bool("dead", delivery.IsDead()),
			zap.Error(err))
	} else {
		delivery.MarkDelivered()
		d.logger.Debug("webhook delivered",
			zap.String("delivery_id", delivery.ID.String()),
			zap.String("event_type", delivery.EventType),
			zap.String("url", sub.URL))
	}
	d.update(ctx, delivery)
}

func (d *Dispatcher) update(ctx context.Context, delivery *webhook.Delivery) {
	if err := d.deliveryRepo.Update(ctx, delivery); err != nil {
		d.logger.Error("failed to persist webhook delivery state",
			zap.String("delivery_id", delivery.ID.String()),
			zap.Error(err))
	}
}

func (d *Dispatcher) cleanupLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-d.config.CleanupRetention)
			removed, err := d.deliveryRepo.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				d.logger.Error("failed to clean up old webhook deliveries", zap.Error(err))
				continue
			}
			if removed > 0 {
				d.logger.Info("cleaned up old webhook deliveries", zap.Int64("removed", removed))
			}
		}
	}
}
