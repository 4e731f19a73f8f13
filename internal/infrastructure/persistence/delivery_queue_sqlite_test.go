package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/domain/webhook"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// The queue lifecycle is exercised end to end against an in-memory SQLite
// database; the SQL-shape tests live in delivery_repository_test.go.
func setupDeliveryQueueDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&webhook.Delivery{}, &webhook.Subscription{}))
	return db
}

func newQueuedDelivery(t *testing.T, tenantID uuid.UUID) *webhook.Delivery {
	t.Helper()
	sub, err := webhook.NewSubscription(tenantID, "hook", "https://example.com/hook", []string{"*"})
	require.NoError(t, err)
	rule, err := pricing.NewPriceRule(tenantID, "Promo", pricing.AdjustmentPercentageDiscount, decimal.NewFromInt(5))
	require.NoError(t, err)
	event := pricing.NewRuleCreatedEvent(rule)
	return webhook.NewDelivery(sub, event, []byte(`{"event":"RULE_CREATED"}`))
}

func TestDeliveryQueue_Lifecycle(t *testing.T) {
	db := setupDeliveryQueueDB(t)
	repo := NewGormDeliveryRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	delivery := newQueuedDelivery(t, tenantID)
	require.NoError(t, repo.Save(ctx, delivery))

	// A fresh pending delivery is due immediately
	due, err := repo.FindDue(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, delivery.ID, due[0].ID)

	// Claiming moves it to PROCESSING; a second claim gets nothing
	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{delivery.ID})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, webhook.DeliveryStatusProcessing, claimed[0].Status)

	again, err := repo.MarkProcessing(ctx, []uuid.UUID{delivery.ID})
	require.NoError(t, err)
	assert.Empty(t, again)

	// A failure schedules a retry; the delivery is not due until then
	claimed[0].MarkFailed("connection refused")
	require.NoError(t, repo.Update(ctx, claimed[0]))

	due, err = repo.FindDue(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = repo.FindDue(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestDeliveryQueue_DeadLetters(t *testing.T) {
	db := setupDeliveryQueueDB(t)
	repo := NewGormDeliveryRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	delivery := newQueuedDelivery(t, tenantID)
	require.NoError(t, repo.Save(ctx, delivery))

	// Exhaust every attempt
	for i := 0; i < delivery.MaxAttempts; i++ {
		delivery.Status = webhook.DeliveryStatusProcessing
		delivery.MarkFailed("boom")
	}
	require.Equal(t, webhook.DeliveryStatusDead, delivery.Status)
	require.NoError(t, repo.Update(ctx, delivery))

	dead, total, err := repo.FindDead(ctx, tenantID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, dead, 1)
	assert.Equal(t, delivery.ID, dead[0].ID)

	// Dead deliveries never show up as due
	due, err := repo.FindDue(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[webhook.DeliveryStatusDead])
}

func TestDeliveryQueue_StaleClaimReclaimed(t *testing.T) {
	db := setupDeliveryQueueDB(t)
	repo := NewGormDeliveryRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	delivery := newQueuedDelivery(t, tenantID)
	require.NoError(t, repo.Save(ctx, delivery))

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{delivery.ID})
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	// A fresh claim is invisible to other pollers
	due, err := repo.FindDue(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	// Backdate the claim past the stale cutoff, as if the claiming
	// dispatcher died mid-flight
	require.NoError(t, db.Model(&webhook.Delivery{}).
		Where("id = ?", delivery.ID).
		UpdateColumn("updated_at", time.Now().Add(-10*time.Minute)).Error)

	due, err = repo.FindDue(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, delivery.ID, due[0].ID)

	reclaimed, err := repo.MarkProcessing(ctx, []uuid.UUID{delivery.ID})
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	assert.Equal(t, webhook.DeliveryStatusProcessing, reclaimed[0].Status)
}

func TestDeliveryQueue_Requeue(t *testing.T) {
	db := setupDeliveryQueueDB(t)
	repo := NewGormDeliveryRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	delivery := newQueuedDelivery(t, tenantID)
	for i := 0; i < delivery.MaxAttempts; i++ {
		delivery.Status = webhook.DeliveryStatusProcessing
		delivery.MarkFailed("boom")
	}
	require.NoError(t, repo.Save(ctx, delivery))

	require.NoError(t, delivery.ResetForRetry())
	require.NoError(t, repo.Update(ctx, delivery))

	found, err := repo.FindByID(ctx, delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, webhook.DeliveryStatusPending, found.Status)
	assert.Zero(t, found.Attempts)

	due, err := repo.FindDue(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}
