package event

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	types    []string
	received []shared.DomainEvent
	err      error
	panics   bool
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("boom")
	}
	h.received = append(h.received, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func testEvent(eventType string) shared.DomainEvent {
	e := shared.NewBaseDomainEvent(eventType, "PriceRule", uuid.New(), uuid.New())
	return &e
}

func TestInMemoryEventBus_PublishRoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	created := &recordingHandler{types: []string{"RULE_CREATED"}}
	deleted := &recordingHandler{types: []string{"RULE_DELETED"}}
	bus.Subscribe(created)
	bus.Subscribe(deleted)

	require.NoError(t, bus.Publish(context.Background(), testEvent("RULE_CREATED")))

	assert.Len(t, created.received, 1)
	assert.Empty(t, deleted.received)
}

func TestInMemoryEventBus_WildcardHandlerReceivesEverything(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	all := &recordingHandler{}
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(),
		testEvent("RULE_CREATED"),
		testEvent("RULE_TOGGLED"),
	))

	assert.Len(t, all.received, 2)
}

func TestInMemoryEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := &recordingHandler{types: []string{"RULE_UPDATED"}, err: errors.New("db down")}
	healthy := &recordingHandler{types: []string{"RULE_UPDATED"}}
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), testEvent("RULE_UPDATED"))

	assert.NoError(t, err)
	assert.Len(t, healthy.received, 1)
}

func TestInMemoryEventBus_HandlerPanicIsContained(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	panicking := &recordingHandler{types: []string{"RULE_CREATED"}, panics: true}
	healthy := &recordingHandler{types: []string{"RULE_CREATED"}}
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	assert.NotPanics(t, func() {
		_ = bus.Publish(context.Background(), testEvent("RULE_CREATED"))
	})
	assert.Len(t, healthy.received, 1)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := &recordingHandler{types: []string{"RULE_CREATED"}}
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), testEvent("RULE_CREATED")))

	assert.Empty(t, handler.received)
}

func TestHandlerRegistry_GetHandlersOrder(t *testing.T) {
	registry := NewHandlerRegistry()

	typed := &recordingHandler{}
	wild := &recordingHandler{}
	registry.Register(typed, "RULE_CREATED")
	registry.Register(wild)

	handlers := registry.GetHandlers("RULE_CREATED")
	require.Len(t, handlers, 2)
	assert.Same(t, typed, handlers[0])
	assert.Same(t, wild, handlers[1])
}
