package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContext(t *testing.T) {
	log := zap.NewNop()
	ctx := WithContext(context.Background(), log)

	assert.Same(t, log, FromContext(ctx))
}

func TestFromContext_NotFound(t *testing.T) {
	log := FromContext(context.Background())

	// Returns a no-op logger instead of nil
	require.NotNil(t, log)
	log.Info("must not panic")
}

func TestWithRequestID(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	log := zap.New(core)

	ctx, enriched := WithRequestID(context.Background(), log, "req-123")
	enriched.Info("hello")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "req-123", recorded.All()[0].ContextMap()["request_id"])
}

func TestWithTenantID(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	log := zap.New(core)

	ctx, enriched := WithTenantID(context.Background(), log, "tenant-9")
	enriched.Info("hello")

	assert.Equal(t, "tenant-9", GetTenantID(ctx))
	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "tenant-9", recorded.All()[0].ContextMap()["tenant_id"])
}

func TestGetRequestID_Empty(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
	assert.Empty(t, GetTenantID(context.Background()))
}

func TestWithTraceContext_NoSpan(t *testing.T) {
	log := zap.NewNop()

	// No active span: the logger comes back unchanged
	assert.Same(t, log, WithTraceContext(context.Background(), log))
}
