package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryLogRepository collects saved logs for assertions
type memoryLogRepository struct {
	mu   sync.Mutex
	logs []*pricing.ComputationLog
}

func (r *memoryLogRepository) Save(ctx context.Context, logs ...*pricing.ComputationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, logs...)
	return nil
}

func (r *memoryLogRepository) Summary(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*pricing.UsageSummary, error) {
	return &pricing.UsageSummary{}, nil
}

func (r *memoryLogRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *memoryLogRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.logs)
}

func testLog(tenantID uuid.UUID) *pricing.ComputationLog {
	return &pricing.ComputationLog{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ArticleID: "ART-1",
		CreatedAt: time.Now(),
	}
}

func TestRecorder_FlushesOnInterval(t *testing.T) {
	repo := &memoryLogRepository{}
	recorder := NewRecorder(repo,
		WithRecorderConfig(Config{BufferSize: 16, BatchSize: 8, FlushInterval: 20 * time.Millisecond}),
		WithRecorderLogger(zap.NewNop()))
	recorder.Start()
	defer recorder.Stop()

	tenantID := uuid.New()
	for i := 0; i < 3; i++ {
		recorder.Record(testLog(tenantID))
	}

	require.Eventually(t, func() bool {
		return repo.count() == 3
	}, time.Second, 10*time.Millisecond)
}

func TestRecorder_FlushesFullBatchImmediately(t *testing.T) {
	repo := &memoryLogRepository{}
	recorder := NewRecorder(repo,
		WithRecorderConfig(Config{BufferSize: 64, BatchSize: 4, FlushInterval: time.Hour}))
	recorder.Start()
	defer recorder.Stop()

	tenantID := uuid.New()
	for i := 0; i < 8; i++ {
		recorder.Record(testLog(tenantID))
	}

	require.Eventually(t, func() bool {
		return repo.count() == 8
	}, time.Second, 10*time.Millisecond)
}

func TestRecorder_StopDrainsBuffer(t *testing.T) {
	repo := &memoryLogRepository{}
	recorder := NewRecorder(repo,
		WithRecorderConfig(Config{BufferSize: 64, BatchSize: 8, FlushInterval: time.Hour}))
	recorder.Start()

	tenantID := uuid.New()
	for i := 0; i < 10; i++ {
		recorder.Record(testLog(tenantID))
	}
	recorder.Stop()

	assert.Equal(t, 10, repo.count())
}

func TestRecorder_DropsWhenFullWithoutBlocking(t *testing.T) {
	repo := &memoryLogRepository{}
	recorder := NewRecorder(repo,
		WithRecorderConfig(Config{BufferSize: 2, BatchSize: 8, FlushInterval: time.Hour}))
	// Recorder deliberately not started, so nothing consumes the buffer.

	tenantID := uuid.New()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			recorder.Record(testLog(tenantID))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full buffer")
	}
	assert.Equal(t, int64(8), recorder.Dropped())
}
