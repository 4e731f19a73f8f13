// Package analytics persists pricing computation logs off the request path.
package analytics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"go.uber.org/zap"
)

// Default recorder configuration
const (
	DefaultBufferSize    = 1024
	DefaultBatchSize     = 64
	DefaultFlushInterval = time.Second
)

// Config holds recorder configuration
type Config struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultRecorderConfig returns the default recorder configuration
func DefaultRecorderConfig() Config {
	return Config{
		BufferSize:    DefaultBufferSize,
		BatchSize:     DefaultBatchSize,
		FlushInterval: DefaultFlushInterval,
	}
}

// Recorder buffers computation logs in a bounded channel and writes them in
// batches. Record never blocks: when the buffer is full the log is dropped
// and counted. The price lookup path must not pay for analytics.
type Recorder struct {
	repo    pricing.ComputationLogRepository
	config  Config
	logger  *zap.Logger
	buffer  chan *pricing.ComputationLog
	dropped int64
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	started int32
}

// RecorderOption is a functional option for configuring the recorder
type RecorderOption func(*Recorder)

// WithRecorderConfig sets the recorder configuration
func WithRecorderConfig(config Config) RecorderOption {
	return func(r *Recorder) {
		if config.BufferSize > 0 {
			r.config.BufferSize = config.BufferSize
		}
		if config.BatchSize > 0 {
			r.config.BatchSize = config.BatchSize
		}
		if config.FlushInterval > 0 {
			r.config.FlushInterval = config.FlushInterval
		}
	}
}

// WithRecorderLogger sets the logger for the recorder
func WithRecorderLogger(logger *zap.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// NewRecorder creates a new analytics recorder
func NewRecorder(repo pricing.ComputationLogRepository, opts ...RecorderOption) *Recorder {
	recorder := &Recorder{
		repo:   repo,
		config: DefaultRecorderConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(recorder)
	}
	recorder.buffer = make(chan *pricing.ComputationLog, recorder.config.BufferSize)
	return recorder
}

// Start launches the background flusher
func (r *Recorder) Start() {
	if !atomic.CompareAndSwapInt32(&r.started, 0, 1) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.wg.Add(1)
	go r.flushLoop(ctx)

	r.logger.Info("analytics recorder started",
		zap.Int("buffer_size", r.config.BufferSize),
		zap.Int("batch_size", r.config.BatchSize),
		zap.Duration("flush_interval", r.config.FlushInterval))
}

// Stop drains the buffer and stops the flusher
func (r *Recorder) Stop() {
	if !atomic.CompareAndSwapInt32(&r.started, 1, 0) {
		return
	}
	r.cancel()
	r.wg.Wait()

	if dropped := atomic.LoadInt64(&r.dropped); dropped > 0 {
		r.logger.Warn("analytics recorder dropped logs under pressure",
			zap.Int64("dropped", dropped))
	}
}

// Record enqueues a log without blocking. Full buffer drops the log.
func (r *Recorder) Record(log *pricing.ComputationLog) {
	if log == nil {
		return
	}
	select {
	case r.buffer <- log:
	default:
		atomic.AddInt64(&r.dropped, 1)
	}
}

// Dropped returns how many logs were dropped because the buffer was full
func (r *Recorder) Dropped() int64 {
	return atomic.LoadInt64(&r.dropped)
}

func (r *Recorder) flushLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]*pricing.ComputationLog, 0, r.config.BatchSize)
	for {
		select {
		case <-ctx.Done():
			// Drain whatever is left before exiting.
			for {
				select {
				case log := <-r.buffer:
					batch = append(batch, log)
					if len(batch) >= r.config.BatchSize {
						r.flush(batch)
						batch = batch[:0]
					}
				default:
					r.flush(batch)
					return
				}
			}
		case log := <-r.buffer:
			batch = append(batch, log)
			if len(batch) >= r.config.BatchSize {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			r.flush(batch)
			batch = batch[:0]
		}
	}
}

func (r *Recorder) flush(batch []*pricing.ComputationLog) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.repo.Save(ctx, batch...); err != nil {
		r.logger.Error("failed to persist computation logs",
			zap.Int("batch_size", len(batch)),
			zap.Error(err))
	}
}
