package worker

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-pkgz/pool"
	"github.com/rs/zerolog"

	"github.com/markwilliams0n/aurelius-hq-sub001/pkg/apperr"
	"github.com/markwilliams0n/aurelius-hq-sub001/pkg/metrics"
)

// PoolConfig holds worker pool configuration.
type PoolConfig struct {
	Workers          int
	BatchSize        int
	WorkerChanSize   int
	JobTimeout       time.Duration
	JobTimeoutByType map[JobType]time.Duration
	MaxRetries       int
}

// DefaultPoolConfig returns default pool configuration. Model-backed
// jobs get generous timeouts; rule-only jobs stay short.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		Workers:        4,
		BatchSize:      10,
		WorkerChanSize: 100,
		JobTimeout:     60 * time.Second,
		MaxRetries:     3,
		JobTimeoutByType: map[JobType]time.Duration{
			JobTriageItem:       90 * time.Second,
			JobTriagePass:       15 * time.Minute,
			JobTriageReclassify: 1 * time.Minute,
			JobBatchAssign:      2 * time.Minute,
			JobLearningRun:      5 * time.Minute,
		},
	}
}

// Pool runs triage jobs on a go-pkgz/pool worker group with per-type
// timeouts and retry with backoff. Jobs that exhaust their retries are
// logged and dropped; every scheduled pass is idempotent, so the next
// tick covers whatever a lost job left behind.
type Pool struct {
	handler *Handler
	config  *PoolConfig

	pool *pool.WorkerGroup[*Message]

	ctx    context.Context
	cancel context.CancelFunc

	metrics *PoolMetrics
	log     zerolog.Logger

	started bool
	mu      sync.Mutex
}

// PoolMetrics holds pool metrics.
type PoolMetrics struct {
	JobsProcessed int64
	JobsFailed    int64
	JobsRetried   int64
	QueueSize     int32
}

// messageWorker implements pool.Worker for Message processing.
type messageWorker struct {
	pool *Pool
}

func (w *messageWorker) Do(ctx context.Context, msg *Message) error {
	return w.pool.processJob(ctx, msg)
}

// NewPool creates a worker pool.
func NewPool(handler *Handler, config *PoolConfig, log zerolog.Logger) *Pool {
	if config == nil {
		config = DefaultPoolConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		handler: handler,
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		metrics: &PoolMetrics{},
		log:     log.With().Str("component", "worker_pool").Logger(),
	}
}

// Start starts the worker pool.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	worker := &messageWorker{pool: p}
	p.pool = pool.New[*Message](p.config.Workers, worker).
		WithBatchSize(p.config.BatchSize).
		WithWorkerChanSize(p.config.WorkerChanSize).
		WithContinueOnError()

	if err := p.pool.Go(p.ctx); err != nil {
		p.log.Error().Err(err).Msg("failed to start worker pool")
		return
	}

	p.started = true
	go p.metricsReporter()

	p.log.Info().
		Int("workers", p.config.Workers).
		Int("batch_size", p.config.BatchSize).
		Msg("worker pool started")
}

// Stop gracefully stops the worker pool.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer closeCancel()

	if p.pool != nil {
		if err := p.pool.Close(closeCtx); err != nil {
			p.log.Warn().Err(err).Msg("error closing worker pool")
		}
	}
	p.cancel()

	p.log.Info().
		Int64("processed", atomic.LoadInt64(&p.metrics.JobsProcessed)).
		Int64("failed", atomic.LoadInt64(&p.metrics.JobsFailed)).
		Msg("worker pool stopped")
}

// Submit submits a job to the pool.
func (p *Pool) Submit(msg *Message) bool {
	p.mu.Lock()
	if !p.started || p.pool == nil {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()

	p.pool.Submit(msg)
	atomic.AddInt32(&p.metrics.QueueSize, 1)
	return true
}

func (p *Pool) getJobTimeout(jobType JobType) time.Duration {
	if timeout, ok := p.config.JobTimeoutByType[jobType]; ok {
		return timeout
	}
	return p.config.JobTimeout
}

// processJob processes a single job with its type's timeout.
func (p *Pool) processJob(ctx context.Context, msg *Message) error {
	defer atomic.AddInt32(&p.metrics.QueueSize, -1)

	jobCtx, cancel := context.WithTimeout(ctx, p.getJobTimeout(msg.Type))
	defer cancel()

	start := time.Now()
	err := p.handler.Process(jobCtx, msg)
	metrics.RecordLatency("job."+msg.Type, time.Since(start))
	if err == nil {
		atomic.AddInt64(&p.metrics.JobsProcessed, 1)
		return nil
	}

	p.log.Error().
		Err(err).
		Str("job_id", msg.ID).
		Str("job_type", msg.Type).
		Int("retries", msg.Retries).
		Msg("job processing failed")

	if !apperr.IsRetryable(err) {
		atomic.AddInt64(&p.metrics.JobsFailed, 1)
		p.log.Error().
			Str("job_id", msg.ID).
			Str("job_type", msg.Type).
			Msg("job dropped, permanent error")
		return err
	}

	if msg.Retries < p.config.MaxRetries {
		msg.Retries++
		atomic.AddInt64(&p.metrics.JobsRetried, 1)

		// Exponential backoff with jitter so retries do not stampede
		// a recovering model endpoint.
		backoff := time.Duration(1<<msg.Retries)*time.Second +
			time.Duration(rand.Intn(500))*time.Millisecond
		time.AfterFunc(backoff, func() {
			p.Submit(msg)
		})
		return err
	}

	atomic.AddInt64(&p.metrics.JobsFailed, 1)
	p.log.Error().
		Str("job_id", msg.ID).
		Str("job_type", msg.Type).
		Interface("payload", msg.Payload).
		Msg("job dropped after max retries")
	return err
}

// metricsReporter periodically logs metrics.
func (p *Pool) metricsReporter() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.log.Info().
				Int64("processed", atomic.LoadInt64(&p.metrics.JobsProcessed)).
				Int64("failed", atomic.LoadInt64(&p.metrics.JobsFailed)).
				Int64("retried", atomic.LoadInt64(&p.metrics.JobsRetried)).
				Int32("queue_size", atomic.LoadInt32(&p.metrics.QueueSize)).
				Msg("worker pool metrics")
		}
	}
}

// GetMetrics returns current pool metrics.
func (p *Pool) GetMetrics() PoolMetrics {
	return PoolMetrics{
		JobsProcessed: atomic.LoadInt64(&p.metrics.JobsProcessed),
		JobsFailed:    atomic.LoadInt64(&p.metrics.JobsFailed),
		JobsRetried:   atomic.LoadInt64(&p.metrics.JobsRetried),
		QueueSize:     atomic.LoadInt32(&p.metrics.QueueSize),
	}
}
