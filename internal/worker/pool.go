// Package worker provides the bounded worker pool that executes index jobs
// off the event-consumption path.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/takezou621/sedori-platform-sub006/internal/metrics"
	apperrors "github.com/takezou621/sedori-platform-sub006/pkg/errors"
	"github.com/takezou621/sedori-platform-sub006/pkg/logger"
)

// ErrPoolClosed is returned by Submit after the pool has been stopped.
var ErrPoolClosed = errors.New("worker pool closed")

// Job is one unit of indexing work.
type Job struct {
	// Name identifies the job in logs, e.g. "upsert:prod-1".
	Name string
	// Run does the work. It is retried on transient failure.
	Run func(ctx context.Context) error
}

// Config tunes the pool.
type Config struct {
	// Workers is the number of concurrent job executors.
	Workers int
	// QueueSize bounds the number of queued jobs. Submit blocks when full,
	// pushing backpressure onto the event consumer.
	QueueSize int
	// JobTimeout bounds a single attempt of a job.
	JobTimeout time.Duration
	// MaxRetries is the number of attempts per job including the first.
	MaxRetries int
}

// DefaultConfig returns the pool defaults.
func DefaultConfig() Config {
	return Config{
		Workers:    4,
		QueueSize:  256,
		JobTimeout: 15 * time.Second,
		MaxRetries: 3,
	}
}

// Pool runs index jobs on a fixed set of workers over a bounded queue.
type Pool struct {
	cfg    Config
	queue  chan Job
	done   chan struct{}
	logger *slog.Logger

	wg       sync.WaitGroup
	inflight sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool. Call Start before submitting.
func NewPool(cfg Config, log *slog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultConfig().JobTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pool{
		cfg:    cfg,
		queue:  make(chan Job, cfg.QueueSize),
		done:   make(chan struct{}),
		logger: log,
	}
}

// Start launches the workers. The pool runs until Stop is called.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.logger.Info("worker pool started",
		"workers", p.cfg.Workers,
		"queue_size", p.cfg.QueueSize,
	)
}

// Submit enqueues a job, blocking while the queue is full. It returns
// ErrPoolClosed if the pool stops first, or the context error if ctx
// ends first.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.inflight.Add(1)
	p.mu.Unlock()
	defer p.inflight.Done()

	select {
	case p.queue <- job:
		metrics.IndexQueueDepth.Inc()
		return nil
	case <-p.done:
		return ErrPoolClosed
	case <-ctx.Done():
		return fmt.Errorf("submit %s: %w", job.Name, ctx.Err())
	}
}

// Stop rejects new submissions, unblocks any Submit parked on a full queue,
// and waits for queued jobs to drain.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.done)
	// The queue closes only once no Submit is mid-send; a send racing the
	// close would panic.
	p.inflight.Wait()
	close(p.queue)
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// QueueDepth reports the number of jobs currently waiting.
func (p *Pool) QueueDepth() int {
	return len(p.queue)
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	log := p.logger.With("worker", id)
	for job := range p.queue {
		metrics.IndexQueueDepth.Dec()
		if err := p.runJob(ctx, job); err != nil {
			log.Error("index job failed", "job", job.Name, "error", err)
		}
	}
}

// runJob executes one job with retries. Failures caused by bad input or by a
// newer document already in the index are not retryable.
func (p *Pool) runJob(ctx context.Context, job Job) error {
	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.JobTimeout)
		defer cancel()

		err := job.Run(attemptCtx)
		if err == nil {
			return struct{}{}, nil
		}
		if isPermanent(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		logger.FromContext(ctx).Warn("index job attempt failed",
			"job", job.Name,
			"attempt", attempt,
			"error", err,
		)
		return struct{}{}, err
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 200 * time.Millisecond
	expo.MaxInterval = 5 * time.Second

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(p.cfg.MaxRetries)),
	)
	return err
}

func isPermanent(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound) ||
		errors.Is(err, apperrors.ErrVersionConflict) ||
		errors.Is(err, apperrors.ErrInvalidInput)
}
