// Package jobs provides the fire-and-forget background job capability used
// for notification dispatch. Callers assume at-least-once semantics, so job
// handlers must tolerate duplicate dispatch.
package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned when the job buffer cannot accept more work.
var ErrQueueFull = errors.New("jobs: queue is full")

// ErrUnknownJob is returned when no handler is registered for a job name.
var ErrUnknownJob = errors.New("jobs: no handler registered")

// ErrRunnerStopped is returned when enqueueing after Stop.
var ErrRunnerStopped = errors.New("jobs: runner is stopped")

// Handler executes one job. The payload is whatever the enqueuer supplied.
type Handler func(ctx context.Context, payload any) error

// Queue is the enqueue capability handed to services.
type Queue interface {
	Enqueue(ctx context.Context, name string, payload any) error
}

type job struct {
	name    string
	payload any
}

// Stats reports runner counters.
type Stats struct {
	Enqueued  uint64
	Processed uint64
	Failed    uint64
}

// Runner is a bounded worker-pool Queue implementation. Jobs run detached
// from the request context; each execution gets its own timeout.
type Runner struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	stopping bool

	enqueued  atomic.Uint64
	processed atomic.Uint64
	failed    atomic.Uint64

	queue      chan job
	workers    int
	jobTimeout time.Duration
	logger     *zap.Logger

	wg   sync.WaitGroup
	once sync.Once
}

// NewRunner creates a runner with the given worker count and buffer size.
func NewRunner(workers, queueSize int, logger *zap.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		handlers:   make(map[string]Handler),
		queue:      make(chan job, queueSize),
		workers:    workers,
		jobTimeout: 30 * time.Second,
		logger:     logger,
	}
}

// Register binds a handler to a job name. Must be called before Start.
func (r *Runner) Register(name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Start launches the worker goroutines.
func (r *Runner) Start() {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.logger.Info("Job runner started",
		zap.Int("workers", r.workers),
		zap.Int("queue_size", cap(r.queue)),
	)
}

// Stop drains the queue and waits for in-flight jobs to finish. The
// stopping flag is flipped under the write lock so no Enqueue can be
// mid-send when the queue closes.
func (r *Runner) Stop() {
	r.once.Do(func() {
		r.mu.Lock()
		r.stopping = true
		r.mu.Unlock()
		close(r.queue)
	})
	r.wg.Wait()

	stats := r.GetStats()
	r.logger.Info("Job runner stopped",
		zap.Uint64("processed", stats.Processed),
		zap.Uint64("failed", stats.Failed),
	)
}

// Enqueue queues a job for background execution. The job must be registered;
// enqueueing never blocks on a full buffer.
func (r *Runner) Enqueue(_ context.Context, name string, payload any) error {
	// The read lock is held across the send so Stop cannot close the
	// queue between the stopping check and the send.
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, known := r.handlers[name]; !known {
		return ErrUnknownJob
	}
	if r.stopping {
		return ErrRunnerStopped
	}

	select {
	case r.queue <- job{name: name, payload: payload}:
		r.enqueued.Add(1)
		return nil
	default:
		r.logger.Warn("Job queue full, dropping job",
			zap.String("job", name),
		)
		return ErrQueueFull
	}
}

// GetStats returns a snapshot of the runner counters.
func (r *Runner) GetStats() Stats {
	return Stats{
		Enqueued:  r.enqueued.Load(),
		Processed: r.processed.Load(),
		Failed:    r.failed.Load(),
	}
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()

	for j := range r.queue {
		r.mu.RLock()
		handler := r.handlers[j.name]
		r.mu.RUnlock()

		ctx, cancel := context.WithTimeout(context.Background(), r.jobTimeout)
		err := handler(ctx, j.payload)
		cancel()

		r.processed.Add(1)
		if err != nil {
			r.failed.Add(1)
		}

		if err != nil {
			r.logger.Error("Job failed",
				zap.String("job", j.name),
				zap.Int("worker", id),
				zap.Error(err),
			)
		}
	}
}

// SyncQueue runs jobs inline on Enqueue. Used by tests so assertions can
// run immediately after the call returns.
type SyncQueue struct {
	mu       sync.Mutex
	handlers map[string]Handler
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{handlers: make(map[string]Handler)}
}

func (q *SyncQueue) Register(name string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[name] = handler
}

func (q *SyncQueue) Enqueue(ctx context.Context, name string, payload any) error {
	q.mu.Lock()
	handler, ok := q.handlers[name]
	q.mu.Unlock()

	if !ok {
		return ErrUnknownJob
	}
	return handler(ctx, payload)
}
