package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when the buffer cannot take another job.
	ErrQueueFull = errors.New("queue full")
	// ErrQueueStopped is returned once Stop has been called.
	ErrQueueStopped = errors.New("queue stopped")
)

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// FailureHook receives every job whose handler returned an error.
type FailureHook func(Job, error)

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	Logger     *zap.Logger
	OnFailure  FailureHook
}

// Queue is a lightweight in-memory job dispatcher backed by goroutines.
// Jobs run exactly once; failures are reported, never retried.
type Queue struct {
	name    string
	handler Handler

	workers   int
	logger    *zap.Logger
	onFailure FailureHook

	jobs    chan Job
	ctx     context.Context
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:      name,
		handler:   handler,
		workers:   cfg.Workers,
		logger:    cfg.Logger,
		onFailure: cfg.OnFailure,
		jobs:      make(chan Job, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once. ctx only seeds job
// contexts; the workers stop through Stop.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx = ctx
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	q.started = true
	q.logger.Sugar().Infow("queue started", "queue", q.name, "workers", q.workers)
}

// Stop stops accepting work, runs every job already accepted and waits for
// the workers to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	pending := len(q.jobs)
	close(q.jobs)
	q.mu.Unlock()

	if pending > 0 {
		q.logger.Sugar().Infow("queue draining", "queue", q.name, "pending", pending)
	}
	q.wg.Wait()
	q.logger.Sugar().Infow("queue stopped", "queue", q.name)
}

// Enqueue hands a job to the workers without blocking the caller.
func (q *Queue) Enqueue(job Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if q.stopped {
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueStopped)
	}

	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueFull)
	}
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()
	for job := range q.jobs {
		q.run(workerID, job)
	}
}

func (q *Queue) run(workerID int, job Job) {
	// A job runs to completion even if the Start context is cancelled.
	ctx := context.WithoutCancel(q.ctx)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			q.fail(job, fmt.Errorf("job panicked: %v", r))
		}
	}()

	if err := q.handler(ctx, job); err != nil {
		q.fail(job, err)
		return
	}
	q.logger.Sugar().Debugw("job finished", "queue", q.name, "worker", workerID, "job_id", job.ID, "type", job.Type, "duration", time.Since(start))
}

func (q *Queue) fail(job Job, err error) {
	q.logger.Sugar().Errorw("job failed", "queue", q.name, "job_id", job.ID, "type", job.Type, "error", err)
	if q.onFailure != nil {
		q.onFailure(job, err)
	}
}
