package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/entity"
)

// ErrQueueClosed is returned by Submit after Shutdown.
var ErrQueueClosed = errors.New("run queue is shutting down")

// Runner executes one pipeline run for a user message.
type Runner interface {
	Run(ctx context.Context, userInput string) (entity.Session, error)
}

// Result is what a queued run produced.
type Result struct {
	Session entity.Session
	Err     error
}

// Job is one queued run.
type Job struct {
	ID          uuid.UUID
	Input       string
	RequestID   string
	SubmittedAt time.Time

	ctx    context.Context
	result chan Result
}

// RunQueue bounds how many pipeline runs execute at once across callers.
type RunQueue struct {
	runner  Runner
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch      chan Job
	wg      sync.WaitGroup
	once    sync.Once
	sending sync.WaitGroup
	closing chan struct{}

	mu     sync.RWMutex
	closed bool
}

type QueueOption func(*RunQueue)

func WithQueueWorkers(n int) QueueOption {
	return func(q *RunQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) QueueOption {
	return func(q *RunQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithRunTimeout(d time.Duration) QueueOption {
	return func(q *RunQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewRunQueue(runner Runner, logger *slog.Logger, opts ...QueueOption) *RunQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &RunQueue{
		runner:  runner,
		logger:  logger,
		workers: 4,
		timeout: 5 * time.Minute,
		ch:      make(chan Job, 64),
		closing: make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *RunQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.started", "worker_id", workerID)
				for job := range q.ch {
					q.process(workerID, job)
				}
				q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *RunQueue) process(workerID int, job Job) {
	if err := job.ctx.Err(); err != nil {
		job.result <- Result{Err: err}
		return
	}
	ctx, cancel := context.WithTimeout(job.ctx, q.timeout)
	defer cancel()

	start := time.Now()
	sess, err := q.runner.Run(ctx, job.Input)
	if err != nil {
		q.logger.Error("queue.run.failed", "worker_id", workerID, "job_id", job.ID, "request_id", job.RequestID, "error", err)
	} else {
		q.logger.Info("queue.run.ok", "worker_id", workerID, "job_id", job.ID, "request_id", job.RequestID,
			"verified", len(sess.VerifiedResults), "elapsed_ms", time.Since(start).Milliseconds())
	}
	job.result <- Result{Session: sess, Err: err}
}

// Submit enqueues input and blocks until its run finishes or ctx is done.
func (q *RunQueue) Submit(ctx context.Context, input string) (entity.Session, error) {
	job := Job{
		ID:          uuid.New(),
		Input:       input,
		RequestID:   common.RequestIDFromContext(ctx),
		SubmittedAt: time.Now().UTC(),
		ctx:         ctx,
		result:      make(chan Result, 1),
	}

	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		q.logger.Warn("queue.submit.rejected", "job_id", job.ID, "reason", "shutting down")
		return entity.Session{}, ErrQueueClosed
	}
	q.sending.Add(1)
	q.mu.RUnlock()

	// q.ch is only closed once every pending send has returned
	select {
	case q.ch <- job:
		q.sending.Done()
		q.logger.Debug("queue.submit.accepted", "job_id", job.ID, "request_id", job.RequestID)
	case <-q.closing:
		q.sending.Done()
		q.logger.Warn("queue.submit.rejected", "job_id", job.ID, "reason", "shutting down")
		return entity.Session{}, ErrQueueClosed
	case <-ctx.Done():
		q.sending.Done()
		return entity.Session{}, ctx.Err()
	}

	select {
	case res := <-job.result:
		return res.Session, res.Err
	case <-ctx.Done():
		return entity.Session{}, ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to drain, or for ctx.
func (q *RunQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.closing)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.sending.Wait()
		close(q.ch)
		q.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
