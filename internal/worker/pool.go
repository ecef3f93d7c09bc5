// Package workerpool runs submitted tasks on a fixed set of workers fed
// from one shared FIFO queue. Submission is fire-and-forget: producers
// never block, results are delivered through an optional handler or a
// per-task callback, and Shutdown drains everything already queued before
// returning.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/taskhive/taskhive-core/internal/queue"
	"go.uber.org/zap"
)

var (
	// ErrInvalidWorkerCount is returned when a pool is constructed with
	// fewer than one worker.
	ErrInvalidWorkerCount = errors.New("worker pool needs at least one worker")

	// ErrPoolStopped is returned by Submit once Shutdown has begun.
	// Late submissions are rejected, never silently dropped.
	ErrPoolStopped = errors.New("worker pool is stopped")
)

type WorkerPool struct {
	tasks       *queue.TaskQueue
	workerCount int
	ctx         context.Context
	wg          sync.WaitGroup
	logger      *zap.Logger

	stopOnce sync.Once
	stopped  atomic.Bool

	resultHandler atomic.Value // func(Result)

	// Metrics
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	running   atomic.Int64
	startTime time.Time
}

// New validates the configuration and starts config.WorkerCount workers
// immediately. The workers live until Shutdown; the pool must not be
// garbage-collected with workers still attached, so every New must be
// paired with a Shutdown.
func New(config Config, logger *zap.Logger) (*WorkerPool, error) {
	if config.WorkerCount < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, config.WorkerCount)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	wp := &WorkerPool{
		tasks:       queue.NewTaskQueue(),
		workerCount: config.WorkerCount,
		ctx:         context.Background(),
		logger:      logger,
		startTime:   time.Now(),
	}

	wp.wg.Add(config.WorkerCount)
	for i := 0; i < config.WorkerCount; i++ {
		w := &worker{id: i + 1, pool: wp}
		go w.run()
	}

	wp.logger.Info("worker pool started", zap.Int("workers", config.WorkerCount))
	return wp, nil
}

// Submit enqueues task for asynchronous execution by some worker.
// It never blocks; the queue is unbounded. After Shutdown it returns
// ErrPoolStopped.
func (wp *WorkerPool) Submit(task Task) error {
	if wp.stopped.Load() {
		return ErrPoolStopped
	}

	// Counted before the push so a fast worker can never finish a task
	// that the stats do not yet know about.
	wp.submitted.Add(1)

	// The queue re-checks the stop flag under its own lock, closing the
	// window between the check above and the push.
	if !wp.tasks.Push(func() { wp.execute(task) }) {
		wp.submitted.Add(-1)
		return ErrPoolStopped
	}
	return nil
}

// SubmitBatch enqueues tasks in order. On a stopped pool it rejects the
// remainder and reports how many were accepted.
func (wp *WorkerPool) SubmitBatch(tasks []Task) (int, error) {
	for i, task := range tasks {
		if err := wp.Submit(task); err != nil {
			return i, err
		}
	}
	return len(tasks), nil
}

// SetResultHandler installs a handler invoked on the worker goroutine
// after every task, success or failure. Safe to call concurrently with
// running tasks.
func (wp *WorkerPool) SetResultHandler(handler func(Result)) {
	if handler == nil {
		return
	}
	wp.resultHandler.Store(handler)
}

// Shutdown stops task intake, lets the workers drain every task already
// queued, and blocks until all of them have exited. Idempotent; safe to
// call from multiple goroutines. In-flight tasks are never interrupted.
func (wp *WorkerPool) Shutdown() {
	wp.stopOnce.Do(func() {
		wp.stopped.Store(true)
		remaining := wp.tasks.Len()
		wp.logger.Info("worker pool shutting down", zap.Int("queued_tasks", remaining))
		wp.tasks.RequestStop()
		wp.wg.Wait()
		wp.logger.Info("worker pool shutdown complete",
			zap.Int64("completed", wp.completed.Load()),
			zap.Int64("failed", wp.failed.Load()))
	})
}

func (wp *WorkerPool) Stats() Stats {
	return Stats{
		WorkerCount:    wp.workerCount,
		SubmittedTasks: wp.submitted.Load(),
		CompletedTasks: wp.completed.Load(),
		FailedTasks:    wp.failed.Load(),
		RunningTasks:   wp.running.Load(),
		QueueLength:    int64(wp.tasks.Len()),
		Uptime:         time.Since(wp.startTime),
		IsRunning:      !wp.stopped.Load(),
	}
}

// WaitForCompletion polls until every submitted task has finished or the
// timeout elapses. Intended for batch-style callers that submit a known
// amount of work and want to block for it without futures.
func (wp *WorkerPool) WaitForCompletion(timeout time.Duration) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	deadline := time.After(timeout)
	for {
		select {
		case <-ticker.C:
			if wp.completed.Load()+wp.failed.Load() == wp.submitted.Load() && wp.tasks.Len() == 0 {
				return nil
			}
		case <-deadline:
			return fmt.Errorf("timeout after %s waiting for task completion", timeout)
		}
	}
}
