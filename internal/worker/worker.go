package workerpool

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

type worker struct {
	id   int
	pool *WorkerPool
}

// run is the worker loop: block for a task, execute it, repeat. It exits
// only when the queue reports empty-and-stopped, so tasks queued before
// shutdown are always drained.
func (w *worker) run() {
	defer w.pool.wg.Done()

	for {
		task, ok := w.pool.tasks.Pop()
		if !ok {
			w.pool.logger.Debug("worker exiting", zap.Int("worker_id", w.id))
			return
		}
		task()
	}
}

// execute runs one task with panic containment. A panicking task counts
// as failed and must not take the worker down with it; losing the
// goroutine would silently shrink the pool.
func (wp *WorkerPool) execute(task Task) {
	wp.running.Add(1)
	defer wp.running.Add(-1)

	startTime := time.Now()
	result, err := wp.runGuarded(task)
	endTime := time.Now()

	if err != nil {
		wp.failed.Add(1)
		wp.logger.Warn("task failed",
			zap.String("task_id", task.ID),
			zap.Error(err))
	} else {
		wp.completed.Add(1)
	}

	if handler, _ := wp.resultHandler.Load().(func(Result)); handler != nil {
		handler(Result{
			TaskID:    task.ID,
			Result:    result,
			Error:     err,
			StartTime: startTime,
			EndTime:   endTime,
			Duration:  endTime.Sub(startTime),
		})
	}
	if task.Callback != nil {
		task.Callback(result, err)
	}
}

func (wp *WorkerPool) runGuarded(task Task) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("task %s panicked: %v", task.ID, r)
		}
	}()
	return task.Execute(wp.ctx, task.Data)
}
