package workerpool

import "context"

// Future holds the eventual result of a task submitted with SubmitFuture.
// The queue/worker contract is untouched: the future is resolved by the
// task's own callback on the worker goroutine.
type Future struct {
	done   chan struct{}
	result interface{}
	err    error
}

// Done is closed once the task has finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Get blocks until the task finishes or ctx is done. After the first
// return it keeps returning the same values.
func (f *Future) Get(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SubmitFuture enqueues task like Submit and returns a Future for its
// result. The task's original callback, if any, still runs after the
// future is resolved.
func (wp *WorkerPool) SubmitFuture(task Task) (*Future, error) {
	f := &Future{done: make(chan struct{})}

	callback := task.Callback
	task.Callback = func(result interface{}, err error) {
		f.result = result
		f.err = err
		close(f.done)
		if callback != nil {
			callback(result, err)
		}
	}

	if err := wp.Submit(task); err != nil {
		return nil, err
	}
	return f, nil
}
