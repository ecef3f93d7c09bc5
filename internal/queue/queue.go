// Package queue provides the FIFO hand-off between task producers and
// pool workers. Producers never block on Push; workers block in Pop until
// a task arrives or the queue is stopped.
package queue

import "sync"

// Task is a zero-argument unit of work. The queue owns a task from Push
// until a worker takes it in Pop; it is never requeued or reused.
type Task func()

// TaskQueue is an unbounded FIFO guarded by a single mutex. The stop flag
// lives under the same lock as the items so a stop request can never race
// a worker's empty-check-then-wait sequence.
type TaskQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	items    []Task
	stopped  bool
}

func NewTaskQueue() *TaskQueue {
	q := &TaskQueue{}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Push appends task at the tail and wakes one waiting worker.
// Push never fails and never blocks beyond the lock hand-off;
// pushing to a stopped queue is a no-op and reports false.
func (q *TaskQueue) Push(task Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return false
	}
	q.items = append(q.items, task)
	q.notEmpty.Signal()
	return true
}

// Pop removes and returns the head task, blocking while the queue is
// empty. It returns (nil, false) only when the queue is empty and stop
// has been requested, which is the workers' shutdown signal. Tasks still
// queued at stop time keep being handed out until the queue drains.
func (q *TaskQueue) Pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// Predicate loop: a single wakeup is not proof of anything.
	for len(q.items) == 0 && !q.stopped {
		q.notEmpty.Wait()
	}

	if len(q.items) == 0 {
		return nil, false
	}

	task := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return task, true
}

// RequestStop marks the queue stopped and wakes every waiter so each
// blocked Pop re-evaluates its exit condition.
func (q *TaskQueue) RequestStop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.notEmpty.Broadcast()
}

func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *TaskQueue) Stopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}
