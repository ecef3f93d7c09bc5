package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopFIFO(t *testing.T) {
	q := NewTaskQueue()

	var order []int
	for i := 1; i <= 5; i++ {
		i := i
		require.True(t, q.Push(func() { order = append(order, i) }))
	}
	require.Equal(t, 5, q.Len())

	for i := 0; i < 5; i++ {
		task, ok := q.Pop()
		require.True(t, ok)
		task()
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, order)
	assert.Equal(t, 0, q.Len())
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := NewTaskQueue()

	got := make(chan struct{})
	go func() {
		task, ok := q.Pop()
		if ok {
			task()
		}
		close(got)
	}()

	// Give the consumer time to enter the wait.
	time.Sleep(20 * time.Millisecond)

	executed := make(chan struct{})
	q.Push(func() { close(executed) })

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("pop did not wake after push")
	}
	select {
	case <-executed:
	case <-time.After(time.Second):
		t.Fatal("popped task was not the pushed one")
	}
}

func TestStopDrainsQueuedTasks(t *testing.T) {
	q := NewTaskQueue()

	for i := 0; i < 3; i++ {
		q.Push(func() {})
	}
	q.RequestStop()

	for i := 0; i < 3; i++ {
		task, ok := q.Pop()
		require.True(t, ok, "queued task %d must survive stop", i)
		require.NotNil(t, task)
	}

	task, ok := q.Pop()
	assert.False(t, ok)
	assert.Nil(t, task)
}

func TestPushAfterStopIsRejected(t *testing.T) {
	q := NewTaskQueue()
	q.RequestStop()

	assert.False(t, q.Push(func() {}))
	assert.Equal(t, 0, q.Len())
	assert.True(t, q.Stopped())
}

func TestRequestStopWakesAllWaiters(t *testing.T) {
	q := NewTaskQueue()

	const waiters = 8
	var wg sync.WaitGroup
	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			defer wg.Done()
			_, ok := q.Pop()
			assert.False(t, ok)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	q.RequestStop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not all waiters woke after stop")
	}
}

func TestConcurrentProducers(t *testing.T) {
	q := NewTaskQueue()

	const producers = 4
	const perProducer = 50

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(func() {})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.Len())
}
