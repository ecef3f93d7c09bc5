package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func noopTask(id string) Task {
	return Task{
		ID:      id,
		Execute: func(ctx context.Context, data interface{}) (interface{}, error) { return nil, nil },
	}
}

func TestNewRejectsInvalidWorkerCount(t *testing.T) {
	for _, count := range []int{0, -1} {
		pool, err := New(Config{WorkerCount: count}, nil)
		require.ErrorIs(t, err, ErrInvalidWorkerCount)
		require.Nil(t, pool)
	}
}

func TestSingleWorkerPreservesSubmissionOrder(t *testing.T) {
	pool, err := New(Config{WorkerCount: 1}, nil)
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		require.NoError(t, pool.Submit(Task{
			ID: "ordered",
			Execute: func(ctx context.Context, data interface{}) (interface{}, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil, nil
			},
		}))
	}

	pool.Shutdown()
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestAllTasksRunExactlyOnce(t *testing.T) {
	pool, err := New(Config{WorkerCount: 4}, nil)
	require.NoError(t, err)

	var counter atomic.Int64
	for i := 0; i < 100; i++ {
		require.NoError(t, pool.Submit(Task{
			ID: "count",
			Execute: func(ctx context.Context, data interface{}) (interface{}, error) {
				counter.Add(1)
				return nil, nil
			},
		}))
	}

	pool.Shutdown()

	assert.Equal(t, int64(100), counter.Load())
	stats := pool.Stats()
	assert.Equal(t, int64(100), stats.SubmittedTasks)
	assert.Equal(t, int64(100), stats.CompletedTasks)
	assert.Equal(t, int64(0), stats.FailedTasks)
	assert.False(t, stats.IsRunning)
}

func TestWorkerSurvivesPanickingTask(t *testing.T) {
	pool, err := New(Config{WorkerCount: 2}, nil)
	require.NoError(t, err)

	require.NoError(t, pool.Submit(Task{
		ID: "boom",
		Execute: func(ctx context.Context, data interface{}) (interface{}, error) {
			panic("task blew up")
		},
	}))

	executed := make(chan struct{})
	require.NoError(t, pool.Submit(Task{
		ID: "after-boom",
		Execute: func(ctx context.Context, data interface{}) (interface{}, error) {
			close(executed)
			return nil, nil
		},
	}))

	select {
	case <-executed:
	case <-time.After(2 * time.Second):
		t.Fatal("task submitted after a panic never ran")
	}

	pool.Shutdown()
	stats := pool.Stats()
	assert.Equal(t, int64(1), stats.FailedTasks)
	assert.Equal(t, int64(1), stats.CompletedTasks)
}

func TestImmediateShutdownReturnsPromptly(t *testing.T) {
	pool, err := New(Config{WorkerCount: 3}, nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown of an idle pool deadlocked")
	}
}

func TestConcurrencyNeverExceedsWorkerCount(t *testing.T) {
	const workers = 4
	pool, err := New(Config{WorkerCount: workers}, nil)
	require.NoError(t, err)

	var running, peak atomic.Int64
	for i := 0; i < 50; i++ {
		require.NoError(t, pool.Submit(Task{
			ID: "bounded",
			Execute: func(ctx context.Context, data interface{}) (interface{}, error) {
				now := running.Add(1)
				for {
					old := peak.Load()
					if now <= old || peak.CompareAndSwap(old, now) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				running.Add(-1)
				return nil, nil
			},
		}))
	}

	pool.Shutdown()
	assert.LessOrEqual(t, peak.Load(), int64(workers))
	assert.Positive(t, peak.Load())
}

func TestSubmitAfterShutdownIsRejected(t *testing.T) {
	pool, err := New(Config{WorkerCount: 1}, nil)
	require.NoError(t, err)
	pool.Shutdown()

	err = pool.Submit(noopTask("late"))
	assert.ErrorIs(t, err, ErrPoolStopped)
}

func TestShutdownDrainsQueuedTasks(t *testing.T) {
	pool, err := New(Config{WorkerCount: 1}, nil)
	require.NoError(t, err)

	var counter atomic.Int64
	block := make(chan struct{})
	require.NoError(t, pool.Submit(Task{
		ID: "slow",
		Execute: func(ctx context.Context, data interface{}) (interface{}, error) {
			<-block
			counter.Add(1)
			return nil, nil
		},
	}))
	for i := 0; i < 10; i++ {
		require.NoError(t, pool.Submit(Task{
			ID: "queued",
			Execute: func(ctx context.Context, data interface{}) (interface{}, error) {
				counter.Add(1)
				return nil, nil
			},
		}))
	}

	// Tasks are still queued behind the blocked one when shutdown begins.
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(block)
	}()
	pool.Shutdown()

	assert.Equal(t, int64(11), counter.Load(), "no queued task may vanish on shutdown")
}

func TestShutdownIsIdempotent(t *testing.T) {
	pool, err := New(Config{WorkerCount: 2}, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Shutdown()
		}()
	}
	wg.Wait()
}

func TestSubmitBatch(t *testing.T) {
	pool, err := New(Config{WorkerCount: 2}, nil)
	require.NoError(t, err)

	var counter atomic.Int64
	tasks := make([]Task, 5)
	for i := range tasks {
		tasks[i] = Task{
			ID: "batch",
			Execute: func(ctx context.Context, data interface{}) (interface{}, error) {
				counter.Add(1)
				return nil, nil
			},
		}
	}

	accepted, err := pool.SubmitBatch(tasks)
	require.NoError(t, err)
	assert.Equal(t, 5, accepted)

	pool.Shutdown()
	assert.Equal(t, int64(5), counter.Load())

	accepted, err = pool.SubmitBatch(tasks)
	assert.ErrorIs(t, err, ErrPoolStopped)
	assert.Equal(t, 0, accepted)
}

func TestResultHandlerReceivesOutcomes(t *testing.T) {
	pool, err := New(Config{WorkerCount: 1}, nil)
	require.NoError(t, err)

	var mu sync.Mutex
	results := make(map[string]error)
	pool.SetResultHandler(func(r Result) {
		mu.Lock()
		results[r.TaskID] = r.Error
		mu.Unlock()
	})

	wantErr := errors.New("expected failure")
	require.NoError(t, pool.Submit(Task{
		ID: "ok",
		Execute: func(ctx context.Context, data interface{}) (interface{}, error) {
			return "fine", nil
		},
	}))
	require.NoError(t, pool.Submit(Task{
		ID: "bad",
		Execute: func(ctx context.Context, data interface{}) (interface{}, error) {
			return nil, wantErr
		},
	}))

	pool.Shutdown()

	require.Len(t, results, 2)
	assert.NoError(t, results["ok"])
	assert.ErrorIs(t, results["bad"], wantErr)
}

func TestCallbackRunsAfterTask(t *testing.T) {
	pool, err := New(Config{WorkerCount: 1}, nil)
	require.NoError(t, err)

	got := make(chan interface{}, 1)
	require.NoError(t, pool.Submit(Task{
		ID:   "cb",
		Data: 21,
		Execute: func(ctx context.Context, data interface{}) (interface{}, error) {
			return data.(int) * 2, nil
		},
		Callback: func(result interface{}, err error) {
			got <- result
		},
	}))

	pool.Shutdown()

	select {
	case result := <-got:
		assert.Equal(t, 42, result)
	default:
		t.Fatal("callback never ran")
	}
}

func TestWaitForCompletion(t *testing.T) {
	pool, err := New(Config{WorkerCount: 2}, nil)
	require.NoError(t, err)
	defer pool.Shutdown()

	var counter atomic.Int64
	for i := 0; i < 20; i++ {
		require.NoError(t, pool.Submit(Task{
			ID: "wait",
			Execute: func(ctx context.Context, data interface{}) (interface{}, error) {
				time.Sleep(time.Millisecond)
				counter.Add(1)
				return nil, nil
			},
		}))
	}

	require.NoError(t, pool.WaitForCompletion(5*time.Second))
	assert.Equal(t, int64(20), counter.Load())
}

func BenchmarkSubmit(b *testing.B) {
	pool, err := New(Config{WorkerCount: 4}, nil)
	if err != nil {
		b.Fatal(err)
	}
	task := noopTask("bench")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pool.Submit(task)
	}
	b.StopTimer()
	pool.Shutdown()
}
