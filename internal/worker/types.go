package workerpool

import (
	"context"
	"time"
)

// Task is one unit of work. Execute receives the task payload; the pool
// never inspects Data or the returned value, it only records success or
// failure. Callback, when set, runs on the worker after the result handler.
type Task struct {
	ID       string
	Data     interface{}
	Execute  func(ctx context.Context, data interface{}) (interface{}, error)
	Callback func(result interface{}, err error)
}

type Result struct {
	TaskID    string
	Result    interface{}
	Error     error
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

type Config struct {
	WorkerCount int
}

type Stats struct {
	WorkerCount    int
	SubmittedTasks int64
	CompletedTasks int64
	FailedTasks    int64
	RunningTasks   int64
	QueueLength    int64
	Uptime         time.Duration
	IsRunning      bool
}
