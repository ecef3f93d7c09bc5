package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskhive/taskhive-core/internal/core"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

type Job struct {
	ID          string               `json:"id"`
	Status      JobStatus            `json:"status"`
	Specs       []core.TaskSpec      `json:"-"`
	Results     map[int]TaskResult   `json:"results"`
	TotalCount  int                  `json:"total_count"`
	DoneCount   int                  `json:"done_count"`
	FailedCount int                  `json:"failed_count"`
	StartTime   *time.Time           `json:"start_time,omitempty"`
	EndTime     *time.Time           `json:"end_time,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	Error       string               `json:"error,omitempty"`
	mutex       sync.RWMutex
}

type TaskResult struct {
	Index      int    `json:"index"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	Output     string `json:"output,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

type MessageResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type SubmitRequest struct {
	Tasks []core.TaskSpec `json:"tasks"`
}

type SubmitResponse struct {
	JobID    string `json:"job_id"`
	Accepted int    `json:"accepted"`
	Skipped  int    `json:"skipped"`
}

type KindsResponse struct {
	Kinds []string `json:"kinds"`
}

type PoolStatus struct {
	WorkerCount    int    `json:"worker_count"`
	SubmittedTasks int64  `json:"submitted_tasks"`
	CompletedTasks int64  `json:"completed_tasks"`
	FailedTasks    int64  `json:"failed_tasks"`
	RunningTasks   int64  `json:"running_tasks"`
	QueueLength    int64  `json:"queue_length"`
	IsRunning      bool   `json:"is_running"`
	Uptime         string `json:"uptime"`
}

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

type VersionInfo struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
	Platform  string
}

type HealthResponse struct {
	Status     string     `json:"status"`
	Version    string     `json:"version"`
	Build      BuildInfo  `json:"build"`
	WorkerPool PoolStatus `json:"worker_pool"`
}

func NewJob(specs []core.TaskSpec) *Job {
	return &Job{
		ID:         uuid.NewString(),
		Status:     JobStatusPending,
		Specs:      specs,
		Results:    make(map[int]TaskResult, len(specs)),
		TotalCount: len(specs),
		CreatedAt:  time.Now(),
	}
}

func (j *Job) updateStatus(status JobStatus, err error) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	now := time.Now()
	j.Status = status
	if status == JobStatusRunning {
		j.StartTime = &now
	} else {
		j.EndTime = &now
	}
	if err != nil {
		j.Error = err.Error()
	}
}

func (j *Job) Start()         { j.updateStatus(JobStatusRunning, nil) }
func (j *Job) Complete()      { j.updateStatus(JobStatusCompleted, nil) }
func (j *Job) Fail(err error) { j.updateStatus(JobStatusFailed, err) }

// AddResult records one task outcome and reports whether it was the last.
func (j *Job) AddResult(result TaskResult) bool {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	j.Results[result.Index] = result
	j.DoneCount++
	if result.Error != "" {
		j.FailedCount++
	}
	return j.DoneCount >= j.TotalCount
}

// MarshalJSON snapshots the job under its lock so status reads never race
// the workers recording results.
func (j *Job) MarshalJSON() ([]byte, error) {
	j.mutex.RLock()
	defer j.mutex.RUnlock()

	results := make(map[int]TaskResult, len(j.Results))
	for index, result := range j.Results {
		results[index] = result
	}

	return json.Marshal(struct {
		ID          string             `json:"id"`
		Status      JobStatus          `json:"status"`
		Results     map[int]TaskResult `json:"results"`
		TotalCount  int                `json:"total_count"`
		DoneCount   int                `json:"done_count"`
		FailedCount int                `json:"failed_count"`
		StartTime   *time.Time         `json:"start_time,omitempty"`
		EndTime     *time.Time         `json:"end_time,omitempty"`
		CreatedAt   time.Time          `json:"created_at"`
		Error       string             `json:"error,omitempty"`
	}{
		ID:          j.ID,
		Status:      j.Status,
		Results:     results,
		TotalCount:  j.TotalCount,
		DoneCount:   j.DoneCount,
		FailedCount: j.FailedCount,
		StartTime:   j.StartTime,
		EndTime:     j.EndTime,
		CreatedAt:   j.CreatedAt,
		Error:       j.Error,
	})
}

// HashSpec keys a task spec for dedupe: same kind and payload, same hash.
func HashSpec(spec core.TaskSpec) string {
	sum := sha256.Sum256([]byte(spec.Kind + "\x00" + spec.Payload))
	return hex.EncodeToString(sum[:])
}
