package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/taskhive/taskhive-core/internal/core"
	"github.com/taskhive/taskhive-core/internal/store"
	workerpool "github.com/taskhive/taskhive-core/internal/worker"
	"go.uber.org/zap"
)

// JobDoneHandler is invoked once per finished job, after its results have
// been persisted.
type JobDoneHandler func(job *Job)

type Handler struct {
	core        *core.Core
	pool        *workerpool.WorkerPool
	store       store.Store
	jobs        sync.Map
	logger      *zap.Logger
	onJobDone   JobDoneHandler
	versionInfo VersionInfo
	resultTTL   time.Duration
	dedupeTTL   time.Duration
}

func NewHandler(c *core.Core, pool *workerpool.WorkerPool, st store.Store, onJobDone JobDoneHandler, logger *zap.Logger, versionInfo VersionInfo, resultTTL, dedupeTTL time.Duration) *Handler {
	return &Handler{
		core:        c,
		pool:        pool,
		store:       st,
		logger:      logger,
		onJobDone:   onJobDone,
		versionInfo: versionInfo,
		resultTTL:   resultTTL,
		dedupeTTL:   dedupeTTL,
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("invalid JSON", zap.Error(err))
		writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if len(req.Tasks) == 0 {
		writeError(w, "No tasks provided", http.StatusBadRequest)
		return
	}

	specs, skipped, err := h.filterDuplicates(r.Context(), req.Tasks)
	if err != nil {
		h.logger.Error("failed to filter duplicates", zap.Error(err))
		writeError(w, "Failed to filter duplicates", http.StatusInternalServerError)
		return
	}
	if len(specs) == 0 {
		writeError(w, "All tasks were recently executed", http.StatusConflict)
		return
	}

	job := NewJob(specs)
	h.jobs.Store(job.ID, job)
	job.Start()

	for i, spec := range specs {
		index := i
		if err := h.pool.Submit(workerpool.Task{
			ID:       fmt.Sprintf("%s/%d", job.ID, index),
			Data:     spec,
			Execute:  h.executeSpec,
			Callback: h.recordResult(job, index),
		}); err != nil {
			h.logger.Error("failed to submit task",
				zap.String("job_id", job.ID),
				zap.Int("index", index),
				zap.Error(err))
			job.Fail(err)
			writeError(w, "Failed to submit tasks", http.StatusServiceUnavailable)
			return
		}
	}

	h.logger.Info("job accepted",
		zap.String("job_id", job.ID),
		zap.Int("tasks", len(specs)),
		zap.Int("skipped", skipped))

	writeJSON(w, SubmitResponse{JobID: job.ID, Accepted: len(specs), Skipped: skipped})
}

// executeSpec runs on a pool worker.
func (h *Handler) executeSpec(ctx context.Context, data interface{}) (interface{}, error) {
	spec := data.(core.TaskSpec)
	outcome, err := h.core.Run(ctx, spec)
	if err != nil {
		return nil, err
	}
	if outcome.Status == core.OutcomeStatusError {
		return outcome, fmt.Errorf("task kind %s failed: %s", outcome.Kind, outcome.Error)
	}
	return outcome, nil
}

// recordResult folds one task outcome into its job; the last outcome
// completes the job, persists it, and fires the done hook.
func (h *Handler) recordResult(job *Job, index int) func(result interface{}, err error) {
	return func(result interface{}, err error) {
		taskResult := TaskResult{Index: index, Kind: job.Specs[index].Kind}
		if outcome, ok := result.(core.TaskOutcome); ok {
			taskResult.Status = string(outcome.Status)
			taskResult.Output = outcome.Output
			taskResult.DurationMs = outcome.Duration.Milliseconds()
			taskResult.Error = outcome.Error
		}
		if err != nil {
			taskResult.Status = string(core.OutcomeStatusError)
			taskResult.Error = err.Error()
		}

		if !job.AddResult(taskResult) {
			return
		}

		job.Complete()
		if err := h.persistJob(job); err != nil {
			h.logger.Error("failed to persist job results",
				zap.String("job_id", job.ID),
				zap.Error(err))
		}
		h.logger.Info("job completed",
			zap.String("job_id", job.ID),
			zap.Int("total", job.TotalCount),
			zap.Int("failed", job.FailedCount))

		if h.onJobDone != nil {
			h.onJobDone(job)
		}
	}
}

func (h *Handler) persistJob(job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.store.Set(ctx, "job_results:"+job.ID, data, h.resultTTL)
}

func (h *Handler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if value, exists := h.jobs.Load(id); exists {
		writeJSON(w, value.(*Job))
		return
	}

	// Fall back to persisted results for jobs evicted from memory.
	if data, err := h.store.Get(r.Context(), "job_results:"+id); err == nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
		return
	}

	writeError(w, "Job not found", http.StatusNotFound)
}

func (h *Handler) handleKinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, KindsResponse{Kinds: h.core.Kinds()})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := h.pool.Stats()
	writeJSON(w, HealthResponse{
		Status:  "ok",
		Version: h.versionInfo.Version,
		Build: BuildInfo{
			Version:   h.versionInfo.Version,
			Commit:    h.versionInfo.Commit,
			Date:      h.versionInfo.Date,
			GoVersion: h.versionInfo.GoVersion,
			Platform:  h.versionInfo.Platform,
		},
		WorkerPool: PoolStatus{
			WorkerCount:    stats.WorkerCount,
			SubmittedTasks: stats.SubmittedTasks,
			CompletedTasks: stats.CompletedTasks,
			FailedTasks:    stats.FailedTasks,
			RunningTasks:   stats.RunningTasks,
			QueueLength:    stats.QueueLength,
			IsRunning:      stats.IsRunning,
			Uptime:         stats.Uptime.String(),
		},
	})
}

// filterDuplicates drops specs whose hash was executed within the dedupe
// window and marks the survivors. Skipping is per kind+payload, so two
// jobs probing the same target seconds apart run the probe once.
func (h *Handler) filterDuplicates(ctx context.Context, specs []core.TaskSpec) ([]core.TaskSpec, int, error) {
	if h.dedupeTTL <= 0 {
		return specs, 0, nil
	}

	keys := make([]string, len(specs))
	for i, spec := range specs {
		keys[i] = "task:" + HashSpec(spec)
	}

	found, err := h.store.Exists(ctx, keys...)
	if err != nil {
		return nil, 0, err
	}

	unique := make([]core.TaskSpec, 0, len(specs))
	for i, spec := range specs {
		if found[i] {
			continue
		}
		if err := h.store.Set(ctx, keys[i], []byte("1"), h.dedupeTTL); err != nil {
			return nil, 0, err
		}
		unique = append(unique, spec)
	}
	return unique, len(specs) - len(unique), nil
}

// Close stops the pool, draining queued tasks first.
func (h *Handler) Close() {
	h.pool.Shutdown()
}

// Helper functions
func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(MessageResponse{
		Status:  code,
		Message: message,
	}); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
