// Package queue provides the durable job queue: submission, per-pod worker
// pools that claim and process jobs, and orphan recovery for jobs whose
// worker died mid-flight.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/northstar-pm/northstar/pkg/events"
	"github.com/northstar-pm/northstar/pkg/models"
)

// Sentinel errors for queue operations.
var (
	// ErrNoJobsAvailable indicates no pending jobs are in the queue.
	ErrNoJobsAvailable = errors.New("no jobs available")

	// ErrAtCapacity indicates the global concurrent job limit has been reached.
	ErrAtCapacity = errors.New("at capacity")

	// ErrJobNotTerminal indicates a result was requested for a job that is
	// still pending or processing.
	ErrJobNotTerminal = errors.New("job is not terminal")
)

// JobExecutor runs one claimed job to completion.
//
// The executor owns the orchestration pipeline internally and streams its
// events through the emitter as it goes. The worker only handles claiming,
// heartbeat, terminal status persistence, notification and event cleanup.
type JobExecutor interface {
	Execute(ctx context.Context, job *models.Job, emitter *events.Emitter) *ExecutionResult
}

// ExecutionResult is lightweight — just the terminal state. Stream events
// were already delivered through the emitter during processing.
type ExecutionResult struct {
	Status models.JobStatus // completed, failed, cancelled
	Result *models.MultiAgentResponse
	Err    error
}

// PoolHealth contains health information for the entire worker pool.
type PoolHealth struct {
	IsHealthy       bool           `json:"is_healthy"`
	DBReachable     bool           `json:"db_reachable"`
	DBError         string         `json:"db_error,omitempty"`
	PodID           string         `json:"pod_id"`
	ActiveWorkers   int            `json:"active_workers"`
	TotalWorkers    int            `json:"total_workers"`
	ActiveJobs      int            `json:"active_jobs"`
	MaxConcurrent   int            `json:"max_concurrent"`
	QueueDepth      int            `json:"queue_depth"`
	WorkerStats     []WorkerHealth `json:"worker_stats"`
	LastOrphanScan  time.Time      `json:"last_orphan_scan"`
	OrphansRequeued int            `json:"orphans_requeued"`
	OrphansFailed   int            `json:"orphans_failed"`
}

// WorkerHealth contains health information for a single worker.
type WorkerHealth struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"` // "idle" or "working"
	CurrentJobID  string    `json:"current_job_id,omitempty"`
	JobsProcessed int       `json:"jobs_processed"`
	LastActivity  time.Time `json:"last_activity"`
}
