package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/northstar-pm/northstar/pkg/models"
	"github.com/northstar-pm/northstar/pkg/services"
)

// JobStatusView is the polling view of a job returned by Status.
type JobStatusView struct {
	JobID       string           `json:"job_id"`
	Status      models.JobStatus `json:"status"`
	Progress    float64          `json:"progress"`
	Message     string           `json:"message,omitempty"`
	Attempts    int              `json:"attempts"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// JobManager is the client face of the queue: submit a job, poll its
// status, fetch its result, cancel it. Workers pick submissions up through
// the shared jobs table; the manager never talks to workers directly, so
// submission works even on pods that run no workers.
type JobManager struct {
	jobs *services.JobService
	pool *WorkerPool // optional: local cancel fast path
}

// NewJobManager creates a job manager. pool may be nil when this pod runs
// no workers; cancellation then relies on the database status check alone.
func NewJobManager(jobs *services.JobService, pool *WorkerPool) *JobManager {
	return &JobManager{jobs: jobs, pool: pool}
}

// Submit enqueues a chat request as a durable job and returns its ID.
func (m *JobManager) Submit(ctx context.Context, req *models.ChatRequest) (string, error) {
	job, err := m.jobs.CreateJob(ctx, req)
	if err != nil {
		return "", err
	}
	slog.Info("Job submitted", "job_id", job.ID, "user_id", job.UserID)
	return job.ID, nil
}

// Status returns the polling view of a job.
func (m *JobManager) Status(ctx context.Context, jobID string) (*JobStatusView, error) {
	job, err := m.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &JobStatusView{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		Message:     job.Message,
		Attempts:    job.Attempts,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}, nil
}

// Result returns the full job row for a terminal job: the stored result
// for completed jobs, the stored error for failed ones. Non-terminal jobs
// return ErrJobNotTerminal so the API can answer 409.
func (m *JobManager) Result(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := m.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", ErrJobNotTerminal, job.Status)
	}
	return job, nil
}

// Cancel marks a job cancelled and, when it is running on this pod,
// cancels its context so the worker stops promptly. Jobs running on other
// pods stop at their next cooperative status check.
func (m *JobManager) Cancel(ctx context.Context, jobID string) error {
	if err := m.jobs.CancelJob(ctx, jobID); err != nil {
		return err
	}
	if m.pool != nil {
		if m.pool.CancelJob(jobID) {
			slog.Info("Job cancelled locally", "job_id", jobID)
		}
	}
	return nil
}
