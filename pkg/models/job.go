package models

import "time"

// JobStatus is the lifecycle state of an async orchestration job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
// Terminal rows are immutable; workers guard every write with a
// status-in-('pending','processing') predicate.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// IsValid reports whether s is a known job status.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobPending, JobProcessing, JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// Job is one queued orchestration request with its progress and outcome.
type Job struct {
	ID     string    `json:"id"`
	UserID string    `json:"user_id,omitempty"`
	Status JobStatus `json:"status"`

	// Progress is 0.0..1.0; Message is the latest human-readable step.
	Progress float64 `json:"progress"`
	Message  string  `json:"message,omitempty"`

	// Request is the submitted ChatRequest; Result holds the
	// MultiAgentResponse once the job completes.
	Request *ChatRequest        `json:"request,omitempty"`
	Result  *MultiAgentResponse `json:"result,omitempty"`
	Error   string              `json:"error,omitempty"`

	// Attempts counts claims of this job; orphaned jobs are re-queued
	// until the configured attempt limit is reached.
	Attempts int `json:"attempts"`

	// PodID identifies the worker instance holding the claim.
	PodID string `json:"pod_id,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	HeartbeatAt *time.Time `json:"heartbeat_at,omitempty"`
}
