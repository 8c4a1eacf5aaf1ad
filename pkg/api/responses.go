package api

import "github.com/northstar-pm/northstar/pkg/models"

// SubmitJobResponse is returned by POST /api/v1/jobs with 202 Accepted.
type SubmitJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobResultResponse is returned by GET /api/v1/jobs/:id/result once the
// job is terminal. Result is set for completed jobs, Error for failed ones.
type JobResultResponse struct {
	JobID  string                     `json:"job_id"`
	Status models.JobStatus           `json:"status"`
	Result *models.MultiAgentResponse `json:"result,omitempty"`
	Error  string                     `json:"error,omitempty"`
}

// CancelJobResponse is returned by POST /api/v1/jobs/:id/cancel.
type CancelJobResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks"`
}

// HealthCheck is the status of a single subsystem within HealthResponse.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
