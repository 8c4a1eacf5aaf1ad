package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/northstar-pm/northstar/pkg/models"
)

// submitJobHandler handles POST /api/v1/jobs.
// Enqueues the chat request for background orchestration and returns 202
// with the job ID. Progress and results flow through the jobs endpoints
// and the WebSocket channel job:<id>.
func (s *Server) submitJobHandler(c *echo.Context) error {
	// 1. Bind and validate request body
	req, err := s.bindChatRequest(c)
	if err != nil {
		return err
	}

	// 2. Enqueue
	jobID, err := s.jobs.Submit(c.Request().Context(), req)
	if err != nil {
		return mapServiceError(err)
	}

	// 3. Accepted: processing happens on the worker pool
	return c.JSON(http.StatusAccepted, SubmitJobResponse{
		JobID:  jobID,
		Status: string(models.JobPending),
	})
}

// jobStatusHandler handles GET /api/v1/jobs/:id.
func (s *Server) jobStatusHandler(c *echo.Context) error {
	jobID := c.Param("id")
	if jobID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "job id is required")
	}

	status, err := s.jobs.Status(c.Request().Context(), jobID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, status)
}

// jobResultHandler handles GET /api/v1/jobs/:id/result.
// Returns 409 while the job is still pending or processing.
func (s *Server) jobResultHandler(c *echo.Context) error {
	jobID := c.Param("id")
	if jobID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "job id is required")
	}

	job, err := s.jobs.Result(c.Request().Context(), jobID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, JobResultResponse{
		JobID:  job.ID,
		Status: job.Status,
		Result: job.Result,
		Error:  job.Error,
	})
}

// cancelJobHandler handles POST /api/v1/jobs/:id/cancel.
// Marks the job cancelled and interrupts it if a worker on this pod is
// executing it; workers on other pods notice through the heartbeat check.
func (s *Server) cancelJobHandler(c *echo.Context) error {
	jobID := c.Param("id")
	if jobID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "job id is required")
	}

	if err := s.jobs.Cancel(c.Request().Context(), jobID); err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, CancelJobResponse{
		JobID:   jobID,
		Status:  string(models.JobCancelled),
		Message: "job cancelled",
	})
}
