package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/northstar-pm/northstar/pkg/events"
	"github.com/northstar-pm/northstar/pkg/models"
)

// Orchestrator runs one chat request through the multi-agent pipeline
// while streaming its events. *orchestrator.Coordinator implements it.
type Orchestrator interface {
	ProcessStream(ctx context.Context, req *models.ChatRequest, emitter *events.Emitter) (*models.MultiAgentResponse, error)
}

// CoordinatorExecutor adapts the orchestrator to the queue's executor
// contract: it turns a (response, error) pair into a terminal status,
// classifying context errors so timeouts and cancellations land in the
// right state.
type CoordinatorExecutor struct {
	orch Orchestrator
}

// NewCoordinatorExecutor creates the production executor.
func NewCoordinatorExecutor(orch Orchestrator) *CoordinatorExecutor {
	return &CoordinatorExecutor{orch: orch}
}

// Execute runs the job's request through the orchestrator.
func (e *CoordinatorExecutor) Execute(ctx context.Context, job *models.Job, emitter *events.Emitter) *ExecutionResult {
	if job == nil || job.Request == nil {
		return &ExecutionResult{
			Status: models.JobFailed,
			Err:    errors.New("job has no request payload"),
		}
	}

	response, err := e.orch.ProcessStream(ctx, job.Request, emitter)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return &ExecutionResult{Status: models.JobCancelled, Err: err}
		case errors.Is(err, context.DeadlineExceeded):
			return &ExecutionResult{
				Status: models.JobFailed,
				Err:    fmt.Errorf("orchestration timed out: %w", err),
			}
		default:
			slog.Error("Orchestration failed", "job_id", job.ID, "error", err)
			return &ExecutionResult{Status: models.JobFailed, Err: err}
		}
	}

	return &ExecutionResult{Status: models.JobCompleted, Result: response}
}
