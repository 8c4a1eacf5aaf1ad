package services

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/northstar-pm/northstar/pkg/models"
)

// jobColumns is the scan order shared by every job query.
const jobColumns = `id, user_id, status, progress, message, request, result, error,
	attempts, COALESCE(pod_id, ''), created_at, started_at, completed_at, heartbeat_at`

// JobService owns the jobs table. Every status write is guarded so
// terminal rows stay immutable: a completion racing a cancellation loses
// silently instead of resurrecting the job.
type JobService struct {
	db *stdsql.DB
}

// NewJobService creates a JobService on the shared pool.
func NewJobService(db *stdsql.DB) *JobService {
	return &JobService{db: db}
}

// CreateJob inserts a pending job for the request and returns it.
func (s *JobService) CreateJob(ctx context.Context, req *models.ChatRequest) (*models.Job, error) {
	if req == nil || req.Query == "" {
		return nil, NewValidationError("query", "required")
	}

	requestJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job request: %w", err)
	}

	job := &models.Job{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Status:    models.JobPending,
		Request:   req,
		CreatedAt: time.Now().UTC(),
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = s.db.ExecContext(writeCtx,
		`INSERT INTO jobs (id, user_id, status, request, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5)`,
		job.ID, job.UserID, string(job.Status), string(requestJSON), job.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

// GetJob retrieves one job by ID.
func (s *JobService) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, jobID)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// ClaimNextPending atomically claims the oldest pending job for podID and
// transitions it to processing. Returns (nil, nil) when the queue is
// empty. SKIP LOCKED lets concurrent workers claim disjoint rows without
// serialising on each other.
func (s *JobService) ClaimNextPending(ctx context.Context, podID string) (*models.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE jobs SET
			status = 'processing',
			pod_id = $1,
			attempts = attempts + 1,
			started_at = now(),
			heartbeat_at = now()
		WHERE id = (
			SELECT id FROM jobs WHERE status = 'pending'
			ORDER BY created_at LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns, podID)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	return job, nil
}

// UpdateProgress records progress on a live job. Writes against terminal
// or unclaimed rows are dropped by the guard.
func (s *JobService) UpdateProgress(ctx context.Context, jobID string, progress float64, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET progress = $2, message = $3
		WHERE id = $1 AND status = 'processing'`,
		jobID, progress, message)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// Heartbeat refreshes the claim on a processing job. The pod check keeps a
// worker that lost its claim to orphan recovery from touching the row.
func (s *JobService) Heartbeat(ctx context.Context, jobID, podID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET heartbeat_at = now()
		WHERE id = $1 AND pod_id = $2 AND status = 'processing'`,
		jobID, podID)
	if err != nil {
		return fmt.Errorf("failed to heartbeat job: %w", err)
	}
	return nil
}

// CompleteJob writes the terminal completed state with the result. If a
// cancellation won the race the write is silently dropped; terminal rows
// are immutable.
func (s *JobService) CompleteJob(_ context.Context, jobID string, result *models.MultiAgentResponse) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal job result: %w", err)
	}
	return s.finishJob(jobID, models.JobCompleted, string(resultJSON), "")
}

// FailJob writes the terminal failed state with the error message.
func (s *JobService) FailJob(_ context.Context, jobID string, errMsg string) error {
	return s.finishJob(jobID, models.JobFailed, "", errMsg)
}

// finishJob performs the guarded terminal transition. The write uses a
// background context so a terminal state lands even when the surrounding
// request or shutdown context is already cancelled.
func (s *JobService) finishJob(jobID string, status models.JobStatus, resultJSON, errMsg string) error {
	writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(writeCtx,
		`UPDATE jobs SET
			status = $2,
			progress = 1.0,
			result = NULLIF($3, '')::jsonb,
			error = NULLIF($4, ''),
			completed_at = now()
		WHERE id = $1 AND status IN ('pending', 'processing')`,
		jobID, string(status), resultJSON, errMsg)
	if err != nil {
		return fmt.Errorf("failed to finish job: %w", err)
	}
	return nil
}

// CancelJob transitions a non-terminal job to cancelled. Returns
// ErrNotCancellable when the job is already terminal and ErrJobNotFound
// when it does not exist.
func (s *JobService) CancelJob(ctx context.Context, jobID string) error {
	writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := s.db.ExecContext(writeCtx,
		`UPDATE jobs SET status = 'cancelled', completed_at = now()
		WHERE id = $1 AND status IN ('pending', 'processing')`,
		jobID)
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read cancel result: %w", err)
	}
	if rows > 0 {
		return nil
	}

	// Nothing updated: either the job is gone or it is already terminal.
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return err
	}
	return ErrNotCancellable
}

// RequeueJob returns a processing job to pending, releasing the claim.
// Orphan recovery uses it for first-death retries.
func (s *JobService) RequeueJob(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET
			status = 'pending',
			pod_id = NULL,
			started_at = NULL,
			heartbeat_at = NULL,
			progress = 0,
			message = ''
		WHERE id = $1 AND status = 'processing'`,
		jobID)
	if err != nil {
		return fmt.Errorf("failed to requeue job: %w", err)
	}
	return nil
}

// RequeuePodJobs returns every processing job claimed by podID to pending.
// Called at startup so a restarted pod recovers its own orphans without
// waiting for the stale-heartbeat scan.
func (s *JobService) RequeuePodJobs(ctx context.Context, podID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET
			status = 'pending',
			pod_id = NULL,
			started_at = NULL,
			heartbeat_at = NULL,
			progress = 0,
			message = ''
		WHERE pod_id = $1 AND status = 'processing'`,
		podID)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue pod jobs: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read requeue result: %w", err)
	}
	return int(rows), nil
}

// FindOrphanedJobs returns processing jobs whose heartbeat is older than
// staleAfter.
func (s *JobService) FindOrphanedJobs(ctx context.Context, staleAfter time.Duration) ([]*models.Job, error) {
	threshold := time.Now().Add(-staleAfter)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs
		WHERE status = 'processing' AND heartbeat_at IS NOT NULL AND heartbeat_at < $1`,
		threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to find orphaned jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan orphaned job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orphaned jobs: %w", err)
	}
	return jobs, nil
}

// CountProcessing returns how many jobs are processing across all pods.
// The worker pool consults it to honour the global concurrency cap.
func (s *JobService) CountProcessing(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jobs WHERE status = 'processing'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count processing jobs: %w", err)
	}
	return count, nil
}

// CountProcessingForPod returns how many jobs the given pod is processing.
func (s *JobService) CountProcessingForPod(ctx context.Context, podID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jobs WHERE status = 'processing' AND pod_id = $1`,
		podID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count processing jobs for pod: %w", err)
	}
	return count, nil
}

// CountPending returns the queue depth (jobs waiting for a claim).
func (s *JobService) CountPending(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jobs WHERE status = 'pending'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending jobs: %w", err)
	}
	return count, nil
}

// DeleteTerminalJobsBefore removes terminal jobs completed before cutoff
// and returns how many were deleted.
func (s *JobService) DeleteTerminalJobsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := s.db.ExecContext(writeCtx,
		`DELETE FROM jobs
		WHERE status IN ('completed', 'failed', 'cancelled') AND completed_at < $1`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete terminal jobs: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}
	return int(rows), nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanJob reads one job row in jobColumns order.
func scanJob(row rowScanner) (*models.Job, error) {
	var (
		job         models.Job
		status      string
		requestJSON []byte
		resultJSON  []byte
		errMsg      stdsql.NullString
		startedAt   stdsql.NullTime
		completedAt stdsql.NullTime
		heartbeatAt stdsql.NullTime
	)

	err := row.Scan(&job.ID, &job.UserID, &status, &job.Progress, &job.Message,
		&requestJSON, &resultJSON, &errMsg, &job.Attempts, &job.PodID,
		&job.CreatedAt, &startedAt, &completedAt, &heartbeatAt)
	if err != nil {
		return nil, err
	}

	job.Status = models.JobStatus(status)
	job.Error = errMsg.String
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	if heartbeatAt.Valid {
		job.HeartbeatAt = &heartbeatAt.Time
	}

	if len(requestJSON) > 0 {
		job.Request = &models.ChatRequest{}
		if err := json.Unmarshal(requestJSON, job.Request); err != nil {
			return nil, fmt.Errorf("failed to decode job request: %w", err)
		}
	}
	if len(resultJSON) > 0 {
		job.Result = &models.MultiAgentResponse{}
		if err := json.Unmarshal(resultJSON, job.Result); err != nil {
			return nil, fmt.Errorf("failed to decode job result: %w", err)
		}
	}
	return &job, nil
}
