package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/events"
	"github.com/northstar-pm/northstar/pkg/models"
	"github.com/northstar-pm/northstar/pkg/notify"
	"github.com/northstar-pm/northstar/pkg/services"
)

// eventCleanupGrace is how long a finished job's stream events stay in the
// database so late subscribers can still catch up on the terminal event.
const eventCleanupGrace = 60 * time.Second

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// JobRegistry is the subset of WorkerPool used by Worker for job registration.
type JobRegistry interface {
	RegisterJob(jobID string, cancel context.CancelFunc)
	UnregisterJob(jobID string)
}

// progressStore is the slice of JobService the event sink folds progress into.
type progressStore interface {
	UpdateProgress(ctx context.Context, jobID string, progress float64, message string) error
}

// Worker is a single queue worker that polls for and processes jobs.
type Worker struct {
	id        string
	podID     string
	jobs      *services.JobService
	jobEvents *services.EventService
	config    *config.QueueConfig
	executor  JobExecutor
	publisher *events.EventPublisher
	notifier  *notify.Service
	pool      JobRegistry
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	// Health tracking
	mu            sync.RWMutex
	status        WorkerStatus
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

// NewWorker creates a new queue worker.
// publisher may be nil (streaming disabled).
// notifier may be nil (Slack notifications disabled).
func NewWorker(id, podID string, jobs *services.JobService, jobEvents *services.EventService, cfg *config.QueueConfig, executor JobExecutor, pool JobRegistry, publisher *events.EventPublisher, notifier *notify.Service) *Worker {
	return &Worker{
		id:           id,
		podID:        podID,
		jobs:         jobs,
		jobEvents:    jobEvents,
		config:       cfg,
		executor:     executor,
		publisher:    publisher,
		notifier:     notifier,
		pool:         pool,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish.
// It is safe to call Stop multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        string(w.status),
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		LastActivity:  w.lastActivity,
	}
}

// run is the main worker loop.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id, "pod_id", w.podID)
	log.Info("Worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("Worker shutting down")
			return
		case <-ctx.Done():
			log.Info("Context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoJobsAvailable) || errors.Is(err, ErrAtCapacity) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("Error processing job", "error", err)
				w.sleep(time.Second) // Brief backoff on error
			}
		}
	}
}

// sleep waits for the given duration or until stop is signalled.
func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess checks capacity, claims a job, and processes it.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	// 1. Check global capacity (best-effort; racy with concurrent workers but
	//    bounded by WorkerCount and mitigated by poll jitter).
	activeCount, err := w.jobs.CountProcessing(ctx)
	if err != nil {
		return fmt.Errorf("checking active jobs: %w", err)
	}
	if activeCount >= w.config.MaxConcurrentJobs {
		return ErrAtCapacity
	}

	// 2. Claim next job (atomic FIFO claim; nil means the queue is empty)
	job, err := w.jobs.ClaimNextPending(ctx, w.podID)
	if err != nil {
		return fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return ErrNoJobsAvailable
	}

	log := slog.With("job_id", job.ID, "worker_id", w.id)
	log.Info("Job claimed", "attempts", job.Attempts)

	started := time.Now()
	w.setStatus(WorkerStatusWorking, job.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	// 3. Create job context with timeout
	jobCtx, cancelJob := context.WithTimeout(ctx, w.config.JobTimeout.Duration())
	defer cancelJob()

	// 4. Register cancel function for API-triggered cancellation
	w.pool.RegisterJob(job.ID, cancelJob)
	defer w.pool.UnregisterJob(job.ID)

	// 5. Start heartbeat (also the cooperative cancellation check for
	//    cancels issued on other pods)
	heartbeatCtx, cancelHeartbeat := context.WithCancel(jobCtx)
	defer cancelHeartbeat()
	go w.runHeartbeat(heartbeatCtx, job.ID, cancelJob)

	// 6. Execute: stream events go out through the publisher and progress
	//    events are folded into the job row for polling clients
	var publish events.Sink
	if w.publisher != nil {
		publish = events.NewPublishingSink(w.publisher, job.ID)
	}
	emitter := events.NewEmitter(newJobSink(job.ID, w.jobs, publish), job.ID)

	result := w.executor.Execute(jobCtx, job, emitter)

	// 7. Normalise missing results against the context state
	result = resolveResult(result, jobCtx.Err(), w.config.JobTimeout.Duration())

	// 8. Stop heartbeat before the terminal write
	cancelHeartbeat()

	// 9. Terminal status, terminal event, Slack, event cleanup
	w.finishJob(job, result, emitter, started)

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()

	log.Info("Job processing complete", "status", result.Status)
	return nil
}

// resolveResult maps a nil or statusless executor result onto the job
// context's state: a deadline becomes a failure, cancellation stays
// cancellation. Runs after execution so a timeout that fired mid-run wins
// over a zero-value result.
func resolveResult(result *ExecutionResult, ctxErr error, timeout time.Duration) *ExecutionResult {
	if result != nil && result.Status != "" {
		return result
	}

	resolved := &ExecutionResult{}
	if result != nil {
		*resolved = *result
	}
	switch {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		resolved.Status = models.JobFailed
		resolved.Err = fmt.Errorf("job timed out after %v", timeout)
	case errors.Is(ctxErr, context.Canceled):
		resolved.Status = models.JobCancelled
		resolved.Err = context.Canceled
	case result == nil:
		resolved.Status = models.JobFailed
		resolved.Err = errors.New("executor returned nil result")
	default:
		resolved.Status = models.JobFailed
		resolved.Err = errors.New("executor returned no status")
	}
	return resolved
}

// newJobSink builds the per-job event sink: every event is forwarded to
// publish (nil for poll-only deployments) and progress events are folded
// into the job row so polling clients see them without a subscription.
func newJobSink(jobID string, store progressStore, publish events.Sink) events.Sink {
	return events.SinkFunc(func(ctx context.Context, eventType string, payload []byte) error {
		if eventType == events.EventTypeProgress && store != nil {
			var p events.ProgressPayload
			if err := json.Unmarshal(payload, &p); err != nil {
				slog.Warn("Malformed progress payload", "job_id", jobID, "error", err)
			} else if err := store.UpdateProgress(ctx, jobID, p.Progress, p.Message); err != nil {
				slog.Warn("Failed to persist job progress", "job_id", jobID, "error", err)
			}
		}
		if publish == nil {
			return nil
		}
		return publish.Send(ctx, eventType, payload)
	})
}

// runHeartbeat periodically refreshes the job's heartbeat for orphan
// detection and watches for external cancellation: a cancel issued on
// another pod only changes the row, so the status read is what actually
// stops local execution.
func (w *Worker) runHeartbeat(ctx context.Context, jobID string, cancelJob context.CancelFunc) {
	ticker := time.NewTicker(w.config.HeartbeatInterval.Duration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.jobs.Heartbeat(ctx, jobID, w.podID); err != nil {
				slog.Warn("Heartbeat update failed", "job_id", jobID, "error", err)
				continue
			}
			job, err := w.jobs.GetJob(ctx, jobID)
			if err != nil {
				slog.Warn("Heartbeat status check failed", "job_id", jobID, "error", err)
				continue
			}
			if job.Status == models.JobCancelled {
				slog.Info("Job cancelled externally, stopping execution", "job_id", jobID)
				cancelJob()
				return
			}
		}
	}
}

// finishJob persists the terminal status, publishes the terminal stream
// event for non-completed outcomes, notifies Slack and schedules event
// cleanup. All writes use a background context — the job context may
// already be cancelled and the terminal state must not be lost.
func (w *Worker) finishJob(job *models.Job, result *ExecutionResult, emitter *events.Emitter, started time.Time) {
	log := slog.With("job_id", job.ID, "worker_id", w.id)
	bg := context.Background()

	var errMsg string
	if result.Err != nil {
		errMsg = result.Err.Error()
	}

	var writeErr error
	switch result.Status {
	case models.JobCompleted:
		writeErr = w.jobs.CompleteJob(bg, job.ID, result.Result)
	case models.JobCancelled:
		// Usually the API already cancelled the row; an already-terminal
		// row is success here, not a conflict.
		writeErr = w.jobs.CancelJob(bg, job.ID)
		if errors.Is(writeErr, services.ErrNotCancellable) {
			writeErr = nil
		}
	default:
		writeErr = w.jobs.FailJob(bg, job.ID, errMsg)
	}
	if writeErr != nil {
		log.Error("Failed to write terminal job status", "status", result.Status, "error", writeErr)
	}

	// Completed runs emitted their complete event from inside the
	// pipeline; failures and cancellations need a terminal event so
	// subscribers are not left waiting.
	if result.Status != models.JobCompleted {
		msg := errMsg
		if result.Status == models.JobCancelled {
			msg = "job cancelled"
		}
		if err := emitter.Error(bg, "", msg); err != nil {
			log.Warn("Failed to publish terminal error event", "error", err)
		}
	}

	input := notify.JobFinishedInput{
		JobID:        job.ID,
		Status:       string(result.Status),
		ErrorMessage: errMsg,
		Elapsed:      time.Since(started),
	}
	if result.Result != nil {
		input.Answer = result.Result.Response.Content
	}
	w.notifier.NotifyJobFinished(bg, input)

	w.scheduleEventCleanup(job.ID)
}

// scheduleEventCleanup deletes the job's stream events after a grace
// period, allowing late subscribers to receive final events first.
func (w *Worker) scheduleEventCleanup(jobID string) {
	if w.publisher == nil {
		return // nothing was published
	}
	time.AfterFunc(eventCleanupGrace, func() {
		if _, err := w.jobEvents.CleanupJobEvents(context.Background(), jobID); err != nil {
			slog.Warn("Failed to cleanup job events after grace period",
				"job_id", jobID, "error", err)
		}
	})
}

// pollInterval returns the poll duration with jitter.
func (w *Worker) pollInterval() time.Duration {
	base := w.config.PollInterval.Duration()
	jitter := w.config.PollIntervalJitter.Duration()
	if jitter <= 0 {
		return base
	}
	// Range: [base - jitter, base + jitter]
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

// setStatus updates the worker's health tracking state.
func (w *Worker) setStatus(status WorkerStatus, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}
