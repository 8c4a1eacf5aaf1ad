package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/northstar-pm/northstar/pkg/models"
	"github.com/northstar-pm/northstar/pkg/services"
)

// orphanState tracks orphan detection metrics (thread-safe).
type orphanState struct {
	mu              sync.Mutex
	lastOrphanScan  time.Time
	orphansRequeued int
	orphansFailed   int
}

// runOrphanDetection periodically scans for orphaned jobs.
// All pods run this independently — operations are idempotent.
func (p *WorkerPool) runOrphanDetection(ctx context.Context) {
	ticker := time.NewTicker(p.config.OrphanDetectionInterval.Duration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.detectAndRecoverOrphans(ctx); err != nil {
				slog.Error("Orphan detection failed", "error", err)
			}
		}
	}
}

// detectAndRecoverOrphans finds processing jobs with stale heartbeats and
// re-queues them for another attempt. A job that has already used up
// MaxAttempts claims is failed instead, so an input that crashes its
// worker cannot circulate forever.
func (p *WorkerPool) detectAndRecoverOrphans(ctx context.Context) error {
	orphans, err := p.jobs.FindOrphanedJobs(ctx, p.config.OrphanThreshold.Duration())
	if err != nil {
		return fmt.Errorf("failed to query orphaned jobs: %w", err)
	}

	if len(orphans) == 0 {
		p.orphans.mu.Lock()
		p.orphans.lastOrphanScan = time.Now()
		p.orphans.mu.Unlock()
		return nil
	}

	slog.Warn("Detected orphaned jobs", "count", len(orphans))

	requeued, failed := 0, 0
	for _, job := range orphans {
		if job.Attempts >= p.config.MaxAttempts {
			if err := p.failOrphanedJob(ctx, job); err != nil {
				slog.Error("Failed to mark orphaned job as failed",
					"job_id", job.ID,
					"error", err)
				continue
			}
			failed++
			continue
		}

		if err := p.jobs.RequeueJob(ctx, job.ID); err != nil {
			slog.Error("Failed to re-queue orphaned job",
				"job_id", job.ID,
				"error", err)
			continue
		}
		slog.Warn("Orphaned job re-queued",
			"job_id", job.ID,
			"old_pod_id", job.PodID,
			"attempts", job.Attempts)
		requeued++
	}

	p.orphans.mu.Lock()
	p.orphans.lastOrphanScan = time.Now()
	p.orphans.orphansRequeued += requeued
	p.orphans.orphansFailed += failed
	p.orphans.mu.Unlock()

	return nil
}

// failOrphanedJob marks an orphan that is out of attempts as failed.
func (p *WorkerPool) failOrphanedJob(ctx context.Context, job *models.Job) error {
	lastHeartbeat := "unknown"
	if job.HeartbeatAt != nil {
		lastHeartbeat = job.HeartbeatAt.Format(time.RFC3339)
	}

	msg := fmt.Sprintf("Orphaned: no heartbeat from pod %s since %s (%d/%d attempts used)",
		job.PodID, lastHeartbeat, job.Attempts, p.config.MaxAttempts)
	if err := p.jobs.FailJob(ctx, job.ID, msg); err != nil {
		return fmt.Errorf("failed to mark job as failed: %w", err)
	}

	slog.Warn("Orphaned job failed after exhausting attempts",
		"job_id", job.ID,
		"old_pod_id", job.PodID,
		"last_heartbeat", lastHeartbeat)
	return nil
}

// RecoverStartupOrphans re-queues jobs still claimed by this pod from a
// previous run. Called once during startup, before the worker pool begins
// processing, so a crash-restart loses no accepted work.
func RecoverStartupOrphans(ctx context.Context, jobs *services.JobService, podID string) error {
	count, err := jobs.RequeuePodJobs(ctx, podID)
	if err != nil {
		return fmt.Errorf("failed to re-queue startup orphans: %w", err)
	}

	if count > 0 {
		slog.Warn("Re-queued jobs from previous run",
			"pod_id", podID,
			"count", count)
	}
	return nil
}
