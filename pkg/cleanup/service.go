// Package cleanup provides data retention and cleanup services.
package cleanup

import (
	"context"
	stdsql "database/sql"
	"log/slog"
	"time"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/services"
)

// retentionLockID is the advisory lock key that serialises cleanup
// across pods; only the pod holding it runs a given cycle.
const retentionLockID int64 = 0x6e737472 // "nstr"

// Service periodically enforces retention policies:
//   - Deletes terminal jobs past the retention window
//   - Removes orphaned job event rows past their TTL
//
// All operations are idempotent; the advisory lock only avoids
// duplicate delete load when several pods tick at the same time.
type Service struct {
	config       *config.RetentionConfig
	db           *stdsql.DB
	jobService   *services.JobService
	eventService *services.EventService

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(
	cfg *config.RetentionConfig,
	db *stdsql.DB,
	jobService *services.JobService,
	eventService *services.EventService,
) *Service {
	return &Service{
		config:       cfg,
		db:           db,
		jobService:   jobService,
		eventService: eventService,
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"job_retention", s.config.JobRetention.Duration(),
		"event_ttl", s.config.EventTTL.Duration(),
		"interval", s.config.CleanupInterval.Duration())
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval.Duration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

// runAll runs one cleanup cycle under the cluster-wide advisory lock.
// Advisory locks are session-scoped, so the lock lives on a dedicated
// connection held for the duration of the cycle.
func (s *Service) runAll(ctx context.Context) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		slog.Error("Retention: acquiring connection failed", "error", err)
		return
	}
	defer conn.Close()

	var acquired bool
	if err := conn.QueryRowContext(ctx,
		`SELECT pg_try_advisory_lock($1)`, retentionLockID).Scan(&acquired); err != nil {
		slog.Error("Retention: advisory lock query failed", "error", err)
		return
	}
	if !acquired {
		slog.Debug("Retention: another pod holds the cleanup lock, skipping cycle")
		return
	}
	defer func() {
		// Unlock on a fresh context; conn.Close releases the lock anyway
		// if the session drops.
		if _, err := conn.ExecContext(context.Background(),
			`SELECT pg_advisory_unlock($1)`, retentionLockID); err != nil {
			slog.Warn("Retention: advisory unlock failed", "error", err)
		}
	}()

	s.deleteExpiredJobs(ctx)
	s.cleanupOrphanedEvents(ctx)
}

func (s *Service) deleteExpiredJobs(_ context.Context) {
	cutoff := time.Now().Add(-s.config.JobRetention.Duration())
	count, err := s.jobService.DeleteTerminalJobsBefore(context.Background(), cutoff)
	if err != nil {
		slog.Error("Retention: delete terminal jobs failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: deleted expired terminal jobs", "count", count)
	}
}

func (s *Service) cleanupOrphanedEvents(_ context.Context) {
	count, err := s.eventService.CleanupOrphanedEvents(context.Background(), s.config.EventTTL.Duration())
	if err != nil {
		slog.Error("Retention: event cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: cleaned up orphaned events", "count", count)
	}
}
