package services

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/northstar-pm/northstar/pkg/events"
)

// EventService reads and prunes the job_events table. Rows are written by
// the event publisher inside its notify transaction; this service serves
// WebSocket catchup queries and the two cleanup paths.
type EventService struct {
	db *stdsql.DB
}

// NewEventService creates an EventService on the shared pool.
func NewEventService(db *stdsql.DB) *EventService {
	return &EventService{db: db}
}

// GetCatchupEvents returns stored events on a channel with IDs greater
// than sinceID, oldest first, up to limit rows.
func (s *EventService) GetCatchupEvents(ctx context.Context, channel string, sinceID, limit int) ([]events.CatchupEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload FROM job_events
		WHERE channel = $1 AND id > $2
		ORDER BY id ASC LIMIT $3`,
		channel, sinceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query catchup events: %w", err)
	}
	defer rows.Close()

	var result []events.CatchupEvent
	for rows.Next() {
		var (
			evt     events.CatchupEvent
			payload []byte
		)
		if err := rows.Scan(&evt.ID, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		if err := json.Unmarshal(payload, &evt.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode event payload: %w", err)
		}
		result = append(result, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catchup events: %w", err)
	}
	return result, nil
}

// CleanupJobEvents removes all stored events for one job. Workers call it
// after the catchup grace period that follows a terminal transition.
func (s *EventService) CleanupJobEvents(ctx context.Context, jobID string) (int, error) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := s.db.ExecContext(writeCtx,
		`DELETE FROM job_events WHERE job_id = $1`, jobID)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup job events: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read cleanup result: %w", err)
	}
	return int(rows), nil
}

// CleanupOrphanedEvents removes events older than the TTL regardless of
// job. This is the safety net for events whose per-job cleanup never ran.
func (s *EventService) CleanupOrphanedEvents(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	writeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := s.db.ExecContext(writeCtx,
		`DELETE FROM job_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup orphaned events: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read cleanup result: %w", err)
	}
	return int(rows), nil
}
