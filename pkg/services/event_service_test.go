package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstar-pm/northstar/pkg/database"
)

// insertJobEvent writes a row the way the event publisher does, returning
// the assigned sequence ID.
func insertJobEvent(t *testing.T, client *database.Client, jobID, channel, payload string) int {
	t.Helper()
	var id int
	err := client.DB().QueryRow(
		`INSERT INTO job_events (job_id, channel, payload) VALUES ($1, $2, $3::jsonb) RETURNING id`,
		jobID, channel, payload).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestEventService_GetCatchupEvents(t *testing.T) {
	client := newTestDB(t)
	svc := NewEventService(client.DB())
	ctx := context.Background()

	channel := "job:catchup-test"
	var ids []int
	for i := 1; i <= 5; i++ {
		payload := fmt.Sprintf(`{"type":"job.progress","progress":%d}`, i)
		ids = append(ids, insertJobEvent(t, client, "catchup-test", channel, payload))
	}
	// A different channel must never leak into the catchup window.
	insertJobEvent(t, client, "other-job", "job:other-job", `{"type":"job.progress","progress":99}`)

	t.Run("returns events after sinceID in sequence order", func(t *testing.T) {
		events, err := svc.GetCatchupEvents(ctx, channel, ids[1], 100)
		require.NoError(t, err)
		require.Len(t, events, 3)
		for i, evt := range events {
			assert.Equal(t, ids[i+2], evt.ID)
			assert.Equal(t, float64(i+3), evt.Payload["progress"])
		}
	})

	t.Run("sinceID zero returns everything on the channel", func(t *testing.T) {
		events, err := svc.GetCatchupEvents(ctx, channel, 0, 100)
		require.NoError(t, err)
		assert.Len(t, events, 5)
	})

	t.Run("limit caps the window", func(t *testing.T) {
		events, err := svc.GetCatchupEvents(ctx, channel, 0, 2)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, ids[0], events[0].ID)
		assert.Equal(t, ids[1], events[1].ID)
	})

	t.Run("unknown channel returns empty", func(t *testing.T) {
		events, err := svc.GetCatchupEvents(ctx, "job:nonexistent", 0, 100)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestEventService_CleanupJobEvents(t *testing.T) {
	client := newTestDB(t)
	svc := NewEventService(client.DB())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		insertJobEvent(t, client, "doomed", "job:doomed", `{"type":"job.progress"}`)
	}
	kept := insertJobEvent(t, client, "kept", "job:kept", `{"type":"job.progress"}`)

	deleted, err := svc.CleanupJobEvents(ctx, "doomed")
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	events, err := svc.GetCatchupEvents(ctx, "job:doomed", 0, 100)
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = svc.GetCatchupEvents(ctx, "job:kept", 0, 100)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, kept, events[0].ID)
}

func TestEventService_CleanupOrphanedEvents(t *testing.T) {
	client := newTestDB(t)
	svc := NewEventService(client.DB())
	ctx := context.Background()

	stale := insertJobEvent(t, client, "stale-job", "job:stale-job", `{"type":"job.progress"}`)
	_, err := client.DB().Exec(
		`UPDATE job_events SET created_at = now() - interval '2 hours' WHERE id = $1`, stale)
	require.NoError(t, err)
	fresh := insertJobEvent(t, client, "fresh-job", "job:fresh-job", `{"type":"job.progress"}`)

	deleted, err := svc.CleanupOrphanedEvents(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	events, err := svc.GetCatchupEvents(ctx, "job:stale-job", 0, 100)
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = svc.GetCatchupEvents(ctx, "job:fresh-job", 0, 100)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, fresh, events[0].ID)
}
