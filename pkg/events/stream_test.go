package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/models"
)

// collectorSink records every delivered event in order.
type collectorSink struct {
	mu     sync.Mutex
	types  []string
	events [][]byte
	err    error
}

func (s *collectorSink) Send(_ context.Context, eventType string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.types = append(s.types, eventType)
	s.events = append(s.events, append([]byte(nil), payload...))
	return nil
}

func (s *collectorSink) sequences(t *testing.T) []int64 {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	seqs := make([]int64, 0, len(s.events))
	for _, raw := range s.events {
		var base BasePayload
		require.NoError(t, json.Unmarshal(raw, &base))
		seqs = append(seqs, base.Sequence)
	}
	return seqs
}

func TestEmitterAssignsMonotonicSequence(t *testing.T) {
	sink := &collectorSink{}
	e := NewEmitter(sink, "job-1")
	ctx := context.Background()

	require.NoError(t, e.Progress(ctx, 0.1, "routing"))
	require.NoError(t, e.AgentStart(ctx, config.RoleResearch, false))
	require.NoError(t, e.AgentChunk(ctx, config.RoleResearch, "hello "))
	require.NoError(t, e.AgentChunk(ctx, config.RoleResearch, "world"))
	require.NoError(t, e.AgentComplete(ctx, config.RoleResearch, "hello world", models.ResponseMetadata{AgentType: config.RoleResearch}))
	require.NoError(t, e.Complete(ctx, models.MultiAgentResponse{}))

	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, sink.sequences(t))
	assert.Equal(t, int64(6), e.Sequence())
	assert.Equal(t, []string{
		EventTypeProgress,
		EventTypeAgentStart,
		EventTypeAgentChunk,
		EventTypeAgentChunk,
		EventTypeAgentComplete,
		EventTypeComplete,
	}, sink.types)
}

func TestEmitterDropsEventsAfterComplete(t *testing.T) {
	sink := &collectorSink{}
	e := NewEmitter(sink, "job-2")
	ctx := context.Background()

	require.NoError(t, e.Complete(ctx, models.MultiAgentResponse{}))
	require.NoError(t, e.Progress(ctx, 0.5, "late"))
	require.NoError(t, e.Complete(ctx, models.MultiAgentResponse{}))

	require.Len(t, sink.types, 1)
	assert.Equal(t, EventTypeComplete, sink.types[0])
	assert.Equal(t, int64(1), e.Sequence())
}

func TestEmitterPropagatesSinkError(t *testing.T) {
	sink := &collectorSink{err: errors.New("client gone")}
	e := NewEmitter(sink, "job-3")

	err := e.Progress(context.Background(), 0.1, "routing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client gone")
}

func TestEmitterJobIDOnEveryEvent(t *testing.T) {
	sink := &collectorSink{}
	e := NewEmitter(sink, "job-77")
	ctx := context.Background()

	require.NoError(t, e.AgentStart(ctx, config.RoleKnowledge, true))
	require.NoError(t, e.Error(ctx, config.RoleKnowledge, "store unavailable"))

	for _, raw := range sink.events {
		var base BasePayload
		require.NoError(t, json.Unmarshal(raw, &base))
		assert.Equal(t, "job-77", base.JobID)
		assert.NotEmpty(t, base.Timestamp)
	}
}

func TestEmitterConcurrentEmissionsStayOrdered(t *testing.T) {
	sink := &collectorSink{}
	e := NewEmitter(sink, "job-4")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.Progress(ctx, 0.5, "working")
		}()
	}
	wg.Wait()

	seqs := sink.sequences(t)
	require.Len(t, seqs, 25)
	for i, seq := range seqs {
		assert.Equal(t, int64(i+1), seq, "delivery order must match sequence order")
	}
}

func TestSinkFunc(t *testing.T) {
	var gotType string
	sink := SinkFunc(func(_ context.Context, eventType string, _ []byte) error {
		gotType = eventType
		return nil
	})

	e := NewEmitter(sink, "")
	require.NoError(t, e.Progress(context.Background(), 1.0, "done"))
	assert.Equal(t, EventTypeProgress, gotType)
}
