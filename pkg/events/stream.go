package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/models"
)

// Sink receives marshalled stream events in emission order. Implementations:
// the SSE writer in pkg/api, the publishing sink below, and test collectors.
type Sink interface {
	Send(ctx context.Context, eventType string, payload []byte) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, eventType string, payload []byte) error

func (f SinkFunc) Send(ctx context.Context, eventType string, payload []byte) error {
	return f(ctx, eventType, payload)
}

// Emitter assigns sequence numbers and timestamps and forwards events to a
// sink. One emitter per stream; safe for concurrent use so supporting agents
// can emit from their own goroutines.
//
// The complete event is terminal: after Complete succeeds, every further
// emission is silently dropped, which keeps "complete is last" structural
// rather than a caller obligation.
type Emitter struct {
	mu        sync.Mutex
	seq       int64
	jobID     string
	sink      Sink
	completed bool
}

// NewEmitter creates an emitter for one stream. jobID may be empty for
// direct (non-queued) streams.
func NewEmitter(sink Sink, jobID string) *Emitter {
	return &Emitter{sink: sink, jobID: jobID}
}

// Sequence returns the last assigned sequence number.
func (e *Emitter) Sequence() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq
}

// send marshals the payload and forwards it under the emitter lock, which
// both serialises sink calls and makes sequence order equal delivery order.
func (e *Emitter) send(ctx context.Context, eventType string, build func(BasePayload) any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.completed {
		return nil
	}

	e.seq++
	base := BasePayload{
		Type:      eventType,
		JobID:     e.jobID,
		Sequence:  e.seq,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}

	payload, err := json.Marshal(build(base))
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	if err := e.sink.Send(ctx, eventType, payload); err != nil {
		return fmt.Errorf("failed to deliver %s event: %w", eventType, err)
	}
	if eventType == EventTypeComplete {
		e.completed = true
	}
	return nil
}

// AgentStart announces an agent starting work.
func (e *Emitter) AgentStart(ctx context.Context, role config.AgentRole, supporting bool) error {
	return e.send(ctx, EventTypeAgentStart, func(base BasePayload) any {
		return AgentStartPayload{BasePayload: base, Role: role, Supporting: supporting}
	})
}

// AgentChunk emits one streamed output delta.
func (e *Emitter) AgentChunk(ctx context.Context, role config.AgentRole, delta string) error {
	return e.send(ctx, EventTypeAgentChunk, func(base BasePayload) any {
		return AgentChunkPayload{BasePayload: base, Role: role, Delta: delta}
	})
}

// AgentComplete emits an agent's finished response.
func (e *Emitter) AgentComplete(ctx context.Context, role config.AgentRole, content string, meta models.ResponseMetadata) error {
	return e.send(ctx, EventTypeAgentComplete, func(base BasePayload) any {
		return AgentCompletePayload{BasePayload: base, Role: role, Content: content, Metadata: meta}
	})
}

// Interaction emits a recorded agent-to-agent exchange.
func (e *Emitter) Interaction(ctx context.Context, interaction models.Interaction) error {
	return e.send(ctx, EventTypeInteraction, func(base BasePayload) any {
		return InteractionPayload{BasePayload: base, Interaction: interaction}
	})
}

// Progress reports orchestration progress.
func (e *Emitter) Progress(ctx context.Context, progress float64, message string) error {
	return e.send(ctx, EventTypeProgress, func(base BasePayload) any {
		return ProgressPayload{BasePayload: base, Progress: progress, Message: message}
	})
}

// Error reports an agent failure (role set) or a run failure (role empty).
func (e *Emitter) Error(ctx context.Context, role config.AgentRole, errMsg string) error {
	return e.send(ctx, EventTypeError, func(base BasePayload) any {
		return ErrorPayload{BasePayload: base, Role: role, Error: errMsg}
	})
}

// Complete emits the terminal event and seals the stream.
func (e *Emitter) Complete(ctx context.Context, response models.MultiAgentResponse) error {
	return e.send(ctx, EventTypeComplete, func(base BasePayload) any {
		return CompletePayload{BasePayload: base, Response: response}
	})
}
