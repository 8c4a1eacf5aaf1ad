package events

import (
	"encoding/json"
	"fmt"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/models"
)

// BasePayload carries the fields shared by every stream event. Sequence is
// assigned by the Emitter and is strictly increasing within one stream.
type BasePayload struct {
	Type      string `json:"type"`
	JobID     string `json:"job_id,omitempty"` // empty for direct SSE streams
	Sequence  int64  `json:"sequence"`
	Timestamp string `json:"timestamp"` // RFC3339Nano
}

// AgentStartPayload announces that an agent began work on the request.
type AgentStartPayload struct {
	BasePayload
	Role config.AgentRole `json:"role"`

	// Supporting marks fan-out agents; the primary agent has it unset.
	Supporting bool `json:"supporting,omitempty"`
}

// AgentChunkPayload is one delta of the primary agent's streamed output.
// Transient: broadcast but never persisted.
type AgentChunkPayload struct {
	BasePayload
	Role  config.AgentRole `json:"role"`
	Delta string           `json:"delta"`
}

// AgentCompletePayload carries an agent's full response once it finishes.
type AgentCompletePayload struct {
	BasePayload
	Role     config.AgentRole        `json:"role"`
	Content  string                  `json:"content"`
	Metadata models.ResponseMetadata `json:"metadata"`
}

// InteractionPayload records one agent-to-agent exchange.
type InteractionPayload struct {
	BasePayload
	Interaction models.Interaction `json:"interaction"`
}

// ProgressPayload reports orchestration progress in [0, 1].
type ProgressPayload struct {
	BasePayload
	Progress float64 `json:"progress"`
	Message  string  `json:"message,omitempty"`
}

// ErrorPayload reports a failed agent (Role set) or a failed run (Role empty).
type ErrorPayload struct {
	BasePayload
	Role  config.AgentRole `json:"role,omitempty"`
	Error string           `json:"error"`
}

// CompletePayload is the terminal event carrying the synthesised result.
type CompletePayload struct {
	BasePayload
	Response models.MultiAgentResponse `json:"response"`
}

// PayloadType extracts the type discriminator from a marshalled event
// without decoding the full payload.
func PayloadType(payload []byte) (string, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return "", fmt.Errorf("failed to decode event type: %w", err)
	}
	if probe.Type == "" {
		return "", fmt.Errorf("event has no type field")
	}
	return probe.Type, nil
}
