// Package events carries the streaming protocol between the coordinator and
// its consumers: SSE responses, WebSocket subscribers and the job queue.
// Events fan out across pods via PostgreSQL NOTIFY/LISTEN; persistent events
// are additionally stored in job_events for reconnect catchup.
//
// Every stream is a totally ordered sequence of typed events:
//
//	progress             orchestration milestones (routing, synthesis, ...)
//	agent.start          an agent began work
//	agent.chunk          primary-agent output delta (transient, not persisted)
//	agent.complete       an agent finished; full content + metadata
//	interaction          one agent-to-agent exchange was recorded
//	error                an agent or the run failed
//	complete             terminal event, exactly once, always last
//
// agent.chunk is NOTIFY-only: chunks are high-frequency and their full text
// is re-delivered by the agent.complete event, so clients that reconnect
// lose nothing but the typing effect.
package events

// Persistent event types (stored in job_events + NOTIFY).
const (
	EventTypeAgentStart    = "agent.start"
	EventTypeAgentComplete = "agent.complete"
	EventTypeInteraction   = "interaction"
	EventTypeProgress      = "progress"
	EventTypeError         = "error"
	EventTypeComplete      = "complete"
)

// Transient event types (NOTIFY only, no persistence).
const (
	EventTypeAgentChunk = "agent.chunk"
)

// IsTransient reports whether an event type is broadcast without persistence.
func IsTransient(eventType string) bool {
	return eventType == EventTypeAgentChunk
}

// JobChannel returns the NOTIFY channel name for a job's events.
// Format: "job:{job_id}"
func JobChannel(jobID string) string {
	return "job:" + jobID
}

// ClientMessage is the JSON structure for client → server WebSocket messages.
// Subscribe may carry last_event_id to resume from a known position; without
// it the full channel history is replayed.
type ClientMessage struct {
	Action      string `json:"action"` // "subscribe", "unsubscribe", "catchup", "ping"
	Channel     string `json:"channel,omitempty"`
	LastEventID *int   `json:"last_event_id,omitempty"`
}
