package models

import "time"

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	// MessageRoleUser is a human-authored message
	MessageRoleUser MessageRole = "user"
	// MessageRoleAssistant is an agent-authored message
	MessageRoleAssistant MessageRole = "assistant"
	// MessageRoleSystem is a system instruction message
	MessageRoleSystem MessageRole = "system"
)

// IsValid checks if the message role is valid
func (r MessageRole) IsValid() bool {
	return r == MessageRoleUser || r == MessageRoleAssistant || r == MessageRoleSystem
}

// AgentMessage is one message in a conversation. Messages are immutable
// values: pipeline steps that transform history build new slices rather
// than editing entries in place.
type AgentMessage struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp,omitempty"`
}

// NewUserMessage builds a user message with the current timestamp.
func NewUserMessage(content string) AgentMessage {
	return AgentMessage{Role: MessageRoleUser, Content: content, Timestamp: time.Now().UTC()}
}

// NewAssistantMessage builds an assistant message with the current timestamp.
func NewAssistantMessage(content string) AgentMessage {
	return AgentMessage{Role: MessageRoleAssistant, Content: content, Timestamp: time.Now().UTC()}
}

// LastUserIndex returns the index of the most recent user message in
// messages, or -1 when there is none.
func LastUserIndex(messages []AgentMessage) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == MessageRoleUser {
			return i
		}
	}
	return -1
}
