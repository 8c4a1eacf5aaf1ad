package models

import (
	"time"

	"github.com/northstar-pm/northstar/pkg/config"
)

// ResponseMetadata describes how a single agent response was produced.
//
// SystemContext, SystemPrompt, UserPrompt and RAGContext are always
// serialised (no omitempty) so downstream consumers can rely on the keys
// being present even when a step was skipped.
type ResponseMetadata struct {
	AgentType config.AgentRole    `json:"agent_type"`
	Provider  config.ProviderType `json:"provider,omitempty"`
	Model     string              `json:"model,omitempty"`

	CacheHit       bool          `json:"cache_hit"`
	ProcessingTime time.Duration `json:"processing_time"`

	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`

	// Skipped is set when the agent declined to run (e.g. the knowledge
	// agent found no matching articles).
	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`

	SystemContext string `json:"system_context"`
	SystemPrompt  string `json:"system_prompt"`
	UserPrompt    string `json:"user_prompt"`
	RAGContext    string `json:"rag_context"`
}

// AgentResponse is the output of one agent invocation.
type AgentResponse struct {
	Role     config.AgentRole `json:"role"`
	Content  string           `json:"content"`
	Metadata ResponseMetadata `json:"metadata"`
}

// CompleteMetadata summarises a whole orchestration run.
type CompleteMetadata struct {
	PrimaryRole     config.AgentRole   `json:"primary_role"`
	SupportingRoles []config.AgentRole `json:"supporting_roles,omitempty"`
	ModelTier       config.ModelTier   `json:"model_tier"`
	ProcessingTime  time.Duration      `json:"processing_time"`

	// Partial is set when at least one supporting agent failed and its
	// section was replaced with a placeholder.
	Partial bool `json:"partial,omitempty"`

	// SuggestedReplies accompanies gate fast-path acknowledgements.
	SuggestedReplies []string `json:"suggested_replies,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
}

// MultiAgentResponse is the final product of Coordinator.Process: the
// synthesised answer plus the full inter-agent trace.
type MultiAgentResponse struct {
	Response     AgentResponse    `json:"response"`
	Interactions []Interaction    `json:"interactions,omitempty"`
	Metadata     CompleteMetadata `json:"metadata"`
}
