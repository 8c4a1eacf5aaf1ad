package config

import "time"

// Defaults contains system-wide default configurations.
// These values apply to every agent unless a request overrides them.
type Defaults struct {
	// MaxHistoryRuns is the number of recent conversation runs kept verbatim
	// during message compaction. Older runs are summarised.
	MaxHistoryRuns int `yaml:"max_history_runs,omitempty" validate:"omitempty,min=1"`

	// MaxToolCallsFromHistory bounds replayed tool calls when rebuilding context.
	MaxToolCallsFromHistory int `yaml:"max_tool_calls_from_history,omitempty" validate:"omitempty,min=1"`

	// MaxReasoningSteps bounds internal reasoning iterations per agent call.
	MaxReasoningSteps int `yaml:"max_reasoning_steps,omitempty" validate:"omitempty,min=1"`

	// AgentResponseTimeout is the hard deadline for a single agent invocation.
	AgentResponseTimeout Duration `yaml:"agent_response_timeout,omitempty"`

	// ToolCallTimeout is the deadline for a single external tool call.
	ToolCallTimeout Duration `yaml:"tool_call_timeout,omitempty"`

	// ModelTier is the default tier for agent invocations.
	ModelTier ModelTier `yaml:"model_tier,omitempty"`

	// ResponseLength is the default answer-size bound.
	ResponseLength ResponseLength `yaml:"response_length,omitempty"`

	// KeyStrategy selects how alternate API keys are rotated.
	KeyStrategy KeyStrategy `yaml:"key_strategy,omitempty"`

	// VerifySSL toggles TLS certificate verification on outbound provider
	// and integration calls. Disable only for corporate-proxy setups.
	VerifySSL *bool `yaml:"verify_ssl,omitempty"`

	// MaxKnowledgeTokens caps the knowledge section of an agent prompt.
	MaxKnowledgeTokens int `yaml:"max_knowledge_tokens,omitempty" validate:"omitempty,min=100"`

	// MaxParallelAgents bounds supporting-agent fan-out per request.
	MaxParallelAgents int `yaml:"max_parallel_agents,omitempty" validate:"omitempty,min=1"`

	// ChunkSize is the approximate size, in characters, of streamed answer chunks.
	ChunkSize int `yaml:"chunk_size,omitempty" validate:"omitempty,min=10"`
}

// DefaultDefaults returns the built-in system defaults.
func DefaultDefaults() *Defaults {
	verify := true
	return &Defaults{
		MaxHistoryRuns:          5,
		MaxToolCallsFromHistory: 10,
		MaxReasoningSteps:       5,
		AgentResponseTimeout:    Duration(30 * time.Minute),
		ToolCallTimeout:         Duration(30 * time.Second),
		ModelTier:               TierStandard,
		ResponseLength:          ResponseVerbose,
		KeyStrategy:             KeyStrategyRoundRobin,
		VerifySSL:               &verify,
		MaxKnowledgeTokens:      2000,
		MaxParallelAgents:       4,
		ChunkSize:               50,
	}
}

// SSLVerificationEnabled resolves the VerifySSL pointer, defaulting to true.
func (d *Defaults) SSLVerificationEnabled() bool {
	if d == nil || d.VerifySSL == nil {
		return true
	}
	return *d.VerifySSL
}
