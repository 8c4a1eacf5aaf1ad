// Package providers holds the provider registry and the LLM client
// adapters behind it. The registry owns credentials (environment plus
// user overrides) and vends ready-to-call clients; the adapters translate
// one neutral request shape onto the OpenAI, Anthropic and Gemini SDKs.
package providers

import (
	"context"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/models"
)

// CompletionRequest is the neutral invocation shape shared by all
// adapters. System carries the full system prompt; Messages hold only the
// user/assistant conversation (any system-role entries are folded into the
// system prompt by the adapter).
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []models.AgentMessage
	Temperature float32
	MaxTokens   int
}

// Completion is the terminal result of one model invocation. Token counts
// are zero when the provider did not report usage.
type Completion struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
	StopReason   string
}

// DeltaFunc receives incremental response text during a streaming call.
// It runs on the adapter's receive loop, so it must not block.
type DeltaFunc func(delta string)

// LLMClient is one provider binding built from a single credential.
// Clients are immutable after construction; the registry rebuilds them
// whenever credentials change.
type LLMClient interface {
	// Complete runs one blocking completion.
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)

	// Stream behaves like Complete but additionally delivers response text
	// to onDelta as it arrives. The returned Completion carries the full
	// accumulated content. A nil onDelta degrades to Complete semantics.
	Stream(ctx context.Context, req CompletionRequest, onDelta DeltaFunc) (*Completion, error)

	// Provider reports which provider the client speaks to.
	Provider() config.ProviderType

	// Key reports the credential the client was built with. Agents compare
	// it against the registry's current key to detect rotation.
	Key() string
}
