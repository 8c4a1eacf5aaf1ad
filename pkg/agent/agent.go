// Package agent implements the specialised agents the coordinator routes
// between. Every agent shares one pipeline: bind a provider model lazily,
// probe the response cache, render a context-enriched system prompt, compact
// old history into a structured summary, rewrite the user turn, invoke the
// model under a hard deadline, and record metrics on every outcome. Knowledge
// and integration agents add a retrieval step in front of that pipeline.
package agent

import (
	"context"

	"github.com/northstar-pm/northstar/pkg/cache"
	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/metrics"
	"github.com/northstar-pm/northstar/pkg/models"
	"github.com/northstar-pm/northstar/pkg/providers"
)

// Agent processes one query against the assembled request context.
// Implementations are safe for concurrent use; the coordinator fans calls
// out across a shared roster.
type Agent interface {
	// Process runs the full pipeline for one invocation. reqCtx may be nil
	// for context-free calls. The returned response always carries complete
	// metadata, including the prompts that produced it.
	Process(ctx context.Context, messages []models.AgentMessage, reqCtx *models.RequestContext) (*models.AgentResponse, error)

	// Role identifies the agent.
	Role() config.AgentRole
}

// Streamer is implemented by agents that can deliver incremental output.
// onDelta runs on the provider receive loop and must not block.
type Streamer interface {
	ProcessStream(ctx context.Context, messages []models.AgentMessage, reqCtx *models.RequestContext, onDelta providers.DeltaFunc) (*models.AgentResponse, error)
}

// TierSetter is implemented by agents whose model tier can change at
// runtime. The coordinator escalates Fast to Standard around primary
// synthesis calls and restores the previous tier afterwards.
type TierSetter interface {
	Tier() config.ModelTier
	SetTier(tier config.ModelTier)
}

// Dependencies bundles the shared services every agent needs. One value is
// built at startup and handed to the whole roster.
type Dependencies struct {
	Registry *providers.Registry
	Cache    *cache.ResponseCache
	Metrics  *metrics.Collector
	Defaults *config.Defaults
}
