package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/northstar-pm/northstar/pkg/agent/prompt"
	"github.com/northstar-pm/northstar/pkg/cache"
	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/metrics"
	"github.com/northstar-pm/northstar/pkg/models"
	"github.com/northstar-pm/northstar/pkg/providers"
)

// BaseAgent runs the shared execution pipeline for one role. The model
// binding is lazy: nothing talks to the registry until the first call, and
// a rotated key or a tier change invalidates the binding rather than the
// agent. Safe for concurrent use.
type BaseAgent struct {
	role    config.AgentRole
	profile Profile
	deps    Dependencies
	logger  *slog.Logger

	mu      sync.Mutex
	tier    config.ModelTier
	binding *providers.BoundModel
}

// NewBaseAgent builds an agent for the role with the profile's default
// instructions. Panics on a nil registry: that is a programming error in
// the factory, not a runtime condition.
func NewBaseAgent(role config.AgentRole, deps Dependencies) *BaseAgent {
	if deps.Registry == nil {
		panic("agent: nil provider registry passed to NewBaseAgent")
	}
	if deps.Defaults == nil {
		deps.Defaults = config.DefaultDefaults()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCollector()
	}
	if deps.Cache == nil {
		disabled := false
		deps.Cache = cache.NewResponseCache(&config.CacheConfig{Enabled: &disabled})
	}

	return &BaseAgent{
		role:    role,
		profile: ProfileFor(role),
		deps:    deps,
		tier:    deps.Defaults.ModelTier,
		logger:  slog.With("component", "agent", "role", role),
	}
}

// Role identifies the agent.
func (b *BaseAgent) Role() config.AgentRole {
	return b.role
}

// Tier returns the agent's current model tier.
func (b *BaseAgent) Tier() config.ModelTier {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tier
}

// SetTier switches the model tier for subsequent calls. A changed tier
// drops the current binding so the next call resolves a matching model.
func (b *BaseAgent) SetTier(tier config.ModelTier) {
	if !tier.IsValid() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if tier == b.tier {
		return
	}
	b.tier = tier
	b.binding = nil
}

// Process runs the pipeline with a blocking completion.
func (b *BaseAgent) Process(ctx context.Context, messages []models.AgentMessage, reqCtx *models.RequestContext) (*models.AgentResponse, error) {
	return b.run(ctx, messages, reqCtx, nil)
}

// ProcessStream runs the pipeline and delivers incremental text to onDelta.
// Cache hits produce no deltas; the caller gets the full content at once.
func (b *BaseAgent) ProcessStream(ctx context.Context, messages []models.AgentMessage, reqCtx *models.RequestContext, onDelta providers.DeltaFunc) (*models.AgentResponse, error) {
	return b.run(ctx, messages, reqCtx, onDelta)
}

// bind resolves the model binding, refreshing a rotated key in place.
// Returns a snapshot so concurrent rebinds never race with an in-flight
// call.
func (b *BaseAgent) bind() (*providers.BoundModel, config.ModelTier, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// 1. Lazy init and 2. key refresh. An existing binding survives as
	// long as its provider still holds a credential; only the key and
	// client are swapped when rotation happened underneath us.
	if b.binding != nil {
		key, ok := b.deps.Registry.CurrentKey(b.binding.Provider)
		switch {
		case !ok:
			b.binding = nil
		case key != b.binding.Key:
			client, ok := b.deps.Registry.GetClient(b.binding.Provider)
			if !ok {
				b.binding = nil
				break
			}
			b.logger.Info("Rebinding to rotated provider key", "provider", b.binding.Provider)
			b.binding.Key = key
			b.binding.Client = client
		}
	}

	if b.binding == nil {
		bound, err := b.deps.Registry.ResolveTier(b.tier)
		if err != nil {
			return nil, b.tier, fmt.Errorf("%s agent: %w", b.role, err)
		}
		b.binding = bound
		b.logger.Info("Agent bound to model",
			"provider", bound.Provider, "model", bound.ModelID, "tier", b.tier)
	}

	snapshot := *b.binding
	return &snapshot, b.tier, nil
}

// run is the shared pipeline behind Process and ProcessStream.
func (b *BaseAgent) run(ctx context.Context, messages []models.AgentMessage, reqCtx *models.RequestContext, onDelta providers.DeltaFunc) (*models.AgentResponse, error) {
	binding, tier, err := b.bind()
	if err != nil {
		return nil, err
	}

	historyLimit := b.deps.Defaults.MaxHistoryRuns

	// 3. Cache probe. Hits are re-stamped so callers can tell a replay
	// from a fresh generation.
	var cacheKey string
	if b.deps.Cache.Enabled() {
		cacheKey = cache.Key(b.role, tier, messages, reqCtx, historyLimit)
		if cached, ok := b.deps.Cache.Get(ctx, cacheKey); ok {
			b.deps.Metrics.RecordCacheHit(b.role)
			cached.Role = b.role
			cached.Metadata.AgentType = b.role
			cached.Metadata.CacheHit = true
			cached.Metadata.ProcessingTime = 0
			return cached, nil
		}
		b.deps.Metrics.RecordCacheMiss(b.role)
	}

	// 4. Context enrichment is a pure render, so there are no mutated
	// instructions to restore afterwards.
	rendered := prompt.Render(b.profile.Instructions, reqCtx)

	// 5 and 6. Rewrite the user turn, then compact old history. The
	// rewrite runs on the raw turn so an overlong query collapses to its
	// question without taking the compaction summary with it.
	working := make([]models.AgentMessage, len(messages))
	copy(working, messages)
	var userPrompt string
	if i := models.LastUserIndex(working); i >= 0 {
		working[i].Content = rewriteQuery(working[i].Content)
		userPrompt = working[i].Content
	}
	working = compactHistory(working, historyLimit)

	req := providers.CompletionRequest{
		Model:       binding.ModelID,
		System:      rendered.System,
		Messages:    working,
		Temperature: b.profile.Temperature,
		MaxTokens:   binding.TokenLimit,
	}

	// 7. Invocation under the hard response deadline.
	timeout := b.deps.Defaults.AgentResponseTimeout.Duration()
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	var completion *providers.Completion
	if onDelta != nil {
		completion, err = binding.Client.Stream(callCtx, req, onDelta)
	} else {
		completion, err = binding.Client.Complete(callCtx, req)
	}
	duration := time.Since(start)

	if err != nil {
		// 9. Duration is recorded on every outcome, tokens only on success.
		b.deps.Metrics.RecordCall(b.role, duration, 0, 0)

		// 8. Only our own expired deadline counts as an agent timeout; a
		// cancelled or expired caller context propagates untranslated.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%s agent: %w after %s", b.role, ErrAgentTimeout, timeout)
		}
		return nil, fmt.Errorf("%s agent: %w", b.role, err)
	}
	b.deps.Metrics.RecordCall(b.role, duration, completion.InputTokens, completion.OutputTokens)

	model := completion.Model
	if model == "" {
		model = binding.ModelID
	}
	response := &models.AgentResponse{
		Role:    b.role,
		Content: completion.Content,
		Metadata: models.ResponseMetadata{
			AgentType:      b.role,
			Provider:       binding.Provider,
			Model:          model,
			ProcessingTime: duration,
			InputTokens:    completion.InputTokens,
			OutputTokens:   completion.OutputTokens,
			SystemContext:  rendered.ContextInfo,
			SystemPrompt:   rendered.System,
			UserPrompt:     userPrompt,
			RAGContext:     rendered.RAGContext,
		},
	}

	// 10. Store is fire-and-forget; a failed write costs one future miss.
	if cacheKey != "" {
		b.deps.Cache.Store(cacheKey, response)
	}

	b.logger.Debug("Agent call complete",
		"provider", binding.Provider,
		"model", model,
		"duration", duration,
		"input_tokens", completion.InputTokens,
		"output_tokens", completion.OutputTokens)
	return response, nil
}
