package agent

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstar-pm/northstar/pkg/cache"
	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/metrics"
	"github.com/northstar-pm/northstar/pkg/models"
	"github.com/northstar-pm/northstar/pkg/providers"
)

// recordedCall is one provider invocation as seen by the scripted client,
// tagged with the credential that served it.
type recordedCall struct {
	key string
	req providers.CompletionRequest
}

// script is the shared behaviour behind every scripted client the harness
// factory builds, so key rotation produces new clients without losing the
// call record.
type script struct {
	mu    sync.Mutex
	calls []recordedCall
	delay time.Duration
	reply func(req providers.CompletionRequest) (*providers.Completion, error)
}

func (s *script) record(key string, req providers.CompletionRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, recordedCall{key: key, req: req})
}

func (s *script) recorded() []recordedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]recordedCall, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *script) run(ctx context.Context, key string, req providers.CompletionRequest) (*providers.Completion, error) {
	s.record(key, req)

	s.mu.Lock()
	delay := s.delay
	reply := s.reply
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if reply != nil {
		return reply(req)
	}
	return &providers.Completion{
		Content:      "synthesised answer",
		Model:        req.Model,
		InputTokens:  42,
		OutputTokens: 17,
	}, nil
}

type scriptedClient struct {
	provider config.ProviderType
	key      string
	script   *script
}

func (c *scriptedClient) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.Completion, error) {
	return c.script.run(ctx, c.key, req)
}

func (c *scriptedClient) Stream(ctx context.Context, req providers.CompletionRequest, onDelta providers.DeltaFunc) (*providers.Completion, error) {
	completion, err := c.script.run(ctx, c.key, req)
	if err != nil {
		return nil, err
	}
	if onDelta != nil {
		half := len(completion.Content) / 2
		onDelta(completion.Content[:half])
		onDelta(completion.Content[half:])
	}
	return completion, nil
}

func (c *scriptedClient) Provider() config.ProviderType { return c.provider }
func (c *scriptedClient) Key() string                   { return c.key }

// harness wires a BaseAgent to a scripted provider stack.
type harness struct {
	script   *script
	registry *providers.Registry
	metrics  *metrics.Collector
	deps     Dependencies
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("TEST_OPENAI_API_KEY", "")
	t.Setenv("TEST_OPENAI_API_KEYS", "")

	h := &harness{script: &script{}, metrics: metrics.NewCollector()}

	factory := func(p config.ProviderType, key string, _ *config.ProviderConfig, _ *http.Client) (providers.LLMClient, error) {
		return &scriptedClient{provider: p, key: key, script: h.script}, nil
	}
	providerConfigs := map[config.ProviderType]*config.ProviderConfig{
		config.ProviderOpenAI: {
			Type:      config.ProviderOpenAI,
			APIKeyEnv: "TEST_OPENAI_API_KEY",
			Tiers: map[config.ModelTier]config.TierModel{
				config.TierFast:     {Model: "gpt-4o-mini", TokenLimit: 4096},
				config.TierStandard: {Model: "gpt-4o", TokenLimit: 8192},
			},
		},
	}
	h.registry = providers.NewRegistryWithFactory(
		config.NewProviderRegistry(providerConfigs), config.DefaultDefaults(), factory)
	h.registry.UpdateKeys(map[config.ProviderType]providers.KeySet{
		config.ProviderOpenAI: {Primary: "sk-test"},
	})

	h.deps = Dependencies{
		Registry: h.registry,
		Metrics:  h.metrics,
		Defaults: config.DefaultDefaults(),
	}
	return h
}

func TestBaseAgentProcessProducesFullMetadata(t *testing.T) {
	h := newHarness(t)
	agent := NewBaseAgent(config.RoleResearch, h.deps)

	reqCtx := &models.RequestContext{
		PhaseName: "Market Research",
		FormData:  map[string]string{"target_market": "mid-market SaaS"},
	}
	resp, err := agent.Process(context.Background(),
		[]models.AgentMessage{models.NewUserMessage("Please analyze the competitive landscape")}, reqCtx)

	require.NoError(t, err)
	assert.Equal(t, config.RoleResearch, resp.Role)
	assert.Equal(t, "synthesised answer", resp.Content)
	assert.Equal(t, config.RoleResearch, resp.Metadata.AgentType)
	assert.Equal(t, config.ProviderOpenAI, resp.Metadata.Provider)
	assert.Equal(t, "gpt-4o", resp.Metadata.Model)
	assert.False(t, resp.Metadata.CacheHit)
	assert.Greater(t, resp.Metadata.ProcessingTime, time.Duration(0))
	assert.Equal(t, 42, resp.Metadata.InputTokens)
	assert.Equal(t, 17, resp.Metadata.OutputTokens)
	assert.Equal(t, "analyze the competitive landscape", resp.Metadata.UserPrompt)
	assert.Contains(t, resp.Metadata.SystemPrompt, "market research specialist")
	assert.Contains(t, resp.Metadata.SystemPrompt, "Market Research")
	assert.Contains(t, resp.Metadata.SystemContext, "Filled form fields: 1")
	assert.Empty(t, resp.Metadata.RAGContext)

	calls := h.script.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, resp.Metadata.SystemPrompt, calls[0].req.System)
	assert.Equal(t, 8192, calls[0].req.MaxTokens)
}

func TestBaseAgentFailsFastWithoutProvider(t *testing.T) {
	h := newHarness(t)
	h.registry.UpdateKeys(map[config.ProviderType]providers.KeySet{
		config.ProviderOpenAI: {Primary: ""},
	})
	agent := NewBaseAgent(config.RoleIdeation, h.deps)

	_, err := agent.Process(context.Background(),
		[]models.AgentMessage{models.NewUserMessage("name the product")}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, providers.ErrProviderNotConfigured)
	assert.Empty(t, h.script.recorded())
}

func TestBaseAgentRebindsOnKeyRotation(t *testing.T) {
	h := newHarness(t)
	agent := NewBaseAgent(config.RoleIdeation, h.deps)
	messages := []models.AgentMessage{models.NewUserMessage("first call")}

	_, err := agent.Process(context.Background(), messages, nil)
	require.NoError(t, err)

	h.registry.UpdateKeys(map[config.ProviderType]providers.KeySet{
		config.ProviderOpenAI: {Primary: "sk-rotated"},
	})

	_, err = agent.Process(context.Background(),
		[]models.AgentMessage{models.NewUserMessage("second call")}, nil)
	require.NoError(t, err)

	calls := h.script.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "sk-test", calls[0].key)
	assert.Equal(t, "sk-rotated", calls[1].key)
}

func TestBaseAgentCacheRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.deps.Cache = cache.NewResponseCacheWithBackend(cache.NewMemoryBackend(), time.Minute)
	agent := NewBaseAgent(config.RoleAnalysis, h.deps)
	messages := []models.AgentMessage{models.NewUserMessage("run a swot analysis")}

	first, err := agent.Process(context.Background(), messages, nil)
	require.NoError(t, err)
	assert.False(t, first.Metadata.CacheHit)

	// The store is asynchronous; wait for the entry to land.
	key := cache.Key(config.RoleAnalysis, config.TierStandard, messages, nil, h.deps.Defaults.MaxHistoryRuns)
	require.Eventually(t, func() bool {
		_, ok := h.deps.Cache.Get(context.Background(), key)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	second, err := agent.Process(context.Background(), messages, nil)
	require.NoError(t, err)
	assert.True(t, second.Metadata.CacheHit)
	assert.Zero(t, second.Metadata.ProcessingTime)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, first.Metadata.UserPrompt, second.Metadata.UserPrompt)
	require.Len(t, h.script.recorded(), 1)

	snap, ok := h.metrics.SnapshotFor(config.RoleAnalysis)
	require.True(t, ok)
	assert.Equal(t, int64(1), snap.Calls)
	assert.Equal(t, int64(1), snap.CacheHits)
	assert.Equal(t, int64(1), snap.CacheMisses)
}

func TestBaseAgentCompactsAndRewritesHistory(t *testing.T) {
	h := newHarness(t)
	agent := NewBaseAgent(config.RoleRequirements, h.deps)

	messages := []models.AgentMessage{
		models.NewUserMessage("We must support offline mode."),
		models.NewAssistantMessage("Noted."),
		models.NewUserMessage("We decided on a mobile-first rollout."),
		models.NewAssistantMessage("Understood."),
		models.NewUserMessage("Some context without markers"),
		models.NewAssistantMessage("Okay."),
		models.NewUserMessage("Please draft the requirements"),
	}

	resp, err := agent.Process(context.Background(), messages, nil)
	require.NoError(t, err)

	calls := h.script.recorded()
	require.Len(t, calls, 1)
	sent := calls[0].req.Messages
	require.Len(t, sent, 5)

	last := sent[len(sent)-1]
	assert.True(t, strings.HasPrefix(last.Content, "Summary of the earlier conversation:"))
	assert.Contains(t, last.Content, "must support offline mode")
	assert.True(t, strings.HasSuffix(last.Content, "draft the requirements"))

	// The original slice and the reported prompt stay clean.
	assert.Equal(t, "Please draft the requirements", messages[6].Content)
	assert.Equal(t, "draft the requirements", resp.Metadata.UserPrompt)
}

func TestBaseAgentTimeoutYieldsTypedError(t *testing.T) {
	h := newHarness(t)
	h.script.delay = 200 * time.Millisecond
	h.deps.Defaults.AgentResponseTimeout = config.Duration(20 * time.Millisecond)
	agent := NewBaseAgent(config.RoleIdeation, h.deps)

	_, err := agent.Process(context.Background(),
		[]models.AgentMessage{models.NewUserMessage("slow question")}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAgentTimeout)

	snap, ok := h.metrics.SnapshotFor(config.RoleIdeation)
	require.True(t, ok)
	assert.Equal(t, int64(1), snap.Calls)
	assert.Zero(t, snap.InputTokens)
}

func TestBaseAgentCallerCancellationIsNotATimeout(t *testing.T) {
	h := newHarness(t)
	h.script.delay = 200 * time.Millisecond
	agent := NewBaseAgent(config.RoleIdeation, h.deps)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := agent.Process(ctx,
		[]models.AgentMessage{models.NewUserMessage("slow question")}, nil)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAgentTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBaseAgentSetTierSwitchesModel(t *testing.T) {
	h := newHarness(t)
	agent := NewBaseAgent(config.RoleIdeation, h.deps)
	messages := []models.AgentMessage{models.NewUserMessage("brainstorm names")}

	_, err := agent.Process(context.Background(), messages, nil)
	require.NoError(t, err)

	agent.SetTier(config.TierFast)
	assert.Equal(t, config.TierFast, agent.Tier())

	_, err = agent.Process(context.Background(), messages, nil)
	require.NoError(t, err)

	calls := h.script.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "gpt-4o", calls[0].req.Model)
	assert.Equal(t, "gpt-4o-mini", calls[1].req.Model)
}

func TestBaseAgentSetTierIgnoresInvalidTier(t *testing.T) {
	h := newHarness(t)
	agent := NewBaseAgent(config.RoleIdeation, h.deps)

	agent.SetTier(config.ModelTier("quantum"))

	assert.Equal(t, config.TierStandard, agent.Tier())
}

func TestBaseAgentProcessStreamDeliversDeltas(t *testing.T) {
	h := newHarness(t)
	agent := NewBaseAgent(config.RoleIdeation, h.deps)

	var mu sync.Mutex
	var received strings.Builder
	resp, err := agent.ProcessStream(context.Background(),
		[]models.AgentMessage{models.NewUserMessage("stream me an idea")}, nil,
		func(delta string) {
			mu.Lock()
			received.WriteString(delta)
			mu.Unlock()
		})

	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, resp.Content, received.String())
}

func TestNewBaseAgentPanicsWithoutRegistry(t *testing.T) {
	assert.Panics(t, func() {
		NewBaseAgent(config.RoleIdeation, Dependencies{})
	})
}
