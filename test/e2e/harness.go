// Package e2e exercises the whole orchestration stack in process: real
// agents, registry, cache, knowledge store and coordinator, with only the
// provider SDK replaced by a scripted client at the registry's factory seam.
package e2e

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/northstar-pm/northstar/pkg/agent"
	"github.com/northstar-pm/northstar/pkg/agent/agentctx"
	"github.com/northstar-pm/northstar/pkg/cache"
	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/events"
	"github.com/northstar-pm/northstar/pkg/knowledge"
	"github.com/northstar-pm/northstar/pkg/metrics"
	"github.com/northstar-pm/northstar/pkg/models"
	"github.com/northstar-pm/northstar/pkg/orchestrator"
	"github.com/northstar-pm/northstar/pkg/providers"
)

// harness is the in-process stack under test.
type harness struct {
	llm         *mockLLM
	registry    *providers.Registry
	cache       *cache.ResponseCache
	collector   *metrics.Collector
	store       knowledge.Store
	defaults    *config.Defaults
	coordinator *orchestrator.Coordinator
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	defaults *config.Defaults
}

// withDefaults replaces the system defaults for one harness.
func withDefaults(d *config.Defaults) harnessOption {
	return func(c *harnessConfig) { c.defaults = d }
}

// testEmbedder maps text onto fixed term axes so vector similarity is
// deterministic without a real embedding model.
func testEmbedder(terms ...string) knowledge.EmbedFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		lower := strings.ToLower(text)
		vector := make([]float32, 0, len(terms)+1)
		for _, term := range terms {
			if strings.Contains(lower, term) {
				vector = append(vector, 1)
			} else {
				vector = append(vector, 0)
			}
		}
		return append(vector, 0.1), nil
	}
}

func testProviderConfigs() map[config.ProviderType]*config.ProviderConfig {
	return map[config.ProviderType]*config.ProviderConfig{
		config.ProviderOpenAI: {
			Type:      config.ProviderOpenAI,
			APIKeyEnv: "E2E_OPENAI_API_KEY",
			Tiers: map[config.ModelTier]config.TierModel{
				config.TierFast:     {Model: "gpt-4o-mini", TokenLimit: 4096},
				config.TierStandard: {Model: "gpt-4o", TokenLimit: 8192},
				config.TierPremium:  {Model: "o3", TokenLimit: 16384},
			},
		},
	}
}

// newHarness builds the full stack around a fresh mock LLM.
func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	hc := harnessConfig{defaults: config.DefaultDefaults()}
	for _, opt := range opts {
		opt(&hc)
	}

	t.Setenv("E2E_OPENAI_API_KEY", "e2e-test-key")

	llm := newMockLLM()
	registry := providers.NewRegistryWithFactory(
		config.NewProviderRegistry(testProviderConfigs()), hc.defaults, llm.factory)

	store, err := knowledge.NewStore(&config.KnowledgeConfig{},
		testEmbedder("market", "pricing", "competitor", "requirements", "onboarding"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	responseCache := cache.NewResponseCacheWithBackend(cache.NewMemoryBackend(), time.Hour)
	collector := metrics.NewCollector()

	deps := agent.Dependencies{
		Registry: registry,
		Cache:    responseCache,
		Metrics:  collector,
		Defaults: hc.defaults,
	}
	agents := agent.BuildAgents(deps, store, 5, nil)
	builder := agentctx.NewBuilder(nil, nil, store, 5, hc.defaults)

	coordinator := orchestrator.NewCoordinator(agents, builder, orchestrator.Options{
		Defaults:   hc.defaults,
		Escalation: orchestrator.DefaultEscalationPolicy(),
	})

	return &harness{
		llm:         llm,
		registry:    registry,
		cache:       responseCache,
		collector:   collector,
		store:       store,
		defaults:    hc.defaults,
		coordinator: coordinator,
	}
}

// seedKnowledge indexes articles so product-scoped retrieval has material.
func (h *harness) seedKnowledge(t *testing.T, articles ...*models.KnowledgeArticle) {
	t.Helper()
	ctx := context.Background()
	for _, a := range articles {
		require.NoError(t, h.store.Upsert(ctx, a))
	}
}

// stream runs one streaming request against a fresh recorder.
func (h *harness) stream(ctx context.Context, t *testing.T, req *models.ChatRequest) (*models.MultiAgentResponse, *recorder, error) {
	t.Helper()
	rec := newRecorder()
	resp, err := h.coordinator.ProcessStream(ctx, req, events.NewEmitter(rec, ""))
	return resp, rec, err
}

// recordedEvent is one captured stream event.
type recordedEvent struct {
	Type    string
	Payload []byte
	At      time.Time
}

// recorder is an events.Sink that captures every emission in order.
type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func newRecorder() *recorder {
	return &recorder{}
}

func (r *recorder) Send(_ context.Context, eventType string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf := make([]byte, len(payload))
	copy(buf, payload)
	r.events = append(r.events, recordedEvent{Type: eventType, Payload: buf, At: time.Now()})
	return nil
}

// all returns a snapshot of the captured events.
func (r *recorder) all() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedEvent, len(r.events))
	copy(out, r.events)
	return out
}

// types returns the captured event types in emission order.
func (r *recorder) types() []string {
	evts := r.all()
	out := make([]string, len(evts))
	for i, e := range evts {
		out[i] = e.Type
	}
	return out
}

// count returns how many events of the given type were captured.
func (r *recorder) count(eventType string) int {
	n := 0
	for _, e := range r.all() {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// complete decodes the single terminal complete event.
func (r *recorder) complete(t *testing.T) events.CompletePayload {
	t.Helper()
	var found *events.CompletePayload
	for _, e := range r.all() {
		if e.Type != events.EventTypeComplete {
			continue
		}
		require.Nil(t, found, "stream carried more than one complete event")
		var payload events.CompletePayload
		require.NoError(t, json.Unmarshal(e.Payload, &payload))
		found = &payload
	}
	require.NotNil(t, found, "stream carried no complete event")
	return *found
}

// agentStarts decodes every agent.start event in order.
func (r *recorder) agentStarts(t *testing.T) []events.AgentStartPayload {
	t.Helper()
	var out []events.AgentStartPayload
	for _, e := range r.all() {
		if e.Type != events.EventTypeAgentStart {
			continue
		}
		var payload events.AgentStartPayload
		require.NoError(t, json.Unmarshal(e.Payload, &payload))
		out = append(out, payload)
	}
	return out
}

// agentCompletes decodes every agent.complete event in order.
func (r *recorder) agentCompletes(t *testing.T) []events.AgentCompletePayload {
	t.Helper()
	var out []events.AgentCompletePayload
	for _, e := range r.all() {
		if e.Type != events.EventTypeAgentComplete {
			continue
		}
		var payload events.AgentCompletePayload
		require.NoError(t, json.Unmarshal(e.Payload, &payload))
		out = append(out, payload)
	}
	return out
}

// errors decodes every error event in order.
func (r *recorder) errors(t *testing.T) []events.ErrorPayload {
	t.Helper()
	var out []events.ErrorPayload
	for _, e := range r.all() {
		if e.Type != events.EventTypeError {
			continue
		}
		var payload events.ErrorPayload
		require.NoError(t, json.Unmarshal(e.Payload, &payload))
		out = append(out, payload)
	}
	return out
}

// chunks decodes every agent.chunk event in order.
func (r *recorder) chunks(t *testing.T) []events.AgentChunkPayload {
	t.Helper()
	var out []events.AgentChunkPayload
	for _, e := range r.all() {
		if e.Type != events.EventTypeAgentChunk {
			continue
		}
		var payload events.AgentChunkPayload
		require.NoError(t, json.Unmarshal(e.Payload, &payload))
		out = append(out, payload)
	}
	return out
}

// sequences extracts every event's sequence number in emission order.
func (r *recorder) sequences(t *testing.T) []int64 {
	t.Helper()
	evts := r.all()
	out := make([]int64, len(evts))
	for i, e := range evts {
		var base events.BasePayload
		require.NoError(t, json.Unmarshal(e.Payload, &base))
		out[i] = base.Sequence
	}
	return out
}
