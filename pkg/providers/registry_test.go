package providers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/models"
)

type fakeClient struct {
	provider    config.ProviderType
	key         string
	completeErr error
}

func (f *fakeClient) Complete(_ context.Context, req CompletionRequest) (*Completion, error) {
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	return &Completion{Content: "pong", Model: req.Model}, nil
}

func (f *fakeClient) Stream(_ context.Context, req CompletionRequest, onDelta DeltaFunc) (*Completion, error) {
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	if onDelta != nil {
		onDelta("pong")
	}
	return &Completion{Content: "pong", Model: req.Model}, nil
}

func (f *fakeClient) Provider() config.ProviderType { return f.provider }
func (f *fakeClient) Key() string                   { return f.key }

// fakeFactory fails for keys prefixed "bad-" and returns clients whose
// Complete fails for keys prefixed "auth-".
func fakeFactory(p config.ProviderType, key string, _ *config.ProviderConfig, _ *http.Client) (LLMClient, error) {
	if strings.HasPrefix(key, "bad-") {
		return nil, errors.New("construction exploded")
	}
	client := &fakeClient{provider: p, key: key}
	if strings.HasPrefix(key, "auth-") {
		client.completeErr = classifyStatus(p, "completion", http.StatusUnauthorized, errors.New("invalid api key"))
	}
	return client, nil
}

func testProviderConfigs() map[config.ProviderType]*config.ProviderConfig {
	return map[config.ProviderType]*config.ProviderConfig{
		config.ProviderOpenAI: {
			Type:       config.ProviderOpenAI,
			APIKeyEnv:  "TEST_OPENAI_API_KEY",
			AltKeysEnv: "TEST_OPENAI_API_KEYS",
			Tiers: map[config.ModelTier]config.TierModel{
				config.TierFast:     {Model: "gpt-4o-mini", TokenLimit: 4096},
				config.TierStandard: {Model: "gpt-4o", TokenLimit: 8192},
			},
		},
		config.ProviderAnthropic: {
			Type:       config.ProviderAnthropic,
			APIKeyEnv:  "TEST_ANTHROPIC_API_KEY",
			AltKeysEnv: "TEST_ANTHROPIC_API_KEYS",
			Tiers: map[config.ModelTier]config.TierModel{
				config.TierFast:     {Model: "claude-3-5-haiku-latest", TokenLimit: 4096},
				config.TierStandard: {Model: "claude-sonnet-4-5", TokenLimit: 8192},
			},
		},
		config.ProviderGemini: {
			Type:      config.ProviderGemini,
			APIKeyEnv: "TEST_GEMINI_API_KEY",
			Tiers: map[config.ModelTier]config.TierModel{
				config.TierStandard: {Model: "gemini-2.5-flash", TokenLimit: 8192},
			},
		},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	// Guard against keys leaking in from the host environment.
	t.Setenv("TEST_OPENAI_API_KEY", "")
	t.Setenv("TEST_OPENAI_API_KEYS", "")
	t.Setenv("TEST_ANTHROPIC_API_KEY", "")
	t.Setenv("TEST_GEMINI_API_KEY", "")
	reg := config.NewProviderRegistry(testProviderConfigs())
	return NewRegistryWithFactory(reg, config.DefaultDefaults(), fakeFactory)
}

func TestUpdateKeysConfiguresProvider(t *testing.T) {
	r := newTestRegistry(t)
	assert.Empty(t, r.ConfiguredProviders())

	configured := r.UpdateKeys(map[config.ProviderType]KeySet{
		config.ProviderOpenAI: {Primary: "sk-user"},
	})
	assert.Equal(t, []config.ProviderType{config.ProviderOpenAI}, configured)

	client, ok := r.GetClient(config.ProviderOpenAI)
	require.True(t, ok)
	assert.Equal(t, "sk-user", client.Key())

	_, ok = r.GetClient(config.ProviderAnthropic)
	assert.False(t, ok)
}

func TestUpdateKeysEmptyPrimaryClearsOverride(t *testing.T) {
	r := newTestRegistry(t)
	t.Setenv("TEST_OPENAI_API_KEY", "sk-env")
	r.ReloadFromEnvironment()

	r.UpdateKeys(map[config.ProviderType]KeySet{
		config.ProviderOpenAI: {Primary: "sk-user"},
	})
	client, ok := r.GetClient(config.ProviderOpenAI)
	require.True(t, ok)
	assert.Equal(t, "sk-user", client.Key())

	// Whitespace counts as empty: the override is dropped and the
	// environment key takes over again.
	r.UpdateKeys(map[config.ProviderType]KeySet{
		config.ProviderOpenAI: {Primary: "   "},
	})
	client, ok = r.GetClient(config.ProviderOpenAI)
	require.True(t, ok)
	assert.Equal(t, "sk-env", client.Key())
}

func TestUpdateKeysClearWithoutEnvUnconfigures(t *testing.T) {
	r := newTestRegistry(t)

	r.UpdateKeys(map[config.ProviderType]KeySet{
		config.ProviderGemini: {Primary: "gm-user"},
	})
	_, ok := r.GetClient(config.ProviderGemini)
	require.True(t, ok)

	configured := r.UpdateKeys(map[config.ProviderType]KeySet{
		config.ProviderGemini: {Primary: ""},
	})
	assert.Empty(t, configured)
	_, ok = r.GetClient(config.ProviderGemini)
	assert.False(t, ok)
}

func TestClientBuildFailureIsSwallowed(t *testing.T) {
	r := newTestRegistry(t)

	configured := r.UpdateKeys(map[config.ProviderType]KeySet{
		config.ProviderOpenAI:    {Primary: "bad-key"},
		config.ProviderAnthropic: {Primary: "sk-fine"},
	})

	assert.Equal(t, []config.ProviderType{config.ProviderAnthropic}, configured)
	_, ok := r.GetClient(config.ProviderOpenAI)
	assert.False(t, ok, "a provider whose client failed to build reports as unconfigured")
}

func TestReloadFromEnvironmentPreservesOverrides(t *testing.T) {
	r := newTestRegistry(t)
	t.Setenv("TEST_OPENAI_API_KEY", "sk-env1")
	r.ReloadFromEnvironment()

	r.UpdateKeys(map[config.ProviderType]KeySet{
		config.ProviderOpenAI: {Primary: "sk-user"},
	})

	t.Setenv("TEST_OPENAI_API_KEY", "sk-env2")
	t.Setenv("TEST_ANTHROPIC_API_KEY", "sk-anth")
	configured := r.ReloadFromEnvironment()
	assert.Equal(t, []config.ProviderType{config.ProviderAnthropic, config.ProviderOpenAI}, configured)

	client, ok := r.GetClient(config.ProviderOpenAI)
	require.True(t, ok)
	assert.Equal(t, "sk-user", client.Key(), "user override survives the reload")

	// Clearing the override picks up the key from the latest reload.
	r.UpdateKeys(map[config.ProviderType]KeySet{
		config.ProviderOpenAI: {Primary: ""},
	})
	client, ok = r.GetClient(config.ProviderOpenAI)
	require.True(t, ok)
	assert.Equal(t, "sk-env2", client.Key())
}

func TestGetKeyRoundRobinFairness(t *testing.T) {
	r := newTestRegistry(t)
	r.UpdateKeys(map[config.ProviderType]KeySet{
		config.ProviderOpenAI: {Primary: "k1", Alternates: []string{"k2", "k3"}},
	})

	counts := make(map[string]int)
	var sequence []string
	for i := 0; i < 9; i++ {
		key, ok := r.GetKey(config.ProviderOpenAI, config.KeyStrategyRoundRobin)
		require.True(t, ok)
		counts[key]++
		sequence = append(sequence, key)
	}

	assert.Equal(t, map[string]int{"k1": 3, "k2": 3, "k3": 3}, counts)
	assert.Equal(t, []string{"k1", "k2", "k3"}, sequence[:3], "rotation starts at the primary")
}

func TestGetKeyRandomStaysInPool(t *testing.T) {
	r := newTestRegistry(t)
	r.UpdateKeys(map[config.ProviderType]KeySet{
		config.ProviderOpenAI: {Primary: "k1", Alternates: []string{"k2"}},
	})

	pool := map[string]bool{"k1": true, "k2": true}
	for i := 0; i < 20; i++ {
		key, ok := r.GetKey(config.ProviderOpenAI, config.KeyStrategyRandom)
		require.True(t, ok)
		assert.True(t, pool[key], "drew key %q outside the pool", key)
	}
}

func TestGetKeyUnconfigured(t *testing.T) {
	r := newTestRegistry(t)
	_, ok := r.GetKey(config.ProviderOpenAI, config.KeyStrategyRoundRobin)
	assert.False(t, ok)
}

func TestConfiguredProvidersSorted(t *testing.T) {
	r := newTestRegistry(t)
	configured := r.UpdateKeys(map[config.ProviderType]KeySet{
		config.ProviderOpenAI:    {Primary: "a"},
		config.ProviderGemini:    {Primary: "b"},
		config.ProviderAnthropic: {Primary: "c"},
	})

	assert.Equal(t, []config.ProviderType{
		config.ProviderAnthropic,
		config.ProviderGemini,
		config.ProviderOpenAI,
	}, configured)
}

func TestResolveTier(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.ResolveTier(config.TierStandard)
	assert.ErrorIs(t, err, ErrProviderNotConfigured)

	r.UpdateKeys(map[config.ProviderType]KeySet{
		config.ProviderOpenAI:    {Primary: "sk-oai"},
		config.ProviderAnthropic: {Primary: "sk-anth"},
	})

	bound, err := r.ResolveTier(config.TierStandard)
	require.NoError(t, err)
	assert.Equal(t, config.ProviderAnthropic, bound.Provider, "sorted order prefers anthropic")
	assert.Equal(t, "claude-sonnet-4-5", bound.ModelID)
	assert.Equal(t, 8192, bound.TokenLimit)
	assert.Equal(t, "sk-anth", bound.Key)
	require.NotNil(t, bound.Client)
}

func TestResolveTierFallsBackToStandard(t *testing.T) {
	r := newTestRegistry(t)
	r.UpdateKeys(map[config.ProviderType]KeySet{
		config.ProviderGemini: {Primary: "gm-key"},
	})

	bound, err := r.ResolveTier(config.TierPremium)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", bound.ModelID, "missing tier falls back to standard")
}

func TestCurrentKeyTracksRotation(t *testing.T) {
	r := newTestRegistry(t)

	_, ok := r.CurrentKey(config.ProviderOpenAI)
	assert.False(t, ok)

	r.UpdateKeys(map[config.ProviderType]KeySet{
		config.ProviderOpenAI: {Primary: "sk-a"},
	})
	boundClient, _ := r.GetClient(config.ProviderOpenAI)

	r.UpdateKeys(map[config.ProviderType]KeySet{
		config.ProviderOpenAI: {Primary: "sk-b"},
	})
	current, ok := r.CurrentKey(config.ProviderOpenAI)
	require.True(t, ok)
	assert.Equal(t, "sk-b", current)
	assert.NotEqual(t, boundClient.Key(), current, "stale binding is detectable by key value")
}

func TestVerify(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	err := r.Verify(ctx, config.ProviderOpenAI)
	assert.ErrorIs(t, err, ErrProviderNotConfigured)

	r.UpdateKeys(map[config.ProviderType]KeySet{
		config.ProviderOpenAI: {Primary: "sk-good"},
	})
	assert.NoError(t, r.Verify(ctx, config.ProviderOpenAI))

	// Verify surfaces what UpdateKeys swallows.
	r.UpdateKeys(map[config.ProviderType]KeySet{
		config.ProviderAnthropic: {Primary: "auth-rejected"},
	})
	err = r.Verify(ctx, config.ProviderAnthropic)
	assert.ErrorIs(t, err, ErrProviderAuthFailed)
}

func TestUpdateKeysUnknownProviderIgnored(t *testing.T) {
	r := newTestRegistry(t)
	configured := r.UpdateKeys(map[config.ProviderType]KeySet{
		config.ProviderType("bogus"): {Primary: "whatever"},
	})
	assert.Empty(t, configured)
}

func TestFakeClientSatisfiesInterface(t *testing.T) {
	var _ LLMClient = (*fakeClient)(nil)

	client, err := fakeFactory(config.ProviderOpenAI, "sk-x", nil, nil)
	require.NoError(t, err)

	var deltas []string
	completion, err := client.Stream(context.Background(), CompletionRequest{
		Model:    "gpt-4o",
		Messages: []models.AgentMessage{models.NewUserMessage("hi")},
	}, func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)
	assert.Equal(t, "pong", completion.Content)
	assert.Equal(t, []string{"pong"}, deltas)
}
