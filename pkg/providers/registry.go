package providers

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/models"
)

// ClientFactory builds a provider client from one credential. Swapped for
// a fake in tests.
type ClientFactory func(p config.ProviderType, key string, pcfg *config.ProviderConfig, httpClient *http.Client) (LLMClient, error)

// BoundModel is a concrete resolution of a model tier: the provider, the
// model serving the tier, its token limit, and a ready client.
type BoundModel struct {
	Provider   config.ProviderType
	ModelID    string
	TokenLimit int
	Key        string
	Client     LLMClient
}

// providerState is the registry's per-provider bookkeeping. envKeys always
// mirrors the process environment; override is set by UpdateKeys and takes
// precedence until cleared.
type providerState struct {
	envKeys  KeySet
	override *KeySet
	client   LLMClient
	cursor   int
}

// effective returns the credential set in force: the user override when
// present, the environment otherwise.
func (s *providerState) effective() KeySet {
	if s.override != nil {
		return *s.override
	}
	return s.envKeys
}

// Registry owns provider credentials and the clients built from them.
// All operations are safe for concurrent use. Client construction happens
// only inside UpdateKeys and ReloadFromEnvironment; the read paths never
// touch the network.
type Registry struct {
	mu         sync.RWMutex
	providers  *config.ProviderRegistry
	defaults   *config.Defaults
	states     map[config.ProviderType]*providerState
	factory    ClientFactory
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRegistry creates a registry seeded from the process environment.
// Providers whose key environment variables are unset simply start
// unconfigured.
func NewRegistry(providers *config.ProviderRegistry, defaults *config.Defaults) *Registry {
	return NewRegistryWithFactory(providers, defaults, defaultClientFactory)
}

// NewRegistryWithFactory is NewRegistry with an injectable client factory.
func NewRegistryWithFactory(providers *config.ProviderRegistry, defaults *config.Defaults, factory ClientFactory) *Registry {
	r := &Registry{
		providers:  providers,
		defaults:   defaults,
		states:     make(map[config.ProviderType]*providerState),
		factory:    factory,
		httpClient: newHTTPClient(defaults.SSLVerificationEnabled()),
		logger:     slog.With("component", "provider_registry"),
	}

	for _, p := range providers.Types() {
		pcfg, err := providers.Get(p)
		if err != nil {
			continue
		}
		state := &providerState{envKeys: readEnvKeys(pcfg)}
		r.states[p] = state
		r.rebuildLocked(p, state)
	}

	r.logger.Info("Provider registry initialized",
		"providers", len(r.states),
		"configured", len(r.configuredLocked()))
	return r
}

// newHTTPClient builds the shared outbound client for all adapters.
func newHTTPClient(verifySSL bool) *http.Client {
	if verifySSL {
		return &http.Client{}
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: true,             //nolint:gosec // user-configured
		MinVersion:         tls.VersionTLS12, // prevent protocol downgrade even in relaxed mode
	}
	return &http.Client{Transport: transport}
}

// UpdateKeys atomically replaces credentials and rebuilds clients for the
// named providers. An empty primary clears the user override so the
// provider falls back to its environment keys. Construction failures are
// logged and the provider reports as unconfigured; they never propagate.
// Returns the providers configured after the update, sorted.
func (r *Registry) UpdateKeys(updates map[config.ProviderType]KeySet) []config.ProviderType {
	r.mu.Lock()
	defer r.mu.Unlock()

	for p, ks := range updates {
		state, ok := r.states[p]
		if !ok {
			r.logger.Warn("Ignoring keys for unknown provider", "provider", p)
			continue
		}
		if strings.TrimSpace(ks.Primary) == "" {
			state.override = nil
		} else {
			normalized := normalizeKeySet(ks)
			state.override = &normalized
		}
		r.rebuildLocked(p, state)
	}
	return r.configuredLocked()
}

// ReloadFromEnvironment re-reads the key environment variables for every
// provider. User overrides set through UpdateKeys survive the reload;
// only environment-sourced providers get rebuilt. Returns the providers
// configured afterwards, sorted.
func (r *Registry) ReloadFromEnvironment() []config.ProviderType {
	r.mu.Lock()
	defer r.mu.Unlock()

	for p, state := range r.states {
		pcfg, err := r.providers.Get(p)
		if err != nil {
			continue
		}
		state.envKeys = readEnvKeys(pcfg)
		if state.override == nil {
			r.rebuildLocked(p, state)
		}
	}
	return r.configuredLocked()
}

// rebuildLocked swaps the provider's client to match its effective keys.
// Callers hold r.mu.
func (r *Registry) rebuildLocked(p config.ProviderType, state *providerState) {
	state.cursor = 0
	eff := state.effective()
	if eff.IsEmpty() {
		state.client = nil
		return
	}

	pcfg, err := r.providers.Get(p)
	if err != nil {
		state.client = nil
		return
	}
	client, err := r.factory(p, eff.Primary, pcfg, r.httpClient)
	if err != nil {
		r.logger.Error("Provider client construction failed, provider unconfigured",
			"provider", p, "error", err)
		state.client = nil
		return
	}
	state.client = client
}

// GetClient returns a ready client for the provider, or false when it has
// no usable credential. Never blocks on I/O.
func (r *Registry) GetClient(p config.ProviderType) (LLMClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[p]
	if !ok || state.client == nil {
		return nil, false
	}
	return state.client, true
}

// GetKey vends one key from the provider's rotation pool. Round-robin
// advances a per-provider cursor; random draws uniformly. Returns false
// when the provider holds no credential.
func (r *Registry) GetKey(p config.ProviderType, strategy config.KeyStrategy) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[p]
	if !ok {
		return "", false
	}
	keys := state.effective().All()
	if len(keys) == 0 {
		return "", false
	}

	if strategy == config.KeyStrategyRandom {
		return keys[rand.IntN(len(keys))], true
	}
	key := keys[state.cursor%len(keys)]
	state.cursor = (state.cursor + 1) % len(keys)
	return key, true
}

// ConfiguredProviders returns a sorted snapshot of providers that
// currently hold a working client.
func (r *Registry) ConfiguredProviders() []config.ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.configuredLocked()
}

// configuredLocked collects configured providers in sorted order.
// Callers hold r.mu.
func (r *Registry) configuredLocked() []config.ProviderType {
	configured := make([]config.ProviderType, 0, len(r.states))
	for p, state := range r.states {
		if state.client != nil {
			configured = append(configured, p)
		}
	}
	sort.Slice(configured, func(i, j int) bool { return configured[i] < configured[j] })
	return configured
}

// ResolveTier maps a model tier onto a concrete bound model, preferring
// configured providers in sorted order. Providers without an exact tier
// entry fall back to their standard tier.
func (r *Registry) ResolveTier(tier config.ModelTier) (*BoundModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.providers.Types() {
		state, ok := r.states[p]
		if !ok || state.client == nil {
			continue
		}
		pcfg, err := r.providers.Get(p)
		if err != nil {
			continue
		}
		tm, ok := pcfg.TierFor(tier)
		if !ok {
			continue
		}
		return &BoundModel{
			Provider:   p,
			ModelID:    tm.Model,
			TokenLimit: tm.TokenLimit,
			Key:        state.effective().Primary,
			Client:     state.client,
		}, nil
	}
	return nil, fmt.Errorf("no provider for tier %q: %w", tier, ErrProviderNotConfigured)
}

// CurrentKey reports the provider's effective primary key. Agents compare
// it with their bound client's key to detect rotation without consuming a
// rotation draw.
func (r *Registry) CurrentKey(p config.ProviderType) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[p]
	if !ok {
		return "", false
	}
	eff := state.effective()
	if eff.IsEmpty() {
		return "", false
	}
	return eff.Primary, true
}

// Verify checks the provider's current credential with a one-token ping.
// Unlike UpdateKeys, it surfaces construction and authentication errors to
// the caller. The ping uses the provider's fast-tier model.
func (r *Registry) Verify(ctx context.Context, p config.ProviderType) error {
	r.mu.RLock()
	state, ok := r.states[p]
	if !ok {
		r.mu.RUnlock()
		return fmt.Errorf("%s: %w", p, ErrProviderNotConfigured)
	}
	eff := state.effective()
	r.mu.RUnlock()

	if eff.IsEmpty() {
		return fmt.Errorf("%s: %w", p, ErrProviderNotConfigured)
	}
	pcfg, err := r.providers.Get(p)
	if err != nil {
		return fmt.Errorf("%s: %w", p, ErrProviderNotConfigured)
	}
	tm, ok := pcfg.TierFor(config.TierFast)
	if !ok {
		return fmt.Errorf("%s: no model configured for verification", p)
	}

	client, err := r.factory(p, eff.Primary, pcfg, r.httpClient)
	if err != nil {
		return fmt.Errorf("%s client construction: %w", p, err)
	}

	_, err = client.Complete(ctx, CompletionRequest{
		Model:     tm.Model,
		MaxTokens: 1,
		Messages:  []models.AgentMessage{models.NewUserMessage("ping")},
	})
	return err
}

// defaultClientFactory builds the real SDK adapters.
func defaultClientFactory(p config.ProviderType, key string, pcfg *config.ProviderConfig, httpClient *http.Client) (LLMClient, error) {
	switch p {
	case config.ProviderOpenAI:
		return NewOpenAIClient(key, pcfg.BaseURL, httpClient), nil
	case config.ProviderAnthropic:
		return NewAnthropicClient(key, pcfg.BaseURL, httpClient), nil
	case config.ProviderGemini:
		return NewGeminiClient(key, pcfg.BaseURL, httpClient)
	default:
		return nil, fmt.Errorf("unknown provider type %q", p)
	}
}
