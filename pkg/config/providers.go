package config

import (
	"sort"
	"sync"
)

// TierModel binds a model tier to a concrete model for one provider.
type TierModel struct {
	Model      string `yaml:"model" validate:"required"`
	TokenLimit int    `yaml:"token_limit,omitempty" validate:"omitempty,min=256"`
}

// ProviderConfig defines an LLM provider configuration
type ProviderConfig struct {
	Type ProviderType `yaml:"type" validate:"required"`

	// APIKeyEnv names the environment variable holding the primary API key.
	APIKeyEnv string `yaml:"api_key_env" validate:"required"`

	// AltKeysEnv names the environment variable holding comma-separated
	// alternate keys used for rotation. Optional.
	AltKeysEnv string `yaml:"alt_keys_env,omitempty"`

	// BaseURL overrides the provider API endpoint. Optional.
	BaseURL string `yaml:"base_url,omitempty"`

	// Tiers maps each model tier to the provider model serving it.
	Tiers map[ModelTier]TierModel `yaml:"tiers"`
}

// TierFor returns the tier binding, falling back to the standard tier when
// the requested tier has no entry.
func (p *ProviderConfig) TierFor(tier ModelTier) (TierModel, bool) {
	if tm, ok := p.Tiers[tier]; ok {
		return tm, true
	}
	tm, ok := p.Tiers[TierStandard]
	return tm, ok
}

// ProviderRegistry manages provider configurations with thread-safe access
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[ProviderType]*ProviderConfig
}

// NewProviderRegistry creates a registry from a provider map.
// The map is copied; callers cannot mutate registry state afterwards.
func NewProviderRegistry(providers map[ProviderType]*ProviderConfig) *ProviderRegistry {
	copied := make(map[ProviderType]*ProviderConfig, len(providers))
	for typ, cfg := range providers {
		cfgCopy := *cfg
		copied[typ] = &cfgCopy
	}
	return &ProviderRegistry{providers: copied}
}

// Get retrieves a provider configuration by type
func (r *ProviderRegistry) Get(typ ProviderType) (*ProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.providers[typ]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return cfg, nil
}

// GetAll returns a copy of all provider configurations
func (r *ProviderRegistry) GetAll() map[ProviderType]*ProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[ProviderType]*ProviderConfig, len(r.providers))
	for typ, cfg := range r.providers {
		cfgCopy := *cfg
		result[typ] = &cfgCopy
	}
	return result
}

// Types returns all configured provider types in sorted order
func (r *ProviderRegistry) Types() []ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]ProviderType, 0, len(r.providers))
	for typ := range r.providers {
		types = append(types, typ)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Len returns the number of configured providers
func (r *ProviderRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
