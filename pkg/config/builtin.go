package config

import (
	"sync"
)

// BuiltinConfig holds all built-in configuration data.
// This provides default providers with tier tables so the system runs with
// zero YAML beyond API keys in the environment.
type BuiltinConfig struct {
	Providers map[ProviderType]ProviderConfig
}

var (
	builtinConfig     *BuiltinConfig
	builtinConfigOnce sync.Once
)

// GetBuiltinConfig returns the singleton built-in configuration (thread-safe, lazy-initialized)
func GetBuiltinConfig() *BuiltinConfig {
	builtinConfigOnce.Do(initBuiltinConfig)
	return builtinConfig
}

func initBuiltinConfig() {
	builtinConfig = &BuiltinConfig{
		Providers: initBuiltinProviders(),
	}
}

func initBuiltinProviders() map[ProviderType]ProviderConfig {
	return map[ProviderType]ProviderConfig{
		ProviderOpenAI: {
			Type:       ProviderOpenAI,
			APIKeyEnv:  "OPENAI_API_KEY",
			AltKeysEnv: "OPENAI_API_KEYS",
			Tiers: map[ModelTier]TierModel{
				TierFast:     {Model: "gpt-4o-mini", TokenLimit: 4096},
				TierStandard: {Model: "gpt-4o", TokenLimit: 8192},
				TierPremium:  {Model: "gpt-4.1", TokenLimit: 16384},
			},
		},
		ProviderAnthropic: {
			Type:       ProviderAnthropic,
			APIKeyEnv:  "ANTHROPIC_API_KEY",
			AltKeysEnv: "ANTHROPIC_API_KEYS",
			Tiers: map[ModelTier]TierModel{
				TierFast:     {Model: "claude-3-5-haiku-latest", TokenLimit: 4096},
				TierStandard: {Model: "claude-sonnet-4-5", TokenLimit: 8192},
				TierPremium:  {Model: "claude-opus-4-1", TokenLimit: 16384},
			},
		},
		ProviderGemini: {
			Type:       ProviderGemini,
			APIKeyEnv:  "GEMINI_API_KEY",
			AltKeysEnv: "GEMINI_API_KEYS",
			Tiers: map[ModelTier]TierModel{
				TierFast:     {Model: "gemini-2.0-flash", TokenLimit: 4096},
				TierStandard: {Model: "gemini-2.5-flash", TokenLimit: 8192},
				TierPremium:  {Model: "gemini-2.5-pro", TokenLimit: 16384},
			},
		},
	}
}
