package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// NorthStarYAMLConfig represents the complete northstar.yaml file structure
type NorthStarYAMLConfig struct {
	System      *SystemYAMLConfig               `yaml:"system"`
	Integration *IntegrationConfig              `yaml:"integration"`
	Knowledge   *KnowledgeConfig                `yaml:"knowledge"`
	Cache       *CacheConfig                    `yaml:"cache"`
	Defaults    *Defaults                       `yaml:"defaults"`
	Queue       *QueueConfig                    `yaml:"queue"`
	Providers   map[ProviderType]ProviderConfig `yaml:"providers"`
}

// SystemYAMLConfig groups system-wide infrastructure settings.
type SystemYAMLConfig struct {
	DashboardURL     string           `yaml:"dashboard_url"`
	AllowedWSOrigins []string         `yaml:"allowed_ws_origins"`
	Slack            *SlackYAMLConfig `yaml:"slack"`
	Retention        *RetentionConfig `yaml:"retention"`
}

// SlackYAMLConfig holds Slack notification settings from YAML.
type SlackYAMLConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	TokenEnv string `yaml:"token_env,omitempty"`
	Channel  string `yaml:"channel,omitempty"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load northstar.yaml from configDir (missing file = builtin defaults)
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined provider configurations
//  5. Build in-memory registries
//  6. Apply default values
//  7. Validate all configuration
//  8. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	// 1. Load configuration files
	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Validate all configuration
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"providers", stats.Providers,
		"mcp_servers", stats.MCPServers)

	return cfg, nil
}

// load is the internal loader (not exported)
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{
		configDir: configDir,
	}

	// 1. Load northstar.yaml (providers, integration, defaults, queue, system)
	yamlCfg, err := loader.loadNorthStarYAML()
	if err != nil {
		return nil, NewLoadError("northstar.yaml", err)
	}

	// 2. Get built-in configuration
	builtin := GetBuiltinConfig()

	// 3. Merge built-in + user-defined components (user overrides built-in)
	providers := mergeProviders(builtin.Providers, yamlCfg.Providers)
	mcpServers := mergeMCPServers(yamlCfg.MCPServers())

	// 4. Build registries
	providerRegistry := NewProviderRegistry(providers)
	mcpServerRegistry := NewMCPServerRegistry(mcpServers)

	// 5. Resolve defaults (YAML overrides built-in)
	defaults := DefaultDefaults()
	if yamlCfg.Defaults != nil {
		if err := mergo.Merge(defaults, yamlCfg.Defaults, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge defaults: %w", err)
		}
	}

	// 6. Resolve queue config (merge user YAML with built-in defaults)
	// Start with defaults, then merge user config on top to preserve unset defaults
	queueConfig := DefaultQueueConfig()
	if yamlCfg.Queue != nil {
		if err := mergo.Merge(queueConfig, yamlCfg.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	// 7. Resolve remaining sections
	cacheCfg := resolveCacheConfig(yamlCfg.Cache)
	knowledgeCfg := resolveKnowledgeConfig(yamlCfg.Knowledge)
	documentsCfg := resolveDocumentsConfig(yamlCfg.Integration)
	slackCfg := resolveSlackConfig(yamlCfg.System)
	retentionCfg := resolveRetentionConfig(yamlCfg.System)
	systemCfg := resolveSystemConfig(yamlCfg.System)

	return &Config{
		configDir:         configDir,
		Defaults:          defaults,
		Queue:             queueConfig,
		Cache:             cacheCfg,
		Knowledge:         knowledgeCfg,
		Documents:         documentsCfg,
		Retention:         retentionCfg,
		Slack:             slackCfg,
		System:            systemCfg,
		ProviderRegistry:  providerRegistry,
		MCPServerRegistry: mcpServerRegistry,
	}, nil
}

// MCPServers returns the configured MCP server map, never nil.
func (c *NorthStarYAMLConfig) MCPServers() map[string]MCPServerConfig {
	if c.Integration == nil || c.Integration.MCPServers == nil {
		return map[string]MCPServerConfig{}
	}
	return c.Integration.MCPServers
}

// validate performs comprehensive validation on loaded configuration
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables using {{.VAR}} template syntax
	// Note: ExpandEnv passes through original data on parse/execution errors,
	// allowing YAML parser to handle the content (or fail with clearer error message)
	data = ExpandEnv(data)

	// Parse YAML
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadNorthStarYAML() (*NorthStarYAMLConfig, error) {
	var config NorthStarYAMLConfig

	// Initialize maps to avoid nil maps
	config.Providers = make(map[ProviderType]ProviderConfig)

	err := l.loadYAML("northstar.yaml", &config)
	if err == nil {
		return &config, nil
	}

	// A missing file is fine: built-in defaults plus environment API keys
	// are a complete configuration.
	if errors.Is(err, ErrConfigNotFound) {
		slog.Info("No northstar.yaml found, using built-in configuration", "config_dir", l.configDir)
		return &config, nil
	}

	return nil, err
}

// resolveCacheConfig resolves cache configuration from YAML, applying defaults.
func resolveCacheConfig(yamlCfg *CacheConfig) *CacheConfig {
	cfg := DefaultCacheConfig()

	if yamlCfg == nil {
		return cfg
	}

	if yamlCfg.Enabled != nil {
		cfg.Enabled = yamlCfg.Enabled
	}
	if yamlCfg.TTL > 0 {
		cfg.TTL = yamlCfg.TTL
	}
	if yamlCfg.RedisAddr != "" {
		cfg.RedisAddr = yamlCfg.RedisAddr
	}
	if yamlCfg.RedisPasswordEnv != "" {
		cfg.RedisPasswordEnv = yamlCfg.RedisPasswordEnv
	}
	if yamlCfg.RedisDB != 0 {
		cfg.RedisDB = yamlCfg.RedisDB
	}
	if yamlCfg.KeyPrefix != "" {
		cfg.KeyPrefix = yamlCfg.KeyPrefix
	}

	return cfg
}

// resolveKnowledgeConfig resolves knowledge store configuration from YAML, applying defaults.
func resolveKnowledgeConfig(yamlCfg *KnowledgeConfig) *KnowledgeConfig {
	cfg := DefaultKnowledgeConfig()

	if yamlCfg == nil {
		return cfg
	}

	if yamlCfg.Backend != "" {
		cfg.Backend = yamlCfg.Backend
	}
	if yamlCfg.Collection != "" {
		cfg.Collection = yamlCfg.Collection
	}
	if yamlCfg.TopK > 0 {
		cfg.TopK = yamlCfg.TopK
	}
	if yamlCfg.Path != "" {
		cfg.Path = yamlCfg.Path
	}
	if yamlCfg.Qdrant != nil {
		qdrantCopy := *yamlCfg.Qdrant
		if qdrantCopy.Port == 0 {
			qdrantCopy.Port = 6334
		}
		cfg.Qdrant = &qdrantCopy
	}
	if yamlCfg.Embedding != nil {
		embCopy := *yamlCfg.Embedding
		if embCopy.Provider == "" {
			embCopy.Provider = cfg.Embedding.Provider
		}
		if embCopy.Model == "" {
			embCopy.Model = cfg.Embedding.Model
		}
		cfg.Embedding = &embCopy
	}

	return cfg
}

// resolveDocumentsConfig resolves document source configuration from YAML, applying defaults.
func resolveDocumentsConfig(integration *IntegrationConfig) *DocumentSourcesConfig {
	cfg := DefaultDocumentSourcesConfig()

	if integration == nil || integration.Documents == nil {
		return cfg
	}

	docs := integration.Documents
	if len(docs.AllowedDomains) > 0 {
		cfg.AllowedDomains = docs.AllowedDomains
	}
	if docs.CacheTTL > 0 {
		cfg.CacheTTL = docs.CacheTTL
	}
	if docs.TokenEnv != "" {
		cfg.TokenEnv = docs.TokenEnv
	}

	return cfg
}

// resolveSlackConfig resolves Slack configuration from system YAML, applying defaults.
func resolveSlackConfig(sys *SystemYAMLConfig) *SlackConfig {
	cfg := &SlackConfig{
		Enabled:  false,
		TokenEnv: "SLACK_BOT_TOKEN",
	}

	if sys == nil || sys.Slack == nil {
		return cfg
	}

	s := sys.Slack
	if s.Enabled != nil {
		cfg.Enabled = *s.Enabled
	}
	if s.TokenEnv != "" {
		cfg.TokenEnv = s.TokenEnv
	}
	if s.Channel != "" {
		cfg.Channel = s.Channel
	}

	return cfg
}

// resolveRetentionConfig resolves retention configuration from system YAML, applying defaults.
func resolveRetentionConfig(sys *SystemYAMLConfig) *RetentionConfig {
	cfg := DefaultRetentionConfig()

	if sys == nil || sys.Retention == nil {
		return cfg
	}

	r := sys.Retention
	if r.JobRetention > 0 {
		cfg.JobRetention = r.JobRetention
	}
	if r.EventTTL > 0 {
		cfg.EventTTL = r.EventTTL
	}
	if r.CleanupInterval > 0 {
		cfg.CleanupInterval = r.CleanupInterval
	}

	return cfg
}

// resolveSystemConfig resolves system-wide settings from system YAML, applying defaults.
func resolveSystemConfig(sys *SystemYAMLConfig) *SystemConfig {
	cfg := &SystemConfig{
		DashboardURL: "http://localhost:5173",
	}

	if sys == nil {
		return cfg
	}

	if sys.DashboardURL != "" {
		cfg.DashboardURL = sys.DashboardURL
	}
	cfg.AllowedWSOrigins = sys.AllowedWSOrigins

	return cfg
}
