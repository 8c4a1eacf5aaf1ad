package config

// Config is the umbrella configuration object that encapsulates
// all registries, defaults, and configuration state.
// This is the primary object returned by Initialize() and used throughout the application.
type Config struct {
	configDir string // Configuration directory path (for reference)

	// System-wide defaults
	Defaults *Defaults

	// Queue and worker pool configuration
	Queue *QueueConfig

	// Response cache configuration
	Cache *CacheConfig

	// Knowledge store configuration
	Knowledge *KnowledgeConfig

	// Document source configuration for the integration agent
	Documents *DocumentSourcesConfig

	// Data retention configuration
	Retention *RetentionConfig

	// Slack notification configuration
	Slack *SlackConfig

	// System-wide infrastructure settings
	System *SystemConfig

	// Component registries
	ProviderRegistry  *ProviderRegistry
	MCPServerRegistry *MCPServerRegistry
}

// Initialize is defined in loader.go

// Stats contains statistics about loaded configuration
type Stats struct {
	Providers  int
	MCPServers int
}

// Stats returns configuration statistics for logging/monitoring
func (c *Config) Stats() Stats {
	s := Stats{}
	if c.ProviderRegistry != nil {
		s.Providers = c.ProviderRegistry.Len()
	}
	if c.MCPServerRegistry != nil {
		s.MCPServers = c.MCPServerRegistry.Len()
	}
	return s
}

// ConfigDir returns the configuration directory path
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetProvider retrieves a provider configuration by type.
// This is a convenience method that wraps ProviderRegistry.Get().
func (c *Config) GetProvider(typ ProviderType) (*ProviderConfig, error) {
	return c.ProviderRegistry.Get(typ)
}

// GetMCPServer retrieves an MCP server configuration by ID.
// This is a convenience method that wraps MCPServerRegistry.Get().
func (c *Config) GetMCPServer(serverID string) (*MCPServerConfig, error) {
	return c.MCPServerRegistry.Get(serverID)
}

// AllMCPServerIDs returns all configured MCP server IDs.
func (c *Config) AllMCPServerIDs() []string {
	return c.MCPServerRegistry.ServerIDs()
}
