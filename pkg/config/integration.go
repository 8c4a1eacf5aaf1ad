package config

import (
	"fmt"
	"sync"
	"time"
)

// TransportConfig defines MCP server transport configuration
type TransportConfig struct {
	Type TransportType `yaml:"type" validate:"required"`

	// For stdio transport
	Command string            `yaml:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"` // Environment overrides for stdio subprocess

	// For http/sse transport
	URL            string `yaml:"url,omitempty"`
	BearerTokenEnv string `yaml:"bearer_token_env,omitempty"`
	VerifySSL      *bool  `yaml:"verify_ssl,omitempty"`
	Timeout        int    `yaml:"timeout,omitempty"` // In seconds
}

// MCPServerConfig defines one external MCP server (issue tracker, wiki, code host).
type MCPServerConfig struct {
	// Transport configuration (required)
	Transport TransportConfig `yaml:"transport" validate:"required"`

	// Instructions for the LLM when material from this server is attached
	Instructions string `yaml:"instructions,omitempty"`
}

// DocumentSourcesConfig controls direct HTTP document retrieval
// (GitHub files, wiki pages) used alongside MCP servers.
type DocumentSourcesConfig struct {
	// AllowedDomains restricts which hosts documents may be fetched from.
	AllowedDomains []string `yaml:"allowed_domains,omitempty"`

	// CacheTTL is how long fetched documents are reused.
	CacheTTL Duration `yaml:"cache_ttl,omitempty"`

	// TokenEnv names the environment variable holding an access token for
	// authenticated fetches (private repositories). Optional.
	TokenEnv string `yaml:"token_env,omitempty"`
}

// IntegrationConfig groups everything the integration agent needs.
type IntegrationConfig struct {
	MCPServers map[string]MCPServerConfig `yaml:"mcp_servers,omitempty"`
	Documents  *DocumentSourcesConfig     `yaml:"documents,omitempty"`
}

// DefaultDocumentSourcesConfig returns the built-in document source defaults.
func DefaultDocumentSourcesConfig() *DocumentSourcesConfig {
	return &DocumentSourcesConfig{
		AllowedDomains: []string{"github.com", "raw.githubusercontent.com"},
		CacheTTL:       Duration(1 * time.Minute),
		TokenEnv:       "GITHUB_TOKEN",
	}
}

// MCPServerRegistry stores MCP server configurations in memory with thread-safe access
type MCPServerRegistry struct {
	servers map[string]*MCPServerConfig
	mu      sync.RWMutex
}

// NewMCPServerRegistry creates a new MCP server registry
func NewMCPServerRegistry(servers map[string]*MCPServerConfig) *MCPServerRegistry {
	return &MCPServerRegistry{
		servers: servers,
	}
}

// Get retrieves an MCP server configuration by ID (thread-safe)
func (r *MCPServerRegistry) Get(serverID string) (*MCPServerConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	server, exists := r.servers[serverID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrMCPServerNotFound, serverID)
	}
	return server, nil
}

// GetAll returns all MCP server configurations (thread-safe, returns copy)
func (r *MCPServerRegistry) GetAll() map[string]*MCPServerConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*MCPServerConfig, len(r.servers))
	for k, v := range r.servers {
		result[k] = v
	}
	return result
}

// Has checks if an MCP server exists in the registry (thread-safe)
func (r *MCPServerRegistry) Has(serverID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.servers[serverID]
	return exists
}

// ServerIDs returns all registered server IDs (thread-safe)
func (r *MCPServerRegistry) ServerIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.servers))
	for id := range r.servers {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of registered servers
func (r *MCPServerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.servers)
}

// BoolPtr returns a pointer to b. Convenience for *bool struct fields.
func BoolPtr(b bool) *bool { return &b }
