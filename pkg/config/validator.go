package config

import (
	"fmt"
)

// ConfigValidator validates configuration comprehensively with clear error messages
type ConfigValidator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *ConfigValidator {
	return &ConfigValidator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error)
func (v *ConfigValidator) ValidateAll() error {
	// Validate in order: providers → MCP servers → knowledge → defaults
	// This ensures dependencies are validated before dependents

	if err := v.validateProviders(); err != nil {
		return fmt.Errorf("provider validation failed: %w", err)
	}

	if err := v.validateMCPServers(); err != nil {
		return fmt.Errorf("MCP server validation failed: %w", err)
	}

	if err := v.validateKnowledge(); err != nil {
		return fmt.Errorf("knowledge validation failed: %w", err)
	}

	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}

	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}

	return nil
}

func (v *ConfigValidator) validateProviders() error {
	for typ, provider := range v.cfg.ProviderRegistry.GetAll() {
		name := string(typ)

		if !typ.IsValid() {
			return NewValidationError("provider", name, "type", fmt.Errorf("unknown provider type"))
		}
		if provider.Type != "" && provider.Type != typ {
			return NewValidationError("provider", name, "type", fmt.Errorf("type '%s' does not match map key", provider.Type))
		}
		if provider.APIKeyEnv == "" {
			return NewValidationError("provider", name, "api_key_env", ErrMissingRequiredField)
		}

		// Every provider must serve the standard tier; fast/premium fall back to it.
		if _, ok := provider.Tiers[TierStandard]; !ok {
			return NewValidationError("provider", name, "tiers", fmt.Errorf("standard tier is required"))
		}

		for tier, tm := range provider.Tiers {
			if !tier.IsValid() {
				return NewValidationError("provider", name, "tiers", fmt.Errorf("unknown tier '%s'", tier))
			}
			if tm.Model == "" {
				return NewValidationError("provider", name, fmt.Sprintf("tiers.%s.model", tier), ErrMissingRequiredField)
			}
			if tm.TokenLimit < 0 {
				return NewValidationError("provider", name, fmt.Sprintf("tiers.%s.token_limit", tier), fmt.Errorf("must not be negative"))
			}
		}
	}

	return nil
}

func (v *ConfigValidator) validateMCPServers() error {
	for serverID, server := range v.cfg.MCPServerRegistry.GetAll() {
		transport := server.Transport

		if !transport.Type.IsValid() {
			return NewValidationError("mcp_server", serverID, "transport.type", fmt.Errorf("invalid transport type: %s", transport.Type))
		}

		switch transport.Type {
		case TransportTypeStdio:
			if transport.Command == "" {
				return NewValidationError("mcp_server", serverID, "transport.command", fmt.Errorf("required for stdio transport"))
			}
		case TransportTypeHTTP, TransportTypeSSE:
			if transport.URL == "" {
				return NewValidationError("mcp_server", serverID, "transport.url", fmt.Errorf("required for %s transport", transport.Type))
			}
		}

		if transport.Timeout < 0 {
			return NewValidationError("mcp_server", serverID, "transport.timeout", fmt.Errorf("must not be negative"))
		}
	}

	return nil
}

func (v *ConfigValidator) validateKnowledge() error {
	k := v.cfg.Knowledge
	if k == nil {
		return nil
	}

	if !k.Backend.IsValid() {
		return NewValidationError("knowledge", string(k.Backend), "backend", fmt.Errorf("unknown backend"))
	}
	if k.TopK < 1 {
		return NewValidationError("knowledge", string(k.Backend), "top_k", fmt.Errorf("must be at least 1"))
	}
	if k.Backend == KnowledgeBackendQdrant {
		if k.Qdrant == nil || k.Qdrant.Host == "" {
			return NewValidationError("knowledge", string(k.Backend), "qdrant.host", fmt.Errorf("required for qdrant backend"))
		}
	}
	if k.Embedding != nil && k.Embedding.Provider != "" && !k.Embedding.Provider.IsValid() {
		return NewValidationError("knowledge", string(k.Backend), "embedding.provider", fmt.Errorf("unknown provider type: %s", k.Embedding.Provider))
	}

	return nil
}

func (v *ConfigValidator) validateDefaults() error {
	d := v.cfg.Defaults
	if d == nil {
		return nil
	}

	if d.ModelTier != "" && !d.ModelTier.IsValid() {
		return NewValidationError("defaults", "defaults", "model_tier", fmt.Errorf("invalid tier: %s", d.ModelTier))
	}
	if d.ResponseLength != "" && !d.ResponseLength.IsValid() {
		return NewValidationError("defaults", "defaults", "response_length", fmt.Errorf("invalid length: %s", d.ResponseLength))
	}
	if d.KeyStrategy != "" && !d.KeyStrategy.IsValid() {
		return NewValidationError("defaults", "defaults", "key_strategy", fmt.Errorf("invalid strategy: %s", d.KeyStrategy))
	}
	if d.MaxHistoryRuns < 1 {
		return NewValidationError("defaults", "defaults", "max_history_runs", fmt.Errorf("must be at least 1"))
	}
	if d.MaxParallelAgents < 1 {
		return NewValidationError("defaults", "defaults", "max_parallel_agents", fmt.Errorf("must be at least 1"))
	}
	if d.ChunkSize < 10 {
		return NewValidationError("defaults", "defaults", "chunk_size", fmt.Errorf("must be at least 10"))
	}
	if d.AgentResponseTimeout <= 0 {
		return NewValidationError("defaults", "defaults", "agent_response_timeout", fmt.Errorf("must be positive"))
	}

	return nil
}

func (v *ConfigValidator) validateQueue() error {
	q := v.cfg.Queue
	if q == nil {
		return fmt.Errorf("queue configuration is nil")
	}

	if q.WorkerCount < 1 || q.WorkerCount > 50 {
		return fmt.Errorf("worker_count must be between 1 and 50, got %d", q.WorkerCount)
	}
	if q.MaxConcurrentJobs < 1 {
		return fmt.Errorf("max_concurrent_jobs must be at least 1, got %d", q.MaxConcurrentJobs)
	}
	if q.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", q.PollInterval)
	}
	if q.PollIntervalJitter < 0 {
		return fmt.Errorf("poll_interval_jitter must be non-negative, got %s", q.PollIntervalJitter)
	}
	if q.PollIntervalJitter >= q.PollInterval {
		return fmt.Errorf("poll_interval_jitter must be less than poll_interval")
	}
	if q.JobTimeout <= 0 {
		return fmt.Errorf("job_timeout must be positive, got %s", q.JobTimeout)
	}
	if q.GracefulShutdownTimeout <= 0 {
		return fmt.Errorf("graceful_shutdown_timeout must be positive, got %s", q.GracefulShutdownTimeout)
	}
	if q.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive, got %s", q.HeartbeatInterval)
	}
	if q.OrphanDetectionInterval <= 0 {
		return fmt.Errorf("orphan_detection_interval must be positive, got %s", q.OrphanDetectionInterval)
	}
	if q.OrphanThreshold <= 0 {
		return fmt.Errorf("orphan_threshold must be positive, got %s", q.OrphanThreshold)
	}
	if q.OrphanThreshold < q.HeartbeatInterval*2 {
		return fmt.Errorf("orphan_threshold must be at least twice heartbeat_interval")
	}
	if q.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", q.MaxAttempts)
	}

	return nil
}
