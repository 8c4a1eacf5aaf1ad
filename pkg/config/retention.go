package config

import "time"

// RetentionConfig controls data retention and cleanup behavior.
type RetentionConfig struct {
	// JobRetention is how long terminal (completed/failed) jobs are kept
	// before deletion.
	JobRetention Duration `yaml:"job_retention"`

	// EventTTL is the maximum age of orphaned job event rows before deletion.
	// Per-job cleanup handles the normal case; this is a safety net.
	EventTTL Duration `yaml:"event_ttl"`

	// CleanupInterval is how often the cleanup loop runs.
	CleanupInterval Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		JobRetention:    Duration(24 * time.Hour),
		EventTTL:        Duration(1 * time.Hour),
		CleanupInterval: Duration(1 * time.Hour),
	}
}
