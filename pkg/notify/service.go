package notify

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/northstar-pm/northstar/pkg/config"
)

// JobFinishedInput contains data for a terminal job notification.
type JobFinishedInput struct {
	JobID        string
	Status       string // completed, failed, cancelled
	Answer       string
	ErrorMessage string
	Elapsed      time.Duration
}

// Service handles Slack notification delivery.
// Nil-safe: all methods are no-ops when service is nil.
type Service struct {
	client       *Client
	dashboardURL string
	logger       *slog.Logger
}

// NewService creates the notification service from resolved config. Returns
// nil when notifications are disabled, the channel is missing, or the token
// env var is unset — config carries the env var NAME, never the token.
func NewService(cfg *config.SlackConfig, dashboardURL string) *Service {
	if cfg == nil || !cfg.Enabled || cfg.Channel == "" {
		return nil
	}
	token := os.Getenv(cfg.TokenEnv)
	if token == "" {
		slog.Warn("Slack notifications enabled but token env var is empty, disabling",
			"token_env", cfg.TokenEnv)
		return nil
	}
	return &Service{
		client:       NewClient(token, cfg.Channel),
		dashboardURL: dashboardURL,
		logger:       slog.Default().With("component", "notify-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client, dashboardURL string) *Service {
	return &Service{
		client:       client,
		dashboardURL: dashboardURL,
		logger:       slog.Default().With("component", "notify-service"),
	}
}

// NotifyJobFinished sends a terminal status notification.
// Fail-open: errors are logged, never returned.
func (s *Service) NotifyJobFinished(ctx context.Context, input JobFinishedInput) {
	if s == nil {
		return
	}

	blocks := BuildJobMessage(input, s.dashboardURL)
	if err := s.client.PostMessage(ctx, blocks, 10*time.Second); err != nil {
		s.logger.Error("Failed to send Slack notification",
			"job_id", input.JobID,
			"status", input.Status,
			"error", err)
	}
}
