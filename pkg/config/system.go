package config

// SlackConfig holds resolved Slack notification configuration.
type SlackConfig struct {
	Enabled  bool
	TokenEnv string // Env var name for Slack bot token (default: "SLACK_BOT_TOKEN")
	Channel  string // Slack channel ID (e.g., "C12345678")
}

// SystemConfig holds resolved system-wide infrastructure settings.
type SystemConfig struct {
	// DashboardURL is the base URL of the product dashboard, used in
	// notification links.
	DashboardURL string

	// AllowedWSOrigins lists additional origins accepted by the WebSocket
	// endpoint beyond the default local-development set.
	AllowedWSOrigins []string
}
