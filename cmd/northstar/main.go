// Northstar orchestration server — provides the HTTP API, manages queue
// workers, and runs the multi-agent pipeline behind every chat request.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/northstar-pm/northstar/pkg/agent"
	"github.com/northstar-pm/northstar/pkg/agent/agentctx"
	"github.com/northstar-pm/northstar/pkg/api"
	"github.com/northstar-pm/northstar/pkg/cache"
	"github.com/northstar-pm/northstar/pkg/cleanup"
	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/database"
	"github.com/northstar-pm/northstar/pkg/events"
	"github.com/northstar-pm/northstar/pkg/integration"
	"github.com/northstar-pm/northstar/pkg/knowledge"
	"github.com/northstar-pm/northstar/pkg/metrics"
	"github.com/northstar-pm/northstar/pkg/notify"
	"github.com/northstar-pm/northstar/pkg/orchestrator"
	"github.com/northstar-pm/northstar/pkg/providers"
	"github.com/northstar-pm/northstar/pkg/queue"
	"github.com/northstar-pm/northstar/pkg/services"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// resolvePodID determines the pod identifier for multi-replica coordination.
// Priority: POD_ID env > HOSTNAME env > "local"
func resolvePodID() string {
	if id := os.Getenv("POD_ID"); id != "" {
		return id
	}
	if hostname := os.Getenv("HOSTNAME"); hostname != "" {
		return hostname
	}
	return "local"
}

func main() {
	// Parse command-line flags
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	// Load .env file from config directory
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	podID := resolvePodID()

	slog.Info("Starting Northstar",
		"http_port", httpPort,
		"pod_id", podID,
		"config_dir", *configDir)

	ctx := context.Background()

	// 1. Initialize configuration
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize database
	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("Failed to load database config", "error", err)
		os.Exit(1)
	}

	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("Error closing database client", "error", err)
		}
	}()
	slog.Info("Connected to PostgreSQL database")

	// 3. Domain services
	productService := services.NewProductService(dbClient.DB())
	jobService := services.NewJobService(dbClient.DB())
	eventService := services.NewEventService(dbClient.DB())
	apiKeyService := services.NewAPIKeyService(dbClient.DB())
	slog.Info("Services initialized")

	// 4. One-time startup orphan recovery: jobs this pod was processing
	// before a restart go back to pending.
	if err := queue.RecoverStartupOrphans(ctx, jobService, podID); err != nil {
		slog.Error("Failed to recover startup orphans", "error", err)
		// Non-fatal — continue
	}

	// 5. Provider registry: environment keys first, then stored user keys
	// layered on top.
	registry := providers.NewRegistry(cfg.ProviderRegistry, cfg.Defaults)
	if keySets, err := apiKeyService.LoadKeySets(ctx); err != nil {
		slog.Warn("Could not load stored provider keys", "error", err)
	} else if len(keySets) > 0 {
		configured := registry.UpdateKeys(keySets)
		slog.Info("Loaded stored provider keys", "configured", len(configured))
	}

	// 6. Response cache and metrics
	responseCache := cache.NewResponseCache(cfg.Cache)
	collector := metrics.NewCollector()

	// 7. Knowledge store. Needs an embedding key; without one the store
	// stays nil and every retrieval degrades to "knowledge skipped".
	var knowledgeStore knowledge.Store
	embedProvider := cfg.Knowledge.Embedding.Provider
	if apiKey, ok := registry.CurrentKey(embedProvider); ok {
		embed := knowledge.NewOpenAIEmbedder(apiKey, cfg.Knowledge.Embedding.Model)
		knowledgeStore, err = knowledge.NewStore(cfg.Knowledge, embed)
		if err != nil {
			slog.Error("Failed to initialize knowledge store", "error", err)
			os.Exit(1)
		}
		slog.Info("Knowledge store initialized", "backend", cfg.Knowledge.Backend)
	} else {
		slog.Warn("No embedding provider key; knowledge retrieval disabled",
			"provider", embedProvider)
	}

	// 8. Integration document sources (external trackers, wikis, repos)
	var docToken string
	if cfg.Documents != nil && cfg.Documents.TokenEnv != "" {
		docToken = os.Getenv(cfg.Documents.TokenEnv)
	}
	integrationService := integration.NewService(cfg.MCPServerRegistry, cfg.Documents, docToken, collector)
	defer func() {
		if err := integrationService.Close(); err != nil {
			slog.Error("Error closing integration service", "error", err)
		}
	}()

	// 9. Agent roster and coordinator
	deps := agent.Dependencies{
		Registry: registry,
		Cache:    responseCache,
		Metrics:  collector,
		Defaults: cfg.Defaults,
	}
	agents := agent.BuildAgents(deps, knowledgeStore, cfg.Knowledge.TopK, integrationService)
	builder := agentctx.NewBuilder(productService, productService, knowledgeStore, cfg.Knowledge.TopK, cfg.Defaults)
	coordinator := orchestrator.NewCoordinator(agents, builder, orchestrator.Options{
		Defaults:   cfg.Defaults,
		Escalation: orchestrator.DefaultEscalationPolicy(),
	})
	slog.Info("Coordinator initialized", "agents", len(agents))

	// 10. Streaming infrastructure
	eventPublisher := events.NewEventPublisher(dbClient.Pool())
	connManager := events.NewConnectionManager(eventService, 10*time.Second)

	// Start NotifyListener (dedicated connection for LISTEN)
	notifyListener := events.NewNotifyListener(dbClient.ConnString(), connManager.Broadcast)
	if err := notifyListener.Start(ctx); err != nil {
		slog.Error("Failed to start NotifyListener", "error", err)
		os.Exit(1)
	}
	defer notifyListener.Stop(ctx)

	// Wire listener ↔ manager bidirectional link
	connManager.SetListener(notifyListener)
	slog.Info("Streaming infrastructure initialized")

	// 11. Slack notifier (nil when disabled — every call is a no-op)
	notifier := notify.NewService(cfg.Slack, cfg.System.DashboardURL)

	// 12. Start worker pool (before HTTP server)
	executor := queue.NewCoordinatorExecutor(coordinator)
	workerPool := queue.NewWorkerPool(podID, jobService, eventService, cfg.Queue, executor, eventPublisher, notifier)
	if err := workerPool.Start(ctx); err != nil {
		slog.Error("Failed to start worker pool", "error", err)
		os.Exit(1)
	}
	jobManager := queue.NewJobManager(jobService, workerPool)

	// 13. Retention cleanup loop
	cleanupService := cleanup.NewService(cfg.Retention, dbClient.DB(), jobService, eventService)
	cleanupService.Start(ctx)
	defer cleanupService.Stop()

	// 14. Create HTTP server
	httpServer := api.NewServer(cfg, dbClient, coordinator, jobManager, workerPool, connManager)
	httpServer.SetAPIKeyService(apiKeyService)
	httpServer.SetProviderRegistry(registry)
	httpServer.SetCollector(collector)

	// 15. Start HTTP server (non-blocking)
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(":" + httpPort); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("Northstar started successfully",
		"pod_id", podID,
		"workers", cfg.Queue.WorkerCount,
		"providers", len(registry.ConfiguredProviders()))

	// 16. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 17. Graceful shutdown: stop the worker pool first so in-flight jobs
	// finish or re-queue, then drain HTTP.
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Queue.GracefulShutdownTimeout.Duration())
	defer cancel()

	done := make(chan struct{})
	go func() {
		workerPool.Stop()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Worker pool stopped gracefully")
	case <-shutdownCtx.Done():
		slog.Warn("Worker pool shutdown timeout exceeded")
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Northstar stopped")
}
