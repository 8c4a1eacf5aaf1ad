package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/database"
	"github.com/northstar-pm/northstar/pkg/events"
	"github.com/northstar-pm/northstar/pkg/metrics"
	"github.com/northstar-pm/northstar/pkg/models"
	"github.com/northstar-pm/northstar/pkg/providers"
	"github.com/northstar-pm/northstar/pkg/queue"
	"github.com/northstar-pm/northstar/pkg/services"
)

// Orchestrator runs a chat request through the multi-agent pipeline,
// either collecting the full response or streaming events as it goes.
// *orchestrator.Coordinator implements it.
type Orchestrator interface {
	Process(ctx context.Context, req *models.ChatRequest) (*models.MultiAgentResponse, error)
	ProcessStream(ctx context.Context, req *models.ChatRequest, emitter *events.Emitter) (*models.MultiAgentResponse, error)
}

// Server is the HTTP API server. Core dependencies arrive through
// NewServer; optional components (provider key management, agent metrics)
// are injected via setters and their endpoints return 503 until set.
type Server struct {
	echo     *echo.Echo
	cfg      *config.Config
	dbClient *database.Client

	coordinator Orchestrator
	jobs        *queue.JobManager
	workerPool  *queue.WorkerPool
	connManager *events.ConnectionManager

	apiKeys     *services.APIKeyService
	registry    *providers.Registry
	collector   *metrics.Collector
	promHandler http.Handler

	httpServer *http.Server
}

// NewServer creates the API server and registers all routes.
func NewServer(
	cfg *config.Config,
	dbClient *database.Client,
	coordinator Orchestrator,
	jobs *queue.JobManager,
	workerPool *queue.WorkerPool,
	connManager *events.ConnectionManager,
) *Server {
	e := echo.New()

	s := &Server{
		echo:        e,
		cfg:         cfg,
		dbClient:    dbClient,
		coordinator: coordinator,
		jobs:        jobs,
		workerPool:  workerPool,
		connManager: connManager,
	}

	e.Use(requestLogger())
	e.Use(securityHeaders())
	s.registerRoutes()

	return s
}

// SetAPIKeyService enables the provider key endpoints.
func (s *Server) SetAPIKeyService(svc *services.APIKeyService) {
	s.apiKeys = svc
}

// SetProviderRegistry enables provider listing, verification, and live key
// updates after a key save.
func (s *Server) SetProviderRegistry(r *providers.Registry) {
	s.registry = r
}

// SetCollector enables the agent metrics endpoint and the Prometheus
// exposition endpoint backed by the collector's registry.
func (s *Server) SetCollector(c *metrics.Collector) {
	s.collector = c
	s.promHandler = promhttp.HandlerFor(c.Registry(), promhttp.HandlerOpts{})
}

func (s *Server) registerRoutes() {
	e := s.echo

	// Chat (synchronous + SSE streaming)
	e.POST("/api/v1/chat", s.chatHandler)
	e.POST("/api/v1/chat/stream", s.chatStreamHandler)

	// Async jobs
	e.POST("/api/v1/jobs", s.submitJobHandler)
	e.GET("/api/v1/jobs/:id", s.jobStatusHandler)
	e.GET("/api/v1/jobs/:id/result", s.jobResultHandler)
	e.POST("/api/v1/jobs/:id/cancel", s.cancelJobHandler)

	// WebSocket event stream
	e.GET("/api/v1/ws", s.wsHandler)

	// Provider key management
	e.PUT("/api/v1/providers/keys", s.saveProviderKeyHandler)
	e.GET("/api/v1/providers", s.listProvidersHandler)
	e.POST("/api/v1/providers/:provider/verify", s.verifyProviderHandler)

	// Observability
	e.GET("/api/v1/metrics/agents", s.agentMetricsHandler)
	e.GET("/metrics", s.prometheusMetricsHandler)
	e.GET("/api/v1/health", s.healthHandler)
}

// Start begins serving HTTP requests. It blocks until the server stops and
// returns http.ErrServerClosed after a graceful Shutdown.
//
// Only the header read is bounded: SSE and WebSocket responses are
// long-lived, so the server sets no write or idle deadline.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("API server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server, waiting for in-flight
// requests up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
