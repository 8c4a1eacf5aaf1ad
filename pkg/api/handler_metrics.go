package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/northstar-pm/northstar/pkg/metrics"
)

// AgentMetricsResponse is returned by GET /api/v1/metrics/agents.
type AgentMetricsResponse struct {
	Agents []metrics.RoleSnapshot `json:"agents"`
}

// agentMetricsHandler handles GET /api/v1/metrics/agents.
// Returns the per-role call, latency, cache, and token aggregates since
// process start, sorted by role.
func (s *Server) agentMetricsHandler(c *echo.Context) error {
	if s.collector == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "metrics not available")
	}

	return c.JSON(http.StatusOK, AgentMetricsResponse{
		Agents: s.collector.Snapshot(),
	})
}

// prometheusMetricsHandler handles GET /metrics with the standard
// Prometheus exposition format for the collector's registry.
func (s *Server) prometheusMetricsHandler(c *echo.Context) error {
	if s.promHandler == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "metrics not available")
	}

	s.promHandler.ServeHTTP(c.Response(), c.Request())
	return nil
}
