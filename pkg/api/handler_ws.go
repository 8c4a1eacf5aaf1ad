package api

import (
	"net/http"

	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"
)

// wsHandler handles GET /api/v1/ws.
// Upgrades the connection and delegates to the ConnectionManager, which
// owns subscriptions, catchup replay, and live event fan-out.
func (s *Server) wsHandler(c *echo.Context) error {
	if s.connManager == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "WebSocket not available")
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: s.wsOriginPatterns(),
	})
	if err != nil {
		return err
	}

	// HandleConnection blocks until the WebSocket closes.
	s.connManager.HandleConnection(c.Request().Context(), conn)
	return nil
}

// wsOriginPatterns returns the allowed WebSocket origin hosts: the
// local-development defaults plus any configured dashboard origins.
// Same-origin requests pass regardless because browsers only enforce the
// Origin header cross-origin.
func (s *Server) wsOriginPatterns() []string {
	patterns := []string{"localhost:*", "127.0.0.1:*"}
	if s.cfg != nil && s.cfg.System != nil {
		patterns = append(patterns, s.cfg.System.AllowedWSOrigins...)
	}
	return patterns
}
