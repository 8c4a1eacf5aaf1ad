package api

import (
	"errors"
	"log/slog"
	"time"

	echo "github.com/labstack/echo/v5"
)

// securityHeaders returns middleware that sets standard security response headers.
func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			return next(c)
		}
	}
}

// requestLogger returns middleware that logs one line per request with
// method, path, and latency. Failed requests log at warn level with the
// resolved status code when the handler returned an echo.HTTPError.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			start := time.Now()
			err := next(c)

			req := c.Request()
			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"duration_ms", time.Since(start).Milliseconds(),
			}

			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					attrs = append(attrs, "status", he.Code)
				}
				attrs = append(attrs, "error", err)
				slog.Warn("HTTP request failed", attrs...)
				return err
			}

			slog.Info("HTTP request", attrs...)
			return nil
		}
	}
}
