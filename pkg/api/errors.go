package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/northstar-pm/northstar/pkg/providers"
	"github.com/northstar-pm/northstar/pkg/queue"
	"github.com/northstar-pm/northstar/pkg/services"
)

// mapServiceError translates service-layer errors into echo HTTP errors.
// Unknown errors are logged and surfaced as opaque 500s so internal detail
// never leaks to clients.
func mapServiceError(err error) *echo.HTTPError {
	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		return echo.NewHTTPError(http.StatusBadRequest, validErr.Error())
	}

	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())

	case errors.Is(err, services.ErrJobNotFound), errors.Is(err, services.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")

	case errors.Is(err, services.ErrNotCancellable):
		return echo.NewHTTPError(http.StatusConflict, "job is not in a cancellable state")

	case errors.Is(err, queue.ErrJobNotTerminal):
		return echo.NewHTTPError(http.StatusConflict, "job has not finished yet")

	case errors.Is(err, services.ErrAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, "resource already exists")

	case errors.Is(err, providers.ErrProviderNotConfigured):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out")
	}

	slog.Error("Unhandled service error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
