package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/northstar-pm/northstar/pkg/events"
	"github.com/northstar-pm/northstar/pkg/models"
)

// maxQueryLength bounds the user query; form data and history ride along
// uncounted because the context builder truncates them itself.
const maxQueryLength = 100_000

// bindChatRequest binds and validates the chat request body shared by the
// chat, stream, and job submission endpoints. When the body carries no
// user_id the acting user is resolved from auth-proxy headers.
func (s *Server) bindChatRequest(c *echo.Context) (*models.ChatRequest, error) {
	var req models.ChatRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if req.Query == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	if len(req.Query) > maxQueryLength {
		return nil, echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("query exceeds maximum length of %d characters", maxQueryLength))
	}

	if req.UserID == "" {
		req.UserID = extractUserID(c)
	}

	return &req, nil
}

// chatHandler handles POST /api/v1/chat.
// Runs the orchestration synchronously and returns the aggregated
// multi-agent response as JSON.
func (s *Server) chatHandler(c *echo.Context) error {
	// 1. Bind and validate request body
	req, err := s.bindChatRequest(c)
	if err != nil {
		return err
	}

	// 2. Run under the request context so a dropped client cancels the run
	response, err := s.coordinator.Process(c.Request().Context(), req)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, response)
}

// chatStreamHandler handles POST /api/v1/chat/stream.
// Streams orchestration events as Server-Sent Events: one JSON event per
// data: line, in emission order, ending with a complete or error event.
func (s *Server) chatStreamHandler(c *echo.Context) error {
	// 1. Bind and validate before committing the SSE response
	req, err := s.bindChatRequest(c)
	if err != nil {
		return err
	}

	// 2. Commit SSE headers
	w := c.Response()
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// 3. Bridge the emitter to the response stream. The emitter serialises
	// sink calls, so the writer needs no extra lock.
	rc := http.NewResponseController(w)
	sink := events.SinkFunc(func(_ context.Context, _ string, payload []byte) error {
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		// A writer without flush support still delivers; events just batch.
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
		return nil
	})
	emitter := events.NewEmitter(sink, "")

	// 4. Run under the request context: a dropped client cancels the run
	ctx := c.Request().Context()
	if _, err := s.coordinator.ProcessStream(ctx, req, emitter); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		slog.Warn("Streaming chat failed", "user_id", req.UserID, "error", err)

		// Headers are already committed, so the failure goes out as an
		// error event. Dropped silently if the stream already completed.
		_ = emitter.Error(ctx, "", err.Error())
	}

	return nil
}
