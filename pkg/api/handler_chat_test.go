package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstar-pm/northstar/pkg/events"
	"github.com/northstar-pm/northstar/pkg/models"
	"github.com/northstar-pm/northstar/pkg/providers"
)

// fakeOrchestrator lets handler tests script both orchestration paths.
type fakeOrchestrator struct {
	process       func(ctx context.Context, req *models.ChatRequest) (*models.MultiAgentResponse, error)
	processStream func(ctx context.Context, req *models.ChatRequest, em *events.Emitter) (*models.MultiAgentResponse, error)
}

func (f *fakeOrchestrator) Process(ctx context.Context, req *models.ChatRequest) (*models.MultiAgentResponse, error) {
	return f.process(ctx, req)
}

func (f *fakeOrchestrator) ProcessStream(ctx context.Context, req *models.ChatRequest, em *events.Emitter) (*models.MultiAgentResponse, error) {
	return f.processStream(ctx, req, em)
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// parseSSE splits a recorded SSE body into its decoded JSON events.
func parseSSE(t *testing.T, body string) []map[string]any {
	t.Helper()
	var parsed []map[string]any
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		require.True(t, strings.HasPrefix(block, "data: "), "unexpected SSE block: %q", block)

		var evt map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(block, "data: ")), &evt))
		parsed = append(parsed, evt)
	}
	return parsed
}

func TestChatHandler_Validation(t *testing.T) {
	s := &Server{}

	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{
			name:   "missing query",
			body:   `{}`,
			errMsg: "query is required",
		},
		{
			name:   "oversized query",
			body:   fmt.Sprintf(`{"query": %q}`, strings.Repeat("a", maxQueryLength+1)),
			errMsg: "query exceeds maximum length",
		},
		{
			name:   "malformed body",
			body:   `{"query": 42`,
			errMsg: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(postJSON("/api/v1/chat", tt.body), rec)

			err := s.chatHandler(c)
			if assert.Error(t, err) {
				he, ok := err.(*echo.HTTPError)
				if assert.True(t, ok, "expected echo.HTTPError") {
					assert.Equal(t, http.StatusBadRequest, he.Code)
					if tt.errMsg != "" {
						assert.Contains(t, he.Message, tt.errMsg)
					}
				}
			}
		})
	}
}

func TestChatHandler_Success(t *testing.T) {
	var got *models.ChatRequest
	fake := &fakeOrchestrator{
		process: func(_ context.Context, req *models.ChatRequest) (*models.MultiAgentResponse, error) {
			got = req
			return &models.MultiAgentResponse{
				Response: models.AgentResponse{Role: "synthesizer", Content: "the market is large"},
			}, nil
		},
	}
	s := &Server{coordinator: fake}

	e := echo.New()
	rec := httptest.NewRecorder()
	req := postJSON("/api/v1/chat", `{"query": "size the market"}`)
	req.Header.Set("X-Forwarded-User", "alice")
	c := e.NewContext(req, rec)

	require.NoError(t, s.chatHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// The body user_id was empty, so the proxy header fills it.
	require.NotNil(t, got)
	assert.Equal(t, "size the market", got.Query)
	assert.Equal(t, "alice", got.UserID)

	var resp models.MultiAgentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "the market is large", resp.Response.Content)
}

func TestChatHandler_BodyUserIDWins(t *testing.T) {
	var got *models.ChatRequest
	fake := &fakeOrchestrator{
		process: func(_ context.Context, req *models.ChatRequest) (*models.MultiAgentResponse, error) {
			got = req
			return &models.MultiAgentResponse{}, nil
		},
	}
	s := &Server{coordinator: fake}

	e := echo.New()
	rec := httptest.NewRecorder()
	req := postJSON("/api/v1/chat", `{"query": "q", "user_id": "body-user"}`)
	req.Header.Set("X-Forwarded-User", "header-user")
	c := e.NewContext(req, rec)

	require.NoError(t, s.chatHandler(c))
	assert.Equal(t, "body-user", got.UserID)
}

func TestChatHandler_ProviderNotConfigured(t *testing.T) {
	fake := &fakeOrchestrator{
		process: func(context.Context, *models.ChatRequest) (*models.MultiAgentResponse, error) {
			return nil, fmt.Errorf("anthropic: %w", providers.ErrProviderNotConfigured)
		},
	}
	s := &Server{coordinator: fake}

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(postJSON("/api/v1/chat", `{"query": "q"}`), rec)

	err := s.chatHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, he.Code)
}

func TestChatStreamHandler_EmitsEventStream(t *testing.T) {
	fake := &fakeOrchestrator{
		processStream: func(ctx context.Context, req *models.ChatRequest, em *events.Emitter) (*models.MultiAgentResponse, error) {
			require.NoError(t, em.Progress(ctx, 0.1, "routing"))
			require.NoError(t, em.AgentStart(ctx, "market-analyst", false))
			require.NoError(t, em.AgentComplete(ctx, "market-analyst", "analysis", models.ResponseMetadata{}))

			resp := models.MultiAgentResponse{
				Response: models.AgentResponse{Role: "market-analyst", Content: "analysis"},
			}
			require.NoError(t, em.Complete(ctx, resp))
			return &resp, nil
		},
	}
	s := &Server{coordinator: fake}

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(postJSON("/api/v1/chat/stream", `{"query": "analyse"}`), rec)

	require.NoError(t, s.chatStreamHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	evts := parseSSE(t, rec.Body.String())
	require.Len(t, evts, 4)

	types := make([]string, len(evts))
	for i, evt := range evts {
		types[i] = evt["type"].(string)
		assert.NotEmpty(t, evt["timestamp"], "event %d missing timestamp", i)
	}
	assert.Equal(t, []string{
		events.EventTypeProgress,
		events.EventTypeAgentStart,
		events.EventTypeAgentComplete,
		events.EventTypeComplete,
	}, types)

	// Sequence numbers reflect emission order.
	assert.Equal(t, float64(1), evts[0]["sequence"])
	assert.Equal(t, float64(4), evts[3]["sequence"])
}

func TestChatStreamHandler_FailureBecomesErrorEvent(t *testing.T) {
	fake := &fakeOrchestrator{
		processStream: func(ctx context.Context, req *models.ChatRequest, em *events.Emitter) (*models.MultiAgentResponse, error) {
			require.NoError(t, em.Progress(ctx, 0.1, "routing"))
			return nil, fmt.Errorf("primary agent exploded")
		},
	}
	s := &Server{coordinator: fake}

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(postJSON("/api/v1/chat/stream", `{"query": "q"}`), rec)

	require.NoError(t, s.chatStreamHandler(c))

	evts := parseSSE(t, rec.Body.String())
	require.Len(t, evts, 2)
	assert.Equal(t, events.EventTypeProgress, evts[0]["type"])
	assert.Equal(t, events.EventTypeError, evts[1]["type"])
	assert.Contains(t, evts[1]["error"], "primary agent exploded")
}

func TestChatStreamHandler_ValidationBeforeCommit(t *testing.T) {
	s := &Server{}

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(postJSON("/api/v1/chat/stream", `{}`), rec)

	err := s.chatStreamHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.Empty(t, rec.Body.String(), "no SSE data before validation passes")
}
