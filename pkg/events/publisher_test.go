package events

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateIfNeeded(t *testing.T) {
	t.Run("passes through normal payload", func(t *testing.T) {
		payload, _ := json.Marshal(AgentCompletePayload{
			BasePayload: BasePayload{
				Type:  EventTypeAgentComplete,
				JobID: "job-123",
			},
			Content: "some content",
		})

		result, err := truncateIfNeeded(string(payload))
		require.NoError(t, err)
		assert.Contains(t, result, EventTypeAgentComplete)
		assert.Contains(t, result, "job-123")
	})

	t.Run("truncates oversized payload", func(t *testing.T) {
		payload, _ := json.Marshal(AgentCompletePayload{
			BasePayload: BasePayload{
				Type:     EventTypeAgentComplete,
				JobID:    "job-123",
				Sequence: 5,
			},
			Content: strings.Repeat("a", 8000),
		})

		result, err := truncateIfNeeded(string(payload))
		require.NoError(t, err)
		assert.Contains(t, result, `"truncated":true`)
		assert.Less(t, len(result), 8000)
	})

	t.Run("truncated payload preserves routing fields", func(t *testing.T) {
		payload, _ := json.Marshal(AgentCompletePayload{
			BasePayload: BasePayload{
				Type:     EventTypeAgentComplete,
				JobID:    "job-789",
				Sequence: 12,
			},
			Content: strings.Repeat("x", 8000),
		})

		result, err := truncateIfNeeded(string(payload))
		require.NoError(t, err)

		assert.Contains(t, result, EventTypeAgentComplete)
		assert.Contains(t, result, "job-789")
		assert.Contains(t, result, `"sequence":12`)
		assert.NotContains(t, result, "xxxx")
	})

	t.Run("payload just under the limit is not truncated", func(t *testing.T) {
		// Measure fixed-field overhead first; the 20-byte margin keeps the
		// test stable if fields with non-zero defaults are added later.
		base, _ := json.Marshal(AgentCompletePayload{
			BasePayload: BasePayload{Type: "t"},
		})
		content := strings.Repeat("b", 7900-len(base)-20)
		payload, _ := json.Marshal(AgentCompletePayload{
			BasePayload: BasePayload{Type: "t"},
			Content:     content,
		})
		require.LessOrEqual(t, len(payload), 7900, "test payload should be under limit")

		result, err := truncateIfNeeded(string(payload))
		require.NoError(t, err)
		assert.NotContains(t, result, "truncated")
	})

	t.Run("empty JSON object", func(t *testing.T) {
		result, err := truncateIfNeeded("{}")
		require.NoError(t, err)
		assert.Equal(t, "{}", result)
	})
}

func TestInjectDBEventIDAndTruncate(t *testing.T) {
	t.Run("injects db_event_id into normal payload", func(t *testing.T) {
		payload, _ := json.Marshal(ProgressPayload{
			BasePayload: BasePayload{
				Type:     EventTypeProgress,
				JobID:    "job-1",
				Sequence: 3,
			},
			Progress: 0.5,
		})

		result, err := injectDBEventIDAndTruncate(payload, 42)
		require.NoError(t, err)
		assert.Contains(t, result, `"db_event_id":42`)
		assert.Contains(t, result, "job-1")
	})

	t.Run("truncated payload preserves db_event_id", func(t *testing.T) {
		payload, _ := json.Marshal(AgentCompletePayload{
			BasePayload: BasePayload{
				Type:     EventTypeAgentComplete,
				JobID:    "job-789",
				Sequence: 9,
			},
			Content: strings.Repeat("x", 8000),
		})

		result, err := injectDBEventIDAndTruncate(payload, 42)
		require.NoError(t, err)
		assert.Contains(t, result, `"truncated":true`)
		assert.Contains(t, result, `"db_event_id":42`)
		assert.Contains(t, result, "job-789")
	})

	t.Run("rejects non-JSON payload", func(t *testing.T) {
		_, err := injectDBEventIDAndTruncate([]byte("not json"), 1)
		assert.Error(t, err)
	})
}

func TestNewEventPublisher(t *testing.T) {
	publisher := NewEventPublisher(nil)
	assert.NotNil(t, publisher)
	assert.Nil(t, publisher.pool)
}
