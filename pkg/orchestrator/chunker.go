package orchestrator

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/events"
)

// continuationMarker is appended when response-length enforcement cuts the
// answer short.
const continuationMarker = "\n\n*Response truncated. Ask me to continue for the rest.*"

// chunker regroups provider deltas into chunk events of roughly the
// configured size. Provider callbacks may arrive from an internal goroutine,
// so emission is serialised under one mutex. After the caller's context is
// cancelled nothing further is emitted.
type chunker struct {
	emitter *events.Emitter
	role    config.AgentRole
	size    int
	logger  *slog.Logger

	mu      sync.Mutex
	buf     string
	emitted strings.Builder
	chunks  int
}

func newChunker(emitter *events.Emitter, role config.AgentRole, size int, logger *slog.Logger) *chunker {
	if size < 1 {
		size = config.DefaultDefaults().ChunkSize
	}
	return &chunker{emitter: emitter, role: role, size: size, logger: logger}
}

// Write appends a delta and emits every full chunk it completes, yielding
// between emissions so a slow consumer never starves the scheduler.
func (c *chunker) Write(ctx context.Context, delta string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buf += delta
	for len(c.buf) >= c.size {
		cut := c.size
		for cut < len(c.buf) && !utf8.RuneStart(c.buf[cut]) {
			cut++
		}
		if !c.emitLocked(ctx, c.buf[:cut]) {
			return
		}
		c.buf = c.buf[cut:]
		runtime.Gosched()
	}
}

// Finish drains the remainder. A response that produced no deltas at all
// (a cache replay, or a provider without streaming) is chunked from its
// full content so the stream shape stays the same either way.
func (c *chunker) Finish(ctx context.Context, full string) {
	c.mu.Lock()
	replay := c.chunks == 0 && c.buf == "" && full != ""
	c.mu.Unlock()

	if replay {
		c.Write(ctx, full)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.buf != "" {
		if c.emitLocked(ctx, c.buf) {
			c.buf = ""
		}
	}
}

// emitLocked sends one chunk event. Returns false once the context is done;
// delivery failures are logged and do not stop the stream.
func (c *chunker) emitLocked(ctx context.Context, chunk string) bool {
	if ctx.Err() != nil {
		return false
	}
	if err := c.emitter.AgentChunk(ctx, c.role, chunk); err != nil {
		c.logger.Warn("Chunk delivery failed", "role", c.role, "error", err)
	}
	c.emitted.WriteString(chunk)
	c.chunks++
	return true
}

// Emitted returns everything delivered so far, for partial-completion
// recovery when the primary agent dies mid-stream.
func (c *chunker) Emitted() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.emitted.String()
}

// Count returns how many chunk events were delivered.
func (c *chunker) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chunks
}

// truncateWords cuts content after maxWords words and appends the
// continuation marker. Content at or under the cap passes through untouched.
func truncateWords(content string, maxWords int) (string, bool) {
	if maxWords <= 0 {
		return content, false
	}
	words := 0
	inWord := false
	for i, r := range content {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			words++
			if words > maxWords {
				return strings.TrimRight(content[:i], " \t\r\n") + continuationMarker, true
			}
			inWord = true
		}
	}
	return content, false
}
