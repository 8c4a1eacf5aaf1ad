package e2e

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/providers"
)

// mockLLM scripts provider behaviour for the whole roster. Agents share one
// registry, so a single script serves every role; the role answering a call
// is recovered from the instruction heading in the system prompt.
type mockLLM struct {
	mu       sync.Mutex
	replies  map[config.AgentRole]string
	failures map[config.AgentRole]error

	// partialDeltas scripts a role to stream these deltas and then fail.
	partialDeltas map[config.AgentRole][]string

	// block holds a role's calls until the channel closes (or the context
	// is cancelled). Used by cancellation tests.
	block map[config.AgentRole]chan struct{}

	calls []mockCall
}

// mockCall records one completed or attempted model invocation.
type mockCall struct {
	Role   config.AgentRole
	Model  string
	System string
	User   string
}

func newMockLLM() *mockLLM {
	return &mockLLM{
		replies:       make(map[config.AgentRole]string),
		failures:      make(map[config.AgentRole]error),
		partialDeltas: make(map[config.AgentRole][]string),
		block:         make(map[config.AgentRole]chan struct{}),
	}
}

// reply scripts a role's canned answer.
func (m *mockLLM) reply(role config.AgentRole, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[role] = content
}

// fail scripts a role to return err on every call.
func (m *mockLLM) fail(role config.AgentRole, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[role] = err
}

// failAfterDeltas scripts a role to stream deltas and then return err.
func (m *mockLLM) failAfterDeltas(role config.AgentRole, deltas []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partialDeltas[role] = deltas
	m.failures[role] = err
}

// holdCalls makes role's calls block until the returned channel is closed.
func (m *mockLLM) holdCalls(role config.AgentRole) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan struct{})
	m.block[role] = ch
	return ch
}

// callCount reports total invocations, or invocations for one role when
// given.
func (m *mockLLM) callCount(roles ...config.AgentRole) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(roles) == 0 {
		return len(m.calls)
	}
	n := 0
	for _, c := range m.calls {
		for _, r := range roles {
			if c.Role == r {
				n++
			}
		}
	}
	return n
}

// callsFor returns the recorded calls for one role, in order.
func (m *mockLLM) callsFor(role config.AgentRole) []mockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mockCall
	for _, c := range m.calls {
		if c.Role == role {
			out = append(out, c)
		}
	}
	return out
}

// calledRoles returns the set of roles that reached the model.
func (m *mockLLM) calledRoles() map[config.AgentRole]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	roles := make(map[config.AgentRole]bool, len(m.calls))
	for _, c := range m.calls {
		roles[c.Role] = true
	}
	return roles
}

// roleOf recovers the answering role from the instruction heading the agent
// profiles put at the top of every system prompt.
func roleOf(system string) config.AgentRole {
	for _, role := range config.AllAgentRoles() {
		title := strings.ToUpper(string(role)[:1]) + string(role)[1:]
		if strings.Contains(system, "## "+title+" Agent Instructions") {
			return role
		}
	}
	return ""
}

func (m *mockLLM) invoke(ctx context.Context, req providers.CompletionRequest, onDelta providers.DeltaFunc) (*providers.Completion, error) {
	role := roleOf(req.System)

	m.mu.Lock()
	user := ""
	if len(req.Messages) > 0 {
		user = req.Messages[len(req.Messages)-1].Content
	}
	m.calls = append(m.calls, mockCall{Role: role, Model: req.Model, System: req.System, User: user})
	blocker := m.block[role]
	deltas := m.partialDeltas[role]
	failure := m.failures[role]
	content, scripted := m.replies[role]
	m.mu.Unlock()

	if blocker != nil {
		select {
		case <-blocker:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if len(deltas) > 0 && onDelta != nil {
		for _, d := range deltas {
			onDelta(d)
		}
	}
	if failure != nil {
		return nil, failure
	}

	if !scripted {
		content = fmt.Sprintf("%s findings for: %s", role, user)
	}
	if onDelta != nil && len(deltas) == 0 {
		onDelta(content)
	}
	return &providers.Completion{
		Content:      content,
		Model:        req.Model,
		InputTokens:  len(req.System)/4 + len(user)/4,
		OutputTokens: len(content) / 4,
		StopReason:   "stop",
	}, nil
}

// mockClient adapts the shared script to the provider client interface.
type mockClient struct {
	llm      *mockLLM
	provider config.ProviderType
	key      string
}

func (c *mockClient) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.Completion, error) {
	return c.llm.invoke(ctx, req, nil)
}

func (c *mockClient) Stream(ctx context.Context, req providers.CompletionRequest, onDelta providers.DeltaFunc) (*providers.Completion, error) {
	return c.llm.invoke(ctx, req, onDelta)
}

func (c *mockClient) Provider() config.ProviderType { return c.provider }
func (c *mockClient) Key() string                   { return c.key }

// factory plugs the script into the provider registry.
func (m *mockLLM) factory(p config.ProviderType, key string, _ *config.ProviderConfig, _ *http.Client) (providers.LLMClient, error) {
	return &mockClient{llm: m, provider: p, key: key}, nil
}
