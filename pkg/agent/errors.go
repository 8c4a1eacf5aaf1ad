package agent

import "errors"

// ErrAgentTimeout means an invocation exceeded AgentResponseTimeout. The
// provider call was abandoned; the caller decides whether to retry or
// degrade.
var ErrAgentTimeout = errors.New("agent response timed out")
