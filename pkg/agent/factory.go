package agent

import (
	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/knowledge"
)

// BuildAgents constructs the full roster, one agent per role. The knowledge
// and integration roles get their retrieval collaborators; every other role
// runs the base pipeline with its profile instructions. store and source
// may be nil when the corresponding backend is not configured.
func BuildAgents(deps Dependencies, store knowledge.Store, topK int, source DocumentSource) map[config.AgentRole]Agent {
	roles := config.AllAgentRoles()
	agents := make(map[config.AgentRole]Agent, len(roles))
	for _, role := range roles {
		switch role {
		case config.RoleKnowledge:
			agents[role] = NewKnowledgeAgent(deps, store, topK)
		case config.RoleIntegration:
			agents[role] = NewIntegrationAgent(deps, source)
		default:
			agents[role] = NewBaseAgent(role, deps)
		}
	}
	return agents
}
