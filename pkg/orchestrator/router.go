package orchestrator

import (
	"fmt"
	"strings"

	"github.com/northstar-pm/northstar/pkg/agent"
	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/models"
)

// Route is the execution plan for one request: which agent synthesises the
// final answer, with what confidence, and which specialists feed it.
type Route struct {
	Primary    config.AgentRole
	Confidence float64
	Supporting []config.AgentRole
	Reason     string
}

// scoreFloor is the confidence below which capability scoring is treated
// as inconclusive and the plan falls back to the ideation generalist.
const scoreFloor = 0.3

// fallbackConfidence is reported when the floor kicks in.
const fallbackConfidence = 0.5

// phasePrimaries maps lifecycle phases to their expert role, keyed by
// lowercased phase name. Design is absent on purpose: it has no single
// expert and routes by query keywords across three candidates.
var phasePrimaries = map[string]config.AgentRole{
	strings.ToLower(models.PhaseIdeation):       config.RoleIdeation,
	strings.ToLower(models.PhaseMarketResearch): config.RoleResearch,
	strings.ToLower(models.PhaseAnalysis):       config.RoleAnalysis,
	strings.ToLower(models.PhaseStrategy):       config.RoleStrategy,
	strings.ToLower(models.PhaseRequirements):   config.RoleRequirements,
	strings.ToLower(models.PhaseValidation):     config.RoleValidation,
}

// designCandidates are scored against the query when the request sits in
// the Design phase. Order matters only as the alphabetical tie-break.
var designCandidates = []config.AgentRole{
	config.RoleIdeation,
	config.RoleRequirements,
	config.RoleResearch,
}

// supportingTriggers adds a specialist to the plan when one of its trigger
// words appears in the query. Slice order fixes the launch order of the
// resulting plan, so identical queries always produce identical plans.
var supportingTriggers = []struct {
	role     config.AgentRole
	triggers []string
}{
	{config.RoleResearch, []string{"research", "market", "competitive", "trend"}},
	{config.RoleAnalysis, []string{"analyze", "swot", "feasibility", "risk"}},
	{config.RoleIntegration, []string{"confluence", "jira", "repo", "publish"}},
	{config.RoleExport, []string{"export", "prd", "document"}},
}

// Router turns a chat request into an execution plan. Stateless apart from
// the fan-out cap; safe for concurrent use.
type Router struct {
	maxSupporting int
}

// NewRouter creates a router. maxSupporting <= 0 selects the system default
// fan-out cap.
func NewRouter(maxSupporting int) *Router {
	if maxSupporting <= 0 {
		maxSupporting = config.DefaultDefaults().MaxParallelAgents
	}
	return &Router{maxSupporting: maxSupporting}
}

// Plan selects the primary agent and its supporting specialists.
//
// Primary selection tries, in order: the caller's explicit override, the
// lifecycle-phase expert, and capability scoring over the query. Scores
// below the floor fall back to the ideation generalist, which handles
// open-ended product questions best.
func (r *Router) Plan(req *models.ChatRequest) Route {
	var query, phaseName string
	var override config.AgentRole
	if req != nil {
		query = req.Query
		phaseName = req.PhaseName
		override = req.PrimaryRole
	}
	tokens := queryTokens(query)

	route := r.selectPrimary(override, phaseName, tokens)
	route.Supporting = r.selectSupporting(route.Primary, phaseName, tokens)
	return route
}

func (r *Router) selectPrimary(override config.AgentRole, phaseName string, tokens map[string]bool) Route {
	// 1. Explicit override wins outright.
	if override != "" && override.IsValid() {
		return Route{Primary: override, Confidence: 1.0, Reason: "caller override"}
	}

	// 2. A known lifecycle phase picks its expert. Design has three
	// plausible experts and is decided by whichever vocabulary the query
	// leans towards.
	if phaseName != "" {
		if role, ok := phasePrimaries[strings.ToLower(strings.TrimSpace(phaseName))]; ok {
			return Route{Primary: role, Confidence: 0.9, Reason: fmt.Sprintf("%s phase expert", phaseName)}
		}
		if strings.EqualFold(strings.TrimSpace(phaseName), models.PhaseDesign) {
			role, confidence := bestOf(designCandidates, tokens)
			return Route{Primary: role, Confidence: confidence, Reason: "design phase keyword match"}
		}
	}

	// 3. No phase: score every role's capability vocabulary against the
	// query. AllAgentRoles is alphabetical and only strictly better scores
	// displace the incumbent, which is the alphabetical tie-break.
	var best config.AgentRole
	bestScore := -1.0
	for _, role := range config.AllAgentRoles() {
		if score := capabilityScore(role, tokens); score > bestScore {
			best, bestScore = role, score
		}
	}
	if bestScore < scoreFloor {
		return Route{Primary: config.RoleIdeation, Confidence: fallbackConfidence, Reason: "no strong capability match"}
	}
	return Route{Primary: best, Confidence: bestScore, Reason: "capability match"}
}

// selectSupporting builds the supporting roster: knowledge always rides
// along unless it is primary, trigger words add specialists, and the phase
// expert joins when an override displaced it. The ideation guard keeps
// brainstorming output from leaking into later-phase documents.
func (r *Router) selectSupporting(primary config.AgentRole, phaseName string, tokens map[string]bool) []config.AgentRole {
	var supporting []config.AgentRole
	seen := map[config.AgentRole]bool{primary: true}

	add := func(role config.AgentRole) {
		if seen[role] || len(supporting) >= r.maxSupporting {
			return
		}
		if role == config.RoleIdeation && !ideationAllowed(phaseName, tokens) {
			return
		}
		seen[role] = true
		supporting = append(supporting, role)
	}

	add(config.RoleKnowledge)
	for _, h := range supportingTriggers {
		for _, trigger := range h.triggers {
			if tokens[trigger] {
				add(h.role)
				break
			}
		}
	}
	if phaseName != "" {
		if expert, ok := phasePrimaries[strings.ToLower(strings.TrimSpace(phaseName))]; ok {
			add(expert)
		}
	}
	return supporting
}

// ideationAllowed reports whether the ideation agent may join as a
// supporting specialist. Inside a non-ideation phase it only joins when the
// user's own words ask for ideation work.
func ideationAllowed(phaseName string, tokens map[string]bool) bool {
	trimmed := strings.TrimSpace(phaseName)
	if trimmed == "" || strings.EqualFold(trimmed, models.PhaseIdeation) {
		return true
	}
	return matchCount(config.RoleIdeation, tokens) > 0
}

// bestOf scores candidates against the query and returns the winner with
// its confidence. Candidates must arrive in alphabetical order; only a
// strictly better score displaces the incumbent.
func bestOf(candidates []config.AgentRole, tokens map[string]bool) (config.AgentRole, float64) {
	best := candidates[0]
	bestScore := capabilityScore(best, tokens)
	for _, role := range candidates[1:] {
		if score := capabilityScore(role, tokens); score > bestScore {
			best, bestScore = role, score
		}
	}
	if bestScore < scoreFloor {
		return config.RoleIdeation, fallbackConfidence
	}
	return best, bestScore
}

// capabilityScore maps the number of distinct capability terms found in the
// query to a confidence in (0,1): one match scores 0.5, additional matches
// approach 1 asymptotically, zero matches score 0.
func capabilityScore(role config.AgentRole, tokens map[string]bool) float64 {
	matches := matchCount(role, tokens)
	if matches == 0 {
		return 0
	}
	return float64(matches) / float64(matches+1)
}

func matchCount(role config.AgentRole, tokens map[string]bool) int {
	matches := 0
	for _, term := range agent.ProfileFor(role).Capabilities {
		if tokens[term] {
			matches++
		}
	}
	return matches
}

// queryTokens lowercases the query and splits it into a token set. Hyphens
// survive so vocabulary like "go-to-market" and "one-pager" matches whole.
func queryTokens(query string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-')
	})
	tokens := make(map[string]bool, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if f != "" {
			tokens[f] = true
		}
	}
	return tokens
}
