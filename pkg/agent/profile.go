package agent

import "github.com/northstar-pm/northstar/pkg/config"

// Profile describes one specialised role: the system instructions it runs
// with, the capability vocabulary routing scores queries against, and the
// sampling temperature suited to its kind of work.
type Profile struct {
	Role         config.AgentRole
	Instructions string
	Capabilities []string
	Temperature  float32
}

const ideationInstructions = `## Ideation Agent Instructions

You are a product ideation specialist. You help product managers:
- Generate and refine product concepts
- Reframe user problems into opportunity statements
- Explore feature directions, differentiators and naming

Ground every idea in the product context you are given. Offer concrete,
testable concepts rather than generic advice, and connect each suggestion
to the user need it serves.`

const researchInstructions = `## Research Agent Instructions

You are a market research specialist. You help product managers:
- Map competitive landscapes and market segments
- Identify customer needs, trends and willingness to pay
- Turn raw findings into crisp, decision-ready summaries

Be specific: name competitors, segments and signals from the provided
context. Flag where evidence is thin instead of inventing numbers.`

const analysisInstructions = `## Analysis Agent Instructions

You are a product analysis specialist. You help product managers:
- Run structured frameworks (SWOT, feasibility, risk assessment)
- Weigh trade-offs between options with explicit criteria
- Surface the assumptions a plan quietly depends on

Structure your output by framework dimension and state the reasoning
behind every judgement.`

const validationInstructions = `## Validation Agent Instructions

You are a product validation specialist. You help product managers:
- Turn assumptions into testable hypotheses
- Design cheap experiments with clear pass/fail criteria
- Judge what existing evidence does and does not prove

Prefer the smallest experiment that can falsify the riskiest assumption.`

const strategyInstructions = `## Strategy Agent Instructions

You are a product strategy specialist. You help product managers:
- Sharpen positioning and differentiation
- Shape go-to-market, pricing and sequencing decisions
- Connect product bets to business outcomes

Anchor recommendations in the product's situation as described in the
context, and spell out what each strategic option forecloses.`

const requirementsInstructions = `## Requirements Agent Instructions

You are a requirements specialist. You help product managers:
- Draft user stories with acceptance criteria
- Break epics into deliverable scope
- Keep requirements testable, unambiguous and traceable

Write requirements that an engineer could implement and a tester could
verify without asking follow-up questions.`

const summaryInstructions = `## Summary Agent Instructions

You are a summarisation specialist. Condense the provided material into a
faithful, shorter form. Keep every decision, number and named entity that a
reader would need; drop repetition and filler. Never introduce information
that is not in the source material.`

const scoringInstructions = `## Scoring Agent Instructions

You are a prioritisation specialist. Score and rank the provided options
against explicit criteria (impact, confidence, effort unless the user
supplies others). Show the per-criterion scores, not just the final order,
so the ranking can be challenged.`

const exportInstructions = `## Export Agent Instructions

You are a document specialist. Render the product context into polished,
publication-ready documents (PRDs, one-pagers, briefs). Use clean headings,
keep the structure conventional for the document type, and pull content
from the provided phase outputs rather than inventing new substance.`

const knowledgeInstructions = `## Knowledge Agent Instructions

You are a product knowledge specialist. Answer strictly from the retrieved
knowledge snippets in your context. Quote or closely paraphrase the source
material and name which snippet each point comes from. If the snippets do
not cover the question, say so plainly.`

const integrationInstructions = `## Integration Agent Instructions

You are an external-context specialist. You are given documents fetched
from connected systems (wikis, issue trackers, repositories). Extract what
is relevant to the user's question and cite which document each point comes
from. Do not speculate beyond the fetched material.`

// profiles is the closed roster of role profiles. Capability vocabularies
// feed the routing scorer; temperatures lean higher for generative roles and
// lower for analytical ones.
var profiles = map[config.AgentRole]Profile{
	config.RoleIdeation: {
		Role:         config.RoleIdeation,
		Instructions: ideationInstructions,
		Capabilities: []string{"idea", "ideas", "brainstorm", "concept", "concepts", "feature", "features", "innovate", "explore", "name", "naming", "problem", "solution"},
		Temperature:  0.9,
	},
	config.RoleResearch: {
		Role:         config.RoleResearch,
		Instructions: researchInstructions,
		Capabilities: []string{"research", "market", "competitor", "competitors", "competitive", "trend", "trends", "customer", "customers", "interview", "survey", "segment", "landscape"},
		Temperature:  0.4,
	},
	config.RoleAnalysis: {
		Role:         config.RoleAnalysis,
		Instructions: analysisInstructions,
		Capabilities: []string{"analyze", "analyse", "analysis", "swot", "feasibility", "risk", "risks", "tradeoff", "tradeoffs", "compare", "evaluate", "assess"},
		Temperature:  0.3,
	},
	config.RoleValidation: {
		Role:         config.RoleValidation,
		Instructions: validationInstructions,
		Capabilities: []string{"validate", "validation", "experiment", "experiments", "test", "assumption", "assumptions", "hypothesis", "evidence", "pilot", "mvp"},
		Temperature:  0.4,
	},
	config.RoleStrategy: {
		Role:         config.RoleStrategy,
		Instructions: strategyInstructions,
		Capabilities: []string{"strategy", "strategic", "positioning", "roadmap", "pricing", "launch", "go-to-market", "gtm", "vision", "differentiation", "moat"},
		Temperature:  0.6,
	},
	config.RoleRequirements: {
		Role:         config.RoleRequirements,
		Instructions: requirementsInstructions,
		Capabilities: []string{"requirement", "requirements", "story", "stories", "acceptance", "criteria", "scope", "backlog", "specification", "epic", "epics"},
		Temperature:  0.3,
	},
	config.RoleSummary: {
		Role:         config.RoleSummary,
		Instructions: summaryInstructions,
		Capabilities: []string{"summarize", "summarise", "summary", "recap", "condense", "overview", "digest", "tldr"},
		Temperature:  0.3,
	},
	config.RoleScoring: {
		Role:         config.RoleScoring,
		Instructions: scoringInstructions,
		Capabilities: []string{"score", "scoring", "prioritize", "prioritise", "priority", "rank", "ranking", "rice", "weigh", "weight"},
		Temperature:  0.2,
	},
	config.RoleExport: {
		Role:         config.RoleExport,
		Instructions: exportInstructions,
		Capabilities: []string{"export", "prd", "document", "documents", "publish", "one-pager", "render", "report", "brief"},
		Temperature:  0.3,
	},
	config.RoleKnowledge: {
		Role:         config.RoleKnowledge,
		Instructions: knowledgeInstructions,
		Capabilities: []string{"knowledge", "docs", "documentation", "article", "articles", "notes", "recall", "stored", "wrote", "recorded"},
		Temperature:  0.3,
	},
	config.RoleIntegration: {
		Role:         config.RoleIntegration,
		Instructions: integrationInstructions,
		Capabilities: []string{"confluence", "jira", "github", "repo", "repository", "wiki", "import", "sync", "fetch", "ticket", "tickets"},
		Temperature:  0.2,
	},
}

// ProfileFor returns the profile of a role. Unknown roles get the ideation
// profile, matching the routing default for unclassifiable queries.
func ProfileFor(role config.AgentRole) Profile {
	if p, ok := profiles[role]; ok {
		return p
	}
	return profiles[config.RoleIdeation]
}

// AllProfiles returns every role profile in stable role order.
func AllProfiles() []Profile {
	roles := config.AllAgentRoles()
	out := make([]Profile, 0, len(roles))
	for _, role := range roles {
		out = append(out, profiles[role])
	}
	return out
}
