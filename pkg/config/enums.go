package config

// AgentRole defines the closed set of specialised agent roles.
type AgentRole string

const (
	// RoleIdeation generates and refines product ideas
	RoleIdeation AgentRole = "ideation"
	// RoleResearch performs market and competitive research
	RoleResearch AgentRole = "research"
	// RoleAnalysis runs analytical frameworks (SWOT, feasibility, risk)
	RoleAnalysis AgentRole = "analysis"
	// RoleValidation validates assumptions and experiment design
	RoleValidation AgentRole = "validation"
	// RoleStrategy produces positioning and go-to-market strategy
	RoleStrategy AgentRole = "strategy"
	// RoleRequirements drafts requirements and user stories
	RoleRequirements AgentRole = "requirements"
	// RoleSummary condenses prior outputs
	RoleSummary AgentRole = "summary"
	// RoleScoring scores and prioritises options
	RoleScoring AgentRole = "scoring"
	// RoleExport renders documents for publication (PRD, one-pager)
	RoleExport AgentRole = "export"
	// RoleKnowledge retrieves stored product knowledge
	RoleKnowledge AgentRole = "knowledge"
	// RoleIntegration pulls context from external systems
	RoleIntegration AgentRole = "integration"
)

// IsValid checks if the agent role is valid
func (r AgentRole) IsValid() bool {
	switch r {
	case RoleIdeation,
		RoleResearch,
		RoleAnalysis,
		RoleValidation,
		RoleStrategy,
		RoleRequirements,
		RoleSummary,
		RoleScoring,
		RoleExport,
		RoleKnowledge,
		RoleIntegration:
		return true
	default:
		return false
	}
}

// AllAgentRoles returns every valid role in stable (alphabetical) order.
func AllAgentRoles() []AgentRole {
	return []AgentRole{
		RoleAnalysis,
		RoleExport,
		RoleIdeation,
		RoleIntegration,
		RoleKnowledge,
		RoleRequirements,
		RoleResearch,
		RoleScoring,
		RoleStrategy,
		RoleSummary,
		RoleValidation,
	}
}

// ModelTier selects a quality/cost band. Tiers are resolved to concrete
// provider models through the tier tables in provider configuration.
type ModelTier string

const (
	// TierFast is the cheapest, lowest-latency band
	TierFast ModelTier = "fast"
	// TierStandard is the default band
	TierStandard ModelTier = "standard"
	// TierPremium is the highest-quality band
	TierPremium ModelTier = "premium"
)

// IsValid checks if the model tier is valid
func (t ModelTier) IsValid() bool {
	return t == TierFast || t == TierStandard || t == TierPremium
}

// ProviderType defines supported LLM providers
type ProviderType string

const (
	// ProviderOpenAI is the OpenAI API
	ProviderOpenAI ProviderType = "openai"
	// ProviderAnthropic is the Anthropic Claude API
	ProviderAnthropic ProviderType = "anthropic"
	// ProviderGemini is the Google Gemini API
	ProviderGemini ProviderType = "gemini"
)

// IsValid checks if the provider type is valid
func (p ProviderType) IsValid() bool {
	return p == ProviderOpenAI || p == ProviderAnthropic || p == ProviderGemini
}

// AllProviderTypes returns every valid provider in stable (alphabetical) order.
func AllProviderTypes() []ProviderType {
	return []ProviderType{ProviderAnthropic, ProviderGemini, ProviderOpenAI}
}

// KeyStrategy selects how alternate API keys are drawn from a credential set.
type KeyStrategy string

const (
	// KeyStrategyRoundRobin advances a cursor across keys
	KeyStrategyRoundRobin KeyStrategy = "round-robin"
	// KeyStrategyRandom draws a key uniformly at random
	KeyStrategyRandom KeyStrategy = "random"
)

// IsValid checks if the key strategy is valid
func (s KeyStrategy) IsValid() bool {
	return s == KeyStrategyRoundRobin || s == KeyStrategyRandom
}

// ResponseLength bounds synthesised answer size.
type ResponseLength string

const (
	// ResponseShort caps answers at roughly 500 words
	ResponseShort ResponseLength = "short"
	// ResponseVerbose caps answers at roughly 1000 words
	ResponseVerbose ResponseLength = "verbose"
)

// IsValid checks if the response length is valid
func (l ResponseLength) IsValid() bool {
	return l == ResponseShort || l == ResponseVerbose
}

// MaxWords returns the word cap for the length setting.
func (l ResponseLength) MaxWords() int {
	if l == ResponseShort {
		return 500
	}
	return 1000
}

// TransportType defines MCP server transport types
type TransportType string

const (
	// TransportTypeStdio uses subprocess communication via stdin/stdout
	TransportTypeStdio TransportType = "stdio"
	// TransportTypeHTTP uses streamable HTTP JSON-RPC
	TransportTypeHTTP TransportType = "http"
	// TransportTypeSSE uses Server-Sent Events
	TransportTypeSSE TransportType = "sse"
)

// IsValid checks if the transport type is valid
func (t TransportType) IsValid() bool {
	return t == TransportTypeStdio || t == TransportTypeHTTP || t == TransportTypeSSE
}

// KnowledgeBackend selects the vector store implementation.
type KnowledgeBackend string

const (
	// KnowledgeBackendChromem is the embedded chromem-go store
	KnowledgeBackendChromem KnowledgeBackend = "chromem"
	// KnowledgeBackendQdrant is a remote qdrant instance over gRPC
	KnowledgeBackendQdrant KnowledgeBackend = "qdrant"
)

// IsValid checks if the knowledge backend is valid
func (b KnowledgeBackend) IsValid() bool {
	return b == KnowledgeBackendChromem || b == KnowledgeBackendQdrant
}
