// Package prompt builds all prompt text for agents: per-role system prompts
// with context sections, the shared instructions for supporting-agent fan-out,
// and the synthesis prompt the primary agent receives. Everything here is a
// pure function of its parameters. Rendering never mutates agent state, so
// there is no instruction swap to undo after a call.
package prompt

import (
	"fmt"
	"strings"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/models"
)

// Rendered is the assembled prompt material for one agent invocation. The
// parts are kept separate because response metadata reports them individually.
type Rendered struct {
	// System is the complete system prompt sent to the provider.
	System string

	// ContextInfo is the context-availability section alone.
	ContextInfo string

	// RAGContext is the rendered knowledge section alone.
	RAGContext string
}

// Render composes the system prompt for one invocation: the role instructions
// followed by every non-empty context section and the context-availability
// note. A nil or empty context leaves the instructions untouched.
func Render(instructions string, rc *models.RequestContext) Rendered {
	if rc == nil {
		return Rendered{System: instructions}
	}

	rag := FormatKnowledgeSection(rc.KnowledgeSnippets)
	contextInfo := formatContextInfo(rc)

	sections := []string{
		instructions,
		FormatPhaseSection(rc.PhaseName),
		FormatFormDataSection(rc.FormData),
		FormatPreviousOutputsSection(rc.PreviousOutputs),
		rag,
		FormatDocumentsSection(rc.ExternalDocuments),
		FormatIdeationSection(rc.IdeationSeeds),
		FormatExtrasSection(rc.Extras),
		contextInfo,
	}

	var kept []string
	for _, section := range sections {
		if section != "" {
			kept = append(kept, strings.TrimRight(section, "\n"))
		}
	}

	return Rendered{
		System:      strings.Join(kept, "\n\n"),
		ContextInfo: contextInfo,
		RAGContext:  rag,
	}
}

// supportingWordBudget bounds each supporting agent's insight.
const supportingWordBudget = 200

// SupportingInstruction is appended to the query sent to supporting agents
// during parallel fan-out.
func SupportingInstruction() string {
	return fmt.Sprintf(
		"Provide focused insights from your specialist perspective in at most %d words. "+
			"Offer findings and recommendations only. Do not write a full answer for the user; "+
			"another agent will synthesise the final response.", supportingWordBudget)
}

// Section is one supporting agent's contribution to the synthesis prompt.
type Section struct {
	Role    config.AgentRole
	Content string
}

// RoleTitle renders an agent role as a section heading.
func RoleTitle(role config.AgentRole) string {
	s := string(role)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// SynthesisPrompt builds the user prompt for the primary agent after the
// supporting agents finish. Each contribution appears under a heading derived
// from the contributing role; failed agents arrive as placeholder sections so
// the synthesis never silently loses a perspective. When phaseName is set and
// the user did not ask for a full multi-phase document, the primary agent is
// told to keep its output inside that phase.
func SynthesisPrompt(query string, sections []Section, phaseName string, fullDocumentRequested bool) string {
	var sb strings.Builder
	sb.WriteString(query)

	if len(sections) > 0 {
		sb.WriteString("\n\n# Specialist Input\n\nThe following insights were gathered from specialist agents. Synthesise them into one coherent answer.\n")
		for _, section := range sections {
			sb.WriteString("\n## ")
			sb.WriteString(RoleTitle(section.Role))
			sb.WriteString("\n")
			sb.WriteString(section.Content)
			sb.WriteString("\n")
		}
	}

	if phaseName != "" && !fullDocumentRequested {
		sb.WriteString(fmt.Sprintf(
			"\nRestrict your answer to the %s phase. Do not produce content that belongs to other lifecycle phases unless the user explicitly asked for a full document.\n",
			phaseName))
	}

	return sb.String()
}

// FormHelpPrompt builds the query for the phase-form fast path: the user is
// editing one form field and wants targeted help with it.
func FormHelpPrompt(query, phaseName, currentField string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("The user is filling in the %q field", currentField))
	if phaseName != "" {
		sb.WriteString(fmt.Sprintf(" of the %s phase form", phaseName))
	}
	sb.WriteString(".\n\nTheir question: ")
	sb.WriteString(query)
	sb.WriteString("\n\nGive a concise, directly usable suggestion for this field. Use the form data already provided in context.")
	return sb.String()
}
