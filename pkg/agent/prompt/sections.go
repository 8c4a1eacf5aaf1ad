package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/northstar-pm/northstar/pkg/models"
)

// FormatPhaseSection names the lifecycle phase the user is working in.
func FormatPhaseSection(phaseName string) string {
	if phaseName == "" {
		return ""
	}
	return fmt.Sprintf("## Current Lifecycle Phase\n\nThe user is working in the **%s** phase of their product lifecycle.\n", phaseName)
}

// FormatFormDataSection lists the filled form fields of the current phase.
// Keys are sorted so identical inputs render identically.
func FormatFormDataSection(formData map[string]string) string {
	if len(formData) == 0 {
		return ""
	}

	keys := make([]string, 0, len(formData))
	for k := range formData {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("## Current Phase Form Data\n\n")
	for _, k := range keys {
		sb.WriteString("**")
		sb.WriteString(k)
		sb.WriteString(":** ")
		sb.WriteString(formData[k])
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatPreviousOutputsSection renders completed earlier phases in lifecycle
// order so agents read the product story front to back.
func FormatPreviousOutputsSection(outputs map[string]string) string {
	if len(outputs) == 0 {
		return ""
	}

	phases := make([]string, 0, len(outputs))
	for phase := range outputs {
		phases = append(phases, phase)
	}
	models.SortPhases(phases)

	var sb strings.Builder
	sb.WriteString("## Previous Phase Outputs\n")
	for _, phase := range phases {
		sb.WriteString("\n### ")
		sb.WriteString(phase)
		sb.WriteString("\n")
		sb.WriteString(outputs[phase])
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatKnowledgeSection renders retrieved article snippets. This is the RAG
// context surfaced verbatim in response metadata.
func FormatKnowledgeSection(snippets []models.KnowledgeSnippet) string {
	if len(snippets) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Retrieved Knowledge\n")
	for _, snippet := range snippets {
		source := snippet.Metadata["title"]
		if source == "" {
			source = snippet.SourceID
		}
		if source == "" {
			source = "untitled"
		}
		sb.WriteString(fmt.Sprintf("\n### %s (relevance %.2f)\n", source, snippet.Score))
		sb.WriteString(snippet.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatDocumentsSection renders integration-fetched reference documents.
func FormatDocumentsSection(docs []models.ExternalDocument) string {
	if len(docs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Referenced Documents\n")
	for _, doc := range docs {
		title := doc.Title
		if title == "" {
			title = doc.URL
		}
		if title == "" {
			title = "untitled"
		}
		sb.WriteString("\n### ")
		sb.WriteString(title)
		if doc.Source != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", doc.Source))
		}
		sb.WriteString("\n")
		if doc.URL != "" {
			sb.WriteString(doc.URL)
			sb.WriteString("\n")
		}
		sb.WriteString(doc.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatIdeationSection lists idea fragments mined from the conversation.
func FormatIdeationSection(seeds []string) string {
	if len(seeds) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Ideation Snippets\n\nIdeas and needs the user has voiced so far:\n")
	for _, seed := range seeds {
		sb.WriteString("- ")
		sb.WriteString(seed)
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatExtrasSection renders caller-supplied context lines, sorted by key.
func FormatExtrasSection(extras map[string]string) string {
	if len(extras) == 0 {
		return ""
	}

	keys := make([]string, 0, len(extras))
	for k := range extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("## Additional Context\n\n")
	for _, k := range keys {
		sb.WriteString("**")
		sb.WriteString(k)
		sb.WriteString(":** ")
		sb.WriteString(extras[k])
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatContextInfo builds the context-availability note. It lists what the
// agent has been given and tells it to use the material rather than ask for
// information that is already present.
func formatContextInfo(rc *models.RequestContext) string {
	var lines []string
	if n := len(rc.History); n > 0 {
		lines = append(lines, fmt.Sprintf("- Conversation history: %d messages", n))
	}
	if n := len(rc.FormData); n > 0 {
		lines = append(lines, fmt.Sprintf("- Filled form fields: %d", n))
	}
	if rc.PhaseName != "" {
		lines = append(lines, fmt.Sprintf("- Lifecycle phase: %s", rc.PhaseName))
	}
	if n := len(rc.KnowledgeSnippets); n > 0 {
		lines = append(lines, fmt.Sprintf("- Knowledge snippets: %d", n))
	}
	if n := len(rc.ExternalDocuments); n > 0 {
		lines = append(lines, fmt.Sprintf("- Referenced documents: %d", n))
	}
	if n := len(rc.PreviousOutputs); n > 0 {
		lines = append(lines, fmt.Sprintf("- Completed phase outputs: %d", n))
	}
	if len(lines) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Available Context\n\nYou have been given the following context for this request:\n")
	sb.WriteString(strings.Join(lines, "\n"))
	sb.WriteString("\n\nReference the provided details explicitly. Do not ask the user for information that is already present in the context above.\n")
	return sb.String()
}
