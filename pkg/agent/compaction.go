package agent

import (
	"strings"
	"unicode"

	"github.com/northstar-pm/northstar/pkg/models"
)

const (
	// maxSummaryItems bounds each summary category.
	maxSummaryItems = 3
	// maxSummarySentenceLen bounds one extracted sentence, in runes.
	maxSummarySentenceLen = 200
)

// Keyword markers used to tag sentences during history summarisation.
// Single words are matched on token boundaries, phrases by substring.
var (
	requirementMarkers = markerSet{
		words:   []string{"must", "need", "needs", "needed", "require", "requires", "required", "requirement", "requirements", "should"},
		phrases: []string{"has to", "have to"},
	}
	decisionMarkers = markerSet{
		words:   []string{"decide", "decided", "decision", "agreed", "choose", "chose", "chosen", "final"},
		phrases: []string{"we will", "we'll", "let's go", "go with", "settled on"},
	}
	preferenceMarkers = markerSet{
		words:   []string{"prefer", "prefers", "preferred", "preference", "rather", "ideally", "favourite", "favorite"},
		phrases: []string{"would rather", "like better"},
	}
	factMarkers = markerSet{
		words:   []string{"deadline", "budget", "launch", "target", "metric", "metrics", "kpi", "revenue", "users", "churn", "competitor"},
		phrases: []string{"market size"},
	}
)

type markerSet struct {
	words   []string
	phrases []string
}

// compactHistory bounds a conversation to its last keep messages. Older
// turns are folded into a structured summary and prepended to the most
// recent user message, so system context never leaks into the user query.
// The input slice is never mutated.
func compactHistory(messages []models.AgentMessage, keep int) []models.AgentMessage {
	if keep <= 0 {
		keep = 1
	}
	if len(messages) <= keep {
		out := make([]models.AgentMessage, len(messages))
		copy(out, messages)
		return out
	}

	older := messages[:len(messages)-keep]
	out := make([]models.AgentMessage, keep)
	copy(out, messages[len(messages)-keep:])

	summary := summariseHistory(older)
	if summary == "" {
		return out
	}

	// Without a user message in the kept window there is nowhere to carry
	// the summary; it is dropped rather than smuggled into system state.
	if i := models.LastUserIndex(out); i >= 0 {
		out[i].Content = summary + "\n\n" + out[i].Content
	}
	return out
}

// summariseHistory extracts requirement, decision, preference and key-fact
// sentences from dropped messages. Returns "" when nothing matched.
func summariseHistory(older []models.AgentMessage) string {
	var requirements, decisions, preferences, facts []string

	for _, msg := range older {
		if msg.Role == models.MessageRoleSystem {
			continue
		}
		for _, sentence := range splitSentences(msg.Content) {
			lower := strings.ToLower(sentence)
			switch {
			case requirementMarkers.matches(lower):
				requirements = appendBounded(requirements, sentence)
			case decisionMarkers.matches(lower):
				decisions = appendBounded(decisions, sentence)
			case preferenceMarkers.matches(lower):
				preferences = appendBounded(preferences, sentence)
			case factMarkers.matches(lower) || containsDigit(sentence):
				facts = appendBounded(facts, sentence)
			}
		}
	}

	var sb strings.Builder
	writeCategory(&sb, "Requirements", requirements)
	writeCategory(&sb, "Decisions", decisions)
	writeCategory(&sb, "Preferences", preferences)
	writeCategory(&sb, "Key facts", facts)
	if sb.Len() == 0 {
		return ""
	}
	return "Summary of the earlier conversation:\n" + sb.String()
}

func (m markerSet) matches(lower string) bool {
	for _, phrase := range m.phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	if len(m.words) == 0 {
		return false
	}
	for _, token := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	}) {
		for _, word := range m.words {
			if token == word {
				return true
			}
		}
	}
	return false
}

func appendBounded(items []string, sentence string) []string {
	if len(items) >= maxSummaryItems {
		return items
	}
	return append(items, truncateRunes(sentence, maxSummarySentenceLen))
}

func writeCategory(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("- ")
	sb.WriteString(title)
	sb.WriteString(": ")
	sb.WriteString(strings.Join(items, " | "))
	sb.WriteString("\n")
}

// splitSentences breaks text on terminal punctuation. Good enough for
// summary extraction; it does not try to handle abbreviations.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(current.String()); s != "" && s != "." && s != "!" && s != "?" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
