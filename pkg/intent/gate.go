// Package intent classifies raw user input before any model call. The
// coordinator consults the gate first: a turn that is empty or an outright
// refusal is answered from a template and the agent pipeline never runs.
//
// Classification is purely lexical. Pattern tables live in patterns.go and
// reply templates in replies.go.
package intent

import (
	"fmt"

	"github.com/northstar-pm/northstar/pkg/models"
)

// Intent labels the lexical category of a user turn.
type Intent string

const (
	IntentNegative    Intent = "negative"
	IntentPositive    Intent = "positive"
	IntentQuestion    Intent = "question"
	IntentInfoRequest Intent = "info_request"
	IntentEmpty       Intent = "empty"
	IntentNeutral     Intent = "neutral"
)

// standaloneTokenLimit is the maximum turn length, in tokens, at which a
// bare negative ("no", "not now") stops the pipeline without a pending
// assistant question.
const standaloneTokenLimit = 3

// Decision is the outcome of classifying one user turn. Confidence is
// advisory: callers branch on Proceed, never on the score. SuggestedReply
// is set only when Proceed is false and is the full text the coordinator
// streams back in place of an agent response.
type Decision struct {
	Proceed        bool    `json:"proceed"`
	Intent         Intent  `json:"intent"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason"`
	SuggestedReply string  `json:"suggested_reply,omitempty"`
}

// Gate is the lexical intent classifier. Stateless and safe for concurrent
// use; all pattern tables are fixed at compile time.
type Gate struct{}

// NewGate creates an intent gate.
func NewGate() *Gate {
	return &Gate{}
}

// Classify decides whether query should reach the agent pipeline. History
// supplies the conversational cue for short refusals (a negative answer to
// a question the assistant just asked stops the run), and phaseName selects
// the reply template used when the gate stops a request.
//
// Question and info-request matches are checked before negatives, so a
// question containing a negative word ("no?") still proceeds.
func (g *Gate) Classify(query string, history []models.AgentMessage, phaseName string) Decision {
	tokens := tokenize(query)

	// 1. Empty or whitespace-only input never reaches an agent.
	if len(tokens) == 0 {
		return Decision{
			Intent:         IntentEmpty,
			Confidence:     1.0,
			Reason:         "empty query",
			SuggestedReply: emptyReply(phaseName),
		}
	}

	phrase := joinTokens(tokens)

	// 2. Questions always proceed.
	if containsQuestionMark(query) {
		return Decision{
			Proceed:    true,
			Intent:     IntentQuestion,
			Confidence: 0.95,
			Reason:     "query contains a question mark",
		}
	}
	if interrogativeLeads[tokens[0]] {
		return Decision{
			Proceed:    true,
			Intent:     IntentQuestion,
			Confidence: 0.8,
			Reason:     fmt.Sprintf("query opens with interrogative %q", tokens[0]),
		}
	}

	// 3. Requests for help or elaboration always proceed.
	if term, ok := matchInfoRequest(tokens, phrase); ok {
		return Decision{
			Proceed:    true,
			Intent:     IntentInfoRequest,
			Confidence: 0.8,
			Reason:     fmt.Sprintf("info-request term %q", term),
		}
	}

	// 4. Negatives stop the run only when the turn is an unambiguous short
	// refusal, or when it answers a question the assistant just asked.
	// Longer negative statements ("no we should not drop pricing") are
	// real input and fall through to the default.
	if standaloneNegatives[phrase] && len(tokens) <= standaloneTokenLimit {
		return Decision{
			Intent:         IntentNegative,
			Confidence:     0.95,
			Reason:         fmt.Sprintf("standalone negative %q", phrase),
			SuggestedReply: negativeReply(phaseName),
		}
	}
	if negativeLeads[tokens[0]] && priorAssistantQuestion(history) {
		return Decision{
			Intent:         IntentNegative,
			Confidence:     0.75,
			Reason:         fmt.Sprintf("negative lead-in %q answering an assistant question", tokens[0]),
			SuggestedReply: negativeReply(phaseName),
		}
	}

	// 5. Affirmations proceed; the coordinator treats them like any other
	// forward-moving turn.
	if term, ok := matchPositive(tokens, phrase); ok {
		return Decision{
			Proceed:    true,
			Intent:     IntentPositive,
			Confidence: 0.8,
			Reason:     fmt.Sprintf("positive lead-in %q", term),
		}
	}

	// 6. Default: anything else is a neutral work statement.
	return Decision{
		Proceed:    true,
		Intent:     IntentNeutral,
		Confidence: 0.5,
		Reason:     "no pattern matched",
	}
}

// priorAssistantQuestion reports whether the most recent assistant turn in
// history asked the user a question. Earlier assistant questions that were
// already followed up do not count.
func priorAssistantQuestion(history []models.AgentMessage) bool {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != models.MessageRoleAssistant {
			continue
		}
		return containsQuestionMark(history[i].Content)
	}
	return false
}
