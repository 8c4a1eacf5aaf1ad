package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/northstar-pm/northstar/pkg/models"
)

func TestClassifyProceeds(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		history []models.AgentMessage
		intent  Intent
	}{
		{
			name:   "question mark",
			query:  "What are the market trends?",
			intent: IntentQuestion,
		},
		{
			name:   "interrogative without question mark",
			query:  "how do we price this",
			intent: IntentQuestion,
		},
		{
			name:   "auxiliary verb opener",
			query:  "should we target enterprise first",
			intent: IntentQuestion,
		},
		{
			name:   "help token",
			query:  "I need help defining the target market",
			intent: IntentInfoRequest,
		},
		{
			name:   "tell me more phrase",
			query:  "tell me more about the churn numbers",
			intent: IntentInfoRequest,
		},
		{
			name:   "bare more",
			query:  "more",
			intent: IntentInfoRequest,
		},
		{
			name:   "explain token",
			query:  "explain the scoring model please",
			intent: IntentInfoRequest,
		},
		{
			name:   "simple yes",
			query:  "yes",
			intent: IntentPositive,
		},
		{
			name:   "affirmation phrase",
			query:  "sounds good",
			intent: IntentPositive,
		},
		{
			name:   "affirmation lead-in",
			query:  "sure, let's focus on onboarding",
			intent: IntentPositive,
		},
		{
			name:   "neutral work statement",
			query:  "add a churn dashboard to the roadmap",
			intent: IntentNeutral,
		},
		{
			name:   "short neutral token",
			query:  "pricing",
			intent: IntentNeutral,
		},
		{
			name:   "long negative statement is real input",
			query:  "no we should not drop pricing from the first release",
			intent: IntentNeutral,
		},
		{
			name:  "negative lead-in without pending question",
			query: "skip the research and go straight to ideation",
			history: []models.AgentMessage{
				models.NewAssistantMessage("I have summarised the interview notes."),
			},
			intent: IntentNeutral,
		},
	}

	gate := NewGate()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := gate.Classify(tt.query, tt.history, "")
			assert.True(t, d.Proceed)
			assert.Equal(t, tt.intent, d.Intent)
			assert.Empty(t, d.SuggestedReply)
			assert.NotEmpty(t, d.Reason)
			assert.GreaterOrEqual(t, d.Confidence, 0.0)
			assert.LessOrEqual(t, d.Confidence, 1.0)
		})
	}
}

func TestClassifyStops(t *testing.T) {
	askedQuestion := []models.AgentMessage{
		models.NewUserMessage("We finished the persona interviews."),
		models.NewAssistantMessage("Would you like me to run a competitive analysis next?"),
	}

	tests := []struct {
		name    string
		query   string
		history []models.AgentMessage
		intent  Intent
	}{
		{name: "empty string", query: "", intent: IntentEmpty},
		{name: "whitespace only", query: "  \n\t ", intent: IntentEmpty},
		{name: "bare no", query: "no", intent: IntentNegative},
		{name: "punctuated refusal", query: "No, thanks!", intent: IntentNegative},
		{name: "skip", query: "skip", intent: IntentNegative},
		{name: "never mind", query: "never mind", intent: IntentNegative},
		{name: "not now", query: "not now", intent: IntentNegative},
		{
			name:    "longer refusal answering a question",
			query:   "no let's hold off on that for the moment",
			history: askedQuestion,
			intent:  IntentNegative,
		},
		{
			name:    "dont lead-in answering a question",
			query:   "don't bother with the analysis",
			history: askedQuestion,
			intent:  IntentNegative,
		},
		{
			name: "standalone negative without any question",
			query: "nah",
			history: []models.AgentMessage{
				models.NewAssistantMessage("Here is the summary you asked for."),
			},
			intent: IntentNegative,
		},
	}

	gate := NewGate()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := gate.Classify(tt.query, tt.history, "")
			assert.False(t, d.Proceed)
			assert.Equal(t, tt.intent, d.Intent)
			assert.NotEmpty(t, d.SuggestedReply)
			assert.NotEmpty(t, d.Reason)
		})
	}
}

func TestQuestionBeatsNegative(t *testing.T) {
	askedQuestion := []models.AgentMessage{
		models.NewAssistantMessage("Should we include the pricing page?"),
	}

	tests := []struct {
		name   string
		query  string
		intent Intent
	}{
		{name: "question-marked no", query: "no?", intent: IntentQuestion},
		{name: "question about skipping", query: "can we skip this step", intent: IntentQuestion},
		{name: "help with cancelling", query: "help me cancel the beta programme", intent: IntentInfoRequest},
	}

	gate := NewGate()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := gate.Classify(tt.query, askedQuestion, "")
			assert.True(t, d.Proceed, "questions and info requests must proceed even with negative words")
			assert.Equal(t, tt.intent, d.Intent)
		})
	}
}

func TestNegativeReplyMentionsPhase(t *testing.T) {
	gate := NewGate()

	d := gate.Classify("no", nil, "Market Research")
	assert.False(t, d.Proceed)
	assert.True(t, len(d.SuggestedReply) > 0)
	assert.Contains(t, d.SuggestedReply, "Got it!")
	assert.Contains(t, d.SuggestedReply, "Market Research")

	generic := gate.Classify("no", nil, "")
	assert.Contains(t, generic.SuggestedReply, "Got it!")
	assert.NotContains(t, generic.SuggestedReply, "Market Research")
}

func TestEmptyReplyMentionsPhase(t *testing.T) {
	gate := NewGate()

	d := gate.Classify("   ", nil, "Ideation")
	assert.False(t, d.Proceed)
	assert.Contains(t, d.SuggestedReply, "Ideation")
	assert.Equal(t, 1.0, d.Confidence)
}

func TestPriorAssistantQuestionUsesMostRecent(t *testing.T) {
	// The earlier assistant question was already answered; the most recent
	// assistant turn is a statement, so a negative lead-in proceeds.
	history := []models.AgentMessage{
		models.NewAssistantMessage("Should we prioritise retention?"),
		models.NewUserMessage("Yes, retention first."),
		models.NewAssistantMessage("Noted. Retention is now the top objective."),
	}

	gate := NewGate()
	d := gate.Classify("no major launches planned this quarter", history, "")
	assert.True(t, d.Proceed)
	assert.Equal(t, IntentNeutral, d.Intent)

	// Swap the last assistant turn for a question and the same input stops.
	history[2] = models.NewAssistantMessage("Should I draft the retention roadmap?")
	d = gate.Classify("no major launches planned this quarter", history, "")
	assert.False(t, d.Proceed)
	assert.Equal(t, IntentNegative, d.Intent)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "No, thanks!", want: []string{"no", "thanks"}},
		{in: "  \t\n", want: []string{}},
		{in: "don't bother", want: []string{"don't", "bother"}},
		{in: "What's the TAM?", want: []string{"what's", "the", "tam"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tokenize(tt.in), "input %q", tt.in)
	}
}
