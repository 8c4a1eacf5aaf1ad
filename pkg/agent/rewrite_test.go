package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteQueryStripsFillerPrefixes(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"please", "Please analyze the market", "analyze the market"},
		{"can you", "Can you draft a PRD?", "draft a PRD?"},
		{"stacked prefixes", "Please can you analyze the market?", "analyze the market?"},
		{"could you please", "Could you please score these ideas", "score these ideas"},
		{"i need you to", "I need you to validate this assumption", "validate this assumption"},
		{"greeting", "Hey, what competitors exist?", "what competitors exist?"},
		{"no prefix", "Compare our pricing to competitors", "Compare our pricing to competitors"},
		{"prefix needs boundary", "Hiking trails as a product idea", "Hiking trails as a product idea"},
		{"whitespace", "  please   summarise the research  ", "summarise the research"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rewriteQuery(tt.query))
		})
	}
}

func TestRewriteQueryKeepsFirstQuestionWhenOverlong(t *testing.T) {
	query := strings.Repeat("Background detail. ", 50) +
		"What is the fastest path to market? " +
		strings.Repeat("More detail. ", 20)

	got := rewriteQuery(query)

	assert.Equal(t, "What is the fastest path to market?", got)
}

func TestRewriteQueryTruncatesOverlongStatement(t *testing.T) {
	query := strings.Repeat("Relevant context without questions. ", 40)

	got := rewriteQuery(query)

	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len([]rune(got)), rewriteCutLength+3)
}

func TestRewriteQueryUnderThresholdUntouched(t *testing.T) {
	query := strings.Repeat("Short statement. ", 10)
	assert.Equal(t, strings.TrimSpace(query), rewriteQuery(query))
}

func TestStripFillerPrefixesEntireQuery(t *testing.T) {
	assert.Equal(t, "", stripFillerPrefixes("please"))
	assert.Equal(t, "", stripFillerPrefixes("hello"))
}

func TestFirstInterrogativeSentence(t *testing.T) {
	assert.Equal(t, "Who buys this?", firstInterrogativeSentence("Some setup. Who buys this? More text."))
	assert.Equal(t, "", firstInterrogativeSentence("No questions here. Just statements."))
}
