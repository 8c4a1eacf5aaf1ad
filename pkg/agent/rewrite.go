package agent

import (
	"strings"
	"unicode"
)

const (
	// rewriteLengthThreshold is the query length, in runes, above which
	// the query is condensed before hitting the provider.
	rewriteLengthThreshold = 800
	// rewriteCutLength is the fallback prefix length when no
	// interrogative sentence is found in an overlong query.
	rewriteCutLength = 500
)

// fillerPrefixes are low-value openers stripped from queries before
// dispatch. Longest match wins so "could you please" goes before "could
// you"; stripping repeats until no prefix applies.
var fillerPrefixes = []string{
	"i would like you to",
	"could you please",
	"i want you to",
	"i need you to",
	"i'd like you to",
	"can you please",
	"would you",
	"could you",
	"will you",
	"can you",
	"kindly",
	"please",
	"hello",
	"hey",
	"hi",
}

// rewriteQuery normalises a user query for the model: filler prefixes are
// stripped, and overlong queries collapse to their first question or a
// bounded prefix with a continuation marker. Meaning-bearing content is
// never altered, only trimmed.
func rewriteQuery(query string) string {
	q := stripFillerPrefixes(strings.TrimSpace(query))
	if len([]rune(q)) <= rewriteLengthThreshold {
		return q
	}
	if question := firstInterrogativeSentence(q); question != "" {
		return question
	}
	return truncateRunes(q, rewriteCutLength)
}

func stripFillerPrefixes(q string) string {
	for {
		lower := strings.ToLower(q)
		stripped := false
		for _, prefix := range fillerPrefixes {
			if !strings.HasPrefix(lower, prefix) {
				continue
			}
			rest := q[len(prefix):]
			// Boundary check: "hiking trails" must not lose its "hi".
			if rest != "" && !isBoundary(rune(rest[0])) {
				continue
			}
			q = strings.TrimLeftFunc(rest, func(r rune) bool {
				return unicode.IsSpace(r) || r == ',' || r == ':' || r == '-'
			})
			stripped = true
			break
		}
		if !stripped || q == "" {
			return q
		}
	}
}

func isBoundary(r rune) bool {
	return unicode.IsSpace(r) || r == ',' || r == ':' || r == '-' || r == '.' || r == '!' || r == '?'
}

// firstInterrogativeSentence returns the first sentence ending in a
// question mark, or "" when the query asks no question.
func firstInterrogativeSentence(q string) string {
	for _, sentence := range splitSentences(q) {
		if strings.HasSuffix(sentence, "?") {
			return sentence
		}
	}
	return ""
}
