package intent

import (
	"strings"
	"unicode"
)

// interrogativeLeads opens a question even without a question mark
// ("how do we price this"). Auxiliary verbs are included because phase
// conversations are full of "should we", "is this", "can you" turns.
var interrogativeLeads = map[string]bool{
	"what": true, "how": true, "why": true, "when": true, "where": true,
	"which": true, "who": true, "whom": true, "whose": true,
	"can": true, "could": true, "should": true, "would": true,
	"will": true, "shall": true, "is": true, "are": true, "was": true,
	"were": true, "do": true, "does": true, "did": true, "am": true,
}

// infoRequestTokens mark a request for guidance wherever they appear in
// the turn.
var infoRequestTokens = map[string]bool{
	"help": true, "explain": true, "elaborate": true, "clarify": true,
}

// infoRequestPhrases are matched as substrings of the normalised turn.
var infoRequestPhrases = []string{
	"tell me more",
	"more info",
	"more information",
	"more detail",
	"more details",
	"more examples",
	"learn more",
	"give me more",
}

// standaloneNegatives stop the pipeline when they make up the entire turn.
// Matched against the normalised phrase, so "No, thanks!" hits "no thanks".
var standaloneNegatives = map[string]bool{
	"no": true, "nope": true, "nah": true,
	"no thanks": true, "no thank you": true,
	"not now": true, "not really": true, "not yet": true,
	"not interested": true,
	"skip": true, "skip it": true, "skip this": true,
	"cancel": true, "cancel that": true, "stop": true,
	"never mind": true, "nevermind": true, "forget it": true,
	"pass": true, "maybe later": true, "later": true,
}

// negativeLeads mark a refusal when the turn opens with one of them and
// the assistant's last message was a question.
var negativeLeads = map[string]bool{
	"no": true, "nope": true, "nah": true, "not": true,
	"skip": true, "cancel": true, "stop": true,
	"dont": true, "don't": true,
}

// positiveLeads and positivePhrases mark simple affirmations.
var positiveLeads = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "yup": true,
	"sure": true, "ok": true, "okay": true,
	"definitely": true, "absolutely": true,
	"continue": true, "proceed": true,
	"great": true, "perfect": true, "agreed": true,
}

var positivePhrases = map[string]bool{
	"go ahead":      true,
	"let's do it":   true,
	"lets do it":    true,
	"please do":     true,
	"sounds good":   true,
	"looks good":    true,
	"works for me":  true,
	"that works":    true,
	"go for it":     true,
	"fine by me":    true,
	"happy with it": true,
}

// tokenize lowercases the input and splits it on anything that is not a
// letter, digit or apostrophe. Apostrophes survive so "don't" stays one
// token.
func tokenize(s string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// joinTokens rebuilds the normalised phrase used for exact-phrase matching.
func joinTokens(tokens []string) string {
	return strings.Join(tokens, " ")
}

func containsQuestionMark(s string) bool {
	return strings.Contains(s, "?")
}

// matchInfoRequest reports the first info-request term found in the turn,
// as a single token, a whole-turn "more", or a phrase substring.
func matchInfoRequest(tokens []string, phrase string) (string, bool) {
	for _, tok := range tokens {
		if infoRequestTokens[tok] {
			return tok, true
		}
	}
	if phrase == "more" {
		return phrase, true
	}
	for _, p := range infoRequestPhrases {
		if strings.Contains(phrase, p) {
			return p, true
		}
	}
	return "", false
}

// matchPositive reports an affirmation, either as the whole normalised
// phrase or as the opening token.
func matchPositive(tokens []string, phrase string) (string, bool) {
	if positivePhrases[phrase] {
		return phrase, true
	}
	if positiveLeads[tokens[0]] {
		return tokens[0], true
	}
	return "", false
}
