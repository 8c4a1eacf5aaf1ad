package agentctx

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// contextEncoding is the tokenizer used for context budgeting. cl100k_base
// is a reasonable approximation across all three provider families.
const contextEncoding = "cl100k_base"

// TokenCounter counts and truncates text by token. When the encoding cannot
// be initialised it falls back to a four-characters-per-token estimate, so
// budgeting keeps working offline.
type TokenCounter struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter builds a counter. Encoding initialisation is deferred to
// the first use.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{}
}

func (tc *TokenCounter) load() *tiktoken.Tiktoken {
	tc.once.Do(func() {
		enc, err := tiktoken.GetEncoding(contextEncoding)
		if err != nil {
			slog.Warn("Tokenizer unavailable, estimating token counts",
				"encoding", contextEncoding, "error", err)
			return
		}
		tc.encoding = enc
	})
	return tc.encoding
}

// Count returns the token count of text.
func (tc *TokenCounter) Count(text string) int {
	if enc := tc.load(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return len(text) / 4
}

// Truncate cuts text to at most maxTokens tokens.
func (tc *TokenCounter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if enc := tc.load(); enc != nil {
		tokens := enc.Encode(text, nil, nil)
		if len(tokens) <= maxTokens {
			return text
		}
		return enc.Decode(tokens[:maxTokens])
	}

	runes := []rune(text)
	if limit := maxTokens * 4; len(runes) > limit {
		return string(runes[:limit])
	}
	return text
}
