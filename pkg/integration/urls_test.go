package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToRawURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "blob URL converted to raw",
			input:    "https://github.com/org/repo/blob/main/docs/prd.md",
			expected: "https://raw.githubusercontent.com/org/repo/refs/heads/main/docs/prd.md",
		},
		{
			name:     "already raw URL passes through",
			input:    "https://raw.githubusercontent.com/org/repo/main/docs/prd.md",
			expected: "https://raw.githubusercontent.com/org/repo/main/docs/prd.md",
		},
		{
			name:     "www github blob URL converted",
			input:    "https://www.github.com/org/repo/blob/main/README.md",
			expected: "https://raw.githubusercontent.com/org/repo/refs/heads/main/README.md",
		},
		{
			name:     "non-github URL unchanged",
			input:    "https://wiki.example.com/pages/roadmap",
			expected: "https://wiki.example.com/pages/roadmap",
		},
		{
			name:     "github URL without blob segment unchanged",
			input:    "https://github.com/org/repo",
			expected: "https://github.com/org/repo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ConvertToRawURL(tt.input))
		})
	}
}

func TestValidateDocumentURL(t *testing.T) {
	t.Run("allowed domain passes", func(t *testing.T) {
		err := ValidateDocumentURL("https://github.com/org/repo/blob/main/x.md", []string{"github.com"})
		assert.NoError(t, err)
	})

	t.Run("www variant of allowed domain passes", func(t *testing.T) {
		err := ValidateDocumentURL("https://www.github.com/org/repo/blob/main/x.md", []string{"github.com"})
		assert.NoError(t, err)
	})

	t.Run("domain outside allowlist rejected", func(t *testing.T) {
		err := ValidateDocumentURL("https://evil.example.com/x.md", []string{"github.com"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not in allowed list")
	})

	t.Run("empty allowlist permits any domain", func(t *testing.T) {
		err := ValidateDocumentURL("https://anything.example.com/x.md", nil)
		assert.NoError(t, err)
	})

	t.Run("non-http scheme rejected", func(t *testing.T) {
		err := ValidateDocumentURL("ftp://github.com/x.md", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid scheme")
	})
}

func TestExtractURLs(t *testing.T) {
	t.Run("finds URLs in free text", func(t *testing.T) {
		query := "Compare https://github.com/org/repo/blob/main/a.md and https://wiki.example.com/b."
		urls := ExtractURLs(query, 3)
		assert.Equal(t, []string{
			"https://github.com/org/repo/blob/main/a.md",
			"https://wiki.example.com/b",
		}, urls)
	})

	t.Run("strips trailing punctuation", func(t *testing.T) {
		urls := ExtractURLs("see https://example.com/doc), thanks", 3)
		assert.Equal(t, []string{"https://example.com/doc"}, urls)
	})

	t.Run("deduplicates", func(t *testing.T) {
		urls := ExtractURLs("https://example.com/a and again https://example.com/a", 3)
		assert.Len(t, urls, 1)
	})

	t.Run("respects max", func(t *testing.T) {
		urls := ExtractURLs("https://e.com/1 https://e.com/2 https://e.com/3", 2)
		assert.Len(t, urls, 2)
	})

	t.Run("no URLs returns nil", func(t *testing.T) {
		assert.Nil(t, ExtractURLs("what should our pricing model be?", 3))
	})
}

func TestTitleForURL(t *testing.T) {
	assert.Equal(t, "prd.md", TitleForURL("https://github.com/org/repo/blob/main/docs/prd.md"))
	assert.Equal(t, "wiki.example.com", TitleForURL("https://wiki.example.com"))
	assert.Equal(t, "roadmap", TitleForURL("https://wiki.example.com/pages/roadmap"))
}
