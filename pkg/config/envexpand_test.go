package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("NS_TEST_KEY", "sk-test-123")
	t.Setenv("NS_TEST_HOST", "db.internal")
	t.Setenv("NS_TEST_PORT", "5432")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "single variable",
			input:    "api_key_env_value: {{.NS_TEST_KEY}}",
			expected: "api_key_env_value: sk-test-123",
		},
		{
			name:     "multiple variables on one line",
			input:    "dsn: {{.NS_TEST_HOST}}:{{.NS_TEST_PORT}}",
			expected: "dsn: db.internal:5432",
		},
		{
			name:     "missing variable expands to empty",
			input:    "value: {{.NS_TEST_DOES_NOT_EXIST}}",
			expected: "value: ",
		},
		{
			name:     "dollar signs preserved literally",
			input:    `pattern: "^secret.*$"`,
			expected: `pattern: "^secret.*$"`,
		},
		{
			name:     "no template syntax passes through",
			input:    "plain: value",
			expected: "plain: value",
		},
		{
			name:     "malformed template returns original",
			input:    "broken: {{.NS_TEST_KEY",
			expected: "broken: {{.NS_TEST_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExpandEnv([]byte(tt.input))
			assert.Equal(t, tt.expected, string(result))
		})
	}
}
