// internal/llmutil/parser_test.go
package llmutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expected  string
		expectErr bool
	}{
		{
			name:     "Bare object",
			input:    `{"action":"click","selector":"#go"}`,
			expected: `{"action":"click","selector":"#go"}`,
		},
		{
			name:     "Prose before and after",
			input:    `Sure, here is my decision: {"action":"click","selector":"#go","reasoning":"x"} Let me know!`,
			expected: `{"action":"click","selector":"#go","reasoning":"x"}`,
		},
		{
			name:     "Markdown fenced",
			input:    "```json\n{\"action\":\"wait\",\"timeout_ms\":1000}\n```",
			expected: `{"action":"wait","timeout_ms":1000}`,
		},
		{
			name:     "Nested objects",
			input:    `{"a":{"b":{"c":1}},"d":2}`,
			expected: `{"a":{"b":{"c":1}},"d":2}`,
		},
		{
			name:     "Braces inside strings",
			input:    `{"reasoning":"the page shows {weird} text","action":"scroll"}`,
			expected: `{"reasoning":"the page shows {weird} text","action":"scroll"}`,
		},
		{
			name:     "Escaped quote inside string",
			input:    `{"text":"he said \"hi {there}\"","action":"type"}`,
			expected: `{"text":"he said \"hi {there}\"","action":"type"}`,
		},
		{
			name:     "Only first object returned",
			input:    `{"action":"done"} {"action":"wait"}`,
			expected: `{"action":"done"}`,
		},
		{
			name:      "No object",
			input:     "I cannot decide on an action right now.",
			expectErr: true,
		},
		{
			name:      "Unterminated object",
			input:     `leading text {"action":"click","selector":"#go"`,
			expectErr: true,
		},
		{
			name:      "Empty input",
			input:     "",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tc.input)
			if tc.expectErr {
				require.ErrorIs(t, err, ErrNoJSONObject)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences(`{"a":1}`))
	assert.Equal(t, "plain text", StripCodeFences("  plain text  "))
}
