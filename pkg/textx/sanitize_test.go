// Package textx contains tests for the text utilities.
package textx

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeText(t *testing.T) {
	in := "he\x00llo\nwo\x7frld\t!"
	got := SanitizeText(in)
	if got != "hello\nworld\t!" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		in        string
		max       int
		wantLen   int
		truncated bool
	}{
		{"short", "hello", 10, 5, false},
		{"exact", strings.Repeat("a", 10), 10, 10, false},
		{"long ascii", strings.Repeat("a", 5000), 1000, 1000, true},
		{"long multibyte", strings.Repeat("é", 1500), 1000, 1000, true},
		{"disabled", strings.Repeat("a", 50), 0, 50, false},
		{"tiny cap", "abcdef", 2, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, cut := Truncate(tt.in, tt.max)
			assert.Equal(t, tt.truncated, cut)
			assert.Equal(t, tt.wantLen, utf8.RuneCountInString(got))
			if cut && tt.max > len(TruncationMarker) {
				assert.True(t, strings.HasSuffix(got, TruncationMarker))
			}
		})
	}
}

func TestWords(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"I", "led", "a", "team", "of", "5", "it's", "done"}, Words("I led a team of 5 -- it's done!"))
	assert.Empty(t, Words("  ... "))
}

func TestCleanJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean_json", `{"status": "success"}`, `{"status": "success"}`},
		{"markdown_wrapped_json", "```json\n{\"status\": \"success\"}\n```", `{"status": "success"}`},
		{"mixed_content_with_json", "Here is the response: {\"status\": \"success\", \"data\": \"test\"} hope it helps", `{"status": "success", "data": "test"}`},
		{"json_with_single_quotes", "{'status': 'success', 'data': 'test'}", `{"status": "success", "data": "test"}`},
		{"json_with_backticks", "{`status`: `success`, `data`: `test`}", `{"status": "success", "data": "test"}`},
		{"json_with_markdown_formatting", "{**status**: **success**, *data*: *test*}", `{"status": "success", "data": "test"}`},
		{"json_with_trailing_comma", `{"status": "success", "data": "test",}`, `{"status": "success", "data": "test"}`},
		{"json_with_unquoted_keys", `{status: "success", data: "test"}`, `{"status": "success", "data": "test"}`},
		{"apostrophe_preserved", `{"feedback": "It's solid"}`, `{"feedback": "It's solid"}`},
		{"brace_in_string", `note {"a": "x}y"} tail`, `{"a": "x}y"}`},
		{"reasoning_block", "<think>let me {score} this</think>{\"a\": 1}", `{"a": 1}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := CleanJSON(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCleanJSON_Unrecoverable(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "no json here", "{{{", "[1,2,3]"} {
		_, err := CleanJSON(in)
		assert.ErrorIs(t, err, ErrNoJSON, in)
	}
}

func TestStripReasoning(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Hello there", StripReasoning("<think>plan</think>\nHello there"))
	assert.Equal(t, "Hi", StripReasoning("Hi <THINK>unfinished"))
	assert.Equal(t, "plain", StripReasoning("plain"))
}
