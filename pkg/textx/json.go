package textx

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	reThink         = regexp.MustCompile(`(?is)<think>.*?</think>`)
	reFence         = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)\\s*```")
	reBold          = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reItalic        = regexp.MustCompile(`\*([^*]+)\*`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
	reBareKey       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	reSingleQuoted  = regexp.MustCompile(`'([^'\\]*)'`)
)

// ErrNoJSON is returned when no JSON object can be recovered from a response.
var ErrNoJSON = errors.New("no json object in response")

// StripReasoning removes <think>...</think> blocks some models prepend to
// their answer, plus an unterminated leading block.
func StripReasoning(s string) string {
	s = reThink.ReplaceAllString(s, "")
	if i := strings.Index(strings.ToLower(s), "<think>"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// CleanJSON repairs the usual damage found in model-produced JSON: markdown
// fences, prose around the object, single quotes, backticks, bold markers,
// bare keys and trailing commas. Repairs are only applied while the text
// still fails to parse, so valid JSON is returned untouched.
func CleanJSON(response string) (string, error) {
	s := StripReasoning(response)
	if m := reFence.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = extractObject(s)
	if IsJSON(s) {
		return s, nil
	}

	steps := []func(string) string{
		func(v string) string { return reTrailingComma.ReplaceAllString(v, "$1") },
		func(v string) string { return strings.ReplaceAll(v, "`", `"`) },
		func(v string) string {
			v = reBold.ReplaceAllString(v, `"$1"`)
			return reItalic.ReplaceAllString(v, `"$1"`)
		},
		func(v string) string { return reSingleQuoted.ReplaceAllString(v, `"$1"`) },
		func(v string) string { return reBareKey.ReplaceAllString(v, `$1"$2":`) },
	}
	for _, step := range steps {
		s = step(s)
		if IsJSON(s) {
			return s, nil
		}
	}
	return "", ErrNoJSON
}

// IsJSON reports whether s parses as a JSON object.
func IsJSON(s string) bool {
	var v map[string]any
	return json.Unmarshal([]byte(s), &v) == nil
}

// extractObject returns the first balanced {...} span, ignoring braces inside
// double-quoted strings.
func extractObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return strings.TrimSpace(s)
	}
	depth := 0
	inStr := false
	esc := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case esc:
			esc = false
		case c == '\\' && inStr:
			esc = true
		case c == '"':
			inStr = !inStr
		case inStr:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}
