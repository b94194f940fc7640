// internal/llmutil/parser.go
// Package llmutil provides helpers for handling raw text responses from
// language models, which frequently wrap structured payloads in prose or
// markdown fences.
package llmutil

import (
	"errors"
	"strings"
)

// ErrNoJSONObject indicates that no balanced JSON object could be located in
// the model output.
var ErrNoJSONObject = errors.New("llmutil: no JSON object found in response")

// ExtractJSONObject scans raw model output and returns the first balanced
// top-level JSON object, including its braces. Braces inside string literals
// are ignored, and escaped quotes do not terminate a string. Markdown code
// fences around the payload are tolerated since the scan simply skips
// everything before the first opening brace.
func ExtractJSONObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", ErrNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSONObject
}

// StripCodeFences removes a leading and trailing markdown code fence from the
// text, if present. The language tag on the opening fence is discarded.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		// Drop the language tag line (e.g. "json").
		first := strings.TrimSpace(trimmed[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
