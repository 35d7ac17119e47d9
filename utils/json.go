package utils

import (
	"fmt"
	"strings"
)

// ============================================================================
// JSON EXTRACTION
// ============================================================================

// ExtractFirstJSONObject returns the first balanced {...} block inside text.
// Models frequently wrap their JSON reply in prose or markdown fences; this
// scans for the first opening brace and tracks nesting, honoring strings and
// escape sequences.
func ExtractFirstJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object found in text")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("unbalanced JSON object in text")
}
