package normalize

import (
	"encoding/json"
	"regexp"
	"strings"
)

// singleQuotedKey matches 'key' positions in python-repr style payloads
// so the quote repair does not mangle apostrophes inside values.
var singleQuotedKey = regexp.MustCompile(`([{\[,\s])'([^']*)'(\s*:)`)

// ParseLoose decodes a string that looks like a JSON object or array,
// tolerating the single-quoted form some upstream pipelines emit.
// Returns (parsed, true) on success; (nil, false) when the string does
// not look like JSON or resists both repair attempts, in which case the
// caller keeps the raw value.
func ParseLoose(s string) (any, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, false
	}
	looksObject := strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")
	looksArray := strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")
	if !looksObject && !looksArray {
		return nil, false
	}

	// First attempt: blanket single-to-double quote swap.
	var parsed any
	if err := json.Unmarshal([]byte(strings.ReplaceAll(trimmed, "'", `"`)), &parsed); err == nil {
		return parsed, true
	}

	// Second, looser attempt: requote keys first, then the rest.
	repaired := singleQuotedKey.ReplaceAllString(trimmed, `$1"$2"$3`)
	repaired = strings.ReplaceAll(repaired, "'", `"`)
	if err := json.Unmarshal([]byte(repaired), &parsed); err == nil {
		return parsed, true
	}
	return nil, false
}

// reparseStringified returns a derived copy of rec where the named
// fields, when stringified JSON, are replaced by their parsed values.
// The input record is never touched.
func reparseStringified(rec map[string]any, fields ...string) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	for _, field := range fields {
		raw, ok := out[field].(string)
		if !ok {
			continue
		}
		if parsed, ok := ParseLoose(raw); ok {
			out[field] = parsed
		}
	}
	return out
}
