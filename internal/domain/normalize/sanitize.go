// Package normalize converts raw heterogeneous item records into the
// canonical item shape. Every function is total: values that cannot be
// parsed pass through unchanged, and nothing here ever mutates its
// input record.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	markdownMarks = strings.NewReplacer("|", "", "*", "", "`", "", "_", "", "~", "")
	spaceRuns     = regexp.MustCompile(`\s+`)
)

// Sanitize renders a value as display text: markdown emphasis, code and
// strike markers and table pipes are stripped, whitespace runs collapse
// to a single space. Punctuation survives.
func Sanitize(v any) string {
	if v == nil {
		return ""
	}
	s := markdownMarks.Replace(stringify(v))
	return strings.TrimSpace(spaceRuns.ReplaceAllString(s, " "))
}

// stringify converts scalars the way a display layer would; floats drop
// their trailing zeros so JSON-decoded integers read naturally.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// diacriticStripper removes combining marks after NFD decomposition, so
// "Chiều cao" compares equal to "Chieu cao".
var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripDiacritics returns s with combining marks removed. Used to make
// localized field-name matching diacritic-insensitive. On transform
// failure the input is returned unchanged.
func StripDiacritics(s string) string {
	out, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		return s
	}
	return out
}

// coerceList splits a type/category value into an ordered list of
// strings on the common delimiters. Already-list values pass through
// element-sanitized.
func coerceList(v any) []string {
	var parts []string
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		for _, item := range t {
			parts = append(parts, stringify(item))
		}
	case []string:
		parts = t
	default:
		parts = strings.FieldsFunc(stringify(t), func(r rune) bool {
			return r == ',' || r == '/' || r == '|'
		})
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := Sanitize(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
