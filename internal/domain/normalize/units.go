package normalize

import (
	"fmt"
	"regexp"
	"strconv"

	"cardbot/internal/domain/model"
)

var (
	heightUnit   = regexp.MustCompile(`(?i)\bm\b|m$`)
	weightUnit   = regexp.MustCompile(`(?i)kg\b|kg$`)
	numericToken = regexp.MustCompile(`[-+]?[0-9]*\.?[0-9]+`)
	digitRun     = regexp.MustCompile(`[0-9]+`)
)

// UnitHeight sanitizes a height-like value and appends the metre suffix
// exactly once. Values already carrying a unit, and values without an
// extractable numeric token, pass through unchanged, which makes the
// function idempotent.
func UnitHeight(v any) string {
	if v == nil {
		return ""
	}
	s := Sanitize(v)
	if s == "" || heightUnit.MatchString(s) {
		return s
	}
	if num := numericToken.FindString(s); num != "" {
		return num + " m"
	}
	return s
}

// UnitWeight is UnitHeight for mass: the kilogram suffix, applied once.
func UnitWeight(v any) string {
	if v == nil {
		return ""
	}
	s := Sanitize(v)
	if s == "" || weightUnit.MatchString(s) {
		return s
	}
	if num := numericToken.FindString(s); num != "" {
		return num + " kg"
	}
	return s
}

// ParseIdentifier normalizes a raw identifier. The first run of digits,
// when parseable, becomes the canonical numeric id plus a zero-padded
// display string like "#025"; non-numeric identifiers keep only the raw
// form.
func ParseIdentifier(v any) model.Identifier {
	if v == nil {
		return model.Identifier{}
	}
	raw := Sanitize(v)
	if raw == "" {
		return model.Identifier{}
	}
	id := model.Identifier{Raw: raw}
	if digits := digitRun.FindString(raw); digits != "" {
		if n, err := strconv.Atoi(digits); err == nil {
			id.Numeric = n
			id.Display = fmt.Sprintf("#%03d", n)
		}
	}
	return id
}
