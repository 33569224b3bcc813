package render

import (
	"strings"
	"unicode/utf8"

	"cardbot/internal/domain/model"
	"cardbot/pkg/metrics"
)

// truncationNotice is appended to the last surviving field when
// trailing fields are dropped during shrink.
const truncationNotice = "\n\n[Content truncated due to size limits]"

// Truncate shortens s to at most limit characters, replacing the tail
// with an ellipsis. Measured in runes, matching the platform's
// character-based limits.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// EnsureSize shrinks a card until its serialized size fits under the
// hard cap minus the safety margin. Shrink order: description first,
// then field values, then trailing fields (never below MinFields),
// with a truncation notice appended to the last kept field, and
// finally the footer text down to whatever budget remains. Idempotent:
// an already-compliant card is returned unchanged.
func EnsureSize(card model.VisualCard) model.VisualCard {
	if card.Size() <= model.TargetCardSize {
		return card
	}
	metrics.RecordCardTruncated()

	// Work on a copy of the fields so the caller's card is untouched.
	card.Fields = append([]model.Field(nil), card.Fields...)

	// Step 1: the description is the usual oversized part.
	if utf8.RuneCountInString(card.Description) > model.ShrunkDescriptionLimit {
		card.Description = Truncate(card.Description, model.ShrunkDescriptionLimit)
	}
	if card.Size() <= model.TargetCardSize {
		return card
	}

	// Step 2: field values, least important (trailing) first.
	for i := len(card.Fields) - 1; i >= 0; i-- {
		if utf8.RuneCountInString(card.Fields[i].Value) > model.ShrunkFieldValueLimit {
			card.Fields[i].Value = Truncate(card.Fields[i].Value, model.ShrunkFieldValueLimit)
		}
		if card.Size() <= model.TargetCardSize {
			return card
		}
	}

	// Step 3: drop trailing fields, keeping at least MinFields.
	dropped := false
	for card.Size() > model.TargetCardSize && len(card.Fields) > model.MinFields {
		card.Fields = card.Fields[:len(card.Fields)-1]
		dropped = true
	}
	if dropped && len(card.Fields) > 0 {
		last := &card.Fields[len(card.Fields)-1]
		if !strings.Contains(last.Value, "truncated") {
			last.Value += truncationNotice
		}
	}
	if card.Size() <= model.TargetCardSize {
		return card
	}

	// Step 4: the footer is the only flexible part left; cede it the
	// remaining budget.
	keep := utf8.RuneCountInString(card.FooterText) - (card.Size() - model.TargetCardSize)
	if keep <= 0 {
		card.FooterText = ""
	} else {
		card.FooterText = Truncate(card.FooterText, keep)
	}
	return card
}
