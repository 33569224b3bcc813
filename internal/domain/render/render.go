// Package render builds size-bounded visual cards from normalized
// items. Rendering is a pure transformation; the actual chat-message
// transport lives behind the dispatch sink.
package render

import (
	"strings"
	"unicode/utf8"

	"cardbot/internal/domain/model"
	"cardbot/internal/domain/normalize"
	"cardbot/pkg/metrics"
)

// Card accent colors.
const (
	cardColor     = 0x2f3136
	creatureColor = 0xffcb05
)

// longTextFieldName labels the effect-text field on trading cards.
const longTextFieldName = "Card Text"

// Option adjusts how a card is rendered.
type Option func(*settings)

type settings struct {
	groupListing bool
}

// WithGroupListing marks the item as coming from a tabular/group
// listing (archetype-style); the long-text column becomes the card
// description and the redundant full-text field is suppressed.
func WithGroupListing(on bool) Option {
	return func(s *settings) {
		s.groupListing = on
	}
}

// Card builds one visual card for a normalized item. The fallback raw
// record fills gaps normalization could not derive. The returned card
// always satisfies the size invariant.
func Card(item model.Item, fallback model.Record, opts ...Option) model.VisualCard {
	var cfg settings
	for _, opt := range opts {
		opt(&cfg)
	}

	card := model.VisualCard{
		Title: title(item, fallback),
		Color: cardColor,
	}
	if item.Kind == model.KindCreature {
		card.Color = creatureColor
	}

	card.ThumbnailURL = thumbnail(item.Images)
	card.ImageURL = mainImage(item.Images)

	card.Fields = fields(item)
	if item.GroupTag != "" {
		card.FooterText = Truncate("Archetype: "+item.GroupTag, model.FooterTextLimit)
	}

	long := longText(item, fallback)
	switch {
	case long == "":
	case cfg.groupListing:
		card.Description = Truncate(long, model.ShrunkDescriptionLimit)
	case utf8.RuneCountInString(long) <= model.FieldValueLimit:
		card.Fields = appendField(card.Fields, model.Field{Name: longTextFieldName, Value: long})
	case utf8.RuneCountInString(long) <= model.DescriptionLimit:
		card.Description = long
	default:
		card.Fields = appendField(card.Fields, model.Field{
			Name:  longTextFieldName + " (truncated)",
			Value: Truncate(long, model.FieldValueLimit),
		})
	}

	metrics.RecordCardRendered()
	return EnsureSize(card)
}

// title derives the card title, falling back to the raw record's name
// and finally a generic placeholder; creature titles carry the padded
// identifier.
func title(item model.Item, fallback model.Record) string {
	t := item.Name
	if t == "" && fallback != nil {
		t = normalize.Sanitize(fallback["name"])
	}
	if t == "" {
		if item.Kind == model.KindCreature {
			t = "Creature"
		} else {
			t = "Card"
		}
	}
	if item.Kind == model.KindCreature && item.ID.Display != "" {
		t += " " + item.ID.Display
	}
	return Truncate(t, model.TitleLimit)
}

func thumbnail(refs model.ImageRefs) string {
	if refs.Small != "" {
		return refs.Small
	}
	return refs.Full
}

func mainImage(refs model.ImageRefs) string {
	if refs.Full != "" {
		return refs.Full
	}
	return refs.Cropped
}

// fields lays out the item's attributes in fixed priority order, most
// important first, so the shrink procedure drops the right ones.
func fields(item model.Item) []model.Field {
	var out []model.Field
	add := func(name, value string, inline bool) {
		if value != "" {
			out = append(out, model.Field{
				Name:   name,
				Value:  Truncate(value, model.FieldValueLimit),
				Inline: inline,
			})
		}
	}

	if item.Kind == model.KindCreature {
		add("Type", strings.Join(item.Types, " / "), true)
		add("Height", item.Height, true)
		add("Weight", item.Weight, true)
		add("Abilities", item.Abilities, false)
	} else {
		add("Card Type", strings.Join(item.Types, ", "), true)
		add("Attribute", item.Attribute, true)
		add("Type", item.Subtype, true)
		add("Level", item.Rank, true)
		add("ATK", item.Power, true)
		add("DEF", item.Defense, true)
		add("Archetype", item.GroupTag, true)
	}
	for _, extra := range item.Extra {
		add(extra.Key, extra.Value, true)
	}

	if len(out) > model.MaxFields {
		out = out[:model.MaxFields]
	}
	return out
}

// appendField adds a field unless the card is already at the platform
// field ceiling.
func appendField(fields []model.Field, f model.Field) []model.Field {
	if len(fields) >= model.MaxFields {
		return fields
	}
	return append(fields, f)
}

// longText picks the description/effect text, trying the normalized
// item first and then the raw record's known text keys.
func longText(item model.Item, fallback model.Record) string {
	if item.LongText != "" {
		return item.LongText
	}
	if fallback == nil {
		return ""
	}
	for _, key := range []string{"desc", "description", "card_text", "text"} {
		if v, ok := fallback[key]; ok && v != nil {
			if s := normalize.Sanitize(v); s != "" {
				return s
			}
		}
	}
	return ""
}
