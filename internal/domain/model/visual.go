// Package model contains domain models passed between layers.
package model

import "unicode/utf8"

// Chat platform display limits. These are design constants enforced by
// the renderer and dispatcher before payloads reach the reply sink; the
// sink stays defensive at the point of actual transmission.
const (
	// MaxCardSize is the hard cap on a visual card's serialized size.
	MaxCardSize = 6000
	// SizeSafetyMargin is subtracted from MaxCardSize when shrinking.
	SizeSafetyMargin = 200
	// TargetCardSize is the effective per-card budget after the margin.
	TargetCardSize = MaxCardSize - SizeSafetyMargin

	// TitleLimit bounds a card title.
	TitleLimit = 256
	// FieldValueLimit bounds a single field value.
	FieldValueLimit = 1024
	// DescriptionLimit bounds the card description.
	DescriptionLimit = 2000
	// FooterTextLimit bounds the card footer text.
	FooterTextLimit = 2048
	// ShrunkDescriptionLimit is the description budget used when a card
	// must be shrunk to fit the total size cap.
	ShrunkDescriptionLimit = 800
	// ShrunkFieldValueLimit is the field value budget used during shrink.
	ShrunkFieldValueLimit = 500

	// MaxFields caps the number of fields on one card.
	MaxFields = 25
	// MinFields is the floor below which shrinking never drops fields.
	MinFields = 3

	// MaxCardsPerBatch caps how many cards one message may carry.
	MaxCardsPerBatch = 10
	// TextChunkSize is the chunk length for long plain-text replies.
	TextChunkSize = 1900
)

// Field is one name/value pair displayed on a visual card.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// VisualCard is the render-ready, size-bounded display unit sent to the
// chat platform. Immutable once dispatched.
type VisualCard struct {
	Title        string
	ThumbnailURL string
	ImageURL     string
	Fields       []Field
	Description  string
	FooterText   string
	Color        int
}

// Size returns the serialized size counted against MaxCardSize: the sum
// of the character lengths of title, description, footer and all field
// names and values. The platform counts characters, not bytes, so
// multibyte text is measured in runes. Image URLs do not count toward
// the cap.
func (c VisualCard) Size() int {
	total := utf8.RuneCountInString(c.Title) +
		utf8.RuneCountInString(c.Description) +
		utf8.RuneCountInString(c.FooterText)
	for _, f := range c.Fields {
		total += utf8.RuneCountInString(f.Name) + utf8.RuneCountInString(f.Value)
	}
	return total
}
