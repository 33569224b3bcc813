// Package model contains domain models passed between layers.
package model

import "strings"

// Record is a raw, untyped item record as produced by an upstream
// pipeline. No keys are guaranteed; values may be stringified JSON,
// markdown-decorated strings or nested structures.
type Record = map[string]any

// Kind distinguishes the two item variants the bot renders.
type Kind string

// Item variants.
const (
	KindCard     Kind = "card"
	KindCreature Kind = "creature"
)

// ImageRefs holds the resolved image URLs for an item. Small defaults to
// Full when no distinct small variant exists.
type ImageRefs struct {
	Full    string
	Small   string
	Cropped string
}

// Empty reports whether no image reference was found.
func (r ImageRefs) Empty() bool {
	return r.Full == "" && r.Small == "" && r.Cropped == ""
}

// Identifier is a normalized item identifier. Numeric identifiers carry
// both the parsed value and a zero-padded display form like "#025";
// non-numeric identifiers keep only the raw form.
type Identifier struct {
	Raw     string
	Numeric int
	Display string
}

// IsNumeric reports whether the identifier parsed to a number.
func (id Identifier) IsNumeric() bool { return id.Display != "" }

// ExtraField preserves an unrecognized upstream field verbatim, in
// discovery order.
type ExtraField struct {
	Key   string
	Value string
}

// Item is the canonical, normalized shape shared by the card and
// creature variants. All text fields are sanitized (markdown stripped,
// whitespace collapsed). Zero values mean "absent".
type Item struct {
	Kind      Kind
	Name      string
	Types     []string // primary type(s), e.g. ["Electric"] or typeline words
	Attribute string   // card attribute or creature category
	Subtype   string   // race / species line
	Rank      string   // level/rank/link text
	Power     string   // ATK
	Defense   string   // DEF
	Height    string   // unit-suffixed, e.g. "0.4 m"
	Weight    string   // unit-suffixed, e.g. "6.0 kg"
	Abilities string
	LongText  string // description / effect text
	GroupTag  string // archetype or grouping label
	ID        Identifier
	Images    ImageRefs
	Extra     []ExtraField
}

// Renderable reports whether the item carries enough identity to be
// worth a visual card.
func (it Item) Renderable() bool {
	return strings.TrimSpace(it.Name) != "" || !it.Images.Empty() || it.LongText != ""
}

// Record converts the item back to its canonical raw-record form. The
// normalizers treat this form as a fixed point: normalizing it yields
// an identical Item, which is what makes normalization idempotent.
func (it Item) Record() Record {
	rec := Record{}
	put := func(k, v string) {
		if v != "" {
			rec[k] = v
		}
	}
	put("name", it.Name)
	if len(it.Types) > 0 {
		put("type", strings.Join(it.Types, ", "))
	}
	put("attribute", it.Attribute)
	put("race", it.Subtype)
	put("level", it.Rank)
	put("atk", it.Power)
	put("def", it.Defense)
	put("height", it.Height)
	put("weight", it.Weight)
	put("abilities", it.Abilities)
	put("desc", it.LongText)
	put("archetype", it.GroupTag)
	put("id", it.ID.Raw)
	if !it.Images.Empty() {
		img := Record{}
		if it.Images.Full != "" {
			img["image_url"] = it.Images.Full
		}
		if it.Images.Small != "" {
			img["image_url_small"] = it.Images.Small
		}
		if it.Images.Cropped != "" {
			img["image_url_cropped"] = it.Images.Cropped
		}
		rec["card_images"] = []any{img}
	}
	for _, f := range it.Extra {
		if _, taken := rec[f.Key]; !taken {
			rec[f.Key] = f.Value
		}
	}
	return rec
}
