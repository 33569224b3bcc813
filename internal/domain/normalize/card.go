package normalize

import (
	"sort"
	"strings"

	"cardbot/internal/domain/model"
)

// cardStringified lists the fields upstream stores sometimes emit as
// stringified JSON instead of real structures.
var cardStringified = []string{"card_images", "card_sets", "card_prices", "typeline"}

// cardRecognized are the keys the card normalizer consumes; everything
// else is preserved verbatim as an extra field.
var cardRecognized = map[string]struct{}{
	"name": {}, "type": {}, "humanreadablecardtype": {}, "typeline": {},
	"attribute": {}, "race": {}, "level": {}, "atk": {}, "def": {},
	"desc": {}, "card_text": {}, "text": {}, "archetype": {},
	"id": {}, "_id": {}, "card_images": {}, "card_sets": {},
	"card_prices": {}, "banlist_info": {},
}

// Card normalizes a raw trading-card record into the canonical item
// shape. Total: malformed values fall back to their raw form and the
// input record is never mutated. Normalization is idempotent through
// Item.Record(): Card(Card(x).Record()) == Card(x).
func Card(rec model.Record) model.Item {
	it := model.Item{Kind: model.KindCard}
	if len(rec) == 0 {
		return it
	}
	work := reparseStringified(rec, cardStringified...)

	it.Name = Sanitize(work["name"])
	it.Types = coerceList(pick(work, "type", "humanReadableCardType"))
	it.Attribute = Sanitize(work["attribute"])
	it.Subtype = cardSubtype(work)
	it.Rank = Sanitize(work["level"])
	if v, ok := work["atk"]; ok && v != nil {
		it.Power = Sanitize(v)
	}
	if v, ok := work["def"]; ok && v != nil {
		it.Defense = Sanitize(v)
	}
	it.LongText = Sanitize(pick(work, "desc", "card_text", "text"))
	it.GroupTag = Sanitize(work["archetype"])
	if v, ok := work["id"]; ok && v != nil {
		it.ID = ParseIdentifier(v)
	}
	it.Images = findImages(work)

	extras := map[string]string{}
	if banlist, ok := work["banlist_info"].(map[string]any); ok {
		if v := Sanitize(banlist["ban_ocg"]); v != "" {
			extras["Banlist Info"] = v
		}
	}
	collectExtras(work, cardRecognized, extras)
	it.Extra = sortedExtras(extras)
	return it
}

// cardSubtype prefers the race line, falling back to the typeline words
// joined the way the display layer shows them.
func cardSubtype(work model.Record) string {
	if v, ok := work["race"]; ok && v != nil {
		if s := Sanitize(v); s != "" {
			return s
		}
	}
	switch tl := work["typeline"].(type) {
	case []any:
		parts := make([]string, 0, len(tl))
		for _, p := range tl {
			if s := Sanitize(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case string:
		return Sanitize(tl)
	}
	return ""
}

// pick returns the first present, non-nil value among the given keys.
func pick(rec model.Record, keys ...string) any {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// collectExtras adds every unrecognized scalar field to extras. Image
// keys are skipped: they were already folded into the image refs.
func collectExtras(work model.Record, recognized map[string]struct{}, extras map[string]string) {
	for k, v := range work {
		lk := strings.ToLower(k)
		if _, taken := recognized[lk]; taken {
			continue
		}
		if strings.Contains(lk, "image") {
			continue
		}
		switch v.(type) {
		case string, float64, int, bool:
			if s := Sanitize(v); s != "" {
				if _, exists := extras[k]; !exists {
					extras[k] = s
				}
			}
		}
	}
}

func sortedExtras(extras map[string]string) []model.ExtraField {
	if len(extras) == 0 {
		return nil
	}
	keys := make([]string, 0, len(extras))
	for k := range extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]model.ExtraField, 0, len(keys))
	for _, k := range keys {
		out = append(out, model.ExtraField{Key: k, Value: extras[k]})
	}
	return out
}
