package normalize

import (
	"sort"
	"strings"

	"cardbot/internal/domain/model"
)

// creatureAliases maps localized (Vietnamese) field names onto the
// canonical English ones. Matching is substring-based and
// diacritic-insensitive, so "Chiều cao", "chieu cao" and
// "Chiều cao (Height)" all land on "height". Best-effort by design;
// new upstream locales need rows added here.
var creatureAliases = []struct {
	canonical string
	alias     string
}{
	{"name", "tên"},
	{"type", "loại"},
	{"height", "chiều cao"},
	{"weight", "cân nặng"},
	{"description", "mô tả"},
	{"abilities", "khả năng"},
	{"id", "mã số"},
}

// creatureRecognized are the exact keys consumed directly; anything
// else that is not alias-consumed is preserved as an extra field.
var creatureRecognized = map[string]struct{}{
	"name": {}, "type": {}, "height": {}, "weight": {},
	"description": {}, "desc": {}, "abilities": {}, "id": {},
	"card_images": {}, "stats": {},
}

// Creature normalizes a raw creature/species record into the canonical
// item shape. Same contract as Card: total, non-mutating, idempotent
// through Item.Record().
func Creature(rec model.Record) model.Item {
	it := model.Item{Kind: model.KindCreature}
	if len(rec) == 0 {
		return it
	}
	work := reparseStringified(rec, "card_images")

	aliased, consumed := resolveAliases(work)
	canonical := func(key string) any {
		if v := pick(work, key); v != nil {
			return v
		}
		return aliased[key]
	}

	it.Name = Sanitize(canonical("name"))
	it.Types = coerceList(canonical("type"))
	it.Height = UnitHeight(canonical("height"))
	it.Weight = UnitWeight(canonical("weight"))
	it.Abilities = joinList(canonical("abilities"))
	it.LongText = Sanitize(pick(work, "description", "desc", "mô tả"))
	if it.LongText == "" {
		it.LongText = Sanitize(aliased["description"])
	}
	if v := pick(work, "id", "ID", "Id"); v != nil {
		it.ID = ParseIdentifier(v)
	} else {
		it.ID = ParseIdentifier(aliased["id"])
	}
	it.Images = findImages(work)

	extras := map[string]string{}
	if stats := foldStats(work["stats"]); stats != "" {
		extras["Stats"] = stats
	} else if s := Sanitize(work["Stats"]); s != "" {
		// Round-trip form: the already-folded stats line.
		extras["Stats"] = s
	}
	for k, v := range work {
		lk := strings.ToLower(k)
		if consumed[k] {
			continue
		}
		if _, taken := creatureRecognized[lk]; taken {
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
	it.Extra = sortedExtras(extras)
	return it
}

// resolveAliases walks the record's keys (sorted, for deterministic
// tie-breaks) and maps localized names onto canonical ones. Returns the
// alias values plus the set of keys consumed by aliasing.
func resolveAliases(work model.Record) (map[string]any, map[string]bool) {
	keys := make([]string, 0, len(work))
	for k := range work {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	aliased := map[string]any{}
	consumed := map[string]bool{}
	for _, key := range keys {
		lk := strings.ToLower(key)
		stripped := StripDiacritics(lk)
		for _, row := range creatureAliases {
			aliasStripped := StripDiacritics(row.alias)
			if !strings.Contains(lk, row.alias) && !strings.Contains(stripped, aliasStripped) {
				continue
			}
			if _, have := aliased[row.canonical]; !have {
				aliased[row.canonical] = work[key]
			}
			consumed[key] = true
			break
		}
	}
	return aliased, consumed
}

// joinList renders an abilities-style value: lists join with commas,
// scalars sanitize as-is.
func joinList(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := Sanitize(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return Sanitize(t)
	}
}

// foldStats flattens a stats array of {stat:{name}, base_stat} entries
// into display text like "hp: 45, attack: 49".
func foldStats(v any) string {
	entries, ok := v.([]any)
	if !ok {
		return ""
	}
	var parts []string
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		stat, ok := entry["stat"].(map[string]any)
		if !ok {
			continue
		}
		name := Sanitize(stat["name"])
		base := Sanitize(entry["base_stat"])
		if name == "" || base == "" {
			continue
		}
		parts = append(parts, strings.ReplaceAll(name, "-", " ")+": "+base)
	}
	return strings.Join(parts, ", ")
}
