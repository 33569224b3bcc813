package extract

import (
	"strings"

	"cardbot/internal/domain/normalize"
)

// cardNameColumns mark a group-listing (archetype-style) table row.
var cardNameColumns = []string{"card name", "cardname", "card_name"}

// mongoStringified are row fields that document-store exports emit as
// stringified JSON.
var mongoStringified = []string{"card_images", "card_prices", "card_sets", "typeline"}

// TableRecords recognizes group-listing responses: a result.data array
// whose rows are either document-store exports (name + desc with
// stringified subfields) or archetype table rows keyed by display
// column names. Returns the per-row records and true when the envelope
// matched; rendering treats such listings specially (long text becomes
// the card description). Heuristic, as the upstream formats are not
// contractual.
func TableRecords(envelope any) ([]Record, bool) {
	obj, ok := asMap(envelope)
	if !ok {
		return nil, false
	}
	result, ok := asMap(obj["result"])
	if !ok {
		return nil, false
	}
	rows := recordsFrom(result["data"])
	if len(rows) == 0 {
		return nil, false
	}

	sample := make(map[string]struct{}, len(rows[0]))
	for k := range rows[0] {
		sample[strings.ToLower(k)] = struct{}{}
	}
	_, hasName := sample["name"]
	_, hasDesc := sample["desc"]
	storeFormat := hasName && hasDesc

	tableFormat := false
	for k := range sample {
		for _, col := range cardNameColumns {
			if strings.Contains(k, col) {
				tableFormat = true
			}
		}
	}
	if !storeFormat && !tableFormat {
		return nil, false
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		if storeFormat {
			records = append(records, storeRecord(row))
		} else {
			records = append(records, tableRecord(row))
		}
	}
	return records, true
}

// storeRecord copies a document-store row, re-parsing its stringified
// JSON subfields.
func storeRecord(row Record) Record {
	out := make(Record, len(row))
	for k, v := range row {
		out[k] = v
	}
	for _, field := range mongoStringified {
		raw, ok := out[field].(string)
		if !ok {
			continue
		}
		if parsed, ok := normalize.ParseLoose(raw); ok {
			out[field] = parsed
		}
	}
	return out
}

// tableRecord folds display column names onto canonical record fields.
func tableRecord(row Record) Record {
	out := Record{
		"name":      columnValue(row, "Card Name", "CardName", "card name", "cardname", "name", "Name"),
		"type":      columnValue(row, "Card Type", "CardType", "card type", "type"),
		"attribute": columnValue(row, "Attribute", "attribute"),
		"level":     columnValue(row, "Level/Rank/Link", "Level", "level"),
		"atk":       columnValue(row, "ATK", "atk"),
		"def":       columnValue(row, "DEF", "def"),
		"desc":      columnValue(row, "Description", "description", "desc"),
	}
	for k, v := range out {
		if v == nil {
			delete(out, k)
		}
	}
	if img := columnValue(row, "Image", "image", "Image URL", "image_url"); img != nil {
		if url, ok := img.(string); ok && strings.HasPrefix(strings.ToLower(url), "http") {
			out["card_images"] = []any{map[string]any{
				"image_url":       url,
				"image_url_small": url,
			}}
		}
	}
	return out
}

func columnValue(row Record, keys ...string) any {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			if s, isStr := v.(string); isStr && s == "" {
				continue
			}
			return v
		}
	}
	return nil
}
