package extract

import (
	"regexp"
	"strconv"
	"strings"

	"cardbot/internal/domain/normalize"
)

var (
	horizontalRule = regexp.MustCompile(`\n-{3,}\n`)
	dividerRow     = regexp.MustCompile(`^[|:\s-]+$`)
	titleLine      = regexp.MustCompile(`(?m)^!\S`)
	pipedHeader    = regexp.MustCompile(`(?i)\|\s*(Field|Value)\s*\|`)
)

// boilerplateLabels are table-header labels to drop, in the two
// languages the upstream pipelines emit. Best-effort: new locales need
// entries added here.
var boilerplateLabels = map[string]struct{}{
	"field":     {},
	"value":     {},
	"thông tin": {},
	"giá trị":   {},
	"hình ảnh":  {},
}

// canonicalColumns folds recognized table keys onto canonical record
// fields by case-insensitive substring, in priority order.
var canonicalColumns = []struct {
	substr  string
	field   string
	numeric bool
}{
	{substr: "name", field: "name"},
	{substr: "type", field: "type"},
	{substr: "attribute", field: "attribute"},
	{substr: "level", field: "level"},
	{substr: "race", field: "race"},
	{substr: "atk", field: "atk", numeric: true},
	{substr: "def", field: "def", numeric: true},
	{substr: "description", field: "desc"},
	{substr: "desc", field: "desc"},
}

// LooksTabular reports whether free text resembles the markdown table
// output some pipelines produce instead of structured JSON.
func LooksTabular(text string) bool {
	if text == "" {
		return false
	}
	return pipedHeader.MatchString(text) ||
		titleLine.MatchString(text) ||
		strings.Contains(text, "|---") ||
		strings.Contains(text, "Hình ảnh")
}

// ParseMarkdownBlocks splits markdown/table text into per-item raw
// records. Blocks are separated by horizontal rules; each block may
// carry a `!Title` line and pipe-delimited key/value rows. Recognized
// keys fold onto canonical field names, unrecognized keys survive
// verbatim. Title-only blocks yield a name-only record.
func ParseMarkdownBlocks(text string) []Record {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	normalized := strings.ReplaceAll(text, "\r\n", "\n")

	var records []Record
	for _, block := range horizontalRule.Split(normalized, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		var lines []string
		for _, ln := range strings.Split(block, "\n") {
			if ln = strings.TrimSpace(ln); ln != "" {
				lines = append(lines, ln)
			}
		}

		title := ""
		for _, ln := range lines {
			if strings.HasPrefix(ln, "!") {
				title = strings.TrimSpace(strings.TrimLeft(ln, "! "))
				break
			}
		}

		pairs := tablePairs(lines)
		if len(pairs) == 0 && title == "" {
			continue
		}

		rec := Record{}
		for _, kv := range pairs {
			field, value := foldColumn(kv[0], kv[1])
			if _, taken := rec[field]; !taken {
				rec[field] = value
			}
		}
		if _, hasName := rec["name"]; !hasName && title != "" {
			rec["name"] = title
		}
		if len(rec) > 0 {
			records = append(records, rec)
		}
	}
	return records
}

// tablePairs pulls key/value pairs out of pipe-delimited rows, skipping
// divider rows and boilerplate header labels.
func tablePairs(lines []string) [][2]string {
	var pairs [][2]string
	for _, ln := range lines {
		if dividerRow.MatchString(ln) || !strings.Contains(ln, "|") {
			continue
		}
		var parts []string
		for _, p := range strings.Split(ln, "|") {
			p = strings.TrimSpace(strings.ReplaceAll(p, "**", ""))
			if p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) < 2 {
			continue
		}
		key, val := parts[0], parts[1]
		if isBoilerplate(key) || isBoilerplate(val) {
			continue
		}
		key = normalize.Sanitize(key)
		val = normalize.Sanitize(val)
		if key == "" || val == "" {
			continue
		}
		pairs = append(pairs, [2]string{key, val})
	}
	return pairs
}

func isBoilerplate(s string) bool {
	_, found := boilerplateLabels[strings.ToLower(strings.TrimSpace(s))]
	return found
}

// foldColumn maps a table key onto its canonical field name; atk/def
// values become numbers when they parse.
func foldColumn(key, value string) (string, any) {
	lk := strings.ToLower(key)
	for _, col := range canonicalColumns {
		if !strings.Contains(lk, col.substr) {
			continue
		}
		if col.numeric {
			if n, err := strconv.ParseFloat(value, 64); err == nil {
				return col.field, n
			}
		}
		return col.field, value
	}
	return key, value
}
