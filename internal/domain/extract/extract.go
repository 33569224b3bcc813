// Package extract walks arbitrarily-shaped upstream response envelopes
// and produces ordered, deduplicated raw item records. Every function in
// this package is total: unknown shapes yield empty results, never errors.
package extract

import (
	"encoding/json"
	"fmt"
	"sort"

	"cardbot/internal/domain/model"
)

// Record is the raw item record type flowing out of extraction.
type Record = model.Record

// maxScanDepth bounds the fallback deep scan so pathological or
// self-referential envelopes terminate.
const maxScanDepth = 12

// probe is one shape matcher in the ordered chain: a named, pure
// collector tried against the envelope. The chain replaces ad hoc deep
// property probing with an explicit strategy table.
type probe struct {
	name    string
	collect func(env any) []Record
}

// probeChain is tried in priority order; all collected records are
// concatenated before deduplication so earlier probes win ties.
var probeChain = []probe{
	{name: "top_level_data", collect: collectTopLevelData},
	{name: "pipeline_outputs", collect: collectPipelineOutputs},
	{name: "deep_scan", collect: collectDeepScan},
}

// Extract returns every item-like record reachable from the envelope,
// first occurrence winning, discovery order preserved.
func Extract(envelope any) []Record {
	if envelope == nil {
		return nil
	}
	var results []Record
	for _, p := range probeChain {
		results = append(results, p.collect(envelope)...)
	}
	return dedupe(results)
}

// First returns the first extracted record, or nil.
func First(envelope any) Record {
	records := Extract(envelope)
	if len(records) == 0 {
		return nil
	}
	return records[0]
}

// collectTopLevelData handles `{data: [...]}` and `{result: {data: [...]}}`.
func collectTopLevelData(env any) []Record {
	obj, ok := asMap(env)
	if !ok {
		return nil
	}
	var out []Record
	out = append(out, recordsFrom(obj["data"])...)
	if result, ok := asMap(obj["result"]); ok {
		out = append(out, recordsFrom(result["data"])...)
	}
	return out
}

// collectPipelineOutputs walks the nested outputs[].outputs[].results
// envelope emitted by upstream pipelines. Every branch is walked, not
// just the first, because the payload may ride on any of them.
func collectPipelineOutputs(env any) []Record {
	obj, ok := asMap(env)
	if !ok {
		return nil
	}
	outputs, ok := asSlice(obj["outputs"])
	if !ok {
		return nil
	}
	var out []Record
	for _, o1 := range outputs {
		out1, ok := asMap(o1)
		if !ok {
			continue
		}
		if inner, ok := asSlice(out1["outputs"]); ok {
			for _, o2 := range inner {
				out2, ok := asMap(o2)
				if !ok {
					continue
				}
				if results, ok := asMap(out2["results"]); ok {
					out = append(out, recordsFrom(results["data"])...)
					if res, ok := asMap(results["result"]); ok {
						out = append(out, recordsFrom(res["data"])...)
					}
					if msg, ok := asMap(results["message"]); ok {
						out = append(out, recordsFrom(msg["data"])...)
					}
				}
				if hasName(out2) {
					out = append(out, out2)
				}
			}
		}
		if hasName(out1) {
			out = append(out, out1)
		}
	}
	return out
}

// collectDeepScan recursively visits every reachable object and keeps
// anything that looks like an item record. Depth-limited; see
// maxScanDepth.
func collectDeepScan(env any) []Record {
	var out []Record
	scan(env, 0, &out)
	return out
}

func scan(v any, depth int, out *[]Record) {
	if depth > maxScanDepth || v == nil {
		return
	}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			scan(item, depth+1, out)
		}
	case map[string]any:
		if looksLikeItem(t) {
			*out = append(*out, t)
			return
		}
		for _, k := range sortedKeys(t) {
			scan(t[k], depth+1, out)
		}
	}
}

// looksLikeItem reports whether an object carries enough identity to be
// an item record: a non-empty name plus an image reference or
// descriptive text.
func looksLikeItem(obj map[string]any) bool {
	if !hasName(obj) {
		return false
	}
	for _, key := range []string{"card_images", "image_url", "image_url_small", "desc", "text"} {
		if v, ok := obj[key]; ok && v != nil {
			return true
		}
	}
	return false
}

func hasName(obj map[string]any) bool {
	name, ok := asString(obj["name"])
	return ok && name != ""
}

// dedupe keeps the first occurrence of each record, keyed by id, _id,
// name or a full structural key, preserving discovery order.
func dedupe(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	unique := make([]Record, 0, len(records))
	for _, r := range records {
		key := dedupeKey(r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, r)
	}
	if len(unique) == 0 {
		return nil
	}
	return unique
}

func dedupeKey(r Record) string {
	for _, field := range []string{"id", "_id", "name"} {
		if v, ok := r[field]; ok && v != nil {
			if s, ok := asString(v); ok {
				if s == "" {
					continue
				}
				return field + ":" + s
			}
			return field + ":" + fmt.Sprintf("%v", v)
		}
	}
	// Structural fallback: encoding/json sorts map keys, which makes
	// this key stable across equal records.
	if b, err := json.Marshal(r); err == nil {
		return "json:" + string(b)
	}
	return fmt.Sprintf("raw:%v", r)
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// recordsFrom returns the map elements of v when v is an array.
func recordsFrom(v any) []Record {
	items, ok := asSlice(v)
	if !ok {
		return nil
	}
	var out []Record
	for _, item := range items {
		if rec, ok := asMap(item); ok {
			out = append(out, rec)
		}
	}
	return out
}

// sortedKeys gives the deep scan a deterministic visit order; Go map
// iteration order would otherwise make extraction order flap.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
