package normalize

import (
	"regexp"
	"sort"
	"strings"

	"cardbot/internal/domain/model"
)

// urlPattern matches bare URLs and the URL inside a markdown image like
// ![alt](https://...); the trailing `)` of the markdown form is
// excluded by the character class.
var urlPattern = regexp.MustCompile(`(?i)https?://[^\s)]+`)

// FirstURL extracts the first http(s) URL embedded in s, or "".
func FirstURL(s string) string {
	return urlPattern.FindString(s)
}

// imageKeyCandidates are the likely image field names, checked before
// the broader any-key-containing-"image" scan.
var imageKeyCandidates = []string{
	"image", "img", "image_url", "imageurl", "image url",
	"image_url_small", "image_url_cropped", "image_small",
	"artwork", "sprite_url", "sprites",
}

// findImages resolves an item's image references. Priority: a
// card_images set, then the candidate keys, then any key containing
// "image". The first URL found wins; full and small default to the
// same URL unless distinct variants are present.
func findImages(rec map[string]any) model.ImageRefs {
	if refs := imagesFromSet(rec["card_images"]); !refs.Empty() {
		return refs
	}

	for _, key := range imageKeyCandidates {
		if refs := imagesFromValue(rec[key]); !refs.Empty() {
			return refs
		}
	}

	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !strings.Contains(strings.ToLower(k), "image") {
			continue
		}
		if refs := imagesFromValue(rec[k]); !refs.Empty() {
			return refs
		}
	}
	return model.ImageRefs{}
}

// imagesFromSet reads the first entry of a card_images-style array.
func imagesFromSet(v any) model.ImageRefs {
	entries, ok := v.([]any)
	if !ok || len(entries) == 0 {
		return model.ImageRefs{}
	}
	first := entries[0]
	if s, ok := first.(string); ok {
		if parsed, ok := ParseLoose(s); ok {
			first = parsed
		}
	}
	entry, ok := first.(map[string]any)
	if !ok {
		return model.ImageRefs{}
	}
	refs := model.ImageRefs{
		Full:    urlString(entry["image_url"]),
		Small:   urlString(entry["image_url_small"]),
		Cropped: urlString(entry["image_url_cropped"]),
	}
	if refs.Small == "" {
		refs.Small = refs.Full
	}
	if refs.Full == "" {
		refs.Full = refs.Small
	}
	return refs
}

// imagesFromValue handles a plain URL, a markdown-wrapped URL, or a
// nested sprite object.
func imagesFromValue(v any) model.ImageRefs {
	switch t := v.(type) {
	case string:
		if url := FirstURL(strings.TrimSpace(t)); url != "" {
			return model.ImageRefs{Full: url, Small: url}
		}
	case map[string]any:
		if url := spriteURL(t); url != "" {
			return model.ImageRefs{Full: url, Small: url}
		}
	}
	return model.ImageRefs{}
}

// spriteURL digs through a nested sprite object, preferring official
// artwork over the plain front sprite.
func spriteURL(sprites map[string]any) string {
	if other, ok := sprites["other"].(map[string]any); ok {
		for _, variant := range []string{"official-artwork", "home"} {
			if m, ok := other[variant].(map[string]any); ok {
				if url := urlString(m["front_default"]); url != "" {
					return url
				}
			}
		}
	}
	if url := urlString(sprites["front_default"]); url != "" {
		return url
	}
	keys := make([]string, 0, len(sprites))
	for k := range sprites {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if url := urlString(sprites[k]); url != "" {
			return url
		}
	}
	return ""
}

func urlString(v any) string {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, "http") {
		return ""
	}
	return s
}
