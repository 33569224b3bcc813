package extract

// maxTextDepth bounds the message-text scan.
const maxTextDepth = 8

// FindMessageText digs a plain-text or markdown payload out of an
// envelope that yielded no structured items. Returns "" when none is
// found. Well-known message locations are probed before the generic
// key walk so pipeline envelopes resolve to their chat output rather
// than some incidental string.
func FindMessageText(envelope any) string {
	return findText(envelope, 0)
}

func findText(v any, depth int) string {
	if depth > maxTextDepth || v == nil {
		return ""
	}
	if s, ok := asString(v); ok {
		return s
	}
	obj, ok := asMap(v)
	if !ok {
		if items, ok := asSlice(v); ok {
			for _, item := range items {
				if s := findText(item, depth+1); s != "" {
					return s
				}
			}
		}
		return ""
	}

	if s, ok := asString(obj["message"]); ok {
		return s
	}
	if msg, ok := asMap(obj["message"]); ok {
		if s, ok := asString(msg["text"]); ok {
			return s
		}
	}
	if artifacts, ok := asMap(obj["artifacts"]); ok {
		if s, ok := asString(artifacts["message"]); ok {
			return s
		}
		if msg, ok := asMap(artifacts["message"]); ok {
			if s, ok := asString(msg["message"]); ok {
				return s
			}
		}
	}

	if outputs, ok := asSlice(obj["outputs"]); ok {
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
						if s, ok := asString(results["message"]); ok {
							return s
						}
						if msg, ok := asMap(results["message"]); ok {
							if s, ok := asString(msg["text"]); ok {
								return s
							}
							if data, ok := asMap(msg["data"]); ok {
								if s, ok := asString(data["text"]); ok {
									return s
								}
							}
						}
					}
					if s := findText(out2, depth+1); s != "" {
						return s
					}
				}
			}
			if s := findText(out1, depth+1); s != "" {
				return s
			}
		}
	}

	for _, k := range sortedKeys(obj) {
		if s := findText(obj[k], depth+1); s != "" {
			return s
		}
	}
	return ""
}
