package manifest

// stripEmpty removes keys whose values carry no information: nils, empty
// strings, empty slices and empty maps. Booleans always survive, including
// false. Nested maps and slices are filtered recursively.
func stripEmpty(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for key, value := range doc {
		cleaned, keep := stripValue(value)
		if keep {
			out[key] = cleaned
		}
	}
	return out
}

func stripValue(value any) (any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case string:
		return v, v != ""
	case map[string]any:
		cleaned := stripEmpty(v)
		return cleaned, len(cleaned) > 0
	case []any:
		cleaned := make([]any, 0, len(v))
		for _, item := range v {
			if c, keep := stripValue(item); keep {
				cleaned = append(cleaned, c)
			}
		}
		return cleaned, len(cleaned) > 0
	case []string:
		if len(v) == 0 {
			return nil, false
		}
		// copied so the rendered document never aliases definition state
		out := make([]string, len(v))
		copy(out, v)
		return out, true
	case []map[string]any:
		cleaned := make([]map[string]any, 0, len(v))
		for _, m := range v {
			cleaned = append(cleaned, stripEmpty(m))
		}
		return cleaned, len(cleaned) > 0
	default:
		// Numbers and booleans are meaningful even when zero valued.
		return v, true
	}
}
