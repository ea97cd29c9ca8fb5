package llm

import "fmt"

// NormalizeContent collapses an LLM response's content field to a single
// string. The vendor contract allows content to arrive as a plain string or
// as a list of content parts (each a map with a "text" key, among other
// keys such as "type"); every phase that parses LLM JSON output must run its
// raw response through this before attempting to decode it, rather than
// assuming one shape.
func NormalizeContent(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		var out string
		for _, part := range v {
			out += normalizePart(part)
		}
		return out
	default:
		return fmt.Sprintf("%v", v)
	}
}

func normalizePart(part any) string {
	switch p := part.(type) {
	case string:
		return p
	case map[string]any:
		if text, ok := p["text"]; ok {
			if s, ok := text.(string); ok {
				return s
			}
			return fmt.Sprintf("%v", text)
		}
		return ""
	default:
		return fmt.Sprintf("%v", p)
	}
}
