package convert

import (
	"encoding/json"
	"strings"

	"golang.org/x/net/html"
)

// Template placeholder attributes written by the note editor.
const (
	AttrVariable = "data-template-variable"
	AttrValue    = "data-value"
	AttrLabel    = "data-label"

	PlaceholderSeparator = ", "
)

// IsPlaceholder reports whether n stands in for a named template variable.
func IsPlaceholder(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	_, ok := attr(n, AttrVariable)
	return ok
}

// PlaceholderText renders a placeholder's selected values. Falls back to its
// label, then to the bracketed variable name.
func PlaceholderText(n *html.Node) string {
	if v, ok := attr(n, AttrValue); ok {
		if values := placeholderValues(v); len(values) > 0 {
			return strings.Join(values, PlaceholderSeparator)
		}
	}
	if label, ok := attr(n, AttrLabel); ok && strings.TrimSpace(label) != "" {
		return strings.TrimSpace(label)
	}
	name, _ := attr(n, AttrVariable)
	return "[" + strings.TrimSpace(name) + "]"
}

// placeholderValues accepts a JSON array of strings or a single plain value.
func placeholderValues(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			out := list[:0]
			for _, v := range list {
				if v = strings.TrimSpace(v); v != "" {
					out = append(out, v)
				}
			}
			return out
		}
	}
	return []string{raw}
}
