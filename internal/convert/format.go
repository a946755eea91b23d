package convert

import (
	"strconv"
	"strings"

	"github.com/dgallion1/chartdocx/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Derive returns the formatting node n hands to its children, given the
// formatting inherited from its parent. It never mutates parent.
func Derive(parent doctree.Formatting, n *html.Node) doctree.Formatting {
	if n == nil || n.Type != html.ElementNode {
		return parent
	}
	if IsPlaceholder(n) {
		return placeholderFormatting(parent)
	}

	f := parent
	switch n.DataAtom {
	case atom.Strong, atom.B:
		f.Bold = true
	case atom.Em, atom.I:
		f.Italic = true
	case atom.U:
		f.Underline = &doctree.Underline{Type: "single"}
	case atom.Span, atom.Font:
		if style, ok := attr(n, "style"); ok {
			f = applyStyle(f, parseStyle(style))
		}
	}
	return f
}

// placeholderFormatting drops weight, slant and colour. Only the underline
// survives from the surrounding text.
func placeholderFormatting(parent doctree.Formatting) doctree.Formatting {
	return doctree.Formatting{Underline: parent.Underline}
}

// applyStyle overrides bold, italic and colour from inline CSS, clearing any
// the declarations leave unset.
func applyStyle(f doctree.Formatting, decls map[string]string) doctree.Formatting {
	f.Bold = isBoldWeight(decls["font-weight"])

	switch decls["font-style"] {
	case "italic", "oblique":
		f.Italic = true
	default:
		f.Italic = false
	}

	f.Color = ""
	if c, ok := ParseColor(decls["color"]); ok {
		f.Color = c
	}

	deco := decls["text-decoration"] + " " + decls["text-decoration-line"]
	if strings.Contains(deco, "underline") {
		f.Underline = &doctree.Underline{Type: "single"}
	}
	return f
}

func isBoldWeight(v string) bool {
	switch v {
	case "bold", "bolder":
		return true
	}
	n, err := strconv.Atoi(v)
	return err == nil && n >= 600
}

// parseStyle splits an inline style attribute into lower-cased declarations.
func parseStyle(style string) map[string]string {
	decls := make(map[string]string)
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.ToLower(strings.TrimSpace(value))
		value = strings.TrimSpace(strings.TrimSuffix(value, "!important"))
		if name != "" {
			decls[name] = value
		}
	}
	return decls
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
