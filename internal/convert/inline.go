package convert

import (
	"strings"

	"github.com/dgallion1/chartdocx/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Extract walks inline nodes and returns their text as segments in document
// order, each tagged with the formatting in effect at that point. Whitespace
// outside pre collapses as a browser renders it, so a newline in the result
// always comes from a br (or preformatted text).
func Extract(nodes []*html.Node, parent doctree.Formatting) []doctree.Segment {
	var out []doctree.Segment
	for _, n := range nodes {
		out = extractNode(out, n, parent)
	}
	return trimTrailingSpace(out)
}

func extractNode(out []doctree.Segment, n *html.Node, f doctree.Formatting) []doctree.Segment {
	switch n.Type {
	case html.TextNode:
		text := n.Data
		if !preformatted(n) {
			text = collapseSpace(text)
			if atLineStart(out) {
				text = strings.TrimLeft(text, " ")
			}
		}
		if text != "" {
			out = append(out, doctree.Segment{Content: text, Formatting: f})
		}
		return out
	case html.ElementNode:
		if skipped(n) {
			return out
		}
		if IsPlaceholder(n) {
			if text := PlaceholderText(n); text != "" {
				out = append(out, doctree.Segment{Content: text, Formatting: Derive(f, n)})
			}
			return out
		}
		if n.DataAtom == atom.Br {
			return append(trimTrailingSpace(out), doctree.Segment{Content: "\n", Formatting: f})
		}
		f = Derive(f, n)
	case html.DocumentNode:
	default:
		return out
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = extractNode(out, c, f)
	}
	return out
}

// skipped elements never contribute visible text.
func skipped(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head, atom.Title, atom.Meta, atom.Link:
		return true
	}
	return false
}

func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

// collapseSpace turns every run of HTML whitespace into one space.
func collapseSpace(s string) string {
	if strings.IndexFunc(s, isSpace) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if isSpace(r) {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// atLineStart reports whether a collapsed space at this point would be
// invisible: nothing emitted yet, or the text so far ends in a space or
// line break.
func atLineStart(segs []doctree.Segment) bool {
	for i := len(segs) - 1; i >= 0; i-- {
		c := segs[i].Content
		if c == "" {
			continue
		}
		last := c[len(c)-1]
		return last == ' ' || last == '\n'
	}
	return true
}

// trimTrailingSpace drops spaces before a line break or paragraph end.
// Segments left empty are removed.
func trimTrailingSpace(segs []doctree.Segment) []doctree.Segment {
	for len(segs) > 0 {
		last := &segs[len(segs)-1]
		last.Content = strings.TrimRight(last.Content, " ")
		if last.Content != "" {
			break
		}
		segs = segs[:len(segs)-1]
	}
	return segs
}

func preformatted(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && (p.DataAtom == atom.Pre || p.DataAtom == atom.Textarea) {
			return true
		}
	}
	return false
}
