package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// HTMLParser handles editor HTML, either a fragment or a full page.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*Markup, error) {
	// Composed form keeps correction offsets stable for text pasted from
	// sources that emit decomposed accents.
	doc, err := html.Parse(norm.NFC.Reader(r))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	m := &Markup{Title: titleFromFilename(filename)}
	if title := findTitle(doc); title != "" {
		m.Title = title
	}

	body := findBody(doc)
	if body == nil {
		body = doc
	}
	m.Nodes = detachChildren(body)
	return m, nil
}

// parseFragment parses generated HTML in a body context.
func parseFragment(src string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse html fragment: %w", err)
	}
	return nodes, nil
}

// detachChildren unlinks n's children so each is a standalone root.
func detachChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		out = append(out, c)
		c = next
	}
	return out
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
