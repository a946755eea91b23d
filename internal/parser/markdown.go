package parser

import (
	"bytes"
	"fmt"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/unicode/norm"
)

// MarkdownParser renders Markdown to HTML with goldmark and parses the
// result, so Markdown notes share the HTML conversion path.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Markup, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	src = norm.NFC.Bytes(src)

	md := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
		// Notes may carry inline placeholder spans.
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	doc := md.Parser().Parse(text.NewReader(src))

	m := &Markup{Title: titleFromFilename(filename)}
	if m.Title == "" {
		m.Title = firstHeading(doc, src)
	}

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, src, doc); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	m.Nodes, err = parseFragment(buf.String())
	if err != nil {
		return nil, err
	}
	return m, nil
}

// firstHeading returns the text of the first top-level h1.
func firstHeading(doc ast.Node, src []byte) string {
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			return string(h.Text(src))
		}
	}
	return ""
}
