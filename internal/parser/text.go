package parser

import (
	"bufio"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// TextParser handles plain text. Blank lines separate paragraphs; single
// newlines inside a paragraph become line breaks.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*Markup, error) {
	scanner := bufio.NewScanner(norm.NFC.Reader(r))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs [][]string
	var current []string

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				paragraphs = append(paragraphs, current)
				current = nil
			}
		} else {
			current = append(current, line)
		}
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, current)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	m := &Markup{Title: titleFromFilename(filename)}
	for _, lines := range paragraphs {
		m.Nodes = append(m.Nodes, textParagraph(lines))
	}
	return m, nil
}

func textParagraph(lines []string) *html.Node {
	p := element(atom.P)
	for i, line := range lines {
		if i > 0 {
			p.AppendChild(element(atom.Br))
		}
		p.AppendChild(&html.Node{Type: html.TextNode, Data: line})
	}
	return p
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
}
