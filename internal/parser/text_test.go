package parser

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

// visible flattens a node's text, rendering br as a newline.
func visible(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}

func TestTextParser_BasicParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	p := &TextParser{}
	m, err := p.Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", m.Title)
	}
	if len(m.Nodes) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d", len(m.Nodes))
	}

	want := []string{
		"First paragraph line one.\nFirst paragraph line two.",
		"Second paragraph.",
		"Third paragraph.",
	}
	for i, w := range want {
		if m.Nodes[i].Data != "p" {
			t.Errorf("node[%d]: expected <p>, got <%s>", i, m.Nodes[i].Data)
		}
		if got := visible(m.Nodes[i]); got != w {
			t.Errorf("node[%d]: expected %q, got %q", i, w, got)
		}
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	m, err := p.Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Title != "empty" {
		t.Errorf("expected title %q, got %q", "empty", m.Title)
	}
	if len(m.Nodes) != 0 {
		t.Errorf("expected 0 nodes for empty input, got %d", len(m.Nodes))
	}
}

func TestTextParser_MultipleBlankLines(t *testing.T) {
	// Multiple consecutive blank lines should not produce empty paragraphs.
	input := "Para one.\r\n\r\n\n\nPara two."
	p := &TextParser{}
	m, err := p.Parse(strings.NewReader(input), "gaps.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Nodes) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(m.Nodes))
	}
	if got := visible(m.Nodes[0]); got != "Para one." {
		t.Errorf("expected carriage return stripped, got %q", got)
	}
}

func TestTextParser_WhitespaceOnlyLines(t *testing.T) {
	// Lines with only whitespace should be treated as blank.
	input := "Para one.\n   \nPara two."
	p := &TextParser{}
	m, err := p.Parse(strings.NewReader(input), "ws.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Nodes) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(m.Nodes))
	}
}
