package parser

import (
	"errors"
	"strings"
	"testing"
)

func TestHTMLParser_Fragment(t *testing.T) {
	p := &HTMLParser{}
	m, err := p.Parse(strings.NewReader(`<p>Hello <b>world</b></p><ul><li>a</li></ul>`), "note.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Title != "note" {
		t.Errorf("expected title %q, got %q", "note", m.Title)
	}
	if len(m.Nodes) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(m.Nodes))
	}
	if m.Nodes[0].Data != "p" || m.Nodes[1].Data != "ul" {
		t.Errorf("expected p and ul, got %s and %s", m.Nodes[0].Data, m.Nodes[1].Data)
	}
	if m.Nodes[0].Parent != nil {
		t.Error("expected roots detached from body")
	}
}

func TestHTMLParser_FullPageTitle(t *testing.T) {
	p := &HTMLParser{}
	m, err := p.Parse(strings.NewReader(`<html><head><title>Progress note</title></head><body><p>x</p></body></html>`), "upload.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Title != "Progress note" {
		t.Errorf("expected title %q, got %q", "Progress note", m.Title)
	}
	if len(m.Nodes) != 1 {
		t.Errorf("expected 1 root, got %d", len(m.Nodes))
	}
}

func TestHTMLParser_NormalizesToNFC(t *testing.T) {
	p := &HTMLParser{}
	m, err := p.Parse(strings.NewReader("<p>cafe\u0301</p>"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := visible(m.Nodes[0]); got != "caf\u00e9" {
		t.Errorf("expected composed %q, got %q", "caf\u00e9", got)
	}
}

func TestCSVParser_Table(t *testing.T) {
	p := &CSVParser{}
	m, err := p.Parse(strings.NewReader("drug,dose\naspirin,81mg\nibuprofen\n"), "meds.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Title != "meds" {
		t.Errorf("expected title %q, got %q", "meds", m.Title)
	}
	if len(m.Nodes) != 1 || m.Nodes[0].Data != "table" {
		t.Fatalf("expected one table, got %d nodes", len(m.Nodes))
	}

	head := m.Nodes[0].FirstChild
	if head.Data != "thead" || head.FirstChild.FirstChild.Data != "th" {
		t.Errorf("expected header row of th cells")
	}
	body := head.NextSibling
	if body == nil || body.Data != "tbody" {
		t.Fatal("expected tbody")
	}
	rows := 0
	for r := body.FirstChild; r != nil; r = r.NextSibling {
		rows++
	}
	if rows != 2 {
		t.Errorf("expected 2 body rows, got %d", rows)
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"", "*parser.HTMLParser"},
		{"HTML", "*parser.HTMLParser"},
		{"md", "*parser.MarkdownParser"},
		{"text", "*parser.TextParser"},
		{"csv", "*parser.CSVParser"},
	}
	for _, tt := range tests {
		p, err := ForFormat(tt.format)
		if err != nil {
			t.Errorf("ForFormat(%q): unexpected error: %v", tt.format, err)
			continue
		}
		if got := typeName(p); got != tt.want {
			t.Errorf("ForFormat(%q): expected %s, got %s", tt.format, tt.want, got)
		}
	}

	if _, err := ForFormat("pdf"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestForFile(t *testing.T) {
	if _, err := ForFile("note.HTM"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ForFile("scan.pdf"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if IsSupportedExtension("scan.pdf") {
		t.Error("expected .pdf unsupported")
	}
}

func typeName(p Parser) string {
	switch p.(type) {
	case *HTMLParser:
		return "*parser.HTMLParser"
	case *MarkdownParser:
		return "*parser.MarkdownParser"
	case *TextParser:
		return "*parser.TextParser"
	case *CSVParser:
		return "*parser.CSVParser"
	}
	return "unknown"
}
