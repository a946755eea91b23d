package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// ErrUnsupportedFormat is returned for formats with no parser.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Markup is a parsed note: the block-level roots the converter walks, in
// source order.
type Markup struct {
	Title string
	Nodes []*html.Node
}

// Parser converts raw note content into a markup tree.
type Parser interface {
	Parse(r io.Reader, filename string) (*Markup, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
}

// Formats lists the names accepted by ForFormat.
var Formats = []string{"html", "markdown", "text", "csv"}

// ForFormat returns the parser for a named format. An empty name means HTML,
// the editor's native output.
func ForFormat(format string) (Parser, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "html", "htm":
		return &HTMLParser{}, nil
	case "markdown", "md":
		return &MarkdownParser{}, nil
	case "text", "txt", "plain":
		return &TextParser{}, nil
	case "csv":
		return &CSVParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	default:
		return nil, fmt.Errorf("%w: file extension %s", ErrUnsupportedFormat, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
