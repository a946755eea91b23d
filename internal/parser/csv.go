package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// CSVParser turns a CSV file into a single table whose first row is the
// header.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*Markup, error) {
	reader := csv.NewReader(norm.NFC.Reader(r))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	m := &Markup{Title: titleFromFilename(filename)}
	if len(records) == 0 {
		return m, nil
	}

	table := element(atom.Table)
	head := element(atom.Thead)
	head.AppendChild(csvRow(records[0], atom.Th))
	table.AppendChild(head)

	if len(records) > 1 {
		body := element(atom.Tbody)
		for _, rec := range records[1:] {
			body.AppendChild(csvRow(rec, atom.Td))
		}
		table.AppendChild(body)
	}

	m.Nodes = []*html.Node{table}
	return m, nil
}

func csvRow(fields []string, cell atom.Atom) *html.Node {
	tr := element(atom.Tr)
	for _, f := range fields {
		c := element(cell)
		if f != "" {
			c.AppendChild(&html.Node{Type: html.TextNode, Data: f})
		}
		tr.AppendChild(c)
	}
	return tr
}
