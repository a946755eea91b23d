package docxout

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"

	"github.com/fumiama/go-docx"
)

const (
	partDocument     = "word/document.xml"
	partDocumentRels = "word/_rels/document.xml.rels"
	partNumbering    = "word/numbering.xml"
	partComments     = "word/comments.xml"
	partStyles       = "word/styles.xml"
	partContentTypes = "[Content_Types].xml"
	partCore         = "docProps/core.xml"

	relNumbering = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering"
	relComments  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"

	ctNumbering = "application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"
	ctComments  = "application/vnd.openxmlformats-officedocument.wordprocessingml.comments+xml"

	nsContentTypes = "http://schemas.openxmlformats.org/package/2006/content-types"
)

// pkg is an OOXML package held in memory, part name to bytes.
type pkg map[string][]byte

func readPackage(r io.ReaderAt, size int64) (pkg, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	p := make(pkg, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		p[f.Name] = data
	}
	return p, nil
}

// zipBytes writes the package with parts in name order so output is stable.
func (p pkg) zipBytes() ([]byte, error) {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(p[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// load hands the package to go-docx, which keeps every part it does not
// model and writes it back unchanged.
func (p pkg) load() (*docx.Docx, error) {
	data, err := p.zipBytes()
	if err != nil {
		return nil, fmt.Errorf("zip package: %w", err)
	}
	return docx.Parse(bytes.NewReader(data), int64(len(data)))
}

// ensureRelationship adds a document relationship of relType unless one
// already exists, allocating the next free rId.
func (p pkg) ensureRelationship(relType, target string) error {
	var rels docx.Relationships
	if data, ok := p[partDocumentRels]; ok {
		if err := xml.Unmarshal(data, &rels); err != nil {
			return fmt.Errorf("parse relationships: %w", err)
		}
	}
	rels.Xmlns = docx.XMLNS_REL

	next := 0
	for _, r := range rels.Relationship {
		if r.Type == relType {
			return nil
		}
		var n int
		if _, err := fmt.Sscanf(r.ID, "rId%d", &n); err == nil && n > next {
			next = n
		}
	}
	rels.Relationship = append(rels.Relationship, docx.Relationship{
		ID:     fmt.Sprintf("rId%d", next+1),
		Type:   relType,
		Target: target,
	})

	data, err := marshalPart(struct {
		XMLName xml.Name `xml:"Relationships"`
		docx.Relationships
	}{Relationships: rels})
	if err != nil {
		return err
	}
	p[partDocumentRels] = data
	return nil
}

type contentTypes struct {
	XMLName   xml.Name     `xml:"Types"`
	Xmlns     string       `xml:"xmlns,attr"`
	Defaults  []ctDefault  `xml:"Default"`
	Overrides []ctOverride `xml:"Override"`
}

type ctDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type ctOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// ensureOverride registers a content type for part.
func (p pkg) ensureOverride(part, contentType string) error {
	var ct contentTypes
	if data, ok := p[partContentTypes]; ok {
		if err := xml.Unmarshal(data, &ct); err != nil {
			return fmt.Errorf("parse content types: %w", err)
		}
	}
	ct.XMLName = xml.Name{Local: "Types"}
	ct.Xmlns = nsContentTypes

	name := "/" + part
	for _, o := range ct.Overrides {
		if o.PartName == name {
			return nil
		}
	}
	ct.Overrides = append(ct.Overrides, ctOverride{PartName: name, ContentType: contentType})

	data, err := marshalPart(ct)
	if err != nil {
		return err
	}
	p[partContentTypes] = data
	return nil
}

func marshalPart(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("marshal part: %w", err)
	}
	return buf.Bytes(), nil
}
