// Package docxout serializes assembled documents to .docx, either as a new
// package or by patching converted content into a template.
package docxout

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/dgallion1/chartdocx/internal/doctree"
	"github.com/fumiama/go-docx"
)

// ErrInvalidTemplate is returned when a template is not a usable .docx.
var ErrInvalidTemplate = errors.New("invalid template")

const (
	relStyles    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	relTheme     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme"
	relFontTable = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/fontTable"

	nsCoreProps = "http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
	nsDC        = "http://purl.org/dc/elements/1.1/"
	nsDCTerms   = "http://purl.org/dc/terms/"
)

// skeleton is an empty Letter-sized body with one inch margins.
const skeleton = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:body><w:sectPr><w:pgSz w:w="12240" w:h="15840"/><w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/></w:sectPr></w:body></w:document>`

// Parts copied from go-docx's bundled default template.
var baseParts = []string{
	"_rels/.rels",
	"[Content_Types].xml",
	"docProps/app.xml",
	"word/theme/theme1.xml",
	"word/fontTable.xml",
}

// Write serializes doc as a new .docx package.
func Write(w io.Writer, doc *doctree.Document) error {
	p, err := newPackage(doc)
	if err != nil {
		return fmt.Errorf("build package: %w", err)
	}
	if err := p.addDefinitions(doc); err != nil {
		return err
	}
	d, err := p.load()
	if err != nil {
		return fmt.Errorf("load package: %w", err)
	}
	items, err := newRenderer(d, doc.Numbering).render(doc.Elements())
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	splice(&d.Document.Body, -1, items)

	if _, err := d.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

// Patch writes template with doc's content in place of the first paragraph
// whose text contains placeholder. Without a match the content goes at the
// end of the body. Numbering definitions and comments are merged into the
// template's own parts.
func Patch(w io.Writer, template []byte, placeholder string, doc *doctree.Document) error {
	p, err := readPackage(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if _, ok := p[partDocument]; !ok {
		return fmt.Errorf("%w: missing %s", ErrInvalidTemplate, partDocument)
	}
	if err := p.addDefinitions(doc); err != nil {
		return err
	}
	d, err := p.load()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	items, err := newRenderer(d, doc.Numbering).render(doc.Elements())
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	body := &d.Document.Body
	if i := placeholderIndex(body, placeholder); i >= 0 {
		body.Items = append(body.Items[:i], body.Items[i+1:]...)
		splice(body, i, items)
	} else {
		splice(body, -1, items)
	}

	if _, err := d.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

func placeholderIndex(body *docx.Body, placeholder string) int {
	if placeholder == "" {
		return -1
	}
	for i, item := range body.Items {
		if p, ok := item.(*docx.Paragraph); ok && strings.Contains(p.String(), placeholder) {
			return i
		}
	}
	return -1
}

func newPackage(doc *doctree.Document) (pkg, error) {
	p := make(pkg, len(baseParts)+4)
	for _, name := range baseParts {
		data, err := fs.ReadFile(docx.TemplateXMLFS, "xml/default/"+name)
		if err != nil {
			return nil, err
		}
		p[name] = data
	}
	core, err := coreXML(doc.Title, doc.Author)
	if err != nil {
		return nil, err
	}
	p[partCore] = core
	p[partStyles] = stylesXML()
	p[partDocument] = []byte(skeleton)

	for _, rel := range []struct{ typ, target string }{
		{relStyles, "styles.xml"},
		{relTheme, "theme/theme1.xml"},
		{relFontTable, "fontTable.xml"},
	} {
		if err := p.ensureRelationship(rel.typ, rel.target); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// addDefinitions writes numbering definitions and comments into the
// package, merging with parts that already exist.
func (p pkg) addDefinitions(doc *doctree.Document) error {
	if len(doc.Numbering) > 0 {
		name := p.relatedPart(relNumbering, partNumbering)
		var (
			data []byte
			err  error
		)
		if existing, ok := p[name]; ok {
			data, err = mergeNumbering(existing, doc.Numbering)
		} else {
			data, err = numberingXML(doc.Numbering)
		}
		if err != nil {
			return fmt.Errorf("numbering: %w", err)
		}
		p[name] = data
		if err := p.ensureRelationship(relNumbering, strings.TrimPrefix(name, "word/")); err != nil {
			return err
		}
		if err := p.ensureOverride(name, ctNumbering); err != nil {
			return err
		}
	}

	if len(doc.Comments) > 0 {
		name := p.relatedPart(relComments, partComments)
		var (
			data []byte
			err  error
		)
		if existing, ok := p[name]; ok {
			data, err = mergeComments(existing, doc.Comments)
		} else {
			data, err = commentsXML(doc.Comments)
		}
		if err != nil {
			return fmt.Errorf("comments: %w", err)
		}
		p[name] = data
		if err := p.ensureRelationship(relComments, strings.TrimPrefix(name, "word/")); err != nil {
			return err
		}
		if err := p.ensureOverride(name, ctComments); err != nil {
			return err
		}
	}
	return nil
}

// relatedPart resolves the part a document relationship of relType points
// at, or fallback when there is none.
func (p pkg) relatedPart(relType, fallback string) string {
	var rels docx.Relationships
	if err := xml.Unmarshal(p[partDocumentRels], &rels); err != nil {
		return fallback
	}
	for _, r := range rels.Relationship {
		if r.Type != relType || r.TargetMode != "" {
			continue
		}
		if strings.HasPrefix(r.Target, "/") {
			return strings.TrimPrefix(path.Clean(r.Target), "/")
		}
		return path.Join("word", r.Target)
	}
	return fallback
}

type coreProperties struct {
	XMLName xml.Name `xml:"cp:coreProperties"`
	CP      string   `xml:"xmlns:cp,attr"`
	DC      string   `xml:"xmlns:dc,attr"`
	DCTerms string   `xml:"xmlns:dcterms,attr"`
	Title   string   `xml:"dc:title,omitempty"`
	Creator string   `xml:"dc:creator,omitempty"`
}

func coreXML(title, author string) ([]byte, error) {
	return marshalPart(coreProperties{
		CP:      nsCoreProps,
		DC:      nsDC,
		DCTerms: nsDCTerms,
		Title:   title,
		Creator: author,
	})
}
