package docxout

import (
	"fmt"
	"strconv"

	"github.com/dgallion1/chartdocx/internal/doctree"
	"github.com/fumiama/go-docx"
)

// textWidth is the usable width of a Letter page with one inch margins,
// in twips.
const textWidth = 9360

type renderer struct {
	d      *docx.Docx
	numIDs map[string]int
}

func newRenderer(d *docx.Docx, defs []doctree.NumberingDef) *renderer {
	ids := make(map[string]int, len(defs))
	for _, def := range defs {
		ids[def.Reference] = def.NumID
	}
	return &renderer{d: d, numIDs: ids}
}

// render builds body items for elements without leaving them in the body.
// go-docx only appends, so items are cut back off the end.
func (r *renderer) render(elements []doctree.Element) ([]interface{}, error) {
	body := &r.d.Document.Body
	start := len(body.Items)
	for _, el := range elements {
		var err error
		switch e := el.(type) {
		case *doctree.Para:
			err = r.para(r.d.AddParagraph(), e)
		case *doctree.Grid:
			err = r.grid(e)
		default:
			err = fmt.Errorf("unsupported element %T", el)
		}
		if err != nil {
			body.Items = body.Items[:start]
			return nil, err
		}
	}
	items := make([]interface{}, len(body.Items)-start)
	copy(items, body.Items[start:])
	body.Items = body.Items[:start]
	return items, nil
}

func (r *renderer) para(p *docx.Paragraph, para *doctree.Para) error {
	switch {
	case para.Style != "":
		p.Style(para.Style)
	case para.Heading > 0:
		p.Style(headingStyle(min(para.Heading, 6)))
	case para.Numbering != "":
		p.Style(StyleListParagraph)
	}
	if para.Numbering != "" {
		numID, ok := r.numIDs[para.Numbering]
		if !ok {
			return fmt.Errorf("unknown numbering reference %q", para.Numbering)
		}
		level := min(max(para.Level, 0), maxLevel)
		p.NumPr(strconv.Itoa(numID), strconv.Itoa(level))
	}
	for _, run := range para.Runs {
		r.run(p, run)
	}
	return nil
}

func (r *renderer) run(p *docx.Paragraph, run doctree.Run) {
	for _, id := range run.CommentIDs {
		p.Children = append(p.Children, &commentRangeStart{ID: strconv.Itoa(id)})
	}

	dr := p.AddText(run.Text)
	for _, c := range dr.Children {
		if t, ok := c.(*docx.Text); ok {
			t.XMLSpace = "preserve"
		}
	}
	f := run.Formatting
	if f.Bold {
		dr.Bold()
	}
	if f.Italic {
		dr.Italic()
	}
	if f.Underline != nil {
		typ := f.Underline.Type
		if typ == "" {
			typ = "single"
		}
		dr.Underline(typ)
	}
	if f.Color != "" {
		dr.Color(f.Color)
	}

	for _, id := range run.CommentIDs {
		p.Children = append(p.Children, &commentRangeEnd{ID: strconv.Itoa(id)}, referenceRun(id))
	}
}

func (r *renderer) grid(g *doctree.Grid) error {
	cols := 0
	for _, row := range g.Rows {
		cols = max(cols, len(row))
	}
	if cols == 0 {
		return nil
	}

	t := r.d.AddTable(len(g.Rows), cols, 0, nil)
	for i := 0; i < cols; i++ {
		t.TableGrid.GridCols = append(t.TableGrid.GridCols, &docx.WGridCol{W: int64(textWidth / cols)})
	}
	for i, row := range g.Rows {
		for j, cell := range t.TableRows[i].TableCells {
			if j >= len(row) || len(row[j]) == 0 {
				cell.AddParagraph()
				continue
			}
			for _, para := range row[j] {
				if err := r.para(cell.AddParagraph(), para); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// splice inserts items into the body at index, or before the trailing
// section properties when index is negative.
func splice(body *docx.Body, index int, items []interface{}) {
	if index < 0 {
		index = len(body.Items)
		if index > 0 {
			if _, ok := body.Items[index-1].(*docx.SectPr); ok {
				index--
			}
		}
	}
	out := make([]interface{}, 0, len(body.Items)+len(items))
	out = append(out, body.Items[:index]...)
	out = append(out, items...)
	out = append(out, body.Items[index:]...)
	body.Items = out
}
