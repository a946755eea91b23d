package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/dgallion1/chartdocx/internal/correct"
	"github.com/dgallion1/chartdocx/internal/deferred"
	"github.com/dgallion1/chartdocx/internal/doctree"
	"github.com/dgallion1/chartdocx/internal/docxout"
)

// Element types registered with the builder.
const (
	typeDocument  = "document"
	typeSection   = "section"
	typeParagraph = "paragraph"
	typeRun       = "run"
	typeTable     = "table"
	typeRow       = "row"
	typeCell      = "cell"
)

// assembly turns one export's blocks into a document. Proofread paragraphs
// get their runs from a pending correction call; everything resolves
// together in BuildDocument.
type assembly struct {
	e       *Exporter
	req     Request
	log     *slog.Logger
	builder *deferred.Builder[doctree.Comment]
	sem     chan struct{}

	nextComment atomic.Int64
	proofread   atomic.Int64
	corrected   atomic.Int64
	edits       atomic.Int64
	fallbacks   atomic.Int64
}

func newAssembly(e *Exporter, req Request, log *slog.Logger, commentBase int) *assembly {
	a := &assembly{
		e:       e,
		req:     req,
		log:     log,
		builder: deferred.NewBuilder[doctree.Comment](),
		sem:     make(chan struct{}, e.maxConcurrent),
	}
	a.nextComment.Store(int64(commentBase))

	a.builder.Register(typeDocument, newDocument)
	a.builder.Register(typeSection, newSection)
	a.builder.Register(typeParagraph, newParagraph)
	a.builder.Register(typeRun, newRun)
	a.builder.Register(typeTable, newTable)
	a.builder.Register(typeRow, newRow)
	a.builder.Register(typeCell, newCell)
	return a
}

func (a *assembly) correcting() bool {
	return a.req.Correct && a.e.reconciler != nil
}

func (a *assembly) build(ctx context.Context, title string, blocks []doctree.Block, defs []doctree.NumberingDef) (*doctree.Document, error) {
	elements := make([]deferred.Field, 0, len(blocks)+1)
	elements = append(elements, deferred.Nest(
		deferred.Element(typeParagraph, deferred.Config(deferred.Props{
			"style": deferred.Lit(docxout.StyleTitle),
			"runs":  deferred.Items(deferred.Nest(deferred.Element(typeRun, deferred.Literal(title)))),
		})).When(deferred.Lit(title != "")),
	))
	for _, b := range blocks {
		elements = append(elements, deferred.Nest(a.block(b)))
	}

	spec := deferred.Element(typeDocument, deferred.Config(deferred.Props{
		"title":     deferred.Lit(title),
		"author":    deferred.Lit(a.e.author),
		"numbering": deferred.Lit(defs),
		"sections": deferred.Items(deferred.Nest(
			deferred.Element(typeSection, deferred.Config(deferred.Props{
				"elements": deferred.Items(elements...),
			})),
		)),
	}))

	out, err := a.builder.BuildDocument(ctx, spec, attachComments)
	if err != nil {
		return nil, err
	}
	doc, ok := out.(*doctree.Document)
	if !ok {
		return nil, fmt.Errorf("document resolved to %T", out)
	}
	return doc, nil
}

func (a *assembly) block(b doctree.Block) *deferred.Spec {
	switch x := b.(type) {
	case *doctree.Paragraph:
		runs := a.runs(x.Runs, nil)
		if x.Proofread && a.correcting() {
			runs = a.correctedRuns(x)
		}
		return deferred.Element(typeParagraph, deferred.Config(deferred.Props{
			"heading": deferred.Lit(x.Heading),
			"runs":    runs,
		}))
	case *doctree.ListParagraph:
		return deferred.Element(typeParagraph, deferred.Config(deferred.Props{
			"numbering": deferred.Lit(x.Numbering),
			"level":     deferred.Lit(x.Level),
			"runs":      a.runs(x.Runs, nil),
		}))
	case *doctree.Table:
		rows := make([]deferred.Field, 0, len(x.Rows))
		for _, row := range x.Rows {
			cells := make([]deferred.Field, 0, len(row))
			for _, cell := range row {
				paras := make([]deferred.Field, 0, len(cell.Paragraphs))
				for _, p := range cell.Paragraphs {
					paras = append(paras, deferred.Nest(a.block(p)))
				}
				cells = append(cells, deferred.Nest(deferred.Element(typeCell, deferred.Config(deferred.Props{
					"paragraphs": deferred.Items(paras...),
				}))))
			}
			rows = append(rows, deferred.Nest(deferred.Element(typeRow, deferred.Config(deferred.Props{
				"cells": deferred.Items(cells...),
			}))))
		}
		return deferred.Element(typeTable, deferred.Config(deferred.Props{
			"rows": deferred.Items(rows...),
		}))
	}
	// Unregistered, so resolution fails with deferred.ErrUnknownType.
	return deferred.Element(fmt.Sprintf("%T", b), deferred.Literal(""))
}

// runs describes segs as run elements. Plain segments use the bare string
// form.
func (a *assembly) runs(segs []doctree.Segment, comments map[int][]int) deferred.Field {
	return deferred.Items(runFields(segs, comments)...)
}

func runFields(segs []doctree.Segment, comments map[int][]int) []deferred.Field {
	out := make([]deferred.Field, 0, len(segs))
	for i, s := range segs {
		ids := comments[i]
		if s.Formatting == (doctree.Formatting{}) && len(ids) == 0 {
			out = append(out, deferred.Nest(deferred.Element(typeRun, deferred.Literal(s.Content))))
			continue
		}
		out = append(out, deferred.Nest(deferred.Element(typeRun, deferred.Config(deferred.Props{
			"text":       deferred.Lit(s.Content),
			"formatting": deferred.Lit(s.Formatting),
			"comments":   deferred.Lit(ids),
		}))))
	}
	return out
}

// correctedRuns reconciles p's segments as one unit once the builder asks
// for them, bounded by the export's correction semaphore.
func (a *assembly) correctedRuns(p *doctree.Paragraph) deferred.Field {
	a.proofread.Add(1)
	return deferred.Async(func(ctx context.Context) (any, error) {
		select {
		case a.sem <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		defer func() { <-a.sem }()

		res, err := a.e.reconciler.Reconcile(ctx, p.Runs, a.req.Language)
		if err != nil {
			if !a.req.Fallback || ctx.Err() != nil {
				return nil, err
			}
			a.fallbacks.Add(1)
			a.log.Warn("correction failed, keeping original text", "error", err)
			return runFields(p.Runs, nil), nil
		}
		if len(res.Edits) == 0 {
			return runFields(res.Segments, nil), nil
		}

		a.corrected.Add(1)
		a.edits.Add(int64(len(res.Edits)))
		var comments map[int][]int
		if a.req.Annotate {
			comments = make(map[int][]int, len(res.Edits))
			for _, ed := range res.Edits {
				id := int(a.nextComment.Add(1))
				comments[ed.Segment] = append(comments[ed.Segment], id)
				a.builder.Annotate(doctree.Comment{
					ID:     id,
					Author: a.e.author,
					Text:   annotation(ed),
				})
			}
		}
		return runFields(res.Segments, comments), nil
	})
}

func annotation(ed correct.Edit) string {
	return fmt.Sprintf("%s: %q -> %q", ed.Rule, ed.Original, ed.Replacement)
}

func attachComments(doc any, comments []doctree.Comment) (any, error) {
	d, ok := doc.(*doctree.Document)
	if !ok {
		return nil, fmt.Errorf("document resolved to %T", doc)
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })
	d.Comments = comments
	return d, nil
}

func newDocument(v deferred.Values) (any, error) {
	doc := &doctree.Document{
		Title:  v.String("title"),
		Author: v.String("author"),
	}
	if defs, ok := v["numbering"].([]doctree.NumberingDef); ok {
		doc.Numbering = defs
	}
	for _, s := range v.List("sections") {
		sec, ok := s.(doctree.Section)
		if !ok {
			return nil, fmt.Errorf("sections: unexpected %T", s)
		}
		doc.Sections = append(doc.Sections, sec)
	}
	return doc, nil
}

func newSection(v deferred.Values) (any, error) {
	var sec doctree.Section
	for _, el := range v.List("elements") {
		e, ok := el.(doctree.Element)
		if !ok {
			return nil, fmt.Errorf("elements: unexpected %T", el)
		}
		sec.Elements = append(sec.Elements, e)
	}
	return sec, nil
}

func newParagraph(v deferred.Values) (any, error) {
	p := &doctree.Para{
		Style:     v.String("style"),
		Heading:   v.Int("heading"),
		Numbering: v.String("numbering"),
		Level:     v.Int("level"),
	}
	for _, r := range v.List("runs") {
		run, ok := r.(doctree.Run)
		if !ok {
			return nil, fmt.Errorf("runs: unexpected %T", r)
		}
		p.Runs = append(p.Runs, run)
	}
	return p, nil
}

// newRun accepts both the bare string form and a config with formatting
// and comment ids.
func newRun(v deferred.Values) (any, error) {
	r := doctree.Run{Text: v.String("text")}
	if f, ok := v["formatting"].(doctree.Formatting); ok {
		r.Formatting = f
	}
	if ids, ok := v["comments"].([]int); ok {
		r.CommentIDs = ids
	}
	return r, nil
}

func newTable(v deferred.Values) (any, error) {
	g := &doctree.Grid{}
	for _, r := range v.List("rows") {
		row, ok := r.([][]*doctree.Para)
		if !ok {
			return nil, fmt.Errorf("rows: unexpected %T", r)
		}
		g.Rows = append(g.Rows, row)
	}
	return g, nil
}

func newRow(v deferred.Values) (any, error) {
	var row [][]*doctree.Para
	for _, c := range v.List("cells") {
		cell, ok := c.([]*doctree.Para)
		if !ok {
			return nil, fmt.Errorf("cells: unexpected %T", c)
		}
		row = append(row, cell)
	}
	return row, nil
}

func newCell(v deferred.Values) (any, error) {
	var cell []*doctree.Para
	for _, p := range v.List("paragraphs") {
		para, ok := p.(*doctree.Para)
		if !ok {
			return nil, fmt.Errorf("paragraphs: unexpected %T", p)
		}
		cell = append(cell, para)
	}
	return cell, nil
}
