package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/chartdocx/internal/convert"
	"github.com/dgallion1/chartdocx/internal/correct"
	"github.com/dgallion1/chartdocx/internal/doctree"
	"github.com/dgallion1/chartdocx/internal/docxout"
	"github.com/dgallion1/chartdocx/internal/parser"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedFormat = parser.ErrUnsupportedFormat
	ErrEmptyDocument     = errors.New("empty document")
)

// Request is one export.
type Request struct {
	Content  []byte
	Format   string // Parser name; empty uses Filename, then HTML
	Filename string
	Title    string // Overrides the title found in the content
	Correct  bool
	Fallback bool // Keep uncorrected text when the correction service fails
	Annotate bool // Record applied corrections as review comments
	Language string
	Template []byte // Patch into this .docx instead of writing a new one

	// OnPhase, when set, is told as the export moves between phases.
	OnPhase func(phase string)
}

// Result is a finished export.
type Result struct {
	Document    []byte `json:"-"`
	Title       string `json:"title"`
	Blocks      int    `json:"blocks"`
	Proofread   int    `json:"paragraphs_proofread"`
	Corrected   int    `json:"paragraphs_corrected"`
	Corrections int    `json:"corrections_applied"`
	Fallbacks   int    `json:"fallbacks"`
	Comments    int    `json:"comments"`
}

// ExporterOptions configures an Exporter.
type ExporterOptions struct {
	MaxConcurrentCorrect int
	Placeholder          string
	Author               string
}

// Exporter runs exports. It holds no per-export state; each Export gets its
// own numbering context and builder.
type Exporter struct {
	reconciler    *correct.Reconciler
	log           *slog.Logger
	maxConcurrent int
	placeholder   string
	author        string
}

// NewExporter returns an Exporter. A nil reconciler disables correction
// regardless of Request.Correct.
func NewExporter(reconciler *correct.Reconciler, log *slog.Logger, opts ExporterOptions) *Exporter {
	if log == nil {
		log = slog.Default()
	}
	if opts.MaxConcurrentCorrect <= 0 {
		opts.MaxConcurrentCorrect = 4
	}
	if opts.Placeholder == "" {
		opts.Placeholder = "{{content}}"
	}
	return &Exporter{
		reconciler:    reconciler,
		log:           log,
		maxConcurrent: opts.MaxConcurrentCorrect,
		placeholder:   opts.Placeholder,
		author:        opts.Author,
	}
}

// Blocks parses and converts req's content without correcting or
// serializing it.
func (e *Exporter) Blocks(req Request) ([]doctree.Block, error) {
	markup, err := e.parse(req)
	if err != nil {
		return nil, err
	}
	blocks, err := convert.NewConverter(convert.NewNumbering(0, 0), e.log).Convert(markup.Nodes)
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}
	return blocks, nil
}

// Export converts req's content into a .docx. It either returns a complete
// document or an error; nothing partial is produced.
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	log := e.log.With("export_id", uuid.NewString(), "format", req.Format, "filename", req.Filename)
	phase := func(p string) {
		if req.OnPhase != nil {
			req.OnPhase(p)
		}
	}

	phase("parsing")
	markup, err := e.parse(req)
	if err != nil {
		return nil, err
	}
	title := markup.Title
	if req.Title != "" {
		title = req.Title
	}

	var info docxout.TemplateInfo
	if req.Template != nil {
		info, err = docxout.InspectTemplate(req.Template, e.placeholder)
		if err != nil {
			return nil, fmt.Errorf("inspect template: %w", err)
		}
		if !info.HasPlaceholder {
			log.Warn("template has no placeholder, appending content", "placeholder", e.placeholder)
		}
	}

	phase("converting")
	numbering := convert.NewNumbering(info.MaxNumID, info.MaxAbstractNumID)
	blocks, err := convert.NewConverter(numbering, log).Convert(markup.Nodes)
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}
	if len(blocks) == 0 {
		return nil, ErrEmptyDocument
	}

	phase("assembling")
	a := newAssembly(e, req, log, info.MaxCommentID)
	doc, err := a.build(ctx, title, blocks, numbering.Defs())
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}

	phase("rendering")
	var buf bytes.Buffer
	if req.Template != nil {
		err = docxout.Patch(&buf, req.Template, e.placeholder, doc)
	} else {
		err = docxout.Write(&buf, doc)
	}
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	res := &Result{
		Document:    buf.Bytes(),
		Title:       title,
		Blocks:      len(blocks),
		Proofread:   int(a.proofread.Load()),
		Corrected:   int(a.corrected.Load()),
		Corrections: int(a.edits.Load()),
		Fallbacks:   int(a.fallbacks.Load()),
		Comments:    len(doc.Comments),
	}
	log.Info("export complete",
		"blocks", res.Blocks,
		"corrections", res.Corrections,
		"fallbacks", res.Fallbacks,
		"bytes", len(res.Document),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (e *Exporter) parse(req Request) (*parser.Markup, error) {
	if len(bytes.TrimSpace(req.Content)) == 0 {
		return nil, ErrEmptyDocument
	}
	var (
		p   parser.Parser
		err error
	)
	if req.Format == "" && req.Filename != "" {
		p, err = parser.ForFile(req.Filename)
	} else {
		p, err = parser.ForFormat(req.Format)
	}
	if err != nil {
		return nil, err
	}
	markup, err := p.Parse(bytes.NewReader(req.Content), req.Filename)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return markup, nil
}
