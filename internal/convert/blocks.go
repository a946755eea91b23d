package convert

import (
	"log/slog"
	"strings"

	"github.com/dgallion1/chartdocx/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Converter turns block-level markup into BlockNodes. One Converter serves
// one export; it shares that export's Numbering.
type Converter struct {
	numbering *Numbering
	log       *slog.Logger
	blocks    []doctree.Block
}

func NewConverter(numbering *Numbering, log *slog.Logger) *Converter {
	if numbering == nil {
		numbering = NewNumbering(0, 0)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Converter{numbering: numbering, log: log}
}

// ToBlocks converts a single markup root.
func (c *Converter) ToBlocks(root *html.Node) ([]doctree.Block, error) {
	if root == nil {
		return nil, &InvalidMarkupError{Tag: "root", Reason: "nil markup tree"}
	}
	return c.Convert([]*html.Node{root})
}

// Convert converts sibling roots, keeping source order.
func (c *Converter) Convert(nodes []*html.Node) ([]doctree.Block, error) {
	c.blocks = nil
	if err := c.sequence(nodes, doctree.Formatting{}, 0, false); err != nil {
		return nil, err
	}
	out := c.blocks
	c.blocks = nil
	return out, nil
}

// item is a node paired with the formatting inherited from flattened
// containers above it.
type item struct {
	node *html.Node
	fmt  doctree.Formatting
}

// sequence emits paragraphs for each contiguous run of inline items and a
// block for every block-level item. An explicit paragraph with no nested
// blocks always yields exactly one Paragraph, even when empty.
func (c *Converter) sequence(nodes []*html.Node, f doctree.Formatting, heading int, explicit bool) error {
	items := expand(nil, nodes, f)

	if explicit && !containsBlock(items) {
		c.emit(&doctree.Paragraph{Heading: heading, Runs: extractItems(items), Proofread: true})
		return nil
	}

	var run []item
	flush := func() {
		if len(run) == 0 {
			return
		}
		segs := extractItems(run)
		run = nil
		if strings.TrimSpace(doctree.Text(segs)) == "" {
			return
		}
		c.emit(&doctree.Paragraph{Heading: heading, Runs: segs, Proofread: true})
	}

	for _, it := range items {
		if !isBlock(it.node) {
			run = append(run, it)
			continue
		}
		flush()
		if err := c.block(it.node, it.fmt); err != nil {
			return err
		}
	}
	flush()
	return nil
}

func (c *Converter) block(n *html.Node, f doctree.Formatting) error {
	switch n.DataAtom {
	case atom.P:
		return c.sequence(children(n), Derive(f, n), 0, true)
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return c.sequence(children(n), Derive(f, n), headingLevel(n), true)
	case atom.Table:
		return c.table(n, Derive(f, n))
	case atom.Ul, atom.Ol:
		return c.list(n, Derive(f, n))
	}
	return nil
}

func (c *Converter) emit(b doctree.Block) {
	c.blocks = append(c.blocks, b)
}

func (c *Converter) table(n *html.Node, f doctree.Formatting) error {
	t := &doctree.Table{}
	for _, tr := range tableRows(n) {
		rf := Derive(f, tr)
		var cells []doctree.Cell
		for cell := tr.FirstChild; cell != nil; cell = cell.NextSibling {
			if cell.Type != html.ElementNode || (cell.DataAtom != atom.Td && cell.DataAtom != atom.Th) {
				continue
			}
			cells = append(cells, doctree.Cell{Paragraphs: []*doctree.Paragraph{{
				Runs: flatten(children(cell), Derive(rf, cell)),
			}}})
		}
		if len(cells) == 0 {
			c.log.Warn("skipping table row without cells")
			continue
		}
		t.Rows = append(t.Rows, cells)
	}

	if caption := findChild(n, atom.Caption); caption != nil {
		if segs := flatten(children(caption), Derive(f, caption)); strings.TrimSpace(doctree.Text(segs)) != "" {
			c.emit(&doctree.Paragraph{Runs: segs})
		}
	}
	if len(t.Rows) == 0 {
		return &InvalidMarkupError{Tag: "table", Reason: "no rows with cells"}
	}
	c.emit(t)
	return nil
}

func (c *Converter) list(n *html.Node, f doctree.Formatting) error {
	def, err := c.numbering.Allocate(n.DataAtom == atom.Ol)
	if err != nil {
		return err
	}
	c.listItems(n, f, def, 0)
	return nil
}

// listItems emits one ListParagraph per li and follows each with its nested
// lists one level deeper, depth first.
func (c *Converter) listItems(list *html.Node, f doctree.Formatting, def *doctree.NumberingDef, level int) {
	ordered := list.DataAtom == atom.Ol
	c.numbering.mark(def, level, ordered)

	for li := list.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode {
			continue
		}
		if li.DataAtom == atom.Ul || li.DataAtom == atom.Ol {
			c.listItems(li, Derive(f, li), def, level+1)
			continue
		}
		if li.DataAtom != atom.Li {
			continue
		}

		lf := Derive(f, li)
		inline, nested := splitItem(nil, nil, children(li), lf)

		c.emit(&doctree.ListParagraph{
			Runs:      flattenItems(inline),
			Level:     level,
			Ordered:   ordered,
			Numbering: def.Reference,
		})
		for _, sub := range nested {
			c.listItems(sub.node, Derive(sub.fmt, sub.node), def, level+1)
		}
	}
}

// splitItem separates a list item's own content from the lists nested in
// it, looking through containers that wrap a nested list. A zero item
// marks a line boundary left by an unwrapped block container.
func splitItem(inline, nested []item, nodes []*html.Node, f doctree.Formatting) ([]item, []item) {
	for _, n := range nodes {
		switch {
		case n.Type != html.ElementNode || skipped(n) || IsPlaceholder(n):
			inline = append(inline, item{node: n, fmt: f})
		case n.DataAtom == atom.Ul || n.DataAtom == atom.Ol:
			nested = append(nested, item{node: n, fmt: f})
		case n.DataAtom != atom.Table && hasList(n):
			boundary := isBlock(n) || isFlatBoundary(n)
			if boundary {
				inline = append(inline, item{})
			}
			inline, nested = splitItem(inline, nested, children(n), Derive(f, n))
			if boundary {
				inline = append(inline, item{})
			}
		default:
			inline = append(inline, item{node: n, fmt: f})
		}
	}
	return inline, nested
}

// hasList reports whether a list sits somewhere below n outside any table.
func hasList(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || skipped(c) || IsPlaceholder(c) || c.DataAtom == atom.Table {
			continue
		}
		if c.DataAtom == atom.Ul || c.DataAtom == atom.Ol || hasList(c) {
			return true
		}
	}
	return false
}

// expand replaces transparent containers with their children, carrying the
// container's formatting down.
func expand(out []item, nodes []*html.Node, f doctree.Formatting) []item {
	for _, n := range nodes {
		switch {
		case n.Type == html.CommentNode || n.Type == html.DoctypeNode:
		case n.Type == html.ElementNode && skipped(n):
		case isContainer(n):
			out = expand(out, children(n), Derive(f, n))
		default:
			out = append(out, item{node: n, fmt: f})
		}
	}
	return out
}

func extractItems(items []item) []doctree.Segment {
	segs := make([]doctree.Segment, 0, len(items))
	for _, it := range items {
		segs = extractNode(segs, it.node, it.fmt)
	}
	return trimTrailingSpace(segs)
}

func containsBlock(items []item) bool {
	for _, it := range items {
		if isBlock(it.node) {
			return true
		}
	}
	return false
}

// flatten collapses arbitrary markup into one paragraph's segments. Block
// boundaries become a single newline.
func flatten(nodes []*html.Node, f doctree.Formatting) []doctree.Segment {
	fl := flattener{segs: make([]doctree.Segment, 0, len(nodes))}
	for _, n := range nodes {
		fl.node(n, f)
	}
	return trimTrailingSpace(fl.segs)
}

// flattenItems is flatten over items that carry their own formatting.
func flattenItems(items []item) []doctree.Segment {
	fl := flattener{segs: make([]doctree.Segment, 0, len(items))}
	for _, it := range items {
		if it.node == nil {
			fl.boundary()
			continue
		}
		fl.node(it.node, it.fmt)
	}
	return trimTrailingSpace(fl.segs)
}

type flattener struct {
	segs    []doctree.Segment
	pending bool
}

func (fl *flattener) node(n *html.Node, f doctree.Formatting) {
	if n.Type == html.ElementNode && !skipped(n) && !IsPlaceholder(n) && (isBlock(n) || isFlatBoundary(n)) {
		fl.boundary()
		cf := Derive(f, n)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			fl.node(c, cf)
		}
		fl.pending = len(fl.segs) > 0
		return
	}
	if n.Type == html.ElementNode && isContainer(n) {
		cf := Derive(f, n)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			fl.node(c, cf)
		}
		return
	}

	base := fl.segs
	if fl.pending && len(base) > 0 {
		base = append(trimTrailingSpace(append([]doctree.Segment(nil), base...)),
			doctree.Segment{Content: "\n", Formatting: f})
	}
	out := extractNode(base, n, f)
	if len(out) == len(base) {
		return
	}
	fl.pending = false
	fl.segs = out
}

func (fl *flattener) boundary() {
	if len(fl.segs) > 0 && !fl.pending {
		fl.pending = true
	}
}

func isBlock(n *html.Node) bool {
	if n.Type != html.ElementNode || IsPlaceholder(n) {
		return false
	}
	switch n.DataAtom {
	case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Table, atom.Ul, atom.Ol:
		return true
	}
	return false
}

// isFlatBoundary marks elements that separate lines when flattened into a
// single cell or list item paragraph.
func isFlatBoundary(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Li, atom.Tr, atom.Div, atom.Blockquote, atom.Pre:
		return true
	}
	return false
}

var inlineAtoms = map[atom.Atom]bool{
	atom.A: true, atom.Abbr: true, atom.B: true, atom.Bdi: true, atom.Bdo: true,
	atom.Br: true, atom.Cite: true, atom.Code: true, atom.Data: true, atom.Del: true,
	atom.Dfn: true, atom.Em: true, atom.Font: true, atom.I: true, atom.Ins: true,
	atom.Kbd: true, atom.Label: true, atom.Mark: true, atom.Q: true, atom.S: true,
	atom.Samp: true, atom.Small: true, atom.Span: true, atom.Strike: true,
	atom.Strong: true, atom.Sub: true, atom.Sup: true, atom.Time: true, atom.U: true,
	atom.Var: true,
}

// isContainer reports elements that introduce no block boundary of their own.
func isContainer(n *html.Node) bool {
	if n.Type == html.DocumentNode {
		return true
	}
	if n.Type != html.ElementNode || IsPlaceholder(n) || isBlock(n) {
		return false
	}
	return !inlineAtoms[n.DataAtom]
}

func tableRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	for c := table.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Tr:
			rows = append(rows, c)
		case atom.Thead, atom.Tbody, atom.Tfoot:
			for r := c.FirstChild; r != nil; r = r.NextSibling {
				if r.Type == html.ElementNode && r.DataAtom == atom.Tr {
					rows = append(rows, r)
				}
			}
		}
	}
	return rows
}

func findChild(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}

func headingLevel(n *html.Node) int {
	if len(n.Data) == 2 && n.Data[0] == 'h' && n.Data[1] >= '1' && n.Data[1] <= '6' {
		return int(n.Data[1] - '0')
	}
	return 0
}
