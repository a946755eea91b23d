package doctree

import "strings"

// Underline describes an underline applied to a run.
type Underline struct {
	Type  string `json:"type"`            // OOXML underline value, e.g. "single"
	Color string `json:"color,omitempty"` // Upper-case hex without '#'
}

// Formatting is the resolved text styling of a segment. The zero value is
// plain text.
type Formatting struct {
	Bold      bool       `json:"bold,omitempty"`
	Italic    bool       `json:"italic,omitempty"`
	Underline *Underline `json:"underline,omitempty"`
	Color     string     `json:"color,omitempty"` // Upper-case hex without '#'
}

// Segment is a run of text sharing one Formatting, in document order.
type Segment struct {
	Content    string     `json:"content"`
	Formatting Formatting `json:"formatting"`
}

// Text concatenates the content of segs.
func Text(segs []Segment) string {
	var buf strings.Builder
	for _, s := range segs {
		buf.WriteString(s.Content)
	}
	return buf.String()
}

// CloneSegments returns a copy of segs that shares no Underline pointers.
func CloneSegments(segs []Segment) []Segment {
	out := make([]Segment, len(segs))
	for i, s := range segs {
		out[i] = s
		if s.Formatting.Underline != nil {
			u := *s.Formatting.Underline
			out[i].Formatting.Underline = &u
		}
	}
	return out
}

// BlockKind names the variant of a Block.
type BlockKind string

const (
	KindParagraph     BlockKind = "paragraph"
	KindTable         BlockKind = "table"
	KindListParagraph BlockKind = "list_paragraph"
)

// Block is one of *Paragraph, *Table or *ListParagraph.
type Block interface {
	Kind() BlockKind
}

// Paragraph is a run of inline content, optionally a heading.
type Paragraph struct {
	Heading   int       `json:"heading,omitempty"` // 1-6, 0 for body text
	Runs      []Segment `json:"runs"`
	Proofread bool      `json:"proofread"` // Eligible for correction
}

// Table holds rows of cells; every cell holds paragraphs.
type Table struct {
	Rows [][]Cell `json:"rows"`
}

// Cell is a single table cell.
type Cell struct {
	Paragraphs []*Paragraph `json:"paragraphs"`
}

// ListParagraph is one list item flattened to its nesting level.
type ListParagraph struct {
	Runs      []Segment `json:"runs"`
	Level     int       `json:"level"`
	Ordered   bool      `json:"ordered"`
	Numbering string    `json:"numbering"` // Numbering-style reference
}

func (*Paragraph) Kind() BlockKind     { return KindParagraph }
func (*Table) Kind() BlockKind         { return KindTable }
func (*ListParagraph) Kind() BlockKind { return KindListParagraph }

// NumberingDef is the numbering definition behind one reference. Levels maps
// a nesting level to whether that level is ordered.
type NumberingDef struct {
	Reference  string       `json:"reference"`
	NumID      int          `json:"num_id"`
	AbstractID int          `json:"abstract_id"`
	Ordered    bool         `json:"ordered"`
	Levels     map[int]bool `json:"levels"`
}

// LevelOrdered reports whether level is numbered. Levels never observed fall
// back to the top-level list type.
func (d NumberingDef) LevelOrdered(level int) bool {
	if v, ok := d.Levels[level]; ok {
		return v
	}
	return d.Ordered
}

// Comment is an out-of-band review annotation anchored to one run.
type Comment struct {
	ID     int    `json:"id"`
	Author string `json:"author"`
	Text   string `json:"text"`
}

// Run is a styled text run of an assembled document.
type Run struct {
	Text       string
	Formatting Formatting
	CommentIDs []int
}

// Element is an assembled body element: *Para or *Grid.
type Element interface {
	element()
}

// Para is an assembled paragraph. List items carry a Numbering reference.
// Style names a paragraph style directly and wins over Heading.
type Para struct {
	Style     string
	Heading   int
	Runs      []Run
	Numbering string
	Level     int
}

// Grid is an assembled table.
type Grid struct {
	Rows [][][]*Para
}

func (*Para) element() {}
func (*Grid) element() {}

// Section is an ordered list of body elements.
type Section struct {
	Elements []Element
}

// Document is the final tree handed to the serializer.
type Document struct {
	Title     string
	Author    string
	Sections  []Section
	Numbering []NumberingDef
	Comments  []Comment
}

// Elements returns every element of every section in order.
func (d *Document) Elements() []Element {
	var out []Element
	for _, s := range d.Sections {
		out = append(out, s.Elements...)
	}
	return out
}
