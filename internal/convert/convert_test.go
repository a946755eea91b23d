package convert

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/dgallion1/chartdocx/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func fragment(t *testing.T, markup string) []*html.Node {
	t.Helper()
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		t.Fatalf("parse fragment: %v", err)
	}
	return nodes
}

// el builds an element by hand for trees the HTML5 parser would rearrange.
func el(tag string, attrs map[string]string, kids ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for k, v := range attrs {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: v})
	}
	for _, k := range kids {
		n.AppendChild(k)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func convertMarkup(t *testing.T, markup string) []doctree.Block {
	t.Helper()
	blocks, err := NewConverter(NewNumbering(0, 0), nil).Convert(fragment(t, markup))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	return blocks
}

func TestDerive_Tags(t *testing.T) {
	base := doctree.Formatting{Color: "112233"}
	tests := []struct {
		name string
		node *html.Node
		want doctree.Formatting
	}{
		{"strong", el("strong", nil), doctree.Formatting{Bold: true, Color: "112233"}},
		{"b", el("b", nil), doctree.Formatting{Bold: true, Color: "112233"}},
		{"em", el("em", nil), doctree.Formatting{Italic: true, Color: "112233"}},
		{"i", el("i", nil), doctree.Formatting{Italic: true, Color: "112233"}},
		{"u", el("u", nil), doctree.Formatting{Underline: &doctree.Underline{Type: "single"}, Color: "112233"}},
		{"div passes through", el("div", nil), base},
		{"span without style", el("span", nil), base},
		{"text node", text("x"), base},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Derive(base, tt.node)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestDerive_StyledSpanOverrides(t *testing.T) {
	parent := doctree.Formatting{Bold: true, Italic: true, Color: "00FF00"}

	got := Derive(parent, el("span", map[string]string{"style": "color: rgb(255, 0, 128)"}))
	if got.Bold || got.Italic {
		t.Errorf("expected bold and italic cleared, got %+v", got)
	}
	if got.Color != "FF0080" {
		t.Errorf("expected color %q, got %q", "FF0080", got.Color)
	}

	got = Derive(doctree.Formatting{}, el("span", map[string]string{"style": "font-weight: 700; font-style: italic"}))
	if !got.Bold || !got.Italic || got.Color != "" {
		t.Errorf("expected bold italic without color, got %+v", got)
	}

	under := doctree.Formatting{Underline: &doctree.Underline{Type: "single"}}
	got = Derive(under, el("span", map[string]string{"style": "font-weight: bold"}))
	if got.Underline == nil {
		t.Error("expected inherited underline to survive a styled span")
	}
}

func TestDerive_PlaceholderResetsStyle(t *testing.T) {
	parent := doctree.Formatting{Bold: true, Italic: true, Color: "FF0000", Underline: &doctree.Underline{Type: "single"}}
	ph := el("span", map[string]string{AttrVariable: "allergies", "style": "font-weight: bold"})

	got := Derive(parent, ph)
	if got.Bold || got.Italic || got.Color != "" {
		t.Errorf("expected placeholder to drop weight, slant and color, got %+v", got)
	}
	if got.Underline == nil {
		t.Error("expected placeholder to keep underline")
	}
}

func TestDerive_DoesNotMutateParent(t *testing.T) {
	parent := doctree.Formatting{}
	_ = Derive(parent, el("b", nil))
	_ = Derive(parent, el("span", map[string]string{"style": "color: red"}))
	if parent != (doctree.Formatting{}) {
		t.Errorf("expected parent unchanged, got %+v", parent)
	}
}

func TestParseColor(t *testing.T) {
	a, ok := ParseColor("rgb(255, 0, 128)")
	if !ok {
		t.Fatal("expected rgb() to parse")
	}
	b, ok := ParseColor("#ff0080")
	if !ok {
		t.Fatal("expected hex to parse")
	}
	if a != b {
		t.Errorf("expected equal colors, got %q and %q", a, b)
	}

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"#f08", "FF0088", true},
		{"#FF008080", "FF0080", true},
		{"rgba(0 0 255 / 50%)", "0000FF", true},
		{"rgb(100%, 0%, 0%)", "FF0000", true},
		{"rgb(300, -5, 0)", "FF0000", true},
		{"Navy", "000080", true},
		{"#12", "", false},
		{"#zzzzzz", "", false},
		{"hsl(0, 100%, 50%)", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseColor(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseColor(%q): expected (%q, %v), got (%q, %v)", tt.in, tt.want, tt.ok, got, ok)
		}
	}
}

func TestPlaceholderText(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]string
		want  string
	}{
		{"json values", map[string]string{AttrVariable: "meds", AttrValue: `["aspirin","ibuprofen"]`}, "aspirin, ibuprofen"},
		{"plain value", map[string]string{AttrVariable: "meds", AttrValue: "aspirin"}, "aspirin"},
		{"empty array falls back to label", map[string]string{AttrVariable: "meds", AttrValue: "[]", AttrLabel: "Medications"}, "Medications"},
		{"name", map[string]string{AttrVariable: "meds"}, "[meds]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlaceholderText(el("span", tt.attrs))
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestExtract_ConcatenationMatchesVisibleText(t *testing.T) {
	nodes := fragment(t, `Line one<br>line <i>two</i> and <b>three <u>four</u></b><script>x()</script>`)
	segs := Extract(nodes, doctree.Formatting{})

	want := "Line one\nline two and three four"
	if got := doctree.Text(segs); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	for _, s := range segs {
		if s.Content == "" {
			t.Error("expected no zero-length segments")
		}
	}

	last := segs[len(segs)-1]
	if last.Content != "four" || !last.Formatting.Bold || last.Formatting.Underline == nil {
		t.Errorf("expected bold underlined %q, got %+v", "four", last)
	}
}

func TestExtract_SiblingsDoNotShareFormatting(t *testing.T) {
	segs := Extract(fragment(t, `<b>bold</b>plain<i>slanted</i>`), doctree.Formatting{})
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	if !segs[0].Formatting.Bold || segs[0].Formatting.Italic {
		t.Errorf("expected first segment bold only, got %+v", segs[0].Formatting)
	}
	if segs[1].Formatting != (doctree.Formatting{}) {
		t.Errorf("expected plain middle segment, got %+v", segs[1].Formatting)
	}
	if segs[2].Formatting.Bold || !segs[2].Formatting.Italic {
		t.Errorf("expected last segment italic only, got %+v", segs[2].Formatting)
	}
}

func TestExtract_Placeholder(t *testing.T) {
	segs := Extract(fragment(t, `<b>Allergies: <span data-template-variable="allergies" data-value='["nuts","latex"]'>ignored</span></b>`), doctree.Formatting{})
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[1].Content != "nuts, latex" {
		t.Errorf("expected %q, got %q", "nuts, latex", segs[1].Content)
	}
	if segs[1].Formatting.Bold {
		t.Error("expected placeholder segment not bold")
	}
}

func TestExtract_Deterministic(t *testing.T) {
	nodes := fragment(t, `<span style="color:#00f">a<b>b</b></span>c`)
	first := Extract(nodes, doctree.Formatting{})
	second := Extract(nodes, doctree.Formatting{})
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical segments, got %+v and %+v", first, second)
	}
}

func TestConvert_ParagraphsAndHeadings(t *testing.T) {
	blocks := convertMarkup(t, `<h2>Plan</h2><p>Hello <b>world</b></p><p></p>`)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}

	h := blocks[0].(*doctree.Paragraph)
	if h.Heading != 2 || doctree.Text(h.Runs) != "Plan" {
		t.Errorf("expected h2 %q, got level %d %q", "Plan", h.Heading, doctree.Text(h.Runs))
	}

	p := blocks[1].(*doctree.Paragraph)
	if doctree.Text(p.Runs) != "Hello world" || !p.Proofread {
		t.Errorf("expected proofread %q, got %+v", "Hello world", p)
	}
	if !p.Runs[1].Formatting.Bold {
		t.Error("expected second run bold")
	}

	empty := blocks[2].(*doctree.Paragraph)
	if len(empty.Runs) != 0 {
		t.Errorf("expected empty paragraph, got %+v", empty.Runs)
	}
}

func TestConvert_ContainersAreTransparent(t *testing.T) {
	blocks := convertMarkup(t, `<div><section><p>inside</p></section>stray <b>text</b></div>`)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if got := doctree.Text(blocks[0].(*doctree.Paragraph).Runs); got != "inside" {
		t.Errorf("expected %q, got %q", "inside", got)
	}
	if got := doctree.Text(blocks[1].(*doctree.Paragraph).Runs); got != "stray text" {
		t.Errorf("expected %q, got %q", "stray text", got)
	}
}

func TestConvert_MixedContentSplits(t *testing.T) {
	p := el("p", nil,
		text("Before "),
		el("b", nil, text("list")),
		el("ul", nil, el("li", nil, text("item"))),
		text("after"),
	)
	blocks, err := NewConverter(NewNumbering(0, 0), nil).ToBlocks(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}

	first, ok := blocks[0].(*doctree.Paragraph)
	if !ok || doctree.Text(first.Runs) != "Before list" {
		t.Errorf("expected leading paragraph %q, got %+v", "Before list", blocks[0])
	}
	if _, ok := blocks[1].(*doctree.ListParagraph); !ok {
		t.Errorf("expected list paragraph, got %T", blocks[1])
	}
	last, ok := blocks[2].(*doctree.Paragraph)
	if !ok || doctree.Text(last.Runs) != "after" {
		t.Errorf("expected trailing paragraph %q, got %+v", "after", blocks[2])
	}
}

func TestConvert_Table(t *testing.T) {
	blocks := convertMarkup(t, `<table><caption>Vitals</caption><thead><tr><th>BP</th><th>HR</th></tr></thead>`+
		`<tbody><tr><td>120/80</td><td><b>72</b><p>resting</p></td></tr><tr></tr></tbody></table>`)
	if len(blocks) != 2 {
		t.Fatalf("expected caption and table, got %d blocks", len(blocks))
	}

	caption := blocks[0].(*doctree.Paragraph)
	if doctree.Text(caption.Runs) != "Vitals" || caption.Proofread {
		t.Errorf("expected unproofread caption, got %+v", caption)
	}

	table := blocks[1].(*doctree.Table)
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows (empty row skipped), got %d", len(table.Rows))
	}
	if len(table.Rows[0]) != 2 {
		t.Fatalf("expected 2 header cells, got %d", len(table.Rows[0]))
	}

	cell := table.Rows[1][1].Paragraphs[0]
	if got := doctree.Text(cell.Runs); got != "72\nresting" {
		t.Errorf("expected %q, got %q", "72\nresting", got)
	}
	if !cell.Runs[0].Formatting.Bold {
		t.Error("expected bold first run in cell")
	}
	if cell.Proofread {
		t.Error("expected table cells not proofread")
	}
}

func TestConvert_TableWithoutRows(t *testing.T) {
	table := el("table", nil, el("tr", nil))
	_, err := NewConverter(NewNumbering(0, 0), nil).ToBlocks(table)

	var invalid *InvalidMarkupError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidMarkupError, got %v", err)
	}
	if invalid.Tag != "table" {
		t.Errorf("expected tag %q, got %q", "table", invalid.Tag)
	}
}

func TestConvert_NestedLists(t *testing.T) {
	blocks := convertMarkup(t, `<ul><li>one<ol><li>sub <i>a</i></li><li>sub b</li></ol></li><li>two</li></ul>`)

	want := []struct {
		text    string
		level   int
		ordered bool
	}{
		{"one", 0, false},
		{"sub a", 1, true},
		{"sub b", 1, true},
		{"two", 0, false},
	}
	if len(blocks) != len(want) {
		t.Fatalf("expected %d blocks, got %d", len(want), len(blocks))
	}
	for i, w := range want {
		lp, ok := blocks[i].(*doctree.ListParagraph)
		if !ok {
			t.Fatalf("block %d: expected list paragraph, got %T", i, blocks[i])
		}
		if doctree.Text(lp.Runs) != w.text || lp.Level != w.level || lp.Ordered != w.ordered {
			t.Errorf("block %d: expected %q level %d ordered %v, got %q level %d ordered %v",
				i, w.text, w.level, w.ordered, doctree.Text(lp.Runs), lp.Level, lp.Ordered)
		}
		if lp.Numbering != blocks[0].(*doctree.ListParagraph).Numbering {
			t.Errorf("block %d: expected nested items to share the list reference", i)
		}
	}
}

func TestConvert_ListWrappedInContainer(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   []string
		levels []int
	}{
		{
			name:   "div",
			markup: `<ul><li>Meds<div><ul><li>aspirin</li><li>ibuprofen</li></ul></div></li></ul>`,
			want:   []string{"Meds", "aspirin", "ibuprofen"},
			levels: []int{0, 1, 1},
		},
		{
			name:   "div with text",
			markup: `<ul><li>Meds<div>current<ol><li>aspirin</li></ol></div></li><li>Allergies</li></ul>`,
			want:   []string{"Meds\ncurrent", "aspirin", "Allergies"},
			levels: []int{0, 1, 0},
		},
		{
			name:   "span",
			markup: `<ol><li>Plan <span><em>today</em><ul><li>rest</li></ul></span></li></ol>`,
			want:   []string{"Plan today", "rest"},
			levels: []int{0, 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := convertMarkup(t, tt.markup)
			if len(blocks) != len(tt.want) {
				t.Fatalf("expected %d blocks, got %d", len(tt.want), len(blocks))
			}
			ref := ""
			for i, b := range blocks {
				lp, ok := b.(*doctree.ListParagraph)
				if !ok {
					t.Fatalf("block %d: expected list paragraph, got %T", i, b)
				}
				if got := doctree.Text(lp.Runs); got != tt.want[i] || lp.Level != tt.levels[i] {
					t.Errorf("block %d: expected %q level %d, got %q level %d", i, tt.want[i], tt.levels[i], got, lp.Level)
				}
				if ref == "" {
					ref = lp.Numbering
				}
				if lp.Numbering != ref {
					t.Errorf("block %d: expected shared reference %q, got %q", i, ref, lp.Numbering)
				}
			}
		})
	}
}

func TestConvert_WrappedListInheritsWrapperFormatting(t *testing.T) {
	list := el("ul", nil, el("li", nil,
		text("Meds"),
		el("b", nil, el("span", nil, el("ul", nil, el("li", nil, text("aspirin"))))),
	))
	blocks, err := NewConverter(NewNumbering(0, 0), nil).ToBlocks(list)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	parent := blocks[0].(*doctree.ListParagraph)
	if doctree.Text(parent.Runs) != "Meds" || parent.Runs[0].Formatting.Bold {
		t.Errorf("expected plain %q, got %+v", "Meds", parent.Runs)
	}
	sub := blocks[1].(*doctree.ListParagraph)
	if sub.Level != 1 || !sub.Runs[0].Formatting.Bold {
		t.Errorf("expected bold level 1 item, got %+v", sub)
	}
}

func TestConvert_CollapsesSourceWhitespace(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{"indented paragraph", "<p>Patient reports\n    mild symptoms.</p>", "Patient reports mild symptoms."},
		{"pretty printed", "<p>\n  Hello\t<b> world </b>\n</p>", "Hello world"},
		{"around br", "<p>line one  <br>\n  line two</p>", "line one\nline two"},
		{"preformatted", "<pre>dose:\n  400mg</pre>", "dose:\n  400mg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := convertMarkup(t, tt.markup)
			if len(blocks) != 1 {
				t.Fatalf("expected 1 block, got %d", len(blocks))
			}
			if got := doctree.Text(blocks[0].(*doctree.Paragraph).Runs); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestConvert_CollapsesWhitespaceInCellsAndItems(t *testing.T) {
	blocks := convertMarkup(t, "<ul>\n  <li>\n    rest\n    and fluids\n  </li>\n</ul>"+
		"<table><tr><td>\n  72\n  <p> resting </p>\n</td></tr></table>")
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if got := doctree.Text(blocks[0].(*doctree.ListParagraph).Runs); got != "rest and fluids" {
		t.Errorf("expected %q, got %q", "rest and fluids", got)
	}
	cell := blocks[1].(*doctree.Table).Rows[0][0].Paragraphs[0]
	if got := doctree.Text(cell.Runs); got != "72\nresting" {
		t.Errorf("expected %q, got %q", "72\nresting", got)
	}
}

func TestConvert_SiblingListsGetDistinctReferences(t *testing.T) {
	numbering := NewNumbering(0, 0)
	blocks, err := NewConverter(numbering, nil).Convert(fragment(t, `<ol><li>same</li></ol><p>gap</p><ol><li>same</li></ol>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := blocks[0].(*doctree.ListParagraph)
	second := blocks[2].(*doctree.ListParagraph)
	if first.Numbering == second.Numbering {
		t.Errorf("expected distinct references, both %q", first.Numbering)
	}

	defs := numbering.Defs()
	if len(defs) != 2 {
		t.Fatalf("expected 2 numbering defs, got %d", len(defs))
	}
	if defs[0].NumID == defs[1].NumID || defs[0].AbstractID == defs[1].AbstractID {
		t.Errorf("expected unique ids, got %+v", defs)
	}
}

func TestNumbering_StartsAboveTemplateIDs(t *testing.T) {
	n := NewNumbering(7, 3)
	def, err := n.Allocate(true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.NumID != 8 || def.AbstractID != 4 {
		t.Errorf("expected ids 8/4, got %d/%d", def.NumID, def.AbstractID)
	}
	if def.Reference != "list-8" {
		t.Errorf("expected reference %q, got %q", "list-8", def.Reference)
	}

	n.mark(def, 1, false)
	n.mark(def, 1, true)
	if n.Defs()[0].Levels[1] {
		t.Error("expected first observed list type to win")
	}
}

func TestConvert_Idempotent(t *testing.T) {
	markup := `<h1>Note</h1><p>A <span style="color:red">red</span> word<br>next</p>` +
		`<ul><li>x<ul><li>y</li></ul></li></ul><table><tr><td>c</td></tr></table>`
	first := convertMarkup(t, markup)
	second := convertMarkup(t, markup)
	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical block sequences")
	}
}
