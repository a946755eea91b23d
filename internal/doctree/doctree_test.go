package doctree

import "testing"

func TestText_ConcatenatesInOrder(t *testing.T) {
	segs := []Segment{{Content: "Hello "}, {Content: ""}, {Content: "world"}}
	if got := Text(segs); got != "Hello world" {
		t.Errorf("expected %q, got %q", "Hello world", got)
	}
}

func TestCloneSegments_DoesNotShareUnderline(t *testing.T) {
	segs := []Segment{{Content: "a", Formatting: Formatting{Underline: &Underline{Type: "single"}}}}
	clone := CloneSegments(segs)
	clone[0].Formatting.Underline.Type = "double"
	clone[0].Content = "b"

	if segs[0].Formatting.Underline.Type != "single" {
		t.Errorf("expected original underline to stay single, got %q", segs[0].Formatting.Underline.Type)
	}
	if segs[0].Content != "a" {
		t.Errorf("expected original content to stay %q, got %q", "a", segs[0].Content)
	}
}

func TestNumberingDef_LevelOrderedFallsBackToTopLevel(t *testing.T) {
	def := NumberingDef{Ordered: true, Levels: map[int]bool{1: false}}
	if !def.LevelOrdered(0) {
		t.Error("expected level 0 to use top-level ordered flag")
	}
	if def.LevelOrdered(1) {
		t.Error("expected level 1 to be unordered")
	}
	if !def.LevelOrdered(4) {
		t.Error("expected unseen level to fall back to ordered")
	}
}

func TestDocument_ElementsAcrossSections(t *testing.T) {
	doc := &Document{Sections: []Section{
		{Elements: []Element{&Para{}, &Grid{}}},
		{Elements: []Element{&Para{Heading: 1}}},
	}}
	els := doc.Elements()
	if len(els) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(els))
	}
	if p, ok := els[2].(*Para); !ok || p.Heading != 1 {
		t.Errorf("expected third element to be heading paragraph, got %#v", els[2])
	}
}
