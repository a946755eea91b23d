package correct

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/chartdocx/internal/doctree"
)

type fakeChecker struct {
	mu      sync.Mutex
	matches []Match
	err     error
	calls   []string
}

func (f *fakeChecker) Check(ctx context.Context, text, language string) ([]Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, language+"|"+text)
	return f.matches, f.err
}

func TestReconcile_EmptyMakesNoCall(t *testing.T) {
	fc := &fakeChecker{}
	r := NewReconciler(fc, Options{})

	res, err := r.Reconcile(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Segments) != 0 {
		t.Errorf("expected no segments, got %d", len(res.Segments))
	}
	if len(fc.calls) != 0 {
		t.Errorf("expected no service call, got %d", len(fc.calls))
	}
}

func TestReconcile_OneCallPerParagraph(t *testing.T) {
	fc := &fakeChecker{matches: []Match{match(6, 6, "MORFOLOGIK_RULE_EN_US", "world")}}
	r := NewReconciler(fc, Options{Language: "en-GB"})

	segs := []doctree.Segment{{Content: "Hello "}, {Content: "worlde", Formatting: doctree.Formatting{Bold: true}}}
	res, err := r.Reconcile(context.Background(), segs, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fc.calls) != 1 || fc.calls[0] != "en-GB|Hello worlde" {
		t.Errorf("expected one call over the full text, got %q", fc.calls)
	}
	if res.Segments[1].Content != "world" || !res.Segments[1].Formatting.Bold {
		t.Errorf("expected bold %q, got %+v", "world", res.Segments[1])
	}
	if len(res.Edits) != 1 {
		t.Errorf("expected 1 edit, got %d", len(res.Edits))
	}
}

func TestReconcile_RuleFiltering(t *testing.T) {
	fc := &fakeChecker{matches: []Match{match(0, 5, "STYLE_TOO_WORDY", "Hi")}}
	r := NewReconciler(fc, Options{Allow: NewAllowList("MORFOLOGIK_RULE_EN_US")})

	segs := []doctree.Segment{{Content: "Hello"}, {Content: " there"}}
	res, err := r.Reconcile(context.Background(), segs, "en-US")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Hello", " there"}
	if got := contents(res.Segments); !equalStrings(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
	if len(res.Edits) != 0 {
		t.Errorf("expected no edits, got %d", len(res.Edits))
	}
}

func TestReconcile_ServiceError(t *testing.T) {
	fc := &fakeChecker{err: errors.New("connection refused")}
	stats := NewStats(time.Hour)
	r := NewReconciler(fc, Options{Stats: stats})

	_, err := r.Reconcile(context.Background(), []doctree.Segment{{Content: "text"}}, "")
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServiceError, got %v", err)
	}
	if snap := stats.Snapshot(); snap.Failures != 1 {
		t.Errorf("expected 1 failure recorded, got %d", snap.Failures)
	}
}

func TestReconcile_UsesCache(t *testing.T) {
	fc := &fakeChecker{matches: []Match{match(0, 1, "EN_A_VS_AN", "an")}}
	r := NewReconciler(fc, Options{Cache: NewCache(time.Minute)})
	segs := []doctree.Segment{{Content: "a apple"}}

	first, err := r.Reconcile(context.Background(), segs, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := r.Reconcile(context.Background(), segs, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fc.calls) != 1 {
		t.Errorf("expected one service call, got %d", len(fc.calls))
	}
	if first.Cached || !second.Cached {
		t.Errorf("expected only the second result cached, got %v %v", first.Cached, second.Cached)
	}
	if first.Segments[0].Content != second.Segments[0].Content {
		t.Errorf("expected identical corrections, got %q and %q", first.Segments[0].Content, second.Segments[0].Content)
	}
	if snap := stats.Snapshot(); snap.Calls != 1 || snap.CacheHits != 1 {
		t.Errorf("expected 1 service call and 1 cache hit, got %+v", snap)
	}
}

func TestReconciler_Accessors(t *testing.T) {
	r := NewReconciler(&fakeChecker{}, Options{Allow: NewAllowList("UPPERCASE_SENTENCE_START", "EN_A_VS_AN")})

	want := []string{"EN_A_VS_AN", "UPPERCASE_SENTENCE_START"}
	if got := r.Rules(); !equalStrings(got, want) {
		t.Errorf("expected rules %q, got %q", want, got)
	}
	if r.Language() != "en-US" {
		t.Errorf("expected default language en-US, got %q", r.Language())
	}
	if r.Stats() != nil || r.Cache() != nil {
		t.Errorf("expected no stats or cache when none configured")
	}
}
