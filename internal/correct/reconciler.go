package correct

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/chartdocx/internal/doctree"
)

// Result is a reconciled paragraph.
type Result struct {
	Segments []doctree.Segment
	Edits    []Edit
	Cached   bool
}

// Reconciler corrects one paragraph at a time: one service call over the
// paragraph's concatenated text, then Apply with the allowed matches. It
// holds no per-export state and is safe for concurrent use.
type Reconciler struct {
	checker  Checker
	allow    *AllowList
	cache    *Cache
	stats    *Stats
	language string
}

// Options configures a Reconciler. Cache and Stats are optional.
type Options struct {
	Language string
	Allow    *AllowList
	Cache    *Cache
	Stats    *Stats
}

func NewReconciler(checker Checker, opts Options) *Reconciler {
	if opts.Allow == nil {
		opts.Allow = DefaultAllowList()
	}
	if opts.Language == "" {
		opts.Language = "en-US"
	}
	return &Reconciler{
		checker:  checker,
		allow:    opts.Allow,
		cache:    opts.Cache,
		stats:    opts.Stats,
		language: opts.Language,
	}
}

// Language is the default used when Reconcile is given none.
func (r *Reconciler) Language() string { return r.language }

// Rules lists the rule ids whose matches are applied.
func (r *Reconciler) Rules() []string { return r.allow.IDs() }

// Stats and Cache return the configured collaborators, or nil.
func (r *Reconciler) Stats() *Stats { return r.stats }
func (r *Reconciler) Cache() *Cache { return r.cache }

// Reconcile returns corrected copies of segs. An empty paragraph is returned
// as is without calling the service. Service failures come back as
// *ServiceError and segs is left untouched.
func (r *Reconciler) Reconcile(ctx context.Context, segs []doctree.Segment, language string) (*Result, error) {
	if len(segs) == 0 {
		return &Result{Segments: segs}, nil
	}
	if language == "" {
		language = r.language
	}

	text := doctree.Text(segs)
	if text == "" {
		return &Result{Segments: doctree.CloneSegments(segs)}, nil
	}

	matches, cached, err := r.check(ctx, text, language)
	if err != nil {
		return nil, err
	}

	n := utf8.RuneCountInString(text)
	var usable []Match
	for _, m := range r.allow.Filter(matches) {
		if ValidMatch(m, n) {
			usable = append(usable, m)
		}
	}

	out, edits := Apply(segs, usable)
	return &Result{Segments: out, Edits: edits, Cached: cached}, nil
}

func (r *Reconciler) check(ctx context.Context, text, language string) ([]Match, bool, error) {
	if r.cache != nil {
		if m, ok := r.cache.Get(language, text); ok {
			if r.stats != nil {
				r.stats.RecordCached()
			}
			return m, true, nil
		}
	}

	start := time.Now()
	matches, err := r.checker.Check(ctx, text, language)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		if r.stats != nil {
			r.stats.RecordFailure(elapsed)
		}
		var se *ServiceError
		if !errors.As(err, &se) {
			err = &ServiceError{Err: err}
		}
		return nil, false, err
	}
	if r.stats != nil {
		r.stats.Record(elapsed)
	}
	if r.cache != nil {
		r.cache.Set(language, text, matches)
	}
	return matches, false, nil
}
