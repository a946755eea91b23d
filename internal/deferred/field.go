// Package deferred assembles document elements from descriptions whose
// values may still be pending. Describing and resolving are separate steps:
// a Spec tree is plain data, and Builder.Build settles every pending value
// concurrently before any element factory runs.
package deferred

import "context"

type fieldKind int

const (
	kindLit fieldKind = iota
	kindAsync
	kindNest
	kindItems
)

// Field is one property value: a literal, a pending computation, a nested
// element description, or a list of fields.
type Field struct {
	kind  fieldKind
	lit   any
	async func(context.Context) (any, error)
	nest  *Spec
	items []Field
}

// Lit is a value known now. A *Spec, Field or []Field literal is resolved
// like its non-literal counterpart.
func Lit(v any) Field { return Field{kind: kindLit, lit: v} }

// Async is a value produced by fn during resolution. fn may itself return a
// *Spec, Field or []Field, which are resolved in turn.
func Async(fn func(ctx context.Context) (any, error)) Field {
	return Field{kind: kindAsync, async: fn}
}

// Nest is a nested element.
func Nest(s *Spec) Field { return Field{kind: kindNest, nest: s} }

// Items is a list. Nested lists produced by its members are flattened one
// level and omitted elements are dropped.
func Items(fields ...Field) Field { return Field{kind: kindItems, items: fields} }

// Props are the unresolved properties of an element.
type Props map[string]Field

// Content is what an element is built from: either a bare string or
// structured properties. A literal string resolves to Values{"text": s}.
type Content struct {
	text    string
	literal bool
	props   Props
}

func Literal(s string) Content { return Content{text: s, literal: true} }

func Config(p Props) Content { return Content{props: p} }

// Spec describes one element to build.
type Spec struct {
	Type    string
	Content Content
	when    *Field
}

// Element describes an element of type typ.
func Element(typ string, c Content) *Spec {
	return &Spec{Type: typ, Content: c}
}

// When guards the element with a predicate. A predicate resolving to false,
// nil or Omitted makes Build return Omitted.
func (s *Spec) When(pred Field) *Spec {
	s.when = &pred
	return s
}

type omitted struct{}

// Omitted stands in for an element whose predicate was false. Lists drop it.
var Omitted any = omitted{}

// IsOmitted reports whether v is the Omitted marker.
func IsOmitted(v any) bool {
	_, ok := v.(omitted)
	return ok
}
