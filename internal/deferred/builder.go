package deferred

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Factory makes an element from resolved values.
type Factory func(v Values) (any, error)

// Builder resolves Spec trees into elements. Annotations of type A collected
// while building are handed over once by BuildDocument. Use one Builder per
// document.
type Builder[A any] struct {
	factories map[string]Factory

	mu          sync.Mutex
	annotations []A
}

func NewBuilder[A any]() *Builder[A] {
	return &Builder[A]{factories: make(map[string]Factory)}
}

// Register sets the factory for an element type.
func (b *Builder[A]) Register(typ string, f Factory) {
	b.factories[typ] = f
}

// Annotate records an out-of-band annotation. It is safe to call from Async
// fields.
func (b *Builder[A]) Annotate(a A) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.annotations = append(b.annotations, a)
}

// Build resolves s and returns the element, or Omitted when its predicate is
// false. Either every pending value settles or the first error is returned.
func (b *Builder[A]) Build(ctx context.Context, s *Spec) (any, error) {
	v, err := b.resolveSpec(ctx, s)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ErrOmittedDocument is returned by BuildDocument when the root spec's
// predicate is false.
var ErrOmittedDocument = errors.New("document omitted")

// BuildDocument builds the root element, then passes it to attach together
// with every annotation collected during the build. The accumulator is
// cleared whether or not the build succeeds.
func (b *Builder[A]) BuildDocument(ctx context.Context, s *Spec, attach func(doc any, annotations []A) (any, error)) (any, error) {
	doc, err := b.Build(ctx, s)
	annotations := b.drain()
	if err != nil {
		return nil, err
	}
	if IsOmitted(doc) {
		return nil, ErrOmittedDocument
	}
	if attach == nil {
		return doc, nil
	}
	out, err := attach(doc, annotations)
	if err != nil {
		return nil, wrap(s.Type, "", fmt.Errorf("attach annotations: %w", err))
	}
	return out, nil
}

func (b *Builder[A]) drain() []A {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.annotations
	b.annotations = nil
	return out
}

func (b *Builder[A]) resolveSpec(ctx context.Context, s *Spec) (any, error) {
	if s == nil {
		return nil, &ResolutionError{Type: "<nil>", Err: errors.New("nil spec")}
	}
	if err := ctx.Err(); err != nil {
		return nil, wrap(s.Type, "", err)
	}

	if s.when != nil {
		cond, err := b.resolveField(ctx, s.Type, "when", *s.when)
		if err != nil {
			return nil, err
		}
		ok, err := truthy(cond)
		if err != nil {
			return nil, wrap(s.Type, "when", err)
		}
		if !ok {
			return Omitted, nil
		}
	}

	factory, ok := b.factories[s.Type]
	if !ok {
		return nil, &ResolutionError{Type: s.Type, Err: ErrUnknownType}
	}

	var values Values
	if s.Content.literal {
		values = Values{"text": s.Content.text}
	} else {
		var err error
		values, err = b.resolveProps(ctx, s.Type, s.Content.props)
		if err != nil {
			return nil, err
		}
	}

	elem, err := factory(values)
	if err != nil {
		return nil, wrap(s.Type, "", err)
	}
	return elem, nil
}

// resolveProps settles every property concurrently.
func (b *Builder[A]) resolveProps(ctx context.Context, typ string, props Props) (Values, error) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	results := make([]any, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for i, k := range keys {
		g.Go(func() error {
			v, err := b.resolveField(gctx, typ, k, props[k])
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	values := make(Values, len(keys))
	for i, k := range keys {
		values[k] = results[i]
	}
	return values, nil
}

func (b *Builder[A]) resolveField(ctx context.Context, typ, path string, f Field) (any, error) {
	switch f.kind {
	case kindLit:
		return b.resolveValue(ctx, typ, path, f.lit)
	case kindAsync:
		if f.async == nil {
			return nil, nil
		}
		v, err := f.async(ctx)
		if err != nil {
			return nil, wrap(typ, path, err)
		}
		return b.resolveValue(ctx, typ, path, v)
	case kindNest:
		return b.resolveSpec(ctx, f.nest)
	case kindItems:
		return b.resolveItems(ctx, typ, path, f.items)
	}
	return nil, wrap(typ, path, fmt.Errorf("unknown field kind %d", f.kind))
}

// resolveValue continues resolution into values that are themselves
// descriptions.
func (b *Builder[A]) resolveValue(ctx context.Context, typ, path string, v any) (any, error) {
	switch x := v.(type) {
	case *Spec:
		return b.resolveSpec(ctx, x)
	case Field:
		return b.resolveField(ctx, typ, path, x)
	case []Field:
		return b.resolveItems(ctx, typ, path, x)
	}
	return v, nil
}

// resolveItems settles list members concurrently, keeps their order, drops
// Omitted and flattens one level of nested lists.
func (b *Builder[A]) resolveItems(ctx context.Context, typ, path string, items []Field) ([]any, error) {
	results := make([]any, len(items))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range items {
		g.Go(func() error {
			v, err := b.resolveField(gctx, typ, fmt.Sprintf("%s[%d]", path, i), f)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]any, 0, len(results))
	for _, v := range results {
		switch x := v.(type) {
		case []any:
			for _, inner := range x {
				if !IsOmitted(inner) {
					out = append(out, inner)
				}
			}
		default:
			if !IsOmitted(v) {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

func truthy(v any) (bool, error) {
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	case omitted:
		return false, nil
	}
	return false, fmt.Errorf("predicate resolved to %T, want bool", v)
}
