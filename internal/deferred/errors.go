package deferred

import (
	"errors"
	"fmt"
)

// ErrUnknownType means no factory is registered for an element type.
var ErrUnknownType = errors.New("unknown element type")

// ResolutionError is the first failure met while resolving a Spec tree.
// Nothing built before the failure is returned.
type ResolutionError struct {
	Type  string // Element type being built
	Field string // Property path, empty when the factory itself failed
	Err   error
}

func (e *ResolutionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("build %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("build %s.%s: %v", e.Type, e.Field, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// wrap keeps the innermost ResolutionError, which names where resolution
// actually failed.
func wrap(typ, field string, err error) error {
	var re *ResolutionError
	if errors.As(err, &re) {
		return err
	}
	return &ResolutionError{Type: typ, Field: field, Err: err}
}
