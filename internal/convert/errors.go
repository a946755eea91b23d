package convert

import "fmt"

// InvalidMarkupError reports markup that breaks a structural assumption the
// converter cannot recover from.
type InvalidMarkupError struct {
	Tag    string
	Reason string
}

func (e *InvalidMarkupError) Error() string {
	return fmt.Sprintf("invalid markup <%s>: %s", e.Tag, e.Reason)
}

// NumberingAllocationError means the numbering counter could not advance.
// It indicates a bug rather than bad input.
type NumberingAllocationError struct {
	Next int
}

func (e *NumberingAllocationError) Error() string {
	return fmt.Sprintf("numbering allocation failed at %d", e.Next)
}
