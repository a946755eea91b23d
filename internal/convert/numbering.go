package convert

import (
	"fmt"
	"math"

	"github.com/dgallion1/chartdocx/internal/doctree"
)

// Numbering hands out one numbering-style reference per top-level list for
// the duration of a single export. It is not safe for concurrent use.
type Numbering struct {
	baseNumID      int
	baseAbstractID int
	next           int
	defs           []*doctree.NumberingDef
}

// NewNumbering starts allocating above the given ids, which are the largest
// num and abstractNum ids already present in a template (0 for none).
func NewNumbering(baseNumID, baseAbstractID int) *Numbering {
	return &Numbering{
		baseNumID:      max(baseNumID, 0),
		baseAbstractID: max(baseAbstractID, 0),
	}
}

// Allocate reserves a fresh reference for a top-level list.
func (n *Numbering) Allocate(ordered bool) (*doctree.NumberingDef, error) {
	if n.next >= math.MaxInt32-max(n.baseNumID, n.baseAbstractID)-1 {
		return nil, &NumberingAllocationError{Next: n.next}
	}
	n.next++
	numID := n.baseNumID + n.next
	def := &doctree.NumberingDef{
		Reference:  fmt.Sprintf("list-%d", numID),
		NumID:      numID,
		AbstractID: n.baseAbstractID + n.next,
		Ordered:    ordered,
		Levels:     map[int]bool{0: ordered},
	}
	n.defs = append(n.defs, def)
	return def, nil
}

// mark records the list type first seen at level.
func (n *Numbering) mark(def *doctree.NumberingDef, level int, ordered bool) {
	if _, ok := def.Levels[level]; !ok {
		def.Levels[level] = ordered
	}
}

// Len is the number of references allocated so far.
func (n *Numbering) Len() int {
	return len(n.defs)
}

// Defs returns copies of every allocated definition in allocation order.
func (n *Numbering) Defs() []doctree.NumberingDef {
	out := make([]doctree.NumberingDef, 0, len(n.defs))
	for _, d := range n.defs {
		c := *d
		c.Levels = make(map[int]bool, len(d.Levels))
		for k, v := range d.Levels {
			c.Levels[k] = v
		}
		out = append(out, c)
	}
	return out
}
