package correct

import (
	"sort"

	"github.com/dgallion1/chartdocx/internal/doctree"
)

// Edit records one applied match.
type Edit struct {
	Segment     int    `json:"segment"` // Index of the segment the replacement landed in
	Offset      int    `json:"offset"`
	Length      int    `json:"length"`
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
	Rule        string `json:"rule"`
}

// Apply splices matches into segs and returns the corrected copy. Matches are
// applied right to left against the segment offsets of the original text, so
// an edit never shifts the position of one still to come. A match spanning
// several segments lands in the first and trims the consumed prefix of the
// rest. Segments emptied that way stay in place with their formatting.
// Matches without replacements, or outside the text, are ignored.
func Apply(segs []doctree.Segment, matches []Match) ([]doctree.Segment, []Edit) {
	out := doctree.CloneSegments(segs)
	if len(out) == 0 || len(matches) == 0 {
		return out, nil
	}

	runes := make([][]rune, len(out))
	starts := make([]int, len(out))
	total := 0
	for i, s := range out {
		runes[i] = []rune(s.Content)
		starts[i] = total
		total += len(runes[i])
	}

	ordered := make([]Match, len(matches))
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Offset > ordered[j].Offset })

	var edits []Edit
	for _, m := range ordered {
		if len(m.Replacements) == 0 || !ValidMatch(m, total) {
			continue
		}
		end := m.Offset + m.Length
		first := segmentAt(starts, func(start int) bool { return start <= m.Offset })
		last := segmentAt(starts, func(start int) bool { return start < end })
		if last < 0 {
			last = len(out) - 1
		}
		if last < first {
			last = first
		}

		replacement := []rune(m.Replacements[0].Value)
		r := runes[first]
		lo := min(m.Offset-starts[first], len(r))
		hi := min(m.Offset-starts[first]+m.Length, len(r))
		original := string(r[lo:hi])

		spliced := make([]rune, 0, len(r)-(hi-lo)+len(replacement))
		spliced = append(spliced, r[:lo]...)
		spliced = append(spliced, replacement...)
		spliced = append(spliced, r[hi:]...)
		runes[first] = spliced

		for j := first + 1; j <= last; j++ {
			cut := min(max(end-starts[j], 0), len(runes[j]))
			original += string(runes[j][:cut])
			runes[j] = runes[j][cut:]
		}

		edits = append(edits, Edit{
			Segment:     first,
			Offset:      m.Offset,
			Length:      m.Length,
			Original:    original,
			Replacement: m.Replacements[0].Value,
			Rule:        m.Rule.ID,
		})
	}

	for i := range out {
		out[i].Content = string(runes[i])
	}
	return out, edits
}

// segmentAt returns the last index whose recorded start satisfies ok, or -1.
func segmentAt(starts []int, ok func(start int) bool) int {
	idx := -1
	for i, s := range starts {
		if !ok(s) {
			break
		}
		idx = i
	}
	return idx
}
