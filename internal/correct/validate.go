package correct

import "unicode/utf8"

// maxReplacementRunes bounds a single suggestion. Anything longer is not a
// spelling or grammar fix.
const maxReplacementRunes = 200

// ValidMatch reports whether m fits inside a text of textLen runes and
// carries a usable first replacement.
func ValidMatch(m Match, textLen int) bool {
	if m.Offset < 0 || m.Length < 0 {
		return false
	}
	if m.Offset > textLen || m.Offset+m.Length > textLen {
		return false
	}
	if len(m.Replacements) > 0 && utf8.RuneCountInString(m.Replacements[0].Value) > maxReplacementRunes {
		return false
	}
	return true
}
