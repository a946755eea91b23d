package correct

import (
	"sort"
	"strings"
)

// DefaultRules are the service rules trusted on clinical text: spelling,
// articles, capitalisation and punctuation spacing. Style and premium
// categories are left out.
var DefaultRules = []string{
	"MORFOLOGIK_RULE_EN_US",
	"MORFOLOGIK_RULE_EN_GB",
	"EN_A_VS_AN",
	"UPPERCASE_SENTENCE_START",
	"DOUBLE_PUNCTUATION",
	"COMMA_PARENTHESIS_WHITESPACE",
	"WHITESPACE_RULE",
	"I_LOWERCASE",
	"EN_COMPOUNDS",
	"ENGLISH_WORD_REPEAT_RULE",
}

// AllowList is the immutable set of rule ids whose matches are applied. It is
// safe to share across exports.
type AllowList struct {
	ids map[string]bool
}

func NewAllowList(ids ...string) *AllowList {
	a := &AllowList{ids: make(map[string]bool, len(ids))}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			a.ids[id] = true
		}
	}
	return a
}

func DefaultAllowList() *AllowList {
	return NewAllowList(DefaultRules...)
}

func (a *AllowList) Allows(id string) bool {
	return a != nil && a.ids[id]
}

// Filter keeps the matches whose rule is allowed.
func (a *AllowList) Filter(matches []Match) []Match {
	var out []Match
	for _, m := range matches {
		if a.Allows(m.Rule.ID) {
			out = append(out, m)
		}
	}
	return out
}

// IDs returns the allowed rule ids, sorted.
func (a *AllowList) IDs() []string {
	if a == nil {
		return nil
	}
	out := make([]string, 0, len(a.ids))
	for id := range a.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
