package correct

import "context"

// Match is one suggested edit. Offset and Length count Unicode scalar values
// in the paragraph's concatenated text.
type Match struct {
	Offset       int           `json:"offset"`
	Length       int           `json:"length"`
	Replacements []Replacement `json:"replacements"`
	Rule         Rule          `json:"rule"`
	Message      string        `json:"message,omitempty"`
}

type Replacement struct {
	Value string `json:"value"`
}

type Rule struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
}

// Checker is the correction service.
type Checker interface {
	Check(ctx context.Context, text, language string) ([]Match, error)
}
