package services

import (
	"strings"

	"budgeteer/internal/core"
)

// Suggestion is the category proposed for a manually entered transaction.
type Suggestion struct {
	Category core.Category `json:"category"`
	Matched  bool          `json:"matched"`
	Label    string        `json:"label"`
}

// Suggest runs the keyword categorizer for clients that let a user pick a
// category before saving.
func Suggest(description, subDescription string) Suggestion {
	var sub *string
	if strings.TrimSpace(subDescription) != "" {
		sub = &subDescription
	}
	c, ok := core.Categorize(description, sub)
	return Suggestion{Category: c, Matched: ok, Label: c.Label()}
}
