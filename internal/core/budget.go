package core

import (
	"strings"
)

// BudgetKey identifies the single budget an owner may hold for a category.
type BudgetKey struct {
	OwnerID  string
	Category Category
}

func (k BudgetKey) String() string {
	return k.OwnerID + "/" + string(k.Category)
}

// ResolveUpsertKey returns the uniqueness key stores use for budget upserts.
func ResolveUpsertKey(ownerID string, category Category) BudgetKey {
	return BudgetKey{OwnerID: ownerID, Category: category}
}

// BudgetInput is a budget as submitted by a caller.
type BudgetInput struct {
	Category string    `json:"category"`
	Limit    RawAmount `json:"limit"`
}

// NormalizeBudget validates a submitted budget.
func NormalizeBudget(in BudgetInput) (Budget, error) {
	if strings.TrimSpace(in.Category) == "" {
		return Budget{}, &ValidationError{Field: "category", Err: ErrMissingField}
	}
	category, err := ParseCategory(in.Category)
	if err != nil {
		return Budget{}, &ValidationError{Field: "category", Err: err}
	}
	if strings.TrimSpace(string(in.Limit)) == "" {
		return Budget{}, &ValidationError{Field: "limit", Err: ErrMissingField}
	}
	limit, err := ParseNumber(string(in.Limit))
	if err != nil {
		return Budget{}, &ValidationError{Field: "limit", Err: err}
	}
	b := Budget{Category: category, Limit: limit}
	if err := b.Validate(); err != nil {
		return Budget{}, err
	}
	return b, nil
}
