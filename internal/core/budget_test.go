package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBudget(t *testing.T) {
	b, err := NormalizeBudget(BudgetInput{Category: "groceries", Limit: "150"})
	require.NoError(t, err)
	assert.Equal(t, Groceries, b.Category)
	assert.Equal(t, cents(150), b.Limit)

	tests := []struct {
		name    string
		in      BudgetInput
		field   string
		wantErr error
	}{
		{"negative limit", BudgetInput{Category: "Groceries", Limit: "-1"}, "limit", ErrNegativeLimit},
		{"uncategorized", BudgetInput{Category: "Uncategorized", Limit: "1"}, "category", ErrUnknownCategory},
		{"missing category", BudgetInput{Category: "  ", Limit: "1"}, "category", ErrMissingField},
		{"missing limit", BudgetInput{Category: "Gas"}, "limit", ErrMissingField},
		{"sub-cent limit", BudgetInput{Category: "Gas", Limit: "10.005"}, "limit", ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeBudget(tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestNormalizeBudget_JSONLimit(t *testing.T) {
	var in BudgetInput
	require.NoError(t, json.Unmarshal([]byte(`{"category":"Gas","limit":2.5e2}`), &in))
	b, err := NormalizeBudget(in)
	require.NoError(t, err)
	assert.Equal(t, cents(250), b.Limit)
}

func TestResolveUpsertKey(t *testing.T) {
	assert.Equal(t, ResolveUpsertKey("u1", Gas), ResolveUpsertKey("u1", Gas))
	assert.NotEqual(t, ResolveUpsertKey("u1", Gas), ResolveUpsertKey("u2", Gas))
	assert.NotEqual(t, ResolveUpsertKey("u1", Gas), ResolveUpsertKey("u1", Groceries))
	assert.Equal(t, "u1/Gas", ResolveUpsertKey("u1", Gas).String())
}
