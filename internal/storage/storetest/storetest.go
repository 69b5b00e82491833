// Package storetest holds behaviour checks every ports.Store must pass.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgeteer/internal/core"
	"budgeteer/internal/ports"
)

// Run exercises newStore against the shared store contract. newStore must
// return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) ports.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("transaction ownership", func(t *testing.T) { testTransactionOwnership(t, newStore(t)) })
	t.Run("budget upsert", func(t *testing.T) { testBudgetUpsert(t, newStore(t)) })
	t.Run("budget ownership", func(t *testing.T) { testBudgetOwnership(t, newStore(t)) })
}

func mustUser(t *testing.T, s ports.Store, email string) core.User {
	t.Helper()
	u, _, err := s.CreateUser(context.Background(), email)
	require.NoError(t, err)
	return u
}

func sub(s string) *string { return &s }

func testUsers(t *testing.T, s ports.Store) {
	ctx := context.Background()
	u, token, err := s.CreateUser(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEmpty(t, token)

	got, err := s.UserByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.UserByToken(ctx, "bogus")
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	_, _, err = s.CreateUser(ctx, "alice@example.com")
	assert.ErrorIs(t, err, core.ErrUserExists)

	_, _, err = s.CreateUser(ctx, "nope")
	assert.ErrorIs(t, err, core.ErrInvalidEmail)

	b := mustUser(t, s, "Aaron@example.com")
	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, b.ID, users[0].ID)
	assert.Equal(t, u.ID, users[1].ID)
}

func testTransactions(t *testing.T, s ports.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "a@example.com")

	first, err := s.CreateTransaction(ctx, u.ID, core.Transaction{
		Date:           core.NewDate(2024, 1, 15),
		Description:    "Shell gas",
		SubDescription: sub("pump 4"),
		Amount:         core.Money{Cents: -4500},
		Category:       core.Gas,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, u.ID, first.OwnerID)

	n, err := s.CreateTransactions(ctx, u.ID, []core.Transaction{
		{Date: core.NewDate(2024, 1, 31), Description: "Pay", Amount: core.Money{Cents: 200000}},
		{Date: core.NewDate(2024, 2, 1), Description: "Rent", Amount: core.Money{Cents: -120000}, Category: core.Rent},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.CreateTransactions(ctx, u.ID, []core.Transaction{
		{Date: core.NewDate(2024, 1, 1), Description: "ok", Amount: core.Money{Cents: 1}},
		{Date: core.NewDate(2024, 1, 1), Description: "", Amount: core.Money{Cents: 1}},
	})
	assert.True(t, core.IsValidation(err))

	all, err := s.FindTransactions(ctx, u.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, 3, "a rejected batch inserts nothing")
	assert.Equal(t, core.NewDate(2024, 2, 1), all[0].Date)
	assert.Equal(t, core.NewDate(2024, 1, 15), all[2].Date)
	require.NotNil(t, all[2].SubDescription)
	assert.Equal(t, "pump 4", *all[2].SubDescription)
	assert.Equal(t, core.Gas, all[2].Category)
	assert.Equal(t, core.Uncategorized, all[1].Category)

	jan, err := core.MonthRange(2024, 1)
	require.NoError(t, err)
	inJan, err := s.FindTransactions(ctx, u.ID, &jan)
	require.NoError(t, err)
	assert.Len(t, inJan, 2)

	desc := "Shell"
	var clear *string
	cat := core.Uncategorized
	amount := core.Money{Cents: -5000}
	updated, err := s.UpdateTransaction(ctx, u.ID, first.ID, core.TransactionPatch{
		Description:    &desc,
		SubDescription: &clear,
		Category:       &cat,
		Amount:         &amount,
	})
	require.NoError(t, err)
	assert.Equal(t, "Shell", updated.Description)
	assert.Nil(t, updated.SubDescription)
	assert.Equal(t, core.Uncategorized, updated.Category)
	assert.Equal(t, int64(-5000), updated.Amount.Cents)
	assert.Equal(t, first.Date, updated.Date)

	got, err := s.GetTransaction(ctx, u.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	require.NoError(t, s.DeleteTransaction(ctx, u.ID, first.ID))
	assert.ErrorIs(t, s.DeleteTransaction(ctx, u.ID, first.ID), core.ErrNotFound)

	deleted, err := s.DeleteAllTransactions(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	all, err = s.FindTransactions(ctx, u.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.NotNil(t, all)
}

func testTransactionOwnership(t *testing.T, s ports.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice@example.com")
	bob := mustUser(t, s, "bob@example.com")

	tx, err := s.CreateTransaction(ctx, alice.ID, core.Transaction{
		Date: core.NewDate(2024, 3, 1), Description: "Costco", Amount: core.Money{Cents: -100},
	})
	require.NoError(t, err)

	_, err = s.GetTransaction(ctx, bob.ID, tx.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.GetTransaction(ctx, bob.ID, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	desc := "stolen"
	_, err = s.UpdateTransaction(ctx, bob.ID, tx.ID, core.TransactionPatch{Description: &desc})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTransaction(ctx, bob.ID, tx.ID), core.ErrNotFound)

	n, err := s.DeleteAllTransactions(ctx, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	list, err := s.FindTransactions(ctx, bob.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := s.GetTransaction(ctx, alice.ID, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "Costco", got.Description)
}

func testBudgetUpsert(t *testing.T, s ports.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "a@example.com")

	first, err := s.UpsertBudget(ctx, u.ID, core.Groceries, core.Money{Cents: 10000})
	require.NoError(t, err)
	second, err := s.UpsertBudget(ctx, u.ID, core.Groceries, core.Money{Cents: 25000})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(25000), second.Limit.Cents)

	_, err = s.UpsertBudget(ctx, u.ID, core.Dining, core.Money{})
	require.NoError(t, err)

	budgets, err := s.FindBudgets(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, budgets, 2)
	assert.Equal(t, core.Dining, budgets[0].Category)
	assert.Equal(t, core.Groceries, budgets[1].Category)
	assert.Equal(t, int64(25000), budgets[1].Limit.Cents)

	_, err = s.UpsertBudget(ctx, u.ID, core.Gas, core.Money{Cents: -1})
	assert.ErrorIs(t, err, core.ErrNegativeLimit)

	dining := core.Dining
	_, err = s.UpdateBudget(ctx, u.ID, second.ID, core.BudgetPatch{Category: &dining})
	assert.ErrorIs(t, err, core.ErrBudgetExists)

	travel := core.Travel
	limit := core.Money{Cents: 500}
	moved, err := s.UpdateBudget(ctx, u.ID, second.ID, core.BudgetPatch{Category: &travel, Limit: &limit})
	require.NoError(t, err)
	assert.Equal(t, core.Travel, moved.Category)
	assert.Equal(t, int64(500), moved.Limit.Cents)

	require.NoError(t, s.DeleteBudget(ctx, u.ID, moved.ID))
	n, err := s.DeleteAllBudgets(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testBudgetOwnership(t *testing.T, s ports.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice@example.com")
	bob := mustUser(t, s, "bob@example.com")

	a, err := s.UpsertBudget(ctx, alice.ID, core.Rent, core.Money{Cents: 1})
	require.NoError(t, err)
	b, err := s.UpsertBudget(ctx, bob.ID, core.Rent, core.Money{Cents: 2})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID, "keys are per owner")

	limit := core.Money{Cents: 9}
	_, err = s.UpdateBudget(ctx, bob.ID, a.ID, core.BudgetPatch{Limit: &limit})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.DeleteBudget(ctx, bob.ID, a.ID), core.ErrNotFound)

	budgets, err := s.FindBudgets(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, int64(1), budgets[0].Limit.Cents)
}
