package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"budgeteer/internal/core"
)

var budgetsTable = ownedTable{
	name:     "budgets",
	resource: "budget",
	columns:  "id, owner_id, category, limit_cents",
}

func scanBudget(s rowScanner) (core.Budget, error) {
	var (
		b        core.Budget
		category string
	)
	if err := s.Scan(&b.ID, &b.OwnerID, &category, &b.Limit.Cents); err != nil {
		return core.Budget{}, err
	}
	b.Category = core.Category(category)
	return b, nil
}

// FindBudgets implements ports.BudgetStore
func (r *Repository) FindBudgets(ctx context.Context, ownerID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		r.dialect.rebind("SELECT "+budgetsTable.columns+" FROM budgets WHERE owner_id = ? ORDER BY category ASC"),
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	out := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

// UpsertBudget relies on UNIQUE(owner_id, category), the column form of
// core.ResolveUpsertKey.
func (r *Repository) UpsertBudget(ctx context.Context, ownerID string, category core.Category, limit core.Money) (core.Budget, error) {
	b := core.Budget{OwnerID: ownerID, Category: category, Limit: limit}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	key := core.ResolveUpsertKey(ownerID, category)
	row := r.db.QueryRowContext(ctx, r.dialect.rebind(`INSERT INTO budgets (id, owner_id, category, limit_cents)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (owner_id, category) DO UPDATE SET limit_cents = excluded.limit_cents
		RETURNING `+budgetsTable.columns),
		uuid.NewString(), key.OwnerID, string(key.Category), limit.Cents)
	saved, err := scanBudget(row)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget %s: %w", key, err)
	}
	return saved, nil
}

func (r *Repository) UpdateBudget(ctx context.Context, ownerID, id string, patch core.BudgetPatch) (core.Budget, error) {
	var updated core.Budget
	err := r.withTx(ctx, func(dbtx *sql.Tx) error {
		current, err := getOwned(ctx, r, dbtx, budgetsTable, scanBudget, ownerID, id)
		if err != nil {
			return err
		}
		next := patch.Apply(current)
		if err := next.Validate(); err != nil {
			return err
		}
		_, err = dbtx.ExecContext(ctx,
			r.dialect.rebind("UPDATE budgets SET category = ?, limit_cents = ? WHERE id = ? AND owner_id = ?"),
			string(next.Category), next.Limit.Cents, id, ownerID)
		if isUniqueViolation(err) {
			return &core.ValidationError{Field: "category", Err: core.ErrBudgetExists}
		}
		if err != nil {
			return fmt.Errorf("update budget: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return core.Budget{}, err
	}
	return updated, nil
}

func (r *Repository) DeleteBudget(ctx context.Context, ownerID, id string) error {
	return r.deleteOwned(ctx, budgetsTable, ownerID, id)
}

func (r *Repository) DeleteAllBudgets(ctx context.Context, ownerID string) (int, error) {
	return r.deleteAllOwned(ctx, budgetsTable, ownerID)
}
