package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"budgeteer/internal/core"
)

var transactionsTable = ownedTable{
	name:     "transactions",
	resource: "transaction",
	columns:  "id, owner_id, date, description, sub_description, amount_cents, category",
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		tx       core.Transaction
		date     string
		sub      sql.NullString
		category sql.NullString
	)
	if err := s.Scan(&tx.ID, &tx.OwnerID, &date, &tx.Description, &sub, &tx.Amount.Cents, &category); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	tx.Date = d
	tx.SubDescription = stringPtr(sub)
	tx.Category = core.Category(category.String)
	return tx, nil
}

func categoryValue(c core.Category) sql.NullString {
	if c == core.Uncategorized {
		return sql.NullString{}
	}
	return sql.NullString{String: string(c), Valid: true}
}

// FindTransactions implements ports.TransactionStore
func (r *Repository) FindTransactions(ctx context.Context, ownerID string, dr *core.DateRange) ([]core.Transaction, error) {
	query := "SELECT " + transactionsTable.columns + " FROM transactions WHERE owner_id = ?"
	args := []any{ownerID}
	if dr != nil {
		query += " AND date >= ? AND date <= ?"
		args = append(args, dr.From.Format(core.DateLayout), dr.To.Format(core.DateLayout))
	}
	query += " ORDER BY date DESC, seq DESC"

	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *Repository) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	return getOwned(ctx, r, r.db, transactionsTable, scanTransaction, ownerID, id)
}

const insertTransaction = `INSERT INTO transactions
	(id, owner_id, date, description, sub_description, amount_cents, category)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

func (r *Repository) insertTransaction(ctx context.Context, q querier, ownerID string, tx core.Transaction) (core.Transaction, error) {
	tx.ID = uuid.NewString()
	tx.OwnerID = ownerID
	_, err := q.ExecContext(ctx, r.dialect.rebind(insertTransaction),
		tx.ID, tx.OwnerID, tx.Date.String(), tx.Description, nullString(tx.SubDescription),
		tx.Amount.Cents, categoryValue(tx.Category))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, ownerID string, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	created, err := r.insertTransaction(ctx, r.db, ownerID, tx)
	if err != nil {
		return core.Transaction{}, err
	}
	slog.DebugContext(ctx, "Transaction saved",
		"id", created.ID,
		"owner_id", ownerID,
		"amount_cents", created.Amount.Cents)
	return created, nil
}

// CreateTransactions inserts txs in a single database transaction.
func (r *Repository) CreateTransactions(ctx context.Context, ownerID string, txs []core.Transaction) (int, error) {
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			if ve, ok := err.(*core.ValidationError); ok {
				ve.Row = i + 1
			}
			return 0, err
		}
	}
	err := r.withTx(ctx, func(dbtx *sql.Tx) error {
		stmt, err := dbtx.PrepareContext(ctx, r.dialect.rebind(insertTransaction))
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()
		for _, tx := range txs {
			_, err := stmt.ExecContext(ctx,
				uuid.NewString(), ownerID, tx.Date.String(), tx.Description, nullString(tx.SubDescription),
				tx.Amount.Cents, categoryValue(tx.Category))
			if err != nil {
				return fmt.Errorf("insert transaction: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(txs), nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, ownerID, id string, patch core.TransactionPatch) (core.Transaction, error) {
	var updated core.Transaction
	err := r.withTx(ctx, func(dbtx *sql.Tx) error {
		current, err := getOwned(ctx, r, dbtx, transactionsTable, scanTransaction, ownerID, id)
		if err != nil {
			return err
		}
		next := patch.Apply(current)
		if err := next.Validate(); err != nil {
			return err
		}
		_, err = dbtx.ExecContext(ctx, r.dialect.rebind(`UPDATE transactions
			SET date = ?, description = ?, sub_description = ?, amount_cents = ?, category = ?
			WHERE id = ? AND owner_id = ?`),
			next.Date.String(), next.Description, nullString(next.SubDescription),
			next.Amount.Cents, categoryValue(next.Category), id, ownerID)
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return updated, nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	return r.deleteOwned(ctx, transactionsTable, ownerID, id)
}

func (r *Repository) DeleteAllTransactions(ctx context.Context, ownerID string) (int, error) {
	return r.deleteAllOwned(ctx, transactionsTable, ownerID)
}
