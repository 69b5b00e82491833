// Package ports declares the interfaces the services depend on. Every
// operation is scoped to an owner; records of other owners are reported as
// not found.
package ports

import (
	"context"

	"budgeteer/internal/core"
)

// Ports for outbound adapters.
type (
	TransactionStore interface {
		// FindTransactions lists the owner's transactions newest first. A nil
		// range returns all of them.
		FindTransactions(ctx context.Context, ownerID string, r *core.DateRange) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error)
		CreateTransaction(ctx context.Context, ownerID string, tx core.Transaction) (core.Transaction, error)
		// CreateTransactions inserts all records or none.
		CreateTransactions(ctx context.Context, ownerID string, txs []core.Transaction) (int, error)
		UpdateTransaction(ctx context.Context, ownerID, id string, patch core.TransactionPatch) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, ownerID, id string) error
		DeleteAllTransactions(ctx context.Context, ownerID string) (int, error)
	}

	BudgetStore interface {
		// FindBudgets lists the owner's budgets ordered by category.
		FindBudgets(ctx context.Context, ownerID string) ([]core.Budget, error)
		// UpsertBudget keeps at most one budget per core.ResolveUpsertKey.
		UpsertBudget(ctx context.Context, ownerID string, category core.Category, limit core.Money) (core.Budget, error)
		UpdateBudget(ctx context.Context, ownerID, id string, patch core.BudgetPatch) (core.Budget, error)
		DeleteBudget(ctx context.Context, ownerID, id string) error
		DeleteAllBudgets(ctx context.Context, ownerID string) (int, error)
	}

	UserStore interface {
		// CreateUser returns the new user and its API token. The token is not
		// retrievable afterwards.
		CreateUser(ctx context.Context, email string) (core.User, string, error)
		UserByToken(ctx context.Context, token string) (core.User, error)
		// ListUsers returns every user ordered by email.
		ListUsers(ctx context.Context) ([]core.User, error)
	}

	Store interface {
		TransactionStore
		BudgetStore
		UserStore
		Ping(ctx context.Context) error
		Close() error
	}

	// SummaryWriter exports a computed monthly summary.
	SummaryWriter interface {
		WriteSummary(ctx context.Context, ownerID string, s core.MonthlySummary) error
	}

	// ChangePublisher announces ledger mutations to other processes.
	ChangePublisher interface {
		PublishLedgerChanged(ctx context.Context, ownerID string, months []core.YearMonth, reason string) error
	}
)
