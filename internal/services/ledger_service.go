// Package services orchestrates the ledger: it validates input with core,
// persists through the store ports, keeps cached summaries fresh and
// announces changes to other processes.
package services

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"budgeteer/internal/core"
	"budgeteer/internal/ports"
)

// Reasons published with ledger change events.
const (
	ReasonTransactionCreated = "transaction_created"
	ReasonTransactionUpdated = "transaction_updated"
	ReasonTransactionDeleted = "transaction_deleted"
	ReasonImported           = "imported"
	ReasonBudgetChanged      = "budget_changed"
	ReasonCleared            = "cleared"
)

// ImportResult reports a stored import.
type ImportResult struct {
	Created         int `json:"created"`
	AutoCategorized int `json:"categorizedCount"`
}

// LedgerService owns transaction mutations.
type LedgerService struct {
	store     ports.TransactionStore
	summaries *SummaryService
	publisher ports.ChangePublisher
}

// NewLedgerService wires the service. summaries and publisher may be nil.
func NewLedgerService(store ports.TransactionStore, summaries *SummaryService, publisher ports.ChangePublisher) *LedgerService {
	return &LedgerService{store: store, summaries: summaries, publisher: publisher}
}

// List returns the owner's transactions newest first, restricted to month
// when given.
func (s *LedgerService) List(ctx context.Context, ownerID string, month *core.YearMonth) ([]core.Transaction, error) {
	var r *core.DateRange
	if month != nil {
		mr, err := month.Range()
		if err != nil {
			return nil, &core.ValidationError{Field: "month", Err: err}
		}
		r = &mr
	}
	txs, err := s.store.FindTransactions(ctx, ownerID, r)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Create stores a manually entered transaction. The category is never
// inferred here; clients ask Suggest for one.
func (s *LedgerService) Create(ctx context.Context, ownerID string, in core.TransactionInput) (core.Transaction, error) {
	tx, err := core.NormalizeSingle(in)
	if err != nil {
		return core.Transaction{}, err
	}
	created, err := s.store.CreateTransaction(ctx, ownerID, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.changed(ctx, ownerID, core.MonthsOf(created), ReasonTransactionCreated)
	return created, nil
}

// CreateBatch stores programmatically submitted records all or nothing.
func (s *LedgerService) CreateBatch(ctx context.Context, ownerID string, inputs []core.TransactionInput) (int, error) {
	txs, err := core.NormalizeInputs(inputs)
	if err != nil {
		return 0, err
	}
	return s.storeAll(ctx, ownerID, txs, ReasonTransactionCreated)
}

// PreviewImport normalizes rows without storing them.
func (s *LedgerService) PreviewImport(_ context.Context, rows iter.Seq2[core.RawRow, error]) (core.Batch, error) {
	return core.NormalizeBatch(rows)
}

// Import normalizes and stores rows. A parse or validation failure on any
// row stores nothing.
func (s *LedgerService) Import(ctx context.Context, ownerID string, rows iter.Seq2[core.RawRow, error]) (ImportResult, error) {
	batch, err := core.NormalizeBatch(rows)
	if err != nil {
		return ImportResult{}, err
	}
	n, err := s.storeAll(ctx, ownerID, batch.Transactions, ReasonImported)
	if err != nil {
		return ImportResult{}, err
	}
	slog.InfoContext(ctx, "Transactions imported",
		"owner_id", ownerID,
		"created", n,
		"categorized", batch.AutoCategorized)
	return ImportResult{Created: n, AutoCategorized: batch.AutoCategorized}, nil
}

func (s *LedgerService) storeAll(ctx context.Context, ownerID string, txs []core.Transaction, reason string) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}
	n, err := s.store.CreateTransactions(ctx, ownerID, txs)
	if err != nil {
		return 0, fmt.Errorf("create transactions: %w", err)
	}
	s.changed(ctx, ownerID, core.MonthsOf(txs...), reason)
	return n, nil
}

func (s *LedgerService) Update(ctx context.Context, ownerID, id string, patch core.TransactionPatch) (core.Transaction, error) {
	before, err := s.store.GetTransaction(ctx, ownerID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if patch.IsEmpty() {
		return before, nil
	}
	after, err := s.store.UpdateTransaction(ctx, ownerID, id, patch)
	if err != nil {
		return core.Transaction{}, err
	}
	s.changed(ctx, ownerID, core.MonthsOf(before, after), ReasonTransactionUpdated)
	return after, nil
}

func (s *LedgerService) Delete(ctx context.Context, ownerID, id string) error {
	tx, err := s.store.GetTransaction(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, ownerID, id); err != nil {
		return err
	}
	s.changed(ctx, ownerID, core.MonthsOf(tx), ReasonTransactionDeleted)
	return nil
}

// DeleteAll removes every transaction of the owner and reports how many were
// removed.
func (s *LedgerService) DeleteAll(ctx context.Context, ownerID string) (int, error) {
	existing, err := s.store.FindTransactions(ctx, ownerID, nil)
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}
	n, err := s.store.DeleteAllTransactions(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}
	if n > 0 {
		s.changed(ctx, ownerID, core.MonthsOf(existing...), ReasonCleared)
	}
	return n, nil
}

// changed invalidates cached summaries and publishes the change. Publish
// failures are logged; the mutation has already been stored.
func (s *LedgerService) changed(ctx context.Context, ownerID string, months []core.YearMonth, reason string) {
	if s.summaries != nil {
		s.summaries.Invalidate(ownerID, months...)
	}
	publish(ctx, s.publisher, ownerID, months, reason)
}

func publish(ctx context.Context, p ports.ChangePublisher, ownerID string, months []core.YearMonth, reason string) {
	if p == nil {
		slog.DebugContext(ctx, "Change publisher not configured, skipping event", "reason", reason)
		return
	}
	if err := p.PublishLedgerChanged(ctx, ownerID, months, reason); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger change",
			"owner_id", ownerID,
			"reason", reason,
			"error", err)
	}
}
