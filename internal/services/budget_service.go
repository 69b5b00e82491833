package services

import (
	"context"
	"fmt"

	"budgeteer/internal/core"
	"budgeteer/internal/ports"
)

// BudgetService owns budget mutations. A budget applies to every month, so
// any change drops all of the owner's cached summaries.
type BudgetService struct {
	store     ports.BudgetStore
	summaries *SummaryService
	publisher ports.ChangePublisher
}

func NewBudgetService(store ports.BudgetStore, summaries *SummaryService, publisher ports.ChangePublisher) *BudgetService {
	return &BudgetService{store: store, summaries: summaries, publisher: publisher}
}

func (s *BudgetService) List(ctx context.Context, ownerID string) ([]core.Budget, error) {
	budgets, err := s.store.FindBudgets(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

// Upsert creates the owner's budget for the category or replaces its limit.
func (s *BudgetService) Upsert(ctx context.Context, ownerID string, in core.BudgetInput) (core.Budget, error) {
	b, err := core.NormalizeBudget(in)
	if err != nil {
		return core.Budget{}, err
	}
	saved, err := s.store.UpsertBudget(ctx, ownerID, b.Category, b.Limit)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	s.changed(ctx, ownerID)
	return saved, nil
}

func (s *BudgetService) Update(ctx context.Context, ownerID, id string, patch core.BudgetPatch) (core.Budget, error) {
	if patch.Category != nil && !patch.Category.Valid() {
		return core.Budget{}, &core.ValidationError{Field: "category", Err: core.ErrUnknownCategory}
	}
	if patch.Limit != nil && patch.Limit.Cents < 0 {
		return core.Budget{}, &core.ValidationError{Field: "limit", Err: core.ErrNegativeLimit}
	}
	b, err := s.store.UpdateBudget(ctx, ownerID, id, patch)
	if err != nil {
		return core.Budget{}, err
	}
	s.changed(ctx, ownerID)
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteBudget(ctx, ownerID, id); err != nil {
		return err
	}
	s.changed(ctx, ownerID)
	return nil
}

func (s *BudgetService) DeleteAll(ctx context.Context, ownerID string) (int, error) {
	n, err := s.store.DeleteAllBudgets(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete budgets: %w", err)
	}
	if n > 0 {
		s.changed(ctx, ownerID)
	}
	return n, nil
}

// changed publishes an event without months; consumers refresh the current
// month.
func (s *BudgetService) changed(ctx context.Context, ownerID string) {
	if s.summaries != nil {
		s.summaries.InvalidateOwner(ownerID)
	}
	publish(ctx, s.publisher, ownerID, nil, ReasonBudgetChanged)
}
