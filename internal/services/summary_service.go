package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"budgeteer/internal/cache"
	"budgeteer/internal/core"
	"budgeteer/internal/ports"
)

type summaryKey struct {
	ownerID string
	month   core.YearMonth
}

// SummaryService computes monthly summaries on demand. Results are cached
// per owner and month and concurrent misses for the same key share one
// computation.
type SummaryService struct {
	transactions ports.TransactionStore
	budgets      ports.BudgetStore
	cache        cache.Cache[summaryKey, core.MonthlySummary]
	cleaner      *cache.LRUCache[summaryKey, core.MonthlySummary]
	group        singleflight.Group

	// generation is bumped on every invalidation of an owner so a
	// computation that raced an invalidation is not cached.
	mu         sync.Mutex
	generation map[string]uint64
}

// NewSummaryService returns a service caching up to cacheSize summaries for
// ttl. A cacheSize below one disables caching.
func NewSummaryService(transactions ports.TransactionStore, budgets ports.BudgetStore, cacheSize int, ttl time.Duration) *SummaryService {
	s := &SummaryService{
		transactions: transactions,
		budgets:      budgets,
		generation:   make(map[string]uint64),
	}
	if cacheSize > 0 {
		lru := cache.NewLRUCache[summaryKey, core.MonthlySummary](cacheSize, ttl)
		s.cache, s.cleaner = lru, lru
	}
	return s
}

// Cleaner exposes the cache to a cache.Manager. It is nil when caching is
// disabled.
func (s *SummaryService) Cleaner() cache.Cleaner {
	if s.cleaner == nil {
		return nil
	}
	return s.cleaner
}

func (s *SummaryService) MonthlySummary(ctx context.Context, ownerID string, year, month int) (core.MonthlySummary, error) {
	ym := core.YearMonth{Year: year, Month: month}
	r, err := ym.Range()
	if err != nil {
		return core.MonthlySummary{}, &core.ValidationError{Field: "month", Err: err}
	}

	key := summaryKey{ownerID: ownerID, month: ym}
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			return cloneSummary(cached), nil
		}
	}

	// A request arriving after an invalidation must not join a computation
	// that may have read the ledger before the write.
	gen := s.currentGeneration(ownerID)
	flightKey := fmt.Sprintf("%s/%s/%d", ownerID, ym.String(), gen)
	v, err, shared := s.group.Do(flightKey, func() (any, error) {
		txs, err := s.transactions.FindTransactions(ctx, ownerID, &r)
		if err != nil {
			return nil, fmt.Errorf("find transactions: %w", err)
		}
		budgets, err := s.budgets.FindBudgets(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("find budgets: %w", err)
		}
		summary := core.Summarize(txs, budgets, month, year)

		if s.cache != nil && s.currentGeneration(ownerID) == gen {
			s.cache.Set(key, summary)
		}
		return summary, nil
	})
	if err != nil {
		return core.MonthlySummary{}, err
	}
	if shared {
		slog.DebugContext(ctx, "Summary computation shared", "owner_id", ownerID, "month", ym.String())
	}
	return cloneSummary(v.(core.MonthlySummary)), nil
}

// Invalidate drops the cached summaries of the given months.
func (s *SummaryService) Invalidate(ownerID string, months ...core.YearMonth) {
	s.bump(ownerID)
	if s.cache == nil {
		return
	}
	for _, ym := range months {
		s.cache.Delete(summaryKey{ownerID: ownerID, month: ym})
	}
}

// InvalidateOwner drops every cached summary of the owner.
func (s *SummaryService) InvalidateOwner(ownerID string) {
	s.bump(ownerID)
	if s.cache == nil {
		return
	}
	s.cache.DeleteFunc(func(k summaryKey) bool { return k.ownerID == ownerID })
}

func (s *SummaryService) bump(ownerID string) {
	s.mu.Lock()
	s.generation[ownerID]++
	s.mu.Unlock()
}

func (s *SummaryService) currentGeneration(ownerID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation[ownerID]
}

func cloneSummary(s core.MonthlySummary) core.MonthlySummary {
	s.CategoryBreakdown = slices.Clone(s.CategoryBreakdown)
	return s
}
