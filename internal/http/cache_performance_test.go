package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"budgeteer/internal/core"
	"budgeteer/internal/services"
	"budgeteer/internal/storage/memory"
)

func newBenchServer(b *testing.B, cacheSize int) (*Server, string) {
	b.Helper()
	ctx := context.Background()
	store := memory.New()
	u, token, err := store.CreateUser(ctx, "bench@example.com")
	if err != nil {
		b.Fatal(err)
	}
	txs := make([]core.Transaction, 0, 500)
	for i := 0; i < 500; i++ {
		txs = append(txs, core.Transaction{
			Date:        core.NewDate(2024, 1, 1+i%28),
			Description: fmt.Sprintf("Merchant %d", i),
			Amount:      core.Money{Cents: -int64(100 + i)},
			Category:    core.Categories()[i%len(core.Categories())],
		})
	}
	if _, err := store.CreateTransactions(ctx, u.ID, txs); err != nil {
		b.Fatal(err)
	}
	if _, err := store.UpsertBudget(ctx, u.ID, core.Groceries, core.Money{Cents: 50000}); err != nil {
		b.Fatal(err)
	}

	summaries := services.NewSummaryService(store, store, cacheSize, time.Hour)
	srv := NewServer(Options{}, store, Services{
		Ledger:    services.NewLedgerService(store, summaries, nil),
		Budgets:   services.NewBudgetService(store, summaries, nil),
		Summaries: summaries,
	})
	b.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv, token
}

func benchmarkSummary(b *testing.B, cacheSize int) {
	srv, token := newBenchServer(b, cacheSize)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/summary?year=2024&month=1", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			b.Fatalf("status %d: %s", rr.Code, rr.Body.String())
		}
	}
}

func BenchmarkSummaryEndpoint_Cached(b *testing.B)   { benchmarkSummary(b, 64) }
func BenchmarkSummaryEndpoint_Uncached(b *testing.B) { benchmarkSummary(b, 0) }
