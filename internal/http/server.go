// Package http serves the budgeteer JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgeteer/internal/auth"
	applog "budgeteer/internal/log"
	"budgeteer/internal/middleware/ratelimit"
	"budgeteer/internal/middleware/security"
	"budgeteer/internal/middleware/trace"
	"budgeteer/internal/ports"
	"budgeteer/internal/services"
)

const (
	defaultMaxUploadBytes = 10 << 20
	readyTimeout          = 5 * time.Second
)

// Options configures NewServer.
type Options struct {
	Addr               string
	RateLimitPerMinute int
	MaxUploadBytes     int64
	Logger             *applog.Logger
}

// Services are the application services the handlers call.
type Services struct {
	Ledger    *services.LedgerService
	Budgets   *services.BudgetService
	Summaries *services.SummaryService
}

type Server struct {
	*http.Server

	ledger    *services.LedgerService
	budgets   *services.BudgetService
	summaries *services.SummaryService
	store     ports.Store
	resolver  *auth.Resolver

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	maxUploadBytes int64
	started        time.Time
	now            func() time.Time
	shutdownOnce   sync.Once
}

// NewServer wires the routes and middleware. The store resolves API tokens
// and backs the readiness probe.
func NewServer(opts Options, store ports.Store, svc Services) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.Logger == nil {
		opts.Logger = applog.FromContext(context.Background())
	}
	logger := opts.Logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		ledger:         svc.Ledger,
		budgets:        svc.Budgets,
		summaries:      svc.Summaries,
		store:          store,
		resolver:       auth.NewResolver(store),
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:       security.NewDetector(),
		maxUploadBytes: opts.MaxUploadBytes,
		started:        time.Now(),
		now:            time.Now,
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	s.Server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("DELETE /api/transactions", s.handleDeleteAllTransactions)
	api.HandleFunc("PATCH /api/transactions/{id}", s.handleUpdateTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	api.HandleFunc("POST /api/transactions/batch", s.handleCreateBatch)
	api.HandleFunc("POST /api/transactions/upload", s.handleUpload)

	api.HandleFunc("GET /api/budgets", s.handleListBudgets)
	api.HandleFunc("POST /api/budgets", s.handleUpsertBudget)
	api.HandleFunc("DELETE /api/budgets", s.handleDeleteAllBudgets)
	api.HandleFunc("PATCH /api/budgets/{id}", s.handleUpdateBudget)
	api.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)

	api.HandleFunc("GET /api/summary", s.handleSummary)
	api.HandleFunc("GET /api/categorize", s.handleCategorize)

	limited := s.limiter.Middleware(s.rateLimitKey, s.onRateLimit)(api)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("/api/", s.requireUser(limited))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	return s.tracer.Middleware(headers.Middleware(s.detector.Middleware(mux)))
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
