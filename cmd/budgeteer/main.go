package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgeteer/internal/backend"
	"budgeteer/internal/cache"
	"budgeteer/internal/cli"
	apphttp "budgeteer/internal/http"
	applog "budgeteer/internal/log"
	"budgeteer/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
	cacheSweepEvery = time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(nil, applog.ComponentApp, nil)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg, applog.ComponentApp, nil)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger)

	res, err := factory.CreateBackend(ctx, bcfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	publisher, closePublisher, err := factory.CreatePublisher(ctx, bcfg)
	if err != nil {
		// the API keeps serving; summaries are still invalidated locally
		logger.WarnContext(ctx, "Continuing without ledger change publishing", applog.FieldError, err)
		publisher, closePublisher = nil, nil
	}

	summaries := services.NewSummaryService(res.Store, res.Store, cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	caches := cache.NewManager()
	if c := summaries.Cleaner(); c != nil {
		caches.Register(c)
	}
	caches.StartCleanup(ctx, cacheSweepEvery)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		Logger:             logger,
	}, res.Store, apphttp.Services{
		Ledger:    services.NewLedgerService(res.Store, summaries, publisher),
		Budgets:   services.NewBudgetService(res.Store, summaries, publisher),
		Summaries: summaries,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "Starting budgeteer server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"amqp_enabled", publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	runErr := g.Wait()

	caches.Stop()
	cli.RunCleanup(logger, shutdownTimeout,
		func(context.Context) error {
			if closePublisher == nil {
				return nil
			}
			return closePublisher()
		},
		func(context.Context) error { return res.Cleanup() },
	)

	if runErr != nil {
		logger.ErrorContext(ctx, "Server error", applog.FieldError, runErr, "port", cfg.Port)
		os.Exit(1)
	}
}
