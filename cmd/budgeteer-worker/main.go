package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"budgeteer/internal/amqp"
	"budgeteer/internal/backend"
	"budgeteer/internal/cli"
	"budgeteer/internal/config"
	applog "budgeteer/internal/log"
	"budgeteer/internal/services"
	"budgeteer/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(nil, applog.ComponentWorker, nil)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg, applog.ComponentWorker, nil)

	logger.InfoContext(context.Background(), "Starting budgeteer-worker")

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.ErrorContext(ctx, "Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.InfoContext(context.Background(), "Worker stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid backend configuration: %w", err)
	}
	if bcfg.Type == backend.MemoryBackend {
		logger.WarnContext(ctx, "Memory backend is private to this process; summaries will only cover seeded users")
	}

	factory := backend.NewFactory(logger)
	res, err := factory.CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	writer, err := factory.CreateSummaryWriter(ctx, bcfg)
	if err != nil {
		return err
	}

	// a cache here would hide changes made by the API process
	summaries := services.NewSummaryService(res.Store, res.Store, 0, cfg.SummaryCacheTTL)
	w := worker.NewSummaryWorker(summaries, res.Store, writer)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("failed to initialize AMQP client: %w", err)
		}
		defer client.Close()

		g.Go(func() error {
			err := client.ConsumeLedgerChanged(gctx, w.HandleLedgerChanged)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.InfoContext(ctx, "AMQP not configured, relying on periodic refresh only",
			"sync_interval", cfg.SyncInterval.String())
	}

	g.Go(func() error {
		return w.Run(gctx, cfg.SyncInterval)
	})

	return g.Wait()
}
