package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"budgeteer/internal/auth"
	"budgeteer/internal/backend"
	"budgeteer/internal/core"
	"budgeteer/internal/ports"
	"budgeteer/internal/services"
)

// openStore opens the configured store. The returned func closes it.
func openStore(ctx context.Context) (ports.Store, func(), error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}
	return res.Store, func() {
		if err := res.Cleanup(); err != nil {
			logger.WarnContext(ctx, "Failed to close store", "error", err)
		}
	}, nil
}

// resolveOwner maps --token (or BUDGETEER_TOKEN) to the owner it belongs to.
func resolveOwner(ctx context.Context, store ports.UserStore) (core.User, error) {
	token := viper.GetString("budgeteer_token")
	if token == "" {
		return core.User{}, errors.New("an owner token is required: pass --token or set BUDGETEER_TOKEN")
	}
	u, err := auth.NewResolver(store).Resolve(ctx, "Bearer "+token)
	if err != nil {
		return core.User{}, fmt.Errorf("resolve owner: %w", err)
	}
	return u, nil
}

// newServices builds uncached services that publish nothing.
func newServices(store ports.Store) (*services.LedgerService, *services.BudgetService, *services.SummaryService) {
	summaries := services.NewSummaryService(store, store, 0, cfg.SummaryCacheTTL)
	return services.NewLedgerService(store, summaries, nil),
		services.NewBudgetService(store, summaries, nil),
		summaries
}
