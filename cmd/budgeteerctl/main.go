package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"budgeteer/internal/cli"
	"budgeteer/internal/config"
	applog "budgeteer/internal/log"
)

var (
	cfg     *config.Config
	logger  *applog.Logger
	rootCmd = &cobra.Command{
		Use:   "budgeteerctl",
		Short: "Administer a budgeteer ledger",
		Long: `budgeteerctl runs schema migrations, manages API users and works with
an owner's ledger directly against the configured store.

Settings come from the same environment variables as the server; flags
override them.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("backend", "", "data backend (memory, sqlite, postgres)")
	flags.String("sqlite-path", "", "SQLite database file")
	flags.String("postgres-dsn", "", "Postgres connection URL")
	flags.String("data-dir", "", "seed directory for the memory backend")
	flags.String("token", "", "API token of the owner to act as")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")

	_ = viper.BindPFlag("data_backend", flags.Lookup("backend"))
	_ = viper.BindPFlag("sqlite_db_path", flags.Lookup("sqlite-path"))
	_ = viper.BindPFlag("postgres_dsn", flags.Lookup("postgres-dsn"))
	_ = viper.BindPFlag("data_dir", flags.Lookup("data-dir"))
	_ = viper.BindPFlag("budgeteer_token", flags.Lookup("token"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log_format", flags.Lookup("log-format"))

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(usersCmd())
	rootCmd.AddCommand(categorizeCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(budgetsCmd())
}

func main() {
	cli.LoadEnvFile()
	logger = cli.SetupLogger(nil, applog.ComponentCLI, os.Stderr)

	ctx, cancel := cli.SignalContext(logger)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig layers flags over the environment. Unset flags keep the value
// config.Load read.
func initConfig(_ *cobra.Command, _ []string) error {
	cfg = config.Load()

	viper.AutomaticEnv()
	viper.SetDefault("data_backend", cfg.DataBackend)
	viper.SetDefault("sqlite_db_path", cfg.SQLiteDBPath)
	viper.SetDefault("postgres_dsn", cfg.PostgresDSN)
	viper.SetDefault("data_dir", cfg.DataDir)
	viper.SetDefault("log_level", cfg.LogLevel)
	viper.SetDefault("log_format", cfg.LogFormat)

	cfg.DataBackend = viper.GetString("data_backend")
	cfg.SQLiteDBPath = viper.GetString("sqlite_db_path")
	cfg.PostgresDSN = viper.GetString("postgres_dsn")
	cfg.DataDir = viper.GetString("data_dir")
	cfg.LogLevel = viper.GetString("log_level")
	cfg.LogFormat = viper.GetString("log_format")

	// the CLI never consumes or publishes events
	cfg.AMQPURL = ""

	if err := cfg.Validate(); err != nil {
		return err
	}
	logger = cli.SetupLogger(cfg, applog.ComponentCLI, os.Stderr)
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
