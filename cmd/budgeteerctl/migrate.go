package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"budgeteer/internal/backend"
	"budgeteer/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  `Bring the SQLite or Postgres schema up to date and print the applied version.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				d   storage.Dialect
				dsn string
			)
			switch backend.BackendType(cfg.DataBackend) {
			case backend.SQLiteBackend:
				// Validate already created the database directory
				d, dsn = storage.SQLite, cfg.SQLiteDBPath
			case backend.PostgresBackend:
				d, dsn = storage.Postgres, cfg.PostgresDSN
			default:
				return errors.New("the memory backend has no schema to migrate")
			}

			if err := storage.RunMigrations(d, dsn); err != nil {
				return err
			}

			version, dirty, err := storage.MigrationVersion(d, dsn)
			if err != nil {
				return fmt.Errorf("read migration version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d (dirty=%t)\n", d, version, dirty)
			return nil
		},
	}
}
