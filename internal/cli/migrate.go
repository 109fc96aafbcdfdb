package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"trivia-service/internal/config"
	"trivia-service/internal/infra/postgres/migrations"
	"trivia-service/internal/infra/sqlite"
	"trivia-service/internal/logger"
)

// NewMigrateCmd applies the schema for the configured store.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			return runMigrations(cmd.Context(), cfg, log)
		},
	}
}

func runMigrations(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		applied, err := migrations.Apply(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		log.Info("migrations applied", slog.Any("migrations", applied))
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return err
		}
		defer store.Close()
		log.Info("sqlite schema ready", slog.String("path", cfg.Store.SQLitePath))
	case config.DriverMemory:
		log.Info("memory store needs no migrations")
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	return nil
}
