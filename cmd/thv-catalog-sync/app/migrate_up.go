package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stacklok/toolhive-catalog-sync/database"
)

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply pending database migrations",
		Long: `Apply all pending database migrations to bring the repository store schema up
to date. Connection parameters are read from the config file.`,
		RunE: runMigrateUp,
	}
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	connString, err := migrationConnString(cmd)
	if err != nil {
		return err
	}

	ok, err := confirmed(cmd, "About to apply migrations. Continue?")
	if err != nil {
		return err
	}
	if !ok {
		slog.Info("Migration cancelled by user")
		return nil
	}

	slog.Info("Applying database migrations")
	if err := database.MigrateUp(connString); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logMigrationVersion(connString)
	return nil
}
