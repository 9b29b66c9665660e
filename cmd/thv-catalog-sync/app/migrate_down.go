package app

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/spf13/cobra"

	"github.com/stacklok/toolhive-catalog-sync/database"
)

func newMigrateDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Migrate the database down",
		Long: `Migrate the repository store schema down by reverting migrations.
WARNING: This operation can result in data loss.

Examples:
  # Migrate down by 1 step
  thv-catalog-sync migrate down --config config.yaml --num-steps 1 --yes

  # Migrate down all the way (WARNING: destroys all data)
  thv-catalog-sync migrate down --config config.yaml --yes`,
		RunE: runMigrateDown,
	}
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	numSteps, err := cmd.Flags().GetUint("num-steps")
	if err != nil {
		return fmt.Errorf("failed to get num-steps flag: %w", err)
	}
	if numSteps > math.MaxInt32 {
		return fmt.Errorf("number of steps exceeds maximum allowed value")
	}

	connString, err := migrationConnString(cmd)
	if err != nil {
		return err
	}

	ok, err := confirmed(cmd, migrateDownPrompt(numSteps))
	if err != nil {
		return err
	}
	if !ok {
		slog.Info("Migration cancelled")
		return fmt.Errorf("migration cancelled by user")
	}

	if numSteps == 0 {
		slog.Warn("Migrating down all steps, this removes the whole schema")
	} else {
		slog.Info("Migrating down", "steps", numSteps)
	}
	if err := database.MigrateDown(connString, numSteps); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	slog.Info("Migration completed successfully")

	if numSteps == 0 {
		slog.Info("Database schema has been completely removed")
		return nil
	}
	logMigrationVersion(connString)
	return nil
}

func migrateDownPrompt(numSteps uint) string {
	if numSteps == 0 {
		return "WARNING: This will migrate down ALL steps and may result in complete data loss. Continue?"
	}
	return fmt.Sprintf("WARNING: This will migrate down %d step(s) and may result in data loss. Continue?", numSteps)
}
