package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stacklok/ledgersync/database"
)

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending database migrations",
	Long: `Apply all pending database migrations to bring the schema up to date.
This command reads the database connection parameters from the config file
and applies all migrations that haven't been run yet.`,
	RunE: runMigrateUp,
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	cfg, connString, err := loadMigrationConfig(cmd)
	if err != nil {
		return err
	}

	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return fmt.Errorf("failed to get yes flag: %w", err)
	}

	if !yes {
		prompt := fmt.Sprintf("Apply migrations to %s:%d/%s?", cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
		if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), prompt) {
			slog.Info("Migration cancelled by user")
			return nil
		}
	}

	slog.Info("Applying database migrations")
	if err := database.MigrateUp(cmd.Context(), connString); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	displayMigrationVersion(connString)
	return nil
}
