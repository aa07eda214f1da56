// Package app provides the commands of the ledgersync binary.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/ledgersync/internal/versions"
)

var rootCmd = &cobra.Command{
	Use:               "ledgersync",
	DisableAutoGenTag: true,
	Short:             "Incremental financial transaction sync",
	Long: `ledgersync pulls account and transaction changes from a financial data
provider and applies them to a local ledger, resuming from a per-connection cursor.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			slog.Error("Error displaying help", "error", err)
		}
	},
}

// NewRootCmd creates the root command. level is raised to debug by --debug.
func NewRootCmd(level *slog.LevelVar) *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file loaded before reading configuration")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		slog.Error("Error binding debug flag", "error", err)
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if viper.GetBool("debug") && level != nil {
			level.Set(slog.LevelDebug)
		}
		envFile, err := cmd.Flags().GetString("env-file")
		if err != nil {
			return fmt.Errorf("failed to get env-file flag: %w", err)
		}
		return loadEnvFile(envFile)
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(migrateCmd)

	return rootCmd
}

// loadEnvFile exports the variables of path without overriding the
// environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	slog.Debug("Loaded environment file", "path", path)
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := versions.GetVersionInfo()
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return fmt.Errorf("failed to get format flag: %w", err)
		}

		if format == "json" {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to format version info: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
			return err
		}

		slog.Info("ledgersync version",
			"version", info.Version,
			"commit", info.Commit,
			"built", info.BuildDate,
			"go", info.GoVersion,
			"platform", info.Platform)
		return nil
	},
}

func init() {
	versionCmd.Flags().String("format", "", "Output format (json)")
}
