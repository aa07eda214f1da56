package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	v1 "github.com/stacklok/ledgersync/internal/api/v1"
	"github.com/stacklok/ledgersync/internal/app"
	"github.com/stacklok/ledgersync/internal/config"
	pkgsync "github.com/stacklok/ledgersync/internal/sync"
	"github.com/stacklok/ledgersync/internal/telemetry"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a sync once and print the results",
	Long: `Run a sync for one connection (--connection) or every active connection (--all)
and print the results as JSON. The command exits non-zero when any run failed;
runs skipped because another sync holds the connection lock do not count as failures.

Examples:
  ledgersync sync --config config.yaml --connection conn-1
  ledgersync sync --config config.yaml --all`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		connectionID, _ := cmd.Flags().GetString("connection")
		all, _ := cmd.Flags().GetBool("all")
		return validateSyncTarget(connectionID, all)
	},
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	syncCmd.Flags().String("connection", "", "Connection id to sync")
	syncCmd.Flags().Bool("all", false, "Sync every active connection")

	if err := syncCmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}
}

func validateSyncTarget(connectionID string, all bool) error {
	switch {
	case connectionID != "" && all:
		return fmt.Errorf("--connection and --all are mutually exclusive")
	case connectionID == "" && !all:
		return fmt.Errorf("one of --connection or --all is required")
	}
	return nil
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	connectionID, err := cmd.Flags().GetString("connection")
	if err != nil {
		return fmt.Errorf("failed to get connection flag: %w", err)
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(ctx); err != nil {
			slog.Error("Failed to shut down telemetry", "error", err)
		}
	}()

	components, err := app.NewComponents(ctx,
		app.WithConfig(cfg),
		app.WithMeterProvider(tel.MeterProvider()),
		app.WithTracerProvider(tel.TracerProvider()),
	)
	if err != nil {
		return err
	}
	defer components.Close()

	var results []*pkgsync.Result
	if connectionID != "" {
		result, err := components.SyncCoordinator.RunSync(ctx, connectionID)
		if err != nil && result == nil {
			return err
		}
		results = []*pkgsync.Result{result}
	} else {
		results, err = components.SyncCoordinator.RunSyncAll(ctx)
		if err != nil {
			return err
		}
	}

	return writeSyncResults(cmd.OutOrStdout(), results)
}

// writeSyncResults prints the summary as indented JSON and returns an error
// when any run failed
func writeSyncResults(w io.Writer, results []*pkgsync.Result) error {
	summary := v1.NewSyncAllResponse(results)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d connection(s) failed to sync", summary.Failed, len(results))
	}
	return nil
}
