package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/ledgersync/internal/app"
	"github.com/stacklok/ledgersync/internal/config"
	"github.com/stacklok/ledgersync/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sync API server",
	Long: `Start the sync API server. Syncs run on demand through the HTTP API and,
when sync.schedule is set, periodically for every active connection.

The server requires a configuration file (--config) that specifies the provider,
storage backend, lock backend and connections.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second
)

func init() {
	serveCmd.Flags().String("address", ":8080", "Address to listen on")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	serveCmd.Flags().StringSlice("cors-origin", nil, "Allowed CORS origin (repeatable)")

	for _, name := range []string{"address", "config", "cors-origin"} {
		if err := viper.BindPFlag("serve."+name, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind %s flag: %v", name, err))
		}
	}

	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	address := viper.GetString("serve.address")
	configPath := viper.GetString("serve.config")

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Info("Loaded configuration",
		"path", configPath,
		"storage", cfg.Storage.GetType(),
		"lock", cfg.Lock.GetType())

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down telemetry", "error", err)
		}
	}()

	opts := []app.LedgerAppOptions{
		app.WithConfig(cfg),
		app.WithAddress(address),
		app.WithMeterProvider(tel.MeterProvider()),
		app.WithTracerProvider(tel.TracerProvider()),
		app.WithCORSOrigins(viper.GetStringSlice("serve.cors-origin")...),
	}
	if h := tel.MetricsHandler(); h != nil {
		opts = append(opts, app.WithMetricsHandler(h))
	}

	ledgerApp, err := app.NewLedgerApp(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- ledgerApp.Start()
	}()

	select {
	case err := <-errCh:
		if stopErr := ledgerApp.Stop(defaultGracefulTimeout); stopErr != nil {
			slog.Error("Shutdown failed", "error", stopErr)
		}
		return err
	case <-ctx.Done():
	}

	return ledgerApp.Stop(defaultGracefulTimeout)
}
