// Package app provides application lifecycle management for the sync server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stacklok/ledgersync/internal/config"
)

// LedgerApp encapsulates all components needed to run the sync API server
// It provides lifecycle management and graceful shutdown capabilities
type LedgerApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start starts the application components (HTTP server and scheduled syncs)
// This method blocks until the HTTP server stops or encounters an error
func (app *LedgerApp) Start() error {
	go func() {
		if err := app.components.SyncCoordinator.Start(app.ctx); err != nil {
			slog.Error("Sync coordinator failed", "error", err)
		}
	}()

	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application with the given timeout.
// Running syncs finish first, then the HTTP server drains, then storage
// and the event publisher are released.
func (app *LedgerApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	if err := app.components.SyncCoordinator.Stop(); err != nil {
		slog.Error("Failed to stop sync coordinator", "error", err)
	}

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := app.httpServer.Shutdown(shutdownCtx)
	app.components.Close()
	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *LedgerApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *LedgerApp) GetHTTPServer() *http.Server {
	return app.httpServer
}
