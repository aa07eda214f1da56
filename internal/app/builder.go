package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/ledgersync/internal/api"
	"github.com/stacklok/ledgersync/internal/app/storage"
	"github.com/stacklok/ledgersync/internal/config"
	"github.com/stacklok/ledgersync/internal/credentials"
	"github.com/stacklok/ledgersync/internal/events"
	"github.com/stacklok/ledgersync/internal/httpclient"
	"github.com/stacklok/ledgersync/internal/provider"
	pkgsync "github.com/stacklok/ledgersync/internal/sync"
	"github.com/stacklok/ledgersync/internal/sync/coordinator"
	"github.com/stacklok/ledgersync/internal/telemetry"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 5 * time.Minute
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 5 * time.Minute
	defaultIdleTimeout    = 60 * time.Second

	// orchestratorTracerName names the spans of sync runs
	orchestratorTracerName = "github.com/stacklok/ledgersync/sync"
)

// LedgerAppOptions is a function that configures the ledger app builder
type LedgerAppOptions func(*ledgerAppConfig) error

// ledgerAppConfig collects everything NewLedgerApp and NewComponents need.
// Component overrides are used by tests.
type ledgerAppConfig struct {
	config *config.Config

	storageFactory storage.Factory
	providerClient provider.Client
	publisher      events.Publisher

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	corsOrigins    []string
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func baseConfig(opts ...LedgerAppOptions) (*ledgerAppConfig, error) {
	cfg := &ledgerAppConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return cfg, nil
}

// NewLedgerApp builds the components and the HTTP server of the serve command
func NewLedgerApp(ctx context.Context, opts ...LedgerAppOptions) (*LedgerApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	components, err := buildComponents(ctx, cfg)
	if err != nil {
		return nil, err
	}

	httpServer, err := buildHTTPServer(ctx, cfg, components)
	if err != nil {
		components.Close()
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)

	return &LedgerApp{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
	}, nil
}

// NewComponents builds the sync components without an HTTP server, for
// one-shot CLI runs. The caller must Close the result.
func NewComponents(ctx context.Context, opts ...LedgerAppOptions) (*AppComponents, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	return buildComponents(ctx, cfg)
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) LedgerAppOptions {
	return func(cfg *ledgerAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) LedgerAppOptions {
	return func(cfg *ledgerAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares replaces the default HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) LedgerAppOptions {
	return func(cfg *ledgerAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithCORSOrigins allows browser clients from the given origins
func WithCORSOrigins(origins ...string) LedgerAppOptions {
	return func(cfg *ledgerAppConfig) error {
		for _, o := range origins {
			if o = strings.TrimSpace(o); o != "" {
				cfg.corsOrigins = append(cfg.corsOrigins, o)
			}
		}
		return nil
	}
}

// WithStorageFactory allows injecting a custom storage factory (for testing)
func WithStorageFactory(f storage.Factory) LedgerAppOptions {
	return func(cfg *ledgerAppConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithProviderClient allows injecting a provider client (for testing)
func WithProviderClient(c provider.Client) LedgerAppOptions {
	return func(cfg *ledgerAppConfig) error {
		cfg.providerClient = c
		return nil
	}
}

// WithPublisher allows injecting an event publisher (for testing)
func WithPublisher(p events.Publisher) LedgerAppOptions {
	return func(cfg *ledgerAppConfig) error {
		cfg.publisher = p
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for sync and HTTP metrics
func WithMeterProvider(mp metric.MeterProvider) LedgerAppOptions {
	return func(cfg *ledgerAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for sync and HTTP spans
func WithTracerProvider(tp trace.TracerProvider) LedgerAppOptions {
	return func(cfg *ledgerAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler serves h at /metrics
func WithMetricsHandler(h http.Handler) LedgerAppOptions {
	return func(cfg *ledgerAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// buildComponents wires storage, provider, orchestrator and coordinator.
// Everything created here is released when building fails.
func buildComponents(ctx context.Context, b *ledgerAppConfig) (_ *AppComponents, err error) {
	slog.Info("Initializing sync components")

	if b.storageFactory == nil {
		b.storageFactory, err = storage.NewStorageFactory(ctx, b.config)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
	}
	components := &AppComponents{Storage: b.storageFactory}
	defer func() {
		if err != nil {
			components.Close()
		}
	}()

	connections, err := b.storageFactory.CreateConnectionStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection store: %w", err)
	}
	statuses, err := b.storageFactory.CreateStateService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create state service: %w", err)
	}
	ledgerStore, err := b.storageFactory.CreateLedgerStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger store: %w", err)
	}
	cursors, err := b.storageFactory.CreateCursorStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create cursor store: %w", err)
	}
	locker, err := b.storageFactory.CreateLocker(ctx)
	if err != nil {
		return nil, err
	}

	if b.providerClient == nil {
		b.providerClient, err = buildProviderClient(ctx, b.config)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider client: %w", err)
		}
	}

	if b.publisher == nil {
		b.publisher, err = events.NewPublisher(b.config.Events)
		if err != nil {
			return nil, fmt.Errorf("failed to create event publisher: %w", err)
		}
	}
	components.Publisher = b.publisher

	var syncMetrics *telemetry.SyncMetrics
	if b.meterProvider != nil {
		syncMetrics, err = telemetry.NewSyncMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create sync metrics: %w", err)
		}
		slog.Info("Sync metrics enabled")
	}

	orchOpts := []pkgsync.Option{
		pkgsync.WithRetryPolicy(pkgsync.RetryPolicyFromConfig(b.config.Sync)),
		pkgsync.WithMetrics(syncMetrics),
	}
	if b.tracerProvider != nil {
		orchOpts = append(orchOpts, pkgsync.WithTracer(b.tracerProvider.Tracer(orchestratorTracerName)))
	}
	orchestrator := pkgsync.NewOrchestrator(b.providerClient, ledgerStore, cursors, orchOpts...)

	components.SyncCoordinator = coordinator.New(
		orchestrator,
		connections,
		locker,
		statuses,
		b.config.Sync,
		coordinator.WithSyncMetrics(syncMetrics),
		coordinator.WithPublisher(b.publisher),
	)
	components.Connections = connections
	components.Statuses = statuses
	components.Ledger = ledgerStore

	slog.Info("Sync components initialized successfully")
	return components, nil
}

// buildProviderClient creates the Plaid client with secret resolution for access tokens
func buildProviderClient(ctx context.Context, cfg *config.Config) (provider.Client, error) {
	secret, err := cfg.Provider.GetSecret()
	if err != nil {
		return nil, err
	}

	var source credentials.SecretSource
	if cfg.Secrets != nil && cfg.Secrets.AWS != nil {
		sm, smErr := credentials.NewAWSSecretsManager(ctx, cfg.Secrets.AWS.Region, cfg.Secrets.AWS.Endpoint)
		if smErr != nil {
			return nil, smErr
		}
		source = sm
		slog.Info("Resolving access tokens through AWS Secrets Manager")
	}

	return provider.NewPlaidClient(
		cfg.Provider.BaseURL,
		cfg.Provider.ClientID,
		secret,
		provider.WithHTTPClient(httpclient.NewDefaultClient(cfg.Provider.GetTimeout())),
		provider.WithCredentialResolver(credentials.NewResolver(source, cfg.Secrets.GetCacheTTL())),
		provider.WithPageSize(cfg.Provider.PageSize),
	), nil
}

// buildHTTPServer builds the HTTP server with router and middleware
//
//nolint:unparam // we prefer having a similar interface
func buildHTTPServer(
	_ context.Context,
	b *ledgerAppConfig,
	components *AppComponents,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Telemetry middlewares go first to capture every request
	if b.tracerProvider != nil {
		b.middlewares = append([]func(http.Handler) http.Handler{telemetry.TracingMiddleware(b.tracerProvider)}, b.middlewares...)
		slog.Info("HTTP tracing middleware enabled")
	}
	if b.meterProvider != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		if metricsMiddleware != nil {
			b.middlewares = append([]func(http.Handler) http.Handler{metricsMiddleware}, b.middlewares...)
			slog.Info("HTTP metrics middleware enabled")
		}
	}

	serverOpts := []api.ServerOption{api.WithMiddlewares(b.middlewares...)}
	if b.metricsHandler != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(b.metricsHandler))
	}
	if len(b.corsOrigins) > 0 {
		serverOpts = append(serverOpts, api.WithCORS(b.corsOrigins...))
	}

	router := api.NewServer(api.Services{
		Trigger:     components.SyncCoordinator,
		Connections: components.Connections,
		Statuses:    components.Statuses,
		Ledger:      components.Ledger,
		Readiness:   components.Storage.Ping,
	}, serverOpts...)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
