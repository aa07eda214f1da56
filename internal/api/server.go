// Package api provides the REST API server for triggering and inspecting ledger syncs.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/stacklok/ledgersync/internal/api/health"
	v1 "github.com/stacklok/ledgersync/internal/api/v1"
	"github.com/stacklok/ledgersync/internal/connection"
	"github.com/stacklok/ledgersync/internal/sync/coordinator"
	"github.com/stacklok/ledgersync/internal/sync/state"
	"github.com/stacklok/ledgersync/internal/sync/writer"
)

// Services groups the components served over HTTP
type Services struct {
	Trigger     coordinator.Trigger
	Connections connection.Store
	Statuses    state.ConnectionStateService
	Ledger      writer.Reader
	// Readiness is optional; nil means always ready
	Readiness health.ReadinessChecker
}

// ServerOption configures the API server
type ServerOption func(*serverConfig)

type serverConfig struct {
	middlewares    []func(http.Handler) http.Handler
	metricsHandler http.Handler
	corsOrigins    []string
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithMetricsHandler serves h at /metrics
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsHandler = h
	}
}

// WithCORS allows cross-origin requests from the given origins
func WithCORS(origins ...string) ServerOption {
	return func(cfg *serverConfig) {
		cfg.corsOrigins = append(cfg.corsOrigins, origins...)
	}
}

// NewServer creates and configures the HTTP router
func NewServer(svc Services, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()

	if len(cfg.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.corsOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.Mount("/", health.Router(svc.Readiness))
	if cfg.metricsHandler != nil {
		r.Handle("/metrics", cfg.metricsHandler)
	}
	r.Mount("/v1", v1.Router(svc.Trigger, svc.Connections, svc.Statuses, svc.Ledger))

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.DebugContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
