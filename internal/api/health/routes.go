// Package health serves the liveness, readiness and version endpoints.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/ledgersync/internal/api/common"
	"github.com/stacklok/ledgersync/internal/versions"
)

// ReadinessChecker reports whether the backing storage can serve requests.
// A nil checker is always ready.
type ReadinessChecker func(ctx context.Context) error

// StatusResponse is the body of /health and /readiness
type StatusResponse struct {
	Status string `json:"status" example:"healthy"`
}

// Router creates a router for health check endpoints
func Router(ready ReadinessChecker) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(ready))
	r.Get("/version", versionHandler)

	return r
}

// healthHandler handles GET /health
//
// @Summary		Health check
// @Tags			system
// @Produce		json
// @Success		200	{object}	StatusResponse
// @Router			/health [get]
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, StatusResponse{Status: "healthy"}, http.StatusOK)
}

// readinessHandler handles GET /readiness
//
// @Summary		Readiness check
// @Tags			system
// @Produce		json
// @Success		200	{object}	StatusResponse
// @Failure		503	{object}	common.ErrorResponse
// @Router			/readiness [get]
func readinessHandler(ready ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				slog.Warn("Readiness check failed", "error", err)
				common.WriteErrorResponse(w, "storage not ready: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		common.WriteJSONResponse(w, StatusResponse{Status: "ready"}, http.StatusOK)
	}
}

// versionHandler handles GET /version
//
// @Summary		Version information
// @Tags			system
// @Produce		json
// @Success		200	{object}	versions.Info
// @Router			/version [get]
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}
