package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/ledgersync/internal/api/health"
	"github.com/stacklok/ledgersync/internal/versions"
)

func serve(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rr := serve(t, health.Router(nil), "/health")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"healthy"}`, rr.Body.String())
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		checker    health.ReadinessChecker
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no checker",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
		{
			name:       "storage reachable",
			checker:    func(context.Context) error { return nil },
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
		{
			name:       "storage unreachable",
			checker:    func(context.Context) error { return errors.New("connection refused") },
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"error":"storage not ready: connection refused"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rr := serve(t, health.Router(tt.checker), "/readiness")

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
		})
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()

	rr := serve(t, health.Router(nil), "/version")
	require.Equal(t, http.StatusOK, rr.Code)

	var got versions.Info
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, versions.GetVersionInfo(), got)
}
