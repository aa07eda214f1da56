package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/mock/gomock"

	v1 "github.com/stacklok/ledgersync/internal/api/v1"
	storagemocks "github.com/stacklok/ledgersync/internal/app/storage/mocks"
	"github.com/stacklok/ledgersync/internal/config"
	connmocks "github.com/stacklok/ledgersync/internal/connection/mocks"
	"github.com/stacklok/ledgersync/internal/events"
	providermocks "github.com/stacklok/ledgersync/internal/provider/mocks"
	cursormocks "github.com/stacklok/ledgersync/internal/sync/cursor/mocks"
	"github.com/stacklok/ledgersync/internal/sync/lock"
	statemocks "github.com/stacklok/ledgersync/internal/sync/state/mocks"
	writermocks "github.com/stacklok/ledgersync/internal/sync/writer/mocks"
)

func TestBaseConfig_Defaults(t *testing.T) {
	t.Parallel()

	built, err := baseConfig(WithConfig(createTestAppConfig()))
	require.NoError(t, err)
	assert.Equal(t, defaultHTTPAddress, built.address)
	assert.Equal(t, defaultRequestTimeout, built.requestTimeout)
	assert.Equal(t, defaultReadTimeout, built.readTimeout)
	assert.Equal(t, defaultWriteTimeout, built.writeTimeout)
	assert.Equal(t, defaultIdleTimeout, built.idleTimeout)
}

func TestBaseConfig_Errors(t *testing.T) {
	t.Parallel()

	_, err := baseConfig()
	require.ErrorContains(t, err, "config cannot be nil")

	built, err := baseConfig(WithConfig(createTestAppConfig()), WithAddress(":"))
	require.Error(t, err)
	assert.Nil(t, built)
}

func TestWithAddress(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{name: "port only", address: ":9999"},
		{name: "ip and port", address: "127.0.0.1:9999"},
		{name: "localhost", address: "localhost:9999"},
		{name: "empty", address: "", wantErr: true},
		{name: "empty port", address: ":", wantErr: true},
		{name: "missing colon", address: "9999", wantErr: true},
		{name: "port out of range", address: "localhost:999999", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &ledgerAppConfig{}
			err := WithAddress(tt.address)(cfg)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.address, cfg.address)
		})
	}
}

func TestWithMiddlewares(t *testing.T) {
	t.Parallel()
	cfg := &ledgerAppConfig{}
	mw := func(next http.Handler) http.Handler { return next }

	require.NoError(t, WithMiddlewares(mw, mw)(cfg))
	assert.Len(t, cfg.middlewares, 2)
}

func TestWithCORSOrigins(t *testing.T) {
	t.Parallel()
	cfg := &ledgerAppConfig{}

	require.NoError(t, WithCORSOrigins(" https://app.example.com ", "", "https://admin.example.com")(cfg))
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.corsOrigins)
}

func TestWithTelemetryOptions(t *testing.T) {
	t.Parallel()
	cfg := &ledgerAppConfig{}
	mp := noop.NewMeterProvider()
	tp := tracenoop.NewTracerProvider()
	h := http.NotFoundHandler()

	require.NoError(t, WithMeterProvider(mp)(cfg))
	require.NoError(t, WithTracerProvider(tp)(cfg))
	require.NoError(t, WithMetricsHandler(h)(cfg))

	assert.Equal(t, mp, cfg.meterProvider)
	assert.Equal(t, tp, cfg.tracerProvider)
	assert.NotNil(t, cfg.metricsHandler)
}

func expectComponents(ctrl *gomock.Controller, f *storagemocks.MockFactory) {
	f.EXPECT().CreateConnectionStore(gomock.Any()).Return(connmocks.NewMockStore(ctrl), nil)
	f.EXPECT().CreateStateService(gomock.Any()).Return(statemocks.NewMockConnectionStateService(ctrl), nil)
	f.EXPECT().CreateLedgerStore(gomock.Any()).Return(writermocks.NewMockStore(ctrl), nil)
	f.EXPECT().CreateCursorStore(gomock.Any()).Return(cursormocks.NewMockStore(ctrl), nil)
	f.EXPECT().CreateLocker(gomock.Any()).Return(lock.NewMemoryLocker(), nil)
}

func TestBuildComponents(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	factory := storagemocks.NewMockFactory(ctrl)
	expectComponents(ctrl, factory)

	built, err := baseConfig(
		WithConfig(createTestAppConfig()),
		WithStorageFactory(factory),
		WithProviderClient(providermocks.NewMockClient(ctrl)),
		WithMeterProvider(noop.NewMeterProvider()),
		WithTracerProvider(tracenoop.NewTracerProvider()),
	)
	require.NoError(t, err)

	components, err := buildComponents(context.Background(), built)
	require.NoError(t, err)
	assert.NotNil(t, components.SyncCoordinator)
	assert.NotNil(t, components.Connections)
	assert.NotNil(t, components.Statuses)
	assert.NotNil(t, components.Ledger)
	assert.IsType(t, events.NoopPublisher{}, components.Publisher)
	assert.Equal(t, factory, components.Storage)
}

func TestBuildComponents_Errors(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")

	tests := []struct {
		name    string
		setup   func(*gomock.Controller, *storagemocks.MockFactory)
		wantErr string
	}{
		{
			name: "connection store fails",
			setup: func(_ *gomock.Controller, f *storagemocks.MockFactory) {
				f.EXPECT().CreateConnectionStore(gomock.Any()).Return(nil, errBoom)
			},
			wantErr: "failed to create connection store",
		},
		{
			name: "state service fails",
			setup: func(ctrl *gomock.Controller, f *storagemocks.MockFactory) {
				f.EXPECT().CreateConnectionStore(gomock.Any()).Return(connmocks.NewMockStore(ctrl), nil)
				f.EXPECT().CreateStateService(gomock.Any()).Return(nil, errBoom)
			},
			wantErr: "failed to create state service",
		},
		{
			name: "ledger store fails",
			setup: func(ctrl *gomock.Controller, f *storagemocks.MockFactory) {
				f.EXPECT().CreateConnectionStore(gomock.Any()).Return(connmocks.NewMockStore(ctrl), nil)
				f.EXPECT().CreateStateService(gomock.Any()).Return(statemocks.NewMockConnectionStateService(ctrl), nil)
				f.EXPECT().CreateLedgerStore(gomock.Any()).Return(nil, errBoom)
			},
			wantErr: "failed to create ledger store",
		},
		{
			name: "locker fails",
			setup: func(ctrl *gomock.Controller, f *storagemocks.MockFactory) {
				f.EXPECT().CreateConnectionStore(gomock.Any()).Return(connmocks.NewMockStore(ctrl), nil)
				f.EXPECT().CreateStateService(gomock.Any()).Return(statemocks.NewMockConnectionStateService(ctrl), nil)
				f.EXPECT().CreateLedgerStore(gomock.Any()).Return(writermocks.NewMockStore(ctrl), nil)
				f.EXPECT().CreateCursorStore(gomock.Any()).Return(cursormocks.NewMockStore(ctrl), nil)
				f.EXPECT().CreateLocker(gomock.Any()).Return(nil, errBoom)
			},
			wantErr: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			factory := storagemocks.NewMockFactory(ctrl)
			tt.setup(ctrl, factory)
			// Partially built components release storage
			factory.EXPECT().Cleanup().Times(1)

			built, err := baseConfig(
				WithConfig(createTestAppConfig()),
				WithStorageFactory(factory),
				WithProviderClient(providermocks.NewMockClient(ctrl)),
			)
			require.NoError(t, err)

			_, err = buildComponents(context.Background(), built)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestBuildProviderClient_MissingSecret(t *testing.T) {
	t.Setenv(config.EnvProviderSecret, "")

	_, err := buildProviderClient(context.Background(), createTestAppConfig())
	require.Error(t, err)
}

func TestBuildProviderClient(t *testing.T) {
	t.Setenv(config.EnvProviderSecret, "test-secret")

	client, err := buildProviderClient(context.Background(), createTestAppConfig())
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestNewLedgerApp_FileStorage(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	cfg := createTestAppConfig()
	cfg.Storage.DataDir = t.TempDir()

	app, err := NewLedgerApp(context.Background(),
		WithConfig(cfg),
		WithAddress("127.0.0.1:0"),
		WithProviderClient(providermocks.NewMockClient(ctrl)),
		WithCORSOrigins("https://app.example.com"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = app.Stop(time.Second)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/connections", nil)
	rec := httptest.NewRecorder()
	app.GetHTTPServer().Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body v1.ConnectionListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "conn-1", body.Connections[0].ID)

	req = httptest.NewRequest(http.MethodGet, "/readiness", nil)
	rec = httptest.NewRecorder()
	app.GetHTTPServer().Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewComponents_RequiresConfig(t *testing.T) {
	t.Parallel()

	_, err := NewComponents(context.Background())
	require.ErrorContains(t, err, "config cannot be nil")
}
