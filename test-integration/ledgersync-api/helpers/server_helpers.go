package helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/onsi/gomega"

	v1 "github.com/stacklok/ledgersync/internal/api/v1"
	"github.com/stacklok/ledgersync/internal/app"
	"github.com/stacklok/ledgersync/internal/config"
)

// ServerTestHelper manages the API server lifecycle for testing
type ServerTestHelper struct {
	ctx        context.Context
	configPath string
	baseURL    string
	address    string
	httpClient *http.Client
	app        *app.LedgerApp
}

// NewServerTestHelper creates a server helper listening on a free local port
func NewServerTestHelper(ctx context.Context, configPath string) (*ServerTestHelper, error) {
	port, err := freePort()
	if err != nil {
		return nil, err
	}
	address := fmt.Sprintf("127.0.0.1:%d", port)
	return &ServerTestHelper{
		ctx:        ctx,
		configPath: configPath,
		address:    address,
		baseURL:    "http://" + address,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("failed to find a free port: %w", err)
	}
	defer func() {
		_ = l.Close()
	}()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// StartServer builds and starts the server without blocking
func (s *ServerTestHelper) StartServer() error {
	cfg, err := config.LoadConfig(config.WithConfigPath(s.configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ledgerApp, err := app.NewLedgerApp(s.ctx,
		app.WithConfig(cfg),
		app.WithAddress(s.address),
	)
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}
	s.app = ledgerApp

	go func() {
		if err := ledgerApp.Start(); err != nil {
			// The test fails when it tries to connect
			fmt.Fprintf(os.Stderr, "Server start failed: %v\n", err)
		}
	}()

	return nil
}

// StopServer gracefully stops the server
func (s *ServerTestHelper) StopServer() error {
	if s.app != nil {
		return s.app.Stop(5 * time.Second)
	}
	return nil
}

// WaitForServerReady waits for the readiness probe to pass
func (s *ServerTestHelper) WaitForServerReady(timeout time.Duration) {
	gomega.Eventually(func() error {
		resp, err := s.httpClient.Get(s.baseURL + "/readiness")
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return nil
	}, timeout, 200*time.Millisecond).Should(gomega.Succeed(), "Server should be ready")
}

// SyncConnection triggers POST /v1/connections/{id}/sync
func (s *ServerTestHelper) SyncConnection(id string) (*http.Response, error) {
	return s.httpClient.Post(fmt.Sprintf("%s/v1/connections/%s/sync", s.baseURL, id), "application/json", nil)
}

// Deactivate triggers POST /v1/connections/{id}/deactivate
func (s *ServerTestHelper) Deactivate(id string) (*http.Response, error) {
	return s.httpClient.Post(fmt.Sprintf("%s/v1/connections/%s/deactivate", s.baseURL, id), "application/json", nil)
}

// SyncAll triggers POST /v1/sync
func (s *ServerTestHelper) SyncAll() (*http.Response, error) {
	return s.httpClient.Post(s.baseURL+"/v1/sync", "application/json", nil)
}

// Get makes a GET request to path
func (s *ServerTestHelper) Get(path string) (*http.Response, error) {
	return s.httpClient.Get(s.baseURL + path)
}

// MustSync triggers a sync of id and decodes the result
func (s *ServerTestHelper) MustSync(id string) v1.SyncResultResponse {
	resp, err := s.SyncConnection(id)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	var result v1.SyncResultResponse
	DecodeJSON(resp, http.StatusOK, &result)
	return result
}

// DecodeJSON asserts the status code and decodes the body into out
func DecodeJSON(resp *http.Response, status int, out any) {
	defer func() {
		_ = resp.Body.Close()
	}()
	gomega.Expect(resp.StatusCode).To(gomega.Equal(status))
	gomega.Expect(json.NewDecoder(resp.Body).Decode(out)).To(gomega.Succeed())
}

// ConnectionEntry declares one connection of the generated config
type ConnectionEntry struct {
	ID       string
	Inactive bool
}

// WriteConfigYAML writes a file-storage configuration for the given provider
func WriteConfigYAML(dir, providerURL string, conns ...ConnectionEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, `provider:
  baseURL: %s
  clientID: integration-client
  timeout: 5s

sync:
  maxAttempts: 2
  initialInterval: 10ms
  maxInterval: 50ms
  concurrency: 2

storage:
  type: file
  dataDir: %s

lock:
  type: file

connections:
`, providerURL, filepath.Join(dir, "data"))
	for _, c := range conns {
		fmt.Fprintf(&b, "  - id: %s\n    userId: user-1\n    accessToken: access-sandbox-%s\n", c.ID, c.ID)
		if c.Inactive {
			b.WriteString("    active: false\n")
		}
	}

	path := filepath.Join(dir, "config.yaml")
	gomega.Expect(os.WriteFile(path, []byte(b.String()), 0o600)).To(gomega.Succeed())
	return path
}
