package db

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/ledgersync/internal/config"
)

func TestPoolConfig(t *testing.T) {
	t.Parallel()

	passwordFile := filepath.Join(t.TempDir(), "pw")
	require.NoError(t, os.WriteFile(passwordFile, []byte("s3cret\n"), 0o600))

	valid := func() *config.DatabaseConfig {
		return &config.DatabaseConfig{
			Host:         "localhost",
			Port:         5432,
			User:         "ledgersync",
			Database:     "ledger",
			SSLMode:      "disable",
			PasswordFile: passwordFile,
		}
	}

	tests := []struct {
		name   string
		mutate func(*config.DatabaseConfig)
		errMsg string
		check  func(*testing.T, *config.DatabaseConfig)
	}{
		{
			name: "defaults",
		},
		{
			name:   "missing host",
			mutate: func(c *config.DatabaseConfig) { c.Host = "" },
			errMsg: "database host is required",
		},
		{
			name:   "missing port",
			mutate: func(c *config.DatabaseConfig) { c.Port = 0 },
			errMsg: "database port is required",
		},
		{
			name:   "missing user",
			mutate: func(c *config.DatabaseConfig) { c.User = "" },
			errMsg: "database user is required",
		},
		{
			name:   "missing database",
			mutate: func(c *config.DatabaseConfig) { c.Database = "" },
			errMsg: "database name is required",
		},
		{
			name:   "bad lifetime",
			mutate: func(c *config.DatabaseConfig) { c.ConnMaxLifetime = "forever" },
			errMsg: "invalid connection max lifetime",
		},
		{
			name:   "unreadable password file",
			mutate: func(c *config.DatabaseConfig) { c.PasswordFile = filepath.Join(t.TempDir(), "missing") },
			errMsg: "failed to get database password",
		},
		{
			name: "overrides",
			mutate: func(c *config.DatabaseConfig) {
				c.MaxOpenConns = 4
				c.MaxIdleConns = 10
				c.ConnMaxLifetime = "30m"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}

			poolCfg, err := PoolConfig(cfg)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "localhost", poolCfg.ConnConfig.Host)
			assert.Equal(t, uint16(5432), poolCfg.ConnConfig.Port)
			assert.Equal(t, "s3cret", poolCfg.ConnConfig.Password)
			assert.Equal(t, defaultConnectTimeout, poolCfg.ConnConfig.ConnectTimeout)

			if tt.name == "overrides" {
				assert.Equal(t, int32(4), poolCfg.MaxConns)
				assert.Equal(t, int32(4), poolCfg.MinConns)
				assert.Equal(t, 30*time.Minute, poolCfg.MaxConnLifetime)
			} else {
				assert.Equal(t, int32(defaultMaxOpenConns), poolCfg.MaxConns)
				assert.Equal(t, int32(defaultMaxIdleConns), poolCfg.MinConns)
				assert.Equal(t, defaultConnMaxLifetime, poolCfg.MaxConnLifetime)
			}
		})
	}

	_, err := PoolConfig(nil)
	require.ErrorContains(t, err, "database configuration is required")
}
