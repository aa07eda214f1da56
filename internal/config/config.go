// Package config provides configuration loading and management for the sync service.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/ledgersync/internal/telemetry"
)

const (
	// StorageTypeFile keeps ledger data, cursors and status on the local filesystem
	StorageTypeFile = "file"

	// StorageTypeDatabase keeps everything in PostgreSQL
	StorageTypeDatabase = "database"
)

const (
	// LockTypeMemory serializes runs within one process
	LockTypeMemory = "memory"

	// LockTypeFile uses advisory file locks shared by processes on one host
	LockTypeFile = "file"

	// LockTypePostgres uses PostgreSQL session advisory locks
	LockTypePostgres = "postgres"

	// LockTypeRedis uses a Redis key with an expiry
	LockTypeRedis = "redis"
)

// Defaults applied when a value is not configured
const (
	DefaultMaxAttempts     = 5
	DefaultInitialInterval = time.Second
	DefaultMaxInterval     = 30 * time.Second
	DefaultConcurrency     = 4
	DefaultDataDir         = "./data"
	DefaultLockTTL         = 15 * time.Minute
	DefaultLockMaxConns    = 16
	DefaultLockAcquireWait = 5 * time.Second
	DefaultProviderTimeout = 30 * time.Second
	DefaultSecretCacheTTL  = 5 * time.Minute
	DefaultEventsExchange  = "ledgersync.events"
)

// EnvPrefix is the prefix of environment variables read through viper
const EnvPrefix = "LEDGERSYNC"

// Environment variables consulted for secrets
const (
	// #nosec G101 -- environment variable name, not a credential
	EnvDatabasePassword = "LEDGERSYNC_DATABASE_PASSWORD"
	// #nosec G101 -- environment variable name, not a credential
	EnvProviderSecret = "LEDGERSYNC_PROVIDER_SECRET"
	// #nosec G101 -- environment variable name, not a credential
	EnvRedisPassword = "LEDGERSYNC_REDIS_PASSWORD"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Provider    ProviderConfig     `yaml:"provider"`
	Sync        *SyncConfig        `yaml:"sync,omitempty"`
	Storage     *StorageConfig     `yaml:"storage,omitempty"`
	Database    *DatabaseConfig    `yaml:"database,omitempty"`
	Lock        *LockConfig        `yaml:"lock,omitempty"`
	Connections []ConnectionConfig `yaml:"connections,omitempty"`
	Secrets     *SecretsConfig     `yaml:"secrets,omitempty"`
	Events      *EventsConfig      `yaml:"events,omitempty"`
	Telemetry   *telemetry.Config  `yaml:"telemetry,omitempty"`
}

// ProviderConfig defines how to reach the data provider
type ProviderConfig struct {
	// BaseURL is the provider API root, e.g. https://sandbox.plaid.com
	BaseURL string `yaml:"baseURL"`

	// ClientID identifies this service to the provider
	ClientID string `yaml:"clientID"`

	// SecretFile is the path to a file containing the provider secret.
	// LEDGERSYNC_PROVIDER_SECRET is used when unset.
	SecretFile string `yaml:"secretFile,omitempty"`

	// Timeout bounds a single provider request (e.g., "30s")
	Timeout string `yaml:"timeout,omitempty"`

	// PageSize is the number of transactions requested per page
	PageSize int `yaml:"pageSize,omitempty"`
}

// SyncConfig defines the retry policy, fan-out and schedule
type SyncConfig struct {
	// MaxAttempts is the number of attempts per provider call, including the first
	MaxAttempts int `yaml:"maxAttempts,omitempty"`

	// InitialInterval is the first retry delay (e.g., "1s")
	InitialInterval string `yaml:"initialInterval,omitempty"`

	// MaxInterval caps the retry delay (e.g., "30s")
	MaxInterval string `yaml:"maxInterval,omitempty"`

	// Concurrency bounds the number of connections synced at once
	Concurrency int `yaml:"concurrency,omitempty"`

	// Schedule is a cron expression for periodic syncs in serve mode
	// (e.g., "*/30 * * * *" or "@every 1h"). Empty disables scheduling.
	Schedule string `yaml:"schedule,omitempty"`

	// RunOnStart triggers a sync of all connections when serve starts
	RunOnStart bool `yaml:"runOnStart,omitempty"`
}

// StorageConfig selects the storage backend
type StorageConfig struct {
	// Type is "file" or "database"
	Type string `yaml:"type"`

	// DataDir is the root directory for file storage
	DataDir string `yaml:"dataDir,omitempty"`
}

// LockConfig selects how per-connection runs are serialized
type LockConfig struct {
	// Type is one of memory, file, postgres or redis
	Type string `yaml:"type"`

	// Dir holds lock files for the file lock. Defaults to <dataDir>/locks.
	Dir string `yaml:"dir,omitempty"`

	// TTL is the expiry of a Redis lock (e.g., "15m")
	TTL string `yaml:"ttl,omitempty"`

	// MaxConns caps the dedicated connections holding postgres advisory locks.
	// Every in-flight run holds one. Must be at least sync.concurrency.
	MaxConns int `yaml:"maxConns,omitempty"`

	// AcquireTimeout bounds the wait for a free lock connection (e.g., "5s")
	AcquireTimeout string `yaml:"acquireTimeout,omitempty"`

	Redis *RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig defines the Redis lock backend
type RedisConfig struct {
	Address string `yaml:"address"`
	DB      int    `yaml:"db,omitempty"`
}

// ConnectionConfig declares a connection in configuration
type ConnectionConfig struct {
	ID     string `yaml:"id"`
	UserID string `yaml:"userId"`

	// AccessToken is the provider access token or an aws-sm:// secret reference
	AccessToken string `yaml:"accessToken"`

	InstitutionID   string `yaml:"institutionId,omitempty"`
	InstitutionName string `yaml:"institutionName,omitempty"`

	// Active defaults to true
	Active *bool `yaml:"active,omitempty"`
}

// SecretsConfig configures resolution of secret references in access tokens
type SecretsConfig struct {
	AWS *AWSSecretsConfig `yaml:"aws,omitempty"`

	// CacheTTL is how long a resolved secret is reused (e.g., "5m")
	CacheTTL string `yaml:"cacheTTL,omitempty"`
}

// AWSSecretsConfig configures the AWS Secrets Manager client
type AWSSecretsConfig struct {
	Region string `yaml:"region,omitempty"`

	// Endpoint overrides the service endpoint, e.g. for LocalStack
	Endpoint string `yaml:"endpoint,omitempty"`
}

// EventsConfig configures sync event publishing over AMQP
type EventsConfig struct {
	// URL is the AMQP broker URL. Publishing is disabled when empty.
	URL string `yaml:"url,omitempty"`

	// Exchange is the topic exchange events are published to
	Exchange string `yaml:"exchange,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// MigrationUser is the database user used by migrate commands.
	// Defaults to User.
	MigrationUser string `yaml:"migrationUser,omitempty"`

	// PasswordFile is the path to a file containing the database password
	// This is the recommended approach for production deployments
	// The file should contain only the password with optional trailing whitespace
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int32 `yaml:"maxIdleConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// readSecret returns the trimmed content of file when set, otherwise the value of envVar
func readSecret(file, envVar, what string) (string, error) {
	if file != "" {
		// Use filepath.Clean to prevent path traversal attacks
		cleanPath := filepath.Clean(file)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read %s from file %s: %w", what, file, err)
		}

		// Trim whitespace (including newlines) from file content
		return strings.TrimSpace(string(data)), nil
	}

	if v := os.Getenv(envVar); v != "" {
		return v, nil
	}

	return "", fmt.Errorf("no %s configured: set the file option or the %s environment variable", what, envVar)
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from LEDGERSYNC_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	return readSecret(d.PasswordFile, EnvDatabasePassword, "database password")
}

// GetConnectionString builds a PostgreSQL connection string for the application user.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	return d.connectionString(d.User)
}

// GetMigrationConnectionString builds a PostgreSQL connection string for the migration user
func (d *DatabaseConfig) GetMigrationConnectionString() (string, error) {
	user := d.MigrationUser
	if user == "" {
		user = d.User
	}
	return d.connectionString(user)
}

func (d *DatabaseConfig) connectionString(user string) (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Database,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	return u.String(), nil
}

// GetSecret returns the provider secret from SecretFile or LEDGERSYNC_PROVIDER_SECRET
func (p *ProviderConfig) GetSecret() (string, error) {
	return readSecret(p.SecretFile, EnvProviderSecret, "provider secret")
}

// GetTimeout returns the provider request timeout
func (p *ProviderConfig) GetTimeout() time.Duration {
	return durationOr(p.Timeout, DefaultProviderTimeout)
}

// GetMaxAttempts returns the attempt ceiling for provider calls
func (s *SyncConfig) GetMaxAttempts() int {
	if s == nil || s.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return s.MaxAttempts
}

// GetInitialInterval returns the first retry delay
func (s *SyncConfig) GetInitialInterval() time.Duration {
	if s == nil {
		return DefaultInitialInterval
	}
	return durationOr(s.InitialInterval, DefaultInitialInterval)
}

// GetMaxInterval returns the retry delay cap
func (s *SyncConfig) GetMaxInterval() time.Duration {
	if s == nil {
		return DefaultMaxInterval
	}
	return durationOr(s.MaxInterval, DefaultMaxInterval)
}

// GetConcurrency returns the fan-out limit
func (s *SyncConfig) GetConcurrency() int {
	if s == nil || s.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return s.Concurrency
}

// GetSchedule returns the cron schedule, empty when scheduling is disabled
func (s *SyncConfig) GetSchedule() string {
	if s == nil {
		return ""
	}
	return s.Schedule
}

// GetType returns the storage type, defaulting to file
func (s *StorageConfig) GetType() string {
	if s == nil || s.Type == "" {
		return StorageTypeFile
	}
	return s.Type
}

// GetDataDir returns the data directory for file storage
func (s *StorageConfig) GetDataDir() string {
	if s == nil || s.DataDir == "" {
		return DefaultDataDir
	}
	return s.DataDir
}

// GetType returns the lock type, defaulting to memory
func (l *LockConfig) GetType() string {
	if l == nil || l.Type == "" {
		return LockTypeMemory
	}
	return l.Type
}

// GetTTL returns the expiry used by expiring locks
func (l *LockConfig) GetTTL() time.Duration {
	if l == nil {
		return DefaultLockTTL
	}
	return durationOr(l.TTL, DefaultLockTTL)
}

// GetMaxConns returns the size of the postgres lock pool
func (l *LockConfig) GetMaxConns() int {
	if l == nil || l.MaxConns <= 0 {
		return DefaultLockMaxConns
	}
	return l.MaxConns
}

// GetAcquireTimeout returns how long TryLock waits for a lock connection
func (l *LockConfig) GetAcquireTimeout() time.Duration {
	if l == nil {
		return DefaultLockAcquireWait
	}
	return durationOr(l.AcquireTimeout, DefaultLockAcquireWait)
}

// GetRedisPassword returns the Redis password from LEDGERSYNC_REDIS_PASSWORD, if set
func (*RedisConfig) GetRedisPassword() string {
	return os.Getenv(EnvRedisPassword)
}

// IsActive reports whether the connection takes part in sync-all runs
func (c *ConnectionConfig) IsActive() bool {
	return c.Active == nil || *c.Active
}

// GetCacheTTL returns how long resolved secrets are cached
func (s *SecretsConfig) GetCacheTTL() time.Duration {
	if s == nil {
		return DefaultSecretCacheTTL
	}
	return durationOr(s.CacheTTL, DefaultSecretCacheTTL)
}

// IsEnabled reports whether events are published
func (e *EventsConfig) IsEnabled() bool {
	return e != nil && e.URL != ""
}

// GetExchange returns the exchange name
func (e *EventsConfig) GetExchange() string {
	if e == nil || e.Exchange == "" {
		return DefaultEventsExchange
	}
	return e.Exchange
}

// durationOr parses value, returning def when it is empty or invalid.
// Invalid values are rejected by validate before this is reached.
func durationOr(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	// Read the entire file into memory
	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML content
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	// Validate the config
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.baseURL is required")
	}
	if _, err := url.ParseRequestURI(c.Provider.BaseURL); err != nil {
		return fmt.Errorf("provider.baseURL is invalid: %w", err)
	}
	if c.Provider.ClientID == "" {
		return fmt.Errorf("provider.clientID is required")
	}
	if c.Provider.PageSize < 0 || c.Provider.PageSize > 500 {
		return fmt.Errorf("provider.pageSize must be between 1 and 500")
	}
	if err := validateDuration(c.Provider.Timeout, "provider.timeout"); err != nil {
		return err
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	switch c.Storage.GetType() {
	case StorageTypeFile:
	case StorageTypeDatabase:
		if c.Database == nil {
			return fmt.Errorf("database configuration is required for storage type %q", StorageTypeDatabase)
		}
	default:
		return fmt.Errorf("storage.type must be %q or %q, got %q", StorageTypeFile, StorageTypeDatabase, c.Storage.Type)
	}

	if err := c.validateLock(); err != nil {
		return err
	}

	if err := c.validateConnections(); err != nil {
		return err
	}

	if c.Secrets != nil {
		if err := validateDuration(c.Secrets.CacheTTL, "secrets.cacheTTL"); err != nil {
			return err
		}
	}

	if c.Telemetry != nil {
		if err := c.Telemetry.Validate(); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}

func (c *Config) validateSync() error {
	if c.Sync == nil {
		return nil
	}
	if c.Sync.MaxAttempts < 0 {
		return fmt.Errorf("sync.maxAttempts must not be negative")
	}
	if c.Sync.Concurrency < 0 {
		return fmt.Errorf("sync.concurrency must not be negative")
	}
	if err := validateDuration(c.Sync.InitialInterval, "sync.initialInterval"); err != nil {
		return err
	}
	if err := validateDuration(c.Sync.MaxInterval, "sync.maxInterval"); err != nil {
		return err
	}
	if c.Sync.GetInitialInterval() > c.Sync.GetMaxInterval() {
		return fmt.Errorf("sync.initialInterval must not exceed sync.maxInterval")
	}
	if c.Sync.Schedule != "" {
		if _, err := cron.ParseStandard(c.Sync.Schedule); err != nil {
			return fmt.Errorf("sync.schedule is invalid: %w", err)
		}
	}
	return nil
}

func (c *Config) validateLock() error {
	switch c.Lock.GetType() {
	case LockTypeMemory, LockTypeFile:
	case LockTypePostgres:
		if c.Database == nil {
			return fmt.Errorf("database configuration is required for lock type %q", LockTypePostgres)
		}
		if c.Lock.MaxConns < 0 {
			return fmt.Errorf("lock.maxConns must not be negative")
		}
		if n, want := c.Lock.GetMaxConns(), c.Sync.GetConcurrency(); n < want {
			return fmt.Errorf("lock.maxConns (%d) must be at least sync.concurrency (%d)", n, want)
		}
	case LockTypeRedis:
		if c.Lock.Redis == nil || c.Lock.Redis.Address == "" {
			return fmt.Errorf("lock.redis.address is required for lock type %q", LockTypeRedis)
		}
	default:
		return fmt.Errorf("unknown lock type %q", c.Lock.Type)
	}
	if c.Lock != nil {
		if err := validateDuration(c.Lock.TTL, "lock.ttl"); err != nil {
			return err
		}
		return validateDuration(c.Lock.AcquireTimeout, "lock.acquireTimeout")
	}
	return nil
}

func (c *Config) validateConnections() error {
	ids := make(map[string]bool, len(c.Connections))
	for i, conn := range c.Connections {
		if conn.ID == "" {
			return fmt.Errorf("connections[%d]: id is required", i)
		}
		if ids[conn.ID] {
			return fmt.Errorf("connections[%d]: duplicate connection id '%s'", i, conn.ID)
		}
		ids[conn.ID] = true
		if conn.AccessToken == "" {
			return fmt.Errorf("connections[%d] (%s): accessToken is required", i, conn.ID)
		}
		if conn.UserID == "" {
			return fmt.Errorf("connections[%d] (%s): userId is required", i, conn.ID)
		}
	}
	return nil
}

func validateDuration(value, field string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s is invalid: %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", field)
	}
	return nil
}
