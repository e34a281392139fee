// Package config provides configuration management for the paper assistant service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for all environment variables read by the service.
const EnvPrefix = "PAPERASSIST"

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Storage backends.
const (
	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

// Figure placement policies.
const (
	PlacementRunningCursor     = "running_cursor"
	PlacementIndependentSlices = "independent_slices"
)

// Config holds all configuration for the paper assistant service.
type Config struct {
	// App contains service identity settings.
	App AppConfig `mapstructure:"app"`
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Storage contains upload storage settings.
	Storage StorageConfig `mapstructure:"storage"`
	// Renderer contains HTML-to-PDF engine settings.
	Renderer RendererConfig `mapstructure:"renderer"`
	// Compose contains document composition settings.
	Compose ComposeConfig `mapstructure:"compose"`
	// Kafka contains event publisher settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// AppConfig holds service identity settings.
type AppConfig struct {
	// Name is reported in logs and as the event source.
	Name string `mapstructure:"name"`
	// Environment is reported by the status endpoint (development, production).
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 5000).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	// PDF generation runs inside the request, so keep it above renderer.timeout.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (loaded from PAPERASSIST_DATABASE_PASSWORD only).
	Password string `mapstructure:"-"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 20).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 2).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
	// StatementCacheCapacity is the size of the prepared statement cache.
	StatementCacheCapacity int `mapstructure:"statement_cache_capacity"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// StorageConfig holds upload storage configuration.
type StorageConfig struct {
	// Backend selects where uploads live (local, s3).
	Backend string `mapstructure:"backend"`
	// UploadsRoot is the local uploads directory. It is also the root the
	// asset resolver searches when composing documents.
	UploadsRoot string `mapstructure:"uploads_root"`
	// MaxFileBytes is the per-file upload limit (default: 10 MiB).
	MaxFileBytes int64 `mapstructure:"max_file_bytes"`
	// MaxFiles is the maximum number of files per request (default: 10).
	MaxFiles int `mapstructure:"max_files"`
	// S3 contains bucket settings used when Backend is s3.
	S3 S3Config `mapstructure:"s3"`
}

// S3Config holds S3-compatible bucket settings.
type S3Config struct {
	// Bucket is the bucket name.
	Bucket string `mapstructure:"bucket"`
	// Region is the AWS region.
	Region string `mapstructure:"region"`
	// Endpoint overrides the S3 endpoint (MinIO, localstack).
	Endpoint string `mapstructure:"endpoint"`
	// KeyPrefix is prepended to every object key.
	KeyPrefix string `mapstructure:"key_prefix"`
	// AccessKeyID is loaded from PAPERASSIST_STORAGE_S3_ACCESS_KEY_ID only.
	AccessKeyID string `mapstructure:"-"`
	// SecretAccessKey is loaded from PAPERASSIST_STORAGE_S3_SECRET_ACCESS_KEY only.
	SecretAccessKey string `mapstructure:"-"`
}

// RendererConfig holds HTML-to-PDF engine settings.
type RendererConfig struct {
	// BaseURL is the Gotenberg-compatible engine address.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum renders per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// Burst is the limiter burst size.
	Burst int `mapstructure:"burst"`
	// MaxRetries is the retry count on 429 responses, and on 5xx responses
	// and transport errors when RetryServerErrors is set.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryServerErrors enables retries on 5xx responses and transport errors.
	// Off by default so render failures surface on the first attempt.
	RetryServerErrors bool `mapstructure:"retry_server_errors"`
	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// ComposeConfig holds document composition settings.
type ComposeConfig struct {
	// PlacementPolicy controls how figures are spread over sections
	// (running_cursor, independent_slices).
	PlacementPolicy string `mapstructure:"placement_policy"`
	// StrictFigures makes a missing figure fail composition instead of
	// rendering the placeholder image.
	StrictFigures bool `mapstructure:"strict_figures"`
}

// KafkaConfig holds Kafka publisher settings.
type KafkaConfig struct {
	// Enabled controls whether events are published.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the Kafka topic paper events are published to.
	Topic string `mapstructure:"topic"`
	// WriteTimeout bounds a single publish.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}
	if c.StatementCacheCapacity > 0 {
		params.Set("statement_cache_capacity", fmt.Sprintf("%d", c.StatementCacheCapacity))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from a .env file, environment variables and
// config files.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paper-assistant-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets use mapstructure:"-" so a config file can never carry them.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads variables from path without overriding ones already set.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Database.Password = os.Getenv(EnvPrefix + "_DATABASE_PASSWORD")
	cfg.Storage.S3.AccessKeyID = os.Getenv(EnvPrefix + "_STORAGE_S3_ACCESS_KEY_ID")
	cfg.Storage.S3.SecretAccessKey = os.Getenv(EnvPrefix + "_STORAGE_S3_SECRET_ACCESS_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "paper-assistant-service")
	v.SetDefault("app.environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 5000)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "paperassist")
	v.SetDefault("database.name", "paper_assistant")
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)
	v.SetDefault("database.statement_cache_capacity", 512)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Storage defaults
	v.SetDefault("storage.backend", StorageBackendLocal)
	v.SetDefault("storage.uploads_root", "uploads")
	v.SetDefault("storage.max_file_bytes", 10<<20)
	v.SetDefault("storage.max_files", 10)
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.key_prefix", "")

	// Renderer defaults
	v.SetDefault("renderer.base_url", "http://localhost:3000")
	v.SetDefault("renderer.timeout", "60s")
	v.SetDefault("renderer.rate_limit", 5.0)
	v.SetDefault("renderer.burst", 5)
	v.SetDefault("renderer.max_retries", 2)
	v.SetDefault("renderer.retry_delay", "1s")
	v.SetDefault("renderer.retry_server_errors", false)

	// Compose defaults
	v.SetDefault("compose.placement_policy", PlacementRunningCursor)
	v.SetDefault("compose.strict_figures", false)

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.paper_assistant_service")
	v.SetDefault("kafka.write_timeout", "10s")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate storage
	switch c.Storage.Backend {
	case StorageBackendLocal:
		if c.Storage.UploadsRoot == "" {
			return fmt.Errorf("storage uploads_root is required for the local backend")
		}
	case StorageBackendS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage s3 bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s", c.Storage.Backend)
	}
	if c.Storage.MaxFileBytes <= 0 {
		return fmt.Errorf("storage max_file_bytes must be positive")
	}
	if c.Storage.MaxFiles <= 0 {
		return fmt.Errorf("storage max_files must be positive")
	}

	// Validate renderer
	u, err := url.Parse(c.Renderer.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid renderer base_url: %q", c.Renderer.BaseURL)
	}
	if c.Renderer.MaxRetries < 0 {
		return fmt.Errorf("renderer max_retries must not be negative")
	}

	// Validate compose
	switch c.Compose.PlacementPolicy {
	case PlacementRunningCursor, PlacementIndependentSlices:
	default:
		return fmt.Errorf("invalid compose placement_policy: %s", c.Compose.PlacementPolicy)
	}

	// Validate kafka
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka brokers and topic are required when kafka is enabled")
	}

	return nil
}
