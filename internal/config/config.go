// Package config loads and validates the CreaVibe backend configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the CREAVIBE_ prefix (e.g.,
// CREAVIBE_DATABASE_HOST overrides database.host in the YAML), so the same binary
// runs with a config.yaml locally and with pure environment variables in containers.
//
// Secrets (database password, BaaS JWT secret, billing webhook secret, storage keys)
// may also be written as ${VAR} references in the YAML and are expanded at load time.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	BaaS      BaaSConfig      `mapstructure:"baas"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Billing   BillingConfig   `mapstructure:"billing"`
	Tokens    TokensConfig    `mapstructure:"tokens"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	BaseURL         string        `mapstructure:"base_url"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds the connection settings for the BaaS Postgres database
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
	// AutoMigrate applies embedded migrations on server startup
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// BaaSConfig holds the backend-as-a-service project settings.
// JWTSecret is the project's HS256 signing secret used to verify access tokens.
type BaaSConfig struct {
	URL       string `mapstructure:"url"`
	AnonKey   string `mapstructure:"anon_key"`
	JWTSecret string `mapstructure:"jwt_secret"`
	// JWTAudience is the expected "aud" claim; empty disables the check
	JWTAudience string `mapstructure:"jwt_audience"`
}

// RedisConfig holds the shared key-value store configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig holds fixed-window rate limiting configuration
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Backend is "redis", "memory" or "auto" (redis when reachable, else memory)
	Backend  string          `mapstructure:"backend"`
	API      RateLimitPolicy `mapstructure:"api"`
	Tokens   RateLimitPolicy `mapstructure:"tokens"`
	Webhooks RateLimitPolicy `mapstructure:"webhooks"`
	Public   RateLimitPolicy `mapstructure:"public"`
}

// RateLimitPolicy is a request budget per window
type RateLimitPolicy struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// StorageConfig holds storage backend configuration for uploaded project images
type StorageConfig struct {
	DefaultBackend string             `mapstructure:"default_backend"`
	S3             S3StorageConfig    `mapstructure:"s3"`
	Local          LocalStorageConfig `mapstructure:"local"`
	// MaxUploadBytes caps a single image upload
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// S3StorageConfig holds S3-compatible storage configuration (the BaaS storage endpoint)
type S3StorageConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Region   string `mapstructure:"region"`
	Bucket   string `mapstructure:"bucket"`

	// Authentication method: "default" or "static"
	AuthMethod      string `mapstructure:"auth_method"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// PublicURL is the base URL under which objects are publicly readable.
	// When empty, presigned URLs are returned instead.
	PublicURL string `mapstructure:"public_url"`
}

// LocalStorageConfig holds local filesystem storage configuration
type LocalStorageConfig struct {
	BasePath      string `mapstructure:"base_path"`
	ServeDirectly bool   `mapstructure:"serve_directly"`
}

// BillingConfig holds payment-provider webhook configuration
type BillingConfig struct {
	WebhookSecret string `mapstructure:"webhook_secret"`
	// Tolerance is the maximum allowed clock skew of a signed webhook timestamp
	Tolerance time.Duration `mapstructure:"tolerance"`
}

// TokensConfig holds opaque API token settings
type TokensConfig struct {
	Prefix string `mapstructure:"prefix"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
	TLS  TLSConfig  `mapstructure:"tls"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

// TLSConfig holds TLS/HTTPS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

// AuditConfig holds audit logging configuration
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// LogFailedRequests determines if failed requests (4xx/5xx) should be logged
	LogFailedRequests bool `mapstructure:"log_failed_requests"`
}

// envKeys lists every nested key that must be resolvable from the environment.
// AutomaticEnv() alone does not cover keys that are absent from both defaults and file
// during Unmarshal.
var envKeys = []string{
	// Server
	"server.host",
	"server.port",
	"server.base_url",
	"server.read_timeout",
	"server.write_timeout",
	"server.shutdown_timeout",

	// Database
	"database.host",
	"database.port",
	"database.name",
	"database.user",
	"database.password",
	"database.ssl_mode",
	"database.max_connections",
	"database.min_idle_connections",
	"database.auto_migrate",

	// BaaS
	"baas.url",
	"baas.anon_key",
	"baas.jwt_secret",
	"baas.jwt_audience",

	// Redis
	"redis.addr",
	"redis.password",
	"redis.db",

	// Rate limiting
	"rate_limit.enabled",
	"rate_limit.backend",
	"rate_limit.api.limit",
	"rate_limit.api.window",
	"rate_limit.tokens.limit",
	"rate_limit.tokens.window",
	"rate_limit.webhooks.limit",
	"rate_limit.webhooks.window",
	"rate_limit.public.limit",
	"rate_limit.public.window",

	// Storage
	"storage.default_backend",
	"storage.max_upload_bytes",
	"storage.s3.endpoint",
	"storage.s3.region",
	"storage.s3.bucket",
	"storage.s3.auth_method",
	"storage.s3.access_key_id",
	"storage.s3.secret_access_key",
	"storage.s3.public_url",
	"storage.local.base_path",
	"storage.local.serve_directly",

	// Billing
	"billing.webhook_secret",
	"billing.tolerance",

	// Tokens
	"tokens.prefix",

	// Security
	"security.cors.allowed_origins",
	"security.cors.allowed_methods",
	"security.tls.enabled",
	"security.tls.cert_file",
	"security.tls.key_file",

	// Logging
	"logging.level",
	"logging.format",

	// Telemetry
	"telemetry.enabled",
	"telemetry.service_name",
	"telemetry.metrics.enabled",
	"telemetry.metrics.prometheus_port",

	// Audit
	"audit.enabled",
	"audit.log_failed_requests",
}

// bindEnvVars explicitly binds environment variables to config keys.
// viper.BindEnv only errors when called with zero keys, so any error is a programming bug.
func bindEnvVars(v *viper.Viper) error {
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// newViper builds a viper instance with defaults, file lookup and env binding applied.
func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/creavibe")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	v.SetEnvPrefix("CREAVIBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}
	return v, nil
}

// decode unmarshals, expands secrets and validates.
func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Database.Password = expandEnv(cfg.Database.Password)
	cfg.BaaS.JWTSecret = expandEnv(cfg.BaaS.JWTSecret)
	cfg.BaaS.AnonKey = expandEnv(cfg.BaaS.AnonKey)
	cfg.Redis.Password = expandEnv(cfg.Redis.Password)
	cfg.Storage.S3.AccessKeyID = expandEnv(cfg.Storage.S3.AccessKeyID)
	cfg.Storage.S3.SecretAccessKey = expandEnv(cfg.Storage.S3.SecretAccessKey)
	cfg.Billing.WebhookSecret = expandEnv(cfg.Billing.WebhookSecret)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_idle_connections", 5)
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	// Rate limiting defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", "auto")
	v.SetDefault("rate_limit.api.limit", 100)
	v.SetDefault("rate_limit.api.window", "1m")
	v.SetDefault("rate_limit.tokens.limit", 10)
	v.SetDefault("rate_limit.tokens.window", "1m")
	v.SetDefault("rate_limit.webhooks.limit", 300)
	v.SetDefault("rate_limit.webhooks.window", "1m")
	v.SetDefault("rate_limit.public.limit", 60)
	v.SetDefault("rate_limit.public.window", "1m")

	// Storage defaults
	v.SetDefault("storage.default_backend", "local")
	v.SetDefault("storage.max_upload_bytes", 5<<20)
	v.SetDefault("storage.local.base_path", "./storage")
	v.SetDefault("storage.local.serve_directly", true)
	v.SetDefault("storage.s3.auth_method", "static")

	// Billing defaults
	v.SetDefault("billing.tolerance", "5m")

	// Token defaults
	v.SetDefault("tokens.prefix", "cv_")

	// Security defaults
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("security.tls.enabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.service_name", "creavibe")
	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.prometheus_port", 9090)

	// Audit defaults
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.log_failed_requests", false)
}

// expandEnv expands environment variables in the format ${VAR_NAME}
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}

	if c.BaaS.JWTSecret == "" {
		return fmt.Errorf("baas.jwt_secret is required")
	}

	validLimiters := map[string]bool{"redis": true, "memory": true, "auto": true}
	if !validLimiters[c.RateLimit.Backend] {
		return fmt.Errorf("invalid rate_limit.backend: %s (must be redis, memory, or auto)", c.RateLimit.Backend)
	}
	if c.RateLimit.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when rate_limit.backend is redis")
	}
	if c.RateLimit.Enabled {
		policies := map[string]RateLimitPolicy{
			"api":      c.RateLimit.API,
			"tokens":   c.RateLimit.Tokens,
			"webhooks": c.RateLimit.Webhooks,
			"public":   c.RateLimit.Public,
		}
		for name, p := range policies {
			if p.Limit < 1 || p.Window <= 0 {
				return fmt.Errorf("rate_limit.%s requires a positive limit and window", name)
			}
		}
	}

	validBackends := map[string]bool{"s3": true, "local": true}
	if !validBackends[c.Storage.DefaultBackend] {
		return fmt.Errorf("invalid storage backend: %s (must be s3 or local)", c.Storage.DefaultBackend)
	}
	if c.Storage.DefaultBackend == "s3" {
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when using S3 backend")
		}
		if c.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when using S3 backend")
		}
	}
	if c.Storage.DefaultBackend == "local" && c.Storage.Local.BasePath == "" {
		return fmt.Errorf("storage.local.base_path is required when using local backend")
	}

	if c.Security.TLS.Enabled {
		if c.Security.TLS.CertFile == "" {
			return fmt.Errorf("security.tls.cert_file is required when TLS is enabled")
		}
		if c.Security.TLS.KeyFile == "" {
			return fmt.Errorf("security.tls.key_file is required when TLS is enabled")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetAddress returns the server address in host:port format
func (c *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
