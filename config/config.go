// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/modgate/domain/access"
	"github.com/artpar/modgate/domain/apiconfig"
	"gopkg.in/yaml.v3"
)

// Modes.
const (
	AuthLocal  = "local"
	AuthRemote = "remote"

	RequestLogNone   = "none"
	RequestLogLocal  = "local"
	RequestLogRemote = "remote"
	RequestLogRedis  = "redis"
)

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Service    apiconfig.Main   `yaml:"service"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Auth       AuthConfig       `yaml:"auth"`
	RequestLog RequestLogConfig `yaml:"request_log"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"` // 0 disables
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GatewayConfig configures dispatch behavior.
type GatewayConfig struct {
	HideErrorDetails bool `yaml:"hide_error_details"`
}

// AuthConfig configures access key resolution.
// Use "local" for the built-in key store or "remote" to delegate to an external service.
type AuthConfig struct {
	Mode      string       `yaml:"mode"`
	KeyPrefix string       `yaml:"key_prefix"`
	Remote    RemoteConfig `yaml:"remote,omitempty"`
}

// RequestLogConfig configures the completed-request sink.
type RequestLogConfig struct {
	Mode          string        `yaml:"mode"` // "none", "local", "remote", "redis"
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	MaxBuffer     int           `yaml:"max_buffer"`
	Remote        RemoteConfig  `yaml:"remote,omitempty"`
	Redis         RedisConfig   `yaml:"redis,omitempty"`
}

// RemoteConfig configures a remote service endpoint.
type RemoteConfig struct {
	URL     string            `yaml:"url"`
	APIKey  string            `yaml:"api_key,omitempty"`
	Timeout time.Duration     `yaml:"timeout,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// RedisConfig configures the Redis stream sink.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
	MaxLen   int64  `yaml:"max_len"`
}

// DatabaseConfig configures the database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite"
	DSN    string `yaml:"dsn"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // default: /metrics
}

// Error is returned for every configuration failure.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return "config: " + e.Err.Error()
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	_, cfg, err := loadFile(path)
	return cfg, err
}

func loadFile(path string) ([]byte, *Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &Error{Path: path, Err: fmt.Errorf("read config: %w", err)}
	}

	cfg, err := Parse(data)
	if err != nil {
		var cerr *Error
		if errors.As(err, &cerr) {
			cerr.Path = path
		}
		return nil, nil, err
	}
	return data, cfg, nil
}

// Parse decodes, completes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &Error{Err: fmt.Errorf("parse config: %w", err)}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, &Error{Err: err}
	}
	cfg.Service.BasePath = apiconfig.NormalizeBasePath(cfg.Service.BasePath)

	return &cfg, nil
}

// applyEnvOverrides applies MODGATE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("MODGATE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("MODGATE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	// Gateway configuration
	if v := os.Getenv("MODGATE_HIDE_ERROR_DETAILS"); v != "" {
		cfg.Gateway.HideErrorDetails = parseBool(v)
	}

	// Auth configuration
	if v := os.Getenv("MODGATE_AUTH_MODE"); v != "" {
		cfg.Auth.Mode = v
	}
	if v := os.Getenv("MODGATE_AUTH_KEY_PREFIX"); v != "" {
		cfg.Auth.KeyPrefix = v
	}
	if v := os.Getenv("MODGATE_AUTH_REMOTE_URL"); v != "" {
		cfg.Auth.Remote.URL = v
	}

	// Request log configuration
	if v := os.Getenv("MODGATE_REQUEST_LOG_MODE"); v != "" {
		cfg.RequestLog.Mode = v
	}
	if v := os.Getenv("MODGATE_REQUEST_LOG_REMOTE_URL"); v != "" {
		cfg.RequestLog.Remote.URL = v
	}
	if v := os.Getenv("MODGATE_REDIS_ADDR"); v != "" {
		cfg.RequestLog.Redis.Addr = v
	}
	if v := os.Getenv("MODGATE_REDIS_PASSWORD"); v != "" {
		cfg.RequestLog.Redis.Password = v
	}

	// Database configuration
	if v := os.Getenv("MODGATE_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	// Logging configuration
	if v := os.Getenv("MODGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MODGATE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("MODGATE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("MODGATE_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Auth.Mode == "" {
		cfg.Auth.Mode = AuthLocal
	}
	if cfg.Auth.KeyPrefix == "" {
		cfg.Auth.KeyPrefix = "ak_"
	}

	if cfg.RequestLog.Mode == "" {
		cfg.RequestLog.Mode = RequestLogNone
	}
	if cfg.RequestLog.BatchSize == 0 {
		cfg.RequestLog.BatchSize = 100
	}
	if cfg.RequestLog.FlushInterval == 0 {
		cfg.RequestLog.FlushInterval = 10 * time.Second
	}
	if cfg.RequestLog.Redis.Stream == "" {
		cfg.RequestLog.Redis.Stream = "modgate:requests"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "modgate.db"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if err := apiconfig.Validate(cfg.Service); err != nil {
		return err
	}
	if err := apiconfig.CheckReserved(cfg.Service, cfg.ReservedSegments()...); err != nil {
		return err
	}

	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", apiconfig.ErrInvalid, fmt.Sprintf(format, args...))
	}

	switch cfg.Auth.Mode {
	case AuthLocal:
	case AuthRemote:
		if cfg.Auth.Remote.URL == "" {
			return invalid("auth.remote.url is required when auth.mode is 'remote'")
		}
	default:
		return invalid("auth.mode must be 'local' or 'remote', got %q", cfg.Auth.Mode)
	}
	if len(cfg.Auth.KeyPrefix) > access.MaxKeyPrefixLen {
		return invalid("auth.key_prefix must be at most %d bytes, got %q", access.MaxKeyPrefixLen, cfg.Auth.KeyPrefix)
	}

	switch cfg.RequestLog.Mode {
	case RequestLogNone, RequestLogLocal:
	case RequestLogRemote:
		if cfg.RequestLog.Remote.URL == "" {
			return invalid("request_log.remote.url is required when request_log.mode is 'remote'")
		}
	case RequestLogRedis:
		if cfg.RequestLog.Redis.Addr == "" {
			return invalid("request_log.redis.addr is required when request_log.mode is 'redis'")
		}
	default:
		return invalid("request_log.mode must be one of: none, local, remote, redis")
	}

	if cfg.Database.Driver != "sqlite" {
		return invalid("database.driver must be 'sqlite', got %q", cfg.Database.Driver)
	}

	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return invalid("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return invalid("metrics.path must start with /")
	}

	return nil
}

// NeedsDatabase reports whether any configured component uses the local database.
func (c *Config) NeedsDatabase() bool {
	return c.Auth.Mode == AuthLocal || c.RequestLog.Mode == RequestLogLocal
}

// ReservedSegments returns the top-level path segments served next to a
// root-mounted gateway, which version ids must not shadow.
func (c *Config) ReservedSegments() []string {
	out := []string{"health", "version"}
	if c.Metrics.Enabled {
		if seg := strings.Trim(c.Metrics.Path, "/"); seg != "" {
			out = append(out, strings.SplitN(seg, "/", 2)[0])
		}
	}
	return out
}
