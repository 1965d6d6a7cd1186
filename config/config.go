// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/artpar/crudkit/core/model"
)

// Config is the root configuration structure.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	OpenAPI     OpenAPIConfig     `yaml:"openapi"`
	Events      EventsConfig      `yaml:"events"`
	Permissions PermissionsConfig `yaml:"permissions"`

	// Models are declared inline, in ModelsDir, or both.
	Models    []model.Definition `yaml:"models"`
	ModelsDir string             `yaml:"models_dir"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	BasePath        string        `yaml:"base_path"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the connection pool.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // "sqlite3" (cgo) or "sqlite" (pure Go)
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// OpenAPIConfig configures OpenAPI/Swagger documentation.
type OpenAPIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

// EventsConfig configures where change events are forwarded.
type EventsConfig struct {
	Driver string `yaml:"driver"` // "none", "nats" or "redis"
	URL    string `yaml:"url"`

	// Prefix is the NATS subject prefix.
	Prefix string `yaml:"prefix"`

	// Stream and MaxLen configure the Redis stream.
	Stream string `yaml:"stream"`
	MaxLen int64  `yaml:"max_len"`
}

// PermissionsConfig configures the permission checker.
type PermissionsConfig struct {
	// Header carries the caller's comma separated permissions, set by a
	// trusted upstream.
	Header string `yaml:"header"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse reads configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Definitions returns the inline models followed by those in ModelsDir,
// with defaults applied and validated.
func (c *Config) Definitions() ([]model.Definition, error) {
	defs := make([]model.Definition, 0, len(c.Models))
	for _, d := range c.Models {
		d.ApplyDefaults()
		if err := d.Validate(); err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}

	if c.ModelsDir != "" {
		more, err := model.ParseDir(c.ModelsDir)
		if err != nil {
			return nil, err
		}
		defs = append(defs, more...)
	}

	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if seen[d.Name] {
			return nil, fmt.Errorf("model %q declared twice", d.Name)
		}
		seen[d.Name] = true
	}
	return defs, nil
}

// applyEnvOverrides applies CRUDKIT_* environment variables to the config.
// Environment variables always override file-based configuration.
//
//	CRUDKIT_SERVER_HOST       - Server host (default: 0.0.0.0)
//	CRUDKIT_SERVER_PORT       - Server port (default: 8080)
//	CRUDKIT_DATABASE_DRIVER   - sqlite3 or sqlite (default: sqlite3)
//	CRUDKIT_DATABASE_DSN      - Database path (default: crudkit.db)
//	CRUDKIT_LOG_LEVEL         - debug, info, warn, error (default: info)
//	CRUDKIT_LOG_FORMAT        - json or console (default: json)
//	CRUDKIT_METRICS_ENABLED   - Enable /metrics
//	CRUDKIT_OPENAPI_ENABLED   - Enable OpenAPI/Swagger
//	CRUDKIT_EVENTS_DRIVER     - none, nats or redis
//	CRUDKIT_EVENTS_URL        - Broker URL
//	CRUDKIT_MODELS_DIR        - Directory of model definitions
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("CRUDKIT_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("CRUDKIT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CRUDKIT_SERVER_BASE_PATH"); v != "" {
		cfg.Server.BasePath = v
	}
	if v := os.Getenv("CRUDKIT_SERVER_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.RequestTimeout = d
		}
	}

	// Database configuration
	if v := os.Getenv("CRUDKIT_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("CRUDKIT_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("CRUDKIT_DATABASE_MAX_OPEN_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Database.MaxOpenConns = n
		}
	}

	// Logging configuration
	if v := os.Getenv("CRUDKIT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CRUDKIT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("CRUDKIT_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("CRUDKIT_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	// OpenAPI configuration
	if v := os.Getenv("CRUDKIT_OPENAPI_ENABLED"); v != "" {
		cfg.OpenAPI.Enabled = parseBool(v)
	}

	// Events configuration
	if v := os.Getenv("CRUDKIT_EVENTS_DRIVER"); v != "" {
		cfg.Events.Driver = v
	}
	if v := os.Getenv("CRUDKIT_EVENTS_URL"); v != "" {
		cfg.Events.URL = v
	}

	if v := os.Getenv("CRUDKIT_MODELS_DIR"); v != "" {
		cfg.ModelsDir = v
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
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite3"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "crudkit.db"
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

	if cfg.OpenAPI.Title == "" {
		cfg.OpenAPI.Title = "crudkit API"
	}
	if cfg.OpenAPI.Version == "" {
		cfg.OpenAPI.Version = "1.0.0"
	}

	if cfg.Events.Driver == "" {
		cfg.Events.Driver = "none"
	}
	if cfg.Events.Prefix == "" {
		cfg.Events.Prefix = "crudkit"
	}
	if cfg.Events.Stream == "" {
		cfg.Events.Stream = "crudkit:events"
	}

	if cfg.Permissions.Header == "" {
		cfg.Permissions.Header = "X-Permissions"
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.BasePath != "" && !strings.HasPrefix(cfg.Server.BasePath, "/") {
		return fmt.Errorf("server.base_path must start with /, got %q", cfg.Server.BasePath)
	}

	validDrivers := map[string]bool{"sqlite3": true, "sqlite": true}
	if !validDrivers[cfg.Database.Driver] {
		return fmt.Errorf("database.driver must be 'sqlite3' or 'sqlite', got %q", cfg.Database.Driver)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", cfg.Metrics.Path)
	}

	validEvents := map[string]bool{"none": true, "nats": true, "redis": true}
	if !validEvents[cfg.Events.Driver] {
		return fmt.Errorf("events.driver must be one of: none, nats, redis")
	}
	if cfg.Events.Driver == "redis" && cfg.Events.URL == "" {
		return fmt.Errorf("events.url is required when events.driver is 'redis'")
	}

	for i, m := range cfg.Models {
		if m.Name == "" {
			return fmt.Errorf("models[%d].name is required", i)
		}
	}

	return nil
}
