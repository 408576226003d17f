package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultPath is read when Load is called with an empty path.
const DefaultPath = "config.yaml"

// EnvPrefix marks environment overrides, e.g. POLY_LOG__LEVEL=debug.
const EnvPrefix = "POLY_"

type Config struct {
	Log        LogConfig         `koanf:"log"`
	Storage    StorageConfig     `koanf:"storage"`
	Inspector  InspectorConfig   `koanf:"inspector"`
	Telemetry  TelemetryConfig   `koanf:"telemetry"`
	Connectors []ConnectorConfig `koanf:"connectors" validate:"dive"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `koanf:"format" validate:"omitempty,oneof=json text"`
}

type StorageConfig struct {
	Type     string         `koanf:"type" validate:"omitempty,oneof=sqlite postgres memory none"` // sqlite, postgres, memory, none
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Postgres PostgresConfig `koanf:"postgres"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type PostgresConfig struct {
	DSN string `koanf:"dsn"` // Supports ${ENV_VAR}
}

// InspectorConfig controls the read-only HTTP API over recorded interactions.
type InspectorConfig struct {
	Enabled bool `koanf:"enabled"`
	Port    int  `koanf:"port" validate:"omitempty,min=1,max=65535"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

// ConnectorConfig declares one remote API.
type ConnectorConfig struct {
	Name                 string            `koanf:"name" validate:"required"`
	BaseURL              string            `koanf:"base_url" validate:"required,url"`
	Timeout              string            `koanf:"timeout"`                                             // Duration string like "30s"
	Transport            string            `koanf:"transport" validate:"omitempty,oneof=nethttp fasthttp"` // default nethttp
	BlockPrivateNetworks bool              `koanf:"block_private_networks"`
	Headers              map[string]string `koanf:"headers"` // Values support ${ENV_VAR}
	Middleware           MiddlewareConfig  `koanf:"middleware"`
	Stages               []StageConfig     `koanf:"stages" validate:"dive"`
	Groups               []GroupConfig     `koanf:"groups" validate:"dive"`
}

// MiddlewareConfig switches built-in pipes on.
type MiddlewareConfig struct {
	RequestID  bool `koanf:"request_id"`
	Logging    bool `koanf:"logging"`
	Metrics    bool `koanf:"metrics"`
	Decompress bool `koanf:"decompress"`
	Record     bool `koanf:"record"`
}

// StageConfig declares an external webhook stage.
type StageConfig struct {
	Name         string            `koanf:"name" validate:"required"`
	Phase        string            `koanf:"phase" validate:"required,oneof=request response"`
	URL          string            `koanf:"url" validate:"required,url"`
	Timeout      string            `koanf:"timeout"`
	OnError      string            `koanf:"on_error" validate:"omitempty,oneof=allow deny"` // default deny
	Retries      int               `koanf:"retries" validate:"min=0"`
	HighPriority bool              `koanf:"high_priority"`
	Headers      map[string]string `koanf:"headers"`
}

// GroupConfig declares a named set of requests on a connector.
type GroupConfig struct {
	Name     string          `koanf:"name" validate:"required"`
	Requests []RequestConfig `koanf:"requests" validate:"required,min=1,dive"`
}

// RequestConfig declares a request template. Endpoint placeholders like
// {owner} are filled from dispatch arguments.
type RequestConfig struct {
	Name     string            `koanf:"name" validate:"required"`
	Method   string            `koanf:"method" validate:"required"`
	Endpoint string            `koanf:"endpoint"`
	Headers  map[string]string `koanf:"headers"`
	Query    map[string]string `koanf:"query"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads path (DefaultPath if empty), applies POLY_ environment
// overrides, fills defaults, substitutes ${VAR} references in header values
// and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	defaults := map[string]any{
		"log.level":              "info",
		"log.format":             "json",
		"storage.type":           "memory",
		"inspector.port":         8081,
		"telemetry.service_name": "polyglot-connector",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Type == "sqlite" && c.Storage.SQLite.Path == "" {
		c.Storage.SQLite.Path = "./data/interactions.db"
	}
	c.Storage.Postgres.DSN = substituteEnvVars(c.Storage.Postgres.DSN)

	for i := range c.Connectors {
		conn := &c.Connectors[i]
		if conn.Timeout == "" {
			conn.Timeout = "30s"
		}
		if conn.Transport == "" {
			conn.Transport = "nethttp"
		}
		for k, v := range conn.Headers {
			conn.Headers[k] = substituteEnvVars(v)
		}
		for j := range conn.Stages {
			stage := &conn.Stages[j]
			if stage.OnError == "" {
				stage.OnError = "deny"
			}
			for k, v := range stage.Headers {
				stage.Headers[k] = substituteEnvVars(v)
			}
		}
		for j := range conn.Groups {
			for r := range conn.Groups[j].Requests {
				req := &conn.Groups[j].Requests[r]
				for k, v := range req.Headers {
					req.Headers[k] = substituteEnvVars(v)
				}
			}
		}
	}
}

// Validate checks struct constraints, duration strings and name uniqueness.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Storage.Type == "postgres" && cfg.Storage.Postgres.DSN == "" {
		return fmt.Errorf("invalid config: storage.postgres.dsn is required for postgres storage")
	}

	connectors := make(map[string]bool, len(cfg.Connectors))
	for _, conn := range cfg.Connectors {
		if connectors[conn.Name] {
			return fmt.Errorf("invalid config: duplicate connector %q", conn.Name)
		}
		connectors[conn.Name] = true

		if _, err := ParseDuration(conn.Timeout, 0); err != nil {
			return fmt.Errorf("invalid config: connector %s: %w", conn.Name, err)
		}
		for _, stage := range conn.Stages {
			if _, err := ParseDuration(stage.Timeout, 0); err != nil {
				return fmt.Errorf("invalid config: connector %s stage %s: %w", conn.Name, stage.Name, err)
			}
		}

		groups := make(map[string]bool, len(conn.Groups))
		for _, group := range conn.Groups {
			if groups[group.Name] {
				return fmt.Errorf("invalid config: connector %s: duplicate group %q", conn.Name, group.Name)
			}
			groups[group.Name] = true

			requests := make(map[string]bool, len(group.Requests))
			for _, req := range group.Requests {
				if requests[req.Name] {
					return fmt.Errorf("invalid config: connector %s group %s: duplicate request %q", conn.Name, group.Name, req.Name)
				}
				requests[req.Name] = true
			}
		}
	}

	return nil
}

// ParseDuration parses s, returning def when s is empty.
func ParseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	return d, nil
}

// Connector returns the connector config with the given name.
func (c *Config) Connector(name string) (ConnectorConfig, bool) {
	for _, conn := range c.Connectors {
		if conn.Name == name {
			return conn, true
		}
	}
	return ConnectorConfig{}, false
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
