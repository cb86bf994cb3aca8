package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Logging   LogConfig       `toml:"logging" yaml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit" yaml:"rate_limit"`
	Sync      SyncConfig      `toml:"sync" yaml:"sync"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string   `envconfig:"PORT" default:"8000" toml:"port" yaml:"port"`
	Host            string   `envconfig:"HOST" default:"127.0.0.1" toml:"host" yaml:"host"`
	ShutdownTimeout Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s" toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	// MaxConnections caps simultaneous TCP connections; zero means unlimited.
	MaxConnections  int      `envconfig:"MAX_CONNECTIONS" default:"256" toml:"max_connections" yaml:"max_connections"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" toml:"level" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" toml:"development" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" toml:"requests_per_second" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" toml:"burst" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" toml:"enabled" yaml:"enabled"`
}

// SyncConfig holds state synchronization configuration.
type SyncConfig struct {
	// EventName is the push event the UI listens for.
	EventName       string   `envconfig:"SYNC_EVENT_NAME" default:"update_state" toml:"event_name" yaml:"event_name"`
	// EchoOnReplace re-pushes the state after every accepted replace_state.
	EchoOnReplace   bool     `envconfig:"SYNC_ECHO_ON_REPLACE" default:"false" toml:"echo_on_replace" yaml:"echo_on_replace"`
	WriteTimeout    Duration `envconfig:"WS_WRITE_TIMEOUT" default:"10s" toml:"write_timeout" yaml:"write_timeout"`
	MaxMessageBytes int64    `envconfig:"WS_MAX_MESSAGE_BYTES" default:"16777216" toml:"max_message_bytes" yaml:"max_message_bytes"`
}

// Load loads configuration from environment variables. When CONFIG_FILE is
// set, the file is read first and environment variables override it.
func Load() (*Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return LoadFile(path)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile reads a TOML or YAML settings file over the defaults, then applies
// environment overrides. Only variables that are actually set override the
// file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse toml config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse yaml config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", ext)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// envOverrides maps each environment variable to the field it sets.
var envOverrides = map[string]func(dst, src *Config){
	"PORT":                 func(d, s *Config) { d.Server.Port = s.Server.Port },
	"HOST":                 func(d, s *Config) { d.Server.Host = s.Server.Host },
	"SHUTDOWN_TIMEOUT":     func(d, s *Config) { d.Server.ShutdownTimeout = s.Server.ShutdownTimeout },
	"MAX_CONNECTIONS":      func(d, s *Config) { d.Server.MaxConnections = s.Server.MaxConnections },
	"LOG_LEVEL":            func(d, s *Config) { d.Logging.Level = s.Logging.Level },
	"LOG_DEV":              func(d, s *Config) { d.Logging.Development = s.Logging.Development },
	"RATE_LIMIT_RPS":       func(d, s *Config) { d.RateLimit.RequestsPerSecond = s.RateLimit.RequestsPerSecond },
	"RATE_LIMIT_BURST":     func(d, s *Config) { d.RateLimit.Burst = s.RateLimit.Burst },
	"RATE_LIMIT_ENABLED":   func(d, s *Config) { d.RateLimit.Enabled = s.RateLimit.Enabled },
	"SYNC_EVENT_NAME":      func(d, s *Config) { d.Sync.EventName = s.Sync.EventName },
	"SYNC_ECHO_ON_REPLACE": func(d, s *Config) { d.Sync.EchoOnReplace = s.Sync.EchoOnReplace },
	"WS_WRITE_TIMEOUT":     func(d, s *Config) { d.Sync.WriteTimeout = s.Sync.WriteTimeout },
	"WS_MAX_MESSAGE_BYTES": func(d, s *Config) { d.Sync.MaxMessageBytes = s.Sync.MaxMessageBytes },
}

// applyEnv overlays only the environment variables that are set. A plain
// envconfig.Process would reset file values back to the tag defaults.
func applyEnv(cfg *Config) error {
	var overlay Config
	if err := envconfig.Process("", &overlay); err != nil {
		return err
	}

	for key, apply := range envOverrides {
		if _, ok := os.LookupEnv(key); ok {
			apply(cfg, &overlay)
		}
	}
	return nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "127.0.0.1",
			ShutdownTimeout: Duration(5 * time.Second),
			MaxConnections:  256,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Sync: SyncConfig{
			EventName:       "update_state",
			EchoOnReplace:   false,
			WriteTimeout:    Duration(10 * time.Second),
			MaxMessageBytes: 16 << 20,
		},
	}
}

// Duration is a time.Duration written as "5s" in settings files and
// environment variables.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
