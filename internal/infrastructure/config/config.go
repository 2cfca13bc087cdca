// Package config resolves where flowboard talks to and how it behaves.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory.
const FileName = "flowboard.yaml"

// Environment overrides.
const (
	EnvAPIURL        = "FLOWBOARD_API_URL"
	EnvChannelURL    = "FLOWBOARD_WS_URL"
	EnvLogLevel      = "FLOWBOARD_LOG_LEVEL"
	EnvReconnect     = "FLOWBOARD_RECONNECT"
	EnvUploadTimeout = "FLOWBOARD_UPLOAD_TIMEOUT"
)

// Defaults point at a local development backend.
const (
	DefaultAPIURL     = "http://localhost:8000/projects"
	DefaultChannelURL = "ws://localhost:8000/ws/tasks"
)

// ReconnectConfig controls re-dialing the push channel after a drop.
type ReconnectConfig struct {
	Enabled      bool          `yaml:"enabled"`
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
}

// Config is the effective client configuration.
type Config struct {
	APIURL        string          `yaml:"api_url"`
	ChannelURL    string          `yaml:"ws_url"`
	UploadTimeout time.Duration   `yaml:"upload_timeout"`
	Reconnect     ReconnectConfig `yaml:"reconnect"`
	LogLevel      string          `yaml:"log_level"`
}

// fileConfig is the on-disk shape: durations are written as "1m0s" rather
// than nanosecond integers. Both forms load back into Config.
type fileConfig struct {
	APIURL        string        `yaml:"api_url"`
	ChannelURL    string        `yaml:"ws_url"`
	UploadTimeout string        `yaml:"upload_timeout"`
	Reconnect     fileReconnect `yaml:"reconnect"`
	LogLevel      string        `yaml:"log_level"`
}

type fileReconnect struct {
	Enabled      bool   `yaml:"enabled"`
	MaxAttempts  int    `yaml:"max_attempts"`
	InitialDelay string `yaml:"initial_delay"`
}

// MarshalYAML implements yaml.Marshaler.
func (c Config) MarshalYAML() (interface{}, error) {
	return fileConfig{
		APIURL:        c.APIURL,
		ChannelURL:    c.ChannelURL,
		UploadTimeout: c.UploadTimeout.String(),
		Reconnect: fileReconnect{
			Enabled:      c.Reconnect.Enabled,
			MaxAttempts:  c.Reconnect.MaxAttempts,
			InitialDelay: c.Reconnect.InitialDelay.String(),
		},
		LogLevel: c.LogLevel,
	}, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIURL:        DefaultAPIURL,
		ChannelURL:    DefaultChannelURL,
		UploadTimeout: 60 * time.Second,
		Reconnect: ReconnectConfig{
			MaxAttempts:  5,
			InitialDelay: 500 * time.Millisecond,
		},
		LogLevel: "info",
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (missing is fine), then a .env file next to the working directory,
// then the process environment. An empty path means FileName.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = FileName
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(EnvChannelURL); v != "" {
		c.ChannelURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvReconnect); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvReconnect, err)
		}
		c.Reconnect.Enabled = on
	}
	if v := os.Getenv(EnvUploadTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvUploadTimeout, err)
		}
		c.UploadTimeout = d
	}
	return nil
}

// Validate checks the endpoint URLs and numeric settings.
func (c *Config) Validate() error {
	if err := checkURL(c.APIURL, "http", "https"); err != nil {
		return fmt.Errorf("api_url: %w", err)
	}
	if err := checkURL(c.ChannelURL, "ws", "wss"); err != nil {
		return fmt.Errorf("ws_url: %w", err)
	}
	if c.UploadTimeout <= 0 {
		return fmt.Errorf("upload_timeout must be positive")
	}
	if c.Reconnect.Enabled && c.Reconnect.MaxAttempts <= 0 {
		return fmt.Errorf("reconnect.max_attempts must be positive when reconnect is enabled")
	}
	return nil
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			return nil
		}
	}
	return fmt.Errorf("%q must use %s", raw, strings.Join(schemes, " or "))
}

// Save writes the configuration as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if path == "" {
		path = FileName
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
