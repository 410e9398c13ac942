package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	BLE      BLEConfig  `yaml:"ble"`
	Log      LogConfig  `yaml:"log"`
	Feed     FeedConfig `yaml:"feed"`
	LogLevel string     `yaml:"log_level"`
}

// BLEConfig holds roaster link settings.
type BLEConfig struct {
	ScanTimeout          time.Duration `yaml:"scan_timeout"`
	ConnectTimeout       time.Duration `yaml:"connect_timeout"`
	ConnectRetryInterval time.Duration `yaml:"connect_retry_interval"`
	RetryTimeout         time.Duration `yaml:"retry_timeout"` // chunk writes and reply wait
	WriteRetryInterval   time.Duration `yaml:"write_retry_interval"`
	MTU                  int           `yaml:"mtu"`
	Reconnect            bool          `yaml:"reconnect"`
}

// LogConfig holds settings for the status logger.
type LogConfig struct {
	Interval     time.Duration `yaml:"interval"`      // pause between status polls
	RetryTimeout time.Duration `yaml:"retry_timeout"` // per-poll reply wait
	Path         string        `yaml:"path"`          // CSV file, stdout when empty
}

// FeedConfig holds the live status feed settings.
type FeedConfig struct {
	Listen string `yaml:"listen"` // e.g. ":8080", disabled when empty
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ikawa-ble")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		BLE: BLEConfig{
			ScanTimeout:          5 * time.Second,
			ConnectTimeout:       10 * time.Second,
			ConnectRetryInterval: 100 * time.Millisecond,
			RetryTimeout:         10 * time.Second,
			WriteRetryInterval:   100 * time.Millisecond,
			MTU:                  20,
			Reconnect:            true,
		},
		Log: LogConfig{
			Interval:     100 * time.Millisecond,
			RetryTimeout: time.Second,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in log.path is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Log.Path = expandTilde(cfg.Log.Path)

	return cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when the file does not
// exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// WriteDefault writes the default config to DefaultConfigPath. It returns the
// path written, or "" if a config file already exists there.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}
	header := "# ikawa-ble configuration\n# Durations use Go syntax: 100ms, 5s, 1m.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"ble.scan_timeout", c.BLE.ScanTimeout},
		{"ble.connect_timeout", c.BLE.ConnectTimeout},
		{"ble.connect_retry_interval", c.BLE.ConnectRetryInterval},
		{"ble.retry_timeout", c.BLE.RetryTimeout},
		{"ble.write_retry_interval", c.BLE.WriteRetryInterval},
		{"log.retry_timeout", c.Log.RetryTimeout},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be > 0, got %v", d.name, d.d)
		}
	}

	if c.Log.Interval < 0 {
		return fmt.Errorf("log.interval must not be negative, got %v", c.Log.Interval)
	}

	if c.BLE.MTU < 4 {
		return fmt.Errorf("ble.mtu must be >= 4, got %d", c.BLE.MTU)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ParseLogLevel maps a log_level value to a slog level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
