package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/detox/config.yaml"

// Config holds all detox configuration.
type Config struct {
	Tracking TrackingConfig `yaml:"tracking"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type TrackingConfig struct {
	HeartbeatSeconds int      `yaml:"heartbeat_seconds"`
	DebounceMillis   int      `yaml:"debounce_millis"`
	Timezone         string   `yaml:"timezone"`
	SeedDomains      []string `yaml:"seed_domains"`
}

type StorageConfig struct {
	Path       string `yaml:"path"`
	SQLiteFile string `yaml:"sqlite_file"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"` // megabytes
	MaxBackups int    `yaml:"max_backups"`
}

type MetricsConfig struct {
	Address string `yaml:"address"`
}

// Heartbeat returns the heartbeat period.
func (t TrackingConfig) Heartbeat() time.Duration {
	return time.Duration(t.HeartbeatSeconds) * time.Second
}

// Debounce returns the event debounce delay.
func (t TrackingConfig) Debounce() time.Duration {
	return time.Duration(t.DebounceMillis) * time.Millisecond
}

// Location resolves the configured time zone used for calendar dates.
func (t TrackingConfig) Location() (*time.Location, error) {
	if t.Timezone == "" || t.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(t.Timezone)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Tracking.HeartbeatSeconds <= 0 {
		return fmt.Errorf("tracking.heartbeat_seconds must be positive, got %d", c.Tracking.HeartbeatSeconds)
	}
	if c.Tracking.DebounceMillis <= 0 {
		return fmt.Errorf("tracking.debounce_millis must be positive, got %d", c.Tracking.DebounceMillis)
	}
	if _, err := c.Tracking.Location(); err != nil {
		return fmt.Errorf("tracking.timezone: %w", err)
	}
	if c.Storage.SQLiteFile == "" {
		return fmt.Errorf("storage.sqlite_file must be set")
	}
	return nil
}

// DatabasePath returns the expanded path of the SQLite file.
func (c *Config) DatabasePath() (string, error) {
	dir, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// LogPath returns the expanded path of the log file, relative names being
// placed under the storage directory. Empty means file logging is off.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File == "" {
		return "", nil
	}
	if filepath.IsAbs(c.Logging.File) || c.Logging.File[0] == '~' {
		return ExpandPath(c.Logging.File)
	}
	dir, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Logging.File), nil
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := ExpandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
