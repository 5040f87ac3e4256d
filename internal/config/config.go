package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kenneth/homevault/internal/crypto"
)

// Config holds the complete application configuration.
type Config struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"` // text or json

	Store   StoreConfig   `yaml:"store"`
	Backup  BackupConfig  `yaml:"backup"`
	Watch   WatchConfig   `yaml:"watch"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// StoreConfig holds database configuration.
type StoreConfig struct {
	Path string `yaml:"path" env:"STORE_PATH"`
}

// BackupConfig holds export defaults.
type BackupConfig struct {
	Dir string `yaml:"dir" env:"BACKUP_DIR"`
	// Passphrase enables encrypted exports when set. Prefer the
	// BACKUP_PASSPHRASE environment variable over the config file.
	Passphrase string `yaml:"passphrase" env:"BACKUP_PASSPHRASE"`
	// CipherVersion selects the envelope format for encrypted exports
	// ("2" or "3"; empty means the current default). Version 1 is
	// read-only and rejected.
	CipherVersion string `yaml:"cipher_version" env:"BACKUP_CIPHER_VERSION"`
}

// WatchConfig holds auto-import configuration.
type WatchConfig struct {
	Enabled bool   `yaml:"enabled" env:"WATCH_ENABLED"`
	Dir     string `yaml:"dir" env:"WATCH_DIR"`
	// Debounce is how long a file must stay quiet before it is imported,
	// so half-written files are not picked up.
	Debounce time.Duration `yaml:"debounce" env:"WATCH_DEBOUNCE"`
}

// AuditConfig holds audit logging configuration.
type AuditConfig struct {
	Enabled   bool `yaml:"enabled" env:"AUDIT_ENABLED"`
	MaxEvents int  `yaml:"max_events" env:"AUDIT_MAX_EVENTS"` // Max events to keep in memory
}

// MetricsConfig holds the Prometheus endpoint configuration.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled" env:"METRICS_ENABLED"`
	ListenAddr string `yaml:"listen_addr" env:"METRICS_LISTEN_ADDR"`
}

// LoadConfig loads configuration from a file and environment variables.
func LoadConfig(path string) (*Config, error) {
	config := &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Store: StoreConfig{
			Path: "data/homevault.db",
		},
		Backup: BackupConfig{
			Dir: "backups",
		},
		Watch: WatchConfig{
			Enabled:  false,
			Debounce: 500 * time.Millisecond,
		},
		Audit: AuditConfig{
			Enabled:   false,
			MaxEvents: 10000,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: ":9090",
		},
	}

	// Load from file if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	loadFromEnv(config)

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromEnv loads configuration values from environment variables.
func loadFromEnv(config *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		config.LogFormat = v
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		config.Store.Path = v
	}
	if v := os.Getenv("BACKUP_DIR"); v != "" {
		config.Backup.Dir = v
	}
	if v := os.Getenv("BACKUP_PASSPHRASE"); v != "" {
		config.Backup.Passphrase = v
	}
	if v := os.Getenv("BACKUP_CIPHER_VERSION"); v != "" {
		config.Backup.CipherVersion = v
	}
	if v := os.Getenv("WATCH_ENABLED"); v != "" {
		config.Watch.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("WATCH_DIR"); v != "" {
		config.Watch.Dir = v
	}
	if v := os.Getenv("WATCH_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Watch.Debounce = d
		}
	}
	if v := os.Getenv("AUDIT_ENABLED"); v != "" {
		config.Audit.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("AUDIT_MAX_EVENTS"); v != "" {
		var maxEvents int
		if _, err := fmt.Sscanf(v, "%d", &maxEvents); err == nil && maxEvents > 0 {
			config.Audit.MaxEvents = maxEvents
		}
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		config.Metrics.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("METRICS_LISTEN_ADDR"); v != "" {
		config.Metrics.ListenAddr = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}

	if c.LogLevel != "" {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[c.LogLevel] {
			return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", c.LogLevel)
		}
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log_format: %s (must be text or json)", c.LogFormat)
	}

	if _, err := crypto.ParseVersion(c.Backup.CipherVersion); err != nil {
		return fmt.Errorf("invalid backup.cipher_version: %w", err)
	}

	if c.Watch.Enabled {
		if c.Watch.Dir == "" {
			return fmt.Errorf("watch.dir is required when watch is enabled")
		}
		if c.Watch.Debounce < 0 {
			return fmt.Errorf("watch.debounce must not be negative")
		}
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics.listen_addr is required when metrics are enabled")
	}

	return nil
}
