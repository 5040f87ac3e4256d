package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.LogLevel != "info" {
		t.Errorf("expected LogLevel info, got %s", config.LogLevel)
	}
	if config.LogFormat != "text" {
		t.Errorf("expected LogFormat text, got %s", config.LogFormat)
	}
	if config.Store.Path != "data/homevault.db" {
		t.Errorf("expected default store path, got %s", config.Store.Path)
	}
	if config.Backup.Dir != "backups" {
		t.Errorf("expected default backup dir, got %s", config.Backup.Dir)
	}
	if config.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("expected default watch debounce, got %s", config.Watch.Debounce)
	}
	if config.Metrics.ListenAddr != ":9090" {
		t.Errorf("expected default metrics addr, got %s", config.Metrics.ListenAddr)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("STORE_PATH", "/tmp/other.db")
	os.Setenv("BACKUP_PASSPHRASE", "orange-battery")
	os.Setenv("BACKUP_CIPHER_VERSION", "3")
	os.Setenv("WATCH_DEBOUNCE", "2s")

	defer func() {
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("STORE_PATH")
		os.Unsetenv("BACKUP_PASSPHRASE")
		os.Unsetenv("BACKUP_CIPHER_VERSION")
		os.Unsetenv("WATCH_DEBOUNCE")
	}()

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.LogLevel != "debug" {
		t.Errorf("expected LogLevel debug, got %s", config.LogLevel)
	}
	if config.Store.Path != "/tmp/other.db" {
		t.Errorf("expected Store.Path /tmp/other.db, got %s", config.Store.Path)
	}
	if config.Backup.Passphrase != "orange-battery" {
		t.Errorf("expected passphrase override, got %s", config.Backup.Passphrase)
	}
	if config.Backup.CipherVersion != "3" {
		t.Errorf("expected CipherVersion 3, got %s", config.Backup.CipherVersion)
	}
	if config.Watch.Debounce != 2*time.Second {
		t.Errorf("expected Watch.Debounce 2s, got %s", config.Watch.Debounce)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log_level: warn
log_format: json
store:
  path: /var/lib/homevault/homevault.db
backup:
  dir: /var/backups/homevault
  cipher_version: "2"
watch:
  enabled: true
  dir: /var/backups/homevault/incoming
  debounce: 1s
metrics:
  enabled: true
  listen_addr: ":9191"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.LogLevel != "warn" {
		t.Errorf("expected LogLevel warn, got %s", config.LogLevel)
	}
	if config.LogFormat != "json" {
		t.Errorf("expected LogFormat json, got %s", config.LogFormat)
	}
	if config.Store.Path != "/var/lib/homevault/homevault.db" {
		t.Errorf("unexpected store path: %s", config.Store.Path)
	}
	if !config.Watch.Enabled {
		t.Error("expected watch enabled")
	}
	if config.Watch.Dir != "/var/backups/homevault/incoming" {
		t.Errorf("unexpected watch dir: %s", config.Watch.Dir)
	}
	if config.Metrics.ListenAddr != ":9191" {
		t.Errorf("unexpected metrics addr: %s", config.Metrics.ListenAddr)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.LogLevel != "info" {
		t.Errorf("expected defaults, got LogLevel %s", config.LogLevel)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		c, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing store path",
			mutate:  func(c *Config) { c.Store.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: true,
		},
		{
			name:    "legacy cipher version rejected for writes",
			mutate:  func(c *Config) { c.Backup.CipherVersion = "legacy" },
			wantErr: true,
		},
		{
			name:    "unknown cipher version",
			mutate:  func(c *Config) { c.Backup.CipherVersion = "9" },
			wantErr: true,
		},
		{
			name:   "aead cipher version",
			mutate: func(c *Config) { c.Backup.CipherVersion = "aead" },
		},
		{
			name:    "watch enabled without dir",
			mutate:  func(c *Config) { c.Watch.Enabled = true; c.Watch.Dir = "" },
			wantErr: true,
		},
		{
			name:    "metrics enabled without addr",
			mutate:  func(c *Config) { c.Metrics.Enabled = true; c.Metrics.ListenAddr = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
