package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	t.Setenv(EnvConfig, "")
	for _, k := range []string{"CATALOG_STORE", "CATALOG_PATH", "CATALOG_SQLITE_PATH", "CATALOG_DSN", "CATALOG_REMOTE_URL", "CATALOG_ADDR", "CATALOG_LOG_LEVEL", "CATALOG_LOG_FORMAT", "CATALOG_WATCH"} {
		t.Setenv(k, "")
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)
	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != "file" {
		t.Fatalf("backend = %q", cfg.Store.Backend)
	}
	if want := filepath.Join(dir, "data", "custom-templates.json"); cfg.Store.Path != want {
		t.Fatalf("path = %q, want %q", cfg.Store.Path, want)
	}
	if cfg.PrefsPath != filepath.Join(dir, "prefs.json") {
		t.Fatalf("prefs path = %q", cfg.PrefsPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := isolate(t)
	yamlPath := filepath.Join(dir, "config.yaml")
	body := "store:\n  backend: sqlite\n  poll_interval: 2s\nserver:\n  addr: \":9000\"\nlog:\n  level: debug\n"
	if err := os.WriteFile(yamlPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("CATALOG_LOG_FORMAT=json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv keeps variables that already exist, even empty ones.
	os.Unsetenv("CATALOG_LOG_FORMAT")
	t.Setenv("CATALOG_ADDR", ":7000")

	cfg, err := Load(LoadOptions{EnvFiles: []string{envFile, filepath.Join(dir, "missing.env")}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.PollInterval != 2*time.Second {
		t.Fatalf("yaml not applied: %#v", cfg.Store)
	}
	if cfg.Server.Addr != ":7000" {
		t.Fatalf("env should override yaml, addr = %q", cfg.Server.Addr)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("log = %#v", cfg.Log)
	}
}

func TestExplicitConfigMustExist(t *testing.T) {
	dir := isolate(t)
	if _, err := Load(LoadOptions{ConfigPath: filepath.Join(dir, "nope.yaml")}); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestBadWatchValue(t *testing.T) {
	isolate(t)
	t.Setenv("CATALOG_WATCH", "sometimes")
	if _, err := Load(LoadOptions{}); err == nil || !strings.Contains(err.Error(), "CATALOG_WATCH") {
		t.Fatalf("expected CATALOG_WATCH error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
		ok   bool
	}{
		{"default", func(*Config) {}, true},
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }, false},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = "postgres" }, false},
		{"postgres with dsn", func(c *Config) { c.Store.Backend = "postgres"; c.Store.DSN = "postgres://x" }, true},
		{"remote without url", func(c *Config) { c.Store.Backend = "remote" }, false},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, false},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default(t.TempDir())
			tt.mod(&c)
			if err := c.Validate(); (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestStoreOptions(t *testing.T) {
	c := Default("/tmp/x")
	c.Store.Backend = "SQLite"
	o := c.StoreOptions(zerolog.Nop())
	if o.Backend != "sqlite" || o.SQLitePath != filepath.Join("/tmp/x", "data", "catalog.db") {
		t.Fatalf("unexpected options %#v", o)
	}
}
