// Package config resolves runtime settings. Sources are applied in order:
// defaults, YAML file, .env files, environment, then command-line flags
// (applied by the caller).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"catalog-cli/internal/store"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigDir = "CATALOG_CONFIG_DIR"
	EnvConfig    = "CATALOG_CONFIG"
)

type Config struct {
	Store     StoreConfig  `yaml:"store"`
	Server    ServerConfig `yaml:"server"`
	Log       LogConfig    `yaml:"log"`
	PrefsPath string       `yaml:"prefs_path"`
}

type StoreConfig struct {
	Backend        string        `yaml:"backend"`
	Path           string        `yaml:"path"`
	Watch          bool          `yaml:"watch"`
	SQLitePath     string        `yaml:"sqlite_path"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	DSN            string        `yaml:"dsn"`
	DocumentKey    string        `yaml:"document_key"`
	RemoteURL      string        `yaml:"remote_url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ConfigDir is ~/.catalog unless CATALOG_CONFIG_DIR overrides it.
func ConfigDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".catalog"), nil
}

// Default returns the built-in settings rooted at dir.
func Default(dir string) Config {
	return Config{
		Store: StoreConfig{
			Backend:     store.BackendFile,
			Path:        filepath.Join(dir, "data", "custom-templates.json"),
			SQLitePath:  filepath.Join(dir, "data", "catalog.db"),
			DocumentKey: "default",
		},
		Server:    ServerConfig{Addr: "127.0.0.1:3000"},
		Log:       LogConfig{Level: "info", Format: "console"},
		PrefsPath: filepath.Join(dir, "prefs.json"),
	}
}

type LoadOptions struct {
	// ConfigPath is an explicit YAML file; it must exist. When empty,
	// CATALOG_CONFIG is consulted, then <configdir>/config.yaml if present.
	ConfigPath string
	// EnvFiles are dotenv files loaded before the environment is read.
	// Missing files are skipped; variables already set are kept.
	EnvFiles []string
}

func Load(o LoadOptions) (Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return Config{}, err
	}
	cfg := Default(dir)

	for _, f := range o.EnvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	path, required := o.ConfigPath, true
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfig))
	}
	if path == "" {
		path, required = filepath.Join(dir, "config.yaml"), false
	}
	if err := cfg.mergeFile(path, required); err != nil {
		return Config{}, err
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string, required bool) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("CATALOG_STORE", &c.Store.Backend)
	str("CATALOG_PATH", &c.Store.Path)
	str("CATALOG_SQLITE_PATH", &c.Store.SQLitePath)
	str("CATALOG_DSN", &c.Store.DSN)
	str("CATALOG_REMOTE_URL", &c.Store.RemoteURL)
	str("CATALOG_ADDR", &c.Server.Addr)
	str("CATALOG_LOG_LEVEL", &c.Log.Level)
	str("CATALOG_LOG_FORMAT", &c.Log.Format)
	if v, ok := lookup("CATALOG_WATCH"); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("CATALOG_WATCH: %w", err)
		}
		c.Store.Watch = b
	}
	return nil
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Store.Backend) {
	case store.BackendFile:
		if c.Store.Path == "" {
			return errors.New("store.path is required for the file backend")
		}
	case store.BackendSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path is required for the sqlite backend")
		}
	case store.BackendPostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the postgres backend")
		}
	case store.BackendRemote:
		if c.Store.RemoteURL == "" {
			return errors.New("store.remote_url is required for the remote backend")
		}
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

func (c Config) StoreOptions(log zerolog.Logger) store.Options {
	return store.Options{
		Backend:        strings.ToLower(c.Store.Backend),
		Path:           c.Store.Path,
		Watch:          c.Store.Watch,
		SQLitePath:     c.Store.SQLitePath,
		PollInterval:   c.Store.PollInterval,
		DSN:            c.Store.DSN,
		DocumentKey:    c.Store.DocumentKey,
		RemoteURL:      c.Store.RemoteURL,
		ReconnectDelay: c.Store.ReconnectDelay,
		Logger:         log,
	}
}
