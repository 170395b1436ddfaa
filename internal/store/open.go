package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend string

	Path     string // file backend
	Watch    bool
	Debounce time.Duration

	SQLitePath   string
	PollInterval time.Duration

	DSN         string
	DocumentKey string

	RemoteURL      string
	ReconnectDelay time.Duration

	Logger zerolog.Logger
}

func Open(ctx context.Context, o Options) (CatalogStore, error) {
	switch strings.ToLower(strings.TrimSpace(o.Backend)) {
	case "", BackendFile:
		if o.Path == "" {
			return nil, fmt.Errorf("file store: missing path")
		}
		return NewFileStore(o.Path, FileOptions{Watch: o.Watch, Debounce: o.Debounce, Logger: o.Logger}), nil
	case BackendSQLite:
		if o.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite store: missing path")
		}
		return OpenSQLite(ctx, o.SQLitePath, SQLiteOptions{PollInterval: o.PollInterval, Logger: o.Logger})
	case BackendPostgres:
		if o.DSN == "" {
			return nil, fmt.Errorf("postgres store: missing dsn")
		}
		return OpenPostgres(ctx, o.DSN, PostgresOptions{Key: o.DocumentKey, ReconnectDelay: o.ReconnectDelay, Logger: o.Logger})
	case BackendRemote:
		if o.RemoteURL == "" {
			return nil, fmt.Errorf("remote store: missing url")
		}
		return NewRemoteStore(o.RemoteURL, RemoteOptions{ReconnectDelay: o.ReconnectDelay, Logger: o.Logger})
	default:
		return nil, fmt.Errorf("unknown store backend: %s", o.Backend)
	}
}
