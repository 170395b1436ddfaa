package store

import (
	"context"

	"catalog-cli/internal/model"
)

// Listener receives catalog snapshots. The value is shared between
// subscribers and must be treated as read-only.
type Listener func(model.Catalog)

// CatalogStore persists the catalog as a single document.
//
// Read seeds the backing medium with the default catalog when it is empty.
// Write replaces the whole document. Subscribe calls fn once with the
// current value and again for every later write the backend can observe;
// push backends deliver the caller's own writes back to it as well.
//
// Concurrent writers race: the last write to land wins.
type CatalogStore interface {
	Read(ctx context.Context) (model.Catalog, error)
	Write(ctx context.Context, c model.Catalog) error
	Subscribe(ctx context.Context, fn Listener) (unsubscribe func(), err error)
	Close() error
}

// Backend names, as used in configuration.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRemote   = "remote"
)
