package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"catalog-cli/internal/model"
	"catalog-cli/internal/seed"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

type SQLiteOptions struct {
	// PollInterval controls how often subscribers check for writes made by
	// other processes. Defaults to 1s.
	PollInterval time.Duration
	Logger       zerolog.Logger
}

// SQLiteStore keeps the catalog as a single versioned row. Several local
// processes may share the database file; each one notices the others'
// writes by polling the version.
type SQLiteStore struct {
	db   *sql.DB
	path string
	opts SQLiteOptions
	log  zerolog.Logger
	hub  *Hub

	mu          sync.Mutex
	lastVersion int64

	pollOnce sync.Once
	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

var _ CatalogStore = (*SQLiteStore)(nil)

func OpenSQLite(ctx context.Context, path string, opts SQLiteOptions) (*SQLiteStore, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, readErr(BackendSQLite, err)
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, readErr(BackendSQLite, err)
	}
	// Pragmas are per connection; keep a single one so they always apply.
	db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, readErr(BackendSQLite, err)
		}
	}
	if err := migrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, readErr(BackendSQLite, err)
	}
	return &SQLiteStore{
		db:     db,
		path:   path,
		opts:   opts,
		log:    opts.Logger.With().Str("store", BackendSQLite).Logger(),
		hub:    NewHub(),
		stopCh: make(chan struct{}),
	}, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS catalog_document (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			body TEXT NOT NULL,
			version INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Read(ctx context.Context) (model.Catalog, error) {
	c, _, err := s.read(ctx)
	return c, err
}

func (s *SQLiteStore) read(ctx context.Context) (model.Catalog, int64, error) {
	var (
		body    string
		version int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT body, version FROM catalog_document WHERE id = 1`).Scan(&body, &version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO catalog_document(id, body, version, updated_at) VALUES(1, ?, 1, ?)`,
			string(seed.JSON()), time.Now().UnixMilli()); err != nil {
			return nil, 0, writeErr(BackendSQLite, err)
		}
		s.log.Info().Str("path", s.path).Msg("seeded default catalog")
		err = s.db.QueryRowContext(ctx, `SELECT body, version FROM catalog_document WHERE id = 1`).Scan(&body, &version)
	}
	if err != nil {
		return nil, 0, readErr(BackendSQLite, err)
	}
	c, err := model.Decode([]byte(body))
	if err != nil {
		return nil, 0, readErr(BackendSQLite, err)
	}
	return c, version, nil
}

func (s *SQLiteStore) Write(ctx context.Context, c model.Catalog) error {
	b, err := model.MarshalFile(c)
	if err != nil {
		return writeErr(BackendSQLite, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return writeErr(BackendSQLite, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO catalog_document(id, body, version, updated_at) VALUES(1, ?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET
			body = excluded.body,
			version = catalog_document.version + 1,
			updated_at = excluded.updated_at`,
		string(b), time.Now().UnixMilli()); err != nil {
		return writeErr(BackendSQLite, err)
	}
	var version int64
	if err := tx.QueryRowContext(ctx, `SELECT version FROM catalog_document WHERE id = 1`).Scan(&version); err != nil {
		return writeErr(BackendSQLite, err)
	}
	if err := tx.Commit(); err != nil {
		return writeErr(BackendSQLite, err)
	}

	s.lastVersion = version
	s.hub.Publish(c)
	return nil
}

func (s *SQLiteStore) Subscribe(ctx context.Context, fn Listener) (func(), error) {
	s.mu.Lock()
	cur, version, err := s.read(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if version > s.lastVersion {
		s.lastVersion = version
	}
	unsub := s.hub.Subscribe(fn, cur)
	s.mu.Unlock()

	s.pollOnce.Do(func() {
		s.wg.Add(1)
		go s.pollLoop()
	})
	return unsub, nil
}

func (s *SQLiteStore) pollLoop() {
	defer s.wg.Done()
	t := time.NewTicker(s.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-t.C:
			s.poll()
		}
	}
}

func (s *SQLiteStore) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	var version int64
	err := s.db.QueryRowContext(ctx, `SELECT version FROM catalog_document WHERE id = 1`).Scan(&version)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn().Err(err).Msg("poll catalog version")
		}
		return
	}
	if version == s.lastVersion {
		return
	}
	c, v, err := s.read(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("re-read catalog")
		return
	}
	s.lastVersion = v
	s.log.Debug().Int64("version", v).Msg("catalog changed by another process")
	s.hub.Publish(c)
}

func (s *SQLiteStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.hub.Close()
	return s.db.Close()
}
