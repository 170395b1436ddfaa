package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"catalog-cli/internal/model"
	"catalog-cli/internal/seed"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

const notifyChannel = "catalog_changed"

type PostgresOptions struct {
	// Key names the document row. Defaults to "default".
	Key string
	// ReconnectDelay is the pause before re-establishing a dropped LISTEN
	// connection. Defaults to 5s.
	ReconnectDelay time.Duration
	// SkipMigrations leaves the schema alone.
	SkipMigrations bool
	Logger         zerolog.Logger
}

// PostgresStore keeps the catalog as one JSONB row. Writes raise a
// notification in the same transaction; subscribers LISTEN for it and
// re-read, so every process sharing the database sees every write.
type PostgresStore struct {
	pool *pgxpool.Pool
	opts PostgresOptions
	log  zerolog.Logger
	hub  *Hub

	mu          sync.Mutex
	lastVersion int64

	listenOnce sync.Once
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

var _ CatalogStore = (*PostgresStore)(nil)

func OpenPostgres(ctx context.Context, dsn string, opts PostgresOptions) (*PostgresStore, error) {
	if strings.TrimSpace(opts.Key) == "" {
		opts.Key = "default"
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 5 * time.Second
	}
	log := opts.Logger.With().Str("store", BackendPostgres).Logger()

	if !opts.SkipMigrations {
		if err := migratePostgres(dsn); err != nil {
			return nil, readErr(BackendPostgres, fmt.Errorf("migrate: %w", err))
		}
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, readErr(BackendPostgres, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, readErr(BackendPostgres, err)
	}

	return &PostgresStore{
		pool: pool,
		opts: opts,
		log:  log,
		hub:  NewHub(),
	}, nil
}

func migratePostgres(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	src, err := iofs.New(postgresMigrations, "migrations/postgres")
	if err != nil {
		return err
	}
	drv, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", drv)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *PostgresStore) Read(ctx context.Context) (model.Catalog, error) {
	c, _, err := s.read(ctx)
	return c, err
}

func (s *PostgresStore) read(ctx context.Context) (model.Catalog, int64, error) {
	var (
		body    string
		version int64
	)
	q := `SELECT body::text, version FROM catalog_documents WHERE key = $1`
	err := s.pool.QueryRow(ctx, q, s.opts.Key).Scan(&body, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO catalog_documents(key, body, version) VALUES($1, $2::jsonb, 1) ON CONFLICT (key) DO NOTHING`,
			s.opts.Key, string(seed.JSON())); err != nil {
			return nil, 0, writeErr(BackendPostgres, err)
		}
		s.log.Info().Str("key", s.opts.Key).Msg("seeded default catalog")
		err = s.pool.QueryRow(ctx, q, s.opts.Key).Scan(&body, &version)
	}
	if err != nil {
		return nil, 0, readErr(BackendPostgres, err)
	}
	c, err := model.Decode([]byte(body))
	if err != nil {
		return nil, 0, readErr(BackendPostgres, err)
	}
	return c, version, nil
}

func (s *PostgresStore) Write(ctx context.Context, c model.Catalog) error {
	b, err := model.MarshalFile(c)
	if err != nil {
		return writeErr(BackendPostgres, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return writeErr(BackendPostgres, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var version int64
	err = tx.QueryRow(ctx, `
		INSERT INTO catalog_documents(key, body, version, updated_at) VALUES($1, $2::jsonb, 1, now())
		ON CONFLICT (key) DO UPDATE SET
			body = EXCLUDED.body,
			version = catalog_documents.version + 1,
			updated_at = now()
		RETURNING version`, s.opts.Key, string(b)).Scan(&version)
	if err != nil {
		return writeErr(BackendPostgres, err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, notifyPayload(s.opts.Key, version)); err != nil {
		return writeErr(BackendPostgres, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return writeErr(BackendPostgres, err)
	}

	s.lastVersion = version
	s.hub.Publish(c)
	return nil
}

func (s *PostgresStore) Subscribe(ctx context.Context, fn Listener) (func(), error) {
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

	s.listenOnce.Do(func() {
		lctx, cancel := context.WithCancel(context.Background())
		s.mu.Lock()
		s.cancel = cancel
		s.mu.Unlock()
		s.wg.Add(1)
		go s.listenLoop(lctx)
	})
	return unsub, nil
}

func notifyPayload(key string, version int64) string {
	return key + ":" + strconv.FormatInt(version, 10)
}

func parseNotifyPayload(p string) (string, int64, bool) {
	i := strings.LastIndexByte(p, ':')
	if i <= 0 {
		return "", 0, false
	}
	v, err := strconv.ParseInt(p[i+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return p[:i], v, true
}

func (s *PostgresStore) listenLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		err := s.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		s.log.Warn().Err(err).Dur("retry_in", s.opts.ReconnectDelay).Msg("catalog listener dropped")
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.opts.ReconnectDelay):
		}
	}
}

func (s *PostgresStore) listen(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return err
	}
	// A write may have landed while the listener was down.
	s.refresh(ctx, 0)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		key, version, ok := parseNotifyPayload(n.Payload)
		if !ok || key != s.opts.Key {
			continue
		}
		s.refresh(ctx, version)
	}
}

// refresh re-reads the document when version is newer than the last one
// seen (version 0 always re-reads and compares).
func (s *PostgresStore) refresh(ctx context.Context, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version != 0 && version <= s.lastVersion {
		return
	}
	c, v, err := s.read(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("re-read catalog")
		return
	}
	if v <= s.lastVersion {
		return
	}
	s.lastVersion = v
	s.hub.Publish(c)
}

func (s *PostgresStore) Close() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.hub.Close()
	s.pool.Close()
	return nil
}
