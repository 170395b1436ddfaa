package store

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"catalog-cli/internal/model"
	"catalog-cli/internal/seed"

	"github.com/rs/zerolog"
)

type FileOptions struct {
	// Watch observes writes made by other processes to the same file.
	Watch bool
	// Debounce is the quiet period after the last file event before the
	// file is re-read. Defaults to 250ms.
	Debounce time.Duration
	Logger   zerolog.Logger
}

// FileStore keeps the catalog in one JSON file. Without Watch, subscribers
// only observe writes made through this FileStore.
type FileStore struct {
	path string
	opts FileOptions
	log  zerolog.Logger
	hub  *Hub

	mu     sync.Mutex
	lastFP string

	watchOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

var _ CatalogStore = (*FileStore)(nil)

func NewFileStore(path string, opts FileOptions) *FileStore {
	if opts.Debounce <= 0 {
		opts.Debounce = 250 * time.Millisecond
	}
	return &FileStore{
		path:   filepath.Clean(path),
		opts:   opts,
		log:    opts.Logger.With().Str("store", BackendFile).Logger(),
		hub:    NewHub(),
		stopCh: make(chan struct{}),
	}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Read(ctx context.Context) (model.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, readErr(BackendFile, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *FileStore) readLocked() (model.Catalog, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(bytes.TrimSpace(b)) == 0) {
		c := seed.Catalog()
		if werr := AtomicWriteFile(s.path, seed.JSON(), 0o644); werr != nil {
			return nil, writeErr(BackendFile, werr)
		}
		s.log.Info().Str("path", s.path).Msg("seeded default catalog")
		s.lastFP = c.Fingerprint()
		return c, nil
	}
	if err != nil {
		return nil, readErr(BackendFile, err)
	}
	c, err := model.Decode(b)
	if err != nil {
		return nil, readErr(BackendFile, err)
	}
	return c, nil
}

func (s *FileStore) Write(ctx context.Context, c model.Catalog) error {
	if err := ctx.Err(); err != nil {
		return writeErr(BackendFile, err)
	}
	b, err := model.MarshalFile(c)
	if err != nil {
		return writeErr(BackendFile, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := AtomicWriteFile(s.path, b, 0o644); err != nil {
		return writeErr(BackendFile, err)
	}
	s.lastFP = c.Fingerprint()
	s.hub.Publish(c)
	return nil
}

func (s *FileStore) Subscribe(ctx context.Context, fn Listener) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, readErr(BackendFile, err)
	}
	s.mu.Lock()
	cur, err := s.readLocked()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.lastFP == "" {
		s.lastFP = cur.Fingerprint()
	}
	unsub := s.hub.Subscribe(fn, cur)
	s.mu.Unlock()

	if s.opts.Watch {
		s.watchOnce.Do(s.startWatch)
	}
	return unsub, nil
}

func (s *FileStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.hub.Close()
	return nil
}

// reloadFromDisk publishes the file content if it differs from the last
// snapshot this store saw. Malformed content is logged and skipped.
func (s *FileStore) reloadFromDisk() {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn().Err(err).Msg("re-read catalog file")
		}
		return
	}
	c, err := model.Decode(b)
	if err != nil {
		s.log.Warn().Err(err).Msg("ignoring malformed catalog file")
		return
	}
	fp := c.Fingerprint()
	if fp == s.lastFP {
		return
	}
	s.lastFP = fp
	s.log.Debug().Str("fingerprint", fp).Msg("catalog file changed on disk")
	s.hub.Publish(c)
}
