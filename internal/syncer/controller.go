// Package syncer owns the live catalog of one client. It is the only path
// through which the client writes to its store.
package syncer

import (
	"context"
	"errors"
	"slices"
	"sync"

	"catalog-cli/internal/model"
	"catalog-cli/internal/mutate"
	"catalog-cli/internal/seed"
	"catalog-cli/internal/store"

	"github.com/rs/zerolog"
)

type Options struct {
	Pipeline *mutate.Pipeline
	Logger   zerolog.Logger
}

// Controller holds the current snapshot and notifies local listeners when
// it changes. Every snapshot observed from the store replaces the current
// catalog wholesale; a snapshot equal to the current one is ignored, so an
// echo of this client's own write is a no-op.
//
// Writes replace the whole document. Two clients editing from the same
// starting point race and the later write silently discards the earlier
// one.
type Controller struct {
	store    store.CatalogStore
	pipeline *mutate.Pipeline
	log      zerolog.Logger
	hub      *store.Hub

	mu      sync.Mutex
	current model.Catalog
	fp      string
	pending model.Catalog
	// inflight holds fingerprints of snapshots this controller already
	// applied but the store has not echoed yet, oldest first.
	inflight []string

	unsubscribe func()
	closeOnce   sync.Once
}

// New reads the initial snapshot and subscribes to the store. A failed read
// falls back to the default catalog; a failed subscription leaves the
// controller usable without live updates. Neither is returned as an error.
func New(ctx context.Context, st store.CatalogStore, opts Options) (*Controller, error) {
	if st == nil {
		return nil, errors.New("syncer: nil store")
	}
	if opts.Pipeline == nil {
		opts.Pipeline = mutate.NewPipeline(nil)
	}
	c := &Controller{
		store:    st,
		pipeline: opts.Pipeline,
		log:      opts.Logger.With().Str("component", "syncer").Logger(),
		hub:      store.NewHub(),
	}

	initial, err := st.Read(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("read catalog failed; using default catalog")
		initial = seed.Catalog()
	}
	c.current = initial
	c.fp = initial.Fingerprint()
	// The subscription starts by delivering what was just read.
	c.inflight = []string{c.fp}

	unsub, err := st.Subscribe(ctx, c.observe)
	if err != nil {
		c.log.Warn().Err(err).Msg("subscribe failed; live updates disabled")
	} else {
		c.unsubscribe = unsub
	}
	return c, nil
}

// Current returns the latest snapshot. Treat it as read-only.
func (c *Controller) Current() model.Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Subscribe calls fn with the current snapshot and then with every change.
func (c *Controller) Subscribe(fn store.Listener) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hub.Subscribe(fn, c.current)
}

const maxInflight = 64

// observe handles a snapshot delivered by the store. Echoes of this
// controller's own writes arrive in write order and are dropped: the state
// they carry was applied when the write was submitted, and re-applying an
// older one would briefly revert a newer local change.
func (c *Controller) observe(next model.Catalog) {
	fp := next.Fingerprint()
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := slices.Index(c.inflight, fp); i >= 0 {
		c.inflight = c.inflight[i+1:]
		return
	}
	// A foreign snapshot supersedes every write still awaiting its echo.
	if c.applyLocked(next, fp) {
		c.inflight = nil
	}
}

func (c *Controller) applyLocked(next model.Catalog, fp string) bool {
	if fp == c.fp {
		return false
	}
	c.current = next
	c.fp = fp
	c.hub.Publish(next)
	return true
}

// Submit writes next as the whole catalog. The current snapshot is updated
// before the write, so listeners see the change even with stores that do
// not push. A failed write is kept for Retry and is not rolled back.
func (c *Controller) Submit(ctx context.Context, next model.Catalog) error {
	next = next.Clone()
	fp := next.Fingerprint()
	c.mu.Lock()
	// An unchanged catalog may never be echoed back, so it is not awaited.
	if c.applyLocked(next, fp) {
		c.inflight = append(c.inflight, fp)
	}
	if n := len(c.inflight); n > maxInflight {
		c.inflight = slices.Clone(c.inflight[n-maxInflight:])
	}
	c.mu.Unlock()

	if err := c.store.Write(ctx, next); err != nil {
		c.mu.Lock()
		c.pending = next
		if i := slices.Index(c.inflight, fp); i >= 0 {
			c.inflight = slices.Delete(c.inflight, i, i+1)
		}
		c.mu.Unlock()
		c.log.Error().Err(err).Bool("retryable", store.IsRetryable(err)).Msg("write catalog failed")
		return err
	}
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
	return nil
}

// Pending returns the catalog of the last failed write, if any.
func (c *Controller) Pending() (model.Catalog, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending, c.pending != nil
}

var ErrNothingPending = errors.New("no failed write to retry")

// Retry re-submits the last failed write.
func (c *Controller) Retry(ctx context.Context) error {
	pending, ok := c.Pending()
	if !ok {
		return ErrNothingPending
	}
	return c.Submit(ctx, pending)
}

// Execute runs cmd against the current snapshot and submits the result.
// Rejected commands never reach the store. When the target is gone the
// controller re-reads the store so the caller sees the latest snapshot.
func (c *Controller) Execute(ctx context.Context, cmd mutate.Command) (mutate.Result, error) {
	res, err := c.pipeline.Apply(c.Current(), cmd)
	if err != nil {
		var nf mutate.NotFoundError
		if errors.As(err, &nf) {
			c.Refresh(ctx)
		}
		c.log.Debug().Err(err).Str("command", cmd.Op()).Msg("command rejected")
		return mutate.Result{}, err
	}
	if err := c.Submit(ctx, res.Catalog); err != nil {
		return res, err
	}
	c.log.Debug().Str("command", cmd.Op()).Str("id", res.ID).Msg("command applied")
	return res, nil
}

// Refresh re-reads the store and applies the result. Failures are logged.
func (c *Controller) Refresh(ctx context.Context) {
	latest, err := c.store.Read(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("refresh catalog failed")
		return
	}
	c.mu.Lock()
	c.applyLocked(latest, latest.Fingerprint())
	c.mu.Unlock()
}

// Close stops live updates and listener delivery. It does not close the
// store.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		c.hub.Close()
	})
}
