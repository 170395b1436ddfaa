package syncer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"catalog-cli/internal/clock"
	"catalog-cli/internal/model"
	"catalog-cli/internal/mutate"
	"catalog-cli/internal/seed"
	"catalog-cli/internal/store"

	"github.com/rs/zerolog"
)

// memStore is an in-memory CatalogStore. With push set it echoes every
// write to subscribers, like a remote backend.
type memStore struct {
	mu       sync.Mutex
	doc      model.Catalog
	push     bool
	readErr  error
	writeErr error
	writes   int
	hub      *store.Hub
}

func newMemStore(doc model.Catalog, push bool) *memStore {
	return &memStore{doc: doc, push: push, hub: store.NewHub()}
}

func (m *memStore) Read(context.Context) (model.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.doc.Clone(), nil
}

func (m *memStore) Write(_ context.Context, c model.Catalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.doc = c.Clone()
	if m.push {
		m.hub.Publish(c)
	}
	return nil
}

func (m *memStore) Subscribe(_ context.Context, fn store.Listener) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hub.Subscribe(fn, m.doc.Clone()), nil
}

func (m *memStore) Close() error { m.hub.Close(); return nil }

// setExternally changes the document without notifying anyone, as another
// process writing to a non-push backend would.
func (m *memStore) setExternally(c model.Catalog) {
	m.mu.Lock()
	m.doc = c.Clone()
	m.mu.Unlock()
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func greetings() model.Catalog {
	return model.Catalog{{ID: "c1", Name: "Greetings", Templates: []model.Template{}}}
}

func newController(t *testing.T, st store.CatalogStore) *Controller {
	t.Helper()
	c, err := New(context.Background(), st, Options{
		Pipeline: mutate.NewPipeline(clock.Fake(time.UnixMilli(1700000000000))),
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func listen(c *Controller) chan model.Catalog {
	ch := make(chan model.Catalog, 32)
	c.Subscribe(func(cat model.Catalog) { ch <- cat })
	return ch
}

func recv(t *testing.T, ch <-chan model.Catalog) model.Catalog {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
		return nil
	}
}

func quiet(t *testing.T, ch <-chan model.Catalog) {
	t.Helper()
	select {
	case c := <-ch:
		t.Fatalf("unexpected notification: %#v", c)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNewFallsBackToSeedOnReadError(t *testing.T) {
	st := newMemStore(greetings(), false)
	st.readErr = errors.New("disk on fire")
	c := newController(t, st)
	if !c.Current().Equal(seed.Catalog()) {
		t.Fatalf("expected default catalog fallback")
	}
}

func TestNewRejectsNilStore(t *testing.T) {
	if _, err := New(context.Background(), nil, Options{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSubscribeFiresImmediately(t *testing.T) {
	c := newController(t, newMemStore(greetings(), false))
	ch := listen(c)
	if got := recv(t, ch); !got.Equal(greetings()) {
		t.Fatalf("initial notification mismatch")
	}
	quiet(t, ch)
}

func TestSubmitNonPushStoreNotifiesLocally(t *testing.T) {
	st := newMemStore(greetings(), false)
	c := newController(t, st)
	ch := listen(c)
	recv(t, ch)

	next := greetings()
	next[0].Name = "Hi"
	if err := c.Submit(context.Background(), next); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := recv(t, ch); got[0].Name != "Hi" {
		t.Fatalf("listener saw %q", got[0].Name)
	}
	quiet(t, ch)
	if st.writeCount() != 1 {
		t.Fatalf("writes = %d", st.writeCount())
	}
}

func TestSubmitPushStoreEchoIsIdempotent(t *testing.T) {
	st := newMemStore(greetings(), true)
	c := newController(t, st)
	ch := listen(c)
	recv(t, ch)

	next := greetings()
	next[0].Name = "Hi"
	if err := c.Submit(context.Background(), next); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	recv(t, ch)
	// The store echoes the write back; it must not notify a second time.
	quiet(t, ch)
}

func TestPushFromOtherClientReplacesCurrent(t *testing.T) {
	st := newMemStore(greetings(), true)
	c := newController(t, st)
	ch := listen(c)
	recv(t, ch)

	other := model.Catalog{{ID: "c9", Name: "Other", Templates: []model.Template{}}}
	if err := st.Write(context.Background(), other); err != nil {
		t.Fatal(err)
	}
	if got := recv(t, ch); !got.Equal(other) {
		t.Fatalf("expected pushed snapshot")
	}
	if !c.Current().Equal(other) {
		t.Fatalf("current not replaced")
	}
}

func TestExecuteScenario(t *testing.T) {
	ctx := context.Background()
	st := store.NewFileStore(filepath.Join(t.TempDir(), "custom-templates.json"), store.FileOptions{Logger: zerolog.Nop()})
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Write(ctx, greetings()); err != nil {
		t.Fatal(err)
	}
	c := newController(t, st)

	res, err := c.Execute(ctx, mutate.AddTemplate{CategoryID: "c1", Title: "Hello", Content: "Hi there"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	id := res.ID
	if got := c.Current()[0].Templates; len(got) != 1 || got[0].ID != id || got[0].Content != "Hi there" {
		t.Fatalf("after add: %#v", got)
	}

	if _, err := c.Execute(ctx, mutate.EditTemplate{CategoryID: "c1", TemplateID: id, Title: "Hello", Content: "Hi!"}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got := c.Current()[0].Templates; len(got) != 1 || got[0].ID != id || got[0].Content != "Hi!" {
		t.Fatalf("after edit: %#v", got)
	}

	if _, err := c.Execute(ctx, mutate.DeleteTemplate{CategoryID: "c1", TemplateID: id}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := c.Current()[0].Templates; len(got) != 0 {
		t.Fatalf("after delete: %#v", got)
	}

	onDisk, err := st.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !onDisk.Equal(c.Current()) {
		t.Fatalf("store and controller disagree")
	}
}

func TestRejectedCommandDoesNotWrite(t *testing.T) {
	st := newMemStore(greetings(), false)
	c := newController(t, st)
	_, err := c.Execute(context.Background(), mutate.AddTemplate{CategoryID: "c1", Title: "  ", Content: "x"})
	if r, _ := mutate.ReasonOf(err); r != mutate.ReasonEmptyField {
		t.Fatalf("expected empty-field, got %v", err)
	}
	if st.writeCount() != 0 {
		t.Fatalf("rejected command reached the store")
	}
}

func TestNotFoundRefreshesFromStore(t *testing.T) {
	st := newMemStore(model.Catalog{{ID: "c1", Name: "Greetings", Templates: []model.Template{{ID: "t1", Title: "a", Content: "b"}}}}, false)
	c := newController(t, st)

	// Another client deleted the template; this one has not seen it yet.
	st.setExternally(greetings())
	_, err := c.Execute(context.Background(), mutate.EditTemplate{CategoryID: "c1", TemplateID: "t9", Title: "x", Content: "y"})
	if r, _ := mutate.ReasonOf(err); r != mutate.ReasonNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
	if !c.Current().Equal(greetings()) {
		t.Fatalf("controller did not refresh after not-found")
	}
}

func TestWriteFailureKeepsStateAndRetries(t *testing.T) {
	ctx := context.Background()
	st := newMemStore(greetings(), false)
	st.writeErr = errors.New("offline")
	c := newController(t, st)

	res, err := c.Execute(ctx, mutate.AddCategory{Name: "Refunds"})
	if err == nil {
		t.Fatalf("expected write error")
	}
	if res.ID == "" {
		t.Fatalf("result should still carry the generated id")
	}
	if len(c.Current()) != 2 {
		t.Fatalf("in-memory state should not be reverted")
	}
	if _, ok := c.Pending(); !ok {
		t.Fatalf("expected pending write")
	}

	st.mu.Lock()
	st.writeErr = nil
	st.mu.Unlock()
	if err := c.Retry(ctx); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if _, ok := c.Pending(); ok {
		t.Fatalf("pending should clear after successful retry")
	}
	if doc, _ := st.Read(ctx); len(doc) != 2 {
		t.Fatalf("retry did not persist")
	}
	if err := c.Retry(ctx); !errors.Is(err, ErrNothingPending) {
		t.Fatalf("expected ErrNothingPending, got %v", err)
	}
}

// Two clients start from the same snapshot A. Client 1 writes B, then
// client 2 writes C built from A. The final state is C and B is lost.
func TestConcurrentWritesLastWriteWins(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "custom-templates.json")
	open := func() *store.FileStore {
		s := store.NewFileStore(path, store.FileOptions{Logger: zerolog.Nop()})
		t.Cleanup(func() { _ = s.Close() })
		return s
	}
	s1, s2 := open(), open()
	if err := s1.Write(ctx, greetings()); err != nil {
		t.Fatal(err)
	}
	c1 := newController(t, s1)
	c2 := newController(t, s2)

	if _, err := c1.Execute(ctx, mutate.AddTemplate{CategoryID: "c1", Title: "from-1", Content: "B"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c2.Execute(ctx, mutate.AddTemplate{CategoryID: "c1", Title: "from-2", Content: "C"}); err != nil {
		t.Fatal(err)
	}

	final, err := s1.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(final[0].Templates) != 1 || final[0].Templates[0].Title != "from-2" {
		t.Fatalf("expected only C's template to survive, got %#v", final[0].Templates)
	}

	c1.Refresh(ctx)
	if !c1.Current().Equal(final) {
		t.Fatalf("client 1 should converge on C after refresh")
	}
}
