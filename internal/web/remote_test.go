package web

import (
	"context"
	"testing"
	"time"

	"catalog-cli/internal/clock"
	"catalog-cli/internal/model"
	"catalog-cli/internal/mutate"
	"catalog-cli/internal/store"
	"catalog-cli/internal/syncer"

	"github.com/rs/zerolog"
)

func newRemote(t *testing.T, url string) *store.RemoteStore {
	t.Helper()
	rs, err := store.NewRemoteStore(url, store.RemoteOptions{ReconnectDelay: 50 * time.Millisecond, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("NewRemoteStore: %v", err)
	}
	t.Cleanup(func() { _ = rs.Close() })
	return rs
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRemoteStoreRoundTrip(t *testing.T) {
	ts, _ := newFileServer(t)
	rs := newRemote(t, ts.URL)
	ctx := context.Background()

	if err := rs.Write(ctx, sample()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := rs.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !got.Equal(sample()) {
		t.Fatalf("round trip mismatch: %#v", got)
	}
}

func TestRemoteStoreSurfacesServerErrors(t *testing.T) {
	ts := newTestServer(t, brokenStore{readErr: context.DeadlineExceeded, writeErr: context.DeadlineExceeded})
	rs := newRemote(t, ts.URL)
	if _, err := rs.Read(context.Background()); err == nil {
		t.Fatalf("expected read error")
	}
	err := rs.Write(context.Background(), sample())
	if err == nil {
		t.Fatalf("expected write error")
	}
	if !store.IsRetryable(err) {
		t.Fatalf("a 500 from the server should be retryable: %v", err)
	}
}

func TestRemoteSubscribeReceivesOtherClientsWrites(t *testing.T) {
	ts, _ := newFileServer(t)
	watcher := newRemote(t, ts.URL)
	writer := newRemote(t, ts.URL)

	got := make(chan model.Catalog, 16)
	unsub, err := watcher.Subscribe(context.Background(), func(c model.Catalog) { got <- c })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsub()

	if err := writer.Write(context.Background(), sample()); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-got:
			if c.Equal(sample()) {
				return
			}
		case <-deadline:
			t.Fatalf("watcher never saw the other client's write")
		}
	}
}

// Two remote clients start from the same catalog A. Client 1 adds a
// template and writes B; client 2 then writes C built from A. The server
// keeps C, client 1's template is lost, and client 1 converges on C.
func TestRemoteClientsLastWriteWins(t *testing.T) {
	ctx := context.Background()
	ts, fs := newFileServer(t)
	base := model.Catalog{{ID: "c1", Name: "Greetings", Templates: []model.Template{}}}
	if err := fs.Write(ctx, base); err != nil {
		t.Fatal(err)
	}

	r1, r2 := newRemote(t, ts.URL), newRemote(t, ts.URL)
	a, err := r2.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}

	c1, err := syncer.New(ctx, r1, syncer.Options{
		Pipeline: mutate.NewPipeline(clock.Fake(time.UnixMilli(1700000000000))),
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c1.Close()

	if _, err := c1.Execute(ctx, mutate.AddTemplate{CategoryID: "c1", Title: "from-1", Content: "B"}); err != nil {
		t.Fatal(err)
	}
	res, err := mutate.NewPipeline(clock.Real()).Apply(a, mutate.AddTemplate{CategoryID: "c1", Title: "from-2", Content: "C"})
	if err != nil {
		t.Fatal(err)
	}
	if err := r2.Write(ctx, res.Catalog); err != nil {
		t.Fatal(err)
	}

	final, err := fs.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !final.Equal(res.Catalog) {
		t.Fatalf("server should hold C, got %#v", final)
	}
	eventually(t, "client 1 to converge on C", func() bool { return c1.Current().Equal(final) })
}

// Saving an unchanged catalog is not echoed by the remote store, which drops
// repeated snapshots. Client 1 must still follow client 2 when it later
// restores that same catalog.
func TestRemoteClientFollowsServerAfterUnchangedSave(t *testing.T) {
	ctx := context.Background()
	ts, fs := newFileServer(t)
	x := sample()
	if err := fs.Write(ctx, x); err != nil {
		t.Fatal(err)
	}

	c1, err := syncer.New(ctx, newRemote(t, ts.URL), syncer.Options{Logger: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	defer c1.Close()
	r2 := newRemote(t, ts.URL)

	if err := c1.Submit(ctx, c1.Current()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	y := sample()
	y[0].Templates[0].Content = "changed by client 2"
	if err := r2.Write(ctx, y); err != nil {
		t.Fatal(err)
	}
	eventually(t, "client 1 to see Y", func() bool { return c1.Current().Equal(y) })

	if err := r2.Write(ctx, x); err != nil {
		t.Fatal(err)
	}
	eventually(t, "client 1 to see X again", func() bool { return c1.Current().Equal(x) })
}
