package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"catalog-cli/internal/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	TemplatesPath = "/api/templates"
	StreamPath    = "/api/templates/stream"

	// ClientHeader carries the client id on every request; the server logs it.
	ClientHeader = "X-Catalog-Client"

	MessageSnapshot = "snapshot"
)

// StreamMessage is one frame on the push stream.
type StreamMessage struct {
	Type        string        `json:"type"`
	Fingerprint string        `json:"fingerprint"`
	Catalog     model.Catalog `json:"catalog"`
}

type RemoteOptions struct {
	HTTPClient     *http.Client
	ReconnectDelay time.Duration
	ClientID       string
	Logger         zerolog.Logger
}

// RemoteStore talks to a catalog server. Reads and writes go over HTTP; the
// server pushes every write (including this client's own) over a WebSocket.
type RemoteStore struct {
	base   *url.URL
	http   *http.Client
	dialer *websocket.Dialer
	opts   RemoteOptions
	log    zerolog.Logger
	hub    *Hub

	mu     sync.Mutex
	lastFP string

	streamOnce sync.Once
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

var _ CatalogStore = (*RemoteStore)(nil)

func NewRemoteStore(baseURL string, opts RemoteOptions) (*RemoteStore, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("remote url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote url: unsupported scheme %q", u.Scheme)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 5 * time.Second
	}
	if opts.ClientID == "" {
		opts.ClientID = uuid.NewString()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RemoteStore{
		base:   u,
		http:   opts.HTTPClient,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		opts:   opts,
		log:    opts.Logger.With().Str("store", BackendRemote).Str("client", opts.ClientID).Logger(),
		hub:    NewHub(),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

func (s *RemoteStore) ClientID() string { return s.opts.ClientID }

func (s *RemoteStore) endpoint(path string) string {
	u := *s.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

func (s *RemoteStore) streamURL() string {
	u := *s.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + StreamPath
	return u.String()
}

func (s *RemoteStore) Read(ctx context.Context) (model.Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint(TemplatesPath), nil)
	if err != nil {
		return nil, readErr(BackendRemote, err)
	}
	req.Header.Set(ClientHeader, s.opts.ClientID)
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, readErr(BackendRemote, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, readErr(BackendRemote, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, readErr(BackendRemote, statusError(resp.StatusCode, b))
	}
	c, err := model.Decode(b)
	if err != nil {
		return nil, readErr(BackendRemote, err)
	}
	return c, nil
}

func (s *RemoteStore) Write(ctx context.Context, c model.Catalog) error {
	if c == nil {
		c = model.Catalog{}
	}
	b, err := json.Marshal(c.Clone().Normalize())
	if err != nil {
		return writeErr(BackendRemote, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(TemplatesPath), bytes.NewReader(b))
	if err != nil {
		return writeErr(BackendRemote, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ClientHeader, s.opts.ClientID)
	resp, err := s.http.Do(req)
	if err != nil {
		return writeErr(BackendRemote, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return writeErr(BackendRemote, statusError(resp.StatusCode, body))
	}
	return nil
}

func statusError(code int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return errStatus{Code: code, Body: payload.Error}
	}
	return errStatus{Code: code, Body: strings.TrimSpace(string(body))}
}

// Subscribe delivers the current snapshot when the server is reachable and
// then every snapshot pushed over the stream. An unreachable server is not
// an error: the stream keeps reconnecting and the first snapshot it
// receives is delivered.
func (s *RemoteStore) Subscribe(ctx context.Context, fn Listener) (func(), error) {
	cur, err := s.Read(ctx)
	var unsub func()
	if err != nil {
		s.log.Warn().Err(err).Msg("initial snapshot unavailable; waiting for stream")
		unsub = s.hub.Subscribe(fn)
	} else {
		s.mu.Lock()
		if s.lastFP == "" {
			s.lastFP = cur.Fingerprint()
		}
		s.mu.Unlock()
		unsub = s.hub.Subscribe(fn, cur)
	}

	s.streamOnce.Do(func() {
		s.wg.Add(1)
		go s.streamLoop()
	})
	return unsub, nil
}

func (s *RemoteStore) streamLoop() {
	defer s.wg.Done()
	for {
		err := s.stream(s.ctx)
		if s.ctx.Err() != nil {
			return
		}
		s.log.Warn().Err(err).Dur("retry_in", s.opts.ReconnectDelay).Msg("catalog stream disconnected")
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(s.opts.ReconnectDelay):
		}
	}
}

func (s *RemoteStore) stream(ctx context.Context) error {
	header := http.Header{}
	header.Set(ClientHeader, s.opts.ClientID)
	conn, _, err := s.dialer.DialContext(ctx, s.streamURL(), header)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	s.log.Debug().Str("url", s.streamURL()).Msg("catalog stream connected")
	for {
		var msg StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		if msg.Type != MessageSnapshot {
			continue
		}
		c := msg.Catalog.Normalize()
		fp := c.Fingerprint()

		s.mu.Lock()
		changed := fp != s.lastFP
		if changed {
			s.lastFP = fp
		}
		s.mu.Unlock()
		if changed {
			s.hub.Publish(c)
		}
	}
}

func (s *RemoteStore) Close() error {
	s.cancel()
	s.wg.Wait()
	s.hub.Close()
	return nil
}
