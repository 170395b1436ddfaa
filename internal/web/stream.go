package web

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"catalog-cli/internal/model"
	"catalog-cli/internal/store"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const streamWriteTimeout = 10 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts clients that send no Origin (non-browser) and browsers
// on a page served from this host.
func sameOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, strings.TrimSpace(r.Host))
}

// handleStream sends the current snapshot and then one message per store
// change until the client goes away. Client frames are read and discarded.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		return
	}
	defer conn.Close()

	log := s.log.With().
		Str("conn", uuid.NewString()).
		Str("client", r.Header.Get(store.ClientHeader)).
		Logger()

	failed := make(chan struct{})
	broken := false
	send := func(c model.Catalog) {
		if broken {
			return
		}
		c = c.Normalize()
		msg := store.StreamMessage{Type: store.MessageSnapshot, Fingerprint: c.Fingerprint(), Catalog: c}
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			log.Debug().Err(err).Msg("stream write failed")
			broken = true
			close(failed)
		}
	}

	unsub, err := s.store.Subscribe(r.Context(), send)
	if err != nil {
		log.Error().Err(err).Msg("stream subscribe failed")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"), time.Now().Add(time.Second))
		return
	}
	defer unsub()
	log.Debug().Msg("stream opened")

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-readDone:
	case <-failed:
	case <-r.Context().Done():
	}
	log.Debug().Msg("stream closed")
}
