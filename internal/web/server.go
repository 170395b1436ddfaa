// Package web serves a catalog store over HTTP: the wholesale read/replace
// API plus a WebSocket stream of snapshots.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"catalog-cli/internal/model"
	"catalog-cli/internal/store"

	"github.com/rs/zerolog"
)

const defaultMaxBody = 8 << 20

type ServerConfig struct {
	Addr   string
	Store  store.CatalogStore
	Logger zerolog.Logger
	// MaxBodyBytes caps POST bodies; zero means 8 MiB.
	MaxBodyBytes int64
}

type Server struct {
	cfg   ServerConfig
	store store.CatalogStore
	log   zerolog.Logger
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("web: missing store")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBody
	}
	return &Server{
		cfg:   cfg,
		store: cfg.Store,
		log:   cfg.Logger.With().Str("component", "web").Logger(),
	}, nil
}

func (s *Server) Addr() string {
	return strings.TrimSpace(s.cfg.Addr)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET "+store.TemplatesPath, s.handleGetTemplates)
	mux.HandleFunc("POST "+store.TemplatesPath, s.handlePostTemplates)
	mux.HandleFunc("GET "+store.StreamPath, s.handleStream)
	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return s.logRequests(cors(mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.Addr() == "" {
		return errors.New("web: missing addr")
	}
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", s.Addr()).Msg("catalog server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

type errorBody struct {
	Error string `json:"error"`
}

type saveBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleGetTemplates(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.Read(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("read templates")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to read templates"})
		return
	}
	writeJSON(w, http.StatusOK, c.Normalize())
}

// handlePostTemplates replaces the stored catalog with the request body.
// Any JSON array is accepted: the server does not inspect entries.
func (s *Server) handlePostTemplates(w http.ResponseWriter, r *http.Request) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid data format"})
		return
	}
	c, err := model.Decode(b)
	if err != nil {
		s.log.Debug().Err(err).Str("client", r.Header.Get(store.ClientHeader)).Msg("rejected templates payload")
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid data format"})
		return
	}
	if err := s.store.Write(r.Context(), c); err != nil {
		s.log.Error().Err(err).Msg("save templates")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to save templates"})
		return
	}
	s.log.Info().
		Str("client", r.Header.Get(store.ClientHeader)).
		Int("categories", len(c)).
		Int("templates", c.TemplateCount()).
		Msg("templates replaced")
	writeJSON(w, http.StatusOK, saveBody{Success: true, Message: "Templates saved successfully"})
}
