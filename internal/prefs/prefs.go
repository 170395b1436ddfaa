// Package prefs persists per-user viewer preferences in a small JSON
// key-value file. Preferences are best effort: a missing or unreadable file
// yields defaults and bad values are ignored.
package prefs

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"catalog-cli/internal/store"
)

const (
	ViewModeKey = "template-view-mode"
	SettingsKey = "template-view-settings"
)

// Store is a JSON object on disk, one value per key. Values never expire.
type Store struct {
	path string
	mu   sync.Mutex
}

func Open(path string) *Store {
	return &Store{path: filepath.Clean(path)}
}

func (s *Store) Path() string { return s.path }

func (s *Store) load() (map[string]json.RawMessage, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &m); err != nil {
		// Corrupted: treat as empty.
		return map[string]json.RawMessage{}, nil
	}
	return m, nil
}

func (s *Store) save(m map[string]json.RawMessage) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return store.AtomicWriteFile(s.path, append(b, '\n'), 0o644)
}

// Get returns the raw value stored under key.
func (s *Store) Get(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

func (s *Store) Set(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	m[key] = b
	return s.save(m)
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return s.save(m)
}

type ViewMode string

const (
	ViewList  ViewMode = "list"
	ViewCards ViewMode = "cards"
	ViewTable ViewMode = "table"
)

// ViewModes lists modes in switcher order.
var ViewModes = []ViewMode{ViewList, ViewCards, ViewTable}

func (m ViewMode) Valid() bool {
	switch m {
	case ViewList, ViewCards, ViewTable:
		return true
	}
	return false
}

// ViewMode returns the stored mode, or list when it is absent or unknown.
func (s *Store) ViewMode() ViewMode {
	raw, ok := s.Get(ViewModeKey)
	if !ok {
		return ViewList
	}
	var m ViewMode
	if err := json.Unmarshal(raw, &m); err != nil || !m.Valid() {
		return ViewList
	}
	return m
}

func (s *Store) SetViewMode(m ViewMode) error {
	if !m.Valid() {
		return errors.New("unknown view mode: " + string(m))
	}
	return s.Set(ViewModeKey, m)
}
