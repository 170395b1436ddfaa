package view

import (
	"fmt"

	"catalog-cli/internal/model"
	"catalog-cli/internal/prefs"
	"catalog-cli/internal/query"
)

// Switcher holds the active adapter. Changing mode keeps the search text
// and starts the new adapter from scratch; only the mode is persisted.
type Switcher struct {
	prefs    *prefs.Store
	settings prefs.Settings
	query    string
	active   Adapter
}

// NewSwitcher restores the stored mode and settings. p may be nil.
func NewSwitcher(p *prefs.Store) *Switcher {
	mode, settings := prefs.ViewList, prefs.DefaultSettings()
	if p != nil {
		mode, settings = p.ViewMode(), p.Settings()
	}
	return &Switcher{prefs: p, settings: settings, active: New(mode, settings)}
}

func (s *Switcher) Mode() Mode               { return s.active.Mode() }
func (s *Switcher) Active() Adapter          { return s.active }
func (s *Switcher) Query() string            { return s.query }
func (s *Switcher) Settings() prefs.Settings { return s.settings }

func (s *Switcher) SetQuery(q string) {
	if q == s.query {
		return
	}
	s.query = q
	s.active.SetCursor(0)
	if c, ok := s.active.(*Cards); ok {
		c.page = 0
	}
}

func (s *Switcher) SetMode(m Mode) error {
	if !m.Valid() {
		return fmt.Errorf("unknown view mode: %s", m)
	}
	s.active = New(m, s.settings)
	if s.prefs != nil {
		return s.prefs.SetViewMode(m)
	}
	return nil
}

// Cycle moves to the next mode in list, cards, table order.
func (s *Switcher) Cycle() error {
	for i, m := range prefs.ViewModes {
		if m == s.Mode() {
			return s.SetMode(prefs.ViewModes[(i+1)%len(prefs.ViewModes)])
		}
	}
	return s.SetMode(prefs.ViewList)
}

// UpdateSettings changes the display settings. A card view is rebuilt so
// the new settings take effect.
func (s *Switcher) UpdateSettings(fn func(*prefs.Settings)) error {
	var err error
	if s.prefs != nil {
		s.settings, err = s.prefs.UpdateSettings(fn)
	} else {
		next := s.settings
		fn(&next)
		if err = next.Validate(); err == nil {
			s.settings = next
		}
	}
	if _, ok := s.active.(*Cards); ok {
		s.active = New(prefs.ViewCards, s.settings)
	}
	return err
}

func (s *Switcher) Visible(c model.Catalog) []query.Entry {
	return s.active.Entries(c, s.query)
}

// Sync drops selected templates that no longer exist in c.
func (s *Switcher) Sync(c model.Catalog) {
	s.active.Selection().Prune(query.Flatten(c))
}

func (s *Switcher) Render(c model.Catalog, width int) string {
	clampCursor(s.active, len(s.Visible(c)))
	return s.active.Render(c, s.query, width)
}

func (s *Switcher) Move(c model.Catalog, delta int) {
	n := len(s.Visible(c))
	if n == 0 {
		s.active.SetCursor(0)
		return
	}
	s.active.SetCursor(max(0, min(n-1, s.active.Cursor()+delta)))
}

// Current is the entry under the cursor.
func (s *Switcher) Current(c model.Catalog) (query.Entry, bool) {
	entries := s.Visible(c)
	i := s.active.Cursor()
	if i < 0 || i >= len(entries) {
		return query.Entry{}, false
	}
	return entries[i], true
}

func (s *Switcher) ToggleCurrent(c model.Catalog) {
	if e, ok := s.Current(c); ok {
		s.active.Selection().Toggle(e.Key())
	}
}

func (s *Switcher) ToggleAll(c model.Catalog) {
	s.active.Selection().ToggleAll(s.Visible(c))
}

// CopySelected returns the bulk-copy text for the visible selection and
// clears the selection.
func (s *Switcher) CopySelected(c model.Catalog) string {
	return query.BulkCopy(s.Visible(c), s.active.Selection())
}
