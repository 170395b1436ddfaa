package query

import "strings"

// Key identifies a template within the catalog. Template ids are only unique
// within their category.
type Key struct {
	CategoryID string
	TemplateID string
}

// Selection is the set of chosen templates for one view.
type Selection struct {
	keys map[Key]struct{}
}

func NewSelection() *Selection {
	return &Selection{keys: map[Key]struct{}{}}
}

func (s *Selection) Has(k Key) bool {
	_, ok := s.keys[k]
	return ok
}

func (s *Selection) Len() int { return len(s.keys) }

func (s *Selection) Toggle(k Key) {
	if s.Has(k) {
		delete(s.keys, k)
		return
	}
	s.keys[k] = struct{}{}
}

// SelectAll adds every visible entry.
func (s *Selection) SelectAll(visible []Entry) {
	for _, e := range visible {
		s.keys[e.Key()] = struct{}{}
	}
}

// ToggleAll clears the selection when every visible entry is already
// selected, otherwise selects them all.
func (s *Selection) ToggleAll(visible []Entry) {
	if len(visible) > 0 && s.AllSelected(visible) {
		s.Clear()
		return
	}
	s.SelectAll(visible)
}

func (s *Selection) AllSelected(visible []Entry) bool {
	for _, e := range visible {
		if !s.Has(e.Key()) {
			return false
		}
	}
	return true
}

func (s *Selection) Clear() {
	clear(s.keys)
}

// Prune drops keys that are no longer visible.
func (s *Selection) Prune(visible []Entry) {
	keep := make(map[Key]struct{}, len(s.keys))
	for _, e := range visible {
		if s.Has(e.Key()) {
			keep[e.Key()] = struct{}{}
		}
	}
	s.keys = keep
}

// Selected returns the selected entries in view order.
func (s *Selection) Selected(visible []Entry) []Entry {
	var out []Entry
	for _, e := range visible {
		if s.Has(e.Key()) {
			out = append(out, e)
		}
	}
	return out
}

// CopySeparator sits between templates in a bulk copy.
const CopySeparator = "\n\n---\n\n"

// FormatEntries renders entries as "title\ncontent" blocks joined by
// CopySeparator.
func FormatEntries(entries []Entry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, e.Template.Title+"\n"+e.Template.Content)
	}
	return strings.Join(parts, CopySeparator)
}

// BulkCopy returns the copy payload for the selected visible entries, in
// view order, and clears the selection.
func BulkCopy(visible []Entry, sel *Selection) string {
	text := FormatEntries(sel.Selected(visible))
	sel.Clear()
	return text
}
