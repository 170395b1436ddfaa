// Package query derives views of a catalog: text filtering, ordering,
// selection and the bulk-copy payload built from a selection.
package query

import (
	"strings"

	"catalog-cli/internal/model"

	"github.com/sahilm/fuzzy"
)

// Entry is a template together with the category it is shown under.
type Entry struct {
	CategoryID   string
	CategoryName string
	Template     model.Template
}

func (e Entry) Key() Key { return Key{CategoryID: e.CategoryID, TemplateID: e.Template.ID} }

// Matches reports whether t's title or content contains q, ignoring case.
func Matches(t model.Template, q string) bool {
	if q == "" {
		return true
	}
	q = strings.ToLower(q)
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Content), q)
}

// Filter keeps templates matching q and drops categories left with none.
// An empty query returns c unchanged.
func Filter(c model.Catalog, q string) model.Catalog {
	if q == "" {
		return c
	}
	out := make(model.Catalog, 0, len(c))
	for _, cat := range c {
		var kept []model.Template
		for _, t := range cat.Templates {
			if Matches(t, q) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			continue
		}
		cat.Templates = kept
		out = append(out, cat)
	}
	return out
}

// Flatten lists every template in catalog order.
func Flatten(c model.Catalog) []Entry {
	out := make([]Entry, 0, c.TemplateCount())
	for _, cat := range c {
		for _, t := range cat.Templates {
			out = append(out, Entry{CategoryID: cat.ID, CategoryName: cat.Name, Template: t})
		}
	}
	return out
}

type fuzzySource []Entry

func (s fuzzySource) String(i int) string {
	return s[i].Template.Title + " " + s[i].Template.Content
}

func (s fuzzySource) Len() int { return len(s) }

// FuzzySearch ranks every template against q, best match first. An empty
// query returns all entries in catalog order.
func FuzzySearch(c model.Catalog, q string) []Entry {
	entries := Flatten(c)
	if strings.TrimSpace(q) == "" {
		return entries
	}
	matches := fuzzy.FindFrom(q, fuzzySource(entries))
	out := make([]Entry, 0, len(matches))
	for _, m := range matches {
		out = append(out, entries[m.Index])
	}
	return out
}
