package view

import (
	"fmt"
	"strings"

	"catalog-cli/internal/model"
	"catalog-cli/internal/prefs"
	"catalog-cli/internal/query"

	"github.com/charmbracelet/lipgloss"
)

// List shows categories as collapsible sections with one row per template.
type List struct {
	base
	collapsed map[string]bool
}

func NewList() *List {
	return &List{base: newBase(), collapsed: map[string]bool{}}
}

func (*List) Mode() Mode { return prefs.ViewList }

func (l *List) Collapsed(categoryID string) bool { return l.collapsed[categoryID] }

func (l *List) ToggleCollapse(categoryID string) {
	if l.collapsed[categoryID] {
		delete(l.collapsed, categoryID)
		return
	}
	l.collapsed[categoryID] = true
}

func (l *List) ExpandAll() { clear(l.collapsed) }

// Entries skips templates in collapsed sections.
func (l *List) Entries(c model.Catalog, q string) []query.Entry {
	var out []query.Entry
	for _, cat := range query.Filter(c, q) {
		if l.collapsed[cat.ID] {
			continue
		}
		for _, t := range cat.Templates {
			out = append(out, query.Entry{CategoryID: cat.ID, CategoryName: cat.Name, Template: t})
		}
	}
	return out
}

func (l *List) Render(c model.Catalog, q string, width int) string {
	filtered := query.Filter(c, q)
	if s, ok := emptyState(filtered, q); ok {
		return s
	}
	width = max(width, 20)

	var b strings.Builder
	row := 0
	for i, cat := range filtered {
		if i > 0 {
			b.WriteByte('\n')
		}
		marker := "▼"
		if l.collapsed[cat.ID] {
			marker = "▶"
		}
		header := lipgloss.NewStyle().Bold(true).Foreground(categoryColor(i)).
			Render(truncate(fmt.Sprintf("%s %s  %s", marker, cat.Name, ItemCount(len(cat.Templates))), width))
		b.WriteString(header)
		b.WriteByte('\n')
		if l.collapsed[cat.ID] {
			continue
		}
		if len(cat.Templates) == 0 {
			b.WriteString("  " + mutedStyle.Render(MsgEmptyCategory) + "\n")
			continue
		}
		for _, t := range cat.Templates {
			key := query.Key{CategoryID: cat.ID, TemplateID: t.ID}
			line := fmt.Sprintf("%s %s", checkbox(l.sel.Has(key)), t.Title)
			line = truncate(line, width-2)
			if row == l.cursor {
				line = "> " + cursorStyle.Render(line)
			} else {
				line = "  " + titleStyle.Render(line)
			}
			b.WriteString(line + "\n")
			b.WriteString("      " + mutedStyle.Render(firstLine(t.Content, width-6)) + "\n")
			row++
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
