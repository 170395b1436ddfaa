package view

import (
	"strings"

	"catalog-cli/internal/model"
	"catalog-cli/internal/prefs"
	"catalog-cli/internal/query"

	"github.com/charmbracelet/lipgloss"
)

const (
	colTitle   = "หัวข้อ"
	colLength  = "ความยาว"
	colContent = "เนื้อหา"
)

// Table lists every visible template as a row, ordered by one sort field.
type Table struct {
	base
	field query.Field
	dir   query.Direction
}

func NewTable() *Table {
	return &Table{base: newBase(), field: query.SortTitle, dir: query.Asc}
}

func (*Table) Mode() Mode { return prefs.ViewTable }

func (v *Table) Sort() (query.Field, query.Direction) { return v.field, v.dir }

// SortBy flips the direction when f is already the sort field, otherwise
// sorts ascending by f.
func (v *Table) SortBy(f query.Field) {
	if f == v.field {
		v.dir = v.dir.Toggle()
		return
	}
	v.field, v.dir = f, query.Asc
}

func (v *Table) Entries(c model.Catalog, q string) []query.Entry {
	return query.SortEntries(query.Flatten(query.Filter(c, q)), v.field, v.dir)
}

func (v *Table) sortIcon(f query.Field) string {
	if f != v.field {
		return "↕"
	}
	if v.dir == query.Desc {
		return "↓"
	}
	return "↑"
}

func (v *Table) Render(c model.Catalog, q string, width int) string {
	entries := v.Entries(c, q)
	if len(entries) == 0 {
		if q != "" {
			return mutedStyle.Render(MsgNoResults)
		}
		return mutedStyle.Render(MsgEmptyCategory)
	}
	width = max(width, 40)
	const (
		selW = 4
		lenW = 14
	)
	titleW := max(10, (width-selW-lenW)/3)
	contentW := max(10, width-selW-lenW-titleW-3)

	cell := func(s string, w int) string {
		s = truncate(s, w)
		return s + strings.Repeat(" ", max(0, w-lipgloss.Width(s)))
	}

	all := len(entries) > 0 && v.sel.AllSelected(entries)
	header := strings.Join([]string{
		cell(checkbox(all), selW),
		cell(colTitle+" "+v.sortIcon(query.SortTitle), titleW),
		cell(colLength+" "+v.sortIcon(query.SortLength), lenW),
		cell(colContent+" "+v.sortIcon(query.SortContent), contentW),
	}, " ")

	lines := []string{titleStyle.Render(header), mutedStyle.Render(strings.Repeat("─", min(width, lipgloss.Width(header))))}
	for i, e := range entries {
		content := strings.ReplaceAll(e.Template.Content, "\n", " ")
		row := strings.Join([]string{
			cell(checkbox(v.sel.Has(e.Key())), selW),
			cell(e.Template.Title, titleW),
			cell(CharCount(e.Template.Content), lenW),
			cell(content, contentW),
		}, " ")
		if i == v.cursor {
			row = cursorStyle.Render(row)
		}
		lines = append(lines, row)
	}
	if n := v.sel.Len(); n > 0 {
		lines = append(lines, "", mutedStyle.Render(SelectedCount(n)))
	}
	return strings.Join(lines, "\n")
}
