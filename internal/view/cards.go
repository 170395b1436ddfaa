package view

import (
	"fmt"
	"strings"

	"catalog-cli/internal/model"
	"catalog-cli/internal/prefs"
	"catalog-cli/internal/query"

	"github.com/charmbracelet/lipgloss"
)

type Layout string

const (
	LayoutGrid Layout = "grid"
	LayoutList Layout = "list"
)

// Cards draws templates as bordered cards. Density and layout are local to
// the view; paging follows the items-per-page setting.
type Cards struct {
	base
	size        prefs.CardSize
	layout      Layout
	showPreview bool
	compact     bool
	perPage     int
	page        int
}

func NewCards(s prefs.Settings) *Cards {
	size := s.CardSize
	if !size.Valid() {
		size = prefs.CardMedium
	}
	return &Cards{
		base:        newBase(),
		size:        size,
		layout:      LayoutGrid,
		showPreview: s.ShowPreview,
		compact:     s.CompactMode,
		perPage:     s.ItemsPerPage,
	}
}

func (*Cards) Mode() Mode { return prefs.ViewCards }

func (v *Cards) Size() prefs.CardSize { return v.size }

func (v *Cards) SetSize(s prefs.CardSize) {
	if s.Valid() {
		v.size = s
	}
}

// CycleSize steps small, medium, large and back to small.
func (v *Cards) CycleSize() {
	for i, s := range prefs.CardSizes {
		if s == v.size {
			v.size = prefs.CardSizes[(i+1)%len(prefs.CardSizes)]
			return
		}
	}
	v.size = prefs.CardMedium
}

func (v *Cards) Layout() Layout { return v.layout }

func (v *Cards) ToggleLayout() {
	if v.layout == LayoutGrid {
		v.layout = LayoutList
	} else {
		v.layout = LayoutGrid
	}
}

func (v *Cards) Page() int { return v.page }

func (v *Cards) PageCount(c model.Catalog, q string) int {
	return query.PageCount(len(query.Flatten(query.Filter(c, q))), v.perPage)
}

func (v *Cards) NextPage(c model.Catalog, q string) {
	if v.page+1 < v.PageCount(c, q) {
		v.page++
		v.cursor = 0
	}
}

func (v *Cards) PrevPage() {
	if v.page > 0 {
		v.page--
		v.cursor = 0
	}
}

// Entries returns the current page.
func (v *Cards) Entries(c model.Catalog, q string) []query.Entry {
	entries, page := query.Page(query.Flatten(query.Filter(c, q)), v.page, v.perPage)
	v.page = page
	return entries
}

type cardMetrics struct {
	minWidth int
	maxCols  int
	preview  int
	padding  [2]int
}

func (v *Cards) metrics() cardMetrics {
	m := cardMetrics{minWidth: 40, maxCols: 3, preview: 3, padding: [2]int{0, 2}}
	switch v.size {
	case prefs.CardSmall:
		m = cardMetrics{minWidth: 30, maxCols: 4, preview: 2, padding: [2]int{0, 1}}
	case prefs.CardLarge:
		m = cardMetrics{minWidth: 56, maxCols: 2, preview: 5, padding: [2]int{1, 2}}
	}
	if v.compact {
		m.preview = 1
		m.padding = [2]int{0, 1}
	}
	if !v.showPreview {
		m.preview = 0
	}
	return m
}

// Columns is the number of cards per row at width.
func (v *Cards) Columns(width int) int {
	if v.layout == LayoutList {
		return 1
	}
	m := v.metrics()
	return max(1, min(m.maxCols, width/m.minWidth))
}

func (v *Cards) Render(c model.Catalog, q string, width int) string {
	filtered := query.Filter(c, q)
	if s, ok := emptyState(filtered, q); ok {
		return s
	}
	width = max(width, 20)
	cols := v.Columns(width)
	cardW := width / cols
	m := v.metrics()

	entries := v.Entries(c, q)
	pages := v.PageCount(c, q)
	var sections []string
	idx := 0
	for ci, cat := range filtered {
		header := lipgloss.NewStyle().Bold(true).Foreground(categoryColor(ci)).Render(truncate(cat.Name, width))
		if len(cat.Templates) == 0 {
			if q == "" && pages == 1 {
				sections = append(sections, header+"\n  "+mutedStyle.Render(MsgEmptyCategory))
			}
			continue
		}
		var cards []string
		for idx < len(entries) && entries[idx].CategoryID == cat.ID {
			cards = append(cards, v.card(entries[idx], idx == v.cursor, cardW, m, categoryColor(ci)))
			idx++
		}
		if len(cards) == 0 {
			continue
		}
		var rows []string
		for start := 0; start < len(cards); start += cols {
			end := min(start+cols, len(cards))
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[start:end]...))
		}
		sections = append(sections, header+"\n"+lipgloss.JoinVertical(lipgloss.Left, rows...))
	}
	if pages > 1 {
		sections = append(sections, mutedStyle.Render(pageLabel(v.page, pages)))
	}
	return strings.Join(sections, "\n\n")
}

func (v *Cards) card(e query.Entry, atCursor bool, width int, m cardMetrics, accent lipgloss.AdaptiveColor) string {
	st := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(m.padding[0], m.padding[1])
	if atCursor {
		st = st.Border(lipgloss.ThickBorder()).BorderForeground(colorAccent)
	}
	inner := max(4, width-st.GetHorizontalFrameSize())
	st = st.Width(inner + st.GetHorizontalPadding())

	title := checkbox(v.sel.Has(e.Key())) + " " + e.Template.Title
	lines := []string{titleStyle.Foreground(accent).Render(truncate(title, inner))}
	lines = append(lines, previewLines(e.Template.Content, inner, m.preview)...)
	lines = append(lines, mutedStyle.Render(CharCount(e.Template.Content)))
	return st.Render(strings.Join(lines, "\n"))
}

func pageLabel(page, pages int) string {
	return fmt.Sprintf("หน้า %d/%d", page+1, pages)
}
