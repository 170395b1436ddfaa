// Package view renders the filtered catalog as a list, a card grid or a
// table. Each adapter owns its cursor and selection; the Switcher owns the
// active mode and the search text.
package view

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"catalog-cli/internal/model"
	"catalog-cli/internal/prefs"
	"catalog-cli/internal/query"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

type Mode = prefs.ViewMode

const (
	MsgCopied        = "คัดลอกแล้ว!"
	MsgNoResults     = "ไม่พบเทมเพลตที่ค้นหา"
	MsgEmptyCategory = "ไม่มีเทมเพลตในหมวดนี้"
	MsgCopySelected  = "คัดลอกที่เลือก"
)

// CharCount labels the length of s in characters.
func CharCount(s string) string {
	return fmt.Sprintf("%d ตัวอักษร", utf8.RuneCountInString(s))
}

func ItemCount(n int) string { return fmt.Sprintf("%d รายการ", n) }

func SelectedCount(n int) string { return fmt.Sprintf("เลือกแล้ว %d รายการ", n) }

// Adapter is one presentation of a catalog filtered by a query.
type Adapter interface {
	Mode() Mode
	// Entries lists the visible templates in the order they are drawn.
	Entries(c model.Catalog, q string) []query.Entry
	Render(c model.Catalog, q string, width int) string
	Selection() *query.Selection
	Cursor() int
	SetCursor(i int)
}

// New builds a fresh adapter for mode. Unknown modes fall back to list.
func New(mode Mode, s prefs.Settings) Adapter {
	switch mode {
	case prefs.ViewCards:
		return NewCards(s)
	case prefs.ViewTable:
		return NewTable()
	default:
		return NewList()
	}
}

type base struct {
	sel    *query.Selection
	cursor int
}

func newBase() base { return base{sel: query.NewSelection()} }

func (b *base) Selection() *query.Selection { return b.sel }
func (b *base) Cursor() int                 { return b.cursor }
func (b *base) SetCursor(i int)             { b.cursor = max(0, i) }

// Category header colors, rotated by position.
var palette = []lipgloss.AdaptiveColor{
	ac("162", "205"), // pink
	ac("91", "141"),  // purple
	ac("25", "75"),   // blue
	ac("28", "78"),   // green
	ac("166", "214"), // orange
	ac("30", "80"),   // teal
}

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func categoryColor(i int) lipgloss.AdaptiveColor {
	return palette[i%len(palette)]
}

var (
	colorMuted  = ac("240", "245")
	colorAccent = ac("232", "255")
	colorBorder = ac("250", "243")

	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	cursorStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
)

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

// firstLine returns the first line of s cut to width cells.
func firstLine(s string, width int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return truncate(s, width)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if xansi.StringWidth(s) <= width {
		return s
	}
	return xansi.Truncate(s, width, "…")
}

// previewLines wraps s to width and keeps at most n lines, marking the cut.
func previewLines(s string, width, n int) []string {
	if width <= 0 || n <= 0 {
		return nil
	}
	lines := strings.Split(xansi.Wrap(s, width, ""), "\n")
	if len(lines) <= n {
		return lines
	}
	lines = lines[:n]
	lines[n-1] = truncate(lines[n-1]+"…", width)
	return lines
}

func emptyState(filtered model.Catalog, q string) (string, bool) {
	if len(filtered) == 0 && q != "" {
		return mutedStyle.Render(MsgNoResults), true
	}
	return "", false
}

func clampCursor(a Adapter, n int) {
	if n == 0 {
		a.SetCursor(0)
		return
	}
	a.SetCursor(min(a.Cursor(), n-1))
}
