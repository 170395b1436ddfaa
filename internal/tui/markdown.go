package tui

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

// helpRenderer renders the key reference. The help screen only ever needs
// one renderer at a time, so it keeps the last one and rebuilds it when the
// width or style changes. WithAutoStyle is avoided because it queries the
// terminal and can block.
type helpRenderer struct {
	mu    sync.Mutex
	style string
	width int
	r     *glamour.TermRenderer
}

var helpMarkdown helpRenderer

func renderMarkdown(md string, width int) string {
	return helpMarkdown.render(md, width)
}

func (h *helpRenderer) render(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	width = max(width, 10)
	style := markdownStyle()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.r == nil || h.style != style || h.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStyles(helpStyleConfig(style)),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		h.r, h.style, h.width = r, style, width
	}
	out, err := h.r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// helpStyleConfig is the named glamour style with the document margin
// removed, so the key table lines up with the rest of the screen.
func helpStyleConfig(style string) ansi.StyleConfig {
	var cfg ansi.StyleConfig
	accent := colorOK.Dark
	switch style {
	case "notty":
		cfg = styles.NoTTYStyleConfig
	case "ascii":
		cfg = styles.ASCIIStyleConfig
	case "light":
		cfg = styles.LightStyleConfig
		accent = colorOK.Light
	default:
		cfg = styles.DarkStyleConfig
	}
	zero := uint(0)
	cfg.Document.Margin = &zero
	if style == "light" || style == "dark" {
		cfg.H1.Color = &accent
		cfg.H2.Color = &accent
	}
	return cfg
}

// markdownStyle picks a glamour style. CATALOG_TUI_MD_STYLE overrides the
// background detection.
func markdownStyle() string {
	switch v := strings.ToLower(strings.TrimSpace(os.Getenv("CATALOG_TUI_MD_STYLE"))); v {
	case "light", "dark", "notty", "ascii":
		return v
	}
	if lipgloss.HasDarkBackground() {
		return "dark"
	}
	return "light"
}
