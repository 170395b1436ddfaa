package tui

import (
	"strings"

	"catalog-cli/internal/mutate"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type formKind int

const (
	formAddTemplate formKind = iota
	formEditTemplate
	formAddCategory
)

// form edits one template or names a new category. ctrl+s submits, tab
// moves between fields, esc cancels.
type form struct {
	kind         formKind
	categoryID   string
	categoryName string
	templateID   string

	title   textinput.Model
	content textarea.Model
	focus   int
}

func newForm(kind formKind, categoryID, categoryName, templateID, title, content string) *form {
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Placeholder = "หัวข้อ"
	if kind == formAddCategory {
		ti.Placeholder = "ชื่อหมวดหมู่"
	}
	ti.SetValue(title)
	ti.Focus()

	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.SetValue(content)
	ta.SetHeight(6)

	return &form{kind: kind, categoryID: categoryID, categoryName: categoryName, templateID: templateID, title: ti, content: ta}
}

func (f *form) heading() string {
	switch f.kind {
	case formEditTemplate:
		return "Edit template · " + f.categoryName
	case formAddCategory:
		return "New category"
	default:
		return "New template · " + f.categoryName
	}
}

func (f *form) setWidth(w int) {
	w = max(20, w-4)
	f.title.Width = w
	f.content.SetWidth(w)
}

func (f *form) toggleFocus() {
	if f.kind == formAddCategory {
		return
	}
	f.focus = 1 - f.focus
	if f.focus == 0 {
		f.content.Blur()
		f.title.Focus()
	} else {
		f.title.Blur()
		f.content.Focus()
	}
}

func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if f.focus == 0 {
		f.title, cmd = f.title.Update(msg)
	} else {
		f.content, cmd = f.content.Update(msg)
	}
	return cmd
}

// command builds the mutation for the entered values.
func (f *form) command() mutate.Command {
	switch f.kind {
	case formAddCategory:
		return mutate.AddCategory{Name: f.title.Value()}
	case formEditTemplate:
		return mutate.EditTemplate{CategoryID: f.categoryID, TemplateID: f.templateID, Title: f.title.Value(), Content: f.content.Value()}
	default:
		return mutate.AddTemplate{CategoryID: f.categoryID, Title: f.title.Value(), Content: f.content.Value()}
	}
}

func (f *form) view(width int) string {
	label := lipgloss.NewStyle().Foreground(colorMuted)
	parts := []string{titleStyle.Render(f.heading()), "", f.title.View()}
	if f.kind != formAddCategory {
		parts = append(parts, "", f.content.View())
	}
	parts = append(parts, "", label.Render("ctrl+s: save   tab: next field   esc: cancel"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorMuted).
		Padding(0, 1).
		Width(max(24, width-2)).
		Render(strings.Join(parts, "\n"))
}
