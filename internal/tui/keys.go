package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up, Down, Left, Right key.Binding
	PageUp, PageDown      key.Binding
	Search                key.Binding
	NextView              key.Binding
	Copy, Select, All     key.Binding
	CopySelected          key.Binding
	Collapse, ExpandAll   key.Binding
	CardSize, CardLayout  key.Binding
	PrevPage, NextPage    key.Binding
	SortField, SortDir    key.Binding
	New, Edit, Delete     key.Binding
	NewCategory           key.Binding
	DeleteCategory        key.Binding
	Retry                 key.Binding
	Help, Quit            key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:             key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:           key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:           key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:          key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		PageUp:         key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		PageDown:       key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		Search:         key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		NextView:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "view")),
		Copy:           key.NewBinding(key.WithKeys("enter", "y"), key.WithHelp("enter", "copy")),
		Select:         key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "select")),
		All:            key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all")),
		CopySelected:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy selected")),
		Collapse:       key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "collapse")),
		ExpandAll:      key.NewBinding(key.WithKeys("O"), key.WithHelp("O", "expand all")),
		CardSize:       key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "card size")),
		CardLayout:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "grid/list")),
		PrevPage:       key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev page")),
		NextPage:       key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next page")),
		SortField:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort field")),
		SortDir:        key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "sort direction")),
		New:            key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Edit:           key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete:         key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		NewCategory:    key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "new category")),
		DeleteCategory: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete category")),
		Retry:          key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry save")),
		Help:           key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:           key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.NextView, k.Copy, k.Select, k.CopySelected, k.New, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Search, k.NextView},
		{k.Copy, k.Select, k.All, k.CopySelected},
		{k.Collapse, k.CardSize, k.CardLayout, k.SortField, k.SortDir},
		{k.New, k.Edit, k.Delete, k.NewCategory, k.DeleteCategory, k.Retry},
	}
}
