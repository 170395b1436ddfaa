// Package tui is the interactive catalog browser and editor.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog-cli/internal/clipboard"
	"catalog-cli/internal/docs"
	"catalog-cli/internal/model"
	"catalog-cli/internal/mutate"
	"catalog-cli/internal/prefs"
	"catalog-cli/internal/query"
	"catalog-cli/internal/syncer"
	"catalog-cli/internal/view"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

const flashDuration = 2 * time.Second

const (
	msgSaveFailed     = "บันทึกข้อมูลไม่สำเร็จ กรุณาลองใหม่อีกครั้ง"
	msgFieldsRequired = "กรุณากรอกหัวข้อและเนื้อหา"
	msgConfirmDelete  = "คุณแน่ใจว่าต้องการลบเทมเพลตนี้?"
	msgConfirmDropCat = "คุณแน่ใจว่าต้องการลบหมวดหมู่นี้? เทมเพลตทั้งหมดในหมวดหมู่นี้จะถูกลบด้วย"
)

var (
	colorMuted  = lipgloss.AdaptiveColor{Light: "240", Dark: "245"}
	colorError  = lipgloss.AdaptiveColor{Light: "160", Dark: "203"}
	colorOK     = lipgloss.AdaptiveColor{Light: "28", Dark: "78"}
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError)
	flashStyle  = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	activeStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

type Options struct {
	Controller *syncer.Controller
	Prefs      *prefs.Store
	Clipboard  clipboard.Writer
	Logger     zerolog.Logger
}

type uiMode int

const (
	modeBrowse uiMode = iota
	modeSearch
	modeForm
	modeConfirm
	modeHelp
)

type catalogMsg struct{ catalog model.Catalog }

type flashDoneMsg struct{ seq int }

type executedMsg struct {
	cmd mutate.Command
	res mutate.Result
	err error
}

type retriedMsg struct{ err error }

type confirmation struct {
	prompt string
	cmd    mutate.Command
}

type appModel struct {
	ctrl    *syncer.Controller
	clip    clipboard.Writer
	log     zerolog.Logger
	updates chan model.Catalog
	unsub   func()

	catalog model.Catalog
	sw      *view.Switcher

	keys   keyMap
	help   help.Model
	search textinput.Model
	body   viewport.Model
	helpVP viewport.Model

	mode    uiMode
	form    *form
	confirm *confirmation

	width, height int

	flash    string
	flashSeq int
	status   string
	isError  bool
}

func newAppModel(o Options) appModel {
	si := textinput.New()
	si.Prompt = "/ "
	si.Placeholder = "ค้นหาเทมเพลต..."
	si.CharLimit = 120

	clip := o.Clipboard
	if clip == nil {
		clip = clipboard.System{}
	}
	m := appModel{
		ctrl:    o.Controller,
		clip:    clip,
		log:     o.Logger.With().Str("component", "tui").Logger(),
		updates: make(chan model.Catalog, 16),
		catalog: o.Controller.Current(),
		sw:      view.NewSwitcher(o.Prefs),
		keys:    newKeyMap(),
		help:    help.New(),
		search:  si,
		body:    viewport.New(80, 20),
		helpVP:  viewport.New(80, 20),
		width:   80,
		height:  24,
	}
	updates := m.updates
	m.unsub = o.Controller.Subscribe(func(c model.Catalog) {
		select {
		case updates <- c:
		default:
			// The UI only needs the latest snapshot; drop the oldest.
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- c:
			default:
			}
		}
	})
	m.layoutBody()
	return m
}

func waitForCatalog(ch <-chan model.Catalog) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return catalogMsg{catalog: c}
	}
}

func (m appModel) Init() tea.Cmd {
	return waitForCatalog(m.updates)
}

func (m *appModel) setFlash(s string) tea.Cmd {
	m.flashSeq++
	m.flash = s
	seq := m.flashSeq
	return tea.Tick(flashDuration, func(time.Time) tea.Msg { return flashDoneMsg{seq: seq} })
}

func (m *appModel) setStatus(s string, isError bool) {
	m.status, m.isError = s, isError
}

func (m appModel) execute(cmd mutate.Command) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		res, err := ctrl.Execute(context.Background(), cmd)
		return executedMsg{cmd: cmd, res: res, err: err}
	}
}

func (m appModel) retry() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return retriedMsg{err: ctrl.Retry(context.Background())}
	}
}

func (m *appModel) copyText(text string) tea.Cmd {
	if text == "" {
		return nil
	}
	if err := m.clip.WriteText(text); err != nil {
		m.log.Warn().Err(err).Msg("copy failed")
		m.setStatus(err.Error(), true)
		return nil
	}
	return m.setFlash(view.MsgCopied)
}

func (m *appModel) describeError(err error) string {
	if reason, ok := mutate.ReasonOf(err); ok {
		switch reason {
		case mutate.ReasonEmptyField:
			return msgFieldsRequired
		case mutate.ReasonNotFound:
			return err.Error() + " (view refreshed)"
		default:
			return err.Error()
		}
	}
	return msgSaveFailed + " (r: retry)"
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	nm := next.(appModel)
	nm.layoutBody()
	return nm, cmd
}

func (m appModel) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.search.Width = max(10, msg.Width-20)
		m.helpVP.Width, m.helpVP.Height = msg.Width, max(3, msg.Height-2)
		if m.form != nil {
			m.form.setWidth(msg.Width)
		}
		return m, nil

	case catalogMsg:
		m.catalog = msg.catalog
		m.sw.Sync(m.catalog)
		return m, waitForCatalog(m.updates)

	case flashDoneMsg:
		if msg.seq == m.flashSeq {
			m.flash = ""
		}
		return m, nil

	case executedMsg:
		m.catalog = m.ctrl.Current()
		m.sw.Sync(m.catalog)
		if msg.err != nil {
			m.setStatus(m.describeError(msg.err), true)
			return m, nil
		}
		m.setStatus("saved: "+msg.cmd.Op(), false)
		return m, nil

	case retriedMsg:
		m.catalog = m.ctrl.Current()
		if msg.err != nil {
			if errors.Is(msg.err, syncer.ErrNothingPending) {
				m.setStatus("nothing to retry", false)
			} else {
				m.setStatus(m.describeError(msg.err), true)
			}
			return m, nil
		}
		m.setStatus("saved", false)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		switch m.mode {
		case modeHelp:
			return m.updateHelp(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		case modeForm:
			return m.updateForm(msg)
		case modeSearch:
			return m.updateSearch(msg)
		default:
			return m.updateBrowse(msg)
		}
	}

	if m.mode == modeForm && m.form != nil {
		return m, m.form.update(msg)
	}
	return m, nil
}

func (m appModel) quit() (tea.Model, tea.Cmd) {
	if m.unsub != nil {
		m.unsub()
	}
	return m, tea.Quit
}

func (m appModel) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "?":
		m.mode = modeBrowse
		return m, nil
	}
	var cmd tea.Cmd
	m.helpVP, cmd = m.helpVP.Update(msg)
	return m, cmd
}

func (m appModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.confirm
	switch msg.String() {
	case "y", "Y", "enter":
		m.mode, m.confirm = modeBrowse, nil
		if c != nil {
			return m, m.execute(c.cmd)
		}
	case "n", "N", "esc", "q":
		m.mode, m.confirm = modeBrowse, nil
	}
	return m, nil
}

func (m appModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode, m.form = modeBrowse, nil
		return m, nil
	case "tab", "shift+tab":
		m.form.toggleFocus()
		return m, nil
	case "ctrl+s":
		cmd := m.form.command()
		if c, ok := cmd.(mutate.AddTemplate); ok && (strings.TrimSpace(c.Title) == "" || strings.TrimSpace(c.Content) == "") {
			m.setStatus(msgFieldsRequired, true)
			return m, nil
		}
		if c, ok := cmd.(mutate.EditTemplate); ok && (strings.TrimSpace(c.Title) == "" || strings.TrimSpace(c.Content) == "") {
			m.setStatus(msgFieldsRequired, true)
			return m, nil
		}
		m.mode, m.form = modeBrowse, nil
		return m, m.execute(cmd)
	case "enter":
		if m.form.kind == formAddCategory {
			cmd := m.form.command()
			m.mode, m.form = modeBrowse, nil
			return m, m.execute(cmd)
		}
	}
	return m, m.form.update(msg)
}

func (m appModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.search.SetValue("")
		m.sw.SetQuery("")
		m.search.Blur()
		m.mode = modeBrowse
		return m, nil
	case "enter", "down", "tab":
		m.search.Blur()
		m.mode = modeBrowse
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.sw.SetQuery(m.search.Value())
	return m, cmd
}

func (m appModel) cardColumns() int {
	if c, ok := m.sw.Active().(*view.Cards); ok {
		return c.Columns(m.width)
	}
	return 1
}

func (m appModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m.quit()
	case key.Matches(msg, k.Help):
		m.mode = modeHelp
		keysDoc, _ := docs.Get("keys")
		m.helpVP.SetContent(renderMarkdown(keysDoc, m.width))
		m.helpVP.GotoTop()
		return m, nil
	case key.Matches(msg, k.Search):
		m.mode = modeSearch
		cmd := m.search.Focus()
		return m, cmd
	case key.Matches(msg, k.NextView):
		if err := m.sw.Cycle(); err != nil {
			m.setStatus("view preference not saved: "+err.Error(), true)
		}
		return m, nil

	case key.Matches(msg, k.Up):
		m.sw.Move(m.catalog, -m.cardColumns())
	case key.Matches(msg, k.Down):
		m.sw.Move(m.catalog, m.cardColumns())
	case key.Matches(msg, k.Left):
		m.sw.Move(m.catalog, -1)
	case key.Matches(msg, k.Right):
		m.sw.Move(m.catalog, 1)
	case key.Matches(msg, k.PageUp):
		m.body.HalfViewUp()
	case key.Matches(msg, k.PageDown):
		m.body.HalfViewDown()

	case key.Matches(msg, k.Copy):
		if e, ok := m.sw.Current(m.catalog); ok {
			cmd := m.copyText(e.Template.Content)
			return m, cmd
		}
	case key.Matches(msg, k.Select):
		m.sw.ToggleCurrent(m.catalog)
	case key.Matches(msg, k.All):
		m.sw.ToggleAll(m.catalog)
	case key.Matches(msg, k.CopySelected):
		cmd := m.copyText(m.sw.CopySelected(m.catalog))
		return m, cmd

	case key.Matches(msg, k.Collapse):
		if l, ok := m.sw.Active().(*view.List); ok {
			if e, ok := m.sw.Current(m.catalog); ok {
				l.ToggleCollapse(e.CategoryID)
			}
		}
	case key.Matches(msg, k.ExpandAll):
		if l, ok := m.sw.Active().(*view.List); ok {
			l.ExpandAll()
		}
	case key.Matches(msg, k.CardSize):
		if c, ok := m.sw.Active().(*view.Cards); ok {
			c.CycleSize()
		}
	case key.Matches(msg, k.CardLayout):
		if c, ok := m.sw.Active().(*view.Cards); ok {
			c.ToggleLayout()
		}
	case key.Matches(msg, k.PrevPage):
		if c, ok := m.sw.Active().(*view.Cards); ok {
			c.PrevPage()
		}
	case key.Matches(msg, k.NextPage):
		if c, ok := m.sw.Active().(*view.Cards); ok {
			c.NextPage(m.catalog, m.sw.Query())
		}
	case key.Matches(msg, k.SortField):
		if t, ok := m.sw.Active().(*view.Table); ok {
			f, _ := t.Sort()
			t.SortBy(nextField(f))
		}
	case key.Matches(msg, k.SortDir):
		if t, ok := m.sw.Active().(*view.Table); ok {
			f, _ := t.Sort()
			t.SortBy(f)
		}

	case key.Matches(msg, k.New):
		catID, catName, ok := m.currentCategory()
		if !ok {
			m.setStatus("add a category first (N)", true)
			return m, nil
		}
		return m.openForm(newForm(formAddTemplate, catID, catName, "", "", ""))
	case key.Matches(msg, k.Edit):
		if e, ok := m.sw.Current(m.catalog); ok {
			return m.openForm(newForm(formEditTemplate, e.CategoryID, e.CategoryName, e.Template.ID, e.Template.Title, e.Template.Content))
		}
	case key.Matches(msg, k.Delete):
		if e, ok := m.sw.Current(m.catalog); ok {
			m.mode = modeConfirm
			m.confirm = &confirmation{
				prompt: msgConfirmDelete + "\n\n" + e.Template.Title,
				cmd:    mutate.DeleteTemplate{CategoryID: e.CategoryID, TemplateID: e.Template.ID},
			}
		}
	case key.Matches(msg, k.NewCategory):
		return m.openForm(newForm(formAddCategory, "", "", "", "", ""))
	case key.Matches(msg, k.DeleteCategory):
		if catID, catName, ok := m.currentCategory(); ok {
			m.mode = modeConfirm
			m.confirm = &confirmation{
				prompt: msgConfirmDropCat + "\n\n" + catName,
				cmd:    mutate.DeleteCategory{CategoryID: catID},
			}
		}
	case key.Matches(msg, k.Retry):
		return m, m.retry()
	}
	return m, nil
}

func nextField(f query.Field) query.Field {
	for i, x := range query.Fields {
		if x == f {
			return query.Fields[(i+1)%len(query.Fields)]
		}
	}
	return query.SortTitle
}

// currentCategory is the category of the entry under the cursor, or the
// first category when nothing is visible.
func (m appModel) currentCategory() (string, string, bool) {
	if e, ok := m.sw.Current(m.catalog); ok {
		return e.CategoryID, e.CategoryName, true
	}
	if len(m.catalog) > 0 {
		return m.catalog[0].ID, m.catalog[0].Name, true
	}
	return "", "", false
}

func (m appModel) openForm(f *form) (tea.Model, tea.Cmd) {
	f.setWidth(m.width)
	m.form = f
	m.mode = modeForm
	return m, textinput.Blink
}

func (m appModel) header() string {
	var tabs []string
	for _, mode := range prefs.ViewModes {
		label := string(mode)
		if mode == m.sw.Mode() {
			label = activeStyle.Render(label)
		} else {
			label = mutedStyle.Render(label)
		}
		tabs = append(tabs, label)
	}
	left := titleStyle.Render("Template Catalog") + "  " + strings.Join(tabs, " │ ")
	count := mutedStyle.Render(view.ItemCount(len(m.sw.Visible(m.catalog))))
	return left + "  " + count
}

func (m appModel) statusLine() string {
	var parts []string
	if m.flash != "" {
		parts = append(parts, flashStyle.Render("✓ "+m.flash))
	}
	if n := m.sw.Active().Selection().Len(); n > 0 {
		parts = append(parts, mutedStyle.Render(view.SelectedCount(n)+" · c: "+view.MsgCopySelected))
	}
	if _, pending := m.ctrl.Pending(); pending && !m.isError {
		parts = append(parts, errorStyle.Render("unsaved changes (r: retry)"))
	}
	if m.status != "" {
		st := mutedStyle
		if m.isError {
			st = errorStyle
		}
		parts = append(parts, st.Render(m.status))
	}
	return strings.Join(parts, "  ")
}

func (m appModel) bodyContent() string {
	switch m.mode {
	case modeForm:
		return m.form.view(m.width)
	case modeConfirm:
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorError).
			Padding(0, 1).
			Render(m.confirm.prompt + "\n\n" + mutedStyle.Render("y: confirm   n: cancel"))
	default:
		return m.sw.Render(m.catalog, m.width)
	}
}

// layoutBody sizes the body viewport to what the chrome leaves free.
func (m *appModel) layoutBody() {
	used := lipgloss.Height(m.header()) + lipgloss.Height(m.search.View()) +
		lipgloss.Height(m.statusLine()) + lipgloss.Height(m.help.View(m.keys))
	m.body.Width = m.width
	m.body.Height = max(3, m.height-used)
	m.body.SetContent(m.bodyContent())
}

func (m appModel) View() string {
	if m.mode == modeHelp {
		return m.helpVP.View() + "\n" + mutedStyle.Render("esc: close help")
	}
	return strings.Join([]string{
		m.header(),
		m.search.View(),
		m.body.View(),
		m.statusLine(),
		m.help.View(m.keys),
	}, "\n")
}

// Run starts the full-screen browser and blocks until the user quits.
func Run(o Options) error {
	if o.Controller == nil {
		return fmt.Errorf("tui: missing controller")
	}
	m := newAppModel(o)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
