// Package tui is the interactive terminal view. The Bubble Tea model only
// translates keys into controller calls; what it draws comes from a
// viewstate.State that the controller keeps current through store events.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/controller"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store/sqlitestore"
	"github.com/Makepad-fr/tada/internal/template"
	"github.com/Makepad-fr/tada/internal/ui"
	"github.com/Makepad-fr/tada/internal/viewstate"
)

// ExternalChangeMsg tells the model another process changed the database.
type ExternalChangeMsg struct{}

// Invalidator is the store hook that makes listeners reload everything.
type Invalidator interface{ Invalidate() }

type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
	modeConsole
)

const consoleLines = 8

var (
	addBind     = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editBind    = key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "edit"))
	toggleBind  = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle"))
	deleteBind  = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	undoBind    = key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo"))
	allBind     = key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "toggle all"))
	clearBind   = key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear done"))
	routeBind   = key.NewBinding(key.WithKeys("1", "2", "3", "left", "right", "tab"), key.WithHelp("1/2/3 ←/→", "filter"))
	consoleBind = key.NewBinding(key.WithKeys("`"), key.WithHelp("`", "sql"))
)

type Model struct {
	ctx   context.Context
	ctrl  *controller.Controller
	state *viewstate.State
	inv   Invalidator

	list list.Model
	ti   textinput.Model // shared by add and edit
	sql  textinput.Model
	mode mode

	editID int64
	errMsg string

	// single-level undo of the last delete
	undo *model.Item
}

// New builds the model. ctrl must already be wired to state.
func New(ctx context.Context, ctrl *controller.Controller, state *viewstate.State, inv Invalidator) Model {
	l := list.New(toListItems(state.Items), itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = ui.Current().Title
	l.Styles.HelpStyle = ui.Current().Help
	l.Styles.PaginationStyle = ui.Current().Help
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("item", "items")
	extra := func() []key.Binding {
		return []key.Binding{addBind, editBind, toggleBind, deleteBind, undoBind, allBind, clearBind, routeBind, consoleBind}
	}
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	sql := textinput.New()
	sql.Prompt = "sql> "
	sql.Placeholder = "SELECT * FROM todos"

	m := Model{ctx: ctx, ctrl: ctrl, state: state, inv: inv, list: l, ti: ti, sql: sql}
	m.sync()
	return m
}

func (m Model) Init() tea.Cmd { return nil }

// sync copies the projection into the list widget.
func (m *Model) sync() {
	idx := m.list.Index()
	m.list.SetItems(toListItems(m.state.Items))
	if n := len(m.state.Items); idx >= n && n > 0 {
		m.list.Select(n - 1)
	}
	m.list.Title = m.header()
}

func (m Model) header() string {
	t := ui.Current()
	var tabs []string
	for i, r := range model.Routes {
		label := fmt.Sprintf("%d %s", i+1, r.Label())
		if r == m.state.Route {
			tabs = append(tabs, t.Accent.Render("["+label+"]"))
		} else {
			tabs = append(tabs, t.Muted.Render(" "+label+" "))
		}
	}
	left := t.Pending.Render(t.SymPending) + " " + template.ItemCounter(m.state.ItemsLeft)
	return fmt.Sprintf("%s   %s   %s", t.Title.Render("Todos"), left, strings.Join(tabs, " "))
}

func (m Model) selected() (model.Item, bool) {
	li, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Item{}, false
	}
	return li.item, true
}

func (m *Model) report(err error) {
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width-4, m.listHeight(msg.Height))
		return m, nil
	case ExternalChangeMsg:
		m.inv.Invalidate()
		m.sync()
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	switch m.mode {
	case modeAdd:
		m, cmd = m.updateAdd(msg)
	case modeEdit:
		m, cmd = m.updateEdit(msg)
	case modeConsole:
		m, cmd = m.updateConsole(msg)
	default:
		m, cmd = m.updateList(msg)
	}
	m.sync()
	return m, cmd
}

func (m Model) listHeight(h int) int {
	h -= 4
	if m.state.ShowMain || m.mode == modeConsole {
		h -= consoleLines + 2
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (m Model) updateList(msg tea.Msg) (Model, tea.Cmd) {
	km, isKey := msg.(tea.KeyMsg)
	if !isKey || m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch km.String() {
	case "q", "esc":
		if m.list.FilterState() == list.FilterApplied {
			m.list.ResetFilter()
			return m, nil
		}
		return m, tea.Quit
	case "a":
		m.mode = modeAdd
		m.ti.SetValue("")
		m.ti.Placeholder = "What needs to be done?"
		return m, m.ti.Focus()
	case "e", "enter":
		it, ok := m.selected()
		if !ok || !m.state.BeginEdit(it.ID) {
			return m, nil
		}
		m.mode = modeEdit
		m.editID = it.ID
		m.ti.SetValue(it.Title)
		m.ti.CursorEnd()
		m.ti.Placeholder = "Edit item title..."
		return m, m.ti.Focus()
	case " ", "space":
		if it, ok := m.selected(); ok {
			m.report(m.ctrl.ToggleCompleted(m.ctx, it.ID, !it.Completed))
		}
		return m, nil
	case "d":
		if it, ok := m.selected(); ok {
			err := m.ctrl.RemoveItem(m.ctx, it.ID)
			m.report(err)
			if err == nil {
				m.undo = &it
			}
		}
		return m, nil
	case "u":
		if m.undo != nil {
			_, err := m.ctrl.RestoreItem(m.ctx, *m.undo)
			m.report(err)
			m.undo = nil
		}
		return m, nil
	case "t":
		m.report(m.ctrl.ToggleAll(m.ctx, !m.state.AllCompleted))
		return m, nil
	case "c":
		m.report(m.ctrl.RemoveCompletedItems(m.ctx))
		return m, nil
	case "1", "2", "3":
		r := model.Routes[int(km.String()[0]-'1')]
		m.report(m.ctrl.SetView(m.ctx, r.Hash()))
		return m, nil
	case "right", "tab":
		m.report(m.ctrl.SetView(m.ctx, m.cycleRoute(1).Hash()))
		return m, nil
	case "left", "shift+tab":
		m.report(m.ctrl.SetView(m.ctx, m.cycleRoute(-1).Hash()))
		return m, nil
	case "`":
		m.mode = modeConsole
		return m, m.sql.Focus()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// cycleRoute is the route diff steps away from the current one, wrapping.
func (m Model) cycleRoute(diff int) model.Route {
	n := len(model.Routes)
	for i, r := range model.Routes {
		if r == m.state.Route {
			return model.Routes[((i+diff)%n+n)%n]
		}
	}
	return model.RouteAll
}

func (m Model) updateAdd(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "enter":
			title := strings.TrimSpace(m.ti.Value())
			if title == "" {
				m.errMsg = "Title cannot be empty"
				return m, nil
			}
			_, err := m.ctrl.AddItem(m.ctx, title)
			m.report(err)
			if m.state.TakeNewTodoCleared() {
				m.ti.SetValue("")
				m.ti.Blur()
				m.mode = modeList
			}
			return m, nil
		case "esc":
			m.ti.SetValue("")
			m.ti.Blur()
			m.errMsg = ""
			m.mode = modeList
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m Model) updateEdit(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "enter":
			m.report(m.ctrl.EditItemSave(m.ctx, m.editID, m.ti.Value()))
		case "esc":
			m.report(m.ctrl.EditItemCancel(m.ctx, m.editID))
		default:
			var cmd tea.Cmd
			m.ti, cmd = m.ti.Update(msg)
			return m, cmd
		}
		if m.state.EditingID != m.editID {
			m.ti.SetValue("")
			m.ti.Blur()
			m.mode = modeList
			m.editID = 0
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m Model) updateConsole(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "`", "esc":
			m.sql.Blur()
			m.mode = modeList
			return m, nil
		case "enter":
			// errors land in the trace
			_ = m.ctrl.EvalSQL(m.ctx, m.sql.Value())
			m.takeSQLInput()
			return m, nil
		case "up":
			m.ctrl.NavigateSQLHistory(-1)
			m.takeSQLInput()
			return m, nil
		case "down":
			m.ctrl.NavigateSQLHistory(1)
			m.takeSQLInput()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.sql, cmd = m.sql.Update(msg)
	return m, cmd
}

func (m *Model) takeSQLInput() {
	if v, ok := m.state.TakeSQLInput(); ok {
		m.sql.SetValue(v)
		m.sql.CursorEnd()
	}
}

func (m Model) View() string {
	t := ui.Current()
	content := m.list.View()

	if m.mode == modeAdd || m.mode == modeEdit {
		title := "Add new item"
		if m.mode == modeEdit {
			title = "Edit item"
		}
		if m.errMsg != "" {
			title += " - " + t.Error.Render(m.errMsg)
		}
		content += "\n" + ui.PanelString(title+"\n"+m.ti.View())
	} else if m.errMsg != "" {
		content += "\n" + t.Error.Render(t.SymFail+" "+m.errMsg)
	}

	if m.state.ShowMain && m.state.ShowClearCompleted {
		content += "\n" + t.Muted.Render("c: clear completed")
	}

	if m.mode == modeConsole {
		content += "\n" + ui.PanelString(m.sql.View()+"\n"+traceView(m.state.Traces, consoleLines))
	}
	return ui.PanelString(content)
}

// traceView renders the newest n console entries, oldest at the top.
func traceView(traces []controller.Trace, n int) string {
	t := ui.Current()
	var lines []string
	for _, tr := range traces {
		switch {
		case tr.Err != nil:
			lines = append(lines, t.Error.Render(tr.Err.Error()))
		case tr.Result != nil:
			if tr.Result.Empty() {
				lines = append(lines, t.Muted.Render("empty result set"))
				continue
			}
			lines = append(lines, strings.Split(ResultTable(*tr.Result), "\n")...)
		case tr.Statement != "":
			lines = append(lines, t.Muted.Render(tr.Statement))
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// ResultTable renders console rows as a table.
func ResultTable(res sqlitestore.Result) string {
	rows := make([][]string, 0, len(res.Rows))
	for _, r := range res.Rows {
		cells := make([]string, 0, len(r))
		for _, v := range r {
			cells = append(cells, template.FormatValue(v))
		}
		rows = append(rows, cells)
	}
	return ui.Table(res.Columns, rows)
}

// Options tune Run.
type Options struct {
	PollInterval time.Duration
	Log          *slog.Logger
}

// Run shows the list until the user quits. Commits from other processes are
// picked up by polling the store.
func Run(ctx context.Context, store *sqlitestore.Store, history *controller.History, opts Options) error {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	state := viewstate.New()
	ctrl := controller.New(store, state, history, log)
	defer ctrl.Close()
	if err := ctrl.SetView(ctx, ""); err != nil {
		return err
	}

	p := tea.NewProgram(New(ctx, ctrl, state, store), tea.WithAltScreen(), tea.WithContext(ctx))

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if opts.PollInterval > 0 {
		go func() {
			if err := store.Watch(wctx, opts.PollInterval, func() { p.Send(ExternalChangeMsg{}) }); err != nil {
				log.Error("watch store", "err", err)
			}
		}()
	}

	_, err := p.Run()
	return err
}
