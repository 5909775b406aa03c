package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/litequery/internal/app"
	"github.com/joacominatel/litequery/internal/database"
	"github.com/joacominatel/litequery/internal/format"
	"github.com/joacominatel/litequery/internal/query"
	"github.com/joacominatel/litequery/internal/tui/editor"
	"github.com/joacominatel/litequery/internal/tui/explorer"
	"github.com/joacominatel/litequery/internal/tui/results"
	"github.com/joacominatel/litequery/internal/tui/statusbar"
	"github.com/joacominatel/litequery/internal/tui/theme"
)

const (
	queryTimeout  = 30 * time.Second
	schemaTimeout = 10 * time.Second
)

// Pane identifies a focusable area.
type Pane int

const (
	PaneExplorer Pane = iota
	PaneEditor
	PaneResults
)

func (p Pane) String() string {
	switch p {
	case PaneExplorer:
		return "explorer"
	case PaneEditor:
		return "editor"
	case PaneResults:
		return "results"
	default:
		return "unknown"
	}
}

type keyMap struct {
	Quit         key.Binding
	Help         key.Binding
	NextPane     key.Binding
	PrevPane     key.Binding
	ToggleFormat key.Binding
	Refresh      key.Binding
}

var keys = keyMap{
	Quit:         key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
	NextPane:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
	PrevPane:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous pane")),
	ToggleFormat: key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "toggle array/record")),
	Refresh:      key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload tables")),
}

type (
	tablesLoadedMsg struct {
		tables []string
		err    error
	}
	columnsLoadedMsg struct {
		table   string
		columns []database.Column
		err     error
	}
	queryExecutedMsg struct {
		query  string
		result *app.Result
		err    error
	}
)

// Model is the top-level bubbletea model of the REPL.
type Model struct {
	session    *app.Session
	engine     string
	explorer   explorer.Model
	editor     editor.Model
	results    results.Model
	statusbar  statusbar.Model
	activePane Pane
	width      int
	height     int
	showHelp   bool
	lastQuery  string
	running    bool
}

// NewModel creates the REPL model over an open session. engine names the
// backend in the status bar.
func NewModel(session *app.Session, engine string) Model {
	m := Model{
		session:   session,
		engine:    engine,
		explorer:  explorer.New(),
		editor:    editor.New(),
		results:   results.New(),
		statusbar: statusbar.New(),
	}
	m.statusbar.SetDatabase(true, engine, session.Name())
	m.statusbar.SetFormat(session.ReturnFormat().String())
	m.explorer.SetLoading(true)
	m.setFocus(PaneEditor)
	return m
}

// Init loads the table list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.editor.Init(), m.loadTablesCmd())
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)

	case explorer.RequestColumnsMsg:
		return m, m.loadColumnsCmd(msg.Table)

	case explorer.QuickQueryMsg:
		m.editor.SetQuery(msg.Query)
		return m.run(msg.Query)

	case editor.ExecuteQueryMsg:
		return m.run(msg.Query)

	case results.SetEditorQueryMsg:
		m.editor.SetQuery(msg.Query)
		m.setFocus(PaneEditor)
		return m, nil

	case results.StatusNotifyMsg:
		m.statusbar.SetMessage(msg.Message)
		return m, nil

	case tablesLoadedMsg:
		if msg.err != nil {
			m.explorer.SetLoading(false)
			m.statusbar.SetMessage("Failed to load tables: " + msg.err.Error())
			return m, nil
		}
		m.explorer.SetTables(m.session.Name(), msg.tables)
		m.editor.SetTableNames(msg.tables)
		cmds := make([]tea.Cmd, 0, len(msg.tables))
		for _, t := range msg.tables {
			cmds = append(cmds, m.loadColumnsCmd(t))
		}
		return m, tea.Sequence(cmds...)

	case columnsLoadedMsg:
		if msg.err != nil {
			m.statusbar.SetMessage("Failed to load columns: " + msg.err.Error())
			return m, nil
		}
		m.explorer.SetColumns(msg.table, msg.columns)
		names := make([]string, len(msg.columns))
		for i, c := range msg.columns {
			names[i] = c.Name
		}
		m.editor.SetColumnNames(msg.table, names)
		return m, nil

	case queryExecutedMsg:
		m.running = false
		m.statusbar.SetMessage("")
		if msg.err != nil {
			m.results.SetError(msg.err)
			return m, nil
		}
		m.results.SetResult(msg.query, msg.result)
		if msg.result.Shape == nil {
			// DDL and DML may change the schema.
			return m, m.loadTablesCmd()
		}
		return m, nil
	}

	return m.updateComponents(msg)
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		return m, tea.Quit
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Help) && m.activePane != PaneEditor:
		m.showHelp = true
		return m, nil

	case msg.String() == "q" && m.activePane != PaneEditor:
		return m, tea.Quit

	case key.Matches(msg, keys.ToggleFormat):
		return m.toggleFormat()

	case key.Matches(msg, keys.Refresh):
		m.explorer.SetLoading(true)
		return m, m.loadTablesCmd()

	case key.Matches(msg, keys.NextPane):
		if m.activePane == PaneEditor && m.editor.CompletionActive() {
			return m.updateComponents(msg)
		}
		m.setFocus((m.activePane + 1) % 3)
		return m, nil

	case key.Matches(msg, keys.PrevPane):
		m.setFocus((m.activePane + 2) % 3)
		return m, nil
	}

	return m.updateComponents(msg)
}

// toggleFormat switches between array and record output. The last query is
// re-run when it was a SELECT.
func (m Model) toggleFormat() (tea.Model, tea.Cmd) {
	next := format.ModeRecord
	if m.session.ReturnFormat() == format.ModeRecord {
		next = format.ModeArray
	}
	m.session.SetReturnFormat(next)
	m.statusbar.SetFormat(next.String())

	if m.lastQuery != "" && query.IsSelect(m.lastQuery) {
		return m.run(m.lastQuery)
	}
	return m, nil
}

func (m Model) run(queryText string) (tea.Model, tea.Cmd) {
	if m.running {
		m.statusbar.SetMessage("A query is already running")
		return m, nil
	}
	m.running = true
	m.lastQuery = queryText
	m.results.SetLoading(true)
	m.statusbar.SetMessage("Running query...")
	return m, m.executeQueryCmd(queryText)
}

func (m Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.activePane {
	case PaneExplorer:
		m.explorer, cmd = m.explorer.Update(msg)
	case PaneEditor:
		m.editor, cmd = m.editor.Update(msg)
	case PaneResults:
		m.results, cmd = m.results.Update(msg)
	}
	return m, cmd
}

func (m *Model) setFocus(pane Pane) {
	m.activePane = pane
	m.explorer.SetFocused(pane == PaneExplorer)
	m.editor.SetFocused(pane == PaneEditor)
	m.results.SetFocused(pane == PaneResults)
	m.statusbar.SetActivePane(pane.String())
}

type dimensions struct {
	explorerWidth int
	rightWidth    int
	availHeight   int
	editorHeight  int
	resultsHeight int
}

func (m Model) dimensions() dimensions {
	var d dimensions
	d.explorerWidth = min(max(m.width/4, 22), 35)
	d.rightWidth = m.width - d.explorerWidth - 1
	d.availHeight = m.height - 1 - 2
	d.editorHeight = max(d.availHeight*35/100, 5)
	d.resultsHeight = d.availHeight - d.editorHeight - 2
	return d
}

func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	d := m.dimensions()
	m.explorer.SetSize(d.explorerWidth, d.availHeight)
	m.editor.SetSize(d.rightWidth, d.editorHeight)
	m.results.SetSize(d.rightWidth, d.resultsHeight)
	m.statusbar.SetWidth(m.width)
}

// Async commands. Both engines hold a single connection, so a schema read
// that overlaps a query waits for it.

func (m Model) loadTablesCmd() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
		defer cancel()
		tables, err := session.Tables(ctx)
		return tablesLoadedMsg{tables: tables, err: err}
	}
}

func (m Model) loadColumnsCmd(table string) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
		defer cancel()
		columns, err := session.Columns(ctx, table)
		return columnsLoadedMsg{table: table, columns: columns, err: err}
	}
}

func (m Model) executeQueryCmd(queryText string) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		result, err := session.Execute(ctx, queryText)
		return queryExecutedMsg{query: queryText, result: result, err: err}
	}
}

// View renders the entire application.
func (m Model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}
	if m.width == 0 {
		return ""
	}

	d := m.dimensions()
	border := func(p Pane) lipgloss.Style {
		if m.activePane == p {
			return theme.StyleActiveBorder
		}
		return theme.StyleBorder
	}

	explorerView := border(PaneExplorer).
		Width(d.explorerWidth - 2).
		Height(d.availHeight).
		Render(m.explorer.View())
	editorView := border(PaneEditor).
		Width(d.rightWidth - 2).
		Height(d.editorHeight).
		Render(m.editor.View())
	resultsView := border(PaneResults).
		Width(d.rightWidth - 2).
		Height(d.resultsHeight).
		Render(m.results.View())

	mainArea := lipgloss.JoinHorizontal(lipgloss.Top,
		explorerView,
		lipgloss.JoinVertical(lipgloss.Left, editorView, resultsView),
	)
	return lipgloss.JoinVertical(lipgloss.Left, mainArea, m.statusbar.View())
}

func (m Model) viewHelp() string {
	sectionStyle := lipgloss.NewStyle().
		Foreground(theme.ColorHighlight).
		Bold(true)
	keyStyle := lipgloss.NewStyle().
		Width(16).
		Foreground(lipgloss.Color("252"))

	row := func(k, desc string) string {
		return "  " + keyStyle.Render(k) + theme.StyleMuted.Render(desc)
	}
	binding := func(b key.Binding) string {
		h := b.Help()
		return row(h.Key, h.Desc)
	}

	help := lipgloss.JoinVertical(lipgloss.Left,
		theme.StyleTitle.Render("litequery - Keyboard Shortcuts"),
		"",
		sectionStyle.Render("Global"),
		binding(keys.Quit),
		row("q", "quit (outside the editor)"),
		binding(keys.NextPane),
		binding(keys.PrevPane),
		binding(keys.ToggleFormat),
		binding(keys.Refresh),
		binding(keys.Help),
		"",
		sectionStyle.Render("Tables"),
		row("↑/k ↓/j", "move"),
		row("enter/→/l", "expand table"),
		row("←/h", "collapse"),
		row("s", "SELECT * ... LIMIT 100"),
		row("d", "count rows"),
		"",
		sectionStyle.Render("Query"),
		row("ctrl+e / f5", "run (statements end with ;)"),
		row("ctrl+p ctrl+n", "history"),
		row("ctrl+k", "clear"),
		row("ctrl+l", "uppercase keywords"),
		row("tab", "complete table or table.column"),
		"",
		sectionStyle.Render("Results"),
		row("↑↓←→ / hjkl", "move cursor"),
		row("pgup pgdn g G", "page, first, last"),
		row("c", "copy cell"),
		row("y", "copy row as JSON"),
		row("w", "filter by cell value"),
		row("e / E", "export JSON / CSV"),
		"",
		theme.StyleMuted.Render("Press any key to close"),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, help)
}
