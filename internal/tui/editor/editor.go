package editor

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/litequery/internal/tui/theme"
)

// ExecuteQueryMsg is sent when the user triggers query execution.
type ExecuteQueryMsg struct {
	Query string
}

const maxHistory = 100

var sqlKeywords = map[string]bool{
	"select": true, "from": true, "where": true, "and": true, "or": true,
	"insert": true, "into": true, "update": true, "delete": true,
	"create": true, "drop": true, "alter": true, "table": true, "add": true,
	"column": true, "index": true, "join": true, "inner": true,
	"left": true, "right": true, "cross": true, "on": true,
	"not": true, "in": true, "is": true, "null": true, "like": true, "glob": true,
	"order": true, "by": true, "limit": true, "offset": true, "as": true,
	"distinct": true, "count": true, "sum": true, "avg": true, "min": true,
	"max": true, "total": true, "between": true, "exists": true, "case": true,
	"when": true, "then": true, "else": true, "end": true, "values": true,
	"set": true, "begin": true, "commit": true, "rollback": true,
	"asc": true, "desc": true, "primary": true, "key": true, "references": true,
	"default": true, "true": true, "false": true, "returning": true, "pragma": true,
}

// Model is the SQL editor of the REPL.
type Model struct {
	textarea textarea.Model
	width    int
	height   int
	focused  bool

	// Completion
	tableNames  []string
	columns     map[string][]string // table -> column names
	completing  bool
	completions []string
	compIndex   int

	// History, newest last. histPos == len(history) means "editing a new query".
	history []string
	histPos int
	draft   string
}

// New creates a new editor model.
func New() Model {
	ta := textarea.New()
	ta.Placeholder = "SELECT ... ;  (statements must end with a semicolon)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.Prompt = "│ "
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle()
	ta.BlurredStyle.Base = lipgloss.NewStyle()
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(theme.ColorMuted)
	ta.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(theme.ColorMuted)
	ta.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(theme.ColorPrimary)
	ta.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(theme.ColorBorder)

	return Model{
		textarea: ta,
		columns:  make(map[string][]string),
	}
}

// SetSize updates the component dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.textarea.SetWidth(w - 2)
	m.textarea.SetHeight(h - 2)
}

// SetFocused sets the focus state.
func (m *Model) SetFocused(f bool) {
	m.focused = f
	if f {
		m.textarea.Focus()
	} else {
		m.textarea.Blur()
	}
}

// Value returns the current editor content.
func (m Model) Value() string {
	return m.textarea.Value()
}

// SetQuery replaces the editor content.
func (m *Model) SetQuery(query string) {
	m.textarea.SetValue(query)
}

// SetTableNames sets the table names offered by completion.
func (m *Model) SetTableNames(names []string) {
	m.tableNames = names
}

// SetColumnNames sets the column names offered after "table.".
func (m *Model) SetColumnNames(table string, names []string) {
	m.columns[strings.ToLower(table)] = names
}

// Clear empties the editor.
func (m *Model) Clear() {
	m.textarea.Reset()
	m.cancelCompletion()
}

// History returns submitted queries, oldest first.
func (m Model) History() []string {
	return m.history
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages for the editor.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		key := msg.String()

		switch key {
		case "ctrl+e", "f5":
			query := strings.TrimSpace(m.textarea.Value())
			if query == "" {
				return m, nil
			}
			m.cancelCompletion()
			m.remember(query)
			return m, func() tea.Msg {
				return ExecuteQueryMsg{Query: query}
			}

		case "ctrl+k":
			m.Clear()
			return m, nil

		case "ctrl+l":
			m.textarea.SetValue(FormatKeywords(m.textarea.Value()))
			return m, nil

		case "ctrl+p":
			m.recall(-1)
			return m, nil

		case "ctrl+n":
			m.recall(1)
			return m, nil

		case "tab":
			if m.tryCompletion() {
				return m, nil
			}

		case "esc":
			if m.completing {
				m.cancelCompletion()
				return m, nil
			}
		}

		if m.completing && key != "tab" && key != "esc" {
			m.cancelCompletion()
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// CompletionActive reports whether Tab is cycling completion candidates.
func (m Model) CompletionActive() bool {
	return m.completing
}

func (m *Model) remember(query string) {
	if n := len(m.history); n == 0 || m.history[n-1] != query {
		m.history = append(m.history, query)
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}
	}
	m.histPos = len(m.history)
	m.draft = ""
}

// recall moves through history; stepping past the newest entry restores
// the query that was being typed.
func (m *Model) recall(step int) {
	if len(m.history) == 0 {
		return
	}
	if m.histPos == len(m.history) {
		m.draft = m.textarea.Value()
	}
	pos := m.histPos + step
	if pos < 0 || pos > len(m.history) {
		return
	}
	m.histPos = pos
	if pos == len(m.history) {
		m.textarea.SetValue(m.draft)
		return
	}
	m.textarea.SetValue(m.history[pos])
}

// FormatKeywords uppercases SQL keywords outside string literals and quoted
// identifiers.
func FormatKeywords(val string) string {
	if val == "" {
		return val
	}

	var result, word strings.Builder
	flush := func() {
		if word.Len() == 0 {
			return
		}
		w := word.String()
		if sqlKeywords[strings.ToLower(w)] {
			w = strings.ToUpper(w)
		}
		result.WriteString(w)
		word.Reset()
	}

	var quote rune
	for _, ch := range val {
		switch {
		case quote != 0:
			result.WriteRune(ch)
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"' || ch == '`':
			flush()
			quote = ch
			result.WriteRune(ch)
		case unicode.IsLetter(ch) || ch == '_' || (word.Len() > 0 && unicode.IsDigit(ch)):
			word.WriteRune(ch)
		default:
			flush()
			result.WriteRune(ch)
		}
	}
	flush()
	return result.String()
}

// tryCompletion completes the word before the cursor. "t.pre" completes
// columns of t; anything else completes table names after FROM, JOIN,
// INTO or TABLE.
func (m *Model) tryCompletion() bool {
	if m.completing && len(m.completions) > 0 {
		m.compIndex = (m.compIndex + 1) % len(m.completions)
		m.applyCompletion()
		return true
	}

	val := m.textarea.Value()
	partial := lastWord(val)
	if partial == "" {
		return false
	}

	matches := Candidates(val, partial, m.tableNames, m.columns)
	if len(matches) == 0 {
		return false
	}

	m.completing = true
	m.completions = matches
	m.compIndex = 0
	m.applyCompletion()
	return true
}

// Candidates returns the completions for partial, the last word of text.
func Candidates(text, partial string, tables []string, columns map[string][]string) []string {
	var matches []string
	if qualifier, prefix, ok := strings.Cut(partial, "."); ok {
		lower := strings.ToLower(prefix)
		for _, col := range columns[strings.ToLower(qualifier)] {
			if strings.HasPrefix(strings.ToLower(col), lower) {
				matches = append(matches, qualifier+"."+col)
			}
		}
		return matches
	}

	upper := strings.ToUpper(text)
	if !strings.Contains(upper, "FROM") && !strings.Contains(upper, "JOIN") &&
		!strings.Contains(upper, "INTO") && !strings.Contains(upper, "TABLE") {
		return nil
	}
	lower := strings.ToLower(partial)
	for _, name := range tables {
		if strings.HasPrefix(strings.ToLower(name), lower) {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)
	return matches
}

func (m *Model) applyCompletion() {
	if len(m.completions) == 0 {
		return
	}
	val := m.textarea.Value()
	base := strings.TrimSuffix(val, lastWord(val))
	m.textarea.SetValue(base + m.completions[m.compIndex])
}

func (m *Model) cancelCompletion() {
	m.completing = false
	m.completions = nil
	m.compIndex = 0
}

func lastWord(s string) string {
	s = strings.TrimRight(s, " \t\n\r")
	i := len(s) - 1
	for i >= 0 && isIdentChar(rune(s[i])) {
		i--
	}
	return s[i+1:]
}

func isIdentChar(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') || c == '_' || c == '.'
}

// View renders the editor.
func (m Model) View() string {
	title := theme.StyleTitle.Render("Query")
	if n := len(m.history); n > 0 {
		title += theme.StyleMuted.Render(" history " + strconv.Itoa(m.histPos+1) + "/" + strconv.Itoa(n+1))
	}

	var hint string
	if m.completing && len(m.completions) > 1 {
		parts := make([]string, 0, len(m.completions))
		for i, c := range m.completions {
			if i == m.compIndex {
				parts = append(parts, theme.StyleSelected.Render(c))
			} else {
				parts = append(parts, theme.StyleMuted.Render(c))
			}
		}
		hint = "\n" + lipgloss.NewStyle().Padding(0, 1).Render(
			theme.StyleMuted.Render("Tab: ")+strings.Join(parts, " │ "),
		)
	}

	return title + "\n" + m.textarea.View() + hint
}
