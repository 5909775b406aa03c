package results

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/litequery/internal/app"
	"github.com/joacominatel/litequery/internal/database"
	"github.com/joacominatel/litequery/internal/format"
	"github.com/joacominatel/litequery/internal/tui/theme"
)

const maxColWidth = 40

// Model is the query results component.
type Model struct {
	result  *app.Result
	query   string
	err     error
	cells   [][]string // rendered rows, same order as the result
	header  []string
	width   int
	height  int
	focused bool
	loading bool

	cursorY   int
	cursorX   int
	colWidths []int

	statusMessage string
}

// New creates a new results model.
func New() Model {
	return Model{}
}

// SetSize updates the component dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused sets the focus state.
func (m *Model) SetFocused(f bool) {
	m.focused = f
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(l bool) {
	m.loading = l
}

// SetResult displays the result of query.
func (m *Model) SetResult(query string, r *app.Result) {
	m.result = r
	m.query = query
	m.err = nil
	m.cursorY, m.cursorX = 0, 0
	m.loading = false
	m.header, m.cells = Table(r)
	m.calculateColumnWidths()
}

// SetError displays a failed query.
func (m *Model) SetError(err error) {
	m.err = err
	m.result = nil
	m.cells, m.header = nil, nil
	m.cursorY, m.cursorX = 0, 0
	m.loading = false
}

// Table flattens a result into a header and rendered cell rows. Records are
// shown in key order, arrays in column order.
func Table(r *app.Result) ([]string, [][]string) {
	if r == nil {
		return nil, nil
	}
	if r.Mode == format.ModeRecord {
		var header []string
		rows := make([][]string, len(r.Records))
		for i, rec := range r.Records {
			if i == 0 {
				header = rec.Keys()
			}
			row := make([]string, len(rec))
			for j, f := range rec {
				row[j] = Cell(f.Value)
			}
			rows[i] = row
		}
		if header == nil {
			header = r.Columns
		}
		return header, rows
	}

	rows := make([][]string, len(r.Rows))
	for i, raw := range r.Rows {
		row := make([]string, len(raw))
		for j, v := range raw {
			row[j] = Cell(v)
		}
		rows[i] = row
	}
	return r.Columns, rows
}

// Cell renders one value for display. NULL renders as "null".
func Cell(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return v
	case []byte:
		return `x'` + hex.EncodeToString(v) + `'`
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

func (m *Model) calculateColumnWidths() {
	if len(m.header) == 0 {
		m.colWidths = nil
		return
	}

	m.colWidths = make([]int, len(m.header))
	for i, col := range m.header {
		m.colWidths[i] = lipgloss.Width(col)
	}
	for _, row := range m.cells {
		for i, cell := range row {
			if i < len(m.colWidths) {
				m.colWidths[i] = max(m.colWidths[i], lipgloss.Width(firstLine(cell)))
			}
		}
	}
	for i := range m.colWidths {
		m.colWidths[i] = min(max(m.colWidths[i], 1), maxColWidth)
	}
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the results pane.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	msgKey, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	var cmd tea.Cmd
	last := len(m.cells) - 1
	switch msgKey.String() {
	case "up", "k":
		if m.cursorY > 0 {
			m.cursorY--
		}
	case "down", "j":
		if m.cursorY < last {
			m.cursorY++
		}
	case "left", "h":
		if m.cursorX > 0 {
			m.cursorX--
		}
	case "right", "l":
		if m.cursorX < len(m.header)-1 {
			m.cursorX++
		}
	case "pgup":
		m.cursorY = max(0, m.cursorY-m.height/2)
	case "pgdown":
		m.cursorY = max(0, min(last, m.cursorY+m.height/2))
	case "home", "g":
		m.cursorY = 0
	case "end", "G":
		m.cursorY = max(0, last)
	case "c":
		cmd = m.notify(m.doCopyCell())
	case "y":
		cmd = m.notify(m.doCopyRowJSON())
	case "w":
		cmd = m.doFilterByValue()
	case "e":
		cmd = m.exportJSONCmd()
	case "E":
		cmd = m.exportCSVCmd()
	}
	return m, cmd
}

func (m *Model) notify(message string) tea.Cmd {
	m.statusMessage = message
	return func() tea.Msg {
		return StatusNotifyMsg{Message: message}
	}
}

// View renders the results pane.
func (m Model) View() string {
	title := theme.StyleTitle.Render("Results")

	if m.loading {
		return title + "\n" + theme.StyleMuted.Render("  Running query...")
	}
	if m.err != nil {
		return title + "\n" + renderError(m.err)
	}
	if m.result == nil {
		return title + "\n" + theme.StyleMuted.Render("  Run a query to see results")
	}

	stats := fmt.Sprintf("%d row(s) │ %s │ %s",
		m.result.Len(),
		m.result.Duration.Round(time.Microsecond),
		m.result.Mode,
	)
	if s := m.result.Shape; s != nil {
		stats += " │ " + s.Shape.String()
	}
	header := title + "  " + theme.StyleMuted.Render(stats)

	if len(m.header) == 0 {
		return header + "\n" + theme.StyleSuccess.Render(
			fmt.Sprintf("  OK, %d row(s) affected", m.result.RowsAffected))
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(m.renderRow(m.header, true, -1))
	b.WriteString("\n")
	b.WriteString(m.renderSeparator())

	visibleRows := max(1, m.height-4)
	offset := 0
	if m.cursorY >= visibleRows {
		offset = m.cursorY - visibleRows + 1
	}
	for i := offset; i < len(m.cells) && i < offset+visibleRows; i++ {
		b.WriteString("\n")
		col := -1
		if m.focused && i == m.cursorY {
			col = m.cursorX
		}
		b.WriteString(m.renderRow(m.cells[i], false, col))
	}
	return b.String()
}

// renderError shows the error kind as a badge when the error is typed.
func renderError(err error) string {
	kind := database.KindOf(err)
	if kind == database.KindUnknown {
		return theme.StyleError.Render("  Error: " + err.Error())
	}
	return "  " + theme.StyleErrorKind.Render(kind.String()) + "\n  " + theme.StyleError.Render(err.Error())
}

func (m Model) renderRow(cells []string, isHeader bool, selectedCol int) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		width := 10
		if i < len(m.colWidths) {
			width = m.colWidths[i]
		}

		display := fit(firstLine(cell), width)

		switch {
		case isHeader:
			parts[i] = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorPrimary).Render(display)
		case i == selectedCol:
			parts[i] = theme.StyleSelected.Reverse(true).Render(display)
		case cell == "null":
			parts[i] = theme.StyleNull.Render(display)
		default:
			parts[i] = display
		}
	}
	return "  " + strings.Join(parts, " │ ")
}

func (m Model) renderSeparator() string {
	parts := make([]string, len(m.colWidths))
	for i, w := range m.colWidths {
		parts[i] = strings.Repeat("─", max(w, 1))
	}
	return "  " + lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(strings.Join(parts, "─┼─"))
}

// fit truncates s with an ellipsis or pads it to exactly width cells.
func fit(s string, width int) string {
	if lipgloss.Width(s) > width {
		runes := []rune(s)
		for len(runes) > 0 && lipgloss.Width(string(runes)) >= width {
			runes = runes[:len(runes)-1]
		}
		s = string(runes) + "…"
	}
	if pad := width - lipgloss.Width(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

// firstLine keeps multi-line values on one table row.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + "↵"
	}
	return s
}
