package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joacominatel/litequery/internal/format"
)

func (m Model) cellAt(row, col int) (string, bool) {
	if row < 0 || row >= len(m.cells) {
		return "", false
	}
	r := m.cells[row]
	if col < 0 || col >= len(r) {
		return "", false
	}
	return r[col], true
}

// record returns row as an ordered record of cast values.
func (m Model) record(row int) (format.Record, bool) {
	if m.result == nil {
		return nil, false
	}
	if m.result.Mode == format.ModeRecord {
		if row < 0 || row >= len(m.result.Records) {
			return nil, false
		}
		return m.result.Records[row], true
	}
	if row < 0 || row >= len(m.result.Rows) {
		return nil, false
	}
	values := m.result.Rows[row]
	rec := make(format.Record, 0, len(values))
	for i, v := range values {
		name := fmt.Sprintf("column%d", i+1)
		if i < len(m.header) {
			name = m.header[i]
		}
		rec = append(rec, format.Field{Name: name, Value: v})
	}
	return rec, true
}

// --- Copy ---

func (m *Model) doCopyCell() string {
	val, ok := m.cellAt(m.cursorY, m.cursorX)
	if !ok {
		return "Nothing to copy"
	}
	if err := clipboard.WriteAll(val); err != nil {
		return "Copy failed: " + err.Error()
	}
	return "Copied: " + truncateStatus(val, 40)
}

func (m *Model) doCopyRowJSON() string {
	rec, ok := m.record(m.cursorY)
	if !ok {
		return "No row to copy"
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return "Copy failed: " + err.Error()
	}
	if err := clipboard.WriteAll(string(b)); err != nil {
		return "Copy failed: " + err.Error()
	}
	return "Copied row as JSON"
}

// --- Filter ---

// doFilterByValue puts a query filtering on the selected cell into the
// editor. The column's source table comes from the resolved projection.
func (m *Model) doFilterByValue() tea.Cmd {
	val, ok := m.cellAt(m.cursorY, m.cursorX)
	if !ok {
		m.statusMessage = "Cannot filter: no cell selected"
		return nil
	}
	query, ok := m.filterQuery(m.cursorX, val)
	if !ok {
		m.statusMessage = "Cannot filter on a computed column"
		return nil
	}
	return func() tea.Msg {
		return SetEditorQueryMsg{Query: query}
	}
}

// filterQuery builds "SELECT * FROM table WHERE column = value;" for the
// projected column at index col.
func (m Model) filterQuery(col int, val string) (string, bool) {
	table, column := "", ""
	if m.result != nil && m.result.Shape != nil && col < len(m.result.Shape.Columns) {
		ref := m.result.Shape.Columns[col]
		if ref.Aggregate != "" {
			return "", false
		}
		table, column = ref.Table, ref.Column
	} else if col < len(m.header) {
		table, column = extractTableName(m.query), m.header[col]
	}
	if table == "" || column == "" {
		return "", false
	}

	condition := column + " IS NULL"
	if val != "null" {
		condition = fmt.Sprintf("%s = '%s'", column, strings.ReplaceAll(val, "'", "''"))
	}
	return fmt.Sprintf("SELECT * FROM %s WHERE %s;", table, condition), true
}

// --- Export ---

func (m Model) exportJSONCmd() tea.Cmd {
	if m.result == nil {
		return nil
	}
	records := make([]format.Record, 0, len(m.cells))
	for i := range m.cells {
		if rec, ok := m.record(i); ok {
			records = append(records, rec)
		}
	}
	return func() tea.Msg {
		filename := exportName("json")
		b, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		if err := os.WriteFile(filename, b, 0o644); err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		return StatusNotifyMsg{Message: fmt.Sprintf("Exported %d rows to %s", len(records), filename)}
	}
}

func (m Model) exportCSVCmd() tea.Cmd {
	if m.result == nil {
		return nil
	}
	header, cells := m.header, m.cells
	return func() tea.Msg {
		filename := exportName("csv")

		f, err := os.Create(filename)
		if err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		defer f.Close()

		w := csv.NewWriter(f)
		_ = w.Write(header)
		_ = w.WriteAll(cells)
		if err := w.Error(); err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		return StatusNotifyMsg{Message: fmt.Sprintf("Exported %d rows to %s", len(cells), filename)}
	}
}

// --- Helpers ---

func exportName(ext string) string {
	return fmt.Sprintf("litequery_export_%s.%s", time.Now().Format("20060102_150405"), ext)
}

func extractTableName(query string) string {
	tokens := strings.Fields(query)
	for i, tok := range tokens {
		switch strings.ToUpper(tok) {
		case "FROM", "INTO", "UPDATE":
			if i+1 < len(tokens) {
				if name := strings.TrimRight(tokens[i+1], ";,()"); name != "" {
					return name
				}
			}
		}
	}
	return ""
}

func truncateStatus(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
