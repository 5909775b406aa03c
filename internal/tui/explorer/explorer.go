package explorer

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/litequery/internal/database"
	"github.com/joacominatel/litequery/internal/tui/theme"
)

// NodeKind identifies the type of a tree node.
type NodeKind int

const (
	NodeDatabase NodeKind = iota
	NodeTable
	NodeColumn
)

// TreeNode represents a single node in the schema tree.
type TreeNode struct {
	Kind     NodeKind
	Name     string
	Children []*TreeNode
	Expanded bool
	Loaded   bool // whether children have been fetched

	Table    string // parent table name (for columns)
	DataType string // declared column type
	Primary  bool
}

type flatItem struct {
	node  *TreeNode
	depth int
}

// QuickQueryMsg asks the app to put Query in the editor and run it.
type QuickQueryMsg struct {
	Query string
}

// RequestColumnsMsg is sent when a table is expanded for the first time.
type RequestColumnsMsg struct {
	Table string
}

// Model is the explorer (schema tree) component.
type Model struct {
	tree    *TreeNode
	items   []flatItem
	cursor  int
	width   int
	height  int
	focused bool
	loading bool
}

// New creates a new explorer model.
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

// SetTables rebuilds the tree from the database's table list. Tables that
// were expanded before stay expanded but their columns are refetched.
func (m *Model) SetTables(dbName string, tables []string) {
	expanded := make(map[string]bool)
	if m.tree != nil {
		for _, t := range m.tree.Children {
			expanded[t.Name] = t.Expanded
		}
	}

	root := &TreeNode{
		Kind:     NodeDatabase,
		Name:     dbName,
		Expanded: true,
		Loaded:   true,
	}
	for _, t := range tables {
		root.Children = append(root.Children, &TreeNode{
			Kind:     NodeTable,
			Name:     t,
			Expanded: expanded[t],
		})
	}

	m.tree = root
	m.loading = false
	m.flatten()
}

// ExpandedTables returns the tables whose columns are on screen.
func (m Model) ExpandedTables() []string {
	if m.tree == nil {
		return nil
	}
	var names []string
	for _, t := range m.tree.Children {
		if t.Expanded {
			names = append(names, t.Name)
		}
	}
	return names
}

// SetColumns adds column nodes to a table node.
func (m *Model) SetColumns(table string, columns []database.Column) {
	node := m.table(table)
	if node == nil {
		return
	}
	node.Children = nil
	for _, col := range columns {
		node.Children = append(node.Children, &TreeNode{
			Kind:     NodeColumn,
			Name:     col.Name,
			Table:    table,
			DataType: col.DataType,
			Primary:  col.IsPrimary,
		})
	}
	node.Loaded = true
	m.flatten()
}

func (m *Model) table(name string) *TreeNode {
	if m.tree == nil {
		return nil
	}
	for _, t := range m.tree.Children {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// SelectedTable returns the table under the cursor, if any.
func (m Model) SelectedTable() (string, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return "", false
	}
	node := m.items[m.cursor].node
	switch node.Kind {
	case NodeTable:
		return node.Name, true
	case NodeColumn:
		return node.Table, true
	}
	return "", false
}

func (m *Model) flatten() {
	m.items = nil
	if m.tree != nil {
		m.flattenNode(m.tree, 0)
	}
	if m.cursor >= len(m.items) {
		m.cursor = max(0, len(m.items)-1)
	}
}

func (m *Model) flattenNode(node *TreeNode, depth int) {
	m.items = append(m.items, flatItem{node: node, depth: depth})
	if node.Expanded {
		for _, child := range node.Children {
			m.flattenNode(child, depth+1)
		}
	}
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the explorer.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "enter", "right", "l":
			return m, m.toggleExpand()
		case "left", "h":
			m.collapse()
		case "s":
			if table, ok := m.SelectedTable(); ok {
				return m, quickQuery(fmt.Sprintf("SELECT * FROM %s LIMIT 100;", quoteIdent(table)))
			}
		case "d":
			if table, ok := m.SelectedTable(); ok {
				return m, quickQuery(fmt.Sprintf("SELECT count(*) FROM %s;", quoteIdent(table)))
			}
		}
	}

	return m, nil
}

func quickQuery(q string) tea.Cmd {
	return func() tea.Msg {
		return QuickQueryMsg{Query: q}
	}
}

// quoteIdent quotes a table name unless it is a plain identifier.
func quoteIdent(name string) string {
	for i, r := range name {
		ok := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9')
		if !ok {
			return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
		}
	}
	return name
}

func (m *Model) toggleExpand() tea.Cmd {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return nil
	}
	node := m.items[m.cursor].node
	if node.Kind == NodeColumn {
		return nil
	}

	node.Expanded = !node.Expanded
	m.flatten()

	if node.Expanded && node.Kind == NodeTable && !node.Loaded {
		table := node.Name
		return func() tea.Msg {
			return RequestColumnsMsg{Table: table}
		}
	}
	return nil
}

func (m *Model) collapse() {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return
	}
	node := m.items[m.cursor].node
	if node.Expanded {
		node.Expanded = false
		m.flatten()
	}
}

// View renders the explorer.
func (m Model) View() string {
	title := theme.StyleTitle.Render("Tables")

	if m.loading {
		return title + "\n" + theme.StyleMuted.Render("  Loading...")
	}
	if m.tree == nil {
		return title + "\n" + theme.StyleMuted.Render("  No database loaded")
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")

	visibleHeight := max(1, m.height-2)
	scrollOffset := 0
	if m.cursor >= visibleHeight {
		scrollOffset = m.cursor - visibleHeight + 1
	}

	for i := scrollOffset; i < len(m.items) && i < scrollOffset+visibleHeight; i++ {
		b.WriteString(m.renderNode(m.items[i], i == m.cursor))
		if i < scrollOffset+visibleHeight-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderNode(item flatItem, selected bool) string {
	node := item.node
	indent := strings.Repeat("  ", item.depth)

	icon := "  "
	if node.Kind != NodeColumn {
		icon = "▶ "
		if node.Expanded {
			icon = "▼ "
		}
	}

	name := node.Name
	if node.Kind == NodeColumn {
		name = columnLabel(node)
	}

	line := indent + icon + name
	if m.width > 4 && lipgloss.Width(line) > m.width-2 {
		line = truncate(line, m.width-4) + ".."
	}

	if selected {
		return theme.StyleSelected.Render(line)
	}
	return line
}

// columnLabel renders "name TYPE" with a key marker for primary keys. An
// untyped column shows the affinity it falls back to.
func columnLabel(node *TreeNode) string {
	typ := node.DataType
	if typ == "" {
		typ = strings.ToLower(database.AffinityOf(typ).String())
	}
	label := node.Name + " " + theme.StyleMuted.Render(typ)
	if node.Primary {
		label += " " + theme.StyleSelected.Render("pk")
	}
	return label
}

func truncate(s string, width int) string {
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}
