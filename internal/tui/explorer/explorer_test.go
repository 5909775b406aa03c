package explorer

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joacominatel/litequery/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestExpandRequestsColumnsOnce(t *testing.T) {
	m := New()
	m.SetSize(40, 20)
	m.SetFocused(true)
	m.SetTables("blog", []string{"posts", "users"})

	m, _ = m.Update(key("down"))
	table, ok := m.SelectedTable()
	require.True(t, ok)
	assert.Equal(t, "posts", table)

	m, cmd := m.Update(key("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, RequestColumnsMsg{Table: "posts"}, cmd())

	m.SetColumns("posts", []database.Column{
		{Name: "id", DataType: "INTEGER", IsPrimary: true},
		{Name: "content"},
	})
	assert.Len(t, m.items, 5)
	assert.Contains(t, m.View(), "pk")
	assert.Contains(t, m.View(), "blob")

	// Collapse and expand again: columns are already loaded.
	m, _ = m.Update(key("enter"))
	m, cmd = m.Update(key("enter"))
	assert.Nil(t, cmd)
	assert.Equal(t, []string{"posts"}, m.ExpandedTables())
}

func TestQuickQueries(t *testing.T) {
	m := New()
	m.SetFocused(true)
	m.SetTables("blog", []string{"order items"})
	m, _ = m.Update(key("down"))

	_, cmd := m.Update(key("s"))
	require.NotNil(t, cmd)
	assert.Equal(t, QuickQueryMsg{Query: `SELECT * FROM "order items" LIMIT 100;`}, cmd())

	_, cmd = m.Update(key("d"))
	require.NotNil(t, cmd)
	assert.Equal(t, QuickQueryMsg{Query: `SELECT count(*) FROM "order items";`}, cmd())
}

func TestSetTablesKeepsExpansion(t *testing.T) {
	m := New()
	m.SetTables("blog", []string{"users"})
	m.table("users").Expanded = true

	m.SetTables("blog", []string{"users", "tags"})
	assert.Equal(t, []string{"users"}, m.ExpandedTables())
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "users", quoteIdent("users"))
	assert.Equal(t, "t_1", quoteIdent("t_1"))
	assert.Equal(t, `"1st"`, quoteIdent("1st"))
	assert.Equal(t, `"a""b"`, quoteIdent(`a"b`))
}
