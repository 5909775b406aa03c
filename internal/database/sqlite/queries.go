package sqlite

// SQL queries for SQLite metadata introspection.
const (
	queryListTables = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	queryTableInfo = `
		SELECT cid, name, type, "notnull", dflt_value, pk
		FROM pragma_table_info(?)
		ORDER BY cid`

	pragmaForeignKeys = `PRAGMA foreign_keys = ON`
)
