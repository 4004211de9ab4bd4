// Package database is the contract the local gateway uses to reach a real
// database. Engine packages (postgres, mysql, sqlite) implement DB; callers
// never import them directly except to construct one.
package database

import "context"

// DB is the central contract for gateway database operations.
type DB interface {
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// Driver names the engine.
	Driver() Driver

	// ExecScript runs a SQL text that may hold several statements.
	ExecScript(ctx context.Context, sql string) error

	// InspectSchema returns every base table and its columns in schema.
	// Engines without namespaces ignore schema.
	InspectSchema(ctx context.Context, schema string) (*Schema, error)
}

// Schema is an introspected namespace.
type Schema struct {
	Name   string
	Tables map[string]*TableInfo
}

// TableInfo describes one table. Columns are in ordinal order.
type TableInfo struct {
	Name    string
	Columns []*ColumnInfo
}

// ColumnInfo describes one column as the engine reports it.
type ColumnInfo struct {
	Name     string
	DataType string
	Nullable bool
	Default  *string
}

// AddColumn appends a column to table, creating the table entry on first use.
// Introspection queries return one row per column; this folds them.
func (s *Schema) AddColumn(table string, col *ColumnInfo) {
	if s.Tables == nil {
		s.Tables = make(map[string]*TableInfo)
	}
	t, ok := s.Tables[table]
	if !ok {
		t = &TableInfo{Name: table}
		s.Tables[table] = t
	}
	t.Columns = append(t.Columns, col)
}
