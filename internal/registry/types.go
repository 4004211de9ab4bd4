// Package registry loads the column registry: the single YAML document that
// is authoritative for the relational schema. Generated code and the live
// database are derived from it and never the other way round.
//
// A loaded *ColumnRegistry is read-only. Table and column order is the order
// declared in the file and is significant for generated output.
package registry

// ColumnRegistry is the root of a loaded registry file.
type ColumnRegistry struct {
	Version string
	Schema  string

	// Optional metadata used by the generators and the lint gate.
	TotalTables      int
	UniversalJoinKey string
	SpineTable       string
	TypeMap          map[string]TypeMapping

	// Spokes group tables into output modules, in declared order. Empty when
	// the registry declares none.
	Spokes []*Spoke

	// Tables in declared order.
	Tables []*TableSpec

	// Source is the path the registry was read from, for messages only.
	Source string

	byName map[string]*TableSpec
}

// Table looks a table up by name.
func (r *ColumnRegistry) Table(name string) (*TableSpec, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// TableNames returns table names in declared order.
func (r *ColumnRegistry) TableNames() []string {
	names := make([]string, len(r.Tables))
	for i, t := range r.Tables {
		names[i] = t.Name
	}
	return names
}

// ColumnCount is the number of columns across all tables.
func (r *ColumnRegistry) ColumnCount() int {
	n := 0
	for _, t := range r.Tables {
		n += len(t.Columns)
	}
	return n
}

// TypeMapping overrides the TypeScript and Zod rendering of a base SQL type.
type TypeMapping struct {
	TS  string `yaml:"ts"`
	Zod string `yaml:"zod"`
}

// Spoke is a named group of tables rendered into one types/schema pair.
type Spoke struct {
	ID        string
	Name      string
	Purpose   string
	Canonical string
	Error     string
	Tables    []string
}

// WriteRules controls which Zod write schemas are generated for a table.
type WriteRules struct {
	Insert bool `yaml:"insert"`
	Update bool `yaml:"update"`
}

// TableSpec describes one table.
type TableSpec struct {
	Name             string
	Spoke            string
	LeafType         string
	Description      string
	PK               string
	FK               []string // "table.column" references
	WriteRules       *WriteRules
	UpdatableColumns []string
	Columns          []ColumnSpec

	colIndex map[string]int
}

// Column looks a column up by name.
func (t *TableSpec) Column(name string) (ColumnSpec, bool) {
	i, ok := t.colIndex[name]
	if !ok {
		return ColumnSpec{}, false
	}
	return t.Columns[i], true
}

// ColumnSpec describes one column.
type ColumnSpec struct {
	Name        string
	Type        string
	Required    bool
	Description string

	Default     string
	AutoManaged bool
	Check       string
	TSOverride  string
	ZodOverride string
}
