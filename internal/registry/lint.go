package registry

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/djb258/client-sub001/internal/errs"
)

// MinDescriptionLen is the shortest description the lint gate accepts.
const MinDescriptionLen = 10

// StandardLeafTypes are the leaf types the lint gate recognises.
var StandardLeafTypes = []string{"CANONICAL", "ERROR", "SUPPORT", "STAGING", "AUDIT"}

// StandardTypes are the base database types the lint gate recognises.
var StandardTypes = []string{
	"UUID", "TEXT", "VARCHAR", "CHAR", "INTEGER", "INT", "BIGINT", "SMALLINT",
	"SERIAL", "BIGSERIAL", "BOOLEAN", "BOOL", "TIMESTAMP", "TIMESTAMPTZ",
	"DATE", "TIME", "TIMETZ", "NUMERIC", "DECIMAL", "FLOAT", "REAL",
	"JSON", "JSONB", "BYTEA", "ARRAY", "INTERVAL", "MONEY", "INET",
}

var placeholder = regexp.MustCompile(`^\[.*\]$`)

// Finding is one lint result.
type Finding struct {
	Table   string `json:"table,omitempty"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

func (f Finding) String() string {
	switch {
	case f.Column != "":
		return fmt.Sprintf("Table '%s', Column '%s': %s", f.Table, f.Column, f.Message)
	case f.Table != "":
		return fmt.Sprintf("Table '%s': %s", f.Table, f.Message)
	default:
		return f.Message
	}
}

// LintReport is the completeness gate result, in registry order.
type LintReport struct {
	Version        string    `json:"version"`
	Schema         string    `json:"schema"`
	TablesChecked  int       `json:"tables_checked"`
	ColumnsChecked int       `json:"columns_checked"`
	Violations     []Finding `json:"violations"`
	Warnings       []Finding `json:"warnings"`
}

// Passed is true when there are no violations. Warnings alone pass.
func (r *LintReport) Passed() bool {
	return len(r.Violations) == 0
}

// Lint checks that every table and column carries complete metadata: no
// placeholders, meaningful descriptions, recognised types.
func Lint(reg *ColumnRegistry) *LintReport {
	rep := &LintReport{
		Version:    reg.Version,
		Schema:     reg.Schema,
		Violations: []Finding{},
		Warnings:   []Finding{},
	}
	violate := func(table, column, format string, args ...any) {
		rep.Violations = append(rep.Violations, Finding{Table: table, Column: column, Message: fmt.Sprintf(format, args...)})
	}
	warn := func(table, column, format string, args ...any) {
		rep.Warnings = append(rep.Warnings, Finding{Table: table, Column: column, Message: fmt.Sprintf(format, args...)})
	}

	owned := make(map[string]bool)
	for _, s := range reg.Spokes {
		for _, name := range s.Tables {
			owned[name] = true
		}
	}

	for _, t := range reg.Tables {
		rep.TablesChecked++

		switch {
		case isPlaceholder(t.Description):
			violate(t.Name, "", "'description' is missing or placeholder")
		case len(t.Description) < MinDescriptionLen:
			violate(t.Name, "", "'description' too short (%d chars, min %d)", len(t.Description), MinDescriptionLen)
		}

		if t.LeafType != "" {
			if !containsFold(StandardLeafTypes, t.LeafType) {
				warn(t.Name, "", "'leaf_type' = '%s' not in standard list", t.LeafType)
			}
			if isPlaceholder(t.PK) {
				violate(t.Name, "", "'pk' (primary key) is missing or placeholder")
			}
		}
		if t.PK != "" && !isPlaceholder(t.PK) {
			if _, ok := t.Column(t.PK); !ok {
				violate(t.Name, "", "'pk' = '%s' is not a declared column", t.PK)
			}
		}
		for _, fk := range t.FK {
			ref, _, ok := strings.Cut(fk, ".")
			if !ok {
				violate(t.Name, "", "fk '%s' is not of the form table.column", fk)
				continue
			}
			if _, exists := reg.Table(ref); !exists {
				warn(t.Name, "", "fk '%s' references a table outside the registry", fk)
			}
		}
		if len(reg.Spokes) > 0 && !owned[t.Name] {
			warn(t.Name, "", "not assigned to any spoke; it is rendered only in ERD.md and schema.sql")
		}

		if len(t.Columns) == 0 {
			violate(t.Name, "", "no columns declared")
		}
		for _, c := range t.Columns {
			rep.ColumnsChecked++
			switch {
			case isPlaceholder(c.Description):
				violate(t.Name, c.Name, "'description' is missing or placeholder")
			case len(c.Description) < MinDescriptionLen:
				violate(t.Name, c.Name, "'description' too short (%d chars, min %d)", len(c.Description), MinDescriptionLen)
			}
			if isPlaceholder(c.Type) {
				violate(t.Name, c.Name, "'type' is missing or placeholder")
			} else if !containsFold(StandardTypes, BaseType(c.Type)) {
				warn(t.Name, c.Name, "'type' = '%s' not in standard list (may be valid)", c.Type)
			}
		}
	}

	if reg.TotalTables != 0 && reg.TotalTables != len(reg.Tables) {
		warn("", "", "Declared total_tables (%d) != actual tables found (%d)", reg.TotalTables, len(reg.Tables))
	}
	return rep
}

// BaseType strips a precision suffix and array brackets: NUMERIC(10,2) is
// NUMERIC, text[] is text.
func BaseType(typ string) string {
	t := strings.TrimSpace(typ)
	if i := strings.IndexByte(t, '('); i >= 0 {
		if j := strings.LastIndexByte(t, ')'); j > i {
			t = t[:i] + t[j+1:]
		}
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "[]")
	return strings.TrimSpace(t)
}

func isPlaceholder(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || placeholder.MatchString(s)
}

func containsFold(list []string, item string) bool {
	for _, v := range list {
		if strings.EqualFold(v, item) {
			return true
		}
	}
	return false
}

// Err is nil when the report passes and an errs.ErrKindLint error otherwise.
func (r *LintReport) Err() error {
	if r.Passed() {
		return nil
	}
	return errs.Newf(errs.ErrKindLint, "registry %s v%s: %d violation(s)", r.Schema, r.Version, len(r.Violations))
}

// WriteText prints the human-readable lint report.
func (r *LintReport) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Registry lint: %s v%s (%d tables, %d columns)\n", r.Schema, r.Version, r.TablesChecked, r.ColumnsChecked)
	if len(r.Violations) > 0 {
		fmt.Fprintf(&b, "\nViolations (%d):\n", len(r.Violations))
		for _, f := range r.Violations {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "\nWarnings (%d):\n", len(r.Warnings))
		for _, f := range r.Warnings {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
	}
	if r.Passed() {
		b.WriteString("\nPASSED\n")
	} else {
		b.WriteString("\nFAILED\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
