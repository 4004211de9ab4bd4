package codegen

import (
	"fmt"
	"strings"

	"github.com/djb258/client-sub001/internal/errs"
	"github.com/djb258/client-sub001/internal/registry"
)

// ddl renders schema.sql: CREATE SCHEMA, one CREATE TABLE per table in
// declared order, then table and column comments carrying the descriptions.
// Every statement is idempotent.
func (g *generator) ddl() (string, error) {
	reg := g.reg
	var b strings.Builder

	fmt.Fprintf(&b, "-- Schema DDL for %s\n", reg.Schema)
	b.WriteString(g.banner("--"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "CREATE SCHEMA IF NOT EXISTS %s;\n\n", quoteIdent(reg.Schema))

	for _, t := range reg.Tables {
		stmt, err := g.createTable(t)
		if err != nil {
			return "", err
		}
		b.WriteString(stmt)
		b.WriteString("\n\n")
	}

	for _, t := range reg.Tables {
		fqn := quoteIdent(reg.Schema) + "." + quoteIdent(t.Name)
		if t.Description != "" {
			fmt.Fprintf(&b, "COMMENT ON TABLE %s IS %s;\n", fqn, quoteLiteral(t.Description))
		}
		for _, col := range t.Columns {
			if col.Description == "" {
				continue
			}
			fmt.Fprintf(&b, "COMMENT ON COLUMN %s.%s IS %s;\n", fqn, quoteIdent(col.Name), quoteLiteral(col.Description))
		}
	}
	return b.String(), nil
}

func (g *generator) createTable(t *registry.TableSpec) (string, error) {
	schema := g.reg.Schema
	if len(t.Columns) == 0 {
		return "", errs.Newf(errs.ErrKindGeneration, "table %s.%s: at least one column required", schema, t.Name)
	}

	defs := make([]string, 0, len(t.Columns)+1+len(t.FK))
	for _, c := range t.Columns {
		def := quoteIdent(c.Name) + " " + c.Type
		if c.Default != "" {
			def += " DEFAULT " + c.Default
		}
		if c.Required {
			def += " NOT NULL"
		}
		if c.Check != "" {
			def += " CHECK (" + c.Check + ")"
		}
		defs = append(defs, def)
	}

	if t.PK != "" {
		if _, ok := t.Column(t.PK); !ok {
			return "", errs.Newf(errs.ErrKindGeneration, "table %s.%s: pk %s is not a declared column", schema, t.Name, t.PK)
		}
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", quoteIdent(t.PK)))
	}

	// References to tables or columns outside the registry are left to the
	// lint gate.
	for _, fk := range t.FK {
		ref, refCol, ok := strings.Cut(fk, ".")
		if !ok || (ref == t.Name && refCol == t.PK) {
			continue
		}
		target, exists := g.reg.Table(ref)
		if !exists {
			continue
		}
		if _, ok := target.Column(refCol); !ok {
			continue
		}
		if _, ok := t.Column(refCol); !ok {
			continue
		}
		defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s.%s (%s)",
			quoteIdent(refCol), quoteIdent(schema), quoteIdent(ref), quoteIdent(refCol)))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.%s (\n  %s\n);",
		quoteIdent(schema), quoteIdent(t.Name), strings.Join(defs, ",\n  ")), nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
