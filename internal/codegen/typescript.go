package codegen

import (
	"fmt"
	"slices"
	"strings"

	"github.com/djb258/client-sub001/internal/registry"
)

// typesTS renders one interface per table of the spoke, columns in declared
// order.
func (g *generator) typesTS(s *registry.Spoke) (string, error) {
	schema := g.reg.Schema

	var b strings.Builder
	b.WriteString(spokeTitle(s) + "\n")
	fmt.Fprintf(&b, "// Schema: %s | Spoke: %s\n", schema, s.ID)
	fmt.Fprintf(&b, "// Tables: %s\n", strings.Join(s.Tables, ", "))
	b.WriteString(g.banner("//"))
	b.WriteString("\n")

	for _, name := range s.Tables {
		t, err := g.table(name)
		if err != nil {
			return "", err
		}

		b.WriteString("/**\n")
		fmt.Fprintf(&b, " * %s\n", docText(describe(schema+"."+name, t.Description)))
		if t.LeafType != "" {
			fmt.Fprintf(&b, " * Leaf Type: %s\n", t.LeafType)
		}
		if t.PK != "" {
			fmt.Fprintf(&b, " * PK: %s\n", t.PK)
		}
		if len(t.FK) > 0 {
			fmt.Fprintf(&b, " * FK: %s\n", strings.Join(t.FK, ", "))
		}
		b.WriteString(" */\n")
		fmt.Fprintf(&b, "export interface %s {\n", pascalCase(name))

		for _, col := range t.Columns {
			ts, err := g.types.ts(name, col)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "  /** @column %s */\n", columnDoc(g.columnID(name, col.Name), col))
			fmt.Fprintf(&b, "  %s: %s;\n", col.Name, ts)
			b.WriteString("\n")
		}
		b.WriteString("}\n\n")
	}
	return b.String(), nil
}

// schemaTS renders Zod insert and update schemas for each table of the spoke
// as allowed by its write rules.
func (g *generator) schemaTS(s *registry.Spoke) (string, error) {
	var b strings.Builder
	b.WriteString(spokeTitle(s) + "\n")
	b.WriteString("// Zod write schemas generated from column registry\n")
	b.WriteString(g.banner("//"))
	b.WriteString("\n")
	b.WriteString("import { z } from 'zod';\n\n")

	for _, name := range s.Tables {
		t, err := g.table(name)
		if err != nil {
			return "", err
		}
		rules := registry.WriteRules{Insert: true, Update: true}
		if t.WriteRules != nil {
			rules = *t.WriteRules
		}
		pascal := pascalCase(name)
		label := g.reg.Schema + "." + name
		if t.LeafType != "" {
			label += " (" + t.LeafType + ")"
		}

		if rules.Insert {
			fmt.Fprintf(&b, "/** Insert schema for %s */\n", label)
			fmt.Fprintf(&b, "export const %sInsert = z.object({\n", pascal)
			for _, col := range t.Columns {
				if col.AutoManaged {
					continue
				}
				z, err := g.types.zod(name, col)
				if err != nil {
					return "", err
				}
				if col.Default != "" {
					z += ".optional()"
				}
				g.zodField(&b, name, col, z)
			}
			b.WriteString("});\n")
			fmt.Fprintf(&b, "export type %sInsertInput = z.infer<typeof %sInsert>;\n\n", pascal, pascal)
		}

		if rules.Update {
			fmt.Fprintf(&b, "/** Update schema for %s */\n", label)
			fmt.Fprintf(&b, "export const %sUpdate = z.object({\n", pascal)
			for _, col := range t.Columns {
				if !g.updatable(t, col) {
					continue
				}
				z, err := g.types.zod(name, col)
				if err != nil {
					return "", err
				}
				g.zodField(&b, name, col, z+".optional()")
			}
			b.WriteString("});\n")
			fmt.Fprintf(&b, "export type %sUpdateInput = z.infer<typeof %sUpdate>;\n\n", pascal, pascal)
		}
	}
	return b.String(), nil
}

func (g *generator) zodField(b *strings.Builder, table string, col registry.ColumnSpec, z string) {
	id := g.columnID(table, col.Name)
	fmt.Fprintf(b, "  /** @column %s */\n", columnDoc(id, col))
	fmt.Fprintf(b, "  %s: %s.describe('%s'),\n", col.Name, z, id)
}

// columnDoc carries every registry value of the column, so a change to any
// of them changes each file that embeds it.
func columnDoc(id string, col registry.ColumnSpec) string {
	null := "nullable"
	if col.Required {
		null = "not null"
	}
	return docText(fmt.Sprintf("%s (%s, %s)", describe(id, col.Description), col.Type, null))
}

// updatable excludes auto-managed columns, the primary key and the universal
// join key. A declared updatable_columns list narrows it further.
func (g *generator) updatable(t *registry.TableSpec, col registry.ColumnSpec) bool {
	switch {
	case col.AutoManaged:
		return false
	case t.PK != "" && col.Name == t.PK:
		return false
	case g.reg.UniversalJoinKey != "" && col.Name == g.reg.UniversalJoinKey:
		return false
	case t.UpdatableColumns != nil:
		return slices.Contains(t.UpdatableColumns, col.Name)
	}
	return true
}
