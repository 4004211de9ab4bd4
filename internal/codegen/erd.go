package codegen

import (
	"fmt"
	"strings"

	"github.com/djb258/client-sub001/internal/registry"
)

// erd renders ERD.md: a summary table, a Mermaid diagram and the column index.
func (g *generator) erd() (string, error) {
	reg := g.reg
	var b strings.Builder

	fmt.Fprintf(&b, "# ERD - %s Schema\n\n", reg.Schema)
	fmt.Fprintf(&b, "> GENERATED FROM: column registry `%s` v%s\n", reg.Schema, reg.Version)
	b.WriteString("> DO NOT HAND-EDIT. Run: `registry generate`\n\n")
	fmt.Fprintf(&b, "**Version**: %s\n", reg.Version)
	fmt.Fprintf(&b, "**Tables**: %d\n", len(reg.Tables))
	if reg.SpineTable != "" {
		fmt.Fprintf(&b, "**Spine**: %s\n", reg.SpineTable)
	}
	if reg.UniversalJoinKey != "" {
		fmt.Fprintf(&b, "**Universal Join Key**: %s\n", reg.UniversalJoinKey)
	}
	b.WriteString("\n")

	b.WriteString("## Table Summary\n\n")
	b.WriteString("| Table | Spoke | Leaf Type | PK | FK |\n")
	b.WriteString("|-------|-------|-----------|----|----|\n")
	for _, t := range reg.Tables {
		fk := "-"
		if len(t.FK) > 0 {
			fk = strings.Join(t.FK, ", ")
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			t.Name, orDash(g.spokeOf(t)), orDash(t.LeafType), orDash(t.PK), fk)
	}
	b.WriteString("\n")

	b.WriteString("## Entity Relationship Diagram\n\n")
	b.WriteString("```mermaid\nerDiagram\n")
	for _, t := range reg.Tables {
		fmt.Fprintf(&b, "    %s {\n", t.Name)
		for _, col := range t.Columns {
			line := fmt.Sprintf("        %s %s", mermaidType(col.Type), col.Name)
			if flag := keyFlag(t, col); flag != "" {
				line += " " + flag
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("    }\n")
	}
	b.WriteString("\n")
	for _, t := range reg.Tables {
		for _, fk := range t.FK {
			ref, _, _ := strings.Cut(fk, ".")
			card := "||--o{"
			if t.PK != "" && t.PK == reg.UniversalJoinKey && ref == reg.SpineTable {
				card = "||--||"
			}
			fmt.Fprintf(&b, "    %s %s %s : \"\"\n", ref, card, t.Name)
		}
	}
	b.WriteString("```\n\n")

	b.WriteString("## Column ID Index\n\n")
	b.WriteString("| Column ID | Type | Required | Description |\n")
	b.WriteString("|-----------|------|----------|-------------|\n")
	for _, t := range reg.Tables {
		for _, col := range t.Columns {
			req := "NO"
			if col.Required {
				req = "YES"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				g.columnID(t.Name, col.Name), cell(col.Type), req, cell(col.Description))
		}
	}
	b.WriteString("\n")
	return b.String(), nil
}

// spokeOf is the spoke rendering t, or the spoke the table itself names.
func (g *generator) spokeOf(t *registry.TableSpec) string {
	if id, ok := g.owner[t.Name]; ok {
		return id
	}
	return t.Spoke
}

func keyFlag(t *registry.TableSpec, col registry.ColumnSpec) string {
	if col.Name == t.PK {
		return "PK"
	}
	for _, fk := range t.FK {
		if strings.HasSuffix(fk, "."+col.Name) {
			return "FK"
		}
	}
	return ""
}

// mermaidType drops precision and joins multi-word types so Mermaid parses
// them as one token.
func mermaidType(typ string) string {
	t := strings.TrimSpace(typ)
	array := strings.HasSuffix(t, "[]")
	t = strings.ReplaceAll(registry.BaseType(t), " ", "_")
	if array {
		t += "[]"
	}
	return t
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// cell escapes a value for a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
