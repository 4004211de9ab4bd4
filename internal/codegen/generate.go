// Package codegen renders a column registry into TypeScript interfaces, Zod
// write schemas, a barrel index, an ERD document and combined DDL.
//
// Generate is pure: the same registry always yields byte-identical output,
// independent of clock, randomness or filesystem state. Only Write touches
// the disk.
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/djb258/client-sub001/internal/errs"
	"github.com/djb258/client-sub001/internal/registry"
)

type generator struct {
	reg   *registry.ColumnRegistry
	types *typeResolver
	// owner maps table name to the id of the spoke rendering it.
	owner map[string]string
}

// Generate renders every artifact for reg. It fails as a whole with
// errs.ErrKindGeneration; a partial output is never returned.
func Generate(reg *registry.ColumnRegistry) (*Output, error) {
	if reg == nil {
		return nil, errs.New(errs.ErrKindGeneration, "nil registry")
	}
	g := &generator{
		reg:   reg,
		types: newTypeResolver(reg),
		owner: make(map[string]string),
	}

	spokes := g.spokes()
	for _, s := range spokes {
		if err := checkSegment(s.ID); err != nil {
			return nil, err
		}
		for _, name := range s.Tables {
			g.owner[name] = s.ID
		}
	}

	out := newOutput()
	for _, s := range spokes {
		types, err := g.typesTS(s)
		if err != nil {
			return nil, err
		}
		schema, err := g.schemaTS(s)
		if err != nil {
			return nil, err
		}
		if err := out.add(TypesPath(s.ID), types); err != nil {
			return nil, errs.Wrap(errs.ErrKindGeneration, "spoke "+s.ID, err)
		}
		if err := out.add(SchemaPath(s.ID), schema); err != nil {
			return nil, errs.Wrap(errs.ErrKindGeneration, "spoke "+s.ID, err)
		}
	}

	erd, err := g.erd()
	if err != nil {
		return nil, err
	}
	ddl, err := g.ddl()
	if err != nil {
		return nil, err
	}
	for _, f := range []File{
		{Path: IndexPath, Content: g.barrel(spokes)},
		{Path: ERDPath, Content: erd},
		{Path: SchemaSQLPath, Content: ddl},
	} {
		if err := out.add(f.Path, f.Content); err != nil {
			return nil, errs.Wrap(errs.ErrKindGeneration, "generate", err)
		}
	}
	return out, nil
}

// spokes returns the declared spokes, or a single implicit spoke named after
// the schema that holds every table when none are declared.
func (g *generator) spokes() []*registry.Spoke {
	if len(g.reg.Spokes) > 0 {
		return g.reg.Spokes
	}
	return []*registry.Spoke{{
		ID:     g.reg.Schema,
		Name:   g.reg.Schema,
		Tables: g.reg.TableNames(),
	}}
}

func checkSegment(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return errs.Newf(errs.ErrKindGeneration, "spoke id %q cannot be used as a directory name", id)
	}
	return nil
}

func (g *generator) table(name string) (*registry.TableSpec, error) {
	t, ok := g.reg.Table(name)
	if !ok {
		return nil, errs.Newf(errs.ErrKindGeneration, "table %s not found in registry", name)
	}
	return t, nil
}

// banner is the provenance block shared by every generated file.
func (g *generator) banner(comment string) string {
	return fmt.Sprintf("%s GENERATED FROM: column registry %s v%s\n%s DO NOT HAND-EDIT. Run: registry generate\n",
		comment, g.reg.Schema, g.reg.Version, comment)
}

func (g *generator) barrel(spokes []*registry.Spoke) string {
	ids := make([]string, len(spokes))
	for i, s := range spokes {
		ids[i] = s.ID
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("// Barrel index - single entry point for all spoke types and schemas\n")
	b.WriteString(g.banner("//"))
	b.WriteString("\n")
	for _, id := range ids {
		fmt.Fprintf(&b, "// %s\n", id)
		fmt.Fprintf(&b, "export * from './%s/types';\n", id)
		fmt.Fprintf(&b, "export * from './%s/schema';\n", id)
		b.WriteString("\n")
	}
	return b.String()
}

// spokeTitle is the first header line of a spoke's files.
func spokeTitle(s *registry.Spoke) string {
	name := s.Name
	if name == "" {
		name = s.ID
	}
	title := fmt.Sprintf("// %s: %s", strings.ToUpper(s.ID), name)
	if s.Purpose != "" {
		title += " - " + s.Purpose
	}
	return title
}

// columnID is the fully qualified schema.table.column identifier.
func (g *generator) columnID(table, column string) string {
	return g.reg.Schema + "." + table + "." + column
}

// describe appends " - description" when there is one.
func describe(id, description string) string {
	if description == "" {
		return id
	}
	return id + " - " + description
}

// pascalCase turns snake_case or kebab-case into PascalCase.
func pascalCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// docText keeps a description from closing the surrounding block comment.
func docText(s string) string {
	return strings.ReplaceAll(s, "*/", `*\/`)
}
