package codegen

import (
	"strings"

	"github.com/djb258/client-sub001/internal/errs"
	"github.com/djb258/client-sub001/internal/registry"
)

// builtinTypes maps upper-cased Postgres base types to their TypeScript and
// Zod renderings. Registry type_map entries take precedence.
var builtinTypes = map[string]registry.TypeMapping{
	"UUID":              {TS: "string", Zod: "z.string().uuid()"},
	"TEXT":              {TS: "string", Zod: "z.string()"},
	"VARCHAR":           {TS: "string", Zod: "z.string()"},
	"CHARACTER VARYING": {TS: "string", Zod: "z.string()"},
	"CHAR":              {TS: "string", Zod: "z.string()"},
	"CHARACTER":         {TS: "string", Zod: "z.string()"},
	"CITEXT":            {TS: "string", Zod: "z.string()"},
	"INTEGER":           {TS: "number", Zod: "z.number().int()"},
	"INT":               {TS: "number", Zod: "z.number().int()"},
	"INT4":              {TS: "number", Zod: "z.number().int()"},
	"SMALLINT":          {TS: "number", Zod: "z.number().int()"},
	"SERIAL":            {TS: "number", Zod: "z.number().int()"},
	"BIGINT":            {TS: "number", Zod: "z.number().int()"},
	"INT8":              {TS: "number", Zod: "z.number().int()"},
	"BIGSERIAL":         {TS: "number", Zod: "z.number().int()"},
	"NUMERIC":           {TS: "string", Zod: "z.string()"},
	"DECIMAL":           {TS: "string", Zod: "z.string()"},
	"MONEY":             {TS: "string", Zod: "z.string()"},
	"REAL":              {TS: "number", Zod: "z.number()"},
	"FLOAT":             {TS: "number", Zod: "z.number()"},
	"FLOAT8":            {TS: "number", Zod: "z.number()"},
	"DOUBLE PRECISION":  {TS: "number", Zod: "z.number()"},
	"BOOLEAN":           {TS: "boolean", Zod: "z.boolean()"},
	"BOOL":              {TS: "boolean", Zod: "z.boolean()"},
	"DATE":              {TS: "string", Zod: "z.string().date()"},
	"TIMESTAMP":         {TS: "string", Zod: "z.string().datetime()"},
	"TIMESTAMPTZ":       {TS: "string", Zod: "z.string().datetime({ offset: true })"},
	"TIME":              {TS: "string", Zod: "z.string()"},
	"TIMETZ":            {TS: "string", Zod: "z.string()"},
	"INTERVAL":          {TS: "string", Zod: "z.string()"},
	"JSON":              {TS: "Record<string, unknown>", Zod: "z.record(z.string(), z.unknown())"},
	"JSONB":             {TS: "Record<string, unknown>", Zod: "z.record(z.string(), z.unknown())"},
	"BYTEA":             {TS: "string", Zod: "z.string()"},
	"INET":              {TS: "string", Zod: "z.string()"},
}

// typeResolver turns column declarations into TypeScript and Zod types.
type typeResolver struct {
	schema string
	custom map[string]registry.TypeMapping
}

func newTypeResolver(reg *registry.ColumnRegistry) *typeResolver {
	custom := make(map[string]registry.TypeMapping, len(reg.TypeMap))
	for k, v := range reg.TypeMap {
		custom[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return &typeResolver{schema: reg.Schema, custom: custom}
}

// mapping resolves the base type of col, following custom then builtin.
func (r *typeResolver) mapping(table string, col registry.ColumnSpec) (registry.TypeMapping, bool, error) {
	typ := strings.TrimSpace(col.Type)
	array := strings.HasSuffix(typ, "[]")
	base := strings.ToUpper(registry.BaseType(typ))

	if m, ok := r.custom[base]; ok {
		return m, array, nil
	}
	if m, ok := builtinTypes[base]; ok {
		return m, array, nil
	}
	return registry.TypeMapping{}, false, errs.Newf(errs.ErrKindGeneration,
		"no type mapping for %s on %s.%s.%s", col.Type, r.schema, table, col.Name)
}

// ts renders the TypeScript property type. An override is used verbatim.
func (r *typeResolver) ts(table string, col registry.ColumnSpec) (string, error) {
	if col.TSOverride != "" {
		return col.TSOverride, nil
	}
	m, array, err := r.mapping(table, col)
	if err != nil {
		return "", err
	}
	t := m.TS
	if t == "" {
		return "", errs.Newf(errs.ErrKindGeneration, "type mapping for %s has no ts rendering (%s.%s.%s)", col.Type, r.schema, table, col.Name)
	}
	if array {
		if strings.ContainsAny(t, " |&") {
			t = "(" + t + ")"
		}
		t += "[]"
	}
	if !col.Required {
		t += " | null"
	}
	return t, nil
}

// zod renders the Zod validator expression. An override is used verbatim.
func (r *typeResolver) zod(table string, col registry.ColumnSpec) (string, error) {
	if col.ZodOverride != "" {
		return col.ZodOverride, nil
	}
	m, array, err := r.mapping(table, col)
	if err != nil {
		return "", err
	}
	z := m.Zod
	if z == "" {
		return "", errs.Newf(errs.ErrKindGeneration, "type mapping for %s has no zod rendering (%s.%s.%s)", col.Type, r.schema, table, col.Name)
	}
	if array {
		z = "z.array(" + z + ")"
	}
	if !col.Required {
		z += ".nullable()"
	}
	return z, nil
}
