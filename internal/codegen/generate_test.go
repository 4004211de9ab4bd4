package codegen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djb258/client-sub001/internal/errs"
	"github.com/djb258/client-sub001/internal/registry"
)

const registryFixture = "../registry/testdata/clnt_column_registry.yml"

func loadFixture(t *testing.T) *registry.ColumnRegistry {
	t.Helper()
	reg, err := registry.Load(registryFixture)
	require.NoError(t, err)
	return reg
}

func parse(t *testing.T, src string) *registry.ColumnRegistry {
	t.Helper()
	reg, err := registry.Parse([]byte(src), "inline.yml")
	require.NoError(t, err)
	return reg
}

func generate(t *testing.T, reg *registry.ColumnRegistry) *Output {
	t.Helper()
	out, err := Generate(reg)
	require.NoError(t, err)
	return out
}

func content(t *testing.T, out *Output, path string) string {
	t.Helper()
	c, ok := out.Lookup(path)
	require.True(t, ok, "no output for %s", path)
	return c
}

const leadsRegistry = `
version: "1"
schema: public
tables:
  leads:
    columns:
      - {name: id, type: text, required: true, description: Lead identifier.}
      - {name: email, type: text, required: true, description: Contact email address.}
      - {name: score, type: integer, required: false, description: Qualification score.}
`

func TestGenerate_PathsInOrder(t *testing.T) {
	out := generate(t, loadFixture(t))

	assert.Equal(t, []string{
		"src/data/spokes/s1-hub/types.ts",
		"src/data/spokes/s1-hub/schema.ts",
		"src/data/spokes/s2-plan/types.ts",
		"src/data/spokes/s2-plan/schema.ts",
		"src/data/spokes/index.ts",
		"src/data/ERD.md",
		"src/data/db/schema.sql",
	}, out.Paths())
	assert.Equal(t, 7, out.Len())
}

func TestGenerate_Deterministic(t *testing.T) {
	first := generate(t, loadFixture(t))
	second := generate(t, loadFixture(t))

	assert.Equal(t, first.Digest(), second.Digest())
	if diff := cmp.Diff(first.Files(), second.Files()); diff != "" {
		t.Fatalf("output differs between runs (-first +second):\n%s", diff)
	}
}

func TestGenerate_VersionInEveryFile(t *testing.T) {
	out := generate(t, loadFixture(t))
	for _, f := range out.Files() {
		assert.Contains(t, f.Content, "v3.2.0", f.Path)
	}
}

func TestGenerate_Types(t *testing.T) {
	types := content(t, generate(t, loadFixture(t)), TypesPath("s1-hub"))

	assert.True(t, strings.HasPrefix(types, "// S1-HUB: Hub - Client Identity & Configuration\n// Schema: clnt | Spoke: s1-hub\n// Tables: client, client_error\n"))
	assert.Contains(t, types, "/**\n * clnt.client - Canonical client record. Sovereign identity and business details.\n * Leaf Type: CANONICAL\n * PK: client_id\n */\nexport interface Client {\n")
	assert.Contains(t, types, "  /** @column clnt.client.legal_name - Legal company name as registered. (TEXT, not null) */\n  legal_name: string;\n")
	assert.Contains(t, types, "  fein: string | null;\n")
	assert.Contains(t, types, "  feature_flags: Record<string, unknown>;\n")
	assert.Contains(t, types, " * FK: client.client_id\n */\nexport interface ClientError {\n")

	plan := content(t, generate(t, loadFixture(t)), TypesPath("s2-plan"))
	assert.Contains(t, plan, "  premium: string | null;\n")
	assert.Contains(t, plan, "  tags: string[] | null;\n")
}

func TestGenerate_Schemas(t *testing.T) {
	out := generate(t, loadFixture(t))
	hub := content(t, out, SchemaPath("s1-hub"))

	insert := section(t, hub, "export const ClientInsert", "});")
	assert.NotContains(t, insert, "client_id:", "auto-managed columns are not insertable")
	assert.Contains(t, insert, "  legal_name: z.string().describe('clnt.client.legal_name'),\n")
	assert.Contains(t, insert, "  fein: z.string().nullable().describe('clnt.client.fein'),\n")
	assert.Contains(t, insert, "  status: z.string().optional().describe('clnt.client.status'),\n")
	assert.Contains(t, insert, "  feature_flags: z.record(z.string(), z.unknown()).optional().describe('clnt.client.feature_flags'),\n")

	assert.Contains(t, hub, "export const ClientErrorInsert")
	assert.NotContains(t, hub, "ClientErrorUpdate", "write_rules.update is false")

	plan := content(t, out, SchemaPath("s2-plan"))
	update := section(t, plan, "export const PlanUpdate", "});")
	assert.Equal(t, 2, strings.Count(update, "@column"), update)
	assert.Contains(t, update, "  plan_name: z.string().optional().describe('clnt.plan.plan_name'),\n")
	assert.Contains(t, update, "  premium: z.string().nullable().optional().describe('clnt.plan.premium'),\n")
	assert.Contains(t, plan, "  tags: z.array(z.string()).nullable().describe('clnt.plan.tags'),\n")
}

func TestGenerate_BarrelSortsSpokes(t *testing.T) {
	reg := parse(t, `
version: "1"
schema: s
spokes:
  zeta: {tables: [b]}
  alpha: {tables: [a]}
tables:
  a:
    columns: [{name: id, type: uuid, required: true}]
  b:
    columns: [{name: id, type: uuid, required: true}]
`)
	out := generate(t, reg)

	assert.Equal(t, TypesPath("zeta"), out.Paths()[0], "spoke files follow declared order")
	index := content(t, out, IndexPath)
	assert.Less(t, strings.Index(index, "./alpha/types"), strings.Index(index, "./zeta/types"))
}

func TestGenerate_ImplicitSpoke(t *testing.T) {
	out := generate(t, parse(t, leadsRegistry))

	assert.Equal(t, []string{
		"src/data/spokes/public/types.ts",
		"src/data/spokes/public/schema.ts",
		IndexPath,
		ERDPath,
		SchemaSQLPath,
	}, out.Paths())

	types := content(t, out, TypesPath("public"))
	assert.Contains(t, types, "export interface Leads {\n")
	assert.Contains(t, types, "  id: string;\n")
	assert.Contains(t, types, "  score: number | null;\n")

	schema := content(t, out, SchemaPath("public"))
	assert.Contains(t, schema, "  score: z.number().int().nullable().describe('public.leads.score'),\n")
	assert.Contains(t, schema, "export const LeadsUpdate")
}

func TestGenerate_DDL(t *testing.T) {
	ddl := content(t, generate(t, loadFixture(t)), SchemaSQLPath)

	assert.Contains(t, ddl, "CREATE SCHEMA IF NOT EXISTS \"clnt\";\n")
	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS \"clnt\".\"client\" (\n  \"client_id\" UUID DEFAULT gen_random_uuid() NOT NULL,\n")
	assert.Contains(t, ddl, "  \"fein\" VARCHAR(10),\n")
	assert.Contains(t, ddl, "  \"status\" TEXT DEFAULT 'active' NOT NULL CHECK (status IN ('active', 'terminated', 'suspended')),\n")
	assert.Contains(t, ddl, "  PRIMARY KEY (\"error_id\"),\n  FOREIGN KEY (\"client_id\") REFERENCES \"clnt\".\"client\" (\"client_id\")\n);")
	assert.Contains(t, ddl, "COMMENT ON COLUMN \"clnt\".\"client\".\"fein\" IS 'Federal Employer Identification Number.';\n")
}

func TestGenerate_DDLEscapesDescriptions(t *testing.T) {
	reg := parse(t, `
version: "1"
schema: s
tables:
  t:
    columns: [{name: c, type: text, required: true, description: "the client's name"}]
`)
	ddl := content(t, generate(t, reg), SchemaSQLPath)
	assert.Contains(t, ddl, `COMMENT ON COLUMN "s"."t"."c" IS 'the client''s name';`)
}

func TestGenerate_ERD(t *testing.T) {
	erd := content(t, generate(t, loadFixture(t)), ERDPath)

	assert.Contains(t, erd, "**Version**: 3.2.0\n**Tables**: 3\n**Spine**: client\n")
	assert.Contains(t, erd, "| client_error | s1-hub | ERROR | error_id | client.client_id |\n")
	assert.Contains(t, erd, "        NUMERIC premium\n")
	assert.Contains(t, erd, "        UUID client_id FK\n")
	assert.Contains(t, erd, "    client ||--o{ plan : \"\"\n")
	assert.Contains(t, erd, "| clnt.client.fein | VARCHAR(10) | NO | Federal Employer Identification Number. |\n")
}

// A change to any rendered column attribute must change the output.
func TestGenerate_SensitiveToColumnChanges(t *testing.T) {
	base := generate(t, parse(t, leadsRegistry))

	tests := []struct {
		name string
		from string
		to   string
		path string
	}{
		{"type", "{name: score, type: integer", "{name: score, type: text", TypesPath("public")},
		{"required", "type: integer, required: false", "type: integer, required: true", TypesPath("public")},
		{"description", "Qualification score.", "Lead quality score.", TypesPath("public")},
		{"description in ddl", "Qualification score.", "Lead quality score.", SchemaSQLPath},
		{"type in erd", "{name: score, type: integer", "{name: score, type: bigint", ERDPath},
		{"same ts type", "{name: score, type: integer", "{name: score, type: bigint", TypesPath("public")},
		{"same zod type", "{name: score, type: integer", "{name: score, type: bigint", SchemaPath("public")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := strings.Replace(leadsRegistry, tt.from, tt.to, 1)
			require.NotEqual(t, leadsRegistry, src)
			changed := generate(t, parse(t, src))

			assert.NotEqual(t, base.Digest(), changed.Digest())
			assert.NotEqual(t, content(t, base, tt.path), content(t, changed, tt.path))
		})
	}
}

func TestGenerate_UnsupportedType(t *testing.T) {
	reg := parse(t, `
version: "1"
schema: s
tables:
  t:
    columns: [{name: shape, type: GEOGRAPHY, required: true}]
`)
	out, err := Generate(reg)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, errs.IsGeneration(err))
	assert.Contains(t, err.Error(), "s.t.shape")
}

func TestGenerate_Overrides(t *testing.T) {
	reg := parse(t, `
version: "1"
schema: s
type_map:
  geography: {ts: GeoJSON, zod: geoJson}
tables:
  t:
    columns:
      - {name: shape, type: GEOGRAPHY, required: true}
      - {name: blocks, type: JSONB, required: true, ts_override: "unknown[]", zod_override: "z.array(z.unknown())"}
`)
	out := generate(t, reg)
	types := content(t, out, TypesPath("s"))
	assert.Contains(t, types, "  shape: GeoJSON;\n")
	assert.Contains(t, types, "  blocks: unknown[];\n")
	assert.Contains(t, content(t, out, SchemaPath("s")), "  blocks: z.array(z.unknown()).describe('s.t.blocks'),\n")
}

func TestGenerate_RejectsUnsafeSpokeID(t *testing.T) {
	reg := parse(t, `
version: "1"
schema: s
spokes:
  "../escape": {tables: [t]}
tables:
  t:
    columns: [{name: id, type: uuid, required: true}]
`)
	_, err := Generate(reg)
	assert.True(t, errs.IsGeneration(err))
}

func TestWrite(t *testing.T) {
	root := t.TempDir()
	out := generate(t, parse(t, leadsRegistry))
	require.NoError(t, Write(root, out))

	for _, f := range out.Files() {
		got, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(f.Path)))
		require.NoError(t, err)
		assert.Equal(t, f.Content, string(got), f.Path)
	}

	// Rewriting is idempotent and leaves no temporary files behind.
	require.NoError(t, Write(root, out))
	entries, err := os.ReadDir(filepath.Join(root, "src", "data", "spokes", "public"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func section(t *testing.T, s, start, end string) string {
	t.Helper()
	i := strings.Index(s, start)
	require.GreaterOrEqual(t, i, 0, "%q not found", start)
	j := strings.Index(s[i:], end)
	require.GreaterOrEqual(t, j, 0, "%q not found after %q", end, start)
	return s[i : i+j]
}
