package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djb258/client-sub001/internal/codegen"
	"github.com/djb258/client-sub001/internal/config"
	"github.com/djb258/client-sub001/internal/database"
	"github.com/djb258/client-sub001/internal/database/sqlite"
	"github.com/djb258/client-sub001/internal/errs"
	"github.com/djb258/client-sub001/internal/server"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func execute(t *testing.T, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

// project copies a registry fixture into a fresh root at the default path.
func project(t *testing.T, fixture string) string {
	t.Helper()
	for _, k := range []string{"REGISTRY_ROOT", "REGISTRY_PATH", "APP_ENV", "NODE_ENV", "MIGRATIONS_BUCKET", "MIGRATIONS_DIR"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	root := t.TempDir()
	data, err := os.ReadFile(filepath.Join("../../internal/registry/testdata", fixture))
	require.NoError(t, err)
	dst := filepath.Join(root, config.DefaultRegistryPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
	require.NoError(t, os.WriteFile(dst, data, 0o644))
	return root
}

func TestGenerateThenVerify(t *testing.T) {
	root := project(t, "clnt_column_registry.yml")

	res := execute(t, "generate", "--root", root)
	require.Equal(t, errs.ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "wrote "+codegen.ERDPath)

	res = execute(t, "verify", "--root", root)
	assert.Equal(t, errs.ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "PASS")

	require.NoError(t, os.WriteFile(filepath.Join(root, codegen.SchemaSQLPath), []byte("-- edited\n"), 0o644))
	res = execute(t, "verify", "--root", root, "--json")
	assert.Equal(t, errs.ExitDivergence, res.code)
	assert.Contains(t, res.stdout, `"status": "FAIL"`)
	assert.Contains(t, res.stdout, codegen.SchemaSQLPath)
}

func TestVerify_MissingRegistry(t *testing.T) {
	root := project(t, "leads.yml")
	res := execute(t, "verify", "--root", root, "--registry", "nope.yml")
	assert.Equal(t, errs.ExitInfrastructure, res.code)
}

func TestLint(t *testing.T) {
	root := project(t, "clnt_column_registry.yml")
	res := execute(t, "lint", "--root", root)
	assert.Equal(t, errs.ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "PASSED")

	// leads.yml has no table description.
	root = project(t, "leads.yml")
	res = execute(t, "lint", "--root", root)
	assert.Equal(t, errs.ExitDivergence, res.code)
}

func TestValidate_NeedsGatewaySettings(t *testing.T) {
	root := project(t, "leads.yml")
	t.Setenv("COMPOSIO_SERVER_URL", "")
	t.Setenv("COMPOSIO_API_KEY", "")

	res := execute(t, "validate", "--root", root)
	assert.Equal(t, errs.ExitInfrastructure, res.code)
}

func TestUnknownFlag(t *testing.T) {
	res := execute(t, "verify", "--no-such-flag")
	assert.Equal(t, errs.ExitInfrastructure, res.code)
	assert.Contains(t, res.stderr, "unknown flag")
}

func TestMigrate_DryRunInProduction(t *testing.T) {
	root := project(t, "leads.yml")
	t.Setenv("APP_ENV", "production")

	res := execute(t, "migrate", "--root", root, "--dry-run")
	require.Equal(t, errs.ExitOK, res.code, res.stderr)
	assert.Equal(t, "  would apply 01_schema.sql\n  would apply 02_views.sql\n", res.stdout)
}

// TestMigrateThenValidate drives both gateway commands against a local
// gateway over SQLite.
func TestMigrateThenValidate(t *testing.T) {
	root := project(t, "leads.yml")

	db, err := sqlite.New(context.Background(), database.DefaultConfig(database.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "gw.db")))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	srv, err := server.New(db, server.Options{APIKey: "k", QueryTimeout: 5 * time.Second})
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	t.Setenv("COMPOSIO_SERVER_URL", ts.URL)
	t.Setenv("COMPOSIO_API_KEY", "k")
	t.Setenv("MIGRATIONS_DIR", "db/neon")

	dir := filepath.Join(root, "db", "neon")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	files := map[string]string{
		"01_schema.sql": "CREATE TABLE leads (id TEXT NOT NULL, email TEXT NOT NULL, score TEXT);",
		"02_views.sql":  "CREATE VIEW lead_emails AS SELECT email FROM leads;",
		"03_seed.sql":   "INSERT INTO leads (id, email) VALUES ('1', 'a@example.com');",
	}
	for name, sql := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644))
	}

	res := execute(t, "migrate", "--root", root)
	require.Equal(t, errs.ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Applied 3 migration(s) to public")

	// score is TEXT live but integer in the registry.
	res = execute(t, "validate", "--root", root)
	assert.Equal(t, errs.ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "[WARNING] type mismatch on public.leads.score")

	res = execute(t, "validate", "--root", root, "--strict")
	assert.Equal(t, errs.ExitDivergence, res.code)
	assert.Contains(t, res.stdout, "FAILED: 1 error(s), 0 warning(s)")
}
