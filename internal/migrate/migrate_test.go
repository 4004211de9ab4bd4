package migrate

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djb258/client-sub001/internal/errs"
	"github.com/djb258/client-sub001/internal/filestore"
	"github.com/djb258/client-sub001/internal/gateway"
	"github.com/djb258/client-sub001/internal/gateway/gatewaytest"
	"github.com/djb258/client-sub001/internal/logger"
)

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, sql := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644))
	}
	return dir
}

func executedFiles(reqs []gateway.ExecuteRequest) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = strings.TrimSpace(r.SQL)
	}
	return out
}

func TestRun_InOrder(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"01_schema.sql": "-- schema",
		"02_views.sql":  "-- views",
		"03_seed.sql":   "-- seed",
	})
	gw := gatewaytest.New()
	r := &Runner{Gateway: gw, Source: DirSource{Dir: dir}, Schema: "clnt", Seed: DefaultSeed}

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"-- schema", "-- views", "-- seed"}, executedFiles(gw.Executed()))
	require.Len(t, res.Steps, 3)
	assert.Equal(t, "01_schema.sql", res.Steps[0].File)
	assert.Equal(t, "job-1", res.Steps[0].JobID)
	assert.False(t, res.SeedSkipped)
	for _, req := range gw.Executed() {
		assert.Equal(t, "clnt", req.Schema)
		assert.True(t, req.Migration)
	}
}

func TestRun_HaltsOnFirstFailure(t *testing.T) {
	dir := writeMigrations(t, map[string]string{"a.sql": "A", "b.sql": "B", "c.sql": "C"})
	gw := gatewaytest.New().FailExecute(func(req gateway.ExecuteRequest) error {
		if req.SQL == "B" {
			return errs.New(errs.ErrKindGateway, "syntax error")
		}
		return nil
	})
	r := &Runner{Gateway: gw, Source: DirSource{Dir: dir}, Schema: "s", Files: []string{"a.sql", "b.sql", "c.sql"}}

	res, err := r.Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, errs.ErrKindMigration, errs.KindOf(err))
	assert.Equal(t, errs.ExitDivergence, errs.ExitCode(err))
	assert.Contains(t, err.Error(), "b.sql")
	assert.Contains(t, err.Error(), "syntax error", "cause is preserved")

	assert.Equal(t, []string{"A", "B"}, executedFiles(gw.Executed()), "c.sql is never attempted")
	require.Len(t, res.Steps, 1)
	assert.Equal(t, "a.sql", res.Steps[0].File)
}

func TestRun_MissingFileFailsBeforeExecuting(t *testing.T) {
	dir := writeMigrations(t, map[string]string{"01_schema.sql": "S"})
	gw := gatewaytest.New()
	r := &Runner{Gateway: gw, Source: DirSource{Dir: dir}, Schema: "s"}

	res, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.ErrKindMigration, errs.KindOf(err))
	assert.True(t, errs.IsNotFound(errors.Unwrap(err)))
	assert.Contains(t, err.Error(), "02_views.sql")
	assert.Empty(t, gw.Executed(), "nothing runs when a planned file is missing")
	assert.Empty(t, res.Steps)
}

// lazySource reads like DirSource but cannot check ahead of time.
type lazySource struct{ dir DirSource }

func (s lazySource) Read(ctx context.Context, name string) ([]byte, error) { return s.dir.Read(ctx, name) }
func (s lazySource) String() string                                       { return "lazy" }

func TestRun_UncheckedSourceHaltsAtMissingFile(t *testing.T) {
	dir := writeMigrations(t, map[string]string{"01_schema.sql": "S"})
	gw := gatewaytest.New()
	r := &Runner{Gateway: gw, Source: lazySource{dir: DirSource{Dir: dir}}, Schema: "s"}

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "02_views.sql: read")
	assert.Len(t, gw.Executed(), 1)
}

func TestRun_SeedSkippedInProduction(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"01_schema.sql": "S",
		"02_views.sql":  "V",
		"03_seed.sql":   "SEED",
	})
	gw := gatewaytest.New()
	var buf bytes.Buffer
	r := &Runner{
		Gateway:    gw,
		Source:     DirSource{Dir: dir},
		Schema:     "clnt",
		Seed:       DefaultSeed,
		Production: true,
		Logger:     logger.New(&logger.Config{Level: "info", Output: &buf}),
	}

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"S", "V"}, executedFiles(gw.Executed()))
	assert.True(t, res.SeedSkipped)
	assert.Contains(t, buf.String(), "seed skipped")
	assert.Contains(t, buf.String(), `"job_id":"job-2"`)
}

func TestRun_RequiresWiring(t *testing.T) {
	_, err := (&Runner{Schema: "s"}).Run(context.Background())
	assert.True(t, errs.IsConfig(err))

	_, err = (&Runner{Gateway: gatewaytest.New(), Source: DirSource{Dir: "."}}).Run(context.Background())
	assert.True(t, errs.IsConfig(err))
}

func TestPlan(t *testing.T) {
	r := &Runner{Seed: DefaultSeed}
	assert.Equal(t, []string{"01_schema.sql", "02_views.sql", "03_seed.sql"}, r.Plan())

	r.Production = true
	assert.Equal(t, []string{"01_schema.sql", "02_views.sql"}, r.Plan())

	r = &Runner{Files: []string{"x.sql"}}
	assert.Equal(t, []string{"x.sql"}, r.Plan())
}

// memStore is an in-memory filestore.Store.
type memStore struct {
	mu      sync.Mutex
	objects map[string]string
	gets    []string
	stats   []string
	// size overrides the reported object size when non-zero.
	size int64
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

func (m *memStore) StatObject(_ context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = append(m.stats, bucket+"/"+key)
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "no object %s", key)
	}
	return &filestore.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memStore) GetObject(_ context.Context, bucket, key string) (filestore.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets = append(m.gets, bucket+"/"+key)
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "no object %s", key)
	}
	size := int64(len(data))
	if m.size != 0 {
		size = m.size
	}
	return memObject{Reader: strings.NewReader(data), info: &filestore.ObjectInfo{Key: key, Size: size}}, nil
}

type memObject struct {
	io.Reader
	info *filestore.ObjectInfo
}

func (o memObject) Close() error                  { return nil }
func (o memObject) Info() *filestore.ObjectInfo { return o.info }

func TestRun_FromObjectStore(t *testing.T) {
	store := &memStore{objects: map[string]string{
		"migrations/neon/01_schema.sql": "S",
		"migrations/neon/02_views.sql":  "V",
	}}
	gw := gatewaytest.New()
	r := &Runner{
		Gateway: gw,
		Source:  StoreSource{Store: store, Bucket: "migrations", Prefix: "neon"},
		Schema:  "clnt",
	}

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"S", "V"}, executedFiles(gw.Executed()))
	keys := []string{"migrations/neon/01_schema.sql", "migrations/neon/02_views.sql"}
	assert.Equal(t, keys, store.stats)
	assert.Equal(t, keys, store.gets)
}

func TestRun_FromObjectStoreMissingKey(t *testing.T) {
	store := &memStore{objects: map[string]string{"b/01_schema.sql": "S"}}
	gw := gatewaytest.New()
	r := &Runner{Gateway: gw, Source: StoreSource{Store: store, Bucket: "b"}, Schema: "s"}

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "02_views.sql: check")
	assert.Empty(t, gw.Executed())
	assert.Empty(t, store.gets)
}

func TestStoreSource_ShortRead(t *testing.T) {
	src := StoreSource{Store: &memStore{objects: map[string]string{"b/x.sql": "SELECT 1"}, size: 100}, Bucket: "b"}
	_, err := src.Read(context.Background(), "x.sql")
	assert.True(t, errs.IsConnectionFailed(err))
	assert.Contains(t, err.Error(), "got 8 of 100 bytes")
}

func TestStoreSource_Missing(t *testing.T) {
	src := StoreSource{Store: &memStore{objects: map[string]string{}}, Bucket: "b"}
	_, err := src.Read(context.Background(), "01_schema.sql")
	assert.True(t, errs.IsNotFound(err))
}
