package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamods/routekit/internal/codec"
	"github.com/tamods/routekit/internal/config"
	"github.com/tamods/routekit/internal/library"
	"github.com/tamods/routekit/internal/logging"
	"github.com/tamods/routekit/internal/storage"
	"github.com/tamods/routekit/internal/storage/memory"
	pgstorage "github.com/tamods/routekit/internal/storage/postgres"
	sqlitestorage "github.com/tamods/routekit/internal/storage/sqlite"
	"github.com/tamods/routekit/pkg/core"
)

const (
	katabatic = "CTF-Katabatic_DS_PTH_bob_(cap route)_0312.route"
	drydock   = "CTF-Drydock_BE_SEN_amy_(d)_0101.route"
)

type testEnv struct {
	t       *testing.T
	dir     string
	routes  string
	cfgPath string
}

func newTestEnv(t *testing.T, storageJSON string) *testEnv {
	t.Helper()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	e := &testEnv{
		t:       t,
		dir:     dir,
		routes:  filepath.Join(dir, "routes"),
		cfgPath: filepath.Join(dir, config.FileName),
	}
	require.NoError(t, os.MkdirAll(e.routes, 0o755))

	if storageJSON == "" {
		storageJSON = `{"type": "memory"}`
	}
	cfg := `{
		"logLevel": "debug",
		"logsDir": ` + quote(filepath.Join(dir, "logs")) + `,
		"routesDir": ` + quote(e.routes) + `,
		"storage": ` + storageJSON + `
	}`
	require.NoError(t, os.WriteFile(e.cfgPath, []byte(cfg), 0o644))
	return e
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func (e *testEnv) run(args ...string) (code int, stdout, stderr string) {
	viper.Reset()
	var out, errOut bytes.Buffer
	code = run(context.Background(), append([]string{"--config", e.cfgPath}, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

// logs returns the contents of every session log file written so far.
func (e *testEnv) logs() string {
	e.t.Helper()
	files, err := filepath.Glob(filepath.Join(e.dir, "logs", "*.log"))
	require.NoError(e.t, err)
	var sb strings.Builder
	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(e.t, err)
		sb.Write(data)
	}
	return sb.String()
}

func (e *testEnv) writeRoute(name string, route core.RouteFile) {
	e.t.Helper()
	require.NoError(e.t, os.WriteFile(filepath.Join(e.routes, name), codec.Encode(route), 0o644))
}

func (e *testEnv) readRoute(name string) core.RouteFile {
	e.t.Helper()
	data, err := os.ReadFile(filepath.Join(e.routes, name))
	require.NoError(e.t, err)
	route, err := codec.Decode(data)
	require.NoError(e.t, err)
	return route
}

func testRoute(team uint8) core.RouteFile {
	return core.RouteFile{
		Version:     1,
		MapName:     "CTF-Katabatic",
		ClassAbbr:   "PTH",
		PlayerName:  "bob",
		TeamNum:     team,
		ClassHealth: 900,
		RouteLength: 2,
		Positions: []core.Position{
			{Time: 0, Loc: core.Vec3{X: 10, Y: -5, Z: 100}, Vel: core.Vec3{X: 3}},
			{Time: 0.5, Loc: core.Vec3{X: 13, Y: -1, Z: 100}, Vel: core.Vec3{X: 3, Y: 4}},
		},
	}
}

func TestRun_NoArgs(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(context.Background(), nil, &out, &errOut)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut.String(), "Usage: routekit")
}

func TestRun_Help(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, 0, run(context.Background(), []string{"--help"}, &out, &errOut))
	assert.Contains(t, errOut.String(), "--routes-dir")
}

func TestRun_MissingConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{"--config", filepath.Join(t.TempDir(), "nope.json"), "list"}, &out, &errOut)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "error reading config file")
}

func TestRun_UnknownCommand(t *testing.T) {
	e := newTestEnv(t, "")

	code, _, stderr := e.run("explode")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "explode"`)

	code, _, _ = e.run("catalog.index", katabatic)
	assert.Equal(t, 2, code)
}

func TestRun_WritesLogFile(t *testing.T) {
	e := newTestEnv(t, "")
	code, _, _ := e.run("list")
	require.Equal(t, 0, code)

	logs, err := os.ReadDir(filepath.Join(e.dir, "logs"))
	require.NoError(t, err)
	require.Len(t, logs, 1)

	data, err := os.ReadFile(filepath.Join(e.dir, "logs", logs[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Starting up...")
	assert.Contains(t, string(data), "run=")
	assert.Contains(t, string(data), "command=list")
}

func TestVersion(t *testing.T) {
	e := newTestEnv(t, "")
	code, stdout, _ := e.run("version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "routekit "+CurrentVersion)
}

func TestList(t *testing.T) {
	e := newTestEnv(t, "")
	e.writeRoute(katabatic, testRoute(0))
	e.writeRoute(drydock, testRoute(1))
	e.writeRoute("junk.route", testRoute(0))
	require.NoError(t, os.WriteFile(filepath.Join(e.routes, "notes.txt"), []byte("x"), 0o644))

	code, stdout, _ := e.run("list")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, katabatic)
	assert.Contains(t, stdout, drydock)
	assert.Contains(t, stdout, "junk.route")
	assert.NotContains(t, stdout, "notes.txt")
	assert.Contains(t, stdout, "3 routes in "+e.routes)
}

func TestList_FilterJSON(t *testing.T) {
	e := newTestEnv(t, "")
	e.writeRoute(katabatic, testRoute(0))
	e.writeRoute(drydock, testRoute(1))

	code, stdout, _ := e.run("list", "--map", "kata", "--json")
	require.Equal(t, 0, code)

	var entries []library.Entry
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, katabatic, entries[0].Name)
	assert.Equal(t, "cap route", entries[0].Route.RouteName)
}

func TestList_MissingDir(t *testing.T) {
	e := newTestEnv(t, "")
	require.NoError(t, os.RemoveAll(e.routes))

	code, _, stderr := e.run("list")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "route not found")
}

func TestDecode_Text(t *testing.T) {
	e := newTestEnv(t, "")
	e.writeRoute(katabatic, testRoute(0))

	code, stdout, _ := e.run("decode", katabatic)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "mapName: CTF-Katabatic\n")
	assert.Contains(t, stdout, "--------------------------------------------------\n")
	assert.Contains(t, stdout, "time=0.5 loc=(13,-1,100)")
}

func TestDecode_SaveJSON(t *testing.T) {
	e := newTestEnv(t, "")
	e.writeRoute(katabatic, testRoute(0))

	code, stdout, _ := e.run("decode", "--format", "json", "--save", katabatic)
	require.Equal(t, 0, code)

	dest := "CTF-Katabatic_DS_PTH_bob_(cap route)_0312_decoded.json"
	assert.Contains(t, stdout, dest)

	data, err := os.ReadFile(filepath.Join(e.routes, dest))
	require.NoError(t, err)
	var got core.RouteFile
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, testRoute(0), got)
}

func TestDecode_PathOutsideLibrary(t *testing.T) {
	e := newTestEnv(t, "")
	other := filepath.Join(e.dir, "elsewhere")
	require.NoError(t, os.MkdirAll(other, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(other, "x.route"), codec.Encode(testRoute(1)), 0o644))

	out := filepath.Join(e.dir, "x.yaml")
	code, _, _ := e.run("decode", "-f", "yaml", "-o", out, filepath.Join(other, "x.route"))
	require.Equal(t, 0, code)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "teamNum: 1")
}

func TestDecode_Errors(t *testing.T) {
	e := newTestEnv(t, "")
	e.writeRoute(katabatic, testRoute(0))

	code, _, stderr := e.run("decode")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no route files given")

	code, _, stderr = e.run("decode", "--format", "xml", katabatic)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown dump format")

	code, _, stderr = e.run("decode", "missing.route")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "route not found")
}

func TestMirror(t *testing.T) {
	e := newTestEnv(t, "")
	e.writeRoute(katabatic, testRoute(0))

	code, stdout, _ := e.run("mirror", katabatic)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, katabatic+" -> m_"+katabatic)

	got := e.readRoute("m_" + katabatic)
	assert.Equal(t, uint8(1), got.TeamNum)
	assert.Equal(t, core.Vec3{X: -10, Y: 5, Z: 100}, got.Positions[0].Loc)
	assert.Equal(t, core.Vec3{X: 3, Y: 4}, got.Positions[1].Vel)

	code, stdout, _ = e.run("mirror", katabatic)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "route already exists")

	code, _, _ = e.run("mirror", "--overwrite", "--axis", "x", katabatic)
	require.Equal(t, 0, code)
	got = e.readRoute("m_" + katabatic)
	assert.Equal(t, core.Vec3{X: -10, Y: -5, Z: 100}, got.Positions[0].Loc)
}

func TestMirror_AllTeamTag(t *testing.T) {
	e := newTestEnv(t, "")
	e.writeRoute(katabatic, testRoute(0))
	e.writeRoute(drydock, testRoute(1))

	code, _, _ := e.run("mirror", "--all", "--naming", "teamtag", "--map", "katabatic")
	require.Equal(t, 0, code)

	_, err := os.Stat(filepath.Join(e.routes, "CTF-Katabatic_BE_PTH_bob_(cap route)_0312.route"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(e.routes, "CTF-Drydock_DS_SEN_amy_(d)_0101.route"))
	assert.True(t, os.IsNotExist(err))

	assert.Contains(t, e.logs(), `msg="Mirroring routes" axis=xy naming=teamtag files=1`)
}

func TestMirror_ConfigDefaults(t *testing.T) {
	e := newTestEnv(t, "")
	e.writeRoute(katabatic, testRoute(0))
	require.NoError(t, os.WriteFile(e.cfgPath, []byte(`{
		"logsDir": `+quote(filepath.Join(e.dir, "logs"))+`,
		"routesDir": `+quote(e.routes)+`,
		"mirror": {"axis": "y", "prefix": "flip_"}
	}`), 0o644))

	code, _, _ := e.run("mirror", katabatic)
	require.Equal(t, 0, code)
	got := e.readRoute("flip_" + katabatic)
	assert.Equal(t, core.Vec3{X: 10, Y: 5, Z: 100}, got.Positions[0].Loc)
}

func TestMirror_Errors(t *testing.T) {
	e := newTestEnv(t, "")
	e.writeRoute(katabatic, testRoute(0))

	code, _, stderr := e.run("mirror", "--axis", "z", katabatic)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown mirror axis")

	code, _, stderr = e.run("mirror", "--naming", "random", katabatic)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown naming strategy")

	code, _, stderr = e.run("mirror")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no route files given")

	code, stdout, stderr := e.run("mirror", katabatic, "missing.route")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "m_"+katabatic)
	assert.Contains(t, stderr, "1 of 2 routes failed")
}

func TestDelete(t *testing.T) {
	e := newTestEnv(t, "")
	e.writeRoute(katabatic, testRoute(0))

	code, stdout, _ := e.run("delete", katabatic)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "deleted "+katabatic)
	_, err := os.Stat(filepath.Join(e.routes, katabatic))
	assert.True(t, os.IsNotExist(err))

	code, _, stderr := e.run("delete", katabatic)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "route not found")

	code, _, stderr = e.run("delete", "..")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid route file name")
}

func TestCatalog_Memory(t *testing.T) {
	e := newTestEnv(t, "")
	e.writeRoute(katabatic, testRoute(0))
	e.writeRoute(drydock, testRoute(1))

	code, stdout, _ := e.run("catalog", "sync")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "indexed 2 routes, removed 0 stale records")

	code, stdout, _ = e.run("catalog", "list", "--team", "1", "--json")
	require.Equal(t, 0, code)
	var records []storage.Record
	require.NoError(t, json.Unmarshal([]byte(stdout), &records))
	require.Len(t, records, 1)
	assert.Equal(t, drydock, records[0].FileName)
	assert.Equal(t, "SEN", records[0].Class)
	assert.InDelta(t, 5.0, records[0].PathLength, 1e-6)

	code, stdout, _ = e.run("catalog")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, katabatic)
	assert.Contains(t, stdout, "DS")

	code, _, stderr := e.run("catalog", "backup", filepath.Join(e.dir, "b.db"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "backup needs the sqlite catalog")

	code, _, stderr = e.run("catalog", "prune")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `unknown catalog command "prune"`)
}

func TestCatalog_SQLite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "catalog.db")
	e := newTestEnv(t, `{"type": "sqlite", "sqlite": {"path": `+quote(dbPath)+`}}`)
	e.writeRoute(katabatic, testRoute(0))
	e.writeRoute(drydock, testRoute(1))

	code, stdout, _ := e.run("catalog", "sync")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "indexed 2 routes, removed 0 stale records")

	// Mirrored routes are catalogued as they are written.
	code, _, _ = e.run("mirror", katabatic)
	require.Equal(t, 0, code)

	code, stdout, _ = e.run("catalog", "list", "--json")
	require.Equal(t, 0, code)
	var records []storage.Record
	require.NoError(t, json.Unmarshal([]byte(stdout), &records))
	require.Len(t, records, 3)
	assert.Equal(t, "m_"+katabatic, records[2].FileName)
	assert.Equal(t, uint8(1), records[2].TeamNum)

	// Deleting a route drops its record.
	code, _, _ = e.run("delete", "m_"+katabatic)
	require.Equal(t, 0, code)

	// Files removed behind the catalog's back are pruned on sync.
	require.NoError(t, os.Remove(filepath.Join(e.routes, drydock)))
	code, stdout, _ = e.run("catalog", "sync")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "indexed 1 routes, removed 1 stale records")

	backup := filepath.Join(dir, "backup.db")
	code, stdout, _ = e.run("catalog", "backup", backup)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "catalog written to "+backup)
	_, err := os.Stat(backup)
	assert.NoError(t, err)
}

func TestCatalog_SkipsCorruptRoutes(t *testing.T) {
	e := newTestEnv(t, "")
	e.writeRoute(katabatic, testRoute(0))
	require.NoError(t, os.WriteFile(filepath.Join(e.routes, "broken.route"), []byte{1, 2, 3}, 0o644))

	code, stdout, _ := e.run("catalog", "sync")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "indexed 1 routes")
}

func TestCreateStorageBackend(t *testing.T) {
	logs := logging.NewSlogManager()

	b, err := createStorageBackend(config.StorageConfig{Type: "memory"}, logs)
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)

	b, err = createStorageBackend(config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "c.db")},
	}, logs)
	require.NoError(t, err)
	assert.IsType(t, &sqlitestorage.Backend{}, b)
	require.NoError(t, b.Close())

	b, err = createStorageBackend(config.StorageConfig{Type: "postgres"}, logs)
	require.NoError(t, err)
	assert.IsType(t, &pgstorage.Backend{}, b)

	_, err = createStorageBackend(config.StorageConfig{Type: "mongo"}, logs)
	assert.ErrorContains(t, err, `unknown storage type "mongo"`)
}
