package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamods/routekit/internal/config"
)

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.DBConfig{
		Host:     "db",
		Port:     "5433",
		Username: "u",
		Password: "p",
		Database: "routes",
	})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=routes sslmode=disable", dsn)

	dsn = PostgresDSN(config.DBConfig{Host: "db", SSLMode: "require"})
	assert.Contains(t, dsn, "sslmode=require")
}

func TestOpenSQLite_Memory(t *testing.T) {
	db, err := OpenSQLite("")
	require.NoError(t, err)

	require.NoError(t, db.Exec("CREATE TABLE t (v INTEGER)").Error)
	require.NoError(t, db.Exec("INSERT INTO t (v) VALUES (1)").Error)

	var n int64
	require.NoError(t, db.Table("t").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestDumpToDisk(t *testing.T) {
	db, err := OpenSQLite("")
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE t (v INTEGER)").Error)
	require.NoError(t, db.Exec("INSERT INTO t (v) VALUES (42)").Error)

	path := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, DumpToDisk(db, path))
	// A second dump replaces the first.
	require.NoError(t, DumpToDisk(db, path))

	restored, err := OpenSQLite(path)
	require.NoError(t, err)

	var v int
	require.NoError(t, restored.Raw("SELECT v FROM t").Scan(&v).Error)
	assert.Equal(t, 42, v)
}

func TestDumpToDisk_NoPath(t *testing.T) {
	db, err := OpenSQLite("")
	require.NoError(t, err)
	assert.Error(t, DumpToDisk(db, ""))
}
