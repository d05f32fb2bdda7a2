package sqlitestorage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamods/routekit/internal/config"
	"github.com/tamods/routekit/internal/logging"
	"github.com/tamods/routekit/internal/storage"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestNew_InMemory(t *testing.T) {
	b, err := New(config.SQLiteConfig{}, logging.NewSlogManager())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	assert.Equal(t, "", b.Path())

	ctx := context.Background()
	require.NoError(t, b.Upsert(ctx, storage.Record{FileName: "a.route", Map: "Katabatic"}))
	got, err := b.Get(ctx, "a.route")
	require.NoError(t, err)
	assert.Equal(t, "Katabatic", got.Map)
}

func TestPersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()

	b, err := New(config.SQLiteConfig{Path: path}, logging.NewSlogManager())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.Upsert(ctx, storage.Record{FileName: "a.route"}))
	require.NoError(t, b.Close())

	reopened, err := New(config.SQLiteConfig{Path: path}, logging.NewSlogManager())
	require.NoError(t, err)
	require.NoError(t, reopened.Init())
	defer reopened.Close()

	recs, err := reopened.List(ctx, storage.Query{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "a.route", recs[0].FileName)
}

func TestBackup(t *testing.T) {
	ctx := context.Background()
	b, err := New(config.SQLiteConfig{}, logging.NewSlogManager())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()
	require.NoError(t, b.Upsert(ctx, storage.Record{FileName: "a.route", Map: "Drydock"}))

	dest := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, b.Backup(dest))
	_, err = os.Stat(dest)
	require.NoError(t, err)

	restored, err := New(config.SQLiteConfig{Path: dest}, logging.NewSlogManager())
	require.NoError(t, err)
	require.NoError(t, restored.Init())
	defer restored.Close()

	got, err := restored.Get(ctx, "a.route")
	require.NoError(t, err)
	assert.Equal(t, "Drydock", got.Map)
}

func TestBackup_NoPath(t *testing.T) {
	b, err := New(config.SQLiteConfig{}, logging.NewSlogManager())
	require.NoError(t, err)
	defer b.Close()
	assert.Error(t, b.Backup(""))
}
