package pgstorage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamods/routekit/internal/config"
	"github.com/tamods/routekit/internal/database"
	"github.com/tamods/routekit/internal/logging"
	"github.com/tamods/routekit/internal/storage"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestNew(t *testing.T) {
	b := New(Dependencies{LogManager: logging.NewSlogManager()})
	require.NotNil(t, b)
	assert.NoError(t, b.Close())
}

func TestInit_ConnectionRefused(t *testing.T) {
	b := New(Dependencies{
		Config: config.DBConfig{
			Host:     "127.0.0.1",
			Port:     "1",
			Username: "routekit",
			Database: "routekit",
		},
		LogManager: logging.NewSlogManager(),
	})
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

// An injected connection skips dialing; SQLite stands in for Postgres.
func TestInit_InjectedDB(t *testing.T) {
	db, err := database.OpenSQLite("")
	require.NoError(t, err)

	b := New(Dependencies{DB: db, LogManager: logging.NewSlogManager()})
	require.NoError(t, b.Init())
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.Upsert(ctx, storage.Record{FileName: "a.route", Class: "PTH"}))
	recs, err := b.List(ctx, storage.Query{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "PTH", recs[0].Class)
}
