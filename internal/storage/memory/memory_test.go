// internal/storage/memory/memory_test.go
package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamods/routekit/internal/library"
	"github.com/tamods/routekit/internal/storage"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

func rec(name, mapName string, team uint8) storage.Record {
	return storage.Record{FileName: name, Parsed: true, Map: mapName, TeamNum: team}
}

func TestInitAndClose(t *testing.T) {
	b := New()
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
}

func TestUpsertGet(t *testing.T) {
	ctx := context.Background()
	b := New()

	require.NoError(t, b.Upsert(ctx, rec("a.route", "Katabatic", 0)))
	got, err := b.Get(ctx, "a.route")
	require.NoError(t, err)
	assert.Equal(t, "Katabatic", got.Map)

	// Upsert replaces.
	require.NoError(t, b.Upsert(ctx, rec("a.route", "Drydock", 1)))
	got, err = b.Get(ctx, "a.route")
	require.NoError(t, err)
	assert.Equal(t, "Drydock", got.Map)
	assert.Equal(t, 1, b.Len())

	_, err = b.Get(ctx, "missing.route")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Error(t, b.Upsert(ctx, storage.Record{}))
}

func TestList(t *testing.T) {
	ctx := context.Background()
	b := New()
	require.NoError(t, b.Upsert(ctx, rec("c.route", "ArxNovena", 1)))
	require.NoError(t, b.Upsert(ctx, rec("a.route", "Katabatic", 0)))
	require.NoError(t, b.Upsert(ctx, rec("b.route", "ArxNovena", 0)))

	all, err := b.List(ctx, storage.Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a.route", all[0].FileName)
	assert.Equal(t, "c.route", all[2].FileName)

	arx, err := b.List(ctx, storage.Query{Filter: library.Filter{Map: "arx"}})
	require.NoError(t, err)
	assert.Len(t, arx, 2)

	team := uint8(0)
	arxDS, err := b.List(ctx, storage.Query{Filter: library.Filter{Map: "arx"}, Team: &team})
	require.NoError(t, err)
	require.Len(t, arxDS, 1)
	assert.Equal(t, "b.route", arxDS[0].FileName)

	limited, err := b.List(ctx, storage.Query{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	b := New()
	require.NoError(t, b.Upsert(ctx, rec("a.route", "Katabatic", 0)))

	require.NoError(t, b.Delete(ctx, "a.route"))
	assert.ErrorIs(t, b.Delete(ctx, "a.route"), storage.ErrNotFound)
	assert.Equal(t, 0, b.Len())
}

func TestConcurrentUpsert(t *testing.T) {
	ctx := context.Background()
	b := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = b.Upsert(ctx, rec(fmt.Sprintf("%02d.route", i), "m", 0))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, b.Len())
}
