// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/tamods/routekit/internal/storage"
)

// Backend keeps the catalog in a map for the lifetime of the process.
type Backend struct {
	records map[string]storage.Record // keyed by FileName
	mu      sync.RWMutex
}

// New creates a new memory backend
func New() *Backend {
	return &Backend{
		records: make(map[string]storage.Record),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// Upsert inserts or replaces the record for rec.FileName.
func (b *Backend) Upsert(_ context.Context, rec storage.Record) error {
	if rec.FileName == "" {
		return fmt.Errorf("upsert: empty file name")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.records[rec.FileName] = rec
	return nil
}

// Get returns the record for fileName.
func (b *Backend) Get(_ context.Context, fileName string) (storage.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.records[fileName]
	if !ok {
		return storage.Record{}, fmt.Errorf("%s: %w", fileName, storage.ErrNotFound)
	}
	return rec, nil
}

// List returns the records matching q, ordered by file name.
func (b *Backend) List(_ context.Context, q storage.Query) ([]storage.Record, error) {
	b.mu.RLock()
	out := make([]storage.Record, 0, len(b.records))
	for _, rec := range b.records {
		if q.Match(rec) {
			out = append(out, rec)
		}
	}
	b.mu.RUnlock()

	slices.SortFunc(out, func(a, b storage.Record) int {
		return strings.Compare(a.FileName, b.FileName)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Delete removes the record for fileName.
func (b *Backend) Delete(_ context.Context, fileName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.records[fileName]; !ok {
		return fmt.Errorf("%s: %w", fileName, storage.ErrNotFound)
	}
	delete(b.records, fileName)
	return nil
}

// Len returns the number of records held.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}
