package main

import (
	"context"
	"fmt"

	"github.com/tamods/routekit/internal/config"
	"github.com/tamods/routekit/internal/logging"
	"github.com/tamods/routekit/internal/storage"
	"github.com/tamods/routekit/internal/storage/memory"
	pgstorage "github.com/tamods/routekit/internal/storage/postgres"
	sqlitestorage "github.com/tamods/routekit/internal/storage/sqlite"
)

// openCatalog creates and initializes the configured catalog backend once
// per run. The memory backend starts empty, so it is filled from the
// routes directory straight away.
func (a *app) openCatalog(ctx context.Context) (storage.Backend, error) {
	if a.storageBackend != nil {
		return a.storageBackend, nil
	}

	storageCfg := config.GetStorageConfig()
	backend, err := createStorageBackend(storageCfg, a.slogManager)
	if err != nil {
		a.logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		a.logger.Error("Failed to initialize storage backend", "error", err)
		backend.Close()
		return nil, err
	}
	a.storageBackend = backend

	if storageCfg.Type == "memory" || storageCfg.Type == "" {
		if _, _, err := a.syncCatalog(ctx); err != nil {
			return nil, err
		}
	}
	return backend, nil
}

// persistentCatalog opens the catalog unless it is the in-memory one,
// which would not outlive this run.
func (a *app) persistentCatalog(ctx context.Context) (storage.Backend, error) {
	switch config.GetStorageConfig().Type {
	case "memory", "":
		return nil, nil
	}
	return a.openCatalog(ctx)
}

func createStorageBackend(storageCfg config.StorageConfig, logManager *logging.SlogManager) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		logManager.Logger().Info("Postgres storage backend initialized")
		return pgstorage.New(pgstorage.Dependencies{
			Config:     storageCfg.Postgres,
			LogManager: logManager,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, logManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logManager.Logger().Info("SQLite storage backend initialized", "path", storageCfg.SQLite.Path)
		return backend, nil

	case "memory", "":
		logManager.Logger().Info("Memory storage backend initialized")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}
