// Package pgstorage implements the storage.Backend interface on Postgres.
package pgstorage

import (
	"fmt"

	"github.com/tamods/routekit/internal/config"
	"github.com/tamods/routekit/internal/database"
	"github.com/tamods/routekit/internal/logging"
	gormstorage "github.com/tamods/routekit/internal/storage/gorm"
	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the Postgres backend. DB may be
// nil, in which case Init connects using Config.
type Dependencies struct {
	DB         *gorm.DB
	Config     config.DBConfig
	LogManager *logging.SlogManager
}

// Backend wraps the GORM backend and owns the Postgres connection.
type Backend struct {
	*gormstorage.Backend
	deps Dependencies
}

// New creates a Postgres backend. No connection is made until Init.
func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// Init connects if needed and migrates the catalog schema.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.OpenPostgres(b.deps.Config)
		if err != nil {
			return err
		}
		b.deps.DB = db
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:         b.deps.DB,
		LogManager: b.deps.LogManager,
	})
	if err := b.Backend.Init(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.deps.LogManager.WriteLog("setupDB", "Database setup complete", "INFO")
	return nil
}

// Close closes the connection if Init succeeded.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}
