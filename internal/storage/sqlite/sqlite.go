// Package sqlitestorage implements the storage.Backend interface on a
// SQLite file. It wraps the GORM backend and adds Backup.
package sqlitestorage

import (
	"fmt"
	"time"

	"github.com/tamods/routekit/internal/config"
	"github.com/tamods/routekit/internal/database"
	"github.com/tamods/routekit/internal/logging"
	gormstorage "github.com/tamods/routekit/internal/storage/gorm"

	"gorm.io/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db   *gorm.DB
	path string
	log  *logging.SlogManager
}

// New opens the catalog database at cfg.Path. An empty path keeps the
// catalog in memory for the life of the process.
func New(cfg config.SQLiteConfig, logManager *logging.SlogManager) (*Backend, error) {
	db, err := database.OpenSQLite(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite catalog: %w", err)
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:         db,
		LogManager: logManager,
	})

	return &Backend{
		Backend: gormBackend,
		db:      db,
		path:    cfg.Path,
		log:     logManager,
	}, nil
}

// Path returns the database file, or "" for an in-memory catalog.
func (b *Backend) Path() string {
	return b.path
}

// Backup writes a point-in-time copy of the catalog to path.
func (b *Backend) Backup(path string) error {
	start := time.Now()
	if err := database.DumpToDisk(b.db, path); err != nil {
		b.log.WriteLog("sqlite:Backup", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
		return err
	}
	b.log.WriteLog("sqlite:Backup", fmt.Sprintf("Dumped to %s in %s", path, time.Since(start)), "DEBUG")
	return nil
}
