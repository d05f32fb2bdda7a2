// Package gormstorage implements the storage.Backend interface on GORM. The
// SQLite and Postgres backends embed it and only differ in how the
// connection is opened.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tamods/routekit/internal/logging"
	"github.com/tamods/routekit/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
}

// Backend stores catalog records in a SQL database.
type Backend struct {
	db  *gorm.DB
	log *logging.SlogManager
}

// New creates a new GORM backend
func New(deps Dependencies) *Backend {
	return &Backend{
		db:  deps.DB,
		log: deps.LogManager,
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// Init migrates the catalog schema.
func (b *Backend) Init() error {
	if b.db == nil {
		return fmt.Errorf("gorm backend: no database connection")
	}
	if err := b.db.AutoMigrate(&storage.Record{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	b.log.Logger().Debug("Catalog schema migrated", "dialect", b.db.Dialector.Name())
	return nil
}

// Close closes the underlying connection pool.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}

// Upsert inserts rec or replaces the row with the same file name.
func (b *Backend) Upsert(ctx context.Context, rec storage.Record) error {
	if rec.FileName == "" {
		return fmt.Errorf("upsert: empty file name")
	}
	err := b.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "file_name"}},
			UpdateAll: true,
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert %s: %w", rec.FileName, err)
	}
	return nil
}

// Get returns the record for fileName.
func (b *Backend) Get(ctx context.Context, fileName string) (storage.Record, error) {
	var rec storage.Record
	err := b.db.WithContext(ctx).Where("file_name = ?", fileName).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.Record{}, fmt.Errorf("%s: %w", fileName, storage.ErrNotFound)
	}
	if err != nil {
		return storage.Record{}, fmt.Errorf("get %s: %w", fileName, err)
	}
	return rec, nil
}

// List returns the records matching q, ordered by file name.
func (b *Backend) List(ctx context.Context, q storage.Query) ([]storage.Record, error) {
	tx := b.db.WithContext(ctx).Model(&storage.Record{})

	f := q.Filter
	if !f.IsZero() {
		tx = tx.Where("parsed = ?", true)
	}
	for column, value := range map[string]string{
		"game_mode":     f.GameMode,
		"map":           f.Map,
		"side":          f.Side,
		"class":         f.Class,
		"username":      f.Username,
		"route_name":    f.RouteName,
		"recorded_time": f.Time,
	} {
		if value == "" {
			continue
		}
		tx = tx.Where("LOWER("+column+") LIKE ?", "%"+strings.ToLower(value)+"%")
	}
	if q.Team != nil {
		tx = tx.Where("team_num = ?", *q.Team)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var recs []storage.Record
	if err := tx.Order("file_name").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return recs, nil
}

// Delete removes the record for fileName.
func (b *Backend) Delete(ctx context.Context, fileName string) error {
	res := b.db.WithContext(ctx).Where("file_name = ?", fileName).Delete(&storage.Record{})
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", fileName, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", fileName, storage.ErrNotFound)
	}
	return nil
}
