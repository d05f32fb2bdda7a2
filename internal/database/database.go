package database

import (
	"fmt"
	"os"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/tamods/routekit/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryDSN opens a private in-memory SQLite database.
const MemoryDSN = "file::memory:"

// PostgresDSN builds the connection string for cfg.
func PostgresDSN(cfg config.DBConfig) string {
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=%s`,
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, sslmode)
}

// OpenPostgres returns a connection to the Postgres database described by cfg.
func OpenPostgres(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  PostgresDSN(cfg),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate postgres connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)

	return db, nil
}

// OpenSQLite returns a connection to a SQLite database at path.
// If path is empty, uses an in-memory database.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = MemoryDSN
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %q: %w", dsn, err)
	}

	// An in-memory database exists per connection.
	if path == "" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql interface: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	for _, pragma := range sqlitePragmas(path == "") {
		if err := db.Exec("PRAGMA " + pragma).Error; err != nil {
			return nil, fmt.Errorf("sqlite PRAGMA %s: %w", pragma, err)
		}
	}

	return db, nil
}

// sqlitePragmas tunes the catalog for a single writer. A memory database
// cannot use a write-ahead log.
func sqlitePragmas(inMemory bool) []string {
	journal := "journal_mode = WAL"
	if inMemory {
		journal = "journal_mode = MEMORY"
	}
	return []string{
		"user_version = 1",
		journal,
		"synchronous = NORMAL",
		"cache_size = -32000",
		"temp_store = MEMORY",
	}
}

// DumpToDisk copies a SQLite database into a standalone file with
// VACUUM INTO, replacing any file already at path.
func DumpToDisk(db *gorm.DB, path string) error {
	if path == "" {
		return fmt.Errorf("sqlite file path not set")
	}

	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}

	quoted := "'" + strings.ReplaceAll(path, "'", "''") + "'"
	if err := db.Exec("VACUUM INTO " + quoted + ";").Error; err != nil {
		return fmt.Errorf("error dumping DB to disk: %w", err)
	}
	return nil
}
