package datastore

import (
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/conf"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
)

const memoryPath = ":memory:"

// sqliteDSN adds the pragmas every connection needs. Foreign keys are off by
// default in SQLite and a busy timeout keeps concurrent writers from failing
// immediately with SQLITE_BUSY.
func sqliteDSN(path string) string {
	if path == memoryPath {
		return "file::memory:?_foreign_keys=on"
	}
	return "file:" + path + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
}

func openSQLite(settings conf.SQLiteSettings, gormCfg *gorm.Config) (*Store, error) {
	path := settings.Path
	if path == "" {
		return nil, validationError("sqlite path is empty", "database.sqlite.path", path)
	}

	if path != memoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.New(err).
					Component("datastore").
					Category(errors.CategoryFileIO).
					Context("operation", "create_database_directory").
					Context("path", dir).
					Build()
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), gormCfg)
	if err != nil {
		return nil, dbError(err, "open_sqlite", errors.PriorityCritical, "path", path)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, dbError(err, "get_sql_db", errors.PriorityCritical)
	}
	// SQLite allows one writer; a single connection also keeps an
	// in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)

	GetLogger().Info("opened SQLite database", logger.String("path", path))
	return &Store{DB: db, dialect: DialectSQLite}, nil
}
