// Package datastore persists the species catalog and sightings with GORM on
// SQLite or MySQL.
package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/conf"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
)

// DefaultSlowQueryThreshold is used when the settings leave it unset.
const DefaultSlowQueryThreshold = 200 * time.Millisecond

const (
	DialectSQLite = "sqlite"
	DialectMySQL  = "mysql"
)

// Store owns the database connection.
type Store struct {
	DB      *gorm.DB
	dialect string
}

// Open connects to the configured backend and migrates the schema.
func Open(settings *conf.DatabaseSettings) (*Store, error) {
	threshold := settings.SlowQueryThreshold
	if threshold <= 0 {
		threshold = DefaultSlowQueryThreshold
	}
	gormCfg := &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(GetLogger().Module("sql"), threshold),
		// Map driver unique violations onto gorm.ErrDuplicatedKey
		TranslateError: true,
	}

	var (
		store *Store
		err   error
	)
	switch settings.Type {
	case DialectSQLite, "":
		store, err = openSQLite(settings.SQLite, gormCfg)
	case DialectMySQL:
		store, err = openMySQL(settings.MySQL, gormCfg)
	default:
		return nil, validationError(fmt.Sprintf("unsupported database type %q", settings.Type), "database.type", settings.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := store.migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// migrate creates or updates the tables. Species comes first for the
// sightings foreign key.
func (s *Store) migrate() error {
	start := time.Now()
	if err := s.DB.AutoMigrate(&Species{}, &Sighting{}); err != nil {
		return dbError(err, "auto_migrate", errors.PriorityCritical, "dialect", s.dialect)
	}
	GetLogger().Debug("database schema migrated",
		logger.String("dialect", s.dialect),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

// Dialect returns "sqlite" or "mysql".
func (s *Store) Dialect() string {
	return s.dialect
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return dbError(err, "get_sql_db", "")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dbError(err, "ping", errors.PriorityHigh, "dialect", s.dialect)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return dbError(err, "get_sql_db", "")
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", "", "dialect", s.dialect)
	}
	GetLogger().Debug("database connection closed", logger.String("dialect", s.dialect))
	return nil
}

// Species returns a repository for the species catalog.
func (s *Store) Species() SpeciesRepository {
	return NewSpeciesRepository(s.DB)
}

// Sightings returns a repository for sightings.
func (s *Store) Sightings() SightingRepository {
	return NewSightingRepository(s.DB)
}
