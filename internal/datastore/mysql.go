package datastore

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/conf"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
)

const (
	mysqlMaxOpenConns    = 25
	mysqlMaxIdleConns    = 5
	mysqlConnMaxLifetime = 30 * time.Minute
)

func openMySQL(settings conf.MySQLSettings, gormCfg *gorm.Config) (*Store, error) {
	db, err := gorm.Open(mysql.Open(settings.DSN()), gormCfg)
	if err != nil {
		GetLogger().Error("failed to open MySQL database",
			logger.String("host", settings.Host),
			logger.String("port", settings.Port),
			logger.String("database", settings.Database),
			logger.Error(err))
		return nil, dbError(err, "open_mysql", errors.PriorityCritical,
			"host", settings.Host,
			"database", settings.Database)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, dbError(err, "get_sql_db", errors.PriorityCritical)
	}
	sqlDB.SetMaxOpenConns(mysqlMaxOpenConns)
	sqlDB.SetMaxIdleConns(mysqlMaxIdleConns)
	sqlDB.SetConnMaxLifetime(mysqlConnMaxLifetime)

	GetLogger().Info("opened MySQL database",
		logger.String("host", settings.Host),
		logger.String("database", settings.Database))
	return &Store{DB: db, dialect: DialectMySQL}, nil
}
