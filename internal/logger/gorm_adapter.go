package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerAdapter routes GORM's logging into a module logger.
// SQL statements are logged at TRACE, so they only appear when the
// datastore module level is "trace".
//
//	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
//	    Logger: logger.NewGormLoggerAdapter(log.Module("gorm"), 200*time.Millisecond),
//	})
type GormLoggerAdapter struct {
	logger        Logger
	slowThreshold time.Duration
}

// NewGormLoggerAdapter creates a GORM logger. Queries slower than
// slowThreshold are logged at WARN; 0 disables slow query warnings.
func NewGormLoggerAdapter(logger Logger, slowThreshold time.Duration) *GormLoggerAdapter {
	if logger == nil {
		logger = NewSlogLogger(nil, LogLevelInfo, nil)
	}
	return &GormLoggerAdapter{
		logger:        logger,
		slowThreshold: slowThreshold,
	}
}

// LogMode returns the adapter itself; levels come from the logging config.
func (a *GormLoggerAdapter) LogMode(_ gormlogger.LogLevel) gormlogger.Interface {
	return a
}

func (a *GormLoggerAdapter) Info(ctx context.Context, msg string, data ...any) {
	a.logger.WithContext(ctx).Debug(fmt.Sprintf(msg, data...))
}

func (a *GormLoggerAdapter) Warn(ctx context.Context, msg string, data ...any) {
	a.logger.WithContext(ctx).Warn(fmt.Sprintf(msg, data...))
}

func (a *GormLoggerAdapter) Error(ctx context.Context, msg string, data ...any) {
	a.logger.WithContext(ctx).Error(fmt.Sprintf(msg, data...))
}

// Trace logs one executed statement. Record-not-found is an expected outcome
// of lookups and is not treated as a query error.
func (a *GormLoggerAdapter) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	log := a.logger.WithContext(ctx)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		log.Warn("query error",
			String("sql", sql),
			Int64("rows_affected", rows),
			Duration("elapsed", elapsed),
			Error(err))

	case a.slowThreshold > 0 && elapsed > a.slowThreshold:
		log.Warn("slow query",
			String("sql", sql),
			Int64("rows_affected", rows),
			Duration("elapsed", elapsed),
			Duration("threshold", a.slowThreshold))

	default:
		log.Trace("sql query",
			String("sql", sql),
			Int64("rows_affected", rows),
			Duration("elapsed", elapsed))
	}
}
