package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"washbay/logging"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormLogger routes GORM output through the washbay logger
type gormLogger struct {
	level logger.LogLevel
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{level: level}
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Info {
		logging.Logger.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Warn {
		logging.Logger.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Error {
		logging.Logger.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level < logger.Info {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		logging.Logger.Error("gorm query error",
			"error", err,
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	case elapsed > slowQueryThreshold:
		logging.Logger.Warn("slow query",
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	default:
		logging.Logger.Debug("gorm query",
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	}
}

func newGormLogger(debug bool) logger.Interface {
	if debug {
		return (&gormLogger{}).LogMode(logger.Info)
	}
	return (&gormLogger{}).LogMode(logger.Silent)
}
