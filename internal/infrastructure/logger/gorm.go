package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowQuery = 200 * time.Millisecond

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
	"debug":  gormlogger.Info,
}

// GormLogger routes gorm's statement log into zap. Statements carry the
// operation and trace ids found on the context.
type GormLogger struct {
	logger                    *zap.Logger
	sugar                     *zap.SugaredLogger
	logLevel                  gormlogger.LogLevel
	slowThreshold             time.Duration
	ignoreRecordNotFoundError bool
	quietDuplicateKey         bool
}

type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged
// as slow. Zero disables slow-query warnings.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowThreshold = threshold }
}

func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) { l.ignoreRecordNotFoundError = ignore }
}

// WithQuietDuplicateKey logs unique violations at debug instead of error.
// Barcode allocation retries on collisions, so these are routine.
func WithQuietDuplicateKey(quiet bool) GormLoggerOption {
	return func(l *GormLogger) { l.quietDuplicateKey = quiet }
}

func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	named := zapLogger.Named("gorm")
	gl := &GormLogger{
		logger:                    named,
		sugar:                     named.Sugar(),
		logLevel:                  level,
		slowThreshold:             defaultSlowQuery,
		ignoreRecordNotFoundError: true,
		quietDuplicateKey:         true,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.logLevel = level
	return &clone
}

func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Info {
		l.sugar.Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Warn {
		l.sugar.Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Error {
		l.sugar.Errorf(msg, data...)
	}
}

// Trace is called by gorm after every statement.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	if err != nil {
		if l.logLevel < gormlogger.Error {
			return
		}
		if l.ignoreRecordNotFoundError && errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		fields := append(l.queryFields(ctx, elapsed, fc), zap.Error(err))
		if l.quietDuplicateKey && isDuplicateKey(err) {
			l.logger.Debug("SQL unique violation", fields...)
			return
		}
		l.logger.Error("SQL Error", fields...)
		return
	}

	if l.slowThreshold > 0 && elapsed > l.slowThreshold && l.logLevel >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf("SLOW SQL >= %v", l.slowThreshold), l.queryFields(ctx, elapsed, fc)...)
		return
	}
	if l.logLevel >= gormlogger.Info {
		l.logger.Debug("SQL Query", l.queryFields(ctx, elapsed, fc)...)
	}
}

func (l *GormLogger) queryFields(ctx context.Context, elapsed time.Duration, fc func() (string, int64)) []zap.Field {
	sql, rows := fc()
	fields := make([]zap.Field, 0, 6)
	fields = append(fields,
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)
	if id := GetOperationID(ctx); id != "" {
		fields = append(fields, zap.String("operation_id", id))
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}
	return fields
}

// Trace runs before gorm's TranslateError, so match driver text as well.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// MapGormLogLevel maps a config level name to gorm's level, defaulting to warn.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	if l, ok := gormLevels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l
	}
	return gormlogger.Warn
}
