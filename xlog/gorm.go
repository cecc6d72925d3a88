package xlog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	glogger "gorm.io/gorm/logger"
	gutils "gorm.io/gorm/utils"
)

var _ glogger.Interface = (*GormXLogger)(nil)

// GormXLogger filters by its own gorm level first, the entries left are
// subject to the level of the parent logger.
type GormXLogger struct {
	logger    XLogger
	cfg       glogger.Config
	gormLevel atomic.Int32
}

func (l *GormXLogger) level() glogger.LogLevel {
	return glogger.LogLevel(l.gormLevel.Load())
}

// LogMode is called by gorm sessions (db.Debug()), the level is shared
// by every session of the DB.
func (l *GormXLogger) LogMode(lvl glogger.LogLevel) glogger.Interface {
	l.gormLevel.Store(int32(lvl))
	return l
}

func (l *GormXLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level() >= glogger.Info {
		l.logger.InfoContext(ctx, fmt.Sprintf(msg, data...), zap.String("fileAndLine", gutils.FileWithLineNum()))
	}
}

func (l *GormXLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level() >= glogger.Warn {
		l.logger.WarnContext(ctx, fmt.Sprintf(msg, data...), zap.String("fileAndLine", gutils.FileWithLineNum()))
	}
}

func (l *GormXLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level() >= glogger.Error {
		l.logger.ErrorContext(ctx, nil, fmt.Sprintf(msg, data...), zap.String("fileAndLine", gutils.FileWithLineNum()))
	}
}

func traceFields(elapsed time.Duration, fc func() (sql string, rowsAffected int64)) []zap.Field {
	sql, rows := fc()
	affected := "-"
	if rows > -1 {
		affected = strconv.FormatInt(rows, 10)
	}
	return []zap.Field{
		zap.String("fileAndLine", gutils.FileWithLineNum()),
		zap.String("rows", affected),
		zap.Int64("elapsedMs", elapsed.Milliseconds()),
		zap.String("sql", sql),
	}
}

func (l *GormXLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	lvl := l.level()
	if lvl <= glogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && lvl >= glogger.Error &&
		(!errors.Is(err, glogger.ErrRecordNotFound) || !l.cfg.IgnoreRecordNotFoundError):
		l.logger.ErrorContext(ctx, err, "error trace", traceFields(elapsed, fc)...)
	case l.cfg.SlowThreshold != 0 && elapsed > l.cfg.SlowThreshold && lvl >= glogger.Warn:
		fields := append(traceFields(elapsed, fc), zap.Int64("thresholdMs", l.cfg.SlowThreshold.Milliseconds()))
		l.logger.WarnContext(ctx, "slow sql", fields...)
	case lvl == glogger.Info:
		l.logger.InfoContext(ctx, "common sql info", traceFields(elapsed, fc)...)
	}
}

func NewGormXLogger(logger XLogger, opts ...GormXLoggerOption) *GormXLogger {
	gl := &GormXLogger{
		cfg: glogger.Config{
			LogLevel: glogger.Warn,
		},
	}
	for _, o := range opts {
		o(&gl.cfg)
	}
	if gl.cfg.SlowThreshold <= 0 {
		gl.cfg.SlowThreshold = 500 * time.Millisecond
	}
	gl.gormLevel.Store(int32(gl.cfg.LogLevel))
	gl.logger = newComponentLogger(logger, "Gorm")
	return gl
}

type GormXLoggerOption func(*glogger.Config)

func WithGormXLoggerSlowThreshold(threshold time.Duration) GormXLoggerOption {
	return func(cfg *glogger.Config) {
		cfg.SlowThreshold = threshold
	}
}

func WithGormXLoggerLogLevel(lvl glogger.LogLevel) GormXLoggerOption {
	return func(cfg *glogger.Config) {
		cfg.LogLevel = lvl
	}
}

func WithGormXLoggerIgnoreRecord404Err() GormXLoggerOption {
	return func(cfg *glogger.Config) {
		cfg.IgnoreRecordNotFoundError = true
	}
}
