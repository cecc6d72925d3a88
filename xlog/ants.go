package xlog

import (
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap/zapcore"
)

var _ ants.Logger = (*AntsXLogger)(nil)

// AntsXLogger receives the messages of an ants pool, which are only
// worker panics and their stacks, so everything is logged as an error.
type AntsXLogger struct {
	logger XLogger
}

func NewAntsXLogger(logger XLogger) *AntsXLogger {
	return &AntsXLogger{logger: newComponentLogger(logger, "Ants")}
}

func (l *AntsXLogger) Printf(format string, args ...any) {
	if l != nil && l.logger != nil {
		l.logger.Logf(zapcore.ErrorLevel, format, args...)
	}
}
