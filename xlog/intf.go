package xlog

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

var zapLevels = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

// zapLevel is case-insensitive, unknown levels are DEBUG.
func (lvl LogLevel) zapLevel() zapcore.Level {
	if zl, ok := zapLevels[LogLevel(strings.ToUpper(strings.TrimSpace(string(lvl))))]; ok {
		return zl
	}
	return zapcore.DebugLevel
}

func (lvl LogLevel) String() string {
	return string(lvl)
}

type LogEncoderType uint8

const (
	JSON LogEncoderType = iota
	PlainText
	_encMax
)

// ParseLogEncoder falls back to JSON for unknown names.
func ParseLogEncoder(name string) LogEncoderType {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "plaintext", "plain", "text", "console":
		return PlainText
	default:
	}
	return JSON
}

func (enc LogEncoderType) newEncoder() func(zapcore.EncoderConfig) zapcore.Encoder {
	if enc == PlainText {
		return zapcore.NewConsoleEncoder
	}
	return zapcore.NewJSONEncoder
}

// Banner is printed once, before anything else, by the application.
type Banner interface {
	JSON() string
	PlainText() string
}

// ContextKey avoids collisions with the context keys of other packages.
type ContextKey string

const (
	ContextKeyMapToOmitempty = "_"
	ContextKeyMapToItself    = ""
)

// xLogCore is a zap core which knows how to build a sibling writing to
// the same sink with another encoder config.
type xLogCore interface {
	zapcore.Core

	// reencode keeps the sink and the level and time encoders. A nil
	// enabler keeps the level of the core.
	reencode(cfg zapcore.EncoderConfig, enabler zapcore.LevelEnabler) xLogCore
}

type XLogCoreConstructor func(
	zapcore.LevelEnabler,
	LogEncoderType,
	zapcore.LevelEncoder,
	zapcore.TimeEncoder,
) xLogCore

// XLogger wraps a zap logger.
//
// ErrorStack inlines the frames of an infra.ErrorStack as a JSON array
// instead of the zap stacktrace string.
//
// The context variants first add the context values registered by
// WithXLoggerContextFieldExtract, e.g. the workload of the verifier.
type XLogger interface {
	zap() *zap.Logger

	IncreaseLogLevel(level zapcore.Level)
	Level() string
	Sync() error
	Banner(banner Banner)
	Named(name string) XLogger

	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(err error, msg string, fields ...zap.Field)
	ErrorStack(err error, msg string, fields ...zap.Field)

	DebugContext(ctx context.Context, msg string, fields ...zap.Field)
	InfoContext(ctx context.Context, msg string, fields ...zap.Field)
	WarnContext(ctx context.Context, msg string, fields ...zap.Field)
	ErrorContext(ctx context.Context, err error, msg string, fields ...zap.Field)
	ErrorStackContext(ctx context.Context, err error, msg string, fields ...zap.Field)

	Logf(lvl zapcore.Level, format string, args ...any)
}
