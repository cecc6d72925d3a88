package xlog

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xcontainer/lib/infra"
)

var _ XLogger = (*xLogger)(nil)

type xLogger struct {
	logger      atomic.Pointer[zap.Logger]
	level       zap.AtomicLevel   // shared by the children
	ctxFields   map[string]string // read-only after construction
	ctxKeys     []string
	encoder     LogEncoderType
	printBanner *sync.Once
}

func (l *xLogger) zap() *zap.Logger {
	return l.logger.Load()
}

// derive builds a child sharing everything but the zap logger.
func (l *xLogger) derive(zl *zap.Logger) *xLogger {
	child := &xLogger{
		level:       l.level,
		ctxFields:   l.ctxFields,
		ctxKeys:     l.ctxKeys,
		encoder:     l.encoder,
		printBanner: l.printBanner,
	}
	child.logger.Store(zl)
	return child
}

// IncreaseLogLevel changes the level of the logger and of all its
// children, concurrently with logging.
func (l *xLogger) IncreaseLogLevel(level zapcore.Level) {
	l.level.SetLevel(level)
}

func (l *xLogger) Level() string {
	return l.level.Level().String()
}

func (l *xLogger) Sync() error {
	return l.logger.Load().Sync()
}

func (l *xLogger) Named(name string) XLogger {
	return l.derive(l.logger.Load().Named(name))
}

// Banner is printed once per root logger, at any level, without level,
// time or caller.
func (l *xLogger) Banner(banner Banner) {
	l.printBanner.Do(func() {
		msg := banner.JSON()
		if l.encoder == PlainText {
			msg = banner.PlainText()
		}
		l.logger.Load().
			WithOptions(reencodeOption(bannerEncoderCfg, zapcore.InfoLevel)).
			Info(msg)
	})
}

// write is called by the exported methods only, the caller skip of the
// zap logger accounts for both frames.
func (l *xLogger) write(lvl zapcore.Level, msg string, head, fields []zap.Field) {
	ce := l.logger.Load().Check(lvl, msg)
	if ce == nil {
		return
	}
	if len(head) > 0 {
		fields = append(head, fields...)
	}
	ce.Write(fields...)
}

func errorFields(err error) []zap.Field {
	if err == nil {
		return nil
	}
	return []zap.Field{zap.String("error", err.Error())}
}

func errorStackFields(err error) []zap.Field {
	if es, ok := err.(infra.ErrorStack); ok && es != nil {
		return []zap.Field{zap.Inline(es)}
	}
	return errorFields(err)
}

func (l *xLogger) Debug(msg string, fields ...zap.Field) {
	l.write(zapcore.DebugLevel, msg, nil, fields)
}

func (l *xLogger) Info(msg string, fields ...zap.Field) {
	l.write(zapcore.InfoLevel, msg, nil, fields)
}

func (l *xLogger) Warn(msg string, fields ...zap.Field) {
	l.write(zapcore.WarnLevel, msg, nil, fields)
}

func (l *xLogger) Error(err error, msg string, fields ...zap.Field) {
	l.write(zapcore.ErrorLevel, msg, errorFields(err), fields)
}

func (l *xLogger) ErrorStack(err error, msg string, fields ...zap.Field) {
	l.write(zapcore.ErrorLevel, msg, errorStackFields(err), fields)
}

func (l *xLogger) DebugContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.write(zapcore.DebugLevel, msg, l.contextFields(ctx, nil), fields)
}

func (l *xLogger) InfoContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.write(zapcore.InfoLevel, msg, l.contextFields(ctx, nil), fields)
}

func (l *xLogger) WarnContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.write(zapcore.WarnLevel, msg, l.contextFields(ctx, nil), fields)
}

func (l *xLogger) ErrorContext(ctx context.Context, err error, msg string, fields ...zap.Field) {
	l.write(zapcore.ErrorLevel, msg, l.contextFields(ctx, errorFields(err)), fields)
}

func (l *xLogger) ErrorStackContext(ctx context.Context, err error, msg string, fields ...zap.Field) {
	l.write(zapcore.ErrorLevel, msg, l.contextFields(ctx, errorStackFields(err)), fields)
}

// Logf formats eagerly, only the bridges (ants) use it.
func (l *xLogger) Logf(lvl zapcore.Level, format string, args ...any) {
	l.write(lvl, fmt.Sprintf(format, args...), nil, nil)
}

// contextFields returns the registered context values, in key order,
// followed by tail.
func (l *xLogger) contextFields(ctx context.Context, tail []zap.Field) []zap.Field {
	if ctx == nil || len(l.ctxKeys) == 0 {
		return tail
	}
	res := make([]zap.Field, 0, len(l.ctxKeys)+len(tail))
	for _, key := range l.ctxKeys {
		mapTo := l.ctxFields[key]
		if v := ctx.Value(ContextKey(key)); v != nil {
			res = append(res, zap.Any(mapTo, v))
		} else {
			res = append(res, zap.String(mapTo, "nil"))
		}
	}
	return append(res, tail...)
}

// newComponentLogger names a child after a bridged library. Its entries
// carry no caller, the level stays shared with the parent.
func newComponentLogger(parent XLogger, name string) XLogger {
	zl := parent.zap().Named(name).WithOptions(reencodeOption(componentEncoderCfg, nil))
	if p, ok := parent.(*xLogger); ok {
		return p.derive(zl)
	}
	l := &xLogger{level: zap.NewAtomicLevel(), printBanner: &sync.Once{}}
	l.logger.Store(zl)
	return l
}

type loggerCfg struct {
	ctxFields        map[string]string
	encoder          LogEncoderType
	lvlEncoder       zapcore.LevelEncoder
	tsEncoder        zapcore.TimeEncoder
	level            *zapcore.Level
	coreConstructors []XLogCoreConstructor
}

type XLoggerOption func(*loggerCfg) error

// NewXLogger panics on an invalid option. Without writer options it logs
// to stdout, the level defaults to XLOG_LVL, then DEBUG.
func NewXLogger(opts ...XLoggerOption) XLogger {
	cfg := &loggerCfg{
		encoder:    JSON,
		lvlEncoder: zapcore.CapitalLevelEncoder,
		tsEncoder:  zapcore.ISO8601TimeEncoder,
	}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o(cfg); err != nil {
			panic(err)
		}
	}
	if len(cfg.coreConstructors) == 0 {
		cfg.coreConstructors = []XLogCoreConstructor{newConsoleCore}
	}

	lvl := getLogLevelOrDefault(os.Getenv("XLOG_LVL"))
	if cfg.level != nil {
		lvl = *cfg.level
	}
	xl := &xLogger{
		level:       zap.NewAtomicLevelAt(lvl),
		ctxFields:   cfg.ctxFields,
		ctxKeys:     lo.Filter(lo.Keys(cfg.ctxFields), func(k string, _ int) bool { return cfg.ctxFields[k] != ContextKeyMapToOmitempty }),
		encoder:     cfg.encoder,
		printBanner: &sync.Once{},
	}
	sort.Strings(xl.ctxKeys)

	cores := make(teeCore, 0, len(cfg.coreConstructors))
	for _, newCore := range cfg.coreConstructors {
		cores = append(cores, newCore(xl.level, cfg.encoder, cfg.lvlEncoder, cfg.tsEncoder))
	}
	// No zap stacktrace, ErrorStack carries its own frames.
	xl.logger.Store(zap.New(cores, zap.AddCaller(), zap.AddCallerSkip(2)))
	return xl
}

func WithXLoggerStdOutWriter() XLoggerOption {
	return func(cfg *loggerCfg) error {
		cfg.coreConstructors = append(cfg.coreConstructors, newConsoleCore)
		return nil
	}
}

// WithXLoggerWriter adds a core writing into w, it can be combined with
// the stdout one.
func WithXLoggerWriter(w io.Writer) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if w == nil {
			return infra.NewErrorStack("[XLogger] nil writer")
		}
		cfg.coreConstructors = append(cfg.coreConstructors, newWriterCore(w))
		return nil
	}
}

func WithXLoggerEncoder(logEnc LogEncoderType) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if logEnc >= _encMax {
			return infra.NewErrorStack("[XLogger] unknown encoder")
		}
		cfg.encoder = logEnc
		return nil
	}
}

func WithXLoggerLevel(lvl LogLevel) XLoggerOption {
	return func(cfg *loggerCfg) error {
		zl := lvl.zapLevel()
		cfg.level = &zl
		return nil
	}
}

// WithXLoggerLevelEncoder with nil selects the colored capital encoder.
func WithXLoggerLevelEncoder(lvlEnc zapcore.LevelEncoder) XLoggerOption {
	return func(cfg *loggerCfg) error {
		cfg.lvlEncoder = lo.Ternary(lvlEnc == nil, zapcore.CapitalColorLevelEncoder, lvlEnc)
		return nil
	}
}

func WithXLoggerTimeEncoder(tsEnc zapcore.TimeEncoder) XLoggerOption {
	return func(cfg *loggerCfg) error {
		cfg.tsEncoder = lo.Ternary(tsEnc == nil, zapcore.ISO8601TimeEncoder, tsEnc)
		return nil
	}
}

// WithXLoggerContextFieldExtract logs the context value of field under
// mapTo. ContextKeyMapToOmitempty skips the field.
func WithXLoggerContextFieldExtract(field string, mapTo ...string) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if len(field) == 0 {
			return nil
		}
		if cfg.ctxFields == nil {
			cfg.ctxFields = make(map[string]string, 8)
		}
		cfg.ctxFields[field] = field
		if len(mapTo) > 0 && mapTo[0] != ContextKeyMapToItself {
			cfg.ctxFields[field] = mapTo[0]
		}
		return nil
	}
}

func getLogLevelOrDefault(level string) zapcore.Level {
	if len(strings.TrimSpace(level)) == 0 {
		return zapcore.DebugLevel
	}
	return LogLevel(level).zapLevel()
}
