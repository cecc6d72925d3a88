package xlog

import (
	"io"
	"os"
	"slices"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const coreKeyIgnored = ""

var _ xLogCore = (*sinkCore)(nil)

// sinkCore is a zap io core remembering how it was built, including the
// fields bound by With.
type sinkCore struct {
	zapcore.Core
	fields     []zap.Field
	enabler    zapcore.LevelEnabler
	lvlEnc     zapcore.LevelEncoder
	tsEnc      zapcore.TimeEncoder
	ws         zapcore.WriteSyncer
	newEncoder func(zapcore.EncoderConfig) zapcore.Encoder
}

func (sc *sinkCore) With(fields []zap.Field) zapcore.Core {
	clone := *sc
	clone.Core = sc.Core.With(fields)
	clone.fields = append(slices.Clip(sc.fields), fields...)
	return &clone
}

func (sc *sinkCore) reencode(cfg zapcore.EncoderConfig, enabler zapcore.LevelEnabler) xLogCore {
	if enabler == nil {
		enabler = sc.enabler
	}
	if cfg.LevelKey != coreKeyIgnored {
		cfg.EncodeLevel = sc.lvlEnc
	}
	if cfg.TimeKey != coreKeyIgnored {
		cfg.EncodeTime = sc.tsEnc
	}
	core := zapcore.NewCore(sc.newEncoder(cfg), sc.ws, enabler)
	if len(sc.fields) > 0 {
		core = core.With(sc.fields)
	}
	return &sinkCore{
		Core:       core,
		fields:     sc.fields,
		enabler:    enabler,
		lvlEnc:     sc.lvlEnc,
		tsEnc:      sc.tsEnc,
		ws:         sc.ws,
		newEncoder: sc.newEncoder,
	}
}

var (
	defaultEncoderCfg = zapcore.EncoderConfig{
		MessageKey:    "msg",
		LevelKey:      "lvl",
		TimeKey:       "ts",
		CallerKey:     "callAt",
		EncodeCaller:  zapcore.ShortCallerEncoder,
		FunctionKey:   "fn",
		NameKey:       "component",
		EncodeName:    zapcore.FullNameEncoder,
		StacktraceKey: coreKeyIgnored,
	}
	// Bridged libraries (fx, ants, gorm) report their own call sites.
	componentEncoderCfg = zapcore.EncoderConfig{
		MessageKey:    "msg",
		LevelKey:      "lvl",
		TimeKey:       "ts",
		CallerKey:     coreKeyIgnored,
		FunctionKey:   coreKeyIgnored,
		NameKey:       "component",
		EncodeName:    zapcore.FullNameEncoder,
		StacktraceKey: coreKeyIgnored,
	}
	bannerEncoderCfg = zapcore.EncoderConfig{
		MessageKey:    "banner", // The plain text encoder prints the bare message.
		LevelKey:      coreKeyIgnored,
		TimeKey:       coreKeyIgnored,
		CallerKey:     coreKeyIgnored,
		FunctionKey:   coreKeyIgnored,
		NameKey:       coreKeyIgnored,
		StacktraceKey: coreKeyIgnored,
	}
)

func newSinkCore(ws zapcore.WriteSyncer) XLogCoreConstructor {
	return func(
		enabler zapcore.LevelEnabler,
		encoder LogEncoderType,
		lvlEnc zapcore.LevelEncoder,
		tsEnc zapcore.TimeEncoder,
	) xLogCore {
		sc := &sinkCore{
			enabler:    enabler,
			lvlEnc:     lvlEnc,
			tsEnc:      tsEnc,
			ws:         ws,
			newEncoder: encoder.newEncoder(),
		}
		return sc.reencode(defaultEncoderCfg, nil)
	}
}

func newConsoleCore(
	enabler zapcore.LevelEnabler,
	encoder LogEncoderType,
	lvlEnc zapcore.LevelEncoder,
	tsEnc zapcore.TimeEncoder,
) xLogCore {
	return newSinkCore(zapcore.Lock(os.Stdout))(enabler, encoder, lvlEnc, tsEnc)
}

// newWriterCore logs into an arbitrary writer, e.g. the report file.
func newWriterCore(w io.Writer) XLogCoreConstructor {
	return newSinkCore(zapcore.Lock(zapcore.AddSync(w)))
}
