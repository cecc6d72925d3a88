package xlog

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ xLogCore = (teeCore)(nil)

// teeCore duplicates the entries into every core. Unlike zapcore.NewTee
// it stays an xLogCore, so derived loggers can still re-encode it.
type teeCore []xLogCore

func (tc teeCore) each(fn func(core xLogCore) error) error {
	var err error
	for _, core := range tc {
		err = multierr.Append(err, fn(core))
	}
	return err
}

func (tc teeCore) Enabled(lvl zapcore.Level) bool {
	for _, core := range tc {
		if core.Enabled(lvl) {
			return true
		}
	}
	return false
}

func (tc teeCore) With(fields []zap.Field) zapcore.Core {
	res := make(teeCore, 0, len(tc))
	for _, core := range tc {
		res = append(res, core.With(fields).(xLogCore))
	}
	return res
}

func (tc teeCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	for _, core := range tc {
		ce = core.Check(ent, ce)
	}
	return ce
}

func (tc teeCore) Write(ent zapcore.Entry, fields []zap.Field) error {
	return tc.each(func(core xLogCore) error {
		return core.Write(ent, fields)
	})
}

func (tc teeCore) Sync() error {
	return tc.each(func(core xLogCore) error {
		return core.Sync()
	})
}

func (tc teeCore) reencode(cfg zapcore.EncoderConfig, enabler zapcore.LevelEnabler) xLogCore {
	res := make(teeCore, 0, len(tc))
	for _, core := range tc {
		res = append(res, core.reencode(cfg, enabler))
	}
	return res
}

// reencodeOption re-encodes every xLogCore below a zap logger. Other
// cores (wrapped by third parties) are kept as they are.
func reencodeOption(cfg zapcore.EncoderConfig, enabler zapcore.LevelEnabler) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		if xc, ok := core.(xLogCore); ok {
			return xc.reencode(cfg, enabler)
		}
		return core
	})
}
