package xlog

import (
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

var _ fxevent.Logger = (*FxXLogger)(nil)

// FxXLogger routes the fx lifecycle events into the XLogger. Failed
// events are errors, the container graph is debug, the rest is info.
type FxXLogger struct {
	logger XLogger
}

func NewFxXLogger(logger XLogger) *FxXLogger {
	return &FxXLogger{logger: newComponentLogger(logger, "Fx")}
}

func moduleField(name string) zap.Field {
	if len(name) == 0 {
		return zap.Skip()
	}
	return zap.String("module", name)
}

// outcome logs "<msg> failed" on err, msg at debug otherwise.
func (l *FxXLogger) outcome(err error, msg string, fields ...zap.Field) {
	if err != nil {
		l.logger.Error(err, msg+" failed", fields...)
		return
	}
	l.logger.Debug(msg, fields...)
}

// graph logs one line per output type of a constructor or decorator.
func (l *FxXLogger) graph(msg string, rtypes []string, err error, trace []string, fields ...zap.Field) {
	for _, rtype := range rtypes {
		l.logger.Debug(msg, append([]zap.Field{zap.String("rtype", rtype)}, fields...)...)
	}
	if err != nil {
		l.logger.Error(err, msg+" failed", zap.Strings("stacktrace", trace))
	}
}

func (l *FxXLogger) LogEvent(event fxevent.Event) {
	if l == nil || l.logger == nil {
		return
	}

	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		l.logger.Debug("start hook", zap.String("function", e.FunctionName), zap.String("caller", e.CallerName))
	case *fxevent.OnStartExecuted:
		l.outcome(e.Err, "start hook executed",
			zap.String("function", e.FunctionName),
			zap.String("caller", e.CallerName),
			zap.Duration("runtime", e.Runtime),
		)
	case *fxevent.OnStopExecuting:
		l.logger.Info("stop hook", zap.String("function", e.FunctionName), zap.String("caller", e.CallerName))
	case *fxevent.OnStopExecuted:
		l.outcome(e.Err, "stop hook executed",
			zap.String("function", e.FunctionName),
			zap.String("caller", e.CallerName),
			zap.Duration("runtime", e.Runtime),
		)
	case *fxevent.Supplied:
		l.outcome(e.Err, "supply", zap.String("rtype", e.TypeName), moduleField(e.ModuleName))
	case *fxevent.Provided:
		l.graph("provide", e.OutputTypeNames, e.Err, e.StackTrace,
			zap.String("constructor", e.ConstructorName),
			zap.Bool("private", e.Private),
			moduleField(e.ModuleName),
		)
	case *fxevent.Replaced:
		l.graph("replace", e.OutputTypeNames, e.Err, e.StackTrace, moduleField(e.ModuleName))
	case *fxevent.Decorated:
		l.graph("decorate", e.OutputTypeNames, e.Err, e.StackTrace,
			zap.String("decorator", e.DecoratorName),
			moduleField(e.ModuleName),
		)
	case *fxevent.Invoking:
		l.logger.Debug("invoke", zap.String("function", e.FunctionName), moduleField(e.ModuleName))
	case *fxevent.Invoked:
		if e.Err != nil {
			l.logger.Error(e.Err, "invoke failed", zap.String("function", e.FunctionName), zap.String("trace", e.Trace))
		}
	case *fxevent.Stopping:
		l.logger.Info("stopping", zap.String("signal", e.Signal.String()))
	case *fxevent.Stopped:
		if e.Err != nil {
			l.logger.Error(e.Err, "stop failed")
		}
	case *fxevent.RollingBack:
		l.logger.Warn("start failed, rolling back", errorFields(e.StartErr)...)
	case *fxevent.RolledBack:
		if e.Err != nil {
			l.logger.Error(e.Err, "roll back failed")
		}
	case *fxevent.Started:
		if e.Err != nil {
			l.logger.Error(e.Err, "start failed")
			return
		}
		l.logger.Info("running")
	case *fxevent.LoggerInitialized:
		l.outcome(e.Err, "logger initialized", zap.String("constructor", e.ConstructorName))
	}
}
