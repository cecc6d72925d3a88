package verify

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xcontainer/lib/infra"
	"github.com/benz9527/xcontainer/observability"
	"github.com/benz9527/xcontainer/xlog"
)

const (
	AppName            = "xtree-verify"
	poolReleaseTimeout = 3 * time.Second
)

func NewLogger(lc fx.Lifecycle, cfg Config) (xlog.XLogger, error) {
	opts := []xlog.XLoggerOption{
		xlog.WithXLoggerStdOutWriter(),
		xlog.WithXLoggerEncoder(xlog.ParseLogEncoder(cfg.LogEncoder)),
		xlog.WithXLoggerLevel(xlog.LogLevel(cfg.LogLevel)),
		xlog.WithXLoggerContextFieldExtract("workload"),
	}
	var reports []io.WriteCloser
	closeReports := func() error {
		var err error
		for _, w := range reports {
			err = multierr.Append(err, w.Close())
		}
		return err
	}
	if len(cfg.ReportFile) > 0 {
		w, err := xlog.NewReportFile(xlog.ReportFileConfig{
			Dir:        filepath.Dir(cfg.ReportFile),
			Filename:   filepath.Base(cfg.ReportFile),
			MaxSize:    cfg.ReportMaxSize,
			MaxAge:     cfg.ReportMaxAge,
			MaxBackups: cfg.ReportMaxBackups,
			Compress:   cfg.ReportCompress,
		})
		if err != nil {
			return nil, infra.WrapErrorStackWithMessage(err, "[verify] open report file")
		}
		reports = append(reports, w)
		opts = append(opts, xlog.WithXLoggerWriter(w))
	}
	if len(cfg.ReportRedis) > 0 {
		// go-redis must not log into the sink it serves.
		redis.SetLogger(xlog.NewGoRedisXLogger(xlog.NewXLogger(opts...)))
		client := redis.NewClient(&redis.Options{Addr: cfg.ReportRedis})
		w, err := xlog.NewRedisReport(context.Background(), client,
			xlog.RedisReportConfig{Key: cfg.ReportRedisKey, MaxLen: cfg.ReportRedisMax},
		)
		if err != nil {
			return nil, multierr.Combine(
				infra.WrapErrorStackWithMessage(err, "[verify] open redis report"),
				client.Close(),
				closeReports(),
			)
		}
		reports = append(reports, w)
		opts = append(opts, xlog.WithXLoggerWriter(w))
	}
	logger := xlog.NewXLogger(opts...)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// Syncing stdout fails on some terminals.
			_ = logger.Sync()
			return closeReports()
		},
	})
	return logger, nil
}

func NewPool(lc fx.Lifecycle, cfg Config, logger xlog.XLogger) (*ants.Pool, error) {
	pool, err := ants.NewPool(cfg.PoolSize,
		ants.WithLogger(xlog.NewAntsXLogger(logger)),
		ants.WithExpiryDuration(time.Minute),
	)
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return pool.ReleaseTimeout(poolReleaseTimeout)
		},
	})
	return pool, nil
}

// registerMetrics installs the exporter before the instruments of the
// runner are created.
func registerMetrics(lc fx.Lifecycle, cfg Config, logger xlog.XLogger) error {
	typ, err := observability.ParseMetricsExporter(cfg.MetricsExporter)
	if err != nil {
		return err
	}
	shutdown, err := observability.InitMetricsExporter(typ, cfg.MetricsInterval, cfg.MetricsInterval)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			observability.InitAppStats(context.Background(), AppName, nil)
			logger.Info("metrics exporter installed", zap.String("exporter", string(typ)))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return shutdown(ctx)
		},
	})
	return nil
}

// NewHistory is nil unless a history database is configured.
func NewHistory(lc fx.Lifecycle, cfg Config, logger xlog.XLogger) (*History, error) {
	if len(cfg.History) == 0 {
		return nil, nil
	}
	h, err := OpenHistory(cfg.History, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return h.Close()
		},
	})
	return h, nil
}

func newFxEventLogger(logger xlog.XLogger) fxevent.Logger {
	return xlog.NewFxXLogger(logger)
}

// Options assembles the verifier application.
func Options(cfg Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			NewLogger,
			NewPool,
			NewRunner,
			NewHistory,
		),
		fx.WithLogger(newFxEventLogger),
		fx.Invoke(registerMetrics),
	)
}

// Run starts the application, runs every workload once and stops it. The
// summary is recorded when a history is configured. extra is appended to
// the options, e.g. to decorate the logger.
func Run(ctx context.Context, cfg Config, extra ...fx.Option) (Summary, error) {
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}
	var (
		runner  *Runner
		history *History
	)
	opts := append([]fx.Option{Options(cfg)}, extra...)
	opts = append(opts, fx.Populate(&runner, &history))
	app := fx.New(opts...)
	if err := app.Err(); err != nil {
		return Summary{}, infra.WrapErrorStack(err)
	}

	if err := app.Start(ctx); err != nil {
		return Summary{}, infra.WrapErrorStack(err)
	}
	summary, err := runner.Run(ctx)
	if history != nil {
		if _, herr := history.Record(ctx, cfg, summary); herr != nil {
			err = multierr.Append(err, herr)
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	if serr := app.Stop(stopCtx); serr != nil {
		err = multierr.Append(err, infra.WrapErrorStack(serr))
	}
	return summary, err
}
