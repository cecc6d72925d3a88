package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/benz9527/xcontainer/verify"
	"github.com/benz9527/xcontainer/xlog"
)

type banner struct {
	cfg verify.Config
}

func (b banner) JSON() string {
	return fmt.Sprintf(`{"app":%q,"workloads":%d,"ops":%d,"seed":%d}`,
		verify.AppName, b.cfg.Workloads, b.cfg.Ops, b.cfg.Seed)
}

func (b banner) PlainText() string {
	return fmt.Sprintf("%s workloads=%d ops=%d seed=%d",
		verify.AppName, b.cfg.Workloads, b.cfg.Ops, b.cfg.Seed)
}

func main() {
	cfg := verify.DefaultConfig()
	fs := pflag.NewFlagSet(verify.AppName, pflag.ExitOnError)
	cfg.BindFlags(fs)
	failedSeeds := fs.Bool("failed-seeds", false, "print the seeds of the failed runs kept in --history and exit")
	_ = fs.Parse(os.Args[1:])

	logger := xlog.NewXLogger(
		xlog.WithXLoggerStdOutWriter(),
		xlog.WithXLoggerEncoder(xlog.ParseLogEncoder(cfg.LogEncoder)),
		xlog.WithXLoggerLevel(xlog.LogLevel(cfg.LogLevel)),
	)
	if *failedSeeds {
		os.Exit(printFailedSeeds(cfg, logger))
	}
	logger.Banner(banner{cfg: cfg})
	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Info(fmt.Sprintf(format, args...))
	}))
	defer undo()
	if err != nil {
		logger.Warn("unable to set GOMAXPROCS: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	summary, err := verify.Run(ctx, cfg)
	if err != nil {
		logger.ErrorStack(err, "verification failed")
		_ = logger.Sync()
		stop()
		undo()
		os.Exit(1)
	}
	logger.Info(fmt.Sprintf("verified %d workloads, %d ops in %s",
		len(summary.Results), summary.Ops, summary.Elapsed))
}

func printFailedSeeds(cfg verify.Config, logger xlog.XLogger) int {
	if len(cfg.History) == 0 {
		logger.Error(nil, "--failed-seeds needs --history")
		return 2
	}
	h, err := verify.OpenHistory(cfg.History, logger)
	if err != nil {
		logger.ErrorStack(err, "unable to open history")
		return 1
	}
	defer func() { _ = h.Close() }()
	seeds, err := h.FailedSeeds(context.Background())
	if err != nil {
		logger.ErrorStack(err, "unable to read history")
		return 1
	}
	for _, seed := range seeds {
		fmt.Println(seed)
	}
	return 0
}
