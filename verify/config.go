package verify

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/benz9527/xcontainer/lib/infra"
	"github.com/benz9527/xcontainer/observability"
	"github.com/benz9527/xcontainer/xlog"
)

const envPrefix = "XTREE_"

// Config drives a verification run. Every field can be set by a flag or
// by the XTREE_ prefixed environment variable of the same name.
type Config struct {
	Workloads        int
	Ops              int
	KeySpace         int
	PoolSize         int
	EraseRatio       float64
	Seed             uint64
	Capacity         int64
	LogLevel         string
	LogEncoder       string
	MetricsExporter  string
	MetricsInterval  time.Duration
	ReportFile       string
	ReportMaxSize    string
	ReportMaxAge     time.Duration
	ReportMaxBackups int
	ReportCompress   bool
	ReportRedis      string
	ReportRedisKey   string
	ReportRedisMax   int64
	History          string
}

func DefaultConfig() Config {
	return Config{
		Workloads:       8,
		Ops:             2048,
		KeySpace:        512,
		PoolSize:        4,
		EraseRatio:      0.4,
		Seed:            uint64(time.Now().UnixNano()),
		Capacity:        0,
		LogLevel:        string(xlog.LogLevelInfo),
		LogEncoder:      "json",
		MetricsExporter: string(observability.NoneExporter),
		MetricsInterval: 5 * time.Second,
		ReportMaxSize:   "8MB",
		ReportMaxAge:    24 * time.Hour,
		ReportRedisKey:  "xtree:report",
		ReportRedisMax:  10000,
	}
}

func envOr[T any](name string, def T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(envPrefix + name)
	if !ok || len(strings.TrimSpace(raw)) == 0 {
		return def
	}
	v, err := parse(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

func parseString(s string) (string, error) { return s, nil }

func parseInt(s string) (int, error) { return strconv.Atoi(s) }

func parseInt64(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

func parseUint64(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) }

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

// BindFlags registers the flags of cfg on fs. The current values of cfg,
// overridden by the environment, become the flag defaults.
func (cfg *Config) BindFlags(fs *pflag.FlagSet) {
	fs.IntVarP(&cfg.Workloads, "workloads", "w", envOr("WORKLOADS", cfg.Workloads, parseInt),
		"number of independent workloads, odd ones exercise the ordered set")
	fs.IntVarP(&cfg.Ops, "ops", "n", envOr("OPS", cfg.Ops, parseInt),
		"operations per workload")
	fs.IntVar(&cfg.KeySpace, "key-space", envOr("KEY_SPACE", cfg.KeySpace, parseInt),
		"keys are drawn from [0, key-space)")
	fs.IntVarP(&cfg.PoolSize, "pool-size", "p", envOr("POOL_SIZE", cfg.PoolSize, parseInt),
		"workers running the workloads")
	fs.Float64Var(&cfg.EraseRatio, "erase-ratio", envOr("ERASE_RATIO", cfg.EraseRatio, parseFloat),
		"share of the operations removing a key")
	fs.Uint64Var(&cfg.Seed, "seed", envOr("SEED", cfg.Seed, parseUint64),
		"random seed, workload i uses seed+i")
	fs.Int64Var(&cfg.Capacity, "capacity", envOr("CAPACITY", cfg.Capacity, parseInt64),
		"max nodes per tree, 0 is unbounded")
	fs.StringVar(&cfg.LogLevel, "log-level", envOr("LOG_LEVEL", cfg.LogLevel, parseString),
		"debug, info, warn or error")
	fs.StringVar(&cfg.LogEncoder, "log-encoder", envOr("LOG_ENCODER", cfg.LogEncoder, parseString),
		"json or console")
	fs.StringVar(&cfg.MetricsExporter, "metrics", envOr("METRICS", cfg.MetricsExporter, parseString),
		"none, stdout or prometheus")
	fs.DurationVar(&cfg.MetricsInterval, "metrics-interval", envOr("METRICS_INTERVAL", cfg.MetricsInterval, time.ParseDuration),
		"export interval of the stdout metrics exporter")
	fs.StringVar(&cfg.ReportFile, "report", envOr("REPORT", cfg.ReportFile, parseString),
		"also append the logs to this file, rotated by size")
	fs.StringVar(&cfg.ReportMaxSize, "report-max-size", envOr("REPORT_MAX_SIZE", cfg.ReportMaxSize, parseString),
		"rotate the report file beyond this size, e.g. 512KB or 8MB")
	fs.DurationVar(&cfg.ReportMaxAge, "report-max-age", envOr("REPORT_MAX_AGE", cfg.ReportMaxAge, time.ParseDuration),
		"drop rotated reports older than this, 0 keeps them")
	fs.IntVar(&cfg.ReportMaxBackups, "report-max-backups", envOr("REPORT_MAX_BACKUPS", cfg.ReportMaxBackups, parseInt),
		"keep at most this many rotated reports, 0 is unlimited")
	fs.BoolVar(&cfg.ReportCompress, "report-compress", envOr("REPORT_COMPRESS", cfg.ReportCompress, strconv.ParseBool),
		"move dropped reports into a zip archive instead of deleting them")
	fs.StringVar(&cfg.ReportRedis, "report-redis", envOr("REPORT_REDIS", cfg.ReportRedis, parseString),
		"also push the logs onto a list of the redis server at this address")
	fs.StringVar(&cfg.ReportRedisKey, "report-redis-key", envOr("REPORT_REDIS_KEY", cfg.ReportRedisKey, parseString),
		"redis list receiving the logs")
	fs.Int64Var(&cfg.ReportRedisMax, "report-redis-max", envOr("REPORT_REDIS_MAX", cfg.ReportRedisMax, parseInt64),
		"keep the newest lines of the redis list only, 0 is unlimited")
	fs.StringVar(&cfg.History, "history", envOr("HISTORY", cfg.History, parseString),
		"record every run into this sqlite database")
}

func (cfg *Config) Validate() error {
	var err error
	if cfg.Workloads <= 0 {
		err = multierr.Append(err, infra.NewErrorStack("[verify] workloads must be positive"))
	}
	if cfg.Ops <= 0 {
		err = multierr.Append(err, infra.NewErrorStack("[verify] ops must be positive"))
	}
	if cfg.KeySpace <= 0 {
		err = multierr.Append(err, infra.NewErrorStack("[verify] key space must be positive"))
	}
	if cfg.PoolSize <= 0 {
		err = multierr.Append(err, infra.NewErrorStack("[verify] pool size must be positive"))
	}
	if cfg.EraseRatio < 0 || cfg.EraseRatio > 1 {
		err = multierr.Append(err, infra.NewErrorStack("[verify] erase ratio must be in [0, 1]"))
	}
	if cfg.Capacity < 0 {
		err = multierr.Append(err, infra.NewErrorStack("[verify] capacity must not be negative"))
	}
	switch xlog.LogLevel(strings.ToUpper(strings.TrimSpace(cfg.LogLevel))) {
	case xlog.LogLevelDebug, xlog.LogLevelInfo, xlog.LogLevelWarn, xlog.LogLevelError:
	default:
		err = multierr.Append(err, infra.NewErrorStack("[verify] unknown log level "+cfg.LogLevel))
	}
	if _, perr := observability.ParseMetricsExporter(cfg.MetricsExporter); perr != nil {
		err = multierr.Append(err, perr)
	}
	if len(cfg.ReportFile) > 0 {
		if _, serr := xlog.ParseFileSize(cfg.ReportMaxSize); serr != nil {
			err = multierr.Append(err, serr)
		}
		if cfg.ReportMaxAge < 0 || cfg.ReportMaxBackups < 0 {
			err = multierr.Append(err, infra.NewErrorStack("[verify] report retention must not be negative"))
		}
	}
	if len(cfg.ReportRedis) > 0 && (len(strings.TrimSpace(cfg.ReportRedisKey)) == 0 || cfg.ReportRedisMax < 0) {
		err = multierr.Append(err, infra.NewErrorStack("[verify] invalid redis report key or max length"))
	}
	if cfg.MetricsInterval <= 0 {
		err = multierr.Append(err, infra.NewErrorStack("[verify] metrics interval must be positive"))
	}
	return err
}
