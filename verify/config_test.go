package verify

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "INFO", cfg.LogLevel)
	require.Equal(t, int64(0), cfg.Capacity)
}

func TestConfig_BindFlags(t *testing.T) {
	t.Setenv("XTREE_OPS", "10")
	t.Setenv("XTREE_SEED", "42")
	t.Setenv("XTREE_CAPACITY", "not-a-number")
	t.Setenv("XTREE_METRICS_INTERVAL", "250ms")

	cfg := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.BindFlags(fs)
	require.Equal(t, 10, cfg.Ops)
	require.Equal(t, uint64(42), cfg.Seed)
	require.Equal(t, int64(0), cfg.Capacity)
	require.Equal(t, 250*time.Millisecond, cfg.MetricsInterval)

	require.NoError(t, fs.Parse([]string{
		"--workloads=3",
		"-n", "5",
		"-p", "2",
		"--capacity", "32",
		"--metrics", "stdout",
		"--log-level", "warn",
	}))
	require.Equal(t, 3, cfg.Workloads)
	require.Equal(t, 5, cfg.Ops)
	require.Equal(t, 2, cfg.PoolSize)
	require.Equal(t, int64(32), cfg.Capacity)
	require.Equal(t, "stdout", cfg.MetricsExporter)
	require.NoError(t, cfg.Validate())

	require.Error(t, fs.Parse([]string{"--unknown"}))
}

func TestConfig_Validate(t *testing.T) {
	testcases := []struct {
		name   string
		modify func(cfg *Config)
		errs   int
	}{
		{
			name:   "valid",
			modify: func(cfg *Config) {},
		},
		{
			name: "non positive counts",
			modify: func(cfg *Config) {
				cfg.Workloads, cfg.Ops, cfg.KeySpace, cfg.PoolSize = 0, -1, 0, 0
			},
			errs: 4,
		},
		{
			name: "ratio and capacity",
			modify: func(cfg *Config) {
				cfg.EraseRatio, cfg.Capacity = 1.5, -1
			},
			errs: 2,
		},
		{
			name: "names",
			modify: func(cfg *Config) {
				cfg.LogLevel, cfg.MetricsExporter = "trace", "zipkin"
			},
			errs: 2,
		},
		{
			name: "interval",
			modify: func(cfg *Config) {
				cfg.MetricsInterval = 0
			},
			errs: 1,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			err := cfg.Validate()
			if tc.errs == 0 {
				require.NoError(tt, err)
				return
			}
			require.Len(tt, multierr.Errors(err), tc.errs)
		})
	}
}

func TestConfig_ValidateReport(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReportMaxSize = "huge"
	require.NoError(t, cfg.Validate())

	cfg.ReportFile = "report.log"
	cfg.ReportMaxBackups = -1
	require.Len(t, multierr.Errors(cfg.Validate()), 2)

	cfg.ReportFile = ""
	cfg.ReportMaxBackups = 0
	cfg.ReportRedisKey = ""
	require.NoError(t, cfg.Validate())
	cfg.ReportRedis = "127.0.0.1:6379"
	require.Error(t, cfg.Validate())
	cfg.ReportRedisKey = "xtree:report"
	cfg.ReportRedisMax = -1
	require.Error(t, cfg.Validate())
}
