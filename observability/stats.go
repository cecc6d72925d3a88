package observability

import (
	"context"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v3/process"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/benz9527/xcontainer/lib/infra"
)

var appStatsOnce sync.Once

type gauge struct {
	name, desc, unit string
	observe          func(ctx context.Context) (int64, error)
}

var appGauges = []gauge{
	{
		name: "app.core.goroutines",
		desc: "Live goroutines of the application.",
		observe: func(context.Context) (int64, error) {
			return int64(runtime.NumGoroutine()), nil
		},
	},
	{
		name: "app.core.processes",
		desc: "GOMAXPROCS of the application.",
		observe: func(context.Context) (int64, error) {
			return int64(runtime.GOMAXPROCS(0)), nil
		},
	},
	{
		name: "app.process.rss",
		desc: "Resident set size of the process.",
		unit: "By",
		observe: func(ctx context.Context) (int64, error) {
			rss, err := ProcessRSS(ctx)
			return int64(rss), err
		},
	},
}

func AppMeterName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		name = "default"
	}
	return "xcontainer/app/" + name
}

// InitAppStats registers the runtime gauges and the otel Go runtime
// instrumentation once per process. shutdown, if any, runs when ctx is
// done.
func InitAppStats(ctx context.Context, name string, shutdown func(ctx context.Context) error) {
	appStatsOnce.Do(func() {
		meter := otel.Meter(
			AppMeterName(name),
			metric.WithInstrumentationVersion(otelruntime.Version()),
		)
		for _, g := range appGauges {
			observe := g.observe
			lo.Must[metric.Int64ObservableGauge](meter.Int64ObservableGauge(
				g.name,
				metric.WithDescription(g.desc),
				metric.WithUnit(lo.Ternary(len(g.unit) > 0, g.unit, "1")),
				metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
					v, err := observe(ctx)
					if err != nil {
						return err
					}
					ob.Observe(v)
					return nil
				}),
			))
		}
		_ = otelruntime.Start()
		if shutdown != nil {
			go func() {
				<-ctx.Done()
				_ = shutdown(context.Background())
			}()
		}
	})
}

// ProcessRSS samples the resident set size of the current process.
func ProcessRSS(ctx context.Context) (uint64, error) {
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return 0, infra.WrapErrorStack(err)
	}
	mem, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, infra.WrapErrorStack(err)
	}
	return mem.RSS, nil
}
