package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/sdk/metric"

	"github.com/benz9527/xcontainer/lib/infra"
)

type MetricsExporterType string

const (
	NoneExporter       MetricsExporterType = "none"
	StdOutExporter     MetricsExporterType = "stdout"
	PrometheusExporter MetricsExporterType = "prometheus"
)

func ParseMetricsExporter(name string) (MetricsExporterType, error) {
	switch typ := MetricsExporterType(strings.ToLower(strings.TrimSpace(name))); typ {
	case NoneExporter, StdOutExporter, PrometheusExporter:
		return typ, nil
	case "":
		return NoneExporter, nil
	default:
	}
	return NoneExporter, infra.NewErrorStack("[observability] unknown metrics exporter " + name)
}

// InitMetricsExporter installs the global meter provider. The returned
// callback flushes and shuts it down.
func InitMetricsExporter(typ MetricsExporterType, interval, timeout time.Duration) (func(ctx context.Context) error, error) {
	switch typ {
	case StdOutExporter:
		// Serves for test/dev environment.
		exporter, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, infra.WrapErrorStack(err)
		}
		return installMeterProvider(metric.NewPeriodicReader(
			exporter,
			metric.WithInterval(interval),
			metric.WithTimeout(timeout),
		)), nil
	case PrometheusExporter:
		// Registers into the prometheus default registry, scraped by HTTP.
		exporter, err := prometheus.New()
		if err != nil {
			return nil, infra.WrapErrorStack(err)
		}
		return installMeterProvider(exporter), nil
	default:
	}
	// The otel global defaults to a noop provider.
	return func(context.Context) error { return nil }, nil
}

func installMeterProvider(reader metric.Reader) func(ctx context.Context) error {
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(mp)
	return mp.Shutdown
}

// NewManualMetricsReader installs a provider collected on demand, the
// tests read the recorded instruments through it.
func NewManualMetricsReader() (*metric.ManualReader, func(ctx context.Context) error) {
	reader := metric.NewManualReader()
	return reader, installMeterProvider(reader)
}
