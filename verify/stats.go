package verify

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	VerifierStatsName = "xcontainer/verify"
)

type opKind string

const (
	opInsert         opKind = "insert"
	opInsertOrAssign opKind = "insert_or_assign"
	opEmplace        opKind = "emplace"
	opErase          opKind = "erase"
	opRemove         opKind = "remove"
	opRemoveMin      opKind = "remove_min"
	opMerge          opKind = "merge"
	opClone          opKind = "clone"
	opSwap           opKind = "swap"
)

type verifierStats struct {
	ops               metric.Int64Counter
	violations        metric.Int64Counter
	workloads         metric.Int64Counter
	workloadDurations metric.Int64Histogram
}

func (stats *verifierStats) IncreaseOpCount(ctx context.Context, kind opKind, container string) {
	if stats == nil {
		return
	}
	as := attribute.NewSet(
		attribute.String("xtree.op.kind", string(kind)),
		attribute.String("xtree.container", container),
	)
	stats.ops.Add(ctx, 1, metric.WithAttributeSet(as))
}

func (stats *verifierStats) IncreaseViolationCount(ctx context.Context, container string) {
	if stats == nil {
		return
	}
	stats.violations.Add(ctx, 1, metric.WithAttributes(attribute.String("xtree.container", container)))
}

func (stats *verifierStats) RecordWorkload(ctx context.Context, container string, durationMs int64, failed bool) {
	if stats == nil {
		return
	}
	as := attribute.NewSet(
		attribute.String("xtree.container", container),
		attribute.Bool("xtree.workload.failed", failed),
	)
	stats.workloads.Add(ctx, 1, metric.WithAttributeSet(as))
	stats.workloadDurations.Record(ctx, durationMs, metric.WithAttributeSet(as))
}

func newVerifierStats(name string) *verifierStats {
	meterName := fmt.Sprintf("%s/%s", VerifierStatsName, name)
	return &verifierStats{
		ops: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"xtree.op.count",
				metric.WithDescription("The number of tree operations applied by the verifier."),
			),
		),
		violations: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"xtree.violation.count",
				metric.WithDescription("The number of broken tree invariants or model mismatches."),
			),
		),
		workloads: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"xtree.workload.count",
				metric.WithDescription("The number of finished workloads."),
			),
		),
		workloadDurations: lo.Must[metric.Int64Histogram](otel.Meter(meterName).
			Int64Histogram(
				"xtree.workload.duration",
				metric.WithDescription("The duration of a workload. In milliseconds."),
				metric.WithUnit("ms"),
			),
		),
	}
}
