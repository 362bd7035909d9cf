package engine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the engine's OpenTelemetry instruments. All methods are
// nil-receiver safe so the orchestrator runs unchanged without telemetry.
type Metrics struct {
	runsTotal     metric.Int64Counter
	findingsTotal metric.Int64Counter
	runDuration   metric.Float64Histogram
}

// NewMetrics creates the engine instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	runsTotal, err := meter.Int64Counter("validation_runs_total",
		metric.WithDescription("Number of validation runs by table and status"))
	if err != nil {
		return nil, fmt.Errorf("create runs counter: %w", err)
	}
	findingsTotal, err := meter.Int64Counter("validation_findings_total",
		metric.WithDescription("Number of findings reported by table"))
	if err != nil {
		return nil, fmt.Errorf("create findings counter: %w", err)
	}
	runDuration, err := meter.Float64Histogram("validation_run_duration_seconds",
		metric.WithDescription("Wall-clock duration of validation runs"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}
	return &Metrics{
		runsTotal:     runsTotal,
		findingsTotal: findingsTotal,
		runDuration:   runDuration,
	}, nil
}

// RecordRun records the outcome of one validation run.
func (m *Metrics) RecordRun(ctx context.Context, table string, status Status, findings int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("table", table),
		attribute.String("status", string(status)),
	)
	m.runsTotal.Add(ctx, 1, attrs)
	m.findingsTotal.Add(ctx, int64(findings), metric.WithAttributes(attribute.String("table", table)))
	m.runDuration.Record(ctx, elapsed.Seconds(), attrs)
}
