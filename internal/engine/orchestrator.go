package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"idxval/internal/dataset"
)

// TracerName identifies the engine's OpenTelemetry tracer.
const TracerName = "idxval.engine"

// Query narrows a table fetch to one symbol and/or a date range. Zero times
// mean unbounded.
type Query struct {
	Symbol string
	Start  time.Time
	End    time.Time
}

// Source fetches rows of a named table. Implementations must return an empty
// dataset, not an error, when the table is absent or the query matches
// nothing.
type Source interface {
	Fetch(ctx context.Context, table string, q Query) (*dataset.Dataset, error)
}

// ResultSink persists validation results. Saving is best-effort at the call
// site: a failing sink is logged, never propagated.
type ResultSink interface {
	Save(ctx context.Context, res *Result) error
}

// Orchestrator runs the validation of one table end to end: resolve config,
// fetch the dataset, select and run detectors, aggregate findings, persist
// the result. Each run owns its dataset and findings exclusively; concurrent
// runs of different tables share nothing mutable.
type Orchestrator struct {
	source      Source
	sink        ResultSink
	configs     *Resolver
	registry    *Registry
	generic     []Detector
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *Metrics
	now         func() time.Time
	concurrency int
}

// NewOrchestrator wires the orchestrator. sink may be nil (results are not
// persisted); logger may be nil for the default logger.
func NewOrchestrator(source Source, sink ResultSink, configs *Resolver, registry *Registry, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		source:   source,
		sink:     sink,
		configs:  configs,
		registry: registry,
		generic: []Detector{
			StatisticalOutlierDetector{},
			BusinessRuleDetector{},
			DataQualityDetector{},
			TimeSeriesDetector{},
		},
		logger:      logger.With(slog.String("component", "orchestrator")),
		tracer:      otel.Tracer(TracerName),
		now:         time.Now,
		concurrency: 4,
	}
}

// SetMetrics attaches engine telemetry instruments.
func (o *Orchestrator) SetMetrics(m *Metrics) {
	o.metrics = m
}

// SetConcurrency bounds the parallelism of ValidateAll.
func (o *Orchestrator) SetConcurrency(n int) {
	if n > 0 {
		o.concurrency = n
	}
}

// SetClock overrides the orchestrator's clock, for tests.
func (o *Orchestrator) SetClock(now func() time.Time) {
	if now != nil {
		o.now = now
	}
}

// Validate runs all applicable detectors against the named table and returns
// the aggregated result. A Result is always returned, carrying the table
// name even on total failure; a fetch fault sets status=error and the Fault
// field instead of findings.
func (o *Orchestrator) Validate(ctx context.Context, table string, q Query) *Result {
	start := o.now()
	ctx, span := o.tracer.Start(ctx, "engine.validate",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("validation.table", table)),
	)
	defer span.End()

	res := &Result{
		ID:        uuid.NewString(),
		TableName: table,
		Timestamp: start.UTC(),
	}

	cfg := o.configs.Resolve(ctx, table)

	ds, err := o.source.Fetch(ctx, table, q)
	if err != nil {
		res.Status = StatusError
		res.Fault = fmt.Sprintf("fetch table %s: %v", table, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		o.logger.ErrorContext(ctx, "table fetch failed",
			slog.String("table", table),
			slog.String("error", err.Error()))
		return res
	}
	res.TotalRows = ds.Len()

	if det, ok := o.registry.Lookup(table); ok {
		res.DetectorsRun = []string{det.Name()}
		if !ds.IsEmpty() {
			res.Findings = runDetector(ctx, det, ds, cfg)
		}
	} else {
		for _, det := range o.generic {
			if !cfg.HasType(det.Name()) {
				continue
			}
			res.DetectorsRun = append(res.DetectorsRun, det.Name())
			res.Findings = append(res.Findings, runDetector(ctx, det, ds, cfg)...)
		}
	}

	res.finalize(cfg.ErrorThreshold)

	elapsed := o.now().Sub(start)
	span.SetAttributes(
		attribute.Int("validation.findings", res.FindingsCount),
		attribute.String("validation.status", string(res.Status)),
	)
	o.metrics.RecordRun(ctx, table, res.Status, res.FindingsCount, elapsed)
	o.logger.InfoContext(ctx, "validation completed",
		slog.String("table", table),
		slog.Int("total_rows", res.TotalRows),
		slog.Int("findings", res.FindingsCount),
		slog.String("status", string(res.Status)),
		slog.Duration("duration", elapsed))

	o.store(ctx, res)
	return res
}

// ValidateAll validates several tables concurrently. Runs are independent;
// the slice is ordered like tables regardless of completion order.
func (o *Orchestrator) ValidateAll(ctx context.Context, tables []string, q Query) []*Result {
	results := make([]*Result, len(tables))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, table := range tables {
		g.Go(func() error {
			results[i] = o.Validate(ctx, table, q)
			return nil
		})
	}
	// Validate never returns an error; results carry their own faults.
	_ = g.Wait()
	return results
}

// store hands the result to the sink. Persistence failures are logged, never
// surfaced to the caller.
func (o *Orchestrator) store(ctx context.Context, res *Result) {
	if o.sink == nil {
		return
	}
	if err := o.sink.Save(ctx, res); err != nil {
		o.logger.WarnContext(ctx, "storing validation result failed",
			slog.String("table", res.TableName),
			slog.String("error", err.Error()))
	}
}

// SourceSiblingFetcher adapts a Source into the SiblingFetcher capability
// used by the dividend detector.
type SourceSiblingFetcher struct {
	source Source
}

// NewSiblingFetcher wraps a Source for symbol-scoped sibling reads.
func NewSiblingFetcher(source Source) *SourceSiblingFetcher {
	return &SourceSiblingFetcher{source: source}
}

func (f *SourceSiblingFetcher) FetchSymbol(ctx context.Context, table, symbol string) (*dataset.Dataset, error) {
	return f.source.Fetch(ctx, table, Query{Symbol: symbol})
}
