package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idxval/internal/dataset"
)

// stubSource serves fixed datasets per table.
type stubSource struct {
	data map[string]*dataset.Dataset
	err  error
}

func (s *stubSource) Fetch(_ context.Context, table string, _ Query) (*dataset.Dataset, error) {
	if s.err != nil {
		return nil, s.err
	}
	if ds, ok := s.data[table]; ok {
		return ds, nil
	}
	return dataset.Empty(), nil
}

// recordingSink captures saved results and optionally fails.
type recordingSink struct {
	mu    sync.Mutex
	saved []*Result
	err   error
}

func (s *recordingSink) Save(_ context.Context, res *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, res)
	return nil
}

func newTestOrchestrator(source Source, sink ResultSink) *Orchestrator {
	registry := NewRegistry(nil, fixedClock("2025-06-15"))
	o := NewOrchestrator(source, sink, NewResolver(nil, nil), registry, nil)
	o.SetClock(fixedClock("2025-06-15"))
	return o
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name      string
		findings  int
		threshold int
		expected  Status
	}{
		{"no findings", 0, 5, StatusSuccess},
		{"one finding", 1, 5, StatusWarning},
		{"at threshold", 5, 5, StatusWarning},
		{"above threshold", 6, 5, StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, statusFor(tt.findings, tt.threshold))
		})
	}
}

func TestOrchestrator_DomainTable(t *testing.T) {
	source := &stubSource{data: map[string]*dataset.Dataset{
		TableAllTimePrice: dataset.New([]dataset.Row{
			{"symbol": "AAAA", "type": "90_d_high", "date": "2025-01-01", "price": 100.0},
			{"symbol": "AAAA", "type": "all_time_high", "date": "2025-01-01", "price": 90.0},
		}),
	}}
	sink := &recordingSink{}
	o := newTestOrchestrator(source, sink)

	res := o.Validate(context.Background(), TableAllTimePrice, Query{})

	assert.Equal(t, TableAllTimePrice, res.TableName)
	assert.Equal(t, []string{"all_time_price"}, res.DetectorsRun)
	assert.Equal(t, 2, res.TotalRows)
	assert.Equal(t, 1, res.FindingsCount)
	assert.Len(t, res.Findings, res.FindingsCount)
	assert.Equal(t, StatusWarning, res.Status)
	assert.NotEmpty(t, res.ID)

	require.Len(t, sink.saved, 1)
	assert.Same(t, res, sink.saved[0])
}

func TestOrchestrator_GenericFallback(t *testing.T) {
	source := &stubSource{data: map[string]*dataset.Dataset{
		"app_users": dataset.New([]dataset.Row{
			{"id": 1.0, "email": "a@example.com"},
			{"id": 2.0, "email": "a@example.com"},
		}),
	}}
	o := newTestOrchestrator(source, &recordingSink{})

	res := o.Validate(context.Background(), "app_users", Query{})

	// "user" pattern config enables data quality then business rules;
	// detectors run in the engine's fixed order.
	assert.Equal(t, []string{TypeBusinessRules, TypeDataQuality}, res.DetectorsRun)
	assert.Equal(t, 1, res.FindingsCount)
	assert.Equal(t, KindDuplicateValues, res.Findings[0].Kind)
}

func TestOrchestrator_FetchFault(t *testing.T) {
	sink := &recordingSink{}
	o := newTestOrchestrator(&stubSource{err: errors.New("connection refused")}, sink)

	res := o.Validate(context.Background(), TableDailyData, Query{})

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, TableDailyData, res.TableName)
	assert.Contains(t, res.Fault, "connection refused")
	assert.Empty(t, res.Findings)
	assert.Empty(t, sink.saved, "faulted runs are not persisted")
}

func TestOrchestrator_SinkFailureIsSwallowed(t *testing.T) {
	source := &stubSource{data: map[string]*dataset.Dataset{}}
	o := newTestOrchestrator(source, &recordingSink{err: errors.New("disk full")})

	res := o.Validate(context.Background(), TableDividend, Query{})
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Empty(t, res.Fault)
}

func TestOrchestrator_EmptyDomainDataset(t *testing.T) {
	o := newTestOrchestrator(&stubSource{}, &recordingSink{})

	res := o.Validate(context.Background(), TableAnnualFinancials, Query{})
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 0, res.TotalRows)
	assert.Equal(t, []string{"annual_financials"}, res.DetectorsRun)
	assert.Empty(t, res.Findings)
}

func TestOrchestrator_ValidateAll(t *testing.T) {
	source := &stubSource{data: map[string]*dataset.Dataset{}}
	o := newTestOrchestrator(source, &recordingSink{})

	tables := []string{TableAnnualFinancials, TableDailyData, TableDividend}
	results := o.ValidateAll(context.Background(), tables, Query{})

	require.Len(t, results, 3)
	for i, table := range tables {
		assert.Equal(t, table, results[i].TableName)
		assert.Equal(t, StatusSuccess, results[i].Status)
	}
}

func TestOrchestrator_Idempotence(t *testing.T) {
	source := &stubSource{data: map[string]*dataset.Dataset{
		TableAllTimePrice: dataset.New([]dataset.Row{
			{"symbol": "AAAA", "type": "90_d_high", "date": "2025-01-01", "price": 100.0},
			{"symbol": "AAAA", "type": "all_time_high", "date": "2025-01-01", "price": 90.0},
		}),
	}}
	o := newTestOrchestrator(source, nil)

	first := o.Validate(context.Background(), TableAllTimePrice, Query{})
	second := o.Validate(context.Background(), TableAllTimePrice, Query{})

	a, err := json.Marshal(first.Findings)
	require.NoError(t, err)
	b, err := json.Marshal(second.Findings)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b), "detectors are pure functions of their input")
}

func TestFindingMarshalJSON(t *testing.T) {
	f := Finding{
		Kind:     KindStatisticalOutlier,
		Severity: SeverityWarning,
		Message:  "Found 1 statistical outliers in column 'value'",
		Details:  map[string]any{"column": "value", "count": 1},
	}
	raw, err := json.Marshal(f)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "statistical_outlier", decoded["type"])
	assert.Equal(t, "warning", decoded["severity"])
	assert.Equal(t, "value", decoded["column"])
	assert.Equal(t, 1.0, decoded["count"])
}

func TestDetectorPanicBecomesFinding(t *testing.T) {
	findings := runDetector(context.Background(), panickyDetector{}, dataset.Empty(), nil)
	require.Len(t, findings, 1)
	assert.Equal(t, KindValidationError, findings[0].Kind)
	assert.Equal(t, SeverityError, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "boom")
}

type panickyDetector struct{}

func (panickyDetector) Name() string { return "panicky" }
func (panickyDetector) Detect(context.Context, *dataset.Dataset, *Config) []Finding {
	panic("boom")
}
