package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"idxval/internal/dataset"
)

// financialMetricSpec parameterizes the shared period-over-period change
// analysis for the annual and quarterly financial tables. The two tables
// carry deliberately different revenue column names (`revenue` vs
// `total_revenue`), so each keeps its own required-column set.
type financialMetricSpec struct {
	table       string
	name        string
	kind        string
	periodNoun  string
	periodField string
	required    []string
	metrics     []string
	minPeriods  int
	periodLabel func(t time.Time) any
}

// FinancialChangeDetector flags symbols whose financial metrics move
// extremely between reporting periods. A change counts as extreme only when
// its magnitude exceeds 50% AND 1.5 times the symbol/metric's own average
// absolute change; the second, adaptive condition suppresses false positives
// on series that are volatile every period.
type FinancialChangeDetector struct {
	spec financialMetricSpec
}

// NewAnnualFinancialsDetector validates idx_combine_financials_annual.
func NewAnnualFinancialsDetector() *FinancialChangeDetector {
	return &FinancialChangeDetector{spec: financialMetricSpec{
		table:       TableAnnualFinancials,
		name:        "annual_financials",
		kind:        KindExtremeAnnualChange,
		periodNoun:  "annual",
		periodField: "years_affected",
		required:    []string{"date", "symbol", "revenue", "earnings", "total_assets"},
		metrics:     []string{"revenue", "earnings", "total_assets", "total_equity", "operating_pnl"},
		minPeriods:  2,
		periodLabel: func(t time.Time) any { return t.Year() },
	}}
}

// NewQuarterlyFinancialsDetector validates idx_combine_financials_quarterly.
func NewQuarterlyFinancialsDetector() *FinancialChangeDetector {
	return &FinancialChangeDetector{spec: financialMetricSpec{
		table:       TableQuarterlyFinancials,
		name:        "quarterly_financials",
		kind:        KindExtremeQuarterlyChange,
		periodNoun:  "quarterly",
		periodField: "periods_affected",
		required:    []string{"date", "symbol", "total_revenue", "earnings", "total_assets"},
		metrics:     []string{"total_revenue", "earnings", "total_assets", "total_equity", "operating_pnl"},
		minPeriods:  4,
		periodLabel: func(t time.Time) any { return t.Format("2006-01-02") },
	}}
}

func (d *FinancialChangeDetector) Name() string { return d.spec.name }

func (d *FinancialChangeDetector) Supports(table string) bool { return table == d.spec.table }

func (d *FinancialChangeDetector) Detect(_ context.Context, ds *dataset.Dataset, _ *Config) []Finding {
	if missing := ds.MissingColumns(d.spec.required); len(missing) > 0 {
		return []Finding{missingColumnsFinding(missing)}
	}

	var findings []Finding
	symbols, groups := ds.GroupByText("symbol")
	for _, symbol := range symbols {
		sorted, times := groups[symbol].SortByTime("date")
		if sorted.Len() < d.spec.minPeriods {
			continue
		}
		for _, metric := range d.spec.metrics {
			if !ds.HasColumn(metric) || sorted.AllNull(metric) {
				continue
			}
			if f, ok := d.analyzeMetric(symbol, metric, sorted, times); ok {
				findings = append(findings, f)
			}
		}
	}
	return findings
}

// analyzeMetric computes the percentage change series for one symbol/metric
// pair and reports it when at least one change passes both the absolute and
// the adaptive threshold. The affected-period list carries every period with
// |change| > 50, not only the ones passing the stricter adaptive test.
func (d *FinancialChangeDetector) analyzeMetric(symbol, metric string, sorted *dataset.Dataset, times []time.Time) (Finding, bool) {
	series := make([]float64, sorted.Len())
	for i, row := range sorted.Rows() {
		if v, ok := dataset.Number(row[metric]); ok {
			series[i] = v
		} else {
			series[i] = math.NaN()
		}
	}

	changes := pctChanges(series)
	var valid []float64
	for _, c := range changes {
		if !math.IsNaN(c) {
			valid = append(valid, c*100)
		}
	}
	if len(valid) == 0 {
		return Finding{}, false
	}

	avgAbs := meanAbs(valid)

	var extremes []float64
	var affected []any
	for i, c := range changes {
		if math.IsNaN(c) {
			continue
		}
		pct := c * 100
		if math.Abs(pct) > 50 {
			// Periods are labeled by the row the change lands on.
			affected = append(affected, d.spec.periodLabel(times[i+1]))
			if math.Abs(pct) > avgAbs*1.5 {
				extremes = append(extremes, pct)
			}
		}
	}
	if len(extremes) == 0 {
		return Finding{}, false
	}

	return Finding{
		Kind:     d.spec.kind,
		Severity: SeverityWarning,
		Message: fmt.Sprintf("Symbol %s: %s shows extreme %s changes (>50%%) in periods %v. Average absolute change: %.1f%%",
			symbol, metric, d.spec.periodNoun, affected, avgAbs),
		Details: map[string]any{
			"symbol":              symbol,
			"metric":              metric,
			d.spec.periodField:    affected,
			"extreme_pct_changes": extremes,
			"avg_abs_change":      round2(avgAbs),
		},
	}, true
}
