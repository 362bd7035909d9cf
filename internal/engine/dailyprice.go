package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"idxval/internal/dataset"
)

// DailyPriceDetector flags extreme day-over-day close price moves in
// idx_daily_data. Only rows from the trailing 7 days are analyzed; older
// history is assumed to have been reviewed by earlier runs.
type DailyPriceDetector struct {
	now func() time.Time
}

// NewDailyPriceDetector creates the detector. now may be nil, in which case
// the wall clock is used; tests inject a fixed clock.
func NewDailyPriceDetector(now func() time.Time) *DailyPriceDetector {
	if now == nil {
		now = time.Now
	}
	return &DailyPriceDetector{now: now}
}

func (d *DailyPriceDetector) Name() string { return "daily_price" }

func (d *DailyPriceDetector) Supports(table string) bool { return table == TableDailyData }

func (d *DailyPriceDetector) Detect(_ context.Context, ds *dataset.Dataset, _ *Config) []Finding {
	required := []string{"date", "symbol", "close"}
	if missing := ds.MissingColumns(required); len(missing) > 0 {
		return []Finding{missingColumnsFinding(missing)}
	}

	cutoff := dataset.Date(d.now()).AddDate(0, 0, -7)
	recent := ds.Filter(func(row dataset.Row) bool {
		at, ok := dataset.Time(row["date"])
		return ok && !at.Before(cutoff)
	})

	var findings []Finding
	symbols, groups := recent.GroupByText("symbol")
	for _, symbol := range symbols {
		sorted, times := groups[symbol].SortByTime("date")
		if sorted.Len() < 2 {
			continue
		}

		series := make([]float64, sorted.Len())
		for i, row := range sorted.Rows() {
			if v, ok := dataset.Number(row["close"]); ok {
				series[i] = v
			} else {
				series[i] = math.NaN()
			}
		}

		for i, change := range pctChanges(series) {
			pct := change * 100
			if math.IsNaN(pct) || math.Abs(pct) <= 35 {
				continue
			}
			day := times[i+1].Format("2006-01-02")
			close := series[i+1]
			findings = append(findings, Finding{
				Kind:     KindExtremeDailyChange,
				Severity: SeverityWarning,
				Message: fmt.Sprintf("Symbol %s on %s: Close price changed by %.1f%% (close: %v)",
					symbol, day, pct, close),
				Details: map[string]any{
					"symbol":           symbol,
					"date":             day,
					"close_price":      close,
					"price_change_pct": detailNumber(round2(pct)),
				},
			})
		}
	}
	return findings
}
