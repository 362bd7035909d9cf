package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"idxval/internal/dataset"
)

// SiblingFetcher retrieves rows of another table for one symbol. The
// dividend detector uses it to read the daily price table; keeping it an
// injected capability keeps the detector testable without a live source.
type SiblingFetcher interface {
	FetchSymbol(ctx context.Context, table, symbol string) (*dataset.Dataset, error)
}

// DividendDetector inspects idx_dividend per symbol and year. The mean yield
// of the current year is overridden by a derived figure — mean dividend over
// mean daily close — before two checks run on the yearly series: absolute
// level (>= 30%) and year-over-year change (>= 20%).
type DividendDetector struct {
	daily SiblingFetcher
	now   func() time.Time
}

// NewDividendDetector creates the detector. daily may be nil, which disables
// the current-year derived-yield override.
func NewDividendDetector(daily SiblingFetcher, now func() time.Time) *DividendDetector {
	if now == nil {
		now = time.Now
	}
	return &DividendDetector{daily: daily, now: now}
}

func (d *DividendDetector) Name() string { return "dividend" }

func (d *DividendDetector) Supports(table string) bool { return table == TableDividend }

func (d *DividendDetector) Detect(ctx context.Context, ds *dataset.Dataset, cfg *Config) []Finding {
	required := []string{"symbol", "yield", "date"}
	if missing := ds.MissingColumns(required); len(missing) > 0 {
		return []Finding{missingColumnsFinding(missing)}
	}

	thisYear := d.now().Year()

	var findings []Finding
	symbols, groups := ds.GroupByText("symbol")
	for _, symbol := range symbols {
		group := groups[symbol]
		yearlyYield := yearlyMeans(group, "yield")
		yearlyDiv := yearlyMeans(group, "dividend")

		if derived, ok := d.derivedCurrentYield(ctx, symbol, thisYear, yearlyDiv, cfg); ok {
			yearlyYield[thisYear] = derived
		}
		if len(yearlyYield) == 0 {
			continue
		}

		years := make([]int, 0, len(yearlyYield))
		for year := range yearlyYield {
			years = append(years, year)
		}
		sort.Ints(years)

		for _, year := range years {
			avg := yearlyYield[year]
			if avg >= 0.3 {
				findings = append(findings, Finding{
					Kind:     KindHighAverageYield,
					Severity: SeverityWarning,
					Message: fmt.Sprintf("symbol %s year %d: Average yield %.2f%% >= 30%%",
						symbol, year, avg*100),
					Details: map[string]any{
						"symbol":        symbol,
						"year":          year,
						"average_yield": avg,
					},
				})
			}
		}

		series := make([]float64, len(years))
		for i, year := range years {
			series[i] = yearlyYield[year]
		}
		for i, change := range pctChanges(series) {
			if math.IsNaN(change) || math.Abs(change) < 0.2 {
				continue
			}
			findings = append(findings, Finding{
				Kind:     KindLargeYieldChange,
				Severity: SeverityWarning,
				Message: fmt.Sprintf("symbol %s year %d: Average yield change %.2f%% >= 20%%",
					symbol, years[i+1], math.Abs(change)*100),
				Details: map[string]any{
					"symbol":       symbol,
					"year":         years[i+1],
					"yield_change": detailNumber(math.Abs(change)),
				},
			})
		}
	}
	return findings
}

// derivedCurrentYield computes dividend mean / mean close for the current
// year. Both inputs must be available; a failing or empty daily fetch simply
// skips the override. A configured per-symbol adjustment factor is applied to
// the dividend mean first.
func (d *DividendDetector) derivedCurrentYield(ctx context.Context, symbol string, year int, yearlyDiv map[int]float64, cfg *Config) (float64, bool) {
	if d.daily == nil {
		return 0, false
	}
	div, ok := yearlyDiv[year]
	if !ok {
		return 0, false
	}
	if cfg != nil {
		if factor, ok := cfg.DividendAdjustments[symbol]; ok {
			div *= factor
		}
	}

	daily, err := d.daily.FetchSymbol(ctx, TableDailyData, symbol)
	if err != nil || daily == nil {
		return 0, false
	}
	var closes []float64
	for _, row := range daily.Rows() {
		at, ok := dataset.Time(row["date"])
		if !ok || at.Year() != year {
			continue
		}
		if v, ok := dataset.Number(row["close"]); ok {
			closes = append(closes, v)
		}
	}
	if len(closes) == 0 {
		return 0, false
	}
	avgClose := mean(closes)
	if avgClose == 0 {
		return 0, false
	}
	return div / avgClose, true
}

// yearlyMeans averages a column per calendar year, keyed by the year of the
// date column. Years with no non-null value are absent from the result.
func yearlyMeans(ds *dataset.Dataset, col string) map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, row := range ds.Rows() {
		at, ok := dataset.Time(row["date"])
		if !ok {
			continue
		}
		v, ok := dataset.Number(row[col])
		if !ok {
			continue
		}
		sums[at.Year()] += v
		counts[at.Year()]++
	}
	means := make(map[int]float64, len(sums))
	for year, sum := range sums {
		means[year] = sum / float64(counts[year])
	}
	return means
}
