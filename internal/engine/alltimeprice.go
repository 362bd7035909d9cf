package engine

import (
	"context"
	"fmt"
	"strings"

	"idxval/internal/dataset"
)

// canonicalPeriods maps raw type tags in idx_all_time_price to the eight
// canonical high/low periods used for hierarchy checks.
var canonicalPeriods = map[string]string{
	"all_time_high": "all_time_high",
	"all_time_low":  "all_time_low",
	"52_w_high":     "52w_high",
	"52_w_low":      "52w_low",
	"90_d_high":     "90d_high",
	"90_d_low":      "90d_low",
	"ytd_high":      "ytd_high",
	"ytd_low":       "ytd_low",
}

// highHierarchy and lowHierarchy order the canonical periods from the
// shortest to the longest window. Highs must be non-decreasing along the
// order, lows non-increasing.
var (
	highHierarchy = []string{"90d_high", "ytd_high", "52w_high", "all_time_high"}
	lowHierarchy  = []string{"90d_low", "ytd_low", "52w_low", "all_time_low"}
)

// AllTimePriceDetector checks the internal consistency of the
// idx_all_time_price table: for each symbol the per-period extreme prices
// must respect the containment hierarchy of their windows.
type AllTimePriceDetector struct{}

func NewAllTimePriceDetector() *AllTimePriceDetector { return &AllTimePriceDetector{} }

func (*AllTimePriceDetector) Name() string { return "all_time_price" }

func (*AllTimePriceDetector) Supports(table string) bool { return table == TableAllTimePrice }

func (*AllTimePriceDetector) Detect(_ context.Context, ds *dataset.Dataset, _ *Config) []Finding {
	required := []string{"symbol", "type", "date", "price"}
	if missing := ds.MissingColumns(required); len(missing) > 0 {
		return []Finding{missingColumnsFinding(missing)}
	}

	var findings []Finding
	symbols, groups := ds.GroupByText("symbol")
	for _, symbol := range symbols {
		// One price per canonical period; the first non-null value wins when
		// a type tag appears more than once.
		values := make(map[string]float64)
		for _, row := range groups[symbol].Rows() {
			tag, ok := dataset.Text(row["type"])
			if !ok {
				continue
			}
			period, known := canonicalPeriods[tag]
			if !known {
				continue
			}
			if _, taken := values[period]; taken {
				continue
			}
			if price, ok := dataset.Number(row["price"]); ok {
				values[period] = price
			}
		}

		var issues []string
		issues = append(issues, hierarchyIssues(values, highHierarchy, false)...)
		issues = append(issues, hierarchyIssues(values, lowHierarchy, true)...)

		if len(issues) > 0 {
			findings = append(findings, Finding{
				Kind:     KindPriceInconsistency,
				Severity: SeverityError,
				Message: fmt.Sprintf("symbol %s: Price data inconsistencies detected - %s",
					symbol, strings.Join(issues, "; ")),
				Details: map[string]any{
					"symbol": symbol,
					"issues": issues,
					"values": values,
				},
			})
		}
	}
	return findings
}

// hierarchyIssues checks adjacent pairs of the present periods along the
// given order. For highs a shorter window exceeding a longer one is a
// violation; for lows (descending=true) the comparison flips.
func hierarchyIssues(values map[string]float64, order []string, descending bool) []string {
	type entry struct {
		period string
		value  float64
	}
	var present []entry
	for _, period := range order {
		if v, ok := values[period]; ok {
			present = append(present, entry{period: period, value: v})
		}
	}

	var issues []string
	for i := 0; i+1 < len(present); i++ {
		cur, next := present[i], present[i+1]
		if !descending && cur.value > next.value {
			issues = append(issues, fmt.Sprintf("%s (%v) > %s (%v)", cur.period, cur.value, next.period, next.value))
		}
		if descending && cur.value < next.value {
			issues = append(issues, fmt.Sprintf("%s (%v) < %s (%v)", cur.period, cur.value, next.period, next.value))
		}
	}
	return issues
}
