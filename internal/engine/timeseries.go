package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"idxval/internal/dataset"
)

// TimeSeriesDetector analyzes the configured time column for coverage gaps
// and, when an "amount" column exists, for days whose summed amount swings
// more than 50% against the previous day. Rows whose time value does not
// parse are excluded from the analysis rather than faulted.
type TimeSeriesDetector struct{}

func (TimeSeriesDetector) Name() string { return TypeTimeSeries }

func (TimeSeriesDetector) Detect(_ context.Context, ds *dataset.Dataset, cfg *Config) []Finding {
	if ds.IsEmpty() || cfg == nil || cfg.TimeColumn == "" || !ds.HasColumn(cfg.TimeColumn) {
		return nil
	}

	sorted, times := ds.SortByTime(cfg.TimeColumn)

	var findings []Finding

	gaps := 0
	for i := 1; i < len(times); i++ {
		if times[i].Sub(times[i-1]) > 24*time.Hour {
			gaps++
		}
	}
	if gaps > 0 {
		findings = append(findings, Finding{
			Kind:     KindDataGaps,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Found %d significant time gaps in data", gaps),
			Details: map[string]any{
				"column": cfg.TimeColumn,
				"count":  gaps,
			},
		})
	}

	if sorted.HasColumn("amount") {
		if unusual := unusualDailyVolumeChanges(sorted, times); unusual > 0 {
			findings = append(findings, Finding{
				Kind:     KindUnusualVolumeChange,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("Found %d days with unusual volume changes", unusual),
				Details: map[string]any{
					"column": "amount",
					"count":  unusual,
				},
			})
		}
	}

	return findings
}

// unusualDailyVolumeChanges sums the amount column per calendar day and
// counts the days whose sum moved more than 50% day over day.
func unusualDailyVolumeChanges(ds *dataset.Dataset, times []time.Time) int {
	sums := make(map[time.Time]float64)
	var days []time.Time
	for i, row := range ds.Rows() {
		v, ok := dataset.Number(row["amount"])
		if !ok {
			continue
		}
		day := dataset.Date(times[i])
		if _, seen := sums[day]; !seen {
			days = append(days, day)
		}
		sums[day] += v
	}
	if len(days) < 2 {
		return 0
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	series := make([]float64, len(days))
	for i, day := range days {
		series[i] = sums[day]
	}
	count := 0
	for _, change := range pctChanges(series) {
		if !math.IsNaN(change) && math.Abs(change) > 0.5 {
			count++
		}
	}
	return count
}
