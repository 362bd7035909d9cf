package engine

import (
	"context"
	"fmt"

	"idxval/internal/dataset"
)

// StatisticalOutlierDetector flags values falling outside the IQR fence of
// their column. For every numeric column with at least one non-null value it
// computes Q1 and Q3 with linear interpolation, derives
// [Q1 - 1.5*IQR, Q3 + 1.5*IQR] and counts the values outside those bounds.
type StatisticalOutlierDetector struct{}

func (StatisticalOutlierDetector) Name() string { return TypeStatistical }

func (StatisticalOutlierDetector) Detect(_ context.Context, ds *dataset.Dataset, _ *Config) []Finding {
	if ds.IsEmpty() {
		return nil
	}

	var findings []Finding
	for _, col := range ds.NumericColumns() {
		values := ds.Numbers(col)
		if len(values) == 0 {
			continue
		}

		q1 := quantile(values, 0.25)
		q3 := quantile(values, 0.75)
		iqr := q3 - q1
		lower := q1 - 1.5*iqr
		upper := q3 + 1.5*iqr

		outliers := 0
		for _, v := range values {
			if v < lower || v > upper {
				outliers++
			}
		}
		if outliers > 0 {
			findings = append(findings, Finding{
				Kind:     KindStatisticalOutlier,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("Found %d statistical outliers in column '%s'", outliers, col),
				Details: map[string]any{
					"column": col,
					"count":  outliers,
				},
			})
		}
	}
	return findings
}
