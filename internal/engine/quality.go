package engine

import (
	"context"
	"fmt"
	"regexp"

	"idxval/internal/dataset"
)

// emailPattern accepts local-part@domain.tld with an ASCII local part and a
// TLD of at least two letters.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// DataQualityDetector reports columns with a high share of nulls and, when
// an email column is present, counts non-null values that are not well-formed
// addresses.
type DataQualityDetector struct{}

func (DataQualityDetector) Name() string { return TypeDataQuality }

func (DataQualityDetector) Detect(_ context.Context, ds *dataset.Dataset, _ *Config) []Finding {
	if ds.IsEmpty() {
		return nil
	}

	var findings []Finding

	for _, col := range ds.Columns() {
		nullPct := float64(ds.NullCount(col)) / float64(ds.Len()) * 100
		if nullPct > 20 {
			findings = append(findings, Finding{
				Kind:     KindHighNullPercentage,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("Column '%s' has %.1f%% null values", col, nullPct),
				Details: map[string]any{
					"column":     col,
					"percentage": round2(nullPct),
				},
			})
		}
	}

	if ds.HasColumn("email") {
		invalid := 0
		for _, row := range ds.Rows() {
			s, ok := dataset.Text(row["email"])
			if !ok {
				continue
			}
			if !emailPattern.MatchString(s) {
				invalid++
			}
		}
		if invalid > 0 {
			findings = append(findings, Finding{
				Kind:     KindInvalidEmailFormat,
				Severity: SeverityError,
				Message:  fmt.Sprintf("Found %d invalid email formats", invalid),
				Details: map[string]any{
					"column": "email",
					"count":  invalid,
				},
			})
		}
	}

	return findings
}
