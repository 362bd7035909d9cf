package engine

import (
	"context"
	"fmt"
	"strings"

	"idxval/internal/dataset"
)

// BusinessRuleDetector checks a dataset against the configured business
// rules: required fields must exist as columns, listed columns must hold
// unique values, and an "amount" column must stay inside the configured
// range. A rule referencing a column the dataset lacks is skipped, not a
// fault.
type BusinessRuleDetector struct{}

func (BusinessRuleDetector) Name() string { return TypeBusinessRules }

func (BusinessRuleDetector) Detect(_ context.Context, ds *dataset.Dataset, cfg *Config) []Finding {
	if ds.IsEmpty() || cfg == nil {
		return nil
	}

	var findings []Finding

	if len(cfg.Rules.RequiredFields) > 0 {
		if missing := ds.MissingColumns(cfg.Rules.RequiredFields); len(missing) > 0 {
			findings = append(findings, Finding{
				Kind:     KindMissingRequiredFields,
				Severity: SeverityError,
				Message:  fmt.Sprintf("Missing required fields: %s", strings.Join(missing, ", ")),
				Details:  map[string]any{"fields": missing},
			})
		}
	}

	for _, col := range cfg.Rules.NoDuplicates {
		if !ds.HasColumn(col) {
			continue
		}
		if count := duplicateRowCount(ds, col); count > 0 {
			findings = append(findings, Finding{
				Kind:     KindDuplicateValues,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("Found %d duplicate values in column '%s'", count, col),
				Details: map[string]any{
					"column": col,
					"count":  count,
				},
			})
		}
	}

	if r := cfg.Rules.AmountRange; r != nil && ds.HasColumn("amount") {
		invalid := 0
		for _, row := range ds.Rows() {
			if v, ok := dataset.Number(row["amount"]); ok && (v < r.Min || v > r.Max) {
				invalid++
			}
		}
		if invalid > 0 {
			findings = append(findings, Finding{
				Kind:     KindValueOutOfRange,
				Severity: SeverityError,
				Message:  fmt.Sprintf("Found %d amounts outside valid range (%v-%v)", invalid, r.Min, r.Max),
				Details: map[string]any{
					"column": "amount",
					"count":  invalid,
				},
			})
		}
	}

	return findings
}

// duplicateRowCount counts every row that shares its value with another row,
// not just the surplus occurrences ("keep=none" counting). Null cells never
// count as duplicates of each other.
func duplicateRowCount(ds *dataset.Dataset, col string) int {
	occurrences := make(map[any]int)
	for _, row := range ds.Rows() {
		v := row[col]
		if dataset.IsNull(v) {
			continue
		}
		occurrences[v]++
	}
	count := 0
	for _, n := range occurrences {
		if n > 1 {
			count += n
		}
	}
	return count
}
