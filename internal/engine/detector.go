package engine

import (
	"context"
	"fmt"
	"strings"

	"idxval/internal/dataset"
)

// Detector inspects one dataset and reports findings. Implementations must
// be pure: no state across invocations, no dataset mutation.
type Detector interface {
	Name() string
	Detect(ctx context.Context, ds *dataset.Dataset, cfg *Config) []Finding
}

// TableDetector is a detector that claims specific tables by name.
type TableDetector interface {
	Detector
	Supports(table string) bool
}

// runDetector executes det and converts a panic into a single error-severity
// validation_error finding. A fault inside one detector never aborts the run.
func runDetector(ctx context.Context, det Detector, ds *dataset.Dataset, cfg *Config) (findings []Finding) {
	defer func() {
		if r := recover(); r != nil {
			findings = []Finding{{
				Kind:     KindValidationError,
				Severity: SeverityError,
				Message:  fmt.Sprintf("Error in %s validation: %v", det.Name(), r),
			}}
		}
	}()
	return det.Detect(ctx, ds, cfg)
}

// missingColumnsFinding builds the single error finding emitted when a table
// detector's required columns are absent.
func missingColumnsFinding(missing []string) Finding {
	return Finding{
		Kind:     KindMissingRequiredColumns,
		Severity: SeverityError,
		Message:  fmt.Sprintf("Missing required columns: %s", strings.Join(missing, ", ")),
		Details:  map[string]any{"columns": missing},
	}
}
