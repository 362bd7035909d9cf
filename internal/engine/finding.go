package engine

import "encoding/json"

// Severity classifies how serious a finding is.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding kinds emitted by the detectors.
const (
	KindStatisticalOutlier     = "statistical_outlier"
	KindMissingRequiredFields  = "missing_required_fields"
	KindDuplicateValues        = "duplicate_values"
	KindValueOutOfRange        = "value_out_of_range"
	KindHighNullPercentage     = "high_null_percentage"
	KindInvalidEmailFormat     = "invalid_email_format"
	KindDataGaps               = "data_gaps"
	KindUnusualVolumeChange    = "unusual_volume_change"
	KindMissingRequiredColumns = "missing_required_columns"
	KindExtremeAnnualChange    = "extreme_annual_change"
	KindExtremeQuarterlyChange = "extreme_quarterly_change"
	KindExtremeDailyChange     = "extreme_daily_price_change"
	KindHighAverageYield       = "high_average_yield_per_year"
	KindLargeYieldChange       = "large_average_yield_change_per_year"
	KindPriceInconsistency     = "price_data_inconsistency"
	KindValidationError        = "validation_error"
)

// Finding is one reported anomaly. Findings are immutable once produced;
// detectors never touch findings emitted by another detector.
type Finding struct {
	Kind     string
	Severity Severity
	Message  string

	// Details carries kind-specific structured fields (symbol, metric,
	// affected periods, numeric deltas). Serialized inline alongside the
	// fixed fields.
	Details map[string]any
}

// MarshalJSON flattens Details into the top-level object so a finding
// serializes the same way regardless of which detector produced it.
func (f Finding) MarshalJSON() ([]byte, error) {
	data := make(map[string]any, len(f.Details)+3)
	for k, v := range f.Details {
		data[k] = v
	}
	data["type"] = f.Kind
	data["severity"] = f.Severity
	data["message"] = f.Message
	return json.Marshal(data)
}
