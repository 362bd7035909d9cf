package engine

import "time"

// Status is the aggregate verdict of one validation run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Result is the outcome of validating one table. A Result is always produced,
// even when the run faults; in that case Fault carries the failure and
// Findings may be empty.
type Result struct {
	ID            string    `json:"id"`
	TableName     string    `json:"table_name"`
	Timestamp     time.Time `json:"validation_timestamp"`
	TotalRows     int       `json:"total_rows"`
	DetectorsRun  []string  `json:"validations_performed"`
	Findings      []Finding `json:"anomalies"`
	FindingsCount int       `json:"anomalies_count"`
	Status        Status    `json:"status"`
	Fault         string    `json:"error,omitempty"`
}

// statusFor derives the aggregate status from the finding count and the
// configured error threshold. More findings than the threshold is an error;
// any finding at all is at least a warning.
func statusFor(findings, errorThreshold int) Status {
	switch {
	case findings > errorThreshold:
		return StatusError
	case findings > 0:
		return StatusWarning
	default:
		return StatusSuccess
	}
}

// finalize fixes the finding count and status after all detectors ran.
func (r *Result) finalize(errorThreshold int) {
	r.FindingsCount = len(r.Findings)
	r.Status = statusFor(r.FindingsCount, errorThreshold)
}
