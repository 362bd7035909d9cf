// Package engine implements the anomaly-detection core: a set of pluggable
// detectors that each inspect a tabular dataset under a distinct lens, plus
// the orchestrator that selects detectors for a table, merges their findings
// and derives an aggregate validation status.
//
// Detectors are pure functions of (dataset, config) with no state across
// invocations. Generic detectors (statistical outliers, business rules, data
// quality, time series) apply to any table; table detectors encode the
// financial-consistency rules of the five IDX market-data tables. A panic
// inside any detector is recovered and reported as a single error-severity
// finding, never aborting the run.
package engine
