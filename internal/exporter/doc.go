// Package exporter writes validation output as CSV.
//
// WriteResultsCSV streams stored run summaries and WriteFindingsCSV streams
// the findings of a single run, both to any io.Writer so HTTP handlers can
// export directly to the response. Files carry an optional UTF-8 BOM for
// Excel compatibility. FileWriter wraps the same encoding for on-disk
// archives produced by batch runs.
package exporter
