package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idxval/internal/engine"
	"idxval/internal/resultstore"
)

func sampleStored() []resultstore.Stored {
	return []resultstore.Stored{
		{
			ID:             "run-1",
			TableName:      "idx_daily_data",
			ValidationType: "scheduled",
			Status:         "warning",
			AnomaliesCount: 3,
			CreatedAt:      time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
		},
		{
			ID:             "run-2",
			TableName:      "idx_dividend",
			ValidationType: "scheduled",
			Status:         "success",
			AnomaliesCount: 0,
			CreatedAt:      time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC),
		},
	}
}

func TestWriteResultsCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteResultsCSV(&buf, sampleStored(), false)
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, resultHeaders, records[0])
	assert.Equal(t, []string{"run-1", "idx_daily_data", "scheduled", "warning", "3", "2025-06-01 09:30:00"}, records[1])
	assert.Equal(t, []string{"run-2", "idx_dividend", "scheduled", "success", "0", "2025-06-02 09:30:00"}, records[2])
}

func TestWriteResultsCSVWithBOM(t *testing.T) {
	var buf bytes.Buffer
	err := WriteResultsCSV(&buf, nil, true)
	require.NoError(t, err)

	out := buf.Bytes()
	require.True(t, len(out) > 3)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, out[:3])
}

func TestWriteFindingsCSV(t *testing.T) {
	res := &engine.Result{
		ID:        "run-9",
		TableName: "idx_combine_financials_annual",
		Findings: []engine.Finding{
			{Kind: "missing_period", Severity: engine.SeverityWarning, Message: "BBCA.JK missing 2023"},
			{Kind: "value_spike", Severity: engine.SeverityError, Message: "revenue jumped 40x"},
		},
	}

	var buf bytes.Buffer
	err := WriteFindingsCSV(&buf, res, false)
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, findingHeaders, records[0])
	assert.Equal(t, []string{"run-9", "idx_combine_financials_annual", "missing_period", "warning", "BBCA.JK missing 2023"}, records[1])
	assert.Equal(t, []string{"run-9", "idx_combine_financials_annual", "value_spike", "error", "revenue jumped 40x"}, records[2])
}

func TestFileWriterExportFindings(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	w := NewFileWriter(dir, nil)

	res := &engine.Result{
		ID:        "run-9",
		TableName: "idx_dividend",
		Findings: []engine.Finding{
			{Kind: "large_average_yield_change_per_year", Severity: engine.SeverityWarning, Message: "yield doubled"},
		},
	}
	err := w.ExportFindings("findings.csv", res)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "findings.csv"))
	require.NoError(t, err)

	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, data[:3])
	records, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"run-9", "idx_dividend", "large_average_yield_change_per_year", "warning", "yield doubled"}, records[1])
}

func TestFileWriterExportResults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	w := NewFileWriter(dir, nil)

	err := w.ExportResults("results.csv", sampleStored())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "results.csv"))
	require.NoError(t, err)

	// BOM then header row.
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, data[:3])
	records, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}
