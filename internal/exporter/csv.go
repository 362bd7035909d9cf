package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"idxval/internal/engine"
	"idxval/internal/resultstore"
)

// resultHeaders is the column set of a result export, matching the fields of
// a stored result record.
var resultHeaders = []string{"id", "table_name", "validation_type", "status", "anomalies_count", "created_at"}

// findingHeaders is the column set of a finding export.
var findingHeaders = []string{"run_id", "table_name", "type", "severity", "message"}

// WriteResultsCSV streams stored validation results as CSV. withBOM prefixes
// a UTF-8 BOM so Excel opens the file correctly.
func WriteResultsCSV(w io.Writer, results []resultstore.Stored, withBOM bool) error {
	if withBOM {
		if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(resultHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, res := range results {
		record := []string{
			res.ID,
			res.TableName,
			res.ValidationType,
			res.Status,
			formatInt(int64(res.AnomaliesCount)),
			res.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteFindingsCSV streams the findings of one validation run as CSV.
func WriteFindingsCSV(w io.Writer, res *engine.Result, withBOM bool) error {
	if withBOM {
		if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(findingHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, f := range res.Findings {
		record := []string{
			res.ID,
			res.TableName,
			f.Kind,
			string(f.Severity),
			f.Message,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// FileWriter exports validation results to CSV files on disk, used by batch
// runs that archive their output next to the local result store.
type FileWriter struct {
	dir    string
	logger *slog.Logger
}

// NewFileWriter creates a file writer rooted at dir.
func NewFileWriter(dir string, logger *slog.Logger) *FileWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileWriter{dir: dir, logger: logger.With(slog.String("component", "csv_exporter"))}
}

// ExportResults writes stored results to the named file under the writer's
// directory, creating it as needed.
func (w *FileWriter) ExportResults(filename string, results []resultstore.Stored) error {
	fullPath := filepath.Join(w.dir, filename)

	w.logger.Info("Writing results CSV",
		slog.String("path", fullPath),
		slog.Int("record_count", len(results)))

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return WriteResultsCSV(file, results, true)
}

// ExportFindings writes the findings of one run to the named file under the
// writer's directory, creating it as needed.
func (w *FileWriter) ExportFindings(filename string, res *engine.Result) error {
	fullPath := filepath.Join(w.dir, filename)

	w.logger.Info("Writing findings CSV",
		slog.String("path", fullPath),
		slog.String("table", res.TableName),
		slog.Int("finding_count", len(res.Findings)))

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return WriteFindingsCSV(file, res, true)
}
