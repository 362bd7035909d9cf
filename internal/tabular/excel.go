package tabular

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"idxval/internal/dataset"
	"idxval/internal/engine"
)

// ExcelSource reads datasets from an Excel workbook, one sheet per table.
// It exists for offline validation of spreadsheet exports: the first row of
// a sheet names the columns, every following row is one record. Numeric
// cells become float64, empty cells null, everything else text.
type ExcelSource struct {
	path   string
	logger *slog.Logger
}

// NewExcelSource creates a source reading from the workbook at path.
func NewExcelSource(path string, logger *slog.Logger) *ExcelSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelSource{
		path:   path,
		logger: logger.With(slog.String("component", "excel_source")),
	}
}

// Fetch loads the sheet named like the table. A workbook without that sheet
// yields an empty dataset; filters behave like the Postgres source.
func (s *ExcelSource) Fetch(ctx context.Context, table string, q engine.Query) (*dataset.Dataset, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", s.path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(table)
	if err != nil {
		var sheetErr excelize.ErrSheetNotExist
		if errors.As(err, &sheetErr) {
			return dataset.Empty(), nil
		}
		return nil, fmt.Errorf("read sheet %s: %w", table, err)
	}
	if len(rows) < 2 {
		return dataset.Empty(), nil
	}

	headers := rows[0]
	var out []dataset.Row
	for _, cells := range rows[1:] {
		row := make(dataset.Row, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			var cell string
			if i < len(cells) {
				cell = cells[i]
			}
			row[header] = parseCell(cell)
		}
		out = append(out, row)
	}

	ds := dataset.New(out).Filter(func(row dataset.Row) bool {
		return matchesQuery(row, q)
	})
	s.logger.DebugContext(ctx, "sheet loaded",
		slog.String("sheet", table),
		slog.Int("rows", ds.Len()))
	return ds, nil
}

// parseCell maps a spreadsheet cell onto the dataset's scalar model.
func parseCell(cell string) any {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return n
	}
	return trimmed
}

// matchesQuery applies the symbol and date filters, assuming the IDX column
// conventions just like the Postgres source.
func matchesQuery(row dataset.Row, q engine.Query) bool {
	if q.Symbol != "" {
		symbol, _ := dataset.Text(row["symbol"])
		if symbol != q.Symbol {
			return false
		}
	}
	if !q.Start.IsZero() || !q.End.IsZero() {
		at, ok := dataset.Time(row["date"])
		if !ok {
			return false
		}
		if !q.Start.IsZero() && at.Before(q.Start) {
			return false
		}
		if !q.End.IsZero() && at.After(q.End) {
			return false
		}
	}
	return true
}
