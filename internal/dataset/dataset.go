// Package dataset provides the in-memory tabular model consumed by the
// validation engine. A Dataset is an ordered sequence of rows keyed by column
// name; columns are not fixed, and cells may be numbers, text, timestamps or
// null. Detectors declare the columns they need and skip gracefully when a
// column is absent.
package dataset

import (
	"math"
	"sort"
	"time"
)

// Row is a single record mapping column names to scalar values.
// A missing key and a nil value are both treated as null.
type Row map[string]any

// Dataset is an ordered, immutable collection of rows.
type Dataset struct {
	rows    []Row
	columns []string
}

// New creates a Dataset from the given rows. Column order is first-seen
// across rows, which keeps detector output deterministic for a given input.
func New(rows []Row) *Dataset {
	ds := &Dataset{rows: rows}
	seen := make(map[string]bool)
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				ds.columns = append(ds.columns, k)
			}
		}
	}
	return ds
}

// Empty returns a Dataset with no rows.
func Empty() *Dataset {
	return &Dataset{}
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// IsEmpty reports whether the dataset has no rows.
func (d *Dataset) IsEmpty() bool {
	return len(d.rows) == 0
}

// Rows returns the underlying rows in order. Callers must not mutate them.
func (d *Dataset) Rows() []Row {
	return d.rows
}

// Row returns the row at index i.
func (d *Dataset) Row(i int) Row {
	return d.rows[i]
}

// Columns returns the column names in first-seen order.
func (d *Dataset) Columns() []string {
	return d.columns
}

// HasColumn reports whether the named column appears in any row.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.columns {
		if c == name {
			return true
		}
	}
	return false
}

// MissingColumns returns the subset of required that is absent from the
// dataset, preserving the requested order.
func (d *Dataset) MissingColumns(required []string) []string {
	var missing []string
	for _, col := range required {
		if !d.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// Column returns the named column's value for every row, nil where absent.
func (d *Dataset) Column(name string) []any {
	values := make([]any, len(d.rows))
	for i, row := range d.rows {
		values[i] = row[name]
	}
	return values
}

// Numbers returns all non-null numeric values of the named column, in row
// order. Non-numeric cells are skipped.
func (d *Dataset) Numbers(name string) []float64 {
	var out []float64
	for _, row := range d.rows {
		if v, ok := Number(row[name]); ok {
			out = append(out, v)
		}
	}
	return out
}

// NumericColumns returns the columns whose non-null values are all numeric
// and that carry at least one non-null value.
func (d *Dataset) NumericColumns() []string {
	var out []string
	for _, col := range d.columns {
		nonNull := 0
		numeric := true
		for _, row := range d.rows {
			v := row[col]
			if IsNull(v) {
				continue
			}
			nonNull++
			if _, ok := Number(v); !ok {
				numeric = false
				break
			}
		}
		if numeric && nonNull > 0 {
			out = append(out, col)
		}
	}
	return out
}

// NullCount returns the number of rows where the named column is null or
// absent.
func (d *Dataset) NullCount(name string) int {
	count := 0
	for _, row := range d.rows {
		if IsNull(row[name]) {
			count++
		}
	}
	return count
}

// AllNull reports whether the named column is null in every row.
func (d *Dataset) AllNull(name string) bool {
	return d.NullCount(name) == len(d.rows)
}

// Filter returns a new Dataset containing the rows for which keep returns
// true. Row order is preserved.
func (d *Dataset) Filter(keep func(Row) bool) *Dataset {
	var rows []Row
	for _, row := range d.rows {
		if keep(row) {
			rows = append(rows, row)
		}
	}
	return &Dataset{rows: rows, columns: d.columns}
}

// GroupByText partitions rows by the text value of the named column and
// returns group keys in first-seen order. Rows with a null key are dropped.
func (d *Dataset) GroupByText(name string) ([]string, map[string]*Dataset) {
	var keys []string
	groups := make(map[string]*Dataset)
	for _, row := range d.rows {
		key, ok := Text(row[name])
		if !ok {
			continue
		}
		group, exists := groups[key]
		if !exists {
			group = &Dataset{columns: d.columns}
			groups[key] = group
			keys = append(keys, key)
		}
		group.rows = append(group.rows, row)
	}
	return keys, groups
}

// SortByTime returns the rows whose named column parses as a time, sorted
// ascending, together with the parsed times. Rows with null or unparseable
// values are excluded rather than faulted.
func (d *Dataset) SortByTime(name string) (*Dataset, []time.Time) {
	type timed struct {
		row Row
		at  time.Time
	}
	var items []timed
	for _, row := range d.rows {
		if at, ok := Time(row[name]); ok {
			items = append(items, timed{row: row, at: at})
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].at.Before(items[j].at)
	})
	rows := make([]Row, len(items))
	times := make([]time.Time, len(items))
	for i, it := range items {
		rows[i] = it.row
		times[i] = it.at
	}
	return &Dataset{rows: rows, columns: d.columns}, times
}

// IsNull reports whether a cell value is null. NaN floats count as null so
// that sparse numeric series behave like their source representation.
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		return true
	}
	return false
}

// Number converts a cell value to float64. Returns false for null and
// non-numeric cells.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Text converts a cell value to a string. Returns false for null and
// non-text cells.
func Text(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return s, true
}

// timeLayouts are tried in order when parsing text timestamps.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// Time converts a cell value to a time.Time. Text cells are parsed against
// the known layouts; unparseable values return false.
func Time(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range timeLayouts {
			if at, err := time.Parse(layout, t); err == nil {
				return at, true
			}
		}
	}
	return time.Time{}, false
}

// Date truncates a time to its calendar day in UTC.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
