package tabular

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"idxval/internal/dataset"
	"idxval/internal/engine"
)

// pgUndefinedTable is the SQLSTATE for a relation that does not exist.
const pgUndefinedTable = "42P01"

// identPattern restricts table names to plain SQL identifiers. Table names
// reach this adapter from request paths, so anything fancier is rejected
// before it gets near a query.
var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresSource fetches table rows from Postgres. It implements
// engine.Source.
type PostgresSource struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresSource creates a source backed by the given pool.
func NewPostgresSource(pool *pgxpool.Pool, logger *slog.Logger) *PostgresSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSource{
		pool:   pool,
		logger: logger.With(slog.String("component", "postgres_source")),
	}
}

// Fetch loads all rows of the named table, optionally narrowed to one symbol
// and/or a date range. An undefined table yields an empty dataset, not an
// error; any other database failure is returned to the caller and becomes a
// run-level fault.
func (s *PostgresSource) Fetch(ctx context.Context, table string, q engine.Query) (*dataset.Dataset, error) {
	if !ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	sql, args := buildSelect(table, q)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		if isUndefinedTable(err) {
			return dataset.Empty(), nil
		}
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []dataset.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row from %s: %w", table, err)
		}
		row := make(dataset.Row, len(fields))
		for i, field := range fields {
			row[field.Name] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return dataset.Empty(), nil
		}
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}

	s.logger.DebugContext(ctx, "table fetched",
		slog.String("table", table),
		slog.Int("rows", len(out)))
	return dataset.New(out), nil
}

// ValidTableName reports whether a table name is a plain SQL identifier.
func ValidTableName(table string) bool {
	return identPattern.MatchString(table)
}

// buildSelect assembles the fetch query. Filters assume the conventional
// column names of the IDX tables ("symbol", "date"); callers only pass them
// for tables carrying those columns.
func buildSelect(table string, q engine.Query) (string, []any) {
	sql := "SELECT * FROM " + pgx.Identifier{table}.Sanitize()
	var args []any
	appendCond := func(cond string, arg any) {
		args = append(args, arg)
		if len(args) == 1 {
			sql += " WHERE "
		} else {
			sql += " AND "
		}
		sql += fmt.Sprintf(cond, len(args))
	}
	if q.Symbol != "" {
		appendCond("symbol = $%d", q.Symbol)
	}
	if !q.Start.IsZero() {
		appendCond("date >= $%d", q.Start)
	}
	if !q.End.IsZero() {
		appendCond("date <= $%d", q.End)
	}
	return sql, args
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}

// normalizeValue maps driver values onto the dataset's scalar model: numbers
// become float64, timestamps stay time.Time, text stays string, everything
// unrepresentable becomes its string form.
func normalizeValue(v any) any {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		return n
	case bool:
		return n
	case time.Time:
		return n
	case pgtype.Numeric:
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case *big.Int:
		f, _ := new(big.Float).SetInt(n).Float64()
		return f
	default:
		return fmt.Sprintf("%v", v)
	}
}
