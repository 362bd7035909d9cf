package resultstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"idxval/internal/engine"
)

const pgUndefinedTable = "42P01"

// PostgresStore persists validation results in the validation_results table
// and reads per-table rule overrides from validation_configs.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore creates a store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{
		pool:   pool,
		logger: logger.With(slog.String("component", "result_store")),
	}
}

// Save inserts one validation result.
func (s *PostgresStore) Save(ctx context.Context, res *engine.Result) error {
	stored, err := newStored(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO validation_results (
			id, table_name, validation_type, status, anomalies_count, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		stored.ID,
		stored.TableName,
		stored.ValidationType,
		stored.Status,
		stored.AnomaliesCount,
		stored.Details,
		stored.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert validation result: %w", err)
	}
	return nil
}

// List returns the most recent results, newest first, optionally narrowed to
// one table.
func (s *PostgresStore) List(ctx context.Context, table string, limit int) ([]Stored, error) {
	if limit <= 0 {
		limit = 50
	}
	sql := `SELECT id, table_name, validation_type, status, anomalies_count, details, created_at
		FROM validation_results`
	args := []any{limit}
	if table != "" {
		sql += ` WHERE table_name = $2`
		args = append(args, table)
	}
	sql += ` ORDER BY created_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query validation results: %w", err)
	}
	defer rows.Close()

	var out []Stored
	for rows.Next() {
		var st Stored
		if err := rows.Scan(&st.ID, &st.TableName, &st.ValidationType, &st.Status,
			&st.AnomaliesCount, &st.Details, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan validation result: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate validation results: %w", err)
	}
	return out, nil
}

// ValidationConfig returns the stored rule override for a table, or nil when
// none exists. A missing validation_configs table counts as no override.
func (s *PostgresStore) ValidationConfig(ctx context.Context, table string) (*engine.Config, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT validation_rules FROM validation_configs WHERE table_name = $1`,
		table,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query validation config: %w", err)
	}

	var cfg engine.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode validation config for %s: %w", table, err)
	}
	return &cfg, nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}
