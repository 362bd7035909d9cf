// Package resultstore persists validation results. Postgres is the primary
// store; a local on-disk store serves as the fallback when the database is
// unreachable so historical lookups keep working.
package resultstore

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"idxval/internal/engine"
)

// Stored is one persisted validation result record. Details carries the full
// result document as it was produced by the engine.
type Stored struct {
	ID             string          `json:"id"`
	TableName      string          `json:"table_name"`
	ValidationType string          `json:"validation_type"`
	Status         string          `json:"status"`
	AnomaliesCount int             `json:"anomalies_count"`
	Details        json.RawMessage `json:"details"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Store saves and lists validation results and serves stored per-table
// config overrides. List with an empty table returns results for all tables.
type Store interface {
	Save(ctx context.Context, res *engine.Result) error
	List(ctx context.Context, table string, limit int) ([]Stored, error)
	ValidationConfig(ctx context.Context, table string) (*engine.Config, error)
}

// newStored converts an engine result into its persisted form.
func newStored(res *engine.Result) (Stored, error) {
	details, err := json.Marshal(res)
	if err != nil {
		return Stored{}, err
	}
	return Stored{
		ID:             res.ID,
		TableName:      res.TableName,
		ValidationType: strings.Join(res.DetectorsRun, ","),
		Status:         string(res.Status),
		AnomaliesCount: res.FindingsCount,
		Details:        details,
		CreatedAt:      res.Timestamp,
	}, nil
}
