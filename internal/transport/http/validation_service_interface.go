package http

import (
	"context"

	"idxval/internal/engine"
	"idxval/internal/resultstore"
)

// ValidationServiceInterface defines the interface for validation operations
type ValidationServiceInterface interface {
	Tables(ctx context.Context) []engine.TableInfo
	RunTable(ctx context.Context, table string, q engine.Query) (*engine.Result, error)
	RunAll(ctx context.Context, q engine.Query) ([]*engine.Result, error)
	ListResults(ctx context.Context, table string, limit int) ([]resultstore.Stored, error)
}
