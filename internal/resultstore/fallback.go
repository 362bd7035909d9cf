package resultstore

import (
	"context"
	"log/slog"

	"idxval/internal/engine"
	"idxval/internal/infrastructure"
)

// FallbackStore writes through to a primary store and falls back to a
// secondary one when the primary fails. Reads prefer the primary for the
// same reason.
type FallbackStore struct {
	primary   Store
	secondary Store
	logger    *slog.Logger
	metrics   *infrastructure.BusinessMetrics
}

func NewFallbackStore(primary, secondary Store, logger *slog.Logger) *FallbackStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackStore{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With(slog.String("component", "fallback_result_store")),
	}
}

// SetMetrics attaches the business metrics counting fallback operations.
// May stay unset when the process runs without a meter.
func (s *FallbackStore) SetMetrics(m *infrastructure.BusinessMetrics) {
	s.metrics = m
}

// Save tries the primary store first. On failure the result goes to the
// secondary store so a Postgres outage never loses a run.
func (s *FallbackStore) Save(ctx context.Context, res *engine.Result) error {
	err := s.primary.Save(ctx, res)
	if err == nil {
		return nil
	}
	s.logger.Warn("primary result store unavailable, using fallback",
		slog.String("table", res.TableName),
		slog.String("error", err.Error()))
	infrastructure.RecordStoreFallback(ctx, s.metrics, "save")
	return s.secondary.Save(ctx, res)
}

// List reads from the primary store, falling back to the secondary on error.
func (s *FallbackStore) List(ctx context.Context, table string, limit int) ([]Stored, error) {
	out, err := s.primary.List(ctx, table, limit)
	if err == nil {
		return out, nil
	}
	s.logger.Warn("primary result store unavailable, listing from fallback",
		slog.String("error", err.Error()))
	infrastructure.RecordStoreFallback(ctx, s.metrics, "list")
	return s.secondary.List(ctx, table, limit)
}

// ValidationConfig only ever lives in the primary store; a primary outage
// means runs proceed on built-in defaults.
func (s *FallbackStore) ValidationConfig(ctx context.Context, table string) (*engine.Config, error) {
	cfg, err := s.primary.ValidationConfig(ctx, table)
	if err != nil {
		s.logger.Warn("config lookup failed, using defaults",
			slog.String("table", table),
			slog.String("error", err.Error()))
		return nil, nil
	}
	return cfg, nil
}
