package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"idxval/internal/engine"
	apierrors "idxval/internal/errors"
	"idxval/internal/notify"
	"idxval/internal/resultstore"
)

// Runner executes validation runs. Satisfied by engine.Orchestrator.
type Runner interface {
	Validate(ctx context.Context, table string, q engine.Query) *engine.Result
	ValidateAll(ctx context.Context, tables []string, q engine.Query) []*engine.Result
}

// ValidationService coordinates validation runs for the HTTP and CLI
// surfaces: it guards table names, bounds run time, persists results through
// the store, and raises alerts for runs that found anomalies.
type ValidationService struct {
	runner     Runner
	store      resultstore.Store
	registry   *engine.Registry
	notifier   notify.Notifier
	logger     *slog.Logger
	runTimeout time.Duration
	listLimit  int
}

// NewValidationService creates a validation service. notifier may be nil to
// disable alerting; runTimeout <= 0 disables the per-run deadline.
func NewValidationService(runner Runner, store resultstore.Store, registry *engine.Registry, notifier notify.Notifier, logger *slog.Logger, runTimeout time.Duration, listLimit int) *ValidationService {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	if listLimit <= 0 {
		listLimit = 50
	}
	return &ValidationService{
		runner:     runner,
		store:      store,
		registry:   registry,
		notifier:   notifier,
		logger:     logger.With(slog.String("service", "validation")),
		runTimeout: runTimeout,
		listLimit:  listLimit,
	}
}

// Tables returns the catalog of validatable tables.
func (s *ValidationService) Tables(ctx context.Context) []engine.TableInfo {
	return s.registry.Tables()
}

// RunTable validates one table and returns the run result. The result is
// returned even when the run itself faulted (status=error with the fault
// recorded); an error return means the run could not be attempted at all.
// Tables outside the IDX catalog are accepted and run on the generic
// detector set; only names that are not valid SQL identifiers are rejected.
func (s *ValidationService) RunTable(ctx context.Context, table string, q engine.Query) (*engine.Result, error) {
	if !engine.ValidTableName(table) {
		return nil, fmt.Errorf("table %q: %w", table, apierrors.ErrUnknownTable)
	}

	ctx, cancel := s.runContext(ctx)
	defer cancel()

	res := s.runner.Validate(ctx, table, q)
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("table %q after %s: %w", table, s.runTimeout, apierrors.ErrRunTimeout)
	}

	s.alert(ctx, res)
	return res, nil
}

// RunAll validates every table in the catalog and returns one result per
// table, in catalog order.
func (s *ValidationService) RunAll(ctx context.Context, q engine.Query) ([]*engine.Result, error) {
	ctx, cancel := s.runContext(ctx)
	defer cancel()

	tables := make([]string, 0, len(s.registry.Tables()))
	for _, info := range s.registry.Tables() {
		tables = append(tables, info.Name)
	}

	results := s.runner.ValidateAll(ctx, tables, q)
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("after %s: %w", s.runTimeout, apierrors.ErrRunTimeout)
	}

	for _, res := range results {
		s.alert(ctx, res)
	}
	return results, nil
}

// ListResults returns stored validation results, newest first. An empty
// table returns results across all tables; limit <= 0 uses the configured
// default.
func (s *ValidationService) ListResults(ctx context.Context, table string, limit int) ([]resultstore.Stored, error) {
	if limit <= 0 {
		limit = s.listLimit
	}

	stored, err := s.store.List(ctx, table, limit)
	if err != nil {
		return nil, fmt.Errorf("list results: %w: %v", apierrors.ErrStoreUnavailable, err)
	}
	return stored, nil
}

func (s *ValidationService) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.runTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.runTimeout)
}

// alert raises a notification for runs that found anomalies. Alerting is
// best effort: a failing notifier never fails the run.
func (s *ValidationService) alert(ctx context.Context, res *engine.Result) {
	if res == nil || res.FindingsCount == 0 {
		return
	}
	if err := s.notifier.Alert(ctx, res); err != nil {
		s.logger.WarnContext(ctx, "anomaly alert failed",
			slog.String("table", res.TableName),
			slog.String("error", err.Error()),
		)
	}
}
