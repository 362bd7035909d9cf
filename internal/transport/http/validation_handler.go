package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"idxval/internal/engine"
	apierrors "idxval/internal/errors"
	"idxval/internal/exporter"
	mw "idxval/internal/middleware"
)

// ValidationHandler handles validation HTTP requests with RFC 7807 compliance
type ValidationHandler struct {
	service      ValidationServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	queryParams  *mw.QueryParamValidator
	validation   *mw.ValidationMiddleware
}

// NewValidationHandler creates a new validation handler
func NewValidationHandler(service ValidationServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ValidationHandler {
	return &ValidationHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "validation_handler")),
		errorHandler: errorHandler,
		queryParams:  mw.NewQueryParamValidator(logger, errorHandler),
		validation:   mw.NewValidationMiddleware(logger, errorHandler),
	}
}

// runQuery carries the validated URL inputs of a run request.
type runQuery struct {
	Table  string `json:"table" validate:"omitempty,tablename"`
	Symbol string `json:"symbol" validate:"omitempty,ticker"`
	From   string `json:"from" validate:"omitempty,iso8601"`
	To     string `json:"to" validate:"omitempty,iso8601"`
}

// Routes returns the validation routes with proper Chi patterns
func (h *ValidationHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/tables", h.GetTables)
	r.Get("/results", h.GetResults)
	r.Get("/results/export", h.ExportResults)
	r.Post("/run", h.RunAll)

	r.Route("/run/{table}", func(r chi.Router) {
		r.Use(h.TableCtx)
		r.Post("/", h.RunTable)
	})

	return r
}

// TableCtx middleware validates the table URL parameter. Any syntactically
// valid identifier passes; tables outside the catalog still run, on the
// generic detector set.
func (h *ValidationHandler) TableCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		table := chi.URLParam(r, "table")
		if table == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("table", "Table name is required"))
			return
		}
		if err := h.validation.ValidateStruct(runQuery{Table: table}); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetTables handles GET /api/validation/tables
func (h *ValidationHandler) GetTables(w http.ResponseWriter, r *http.Request) {
	tables := h.service.Tables(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   tables,
		"count":  len(tables),
	})
}

// RunTable handles POST /api/validation/run/{table}
func (h *ValidationHandler) RunTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	table := chi.URLParam(r, "table")

	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	h.logger.InfoContext(ctx, "validation run requested",
		slog.String("table", table),
		slog.String("request_id", reqID),
	)

	mw.RecordRunStartMetrics(ctx, table)

	res, err := h.service.RunTable(ctx, table, q)
	if err != nil {
		mw.RecordRunEndMetrics(ctx, table, string(engine.StatusError))
		h.handleRunError(w, r, table, err)
		return
	}

	mw.RecordRunEndMetrics(ctx, table, string(res.Status))

	h.logger.InfoContext(ctx, "validation run completed",
		slog.String("table", table),
		slog.String("status", string(res.Status)),
		slog.Int("anomalies", res.FindingsCount),
		slog.String("request_id", reqID),
	)

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   res,
	})
}

// RunAll handles POST /api/validation/run
func (h *ValidationHandler) RunAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	h.logger.InfoContext(ctx, "full validation run requested",
		slog.String("request_id", reqID),
	)

	mw.RecordRunStartMetrics(ctx, "all")

	results, err := h.service.RunAll(ctx, q)
	if err != nil {
		mw.RecordRunEndMetrics(ctx, "all", string(engine.StatusError))
		h.handleRunError(w, r, "all", err)
		return
	}

	status := engine.StatusSuccess
	for _, res := range results {
		if res.Status == engine.StatusError {
			status = engine.StatusError
		} else if res.Status == engine.StatusWarning && status != engine.StatusError {
			status = engine.StatusWarning
		}
	}
	mw.RecordRunEndMetrics(ctx, "all", string(status))

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   results,
		"count":  len(results),
	})
}

// GetResults handles GET /api/validation/results
func (h *ValidationHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	table := r.URL.Query().Get("table")
	if len(table) > 63 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("table", "Table name exceeds 63 characters"))
		return
	}

	limit, ok := h.queryParams.ValidateInt(w, r, "limit", 1, 500, 0)
	if !ok {
		return
	}

	stored, err := h.service.ListResults(ctx, table, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list validation results",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(ctx)),
		)
		traceID := middleware.GetReqID(ctx)
		render.Render(w, r, apierrors.MapValidationError(err, traceID))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   stored,
		"count":  len(stored),
	})
}

// ExportResults handles GET /api/validation/results/export, streaming stored
// results as a CSV download.
func (h *ValidationHandler) ExportResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	table := r.URL.Query().Get("table")
	if len(table) > 63 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("table", "Table name exceeds 63 characters"))
		return
	}

	limit, ok := h.queryParams.ValidateInt(w, r, "limit", 1, 500, 0)
	if !ok {
		return
	}

	stored, err := h.service.ListResults(ctx, table, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to export validation results",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(ctx)),
		)
		render.Render(w, r, apierrors.MapValidationError(err, middleware.GetReqID(ctx)))
		return
	}

	filename := fmt.Sprintf("validation_results_%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := exporter.WriteResultsCSV(w, stored, true); err != nil {
		// Headers are already sent; log and drop the connection state as-is.
		h.logger.ErrorContext(ctx, "failed to stream results CSV",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(ctx)),
		)
	}
}

// parseQuery reads the optional symbol/from/to filters. The raw values run
// through the struct rules first (ticker and ISO8601 shape), then the dates
// through time.Parse for calendar validity; either failure is a 400.
func (h *ValidationHandler) parseQuery(w http.ResponseWriter, r *http.Request) (engine.Query, bool) {
	var q engine.Query

	in := runQuery{
		Symbol: r.URL.Query().Get("symbol"),
		From:   r.URL.Query().Get("from"),
		To:     r.URL.Query().Get("to"),
	}
	if err := h.validation.ValidateStruct(in); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return q, false
	}

	q.Symbol = in.Symbol

	if in.From != "" {
		t, err := time.Parse("2006-01-02", in.From)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("from", fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", in.From)))
			return q, false
		}
		q.Start = t
	}

	if in.To != "" {
		t, err := time.Parse("2006-01-02", in.To)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("to", fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", in.To)))
			return q, false
		}
		// Inclusive end of day
		q.End = t.Add(24*time.Hour - time.Nanosecond)
	}

	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("to", "Date range end precedes start"))
		return q, false
	}

	return q, true
}

// handleRunError maps service errors from a validation run to RFC 7807
// responses.
func (h *ValidationHandler) handleRunError(w http.ResponseWriter, r *http.Request, table string, err error) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	h.logger.ErrorContext(ctx, "validation run failed",
		slog.String("table", table),
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
	)

	switch {
	case errors.Is(err, apierrors.ErrUnknownTable):
		h.errorHandler.HandleError(w, r, apierrors.TableNotFoundError(table))
	case errors.Is(err, apierrors.ErrRunTimeout),
		errors.Is(err, apierrors.ErrSourceUnavailable),
		errors.Is(err, apierrors.ErrStoreUnavailable):
		render.Render(w, r, apierrors.MapValidationError(err, reqID))
	default:
		mw.RecordSystemError(ctx, "run_failure", "validation_handler")
		h.errorHandler.HandleError(w, r, apierrors.RunFailedError(err))
	}
}
