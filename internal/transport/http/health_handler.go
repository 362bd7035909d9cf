package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"idxval/internal/infrastructure"
)

// Pinger reports whether a backing dependency is reachable. Satisfied by
// pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health and readiness HTTP requests
type HealthHandler struct {
	logger    *slog.Logger
	collector *infrastructure.SystemMetricsCollector
	db        Pinger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler. collector and db may be nil
// when the corresponding subsystem is not wired.
func NewHealthHandler(logger *slog.Logger, collector *infrastructure.SystemMetricsCollector, db Pinger, version string) *HealthHandler {
	return &HealthHandler{
		logger:    logger.With(slog.String("handler", "health")),
		collector: collector,
		db:        db,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthCheck handles GET /api/healthz
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := "healthy"
	checks := map[string]string{}

	if h.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := h.db.Ping(pingCtx); err != nil {
			checks["database"] = err.Error()
			status = "degraded"
			h.logger.WarnContext(ctx, "database health check failed",
				slog.String("error", err.Error()))
		} else {
			checks["database"] = "ok"
		}
		cancel()
	}

	body := map[string]interface{}{
		"status":  status,
		"version": h.version,
		"uptime":  time.Since(h.startTime).Round(time.Second).String(),
		"checks":  checks,
	}
	if h.collector != nil {
		body["system"] = h.collector.GetCurrentStats(ctx)
	}

	if status != "healthy" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, body)
}
