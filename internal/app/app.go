package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jackc/pgx/v5/pgxpool"

	"idxval/internal/config"
	"idxval/internal/engine"
	apierrors "idxval/internal/errors"
	"idxval/internal/infrastructure"
	customMiddleware "idxval/internal/middleware"
	"idxval/internal/notify"
	"idxval/internal/resultstore"
	"idxval/internal/services"
	"idxval/internal/tabular"
	handlers "idxval/internal/transport/http"
	"idxval/internal/validation"
)

const (
	VERSION = "1.0.0"
	AppName = "IDX Market Validator"
)

// Application represents the main application container
type Application struct {
	Config            *config.Config
	Router            *chi.Mux
	Server            *http.Server
	Logger            *slog.Logger
	OTelProviders     *infrastructure.OTelProviders
	Pool              *pgxpool.Pool
	Source            engine.Source
	Store             resultstore.Store
	Orchestrator      *engine.Orchestrator
	ValidationService *services.ValidationService
	SystemCollector   *infrastructure.SystemMetricsCollector

	collectorCancel context.CancelFunc
}

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", VERSION))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices wires the tabular source, the result store, the
// validation engine and the service layer.
func (a *Application) initializeServices() error {
	ctx := context.Background()

	// Connection pool for both table reads and the result store
	if a.Config.Database.URL != "" {
		poolCfg, err := pgxpool.ParseConfig(a.Config.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to parse database URL: %w", err)
		}
		poolCfg.MaxConns = a.Config.Database.MaxConns
		poolCfg.ConnConfig.ConnectTimeout = a.Config.Database.ConnectTimeout

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		a.Pool = pool
	}

	// Tabular source
	files := validation.NewFileValidator(a.Logger)
	switch a.Config.Source.Kind {
	case "excel":
		if err := files.ValidateWorkbook(a.Config.Source.ExcelFile); err != nil {
			return fmt.Errorf("excel source: %w", err)
		}
		a.Source = tabular.NewExcelSource(a.Config.Source.ExcelFile, a.Logger)
	default:
		if a.Pool == nil {
			return fmt.Errorf("postgres source requires a database URL")
		}
		a.Source = tabular.NewPostgresSource(a.Pool, a.Logger)
	}

	// Result store: Postgres primary with a local on-disk fallback, or the
	// local store alone when no database is configured
	if err := files.ValidateResultsDir(a.Config.Validation.ResultsDir); err != nil {
		return err
	}
	local, err := resultstore.NewLocalStore(a.Config.Validation.ResultsDir, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create local result store: %w", err)
	}
	if a.Pool != nil {
		a.Store = resultstore.NewFallbackStore(
			resultstore.NewPostgresStore(a.Pool, a.Logger), local, a.Logger)
	} else {
		a.Store = local
	}

	// Validation engine
	configStore := &overlayConfigStore{
		inner:       a.Store,
		adjustments: a.Config.Validation.DividendAdjustments,
	}
	resolver := engine.NewResolver(configStore, a.Logger)
	registry := engine.NewRegistry(engine.NewSiblingFetcher(a.Source), nil)

	orch := engine.NewOrchestrator(a.Source, a.Store, resolver, registry, a.Logger)
	orch.SetConcurrency(a.Config.Validation.Concurrency)

	if a.OTelProviders.Meter != nil {
		engineMetrics, err := engine.NewMetrics(a.OTelProviders.Meter)
		if err != nil {
			return fmt.Errorf("failed to create engine metrics: %w", err)
		}
		orch.SetMetrics(engineMetrics)
	}
	a.Orchestrator = orch

	// Anomaly alerting
	var notifier notify.Notifier
	if a.Config.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(a.Config.Notify.WebhookURL, a.Config.Notify.Timeout, a.Logger)
		a.Logger.Info("Webhook alerting enabled")
	}

	a.ValidationService = services.NewValidationService(
		orch, a.Store, registry, notifier, a.Logger,
		a.Config.Server.RunTimeout, a.Config.Validation.ListLimit)

	if a.OTelProviders.Meter != nil {
		collector, err := infrastructure.NewSystemMetricsCollector(a.OTelProviders.Meter, 30*time.Second)
		if err != nil {
			return fmt.Errorf("failed to create system metrics collector: %w", err)
		}
		a.SystemCollector = collector
	}

	return nil
}

// overlayConfigStore serves stored per-table validation overrides and layers
// the configured dividend adjustments over the dividend table when no stored
// override supplies its own.
type overlayConfigStore struct {
	inner       resultstore.Store
	adjustments map[string]float64
}

func (s *overlayConfigStore) ValidationConfig(ctx context.Context, table string) (*engine.Config, error) {
	cfg, err := s.inner.ValidationConfig(ctx, table)
	if err != nil {
		return nil, err
	}
	if table != engine.TableDividend || len(s.adjustments) == 0 {
		return cfg, nil
	}
	if cfg == nil {
		return &engine.Config{
			ErrorThreshold:      engine.DomainErrorThreshold,
			DividendAdjustments: s.adjustments,
		}, nil
	}
	if cfg.DividendAdjustments == nil {
		cfg.DividendAdjustments = s.adjustments
	}
	return cfg, nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.Group(func(r chi.Router) {
		if a.OTelProviders.Tracer != nil && a.OTelProviders.Meter != nil {
			otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
			if err != nil {
				a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
			} else {
				r.Use(otelMiddleware.Handler)
				r.Use(customMiddleware.BusinessMetricsMiddleware(otelMiddleware.Metrics()))
				if fb, ok := a.Store.(*resultstore.FallbackStore); ok {
					fb.SetMetrics(otelMiddleware.Metrics())
				}
			}
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				Logger:         a.Logger,
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	// Prometheus scrape endpoint stays outside the middleware group
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.ContentTypeValidator("application/json"))
		r.Use(customMiddleware.NewValidationMiddleware(a.Logger, errorHandler).ValidateRequest)

		r.NotFound(errorHandler.NotFound)
		r.MethodNotAllowed(errorHandler.MethodNotAllowed)

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			var db handlers.Pinger
			if a.Pool != nil {
				db = a.Pool
			}
			healthHandler := handlers.NewHealthHandler(a.Logger, a.SystemCollector, db, VERSION)
			r.Get("/healthz", healthHandler.HealthCheck)
		})

		// Validation runs can legitimately take much longer than a normal
		// request; the service bounds them with the configured run timeout,
		// so the HTTP timeout only backstops it.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.RunTimeout+10*time.Second, a.Logger))
			r.Use(customMiddleware.RunAudit(a.Logger))

			validationHandler := handlers.NewValidationHandler(a.ValidationService, a.Logger, errorHandler)
			r.Mount("/validation", validationHandler.Routes())
		})
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the application
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.Int("port", a.Config.Server.Port),
		slog.String("source", a.Config.Source.Kind),
		slog.String("level", a.Config.Logging.Level))

	if a.SystemCollector != nil {
		collectorCtx, collectorCancel := context.WithCancel(context.Background())
		a.collectorCancel = collectorCancel
		go a.SystemCollector.Start(collectorCtx)
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.collectorCancel != nil {
		a.collectorCancel()
	}
	if a.SystemCollector != nil {
		a.SystemCollector.Stop()
	}

	if a.Pool != nil {
		a.Pool.Close()
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
