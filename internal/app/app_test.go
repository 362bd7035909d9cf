package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idxval/internal/config"
	"idxval/internal/engine"
	"idxval/internal/infrastructure"
	"idxval/internal/resultstore"
)

type staticConfigStore struct {
	cfg *engine.Config
	err error
}

func (s *staticConfigStore) Save(context.Context, *engine.Result) error { return nil }

func (s *staticConfigStore) List(context.Context, string, int) ([]resultstore.Stored, error) {
	return nil, nil
}

func (s *staticConfigStore) ValidationConfig(context.Context, string) (*engine.Config, error) {
	return s.cfg, s.err
}

func TestOverlayConfigStore(t *testing.T) {
	adjustments := map[string]float64{"BBRI.JK": 0.25}

	t.Run("synthesizes dividend config when nothing stored", func(t *testing.T) {
		store := &overlayConfigStore{inner: &staticConfigStore{}, adjustments: adjustments}
		cfg, err := store.ValidationConfig(context.Background(), engine.TableDividend)
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, adjustments, cfg.DividendAdjustments)
		assert.Equal(t, engine.DomainErrorThreshold, cfg.ErrorThreshold)
	})

	t.Run("leaves other tables untouched", func(t *testing.T) {
		store := &overlayConfigStore{inner: &staticConfigStore{}, adjustments: adjustments}
		cfg, err := store.ValidationConfig(context.Background(), engine.TableDailyData)
		require.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("stored override keeps its own adjustments", func(t *testing.T) {
		stored := &engine.Config{
			ErrorThreshold:      3,
			DividendAdjustments: map[string]float64{"TLKM.JK": 0.1},
		}
		store := &overlayConfigStore{inner: &staticConfigStore{cfg: stored}, adjustments: adjustments}
		cfg, err := store.ValidationConfig(context.Background(), engine.TableDividend)
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"TLKM.JK": 0.1}, cfg.DividendAdjustments)
	})

	t.Run("fills adjustments into stored override without any", func(t *testing.T) {
		store := &overlayConfigStore{
			inner:       &staticConfigStore{cfg: &engine.Config{ErrorThreshold: 3}},
			adjustments: adjustments,
		}
		cfg, err := store.ValidationConfig(context.Background(), engine.TableDividend)
		require.NoError(t, err)
		assert.Equal(t, adjustments, cfg.DividendAdjustments)
	})

	t.Run("propagates lookup errors", func(t *testing.T) {
		store := &overlayConfigStore{
			inner:       &staticConfigStore{err: errors.New("connection refused")},
			adjustments: adjustments,
		}
		_, err := store.ValidationConfig(context.Background(), engine.TableDividend)
		require.Error(t, err)
	})
}

// newTestApplication wires an application against an Excel source and a local
// result store so no database is needed.
func newTestApplication(t *testing.T) *Application {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Source.Kind = "excel"
	cfg.Source.ExcelFile = filepath.Join(dir, "tables.xlsx")
	require.NoError(t, os.WriteFile(cfg.Source.ExcelFile, []byte("stub"), 0o644))
	cfg.Validation.ResultsDir = filepath.Join(dir, "results")
	cfg.Security.RateLimit.Enabled = false

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	providers, err := infrastructure.InitializeOTel(&infrastructure.OTelConfig{
		ServiceName:    "idx-market-validator-test",
		ServiceVersion: "test",
		Environment:    "test",
		TraceExporter:  "none",
		MetricExporter: "none",
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { providers.Shutdown(context.Background()) })

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
	}
	require.NoError(t, app.initializeServices())
	app.setupRouter()
	app.createServer()
	return app
}

func TestApplicationWiring(t *testing.T) {
	app := newTestApplication(t)

	assert.Nil(t, app.Pool)
	assert.NotNil(t, app.Source)
	assert.NotNil(t, app.Store)
	assert.NotNil(t, app.Orchestrator)
	assert.NotNil(t, app.ValidationService)
	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.Server)
}

func TestApplicationHealthEndpoint(t *testing.T) {
	app := newTestApplication(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rec.Body.String(), VERSION)
}

func TestApplicationUnknownAPIRoute(t *testing.T) {
	app := newTestApplication(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not-found")
}

func TestApplicationTablesEndpoint(t *testing.T) {
	app := newTestApplication(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/validation/tables", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), engine.TableDailyData)
	assert.Contains(t, rec.Body.String(), engine.TableAllTimePrice)
}

func TestApplicationRequiresDatabaseForPostgresSource(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Kind = "postgres"
	cfg.Database.URL = ""

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	providers, err := infrastructure.InitializeOTel(&infrastructure.OTelConfig{
		ServiceName:    "idx-market-validator-test",
		ServiceVersion: "test",
		Environment:    "test",
		TraceExporter:  "none",
		MetricExporter: "none",
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { providers.Shutdown(context.Background()) })

	app := &Application{Config: cfg, Logger: logger, OTelProviders: providers}
	err = app.initializeServices()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL")
}

func TestApplicationStartStop(t *testing.T) {
	app := newTestApplication(t)
	app.Server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, app.Start(ctx, cancel))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, app.Stop(context.Background()))
}
