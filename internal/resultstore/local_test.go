package resultstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idxval/internal/engine"
	"idxval/internal/infrastructure"
)

func sampleResult(id, table string, findings int, at time.Time) *engine.Result {
	res := &engine.Result{
		ID:           id,
		TableName:    table,
		Timestamp:    at,
		TotalRows:    100,
		DetectorsRun: []string{"statistical", "business_rules"},
	}
	for i := 0; i < findings; i++ {
		res.Findings = append(res.Findings, engine.Finding{
			Kind:     engine.KindStatisticalOutlier,
			Severity: engine.SeverityWarning,
			Message:  fmt.Sprintf("finding %d", i),
		})
	}
	res.FindingsCount = len(res.Findings)
	res.Status = engine.StatusWarning
	if findings == 0 {
		res.Status = engine.StatusSuccess
	}
	return res
}

func TestLocalStoreSaveAndList(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, sampleResult("aaa", engine.TableDailyData, 2, base)))
	require.NoError(t, store.Save(ctx, sampleResult("bbb", engine.TableDividend, 0, base.Add(time.Hour))))
	require.NoError(t, store.Save(ctx, sampleResult("ccc", engine.TableDailyData, 1, base.Add(2*time.Hour))))

	all, err := store.List(ctx, "", 50)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ccc", all[0].ID, "newest first")
	assert.Equal(t, "bbb", all[1].ID)
	assert.Equal(t, "aaa", all[2].ID)

	daily, err := store.List(ctx, engine.TableDailyData, 50)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.Equal(t, "ccc", daily[0].ID)
	assert.Equal(t, "aaa", daily[1].ID)

	limited, err := store.List(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "ccc", limited[0].ID)
}

func TestLocalStoreRoundTripsDetails(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	res := sampleResult("rt", engine.TableAllTimePrice, 3, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, store.Save(ctx, res))

	stored, err := store.List(ctx, engine.TableAllTimePrice, 50)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	assert.Equal(t, "rt", stored[0].ID)
	assert.Equal(t, "statistical,business_rules", stored[0].ValidationType)
	assert.Equal(t, string(engine.StatusWarning), stored[0].Status)
	assert.Equal(t, 3, stored[0].AnomaliesCount)

	var details map[string]any
	require.NoError(t, json.Unmarshal(stored[0].Details, &details))
	assert.Equal(t, "rt", details["id"])
	assert.Equal(t, float64(100), details["total_rows"])
	anomalies, ok := details["anomalies"].([]any)
	require.True(t, ok)
	assert.Len(t, anomalies, 3)
}

func TestLocalStoreHasNoConfig(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), nil)
	require.NoError(t, err)

	cfg, err := store.ValidationConfig(context.Background(), engine.TableDividend)
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

type failingStore struct {
	saveErr error
	listErr error
	cfgErr  error
	saved   []*engine.Result
}

func (s *failingStore) Save(_ context.Context, res *engine.Result) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, res)
	return nil
}

func (s *failingStore) List(context.Context, string, int) ([]Stored, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return []Stored{{ID: "primary"}}, nil
}

func (s *failingStore) ValidationConfig(context.Context, string) (*engine.Config, error) {
	if s.cfgErr != nil {
		return nil, s.cfgErr
	}
	return &engine.Config{ErrorThreshold: 9}, nil
}

func TestFallbackStorePrefersPrimary(t *testing.T) {
	primary := &failingStore{}
	secondary := &failingStore{}
	store := NewFallbackStore(primary, secondary, nil)
	ctx := context.Background()

	res := sampleResult("p1", engine.TableDailyData, 0, time.Now())
	require.NoError(t, store.Save(ctx, res))
	assert.Len(t, primary.saved, 1)
	assert.Empty(t, secondary.saved)

	out, err := store.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "primary", out[0].ID)

	cfg, err := store.ValidationConfig(ctx, engine.TableDailyData)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 9, cfg.ErrorThreshold)
}

func TestFallbackStoreFallsBack(t *testing.T) {
	down := errors.New("connection refused")
	primary := &failingStore{saveErr: down, listErr: down, cfgErr: down}

	dir := t.TempDir()
	local, err := NewLocalStore(dir, nil)
	require.NoError(t, err)

	store := NewFallbackStore(primary, local, nil)
	ctx := context.Background()

	res := sampleResult("f1", engine.TableDividend, 1, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.Save(ctx, res))

	out, err := store.List(ctx, engine.TableDividend, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "f1", out[0].ID)

	// A config outage degrades to defaults instead of failing the run.
	cfg, err := store.ValidationConfig(ctx, engine.TableDividend)
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestFallbackStoreCountsFallbacks(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	down := errors.New("connection refused")
	primary := &failingStore{saveErr: down, listErr: down}
	local, err := NewLocalStore(t.TempDir(), nil)
	require.NoError(t, err)

	store := NewFallbackStore(primary, local, nil)
	store.SetMetrics(metrics)
	ctx := context.Background()

	res := sampleResult("m1", engine.TableDailyData, 0, time.Now())
	require.NoError(t, store.Save(ctx, res))
	_, err = store.List(ctx, "", 10)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), "result_store_fallbacks_total")
}
