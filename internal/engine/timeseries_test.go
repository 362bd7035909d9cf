package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idxval/internal/dataset"
)

func TestTimeSeriesDetector_Gaps(t *testing.T) {
	det := TimeSeriesDetector{}
	cfg := &Config{TimeColumn: "created_at"}

	t.Run("counts gaps above one day", func(t *testing.T) {
		ds := dataset.New([]dataset.Row{
			{"created_at": "2025-01-01"},
			{"created_at": "2025-01-02"},
			{"created_at": "2025-01-05"},
			{"created_at": "2025-01-06"},
			{"created_at": "2025-01-10"},
		})
		findings := det.Detect(context.Background(), ds, cfg)
		require.Len(t, findings, 1)
		assert.Equal(t, KindDataGaps, findings[0].Kind)
		assert.Equal(t, 2, findings[0].Details["count"])
	})

	t.Run("unparseable timestamps are excluded", func(t *testing.T) {
		ds := dataset.New([]dataset.Row{
			{"created_at": "2025-01-01"},
			{"created_at": "not a date"},
			{"created_at": "2025-01-02"},
		})
		assert.Empty(t, det.Detect(context.Background(), ds, cfg))
	})

	t.Run("missing time column yields nothing", func(t *testing.T) {
		ds := dataset.New([]dataset.Row{{"a": 1.0}})
		assert.Empty(t, det.Detect(context.Background(), ds, cfg))
		assert.Empty(t, det.Detect(context.Background(), ds, &Config{}))
	})
}

func TestTimeSeriesDetector_VolumeChanges(t *testing.T) {
	det := TimeSeriesDetector{}
	cfg := &Config{TimeColumn: "created_at"}

	ds := dataset.New([]dataset.Row{
		{"created_at": "2025-01-01", "amount": 100.0},
		{"created_at": "2025-01-02", "amount": 105.0},
		{"created_at": "2025-01-03", "amount": 300.0},
		{"created_at": "2025-01-03", "amount": 50.0},
		{"created_at": "2025-01-04", "amount": 340.0},
	})
	// Daily sums: 100, 105, 350, 340 -> one change above 50%.
	findings := det.Detect(context.Background(), ds, cfg)

	require.Len(t, findings, 1)
	assert.Equal(t, KindUnusualVolumeChange, findings[0].Kind)
	assert.Equal(t, 1, findings[0].Details["count"])
}
