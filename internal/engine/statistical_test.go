package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idxval/internal/dataset"
)

func TestStatisticalOutlierDetector(t *testing.T) {
	det := StatisticalOutlierDetector{}

	t.Run("flags IQR outlier", func(t *testing.T) {
		ds := dataset.New([]dataset.Row{
			{"value": 1.0},
			{"value": 2.0},
			{"value": 3.0},
			{"value": 4.0},
			{"value": 100.0},
		})

		findings := det.Detect(context.Background(), ds, nil)
		require.Len(t, findings, 1)
		assert.Equal(t, KindStatisticalOutlier, findings[0].Kind)
		assert.Equal(t, SeverityWarning, findings[0].Severity)
		assert.Equal(t, "value", findings[0].Details["column"])
		assert.Equal(t, 1, findings[0].Details["count"])
	})

	t.Run("entirely null column produces no finding", func(t *testing.T) {
		ds := dataset.New([]dataset.Row{
			{"value": nil},
			{"value": nil},
		})
		assert.Empty(t, det.Detect(context.Background(), ds, nil))
	})

	t.Run("empty dataset produces no finding", func(t *testing.T) {
		assert.Empty(t, det.Detect(context.Background(), dataset.Empty(), nil))
	})

	t.Run("text columns are ignored", func(t *testing.T) {
		ds := dataset.New([]dataset.Row{
			{"name": "a"},
			{"name": "zzzzzzzz"},
		})
		assert.Empty(t, det.Detect(context.Background(), ds, nil))
	})

	t.Run("one finding per offending column", func(t *testing.T) {
		ds := dataset.New([]dataset.Row{
			{"a": 1.0, "b": 10.0},
			{"a": 2.0, "b": 11.0},
			{"a": 3.0, "b": 12.0},
			{"a": 4.0, "b": 13.0},
			{"a": 500.0, "b": 9000.0},
		})
		findings := det.Detect(context.Background(), ds, nil)
		assert.Len(t, findings, 2)
	})
}
