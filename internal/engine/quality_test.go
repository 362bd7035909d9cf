package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idxval/internal/dataset"
)

func TestDataQualityDetector_NullPercentage(t *testing.T) {
	det := DataQualityDetector{}

	t.Run("flags column above 20 percent nulls", func(t *testing.T) {
		ds := dataset.New([]dataset.Row{
			{"a": 1.0, "b": 1.0},
			{"a": nil, "b": 2.0},
			{"a": nil, "b": 3.0},
			{"a": 4.0, "b": 4.0},
		})
		findings := det.Detect(context.Background(), ds, nil)
		require.Len(t, findings, 1)
		assert.Equal(t, KindHighNullPercentage, findings[0].Kind)
		assert.Equal(t, "a", findings[0].Details["column"])
		assert.Equal(t, 50.0, findings[0].Details["percentage"])
	})

	t.Run("exactly 20 percent is not flagged", func(t *testing.T) {
		ds := dataset.New([]dataset.Row{
			{"a": nil},
			{"a": 1.0},
			{"a": 2.0},
			{"a": 3.0},
			{"a": 4.0},
		})
		assert.Empty(t, det.Detect(context.Background(), ds, nil))
	})
}

func TestDataQualityDetector_EmailFormat(t *testing.T) {
	det := DataQualityDetector{}

	ds := dataset.New([]dataset.Row{
		{"email": "good@example.com"},
		{"email": "also.good+tag@sub.example.org"},
		{"email": "bad-at-example.com"},
		{"email": "no-tld@example"},
		{"email": nil},
	})
	findings := det.Detect(context.Background(), ds, nil)

	require.Len(t, findings, 1)
	assert.Equal(t, KindInvalidEmailFormat, findings[0].Kind)
	assert.Equal(t, SeverityError, findings[0].Severity)
	assert.Equal(t, 2, findings[0].Details["count"])
}

func TestDataQualityDetector_EmptyDataset(t *testing.T) {
	det := DataQualityDetector{}
	assert.Empty(t, det.Detect(context.Background(), dataset.Empty(), nil))
}
