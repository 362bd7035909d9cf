package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idxval/internal/dataset"
)

func TestBusinessRuleDetector_RequiredFields(t *testing.T) {
	det := BusinessRuleDetector{}
	ds := dataset.New([]dataset.Row{
		{"a": 1.0},
		{"a": 2.0},
	})
	cfg := &Config{Rules: Rules{RequiredFields: []string{"a", "missing"}}}

	findings := det.Detect(context.Background(), ds, cfg)
	require.Len(t, findings, 1)
	assert.Equal(t, KindMissingRequiredFields, findings[0].Kind)
	assert.Equal(t, SeverityError, findings[0].Severity)
	assert.Equal(t, []string{"missing"}, findings[0].Details["fields"])
}

func TestBusinessRuleDetector_Duplicates(t *testing.T) {
	det := BusinessRuleDetector{}

	t.Run("counts all rows sharing a value", func(t *testing.T) {
		ds := dataset.New([]dataset.Row{
			{"email": "a@example.com"},
			{"email": "a@example.com"},
			{"email": "a@example.com"},
			{"email": "b@example.com"},
		})
		cfg := &Config{Rules: Rules{NoDuplicates: []string{"email"}}}

		findings := det.Detect(context.Background(), ds, cfg)
		require.Len(t, findings, 1)
		assert.Equal(t, KindDuplicateValues, findings[0].Kind)
		assert.Equal(t, 3, findings[0].Details["count"])
	})

	t.Run("missing column is skipped", func(t *testing.T) {
		ds := dataset.New([]dataset.Row{{"a": 1.0}})
		cfg := &Config{Rules: Rules{NoDuplicates: []string{"email"}}}
		assert.Empty(t, det.Detect(context.Background(), ds, cfg))
	})
}

func TestBusinessRuleDetector_AmountRange(t *testing.T) {
	det := BusinessRuleDetector{}
	cfg := &Config{Rules: Rules{AmountRange: &AmountRange{Min: 0, Max: 100}}}

	t.Run("strictly outside bounds", func(t *testing.T) {
		ds := dataset.New([]dataset.Row{
			{"amount": 0.0},
			{"amount": 100.0},
			{"amount": -1.0},
			{"amount": 101.0},
		})
		findings := det.Detect(context.Background(), ds, cfg)
		require.Len(t, findings, 1)
		assert.Equal(t, KindValueOutOfRange, findings[0].Kind)
		assert.Equal(t, SeverityError, findings[0].Severity)
		assert.Equal(t, 2, findings[0].Details["count"])
	})

	t.Run("no amount column skips the check", func(t *testing.T) {
		ds := dataset.New([]dataset.Row{{"total": 500.0}})
		assert.Empty(t, det.Detect(context.Background(), ds, cfg))
	})
}

func TestBusinessRuleDetector_EmptyDataset(t *testing.T) {
	det := BusinessRuleDetector{}
	cfg := &Config{Rules: Rules{RequiredFields: []string{"a"}}}
	assert.Empty(t, det.Detect(context.Background(), dataset.Empty(), cfg))
}
