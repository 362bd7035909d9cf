package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantile(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		q        float64
		expected float64
	}{
		{"median of odd count", []float64{1, 2, 3, 4, 5}, 0.5, 3},
		{"median interpolates", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"first quartile", []float64{1, 2, 3, 4, 100}, 0.25, 2},
		{"third quartile", []float64{1, 2, 3, 4, 100}, 0.75, 4},
		{"unsorted input", []float64{100, 1, 4, 2, 3}, 0.25, 2},
		{"single value", []float64{7}, 0.75, 7},
		{"interpolated quartile", []float64{1, 2, 3, 4}, 0.25, 1.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, quantile(tt.values, tt.q), 1e-9)
		})
	}

	t.Run("empty input is NaN", func(t *testing.T) {
		assert.True(t, math.IsNaN(quantile(nil, 0.5)))
	})
}

func TestPctChanges(t *testing.T) {
	t.Run("basic series", func(t *testing.T) {
		changes := pctChanges([]float64{100, 160, 100, 160})
		assert.Len(t, changes, 3)
		assert.InDelta(t, 0.6, changes[0], 1e-9)
		assert.InDelta(t, -0.375, changes[1], 1e-9)
		assert.InDelta(t, 0.6, changes[2], 1e-9)
	})

	t.Run("null operands yield NaN", func(t *testing.T) {
		changes := pctChanges([]float64{100, math.NaN(), 150})
		assert.True(t, math.IsNaN(changes[0]))
		assert.True(t, math.IsNaN(changes[1]))
	})

	t.Run("zero base to nonzero is infinite", func(t *testing.T) {
		changes := pctChanges([]float64{0, 50})
		assert.True(t, math.IsInf(changes[0], 1))

		changes = pctChanges([]float64{0, -50})
		assert.True(t, math.IsInf(changes[0], -1))
	})

	t.Run("zero base to zero yields NaN", func(t *testing.T) {
		changes := pctChanges([]float64{0, 0})
		assert.True(t, math.IsNaN(changes[0]))
	})

	t.Run("short series", func(t *testing.T) {
		assert.Nil(t, pctChanges([]float64{1}))
		assert.Nil(t, pctChanges(nil))
	})
}

func TestMean(t *testing.T) {
	assert.InDelta(t, 2.0, mean([]float64{1, 2, 3}), 1e-9)
	assert.InDelta(t, 2.0, mean([]float64{1, math.NaN(), 3}), 1e-9)
	assert.True(t, math.IsNaN(mean(nil)))

	assert.InDelta(t, 52.5, meanAbs([]float64{60, -37.5, 60}), 1e-9)
}
