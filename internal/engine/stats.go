package engine

import (
	"fmt"
	"math"
	"sort"
)

// quantile computes the q-th quantile of values using linear interpolation
// over the sorted data, matching the default behavior of most statistics
// packages. Returns NaN for an empty input.
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// mean averages values, ignoring NaN entries. Returns NaN when no valid
// value exists.
func mean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// meanAbs averages the absolute values, ignoring NaN entries.
func meanAbs(values []float64) float64 {
	abs := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			abs[i] = math.NaN()
		} else {
			abs[i] = math.Abs(v)
		}
	}
	return mean(abs)
}

// pctChanges computes the fractional period-over-period change of a series.
// The result has len(values)-1 entries; entry i compares values[i+1] against
// values[i]. A change is NaN when either operand is NaN or both are zero. A
// zero base moving to a nonzero value is ±Inf, so it always clears any
// change threshold.
func pctChanges(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	changes := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev, cur := values[i-1], values[i]
		switch {
		case math.IsNaN(prev) || math.IsNaN(cur):
			changes[i-1] = math.NaN()
		case prev == 0 && cur == 0:
			changes[i-1] = math.NaN()
		case prev == 0:
			changes[i-1] = math.Inf(1)
			if cur < 0 {
				changes[i-1] = math.Inf(-1)
			}
		default:
			changes[i-1] = (cur - prev) / prev
		}
	}
	return changes
}

// round2 rounds to two decimal places for human-facing finding fields.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// detailNumber prepares a change value for a finding's structured details.
// JSON has no Inf or NaN, so non-finite values serialize as their string
// form instead of failing the whole result encode.
func detailNumber(v float64) any {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Sprintf("%v", v)
	}
	return v
}
