package profile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWelford_MeanAndVarianceMatchTextbookFormula(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	var w Welford
	for _, v := range values {
		w.Add(v)
	}
	assert.InDelta(t, 5.0, w.Mean, 1e-9)
	assert.InDelta(t, 4.571428571, w.Variance(), 1e-6)
	assert.InDelta(t, 2.138089935, w.Stddev(), 1e-6)
	assert.Equal(t, 2.0, w.Min)
	assert.Equal(t, 9.0, w.Max)
}

func TestWelford_SingleValueHasUndefinedVariance(t *testing.T) {
	var w Welford
	w.Add(42)
	assert.True(t, math.IsNaN(w.Variance()))
	assert.True(t, math.IsNaN(w.Stddev()))
	assert.Equal(t, int64(1), w.Count)
}

func TestWelford_NoValuesLeavesZeroCount(t *testing.T) {
	var w Welford
	assert.Equal(t, int64(0), w.Count)
	assert.True(t, math.IsNaN(w.Variance()))
}

func TestSanitize_NaNIsOmitted(t *testing.T) {
	value, ok, infSan := Sanitize(math.NaN(), 100, -100, true)
	assert.False(t, ok)
	assert.False(t, infSan)
	assert.Equal(t, 0.0, value)
}

func TestSanitize_PositiveInfinityBecomesLargestFinite(t *testing.T) {
	value, ok, infSan := Sanitize(math.Inf(1), 100, -100, true)
	assert.True(t, ok)
	assert.True(t, infSan)
	assert.Equal(t, 100.0, value)
}

func TestSanitize_NegativeInfinityWithNoFiniteValueIsOmitted(t *testing.T) {
	value, ok, infSan := Sanitize(math.Inf(-1), 0, 0, false)
	assert.False(t, ok)
	assert.True(t, infSan)
	assert.Equal(t, 0.0, value)
}

func TestSanitize_OrdinaryFiniteValuePassesThrough(t *testing.T) {
	value, ok, infSan := Sanitize(3.14, 0, 0, true)
	assert.True(t, ok)
	assert.False(t, infSan)
	assert.Equal(t, 3.14, value)
}
