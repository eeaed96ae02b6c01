// Package profile holds the per-column streaming profilers: Welford
// statistics, type inference and validators, and bounded top-K tracking
// (spec §4.6, §4.7).
package profile

import "math"

// Welford is an online mean/variance accumulator (count, mean, M2),
// numerically stable across arbitrarily long streams — grounded on the
// online-normalization accumulator pattern used for streaming trade
// aggregates in the example pack.
type Welford struct {
	Count int64
	Mean  float64
	M2    float64
	Min   float64
	Max   float64
	SumSq float64

	seen bool
}

// Add folds x into the running statistics.
func (w *Welford) Add(x float64) {
	w.Count++
	delta := x - w.Mean
	w.Mean += delta / float64(w.Count)
	delta2 := x - w.Mean
	w.M2 += delta * delta2
	w.SumSq += x * x

	if !w.seen {
		w.Min, w.Max = x, x
		w.seen = true
		return
	}
	if x < w.Min {
		w.Min = x
	}
	if x > w.Max {
		w.Max = x
	}
}

// Variance returns M2/(count-1), the sample variance. Undefined (NaN) for
// count < 2, matching spec §4.7.
func (w *Welford) Variance() float64 {
	if w.Count < 2 {
		return math.NaN()
	}
	return w.M2 / float64(w.Count-1)
}

// Stddev is the square root of Variance; NaN under the same condition.
func (w *Welford) Stddev() float64 {
	v := w.Variance()
	if math.IsNaN(v) {
		return v
	}
	return math.Sqrt(v)
}

// Sanitize maps NaN/Inf summary values to the external serialization rule
// from spec §4.7: NaN becomes (0, false); +-Inf becomes the largest finite
// observed value of the same sign when one exists, flagging that an
// infinity was sanitized.
func Sanitize(x float64, largestFinitePositive, largestFiniteNegative float64, haveFinite bool) (value float64, ok bool, infinitySanitized bool) {
	switch {
	case math.IsNaN(x):
		return 0, false, false
	case math.IsInf(x, 1):
		if haveFinite {
			return largestFinitePositive, true, true
		}
		return 0, false, true
	case math.IsInf(x, -1):
		if haveFinite {
			return largestFiniteNegative, true, true
		}
		return 0, false, true
	default:
		return x, true, false
	}
}
