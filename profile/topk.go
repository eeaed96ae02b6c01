package profile

import (
	"sort"

	"github.com/proflow/dataprofiler/distinct"
)

// topKCap is the bounded in-stream map size before spill-over into the
// distinct store, per spec §4.7.
const topKCap = 1024

// TopK maintains a bounded value->count map while streaming; once it
// exceeds topKCap entries it spills into the run's distinct.Tracker and
// defers to post-stream computation (distinct.Tracker.TopK) for
// exactness — the distinct store already holds every distinct value with
// an exact count, so no information is lost on spill.
type TopK struct {
	counts    map[string]int64
	spilled   bool
	k         int
}

// NewTopK returns a bounded top-K tracker that will report up to k values.
func NewTopK(k int) *TopK {
	return &TopK{counts: make(map[string]int64), k: k}
}

// Observe folds one non-null value into the bounded map. Returns true if
// this call caused the map to spill (caller should migrate these counts
// into the distinct store and stop calling Observe for this column).
func (t *TopK) Observe(value string) (spilledNow bool) {
	if t.spilled {
		return false
	}
	t.counts[value]++
	if len(t.counts) > topKCap {
		t.spilled = true
		return true
	}
	return false
}

// Spilled reports whether this column's top-K map has already been
// promoted to the distinct store.
func (t *TopK) Spilled() bool {
	return t.spilled
}

// Drain returns the accumulated (value, count) pairs for migration into a
// distinct.Tracker, used exactly once at the moment of spill.
func (t *TopK) Drain() []distinct.ValueCount {
	out := make([]distinct.ValueCount, 0, len(t.counts))
	for v, c := range t.counts {
		out = append(out, distinct.ValueCount{Value: v, Count: c})
	}
	return out
}

// Top returns the top K=t.k values sorted by (-count, value), from the
// in-memory map directly — valid only if Spilled() is false.
func (t *TopK) Top() []distinct.ValueCount {
	out := make([]distinct.ValueCount, 0, len(t.counts))
	for v, c := range t.counts {
		out = append(out, distinct.ValueCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > t.k {
		out = out[:t.k]
	}
	return out
}
