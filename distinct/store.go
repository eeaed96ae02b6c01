// Package distinct implements the exact, spillable distinct-value tracker
// described in spec §4.8: an in-memory set promoted to an embedded on-disk
// store once a column crosses a configurable cardinality threshold.
package distinct

import "sort"

// ValueCount pairs a distinct value with its observed frequency.
type ValueCount struct {
	Value string
	Count int64
}

// Tracker is the abstract set-with-counts API spec §4.8 requires. Both the
// pure in-memory implementation (InMemory, below) and the pebble-backed
// spill path (pebblestore.go) satisfy it, so ProfilerState can be agnostic
// to which one backs a given column.
type Tracker interface {
	// Add idempotently inserts value for columnOrdinal; returns whether it
	// was newly inserted.
	Add(columnOrdinal int, value string) (inserted bool, err error)
	// Count returns the exact distinct count for columnOrdinal.
	Count(columnOrdinal int) (int64, error)
	// TopK returns up to k values sorted by (-count, value).
	TopK(columnOrdinal int, k int) ([]ValueCount, error)
	// IterSorted enumerates every distinct value for columnOrdinal in byte
	// order, calling fn(value, count) for each; stops early if fn returns
	// false.
	IterSorted(columnOrdinal int, fn func(value string, count int64) bool) error
	// Close releases any resources (on-disk files, handles).
	Close() error
}

// InMemory is the pure in-memory Tracker implementation: a map of column
// ordinal to value->count. InMemory itself has no size limit of its own;
// the spill decision lives in SpillingTracker, which promotes a column's
// entries into a PebbleStore once its cardinality crosses the configured
// threshold.
type InMemory struct {
	columns map[int]map[string]int64
}

// NewInMemory returns a ready-to-use in-memory tracker.
func NewInMemory() *InMemory {
	return &InMemory{columns: make(map[int]map[string]int64)}
}

func (m *InMemory) columnMap(columnOrdinal int) map[string]int64 {
	cm, ok := m.columns[columnOrdinal]
	if !ok {
		cm = make(map[string]int64)
		m.columns[columnOrdinal] = cm
	}
	return cm
}

func (m *InMemory) Add(columnOrdinal int, value string) (bool, error) {
	cm := m.columnMap(columnOrdinal)
	_, existed := cm[value]
	cm[value]++
	return !existed, nil
}

func (m *InMemory) Count(columnOrdinal int) (int64, error) {
	return int64(len(m.columns[columnOrdinal])), nil
}

func (m *InMemory) TopK(columnOrdinal int, k int) ([]ValueCount, error) {
	cm := m.columns[columnOrdinal]
	out := make([]ValueCount, 0, len(cm))
	for v, c := range cm {
		out = append(out, ValueCount{v, c})
	}
	sortByCountThenValue(out)
	if k < len(out) {
		out = out[:k]
	}
	return out, nil
}

func (m *InMemory) IterSorted(columnOrdinal int, fn func(string, int64) bool) error {
	cm := m.columns[columnOrdinal]
	keys := make([]string, 0, len(cm))
	for v := range cm {
		keys = append(keys, v)
	}
	sort.Strings(keys)
	for _, v := range keys {
		if !fn(v, cm[v]) {
			break
		}
	}
	return nil
}

func (m *InMemory) Close() error { return nil }

// CardinalityOf reports the current number of distinct values tracked for
// columnOrdinal, used by the caller's spill-threshold check.
func (m *InMemory) CardinalityOf(columnOrdinal int) int {
	return len(m.columns[columnOrdinal])
}

// Drain returns and removes every (value, count) pair tracked for
// columnOrdinal, letting the caller migrate them into a disk-backed
// tracker when promoting a column past the in-memory cap.
func (m *InMemory) Drain(columnOrdinal int) []ValueCount {
	cm := m.columns[columnOrdinal]
	out := make([]ValueCount, 0, len(cm))
	for v, c := range cm {
		out = append(out, ValueCount{v, c})
	}
	delete(m.columns, columnOrdinal)
	return out
}

func sortByCountThenValue(vs []ValueCount) {
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].Count != vs[j].Count {
			return vs[i].Count > vs[j].Count
		}
		return vs[i].Value < vs[j].Value
	})
}
