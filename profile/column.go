package profile

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/proflow/dataprofiler/distinct"
	"gonum.org/v1/gonum/stat"
)

// ColumnDescriptor is the header-bound identity of one column: its ordinal,
// the name read from the header (possibly a duplicate — recorded, not
// rejected), and its final inferred type once streaming ends.
type ColumnDescriptor struct {
	Ordinal int
	Name    string
	Type    ColumnType
}

// MoneyFlags aggregates the money validator's running state for a column.
type MoneyFlags struct {
	TwoDecimalOK      bool
	DisallowedSymbol  bool
	ViolationCount    int64
}

// LengthStats tracks min/max/sum of raw non-null byte lengths.
type LengthStats struct {
	Min, Max int
	Sum      int64
	seen     bool
}

func (l *LengthStats) Observe(n int) {
	l.Sum += int64(n)
	if !l.seen {
		l.Min, l.Max = n, n
		l.seen = true
		return
	}
	if n < l.Min {
		l.Min = n
	}
	if n > l.Max {
		l.Max = n
	}
}

// Avg returns the mean length over nonNullCount values, or 0 if none.
func (l *LengthStats) Avg(nonNullCount int64) float64 {
	if nonNullCount == 0 {
		return 0
	}
	return float64(l.Sum) / float64(nonNullCount)
}

// ColumnProfiler is the full per-column streaming profiler: null/nonnull
// counts, length stats, the Welford accumulator for numeric/money-castable
// values, candidate type flags, money flags, and bounded top-K, backed by
// a shared distinct.Tracker for exact distinct counting and quantiles.
type ColumnProfiler struct {
	Descriptor ColumnDescriptor

	NullCount    int64
	NonNullCount int64

	Length  LengthStats
	Welford Welford
	Money   MoneyFlags
	Flags   *CandidateFlags
	TopK    *TopK

	distinctStore distinct.Tracker
	columnOrdinal int
}

// NewColumnProfiler constructs a profiler for one column, backed by store
// for distinct tracking (store is shared across all columns in a run; each
// column occupies its own ordinal-keyed namespace within it).
func NewColumnProfiler(ordinal int, name string, store distinct.Tracker, topK int) *ColumnProfiler {
	return &ColumnProfiler{
		Descriptor:    ColumnDescriptor{Ordinal: ordinal, Name: name, Type: TypeUnknown},
		Flags:         NewCandidateFlags(),
		TopK:          NewTopK(topK),
		distinctStore: store,
		columnOrdinal: ordinal,
	}
}

// ObserveOutcome mirrors ObserveResult plus the distinct-insert and
// spill-migration side effects, for the aggregator wiring in run.go.
type ObserveOutcome struct {
	ObserveResult
	DistinctInserted bool
	TopKSpilledNow   bool
}

// ObserveNull folds one null occurrence into the profiler.
func (c *ColumnProfiler) ObserveNull() {
	c.NullCount++
}

// ObserveValue folds one non-null value into every sub-profiler: length,
// Welford (if numeric/money-castable), candidate flags, distinct tracker,
// and top-K.
func (c *ColumnProfiler) ObserveValue(value string, now time.Time) (ObserveOutcome, error) {
	c.NonNullCount++
	c.Length.Observe(len(value))

	result := c.Flags.Observe(value, now)

	if !result.MoneyViolation && IsMoney(value) {
		c.Money.TwoDecimalOK = true
		if f, err := parseFloatStrict(value); err == nil {
			c.Welford.Add(f)
		}
	} else if !result.NumericViolation && IsNumeric(value) {
		if f, err := parseFloatStrict(value); err == nil {
			c.Welford.Add(f)
		}
	}
	if result.MoneyViolation {
		c.Money.ViolationCount++
	}

	inserted, err := c.distinctStore.Add(c.columnOrdinal, value)
	if err != nil {
		return ObserveOutcome{}, err
	}

	spilledNow := c.TopK.Observe(value)
	if spilledNow {
		if err := c.migrateTopKToDistinct(); err != nil {
			return ObserveOutcome{}, err
		}
	}

	return ObserveOutcome{ObserveResult: result, DistinctInserted: inserted, TopKSpilledNow: spilledNow}, nil
}

// migrateTopKToDistinct is a no-op beyond the Drain call: the values are
// already present in distinctStore (ObserveValue inserts into it
// unconditionally), so spilling the top-K map only means "stop trusting
// the bounded in-memory map; recompute top-K post-stream from
// distinctStore.TopK instead." Drain is still called to release memory.
func (c *ColumnProfiler) migrateTopKToDistinct() error {
	c.TopK.Drain()
	c.TopK.counts = nil
	return nil
}

// FinalTopK returns the column's top-K values, using the in-memory bounded
// map if it never spilled, or the exact distinct store otherwise.
func (c *ColumnProfiler) FinalTopK(k int) ([]distinct.ValueCount, error) {
	if !c.TopK.Spilled() {
		return c.TopK.Top(), nil
	}
	return c.distinctStore.TopK(c.columnOrdinal, k)
}

// DistinctCount returns the exact distinct count for this column, which
// per the Open Question decision in SPEC_FULL.md §11 never includes NULL
// as a tracked value.
func (c *ColumnProfiler) DistinctCount() (int64, error) {
	return c.distinctStore.Count(c.columnOrdinal)
}

// Quantile computes the exact pX quantile (0 < x <= 100) over this
// numeric/money column's distinct store entries, per spec §4.7's
// post-pass streaming quantile: IterSorted yields (value, count) pairs in
// byte order of the raw value text, which is not numeric order, so the
// values are re-sorted numerically before gonum/stat's weighted empirical
// quantile.
func (c *ColumnProfiler) Quantile(x float64) (float64, error) {
	var values, weights []float64
	err := c.distinctStore.IterSorted(c.columnOrdinal, func(v string, count int64) bool {
		f, perr := parseFloatStrict(v)
		if perr != nil || !IsNumeric(v) {
			return true // skip non-numeric distinct values (format violations)
		}
		values = append(values, f)
		weights = append(weights, float64(count))
		return true
	})
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return math.NaN(), nil
	}
	// stat.Quantile requires values sorted ascending; IterSorted gives byte
	// order which matches numeric order only for fixed-width encodings, so
	// re-sort defensively for correctness regardless of source width.
	sortParallel(values, weights)
	return stat.Quantile(x/100.0, stat.Empirical, values, weights), nil
}

// parallelFloatSort sorts values ascending and permutes weights alongside,
// via sort.Sort: a high-cardinality numeric column's distinct set can reach
// the in-memory spill cap, so this needs better than quadratic behavior.
type parallelFloatSort struct {
	values, weights []float64
}

func (p parallelFloatSort) Len() int { return len(p.values) }
func (p parallelFloatSort) Less(i, j int) bool { return p.values[i] < p.values[j] }
func (p parallelFloatSort) Swap(i, j int) {
	p.values[i], p.values[j] = p.values[j], p.values[i]
	p.weights[i], p.weights[j] = p.weights[j], p.weights[i]
}

func sortParallel(values, weights []float64) {
	sort.Sort(parallelFloatSort{values: values, weights: weights})
}

func parseFloatStrict(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
