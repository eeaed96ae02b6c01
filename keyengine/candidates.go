// Package keyengine implements the post-stream candidate-key proposal and
// duplicate-confirmation passes described in spec §4.9: phase A
// single-column candidates, phase B compound candidates of 2-3 columns,
// scoring, and a final duplicate-group confirmation pass.
package keyengine

import "sort"

// ColumnSummary is the subset of a column's profiler state the key engine
// needs: enough to compute distinct_ratio and null_ratio without
// depending on the profile package's full ColumnProfiler.
type ColumnSummary struct {
	Ordinal       int
	DistinctCount int64
	NullCount     int64
}

// Kind distinguishes a single-column candidate from a compound one.
type Kind int

const (
	KindSingle Kind = iota
	KindCompound
)

// CandidateKey is the scored proposal spec §3 describes.
type CandidateKey struct {
	Columns       []int
	DistinctRatio float64
	NullRatioSum  float64
	Score         float64
	Kind          Kind
}

const (
	phaseASingleDistinctMin = 0.95
	phaseASingleNullMax     = 0.05
	phaseBColumnDistinctMin = 0.70
	phaseBColumnNullMax     = 0.10
	phaseBTupleRatioMin     = 0.995
	maxCompoundSize         = 3
	topCandidateCount       = 10
)

// nullRatio returns col's null_count / row_count, clamped to [0,1].
func nullRatio(col ColumnSummary, rowCount int64) float64 {
	if rowCount == 0 {
		return 0
	}
	r := float64(col.NullCount) / float64(rowCount)
	if r > 1 {
		return 1
	}
	return r
}

func distinctRatio(col ColumnSummary, nonNullRowCount int64) float64 {
	if nonNullRowCount == 0 {
		return 0
	}
	return float64(col.DistinctCount) / float64(nonNullRowCount)
}

// PhaseASingleColumn returns every single-column candidate meeting spec
// §4.9's phase A thresholds.
func PhaseASingleColumn(columns []ColumnSummary, rowCount int64) []CandidateKey {
	var out []CandidateKey
	for _, col := range columns {
		nonNull := rowCount - col.NullCount
		dr := distinctRatio(col, nonNull)
		nr := nullRatio(col, rowCount)
		if dr >= phaseASingleDistinctMin && nr <= phaseASingleNullMax {
			out = append(out, CandidateKey{
				Columns:       []int{col.Ordinal},
				DistinctRatio: dr,
				NullRatioSum:  nr,
				Score:         dr * max0(1-nr),
				Kind:          KindSingle,
			})
		}
	}
	return out
}

// EligiblePhaseBColumns filters columns down to those individually meeting
// the looser phase B thresholds (distinct_ratio >= 0.70, null_ratio <=
// 0.10) — the pool combinations are drawn from.
func EligiblePhaseBColumns(columns []ColumnSummary, rowCount int64) []ColumnSummary {
	eligible := make([]ColumnSummary, 0, len(columns))
	for _, col := range columns {
		nonNull := rowCount - col.NullCount
		dr := distinctRatio(col, nonNull)
		nr := nullRatio(col, rowCount)
		if dr >= phaseBColumnDistinctMin && nr <= phaseBColumnNullMax {
			eligible = append(eligible, col)
		}
	}
	return eligible
}

// CompoundCombinations generates every 2- and 3-column combination from
// eligible, in ordinal order — the set of tuples the orchestrator must
// walk the stream for to compute an exact compound_hash_count per spec
// §4.9 (a per-column summary alone cannot answer how many distinct *joint*
// tuples a combination of columns has; that requires a row-level pass,
// which the orchestrator makes by reading the byte source again).
func CompoundCombinations(eligible []ColumnSummary) [][]ColumnSummary {
	var out [][]ColumnSummary
	for size := 2; size <= maxCompoundSize; size++ {
		out = append(out, combinations(eligible, size)...)
	}
	return out
}

// ScoreCompoundCandidate turns one combination's exact distinct-tuple
// count (computed by the caller, typically via
// distinct.CompoundHashCounter over a row-level pass) into a scored
// CandidateKey, or ok=false if it fails the 0.995 hash-distinct-ratio
// threshold.
func ScoreCompoundCandidate(combo []ColumnSummary, rowCount int64, distinctTupleCount int64) (CandidateKey, bool) {
	if rowCount == 0 {
		return CandidateKey{}, false
	}
	ratio := float64(distinctTupleCount) / float64(rowCount)
	if ratio < phaseBTupleRatioMin {
		return CandidateKey{}, false
	}
	ordinals := make([]int, len(combo))
	var nullRatioSum float64
	for i, col := range combo {
		ordinals[i] = col.Ordinal
		nullRatioSum += nullRatio(col, rowCount)
	}
	return CandidateKey{
		Columns:       ordinals,
		DistinctRatio: ratio,
		NullRatioSum:  nullRatioSum,
		Score:         ratio * max0(1-nullRatioSum),
		Kind:          KindCompound,
	}, true
}

// RankAndTrim sorts candidates by score descending, breaking ties by fewer
// columns then lower summed ordinal, and returns the top 10 (spec §4.9).
func RankAndTrim(candidates []CandidateKey) []CandidateKey {
	sorted := append([]CandidateKey(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if len(a.Columns) != len(b.Columns) {
			return len(a.Columns) < len(b.Columns)
		}
		return sumOrdinals(a.Columns) < sumOrdinals(b.Columns)
	})
	if len(sorted) > topCandidateCount {
		sorted = sorted[:topCandidateCount]
	}
	return sorted
}

func sumOrdinals(cols []int) int {
	s := 0
	for _, c := range cols {
		s += c
	}
	return s
}

func max0(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

// combinations returns every size-length subset of cols, in ordinal order.
func combinations(cols []ColumnSummary, size int) [][]ColumnSummary {
	var out [][]ColumnSummary
	var pick func(start int, chosen []ColumnSummary)
	pick = func(start int, chosen []ColumnSummary) {
		if len(chosen) == size {
			out = append(out, append([]ColumnSummary(nil), chosen...))
			return
		}
		for i := start; i < len(cols); i++ {
			pick(i+1, append(chosen, cols[i]))
		}
	}
	pick(0, nil)
	return out
}
