package keyengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseASingleColumn_SelectsHighDistinctLowNullColumns(t *testing.T) {
	columns := []ColumnSummary{
		{Ordinal: 0, DistinctCount: 100, NullCount: 0},  // qualifies: 100/100 distinct, 0 null
		{Ordinal: 1, DistinctCount: 50, NullCount: 0},   // fails: only 50% distinct
		{Ordinal: 2, DistinctCount: 100, NullCount: 10}, // fails: 10% null > 5% max
	}
	out := PhaseASingleColumn(columns, 100)
	assert := assert.New(t)
	assert.Len(out, 1)
	assert.Equal([]int{0}, out[0].Columns)
	assert.Equal(KindSingle, out[0].Kind)
}

func TestPhaseASingleColumn_EmptyRowCountYieldsNoCandidates(t *testing.T) {
	columns := []ColumnSummary{{Ordinal: 0, DistinctCount: 0, NullCount: 0}}
	out := PhaseASingleColumn(columns, 0)
	assert.Empty(t, out)
}

func TestEligiblePhaseBColumns_UsesLooserThresholds(t *testing.T) {
	columns := []ColumnSummary{
		{Ordinal: 0, DistinctCount: 75, NullCount: 5},  // 75/95 ~= 0.789 distinct, 5% null: eligible
		{Ordinal: 1, DistinctCount: 50, NullCount: 0},  // 50% distinct: not eligible
		{Ordinal: 2, DistinctCount: 90, NullCount: 20}, // 20% null: not eligible
	}
	eligible := EligiblePhaseBColumns(columns, 100)
	assert.Len(t, eligible, 1)
	assert.Equal(t, 0, eligible[0].Ordinal)
}

func TestCompoundCombinations_GeneratesAllSizeTwoAndThreeSubsets(t *testing.T) {
	cols := []ColumnSummary{{Ordinal: 0}, {Ordinal: 1}, {Ordinal: 2}, {Ordinal: 3}}
	combos := CompoundCombinations(cols)
	// C(4,2) + C(4,3) = 6 + 4 = 10
	assert.Len(t, combos, 10)
	for _, c := range combos {
		assert.True(t, len(c) == 2 || len(c) == 3)
	}
}

func TestCompoundCombinations_TooFewColumnsYieldsNoCombos(t *testing.T) {
	cols := []ColumnSummary{{Ordinal: 0}}
	combos := CompoundCombinations(cols)
	assert.Empty(t, combos)
}

func TestScoreCompoundCandidate_RejectsBelowTupleRatioThreshold(t *testing.T) {
	combo := []ColumnSummary{{Ordinal: 0, NullCount: 0}, {Ordinal: 1, NullCount: 0}}
	_, ok := ScoreCompoundCandidate(combo, 100, 90) // 0.90 < 0.995
	assert.False(t, ok)
}

func TestScoreCompoundCandidate_AcceptsAboveThresholdAndSumsNullRatios(t *testing.T) {
	combo := []ColumnSummary{{Ordinal: 0, NullCount: 1}, {Ordinal: 1, NullCount: 2}}
	candidate, ok := ScoreCompoundCandidate(combo, 100, 100)
	assert := assert.New(t)
	assert.True(ok)
	assert.Equal([]int{0, 1}, candidate.Columns)
	assert.InDelta(0.03, candidate.NullRatioSum, 1e-9)
	assert.Equal(KindCompound, candidate.Kind)
}

func TestScoreCompoundCandidate_ZeroRowsIsRejected(t *testing.T) {
	_, ok := ScoreCompoundCandidate(nil, 0, 0)
	assert.False(t, ok)
}

func TestRankAndTrim_SortsByScoreDescending(t *testing.T) {
	candidates := []CandidateKey{
		{Columns: []int{0}, Score: 0.5},
		{Columns: []int{1}, Score: 0.9},
		{Columns: []int{2}, Score: 0.7},
	}
	ranked := RankAndTrim(candidates)
	assert := assert.New(t)
	assert.Equal([]int{1}, ranked[0].Columns)
	assert.Equal([]int{2}, ranked[1].Columns)
	assert.Equal([]int{0}, ranked[2].Columns)
}

func TestRankAndTrim_TiesBreakByFewerColumnsThenLowerOrdinalSum(t *testing.T) {
	candidates := []CandidateKey{
		{Columns: []int{0, 1}, Score: 1.0},
		{Columns: []int{2}, Score: 1.0},
		{Columns: []int{0}, Score: 1.0},
	}
	ranked := RankAndTrim(candidates)
	a := assert.New(t)
	a.Equal([]int{0}, ranked[0].Columns)    // single column, lowest ordinal sum
	a.Equal([]int{2}, ranked[1].Columns)    // single column, higher ordinal sum
	a.Equal([]int{0, 1}, ranked[2].Columns) // compound loses tie to any single column
}

func TestRankAndTrim_TrimsToTopTen(t *testing.T) {
	var candidates []CandidateKey
	for i := 0; i < 15; i++ {
		candidates = append(candidates, CandidateKey{Columns: []int{i}, Score: float64(i)})
	}
	ranked := RankAndTrim(candidates)
	assert.Len(t, ranked, 10)
	assert.Equal(t, []int{14}, ranked[0].Columns)
}
