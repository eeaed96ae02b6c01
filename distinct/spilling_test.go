package distinct

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSpillingTracker(t *testing.T, cap int) *SpillingTracker {
	t.Helper()
	dir := t.TempDir()
	return NewSpillingTracker(cap, 0, func() (*PebbleStore, error) {
		return OpenPebbleStore(filepath.Join(dir, "distinct.db"))
	})
}

func newBudgetedTestSpillingTracker(t *testing.T, cap int, budgetBytes int64) *SpillingTracker {
	t.Helper()
	dir := t.TempDir()
	return NewSpillingTracker(cap, budgetBytes, func() (*PebbleStore, error) {
		return OpenPebbleStore(filepath.Join(dir, "distinct.db"))
	})
}

func TestSpillingTracker_ZeroBudgetNeverChecksDiskUsage(t *testing.T) {
	s := newBudgetedTestSpillingTracker(t, 1, 0)
	defer s.Close()

	for _, v := range []string{"a", "b", "c"} {
		_, err := s.Add(0, v)
		require.NoError(t, err)
	}
	assert.False(t, s.ConsumeNearingFullWarning())
}

func TestSpillingTracker_ExceedingBudgetReturnsErrSpillBudgetExceeded(t *testing.T) {
	s := newBudgetedTestSpillingTracker(t, 1, 1) // 1 byte: trips immediately once spilled
	defer s.Close()

	_, err := s.Add(0, "a")
	require.NoError(t, err)
	_, err = s.Add(0, "b") // crosses cap, spills, then budget check fires
	assert.ErrorIs(t, err, ErrSpillBudgetExceeded)
}

func TestSpillingTracker_NearingFullWarningFiresOnceThenClears(t *testing.T) {
	s := newBudgetedTestSpillingTracker(t, 1, 1<<30) // large budget, never actually nears full
	defer s.Close()

	s.Add(0, "a")
	s.Add(0, "b")
	assert.False(t, s.ConsumeNearingFullWarning())

	s.nearingFullPending = true // simulate checkBudget having just latched the threshold
	assert.True(t, s.ConsumeNearingFullWarning())
	assert.False(t, s.ConsumeNearingFullWarning())
}

func TestSpillingTracker_StaysInMemoryBelowCap(t *testing.T) {
	s := newTestSpillingTracker(t, 10)
	defer s.Close()

	for _, v := range []string{"a", "b", "c"} {
		_, err := s.Add(0, v)
		require.NoError(t, err)
	}
	assert.False(t, s.AnySpilled())

	count, err := s.Count(0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSpillingTracker_CrossingCapPromotesColumnToDisk(t *testing.T) {
	s := newTestSpillingTracker(t, 3)
	defer s.Close()

	for _, v := range []string{"a", "b", "c", "d"} {
		_, err := s.Add(0, v)
		require.NoError(t, err)
	}
	assert.True(t, s.AnySpilled())

	count, err := s.Count(0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestSpillingTracker_MigrationPreservesCountsAccumulatedBeforeSpill(t *testing.T) {
	s := newTestSpillingTracker(t, 2)
	defer s.Close()

	s.Add(0, "a")
	s.Add(0, "a")
	s.Add(0, "a")
	s.Add(0, "b")
	// Cardinality still 2 here; the next new value pushes it to 3 and spills.
	s.Add(0, "c")
	require.True(t, s.AnySpilled())

	top, err := s.TopK(0, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "a", top[0].Value)
	assert.Equal(t, int64(3), top[0].Count)
}

func TestSpillingTracker_ColumnsSpillIndependently(t *testing.T) {
	s := newTestSpillingTracker(t, 2)
	defer s.Close()

	for _, v := range []string{"a", "b", "c"} { // column 0 spills
		s.Add(0, v)
	}
	s.Add(1, "x") // column 1 stays under cap

	assert.True(t, s.AnySpilled())

	count0, err := s.Count(0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count0)

	count1, err := s.Count(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count1)
}

func TestSpillingTracker_AddAfterSpillRoutesToDisk(t *testing.T) {
	s := newTestSpillingTracker(t, 1)
	defer s.Close()

	s.Add(0, "a")
	s.Add(0, "b") // crosses cap, spills
	require.True(t, s.AnySpilled())

	inserted, err := s.Add(0, "b") // already on disk
	require.NoError(t, err)
	assert.False(t, inserted)

	inserted, err = s.Add(0, "c") // new value, disk path
	require.NoError(t, err)
	assert.True(t, inserted)

	count, err := s.Count(0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSpillingTracker_IterSortedWorksAfterSpill(t *testing.T) {
	s := newTestSpillingTracker(t, 1)
	defer s.Close()

	for _, v := range []string{"banana", "apple", "cherry"} {
		s.Add(0, v)
	}
	require.True(t, s.AnySpilled())

	var seen []string
	err := s.IterSorted(0, func(v string, c int64) bool {
		seen = append(seen, v)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "banana", "cherry"}, seen)
}

func TestSpillingTracker_NeverOpensDiskWhenCapIsNeverExceeded(t *testing.T) {
	opened := false
	s := NewSpillingTracker(100, 0, func() (*PebbleStore, error) {
		opened = true
		return nil, nil
	})
	defer s.Close()

	s.Add(0, "a")
	s.Add(0, "b")
	assert.False(t, opened)
	assert.NoError(t, s.Close())
}
