package distinct

import (
	"errors"
	"fmt"
)

// ErrSpillBudgetExceeded is returned from Add once the spill directory's
// on-disk usage reaches the configured byte budget (spec §4.8). Callers map
// it to the catastrophic E_SPILL_DIRECTORY_FULL code the same way they map
// an underlying pebble I/O failure.
var ErrSpillBudgetExceeded = errors.New("distinct: spill directory budget exceeded")

// spillNearingFullRatio is the fraction of the byte budget at which
// W_SPILL_DIRECTORY_NEARING_FULL first fires.
const spillNearingFullRatio = 0.8

// SpillOpener lazily creates the on-disk store the first time any column
// needs to spill, so a run that never exceeds the in-memory cap never
// touches disk at all.
type SpillOpener func() (*PebbleStore, error)

// SpillingTracker is the Tracker spec §4.8 describes end to end: every
// column starts in an in-memory set; once a column's cardinality exceeds
// cap, its accumulated (value, count) pairs are migrated in one batch into
// an embedded on-disk store (opened lazily, shared across every spilled
// column in the run) and all further inserts for that column go through
// the disk path. Spilling never changes the answers a caller gets from
// Count/TopK/IterSorted — only where the data physically lives.
type SpillingTracker struct {
	mem     *InMemory
	disk    *PebbleStore
	open    SpillOpener
	cap     int
	spilled map[int]bool

	budgetBytes        int64
	nearingFullWarned  bool
	nearingFullPending bool
}

// NewSpillingTracker returns a tracker that promotes a column to the
// store returned by open once its distinct cardinality exceeds cap.
// budgetBytes is the configured on-disk spill budget (spec §4.8); 0 or
// negative disables the byte-budget check entirely.
func NewSpillingTracker(cap int, budgetBytes int64, open SpillOpener) *SpillingTracker {
	return &SpillingTracker{
		mem:         NewInMemory(),
		open:        open,
		cap:         cap,
		spilled:     make(map[int]bool),
		budgetBytes: budgetBytes,
	}
}

func (s *SpillingTracker) Add(columnOrdinal int, value string) (bool, error) {
	if s.spilled[columnOrdinal] {
		inserted, err := s.disk.Add(columnOrdinal, value)
		if err != nil {
			return false, err
		}
		if err := s.checkBudget(); err != nil {
			return inserted, err
		}
		return inserted, nil
	}

	inserted, err := s.mem.Add(columnOrdinal, value)
	if err != nil {
		return false, err
	}

	if s.mem.CardinalityOf(columnOrdinal) > s.cap {
		if err := s.spillColumn(columnOrdinal); err != nil {
			return false, err
		}
		if err := s.checkBudget(); err != nil {
			return inserted, err
		}
	}
	return inserted, nil
}

// checkBudget inspects the disk store's current footprint once a column has
// spilled: it returns ErrSpillBudgetExceeded once usage reaches the
// configured budget, and latches a one-shot nearing-full warning at 80% of
// it so callers can surface W_SPILL_DIRECTORY_NEARING_FULL exactly once.
func (s *SpillingTracker) checkBudget() error {
	if s.budgetBytes <= 0 || s.disk == nil {
		return nil
	}
	usage := s.disk.DiskUsageBytes()
	if usage >= uint64(s.budgetBytes) {
		return ErrSpillBudgetExceeded
	}
	if !s.nearingFullWarned && float64(usage) >= float64(s.budgetBytes)*spillNearingFullRatio {
		s.nearingFullWarned = true
		s.nearingFullPending = true
	}
	return nil
}

// ConsumeNearingFullWarning reports, once, whether disk usage just crossed
// the nearing-full threshold, clearing the pending flag so a caller that
// polls after every insert only records the warning a single time.
func (s *SpillingTracker) ConsumeNearingFullWarning() bool {
	if s.nearingFullPending {
		s.nearingFullPending = false
		return true
	}
	return false
}

func (s *SpillingTracker) spillColumn(columnOrdinal int) error {
	if s.disk == nil {
		disk, err := s.open()
		if err != nil {
			return fmt.Errorf("distinct: opening spill store: %w", err)
		}
		s.disk = disk
	}
	values := s.mem.Drain(columnOrdinal)
	if err := s.disk.LoadValueCounts(columnOrdinal, values); err != nil {
		return err
	}
	s.spilled[columnOrdinal] = true
	return nil
}

func (s *SpillingTracker) Count(columnOrdinal int) (int64, error) {
	if s.spilled[columnOrdinal] {
		return s.disk.Count(columnOrdinal)
	}
	return s.mem.Count(columnOrdinal)
}

func (s *SpillingTracker) TopK(columnOrdinal int, k int) ([]ValueCount, error) {
	if s.spilled[columnOrdinal] {
		return s.disk.TopK(columnOrdinal, k)
	}
	return s.mem.TopK(columnOrdinal, k)
}

func (s *SpillingTracker) IterSorted(columnOrdinal int, fn func(string, int64) bool) error {
	if s.spilled[columnOrdinal] {
		return s.disk.IterSorted(columnOrdinal, fn)
	}
	return s.mem.IterSorted(columnOrdinal, fn)
}

func (s *SpillingTracker) Close() error {
	if s.disk != nil {
		return s.disk.Close()
	}
	return nil
}

// AnySpilled reports whether at least one column has been promoted to
// disk, for the audit record / CLI --debug summary.
func (s *SpillingTracker) AnySpilled() bool {
	return len(s.spilled) > 0
}
