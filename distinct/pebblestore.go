package distinct

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// PebbleStore is the on-disk spill path: an embedded LSM-tree key-value
// store (cockroachdb/pebble) rooted at one directory per run. Keys are
// `column_ordinal (varint) || value_bytes`; values are a 4-byte
// little-endian frequency counter. Pebble's native byte-order iterator
// backs IterSorted directly, which is why an SSTable-backed embedded store
// was chosen over a plain hash-based one (it gives sorted iteration for
// free, matching the glossary's "sorted string table" option).
type PebbleStore struct {
	db   *pebble.DB
	path string
}

// OpenPebbleStore opens (creating if absent) a pebble instance at dir.
func OpenPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("distinct: opening pebble store at %s: %w", dir, err)
	}
	return &PebbleStore{db: db, path: dir}, nil
}

func encodeKey(columnOrdinal int, value string) []byte {
	buf := make([]byte, binary.MaxVarintLen64+len(value))
	n := binary.PutUvarint(buf, uint64(columnOrdinal))
	copy(buf[n:], value)
	return buf[:n+len(value)]
}

func columnPrefix(columnOrdinal int) []byte {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, uint64(columnOrdinal))
	return buf[:n]
}

func encodeCount(c int64) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(c))
	return b
}

func decodeCount(b []byte) int64 {
	if len(b) < 4 {
		return 0
	}
	return int64(binary.LittleEndian.Uint32(b))
}

// Add idempotently inserts value under columnOrdinal, incrementing its
// stored frequency counter. Single-key writes use pebble's default Set;
// batched promotion (LoadValueCounts) uses a pebble.Batch for group commit,
// per spec §5's "batch writes are preferred" guidance.
func (p *PebbleStore) Add(columnOrdinal int, value string) (bool, error) {
	key := encodeKey(columnOrdinal, value)
	existing, closer, err := p.db.Get(key)
	inserted := false
	var count int64
	if err == pebble.ErrNotFound {
		inserted = true
		count = 1
	} else if err != nil {
		return false, err
	} else {
		count = decodeCount(existing) + 1
		closer.Close()
	}
	if err := p.db.Set(key, encodeCount(count), pebble.Sync); err != nil {
		return false, err
	}
	return inserted, nil
}

// LoadValueCounts bulk-inserts a slice of already-known (value, count)
// pairs in one batch — used when InMemory.Drain promotes a column across
// the spill threshold, so prior in-memory counts survive the migration.
func (p *PebbleStore) LoadValueCounts(columnOrdinal int, vcs []ValueCount) error {
	batch := p.db.NewBatch()
	defer batch.Close()
	for _, vc := range vcs {
		key := encodeKey(columnOrdinal, vc.Value)
		if err := batch.Set(key, encodeCount(vc.Count), nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

func (p *PebbleStore) Count(columnOrdinal int) (int64, error) {
	var n int64
	err := p.IterSorted(columnOrdinal, func(string, int64) bool {
		n++
		return true
	})
	return n, err
}

func (p *PebbleStore) TopK(columnOrdinal int, k int) ([]ValueCount, error) {
	var all []ValueCount
	err := p.IterSorted(columnOrdinal, func(v string, c int64) bool {
		all = append(all, ValueCount{v, c})
		return true
	})
	if err != nil {
		return nil, err
	}
	sortByCountThenValue(all)
	if k < len(all) {
		all = all[:k]
	}
	return all, nil
}

func (p *PebbleStore) IterSorted(columnOrdinal int, fn func(string, int64) bool) error {
	prefix := columnPrefix(columnOrdinal)
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		value := string(key[len(prefix):])
		count := decodeCount(iter.Value())
		if !fn(value, count) {
			break
		}
	}
	return iter.Error()
}

func (p *PebbleStore) Close() error {
	return p.db.Close()
}

// DiskUsageBytes reports pebble's current on-disk footprint for this store
// (live SSTables plus WAL), for the spill byte-budget check in
// distinct.SpillingTracker.
func (p *PebbleStore) DiskUsageBytes() uint64 {
	return p.db.Metrics().DiskSpaceUsage()
}

// prefixUpperBound returns the smallest key strictly greater than every
// key with the given prefix, for bounding a pebble iterator to one
// column's keyspace.
func prefixUpperBound(prefix []byte) []byte {
	upper := append([]byte(nil), prefix...)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}
