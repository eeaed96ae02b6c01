package keyengine

import "github.com/proflow/dataprofiler/distinct"

// DuplicateGroup is one confirmed set of rows sharing the same key tuple
// value, with count > 1.
type DuplicateGroup struct {
	KeySignature string
	Count        int64
}

// RowProjector yields each data row's values for the given column
// ordinals, in stream order, for the duplicate-confirmation pass. The
// implementations in this repository re-open and re-read the byte source;
// the distinct store keeps no row order, so it is not replayed.
type RowProjector interface {
	// Next returns the next row's projected values for the given column
	// ordinals, or ok=false at end of stream.
	Next(columns []int) (values []string, ok bool, err error)
}

// ConfirmDuplicates re-projects every row through columns and counts
// occurrences of each distinct tuple, mirroring the visited/seen
// traversal style the teacher's dependency-sort walk uses (a map standing
// in for the boolean visited array, since tuples rather than node indices
// are being deduplicated here). Returns one DuplicateGroup per tuple value
// seen more than once.
func ConfirmDuplicates(proj RowProjector, columns []int) ([]DuplicateGroup, error) {
	counts := make(map[string]int64)
	var order []string

	for {
		values, ok, err := proj.Next(columns)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		key := distinct.EncodeTuple(values)
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	var groups []DuplicateGroup
	for _, key := range order {
		if counts[key] > 1 {
			groups = append(groups, DuplicateGroup{KeySignature: key, Count: counts[key]})
		}
	}
	return groups, nil
}

// TotalDuplicateRows sums count-1 across every group, the number of
// "extra" rows beyond the first occurrence of each key value.
func TotalDuplicateRows(groups []DuplicateGroup) int64 {
	var n int64
	for _, g := range groups {
		n += g.Count - 1
	}
	return n
}
