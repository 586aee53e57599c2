package posting

import (
	"sort"

	"github.com/myscale/sparse-index/errs"
)

// Builder accumulates (row_id, weight) entries for one dimension while a
// segment is Building. Entries may arrive in any row-id order; Finalize
// sorts and validates them per the seal protocol's first two steps.
type Builder struct {
	entries []Entry
}

// Add appends one entry in whatever order the caller's vectors arrive.
func (b *Builder) Add(rowID uint32, weight float32) {
	b.entries = append(b.entries, Entry{RowID: rowID, Weight: weight})
}

// Len reports how many entries have been added so far.
func (b *Builder) Len() int { return len(b.entries) }

// Finalize sorts entries by row_id, rejects duplicate row_ids within this
// dimension, and returns the sorted entries plus the true max weight.
func (b *Builder) Finalize() ([]Entry, float32, error) {
	sort.Slice(b.entries, func(i, j int) bool { return b.entries[i].RowID < b.entries[j].RowID })

	var maxWeight float32
	for i, e := range b.entries {
		if i > 0 && b.entries[i-1].RowID == e.RowID {
			return nil, 0, errs.Newf(errs.InvalidArgument,
				"duplicate row_id %d within one dimension", e.RowID)
		}
		if e.Weight > maxWeight || i == 0 {
			maxWeight = e.Weight
		}
	}
	return b.entries, maxWeight, nil
}
