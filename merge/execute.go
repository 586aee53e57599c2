package merge

import (
	"sort"

	"github.com/google/uuid"
	"github.com/myscale/sparse-index/internal/heap"
	"github.com/myscale/sparse-index/posting"
	"github.com/myscale/sparse-index/segment"
)

// Execute performs the merge procedure of §4.7 steps 1–3: for every dim_id
// present in any source, k-way merge the entries by row_id, then write the
// result via the seal protocol. Re-quantization falls out naturally:
// sources' Weight() already dequantizes to float32, and SealDims derives
// fresh quantization parameters over the merged set whenever
// opts.ElementType is u8.
func Execute(opts segment.Options, sources []*segment.ReadSegment) (uuid.UUID, string, error) {
	dimSet := make(map[uint32]struct{})
	for _, s := range sources {
		for _, d := range s.Dims() {
			dimSet[d] = struct{}{}
		}
	}
	dims := make([]uint32, 0, len(dimSet))
	for d := range dimSet {
		dims = append(dims, d)
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i] < dims[j] })

	out := make([]segment.DimData, 0, len(dims))
	for _, dimID := range dims {
		entries, max := mergeDim(sources, dimID)
		if len(entries) == 0 {
			continue
		}
		out = append(out, segment.DimData{DimID: dimID, Entries: entries, Max: max})
	}
	return segment.SealDims(opts, out)
}

// mergeDim k-way merges one dimension's entries across every source that
// has it, using a row_id-keyed min-heap over live cursors, in the same
// spirit as a classic posting-list merge.
func mergeDim(sources []*segment.ReadSegment, dimID uint32) ([]posting.Entry, float32) {
	var cursors []posting.Cursor
	for _, s := range sources {
		list, ok := s.List(dimID)
		if !ok {
			continue
		}
		c := list.Cursor()
		if c.Next() {
			cursors = append(cursors, c)
		}
	}
	if len(cursors) == 0 {
		return nil, 0
	}

	h := heap.NewCursorHeap(cursors)
	var entries []posting.Entry
	var max float32
	for !h.Empty() {
		c := h.Min()
		e := posting.Entry{RowID: c.RowID(), Weight: c.Weight()}
		entries = append(entries, e)
		if len(entries) == 1 || e.Weight > max {
			max = e.Weight
		}
		h.Advance()
	}
	return entries, max
}
