// Package search implements the top-k retrieval engine: a MaxScore-style
// pruning traversal, a brute-force reference implementation, and the
// cross-segment merge that combines per-segment top-k results (§4.8).
package search

import (
	"context"
	"sort"

	"github.com/myscale/sparse-index/posting"
	"github.com/myscale/sparse-index/segment"
	"github.com/myscale/sparse-index/vector"
)

// Query is one top-k search request against a single segment or, after
// fan-out, the whole live segment set.
type Query struct {
	Dims   vector.SparseVector
	TopK   int
	Filter *Bitmap
}

// Result is one segment's (or the orchestrator's merged) search outcome.
type Result struct {
	Candidates []Candidate
	TimedOut   bool
}

type dimCursor struct {
	qWeight float32
	cursor  posting.Cursor
	ub      float32
}

// BruteForce scores every row_id present in the union of the queried
// dims' posting lists, used for correctness testing and as the fallback
// path when no optimized kernel applies.
func BruteForce(ctx context.Context, seg *segment.ReadSegment, q Query) Result {
	scores := make(map[uint32]float32)
	for _, qd := range q.Dims {
		list, ok := seg.List(qd.DimID)
		if !ok {
			continue
		}
		c := list.Cursor()
		for c.Next() {
			if ctx.Err() != nil {
				return finish(scores, q.TopK, true)
			}
			rid := c.RowID()
			if !q.Filter.Contains(rid) {
				continue
			}
			scores[rid] += qd.Weight * c.Weight()
		}
	}
	return finish(scores, q.TopK, false)
}

func finish(scores map[uint32]float32, k int, timedOut bool) Result {
	topk := NewTopK(k)
	for rid, sc := range scores {
		topk.Offer(Candidate{RowID: rid, Score: sc})
	}
	return Result{Candidates: topk.Sorted(), TimedOut: timedOut}
}

// Optimized implements the MaxScore-style pruning traversal of §4.8:
// dims are partitioned into essential (whose combined residual upper
// bound still exceeds the current k-th score) and non-essential; only
// essential dims drive candidate generation, non-essential dims are
// consulted via seek to complete a candidate's score.
func Optimized(ctx context.Context, seg *segment.ReadSegment, q Query) Result {
	var dims []dimCursor
	for _, qd := range q.Dims {
		list, ok := seg.List(qd.DimID)
		if !ok {
			continue
		}
		c := list.Cursor()
		if !c.Next() {
			continue
		}
		dims = append(dims, dimCursor{qWeight: qd.Weight, cursor: c, ub: list.MaxWeight() * qd.Weight})
	}
	if len(dims) == 0 {
		return Result{}
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i].ub < dims[j].ub })

	prefixSum := make([]float32, len(dims)+1)
	for i, d := range dims {
		prefixSum[i+1] = prefixSum[i] + d.ub
	}
	total := prefixSum[len(dims)]

	topk := NewTopK(q.TopK)
	var lastRow uint32
	var hasLast bool

	for {
		if ctx.Err() != nil {
			return Result{Candidates: topk.Sorted(), TimedOut: true}
		}

		threshold := topk.MinScore()
		p := 0
		for p < len(dims) && total-prefixSum[p] <= threshold {
			p++
		}
		essential := dims[p:]
		if len(essential) == 0 {
			break
		}

		if hasLast {
			for i := range essential {
				if !essential[i].cursor.Done() && essential[i].cursor.RowID() <= lastRow {
					essential[i].cursor.Seek(lastRow + 1)
				}
			}
		}

		minRow, found := uint32(0), false
		for i := range essential {
			if essential[i].cursor.Done() {
				continue
			}
			r := essential[i].cursor.RowID()
			if !found || r < minRow {
				minRow, found = r, true
			}
		}
		if !found {
			break
		}
		lastRow, hasLast = minRow, true

		if !q.Filter.Contains(minRow) {
			for i := range essential {
				if !essential[i].cursor.Done() && essential[i].cursor.RowID() == minRow {
					essential[i].cursor.Next()
				}
			}
			continue
		}

		var score float32
		for i := range essential {
			if !essential[i].cursor.Done() && essential[i].cursor.RowID() == minRow {
				score += essential[i].qWeight * essential[i].cursor.Weight()
				essential[i].cursor.Next()
			}
		}
		nonEssential := dims[:p]
		for i := range nonEssential {
			nc := nonEssential[i].cursor
			if nc.Done() {
				continue
			}
			if nc.RowID() < minRow {
				if !nc.Seek(minRow) {
					continue
				}
			}
			if !nc.Done() && nc.RowID() == minRow {
				score += nonEssential[i].qWeight * nc.Weight()
			}
		}

		topk.Offer(Candidate{RowID: minRow, Score: score})
	}
	return Result{Candidates: topk.Sorted()}
}

// MergeResults combines multiple segments' local top-k results into one
// global top-k through a size-k min-heap, per §4.8's "cross-segment merge".
func MergeResults(results []Result, k int) Result {
	topk := NewTopK(k)
	timedOut := false
	for _, r := range results {
		if r.TimedOut {
			timedOut = true
		}
		for _, c := range r.Candidates {
			topk.Offer(c)
		}
	}
	return Result{Candidates: topk.Sorted(), TimedOut: timedOut}
}
