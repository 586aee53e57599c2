package search

import "math"

// Candidate is one scored row within a top-k result.
type Candidate struct {
	RowID uint32
	Score float32
}

// less defines the min-heap ordering: the "worst" candidate (lowest
// score, ties broken by the higher row_id so the lowest row_id survives)
// sits at the root and is evicted first when the heap overflows k.
func less(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.RowID > b.RowID
}

// TopK is a bounded min-heap of the best k candidates seen so far,
// ordered descending by score with ties broken by ascending row_id per
// §4.8's output contract.
type TopK struct {
	k     int
	items []Candidate
}

func NewTopK(k int) *TopK { return &TopK{k: k} }

// Len reports how many candidates are currently held (<= k).
func (t *TopK) Len() int { return len(t.items) }

// Full reports whether the heap holds k candidates already.
func (t *TopK) Full() bool { return len(t.items) >= t.k }

// MinScore returns the current k-th best score, or -Inf if not yet full;
// used by the pruning search to decide which dims are still essential.
func (t *TopK) MinScore() float32 {
	if len(t.items) < t.k {
		return float32(math.Inf(-1))
	}
	return t.items[0].Score
}

// Offer inserts c if it belongs in the top k, evicting the current worst
// candidate if the heap is already full.
func (t *TopK) Offer(c Candidate) {
	if t.k == 0 {
		return
	}
	if len(t.items) < t.k {
		t.items = append(t.items, c)
		t.siftUp(len(t.items) - 1)
		return
	}
	if !less(t.items[0], c) {
		return
	}
	t.items[0] = c
	t.siftDown(0)
}

// Sorted drains the heap into descending-score, ascending-tie-break order.
func (t *TopK) Sorted() []Candidate {
	out := make([]Candidate, len(t.items))
	copy(out, t.items)
	for i := len(out) - 1; i > 0; i-- {
		out[0], out[i] = out[i], out[0]
		siftDownSlice(out[:i], 0)
	}
	return out
}

func (t *TopK) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !less(t.items[i], t.items[parent]) {
			return
		}
		t.items[i], t.items[parent] = t.items[parent], t.items[i]
		i = parent
	}
}

func (t *TopK) siftDown(i int) { siftDownSlice(t.items, i) }

func siftDownSlice(items []Candidate, i int) {
	n := len(items)
	for {
		l, r := 2*i+1, 2*i+2
		smallest := i
		if l < n && less(items[l], items[smallest]) {
			smallest = l
		}
		if r < n && less(items[r], items[smallest]) {
			smallest = r
		}
		if smallest == i {
			return
		}
		items[i], items[smallest] = items[smallest], items[i]
		i = smallest
	}
}
