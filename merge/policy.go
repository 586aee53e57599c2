// Package merge implements the tiered merge policy and the k-way merge
// execution that rewrites a tier's worth of sealed segments into one
// successor, following §4.7.
package merge

import (
	"sort"

	"github.com/google/uuid"
)

// Policy groups segments by size-decade and selects a tier once it holds
// at least TierSize members, oldest-first.
type Policy struct {
	TierSize int
}

const DefaultTierSize = 4

func DefaultPolicy() Policy { return Policy{TierSize: DefaultTierSize} }

// Candidate is the slice of ReadSegment state the policy needs to select
// merge inputs, without depending on the segment package directly.
type Candidate struct {
	ID      uuid.UUID
	NumRows uint32
	Seq     uint64 // registration order; lower is older
}

// tierOf buckets a segment by the decimal order of magnitude of its row
// count, so segments of comparable size land in the same tier.
func tierOf(numRows uint32) int {
	t := 0
	for numRows >= 10 {
		numRows /= 10
		t++
	}
	return t
}

// Select returns the oldest TierSize candidates from the lowest tier that
// has accumulated at least TierSize members, or nil if no tier qualifies.
func (p Policy) Select(candidates []Candidate) []Candidate {
	tiers := make(map[int][]Candidate)
	for _, c := range candidates {
		t := tierOf(c.NumRows)
		tiers[t] = append(tiers[t], c)
	}

	tierKeys := make([]int, 0, len(tiers))
	for t := range tiers {
		tierKeys = append(tierKeys, t)
	}
	sort.Ints(tierKeys)

	for _, t := range tierKeys {
		group := tiers[t]
		if len(group) < p.TierSize {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Seq < group[j].Seq })
		return group[:p.TierSize]
	}
	return nil
}
