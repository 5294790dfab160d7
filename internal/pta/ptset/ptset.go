// Package ptset implements the hybrid small/large points-to set of §3.3,
// and the diff/propa-partitioned PointerState each pointer node carries.
package ptset

import (
	"math/big"
	"sort"

	"github.com/gopta/pta/internal/pta/path"
)

// smallCap is the small-form linear-scan threshold; a set promotes to the
// bitset form on the insert that would exceed it.
const smallCap = 32

// Set is a hybrid small/large points-to set (§3.3): a sorted slice while
// small, a big.Int-backed bitset once it overflows. big.Int is the stdlib
// stand-in for a compact node-index bitset -- the retrieval pack carries no
// third-party sparse-bitset library suited to this, so this one component
// is stdlib-grounded (see DESIGN.md).
type Set struct {
	small []path.NodeID // sorted ascending, linear-scan form
	large *big.Int      // nil until promoted
}

// Add inserts o, returning true iff it was not already present.
func (s *Set) Add(o path.NodeID) bool {
	if s.large != nil {
		if s.large.Bit(int(o)) == 1 {
			return false
		}
		s.large.SetBit(s.large, int(o), 1)
		return true
	}
	i := sort.Search(len(s.small), func(i int) bool { return s.small[i] >= o })
	if i < len(s.small) && s.small[i] == o {
		return false
	}
	if len(s.small) >= smallCap {
		s.promote()
		s.large.SetBit(s.large, int(o), 1)
		return true
	}
	s.small = append(s.small, 0)
	copy(s.small[i+1:], s.small[i:])
	s.small[i] = o
	return true
}

func (s *Set) promote() {
	s.large = new(big.Int)
	for _, o := range s.small {
		s.large.SetBit(s.large, int(o), 1)
	}
	s.small = nil
}

// Contains reports whether o is a member.
func (s *Set) Contains(o path.NodeID) bool {
	if s.large != nil {
		return s.large.Bit(int(o)) == 1
	}
	i := sort.Search(len(s.small), func(i int) bool { return s.small[i] >= o })
	return i < len(s.small) && s.small[i] == o
}

// Len returns the set's cardinality.
func (s *Set) Len() int {
	if s.large != nil {
		n := 0
		for _, w := range s.large.Bits() {
			n += popcount(uint(w))
		}
		return n
	}
	return len(s.small)
}

func popcount(w uint) int {
	n := 0
	for w != 0 {
		w &= w - 1
		n++
	}
	return n
}

// ForEach calls f once per member, in ascending NodeID order.
func (s *Set) ForEach(f func(path.NodeID)) {
	if s.large != nil {
		bl := s.large.BitLen()
		for i := 0; i < bl; i++ {
			if s.large.Bit(i) == 1 {
				f(path.NodeID(i))
			}
		}
		return
	}
	for _, o := range s.small {
		f(o)
	}
}

// Clear empties the set in place, keeping its current representation.
func (s *Set) Clear() {
	s.small = s.small[:0]
	if s.large != nil {
		s.large.SetInt64(0)
	}
}

// UnionFrom merges every member of other into s, returning true iff s grew.
func (s *Set) UnionFrom(other *Set) bool {
	changed := false
	other.ForEach(func(o path.NodeID) {
		if s.Add(o) {
			changed = true
		}
	})
	return changed
}

// PointerState is the two-set representation every pointer node carries
// (§3.3): Propa holds facts already propagated along outgoing edges, Diff
// holds facts discovered since the last Flush.
//
// Invariant: Propa ∩ Diff = ∅ after every Flush (I2); AddPts is a no-op if
// the object is already in Propa.
type PointerState struct {
	Propa Set
	Diff  Set
}

// AddPts adds o to the pointer's points-to set, returning true iff it was
// newly discovered (i.e. inserted into Diff).
func (ps *PointerState) AddPts(o path.NodeID) bool {
	if ps.Propa.Contains(o) {
		return false
	}
	return ps.Diff.Add(o)
}

// Flush unions Diff into Propa and clears Diff, preserving I2.
func (ps *PointerState) Flush() {
	ps.Propa.UnionFrom(&ps.Diff)
	ps.Diff.Clear()
}

// Contains reports whether o ∈ pts(p), i.e. is in either half.
func (ps *PointerState) Contains(o path.NodeID) bool {
	return ps.Propa.Contains(o) || ps.Diff.Contains(o)
}

// All calls f once per member of pts(p) across both halves.
func (ps *PointerState) All(f func(path.NodeID)) {
	ps.Propa.ForEach(f)
	ps.Diff.ForEach(f)
}

// Len returns |pts(p)|.
func (ps *PointerState) Len() int { return ps.Propa.Len() + ps.Diff.Len() }
