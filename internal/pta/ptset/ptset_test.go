package ptset

import (
	"testing"

	"github.com/gopta/pta/internal/pta/path"
)

func TestSetAddDedup(t *testing.T) {
	var s Set
	if !s.Add(5) {
		t.Fatalf("first Add(5) = false, want true")
	}
	if s.Add(5) {
		t.Fatalf("second Add(5) = true, want false (already present)")
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
}

func TestSetPromotesPastSmallCap(t *testing.T) {
	var s Set
	for i := 0; i < smallCap+5; i++ {
		s.Add(path.NodeID(i))
	}
	if s.large == nil {
		t.Fatalf("set did not promote to bitset form after exceeding smallCap")
	}
	if s.Len() != smallCap+5 {
		t.Fatalf("Len() after promotion = %d, want %d", s.Len(), smallCap+5)
	}
	for i := 0; i < smallCap+5; i++ {
		if !s.Contains(path.NodeID(i)) {
			t.Fatalf("Contains(%d) = false after promotion", i)
		}
	}
}

func TestSetForEachAscending(t *testing.T) {
	var s Set
	s.Add(3)
	s.Add(1)
	s.Add(2)
	var got []path.NodeID
	s.ForEach(func(o path.NodeID) { got = append(got, o) })
	want := []path.NodeID{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("ForEach yielded %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ForEach yielded %v, want %v", got, want)
		}
	}
}

func TestSetClear(t *testing.T) {
	var s Set
	s.Add(1)
	s.Add(2)
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("Len() after Clear = %d, want 0", s.Len())
	}
	if s.Contains(1) {
		t.Fatalf("Contains(1) after Clear = true")
	}
}

func TestSetUnionFrom(t *testing.T) {
	var a, b Set
	a.Add(1)
	b.Add(1)
	b.Add(2)
	changed := a.UnionFrom(&b)
	if !changed {
		t.Fatalf("UnionFrom did not report growth")
	}
	if a.Len() != 2 {
		t.Fatalf("a.Len() after union = %d, want 2", a.Len())
	}
	if a.UnionFrom(&b) {
		t.Fatalf("re-unioning an already-absorbed set reported growth")
	}
}

func TestPointerStateAddPtsAndFlushInvariant(t *testing.T) {
	var ps PointerState
	if !ps.AddPts(1) {
		t.Fatalf("AddPts(1) = false, want true (newly discovered)")
	}
	if ps.Diff.Len() != 1 || ps.Propa.Len() != 0 {
		t.Fatalf("before Flush: Diff=%d Propa=%d, want Diff=1 Propa=0", ps.Diff.Len(), ps.Propa.Len())
	}
	ps.Flush()
	if ps.Diff.Len() != 0 || ps.Propa.Len() != 1 {
		t.Fatalf("after Flush: Diff=%d Propa=%d, want Diff=0 Propa=1", ps.Diff.Len(), ps.Propa.Len())
	}

	// Re-adding an object already flushed into Propa must not re-surface in Diff.
	if ps.AddPts(1) {
		t.Fatalf("AddPts of an already-propagated object returned true")
	}
	if ps.Diff.Len() != 0 {
		t.Fatalf("Diff grew from re-adding an already-propagated object")
	}
}

func TestPointerStateContainsEitherHalf(t *testing.T) {
	var ps PointerState
	ps.AddPts(1)
	if !ps.Contains(1) {
		t.Fatalf("Contains(1) = false while 1 is in Diff")
	}
	ps.Flush()
	if !ps.Contains(1) {
		t.Fatalf("Contains(1) = false while 1 is in Propa")
	}
}
