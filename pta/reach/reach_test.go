package reach

import (
	"context"
	"testing"

	"github.com/gopta/pta/internal/pta/callgraph"
	"github.com/gopta/pta/internal/pta/path"
)

func TestComputeTransitiveReachability(t *testing.T) {
	g := callgraph.New()
	// 1 -> 2 -> 3, and a separate 4 with no outgoing edges.
	g.AddEdge(callgraph.Node{Func: 1}, 1, callgraph.Node{Func: 2}, callgraph.StaticDispatch)
	g.AddEdge(callgraph.Node{Func: 2}, 1, callgraph.Node{Func: 3}, callgraph.StaticDispatch)

	r, err := Compute(context.Background(), g, []path.FuncID{1, 4})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !r.Reaches(1, 2) || !r.Reaches(1, 3) {
		t.Fatalf("root 1 should reach both 2 and 3 transitively")
	}
	if r.Reaches(1, 1) {
		t.Fatalf("a root should not report itself as reachable (no self-loop)")
	}
	if r.Reaches(4, 2) {
		t.Fatalf("root 4 has no outgoing edges, should reach nothing")
	}
	if r.Reaches(2, 3) {
		t.Fatalf("2 was never passed as a root, Reaches should report false regardless of truth")
	}
}

func TestSetReturnsNilForNonRoot(t *testing.T) {
	g := callgraph.New()
	r, err := Compute(context.Background(), g, []path.FuncID{1})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got := r.Set(99); got != nil {
		t.Fatalf("Set(non-root) = %v, want nil", got)
	}
}
