package callgraph

import "testing"

func TestAddEdgeDedup(t *testing.T) {
	g := New()
	caller := Node{Func: 1}
	callee := Node{Func: 2}

	if added := g.AddEdge(caller, 1, callee, StaticDispatch); !added {
		t.Fatalf("first AddEdge reported false")
	}
	if added := g.AddEdge(caller, 1, callee, StaticDispatch); added {
		t.Fatalf("re-adding the same edge reported true")
	}
	if len(g.Edges(caller)) != 1 {
		t.Fatalf("Edges(caller) = %d, want 1", len(g.Edges(caller)))
	}
}

func TestAddEdgeDistinctCallTypeIsDistinctEdge(t *testing.T) {
	g := New()
	caller := Node{Func: 1}
	callee := Node{Func: 2}

	g.AddEdge(caller, 1, callee, StaticDispatch)
	added := g.AddEdge(caller, 1, callee, DynamicDispatch)
	if !added {
		t.Fatalf("an edge differing only in CallType was not treated as distinct")
	}
	if len(g.Edges(caller)) != 2 {
		t.Fatalf("Edges(caller) = %d, want 2", len(g.Edges(caller)))
	}
}

func TestReachOnlyGrowsOnFirstSightingOfCallee(t *testing.T) {
	g := New()
	caller := Node{Func: 1}
	callee := Node{Func: 2}

	g.AddEdge(caller, 1, callee, StaticDispatch)
	if len(g.Reach) != 1 || g.Reach[0] != 2 {
		t.Fatalf("Reach = %v after first edge, want [2]", g.Reach)
	}

	// A second, distinct edge to the same callee function (different
	// context or callsite) must not grow Reach again.
	otherCallerCtx := Node{Func: 1}
	g.AddEdge(otherCallerCtx, 2, callee, DynamicDispatch)
	if len(g.Reach) != 1 {
		t.Fatalf("Reach = %v after a second edge to the same callee func, want still [2]", g.Reach)
	}

	other := Node{Func: 3}
	g.AddEdge(caller, 3, other, StaticDispatch)
	if len(g.Reach) != 2 || g.Reach[1] != 3 {
		t.Fatalf("Reach = %v after a new callee func, want [2 3]", g.Reach)
	}
}

func TestAllReturnsEveryEdge(t *testing.T) {
	g := New()
	g.AddEdge(Node{Func: 1}, 1, Node{Func: 2}, StaticDispatch)
	g.AddEdge(Node{Func: 2}, 1, Node{Func: 3}, StaticDispatch)
	if len(g.All()) != 2 {
		t.Fatalf("All() = %d edges, want 2", len(g.All()))
	}
}

func TestCallTypeString(t *testing.T) {
	cases := map[CallType]string{
		StaticDispatch:  "static",
		DynamicDispatch: "dynamic-dispatch",
		DynamicFnTrait:  "dynamic-fntrait",
		FnPtr:           "fnptr",
	}
	for ct, want := range cases {
		if got := ct.String(); got != want {
			t.Errorf("CallType(%d).String() = %q, want %q", ct, got, want)
		}
	}
}
