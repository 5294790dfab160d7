package pta

import (
	"testing"

	"github.com/gopta/pta/internal/pta/callgraph"
	"github.com/gopta/pta/internal/pta/pag"
	"github.com/gopta/pta/internal/pta/path"
	"github.com/gopta/pta/internal/pta/typeutil"
)

func TestSnapshotStatsCountsEdgesAndCallsByKind(t *testing.T) {
	it := path.NewInterner()
	g := pag.New(it, typeutil.New(typeutil.NewDefaultLayout()))
	a := it.Intern(path.NewLocal(1, 1))
	b := it.Intern(path.NewLocal(1, 2))
	g.AddAddrEdge(a, b)
	g.AddDirectEdge(b, a)

	cg := callgraph.New()
	cg.AddEdge(callgraph.Node{Func: 1}, 1, callgraph.Node{Func: 2}, callgraph.StaticDispatch)
	cg.AddEdge(callgraph.Node{Func: 1}, 2, callgraph.Node{Func: 3}, callgraph.DynamicDispatch)
	cg.AddEdge(callgraph.Node{Func: 1}, 3, callgraph.Node{Func: 4}, callgraph.DynamicFnTrait)
	cg.AddEdge(callgraph.Node{Func: 1}, 4, callgraph.Node{Func: 5}, callgraph.FnPtr)

	st := snapshotStats(g, cg, 7)

	if st.Edges != 2 {
		t.Fatalf("Edges = %d, want 2", st.Edges)
	}
	if st.EdgesByKind["addr"] != 1 || st.EdgesByKind["direct"] != 1 {
		t.Fatalf("EdgesByKind = %v, want addr=1 direct=1", st.EdgesByKind)
	}
	if st.WorklistIterations != 7 {
		t.Fatalf("WorklistIterations = %d, want 7", st.WorklistIterations)
	}
	if st.ReachFuncs != 4 {
		t.Fatalf("ReachFuncs = %d, want 4", st.ReachFuncs)
	}
	if st.StaticCalls != 1 || st.DynDispatchCalls != 1 || st.DynFnTraitCalls != 1 || st.FnPtrCalls != 1 {
		t.Fatalf("per-CallType counts = %+v, want one of each", st)
	}
	if st.Resolutions != 4 {
		t.Fatalf("Resolutions = %d, want 4", st.Resolutions)
	}
}

func TestSnapshotStatsExcludesSentinelNode(t *testing.T) {
	it := path.NewInterner()
	g := pag.New(it, typeutil.New(typeutil.NewDefaultLayout()))
	a := it.Intern(path.NewLocal(1, 1))
	b := it.Intern(path.NewLocal(1, 2))
	g.AddDirectEdge(a, b)

	st := snapshotStats(g, callgraph.New(), 0)
	if st.Nodes != g.NumNodes()-1 {
		t.Fatalf("Nodes = %d, want NumNodes()-1 = %d", st.Nodes, g.NumNodes()-1)
	}
}
