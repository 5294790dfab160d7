// This file implements the SUPPLEMENTED FEATURES statistics collection
// (SPEC_FULL.md, grounded on original_source/src/util/pta_statistics.rs and
// its unsafe/fn-pointer call-site counterparts): a snapshot of node/edge/
// worklist/call counts gathered at the end of a run, feeding the external
// dump-stats/dump-dyn-calls/dump-unsafe-stats sinks named in §6.2 (the sinks
// themselves, writing to a file, stay external to the core per §1).
package pta

import (
	"github.com/gopta/pta/internal/pta/callgraph"
	"github.com/gopta/pta/internal/pta/pag"
)

// Stats is a point-in-time snapshot of the analysis's internal counters.
type Stats struct {
	Nodes int
	Edges int
	// EdgesByKind counts PAG edges per §3.4 kind ("addr", "direct", "load",
	// "store", "gep", "cast", "offset").
	EdgesByKind map[string]int

	WorklistIterations int
	ReachFuncs          int

	// Resolutions is the total number of callsite resolutions the solver
	// reported, across every Propagate call in the run.
	Resolutions int

	// DynCalls/FnPtrCalls distinguish the call-graph's non-static edges by
	// CallType, mirroring the original's unsafe_statistics.rs /
	// call_graph_stat.rs split.
	StaticCalls      int
	DynDispatchCalls int
	DynFnTraitCalls  int
	FnPtrCalls       int
}

func snapshotStats(g *pag.Graph, cg *callgraph.Graph, worklistIterations int) Stats {
	st := Stats{
		Nodes:               g.NumNodes() - 1, // exclude the reserved sentinel
		EdgesByKind:         make(map[string]int),
		WorklistIterations:  worklistIterations,
		ReachFuncs:          len(cg.Reach),
	}
	for _, e := range g.Edges {
		st.Edges++
		st.EdgesByKind[e.Kind.String()]++
	}
	for _, e := range cg.All() {
		switch e.CallType {
		case callgraph.StaticDispatch:
			st.StaticCalls++
		case callgraph.DynamicDispatch:
			st.DynDispatchCalls++
		case callgraph.DynamicFnTrait:
			st.DynFnTraitCalls++
		case callgraph.FnPtr:
			st.FnPtrCalls++
		}
	}
	st.Resolutions = st.StaticCalls + st.DynDispatchCalls + st.DynFnTraitCalls + st.FnPtrCalls
	return st
}
