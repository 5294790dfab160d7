// This file implements §6.3's results surface: the two snapshots exposed
// upon termination, a call graph keyed on interned callsites and a
// pointer->{pointee} relation over interned paths. Both are point-in-time
// copies, not a streaming protocol, matching "no streaming protocol" in §6.3.
package pta

import (
	"github.com/gopta/pta/internal/pta/callgraph"
	"github.com/gopta/pta/internal/pta/pag"
	"github.com/gopta/pta/internal/pta/path"
)

// Results is the snapshot Driver.Run returns on successful termination.
type Results struct {
	CallGraph *callgraph.Graph
	Interner  *path.Interner
	Stats     Stats
	Errors    *ErrorSink

	pag *pag.Graph
}

// PointsTo returns a snapshot of p's current points-to set: the object
// paths p may reference, per §6.3's pointer->{pointee} relation.
func (r *Results) PointsTo(p path.NodeID) []path.NodeID {
	var out []path.NodeID
	r.pag.Node(p).All(func(o path.NodeID) { out = append(out, o) })
	return out
}

// CallGraphEdges returns every call-graph edge discovered, each tagged with
// its CallType (static/dynamic-dispatch/dynamic-fntrait/fnptr), per §6.3.
func (r *Results) CallGraphEdges() []callgraph.Edge {
	return r.CallGraph.All()
}
