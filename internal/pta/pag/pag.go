// Package pag implements the whole-program Pointer Assignment Graph of
// §3.4/§4.4 (C5): the directed labelled multigraph of typed pointer-flow
// constraints, its per-kind edge constructors and dedup, its Addr-edge and
// inter-procedural-edge FIFOs, and the call-graph edges the driver (C9)
// accumulates alongside it (§3.5).
package pag

import (
	"github.com/gopta/pta/internal/pta/mirtypes"
	"github.com/gopta/pta/internal/pta/path"
	"github.com/gopta/pta/internal/pta/ptset"
	"github.com/gopta/pta/internal/pta/typeutil"
)

// EdgeKind is one of the seven PAG edge labels of §3.4.
type EdgeKind uint8

const (
	EdgeAddr EdgeKind = iota
	EdgeDirect
	EdgeLoad
	EdgeStore
	EdgeGep
	EdgeCast
	EdgeOffset
	numEdgeKinds
)

func (k EdgeKind) String() string {
	return [...]string{"addr", "direct", "load", "store", "gep", "cast", "offset"}[k]
}

// EdgeID is a dense handle into Graph.Edges.
type EdgeID uint32

// Edge is one PAG constraint. Proj carries the projection payload for
// Load/Store/Gep (resolved against each discovered object at solve time,
// §4.5); CastType carries the Cast edge's target dereferenced type.
type Edge struct {
	Kind     EdgeKind
	Src, Dst path.NodeID
	Proj     []path.Selector
	CastType mirtypes.Type
}

// Node holds one PAG node's edge buckets (six in, six out, per §3.4) plus
// its points-to state (§3.3). Edge buckets are keyed by EdgeKind so
// propagation inspects only relevant edges.
type Node struct {
	ID  path.NodeID
	Out [numEdgeKinds][]EdgeID
	In  [numEdgeKinds][]EdgeID
	ptset.PointerState
}

// Graph is the whole-program PAG: the union of every function's internal
// edges plus the inter-procedural edges the driver adds as new call-graph
// edges are discovered (§4.4).
type Graph struct {
	Interner *path.Interner
	TU       *typeutil.Util

	nodes []*Node // index by NodeID; nodes[0] is an unused sentinel
	Edges []*Edge

	// AddrQueue is the append-only chunked FIFO of newly added Addr edges,
	// read via a cursor by the propagator's initialization step (§4.5).
	AddrQueue   []EdgeID
	addrCursor  int

	// InterQueue is the matching FIFO for inter-procedural Direct edges.
	InterQueue  []EdgeID
	interCursor int
}

func New(interner *path.Interner, tu *typeutil.Util) *Graph {
	g := &Graph{Interner: interner, TU: tu}
	g.nodes = append(g.nodes, nil) // sentinel for NodeID 0
	return g
}

// node returns (creating as needed) the Node record for id.
func (g *Graph) node(id path.NodeID) *Node {
	for path.NodeID(len(g.nodes)) <= id {
		g.nodes = append(g.nodes, nil)
	}
	if g.nodes[id] == nil {
		g.nodes[id] = &Node{ID: id}
	}
	return g.nodes[id]
}

// Node exposes the node record for external callers (the propagator).
func (g *Graph) Node(id path.NodeID) *Node { return g.node(id) }

// NumNodes returns one past the highest node id ever touched.
func (g *Graph) NumNodes() int { return len(g.nodes) }

func sameProj(a, b []path.Selector) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind || a[i].FieldIndex != b[i].FieldIndex || a[i].Variant != b[i].Variant {
			return false
		}
	}
	return true
}

// findEdge searches src's out-bucket of kind k for an existing edge to dst
// with matching projection payload, implementing the §3.4/I3 dedup rule.
func (g *Graph) findEdge(src path.NodeID, k EdgeKind, dst path.NodeID, proj []path.Selector) (EdgeID, bool) {
	for _, eid := range g.node(src).Out[k] {
		e := g.Edges[eid]
		if e.Dst == dst && sameProj(e.Proj, proj) {
			return eid, true
		}
	}
	return 0, false
}

func (g *Graph) addEdge(k EdgeKind, dst, src path.NodeID, proj []path.Selector, castType mirtypes.Type) (EdgeID, bool) {
	if src == 0 || dst == 0 {
		panic("UnreachableInvariantBreak: edge endpoint is the zero sentinel")
	}
	if id, ok := g.findEdge(src, k, dst, proj); ok {
		return id, false
	}
	id := EdgeID(len(g.Edges))
	g.Edges = append(g.Edges, &Edge{Kind: k, Src: src, Dst: dst, Proj: proj, CastType: castType})
	g.node(src).Out[k] = append(g.node(src).Out[k], id)
	g.node(dst).In[k] = append(g.node(dst).In[k], id)
	return id, true
}

// AddAddrEdge adds dst = &src, enqueuing it on the Addr FIFO if new.
func (g *Graph) AddAddrEdge(dst, src path.NodeID) EdgeID {
	id, isNew := g.addEdge(EdgeAddr, dst, src, nil, nil)
	if isNew {
		g.AddrQueue = append(g.AddrQueue, id)
	}
	return id
}

// AddDirectEdge adds dst = src.
func (g *Graph) AddDirectEdge(dst, src path.NodeID) EdgeID {
	if src == dst {
		return 0
	}
	id, _ := g.addEdge(EdgeDirect, dst, src, nil, nil)
	return id
}

// AddLoadEdge adds dst = (*src).proj.
func (g *Graph) AddLoadEdge(dst, src path.NodeID, proj []path.Selector) EdgeID {
	id, _ := g.addEdge(EdgeLoad, dst, src, proj, nil)
	return id
}

// AddStoreEdge adds (*dst).proj = src.
func (g *Graph) AddStoreEdge(dst, src path.NodeID, proj []path.Selector) EdgeID {
	id, _ := g.addEdge(EdgeStore, dst, src, proj, nil)
	return id
}

// AddGepEdge adds dst = &((*src).proj).
func (g *Graph) AddGepEdge(dst, src path.NodeID, proj []path.Selector) EdgeID {
	id, _ := g.addEdge(EdgeGep, dst, src, proj, nil)
	return id
}

// AddCastEdge adds dst = src as T, where castType is T's dereferenced type.
func (g *Graph) AddCastEdge(dst, src path.NodeID, castType mirtypes.Type) EdgeID {
	id, _ := g.addEdge(EdgeCast, dst, src, nil, castType)
	return id
}

// AddOffsetEdge adds dst = src.offset(n) (treated as Direct by the solver
// when src/dst share type, per §3.4).
func (g *Graph) AddOffsetEdge(dst, src path.NodeID) EdgeID {
	id, _ := g.addEdge(EdgeOffset, dst, src, nil, nil)
	return id
}

// AddInterProceduralEdge adds one Direct edge representing an
// argument->parameter or return->destination copy, enqueuing it on the
// inter-procedural FIFO the propagator drains during initialization.
func (g *Graph) AddInterProceduralEdge(dst, src path.NodeID) {
	if src == 0 || dst == 0 || src == dst {
		return
	}
	id, isNew := g.addEdge(EdgeDirect, dst, src, nil, nil)
	if isNew {
		g.InterQueue = append(g.InterQueue, id)
	}
}

// AddFieldwiseDirect decomposes a copy of a value of type t from src to dst
// into one Direct edge per pointer-typed leaf (§4.4's "materializing nested
// edges field-wise for non-pointer types via add_new_direct_edges"), using
// the shared PointerProjections cache (C1) so struct/array/union copies
// reduce to the same handful of edges as a hand-written assignment would.
func (g *Graph) AddFieldwiseDirect(dst, src path.NodeID, t mirtypes.Type) {
	if mirtypes.IsPointerLike(t) {
		g.AddInterProceduralEdge(dst, src)
		return
	}
	for _, pp := range g.TU.PointerProjections(t) {
		g.AddInterProceduralEdge(
			g.Interner.Qualified(dst, pp.Proj...),
			g.Interner.Qualified(src, pp.Proj...),
		)
	}
}
