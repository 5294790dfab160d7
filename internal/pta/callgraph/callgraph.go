// Package callgraph is the call-graph half of §3.5: nodes keyed by
// (ContextID, FuncID), edges keyed by callsite and labelled with a
// CallType, and the reach_funcs FIFO the driver (C9) drains to discover
// which function bodies still need lowering.
package callgraph

import (
	"fmt"

	"github.com/gopta/pta/internal/pta/ctx"
	"github.com/gopta/pta/internal/pta/path"
)

// CallType classifies how a callsite's target was determined.
type CallType uint8

const (
	StaticDispatch CallType = iota
	DynamicDispatch
	DynamicFnTrait
	FnPtr
)

func (t CallType) String() string {
	return [...]string{"static", "dynamic-dispatch", "dynamic-fntrait", "fnptr"}[t]
}

// CallsiteID is also the ctx.CallsiteID used to key context extension.
type CallsiteID = ctx.CallsiteID

// Node is a (context, function) pair, the call graph's vertex identity
// under context sensitivity; context-insensitive analyses always use
// ContextID 0.
type Node struct {
	Context ctx.ContextID
	Func    path.FuncID
}

func (n Node) String() string { return fmt.Sprintf("ctx%d:fn%d", n.Context, n.Func) }

// Edge is one call-graph edge, from a specific callsite in Caller to Callee.
type Edge struct {
	Caller   Node
	Site     CallsiteID
	Callee   Node
	CallType CallType
}

// Graph is the accumulated whole-program call graph.
type Graph struct {
	edges    map[Node][]Edge
	edgeKeys map[string]bool
	Reach    []path.FuncID // reach_funcs: newly discovered functions, in discovery order
	reached  map[path.FuncID]bool
}

func New() *Graph {
	return &Graph{
		edges:    make(map[Node][]Edge),
		edgeKeys: make(map[string]bool),
		reached:  make(map[path.FuncID]bool),
	}
}

// AddEdge adds a call-graph edge if not already present, returning true iff
// it was newly added. Adding an edge whose callee's function has not been
// seen before also appends it to Reach.
func (g *Graph) AddEdge(caller Node, site CallsiteID, callee Node, ct CallType) bool {
	k := fmt.Sprintf("%v|%d|%v|%d", caller, site, callee, ct)
	if g.edgeKeys[k] {
		return false
	}
	g.edgeKeys[k] = true
	g.edges[caller] = append(g.edges[caller], Edge{Caller: caller, Site: site, Callee: callee, CallType: ct})
	if !g.reached[callee.Func] {
		g.reached[callee.Func] = true
		g.Reach = append(g.Reach, callee.Func)
	}
	return true
}

// Edges returns every outgoing edge from a caller node.
func (g *Graph) Edges(n Node) []Edge { return g.edges[n] }

// All returns every edge in the graph, in an unspecified order.
func (g *Graph) All() []Edge {
	var out []Edge
	for _, es := range g.edges {
		out = append(out, es...)
	}
	return out
}
