// Package solve implements the worklist propagator of §4.5 (C8): draining
// the PAG's Addr/inter-procedural FIFOs, propagating points-to facts along
// the seven edge kinds to a fixpoint, and resolving dynamic callsites
// in-line as their receiver/fn-pointer nodes accrue new facts.
package solve

import (
	"github.com/gopta/pta/internal/pta/builder"
	"github.com/gopta/pta/internal/pta/callgraph"
	"github.com/gopta/pta/internal/pta/mir"
	"github.com/gopta/pta/internal/pta/mirtypes"
	"github.com/gopta/pta/internal/pta/pag"
	"github.com/gopta/pta/internal/pta/path"
	"github.com/gopta/pta/internal/pta/typeutil"
)

// Sink receives the non-fatal error kinds (§7) the propagator drops
// silently rather than returning: a type-filter rejection or a detected
// cast cycle. pta.ErrorSink implements this; it is declared here (not
// imported from pta) so this package never depends back on its caller.
type Sink interface {
	RecordTypeMismatch()
	RecordCastCycle(node path.NodeID)
}

// Resolution is one callsite whose concrete callee is now known: a static
// call (reported once, immediately on registration) or a dynamic one
// (reported the first time its receiver/fn-pointer's points-to set yields a
// candidate). The driver (C9) turns each into a call-graph edge and lowers
// Callee's body if not already lowered.
type Resolution struct {
	Site     path.CallsiteLoc
	Caller   path.FuncID
	Callee   path.FuncID
	CallType callgraph.CallType

	// Receiver is the self/&self node a DynamicDispatch/DynamicFnTrait
	// resolution's candidate was drawn from, zero for StaticDispatch/FnPtr.
	// The driver (C9) uses it to choose an instance vs. static call context
	// (§4.7 step 4).
	Receiver path.NodeID
}

// Solver is the single-threaded propagator state (§5's AnalysisContext
// aggregator), built atop the same Builder the driver uses to lower
// function bodies and wire callsites.
type Solver struct {
	PAG *pag.Graph
	B   *builder.Builder

	// TypeFilterEnabled gates the §4.5/§9 optional type-compatibility check
	// on Direct/Offset propagation (Decided Open Questions, DESIGN.md).
	TypeFilterEnabled bool

	// Sink, if set, receives TypeMismatch/CastCycle occurrences (§7).
	Sink Sink

	queue  []path.NodeID
	queued map[path.NodeID]bool

	// addrPos/interPos are this solver's own read cursors into the PAG's
	// AddrQueue/InterQueue FIFOs; the PAG's own cursors are internal
	// bookkeeping for a single reader and not exposed to this package.
	addrPos  int
	interPos int

	byReceiver map[path.NodeID][]builder.Callsite // DynamicDispatch, DynamicFnTrait
	byFnPtr    map[path.NodeID][]builder.Callsite // FnPtr

	resolved     map[string]bool       // dedup key: site|calleeFuncID
	siteResolved map[path.CallsiteLoc]bool

	Resolutions []Resolution

	// Iterations counts worklist dequeues across this solver's lifetime,
	// exposed read-only for the driver's Stats snapshot.
	Iterations int
}

func New(b *builder.Builder, typeFilterEnabled bool) *Solver {
	return &Solver{
		PAG:               b.PAG,
		B:                 b,
		TypeFilterEnabled: typeFilterEnabled,
		queued:            make(map[path.NodeID]bool),
		byReceiver:        make(map[path.NodeID][]builder.Callsite),
		byFnPtr:           make(map[path.NodeID][]builder.Callsite),
		resolved:          make(map[string]bool),
		siteResolved:      make(map[path.CallsiteLoc]bool),
	}
}

// RegisterCallsites files the callsites a function's lowering produced
// (builder.LowerFunction's return value): static ones resolve immediately,
// dynamic ones are filed by the node whose points-to growth will resolve
// them and immediately checked against whatever that node already knows.
func (s *Solver) RegisterCallsites(sites []builder.Callsite) {
	for _, site := range sites {
		switch site.Kind {
		case callgraph.StaticDispatch:
			s.reportResolution(site.Site, site.CallerFunc, site.Callee, site.Kind, 0)
		case callgraph.DynamicDispatch, callgraph.DynamicFnTrait:
			s.byReceiver[site.Receiver] = append(s.byReceiver[site.Receiver], site)
			s.tryExistingPointees(site.Receiver)
		case callgraph.FnPtr:
			s.byFnPtr[site.FnPtrNode] = append(s.byFnPtr[site.FnPtrNode], site)
			s.tryExistingPointees(site.FnPtrNode)
		}
	}
}

func (s *Solver) reportResolution(site path.CallsiteLoc, caller, callee path.FuncID, ct callgraph.CallType, receiver path.NodeID) {
	key := resolutionKey(site, callee)
	if s.resolved[key] {
		return
	}
	s.resolved[key] = true
	s.siteResolved[site] = true
	s.Resolutions = append(s.Resolutions, Resolution{Site: site, Caller: caller, Callee: callee, CallType: ct, Receiver: receiver})
}

// UnresolvedInstanceSites returns every DynamicDispatch/DynamicFnTrait
// callsite registered with this solver that never resolved -- candidates
// for the driver's ResolveFailure (§7) bookkeeping once the run reaches its
// fixed point and no further pointees can arrive.
func (s *Solver) UnresolvedInstanceSites() []path.CallsiteLoc {
	var out []path.CallsiteLoc
	seen := make(map[path.CallsiteLoc]bool)
	for _, sites := range s.byReceiver {
		for _, site := range sites {
			if s.siteResolved[site.Site] || seen[site.Site] {
				continue
			}
			seen[site.Site] = true
			out = append(out, site.Site)
		}
	}
	return out
}

func resolutionKey(site path.CallsiteLoc, callee path.FuncID) string {
	b := make([]byte, 0, 16)
	b = appendUint(b, uint64(site))
	b = append(b, '|')
	b = appendUint(b, uint64(callee))
	return string(b)
}

func appendUint(b []byte, v uint64) []byte {
	if v == 0 {
		return append(b, '0')
	}
	var tmp [20]byte
	i := len(tmp)
	for v > 0 {
		i--
		tmp[i] = byte('0' + v%10)
		v /= 10
	}
	return append(b, tmp[i:]...)
}

func (s *Solver) enqueue(n path.NodeID) {
	if n == 0 || s.queued[n] {
		return
	}
	s.queued[n] = true
	s.queue = append(s.queue, n)
}

// drainAddrQueue seeds the worklist from every Addr edge added since the
// last drain: dst acquires src as a new points-to fact (§3.4's base case).
func (s *Solver) drainAddrQueue() {
	for ; s.addrCursor() < len(s.PAG.AddrQueue); s.advanceAddrCursor() {
		e := s.PAG.Edges[s.PAG.AddrQueue[s.addrCursor()]]
		if s.PAG.Node(e.Dst).AddPts(e.Src) {
			s.enqueue(e.Dst)
		}
	}
}

// drainInterQueue seeds the worklist from every inter-procedural Direct
// edge added since the last drain, forwarding src's current points-to set
// into dst retroactively -- the edge itself only governs future growth.
func (s *Solver) drainInterQueue() {
	for ; s.interCursor() < len(s.PAG.InterQueue); s.advanceInterCursor() {
		e := s.PAG.Edges[s.PAG.InterQueue[s.interCursor()]]
		s.forwardAll(e.Src, e.Dst)
	}
}

func (s *Solver) addrCursor() int     { return s.addrPos }
func (s *Solver) advanceAddrCursor()  { s.addrPos++ }
func (s *Solver) interCursor() int    { return s.interPos }
func (s *Solver) advanceInterCursor() { s.interPos++ }

// forwardAll pushes every current points-to fact of src into dst, for
// retroactively seeding a freshly (dynamically or statically) created
// Direct edge.
func (s *Solver) forwardAll(src, dst path.NodeID) {
	grew := false
	s.PAG.Node(src).All(func(o path.NodeID) {
		if s.PAG.Node(dst).AddPts(o) {
			grew = true
		}
	})
	if grew {
		s.enqueue(dst)
	}
}

// materializeDirect wires a dynamically-discovered Direct edge (from a
// Load/Store resolution) and immediately forwards its source's current
// facts, since the worklist only propagates facts added after an edge
// exists.
func (s *Solver) materializeDirect(src, dst path.NodeID) {
	s.PAG.AddDirectEdge(dst, src)
	s.forwardAll(src, dst)
}

// Propagate drains the FIFOs and runs the worklist to a fixpoint, resolving
// dynamic callsites inline as their governing nodes accrue new facts, and
// returns every resolution discovered since the solver was created (or
// since the last Propagate call, for a driver that interleaves lowering and
// solving across several rounds).
func (s *Solver) Propagate() []Resolution {
	s.drainAddrQueue()
	s.drainInterQueue()

	for len(s.queue) > 0 {
		n := s.queue[0]
		s.queue = s.queue[1:]
		s.queued[n] = false
		s.Iterations++

		node := s.PAG.Node(n)
		if node.Diff.Len() == 0 {
			continue
		}
		var diff []path.NodeID
		node.Diff.ForEach(func(o path.NodeID) { diff = append(diff, o) })

		s.propagateDirect(node, diff, pag.EdgeDirect)
		s.propagateDirect(node, diff, pag.EdgeOffset)
		s.propagateLoad(node, diff)
		s.propagateGep(node, diff)
		s.propagateCast(node, diff)
		s.propagateStoreFromValue(node, diff)
		s.propagateStoreFromPointer(node, diff)

		node.Flush()

		s.tryResolve(n, diff)

		// Wiring a resolved callee's parameters/return (Builder.Wire) may
		// have appended fresh inter-procedural edges; drain them into the
		// worklist before moving on so a single Propagate call reaches a
		// full fixpoint without an outer driver loop per resolution.
		s.drainAddrQueue()
		s.drainInterQueue()
	}
	return s.Resolutions
}

func (s *Solver) propagateDirect(node *pag.Node, diff []path.NodeID, kind pag.EdgeKind) {
	for _, eid := range node.Out[kind] {
		e := s.PAG.Edges[eid]
		for _, o := range diff {
			if !s.typeFilterOK(o, e.Dst) {
				if s.Sink != nil {
					s.Sink.RecordTypeMismatch()
				}
				continue
			}
			if s.PAG.Node(e.Dst).AddPts(o) {
				s.enqueue(e.Dst)
			}
		}
	}
}

// propagateLoad handles dst = (*src).proj: for every newly-discovered
// pointee o of src, the memory cell m = Qualify(o, proj) is itself a node
// in the path-addressed universe, so dst inherits m's points-to set via a
// dynamically materialized Direct edge (§3.4's Load(π) semantics).
func (s *Solver) propagateLoad(node *pag.Node, diff []path.NodeID) {
	for _, eid := range node.Out[pag.EdgeLoad] {
		e := s.PAG.Edges[eid]
		for _, o := range diff {
			m := s.B.Interner.Qualified(o, e.Proj...)
			s.materializeDirect(m, e.Dst)
		}
	}
}

// propagateGep handles dst = &((*src).proj): the result is the address of
// the projected cell itself, not its contents, so dst gains m as a direct
// points-to fact (§3.4's Gep(π) semantics).
func (s *Solver) propagateGep(node *pag.Node, diff []path.NodeID) {
	for _, eid := range node.Out[pag.EdgeGep] {
		e := s.PAG.Edges[eid]
		for _, o := range diff {
			m := s.B.Interner.Qualified(o, e.Proj...)
			if s.PAG.Node(e.Dst).AddPts(m) {
				s.enqueue(e.Dst)
			}
		}
	}
}

// propagateCast handles dst = src as T (§4.5's cast-constraint
// optimization): a basic (non-trait-object, non-fn-pointer) target type
// changes no identity, so the object forwards unchanged; otherwise it is
// wrapped in a CastSel selector to give the "object viewed as T" its own
// identity, guarded by HasCastCycle against an unbounded chain of re-casts
// to the same type.
func (s *Solver) propagateCast(node *pag.Node, diff []path.NodeID) {
	for _, eid := range node.Out[pag.EdgeCast] {
		e := s.PAG.Edges[eid]
		for _, o := range diff {
			target := o
			if e.CastType != nil {
				op := s.B.Interner.Path(o)
				if !typeutil.IsBasicPointer(e.CastType) {
					if op.HasCastCycle(e.CastType) {
						if s.Sink != nil {
							s.Sink.RecordCastCycle(o)
						}
					} else {
						target = s.B.Interner.Qualified(o, path.CastSel(e.CastType))
					}
				}
			}
			if s.PAG.Node(e.Dst).AddPts(target) {
				s.enqueue(e.Dst)
			}
		}
	}
}

// propagateStoreFromValue reacts to the stored value's growth: (*dst).proj
// = src, src just grew, so forward the new values into every pointee dst
// currently has.
func (s *Solver) propagateStoreFromValue(node *pag.Node, diff []path.NodeID) {
	for _, eid := range node.Out[pag.EdgeStore] {
		e := s.PAG.Edges[eid]
		ptrNode := s.PAG.Node(e.Dst)
		ptrNode.All(func(o path.NodeID) {
			m := s.B.Interner.Qualified(o, e.Proj...)
			for _, v := range diff {
				if s.PAG.Node(m).AddPts(v) {
					s.enqueue(m)
				}
			}
		})
	}
}

// propagateStoreFromPointer reacts to the pointer's growth: (*dst).proj =
// src, dst just grew a new pointee o, so forward src's current value set
// into the freshly discovered cell.
func (s *Solver) propagateStoreFromPointer(node *pag.Node, diff []path.NodeID) {
	for _, eid := range node.In[pag.EdgeStore] {
		e := s.PAG.Edges[eid]
		valNode := s.PAG.Node(e.Src)
		for _, o := range diff {
			m := s.B.Interner.Qualified(o, e.Proj...)
			valNode.All(func(v path.NodeID) {
				if s.PAG.Node(m).AddPts(v) {
					s.enqueue(m)
				}
			})
		}
	}
}

// typeFilterOK applies the optional §4.5/§9 type-compatibility check: when
// enabled and both the candidate object's and destination path's cached
// types are known pointer types, they must be EquivalentPtrTypes. Absent
// cached type information (the common case -- see DESIGN.md on Path.typ)
// the check passes, since the core has no basis to reject the flow.
func (s *Solver) typeFilterOK(obj, dst path.NodeID) bool {
	if !s.TypeFilterEnabled {
		return true
	}
	ot := s.B.Interner.Path(obj).Type()
	dt := s.B.Interner.Path(dst).Type()
	if ot == nil || dt == nil {
		return true
	}
	if !mirtypes.IsPointerLike(ot) || !mirtypes.IsPointerLike(dt) {
		return true
	}
	return typeutil.EquivalentPtrTypes(ot, dt)
}

// tryExistingPointees replays whatever points-to facts node already carries
// through tryResolve, for a callsite registered after propagation already
// discovered some of them.
func (s *Solver) tryExistingPointees(node path.NodeID) {
	var existing []path.NodeID
	n := s.PAG.Node(node)
	n.All(func(o path.NodeID) { existing = append(existing, o) })
	if len(existing) > 0 {
		s.tryResolve(node, existing)
	}
}

// tryResolve checks whether n's newly-discovered objects resolve any
// pending callsite filed against it.
func (s *Solver) tryResolve(n path.NodeID, objs []path.NodeID) {
	if sites, ok := s.byReceiver[n]; ok {
		for _, site := range sites {
			for _, o := range objs {
				s.resolveReceiver(site, o)
			}
		}
	}
	if sites, ok := s.byFnPtr[n]; ok {
		for _, site := range sites {
			for _, o := range objs {
				s.resolveFnPtr(site, o)
			}
		}
	}
}

func (s *Solver) resolveReceiver(site builder.Callsite, obj path.NodeID) {
	objType := s.B.Interner.Path(obj).Type()
	if objType == nil {
		return
	}
	switch site.Kind {
	case callgraph.DynamicDispatch:
		def, args, ok := s.B.Oracle.Resolve(site.VirtualMeth, []mirtypes.Type{objType})
		if !ok {
			return // ResolveFailure (§7): non-fatal, retried as pointees accrue
		}
		s.wireResolved(site, mir.FuncRef{Def: def, Args: args})
	case callgraph.DynamicFnTrait:
		var def mir.DefID
		switch t := objType.(type) {
		case *mirtypes.Closure:
			def = t.Def
		case *mirtypes.Coroutine:
			def = t.Def
		default:
			return
		}
		s.wireResolved(site, mir.FuncRef{Def: def})
	}
}

func (s *Solver) resolveFnPtr(site builder.Callsite, obj path.NodeID) {
	p := s.B.Interner.Path(obj)
	if p.Kind != path.KindFunction {
		return
	}
	callee := p.Func
	s.B.Wire(callee, site.Args, site.ArgTypes, site.Dest, site.DestType)
	s.reportResolution(site.Site, site.CallerFunc, callee, site.Kind, 0)
}

func (s *Solver) wireResolved(site builder.Callsite, ref mir.FuncRef) {
	callee := s.B.FuncID(ref)
	s.B.Wire(callee, site.Args, site.ArgTypes, site.Dest, site.DestType)
	s.reportResolution(site.Site, site.CallerFunc, callee, site.Kind, site.Receiver)
}
