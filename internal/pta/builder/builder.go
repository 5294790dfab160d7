// Package builder implements the per-function PAG builder of §4.3 (C4):
// lowering one MIR function body's statements, rvalues and terminators into
// pointer-assignment-graph edges, special-function summaries for allocator
// and smart-pointer intrinsics (§4.3.1), and the callsite tables the driver
// and solver use to discover and resolve calls (§3.5/§4.5).
package builder

import (
	"fmt"

	"github.com/gopta/pta/internal/pta/callgraph"
	"github.com/gopta/pta/internal/pta/mir"
	"github.com/gopta/pta/internal/pta/mirtypes"
	"github.com/gopta/pta/internal/pta/pag"
	"github.com/gopta/pta/internal/pta/path"
	"github.com/gopta/pta/internal/pta/specialize"
	"github.com/gopta/pta/internal/pta/typeutil"
	"golang.org/x/xerrors"
)

// ErrMirUnavailable is wrapped into the driver's MirUnavailable error kind
// (§7) when a callee's body cannot be obtained from the oracle.
var ErrMirUnavailable = xerrors.New("mir unavailable")

// Callsite is one terminator Call the builder could not fully wire on its
// own (a static call IS fully wired during LowerFunction and appears here
// only for call-graph bookkeeping; a dynamic one still needs the solver to
// resolve a concrete callee as points-to facts accrue, §4.5).
type Callsite struct {
	Site path.CallsiteLoc
	Kind callgraph.CallType

	// CallerFunc is the function whose lowering produced this callsite, so
	// the driver's call-graph edges (§3.5) can name both endpoints once a
	// dynamic callsite resolves.
	CallerFunc path.FuncID

	// Static / already-resolved calls (Kind == StaticDispatch): Callee is
	// interned and its parameters/return are already wired.
	Callee path.FuncID

	// Dynamic dispatch / Fn-trait calls: Receiver is the self operand whose
	// points-to set drives resolution.
	Receiver    path.NodeID
	VirtualMeth mir.DefID
	FnTrait     mirtypes.FnTraitKind

	// Raw function-pointer calls: FnPtrNode's points-to set is a set of
	// Function item paths naming the candidate callees directly (no
	// resolution needed beyond looking up which FuncID each names).
	FnPtrNode path.NodeID

	Args     []path.NodeID
	ArgTypes []mirtypes.Type
	Dest     path.NodeID
	DestType mirtypes.Type
}

// Builder owns the whole-program PAG and the shared caches every function's
// lowering draws on (§5: a single-threaded AnalysisContext aggregator).
type Builder struct {
	PAG      *pag.Graph
	TU       *typeutil.Util
	Interner *path.Interner
	Oracle   mir.Oracle
	Reg      *Registry

	siteCounter uint32
	auxCounter  map[path.FuncID]int
}

func New(oracle mir.Oracle) *Builder {
	interner := path.NewInterner()
	tu := typeutil.New(typeutil.NewDefaultLayout())
	return &Builder{
		PAG:        pag.New(interner, tu),
		TU:         tu,
		Interner:   interner,
		Oracle:     oracle,
		Reg:        NewRegistry(),
		auxCounter: make(map[path.FuncID]int),
	}
}

func (b *Builder) nextSite() path.CallsiteLoc {
	b.siteCounter++
	return path.CallsiteLoc(b.siteCounter)
}

// FuncID interns ref without lowering it, for callers (the driver) that
// need a FuncID up front, e.g. to seed analysis at an entry point.
func (b *Builder) FuncID(ref mir.FuncRef) path.FuncID { return b.Reg.Intern(ref) }

// Wire connects a resolved callee's parameters/return to a callsite's
// argument/destination nodes (§4.4's inter-procedural edges), independent
// of whether the callee's body has been lowered yet -- parameter and return
// paths are addressed structurally by (FuncID, ordinal) alone. The driver
// and solver both call this: the driver for statically resolved calls
// during LowerFunction, the solver when a dynamic callsite's points-to set
// first yields a concrete candidate.
func (b *Builder) Wire(callee path.FuncID, args []path.NodeID, argTypes []mirtypes.Type, dest path.NodeID, destType mirtypes.Type) {
	for i, a := range args {
		if a == 0 {
			continue
		}
		param := b.Interner.Intern(path.NewParameter(callee, i))
		var t mirtypes.Type
		if i < len(argTypes) {
			t = argTypes[i]
		}
		b.PAG.AddFieldwiseDirect(param, a, t)
	}
	if dest != 0 {
		ret := b.Interner.Intern(path.NewReturnValue(callee))
		b.PAG.AddFieldwiseDirect(dest, ret, destType)
	}
}

// funcBuilder holds one function body's in-progress lowering state.
type funcBuilder struct {
	b      *Builder
	ref    mir.FuncRef
	funcID path.FuncID
	fn     *mir.Function
	spec   *specialize.Specializer
	sites  []Callsite
}

// LowerFunction lowers ref's body into PAG edges, returning the dynamic
// callsites discovered (static ones are wired immediately and omitted
// except as call-graph bookkeeping). Lowering the same ref twice is a
// no-op: the Registry's lowered-set makes this idempotent so the driver's
// reach_funcs loop can call it freely on every rediscovery.
func (b *Builder) LowerFunction(ref mir.FuncRef) ([]Callsite, error) {
	funcID := b.Reg.Intern(ref)
	if b.Reg.IsLowered(funcID) {
		return nil, nil
	}
	b.Reg.MarkLowered(funcID)

	if !b.Oracle.IsMIRAvailable(ref.Def) {
		return nil, fmt.Errorf("%w: def %d", ErrMirUnavailable, ref.Def)
	}
	var fn *mir.Function
	if ref.PromotedOrdinal != nil {
		fn = b.Oracle.PromotedBody(ref, *ref.PromotedOrdinal)
	} else {
		fn = b.Oracle.FunctionBody(ref)
	}
	if fn == nil || !fn.HasMIR {
		return nil, fmt.Errorf("%w: def %d", ErrMirUnavailable, ref.Def)
	}

	fb := &funcBuilder{b: b, ref: ref, funcID: funcID, fn: fn, spec: specialize.New(noopAssoc{})}

	if fn.Special != "" {
		if sf, ok := specialFuncs[fn.Special]; ok {
			sf(fb)
		} else {
			fb.lowerUnknownSpecial()
		}
		return fb.sites, nil
	}

	for _, blk := range fn.Blocks {
		for _, st := range blk.Stmts {
			fb.lowerStmt(st)
		}
		fb.lowerTerminator(blk.Terminator)
	}
	for i := range fb.sites {
		fb.sites[i].CallerFunc = funcID
	}
	return fb.sites, nil
}

func (fb *funcBuilder) nodeForLocal(i int) path.NodeID {
	switch {
	case i == 0:
		return fb.b.Interner.Intern(path.NewReturnValue(fb.funcID))
	case i >= 1 && i <= fb.fn.ArgCount:
		return fb.b.Interner.Intern(path.NewParameter(fb.funcID, i-1))
	default:
		return fb.b.Interner.Intern(path.NewLocal(fb.funcID, i))
	}
}

func (fb *funcBuilder) paramNode(i int) path.NodeID {
	return fb.b.Interner.Intern(path.NewParameter(fb.funcID, i))
}

func (fb *funcBuilder) retNode() path.NodeID {
	return fb.b.Interner.Intern(path.NewReturnValue(fb.funcID))
}

func (fb *funcBuilder) newAux() path.NodeID {
	ord := fb.b.auxCounter[fb.funcID]
	fb.b.auxCounter[fb.funcID] = ord + 1
	return fb.b.Interner.Intern(path.NewAuxiliary(fb.funcID, ord))
}

func (fb *funcBuilder) newHeapObj() path.NodeID {
	loc := fb.b.nextSite()
	return fb.b.Interner.Intern(path.NewHeapObj(fb.funcID, loc))
}

func translateElem(e mir.PlaceElem) path.Selector {
	switch e.Kind {
	case mir.ElemDeref:
		return path.Deref()
	case mir.ElemField:
		return path.FieldSel(e.FieldIndex)
	case mir.ElemUnionField:
		return path.UnionFieldSel(e.FieldIndex)
	case mir.ElemIndex:
		return path.IndexSel()
	case mir.ElemSubslice:
		return path.SubsliceSel(0, 0, false)
	case mir.ElemDowncast:
		return path.DowncastSel(e.Variant)
	case mir.ElemDiscriminant:
		return path.DiscriminantSel()
	}
	return path.Selector{}
}

func translateElems(es []mir.PlaceElem) []path.Selector {
	out := make([]path.Selector, len(es))
	for i, e := range es {
		out[i] = translateElem(e)
	}
	return out
}

// resolvePlaceRead returns the node for a place's current value, threading
// through a fresh Load edge for every Deref it encounters in sequence so a
// chain like `**p` materializes two nested loads.
func (fb *funcBuilder) resolvePlaceRead(p mir.Place) path.NodeID {
	cur := fb.nodeForLocal(p.Local)
	var pending []path.Selector
	for _, e := range p.Proj {
		if e.Kind != mir.ElemDeref {
			pending = append(pending, translateElem(e))
			continue
		}
		src := cur
		if len(pending) > 0 {
			src = fb.b.Interner.Qualified(cur, pending...)
			pending = nil
		}
		tmp := fb.newAux()
		fb.b.PAG.AddLoadEdge(tmp, src, nil)
		cur = tmp
	}
	if len(pending) > 0 {
		return fb.b.Interner.Qualified(cur, pending...)
	}
	return cur
}

// resolvePlaceForWrite splits a place at its last Deref: everything before
// it is resolved as a read down to the pointer being written through,
// everything after becomes the Store/Gep edge's projection payload. isDirect
// is true when the place has no Deref at all (ptrNode is then the place's
// own local, to be qualified with trailing directly, no indirection).
func (fb *funcBuilder) resolvePlaceForWrite(p mir.Place) (ptrNode path.NodeID, trailing []path.Selector, isDirect bool) {
	lastDeref := -1
	for i, e := range p.Proj {
		if e.Kind == mir.ElemDeref {
			lastDeref = i
		}
	}
	if lastDeref == -1 {
		return fb.nodeForLocal(p.Local), translateElems(p.Proj), true
	}
	before := mir.Place{Local: p.Local, Proj: p.Proj[:lastDeref]}
	after := p.Proj[lastDeref+1:]
	ptr := fb.resolvePlaceRead(before)
	return ptr, translateElems(after), false
}

func (fb *funcBuilder) operandNode(op mir.Operand) path.NodeID {
	if op.IsConstant {
		return fb.constNode(op.Const)
	}
	return fb.resolvePlaceRead(op.Place)
}

func (fb *funcBuilder) operandType(op mir.Operand) mirtypes.Type {
	if op.IsConstant {
		return op.Const.Typ
	}
	return op.Place.Typ
}

func (fb *funcBuilder) constNode(c mir.ConstVal) path.NodeID {
	switch c.Kind {
	case mir.ConstFuncItem, mir.ConstFnPtr:
		ref := mir.FuncRef{Def: c.FuncDef, Args: c.FuncArgs}
		fid := fb.b.Reg.Intern(ref)
		return fb.b.Interner.Intern(path.NewFunctionItem(fid))
	default:
		return fb.b.Interner.Intern(path.Constant())
	}
}

func (fb *funcBuilder) lowerStmt(st mir.Stmt) {
	switch s := st.(type) {
	case mir.Assign:
		fb.lowerAssign(s)
	case mir.CopyNonOverlapping:
		srcPtr := fb.operandNode(s.Src)
		dstPtr := fb.operandNode(s.Dst)
		tmp := fb.newAux()
		fb.b.PAG.AddLoadEdge(tmp, srcPtr, nil)
		fb.b.PAG.AddStoreEdge(dstPtr, tmp, nil)
	default:
		// SetDiscriminant, Deinit, StorageLive/Dead, Retag, FakeRead,
		// PlaceMention, AscribeUserType, Coverage, ConstEvalCounter, Nop:
		// none carry pointer flow.
	}
}

func (fb *funcBuilder) lowerAssign(s mir.Assign) {
	ptrOrNode, trailing, isDirect := fb.resolvePlaceForWrite(s.Place)
	if isDirect {
		dst := fb.b.Interner.Qualified(ptrOrNode, trailing...)
		fb.lowerRvalueInto(dst, s.Place.Typ, s.Rvalue)
		return
	}
	src := fb.lowerRvalueValue(s.Rvalue, s.Place.Typ)
	fb.b.PAG.AddStoreEdge(ptrOrNode, src, trailing)
}

func (fb *funcBuilder) lowerRvalueValue(rv mir.Rvalue, t mirtypes.Type) path.NodeID {
	tmp := fb.newAux()
	fb.lowerRvalueInto(tmp, t, rv)
	return tmp
}

func (fb *funcBuilder) lowerRvalueInto(dst path.NodeID, t mirtypes.Type, rv mir.Rvalue) {
	switch v := rv.(type) {
	case mir.Use:
		src := fb.operandNode(v.Operand)
		ot := fb.operandType(v.Operand)
		if ot == nil {
			ot = t
		}
		fb.b.PAG.AddFieldwiseDirect(dst, src, ot)
	case mir.Ref:
		fb.lowerAddrOf(dst, v.Place)
	case mir.AddressOf:
		fb.lowerAddrOf(dst, v.Place)
	case mir.Repeat:
		src := fb.operandNode(v.Operand)
		ot := fb.operandType(v.Operand)
		fb.b.PAG.AddFieldwiseDirect(dst, src, ot)
	case mir.Aggregate:
		fb.lowerAggregate(dst, v)
	case mir.Cast:
		fb.lowerCast(dst, v)
	case mir.BinaryOp:
		if v.IsOffset {
			base := fb.operandNode(v.Left)
			fb.b.PAG.AddOffsetEdge(dst, base)
		}
		// non-offset arithmetic is scalar: no pointer flow.
	default:
		// CheckedBinaryOp, NullaryOp, UnaryOp, Discriminant, Len,
		// ThreadLocalRef: none produce pointer-typed results this core
		// tracks.
	}
}

// lowerAddrOf handles Ref/AddressOf. A place with no Deref addresses one of
// this function's own sub-objects (an ordinary Addr edge); a place whose
// address is taken past a Deref (`&(*p).field`) is a Gep: for every object p
// currently points to, the result points to that object's .field, resolved
// dynamically at propagation time rather than baked in here (§3.4).
func (fb *funcBuilder) lowerAddrOf(dst path.NodeID, p mir.Place) {
	base, trailing, isDirect := fb.resolvePlaceForWrite(p)
	if isDirect {
		fb.b.PAG.AddAddrEdge(dst, fb.b.Interner.Qualified(base, trailing...))
		return
	}
	fb.b.PAG.AddGepEdge(dst, base, trailing)
}

func (fb *funcBuilder) lowerAggregate(dst path.NodeID, v mir.Aggregate) {
	switch v.Kind {
	case mir.AggClosure, mir.AggCoroutine:
		// Cache the instance's concrete type so a later dyn Fn/FnMut/FnOnce
		// call on this value can read its call-operator Def straight back
		// off the points-to fact (§4.3's dynamic dispatch, resolved in the
		// solver).
		fb.b.Interner.Path(dst).SetType(v.Typ)
		for i, op := range v.Operands {
			leaf := fb.b.Interner.Qualified(dst, path.FieldSel(i))
			fb.wireLeaf(leaf, op)
		}
	case mir.AggUnion:
		if len(v.Operands) == 0 {
			return
		}
		leaf := fb.b.Interner.Qualified(dst, path.UnionFieldSel(v.ActiveField))
		fb.wireLeaf(leaf, v.Operands[0])
	case mir.AggArray:
		leaf := fb.b.Interner.Qualified(dst, path.IndexSel())
		for _, op := range v.Operands {
			fb.wireLeaf(leaf, op)
		}
	default: // Tuple, Struct
		for i, op := range v.Operands {
			leaf := fb.b.Interner.Qualified(dst, path.FieldSel(i))
			fb.wireLeaf(leaf, op)
		}
	}
}

func (fb *funcBuilder) wireLeaf(leaf path.NodeID, op mir.Operand) {
	src := fb.operandNode(op)
	ot := fb.operandType(op)
	fb.b.PAG.AddFieldwiseDirect(leaf, src, ot)
}

func (fb *funcBuilder) lowerCast(dst path.NodeID, v mir.Cast) {
	src := fb.operandNode(v.Operand)
	switch v.Kind {
	case mir.CastArrayToPointer:
		fb.b.PAG.AddGepEdge(dst, src, []path.Selector{path.IndexSel()})
	case mir.CastNoop:
		fb.b.PAG.AddDirectEdge(dst, src)
	default: // PtrToPtr, FnPtrToPtr, Unsize, ReifyFnPointer, ClosureFnPointer
		fb.b.PAG.AddCastEdge(dst, src, v.Typ)
	}
}

func (fb *funcBuilder) lowerTerminator(t mir.Terminator) {
	if call, ok := t.(mir.Call); ok {
		fb.lowerCall(call)
	}
	// Return, Goto, SwitchInt, Unreachable, InlineAsm, Drop: no pointer flow
	// beyond what their owning Assign/Call statements already modelled.
}

func (fb *funcBuilder) lowerCall(term mir.Call) {
	site := fb.b.nextSite()

	var dest path.NodeID
	var destType mirtypes.Type
	if term.Destination != nil {
		destType = term.Destination.Typ
		ptrOrNode, trailing, isDirect := fb.resolvePlaceForWrite(*term.Destination)
		if isDirect {
			dest = fb.b.Interner.Qualified(ptrOrNode, trailing...)
		} else {
			dest = fb.newAux()
			fb.b.PAG.AddStoreEdge(ptrOrNode, dest, trailing)
		}
	}

	args := make([]path.NodeID, len(term.Args))
	argTypes := make([]mirtypes.Type, len(term.Args))
	for i, a := range term.Args {
		args[i] = fb.operandNode(a)
		argTypes[i] = fb.operandType(a)
	}

	if term.VirtualMethod != nil {
		receiver := fb.operandNode(term.Func)
		fb.sites = append(fb.sites, Callsite{
			Site: site, Kind: callgraph.DynamicDispatch, Receiver: receiver,
			VirtualMeth: *term.VirtualMethod, Args: args, ArgTypes: argTypes,
			Dest: dest, DestType: destType,
		})
		return
	}

	if term.Func.IsConstant {
		c := term.Func.Const
		if c.Kind == mir.ConstFuncItem || c.Kind == mir.ConstFnPtr {
			ref := mir.FuncRef{Def: c.FuncDef, Args: c.FuncArgs}
			callee := fb.b.Reg.Intern(ref)
			fb.b.Wire(callee, args, argTypes, dest, destType)
			fb.sites = append(fb.sites, Callsite{Site: site, Kind: callgraph.StaticDispatch, Callee: callee})
			return
		}
	}

	calleeType := fb.operandType(term.Func)
	calleeNode := fb.operandNode(term.Func)
	if kind, ok := mirtypes.IsFnTraitObject(derefOrSelf(calleeType)); ok {
		fb.sites = append(fb.sites, Callsite{
			Site: site, Kind: callgraph.DynamicFnTrait, Receiver: calleeNode,
			FnTrait: kind, Args: args, ArgTypes: argTypes, Dest: dest, DestType: destType,
		})
		return
	}
	fb.sites = append(fb.sites, Callsite{
		Site: site, Kind: callgraph.FnPtr, FnPtrNode: calleeNode,
		Args: args, ArgTypes: argTypes, Dest: dest, DestType: destType,
	})
}

func derefOrSelf(t mirtypes.Type) mirtypes.Type {
	if t == nil {
		return nil
	}
	if d, ok := typeutil.Deref(t); ok {
		return d
	}
	return t
}

func (fb *funcBuilder) lowerUnknownSpecial() {
	// An unrecognized intrinsic: conservatively pass every pointer-like
	// argument straight through to the return value, rather than dropping
	// flow silently.
	for i := 0; i < fb.fn.ArgCount; i++ {
		fb.b.PAG.AddInterProceduralEdge(fb.retNode(), fb.paramNode(i))
	}
}
