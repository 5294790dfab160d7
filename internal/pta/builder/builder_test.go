package builder

import (
	"testing"

	"github.com/gopta/pta/internal/fixture"
	"github.com/gopta/pta/internal/pta/callgraph"
	"github.com/gopta/pta/internal/pta/mir"
	"github.com/gopta/pta/internal/pta/mirtypes"
	"github.com/gopta/pta/internal/pta/pag"
	"github.com/gopta/pta/internal/pta/path"
)

func i32() *mirtypes.Primitive { return &mirtypes.Primitive{Name: "i32"} }

func TestLowerFunctionIdempotent(t *testing.T) {
	f := fixture.New()
	def := f.Def()
	f.Add(def, "f", fixture.Fn(&mirtypes.FuncSig{}, 0, 1, nil, mir.Return{}))

	b := New(f)
	ref := mir.FuncRef{Def: def}

	sites1, err := b.LowerFunction(ref)
	if err != nil {
		t.Fatalf("first LowerFunction: %v", err)
	}
	edgesAfterFirst := len(b.PAG.Edges)

	sites2, err := b.LowerFunction(ref)
	if err != nil {
		t.Fatalf("second LowerFunction: %v", err)
	}
	if sites2 != nil {
		t.Fatalf("re-lowering an already-lowered function returned sites %v, want nil", sites2)
	}
	if len(b.PAG.Edges) != edgesAfterFirst {
		t.Fatalf("re-lowering added edges: %d -> %d", edgesAfterFirst, len(b.PAG.Edges))
	}
	_ = sites1
}

func TestLowerFunctionMirUnavailable(t *testing.T) {
	f := fixture.New()
	def := f.Def() // never Add'd: IsMIRAvailable reports false

	b := New(f)
	_, err := b.LowerFunction(mir.FuncRef{Def: def})
	if err == nil {
		t.Fatalf("LowerFunction on an unregistered def returned nil error")
	}
}

func TestLowerAssignAddrOf(t *testing.T) {
	i32t := i32()
	ptrt := &mirtypes.Pointer{Elem: i32t, Mutable: true}

	f := fixture.New()
	def := f.Def()
	x := mir.PlaceOf(1, i32t)
	p := mir.PlaceOf(2, ptrt)
	body := fixture.Fn(&mirtypes.FuncSig{}, 0, 3, []mir.Stmt{
		mir.Assign{Place: p, Rvalue: mir.Ref{Place: x, Mutable: true}},
	}, mir.Return{})
	f.Add(def, "f", body)

	b := New(f)
	if _, err := b.LowerFunction(mir.FuncRef{Def: def}); err != nil {
		t.Fatalf("LowerFunction: %v", err)
	}

	funcID := b.Reg.Intern(mir.FuncRef{Def: def})
	pNode := b.Interner.Intern(path.NewLocal(funcID, 2))
	xNode := b.Interner.Intern(path.NewLocal(funcID, 1))

	found := false
	for _, eid := range b.PAG.AddrQueue {
		e := b.PAG.Edges[eid]
		if e.Dst == pNode && e.Src == xNode {
			found = true
		}
	}
	if !found {
		t.Fatalf("no Addr edge p <- &x found in AddrQueue")
	}
}

func TestLowerCallStaticDispatchWiresImmediately(t *testing.T) {
	i32t := i32()
	ptrt := &mirtypes.Pointer{Elem: i32t, Mutable: true}

	f := fixture.New()
	calleeDef := f.Def()
	f.Add(calleeDef, "callee", fixture.Fn(&mirtypes.FuncSig{Params: []mirtypes.Type{ptrt}}, 1, 2, nil, mir.Return{}))

	callerDef := f.Def()
	p := mir.PlaceOf(1, ptrt)
	body := fixture.Fn(&mirtypes.FuncSig{}, 0, 2, nil, mir.Call{
		Func: mir.Operand{IsConstant: true, Const: mir.FuncItemConst(calleeDef, []mirtypes.Type{ptrt}, nil)},
		Args: []mir.Operand{mir.Copy(p)},
	})
	f.Add(callerDef, "caller", body)

	b := New(f)
	sites, err := b.LowerFunction(mir.FuncRef{Def: callerDef})
	if err != nil {
		t.Fatalf("LowerFunction: %v", err)
	}
	if len(sites) != 1 {
		t.Fatalf("LowerFunction returned %d sites, want 1", len(sites))
	}
	if sites[0].Kind != callgraph.StaticDispatch {
		t.Fatalf("site kind = %v, want StaticDispatch", sites[0].Kind)
	}
	calleeID := b.Reg.Intern(mir.FuncRef{Def: calleeDef})
	if sites[0].Callee != calleeID {
		t.Fatalf("site callee = %d, want %d", sites[0].Callee, calleeID)
	}

	// A static call wires its argument into the callee's parameter path
	// immediately, via an inter-procedural Direct edge.
	param := b.Interner.Intern(path.NewParameter(calleeID, 0))
	found := false
	for _, eid := range b.PAG.InterQueue {
		if b.PAG.Edges[eid].Dst == param {
			found = true
		}
	}
	if !found {
		t.Fatalf("no inter-procedural edge into callee's parameter 0")
	}
}

func TestLowerCallDynamicDispatchDeferred(t *testing.T) {
	traitPtr := &mirtypes.Pointer{Elem: &mirtypes.TraitObject{Trait: "Shape"}}

	f := fixture.New()
	def := f.Def()
	self := mir.PlaceOf(1, traitPtr)
	meth := mir.DefID(7)
	body := fixture.Fn(&mirtypes.FuncSig{}, 1, 2, nil, mir.Call{
		Func:          mir.Copy(self),
		VirtualMethod: &meth,
	})
	f.Add(def, "f", body)

	b := New(f)
	sites, err := b.LowerFunction(mir.FuncRef{Def: def})
	if err != nil {
		t.Fatalf("LowerFunction: %v", err)
	}
	if len(sites) != 1 || sites[0].Kind != callgraph.DynamicDispatch {
		t.Fatalf("sites = %+v, want one DynamicDispatch site", sites)
	}
	if sites[0].VirtualMeth != meth {
		t.Fatalf("VirtualMeth = %d, want %d", sites[0].VirtualMeth, meth)
	}
}

func TestSpecialAllocReturnsFreshHeapObj(t *testing.T) {
	f := fixture.New()
	def := f.Def()
	fn := fixture.Fn(&mirtypes.FuncSig{}, 0, 1, nil, mir.Return{})
	fn.Special = "Box::new"
	f.Add(def, "alloc_site", fn)

	b := New(f)
	if _, err := b.LowerFunction(mir.FuncRef{Def: def}); err != nil {
		t.Fatalf("LowerFunction: %v", err)
	}
	funcID := b.Reg.Intern(mir.FuncRef{Def: def})
	ret := b.Interner.Intern(path.NewReturnValue(funcID))
	if len(b.PAG.Node(ret).In[pag.EdgeAddr]) != 1 {
		t.Fatalf("return node has %d incoming Addr edges, want 1", len(b.PAG.Node(ret).In[pag.EdgeAddr]))
	}
}

func TestSpecialPassthroughWiresParamToReturn(t *testing.T) {
	ptrt := &mirtypes.Pointer{Elem: i32()}
	f := fixture.New()
	def := f.Def()
	fn := fixture.Fn(&mirtypes.FuncSig{Params: []mirtypes.Type{ptrt}}, 1, 2, nil, mir.Return{})
	fn.Special = "NonNull::as_ptr"
	f.Add(def, "unwrap", fn)

	b := New(f)
	if _, err := b.LowerFunction(mir.FuncRef{Def: def}); err != nil {
		t.Fatalf("LowerFunction: %v", err)
	}
	funcID := b.Reg.Intern(mir.FuncRef{Def: def})
	ret := b.Interner.Intern(path.NewReturnValue(funcID))
	param := b.Interner.Intern(path.NewParameter(funcID, 0))
	found := false
	for _, eid := range b.PAG.InterQueue {
		e := b.PAG.Edges[eid]
		if e.Dst == ret && e.Src == param {
			found = true
		}
	}
	if !found {
		t.Fatalf("no Direct edge return <- param0 from the passthrough summary")
	}
}

func TestRegistryInternIsDenseAndStable(t *testing.T) {
	r := NewRegistry()
	ref := mir.FuncRef{Def: 5}
	a := r.Intern(ref)
	b := r.Intern(ref)
	if a != b {
		t.Fatalf("re-interning the same FuncRef produced different ids: %d != %d", a, b)
	}
	other := r.Intern(mir.FuncRef{Def: 6})
	if other == a {
		t.Fatalf("distinct FuncRefs interned to the same id")
	}
	if r.Ref(a).Def != ref.Def {
		t.Fatalf("Ref(a).Def = %d, want %d", r.Ref(a).Def, ref.Def)
	}
}

func TestRegistryLoweredTracking(t *testing.T) {
	r := NewRegistry()
	id := r.Intern(mir.FuncRef{Def: 1})
	if r.IsLowered(id) {
		t.Fatalf("a freshly interned FuncID reports as already lowered")
	}
	r.MarkLowered(id)
	if !r.IsLowered(id) {
		t.Fatalf("IsLowered = false after MarkLowered")
	}
}
