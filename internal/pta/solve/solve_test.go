package solve

import (
	"testing"

	"github.com/gopta/pta/internal/fixture"
	"github.com/gopta/pta/internal/pta/builder"
	"github.com/gopta/pta/internal/pta/callgraph"
	"github.com/gopta/pta/internal/pta/mir"
	"github.com/gopta/pta/internal/pta/mirtypes"
	"github.com/gopta/pta/internal/pta/path"
)

func newBuilder() *builder.Builder {
	return builder.New(fixture.New())
}

func TestPropagateDirectChain(t *testing.T) {
	b := newBuilder()
	fid := path.FuncID(1)
	o := b.Interner.Intern(path.NewHeapObj(fid, 1))
	d1 := b.Interner.Intern(path.NewLocal(fid, 1))
	d2 := b.Interner.Intern(path.NewLocal(fid, 2))

	b.PAG.AddAddrEdge(d1, o)
	b.PAG.AddDirectEdge(d2, d1)

	s := New(b, false)
	s.Propagate()

	if !b.PAG.Node(d2).Contains(o) {
		t.Fatalf("d2 does not contain o after propagating a Direct chain")
	}
}

func TestPropagateLoadThroughStore(t *testing.T) {
	b := newBuilder()
	fid := path.FuncID(1)
	o := b.Interner.Intern(path.NewHeapObj(fid, 1))
	someObj := b.Interner.Intern(path.NewHeapObj(fid, 2))
	p := b.Interner.Intern(path.NewLocal(fid, 1))
	v := b.Interner.Intern(path.NewLocal(fid, 2))
	w := b.Interner.Intern(path.NewLocal(fid, 3))

	b.PAG.AddAddrEdge(p, o)       // p = &o
	b.PAG.AddAddrEdge(v, someObj) // v = &someObj
	b.PAG.AddStoreEdge(p, v, nil) // (*p) = v
	b.PAG.AddLoadEdge(w, p, nil)  // w = (*p)

	s := New(b, false)
	s.Propagate()

	if !b.PAG.Node(w).Contains(someObj) {
		t.Fatalf("w does not contain someObj after store-then-load through p")
	}
}

func TestPropagateGep(t *testing.T) {
	b := newBuilder()
	fid := path.FuncID(1)
	o := b.Interner.Intern(path.NewHeapObj(fid, 1))
	p := b.Interner.Intern(path.NewLocal(fid, 1))
	s := b.Interner.Intern(path.NewLocal(fid, 2))

	b.PAG.AddAddrEdge(p, o)
	b.PAG.AddGepEdge(s, p, []path.Selector{path.FieldSel(1)})

	sv := New(b, false)
	sv.Propagate()

	want := b.Interner.Qualified(o, path.FieldSel(1))
	if !b.PAG.Node(s).Contains(want) {
		t.Fatalf("s does not contain &(o.field1) after Gep propagation")
	}
}

func TestPropagateCastWrapsNonBasicTarget(t *testing.T) {
	b := newBuilder()
	fid := path.FuncID(1)
	o := b.Interner.Intern(path.NewHeapObj(fid, 1))
	src := b.Interner.Intern(path.NewLocal(fid, 1))
	dst := b.Interner.Intern(path.NewLocal(fid, 2))

	castType := &mirtypes.Pointer{Elem: &mirtypes.TraitObject{Trait: "Shape"}}
	b.PAG.AddAddrEdge(src, o)
	b.PAG.AddCastEdge(dst, src, castType)

	s := New(b, false)
	s.Propagate()

	want := b.Interner.Qualified(o, path.CastSel(castType))
	if !b.PAG.Node(dst).Contains(want) {
		t.Fatalf("dst does not contain the cast-wrapped object after an Unsize-style cast")
	}
}

func TestPropagateCastBasicTypeIsTransparent(t *testing.T) {
	b := newBuilder()
	fid := path.FuncID(1)
	o := b.Interner.Intern(path.NewHeapObj(fid, 1))
	src := b.Interner.Intern(path.NewLocal(fid, 1))
	dst := b.Interner.Intern(path.NewLocal(fid, 2))

	castType := &mirtypes.Pointer{Elem: &mirtypes.Primitive{Name: "i32"}}
	b.PAG.AddAddrEdge(src, o)
	b.PAG.AddCastEdge(dst, src, castType)

	s := New(b, false)
	s.Propagate()

	if !b.PAG.Node(dst).Contains(o) {
		t.Fatalf("dst does not contain o unchanged after a basic-pointer cast")
	}
}

type countingSink struct {
	typeMismatch int
	castCycle    int
}

func (c *countingSink) RecordTypeMismatch()         { c.typeMismatch++ }
func (c *countingSink) RecordCastCycle(path.NodeID) { c.castCycle++ }

func TestTypeFilterRejectsMismatchedPointerTypes(t *testing.T) {
	b := newBuilder()
	fid := path.FuncID(1)
	o := b.Interner.Intern(path.NewHeapObj(fid, 1))
	b.Interner.Path(o).SetType(&mirtypes.Pointer{Elem: &mirtypes.Primitive{Name: "i32"}})

	src := b.Interner.Intern(path.NewLocal(fid, 1))
	dst := b.Interner.Intern(path.NewLocal(fid, 2))
	b.Interner.Path(dst).SetType(&mirtypes.Pointer{Elem: &mirtypes.Primitive{Name: "i64"}})

	b.PAG.AddAddrEdge(src, o)
	b.PAG.AddDirectEdge(dst, src)

	sink := &countingSink{}
	s := New(b, true)
	s.Sink = sink
	s.Propagate()

	if b.PAG.Node(dst).Contains(o) {
		t.Fatalf("dst contains o despite a type-filter mismatch")
	}
	if sink.typeMismatch != 1 {
		t.Fatalf("sink.typeMismatch = %d, want 1", sink.typeMismatch)
	}
}

func TestCastCycleDroppedAndRecorded(t *testing.T) {
	b := newBuilder()
	fid := path.FuncID(1)
	o := b.Interner.Intern(path.NewHeapObj(fid, 1))
	src := b.Interner.Intern(path.NewLocal(fid, 1))
	dst := b.Interner.Intern(path.NewLocal(fid, 2))

	traitPtr := &mirtypes.Pointer{Elem: &mirtypes.TraitObject{Trait: "Shape"}}

	// Pre-seed o's path with the same cast selector the edge will try to
	// apply again, simulating a re-cast to the type already in its suffix.
	cast1 := b.Interner.Qualified(o, path.CastSel(traitPtr))
	_ = cast1

	b.PAG.AddAddrEdge(src, cast1)
	b.PAG.AddCastEdge(dst, src, traitPtr)

	sink := &countingSink{}
	s := New(b, false)
	s.Sink = sink
	s.Propagate()

	if sink.castCycle != 1 {
		t.Fatalf("sink.castCycle = %d, want 1", sink.castCycle)
	}
	if !b.PAG.Node(dst).Contains(cast1) {
		t.Fatalf("dst does not contain the unwrapped object when the cast cycle was dropped")
	}
}

func TestRegisterCallsitesStaticReportsImmediately(t *testing.T) {
	b := newBuilder()
	s := New(b, false)
	s.RegisterCallsites([]builder.Callsite{
		{Site: 1, CallerFunc: 1, Callee: 2, Kind: callgraph.StaticDispatch},
	})
	if len(s.Resolutions) != 1 {
		t.Fatalf("Resolutions = %d, want 1", len(s.Resolutions))
	}
	if s.Resolutions[0].CallType != callgraph.StaticDispatch {
		t.Fatalf("CallType = %v, want StaticDispatch", s.Resolutions[0].CallType)
	}
}

func TestFnPtrResolvesOnPointeeDiscovery(t *testing.T) {
	f := fixture.New()
	calleeDef := f.Def()
	f.Add(calleeDef, "callee", fixture.Fn(&mirtypes.FuncSig{}, 0, 1, nil, mir.Return{}))

	b := builder.New(f)
	fid := path.FuncID(1)
	fnPtrNode := b.Interner.Intern(path.NewLocal(fid, 1))
	calleeID := b.FuncID(mir.FuncRef{Def: calleeDef})
	funcItem := b.Interner.Intern(path.NewFunctionItem(calleeID))

	s := New(b, false)
	s.RegisterCallsites([]builder.Callsite{
		{Site: 1, CallerFunc: fid, Kind: callgraph.FnPtr, FnPtrNode: fnPtrNode},
	})
	if len(s.Resolutions) != 0 {
		t.Fatalf("Resolutions = %d before the fn-pointer node gains a pointee, want 0", len(s.Resolutions))
	}

	b.PAG.AddAddrEdge(fnPtrNode, funcItem)
	s.Propagate()

	if len(s.Resolutions) != 1 {
		t.Fatalf("Resolutions = %d after the fn-pointer resolves, want 1", len(s.Resolutions))
	}
	if s.Resolutions[0].Callee != calleeID {
		t.Fatalf("resolved callee = %d, want %d", s.Resolutions[0].Callee, calleeID)
	}
}

func TestDynamicDispatchResolvesViaOracle(t *testing.T) {
	f := fixture.New()
	concreteDef := f.Def()
	f.Add(concreteDef, "Shape::area", fixture.Fn(&mirtypes.FuncSig{}, 1, 1, nil, mir.Return{}))

	concreteType := &mirtypes.Primitive{Name: "Circle"}
	f.SetResolver(func(def mir.DefID, args []mirtypes.Type) (mir.DefID, []mirtypes.Type, bool) {
		if len(args) == 1 {
			if _, ok := args[0].(*mirtypes.Primitive); ok {
				return concreteDef, nil, true
			}
		}
		return 0, nil, false
	})

	b := builder.New(f)
	fid := path.FuncID(1)
	receiver := b.Interner.Intern(path.NewLocal(fid, 1))
	obj := b.Interner.Intern(path.NewHeapObj(fid, 1))
	b.Interner.Path(obj).SetType(concreteType)

	s := New(b, false)
	meth := mir.DefID(9)
	s.RegisterCallsites([]builder.Callsite{
		{Site: 1, CallerFunc: fid, Kind: callgraph.DynamicDispatch, Receiver: receiver, VirtualMeth: meth},
	})

	b.PAG.AddAddrEdge(receiver, obj)
	s.Propagate()

	if len(s.Resolutions) != 1 {
		t.Fatalf("Resolutions = %d, want 1", len(s.Resolutions))
	}
	wantCallee := b.FuncID(mir.FuncRef{Def: concreteDef})
	if s.Resolutions[0].Callee != wantCallee {
		t.Fatalf("resolved callee = %d, want %d", s.Resolutions[0].Callee, wantCallee)
	}
}
