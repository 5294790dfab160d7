package builder

import "github.com/gopta/pta/internal/pta/mirtypes"

// noopAssoc is the specializer's associated-type resolver for this core:
// every projection that reaches it is left unresolved (non-fatal, §7) since
// the core has no trait-impl table to consult. A real front end would wire
// its own resolver here.
type noopAssoc struct{}

func (noopAssoc) ResolveAssoc(trait, item string, self mirtypes.Type) (mirtypes.Type, bool) {
	return nil, false
}

// specialFuncs is the §4.3.1 summary registry: recognized allocator and
// smart-pointer intrinsics get a hand-written body instead of a lowered
// one, keyed by the name the oracle reports via Function.Special.
var specialFuncs = map[string]func(*funcBuilder){
	"alloc":                 specialAlloc,
	"alloc_zeroed":          specialAlloc,
	"Box::new":              specialAlloc,
	"Rc::new":                specialAlloc,
	"Arc::new":               specialAlloc,
	"transmute":              specialTransmute,
	"NonNull::new":           specialPassthrough,
	"NonNull::new_unchecked": specialPassthrough,
	"NonNull::as_ptr":        specialPassthrough,
	"Unique::new_unchecked":  specialPassthrough,
}

// specialAlloc models an allocator entry point: it returns a fresh pointer
// to a heap object keyed by this call's own site, the same per-allocation-
// site abstraction an ordinary `Box::new` call site would get if its body
// were lowered directly (§3.1's HeapObj kind).
func specialAlloc(fb *funcBuilder) {
	heap := fb.newHeapObj()
	fb.b.PAG.AddAddrEdge(fb.retNode(), heap)
}

// specialTransmute reinterprets its first argument's bits as the return
// type without changing the abstract object identity flowing through it.
func specialTransmute(fb *funcBuilder) {
	if fb.fn.ArgCount == 0 {
		return
	}
	fb.b.PAG.AddCastEdge(fb.retNode(), fb.paramNode(0), nil)
}

// specialPassthrough models a pointer wrapper/unwrapper (NonNull, Unique)
// that does not change which object the pointer designates.
func specialPassthrough(fb *funcBuilder) {
	if fb.fn.ArgCount == 0 {
		return
	}
	fb.b.PAG.AddInterProceduralEdge(fb.retNode(), fb.paramNode(0))
}
