// Package path implements the abstract-location model of §3.1: the Path
// value, its projection selectors, and the invariants that keep every
// qualified path in canonical (non-nested) form.
package path

import (
	"fmt"
	"strings"

	"github.com/gopta/pta/internal/pta/mirtypes"
)

// FuncID is the dense intern handle for a FunctionRef (§3.2).
type FuncID uint32

// DefID is an opaque front-end definition handle (static/const/function item).
type DefID uint32

// CallsiteLoc identifies an allocation site within a function body, used to
// key the location-indexed HeapObj abstraction (one per allocation site per
// containing function, §3.1).
type CallsiteLoc uint32

// Kind tags the closed set of Path variants.
type Kind uint8

const (
	KindLocal Kind = iota
	KindParameter
	KindReturnValue
	KindAuxiliary
	KindHeapObj
	KindStaticVariable
	KindPromotedConstant
	KindConstant
	KindFunction
	KindType
	KindQualified
	KindOffset
	KindPromotedStrArray
	KindPanicFormatterArgs
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindParameter:
		return "param"
	case KindReturnValue:
		return "ret"
	case KindAuxiliary:
		return "aux"
	case KindHeapObj:
		return "heap"
	case KindStaticVariable:
		return "static"
	case KindPromotedConstant:
		return "promoted"
	case KindConstant:
		return "const"
	case KindFunction:
		return "fn"
	case KindType:
		return "type"
	case KindQualified:
		return "qualified"
	case KindOffset:
		return "offset"
	case KindPromotedStrArray:
		return "promoted-str"
	case KindPanicFormatterArgs:
		return "panic-fmt-args"
	}
	return "?"
}

// SelectorKind tags the closed set of projection selectors.
type SelectorKind uint8

const (
	SelDeref SelectorKind = iota
	SelField
	SelUnionField
	SelIndex
	SelSubslice
	SelDowncast
	SelDiscriminant
	SelCast
)

// Selector is one step of a Qualified path's projection sequence.
type Selector struct {
	Kind SelectorKind

	FieldIndex int // SelField, SelUnionField

	Variant int // SelDowncast

	From, To int  // SelSubslice
	FromEnd  bool // SelSubslice

	CastType mirtypes.Type // SelCast
}

func Deref() Selector                 { return Selector{Kind: SelDeref} }
func FieldSel(i int) Selector         { return Selector{Kind: SelField, FieldIndex: i} }
func UnionFieldSel(i int) Selector    { return Selector{Kind: SelUnionField, FieldIndex: i} }
func IndexSel() Selector              { return Selector{Kind: SelIndex} }
func SubsliceSel(from, to int, fromEnd bool) Selector {
	return Selector{Kind: SelSubslice, From: from, To: to, FromEnd: fromEnd}
}
func DowncastSel(variant int) Selector    { return Selector{Kind: SelDowncast, Variant: variant} }
func DiscriminantSel() Selector           { return Selector{Kind: SelDiscriminant} }
func CastSel(t mirtypes.Type) Selector    { return Selector{Kind: SelCast, CastType: t} }

func (s Selector) String() string {
	switch s.Kind {
	case SelDeref:
		return "*"
	case SelField:
		return fmt.Sprintf(".f%d", s.FieldIndex)
	case SelUnionField:
		return fmt.Sprintf(".u%d", s.FieldIndex)
	case SelIndex:
		return "[*]"
	case SelSubslice:
		return fmt.Sprintf("[%d:%d:%v]", s.From, s.To, s.FromEnd)
	case SelDowncast:
		return fmt.Sprintf("#v%d", s.Variant)
	case SelDiscriminant:
		return ".discr"
	case SelCast:
		return fmt.Sprintf("as(%s)", s.CastType)
	}
	return "?"
}

// sameAs reports structural equality of two selectors (used for edge
// dedup and for scanning a path's projection for cast cycles, §4.5/§9).
func (s Selector) sameAs(o Selector) bool {
	if s.Kind != o.Kind {
		return false
	}
	switch s.Kind {
	case SelField, SelUnionField:
		return s.FieldIndex == o.FieldIndex
	case SelSubslice:
		return s.From == o.From && s.To == o.To && s.FromEnd == o.FromEnd
	case SelDowncast:
		return s.Variant == o.Variant
	case SelCast:
		return typeKey(s.CastType) == typeKey(o.CastType)
	default:
		return true
	}
}

// Path is an immutable, structurally-hashed abstract memory location.
type Path struct {
	Kind Kind

	Func    FuncID // Local, Parameter, ReturnValue, Auxiliary, HeapObj
	Ordinal int    // Local, Parameter, Auxiliary ordinal

	CallsiteLoc CallsiteLoc // HeapObj

	DefID           DefID // StaticVariable, PromotedConstant, Function
	PromotedOrdinal int   // PromotedConstant

	TypeIndex int // Type path (front-end type index)

	Base *Path      // Qualified, Offset
	Proj []Selector // Qualified (non-empty, invariant-checked)

	ByteOffset int64 // Offset

	// cached semantic type; see SetType for the monotonic update rule.
	typ             mirtypes.Type
	typeConcretized bool
}

// NewLocal builds the path for local slot `ord` of function `f`. By MIR
// convention (borrowed directly from the front end), local 0 is the return
// slot and locals [1..=arg_count] are parameters; callers needing those
// should use NewReturnValue/NewParameter instead.
func NewLocal(f FuncID, ord int) *Path { return &Path{Kind: KindLocal, Func: f, Ordinal: ord} }

func NewParameter(f FuncID, ord int) *Path { return &Path{Kind: KindParameter, Func: f, Ordinal: ord} }

func NewReturnValue(f FuncID) *Path { return &Path{Kind: KindReturnValue, Func: f} }

func NewAuxiliary(f FuncID, ord int) *Path { return &Path{Kind: KindAuxiliary, Func: f, Ordinal: ord} }

func NewHeapObj(f FuncID, loc CallsiteLoc) *Path {
	return &Path{Kind: KindHeapObj, Func: f, CallsiteLoc: loc}
}

func NewStaticVariable(def DefID) *Path { return &Path{Kind: KindStaticVariable, DefID: def} }

func NewPromotedConstant(def DefID, ord int) *Path {
	return &Path{Kind: KindPromotedConstant, DefID: def, PromotedOrdinal: ord}
}

// constantSingleton is the shared sink for scalar constants not modelled.
var constantSingleton = &Path{Kind: KindConstant}

func Constant() *Path { return constantSingleton }

func NewFunctionItem(f FuncID) *Path { return &Path{Kind: KindFunction, Func: f} }

func NewTypeItem(typeIndex int) *Path { return &Path{Kind: KindType, TypeIndex: typeIndex} }

// promotedStrArrays and panicFmtArgs are the distinguished per-function
// singletons for the promoted &str array and panic-formatter argument array
// recognized during Ref/AddressOf lowering (§4.3).
var (
	promotedStrArrays = map[FuncID]*Path{}
	panicFmtArgs      = map[FuncID]*Path{}
)

func PromotedStrArray(f FuncID) *Path {
	if p, ok := promotedStrArrays[f]; ok {
		return p
	}
	p := &Path{Kind: KindPromotedStrArray, Func: f}
	promotedStrArrays[f] = p
	return p
}

func PanicFormatterArgs(f FuncID) *Path {
	if p, ok := panicFmtArgs[f]; ok {
		return p
	}
	p := &Path{Kind: KindPanicFormatterArgs, Func: f}
	panicFmtArgs[f] = p
	return p
}

// Qualify builds base.proj..., concatenating rather than nesting if base is
// itself Qualified -- the invariant of §3.1 ("A Qualified base is never
// itself Qualified; projections are concatenated, not nested").
func Qualify(base *Path, proj ...Selector) *Path {
	if len(proj) == 0 {
		return base
	}
	if base.Kind == KindQualified {
		allProj := make([]Selector, 0, len(base.Proj)+len(proj))
		allProj = append(allProj, base.Proj...)
		allProj = append(allProj, proj...)
		return &Path{Kind: KindQualified, Base: base.Base, Proj: allProj}
	}
	return &Path{Kind: KindQualified, Base: base, Proj: append([]Selector{}, proj...)}
}

// OffsetPath builds a pointer-arithmetic result path, base.offset(n).
func OffsetPath(base *Path, byteOffset int64) *Path {
	if base.Kind == KindOffset {
		return &Path{Kind: KindOffset, Base: base.Base, ByteOffset: base.ByteOffset + byteOffset}
	}
	return &Path{Kind: KindOffset, Base: base, ByteOffset: byteOffset}
}

// IsDerefPath reports whether p's first selector is Deref -- the
// classification used throughout §4 to decide Load/Store vs Direct edges.
func (p *Path) IsDerefPath() bool {
	return p.Kind == KindQualified && len(p.Proj) > 0 && p.Proj[0].Kind == SelDeref
}

// WithoutLeadingDeref returns the projection following the initial Deref,
// used when materializing Load(π)/Store(π) edges (§4.3's edge-kind matrix).
func (p *Path) WithoutLeadingDeref() []Selector {
	if !p.IsDerefPath() {
		panic("UnreachableInvariantBreak: WithoutLeadingDeref of a non-deref path")
	}
	return p.Proj[1:]
}

// DerefBase returns the path being dereferenced by a deref path (the base
// pointer), i.e. strips only the Deref selector, keeping any remainder as a
// fresh Qualified path rooted at the same base.
func (p *Path) DerefBase() *Path {
	if p.Kind != KindQualified || len(p.Proj) == 0 || p.Proj[0].Kind != SelDeref {
		return p
	}
	if len(p.Proj) == 1 {
		return p.Base
	}
	return Qualify(p.Base)
}

// HasCastCycle reports whether casting p to t would recur: a prior Cast
// selector to the same type already appears in p's projection suffix
// (§4.5/§9's cast-cache cycle rule).
func (p *Path) HasCastCycle(t mirtypes.Type) bool {
	if p.Kind != KindQualified {
		return false
	}
	tk := typeKey(t)
	for _, s := range p.Proj {
		if s.Kind == SelCast && typeKey(s.CastType) == tk {
			return true
		}
	}
	return false
}

// Regularize strips trailing Cast/Index/UnionField/zero-offset-Field/
// Downcast selectors, per §4.5/§9: these selectors denote the same memory
// cell as their base, so the cast-constraint optimization and cast-cache
// canonicalize on the stripped form.
func (p *Path) Regularize() *Path {
	if p.Kind != KindQualified {
		return p
	}
	proj := p.Proj
	for len(proj) > 0 {
		last := proj[len(proj)-1]
		switch {
		case last.Kind == SelCast:
		case last.Kind == SelIndex:
		case last.Kind == SelUnionField:
		case last.Kind == SelField && last.FieldIndex == 0:
		case last.Kind == SelDowncast:
		default:
			proj = proj[:0]
			goto done
		}
		proj = proj[:len(proj)-1]
	}
done:
	if len(proj) == 0 {
		return p.Base
	}
	if len(proj) == len(p.Proj) {
		return p
	}
	return &Path{Kind: KindQualified, Base: p.Base, Proj: proj}
}

// Type returns the path's cached semantic type, or nil if never set.
func (p *Path) Type() mirtypes.Type { return p.typ }

// SetType installs t as p's cached semantic type. Per §3.1, "every path has
// at most one cached semantic type, updated monotonically (opaque-trait
// types may be replaced by a concrete type at most once)": once a concrete
// replacement has happened, further SetType calls are no-ops.
func (p *Path) SetType(t mirtypes.Type) {
	if p.typ == nil {
		p.typ = t
		return
	}
	if p.typeConcretized {
		return
	}
	if mirtypes.IsOpaqueTraitLike(p.typ) && !mirtypes.IsOpaqueTraitLike(t) {
		p.typ = t
		p.typeConcretized = true
	}
}

func (p *Path) String() string {
	switch p.Kind {
	case KindLocal:
		return fmt.Sprintf("f%d:local%d", p.Func, p.Ordinal)
	case KindParameter:
		return fmt.Sprintf("f%d:param%d", p.Func, p.Ordinal)
	case KindReturnValue:
		return fmt.Sprintf("f%d:ret", p.Func)
	case KindAuxiliary:
		return fmt.Sprintf("f%d:aux%d", p.Func, p.Ordinal)
	case KindHeapObj:
		return fmt.Sprintf("f%d:heap@%d", p.Func, p.CallsiteLoc)
	case KindStaticVariable:
		return fmt.Sprintf("static%d", p.DefID)
	case KindPromotedConstant:
		return fmt.Sprintf("promoted%d#%d", p.DefID, p.PromotedOrdinal)
	case KindConstant:
		return "const"
	case KindFunction:
		return fmt.Sprintf("fn%d", p.Func)
	case KindType:
		return fmt.Sprintf("type%d", p.TypeIndex)
	case KindOffset:
		return fmt.Sprintf("%s+%d", p.Base, p.ByteOffset)
	case KindPromotedStrArray:
		return fmt.Sprintf("f%d:promoted-str", p.Func)
	case KindPanicFormatterArgs:
		return fmt.Sprintf("f%d:panic-fmt-args", p.Func)
	case KindQualified:
		var b strings.Builder
		b.WriteString(p.Base.String())
		for _, s := range p.Proj {
			b.WriteString(s.String())
		}
		return b.String()
	}
	return "?"
}

// key is the structural-hash key used by Interner to dedup Paths.
func (p *Path) key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|", p.Kind)
	switch p.Kind {
	case KindLocal, KindParameter, KindAuxiliary:
		fmt.Fprintf(&b, "%d,%d", p.Func, p.Ordinal)
	case KindReturnValue:
		fmt.Fprintf(&b, "%d", p.Func)
	case KindHeapObj:
		fmt.Fprintf(&b, "%d,%d", p.Func, p.CallsiteLoc)
	case KindStaticVariable:
		fmt.Fprintf(&b, "%d", p.DefID)
	case KindPromotedConstant:
		fmt.Fprintf(&b, "%d,%d", p.DefID, p.PromotedOrdinal)
	case KindConstant:
	case KindFunction:
		fmt.Fprintf(&b, "%d", p.Func)
	case KindType:
		fmt.Fprintf(&b, "%d", p.TypeIndex)
	case KindPromotedStrArray, KindPanicFormatterArgs:
		fmt.Fprintf(&b, "%d", p.Func)
	case KindOffset:
		fmt.Fprintf(&b, "%s,%d", p.Base.key(), p.ByteOffset)
	case KindQualified:
		b.WriteString(p.Base.key())
		for _, s := range p.Proj {
			fmt.Fprintf(&b, "|%d,%d,%d,%d,%d,%v,%s", s.Kind, s.FieldIndex, s.Variant, s.From, s.To, s.FromEnd, typeKey(s.CastType))
		}
	}
	return b.String()
}

func typeKey(t mirtypes.Type) string {
	if t == nil {
		return ""
	}
	return fmt.Sprintf("%T:%s", t, t.String())
}
