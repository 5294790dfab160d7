// Package typeutil implements the type & path utilities of §4.2 (C1):
// dereferencing, field/downcast/element typing, pointer-field enumeration,
// byte offsets, flattening, and the equivalence relations the propagator
// filters on.
package typeutil

import (
	"fmt"

	"github.com/gopta/pta/internal/pta/mirtypes"
	"github.com/gopta/pta/internal/pta/path"
)

// Layout answers the byte-size/offset questions a real compiler's layout
// oracle would. DefaultLayout below is a simple, internally-consistent
// stand-in (every scalar and pointer occupies one word); a real front end
// would instead delegate to its own layout_of query (§6.1).
type Layout interface {
	WordSize(t mirtypes.Type) uint64
}

// DefaultLayout assumes a uniform word size and lays out aggregates
// sequentially, which is all the core needs: it only ever compares offsets
// computed by this same oracle against each other (§4.3.2's lock-step walk).
type DefaultLayout struct{ Word uint64 }

func NewDefaultLayout() *DefaultLayout { return &DefaultLayout{Word: 8} }

func (d *DefaultLayout) WordSize(t mirtypes.Type) uint64 {
	switch u := t.(type) {
	case *mirtypes.Struct:
		var sz uint64
		for _, f := range u.Fields {
			sz += d.WordSize(f.Typ)
		}
		return sz
	case *mirtypes.Tuple:
		var sz uint64
		for _, e := range u.Elems {
			sz += d.WordSize(e)
		}
		return sz
	case *mirtypes.Array:
		return uint64(u.Len) * d.WordSize(u.Elem)
	case *mirtypes.Union:
		return d.maxField(u.Fields)
	case *mirtypes.Enum:
		return d.Word // atomic: discriminant + largest payload, not decomposed
	case *mirtypes.Closure:
		var sz uint64
		for _, f := range u.Captures {
			sz += d.WordSize(f.Typ)
		}
		return sz
	default:
		return d.Word
	}
}

func (d *DefaultLayout) maxField(fs []mirtypes.Field) uint64 {
	var m uint64
	for _, f := range fs {
		if s := d.WordSize(f.Typ); s > m {
			m = s
		}
	}
	return m
}

// Util bundles the per-type caches (pointer-projections, byte-offsets) that
// §5 requires be owned by a single AnalysisContext-like aggregator.
type Util struct {
	Layout Layout

	projCache map[string][]ProjEntry
}

func New(layout Layout) *Util {
	return &Util{Layout: layout, projCache: make(map[string][]ProjEntry)}
}

// Deref strips one pointer/reference/Box layer.
func Deref(t mirtypes.Type) (mirtypes.Type, bool) {
	switch u := t.(type) {
	case *mirtypes.Pointer:
		return u.Elem, true
	case *mirtypes.Box:
		return u.Elem, true
	default:
		return nil, false
	}
}

// MustDeref strips one pointer layer, panicking (an UnreachableInvariantBreak)
// if t is not pointer-like -- used where the MIR guarantees it statically.
func MustDeref(t mirtypes.Type) mirtypes.Type {
	d, ok := Deref(t)
	if !ok {
		panic(fmt.Sprintf("UnreachableInvariantBreak: MustDeref of non-pointer type %s", t))
	}
	return d
}

// FieldType returns the type of field i of a struct/tuple/closure/coroutine.
func FieldType(t mirtypes.Type, i int) (mirtypes.Type, bool) {
	switch u := t.(type) {
	case *mirtypes.Struct:
		if i < 0 || i >= len(u.Fields) {
			return nil, false
		}
		return u.Fields[i].Typ, true
	case *mirtypes.Tuple:
		if i < 0 || i >= len(u.Elems) {
			return nil, false
		}
		return u.Elems[i], true
	case *mirtypes.Closure:
		if i < 0 || i >= len(u.Captures) {
			return nil, false
		}
		return u.Captures[i].Typ, true
	case *mirtypes.Coroutine:
		if i < 0 || i >= len(u.State) {
			return nil, false
		}
		return u.State[i].Typ, true
	default:
		return nil, false
	}
}

// UnionFieldType returns the type of union field i. Per §4.2 every union
// field shares byte offset 0; the type still differs field to field.
func UnionFieldType(t mirtypes.Type, i int) (mirtypes.Type, bool) {
	u, ok := t.(*mirtypes.Union)
	if !ok || i < 0 || i >= len(u.Fields) {
		return nil, false
	}
	return u.Fields[i].Typ, true
}

// ElementType returns the element type of an array or slice.
func ElementType(t mirtypes.Type) (mirtypes.Type, bool) {
	switch u := t.(type) {
	case *mirtypes.Array:
		return u.Elem, true
	case *mirtypes.Slice:
		return u.Elem, true
	default:
		return nil, false
	}
}

// DowncastType returns the type of enum variant v of t, represented as a
// synthetic Struct over that variant's fields so downstream Field
// projections compose naturally after a Downcast selector.
func DowncastType(t mirtypes.Type, v int) (mirtypes.Type, bool) {
	e, ok := t.(*mirtypes.Enum)
	if !ok || v < 0 || v >= len(e.Variants) {
		return nil, false
	}
	variant := e.Variants[v]
	return &mirtypes.Struct{Name: e.Name + "::" + variant.Name, Fields: variant.Fields}, true
}

// ProjEntry is one (projection-path, pointer-type) pair returned by
// PointerProjections.
type ProjEntry struct {
	Proj []path.Selector
	Typ  mirtypes.Type
}

// PointerProjections returns, for an aggregate T, the list of every
// pointer-typed subfield reachable transitively, paired with the selector
// path to reach it. Per §4.2 this is cached per T; enums are treated
// atomically (not decomposed), consistent with FlattenFields below.
func (u *Util) PointerProjections(t mirtypes.Type) []ProjEntry {
	key := typeKey(t)
	if cached, ok := u.projCache[key]; ok {
		return cached
	}
	var out []ProjEntry
	u.collectPointerProjections(t, nil, &out)
	u.projCache[key] = out
	return out
}

func (u *Util) collectPointerProjections(t mirtypes.Type, prefix []path.Selector, out *[]ProjEntry) {
	if mirtypes.IsPointerLike(t) {
		if len(prefix) > 0 {
			*out = append(*out, ProjEntry{Proj: append([]path.Selector{}, prefix...), Typ: t})
		}
		return
	}
	switch agg := t.(type) {
	case *mirtypes.Struct:
		for i, f := range agg.Fields {
			u.collectPointerProjections(f.Typ, append(prefix, path.FieldSel(i)), out)
		}
	case *mirtypes.Tuple:
		for i, e := range agg.Elems {
			u.collectPointerProjections(e, append(prefix, path.FieldSel(i)), out)
		}
	case *mirtypes.Closure:
		for i, f := range agg.Captures {
			u.collectPointerProjections(f.Typ, append(prefix, path.FieldSel(i)), out)
		}
	case *mirtypes.Array:
		u.collectPointerProjections(agg.Elem, append(prefix, path.IndexSel()), out)
	case *mirtypes.Slice:
		u.collectPointerProjections(agg.Elem, append(prefix, path.IndexSel()), out)
	case *mirtypes.Union:
		if f, ok := representativeUnionField(agg); ok {
			u.collectPointerProjections(f.Typ, append(prefix, path.UnionFieldSel(indexOfField(agg.Fields, f))), out)
		}
	// *mirtypes.Enum and everything else: atomic, no further decomposition.
	default:
	}
}

func representativeUnionField(u *mirtypes.Union) (mirtypes.Field, bool) {
	for _, f := range u.Fields {
		if !isZeroSized(f.Typ) {
			return f, true
		}
	}
	if len(u.Fields) > 0 {
		return u.Fields[0], true
	}
	return mirtypes.Field{}, false
}

func indexOfField(fs []mirtypes.Field, target mirtypes.Field) int {
	for i, f := range fs {
		if f.Name == target.Name {
			return i
		}
	}
	return 0
}

func isZeroSized(t mirtypes.Type) bool {
	switch u := t.(type) {
	case *mirtypes.Struct:
		return len(u.Fields) == 0
	case *mirtypes.Tuple:
		return len(u.Elems) == 0
	default:
		return false
	}
}

// FieldByteOffset returns the byte offset of the subfield at projection proj
// within a value of type t, using the layout oracle. For unions every field
// is offset 0; enums are not decomposed (a Downcast selector is a no-op on
// offset, since the payload starts after the atomic discriminant slot that
// DefaultLayout folds into one word).
func (u *Util) FieldByteOffset(t mirtypes.Type, proj []path.Selector) (uint64, bool) {
	var off uint64
	cur := t
	for _, s := range proj {
		switch s.Kind {
		case path.SelField:
			ft, ok := FieldType(cur, s.FieldIndex)
			if !ok {
				return 0, false
			}
			if st, ok := cur.(*mirtypes.Struct); ok {
				for i := 0; i < s.FieldIndex; i++ {
					off += u.Layout.WordSize(st.Fields[i].Typ)
				}
			} else if tt, ok := cur.(*mirtypes.Tuple); ok {
				for i := 0; i < s.FieldIndex; i++ {
					off += u.Layout.WordSize(tt.Elems[i])
				}
			} else if cl, ok := cur.(*mirtypes.Closure); ok {
				for i := 0; i < s.FieldIndex; i++ {
					off += u.Layout.WordSize(cl.Captures[i].Typ)
				}
			}
			cur = ft
		case path.SelUnionField:
			ft, ok := UnionFieldType(cur, s.FieldIndex)
			if !ok {
				return 0, false
			}
			cur = ft // offset contribution is always 0
		case path.SelIndex:
			et, ok := ElementType(cur)
			if !ok {
				return 0, false
			}
			cur = et // index is dynamic; treat the base of the element as offset 0
		case path.SelDowncast:
			dt, ok := DowncastType(cur, s.Variant)
			if !ok {
				return 0, false
			}
			cur = dt
		case path.SelDeref:
			d, ok := Deref(cur)
			if !ok {
				return 0, false
			}
			cur = d
			off = 0
		case path.SelCast:
			cur = s.CastType
		case path.SelDiscriminant:
			return off, true
		case path.SelSubslice:
			// same base address class as the slice itself
		}
	}
	return off, true
}

// Leaf is one primitive-or-pointer leaf produced by FlattenFields.
type Leaf struct {
	Offset uint64
	Proj   []path.Selector
	Typ    mirtypes.Type
}

// FlattenFields returns (offset, subPath-projection, subType) triples for
// every primitive-or-pointer leaf reachable from a value of type t,
// addressed relative to some base path the caller supplies separately
// (only the projection and computed offset are returned here; callers
// combine them with path.Qualify). Enums are kept atomic; unions are
// represented by a single non-zero-sized representative field -- both per
// §4.2, and kept consistent with PointerProjections above.
func (u *Util) FlattenFields(t mirtypes.Type) []Leaf {
	var out []Leaf
	u.flatten(t, nil, 0, &out)
	return out
}

func (u *Util) flatten(t mirtypes.Type, prefix []path.Selector, base uint64, out *[]Leaf) {
	switch agg := t.(type) {
	case *mirtypes.Struct:
		off := base
		for i, f := range agg.Fields {
			u.flatten(f.Typ, append(prefix, path.FieldSel(i)), off, out)
			off += u.Layout.WordSize(f.Typ)
		}
	case *mirtypes.Tuple:
		off := base
		for i, e := range agg.Elems {
			u.flatten(e, append(prefix, path.FieldSel(i)), off, out)
			off += u.Layout.WordSize(e)
		}
	case *mirtypes.Closure:
		off := base
		for i, f := range agg.Captures {
			u.flatten(f.Typ, append(prefix, path.FieldSel(i)), off, out)
			off += u.Layout.WordSize(f.Typ)
		}
	case *mirtypes.Union:
		if f, ok := representativeUnionField(agg); ok {
			u.flatten(f.Typ, append(prefix, path.UnionFieldSel(indexOfField(agg.Fields, f))), base, out)
		}
	case *mirtypes.Array:
		// A single representative element slot; index is dynamic so every
		// element shares the same symbolic leaf (consistent with IndexSel
		// in PointerProjections).
		u.flatten(agg.Elem, append(prefix, path.IndexSel()), base, out)
	default:
		*out = append(*out, Leaf{Offset: base, Proj: append([]path.Selector{}, prefix...), Typ: t})
	}
}

// EquivalentPtrTypes reports whether two pointer types are equivalent per
// §4.2: recursively, both pointers whose referents are either both
// non-pointer and equal (modulo dyn/non-dyn wildcards), or both pointers
// and themselves equivalent. Function-pointer equivalence defers to
// MatchedFnSig.
func EquivalentPtrTypes(a, b mirtypes.Type) bool {
	ad, aok := Deref(a)
	bd, bok := Deref(b)
	if !aok || !bok {
		return false
	}
	return equivalentReferents(ad, bd)
}

func equivalentReferents(a, b mirtypes.Type) bool {
	if mirtypes.IsTraitObject(a) || mirtypes.IsTraitObject(b) {
		return true // dyn/non-dyn wildcard
	}
	aFn, aIsFn := a.(*mirtypes.FnPtr)
	bFn, bIsFn := b.(*mirtypes.FnPtr)
	if aIsFn || bIsFn {
		if !aIsFn || !bIsFn {
			return false
		}
		return MatchedFnSig(aFn.Sig, bFn.Sig)
	}
	if aPtr, ok := a.(*mirtypes.Pointer); ok {
		if bPtr, ok := b.(*mirtypes.Pointer); ok {
			return equivalentReferents(aPtr.Elem, bPtr.Elem)
		}
		return false
	}
	return typeEqual(a, b)
}

// MatchedFnSig is signature equality up to foreign/opaque types and pointer
// equivalence (§4.2).
func MatchedFnSig(a, b *mirtypes.FuncSig) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Params) != len(b.Params) || len(a.Results) != len(b.Results) {
		return false
	}
	for i := range a.Params {
		if !matchedType(a.Params[i], b.Params[i]) {
			return false
		}
	}
	for i := range a.Results {
		if !matchedType(a.Results[i], b.Results[i]) {
			return false
		}
	}
	return true
}

func matchedType(a, b mirtypes.Type) bool {
	if isForeignOrOpaque(a) || isForeignOrOpaque(b) {
		return true
	}
	if mirtypes.IsPointerLike(a) && mirtypes.IsPointerLike(b) {
		return EquivalentPtrTypes(a, b)
	}
	return typeEqual(a, b)
}

func isForeignOrOpaque(t mirtypes.Type) bool {
	switch t.(type) {
	case *mirtypes.Foreign, *mirtypes.Opaque:
		return true
	default:
		return false
	}
}

// typeEqual is structural equality ignoring region/lifetime information
// (which this model never represents in the first place).
func typeEqual(a, b mirtypes.Type) bool { return typeKey(a) == typeKey(b) }

func typeKey(t mirtypes.Type) string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T:%s", t, t.String())
}

// IsBasicPointer reports whether t is a "basic" (non-trait-object,
// non-fn-pointer) pointer, the gate for the §4.5 cast-constraint
// optimization.
func IsBasicPointer(t mirtypes.Type) bool {
	p, ok := t.(*mirtypes.Pointer)
	if !ok {
		if _, ok := t.(*mirtypes.Box); ok {
			return true
		}
		return false
	}
	if mirtypes.IsTraitObject(p.Elem) {
		return false
	}
	if _, ok := p.Elem.(*mirtypes.FnPtr); ok {
		return false
	}
	return true
}
