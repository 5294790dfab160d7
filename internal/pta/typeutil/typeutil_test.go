package typeutil

import (
	"testing"

	"github.com/gopta/pta/internal/pta/mirtypes"
	"github.com/gopta/pta/internal/pta/path"
)

func i32() *mirtypes.Primitive { return &mirtypes.Primitive{Name: "i32"} }

func TestDeref(t *testing.T) {
	ptr := &mirtypes.Pointer{Elem: i32()}
	if got, ok := Deref(ptr); !ok || got != ptr.Elem {
		t.Fatalf("Deref(pointer) = (%v, %v), want (%v, true)", got, ok, ptr.Elem)
	}
	boxed := &mirtypes.Box{Elem: i32()}
	if _, ok := Deref(boxed); !ok {
		t.Fatalf("Deref(box) ok = false, want true")
	}
	if _, ok := Deref(i32()); ok {
		t.Fatalf("Deref(scalar) ok = true, want false")
	}
}

func TestMustDerefPanicsOnNonPointer(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on MustDeref of a non-pointer type")
		}
	}()
	MustDeref(i32())
}

func structOf(fields ...mirtypes.Type) *mirtypes.Struct {
	fs := make([]mirtypes.Field, len(fields))
	for i, f := range fields {
		fs[i] = mirtypes.Field{Typ: f}
	}
	return &mirtypes.Struct{Name: "S", Fields: fs}
}

func TestPointerProjectionsNested(t *testing.T) {
	inner := structOf(i32(), &mirtypes.Pointer{Elem: i32()})
	outer := structOf(i32(), inner)

	u := New(NewDefaultLayout())
	got := u.PointerProjections(outer)
	if len(got) != 1 {
		t.Fatalf("PointerProjections = %d entries, want 1", len(got))
	}
	want := []path.Selector{path.FieldSel(1), path.FieldSel(1)}
	if len(got[0].Proj) != len(want) || got[0].Proj[0] != want[0] || got[0].Proj[1] != want[1] {
		t.Fatalf("PointerProjections[0].Proj = %v, want %v", got[0].Proj, want)
	}
}

func TestPointerProjectionsEnumAtomic(t *testing.T) {
	enum := &mirtypes.Enum{
		Name: "E",
		Variants: []mirtypes.Variant{
			{Name: "A", Fields: []mirtypes.Field{{Typ: &mirtypes.Pointer{Elem: i32()}}}},
		},
	}
	outer := structOf(enum)
	u := New(NewDefaultLayout())
	if got := u.PointerProjections(outer); len(got) != 0 {
		t.Fatalf("PointerProjections through an enum field = %d entries, want 0 (atomic)", len(got))
	}
}

func TestPointerProjectionsCached(t *testing.T) {
	s := structOf(&mirtypes.Pointer{Elem: i32()})
	u := New(NewDefaultLayout())
	first := u.PointerProjections(s)
	second := u.PointerProjections(s)
	if len(first) != len(second) {
		t.Fatalf("cached PointerProjections call returned a different result")
	}
}

func TestFlattenFieldsOffsets(t *testing.T) {
	s := structOf(i32(), i32(), &mirtypes.Pointer{Elem: i32()})
	u := New(NewDefaultLayout())
	leaves := u.FlattenFields(s)
	if len(leaves) != 3 {
		t.Fatalf("FlattenFields = %d leaves, want 3", len(leaves))
	}
	wantOffsets := []uint64{0, 8, 16}
	for i, leaf := range leaves {
		if leaf.Offset != wantOffsets[i] {
			t.Fatalf("leaf %d offset = %d, want %d", i, leaf.Offset, wantOffsets[i])
		}
	}
}

func TestFieldByteOffset(t *testing.T) {
	s := structOf(i32(), i32(), i32())
	u := New(NewDefaultLayout())
	off, ok := u.FieldByteOffset(s, []path.Selector{path.FieldSel(2)})
	if !ok || off != 16 {
		t.Fatalf("FieldByteOffset(.f2) = (%d, %v), want (16, true)", off, ok)
	}
}

func TestEquivalentPtrTypesDynWildcard(t *testing.T) {
	dynPtr := &mirtypes.Pointer{Elem: &mirtypes.TraitObject{Trait: "Shape"}}
	concretePtr := &mirtypes.Pointer{Elem: i32()}
	if !EquivalentPtrTypes(dynPtr, concretePtr) {
		t.Fatalf("EquivalentPtrTypes(dyn, concrete) = false, want true (wildcard)")
	}
}

func TestEquivalentPtrTypesMismatch(t *testing.T) {
	a := &mirtypes.Pointer{Elem: i32()}
	b := &mirtypes.Pointer{Elem: &mirtypes.Primitive{Name: "i64"}}
	if EquivalentPtrTypes(a, b) {
		t.Fatalf("EquivalentPtrTypes(i32*, i64*) = true, want false")
	}
}

func TestIsBasicPointer(t *testing.T) {
	cases := []struct {
		name string
		t    mirtypes.Type
		want bool
	}{
		{"raw pointer", &mirtypes.Pointer{Elem: i32()}, true},
		{"box", &mirtypes.Box{Elem: i32()}, true},
		{"trait object pointer", &mirtypes.Pointer{Elem: &mirtypes.TraitObject{Trait: "Shape"}}, false},
		{"fn pointer referent", &mirtypes.Pointer{Elem: &mirtypes.FnPtr{}}, false},
		{"scalar", i32(), false},
	}
	for _, c := range cases {
		if got := IsBasicPointer(c.t); got != c.want {
			t.Errorf("IsBasicPointer(%s) = %v, want %v", c.name, got, c.want)
		}
	}
}
