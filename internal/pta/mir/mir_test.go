package mir

import (
	"testing"

	"github.com/gopta/pta/internal/pta/mirtypes"
)

func TestPlaceOfCarriesProjection(t *testing.T) {
	i32 := &mirtypes.Primitive{Name: "i32"}
	deref := PlaceElem{Kind: ElemDeref}
	p := PlaceOf(2, i32, deref)
	if p.Local != 2 || p.Typ != i32 {
		t.Fatalf("PlaceOf local/type = %d/%v, want 2/%v", p.Local, p.Typ, i32)
	}
	if len(p.Proj) != 1 || p.Proj[0].Kind != ElemDeref {
		t.Fatalf("PlaceOf did not carry its variadic projection through")
	}
}

func TestCopyAndMoveWrapTheSamePlaceDifferently(t *testing.T) {
	p := PlaceOf(1, &mirtypes.Primitive{Name: "i32"})
	c := Copy(p)
	m := Move(p)
	if c.IsConstant || m.IsConstant {
		t.Fatalf("Copy/Move operands should never be constants")
	}
	if c.Place != p || m.Place != p {
		t.Fatalf("Copy/Move did not preserve the place")
	}
}

func TestScalarConstHasNoFuncIdentity(t *testing.T) {
	c := ScalarConst(&mirtypes.Primitive{Name: "i32"})
	if c.Kind != ConstScalar {
		t.Fatalf("Kind = %v, want ConstScalar", c.Kind)
	}
	if c.FuncDef != 0 {
		t.Fatalf("ScalarConst carries a non-zero FuncDef")
	}
}

func TestFuncItemConstVsFnPtrConstKinds(t *testing.T) {
	args := []mirtypes.Type{&mirtypes.Primitive{Name: "i32"}}
	fi := FuncItemConst(7, args, nil)
	fp := FnPtrConst(7, args, nil)
	if fi.Kind != ConstFuncItem {
		t.Fatalf("FuncItemConst Kind = %v, want ConstFuncItem", fi.Kind)
	}
	if fp.Kind != ConstFnPtr {
		t.Fatalf("FnPtrConst Kind = %v, want ConstFnPtr", fp.Kind)
	}
	if fi.FuncDef != 7 || fp.FuncDef != 7 {
		t.Fatalf("FuncDef not carried through: fi=%d fp=%d, want 7", fi.FuncDef, fp.FuncDef)
	}
}

func TestStmtAndTerminatorMarkerMethods(t *testing.T) {
	// These exist solely to close the Stmt/Terminator interfaces; a
	// compile-time check that every listed kind actually implements them.
	var stmts []Stmt = []Stmt{
		Assign{}, CopyNonOverlapping{}, SetDiscriminant{}, Deinit{},
		StorageLive{}, StorageDead{}, Retag{}, FakeRead{}, PlaceMention{},
		AscribeUserType{}, Coverage{}, ConstEvalCounter{}, Nop{},
	}
	if len(stmts) != 13 {
		t.Fatalf("expected 13 Stmt kinds wired, got %d", len(stmts))
	}

	var terms []Terminator = []Terminator{
		Call{}, Return{}, Goto{}, SwitchInt{}, Unreachable{}, InlineAsm{}, Drop{},
	}
	if len(terms) != 7 {
		t.Fatalf("expected 7 Terminator kinds wired, got %d", len(terms))
	}
}
