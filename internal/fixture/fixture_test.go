package fixture

import (
	"testing"

	"github.com/gopta/pta/internal/pta/mir"
	"github.com/gopta/pta/internal/pta/mirtypes"
)

func TestDefAllocatesDistinctNonZeroIDs(t *testing.T) {
	f := New()
	a := f.Def()
	b := f.Def()
	if a == 0 || b == 0 {
		t.Fatalf("Def() returned a zero id: a=%d b=%d", a, b)
	}
	if a == b {
		t.Fatalf("two Def() calls returned the same id")
	}
}

func TestAddRegistersNameAndMIRAvailability(t *testing.T) {
	f := New()
	def := f.Def()
	if f.IsMIRAvailable(def) {
		t.Fatalf("IsMIRAvailable = true before Add")
	}
	body := Fn(&mirtypes.FuncSig{}, 0, 1, nil, mir.Return{})
	f.Add(def, "main", body)

	if !f.IsMIRAvailable(def) {
		t.Fatalf("IsMIRAvailable = false after Add")
	}
	if got, ok := f.EntryByName("main"); !ok || got != def {
		t.Fatalf("EntryByName(main) = (%d, %v), want (%d, true)", got, ok, def)
	}
	if f.ItemName(def) != "main" {
		t.Fatalf("ItemName = %q, want %q", f.ItemName(def), "main")
	}
	if !f.FunctionBody(mir.FuncRef{Def: def}).HasMIR {
		t.Fatalf("FunctionBody(def).HasMIR = false after Add")
	}
}

func TestAddAnonymousFunctionSkipsNameLookup(t *testing.T) {
	f := New()
	def := f.Def()
	f.Add(def, "", Fn(&mirtypes.FuncSig{}, 0, 1, nil, mir.Return{}))
	if _, ok := f.EntryByName(""); ok {
		t.Fatalf("an anonymous function registered under the empty name")
	}
}

func TestResolveDelegatesToInstalledResolver(t *testing.T) {
	f := New()
	if _, _, ok := f.Resolve(1, nil); ok {
		t.Fatalf("Resolve with no resolver installed reported ok=true")
	}
	f.SetResolver(func(def mir.DefID, args []mirtypes.Type) (mir.DefID, []mirtypes.Type, bool) {
		return def + 1, args, true
	})
	got, _, ok := f.Resolve(5, nil)
	if !ok || got != 6 {
		t.Fatalf("Resolve(5) = (%d, %v), want (6, true)", got, ok)
	}
}

func TestFnBuildsSingleBlockFunction(t *testing.T) {
	sig := &mirtypes.FuncSig{}
	fn := Fn(sig, 2, 4, []mir.Stmt{mir.Assign{}}, mir.Return{})
	if len(fn.Blocks) != 1 {
		t.Fatalf("Fn produced %d blocks, want 1", len(fn.Blocks))
	}
	if fn.ArgCount != 2 || fn.NumLocals != 4 {
		t.Fatalf("Fn ArgCount/NumLocals = %d/%d, want 2/4", fn.ArgCount, fn.NumLocals)
	}
	if len(fn.Blocks[0].Stmts) != 1 {
		t.Fatalf("Fn's block has %d statements, want 1", len(fn.Blocks[0].Stmts))
	}
}
