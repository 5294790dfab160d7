package main

import (
	"github.com/gopta/pta/internal/fixture"
	"github.com/gopta/pta/internal/pta/mir"
	"github.com/gopta/pta/internal/pta/mirtypes"
)

// demoProgram builds the smallest program that exercises an Addr edge, a
// Store through a pointer parameter, and a static call: "main" takes the
// address of a local and passes it to "store", which writes through it.
// It stands in for a real front end's output (§6.1) so --demo has something
// to run the driver against.
func demoProgram() (*fixture.Fixture, string) {
	i32 := &mirtypes.Primitive{Name: "i32"}
	i32Ptr := &mirtypes.Pointer{Elem: i32, Mutable: true}

	f := fixture.New()

	storeDef := f.Def()
	storeSig := &mirtypes.FuncSig{Params: []mirtypes.Type{i32Ptr}}
	storeBody := fixture.Fn(storeSig, 1, 2, []mir.Stmt{
		mir.Assign{
			Place:  mir.PlaceOf(1, i32, mir.PlaceElem{Kind: mir.ElemDeref}),
			Rvalue: mir.Use{Operand: mir.Operand{IsConstant: true, Const: mir.ScalarConst(i32)}},
		},
	}, mir.Return{})
	f.Add(storeDef, "store", storeBody)

	mainDef := f.Def()
	mainSig := &mirtypes.FuncSig{}
	x := mir.PlaceOf(1, i32)
	p := mir.PlaceOf(2, i32Ptr)
	mainBody := fixture.Fn(mainSig, 0, 3, []mir.Stmt{
		mir.Assign{Place: p, Rvalue: mir.Ref{Place: x, Mutable: true}},
	}, mir.Call{
		Func: mir.Operand{IsConstant: true, Const: mir.FuncItemConst(storeDef, []mirtypes.Type{i32Ptr}, nil)},
		Args: []mir.Operand{mir.Copy(p)},
	})
	f.Add(mainDef, "main", mainBody)

	return f, "main"
}
