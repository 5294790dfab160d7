// This file re-exports the neutral MIR model and Oracle interface from
// internal/pta/mir under the public pta package name (§6.1). The model
// itself lives in internal/pta/mir so internal/pta/builder and
// internal/pta/solve can depend on it without this package depending back on
// them; every name below is a plain alias, so pta.FuncRef and mir.FuncRef
// are the identical type. The MIR front end itself -- a monomorphizing
// compiler with a queryable typed CFG, a type arena, and an instance
// resolver -- is deliberately out of scope (§1); this is only the surface
// the core needs from it.
package pta

import (
	"github.com/gopta/pta/internal/pta/mir"
	"github.com/gopta/pta/internal/pta/mirtypes"
)

type DefID = mir.DefID

type FuncRef = mir.FuncRef

type Function = mir.Function
type BasicBlock = mir.BasicBlock

type Stmt = mir.Stmt
type Assign = mir.Assign
type CopyNonOverlapping = mir.CopyNonOverlapping
type SetDiscriminant = mir.SetDiscriminant
type Deinit = mir.Deinit
type StorageLive = mir.StorageLive
type StorageDead = mir.StorageDead
type Retag = mir.Retag
type FakeRead = mir.FakeRead
type PlaceMention = mir.PlaceMention
type AscribeUserType = mir.AscribeUserType
type Coverage = mir.Coverage
type ConstEvalCounter = mir.ConstEvalCounter
type Nop = mir.Nop

type Terminator = mir.Terminator
type Call = mir.Call
type Return = mir.Return
type Goto = mir.Goto
type SwitchInt = mir.SwitchInt
type Unreachable = mir.Unreachable
type InlineAsm = mir.InlineAsm
type Drop = mir.Drop

type PlaceElem = mir.PlaceElem
type PlaceElemKind = mir.PlaceElemKind

const (
	ElemDeref        = mir.ElemDeref
	ElemField        = mir.ElemField
	ElemUnionField   = mir.ElemUnionField
	ElemIndex        = mir.ElemIndex
	ElemSubslice     = mir.ElemSubslice
	ElemDowncast     = mir.ElemDowncast
	ElemDiscriminant = mir.ElemDiscriminant
)

type Place = mir.Place

func PlaceOf(local int, t mirtypes.Type, proj ...PlaceElem) Place {
	return mir.PlaceOf(local, t, proj...)
}

type Operand = mir.Operand

func Copy(p Place) Operand { return mir.Copy(p) }
func Move(p Place) Operand { return mir.Move(p) }

type ConstVal = mir.ConstVal
type ConstKind = mir.ConstKind

const (
	ConstScalar   = mir.ConstScalar
	ConstFuncItem = mir.ConstFuncItem
	ConstFnPtr    = mir.ConstFnPtr
)

func ScalarConst(t mirtypes.Type) ConstVal { return mir.ScalarConst(t) }
func FuncItemConst(def DefID, args []mirtypes.Type, t mirtypes.Type) ConstVal {
	return mir.FuncItemConst(def, args, t)
}
func FnPtrConst(def DefID, args []mirtypes.Type, t mirtypes.Type) ConstVal {
	return mir.FnPtrConst(def, args, t)
}

type Rvalue = mir.Rvalue
type Use = mir.Use
type Ref = mir.Ref
type AddressOf = mir.AddressOf
type Repeat = mir.Repeat

type AggregateKind = mir.AggregateKind

const (
	AggArray     = mir.AggArray
	AggTuple     = mir.AggTuple
	AggStruct    = mir.AggStruct
	AggClosure   = mir.AggClosure
	AggCoroutine = mir.AggCoroutine
	AggUnion     = mir.AggUnion
)

type Aggregate = mir.Aggregate

type CastKind = mir.CastKind

const (
	CastPtrToPtr         = mir.CastPtrToPtr
	CastFnPtrToPtr       = mir.CastFnPtrToPtr
	CastArrayToPointer   = mir.CastArrayToPointer
	CastUnsize           = mir.CastUnsize
	CastReifyFnPointer   = mir.CastReifyFnPointer
	CastClosureFnPointer = mir.CastClosureFnPointer
	CastNoop             = mir.CastNoop
)

type Cast = mir.Cast
type BinaryOp = mir.BinaryOp
type CheckedBinaryOp = mir.CheckedBinaryOp
type NullaryOp = mir.NullaryOp
type UnaryOp = mir.UnaryOp
type Discriminant = mir.Discriminant
type Len = mir.Len
type ThreadLocalRef = mir.ThreadLocalRef

// Oracle is the front-end query surface the core consumes (§6.1). A real
// implementation wraps a compiler's type context and MIR tables; Fixture
// (internal/fixture) is the in-memory stand-in this repo's tests use.
type Oracle = mir.Oracle
