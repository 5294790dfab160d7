// Package mir is the neutral MIR model and front-end oracle interface of
// §6.1: the closed set of statement/rvalue/terminator kinds the builder
// (C4) lowers, and the Oracle surface a real compiler's type context and
// MIR tables would implement. It lives under internal/ so the builder and
// solver can depend on it without the public pta package depending back on
// them; pta re-exports every name here as a type alias for its public API.
package mir

import "github.com/gopta/pta/internal/pta/mirtypes"

// DefID is an opaque front-end definition handle (function, static, const).
type DefID = uint32

// FuncRef is a FunctionRef (§3.2): a definition plus its bound generic
// arguments, plus an optional promoted-constant ordinal.
type FuncRef struct {
	Def             DefID
	Args            []mirtypes.Type
	PromotedOrdinal *int
}

// Function is one MIR function body: parameters, basic blocks, and the
// metadata the builder (C4) needs to classify it (promoted/static body,
// recognized special name).
type Function struct {
	Def       DefID
	Name      string
	Sig       *mirtypes.FuncSig
	Blocks    []*BasicBlock
	NumLocals int // including the return slot at local 0 and params
	ArgCount  int

	// Special marks this as a recognized compiler intrinsic/stdlib
	// function whose effect the builder models via a summary (§4.3.1)
	// instead of lowering a body. Empty string means "ordinary function".
	Special string

	// IsPromoted/PromotedOrdinal/ParentDef mark a promoted-constant body;
	// IsStatic marks a static/const initializer body (§4.3's "Extra edges
	// for promoteds and statics").
	IsPromoted      bool
	PromotedOrdinal int
	IsStatic        bool
	ParentDef       DefID

	HasMIR bool // false models MirUnavailable (foreign/abstract body)
}

// BasicBlock is one MIR basic block: straight-line statements then a
// terminator. The analysis is flow-insensitive, so block/statement order
// affects nothing semantically (§4.3's "Visitation strategy").
type BasicBlock struct {
	Stmts      []Stmt
	Terminator Terminator
}

// Stmt is the closed set of MIR statement kinds the builder lowers (§4.3).
type Stmt interface{ isStmt() }

type Assign struct {
	Place  Place
	Rvalue Rvalue
}
type CopyNonOverlapping struct {
	Src, Dst Operand
	Typ      mirtypes.Type
}
type SetDiscriminant struct{ Place Place }
type Deinit struct{ Place Place }
type StorageLive struct{ Local int }
type StorageDead struct{ Local int }
type Retag struct{ Place Place }
type FakeRead struct{ Place Place }
type PlaceMention struct{ Place Place }
type AscribeUserType struct{ Place Place }
type Coverage struct{}
type ConstEvalCounter struct{}
type Nop struct{}

func (Assign) isStmt()             {}
func (CopyNonOverlapping) isStmt() {}
func (SetDiscriminant) isStmt()    {}
func (Deinit) isStmt()             {}
func (StorageLive) isStmt()        {}
func (StorageDead) isStmt()        {}
func (Retag) isStmt()              {}
func (FakeRead) isStmt()           {}
func (PlaceMention) isStmt()       {}
func (AscribeUserType) isStmt()    {}
func (Coverage) isStmt()           {}
func (ConstEvalCounter) isStmt()   {}
func (Nop) isStmt()                {}

// Terminator is the closed set of MIR terminator kinds (§4.3).
type Terminator interface{ isTerminator() }

// Call is the sole terminator kind that produces pointer flow or call-graph
// edges. Destination is nil when the call result is discarded.
//
// VirtualMethod is non-nil for a trait-object method call (§4.3's dynamic
// dispatch): Func then holds the receiver operand instead of the callee,
// and the concrete callee is found by resolving this method def against
// whatever concrete type the receiver's points-to set eventually contains
// (§6.1's instance resolution, deferred to the solver since that set is not
// yet known at build time).
type Call struct {
	Func          Operand
	VirtualMethod *DefID
	Args          []Operand
	Destination   *Place
}
type Return struct{}
type Goto struct{}
type SwitchInt struct{}
type Unreachable struct{}
type InlineAsm struct{}
type Drop struct{ Place Place }

func (Call) isTerminator()        {}
func (Return) isTerminator()      {}
func (Goto) isTerminator()        {}
func (SwitchInt) isTerminator()   {}
func (Unreachable) isTerminator() {}
func (InlineAsm) isTerminator()   {}
func (Drop) isTerminator()        {}

// PlaceElem mirrors path.Selector but is declared separately so this
// package has no dependency on the PAG's interning package; builder.go
// translates between the two.
type PlaceElem struct {
	Kind       PlaceElemKind
	FieldIndex int
	Variant    int
	CastType   mirtypes.Type
}

type PlaceElemKind uint8

const (
	ElemDeref PlaceElemKind = iota
	ElemField
	ElemUnionField
	ElemIndex
	ElemSubslice
	ElemDowncast
	ElemDiscriminant
)

// Place is an MIR place: a local slot plus a (possibly empty) projection.
// Local 0 is the return slot; locals [1..=ArgCount] are parameters (the
// same convention §3.1 borrows directly from the front end).
//
// Typ is the place's static type, as a real front end's typeck would report
// it for this projection. The builder needs it to decide how to decompose
// an aggregate copy into per-leaf edges (§4.2/§4.4); it is optional only for
// scalar locals the builder never addresses as a copy source/destination.
type Place struct {
	Local int
	Proj  []PlaceElem
	Typ   mirtypes.Type
}

func PlaceOf(local int, t mirtypes.Type, proj ...PlaceElem) Place {
	return Place{Local: local, Proj: proj, Typ: t}
}

// Operand is a use of a place (by copy or move) or a constant.
type Operand struct {
	IsConstant bool
	Place      Place
	Const      ConstVal
}

func Copy(p Place) Operand { return Operand{Place: p} }
func Move(p Place) Operand { return Operand{Place: p} }

// ConstVal is a constant operand. Exactly one of the FuncDef/FnPtr/Scalar
// forms applies.
type ConstVal struct {
	Kind     ConstKind
	FuncDef  DefID
	FuncArgs []mirtypes.Type
	Typ      mirtypes.Type
}

type ConstKind uint8

const (
	ConstScalar   ConstKind = iota // not modelled; sinks to path.Constant()
	ConstFuncItem                  // function-def/coroutine/closure constant
	ConstFnPtr                     // fn-pointer constant naming a function item
)

func ScalarConst(t mirtypes.Type) ConstVal { return ConstVal{Kind: ConstScalar, Typ: t} }
func FuncItemConst(def DefID, args []mirtypes.Type, t mirtypes.Type) ConstVal {
	return ConstVal{Kind: ConstFuncItem, FuncDef: def, FuncArgs: args, Typ: t}
}
func FnPtrConst(def DefID, args []mirtypes.Type, t mirtypes.Type) ConstVal {
	return ConstVal{Kind: ConstFnPtr, FuncDef: def, FuncArgs: args, Typ: t}
}

// Rvalue is the closed set of MIR rvalue kinds (§4.3).
type Rvalue interface{ isRvalue() }

type Use struct{ Operand Operand }
type Ref struct {
	Place   Place
	Mutable bool
}
type AddressOf struct{ Place Place }
type Repeat struct{ Operand Operand }

type AggregateKind uint8

const (
	AggArray AggregateKind = iota
	AggTuple
	AggStruct
	AggClosure
	AggCoroutine
	AggUnion
)

type Aggregate struct {
	Kind        AggregateKind
	Typ         mirtypes.Type
	Operands    []Operand
	ActiveField int // AggUnion
	Variant     int // enum construction via Struct aggregate of a Downcast type; -1 if n/a
}

type CastKind uint8

const (
	CastPtrToPtr CastKind = iota
	CastFnPtrToPtr
	CastArrayToPointer
	CastUnsize
	CastReifyFnPointer
	CastClosureFnPointer
	CastNoop // primitive/address-of-integer casts
)

type Cast struct {
	Kind    CastKind
	Operand Operand
	Typ     mirtypes.Type
}

type BinaryOp struct {
	Op          string
	Left, Right Operand
	IsOffset    bool // BinaryOp(Offset, a, b)
}
type CheckedBinaryOp struct{}
type NullaryOp struct{}
type UnaryOp struct{}
type Discriminant struct{ Place Place }
type Len struct{ Place Place }
type ThreadLocalRef struct{}

func (Use) isRvalue()             {}
func (Ref) isRvalue()             {}
func (AddressOf) isRvalue()       {}
func (Repeat) isRvalue()          {}
func (Aggregate) isRvalue()       {}
func (Cast) isRvalue()            {}
func (BinaryOp) isRvalue()        {}
func (CheckedBinaryOp) isRvalue() {}
func (NullaryOp) isRvalue()       {}
func (UnaryOp) isRvalue()         {}
func (Discriminant) isRvalue()    {}
func (Len) isRvalue()             {}
func (ThreadLocalRef) isRvalue()  {}

// Oracle is the front-end query surface the core consumes (§6.1). A real
// implementation wraps a compiler's type context and MIR tables; Fixture
// (internal/fixture) is the in-memory stand-in this repo's tests use.
type Oracle interface {
	// ItemName is descriptive only (used for diagnostics and dump sinks,
	// both external to the core).
	ItemName(def DefID) string

	// IsMIRAvailable/FunctionBody/PromotedBody expose a function's body, or
	// false/nil if unavailable (MirUnavailable, §7).
	IsMIRAvailable(def DefID) bool
	FunctionBody(ref FuncRef) *Function
	PromotedBody(ref FuncRef, ordinal int) *Function

	// Resolve devirtualizes a trait method call given a concrete self type,
	// mirroring the compiler's "instance resolution" (§6.1). ok=false is a
	// ResolveFailure (§7): non-fatal, retried as pointees accrue.
	Resolve(def DefID, args []mirtypes.Type) (resolvedDef DefID, resolvedArgs []mirtypes.Type, ok bool)

	// EntryByName resolves the user-selected entry point (§6.2); ok=false
	// is the fatal EntryNotFound (§7).
	EntryByName(name string) (DefID, bool)
}
