// Package fixture is an in-memory mir.Oracle: a hand-built function table
// usable to express the §8 scenarios (S1-S6) as Go-level programs without
// depending on an external MIR-producing front end. Tests construct
// mir.Function values directly with the mir package's own constructors
// (PlaceOf, Copy/Move, ScalarConst, ...) and register them here; Fixture
// supplies only the Oracle surface and the bookkeeping (DefID allocation,
// name->entry lookup, an optional trait-resolver hook) those constructors
// need to be addressable.
package fixture

import (
	"github.com/gopta/pta/internal/pta/mir"
	"github.com/gopta/pta/internal/pta/mirtypes"
)

// Resolver devirtualizes a trait method call given a concrete self type,
// mirroring mir.Oracle.Resolve. Tests set one with SetResolver when a
// scenario exercises DynamicDispatch (S3); scenarios that never call
// through a trait object can leave it nil.
type Resolver func(def mir.DefID, args []mirtypes.Type) (resolvedDef mir.DefID, resolvedArgs []mirtypes.Type, ok bool)

// Fixture is the in-memory Oracle implementation.
type Fixture struct {
	funcs   map[mir.DefID]*mir.Function
	names   map[string]mir.DefID
	resolve Resolver
	nextDef mir.DefID
}

// New returns an empty Fixture. DefID 0 is never allocated (it is the
// builder/path package's reserved sentinel elsewhere in the core), so
// nextDef starts at 0 and Def's pre-increment hands out 1, 2, 3, ...
func New() *Fixture {
	return &Fixture{funcs: make(map[mir.DefID]*mir.Function), names: make(map[string]mir.DefID)}
}

// Def allocates a fresh DefID, for a test to reference (e.g. in a
// FuncItemConst or as a VirtualMethod target) before defining the body that
// will claim it via Add -- calls and closures routinely need a callee's
// DefID before its own Function literal is assembled.
func (f *Fixture) Def() mir.DefID {
	f.nextDef++
	return f.nextDef
}

// Add registers fn under def with the given entry-lookup name (pass "" for
// a function never selected as an entry point directly by name). Returns
// def for chaining at the call site.
func (f *Fixture) Add(def mir.DefID, name string, fn *mir.Function) mir.DefID {
	fn.Def = def
	fn.Name = name
	fn.HasMIR = true
	f.funcs[def] = fn
	if name != "" {
		f.names[name] = def
	}
	return def
}

// SetResolver installs the trait-devirtualization hook Resolve delegates
// to; scenarios not exercising DynamicDispatch can skip this.
func (f *Fixture) SetResolver(r Resolver) { f.resolve = r }

func (f *Fixture) ItemName(def mir.DefID) string {
	if fn, ok := f.funcs[def]; ok {
		return fn.Name
	}
	return ""
}

func (f *Fixture) IsMIRAvailable(def mir.DefID) bool {
	_, ok := f.funcs[def]
	return ok
}

func (f *Fixture) FunctionBody(ref mir.FuncRef) *mir.Function { return f.funcs[ref.Def] }

// PromotedBody returns the same body every ordinal resolves to in this
// fixture's simplified model: tests that need a distinct promoted-constant
// body register it under its own DefID and drive PromotedOrdinal via
// FuncRef.PromotedOrdinal instead, bypassing this method entirely.
func (f *Fixture) PromotedBody(ref mir.FuncRef, ordinal int) *mir.Function { return f.funcs[ref.Def] }

func (f *Fixture) Resolve(def mir.DefID, args []mirtypes.Type) (mir.DefID, []mirtypes.Type, bool) {
	if f.resolve == nil {
		return 0, nil, false
	}
	return f.resolve(def, args)
}

func (f *Fixture) EntryByName(name string) (mir.DefID, bool) {
	d, ok := f.names[name]
	return d, ok
}

// Fn is a small convenience constructor for a single-block function body --
// every §8 scenario is straight-line code, so one block covers them all.
// numLocals includes the return slot (local 0) and the argCount parameters
// that follow it, per mir.Function.NumLocals's documented convention.
func Fn(sig *mirtypes.FuncSig, argCount, numLocals int, stmts []mir.Stmt, term mir.Terminator) *mir.Function {
	return &mir.Function{
		Sig:       sig,
		ArgCount:  argCount,
		NumLocals: numLocals,
		Blocks:    []*mir.BasicBlock{{Stmts: stmts, Terminator: term}},
	}
}
