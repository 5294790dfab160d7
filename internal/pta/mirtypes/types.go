// Package mirtypes is a minimal stand-in for the MIR front end's type arena
// (§6.1's type/MIR oracle). The real front end -- a monomorphizing compiler
// with a full type context -- is out of scope for the core; this package
// supplies just enough of a type representation for the constraint engine
// and its tests to run without one.
package mirtypes

import "strings"

// Type is a closed set of tagged variants, matching the MIR type universe
// the core must reason about. There is no extensibility requirement.
type Type interface {
	isType()
	String() string
}

// Primitive covers scalars the analysis never decomposes: integers, bools,
// floats, str, char and the like.
type Primitive struct{ Name string }

func (*Primitive) isType()          {}
func (p *Primitive) String() string { return p.Name }

// Pointer is a raw pointer or reference: *T, &T, &mut T.
type Pointer struct {
	Elem    Type
	Mutable bool
}

func (*Pointer) isType() {}
func (p *Pointer) String() string {
	if p.Mutable {
		return "*mut " + p.Elem.String()
	}
	return "*const " + p.Elem.String()
}

// Box is a heap-owning pointer, Box<T>.
type Box struct{ Elem Type }

func (*Box) isType()          {}
func (b *Box) String() string { return "Box<" + b.Elem.String() + ">" }

// Field is a named, typed struct/union/variant member.
type Field struct {
	Name string
	Typ  Type
}

// Struct is a product type with sequential fields.
type Struct struct {
	Name   string
	Fields []Field
}

func (*Struct) isType()          {}
func (s *Struct) String() string { return s.Name }

// Tuple is an anonymous product type.
type Tuple struct{ Elems []Type }

func (*Tuple) isType() {}
func (t *Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Array is a fixed-length homogeneous sequence, [T; N].
type Array struct {
	Elem Type
	Len  int
}

func (*Array) isType()          {}
func (a *Array) String() string { return "[array]" }

// Slice is an unsized homogeneous sequence, [T].
type Slice struct{ Elem Type }

func (*Slice) isType()          {}
func (s *Slice) String() string { return "[" + s.Elem.String() + "]" }

// Variant is one arm of an Enum.
type Variant struct {
	Name   string
	Fields []Field
}

// Enum is a sum type. Per §4.2 it is never decomposed by the core's field
// utilities: it is addressed atomically except through an explicit
// Downcast selector.
type Enum struct {
	Name     string
	Variants []Variant
}

func (*Enum) isType()          {}
func (e *Enum) String() string { return e.Name }

// Union is a single-storage aggregate; every field shares byte offset 0.
type Union struct {
	Name   string
	Fields []Field
}

func (*Union) isType()          {}
func (u *Union) String() string { return u.Name }

// FuncSig is a callable signature (used by FuncDef, FnPtr, Closure, Coroutine).
type FuncSig struct {
	Recv    Type // nil if free function
	Params  []Type
	Results []Type
}

func (s *FuncSig) String() string { return "fn(...)" }

// Closure is the anonymous captured-environment type of a `|..| ..` literal.
// Per §4.2, closures lack normal layout guarantees: fields are laid out in
// source (capture) order, each sized by the layout oracle independently.
//
// Def names the front-end definition of the closure's call-operator body, so
// a `dyn Fn`-style call on a resolved closure instance can be wired directly
// without a second round-trip through Oracle.Resolve.
type Closure struct {
	Name     string
	Captures []Field
	Sig      *FuncSig
	Def      uint32
}

func (*Closure) isType()          {}
func (c *Closure) String() string { return c.Name }

// Coroutine is the state-machine type behind an `async`/generator body. Def
// plays the same role as Closure.Def, naming the poll/resume body directly.
type Coroutine struct {
	Name  string
	Sig   *FuncSig
	State []Field
	Def   uint32
}

func (*Coroutine) isType()          {}
func (c *Coroutine) String() string { return c.Name }

// FuncDef is the zero-sized "function item" type naming exactly one
// function; it is usable as an address-of target (Path.Function).
type FuncDef struct {
	Name string
	Sig  *FuncSig
}

func (*FuncDef) isType()          {}
func (f *FuncDef) String() string { return f.Name }

// FnPtr is a function-pointer type, fn(...) -> ...
type FnPtr struct{ Sig *FuncSig }

func (*FnPtr) isType()          {}
func (f *FnPtr) String() string { return "fnptr" }

// TraitObject is the referent type of a `dyn Trait` pointer/reference.
type TraitObject struct {
	Trait   string
	FnTrait FnTraitKind // NotFn if not one of Fn/FnMut/FnOnce
}

func (*TraitObject) isType()          {}
func (t *TraitObject) String() string { return "dyn " + t.Trait }

// FnTraitKind distinguishes the three call-by-trait-object shapes the
// builder must inline (§4.3 "Fn::call / FnMut::call_mut / FnOnce::call_once").
type FnTraitKind uint8

const (
	NotFn FnTraitKind = iota
	FnTraitFn
	FnTraitFnMut
	FnTraitFnOnce
)

// TypeParam is a generic type parameter reference, T_i.
type TypeParam struct {
	Index int
	Name  string
}

func (*TypeParam) isType()          {}
func (t *TypeParam) String() string { return t.Name }

// ConstParam is a generic const parameter reference.
type ConstParam struct {
	Index int
	Name  string
}

func (*ConstParam) isType()          {}
func (c *ConstParam) String() string { return c.Name }

// Projection is an unresolved associated-type projection, <Self as Trait>::Item.
type Projection struct {
	Trait string
	Item  string
	Self  Type
}

func (*Projection) isType()          {}
func (p *Projection) String() string { return "<" + p.Self.String() + " as " + p.Trait + ">::" + p.Item }

// Opaque is a return-position-impl-Trait alias; Underlying is substituted
// in by the specializer (§4.1) once resolvable.
type Opaque struct {
	DefName    string
	Underlying Type
}

func (*Opaque) isType()          {}
func (o *Opaque) String() string { return "impl " + o.DefName }

// Foreign is a type the core declines to model further (inline-asm/FFI
// boundary types, per spec's Non-goals).
type Foreign struct{ Name string }

func (*Foreign) isType()          {}
func (f *Foreign) String() string { return f.Name }

// IsPointerLike reports whether a value of this type may hold an address.
func IsPointerLike(t Type) bool {
	switch t.(type) {
	case *Pointer, *Box, *FnPtr:
		return true
	default:
		return false
	}
}

// IsTraitObject reports whether t is (after one deref) a dyn Trait.
func IsTraitObject(t Type) bool {
	_, ok := t.(*TraitObject)
	return ok
}

// IsFnTraitObject reports whether t is dyn Fn/FnMut/FnOnce, and which.
func IsFnTraitObject(t Type) (FnTraitKind, bool) {
	if to, ok := t.(*TraitObject); ok && to.FnTrait != NotFn {
		return to.FnTrait, true
	}
	return NotFn, false
}

// IsOpaqueTraitLike reports whether t is a type whose concreteness is not
// yet known: a trait object, an unresolved projection, or an opaque alias.
// Per §3.1's path-type invariant, a path's cached type may be replaced by a
// concrete type exactly once if it starts out as one of these.
func IsOpaqueTraitLike(t Type) bool {
	switch u := t.(type) {
	case *TraitObject, *Projection:
		return true
	case *Opaque:
		return u.Underlying == nil
	default:
		return false
	}
}
