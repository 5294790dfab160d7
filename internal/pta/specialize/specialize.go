// Package specialize implements the generic-argument specializer of §4.1
// (C2): substituting a function's bound type/const arguments into a type
// referenced inside its body, and reducing resolvable associated-type
// projections.
package specialize

import "github.com/gopta/pta/internal/pta/mirtypes"

// Arg is one bound generic argument: either a concrete type or a const
// value (represented opaquely -- the core never interprets const values,
// only substitutes them).
type Arg struct {
	Type  mirtypes.Type
	Const interface{}
	IsConst bool
}

// AssocResolver resolves an associated-type projection to a concrete type
// when all the information needed to do so (a concrete Self type) is
// available. It stands in for the front end's associated-item resolution
// (§6.1); returns ok=false if unresolvable (left in place, non-fatal).
type AssocResolver interface {
	ResolveAssoc(trait, item string, self mirtypes.Type) (mirtypes.Type, bool)
}

// Specializer substitutes generic arguments into types, guarding against
// re-entrant specialization of closure types sharing a def across nested
// captures (§4.1 "guard closure self-reference").
type Specializer struct {
	Assoc AssocResolver

	// inFlight tracks closure/coroutine type names currently being
	// specialized on this call stack, mirroring the Rc<RefCell<..>>
	// re-entrancy guard of the original implementation with a scoped set.
	inFlight map[string]bool
}

func New(assoc AssocResolver) *Specializer {
	return &Specializer{Assoc: assoc, inFlight: make(map[string]bool)}
}

// Specialize substitutes every type/const parameter reference in t using
// args, and reduces resolvable projection/opaque types. Failures (an
// unresolvable projection) are non-fatal: the projection is left in place
// and the caller keeps it as the best available type.
func (s *Specializer) Specialize(args []Arg, t mirtypes.Type) mirtypes.Type {
	switch u := t.(type) {
	case *mirtypes.TypeParam:
		if u.Index >= 0 && u.Index < len(args) && !args[u.Index].IsConst && args[u.Index].Type != nil {
			return args[u.Index].Type
		}
		return t

	case *mirtypes.Pointer:
		return &mirtypes.Pointer{Elem: s.Specialize(args, u.Elem), Mutable: u.Mutable}

	case *mirtypes.Box:
		return &mirtypes.Box{Elem: s.Specialize(args, u.Elem)}

	case *mirtypes.Struct:
		fields := make([]mirtypes.Field, len(u.Fields))
		for i, f := range u.Fields {
			fields[i] = mirtypes.Field{Name: f.Name, Typ: s.Specialize(args, f.Typ)}
		}
		return &mirtypes.Struct{Name: u.Name, Fields: fields}

	case *mirtypes.Tuple:
		elems := make([]mirtypes.Type, len(u.Elems))
		for i, e := range u.Elems {
			elems[i] = s.Specialize(args, e)
		}
		return &mirtypes.Tuple{Elems: elems}

	case *mirtypes.Array:
		return &mirtypes.Array{Elem: s.Specialize(args, u.Elem), Len: u.Len}

	case *mirtypes.Slice:
		return &mirtypes.Slice{Elem: s.Specialize(args, u.Elem)}

	case *mirtypes.Enum:
		variants := make([]mirtypes.Variant, len(u.Variants))
		for i, v := range u.Variants {
			fields := make([]mirtypes.Field, len(v.Fields))
			for j, f := range v.Fields {
				fields[j] = mirtypes.Field{Name: f.Name, Typ: s.Specialize(args, f.Typ)}
			}
			variants[i] = mirtypes.Variant{Name: v.Name, Fields: fields}
		}
		return &mirtypes.Enum{Name: u.Name, Variants: variants}

	case *mirtypes.Union:
		fields := make([]mirtypes.Field, len(u.Fields))
		for i, f := range u.Fields {
			fields[i] = mirtypes.Field{Name: f.Name, Typ: s.Specialize(args, f.Typ)}
		}
		return &mirtypes.Union{Name: u.Name, Fields: fields}

	case *mirtypes.FnPtr:
		return &mirtypes.FnPtr{Sig: s.specializeSig(args, u.Sig)}

	case *mirtypes.FuncDef:
		return &mirtypes.FuncDef{Name: u.Name, Sig: s.specializeSig(args, u.Sig)}

	case *mirtypes.Closure:
		// Guard against re-entrant specialization of a closure capturing
		// itself (recursive closures / self-referential generic bounds).
		if s.inFlight[u.Name] {
			return t
		}
		s.inFlight[u.Name] = true
		defer delete(s.inFlight, u.Name)

		captures := make([]mirtypes.Field, len(u.Captures))
		for i, f := range u.Captures {
			captures[i] = mirtypes.Field{Name: f.Name, Typ: s.Specialize(args, f.Typ)}
		}
		return &mirtypes.Closure{Name: u.Name, Captures: captures, Sig: s.specializeSig(args, u.Sig)}

	case *mirtypes.Coroutine:
		if s.inFlight[u.Name] {
			return t
		}
		s.inFlight[u.Name] = true
		defer delete(s.inFlight, u.Name)
		state := make([]mirtypes.Field, len(u.State))
		for i, f := range u.State {
			state[i] = mirtypes.Field{Name: f.Name, Typ: s.Specialize(args, f.Typ)}
		}
		return &mirtypes.Coroutine{Name: u.Name, Sig: s.specializeSig(args, u.Sig), State: state}

	case *mirtypes.Opaque:
		if u.Underlying != nil {
			return s.Specialize(args, u.Underlying)
		}
		return t

	case *mirtypes.Projection:
		self := s.Specialize(args, u.Self)
		if concrete(self) {
			if u.Trait == "FnOnce" && u.Item == "Output" {
				if sig := callableSig(self); sig != nil {
					return resultsType(sig)
				}
			}
			if u.Trait == "Pointee" && u.Item == "Metadata" {
				return &mirtypes.Tuple{} // unit: thin-pointer metadata, unmodelled further
			}
			if u.Trait == "DiscriminantKind" && u.Item == "Discriminant" {
				return &mirtypes.Primitive{Name: "isize"}
			}
			if s.Assoc != nil {
				if resolved, ok := s.Assoc.ResolveAssoc(u.Trait, u.Item, self); ok {
					return resolved
				}
			}
		}
		// Unresolvable: leave the (possibly partially substituted) projection.
		return &mirtypes.Projection{Trait: u.Trait, Item: u.Item, Self: self}

	default:
		return t // Primitive, TraitObject, ConstParam, Foreign: nothing to substitute
	}
}

func (s *Specializer) specializeSig(args []Arg, sig *mirtypes.FuncSig) *mirtypes.FuncSig {
	if sig == nil {
		return nil
	}
	params := make([]mirtypes.Type, len(sig.Params))
	for i, p := range sig.Params {
		params[i] = s.Specialize(args, p)
	}
	results := make([]mirtypes.Type, len(sig.Results))
	for i, r := range sig.Results {
		results[i] = s.Specialize(args, r)
	}
	var recv mirtypes.Type
	if sig.Recv != nil {
		recv = s.Specialize(args, sig.Recv)
	}
	return &mirtypes.FuncSig{Recv: recv, Params: params, Results: results}
}

// concrete reports whether t contains no further unresolved generic
// machinery (good enough to attempt projection/FnOnce::Output reduction).
func concrete(t mirtypes.Type) bool {
	switch t.(type) {
	case *mirtypes.TypeParam, *mirtypes.Projection:
		return false
	default:
		return true
	}
}

func callableSig(t mirtypes.Type) *mirtypes.FuncSig {
	switch u := t.(type) {
	case *mirtypes.FuncDef:
		return u.Sig
	case *mirtypes.Closure:
		return u.Sig
	case *mirtypes.FnPtr:
		return u.Sig
	default:
		return nil
	}
}

func resultsType(sig *mirtypes.FuncSig) mirtypes.Type {
	if len(sig.Results) == 1 {
		return sig.Results[0]
	}
	return &mirtypes.Tuple{Elems: sig.Results}
}
