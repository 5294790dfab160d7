package builder

import (
	"fmt"

	"github.com/gopta/pta/internal/pta/mir"
	"github.com/gopta/pta/internal/pta/mirtypes"
	"github.com/gopta/pta/internal/pta/path"
)

// Registry dense-interns FunctionRefs (§3.2: a DefID plus bound generic
// arguments) into FuncIDs, mirroring path.Interner's hash-consing of Paths.
// It is shared by the builder and the solver so that a callsite's resolved
// callee and the eventual lowering of that callee's body agree on identity.
type Registry struct {
	keys  map[string]path.FuncID
	refs  []mir.FuncRef
	lowered map[path.FuncID]bool
}

func NewRegistry() *Registry {
	r := &Registry{keys: make(map[string]path.FuncID), lowered: make(map[path.FuncID]bool)}
	r.refs = append(r.refs, mir.FuncRef{}) // reserve FuncID 0
	return r
}

func refKey(ref mir.FuncRef) string {
	s := fmt.Sprintf("%d", ref.Def)
	for _, a := range ref.Args {
		s += "|" + typeKey(a)
	}
	if ref.PromotedOrdinal != nil {
		s += fmt.Sprintf("#%d", *ref.PromotedOrdinal)
	}
	return s
}

func typeKey(t mirtypes.Type) string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T:%s", t, t.String())
}

// Intern returns the FuncID for ref, assigning a new one on first sight.
func (r *Registry) Intern(ref mir.FuncRef) path.FuncID {
	k := refKey(ref)
	if id, ok := r.keys[k]; ok {
		return id
	}
	id := path.FuncID(len(r.refs))
	r.refs = append(r.refs, ref)
	r.keys[k] = id
	return id
}

// Ref returns the FunctionRef a FuncID was interned from.
func (r *Registry) Ref(id path.FuncID) mir.FuncRef { return r.refs[id] }

// MarkLowered/IsLowered track which FuncIDs already have PAG edges for their
// body, so the driver's reach_funcs loop (§3.5) does not re-lower a function
// reached from two different callsites.
func (r *Registry) MarkLowered(id path.FuncID) { r.lowered[id] = true }
func (r *Registry) IsLowered(id path.FuncID) bool {
	if r.lowered == nil {
		return false
	}
	return r.lowered[id]
}
