package path

// NodeID is the dense PAG-node interning of a Path (§3.2/§3.4). Node 0 is a
// reserved sentinel meaning "non-pointerlike" / "no node", mirroring the
// zero-node convention the whole-program graph relies on to skip
// uninteresting operands cheaply.
type NodeID uint32

// Interner hash-conses Paths by structural content into dense NodeIDs.
// Per §5's single-threaded model there is exactly one writer; a mutex is
// kept anyway since callback-shaped front ends occasionally share an
// AnalysisContext across goroutines during setup.
type Interner struct {
	keys  map[string]NodeID
	paths []*Path
}

// NewInterner returns an Interner with node 0 reserved as the sentinel.
func NewInterner() *Interner {
	it := &Interner{keys: make(map[string]NodeID)}
	it.paths = append(it.paths, nil)
	return it
}

// Intern returns the dense id for p, creating one if this is the first
// occurrence of a structurally-equal path. Idempotent by construction.
func (it *Interner) Intern(p *Path) NodeID {
	if p == nil {
		return 0
	}
	k := p.key()
	if id, ok := it.keys[k]; ok {
		return id
	}
	id := NodeID(len(it.paths))
	it.paths = append(it.paths, p)
	it.keys[k] = id
	return id
}

// Lookup returns the id of p if already interned, and whether it was found.
func (it *Interner) Lookup(p *Path) (NodeID, bool) {
	id, ok := it.keys[p.key()]
	return id, ok
}

// Path returns the interned path for id. Panics on the reserved sentinel or
// an out-of-range id, both of which indicate a builder bug.
func (it *Interner) Path(id NodeID) *Path {
	if id == 0 || int(id) >= len(it.paths) {
		panic("UnreachableInvariantBreak: dereferenced sentinel or unknown NodeID")
	}
	return it.paths[id]
}

// Len returns the number of live (non-sentinel) nodes, i.e. one past the
// highest assigned NodeID.
func (it *Interner) Len() int { return len(it.paths) }

// Qualified interns base.proj... in one step.
func (it *Interner) Qualified(base NodeID, proj ...Selector) NodeID {
	return it.Intern(Qualify(it.Path(base), proj...))
}
