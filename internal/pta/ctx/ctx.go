// Package ctx implements the pluggable context-abstraction strategy of §4.6
// (C7): context-insensitive, k-callsite-sensitive, and k-object-sensitive
// policies, each producing a dense ContextID for a callee invocation.
package ctx

import (
	"fmt"
	"strings"

	"github.com/gopta/pta/internal/pta/path"
)

// CallsiteID identifies a callsite for context-extension purposes.
type CallsiteID uint32

// ContextID is the dense intern handle for a Context sequence.
type ContextID uint32

// Elem is one element of a context sequence: a callsite id, a receiver
// object's NodeID, or both (the "hybrid" element strategies may choose).
type Elem struct {
	Site     CallsiteID
	Receiver path.NodeID
	HasSite  bool
	HasRecv  bool
}

func (e Elem) key() string {
	switch {
	case e.HasSite && e.HasRecv:
		return fmt.Sprintf("s%d,r%d", e.Site, e.Receiver)
	case e.HasSite:
		return fmt.Sprintf("s%d", e.Site)
	case e.HasRecv:
		return fmt.Sprintf("r%d", e.Receiver)
	default:
		return "."
	}
}

// Context is an element sequence, oldest first; Strategy truncates it to
// length k on every extension.
type Context []Elem

func (c Context) key() string {
	var b strings.Builder
	for i, e := range c {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(e.key())
	}
	return b.String()
}

// Strategy is the pluggable context-abstraction policy of §4.6.
type Strategy interface {
	// EmptyContextID is the id of the empty sequence (reserved index 0).
	EmptyContextID() ContextID

	// NewStaticCallContext extends the caller's context with a statically
	// resolved callsite (callsite-sensitive), or returns it unchanged
	// (object-sensitive, context-insensitive).
	NewStaticCallContext(caller ContextID, site CallsiteID) ContextID

	// NewInstanceCallContext extends the caller's context for an instance
	// invocation. hasReceiver is false when the receiver's points-to set is
	// not yet known; object-sensitive strategies then elide the call at
	// this site (ok=false) until a receiver becomes known.
	NewInstanceCallContext(caller ContextID, site CallsiteID, receiver path.NodeID, hasReceiver bool) (id ContextID, ok bool)
}

// table is the shared dense-interning table every strategy below reuses.
type table struct {
	keys  map[string]ContextID
	ctxs  []Context
}

func newTable() *table {
	t := &table{keys: make(map[string]ContextID)}
	t.intern(nil) // reserve id 0 for the empty context
	return t
}

func (t *table) intern(c Context) ContextID {
	k := c.key()
	if id, ok := t.keys[k]; ok {
		return id
	}
	id := ContextID(len(t.ctxs))
	t.ctxs = append(t.ctxs, c)
	t.keys[k] = id
	return id
}

func (t *table) get(id ContextID) Context { return t.ctxs[id] }

func truncate(c Context, k int) Context {
	if len(c) <= k {
		return c
	}
	return c[len(c)-k:]
}

// Insensitive is the context-insensitive policy: every request returns the
// empty context.
type Insensitive struct{ t *table }

func NewInsensitive() *Insensitive { return &Insensitive{t: newTable()} }

func (s *Insensitive) EmptyContextID() ContextID { return 0 }

func (s *Insensitive) NewStaticCallContext(caller ContextID, site CallsiteID) ContextID { return 0 }

func (s *Insensitive) NewInstanceCallContext(caller ContextID, site CallsiteID, receiver path.NodeID, hasReceiver bool) (ContextID, bool) {
	return 0, true
}

// KCallsite is the k-callsite-sensitive policy: the context is the last k
// callsites on the call path, regardless of receiver identity.
type KCallsite struct {
	t *table
	K int
}

func NewKCallsite(k int) *KCallsite { return &KCallsite{t: newTable(), K: k} }

func (s *KCallsite) EmptyContextID() ContextID { return 0 }

func (s *KCallsite) NewStaticCallContext(caller ContextID, site CallsiteID) ContextID {
	c := append(append(Context{}, s.t.get(caller)...), Elem{Site: site, HasSite: true})
	return s.t.intern(truncate(c, s.K))
}

func (s *KCallsite) NewInstanceCallContext(caller ContextID, site CallsiteID, receiver path.NodeID, hasReceiver bool) (ContextID, bool) {
	return s.NewStaticCallContext(caller, site), true
}

// KObject is the k-object-sensitive policy: the context is the last k
// receiver objects on the call path. Calls whose receiver is not yet known
// are elided (ok=false) -- per §4.6, "object-sensitive returns None when
// the receiver is None (call elided at this site)".
type KObject struct {
	t *table
	K int
}

func NewKObject(k int) *KObject { return &KObject{t: newTable(), K: k} }

func (s *KObject) EmptyContextID() ContextID { return 0 }

func (s *KObject) NewStaticCallContext(caller ContextID, site CallsiteID) ContextID {
	return caller // kept unchanged for plain static (non-instance) calls
}

func (s *KObject) NewInstanceCallContext(caller ContextID, site CallsiteID, receiver path.NodeID, hasReceiver bool) (ContextID, bool) {
	if !hasReceiver {
		return 0, false
	}
	c := append(append(Context{}, s.t.get(caller)...), Elem{Receiver: receiver, HasRecv: true})
	return s.t.intern(truncate(c, s.K)), true
}
