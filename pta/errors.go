// This file implements §7's error-handling design: a closed set of error
// kinds, two of them fatal (returned up through Driver.Run), the rest
// recorded on an ErrorSink as the driver and solver encounter them so that
// "no exceptions propagate across the propagate/builder boundary" holds --
// a non-fatal kind never aborts the loop that discovered it.
package pta

import (
	"github.com/gopta/pta/internal/pta/mir"
	"github.com/gopta/pta/internal/pta/path"
	"golang.org/x/xerrors"
)

// ErrorKind is one of §7's seven named error conditions.
type ErrorKind uint8

const (
	// EntryNotFound: no function matches the entry selector. Fatal.
	EntryNotFound ErrorKind = iota
	// MirUnavailable: a callee's body is not available (foreign/abstract);
	// the call graph still gets an edge to the stub id, with no PAG edges
	// propagated beyond argument/return shape.
	MirUnavailable
	// ResolveFailure: the instance resolver returned no match; the
	// callsite remains unresolved and is retried as pointees accrue, and is
	// silently omitted from the final graph if it never resolves.
	ResolveFailure
	// TypeMismatch: propagation would cross a non-equivalent pointer-type
	// boundary under the §4.5 type filter. Silently dropped.
	TypeMismatch
	// UnreachableInvariantBreak: a builder/solver invariant (e.g. "a
	// store/load edge's destination/source is a deref path") was violated.
	// Fatal -- indicates a bug in this repo, not the analyzed program.
	UnreachableInvariantBreak
	// CastCycle: a cast-to type recurred in a path's projection suffix;
	// the new cast selector is dropped rather than appended.
	CastCycle
)

func (k ErrorKind) String() string {
	switch k {
	case EntryNotFound:
		return "entry-not-found"
	case MirUnavailable:
		return "mir-unavailable"
	case ResolveFailure:
		return "resolve-failure"
	case TypeMismatch:
		return "type-mismatch"
	case UnreachableInvariantBreak:
		return "unreachable-invariant-break"
	case CastCycle:
		return "cast-cycle"
	default:
		return "unknown"
	}
}

// Fatal reports whether an error of this kind must abort Driver.Run.
func (k ErrorKind) Fatal() bool {
	return k == EntryNotFound || k == UnreachableInvariantBreak
}

// AnalysisError wraps a fatal error kind with its cause for propagation
// with %w up to Driver.Run's caller.
type AnalysisError struct {
	Kind  ErrorKind
	Cause error
}

func (e *AnalysisError) Error() string {
	if e.Cause != nil {
		return e.Kind.String() + ": " + e.Cause.Error()
	}
	return e.Kind.String()
}

func (e *AnalysisError) Unwrap() error { return e.Cause }

func fatalf(kind ErrorKind, format string, args ...interface{}) error {
	return &AnalysisError{Kind: kind, Cause: xerrors.Errorf(format, args...)}
}

// mirUnavailableEntry is one non-fatal MirUnavailable occurrence: a callee
// def whose body the oracle could not produce.
type mirUnavailableEntry struct {
	Def mir.DefID
}

// resolveFailureEntry is one non-fatal ResolveFailure occurrence, recorded
// only if the callsite never eventually resolves (§7: "silently omitted").
type resolveFailureEntry struct {
	Site path.CallsiteLoc
}

// castCycleEntry is one non-fatal CastCycle occurrence.
type castCycleEntry struct {
	Node path.NodeID
}

// ErrorSink accumulates every non-fatal error kind the driver and solver
// encounter during a run, for the caller to inspect or log afterward --
// matching §7's "no exceptions propagate across the propagate/builder
// boundary" rule by never returning these from the functions that hit them.
type ErrorSink struct {
	MirUnavailable []mirUnavailableEntry
	ResolveFailure []resolveFailureEntry
	TypeMismatch   int // counted only, per-drop detail is not load-bearing
	CastCycle      []castCycleEntry
}

func newErrorSink() *ErrorSink { return &ErrorSink{} }

// RecordMirUnavailable files one MirUnavailable occurrence (§7): def's body
// could not be produced by the oracle, so LowerFunction stopped at the
// call-graph edge instead of propagating argument/return flow for it.
func (s *ErrorSink) RecordMirUnavailable(def mir.DefID) {
	s.MirUnavailable = append(s.MirUnavailable, mirUnavailableEntry{Def: def})
}

// RecordResolveFailure files one ResolveFailure occurrence. The driver only
// calls this for callsites that never eventually resolved, per §7's
// "silently omitted from the final graph if never resolved".
func (s *ErrorSink) RecordResolveFailure(site path.CallsiteLoc) {
	s.ResolveFailure = append(s.ResolveFailure, resolveFailureEntry{Site: site})
}

// RecordTypeMismatch satisfies solve.Sink: one Direct/Offset propagation
// dropped by the §4.5 type filter.
func (s *ErrorSink) RecordTypeMismatch() { s.TypeMismatch++ }

// RecordCastCycle satisfies solve.Sink: one cast was dropped because its
// target type already appeared in the path's projection suffix.
func (s *ErrorSink) RecordCastCycle(node path.NodeID) {
	s.CastCycle = append(s.CastCycle, castCycleEntry{Node: node})
}

// Empty reports whether nothing non-fatal was recorded during the run.
func (s *ErrorSink) Empty() bool {
	return len(s.MirUnavailable) == 0 && len(s.ResolveFailure) == 0 &&
		s.TypeMismatch == 0 && len(s.CastCycle) == 0
}
