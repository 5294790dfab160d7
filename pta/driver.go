// This file implements §4.7's driver (C9): the outer fixed point around the
// builder/solver's inner one. It seeds the call graph from the selected
// entry point, alternates lowering newly-reached function bodies with
// running the propagator to quiescence, and turns each callsite resolution
// into a call-graph edge via the configured context strategy -- repeating
// until no function remains to lower, matching §9's "dynamic dispatch
// resolving into new call-graph edges, which spawn new PAG edges, which
// spawn new points-to facts, which spawn new dispatch resolutions" cycle.
package pta

import (
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/gopta/pta/internal/pta/builder"
	"github.com/gopta/pta/internal/pta/callgraph"
	"github.com/gopta/pta/internal/pta/ctx"
	"github.com/gopta/pta/internal/pta/mir"
	"github.com/gopta/pta/internal/pta/path"
	"github.com/gopta/pta/internal/pta/solve"
)

// Driver owns one whole-program run: the builder, the solver, the
// accumulated call graph, and the context strategy tying resolutions to
// call-graph nodes.
type Driver struct {
	opts   Options
	oracle mir.Oracle
	log    *zap.SugaredLogger

	b        *builder.Builder
	solver   *solve.Solver
	strategy ctx.Strategy
	graph    *callgraph.Graph
	errs     *ErrorSink

	// funcCtx records the context a function body was first reached under.
	// Per §5 the PAG itself is not context-split (a body is lowered once),
	// so this is call-graph bookkeeping only, not a re-lowering trigger.
	funcCtx map[path.FuncID]ctx.ContextID

	queue        []path.FuncID
	queuedFn     map[path.FuncID]bool
	resolutionPos int
}

// NewDriver builds a Driver over oracle with the given options. A nil
// logger gets a production zap logger at Info level, raised to Debug when
// opts.Verbose is set (the "Options.Verbose/zap.DebugLevel check" the
// ambient-stack section describes).
func NewDriver(oracle mir.Oracle, opts Options, log *zap.SugaredLogger) *Driver {
	if log == nil {
		level := zap.NewAtomicLevelAt(zap.InfoLevel)
		if opts.Verbose {
			level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		cfg := zap.NewProductionConfig()
		cfg.Level = level
		l, err := cfg.Build()
		if err != nil {
			l = zap.NewNop()
		}
		log = l.Sugar()
	}
	b := builder.New(oracle)
	s := solve.New(b, opts.TypeFilterEnabled)
	errs := newErrorSink()
	s.Sink = errs
	return &Driver{
		opts:     opts,
		oracle:   oracle,
		log:      log,
		b:        b,
		solver:   s,
		strategy: opts.strategy(),
		graph:    callgraph.New(),
		errs:     errs,
		funcCtx:  make(map[path.FuncID]ctx.ContextID),
		queuedFn: make(map[path.FuncID]bool),
	}
}

// resolveEntry selects the entry DefID per §6.2: EntryDefID if set,
// otherwise EntryDefName looked up through the oracle. ok=false is the
// fatal EntryNotFound (§7).
func (d *Driver) resolveEntry() (mir.DefID, bool) {
	if d.opts.HasEntryDefID {
		return d.opts.EntryDefID, true
	}
	return d.oracle.EntryByName(d.opts.EntryDefName)
}

// Run executes the full driver loop of §4.7 and returns the §6.3 result
// snapshot. The only returned error is fatal (EntryNotFound or a builder
// UnreachableInvariantBreak bubbled up from a panic boundary this core does
// not install -- see DESIGN.md); everything else is recorded on Errors.
func (d *Driver) Run() (*Results, error) {
	entryDef, ok := d.resolveEntry()
	if !ok {
		return nil, fatalf(EntryNotFound, "no function matches entry selector (name=%q, defID=%d, hasDefID=%v)",
			d.opts.EntryDefName, d.opts.EntryDefID, d.opts.HasEntryDefID)
	}
	entryFunc := d.b.FuncID(mir.FuncRef{Def: entryDef})
	d.funcCtx[entryFunc] = d.strategy.EmptyContextID()
	d.enqueueFunc(entryFunc)
	d.log.Debugw("entry resolved", "def", entryDef, "func", entryFunc)

	for {
		d.drainReachQueue()

		resolutions := d.solver.Propagate()
		newResolutions := resolutions[d.resolutionPos:]
		d.resolutionPos = len(resolutions)
		for _, r := range newResolutions {
			d.applyResolution(r)
		}

		if len(d.queue) == 0 {
			break
		}
	}

	d.finalizeResolveFailures()
	stats := snapshotStats(d.b.PAG, d.graph, d.solver.Iterations)
	d.log.Debugw("run complete", "nodes", stats.Nodes, "edges", stats.Edges, "reachFuncs", stats.ReachFuncs)

	return &Results{
		CallGraph: d.graph,
		Interner:  d.b.Interner,
		Stats:     stats,
		Errors:    d.errs,
		pag:       d.b.PAG,
	}, nil
}

func (d *Driver) enqueueFunc(f path.FuncID) {
	if d.queuedFn[f] {
		return
	}
	d.queuedFn[f] = true
	d.queue = append(d.queue, f)
}

// drainReachQueue implements §4.7 step 2: pop every function currently
// queued, build its PAG if unseen (Builder.LowerFunction is a no-op for an
// already-lowered ref), and register its callsites with the solver.
func (d *Driver) drainReachQueue() {
	for len(d.queue) > 0 {
		f := d.queue[0]
		d.queue = d.queue[1:]

		ref := d.b.Reg.Ref(f)
		sites, err := d.b.LowerFunction(ref)
		if err != nil {
			if xerrors.Is(err, builder.ErrMirUnavailable) {
				d.errs.RecordMirUnavailable(ref.Def)
				d.log.Debugw("mir unavailable", "def", ref.Def)
				continue
			}
			continue
		}
		d.solver.RegisterCallsites(sites)
	}
}

// applyResolution implements §4.7 step 4: choose a context for the newly
// resolved call via the configured strategy, add a call-graph edge, and
// queue the callee's body for lowering if this is its first sighting.
func (d *Driver) applyResolution(r solve.Resolution) {
	callerCtx := d.funcCtx[r.Caller]

	var calleeCtx ctx.ContextID
	switch r.CallType {
	case callgraph.DynamicDispatch, callgraph.DynamicFnTrait:
		hasReceiver := r.Receiver != 0
		var ok bool
		calleeCtx, ok = d.strategy.NewInstanceCallContext(callerCtx, ctx.CallsiteID(r.Site), r.Receiver, hasReceiver)
		if !ok {
			// Object-sensitive strategy elides the call at this site until
			// a receiver is known (§4.6); nothing to record yet.
			return
		}
	default:
		calleeCtx = d.strategy.NewStaticCallContext(callerCtx, ctx.CallsiteID(r.Site))
	}

	callerNode := callgraph.Node{Context: callerCtx, Func: r.Caller}
	calleeNode := callgraph.Node{Context: calleeCtx, Func: r.Callee}
	added := d.graph.AddEdge(callerNode, ctx.CallsiteID(r.Site), calleeNode, r.CallType)
	if !added {
		return
	}
	if _, seen := d.funcCtx[r.Callee]; !seen {
		d.funcCtx[r.Callee] = calleeCtx
	}
	d.enqueueFunc(r.Callee)
	d.log.Debugw("call resolved", "site", r.Site, "caller", r.Caller, "callee", r.Callee, "type", r.CallType.String())
}

// finalizeResolveFailures records a ResolveFailure (§7) for every
// DynamicDispatch/DynamicFnTrait callsite that never resolved by the time
// the run reached a fixed point -- "silently omitted from the final graph"
// otherwise, so this is the only place that loss becomes observable.
func (d *Driver) finalizeResolveFailures() {
	for _, site := range d.solver.UnresolvedInstanceSites() {
		d.errs.RecordResolveFailure(site)
	}
}
