// Package reach implements the one concurrency point §5 permits outside the
// single-threaded core: an optional forward-reachability precomputation over
// the finished call graph, sharded across callers with errgroup.Group. It is
// explicitly non-core (the driver and solver never call it) -- a convenience
// for "is F reachable from main"-style queries that would otherwise walk the
// whole graph on every question, mirroring how the teacher's own
// go/callgraph/rta sits beside go/pointer as an adjoining, not load-bearing,
// package.
package reach

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gopta/pta/internal/pta/callgraph"
	"github.com/gopta/pta/internal/pta/path"
)

// Set is one function's forward-reachable set: every FuncID some call
// chain starting at it can reach, context stripped (the call graph's
// context dimension is bookkeeping for edge labelling, not reachability).
type Set map[path.FuncID]bool

// Reachability is the precomputed per-root reachable-set table.
type Reachability struct {
	sets map[path.FuncID]Set
}

// Reaches reports whether to is forward-reachable from from. A from with no
// precomputed set (never passed to Compute as a root) reports false.
func (r *Reachability) Reaches(from, to path.FuncID) bool {
	set, ok := r.sets[from]
	if !ok {
		return false
	}
	return set[to]
}

// Set returns the forward-reachable FuncIDs from from, nil if from was not
// one of Compute's roots.
func (r *Reachability) Set(from path.FuncID) []path.FuncID {
	set, ok := r.sets[from]
	if !ok {
		return nil
	}
	out := make([]path.FuncID, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	return out
}

// adjacency is the Func->Func edge relation flattened out of the call
// graph's (Context,Func)-keyed nodes.
type adjacency map[path.FuncID][]path.FuncID

func buildAdjacency(g *callgraph.Graph) adjacency {
	adj := make(adjacency)
	seen := make(map[[2]path.FuncID]bool)
	for _, e := range g.All() {
		from, to := e.Caller.Func, e.Callee.Func
		if from == to {
			continue
		}
		key := [2]path.FuncID{from, to}
		if seen[key] {
			continue
		}
		seen[key] = true
		adj[from] = append(adj[from], to)
	}
	return adj
}

func bfs(adj adjacency, root path.FuncID) Set {
	visited := Set{}
	queue := []path.FuncID{root}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		for _, next := range adj[f] {
			if visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return visited
}

// Compute shards a BFS over g's flattened call graph across roots, one
// goroutine per root joined with errgroup.Group, and returns the combined
// table. ctx cancellation stops goroutines that have not yet started their
// walk; an in-progress BFS runs to completion (the walk itself has no
// natural suspension point to check ctx against, matching §5's "no I/O, no
// async" characterization of the core this package sits beside).
func Compute(ctx context.Context, g *callgraph.Graph, roots []path.FuncID) (*Reachability, error) {
	adj := buildAdjacency(g)
	r := &Reachability{sets: make(map[path.FuncID]Set, len(roots))}

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	for _, root := range roots {
		root := root
		eg.Go(func() error {
			select {
			case <-egCtx.Done():
				return egCtx.Err()
			default:
			}
			set := bfs(adj, root)
			mu.Lock()
			r.sets[root] = set
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return r, nil
}
