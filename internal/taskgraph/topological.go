package taskgraph

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pyr-sh/dag"

	"github.com/Nikerino/xtask/internal/task"
	"github.com/Nikerino/xtask/internal/taskerr"
)

// Ready is one element of the two-phase yield/done protocol of §4.6: the
// caller runs Task, then calls Done to make the ready set advance.
type Ready struct {
	Task *task.Task
	Done func()
}

// TopologicalOrder implements §4.6 topological_order(): a task becomes
// ready only once every dependency it has has been marked done. The
// iterator is pull-based (Next) rather than a channel, Go generator or
// precomputed list, because the whole point of the explicit yield/done
// protocol is that the caller interleaves its own work — cache restore,
// action execution — between a task becoming ready and being marked
// done; the caller drives one Ready at a time.
type TopologicalOrder struct {
	remaining   map[string]*task.Task
	pendingDeps map[string]int
	dependents  map[string][]string
	queue       []*task.Task
}

// Iterator builds the two-phase topological iterator over this graph.
// Readiness counts and the reverse (dependents) adjacency are both read
// directly off the dag's DownEdges for each task — the same adjacency
// Build populated via Connect(BasicEdge(dependent, dependency)) — rather
// than re-deriving them from task.Dependencies().
func (g *Graph) Iterator() *TopologicalOrder {
	it := &TopologicalOrder{
		remaining:   make(map[string]*task.Task, len(g.tasks)),
		pendingDeps: make(map[string]int, len(g.tasks)),
		dependents:  make(map[string][]string, len(g.tasks)),
	}

	for _, t := range g.tasks {
		it.remaining[t.Label()] = t
		it.pendingDeps[t.Label()] = g.dag.DownEdges(t.Label()).Len()
	}
	for _, t := range g.tasks {
		for _, v := range g.dag.DownEdges(t.Label()).List() {
			depLabel := dag.VertexName(v)
			it.dependents[depLabel] = append(it.dependents[depLabel], t.Label())
		}
	}
	for _, t := range g.tasks {
		if it.pendingDeps[t.Label()] == 0 {
			it.queue = append(it.queue, t)
		}
	}

	return it
}

// Next returns the next Ready pair, or (nil, false) when no task is
// ready: either every task has been yielded, or the remaining ones are
// blocked by a cycle (see Done). Calling Next again before the previous Ready's Done
// has been invoked is undefined; the protocol is strictly one-at-a-time.
func (it *TopologicalOrder) Next() (*Ready, bool) {
	if len(it.queue) == 0 {
		return nil, false
	}
	t := it.queue[0]
	it.queue = it.queue[1:]
	delete(it.remaining, t.Label())

	return &Ready{
		Task: t,
		Done: func() {
			for _, depLabel := range it.dependents[t.Label()] {
				it.pendingDeps[depLabel]--
				if it.pendingDeps[depLabel] == 0 {
					if next, ok := it.remaining[depLabel]; ok {
						it.queue = append(it.queue, next)
					}
				}
			}
		},
	}, true
}

// Done returns nil unless the iteration is stuck. If the queue is empty
// but some tasks have never been yielded by Next, those tasks lie on or
// behind a cycle and Done returns a GraphError (§4.6 "if a cycle exists, termination is impossible and the
// iterator reports an error at that point").
func (it *TopologicalOrder) Done() error {
	if len(it.remaining) == 0 {
		return nil
	}
	if len(it.queue) > 0 {
		return nil
	}
	stuck := make([]string, 0, len(it.remaining))
	for label := range it.remaining {
		stuck = append(stuck, label)
	}
	return &taskerr.GraphError{Msg: "cycle detected among tasks", Task: stuck[0]}
}

// Walk drives the full iterator, invoking visit for each ready task and
// calling Done automatically once visit returns. An error from visit
// does not stop the walk — a task already ready runs regardless of a
// sibling's failure (§4.9 _execute step 4) — but every such error is
// collected and returned, joined, once the walk completes. Iterator,
// Next and Done remain available for callers that drive the protocol
// themselves; internal/execctx uses Walk.
func (g *Graph) Walk(visit func(*task.Task) error) error {
	it := g.Iterator()
	var result *multierror.Error
	for {
		ready, ok := it.Next()
		if !ok {
			break
		}
		if err := visit(ready.Task); err != nil {
			result = multierror.Append(result, err)
		}
		ready.Done()
	}
	if err := it.Done(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
