// Package taskgraph resolves task dependency references, builds the
// dependency graph, extracts subgraphs, and drives the two-phase
// yield/done topological iteration protocol that execution relies on.
//
// Graph storage is github.com/pyr-sh/dag: an AcyclicGraph of (group,
// name) labels, built the same way the teacher's TaskGraph is
// (internal/core/engine.go, scheduler.go) — Add a vertex per task,
// Connect(BasicEdge(dependent, dependency)) per resolved reference, so a
// task's DownEdges are exactly its dependencies (engine.go's own
// comment: "each downEdge ... is a task that _this_ task dependsOn").
// Subgraph (graph.go) asks the dag for Ancestors, the transitive walk
// along that same DownEdges adjacency, instead of re-walking
// task.Dependencies() by hand. dag.AcyclicGraph's Walk is callback-driven
// and doesn't leave room for a caller to interleave its own work between
// a node becoming ready and being marked done, so the explicit yield/done
// protocol (topological.go) is implemented directly on top of the dag's
// own DownEdges adjacency as a readiness-counting traversal in
// the manner of Kahn's algorithm — the same approach graphlib.TopologicalSorter
// takes — rather than bypassing the dag for a second, parallel adjacency.
package taskgraph

import (
	"fmt"

	"github.com/pyr-sh/dag"

	"github.com/Nikerino/xtask/internal/task"
	"github.com/Nikerino/xtask/internal/taskerr"
)

// Graph is the resolved, logically immutable dependency graph of §4.6.
type Graph struct {
	tasks []*task.Task
	index map[string]*task.Task
	dag   dag.AcyclicGraph
}

// Build constructs a Graph from tasks (§4.6 steps 1-4): it indexes every
// task by (group, name), resolves each unresolved dependency reference,
// and populates every task's resolved dependency list.
func Build(tasks []*task.Task) (*Graph, error) {
	g := &Graph{
		tasks: tasks,
		index: make(map[string]*task.Task, len(tasks)),
	}

	for _, t := range tasks {
		label := t.Label()
		if _, exists := g.index[label]; exists {
			return nil, &taskerr.GraphError{Task: label, Msg: "duplicate (group, name)"}
		}
		g.index[label] = t
		g.dag.Add(label)
	}

	for _, t := range tasks {
		deps := make([]*task.Task, 0, len(t.UnresolvedDependencies))
		for _, ref := range t.UnresolvedDependencies {
			dep, err := g.resolveReference(t, ref)
			if err != nil {
				return nil, err
			}
			deps = append(deps, dep)
			g.dag.Connect(dag.BasicEdge(t.Label(), dep.Label()))
		}
		t.SetDependencies(deps)
	}

	return g, nil
}

// resolveReference implements §4.6 step 3: a reference containing ':'
// names (group, name) directly; otherwise it names a task in the
// dependent's own group.
func (g *Graph) resolveReference(dependent *task.Task, ref string) (*task.Task, error) {
	label := ref
	if !containsColon(ref) {
		label = fmt.Sprintf("%s:%s", dependent.Group, ref)
	}
	dep, ok := g.index[label]
	if !ok {
		return nil, &taskerr.GraphError{Task: dependent.Label(), Msg: "dependency not found: " + ref}
	}
	return dep, nil
}

func containsColon(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return true
		}
	}
	return false
}

// AllTasks returns every node in insertion order.
func (g *Graph) AllTasks() []*task.Task {
	return g.tasks
}

// Lookup resolves ref (bare name or group:name) against the graph,
// defaulting the group to defaultGroup when ref has no ':'. It returns
// (nil, false) when no such task exists, matching §4.9 task(ref).
func (g *Graph) Lookup(ref, defaultGroup string) (*task.Task, bool) {
	label := ref
	if !containsColon(ref) {
		label = fmt.Sprintf("%s:%s", defaultGroup, ref)
	}
	t, ok := g.index[label]
	return t, ok
}

// Subgraph implements §4.6 subgraph(roots...): the depth-first closure
// over dependencies reachable from roots, as a new Graph over exactly
// those nodes. The closure itself is computed by the dag
// (AcyclicGraph.Ancestors, which walks DownEdges transitively with its
// own visited-set bookkeeping) rather than by re-deriving it from
// task.Dependencies().
func (g *Graph) Subgraph(roots ...*task.Task) (*Graph, error) {
	seen := make(map[string]*task.Task, len(roots))
	for _, r := range roots {
		seen[r.Label()] = r

		closure, err := g.dag.Ancestors(r.Label())
		if err != nil {
			return nil, &taskerr.GraphError{Task: r.Label(), Msg: "computing dependency closure", Err: err}
		}
		for _, v := range closure.List() {
			label := dag.VertexName(v)
			if t, ok := g.index[label]; ok {
				seen[label] = t
			}
		}
	}

	reachable := make([]*task.Task, 0, len(seen))
	for _, t := range g.tasks {
		if _, ok := seen[t.Label()]; ok {
			reachable = append(reachable, t)
		}
	}
	return Build(reachable)
}
