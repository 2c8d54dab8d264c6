package taskgraph

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/Nikerino/xtask/internal/task"
)

func mk(group, name string, deps ...string) *task.Task {
	t := task.New(name, group, "", "/work/"+group, "/work/"+group+"/"+group+".tasks", false, nil)
	t.AddDependencies(deps...)
	return t
}

func TestBuildResolvesBareAndCrossGroupReferences(t *testing.T) {
	a := mk("a", "x")
	b := mk("b", "y", "a:x")

	g, err := Build([]*task.Task{a, b})
	assert.NilError(t, err)

	deps := b.Dependencies()
	assert.Equal(t, len(deps), 1)
	assert.Equal(t, deps[0].Label(), "a:x")

	found, ok := g.Lookup("y", "b")
	assert.Assert(t, ok)
	assert.Equal(t, found.Label(), "b:y")
}

func TestBuildMissingDependencyIsFatal(t *testing.T) {
	a := mk("a", "x", "missing")
	_, err := Build([]*task.Task{a})
	assert.ErrorContains(t, err, "dependency not found")
}

func TestTopologicalOrderRespectsDependencies(t *testing.T) {
	c := mk("g", "c")
	b := mk("g", "b", "c")
	a := mk("g", "a", "b")

	g, err := Build([]*task.Task{a, b, c})
	assert.NilError(t, err)

	var order []string
	err = g.Walk(func(t *task.Task) error {
		order = append(order, t.Name)
		return nil
	})
	assert.NilError(t, err)
	assert.DeepEqual(t, order, []string{"c", "b", "a"})
}

func TestWalkDetectsCycle(t *testing.T) {
	a := mk("g", "a", "b")
	b := mk("g", "b", "a")
	g, err := Build([]*task.Task{a, b})
	assert.NilError(t, err)

	err = g.Walk(func(t *task.Task) error { return nil })
	assert.ErrorContains(t, err, "cycle detected")
}

func TestSubgraphIsClosureOverDependencies(t *testing.T) {
	c := mk("g", "c")
	b := mk("g", "b", "c")
	a := mk("g", "a", "b")
	unrelated := mk("g", "z")

	g, err := Build([]*task.Task{a, b, c, unrelated})
	assert.NilError(t, err)

	sub, err := g.Subgraph(a)
	assert.NilError(t, err)
	assert.Equal(t, len(sub.AllTasks()), 3)
}
