package execctx

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/Nikerino/xtask/internal/task"
	"github.com/Nikerino/xtask/internal/taskcache"
	"github.com/Nikerino/xtask/internal/taskgraph"
)

func TestExecuteCachesActionOutput(t *testing.T) {
	workDir := t.TempDir()
	cacheDir := t.TempDir()
	taskFile := filepath.Join(workDir, "web.tasks")
	assert.NilError(t, os.WriteFile(taskFile, []byte("marker"), 0o644))

	runs := 0
	tk := task.New("build", "web", "", workDir, taskFile, true, func(c task.Context) error {
		runs++
		return os.WriteFile(filepath.Join(workDir, "out.txt"), []byte("built"), 0o644)
	})
	assert.NilError(t, tk.AddOutputs([]string{"out.txt"}, nil))

	graph, err := taskgraph.Build([]*task.Task{tk})
	assert.NilError(t, err)

	cache := taskcache.NewDirectoryTaskCache(cacheDir)
	ctx := New(tk, graph, cache, nil, nil)

	assert.NilError(t, ctx.Execute(true, false, tk))
	assert.Equal(t, runs, 1)

	assert.NilError(t, os.Remove(filepath.Join(workDir, "out.txt")))

	assert.NilError(t, ctx.Execute(true, false, tk))
	assert.Equal(t, runs, 1, "second execution should restore from cache, not rerun the action")

	restored, err := os.ReadFile(filepath.Join(workDir, "out.txt"))
	assert.NilError(t, err)
	assert.Equal(t, string(restored), "built")
}

func TestExecuteWithDependenciesOrdersTopologically(t *testing.T) {
	workDir := t.TempDir()
	taskFile := filepath.Join(workDir, "web.tasks")
	assert.NilError(t, os.WriteFile(taskFile, []byte("marker"), 0o644))

	var order []string
	makeTask := func(name string, deps ...string) *task.Task {
		tk := task.New(name, "web", "", workDir, taskFile, false, func(c task.Context) error {
			order = append(order, c.ThisTask().Name)
			return nil
		})
		tk.AddDependencies(deps...)
		return tk
	}

	c := makeTask("c")
	b := makeTask("b", "c")
	a := makeTask("a", "b")

	graph, err := taskgraph.Build([]*task.Task{a, b, c})
	assert.NilError(t, err)

	ctx := New(a, graph, nil, nil, nil)
	assert.NilError(t, ctx.Execute(false, true, a))
	assert.DeepEqual(t, order, []string{"c", "b", "a"})
}

func TestExecuteContinuesPastActionFailure(t *testing.T) {
	workDir := t.TempDir()
	taskFile := filepath.Join(workDir, "web.tasks")
	assert.NilError(t, os.WriteFile(taskFile, []byte("marker"), 0o644))

	ran := map[string]bool{}
	failing := task.New("broken", "web", "", workDir, taskFile, false, func(c task.Context) error {
		ran["broken"] = true
		return assertErr
	})
	ok := task.New("fine", "web", "", workDir, taskFile, false, func(c task.Context) error {
		ran["fine"] = true
		return nil
	})

	graph, err := taskgraph.Build([]*task.Task{failing, ok})
	assert.NilError(t, err)

	ctx := New(failing, graph, nil, nil, nil)
	err = ctx.Execute(false, false, failing, ok)
	assert.ErrorContains(t, err, "action failed")
	assert.Assert(t, ran["broken"])
	assert.Assert(t, ran["fine"])
}

var assertErr = errTest("boom")

type errTest string

func (e errTest) Error() string { return string(e) }

func TestWorkingDirectoryRestoredAfterSuccessAndFailure(t *testing.T) {
	before, err := os.Getwd()
	assert.NilError(t, err)

	workDir := t.TempDir()
	taskFile := filepath.Join(workDir, "web.tasks")
	assert.NilError(t, os.WriteFile(taskFile, []byte("marker"), 0o644))

	ok := task.New("fine", "web", "", workDir, taskFile, false, func(c task.Context) error { return nil })
	graph, err := taskgraph.Build([]*task.Task{ok})
	assert.NilError(t, err)
	ctx := New(ok, graph, nil, nil, nil)
	assert.NilError(t, ctx.Execute(false, false, ok))

	after, err := os.Getwd()
	assert.NilError(t, err)
	assert.Equal(t, before, after)

	failing := task.New("broken", "web", "", workDir, taskFile, false, func(c task.Context) error { return assertErr })
	graph2, err := taskgraph.Build([]*task.Task{failing})
	assert.NilError(t, err)
	ctx2 := New(failing, graph2, nil, nil, nil)
	_ = ctx2.Execute(false, false, failing)

	afterFailure, err := os.Getwd()
	assert.NilError(t, err)
	assert.Equal(t, before, afterFailure)
}
