// Package execctx is the ExecutionContext: the binding between a
// running task, the shared graph, the optional cache, and the property
// map, plus the scoped working-directory switch each task's action runs
// under.
//
// The working directory is process-wide mutable state, so the engine
// acquires it for the duration of each task's execution via a scoped
// switch that restores the prior directory even on failure, the same
// guaranteed-cleanup-via-defer discipline used for atomic file writes,
// generalized from file writes to the process working directory itself.
//
// §4.9 defines execute as reentrant: a task's action receives a
// task.Context and may call Execute again to run further tasks before
// its own action returns. That rules out a lock held across fn() here —
// the inner call runs on the same goroutine as the outer one, so a
// non-reentrant mutex held across the action body would deadlock on the
// very first nested Execute. §5 already gives the ordering guarantee
// this needs: scheduling is single-threaded and cooperative, so nested
// chdir/restore pairs on one goroutine simply nest correctly with no
// lock required, matching the original's working_dir context manager,
// which holds no lock either. Driving two ExecutionContexts from
// separate goroutines in the same process remains outside the
// supported model, per §5's "shared mutable global" note.
package execctx

import (
	"math/big"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/Nikerino/xtask/internal/task"
	"github.com/Nikerino/xtask/internal/taskcache"
	"github.com/Nikerino/xtask/internal/taskerr"
	"github.com/Nikerino/xtask/internal/taskgraph"
	"github.com/Nikerino/xtask/internal/xlog"
)

// withWorkingDirectory switches the process working directory to dir for
// the duration of fn, restoring the original directory on every exit
// path including panics propagating through fn. fn may itself call back
// into withWorkingDirectory (a reentrant task.Context.Execute call) and
// nests correctly: the restore on the way out always returns to the
// directory this call observed on the way in.
func withWorkingDirectory(dir string, fn func() error) error {
	original, err := os.Getwd()
	if err != nil {
		return err
	}
	if err := os.Chdir(dir); err != nil {
		return err
	}
	defer os.Chdir(original)

	return fn()
}

// ExecutionContext is the §4.9 state bundle: this_task, the shared
// graph, the shared optional cache, and the shared property map.
type ExecutionContext struct {
	thisTask   *task.Task
	graph      *taskgraph.Graph
	cache      taskcache.TaskCache
	properties map[string]string
	logger     *xlog.Logger
}

// New builds the root ExecutionContext for a run. cache may be nil when
// caching is disabled (settings.Settings.CacheEnabled false).
func New(thisTask *task.Task, graph *taskgraph.Graph, cache taskcache.TaskCache, properties map[string]string, logger *xlog.Logger) *ExecutionContext {
	if properties == nil {
		properties = map[string]string{}
	}
	return &ExecutionContext{
		thisTask:   thisTask,
		graph:      graph,
		cache:      cache,
		properties: properties,
		logger:     logger,
	}
}

// withTask clones the context, binding this_task to t, per §4.9 "clone
// the context binding this_task to the task being executed".
func (ctx *ExecutionContext) withTask(t *task.Task) *ExecutionContext {
	clone := *ctx
	clone.thisTask = t
	return &clone
}

// ThisTask returns the task this context is bound to.
func (ctx *ExecutionContext) ThisTask() *task.Task { return ctx.thisTask }

// Properties returns the shared property map.
func (ctx *ExecutionContext) Properties() map[string]string { return ctx.properties }

// Lookup resolves ref against the graph, defaulting the group to this
// context's own task's group (§4.9 task(ref)).
func (ctx *ExecutionContext) Lookup(ref string) (*task.Task, bool) {
	return ctx.graph.Lookup(ref, ctx.thisTask.Group)
}

// Execute implements §4.9 execute(tasks…, use_cache, with_dependencies).
func (ctx *ExecutionContext) Execute(useCache, withDependencies bool, tasks ...*task.Task) error {
	if !withDependencies {
		var result *multierror.Error
		for _, t := range tasks {
			if err := ctx.execute(t, useCache); err != nil {
				result = multierror.Append(result, err)
			}
		}
		return result.ErrorOrNil()
	}

	sub, err := ctx.graph.Subgraph(tasks...)
	if err != nil {
		return err
	}
	return sub.Walk(func(t *task.Task) error {
		return ctx.execute(t, useCache)
	})
}

// execute implements §4.9 _execute(task): the scoped working-directory
// switch, the cache check/restore-or-run-and-store decision, and action
// invocation. Failures are reported (xlog banners) and wrapped as
// ExecutionError, but are not propagated to siblings already ready — the
// caller (Execute, via taskgraph.Walk) decides to continue, per the
// current policy recorded in SPEC_FULL.md §9.
func (ctx *ExecutionContext) execute(t *task.Task, useCacheRequested bool) error {
	return withWorkingDirectory(t.WorkingDirectoryPath, func() error {
		cacheInPlay := useCacheRequested && ctx.cache != nil && t.UseCache

		if cacheInPlay {
			hash, err := t.InputHash()
			if err != nil {
				return err
			}
			if ctx.cache.Contains(hash) {
				// A cache read failure degrades to a cache miss: the action
				// runs and the entry is written afresh.
				err := ctx.cache.CopyTo(hash, ".")
				if err == nil {
					if ctx.logger != nil {
						ctx.logger.Debug("restored from cache", "task", t.Label(), "hash", hash.String())
					}
					return nil
				}
				if ctx.logger != nil {
					ctx.logger.Warn("cache restore failed, treating as a miss", "task", t.Label(), "hash", hash.String(), "error", err)
				}
			}

			xlog.BeginTask(t.Label())
			if err := ctx.runAction(t); err != nil {
				xlog.EndTaskFailure(t.Label(), err)
				return &taskerr.ExecutionError{Task: t.Label(), Err: err}
			}

			if err := ctx.store(t, hash); err != nil {
				xlog.EndTaskFailure(t.Label(), err)
				return err
			}
			xlog.EndTaskSuccess(t.Label())
			return nil
		}

		xlog.BeginTask(t.Label())
		if err := ctx.runAction(t); err != nil {
			xlog.EndTaskFailure(t.Label(), err)
			return &taskerr.ExecutionError{Task: t.Label(), Err: err}
		}
		xlog.EndTaskSuccess(t.Label())
		return nil
	})
}

// runAction invokes t's action, if any, with a context cloned to t. A
// task declared with no action (a pure aggregator of dependencies) is
// legal and simply succeeds.
func (ctx *ExecutionContext) runAction(t *task.Task) error {
	if t.Action == nil {
		return nil
	}
	return t.Action(ctx.withTask(t))
}

// store enumerates t's outputs against the current (already-switched)
// working directory, reads each file's bytes, and puts them into the
// cache keyed by hash (§4.9 step 2).
func (ctx *ExecutionContext) store(t *task.Task, hash *big.Int) error {
	outputs, err := t.Outputs()
	if err != nil {
		return err
	}
	entries := make([]taskcache.Entry, 0, len(outputs))
	for _, p := range outputs {
		rel, err := filepath.Rel(t.WorkingDirectoryPath, p)
		if err != nil {
			return &taskerr.CacheError{Task: t.Label(), Hash: hash.String(), Msg: "computing relative output path", Err: err}
		}
		contents, err := os.ReadFile(p)
		if err != nil {
			return &taskerr.CacheError{Task: t.Label(), Hash: hash.String(), Msg: "reading output " + p, Err: err}
		}
		entries = append(entries, taskcache.Entry{RelativePath: rel, Contents: contents})
	}
	return ctx.cache.Put(hash, entries)
}
