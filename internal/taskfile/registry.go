// Package taskfile is the declaration surface for task files: the
// registry each one populates, and the loader that discovers and runs
// them.
//
// A dynamically loaded, call-stack-introspecting source file has no
// direct Go equivalent, so task files are declared at compile time
// instead: each `*.tasks` marker file is paired with a Go source file
// that calls Register from its own init(), binding a define function to
// the marker's project-root-relative path. The Loader walks the project
// tree for marker files and, for each one found, invokes the matching
// registered define function against a fresh Registry, which accumulates
// every task the define function declares.
package taskfile

import (
	"path/filepath"
	"sync"

	"github.com/Nikerino/xtask/internal/task"
	"github.com/Nikerino/xtask/internal/taskerr"
)

// Registry is the write-through declaration surface exposed to a single
// task file while it is "executing" (i.e. while its define function
// runs). It corresponds to the original's (__all_tasks__, __group_name__)
// pair.
type Registry struct {
	// GroupName is seeded from the marker file's stem and may be
	// overridden by the define function before any Declare call, mirroring
	// assignment to __group_name__ in the original.
	GroupName string

	// FilePath is the absolute path of the *.tasks marker file.
	FilePath string

	// WorkingDirectory is the directory new tasks are bound to unless a
	// call site requests otherwise; it defaults to the marker's parent
	// directory (§4.3 "declare ... registers a new Task ... with the
	// caller's file path and parent directory").
	WorkingDirectory string

	// Tasks accumulates every task declared against this registry, in
	// declaration order.
	Tasks []*task.Task
}

// Declare registers a new Task in the registry's ambient group, bound to
// the defining file's path and parent directory (§4.3).
func (r *Registry) Declare(name, doc string, useCache bool, action task.Action) *task.Task {
	t := task.New(name, r.GroupName, doc, r.WorkingDirectory, r.FilePath, useCache, action)
	r.Tasks = append(r.Tasks, t)
	return t
}

// DefineFunc is the function a task file's pairing Go source registers:
// it receives the Registry for that marker file and issues Declare (and
// AddInputs/AddOutputs/AddDependencies/AddAdditionalInputs) calls against
// the tasks it declares.
type DefineFunc func(*Registry)

var (
	registrationsMu sync.Mutex
	registrations   = map[string]DefineFunc{}
)

// Register binds define to markerPath, the path of a *.tasks file
// relative to the project root, using forward slashes regardless of
// platform. It is intended to be called from the init() function of the
// Go source file paired with that marker, and panics on a duplicate
// registration for the same path since that indicates two source files
// claiming the same task file.
func Register(markerPath string, define DefineFunc) {
	key := filepath.ToSlash(markerPath)
	registrationsMu.Lock()
	defer registrationsMu.Unlock()
	if _, exists := registrations[key]; exists {
		panic(&taskerr.LoadError{Path: key, Msg: "duplicate registration for task file"})
	}
	registrations[key] = define
}

// lookup returns the define function registered for a project-root-
// relative marker path, if any.
func lookup(markerPath string) (DefineFunc, bool) {
	registrationsMu.Lock()
	defer registrationsMu.Unlock()
	fn, ok := registrations[filepath.ToSlash(markerPath)]
	return fn, ok
}
