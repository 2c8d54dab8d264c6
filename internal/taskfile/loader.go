package taskfile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Nikerino/xtask/internal/settings"
	"github.com/Nikerino/xtask/internal/task"
	"github.com/Nikerino/xtask/internal/taskerr"
)

// Loader discovers *.tasks marker files beneath a project root and
// resolves each to its registered DefineFunc.
type Loader struct {
	Root string
}

// NewLoader constructs a Loader rooted at root.
func NewLoader(root string) *Loader {
	return &Loader{Root: root}
}

// Load walks Root for *.tasks files (§4.3 "anywhere beneath the project
// root"), enforces one task file per directory (§4.4), and runs each
// file's registered define function against a fresh Registry. It returns
// every declared Task across the project, in discovery order.
func (l *Loader) Load() ([]*task.Task, error) {
	fsys := os.DirFS(l.Root)
	markers, err := doublestar.Glob(fsys, "**/*"+settings.TasksFileExtension)
	if err != nil {
		return nil, &taskerr.LoadError{Path: l.Root, Msg: "globbing for task files", Err: err}
	}

	seenDirs := map[string]string{}
	var allTasks []*task.Task

	for _, marker := range markers {
		info, statErr := os.Stat(filepath.Join(l.Root, filepath.FromSlash(marker)))
		if statErr != nil || info.IsDir() {
			return nil, &taskerr.LoadError{Path: marker, Msg: "task file is not a regular file"}
		}

		dir := filepath.Dir(marker)
		if existing, ok := seenDirs[dir]; ok {
			return nil, &taskerr.LoadError{Path: marker, Msg: "directory already has a task file: " + existing}
		}
		seenDirs[dir] = marker

		define, ok := lookup(marker)
		if !ok {
			return nil, &taskerr.LoadError{Path: marker, Msg: "no Go registration found for task file; is its pairing source file imported?"}
		}

		registry := &Registry{
			GroupName:        defaultGroupName(marker),
			FilePath:         filepath.Join(l.Root, filepath.FromSlash(marker)),
			WorkingDirectory: filepath.Join(l.Root, filepath.FromSlash(dir)),
		}

		if err := runDefine(define, registry); err != nil {
			return nil, &taskerr.LoadError{Path: marker, Msg: "executing task file registration", Err: err}
		}

		allTasks = append(allTasks, registry.Tasks...)
	}

	return allTasks, nil
}

// runDefine invokes define, converting a panic into a LoadError cause so
// a misbehaving task file cannot bring down the whole loader process.
func runDefine(define DefineFunc, registry *Registry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if asErr, ok := r.(error); ok {
				err = asErr
				return
			}
			err = &taskerr.LoadError{Path: registry.FilePath, Msg: "panic in task file registration"}
		}
	}()
	define(registry)
	return nil
}

// defaultGroupName derives the default group name from a marker's file
// stem (§4.3 "defaults to the base name of the defining file").
func defaultGroupName(markerPath string) string {
	base := filepath.Base(markerPath)
	return strings.TrimSuffix(base, settings.TasksFileExtension)
}
