// Package xglob resolves include/exclude glob pattern lists against a
// root directory, returning the set difference as absolute paths,
// deterministically sorted.
//
// Grounded in internal/globby/globby.go's use of doublestar against an
// fs.FS: here the fs.FS is simply os.DirFS(root), since xtask tasks
// resolve patterns against a real directory rather than a virtual one.
package xglob

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Resolve returns the sorted, de-duplicated set of absolute paths that
// match any pattern in include but no pattern in exclude, evaluated
// against root.
func Resolve(root string, include, exclude []string) ([]string, error) {
	fsys := os.DirFS(root)

	includeSet := make(map[string]struct{})
	for _, pattern := range include {
		matches, err := doublestar.Glob(fsys, filepath.ToSlash(pattern))
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			includeSet[m] = struct{}{}
		}
	}

	excludeSet := make(map[string]struct{})
	for _, pattern := range exclude {
		matches, err := doublestar.Glob(fsys, filepath.ToSlash(pattern))
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			excludeSet[m] = struct{}{}
		}
	}

	result := make([]string, 0, len(includeSet))
	for m := range includeSet {
		if _, excluded := excludeSet[m]; excluded {
			continue
		}
		info, err := fs.Stat(fsys, m)
		if err != nil || info.IsDir() {
			continue
		}
		result = append(result, filepath.Join(root, filepath.FromSlash(m)))
	}
	sort.Strings(result)
	return result, nil
}
