// Package taskcache is a content-addressed store of (relative_path,
// bytes) entries keyed by a 128-bit input hash.
//
// Each entry is a standard zip archive, so this is one of the few
// places the engine reaches for the standard library (archive/zip)
// rather than a pack dependency — the on-disk format is fixed, not a
// stylistic default. Atomic replacement follows a temp-file-then-rename
// discipline, using google/uuid to name the scratch file so concurrent
// writers never collide on the same name.
package taskcache

import (
	"archive/zip"
	"bytes"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/Nikerino/xtask/internal/taskerr"
)

// Entry is a single cached file, relative to the task's working
// directory at capture time.
type Entry struct {
	RelativePath string
	Contents     []byte
}

// TaskCache is the capability set of §4.8: contains, get, copy_to, put.
type TaskCache interface {
	Contains(hash *big.Int) bool
	Get(hash *big.Int) ([]Entry, bool, error)
	CopyTo(hash *big.Int, targetDir string) error
	Put(hash *big.Int, entries []Entry) error
}

// DirectoryTaskCache is the §4.8 "Directory implementation": one zip
// archive file per entry, named by the hash's decimal string, under a
// single cache_location directory.
type DirectoryTaskCache struct {
	Location string
}

// NewDirectoryTaskCache builds a DirectoryTaskCache rooted at location.
// The caller is expected to have already verified location exists
// (settings.Settings.CacheEnabled).
func NewDirectoryTaskCache(location string) *DirectoryTaskCache {
	return &DirectoryTaskCache{Location: location}
}

func (c *DirectoryTaskCache) entryPath(hash *big.Int) string {
	return filepath.Join(c.Location, hash.String())
}

// Contains is a file-existence check (§4.8).
func (c *DirectoryTaskCache) Contains(hash *big.Int) bool {
	info, err := os.Stat(c.entryPath(hash))
	return err == nil && !info.IsDir()
}

// Get reads and returns the cached entry's (relative_path, bytes) pairs.
func (c *DirectoryTaskCache) Get(hash *big.Int) ([]Entry, bool, error) {
	path := c.entryPath(hash)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, &taskerr.CacheError{Hash: hash.String(), Msg: "reading cache entry", Err: err}
	}

	reader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, false, &taskerr.CacheError{Hash: hash.String(), Msg: "opening cache entry as zip", Err: err}
	}

	entries := make([]Entry, 0, len(reader.File))
	for _, f := range reader.File {
		rc, err := f.Open()
		if err != nil {
			return nil, false, &taskerr.CacheError{Hash: hash.String(), Msg: "reading zip member " + f.Name, Err: err}
		}
		contents, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, false, &taskerr.CacheError{Hash: hash.String(), Msg: "reading zip member " + f.Name, Err: err}
		}
		entries = append(entries, Entry{RelativePath: f.Name, Contents: contents})
	}
	return entries, true, nil
}

// CopyTo materializes the cached entry's files under targetDir,
// preserving the relative paths recorded at put time. No-op if absent.
func (c *DirectoryTaskCache) CopyTo(hash *big.Int, targetDir string) error {
	entries, ok, err := c.Get(hash)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	for _, e := range entries {
		dest := filepath.Join(targetDir, filepath.FromSlash(e.RelativePath))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return &taskerr.CacheError{Hash: hash.String(), Msg: "creating output directory", Err: err}
		}
		if err := os.WriteFile(dest, e.Contents, 0o644); err != nil {
			return &taskerr.CacheError{Hash: hash.String(), Msg: "writing restored output " + e.RelativePath, Err: err}
		}
	}
	return nil
}

// Put stores entries as a single zip archive, replacing any prior entry
// for hash. The archive is built in a uuid-suffixed temp file in the
// same directory and then renamed over the final path, so a reader never
// observes a partially written entry.
func (c *DirectoryTaskCache) Put(hash *big.Int, entries []Entry) error {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RelativePath < sorted[j].RelativePath })

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range sorted {
		fw, err := w.Create(filepath.ToSlash(e.RelativePath))
		if err != nil {
			return &taskerr.CacheError{Hash: hash.String(), Msg: "creating zip member " + e.RelativePath, Err: err}
		}
		if _, err := fw.Write(e.Contents); err != nil {
			return &taskerr.CacheError{Hash: hash.String(), Msg: "writing zip member " + e.RelativePath, Err: err}
		}
	}
	if err := w.Close(); err != nil {
		return &taskerr.CacheError{Hash: hash.String(), Msg: "finalizing zip archive", Err: err}
	}

	tmpPath := filepath.Join(c.Location, ".tmp-"+uuid.New().String())
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		return &taskerr.CacheError{Hash: hash.String(), Msg: "writing temp cache entry", Err: err}
	}
	if err := os.Rename(tmpPath, c.entryPath(hash)); err != nil {
		os.Remove(tmpPath)
		return &taskerr.CacheError{Hash: hash.String(), Msg: "promoting temp cache entry", Err: err}
	}
	return nil
}
