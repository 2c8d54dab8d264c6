package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func TestCopyFileIntoDirectory(t *testing.T) {
	src := filepath.Join(t.TempDir(), "a.txt")
	assert.NilError(t, os.WriteFile(src, []byte("hello"), 0o644))
	destDir := t.TempDir()

	assert.NilError(t, Copy(nil, src, destDir))

	got, err := os.ReadFile(filepath.Join(destDir, "a.txt"))
	assert.NilError(t, err)
	assert.Equal(t, string(got), "hello")
}

func TestMoveRemovesSource(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "a.txt")
	assert.NilError(t, os.WriteFile(src, []byte("hi"), 0o644))
	dst := filepath.Join(t.TempDir(), "b.txt")

	assert.NilError(t, Move(nil, src, dst))

	_, err := os.Stat(src)
	assert.Assert(t, os.IsNotExist(err))
	got, err := os.ReadFile(dst)
	assert.NilError(t, err)
	assert.Equal(t, string(got), "hi")
}

func TestDeleteIsNoopWhenAbsent(t *testing.T) {
	assert.NilError(t, Delete(nil, filepath.Join(t.TempDir(), "missing")))
}
