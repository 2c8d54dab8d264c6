package taskcache

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func TestPutGetCopyToRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cache := NewDirectoryTaskCache(dir)
	hash := big.NewInt(424242)

	assert.Assert(t, !cache.Contains(hash))

	entries := []Entry{
		{RelativePath: "dist/out.js", Contents: []byte("console.log(1)")},
		{RelativePath: "dist/out.js.map", Contents: []byte("{}")},
	}
	assert.NilError(t, cache.Put(hash, entries))
	assert.Assert(t, cache.Contains(hash))

	target := t.TempDir()
	assert.NilError(t, cache.CopyTo(hash, target))

	restored, err := os.ReadFile(filepath.Join(target, "dist", "out.js"))
	assert.NilError(t, err)
	assert.Equal(t, string(restored), "console.log(1)")
}

func TestPutReplacesPriorEntry(t *testing.T) {
	dir := t.TempDir()
	cache := NewDirectoryTaskCache(dir)
	hash := big.NewInt(7)

	assert.NilError(t, cache.Put(hash, []Entry{{RelativePath: "a.txt", Contents: []byte("first")}}))
	assert.NilError(t, cache.Put(hash, []Entry{{RelativePath: "a.txt", Contents: []byte("second")}}))

	got, ok, err := cache.Get(hash)
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.Equal(t, len(got), 1)
	assert.Equal(t, string(got[0].Contents), "second")
}

func TestCopyToIsNoopWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	cache := NewDirectoryTaskCache(dir)
	assert.NilError(t, cache.CopyTo(big.NewInt(99), t.TempDir()))
}
