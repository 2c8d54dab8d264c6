package task

import (
	"crypto/md5"
	"math/big"
	"os"
	"sort"

	"github.com/Nikerino/xtask/internal/taskerr"
)

// computeInputHash computes the task's input digest: MD5 over the
// concatenation of the defining file's bytes, the resolved input files'
// bytes in lexicographically sorted path order, and the additional
// inputs in declaration order. The 16-byte digest is then interpreted as
// a little-endian unsigned integer, matching Python's
// int.from_bytes(..., "little"), which callers rely on for the cache
// file name.
func computeInputHash(t *Task) (*big.Int, error) {
	h := md5.New()

	defining, err := os.ReadFile(t.FilePath)
	if err != nil {
		return nil, &taskerr.CacheError{Task: t.Label(), Msg: "reading defining file for hash", Err: err}
	}
	h.Write(defining)

	inputPaths, err := t.Inputs()
	if err != nil {
		return nil, &taskerr.CacheError{Task: t.Label(), Msg: "resolving inputs for hash", Err: err}
	}
	sort.Strings(inputPaths)
	for _, p := range inputPaths {
		contents, err := os.ReadFile(p)
		if err != nil {
			return nil, &taskerr.CacheError{Task: t.Label(), Msg: "reading input " + p + " for hash", Err: err}
		}
		h.Write(contents)
	}

	for _, additional := range t.AdditionalInputs {
		h.Write(additional)
	}

	digest := h.Sum(nil)
	return littleEndianBigInt(digest), nil
}

// littleEndianBigInt interprets digest, a byte slice in little-endian
// order, as an unsigned integer. big.Int.SetBytes expects big-endian
// input, so the bytes are reversed first.
func littleEndianBigInt(digest []byte) *big.Int {
	reversed := make([]byte, len(digest))
	for i, b := range digest {
		reversed[len(digest)-1-i] = b
	}
	return new(big.Int).SetBytes(reversed)
}
