package task

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func TestLabel(t *testing.T) {
	tk := New("build", "web", "", "/work", "/work/web.tasks", true, nil)
	assert.Equal(t, tk.Label(), "web:build")
	assert.Equal(t, tk.String(), "[web:build]")
}

func TestAddInputsRejectsEmptyInclude(t *testing.T) {
	tk := New("build", "web", "", "/work", "/work/web.tasks", true, nil)
	err := tk.AddInputs(nil, []string{"*.tmp"})
	assert.ErrorContains(t, err, "non-empty include list")
}

func TestAddOutputsRejectsEmptyInclude(t *testing.T) {
	tk := New("build", "web", "", "/work", "/work/web.tasks", true, nil)
	err := tk.AddOutputs(nil, nil)
	assert.ErrorContains(t, err, "non-empty include list")
}

func TestDependenciesPanicsBeforeResolution(t *testing.T) {
	tk := New("build", "web", "", "/work", "/work/web.tasks", true, nil)
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic reading unresolved dependencies")
		}
	}()
	tk.Dependencies()
}

func TestEncodeAdditionalInputsIntegers(t *testing.T) {
	cases := []struct {
		in   int64
		want []byte
	}{
		{0, []byte{0}},
		{1, []byte{1}},
		{127, []byte{127}},
		{128, []byte{128, 0}},
		{-1, []byte{255}},
		{-128, []byte{128}},
		{-129, []byte{127, 255}},
		{256, []byte{0, 1}},
	}
	for _, c := range cases {
		got := encodeSignedLittleEndian(c.in)
		assert.DeepEqual(t, got, c.want)
	}
}

func TestAddAdditionalInputsString(t *testing.T) {
	tk := New("build", "web", "", "/work", "/work/web.tasks", true, nil)
	err := tk.AddAdditionalInputs("prod", 1, []byte{0xAB})
	assert.NilError(t, err)
	assert.DeepEqual(t, tk.AdditionalInputs[0], []byte("prod"))
	assert.DeepEqual(t, tk.AdditionalInputs[1], []byte{1})
	assert.DeepEqual(t, tk.AdditionalInputs[2], []byte{0xAB})
}

func TestAdditionalInputsEncodingMatchesDeclaredOrder(t *testing.T) {
	tk := New("build", "web", "", "/work", "/work/web.tasks", true, nil)
	err := tk.AddAdditionalInputs(42, 3.14, "hello", []byte{0x00, 0x01})
	assert.NilError(t, err)

	assert.DeepEqual(t, tk.AdditionalInputs[0], []byte{0x2a})
	pi := make([]byte, 8)
	binaryLittleEndianPutFloat(pi, 3.14)
	assert.DeepEqual(t, tk.AdditionalInputs[1], pi)
	assert.DeepEqual(t, tk.AdditionalInputs[2], []byte("hello"))
	assert.DeepEqual(t, tk.AdditionalInputs[3], []byte{0x00, 0x01})
}

func binaryLittleEndianPutFloat(buf []byte, f float64) {
	bits := mathFloat64bits(f)
	for i := 0; i < 8; i++ {
		buf[i] = byte(bits >> (8 * i))
	}
}

func TestInputHashStableAndSensitiveToContent(t *testing.T) {
	dir := t.TempDir()
	taskFile := filepath.Join(dir, "web.tasks")
	assert.NilError(t, os.WriteFile(taskFile, []byte("marker"), 0o644))
	srcFile := filepath.Join(dir, "main.go")
	assert.NilError(t, os.WriteFile(srcFile, []byte("package main"), 0o644))

	tk := New("build", "web", "", dir, taskFile, true, nil)
	assert.NilError(t, tk.AddInputs([]string{"*.go"}, nil))

	first, err := tk.InputHash()
	assert.NilError(t, err)
	second, err := tk.InputHash()
	assert.NilError(t, err)
	assert.Equal(t, first.Cmp(second), 0)

	assert.NilError(t, os.WriteFile(srcFile, []byte("package main\n// changed"), 0o644))
	third, err := tk.InputHash()
	assert.NilError(t, err)
	assert.Assert(t, first.Cmp(third) != 0)
}
