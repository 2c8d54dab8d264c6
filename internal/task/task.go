// Package task implements the central Task entity: a named unit of work
// bound to a working directory, with declared inputs, outputs, scalar
// inputs, dependencies, and an action.
package task

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"github.com/Nikerino/xtask/internal/taskerr"
	"github.com/Nikerino/xtask/internal/xglob"
)

// Context is the capability set an Action needs: looking up sibling
// tasks, reading the property map, and re-entrant execution of other
// tasks. internal/execctx.ExecutionContext implements it; it is defined
// here (rather than in execctx) so that Task and Action have no import
// dependency on the execution engine.
type Context interface {
	ThisTask() *Task
	Properties() map[string]string
	Lookup(ref string) (*Task, bool)
	Execute(useCache, withDependencies bool, tasks ...*Task) error
}

// Action is the thunk a task runs when it is not restored from cache.
type Action func(Context) error

// Task is the central declarative record of the engine.
type Task struct {
	Name                   string
	Group                  string
	Doc                    string
	WorkingDirectoryPath   string
	FilePath               string
	UseCache               bool
	IncludeInputs          []string
	ExcludeInputs          []string
	IncludeOutputs         []string
	ExcludeOutputs         []string
	AdditionalInputs       [][]byte
	UnresolvedDependencies []string
	Action                 Action

	dependencies []*Task
	resolved     bool
}

// New constructs a Task in its unconfigured state. It is exported for
// use by internal/taskfile.Registry, which is the only intended caller.
func New(name, group, doc, workingDirectoryPath, filePath string, useCache bool, action Action) *Task {
	return &Task{
		Name:                 name,
		Group:                group,
		Doc:                  doc,
		WorkingDirectoryPath: workingDirectoryPath,
		FilePath:             filePath,
		UseCache:             useCache,
		Action:               action,
	}
}

// Label returns the globally unique "group:name" identity of the task.
func (t *Task) Label() string {
	return fmt.Sprintf("%s:%s", t.Group, t.Name)
}

func (t *Task) String() string {
	return "[" + t.Label() + "]"
}

// SetDependencies populates the resolved dependency list. It is called
// by internal/taskgraph.Build for every graph the task is built into;
// Graph.Subgraph builds a new graph over the same tasks and so sets the
// same resolved list again.
func (t *Task) SetDependencies(deps []*Task) {
	t.dependencies = deps
	t.resolved = true
}

// Dependencies returns the resolved dependency list. Reading it before
// the owning graph is constructed is a programmer error.
func (t *Task) Dependencies() []*Task {
	if !t.resolved {
		panic(&taskerr.GraphError{Task: t.Label(), Msg: "dependencies read before graph construction"})
	}
	return t.dependencies
}

// AddInputs extends the include/exclude input glob lists (§4.3). An
// empty include is a fatal ConfigurationError.
func (t *Task) AddInputs(include, exclude []string) error {
	if len(include) == 0 {
		return &taskerr.ConfigurationError{Task: t.Label(), Msg: "inputs() requires a non-empty include list"}
	}
	t.IncludeInputs = append(t.IncludeInputs, include...)
	t.ExcludeInputs = append(t.ExcludeInputs, exclude...)
	return nil
}

// AddOutputs extends the include/exclude output glob lists (§4.3). An
// empty include is a fatal ConfigurationError.
func (t *Task) AddOutputs(include, exclude []string) error {
	if len(include) == 0 {
		return &taskerr.ConfigurationError{Task: t.Label(), Msg: "outputs() requires a non-empty include list"}
	}
	t.IncludeOutputs = append(t.IncludeOutputs, include...)
	t.ExcludeOutputs = append(t.ExcludeOutputs, exclude...)
	return nil
}

// AddDependencies appends unresolved dependency reference strings (§4.3).
// Resolution happens once, in internal/taskgraph.
func (t *Task) AddDependencies(refs ...string) {
	t.UnresolvedDependencies = append(t.UnresolvedDependencies, refs...)
}

// AddAdditionalInputs encodes and appends scalar configuration values to
// additional_inputs, per the encoding rules of §4.3:
//   - []byte is used as-is
//   - signed integers are packed two's-complement little-endian using
//     the minimum number of bytes (at least 1)
//   - float64 is packed IEEE-754 double, little-endian
//   - anything else is encoded via its textual form as UTF-8
func (t *Task) AddAdditionalInputs(values ...interface{}) error {
	for _, v := range values {
		encoded, err := encodeAdditionalInput(v)
		if err != nil {
			return &taskerr.ConfigurationError{Task: t.Label(), Msg: "encoding additional input", Err: err}
		}
		t.AdditionalInputs = append(t.AdditionalInputs, encoded)
	}
	return nil
}

func encodeAdditionalInput(v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case []byte:
		return val, nil
	case int:
		return encodeSignedLittleEndian(int64(val)), nil
	case int8:
		return encodeSignedLittleEndian(int64(val)), nil
	case int16:
		return encodeSignedLittleEndian(int64(val)), nil
	case int32:
		return encodeSignedLittleEndian(int64(val)), nil
	case int64:
		return encodeSignedLittleEndian(val), nil
	case float64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, mathFloat64bits(val))
		return buf, nil
	case float32:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, mathFloat64bits(float64(val)))
		return buf, nil
	case string:
		return []byte(val), nil
	case fmt.Stringer:
		return []byte(val.String()), nil
	default:
		return []byte(fmt.Sprintf("%v", val)), nil
	}
}

// encodeSignedLittleEndian packs v as two's-complement little-endian
// using the minimum number of bytes required: (bitlen+7)/8, at least 1.
func encodeSignedLittleEndian(v int64) []byte {
	bitLen := bitLength(v)
	numBytes := (bitLen + 7) / 8
	if numBytes < 1 {
		numBytes = 1
	}
	full := make([]byte, 8)
	binary.LittleEndian.PutUint64(full, uint64(v))
	return full[:numBytes]
}

// bitLength returns the number of bits v needs in two's complement,
// sign bit included: 0 for v == 0, bit_length(v)+1 for positive v, and
// bit_length(-v-1)+1 for negative v, where bit_length is Python's
// int.bit_length() of the non-negative magnitude. So 127 needs 8 bits
// (one byte) and 128 needs 9 (two bytes).
func bitLength(v int64) int {
	if v == 0 {
		return 0
	}
	if v < 0 {
		// Negative numbers: bit_length(-v-1) + 1.
		m := -(v + 1)
		return bits64Len(uint64(m)) + 1
	}
	return bits64Len(uint64(v)) + 1
}

func bits64Len(u uint64) int {
	n := 0
	for u > 0 {
		n++
		u >>= 1
	}
	return n
}

func mathFloat64bits(f float64) uint64 {
	return math.Float64bits(f)
}

// Inputs resolves the task's include/exclude input patterns against its
// working directory (§4.5).
func (t *Task) Inputs() ([]string, error) {
	return xglob.Resolve(t.WorkingDirectoryPath, t.IncludeInputs, t.ExcludeInputs)
}

// Outputs resolves the task's include/exclude output patterns against
// its working directory (§4.5).
func (t *Task) Outputs() ([]string, error) {
	return xglob.Resolve(t.WorkingDirectoryPath, t.IncludeOutputs, t.ExcludeOutputs)
}

// InputHash implements §4.7: a 128-bit MD5 digest over the defining
// file's bytes, the sorted input file bytes, and the additional inputs
// in declaration order, interpreted as a little-endian integer.
func (t *Task) InputHash() (*big.Int, error) {
	return computeInputHash(t)
}
