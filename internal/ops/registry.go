// Package ops defines the primitive operations a graph node can perform:
// shape inference at construction time and a kernel at evaluation time.
package ops

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/born-ml/graphcore/internal/parallel"
	"github.com/born-ml/graphcore/internal/tensor"
)

// ErrUnknownOp is returned for op names missing from the registry.
var ErrUnknownOp = errors.New("unknown op")

// Primitive op names.
const (
	Alias        = "Alias"
	Plus         = "Plus"
	Minus        = "Minus"
	ElementTimes = "ElementTimes"
	Negate       = "Negate"
	ReLU         = "ReLU"
	Sigmoid      = "Sigmoid"
	Tanh         = "Tanh"
	Exp          = "Exp"
	Log          = "Log"
	Sqrt         = "Sqrt"
	Scale        = "Scale"
	Times        = "Times"
	ReduceSum    = "ReduceSum"
	Cast         = "Cast"
)

// Operand is the static type of one op input or output.
type Operand struct {
	Shape tensor.Shape
	DType tensor.DataType
}

// Attrs holds numeric op attributes.
type Attrs map[string]float64

// Get returns the attribute or def when absent.
func (a Attrs) Get(name string, def float64) float64 {
	if v, ok := a[name]; ok {
		return v
	}
	return def
}

// Context carries per-evaluation kernel settings.
type Context struct {
	Parallel      parallel.Config
	Deterministic bool
}

// InferFunc computes an op's output type from its operand types.
type InferFunc func(operands []Operand, attrs Attrs) (Operand, error)

// KernelFunc computes one sample. out is preallocated with the inferred
// shape; kernels never write to inputs.
type KernelFunc func(ctx *Context, attrs Attrs, inputs []*tensor.RawTensor, out *tensor.RawTensor) error

// Op is a registered primitive.
type Op struct {
	Name   string
	Arity  int
	Infer  InferFunc
	Kernel KernelFunc
}

// Registry maps op names to their definitions.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Op
}

// NewRegistry creates a registry with all built-in ops.
func NewRegistry() *Registry {
	r := &Registry{
		ops: make(map[string]Op),
	}

	r.registerElementwise()
	r.registerLinalg()
	r.registerConversion()

	return r
}

var defaultRegistry = NewRegistry()

// Default returns the shared registry used by graph construction and
// evaluation.
func Default() *Registry {
	return defaultRegistry
}

// Register adds or replaces an op.
func (r *Registry) Register(op Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op.Name] = op
}

// Get returns the op registered under name.
func (r *Registry) Get(name string) (Op, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Infer checks operands against op name and returns the output type.
func (r *Registry) Infer(name string, operands []Operand, attrs Attrs) (Operand, error) {
	op, ok := r.Get(name)
	if !ok {
		return Operand{}, fmt.Errorf("%w: %s", ErrUnknownOp, name)
	}
	if len(operands) != op.Arity {
		return Operand{}, fmt.Errorf("%s requires %d inputs, got %d", name, op.Arity, len(operands))
	}
	return op.Infer(operands, attrs)
}

// Execute runs the kernel for op name on one sample.
func (r *Registry) Execute(ctx *Context, name string, attrs Attrs, inputs []*tensor.RawTensor, out *tensor.RawTensor) error {
	op, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOp, name)
	}
	if len(inputs) != op.Arity {
		return fmt.Errorf("%s requires %d inputs, got %d", name, op.Arity, len(inputs))
	}
	return op.Kernel(ctx, attrs, inputs, out)
}

// SupportedOps returns the registered op names, sorted.
func (r *Registry) SupportedOps() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
