package graph

import (
	"fmt"
	"maps"
	"strings"

	"github.com/born-ml/graphcore/internal/ops"
	"github.com/born-ml/graphcore/internal/tensor"
)

// CombineOp is the op name of Functions built by Combine. They group
// existing outputs and have no kernel of their own.
const CombineOp = "Combine"

// Function is an immutable graph node. A Function whose operands are
// outputs of other Functions is a composite graph rooted at it.
type Function struct {
	uid     string
	name    string
	op      string
	inputs  []*Variable
	outputs []*Variable
	attrs   ops.Attrs
}

// UID returns the function's unique id.
func (f *Function) UID() string { return f.uid }

// Name returns the function name. It defaults to the op name.
func (f *Function) Name() string { return f.name }

// Op returns the primitive op name, or CombineOp.
func (f *Function) Op() string { return f.op }

// IsPrimitive reports whether f has a kernel.
func (f *Function) IsPrimitive() bool { return f.op != CombineOp }

// Output returns the first output. Primitive functions have exactly one.
func (f *Function) Output() *Variable { return f.outputs[0] }

// Outputs returns the outputs in order.
func (f *Function) Outputs() []*Variable {
	return append([]*Variable(nil), f.outputs...)
}

// Operands returns the direct operands in order.
func (f *Function) Operands() []*Variable {
	return append([]*Variable(nil), f.inputs...)
}

// Attrs returns a copy of the op attributes.
func (f *Function) Attrs() ops.Attrs {
	return maps.Clone(f.attrs)
}

// Attr returns a single attribute.
func (f *Function) Attr(name string) (float64, bool) {
	v, ok := f.attrs[name]
	return v, ok
}

// HasOutput reports whether v is one of f's outputs.
func (f *Function) HasOutput(v *Variable) bool {
	for _, o := range f.outputs {
		if o == v {
			return true
		}
	}
	return false
}

// Inputs returns the leaf variables of the graph rooted at f (arguments,
// parameters and constants) in first-visit order, without duplicates.
func (f *Function) Inputs() []*Variable {
	var leaves []*Variable
	seenVar := make(map[*Variable]bool)
	seenFn := make(map[*Function]bool)

	var visit func(fn *Function)
	visit = func(fn *Function) {
		if seenFn[fn] {
			return
		}
		seenFn[fn] = true
		for _, in := range fn.inputs {
			if in.owner != nil {
				visit(in.owner)
				continue
			}
			if !seenVar[in] {
				seenVar[in] = true
				leaves = append(leaves, in)
			}
		}
	}
	visit(f)
	return leaves
}

// Arguments returns the Input variables that must be bound at evaluation.
func (f *Function) Arguments() []*Variable { return f.inputsOfKind(InputKind) }

// Parameters returns the parameter variables.
func (f *Function) Parameters() []*Variable { return f.inputsOfKind(ParameterKind) }

// Constants returns the constant variables.
func (f *Function) Constants() []*Variable { return f.inputsOfKind(ConstantKind) }

func (f *Function) inputsOfKind(k Kind) []*Variable {
	var out []*Variable
	for _, v := range f.Inputs() {
		if v.kind == k {
			out = append(out, v)
		}
	}
	return out
}

// Nodes returns the primitive functions of the graph in topological order:
// every function comes after the producers of its operands.
func (f *Function) Nodes() []*Function {
	var order []*Function
	visited := make(map[*Function]bool)

	var visit func(fn *Function)
	visit = func(fn *Function) {
		if visited[fn] {
			return
		}
		visited[fn] = true
		for _, in := range fn.inputs {
			if in.owner != nil {
				visit(in.owner)
			}
		}
		if fn.IsPrimitive() {
			order = append(order, fn)
		}
	}
	visit(f)
	return order
}

// String returns e.g. `Plus("sum", [x y]) -> [3]`.
func (f *Function) String() string {
	names := make([]string, len(f.inputs))
	for i, in := range f.inputs {
		names[i] = in.name
		if names[i] == "" {
			names[i] = in.kind.String()
		}
	}
	return fmt.Sprintf("%s(%q, [%s]) -> %v", f.op, f.name, strings.Join(names, " "), []int(f.Output().shape))
}

func newPrimitive(uid, op, name string, attrs ops.Attrs, inputs ...*Variable) (*Function, error) {
	operands := make([]ops.Operand, len(inputs))
	for i, in := range inputs {
		if in == nil {
			return nil, fmt.Errorf("%s operand %d: %w", op, i, ErrNilVariable)
		}
		operands[i] = ops.Operand{Shape: in.shape, DType: in.dtype}
	}
	out, err := ops.Default().Infer(op, operands, attrs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if name == "" {
		name = op
	}
	if uid == "" {
		uid = newUID()
	}
	fn := &Function{
		uid:    uid,
		name:   name,
		op:     op,
		inputs: append([]*Variable(nil), inputs...),
		attrs:  maps.Clone(attrs),
	}
	fn.outputs = []*Variable{{
		uid:   newUID(),
		name:  name,
		kind:  OutputKind,
		shape: out.Shape.Clone(),
		dtype: out.DType,
		owner: fn,
	}}
	return fn, nil
}

func primitive(op, name string, attrs ops.Attrs, inputs ...*Variable) (*Function, error) {
	return newPrimitive("", op, name, attrs, inputs...)
}

// Alias returns a function whose output equals x.
func Alias(x *Variable, name string) (*Function, error) {
	return primitive(ops.Alias, name, nil, x)
}

// Plus returns a + b with broadcasting.
func Plus(a, b *Variable, name string) (*Function, error) {
	return primitive(ops.Plus, name, nil, a, b)
}

// Minus returns a - b with broadcasting.
func Minus(a, b *Variable, name string) (*Function, error) {
	return primitive(ops.Minus, name, nil, a, b)
}

// ElementTimes returns the elementwise product with broadcasting.
func ElementTimes(a, b *Variable, name string) (*Function, error) {
	return primitive(ops.ElementTimes, name, nil, a, b)
}

// Negate returns -x.
func Negate(x *Variable, name string) (*Function, error) {
	return primitive(ops.Negate, name, nil, x)
}

// ReLU returns max(x, 0).
func ReLU(x *Variable, name string) (*Function, error) {
	return primitive(ops.ReLU, name, nil, x)
}

// Sigmoid returns 1 / (1 + exp(-x)).
func Sigmoid(x *Variable, name string) (*Function, error) {
	return primitive(ops.Sigmoid, name, nil, x)
}

// Tanh returns tanh(x).
func Tanh(x *Variable, name string) (*Function, error) {
	return primitive(ops.Tanh, name, nil, x)
}

// Exp returns exp(x).
func Exp(x *Variable, name string) (*Function, error) {
	return primitive(ops.Exp, name, nil, x)
}

// Log returns the natural logarithm of x.
func Log(x *Variable, name string) (*Function, error) {
	return primitive(ops.Log, name, nil, x)
}

// Sqrt returns the square root of x.
func Sqrt(x *Variable, name string) (*Function, error) {
	return primitive(ops.Sqrt, name, nil, x)
}

// Scale returns s * x.
func Scale(x *Variable, s float64, name string) (*Function, error) {
	return primitive(ops.Scale, name, ops.Attrs{"scale": s}, x)
}

// Times returns the matrix product w[M,K] x[K,...].
func Times(w, x *Variable, name string) (*Function, error) {
	return primitive(ops.Times, name, nil, w, x)
}

// ReduceSum returns the sum of all elements of x as a scalar.
func ReduceSum(x *Variable, name string) (*Function, error) {
	return primitive(ops.ReduceSum, name, nil, x)
}

// Cast converts x to dtype.
func Cast(x *Variable, dtype tensor.DataType, name string) (*Function, error) {
	return primitive(ops.Cast, name, ops.Attrs{"dtype": float64(dtype)}, x)
}

// Combine groups outputs of other functions into one multi-output function.
func Combine(outputs []*Variable, name string) (*Function, error) {
	return combine("", outputs, name)
}

func combine(uid string, outputs []*Variable, name string) (*Function, error) {
	if len(outputs) == 0 {
		return nil, ErrEmptyCombine
	}
	seen := make(map[*Variable]bool, len(outputs))
	for i, o := range outputs {
		if o == nil {
			return nil, fmt.Errorf("%s output %d: %w", CombineOp, i, ErrNilVariable)
		}
		if seen[o] {
			return nil, fmt.Errorf("%s: duplicate output %s", CombineOp, o)
		}
		seen[o] = true
	}
	if name == "" {
		name = CombineOp
	}
	if uid == "" {
		uid = newUID()
	}
	return &Function{
		uid:     uid,
		name:    name,
		op:      CombineOp,
		inputs:  append([]*Variable(nil), outputs...),
		outputs: append([]*Variable(nil), outputs...),
	}, nil
}
