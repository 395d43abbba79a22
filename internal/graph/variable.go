// Package graph defines Variables and Functions, the immutable nodes of a
// computation graph.
package graph

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/born-ml/graphcore/internal/device"
	"github.com/born-ml/graphcore/internal/ops"
	"github.com/born-ml/graphcore/internal/random"
	"github.com/born-ml/graphcore/internal/tensor"
	"github.com/born-ml/graphcore/internal/value"
)

// Kind tells what a Variable stands for.
type Kind int

// Variable kinds.
const (
	InputKind Kind = iota
	ParameterKind
	ConstantKind
	OutputKind
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case InputKind:
		return "input"
	case ParameterKind:
		return "parameter"
	case ConstantKind:
		return "constant"
	case OutputKind:
		return "output"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k := InputKind; k <= OutputKind; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Variable is a named slot in a graph: an argument bound at evaluation
// time, a parameter or constant carrying its own Value, or the output of a
// Function.
type Variable struct {
	uid   string
	name  string
	kind  Kind
	shape tensor.Shape
	dtype tensor.DataType
	owner *Function    // Output only
	value *value.Value // Parameter and Constant only
}

// UID returns the variable's unique id.
func (v *Variable) UID() string { return v.uid }

// Name returns the user-supplied name, possibly empty.
func (v *Variable) Name() string { return v.name }

// Kind returns the variable kind.
func (v *Variable) Kind() Kind { return v.kind }

// Shape returns a copy of the per-sample shape.
func (v *Variable) Shape() tensor.Shape { return v.shape.Clone() }

// DType returns the element type.
func (v *Variable) DType() tensor.DataType { return v.dtype }

// Owner returns the Function producing an Output variable, or nil.
func (v *Variable) Owner() *Function { return v.owner }

// Value returns the value carried by a Parameter or Constant, or nil.
func (v *Variable) Value() *value.Value { return v.value }

// IsInput reports whether v must be bound at evaluation time.
func (v *Variable) IsInput() bool { return v.kind == InputKind }

// String returns e.g. `input("Images", [40 40 2], float32)`.
func (v *Variable) String() string {
	return fmt.Sprintf("%s(%q, %v, %s)", v.kind, v.name, []int(v.shape), v.dtype)
}

func newUID() string {
	return uuid.NewString()
}

func checkType(shape tensor.Shape, dtype tensor.DataType) error {
	if err := shape.Validate(); err != nil {
		return fmt.Errorf("%w: %w", value.ErrShapeMismatch, err)
	}
	if !dtype.Valid() {
		return fmt.Errorf("%w: %d", value.ErrDataTypeMismatch, int(dtype))
	}
	return nil
}

// InputVariable declares an argument of the given per-sample shape.
func InputVariable(shape tensor.Shape, dtype tensor.DataType, name string) (*Variable, error) {
	if err := checkType(shape, dtype); err != nil {
		return nil, err
	}
	return &Variable{
		uid:   newUID(),
		name:  name,
		kind:  InputKind,
		shape: shape.Clone(),
		dtype: dtype,
	}, nil
}

// ParameterWithState creates a learnable parameter initialized by init.
// The random draw happens here, under state.
func ParameterWithState(shape tensor.Shape, dtype tensor.DataType, init random.Initializer, dev device.Descriptor, name string, state *random.State) (*Variable, error) {
	if err := checkType(shape, dtype); err != nil {
		return nil, err
	}
	if err := device.Check(dev); err != nil {
		return nil, err
	}
	raw, err := ops.FromFloat64(random.Draw(init, shape, state), shape, dtype, dev.Kind)
	if err != nil {
		return nil, err
	}
	return &Variable{
		uid:   newUID(),
		name:  name,
		kind:  ParameterKind,
		shape: shape.Clone(),
		dtype: dtype,
		value: value.Wrap(raw, dev),
	}, nil
}

// Parameter is ParameterWithState under the process-wide determinism state.
func Parameter(shape tensor.Shape, dtype tensor.DataType, init random.Initializer, dev device.Descriptor, name string) (*Variable, error) {
	return ParameterWithState(shape, dtype, init, dev, name, random.Default())
}

// ParameterFromValue creates a parameter holding a deep copy of v.
func ParameterFromValue(v *value.Value, name string) (*Variable, error) {
	return fromValue(v, ParameterKind, name)
}

// ConstantFromValue creates a constant holding a deep copy of v.
func ConstantFromValue(v *value.Value, name string) (*Variable, error) {
	return fromValue(v, ConstantKind, name)
}

// Constant creates a constant filled with fill.
func Constant(shape tensor.Shape, dtype tensor.DataType, fill float64, dev device.Descriptor, name string) (*Variable, error) {
	if err := checkType(shape, dtype); err != nil {
		return nil, err
	}
	if err := device.Check(dev); err != nil {
		return nil, err
	}
	data := make([]float64, shape.NumElements())
	for i := range data {
		data[i] = fill
	}
	raw, err := ops.FromFloat64(data, shape, dtype, dev.Kind)
	if err != nil {
		return nil, err
	}
	return &Variable{
		uid:   newUID(),
		name:  name,
		kind:  ConstantKind,
		shape: shape.Clone(),
		dtype: dtype,
		value: value.Wrap(raw, dev),
	}, nil
}

func fromValue(v *value.Value, kind Kind, name string) (*Variable, error) {
	c, err := v.Clone()
	if err != nil {
		return nil, err
	}
	return &Variable{
		uid:   newUID(),
		name:  name,
		kind:  kind,
		shape: c.Shape().Clone(),
		dtype: c.DType(),
		value: c,
	}, nil
}
