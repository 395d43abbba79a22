package graph

import (
	"fmt"

	"github.com/born-ml/graphcore/internal/ops"
	"github.com/born-ml/graphcore/internal/tensor"
	"github.com/born-ml/graphcore/internal/value"
)

// RestoreLeaf rebuilds an argument, parameter or constant with a known uid.
// Parameters and constants take ownership of val.
func RestoreLeaf(uid, name string, kind Kind, shape tensor.Shape, dtype tensor.DataType, val *value.Value) (*Variable, error) {
	if err := checkType(shape, dtype); err != nil {
		return nil, err
	}
	switch kind {
	case InputKind:
		if val != nil {
			return nil, fmt.Errorf("input %q carries a value", name)
		}
	case ParameterKind, ConstantKind:
		if val == nil {
			return nil, fmt.Errorf("%s %q has no value", kind, name)
		}
		if !val.Shape().Equal(shape) || val.DType() != dtype {
			return nil, fmt.Errorf("%w: %s %q declared %v %s, value is %v %s",
				value.ErrShapeMismatch, kind, name, shape, dtype, val.Shape(), val.DType())
		}
	default:
		return nil, fmt.Errorf("cannot restore %s variable %q as a leaf", kind, name)
	}
	return &Variable{
		uid:   uid,
		name:  name,
		kind:  kind,
		shape: shape.Clone(),
		dtype: dtype,
		value: val,
	}, nil
}

// RestoreFunction rebuilds a function with known uids. Output types are
// inferred again from the operands. outputUID is ignored for CombineOp.
func RestoreFunction(uid, name, op string, inputs []*Variable, attrs ops.Attrs, outputUID string) (*Function, error) {
	if op == CombineOp {
		return combine(uid, inputs, name)
	}
	fn, err := newPrimitive(uid, op, name, attrs, inputs...)
	if err != nil {
		return nil, err
	}
	if outputUID != "" {
		fn.outputs[0].uid = outputUID
	}
	return fn, nil
}
