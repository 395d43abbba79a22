package ops

import (
	"fmt"

	"github.com/born-ml/graphcore/internal/tensor"
	"github.com/born-ml/graphcore/internal/value"
)

// dtypeClass restricts which element types an op accepts.
type dtypeClass int

const (
	anyType dtypeClass = iota
	numeric            // everything but bool
	signed             // floats and signed integers
	floating           // float16, float32, float64
)

func (c dtypeClass) accepts(dt tensor.DataType) bool {
	switch c {
	case anyType:
		return dt.Valid()
	case numeric:
		return dt.Valid() && dt != tensor.Bool
	case signed:
		return dt.IsFloat() || dt == tensor.Int32 || dt == tensor.Int64
	case floating:
		return dt.IsFloat()
	default:
		return false
	}
}

func (c dtypeClass) String() string {
	switch c {
	case numeric:
		return "numeric"
	case signed:
		return "signed"
	case floating:
		return "floating-point"
	default:
		return "any"
	}
}

func checkDType(op string, c dtypeClass, dt tensor.DataType) error {
	if !c.accepts(dt) {
		return fmt.Errorf("%w: %s requires a %s type, got %s", value.ErrDataTypeMismatch, op, c, dt)
	}
	return nil
}

// inferSame returns the operand type unchanged.
func inferSame(op string, c dtypeClass) InferFunc {
	return func(operands []Operand, _ Attrs) (Operand, error) {
		x := operands[0]
		if err := checkDType(op, c, x.DType); err != nil {
			return Operand{}, err
		}
		return Operand{Shape: x.Shape.Clone(), DType: x.DType}, nil
	}
}

// inferBroadcast applies NumPy broadcasting to two operands of one type.
func inferBroadcast(op string, c dtypeClass) InferFunc {
	return func(operands []Operand, _ Attrs) (Operand, error) {
		a, b := operands[0], operands[1]
		if a.DType != b.DType {
			return Operand{}, fmt.Errorf("%w: %s operands are %s and %s", value.ErrDataTypeMismatch, op, a.DType, b.DType)
		}
		if err := checkDType(op, c, a.DType); err != nil {
			return Operand{}, err
		}
		shape, _, err := tensor.BroadcastShapes(a.Shape, b.Shape)
		if err != nil {
			return Operand{}, fmt.Errorf("%w: %s: %w", value.ErrShapeMismatch, op, err)
		}
		return Operand{Shape: shape, DType: a.DType}, nil
	}
}

// inferTimes handles [M, K] x [K, ...] -> [M, ...].
func inferTimes(operands []Operand, _ Attrs) (Operand, error) {
	a, b := operands[0], operands[1]
	if a.DType != b.DType {
		return Operand{}, fmt.Errorf("%w: Times operands are %s and %s", value.ErrDataTypeMismatch, a.DType, b.DType)
	}
	if err := checkDType(Times, numeric, a.DType); err != nil {
		return Operand{}, err
	}
	if len(a.Shape) != 2 {
		return Operand{}, fmt.Errorf("%w: Times left operand must be a matrix, got %v", value.ErrShapeMismatch, a.Shape)
	}
	if len(b.Shape) == 0 || b.Shape[0] != a.Shape[1] {
		return Operand{}, fmt.Errorf("%w: Times cannot multiply %v by %v", value.ErrShapeMismatch, a.Shape, b.Shape)
	}
	shape := append(tensor.Shape{a.Shape[0]}, b.Shape[1:]...)
	return Operand{Shape: shape, DType: a.DType}, nil
}

func inferReduceSum(operands []Operand, _ Attrs) (Operand, error) {
	x := operands[0]
	if err := checkDType(ReduceSum, numeric, x.DType); err != nil {
		return Operand{}, err
	}
	return Operand{Shape: tensor.Shape{}, DType: x.DType}, nil
}

func inferCast(operands []Operand, attrs Attrs) (Operand, error) {
	x := operands[0]
	to := tensor.DataType(int(attrs.Get("dtype", -1)))
	if !to.Valid() {
		return Operand{}, fmt.Errorf("%w: Cast target %d", value.ErrDataTypeMismatch, int(to))
	}
	if !x.DType.Valid() {
		return Operand{}, fmt.Errorf("%w: Cast source %d", value.ErrDataTypeMismatch, int(x.DType))
	}
	return Operand{Shape: x.Shape.Clone(), DType: to}, nil
}
