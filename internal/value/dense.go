package value

import (
	"fmt"
	"unsafe"

	"github.com/x448/float16"

	"github.com/born-ml/graphcore/internal/tensor"
)

// typed views raw storage as []T without copying.
func typed[T tensor.DType](raw *tensor.RawTensor) []T {
	data := raw.Data()
	if len(data) == 0 {
		return nil
	}
	//nolint:gosec // dtype checked by callers
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), raw.NumElements())
}

// Data returns a fresh flat copy of the value's elements as []T.
//
// T must match the value's data type; Float16 values may also be read as
// float32 or float64.
func Data[T tensor.DType](v *Value) ([]T, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.released {
		return nil, ErrReleased
	}
	return convertTo[T](v.raw)
}

// DenseData returns a fresh copy of the value's elements split into samples
// of sampleShape. The result aliases neither engine nor caller memory.
func DenseData[T tensor.DType](v *Value, sampleShape tensor.Shape) ([][]T, error) {
	n, ok := v.Samples(sampleShape)
	if !ok {
		return nil, fmt.Errorf("%w: value of shape %v does not hold samples of shape %v", ErrShapeMismatch, v.Shape(), sampleShape)
	}
	flat, err := Data[T](v)
	if err != nil {
		return nil, err
	}

	size := sampleShape.NumElements()
	out := make([][]T, n)
	for i := range out {
		out[i] = flat[i*size : (i+1)*size : (i+1)*size]
	}
	return out, nil
}

func convertTo[T tensor.DType](raw *tensor.RawTensor) ([]T, error) {
	want := tensor.DataTypeOf[T]()
	have := raw.DType()

	if want == have {
		src := typed[T](raw)
		out := make([]T, len(src))
		copy(out, src)
		return out, nil
	}

	if have == tensor.Float16 {
		src := raw.AsFloat16()
		switch want {
		case tensor.Float32:
			out := make([]float32, len(src))
			for i, h := range src {
				out[i] = h.Float32()
			}
			return any(out).([]T), nil
		case tensor.Float64:
			out := make([]float64, len(src))
			for i, h := range src {
				out[i] = float64(h.Float32())
			}
			return any(out).([]T), nil
		}
	}

	return nil, fmt.Errorf("%w: cannot read %s value as %s", ErrDataTypeMismatch, have, want)
}

// Float16Slice converts float32 data to half precision, rounding to nearest.
func Float16Slice(data []float32) []float16.Float16 {
	out := make([]float16.Float16, len(data))
	for i, f := range data {
		out[i] = float16.Fromfloat32(f)
	}
	return out
}
