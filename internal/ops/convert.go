package ops

import (
	"fmt"
	"math"

	"github.com/x448/float16"

	"github.com/born-ml/graphcore/internal/tensor"
	"github.com/born-ml/graphcore/internal/value"
)

func (r *Registry) registerConversion() {
	r.Register(Op{Name: Cast, Arity: 1, Infer: inferCast, Kernel: castKernel})
}

func castKernel(_ *Context, _ Attrs, inputs []*tensor.RawTensor, out *tensor.RawTensor) error {
	return convertInto(inputs[0], out)
}

// ToFloat64 returns the elements of raw widened to float64. Bools map to 0/1.
func ToFloat64(raw *tensor.RawTensor) []float64 {
	out := make([]float64, raw.NumElements())
	switch raw.DType() {
	case tensor.Float32:
		for i, v := range elems[float32](raw) {
			out[i] = float64(v)
		}
	case tensor.Float64:
		copy(out, elems[float64](raw))
	case tensor.Float16:
		for i, v := range elems[float16.Float16](raw) {
			out[i] = float64(v.Float32())
		}
	case tensor.Int32:
		for i, v := range elems[int32](raw) {
			out[i] = float64(v)
		}
	case tensor.Int64:
		for i, v := range elems[int64](raw) {
			out[i] = float64(v)
		}
	case tensor.Uint8:
		for i, v := range elems[uint8](raw) {
			out[i] = float64(v)
		}
	case tensor.Bool:
		for i, v := range elems[bool](raw) {
			if v {
				out[i] = 1
			}
		}
	}
	return out
}

// StoreFloat64 narrows data into raw. Integers are rounded and saturated;
// bools are true for non-zero values.
func StoreFloat64(raw *tensor.RawTensor, data []float64) error {
	if len(data) != raw.NumElements() {
		return fmt.Errorf("%w: %d values for %v", value.ErrShapeMismatch, len(data), raw.Shape())
	}
	switch raw.DType() {
	case tensor.Float32:
		dst := elems[float32](raw)
		for i, v := range data {
			dst[i] = float32(v)
		}
	case tensor.Float64:
		copy(elems[float64](raw), data)
	case tensor.Float16:
		dst := elems[float16.Float16](raw)
		for i, v := range data {
			dst[i] = float16.Fromfloat32(float32(v))
		}
	case tensor.Int32:
		dst := elems[int32](raw)
		for i, v := range data {
			dst[i] = int32(saturate(v, math.MinInt32, math.MaxInt32))
		}
	case tensor.Int64:
		dst := elems[int64](raw)
		for i, v := range data {
			if v >= 1<<63 {
				dst[i] = math.MaxInt64
				continue
			}
			dst[i] = int64(saturate(v, math.MinInt64, math.MaxInt64))
		}
	case tensor.Uint8:
		dst := elems[uint8](raw)
		for i, v := range data {
			dst[i] = uint8(saturate(v, 0, math.MaxUint8))
		}
	case tensor.Bool:
		dst := elems[bool](raw)
		for i, v := range data {
			dst[i] = v != 0
		}
	default:
		return fmt.Errorf("%w: %s", value.ErrDataTypeMismatch, raw.DType())
	}
	return nil
}

// FromFloat64 allocates a tensor of dtype holding data.
func FromFloat64(data []float64, shape tensor.Shape, dtype tensor.DataType, dev tensor.Device) (*tensor.RawTensor, error) {
	raw, err := tensor.NewRaw(shape, dtype, dev)
	if err != nil {
		return nil, err
	}
	if err := StoreFloat64(raw, data); err != nil {
		return nil, err
	}
	return raw, nil
}

func saturate(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(math.Round(v), lo), hi)
}

// convert returns a new tensor holding src converted to dtype.
func convert(src *tensor.RawTensor, dtype tensor.DataType) (*tensor.RawTensor, error) {
	dst, err := tensor.NewRaw(src.Shape(), dtype, src.Device())
	if err != nil {
		return nil, err
	}
	if err := convertInto(src, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// convertInto writes src into dst, converting element types.
func convertInto(src, dst *tensor.RawTensor) error {
	if src.NumElements() != dst.NumElements() {
		return fmt.Errorf("%w: cannot convert %v into %v", value.ErrShapeMismatch, src.Shape(), dst.Shape())
	}
	if src.DType() == dst.DType() {
		copy(dst.Data(), src.Data())
		return nil
	}
	if src.DType() == tensor.Float16 && dst.DType() == tensor.Float32 {
		d := elems[float32](dst)
		for i, h := range elems[float16.Float16](src) {
			d[i] = h.Float32()
		}
		return nil
	}
	if src.DType() == tensor.Float32 && dst.DType() == tensor.Float16 {
		d := elems[float16.Float16](dst)
		for i, f := range elems[float32](src) {
			d[i] = float16.Fromfloat32(f)
		}
		return nil
	}
	return StoreFloat64(dst, ToFloat64(src))
}
