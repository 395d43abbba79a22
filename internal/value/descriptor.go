package value

import (
	"fmt"
	"unsafe"

	"github.com/x448/float16"

	"github.com/born-ml/graphcore/internal/tensor"
)

// Descriptor is a non-owning view over caller memory plus the shape it is
// meant to have. Building a Descriptor never copies; the caller keeps the
// memory alive while the Descriptor is in use.
type Descriptor struct {
	shape  tensor.Shape
	dtype  tensor.DataType
	data   []byte         // view of the caller's backing array
	base   unsafe.Pointer // first element, nil for empty slices
	length int            // elements in the caller slice
}

// NewDescriptor describes data as a tensor of the given shape.
// The element count is checked when a Value is created, not here.
func NewDescriptor[T tensor.DType](shape tensor.Shape, data []T) Descriptor {
	d := Descriptor{
		shape:  shape.Clone(),
		dtype:  tensor.DataTypeOf[T](),
		length: len(data),
	}
	if len(data) > 0 {
		var zero T
		size := int(unsafe.Sizeof(zero))
		d.base = unsafe.Pointer(unsafe.SliceData(data))
		//nolint:gosec // byte view of the caller's slice, length bounded by len(data)
		d.data = unsafe.Slice((*byte)(d.base), len(data)*size)
	}
	return d
}

// NewFloat16Descriptor describes IEEE half-precision data.
func NewFloat16Descriptor(shape tensor.Shape, data []float16.Float16) Descriptor {
	return NewDescriptor(shape, data)
}

// Shape returns the described shape.
func (d Descriptor) Shape() tensor.Shape {
	return d.shape
}

// DType returns the element type of the caller memory.
func (d Descriptor) DType() tensor.DataType {
	return d.dtype
}

// Len returns the number of elements in the caller memory.
func (d Descriptor) Len() int {
	return d.length
}

// validate checks the descriptor against its own shape.
func (d Descriptor) validate() error {
	if err := d.shape.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrShapeMismatch, err)
	}
	if want := d.shape.NumElements(); d.length != want {
		return fmt.Errorf("%w: shape %v requires %d elements, but buffer has %d", ErrShapeMismatch, d.shape, want, d.length)
	}
	return nil
}
