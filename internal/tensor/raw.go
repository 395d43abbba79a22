package tensor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/x448/float16"
)

// Device represents the compute device kind for tensor storage.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
	CUDA
	Vulkan
	Metal
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case CUDA:
		return "CUDA"
	case Vulkan:
		return "Vulkan"
	case Metal:
		return "Metal"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// storage is a byte buffer shared by every RawTensor that references it.
// The bytes stay alive while refs > 0; onFree runs once, when the last
// reference goes.
type storage struct {
	data   []byte
	refs   atomic.Int32
	mu     sync.Mutex
	onFree func()
}

func newStorage(data []byte, onFree func()) *storage {
	st := &storage{data: data, onFree: onFree}
	st.refs.Store(1)
	return st
}

func (st *storage) retain() { st.refs.Add(1) }

// drop releases one reference. Releases past zero are ignored.
func (st *storage) drop() {
	switch n := st.refs.Add(-1); {
	case n < 0:
		st.refs.Store(0)
	case n == 0:
		st.mu.Lock()
		defer st.mu.Unlock()
		st.data = nil
		if free := st.onFree; free != nil {
			st.onFree = nil
			free()
		}
	}
}

// RawTensor is the low-level tensor representation.
// It uses reference-counted shared buffers so that several holders (a Value
// and any evaluation that bound it) keep the same storage alive.
type RawTensor struct {
	buffer *storage
	shape  Shape
	stride []int // row-major
	dtype  DataType
	device Device
}

// NewRaw creates a new RawTensor with the given shape and type.
// Memory is allocated and zero-initialized.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if !dtype.Valid() {
		return nil, fmt.Errorf("invalid data type %d", int(dtype))
	}

	numElements := shape.NumElements()
	byteSize := numElements * dtype.Size()

	return &RawTensor{
		buffer: newStorage(make([]byte, byteSize), nil),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// NewRawFromBytes allocates a RawTensor and copies data into it.
// len(data) must equal the tensor's byte size.
func NewRawFromBytes(shape Shape, dtype DataType, device Device, data []byte) (*RawTensor, error) {
	raw, err := NewRaw(shape, dtype, device)
	if err != nil {
		return nil, err
	}
	if len(data) != raw.ByteSize() {
		return nil, fmt.Errorf("shape %v of %s requires %d bytes, but got %d", shape, dtype, raw.ByteSize(), len(data))
	}
	copy(raw.buffer.data, data)
	return raw, nil
}

// WrapRaw creates a RawTensor over data without copying it.
// The tensor aliases data for its whole lifetime; onFree (may be nil) is
// called once the last reference is released.
func WrapRaw(shape Shape, dtype DataType, device Device, data []byte, onFree func()) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if !dtype.Valid() {
		return nil, fmt.Errorf("invalid data type %d", int(dtype))
	}
	if want := shape.NumElements() * dtype.Size(); len(data) != want {
		return nil, fmt.Errorf("shape %v of %s requires %d bytes, but got %d", shape, dtype, want, len(data))
	}

	return &RawTensor{
		buffer: newStorage(data, onFree),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the row-major strides of Shape in elements.
//
// They describe the tensor as a plain array. A value whose shape ends in a
// sample axis stores its samples one after another, each sample row-major,
// so for such a value the trailing axis is the outermost one in memory and
// its real stride is the element count of one sample.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	return r.buffer.data
}

// Released reports whether the storage has been freed.
func (r *RawTensor) Released() bool {
	return r.buffer.refs.Load() <= 0
}

// Typed views. Each one aliases the storage and panics when the tensor holds
// a different data type.

func (r *RawTensor) AsFloat32() []float32 { return view[float32](r, Float32) }
func (r *RawTensor) AsFloat64() []float64 { return view[float64](r, Float64) }
func (r *RawTensor) AsFloat16() []float16.Float16 { return view[float16.Float16](r, Float16) }
func (r *RawTensor) AsInt32() []int32 { return view[int32](r, Int32) }
func (r *RawTensor) AsInt64() []int64 { return view[int64](r, Int64) }
func (r *RawTensor) AsUint8() []uint8 { return view[uint8](r, Uint8) }
func (r *RawTensor) AsBool() []bool { return view[bool](r, Bool) }

func view[T DType](r *RawTensor, want DataType) []T {
	if r.dtype != want {
		panic(fmt.Sprintf("raw tensor holds %s, not %s", r.dtype, want))
	}
	data := r.buffer.data
	if len(data) == 0 {
		return nil
	}
	//nolint:gosec // length bounded by NumElements, dtype checked above
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), r.NumElements())
}

// Clone creates a shallow copy of the RawTensor that shares the buffer and
// holds its own reference. Each clone must be released independently.
func (r *RawTensor) Clone() *RawTensor {
	r.buffer.retain()
	return &RawTensor{
		buffer: r.buffer,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		device: r.device,
	}
}

// Copy creates a deep copy with freshly allocated, uniquely owned storage.
func (r *RawTensor) Copy() *RawTensor {
	data := make([]byte, len(r.buffer.data))
	copy(data, r.buffer.data)
	return &RawTensor{
		buffer: newStorage(data, nil),
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		device: r.device,
	}
}

// Reshape returns a view with a new shape of equal element count that shares
// (and references) the same buffer.
func (r *RawTensor) Reshape(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != r.NumElements() {
		return nil, fmt.Errorf("cannot reshape %v to %v", r.shape, shape)
	}
	view := r.Clone()
	view.shape = shape.Clone()
	view.stride = shape.ComputeStrides()
	return view, nil
}

// Release drops this reference. The storage is freed with the last one.
func (r *RawTensor) Release() {
	r.buffer.drop()
}

// IsUnique reports whether r holds the only reference to its storage.
func (r *RawTensor) IsUnique() bool {
	return r.buffer.refs.Load() == 1
}

// Shares reports whether r and other reference the same buffer.
func (r *RawTensor) Shares(other *RawTensor) bool {
	return r.buffer == other.buffer
}
