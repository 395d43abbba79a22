// Package value implements engine-owned tensor values and the rules for
// building them from caller memory.
//
// A Value created in the default Copy mode never aliases the caller's slice:
// once Create returns, the caller may mutate or drop the slice and the engine
// still sees the contents it had at construction time. Borrow mode skips the
// copy; the caller's backing array is pinned and kept reachable until the
// Value is released, and the caller must not write to it while any
// evaluation reading the Value is in flight.
package value

import (
	"cmp"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"k8s.io/klog/v2"

	"github.com/born-ml/graphcore/internal/device"
	"github.com/born-ml/graphcore/internal/tensor"
)

// Mode selects how a Value takes hold of caller memory.
type Mode int

const (
	// Copy copies caller memory into engine storage before Create returns.
	Copy Mode = iota
	// Borrow aliases caller memory. Unsafe unless the caller leaves the
	// memory untouched until Release.
	Borrow
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Copy:
		return "copy"
	case Borrow:
		return "borrow"
	default:
		return "unknown"
	}
}

type options struct {
	mode Mode
}

// Option configures Create.
type Option func(*options)

// WithMode selects Copy (the default) or Borrow.
func WithMode(m Mode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// Value is an engine-side tensor bound to a device.
// Values are safe for concurrent use.
type Value struct {
	mu       sync.RWMutex
	raw      *tensor.RawTensor
	dev      device.Descriptor
	mode     Mode
	released bool
	seq      uint64 // lock order for CopyAll
}

var valueSeq atomic.Uint64

func newValue(raw *tensor.RawTensor, dev device.Descriptor, mode Mode) *Value {
	return &Value{raw: raw, dev: dev, mode: mode, seq: valueSeq.Add(1)}
}

// Create builds a Value from caller memory described by desc.
func Create(desc Descriptor, dev device.Descriptor, opts ...Option) (*Value, error) {
	o := options{mode: Copy}
	for _, opt := range opts {
		opt(&o)
	}

	if err := device.Check(dev); err != nil {
		return nil, err
	}
	if err := desc.validate(); err != nil {
		return nil, err
	}

	var (
		raw *tensor.RawTensor
		err error
	)
	switch o.mode {
	case Copy:
		raw, err = tensor.NewRawFromBytes(desc.shape, desc.dtype, dev.Kind, desc.data)
	case Borrow:
		pinner := new(runtime.Pinner)
		pinner.Pin(desc.base)
		raw, err = tensor.WrapRaw(desc.shape, desc.dtype, dev.Kind, desc.data, pinner.Unpin)
		if err != nil {
			pinner.Unpin()
		}
	default:
		return nil, fmt.Errorf("unknown value mode %d", int(o.mode))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShapeMismatch, err)
	}

	klog.V(5).InfoS("created value", "shape", desc.shape, "dtype", desc.dtype, "device", dev, "mode", o.mode)

	v := newValue(raw, dev, o.mode)
	if o.mode == Borrow {
		// Unpins the caller memory if the Value is dropped without Release.
		runtime.SetFinalizer(v, (*Value).Release)
	}
	return v, nil
}

// FromSlice is shorthand for Create(NewDescriptor(shape, data), dev, opts...).
func FromSlice[T tensor.DType](shape tensor.Shape, data []T, dev device.Descriptor, opts ...Option) (*Value, error) {
	return Create(NewDescriptor(shape, data), dev, opts...)
}

// FromSamples builds an owning Value of shape sampleShape ++ [len(samples)]
// from per-sample slices.
func FromSamples[T tensor.DType](sampleShape tensor.Shape, samples [][]T, dev device.Descriptor) (*Value, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrShapeMismatch)
	}
	n := sampleShape.NumElements()
	v, err := Zeros(sampleShape.WithSamples(len(samples)), tensor.DataTypeOf[T](), dev)
	if err != nil {
		return nil, err
	}
	dst := typed[T](v.raw)
	for i, s := range samples {
		if len(s) != n {
			return nil, fmt.Errorf("%w: sample %d has %d elements, shape %v requires %d", ErrShapeMismatch, i, len(s), sampleShape, n)
		}
		copy(dst[i*n:(i+1)*n], s)
	}
	return v, nil
}

// Zeros allocates a zero-filled owning Value.
func Zeros(shape tensor.Shape, dtype tensor.DataType, dev device.Descriptor) (*Value, error) {
	if err := device.Check(dev); err != nil {
		return nil, err
	}
	raw, err := tensor.NewRaw(shape, dtype, dev.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShapeMismatch, err)
	}
	return newValue(raw, dev, Copy), nil
}

// Wrap takes ownership of raw. Used by the evaluator for results.
func Wrap(raw *tensor.RawTensor, dev device.Descriptor) *Value {
	return newValue(raw, dev, Copy)
}

// Shape returns the value's full shape, including any sample axis.
func (v *Value) Shape() tensor.Shape {
	return v.raw.Shape()
}

// DType returns the element type.
func (v *Value) DType() tensor.DataType {
	return v.raw.DType()
}

// Device returns the device the value's storage lives on.
func (v *Value) Device() device.Descriptor {
	return v.dev
}

// Mode returns how the value was created.
func (v *Value) Mode() Mode {
	return v.mode
}

// OwnsData reports whether the storage belongs to the engine.
// It is false only for Borrow-mode values.
func (v *Value) OwnsData() bool {
	return v.mode != Borrow
}

// Samples reports how many samples of sampleShape the value holds.
func (v *Value) Samples(sampleShape tensor.Shape) (int, bool) {
	return v.raw.Shape().Samples(sampleShape)
}

// Acquire returns a new reference to the value's storage. The storage stays
// alive (and borrowed memory stays pinned) until the reference is released,
// even if the Value itself is released first.
func (v *Value) Acquire() (*tensor.RawTensor, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.released {
		return nil, ErrReleased
	}
	return v.raw.Clone(), nil
}

// Release drops the Value's reference to its storage. Safe to call more
// than once.
func (v *Value) Release() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released {
		return
	}
	v.released = true
	v.raw.Release()
}

// Released reports whether Release has been called.
func (v *Value) Released() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.released
}

// Clone returns a deep, engine-owned copy.
func (v *Value) Clone() (*Value, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.released {
		return nil, ErrReleased
	}
	return newValue(v.raw.Copy(), v.dev, Copy), nil
}

// CopyFrom overwrites the value's contents with src's.
// Shapes and data types must match exactly.
func (v *Value) CopyFrom(src *tensor.RawTensor) error {
	return CopyAll([]*Value{v}, []*tensor.RawTensor{src})
}

// CopyAll copies srcs[i] into dsts[i]. Either every destination is written
// or none is: all destinations are locked and checked before the first copy.
func CopyAll(dsts []*Value, srcs []*tensor.RawTensor) error {
	if len(dsts) != len(srcs) {
		return fmt.Errorf("%d destinations for %d sources", len(dsts), len(srcs))
	}
	for i, dst := range dsts {
		src := srcs[i]
		if !src.Shape().Equal(dst.raw.Shape()) {
			return fmt.Errorf("%w: cannot copy %v into %v", ErrShapeMismatch, src.Shape(), dst.raw.Shape())
		}
		if src.DType() != dst.raw.DType() {
			return fmt.Errorf("%w: cannot copy %s into %s", ErrDataTypeMismatch, src.DType(), dst.raw.DType())
		}
	}

	locked := slices.Clone(dsts)
	slices.SortFunc(locked, func(a, b *Value) int { return cmp.Compare(a.seq, b.seq) })
	locked = slices.Compact(locked)
	for _, v := range locked {
		v.mu.Lock()
		defer v.mu.Unlock()
	}
	for _, v := range locked {
		if v.released {
			return ErrReleased
		}
	}
	for i, dst := range dsts {
		copy(dst.raw.Data(), srcs[i].Data())
	}
	return nil
}

// String returns a short description.
func (v *Value) String() string {
	return fmt.Sprintf("Value[%s]%v on %s (%s)", v.raw.DType(), v.raw.Shape(), v.dev, v.mode)
}
