// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph

import (
	"github.com/x448/float16"

	"github.com/born-ml/graphcore/internal/value"
	"github.com/born-ml/graphcore/tensor"
)

// Value is an engine-owned tensor bound to a device.
type Value = value.Value

// Descriptor is a non-owning view over a caller slice.
type Descriptor = value.Descriptor

// Mode selects how a Value takes hold of caller memory.
type Mode = value.Mode

// ValueOption configures CreateValue.
type ValueOption = value.Option

// Value modes.
const (
	// Copy copies caller memory before CreateValue returns. Default.
	Copy Mode = value.Copy
	// Borrow aliases caller memory. The caller must not mutate or drop the
	// slice until the Value is released.
	Borrow Mode = value.Borrow
)

// NewDescriptor describes data as a tensor of the given shape without
// copying it.
func NewDescriptor[T tensor.DType](shape tensor.Shape, data []T) Descriptor {
	return value.NewDescriptor(shape, data)
}

// NewFloat16Descriptor describes IEEE binary16 data.
func NewFloat16Descriptor(shape tensor.Shape, data []float16.Float16) Descriptor {
	return value.NewFloat16Descriptor(shape, data)
}

// WithMode selects Copy or Borrow.
func WithMode(m Mode) ValueOption {
	return value.WithMode(m)
}

// CreateValue creates a Value from desc on dev.
//
// Example:
//
//	buf := []float32{1, 2, 3, 4, 5, 6}
//	v, err := graph.CreateValue(graph.NewDescriptor(tensor.Shape{3, 2}, buf), graph.CPUDevice())
//	buf[0] = 100 // v still holds 1
func CreateValue(desc Descriptor, dev DeviceDescriptor, opts ...ValueOption) (*Value, error) {
	return value.Create(desc, dev, opts...)
}

// ZerosValue creates a zero-filled Value.
func ZerosValue(shape tensor.Shape, dtype tensor.DataType, dev DeviceDescriptor) (*Value, error) {
	return value.Zeros(shape, dtype, dev)
}

// ValueFromSamples packs one slice per sample into a Value of shape
// sampleShape ++ [len(samples)].
func ValueFromSamples[T tensor.DType](sampleShape tensor.Shape, samples [][]T, dev DeviceDescriptor) (*Value, error) {
	return value.FromSamples(sampleShape, samples, dev)
}

// DenseData copies v out as one slice per sample.
func DenseData[T tensor.DType](v *Value, sampleShape tensor.Shape) ([][]T, error) {
	return value.DenseData[T](v, sampleShape)
}
