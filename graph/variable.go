// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph

import (
	"github.com/born-ml/graphcore/internal/graph"
	"github.com/born-ml/graphcore/internal/random"
	"github.com/born-ml/graphcore/tensor"
)

// Variable is a typed, shaped slot in a graph.
type Variable = graph.Variable

// Function is an immutable graph node. A Function whose operands are outputs
// of other Functions is a composite graph.
type Function = graph.Function

// Kind classifies a Variable.
type Kind = graph.Kind

// Variable kinds.
const (
	InputKind     Kind = graph.InputKind
	ParameterKind Kind = graph.ParameterKind
	ConstantKind  Kind = graph.ConstantKind
	OutputKind    Kind = graph.OutputKind
)

// Initializer fills parameter storage at construction time.
type Initializer = random.Initializer

// InputVariable creates an argument Variable that must be bound on every
// evaluation.
func InputVariable(shape tensor.Shape, dtype tensor.DataType, name string) (*Variable, error) {
	return graph.InputVariable(shape, dtype, name)
}

// Parameter creates a Variable holding a value drawn from init. The
// process-wide seed is consulted when the value is drawn.
//
// Example:
//
//	w, err := graph.Parameter(tensor.Shape{10, 784}, tensor.Float32,
//	    graph.GlorotUniform(1, 1, 0), graph.CPUDevice(), "W")
func Parameter(shape tensor.Shape, dtype tensor.DataType, init Initializer, dev DeviceDescriptor, name string) (*Variable, error) {
	return graph.Parameter(shape, dtype, init, dev, name)
}

// ParameterFromValue creates a Parameter holding a copy of v.
func ParameterFromValue(v *Value, name string) (*Variable, error) {
	return graph.ParameterFromValue(v, name)
}

// Constant creates a Variable with every element set to fill.
func Constant(shape tensor.Shape, dtype tensor.DataType, fill float64, dev DeviceDescriptor, name string) (*Variable, error) {
	return graph.Constant(shape, dtype, fill, dev, name)
}

// ConstantFromValue creates a Constant holding a copy of v.
func ConstantFromValue(v *Value, name string) (*Variable, error) {
	return graph.ConstantFromValue(v, name)
}

// GlorotUniform returns a Glorot (Xavier) uniform initializer.
func GlorotUniform(scale float64, outputRank, filterRank int) Initializer {
	return random.GlorotUniform{Scale: scale, OutputRank: outputRank, FilterRank: filterRank}
}

// Uniform returns an initializer drawing from U(-scale, scale).
func Uniform(scale float64) Initializer {
	return random.Uniform{Scale: scale}
}

// Normal returns an initializer drawing from N(0, scale²).
func Normal(scale float64) Initializer {
	return random.Normal{Scale: scale}
}

// ConstantInit returns an initializer that fills every element with v.
func ConstantInit(v float64) Initializer {
	return random.Constant{Value: v}
}
