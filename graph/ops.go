// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph

import (
	"github.com/born-ml/graphcore/internal/graph"
	"github.com/born-ml/graphcore/tensor"
)

// Function constructors. An empty name defaults to the op name. Binary
// elementwise ops broadcast their operands; incompatible shapes fail with
// ErrShapeMismatch.

// Alias forwards x unchanged.
func Alias(x *Variable, name string) (*Function, error) { return graph.Alias(x, name) }

// Plus computes a + b.
func Plus(a, b *Variable, name string) (*Function, error) { return graph.Plus(a, b, name) }

// Minus computes a - b.
func Minus(a, b *Variable, name string) (*Function, error) { return graph.Minus(a, b, name) }

// ElementTimes computes a * b elementwise.
func ElementTimes(a, b *Variable, name string) (*Function, error) {
	return graph.ElementTimes(a, b, name)
}

// Negate computes -x.
func Negate(x *Variable, name string) (*Function, error) { return graph.Negate(x, name) }

// ReLU computes max(x, 0).
func ReLU(x *Variable, name string) (*Function, error) { return graph.ReLU(x, name) }

// Sigmoid computes 1 / (1 + exp(-x)).
func Sigmoid(x *Variable, name string) (*Function, error) { return graph.Sigmoid(x, name) }

// Tanh computes tanh(x).
func Tanh(x *Variable, name string) (*Function, error) { return graph.Tanh(x, name) }

// Exp computes e^x.
func Exp(x *Variable, name string) (*Function, error) { return graph.Exp(x, name) }

// Log computes the natural logarithm of x.
func Log(x *Variable, name string) (*Function, error) { return graph.Log(x, name) }

// Sqrt computes the square root of x.
func Sqrt(x *Variable, name string) (*Function, error) { return graph.Sqrt(x, name) }

// Scale computes s * x.
func Scale(x *Variable, s float64, name string) (*Function, error) { return graph.Scale(x, s, name) }

// Times computes the product of w [M, K] with x [K, ...].
func Times(w, x *Variable, name string) (*Function, error) { return graph.Times(w, x, name) }

// ReduceSum sums every element of x into a scalar.
func ReduceSum(x *Variable, name string) (*Function, error) { return graph.ReduceSum(x, name) }

// Cast converts x to dtype.
func Cast(x *Variable, dtype tensor.DataType, name string) (*Function, error) {
	return graph.Cast(x, dtype, name)
}

// Combine groups outputs of other Functions into one multi-output Function.
func Combine(outputs []*Variable, name string) (*Function, error) {
	return graph.Combine(outputs, name)
}
