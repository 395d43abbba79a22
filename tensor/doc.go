// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the core storage types of graphcore.
//
// # Overview
//
// The package defines:
//   - Shape: tensor dimensions, with an implicit trailing sample axis on values
//   - DataType: runtime element types (float32, float64, float16, int32, int64, uint8, bool)
//   - Device: the compute device kind a tensor lives on
//   - RawTensor: engine-owned, reference-counted storage
//
// # Shapes and samples
//
// A value bound to a variable of shape S may have shape S (one sample) or
// S ++ [N] (N samples laid out contiguously):
//
//	s := tensor.Shape{2, 3}
//	batch := s.WithSamples(8)       // [2 3 8]
//	n, ok := batch.Samples(s)       // 8, true
//
// # Broadcasting
//
// Binary elementwise operations follow NumPy broadcasting rules:
//
//	out, _, err := tensor.BroadcastShapes(tensor.Shape{3, 1}, tensor.Shape{3, 4}) // [3 4]
//
// # Memory Management
//
// RawTensor storage is reference-counted. Clone shares the buffer, Copy
// duplicates it, and Release drops a reference.
package tensor
