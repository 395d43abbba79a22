// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph provides the public API of graphcore: building computation
// graphs, binding caller buffers to values and evaluating graphs.
//
// # Overview
//
// A graph is built from Variables (inputs, parameters and constants) and the
// Functions that combine them. Evaluating a Function binds a Value to every
// input Variable and produces a Value for every requested output.
//
//	x, _ := graph.InputVariable(tensor.Shape{3}, tensor.Float32, "x")
//	w, _ := graph.Parameter(tensor.Shape{2, 3}, tensor.Float32,
//	    graph.GlorotUniform(1, 1, 0), graph.CPUDevice(), "W")
//	wx, _ := graph.Times(w, x, "")
//	model, _ := graph.ReLU(wx.Output(), "model")
//
//	buf := []float32{1, 2, 3}
//	in, _ := graph.CreateValue(graph.NewDescriptor(tensor.Shape{3}, buf), graph.CPUDevice())
//	outputs := map[*graph.Variable]*graph.Value{model.Output(): nil}
//	err := graph.Evaluate(ctx, model, map[*graph.Variable]*graph.Value{x: in}, outputs, graph.CPUDevice())
//	rows, _ := graph.DenseData[float32](outputs[model.Output()], model.Output().Shape())
//
// # Buffer ownership
//
// CreateValue copies the caller's slice into engine storage by default, so the
// slice may be reused, mutated or dropped as soon as CreateValue returns.
// WithMode(Borrow) aliases the slice instead; the caller must then leave it
// untouched until the Value is released.
//
// # Samples
//
// A Value bound to a Variable of shape S may have shape S (one sample) or
// S ++ [N] (N samples). All arguments of one evaluation share N.
//
// # Determinism
//
// SetFixedRandomSeed and ForceDeterministicAlgorithms set process-wide flags.
// Parameter initialization reads the seed when it draws; evaluation snapshots
// the flags into its Config when the Evaluator is created.
package graph
