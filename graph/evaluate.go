// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph

import (
	"context"

	"github.com/born-ml/graphcore/internal/eval"
)

// Evaluator evaluates Functions. One Evaluator may serve concurrent calls.
type Evaluator = eval.Evaluator

// EvalConfig controls evaluation.
type EvalConfig = eval.Config

// DefaultEvalConfig returns the environment's parallelism and a snapshot of
// the process-wide determinism flags.
func DefaultEvalConfig() EvalConfig {
	return eval.DefaultConfig()
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(cfg EvalConfig) *Evaluator {
	return eval.New(cfg)
}

// Evaluate runs fn with a default Evaluator. Nil entries in outputs are
// allocated; non-nil entries are overwritten in place. On error neither
// outputs nor its Values are modified.
func Evaluate(ctx context.Context, fn *Function, inputs, outputs map[*Variable]*Value, dev DeviceDescriptor) error {
	return eval.New(eval.DefaultConfig()).Evaluate(ctx, fn, inputs, outputs, dev)
}

// Forward evaluates every output of fn and returns new Values.
func Forward(ctx context.Context, fn *Function, inputs map[*Variable]*Value, dev DeviceDescriptor) (map[*Variable]*Value, error) {
	return eval.Forward(ctx, fn, inputs, dev)
}
