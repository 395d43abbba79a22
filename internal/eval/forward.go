package eval

import (
	"context"

	"github.com/born-ml/graphcore/internal/device"
	"github.com/born-ml/graphcore/internal/graph"
	"github.com/born-ml/graphcore/internal/value"
)

// Forward evaluates every output of fn with a default Evaluator and
// returns newly allocated results.
func Forward(ctx context.Context, fn *graph.Function, inputs map[*graph.Variable]*value.Value, dev device.Descriptor) (map[*graph.Variable]*value.Value, error) {
	if fn == nil {
		return nil, ErrUnknownOutput
	}
	outputs := make(map[*graph.Variable]*value.Value, len(fn.Outputs()))
	for _, out := range fn.Outputs() {
		outputs[out] = nil
	}
	if err := New(DefaultConfig()).Evaluate(ctx, fn, inputs, outputs, dev); err != nil {
		return nil, err
	}
	return outputs, nil
}
