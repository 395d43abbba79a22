package eval

import (
	"fmt"

	"github.com/born-ml/graphcore/internal/device"
	"github.com/born-ml/graphcore/internal/graph"
	"github.com/born-ml/graphcore/internal/ops"
	"github.com/born-ml/graphcore/internal/tensor"
	"github.com/born-ml/graphcore/internal/value"
)

// binding is a leaf variable's storage for one evaluation.
type binding struct {
	raw     *tensor.RawTensor
	batched bool // storage carries a trailing sample axis
}

// step is one primitive node, ready to run.
type step struct {
	fn     *graph.Function
	op     string
	attrs  ops.Attrs
	inputs []*graph.Variable
	output *graph.Variable
}

// plan is everything Evaluate validated up front. Nothing in it aliases
// the caller's maps.
type plan struct {
	dev      device.Descriptor
	samples  int
	batched  bool
	leaves   map[*graph.Variable]binding
	steps    []step
	scratch  map[*graph.Variable]*tensor.RawTensor
	requests map[*graph.Variable]*value.Value
}

// release drops every storage reference the plan took.
func (p *plan) release() {
	for _, b := range p.leaves {
		b.raw.Release()
	}
}

// outputShape is the full shape of v's result, sample axis included when
// any input carried one.
func (p *plan) outputShape(v *graph.Variable) tensor.Shape {
	if p.batched {
		return v.Shape().WithSamples(p.samples)
	}
	return v.Shape()
}

func newPlan(fn *graph.Function, inputs, outputs map[*graph.Variable]*value.Value, dev device.Descriptor) (_ *plan, err error) {
	if err := device.Check(dev); err != nil {
		return nil, err
	}

	p := &plan{
		dev:      dev,
		samples:  1,
		leaves:   make(map[*graph.Variable]binding),
		scratch:  make(map[*graph.Variable]*tensor.RawTensor),
		requests: make(map[*graph.Variable]*value.Value, len(outputs)),
	}
	defer func() {
		if err != nil {
			p.release()
		}
	}()

	args := fn.Arguments()
	isArg := make(map[*graph.Variable]bool, len(args))
	for _, arg := range args {
		isArg[arg] = true
		if v := inputs[arg]; v == nil {
			return nil, fmt.Errorf("%w: argument %s", ErrUnboundInput, arg)
		}
	}
	for k := range inputs {
		if !isArg[k] {
			return nil, fmt.Errorf("%w: %s is not an argument of %q", ErrUnboundInput, k, fn.Name())
		}
	}
	for k := range outputs {
		if k == nil || !fn.HasOutput(k) {
			return nil, fmt.Errorf("%w: %s is not an output of %q", ErrUnknownOutput, k, fn.Name())
		}
	}

	if err := p.bindArguments(args, inputs); err != nil {
		return nil, err
	}
	for _, leaf := range fn.Inputs() {
		if leaf.IsInput() {
			continue
		}
		if err := p.bindStored(leaf); err != nil {
			return nil, err
		}
	}
	if err := p.checkOutputs(outputs); err != nil {
		return nil, err
	}

	for _, node := range fn.Nodes() {
		out := node.Output()
		p.steps = append(p.steps, step{
			fn:     node,
			op:     node.Op(),
			attrs:  node.Attrs(),
			inputs: node.Operands(),
			output: out,
		})
		raw, err := tensor.NewRaw(p.outputShape(out), out.DType(), dev.Kind)
		if err != nil {
			return nil, err
		}
		p.scratch[out] = raw
	}
	return p, nil
}

// bindArguments checks every argument Value and settles the sample count.
// An argument without a sample axis counts as one sample.
func (p *plan) bindArguments(args []*graph.Variable, inputs map[*graph.Variable]*value.Value) error {
	for i, arg := range args {
		v := inputs[arg]
		if !device.Compatible(v.Device(), p.dev) {
			return fmt.Errorf("%w: argument %s is on %s, evaluating on %s", ErrDeviceMismatch, arg, v.Device(), p.dev)
		}
		if v.DType() != arg.DType() {
			return fmt.Errorf("%w: argument %s bound to %s", value.ErrDataTypeMismatch, arg, v.DType())
		}
		n, ok := v.Samples(arg.Shape())
		if !ok {
			return fmt.Errorf("%w: argument %s bound to shape %v", value.ErrShapeMismatch, arg, v.Shape())
		}
		if i == 0 {
			p.samples = n
		} else if n != p.samples {
			return fmt.Errorf("%w: argument %s has %d samples, want %d", value.ErrShapeMismatch, arg, n, p.samples)
		}
		batched := len(v.Shape()) == len(arg.Shape())+1
		p.batched = p.batched || batched

		raw, err := v.Acquire()
		if err != nil {
			return fmt.Errorf("argument %s: %w", arg, err)
		}
		p.leaves[arg] = binding{raw: raw, batched: batched}
	}
	return nil
}

// bindStored binds a parameter or constant to its own Value.
func (p *plan) bindStored(leaf *graph.Variable) error {
	v := leaf.Value()
	if v == nil {
		return fmt.Errorf("%w: %s has no value", ErrUnboundInput, leaf)
	}
	if !device.Compatible(v.Device(), p.dev) {
		return fmt.Errorf("%w: %s is on %s, evaluating on %s", ErrDeviceMismatch, leaf, v.Device(), p.dev)
	}
	raw, err := v.Acquire()
	if err != nil {
		return fmt.Errorf("%s: %w", leaf, err)
	}
	p.leaves[leaf] = binding{raw: raw}
	return nil
}

// checkOutputs validates preallocated output Values against the settled
// sample count.
func (p *plan) checkOutputs(outputs map[*graph.Variable]*value.Value) error {
	for k, v := range outputs {
		p.requests[k] = v
		if v == nil {
			continue
		}
		if !device.Compatible(v.Device(), p.dev) {
			return fmt.Errorf("%w: output %s is on %s, evaluating on %s", ErrDeviceMismatch, k, v.Device(), p.dev)
		}
		if v.DType() != k.DType() {
			return fmt.Errorf("%w: output %s preallocated as %s", value.ErrDataTypeMismatch, k, v.DType())
		}
		n, ok := v.Samples(k.Shape())
		if !ok || n != p.samples {
			return fmt.Errorf("%w: output %s preallocated as %v, want %v",
				value.ErrShapeMismatch, k, v.Shape(), p.outputShape(k))
		}
		if v.Released() {
			return fmt.Errorf("output %s: %w", k, value.ErrReleased)
		}
	}
	return nil
}

// result returns storage of p.outputShape(v) holding v's value. Computed
// outputs are returned as is; leaves are copied out, one sample at a time.
func (p *plan) result(v *graph.Variable) (*tensor.RawTensor, error) {
	if raw, ok := p.scratch[v]; ok {
		return raw, nil
	}
	out, err := tensor.NewRaw(p.outputShape(v), v.DType(), p.dev.Kind)
	if err != nil {
		return nil, err
	}
	size := v.Shape().NumElements() * v.DType().Size()
	for s := 0; s < p.samples; s++ {
		src, err := p.sampleView(v, s)
		if err != nil {
			return nil, err
		}
		copy(out.Data()[s*size:(s+1)*size], src.Data())
	}
	return out, nil
}

// sampleView returns the part of v's storage that sample s reads or
// writes. Unbatched leaves are shared by every sample.
func (p *plan) sampleView(v *graph.Variable, s int) (*tensor.RawTensor, error) {
	if raw, ok := p.scratch[v]; ok {
		if !p.batched {
			return raw, nil
		}
		return slice(raw, v.Shape(), s)
	}
	b := p.leaves[v]
	if !b.batched {
		return b.raw, nil
	}
	return slice(b.raw, v.Shape(), s)
}

// slice views sample s of a batched tensor. Samples are stored one after
// another, so each is a contiguous byte range.
func slice(raw *tensor.RawTensor, sampleShape tensor.Shape, s int) (*tensor.RawTensor, error) {
	size := sampleShape.NumElements() * raw.DType().Size()
	data := raw.Data()[s*size : (s+1)*size : (s+1)*size]
	return tensor.WrapRaw(sampleShape, raw.DType(), raw.Device(), data, nil)
}
