// Package eval runs Functions over bound Values.
//
// Evaluate validates every binding before touching any output, runs the
// graph's primitive kernels in topological order once per sample and only
// then publishes results. A failed evaluation leaves the caller's output
// map and preallocated Values as they were.
package eval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/born-ml/graphcore/internal/device"
	"github.com/born-ml/graphcore/internal/graph"
	"github.com/born-ml/graphcore/internal/ops"
	"github.com/born-ml/graphcore/internal/parallel"
	"github.com/born-ml/graphcore/internal/random"
	"github.com/born-ml/graphcore/internal/tensor"
	"github.com/born-ml/graphcore/internal/value"
)

// Config controls evaluation.
type Config struct {
	// Parallel is how kernels, or samples of a batch, fan out.
	Parallel parallel.Config

	// Determinism is the determinism context the evaluation runs under.
	// With Deterministic set, reductions use a fixed summation order.
	Determinism random.Settings

	// Registry resolves op kernels. Nil means ops.Default().
	Registry *ops.Registry
}

// DefaultConfig returns the environment's parallelism with a snapshot of
// the process-wide determinism flags.
func DefaultConfig() Config {
	return Config{
		Parallel:    parallel.DefaultConfig(),
		Determinism: random.Default().Snapshot(),
	}
}

// Evaluator evaluates Functions. It holds no per-call state, so one
// Evaluator may serve concurrent calls.
type Evaluator struct {
	cfg      Config
	registry *ops.Registry
}

// New creates an Evaluator.
func New(cfg Config) *Evaluator {
	reg := cfg.Registry
	if reg == nil {
		reg = ops.Default()
	}
	host := device.HostInfo()
	klog.V(2).InfoS("Evaluator created",
		"cpu", host.Brand, "cores", host.PhysicalCores,
		"workers", cfg.Parallel.NumWorkers, "parallel", cfg.Parallel.Enabled,
		"deterministic", cfg.Determinism.Deterministic)
	return &Evaluator{cfg: cfg, registry: reg}
}

// Config returns the evaluator's configuration.
func (e *Evaluator) Config() Config {
	return e.cfg
}

// Evaluate computes the outputs of fn named in outputs from the argument
// Values in inputs, on dev.
//
// Every argument of fn must be bound in inputs, and inputs may hold
// nothing else. Output keys must be outputs of fn; a nil entry is replaced
// by a new Value, a non-nil entry is overwritten in place. fn and inputs
// are never modified. Evaluate returns once all work has finished.
//
// ctx supplies the logger. Kernels are not interruptible, so cancellation
// is not observed.
func (e *Evaluator) Evaluate(ctx context.Context, fn *graph.Function, inputs, outputs map[*graph.Variable]*value.Value, dev device.Descriptor) error {
	if fn == nil {
		return fmt.Errorf("%w: nil function", ErrUnknownOutput)
	}
	logger := klog.FromContext(ctx).WithValues("function", fn.Name(), "device", dev)
	start := time.Now()

	p, err := newPlan(fn, inputs, outputs, dev)
	if err != nil {
		logger.V(3).Info("Evaluation rejected", "err", err)
		return err
	}
	defer p.release()

	logger.V(4).Info("Evaluating", "nodes", len(p.steps), "samples", p.samples, "batched", p.batched)

	if err := e.run(p); err != nil {
		return err
	}
	if err := p.commit(outputs); err != nil {
		return err
	}

	logger.V(4).Info("Evaluated", "elapsed", time.Since(start))
	return nil
}

// run executes every step for every sample. Samples run in parallel when
// there is more than one; kernels then stay on their sample's goroutine.
func (e *Evaluator) run(p *plan) error {
	kctx := &ops.Context{
		Parallel:      e.cfg.Parallel,
		Deterministic: e.cfg.Determinism.Deterministic,
	}
	if p.samples == 1 {
		return e.runSample(p, kctx, 0)
	}

	perSample := &ops.Context{
		Parallel:      parallel.Sequential(),
		Deterministic: kctx.Deterministic,
	}
	outer := e.cfg.Parallel
	outer.MinChunkSize = 1

	errs := make([]error, p.samples)
	parallel.For(p.samples, func(s int) {
		errs[s] = e.runSample(p, perSample, s)
	}, outer)
	return errors.Join(errs...)
}

func (e *Evaluator) runSample(p *plan, kctx *ops.Context, s int) error {
	for _, st := range p.steps {
		ins := make([]*tensor.RawTensor, len(st.inputs))
		for i, in := range st.inputs {
			view, err := p.sampleView(in, s)
			if err != nil {
				return err
			}
			ins[i] = view
		}
		out, err := p.sampleView(st.output, s)
		if err != nil {
			return err
		}
		if err := e.registry.Execute(kctx, st.op, st.attrs, ins, out); err != nil {
			return fmt.Errorf("%s %q, sample %d: %w", st.op, st.fn.Name(), s, err)
		}
	}
	return nil
}

// commit publishes results. It runs only after every kernel succeeded.
// Preallocated outputs are written first so that nothing is added to
// outputs unless all of them succeeded.
func (p *plan) commit(outputs map[*graph.Variable]*value.Value) error {
	var (
		dsts []*value.Value
		srcs []*tensor.RawTensor
	)
	for k, dst := range p.requests {
		if dst == nil {
			continue
		}
		raw, err := p.result(k)
		if err != nil {
			return err
		}
		if !raw.Shape().Equal(dst.Shape()) {
			view, err := raw.Reshape(dst.Shape())
			if err != nil {
				return fmt.Errorf("%w: output %s: %w", value.ErrShapeMismatch, k, err)
			}
			defer view.Release()
			raw = view
		}
		dsts = append(dsts, dst)
		srcs = append(srcs, raw)
	}
	if err := value.CopyAll(dsts, srcs); err != nil {
		return fmt.Errorf("outputs: %w", err)
	}

	fresh := make(map[*graph.Variable]*value.Value)
	for k, dst := range p.requests {
		if dst != nil {
			continue
		}
		raw, err := p.result(k)
		if err != nil {
			return err
		}
		fresh[k] = value.Wrap(raw, p.dev)
	}
	for k, v := range fresh {
		outputs[k] = v
	}
	return nil
}
