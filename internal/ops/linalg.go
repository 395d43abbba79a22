package ops

import (
	"fmt"

	"github.com/born-ml/graphcore/internal/parallel"
	"github.com/born-ml/graphcore/internal/tensor"
	"github.com/born-ml/graphcore/internal/value"
)

func (r *Registry) registerLinalg() {
	r.Register(Op{Name: Times, Arity: 2, Infer: inferTimes, Kernel: timesKernel})
	r.Register(Op{Name: ReduceSum, Arity: 1, Infer: inferReduceSum, Kernel: reduceSumKernel})
}

// timesKernel computes out[m, p] = sum_k a[m, k] * b[k, p], with b's
// trailing axes flattened into p.
func timesKernel(ctx *Context, _ Attrs, inputs []*tensor.RawTensor, out *tensor.RawTensor) error {
	a, b := inputs[0], inputs[1]
	m, k := a.Shape()[0], a.Shape()[1]
	p := b.NumElements() / k

	switch out.DType() {
	case tensor.Float32:
		matmul(ctx.Parallel, elems[float32](out), elems[float32](a), elems[float32](b), m, k, p)
	case tensor.Float64:
		matmul(ctx.Parallel, elems[float64](out), elems[float64](a), elems[float64](b), m, k, p)
	case tensor.Int32:
		matmul(ctx.Parallel, elems[int32](out), elems[int32](a), elems[int32](b), m, k, p)
	case tensor.Int64:
		matmul(ctx.Parallel, elems[int64](out), elems[int64](a), elems[int64](b), m, k, p)
	case tensor.Uint8:
		matmul(ctx.Parallel, elems[uint8](out), elems[uint8](a), elems[uint8](b), m, k, p)
	case tensor.Float16:
		return viaFloat32(inputs, out, func(ins []*tensor.RawTensor, o *tensor.RawTensor) error {
			matmul(ctx.Parallel, elems[float32](o), elems[float32](ins[0]), elems[float32](ins[1]), m, k, p)
			return nil
		})
	default:
		return fmt.Errorf("%w: Times on %s", value.ErrDataTypeMismatch, out.DType())
	}
	return nil
}

// matmul parallelizes over output elements; each dot product is summed in
// a fixed order, so the result does not depend on scheduling.
func matmul[E number](cfg parallel.Config, dst, a, b []E, m, k, p int) {
	parallel.ForRange(m*p, func(start, end int) {
		for idx := start; idx < end; idx++ {
			row, col := idx/p, idx%p
			var sum E
			for j := 0; j < k; j++ {
				sum += a[row*k+j] * b[j*p+col]
			}
			dst[idx] = sum
		}
	}, cfg)
}

func reduceSumKernel(ctx *Context, _ Attrs, inputs []*tensor.RawTensor, out *tensor.RawTensor) error {
	x := inputs[0]
	switch x.DType() {
	case tensor.Float32:
		elems[float32](out)[0] = sum(ctx, elems[float32](x))
	case tensor.Float64:
		elems[float64](out)[0] = sum(ctx, elems[float64](x))
	case tensor.Int32:
		elems[int32](out)[0] = sum(ctx, elems[int32](x))
	case tensor.Int64:
		elems[int64](out)[0] = sum(ctx, elems[int64](x))
	case tensor.Uint8:
		elems[uint8](out)[0] = sum(ctx, elems[uint8](x))
	case tensor.Float16:
		return viaFloat32(inputs, out, func(ins []*tensor.RawTensor, o *tensor.RawTensor) error {
			elems[float32](o)[0] = sum(ctx, elems[float32](ins[0]))
			return nil
		})
	default:
		return fmt.Errorf("%w: ReduceSum on %s", value.ErrDataTypeMismatch, x.DType())
	}
	return nil
}

// sum adds xs. With deterministic algorithms forced, or without
// parallelism, it is a single left-to-right pass whose result is independent
// of the worker count. Otherwise each worker sums one chunk and the partial
// sums are combined.
func sum[E number](ctx *Context, xs []E) E {
	cfg := ctx.Parallel
	if ctx.Deterministic || !cfg.Enabled || cfg.NumWorkers <= 1 || len(xs) < 2*max(cfg.MinChunkSize, 1) {
		var s E
		for _, x := range xs {
			s += x
		}
		return s
	}

	chunks := cfg.NumWorkers
	size := (len(xs) + chunks - 1) / chunks
	partial := make([]E, chunks)
	parallel.For(chunks, func(c int) {
		start := c * size
		end := min(start+size, len(xs))
		var s E
		for i := start; i < end; i++ {
			s += xs[i]
		}
		partial[c] = s
	}, parallel.Config{Enabled: true, NumWorkers: chunks, MinChunkSize: 1})

	var s E
	for _, p := range partial {
		s += p
	}
	return s
}
