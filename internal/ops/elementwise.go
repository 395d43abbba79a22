package ops

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/born-ml/graphcore/internal/parallel"
	"github.com/born-ml/graphcore/internal/tensor"
	"github.com/born-ml/graphcore/internal/value"
)

type number interface {
	float32 | float64 | int32 | int64 | uint8
}

// registerElementwise adds unary and broadcasting binary ops.
func (r *Registry) registerElementwise() {
	r.Register(Op{Name: Alias, Arity: 1, Infer: inferSame(Alias, anyType), Kernel: aliasKernel})

	r.Register(Op{Name: Plus, Arity: 2, Infer: inferBroadcast(Plus, numeric), Kernel: binaryKernel(Plus)})
	r.Register(Op{Name: Minus, Arity: 2, Infer: inferBroadcast(Minus, numeric), Kernel: binaryKernel(Minus)})
	r.Register(Op{Name: ElementTimes, Arity: 2, Infer: inferBroadcast(ElementTimes, numeric), Kernel: binaryKernel(ElementTimes)})

	r.Register(Op{Name: Negate, Arity: 1, Infer: inferSame(Negate, signed), Kernel: unaryKernel(func(x float64) float64 { return -x })})
	r.Register(Op{Name: ReLU, Arity: 1, Infer: inferSame(ReLU, signed), Kernel: unaryKernel(func(x float64) float64 { return math.Max(x, 0) })})
	r.Register(Op{Name: Sigmoid, Arity: 1, Infer: inferSame(Sigmoid, floating), Kernel: unaryKernel(func(x float64) float64 { return 1 / (1 + math.Exp(-x)) })})
	r.Register(Op{Name: Tanh, Arity: 1, Infer: inferSame(Tanh, floating), Kernel: unaryKernel(math.Tanh)})
	r.Register(Op{Name: Exp, Arity: 1, Infer: inferSame(Exp, floating), Kernel: unaryKernel(math.Exp)})
	r.Register(Op{Name: Log, Arity: 1, Infer: inferSame(Log, floating), Kernel: unaryKernel(math.Log)})
	r.Register(Op{Name: Sqrt, Arity: 1, Infer: inferSame(Sqrt, floating), Kernel: unaryKernel(math.Sqrt)})
	r.Register(Op{Name: Scale, Arity: 1, Infer: inferSame(Scale, floating), Kernel: scaleKernel})
}

// elems views raw storage as []E without copying.
func elems[E tensor.DType](r *tensor.RawTensor) []E {
	data := r.Data()
	if len(data) == 0 {
		return nil
	}
	//nolint:gosec // dtype checked by the dispatching kernel
	return unsafe.Slice((*E)(unsafe.Pointer(&data[0])), r.NumElements())
}

// aliasKernel forwards its input. The output gets its own copy so it never
// shares storage with an input.
func aliasKernel(_ *Context, _ Attrs, inputs []*tensor.RawTensor, out *tensor.RawTensor) error {
	copy(out.Data(), inputs[0].Data())
	return nil
}

func unaryKernel(f func(float64) float64) KernelFunc {
	return func(ctx *Context, _ Attrs, inputs []*tensor.RawTensor, out *tensor.RawTensor) error {
		return applyUnary(ctx, inputs[0], out, f)
	}
}

func scaleKernel(ctx *Context, attrs Attrs, inputs []*tensor.RawTensor, out *tensor.RawTensor) error {
	s := attrs.Get("scale", 1)
	return applyUnary(ctx, inputs[0], out, func(x float64) float64 { return x * s })
}

func applyUnary(ctx *Context, in, out *tensor.RawTensor, f func(float64) float64) error {
	switch in.DType() {
	case tensor.Float32:
		mapUnary(ctx.Parallel, elems[float32](out), elems[float32](in), f)
	case tensor.Float64:
		mapUnary(ctx.Parallel, elems[float64](out), elems[float64](in), f)
	case tensor.Int32:
		mapUnary(ctx.Parallel, elems[int32](out), elems[int32](in), f)
	case tensor.Int64:
		mapUnary(ctx.Parallel, elems[int64](out), elems[int64](in), f)
	case tensor.Float16:
		return viaFloat32([]*tensor.RawTensor{in}, out, func(ins []*tensor.RawTensor, o *tensor.RawTensor) error {
			mapUnary(ctx.Parallel, elems[float32](o), elems[float32](ins[0]), f)
			return nil
		})
	default:
		return fmt.Errorf("%w: unary op on %s", value.ErrDataTypeMismatch, in.DType())
	}
	return nil
}

func mapUnary[E number](cfg parallel.Config, dst, src []E, f func(float64) float64) {
	parallel.ForRange(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = E(f(float64(src[i])))
		}
	}, cfg)
}

func binaryKernel(op string) KernelFunc {
	return func(ctx *Context, _ Attrs, inputs []*tensor.RawTensor, out *tensor.RawTensor) error {
		a, b := inputs[0], inputs[1]
		switch out.DType() {
		case tensor.Float32:
			mapBinary(ctx.Parallel, elems[float32](out), elems[float32](a), elems[float32](b), out.Shape(), a.Shape(), b.Shape(), arith[float32](op))
		case tensor.Float64:
			mapBinary(ctx.Parallel, elems[float64](out), elems[float64](a), elems[float64](b), out.Shape(), a.Shape(), b.Shape(), arith[float64](op))
		case tensor.Int32:
			mapBinary(ctx.Parallel, elems[int32](out), elems[int32](a), elems[int32](b), out.Shape(), a.Shape(), b.Shape(), arith[int32](op))
		case tensor.Int64:
			mapBinary(ctx.Parallel, elems[int64](out), elems[int64](a), elems[int64](b), out.Shape(), a.Shape(), b.Shape(), arith[int64](op))
		case tensor.Uint8:
			mapBinary(ctx.Parallel, elems[uint8](out), elems[uint8](a), elems[uint8](b), out.Shape(), a.Shape(), b.Shape(), arith[uint8](op))
		case tensor.Float16:
			return viaFloat32(inputs, out, func(ins []*tensor.RawTensor, o *tensor.RawTensor) error {
				mapBinary(ctx.Parallel, elems[float32](o), elems[float32](ins[0]), elems[float32](ins[1]), o.Shape(), ins[0].Shape(), ins[1].Shape(), arith[float32](op))
				return nil
			})
		default:
			return fmt.Errorf("%w: %s on %s", value.ErrDataTypeMismatch, op, out.DType())
		}
		return nil
	}
}

func arith[E number](op string) func(x, y E) E {
	switch op {
	case Plus:
		return func(x, y E) E { return x + y }
	case Minus:
		return func(x, y E) E { return x - y }
	case ElementTimes:
		return func(x, y E) E { return x * y }
	default:
		panic("unknown binary op " + op)
	}
}

func mapBinary[E number](cfg parallel.Config, dst, a, b []E, outShape, aShape, bShape tensor.Shape, f func(x, y E) E) {
	directA := aShape.Equal(outShape)
	directB := bShape.Equal(outShape)
	parallel.ForRange(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			ai, bi := i, i
			if !directA {
				ai = tensor.BroadcastIndex(i, outShape, aShape)
			}
			if !directB {
				bi = tensor.BroadcastIndex(i, outShape, bShape)
			}
			dst[i] = f(a[ai], b[bi])
		}
	}, cfg)
}

// viaFloat32 runs fn on float32 copies of float16 inputs and converts the
// float32 result back into out.
func viaFloat32(inputs []*tensor.RawTensor, out *tensor.RawTensor, fn func(ins []*tensor.RawTensor, o *tensor.RawTensor) error) error {
	ins := make([]*tensor.RawTensor, len(inputs))
	for i, in := range inputs {
		f32, err := convert(in, tensor.Float32)
		if err != nil {
			return err
		}
		ins[i] = f32
	}
	o, err := tensor.NewRaw(out.Shape(), tensor.Float32, out.Device())
	if err != nil {
		return err
	}
	if err := fn(ins, o); err != nil {
		return err
	}
	return convertInto(o, out)
}
