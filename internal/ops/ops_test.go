package ops

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/born-ml/graphcore/internal/parallel"
	"github.com/born-ml/graphcore/internal/tensor"
	"github.com/born-ml/graphcore/internal/value"
)

func raw64(t *testing.T, shape tensor.Shape, dtype tensor.DataType, data ...float64) *tensor.RawTensor {
	t.Helper()
	r, err := FromFloat64(data, shape, dtype, tensor.CPU)
	require.NoError(t, err)
	return r
}

func run(t *testing.T, ctx *Context, op string, attrs Attrs, inputs ...*tensor.RawTensor) *tensor.RawTensor {
	t.Helper()
	operands := make([]Operand, len(inputs))
	for i, in := range inputs {
		operands[i] = Operand{Shape: in.Shape(), DType: in.DType()}
	}
	typ, err := Default().Infer(op, operands, attrs)
	require.NoError(t, err)
	out, err := tensor.NewRaw(typ.Shape, typ.DType, tensor.CPU)
	require.NoError(t, err)
	require.NoError(t, Default().Execute(ctx, op, attrs, inputs, out))
	return out
}

func seq() *Context {
	return &Context{Parallel: parallel.Sequential()}
}

func TestSupportedOps(t *testing.T) {
	got := Default().SupportedOps()
	for _, op := range []string{Alias, Plus, Minus, ElementTimes, Negate, ReLU, Sigmoid, Tanh, Exp, Log, Sqrt, Scale, Times, ReduceSum, Cast} {
		assert.Contains(t, got, op)
	}
	assert.IsIncreasing(t, got)
}

func TestUnknownOp(t *testing.T) {
	_, err := Default().Infer("Frobnicate", nil, nil)
	assert.ErrorIs(t, err, ErrUnknownOp)

	err = Default().Execute(seq(), "Frobnicate", nil, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownOp)
}

func TestInferArity(t *testing.T) {
	_, err := Default().Infer(Plus, []Operand{{Shape: tensor.Shape{2}, DType: tensor.Float32}}, nil)
	assert.Error(t, err)
}

func TestAliasCopies(t *testing.T) {
	x := raw64(t, tensor.Shape{3}, tensor.Float32, 1, 2, 3)
	out := run(t, seq(), Alias, nil, x)

	assert.Equal(t, []float32{1, 2, 3}, out.AsFloat32())
	assert.False(t, out.Shares(x))
}

func TestUnary(t *testing.T) {
	x := raw64(t, tensor.Shape{4}, tensor.Float64, -2, -0.5, 0, 3)

	tests := []struct {
		op   string
		want func(float64) float64
	}{
		{Negate, func(v float64) float64 { return -v }},
		{ReLU, func(v float64) float64 { return math.Max(v, 0) }},
		{Sigmoid, func(v float64) float64 { return 1 / (1 + math.Exp(-v)) }},
		{Tanh, math.Tanh},
		{Exp, math.Exp},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			out := run(t, seq(), tt.op, nil, x)
			for i, v := range x.AsFloat64() {
				assert.InDelta(t, tt.want(v), out.AsFloat64()[i], 1e-12)
			}
		})
	}
}

func TestScale(t *testing.T) {
	x := raw64(t, tensor.Shape{2, 2}, tensor.Float32, 1, 2, 3, 4)
	out := run(t, seq(), Scale, Attrs{"scale": 0.5}, x)
	assert.Equal(t, []float32{0.5, 1, 1.5, 2}, out.AsFloat32())
}

func TestBinaryBroadcast(t *testing.T) {
	a := raw64(t, tensor.Shape{2, 3}, tensor.Int32, 1, 2, 3, 4, 5, 6)
	row := raw64(t, tensor.Shape{3}, tensor.Int32, 10, 20, 30)
	col := raw64(t, tensor.Shape{2, 1}, tensor.Int32, 100, 200)

	assert.Equal(t, []int32{11, 22, 33, 14, 25, 36}, run(t, seq(), Plus, nil, a, row).AsInt32())
	assert.Equal(t, []int32{-99, -98, -97, -196, -195, -194}, run(t, seq(), Minus, nil, a, col).AsInt32())
	assert.Equal(t, []int32{100, 200, 300, 800, 1000, 1200}, run(t, seq(), ElementTimes, nil, a, col).AsInt32())
}

func TestBinaryParallelMatchesSequential(t *testing.T) {
	n := 10000
	data := make([]float64, n)
	for i := range data {
		data[i] = float64(i%97) * 0.25
	}
	a := raw64(t, tensor.Shape{n}, tensor.Float64, data...)
	b := raw64(t, tensor.Shape{1}, tensor.Float64, 2)

	par := &Context{Parallel: parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 16}}
	assert.Equal(t, run(t, seq(), ElementTimes, nil, a, b).AsFloat64(), run(t, par, ElementTimes, nil, a, b).AsFloat64())
}

func TestTimes(t *testing.T) {
	w := raw64(t, tensor.Shape{2, 3}, tensor.Float32, 1, 2, 3, 4, 5, 6)
	x := raw64(t, tensor.Shape{3}, tensor.Float32, 1, 0, -1)
	out := run(t, seq(), Times, nil, w, x)
	assert.Equal(t, tensor.Shape{2}, out.Shape())
	assert.Equal(t, []float32{-2, -2}, out.AsFloat32())

	m := raw64(t, tensor.Shape{3, 2}, tensor.Float32, 1, 0, 0, 1, 1, 1)
	out = run(t, seq(), Times, nil, w, m)
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.Equal(t, []float32{4, 5, 10, 11}, out.AsFloat32())
}

func TestReduceSum(t *testing.T) {
	x := raw64(t, tensor.Shape{2, 2}, tensor.Int64, 1, 2, 3, 4)
	out := run(t, seq(), ReduceSum, nil, x)
	assert.Equal(t, tensor.Shape{}, out.Shape())
	assert.Equal(t, []int64{10}, out.AsInt64())
}

func TestReduceSumDeterministic(t *testing.T) {
	n := 1 << 16
	data := make([]float64, n)
	for i := range data {
		data[i] = 1 / float64(i+1)
	}
	x := raw64(t, tensor.Shape{n}, tensor.Float32, data...)

	want := run(t, seq(), ReduceSum, nil, x).AsFloat32()[0]
	for workers := 1; workers <= 8; workers++ {
		ctx := &Context{
			Parallel:      parallel.Config{Enabled: true, NumWorkers: workers, MinChunkSize: 64},
			Deterministic: true,
		}
		got := run(t, ctx, ReduceSum, nil, x).AsFloat32()[0]
		assert.Equal(t, math.Float32bits(want), math.Float32bits(got), "workers=%d", workers)
	}

	par := &Context{Parallel: parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 64}}
	assert.InDelta(t, float64(want), float64(run(t, par, ReduceSum, nil, x).AsFloat32()[0]), 1e-3)
}

func TestCast(t *testing.T) {
	x := raw64(t, tensor.Shape{4}, tensor.Float64, -1.6, 0.4, 2.5, 300)

	out := run(t, seq(), Cast, Attrs{"dtype": float64(tensor.Int32)}, x)
	assert.Equal(t, tensor.Int32, out.DType())
	assert.Equal(t, []int32{-2, 0, 3, 300}, out.AsInt32())

	out = run(t, seq(), Cast, Attrs{"dtype": float64(tensor.Uint8)}, x)
	assert.Equal(t, []uint8{0, 0, 3, 255}, out.AsUint8())

	out = run(t, seq(), Cast, Attrs{"dtype": float64(tensor.Bool)}, x)
	assert.Equal(t, []bool{true, true, true, true}, out.AsBool())

	huge := raw64(t, tensor.Shape{3}, tensor.Float64, 1e19, -1e19, math.Inf(1))
	out = run(t, seq(), Cast, Attrs{"dtype": float64(tensor.Int64)}, huge)
	assert.Equal(t, []int64{math.MaxInt64, math.MinInt64, math.MaxInt64}, out.AsInt64())

	_, err := Default().Infer(Cast, []Operand{{Shape: tensor.Shape{1}, DType: tensor.Float32}}, nil)
	assert.ErrorIs(t, err, value.ErrDataTypeMismatch)
}

func TestFloat16Kernels(t *testing.T) {
	a := raw64(t, tensor.Shape{3}, tensor.Float16, 0.5, 1.5, -2)
	b := raw64(t, tensor.Shape{3}, tensor.Float16, 0.25, 0.25, 0.25)

	out := run(t, seq(), Plus, nil, a, b)
	require.Equal(t, tensor.Float16, out.DType())
	assert.Equal(t, []float16.Float16{
		float16.Fromfloat32(0.75), float16.Fromfloat32(1.75), float16.Fromfloat32(-1.75),
	}, out.AsFloat16())

	sum := run(t, seq(), ReduceSum, nil, a)
	assert.InDelta(t, 0, float64(sum.AsFloat16()[0].Float32()), 1e-3)
}

func TestInferErrors(t *testing.T) {
	f32 := func(shape ...int) Operand { return Operand{Shape: shape, DType: tensor.Float32} }

	_, err := Default().Infer(Plus, []Operand{f32(3, 4), f32(3, 5)}, nil)
	assert.ErrorIs(t, err, value.ErrShapeMismatch)

	_, err = Default().Infer(Times, []Operand{f32(3), f32(3)}, nil)
	assert.ErrorIs(t, err, value.ErrShapeMismatch)

	_, err = Default().Infer(Times, []Operand{f32(2, 3), f32(4)}, nil)
	assert.ErrorIs(t, err, value.ErrShapeMismatch)

	_, err = Default().Infer(Exp, []Operand{{Shape: tensor.Shape{2}, DType: tensor.Int32}}, nil)
	assert.ErrorIs(t, err, value.ErrDataTypeMismatch)

	_, err = Default().Infer(Plus, []Operand{f32(2), {Shape: tensor.Shape{2}, DType: tensor.Float64}}, nil)
	assert.ErrorIs(t, err, value.ErrDataTypeMismatch)
}

func TestAttrsGet(t *testing.T) {
	a := Attrs{"scale": 2}
	assert.InDelta(t, 2.0, a.Get("scale", 1), 0)
	assert.InDelta(t, 1.0, a.Get("missing", 1), 0)
	assert.InDelta(t, 1.0, Attrs(nil).Get("scale", 1), 0)
}
