// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph_test

import (
	"context"
	"math"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/graphcore/graph"
	"github.com/born-ml/graphcore/tensor"
)

func TestIdentityEvaluation(t *testing.T) {
	ctx := context.Background()
	x, err := graph.InputVariable(tensor.Shape{2}, tensor.Float32, "x")
	require.NoError(t, err)
	id, err := graph.Alias(x, "")
	require.NoError(t, err)
	assert.Equal(t, "Alias", id.Name())

	buf := []float32{1, 2, 3, 4, 5, 6}
	in, err := graph.CreateValue(graph.NewDescriptor(tensor.Shape{2, 3}, buf), graph.CPUDevice())
	require.NoError(t, err)

	outputs := map[*graph.Variable]*graph.Value{id.Output(): nil}
	require.NoError(t, graph.Evaluate(ctx, id, map[*graph.Variable]*graph.Value{x: in}, outputs, graph.CPUDevice()))

	got, err := graph.DenseData[float32](outputs[id.Output()], id.Output().Shape())
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {3, 4}, {5, 6}}, got)
}

func TestDenseLayer(t *testing.T) {
	x, err := graph.InputVariable(tensor.Shape{3}, tensor.Float64, "x")
	require.NoError(t, err)
	w, err := graph.Parameter(tensor.Shape{2, 3}, tensor.Float64, graph.ConstantInit(0.5), graph.CPUDevice(), "W")
	require.NoError(t, err)
	b, err := graph.Constant(tensor.Shape{2}, tensor.Float64, -1, graph.CPUDevice(), "b")
	require.NoError(t, err)
	wx, err := graph.Times(w, x, "")
	require.NoError(t, err)
	z, err := graph.Plus(wx.Output(), b, "")
	require.NoError(t, err)
	model, err := graph.ReLU(z.Output(), "model")
	require.NoError(t, err)

	in, err := graph.ValueFromSamples(tensor.Shape{3}, [][]float64{{1, 2, 3}, {-1, 0, 0}}, graph.CPUDevice())
	require.NoError(t, err)

	out, err := graph.Forward(context.Background(), model, map[*graph.Variable]*graph.Value{x: in}, graph.CPUDevice())
	require.NoError(t, err)
	got, err := graph.DenseData[float64](out[model.Output()], tensor.Shape{2})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{2, 2}, {0, 0}}, got)
}

// TestBufferIndependence drops and scribbles over the caller buffer right
// after CreateValue while another goroutine churns the heap.
func TestBufferIndependence(t *testing.T) {
	x, err := graph.InputVariable(tensor.Shape{4}, tensor.Float32, "x")
	require.NoError(t, err)
	neg, err := graph.Negate(x, "")
	require.NoError(t, err)

	var stop atomic.Bool
	var g errgroup.Group
	g.Go(func() error {
		var sink [][]byte
		for !stop.Load() {
			sink = append(sink, make([]byte, 1<<12))
			if len(sink) > 256 {
				sink = nil
			}
		}
		return nil
	})
	defer func() {
		stop.Store(true)
		_ = g.Wait()
	}()

	for i := 0; i < 100; i++ {
		buf := []float32{float32(i), 1, 2, 3}
		in, err := graph.CreateValue(graph.NewDescriptor(tensor.Shape{4}, buf), graph.CPUDevice())
		require.NoError(t, err)
		for j := range buf {
			buf[j] = math.MaxFloat32
		}
		buf = nil
		runtime.GC()

		out, err := graph.Forward(context.Background(), neg, map[*graph.Variable]*graph.Value{x: in}, graph.CPUDevice())
		require.NoError(t, err)
		got, err := graph.DenseData[float32](out[neg.Output()], tensor.Shape{4})
		require.NoError(t, err)
		require.Equal(t, [][]float32{{-float32(i), -1, -2, -3}}, got, "iteration %d", i)
	}
}

func TestBorrowObservesCallerWrites(t *testing.T) {
	buf := []int32{1, 2}
	v, err := graph.CreateValue(graph.NewDescriptor(tensor.Shape{2}, buf), graph.CPUDevice(), graph.WithMode(graph.Borrow))
	require.NoError(t, err)
	defer v.Release()
	assert.False(t, v.OwnsData())

	buf[0] = 7
	got, err := graph.DenseData[int32](v, tensor.Shape{2})
	require.NoError(t, err)
	assert.Equal(t, [][]int32{{7, 2}}, got)
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	x, err := graph.InputVariable(tensor.Shape{3}, tensor.Float32, "x")
	require.NoError(t, err)
	fn, err := graph.Sigmoid(x, "")
	require.NoError(t, err)

	_, err = graph.CreateValue(graph.NewDescriptor(tensor.Shape{2}, []float32{1, 2, 3}), graph.CPUDevice())
	assert.ErrorIs(t, err, graph.ErrShapeMismatch)

	_, err = graph.CreateValue(graph.NewDescriptor(tensor.Shape{3}, []float32{1, 2, 3}), graph.DeviceDescriptor{Kind: tensor.CUDA})
	assert.ErrorIs(t, err, graph.ErrUnsupportedDevice)

	outputs := map[*graph.Variable]*graph.Value{fn.Output(): nil}
	err = graph.Evaluate(ctx, fn, map[*graph.Variable]*graph.Value{}, outputs, graph.CPUDevice())
	assert.ErrorIs(t, err, graph.ErrUnboundInput)
	assert.Nil(t, outputs[fn.Output()])

	wrong, err := graph.ZerosValue(tensor.Shape{4}, tensor.Float32, graph.CPUDevice())
	require.NoError(t, err)
	err = graph.Evaluate(ctx, fn, map[*graph.Variable]*graph.Value{x: wrong}, outputs, graph.CPUDevice())
	assert.ErrorIs(t, err, graph.ErrShapeMismatch)
	assert.Nil(t, outputs[fn.Output()])

	_, err = graph.Plus(x, mustInput(t, tensor.Shape{2}), "")
	assert.ErrorIs(t, err, graph.ErrShapeMismatch)

	_, err = graph.Load([]byte("nope"), graph.CPUDevice())
	assert.ErrorIs(t, err, graph.ErrPersistenceFormat)
}

func mustInput(t *testing.T, shape tensor.Shape) *graph.Variable {
	t.Helper()
	v, err := graph.InputVariable(shape, tensor.Float32, "")
	require.NoError(t, err)
	return v
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	x := mustInput(t, tensor.Shape{2})
	w, err := graph.Parameter(tensor.Shape{2}, tensor.Float32, graph.Uniform(1), graph.CPUDevice(), "w")
	require.NoError(t, err)
	fn, err := graph.ElementTimes(x, w, "scale")
	require.NoError(t, err)

	data, err := graph.Save(fn)
	require.NoError(t, err)
	loaded, err := graph.Load(data, graph.CPUDevice())
	require.NoError(t, err)
	assert.Equal(t, fn.UID(), loaded.UID())

	path := filepath.Join(t.TempDir(), "scale.bgcf")
	require.NoError(t, graph.SaveURI(ctx, fn, path))
	fromURI, err := graph.LoadURI(ctx, path, graph.CPUDevice())
	require.NoError(t, err)
	assert.Equal(t, fn.Name(), fromURI.Name())

	in, err := graph.CreateValue(graph.NewDescriptor(tensor.Shape{2}, []float32{1, 1}), graph.CPUDevice())
	require.NoError(t, err)
	want, err := graph.Forward(ctx, fn, map[*graph.Variable]*graph.Value{x: in}, graph.CPUDevice())
	require.NoError(t, err)
	got, err := graph.Forward(ctx, fromURI, map[*graph.Variable]*graph.Value{fromURI.Arguments()[0]: in}, graph.CPUDevice())
	require.NoError(t, err)

	wantData, err := graph.DenseData[float32](want[fn.Output()], tensor.Shape{2})
	require.NoError(t, err)
	gotData, err := graph.DenseData[float32](got[fromURI.Output()], tensor.Shape{2})
	require.NoError(t, err)
	assert.Equal(t, wantData, gotData)
}

func TestConcurrentEvaluate(t *testing.T) {
	x := mustInput(t, tensor.Shape{3})
	fn, err := graph.Scale(x, 2, "")
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			in, err := graph.CreateValue(graph.NewDescriptor(tensor.Shape{3}, []float32{float32(i), 0, 1}), graph.CPUDevice())
			if err != nil {
				return err
			}
			out, err := graph.Forward(context.Background(), fn, map[*graph.Variable]*graph.Value{x: in}, graph.CPUDevice())
			if err != nil {
				return err
			}
			got, err := graph.DenseData[float32](out[fn.Output()], tensor.Shape{3})
			if err != nil {
				return err
			}
			assert.Equal(t, [][]float32{{2 * float32(i), 0, 2}}, got)
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestDeterminismFlags(t *testing.T) {
	for _, seed := range []uint64{0, 1, 42, math.MaxUint64} {
		graph.SetFixedRandomSeed(seed)
		assert.Equal(t, seed, graph.RandomSeed())
		assert.True(t, graph.IsRandomSeedFixed())
	}

	graph.ForceDeterministicAlgorithms()
	assert.True(t, graph.ShouldForceDeterministicAlgorithms())
	assert.True(t, graph.DefaultEvalConfig().Determinism.Deterministic)

	graph.SetFixedRandomSeed(7)
	a, err := graph.Parameter(tensor.Shape{4, 4}, tensor.Float32, graph.Normal(1), graph.CPUDevice(), "a")
	require.NoError(t, err)
	graph.SetFixedRandomSeed(7)
	b, err := graph.Parameter(tensor.Shape{4, 4}, tensor.Float32, graph.Normal(1), graph.CPUDevice(), "b")
	require.NoError(t, err)

	av, err := graph.DenseData[float32](a.Value(), a.Shape())
	require.NoError(t, err)
	bv, err := graph.DenseData[float32](b.Value(), b.Shape())
	require.NoError(t, err)
	assert.Equal(t, av, bv)
}
