package random

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/graphcore/internal/tensor"
)

// Initializer fills a parameter's storage at construction time.
type Initializer interface {
	// Name identifies the initializer, e.g. "glorot_uniform".
	Name() string
	// Fill writes shape.NumElements() values into data using rng.
	Fill(data []float64, shape tensor.Shape, rng *rand.Rand)
}

// Seeded pins an initializer to its own seed instead of the State's.
type Seeded struct {
	Initializer
	Seed int64
}

// Draw fills a new float64 buffer for shape with init. The generator is
// seeded at this point from state, unless init is Seeded.
func Draw(init Initializer, shape tensor.Shape, state *State) []float64 {
	var rng *rand.Rand
	if s, ok := init.(Seeded); ok {
		//nolint:gosec // Intentional deterministic seed for reproducibility
		rng = rand.New(rand.NewSource(s.Seed))
	} else {
		rng = state.NewRand()
	}
	data := make([]float64, shape.NumElements())
	init.Fill(data, shape, rng)
	return data
}

// GlorotUniform draws from U(-b, b) with b = scale*sqrt(6/(fanIn+fanOut)).
// The leading OutputRank axes count as fan-out, the rest as fan-in; with
// FilterRank > 0 the trailing FilterRank axes are a receptive field that
// multiplies both fans.
type GlorotUniform struct {
	Scale      float64
	OutputRank int
	FilterRank int
}

// Name implements Initializer.
func (GlorotUniform) Name() string { return "glorot_uniform" }

// Fill implements Initializer.
func (g GlorotUniform) Fill(data []float64, shape tensor.Shape, rng *rand.Rand) {
	fanIn, fanOut := fans(shape, g.OutputRank, g.FilterRank)
	bound := g.Scale * math.Sqrt(6.0/float64(fanIn+fanOut))
	for i := range data {
		data[i] = (rng.Float64()*2.0 - 1.0) * bound
	}
}

// fans splits shape into fan-in and fan-out counts.
func fans(shape tensor.Shape, outputRank, filterRank int) (fanIn, fanOut int) {
	outputRank = min(max(outputRank, 0), len(shape))
	filterRank = min(max(filterRank, 0), len(shape)-outputRank)

	receptive := 1
	for _, d := range shape[len(shape)-filterRank:] {
		receptive *= d
	}
	fanOut = 1
	for _, d := range shape[:outputRank] {
		fanOut *= d
	}
	fanIn = 1
	for _, d := range shape[outputRank : len(shape)-filterRank] {
		fanIn *= d
	}
	return fanIn * receptive, fanOut * receptive
}

// Uniform draws from U(-Scale, Scale).
type Uniform struct {
	Scale float64
}

// Name implements Initializer.
func (Uniform) Name() string { return "uniform" }

// Fill implements Initializer.
func (u Uniform) Fill(data []float64, _ tensor.Shape, rng *rand.Rand) {
	for i := range data {
		data[i] = (rng.Float64()*2.0 - 1.0) * u.Scale
	}
}

// Normal draws from N(0, Scale²).
type Normal struct {
	Scale float64
}

// Name implements Initializer.
func (Normal) Name() string { return "normal" }

// Fill implements Initializer.
func (n Normal) Fill(data []float64, _ tensor.Shape, rng *rand.Rand) {
	for i := range data {
		data[i] = rng.NormFloat64() * n.Scale
	}
}

// Constant fills every element with Value. It draws no randomness.
type Constant struct {
	Value float64
}

// Name implements Initializer.
func (Constant) Name() string { return "constant" }

// Fill implements Initializer.
func (c Constant) Fill(data []float64, _ tensor.Shape, _ *rand.Rand) {
	for i := range data {
		data[i] = c.Value
	}
}

// String describes an initializer for logs.
func String(init Initializer) string {
	switch i := init.(type) {
	case GlorotUniform:
		return fmt.Sprintf("glorot_uniform(scale=%g, output_rank=%d, filter_rank=%d)", i.Scale, i.OutputRank, i.FilterRank)
	case Seeded:
		return fmt.Sprintf("%s(seed=%d)", String(i.Initializer), i.Seed)
	default:
		return init.Name()
	}
}
