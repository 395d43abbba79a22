package tensor

import (
	"fmt"
	"slices"
)

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the product of the dimensions, 1 for a scalar.
func (s Shape) NumElements() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// MaxElements bounds the element count of a single tensor.
const MaxElements = 1 << 48

// Validate rejects non-positive dimensions and shapes holding more than
// MaxElements elements.
func (s Shape) Validate() error {
	if i := slices.IndexFunc(s, func(d int) bool { return d <= 0 }); i >= 0 {
		return fmt.Errorf("dimension %d of %v is %d, must be positive", i, []int(s), s[i])
	}
	n := 1
	for _, d := range s {
		if d > MaxElements/n {
			return fmt.Errorf("shape %v holds more than %d elements", []int(s), MaxElements)
		}
		n *= d
	}
	return nil
}

// Equal reports whether both shapes have the same dimensions.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

// Clone returns a copy of the shape. A nil shape clones to an empty one.
func (s Shape) Clone() Shape {
	return append(Shape{}, s...)
}

// WithSamples returns a new shape with a trailing sample axis of size n.
func (s Shape) WithSamples(n int) Shape {
	out := make(Shape, len(s), len(s)+1)
	copy(out, s)
	return append(out, n)
}

// Samples reports how many samples of shape sample s holds.
//
// A shape equal to sample holds a single sample; a shape equal to sample
// followed by one trailing axis of size N holds N samples. Any other shape
// does not describe samples of sample.
func (s Shape) Samples(sample Shape) (int, bool) {
	switch {
	case s.Equal(sample):
		return 1, true
	case len(s) == len(sample)+1 && s[:len(sample)].Equal(sample):
		return s[len(s)-1], true
	default:
		return 0, false
	}
}

// ComputeStrides returns row-major strides in elements.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	step := 1
	for i := len(s) - 1; i >= 0; i-- {
		strides[i] = step
		step *= s[i]
	}
	return strides
}

// BroadcastShapes returns the shape both operands broadcast to, aligning
// dimensions from the right; a missing or size-1 dimension stretches to
// match the other. The flag reports whether either operand is stretched.
//
//	[3 1] and [3 5] -> [3 5], true
//	[5] and [3 5]   -> [3 5], true
//	[3 4] and [3 5] -> error
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	rank := max(len(a), len(b))
	out := make(Shape, rank)
	stretched := len(a) != len(b)

	dim := func(s Shape, i int) int {
		if j := len(s) - rank + i; j >= 0 {
			return s[j]
		}
		return 1
	}
	for i := range out {
		da, db := dim(a, i), dim(b, i)
		switch {
		case da == db:
			out[i] = da
		case da == 1 || db == 1:
			out[i] = max(da, db)
			stretched = true
		default:
			return nil, false, fmt.Errorf("cannot broadcast %v with %v: axis %d has %d vs %d", a, b, i, da, db)
		}
	}
	return out, stretched, nil
}

// BroadcastIndex maps a flat index into the broadcast result shape out back to
// the flat index of an operand of shape in.
func BroadcastIndex(flat int, out, in Shape) int {
	idx := 0
	stride := 1
	for i := 1; i <= len(out); i++ {
		dim := out[len(out)-i]
		coord := flat % dim
		flat /= dim
		if j := len(in) - i; j >= 0 {
			if in[j] != 1 {
				idx += coord * stride
			}
			stride *= in[j]
		}
	}
	return idx
}
