package tensor

import (
	"reflect"
	"testing"

	"github.com/x448/float16"
)

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{5}, 5},
		{Shape{2, 3}, 6},
		{Shape{40, 40, 2}, 3200},
	}
	for _, tt := range tests {
		if got := tt.shape.NumElements(); got != tt.want {
			t.Errorf("%v.NumElements() = %d, want %d", tt.shape, got, tt.want)
		}
	}
}

func TestShapeValidateLimits(t *testing.T) {
	for _, s := range []Shape{{3, 1 << 61}, {1 << 30, 1 << 30}, {1 << 62, 1 << 62}} {
		if err := s.Validate(); err == nil {
			t.Errorf("%v.Validate() should fail", s)
		}
	}
	if err := (Shape{1 << 24, 1 << 24}).Validate(); err != nil {
		t.Errorf("shape at the element limit rejected: %v", err)
	}
}

func TestShapeSamples(t *testing.T) {
	sample := Shape{2, 3}
	tests := []struct {
		shape Shape
		n     int
		ok    bool
	}{
		{Shape{2, 3}, 1, true},
		{Shape{2, 3, 1}, 1, true},
		{Shape{2, 3, 7}, 7, true},
		{Shape{3, 2}, 0, false},
		{Shape{2, 3, 4, 5}, 0, false},
		{Shape{2}, 0, false},
	}
	for _, tt := range tests {
		n, ok := tt.shape.Samples(sample)
		if n != tt.n || ok != tt.ok {
			t.Errorf("%v.Samples(%v) = %d, %v; want %d, %v", tt.shape, sample, n, ok, tt.n, tt.ok)
		}
	}

	if n, ok := (Shape{4}).Samples(Shape{}); !ok || n != 4 {
		t.Errorf("scalar samples = %d, %v; want 4, true", n, ok)
	}
}

func TestShapeWithSamplesDoesNotAlias(t *testing.T) {
	s := make(Shape, 2, 8)
	s[0], s[1] = 2, 3
	a := s.WithSamples(4)
	b := s.WithSamples(5)
	if !reflect.DeepEqual(a, Shape{2, 3, 4}) || !reflect.DeepEqual(b, Shape{2, 3, 5}) {
		t.Errorf("WithSamples = %v, %v", a, b)
	}
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		a, b   Shape
		want   Shape
		needed bool
		fails  bool
	}{
		{Shape{3, 1}, Shape{3, 5}, Shape{3, 5}, true, false},
		{Shape{1, 5}, Shape{3, 5}, Shape{3, 5}, true, false},
		{Shape{3, 5}, Shape{3, 5}, Shape{3, 5}, false, false},
		{Shape{5}, Shape{3, 5}, Shape{3, 5}, true, false},
		{Shape{}, Shape{2}, Shape{2}, true, false},
		{Shape{3, 4}, Shape{3, 5}, nil, false, true},
	}
	for _, tt := range tests {
		got, needed, err := BroadcastShapes(tt.a, tt.b)
		if tt.fails {
			if err == nil {
				t.Errorf("BroadcastShapes(%v, %v) should fail", tt.a, tt.b)
			}
			continue
		}
		if err != nil {
			t.Fatalf("BroadcastShapes(%v, %v): %v", tt.a, tt.b, err)
		}
		if !got.Equal(tt.want) || needed != tt.needed {
			t.Errorf("BroadcastShapes(%v, %v) = %v, %v; want %v, %v", tt.a, tt.b, got, needed, tt.want, tt.needed)
		}
	}
}

func TestBroadcastIndex(t *testing.T) {
	out := Shape{2, 3}
	col := Shape{2, 1}
	row := Shape{3}
	wantCol := []int{0, 0, 0, 1, 1, 1}
	wantRow := []int{0, 1, 2, 0, 1, 2}
	for i := 0; i < out.NumElements(); i++ {
		if got := BroadcastIndex(i, out, col); got != wantCol[i] {
			t.Errorf("BroadcastIndex(%d, col) = %d, want %d", i, got, wantCol[i])
		}
		if got := BroadcastIndex(i, out, row); got != wantRow[i] {
			t.Errorf("BroadcastIndex(%d, row) = %d, want %d", i, got, wantRow[i])
		}
	}
}

func TestDataTypes(t *testing.T) {
	for dt := Float32; dt <= Float16; dt++ {
		got, ok := ParseDataType(dt.String())
		if !ok || got != dt {
			t.Errorf("ParseDataType(%q) = %v, %v", dt.String(), got, ok)
		}
	}
	if _, ok := ParseDataType("complex64"); ok {
		t.Error("ParseDataType should reject unknown names")
	}
	if DataType(7).Valid() {
		t.Error("DataType(7) should not be valid")
	}
	for want, got := range map[DataType]DataType{
		Float32: DataTypeOf[float32](),
		Float64: DataTypeOf[float64](),
		Float16: DataTypeOf[float16.Float16](),
		Int32:   DataTypeOf[int32](),
		Int64:   DataTypeOf[int64](),
		Uint8:   DataTypeOf[uint8](),
		Bool:    DataTypeOf[bool](),
	} {
		if got != want {
			t.Errorf("DataTypeOf = %v, want %v", got, want)
		}
	}
	if !Float16.IsFloat() || Int32.IsFloat() {
		t.Error("IsFloat mismatch")
	}
}
