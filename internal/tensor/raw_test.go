package tensor

import (
	"testing"

	"github.com/x448/float16"
)

func TestNewRawAllTypes(t *testing.T) {
	types := []struct {
		dtype       DataType
		elementSize int
	}{
		{Float32, 4},
		{Float64, 8},
		{Float16, 2},
		{Int32, 4},
		{Int64, 8},
		{Uint8, 1},
		{Bool, 1},
	}

	shape := Shape{2, 3}
	for _, tt := range types {
		raw, err := NewRaw(shape, tt.dtype, CPU)
		if err != nil {
			t.Fatalf("NewRaw(%v, %v) failed: %v", shape, tt.dtype, err)
		}
		if raw.DType() != tt.dtype {
			t.Errorf("DType = %v, want %v", raw.DType(), tt.dtype)
		}
		if raw.ByteSize() != 6*tt.elementSize {
			t.Errorf("ByteSize = %d, want %d for type %v", raw.ByteSize(), 6*tt.elementSize, tt.dtype)
		}
	}
}

func TestNewRawInvalid(t *testing.T) {
	for _, shape := range []Shape{{0}, {-1}, {2, 0}, {2, -3}, {3, 1 << 61}} {
		if _, err := NewRaw(shape, Float32, CPU); err == nil {
			t.Errorf("NewRaw(%v) should fail but didn't", shape)
		}
	}
	if _, err := NewRaw(Shape{2}, DataType(42), CPU); err == nil {
		t.Error("NewRaw with unknown dtype should fail")
	}
}

func TestRawTensorScalar(t *testing.T) {
	raw, _ := NewRaw(Shape{}, Float32, CPU)

	if raw.NumElements() != 1 {
		t.Errorf("Scalar tensor NumElements = %d, want 1", raw.NumElements())
	}
	if raw.ByteSize() != 4 {
		t.Errorf("Scalar tensor ByteSize = %d, want 4", raw.ByteSize())
	}
}

func TestNewRawFromBytesCopies(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	raw, err := NewRawFromBytes(Shape{4}, Uint8, CPU, src)
	if err != nil {
		t.Fatal(err)
	}
	src[0] = 99
	if raw.AsUint8()[0] != 1 {
		t.Error("NewRawFromBytes must not alias its input")
	}

	if _, err := NewRawFromBytes(Shape{5}, Uint8, CPU, src); err == nil {
		t.Error("NewRawFromBytes with short data should fail")
	}
}

func TestWrapRawAliases(t *testing.T) {
	data := make([]byte, 8)
	freed := 0
	raw, err := WrapRaw(Shape{2}, Float32, CPU, data, func() { freed++ })
	if err != nil {
		t.Fatal(err)
	}

	raw.AsFloat32()[1] = 2.5
	if data[4] == 0 && data[5] == 0 && data[6] == 0 && data[7] == 0 {
		t.Error("WrapRaw should write through to the wrapped bytes")
	}

	clone := raw.Clone()
	raw.Release()
	if freed != 0 {
		t.Fatal("onFree ran while a clone was alive")
	}
	clone.Release()
	if freed != 1 {
		t.Errorf("onFree ran %d times, want 1", freed)
	}
	clone.Release()
	if freed != 1 {
		t.Errorf("extra release ran onFree again (%d)", freed)
	}

	if _, err := WrapRaw(Shape{3}, Float32, CPU, data, nil); err == nil {
		t.Error("WrapRaw with wrong length should fail")
	}
}

func TestRawTensorZeroCopyViews(t *testing.T) {
	raw, _ := NewRaw(Shape{3, 2}, Int64, CPU)
	raw.AsInt64()[0] = 42
	if raw.AsInt64()[0] != 42 {
		t.Error("AsInt64 should return zero-copy slice")
	}

	b, _ := NewRaw(Shape{2, 2}, Bool, CPU)
	b.AsBool()[3] = true
	if !b.AsBool()[3] {
		t.Error("AsBool should return zero-copy slice")
	}

	h, _ := NewRaw(Shape{2}, Float16, CPU)
	h.AsFloat16()[0] = float16.Fromfloat32(1.5)
	if got := h.AsFloat16()[0].Float32(); got != 1.5 {
		t.Errorf("AsFloat16 = %v, want 1.5", got)
	}
}

func TestRawTensorAsWrongTypePanics(t *testing.T) {
	raw, _ := NewRaw(Shape{2}, Float32, CPU)
	views := map[string]func(){
		"AsFloat64": func() { raw.AsFloat64() },
		"AsFloat16": func() { raw.AsFloat16() },
		"AsInt32":   func() { raw.AsInt32() },
		"AsInt64":   func() { raw.AsInt64() },
		"AsUint8":   func() { raw.AsUint8() },
		"AsBool":    func() { raw.AsBool() },
	}
	for name, view := range views {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Errorf("%s on Float32 tensor should panic", name)
				}
			}()
			view()
		})
	}
}

func TestRawTensorReferenceCounting(t *testing.T) {
	raw, _ := NewRaw(Shape{2, 2}, Float32, CPU)
	if !raw.IsUnique() {
		t.Error("New tensor should be unique")
	}

	clone1 := raw.Clone()
	clone2 := raw.Clone()
	if raw.IsUnique() || clone1.IsUnique() || clone2.IsUnique() {
		t.Error("With 3 references, none should be unique")
	}
	if !raw.Shares(clone1) {
		t.Error("Clone should share the buffer")
	}

	clone1.Release()
	clone2.Release()
	if !raw.IsUnique() {
		t.Error("After releasing clones the original should be unique again")
	}
	if raw.Released() {
		t.Error("Original should still be alive")
	}

	raw.Release()
	if !raw.Released() {
		t.Error("Last release should free the buffer")
	}
}

func TestRawTensorCopyIsIndependent(t *testing.T) {
	raw, _ := NewRaw(Shape{2}, Float64, CPU)
	raw.AsFloat64()[0] = 1

	cp := raw.Copy()
	raw.AsFloat64()[0] = 2
	if cp.AsFloat64()[0] != 1 {
		t.Error("Copy should not share storage")
	}
	if cp.Shares(raw) || !cp.IsUnique() {
		t.Error("Copy should own a unique buffer")
	}
}

func TestRawTensorReshape(t *testing.T) {
	raw, _ := NewRaw(Shape{2, 3}, Int32, CPU)
	view, err := raw.Reshape(Shape{3, 2})
	if err != nil {
		t.Fatal(err)
	}
	defer view.Release()

	view.AsInt32()[5] = 7
	if raw.AsInt32()[5] != 7 {
		t.Error("Reshape should return a view")
	}
	if got := view.Strides(); got[0] != 2 || got[1] != 1 {
		t.Errorf("Strides = %v, want [2 1]", got)
	}
	if _, err := raw.Reshape(Shape{4}); err == nil {
		t.Error("Reshape to a different element count should fail")
	}
}

func TestDeviceString(t *testing.T) {
	tests := map[Device]string{CPU: "CPU", CUDA: "CUDA", Vulkan: "Vulkan", Metal: "Metal", WebGPU: "WebGPU", Device(99): "Unknown"}
	for d, want := range tests {
		if got := d.String(); got != want {
			t.Errorf("Device(%d).String() = %q, want %q", int(d), got, want)
		}
	}
}
