package tensor

import (
	"testing"
)

func TestNewArray(t *testing.T) {
	arr, err := NewArray(Shape{2, 3}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewArray failed: %v", err)
	}
	if !arr.Shape().Equal(Shape{2, 3}) {
		t.Errorf("expected shape [2 3], got %v", arr.Shape())
	}
	if arr.DType() != Float32 {
		t.Errorf("expected Float32, got %v", arr.DType())
	}
	if arr.Device() != CPU {
		t.Errorf("expected CPU, got %v", arr.Device())
	}
	if arr.NumElements() != 6 {
		t.Errorf("expected 6 elements, got %d", arr.NumElements())
	}
	if arr.ByteSize() != 24 {
		t.Errorf("expected 24 bytes, got %d", arr.ByteSize())
	}
}

func TestNewArrayInvalidShape(t *testing.T) {
	if _, err := NewArray(Shape{2, -1}, Float32, CPU); err == nil {
		t.Error("expected error for negative dimension")
	}
}

func TestEmptyArray(t *testing.T) {
	arr, err := NewArray(Shape{0, 3}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewArray failed for zero-size dimension: %v", err)
	}
	if arr.NumElements() != 0 {
		t.Errorf("expected 0 elements, got %d", arr.NumElements())
	}
	if len(arr.AsFloat32()) != 0 {
		t.Errorf("expected empty data slice, got %d elements", len(arr.AsFloat32()))
	}
}

func TestScalarArray(t *testing.T) {
	arr := MustNewArray(Shape{}, Float64, CPU)
	if arr.NumElements() != 1 {
		t.Errorf("expected 1 element in scalar array, got %d", arr.NumElements())
	}
	arr.SetFloat(0, 3.5)
	if arr.Float(0) != 3.5 {
		t.Errorf("expected 3.5, got %v", arr.Float(0))
	}
}

func TestTypedAccess(t *testing.T) {
	f32 := MustNewArray(Shape{3}, Float32, CPU)
	copy(f32.AsFloat32(), []float32{1, 2, 3})
	if f32.Float(1) != 2 {
		t.Errorf("expected 2, got %v", f32.Float(1))
	}

	i64 := MustNewArray(Shape{2}, Int64, CPU)
	copy(i64.AsInt64(), []int64{7, -3})
	if i64.Float(0) != 7 || i64.Float(1) != -3 {
		t.Errorf("int64 Float access mismatch: %v, %v", i64.Float(0), i64.Float(1))
	}

	b := MustNewArray(Shape{2}, Bool, CPU)
	b.AsBool()[1] = true
	if b.AsBool()[0] || !b.AsBool()[1] {
		t.Error("bool access mismatch")
	}
}

func TestViewSharesBuffer(t *testing.T) {
	arr := MustNewArray(Shape{4}, Float32, CPU)
	copy(arr.AsFloat32(), []float32{1, 2, 3, 4})

	view := arr.View()
	view.AsFloat32()[0] = 100

	if arr.AsFloat32()[0] != 100 {
		t.Error("view should share the underlying buffer")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	arr := MustNewArray(Shape{4}, Float32, CPU)
	copy(arr.AsFloat32(), []float32{1, 2, 3, 4})

	cloned := arr.Clone()
	cloned.AsFloat32()[0] = 100

	if arr.AsFloat32()[0] != 1 {
		t.Error("clone should copy the buffer")
	}
}

func TestWithShape(t *testing.T) {
	arr := MustNewArray(Shape{2, 3}, Float32, CPU)
	copy(arr.AsFloat32(), []float32{1, 2, 3, 4, 5, 6})

	reshaped := arr.WithShape(Shape{3, 2})
	if !reshaped.Shape().Equal(Shape{3, 2}) {
		t.Errorf("expected shape [3 2], got %v", reshaped.Shape())
	}
	// Same buffer, row-major order preserved.
	if reshaped.AsFloat32()[3] != 4 {
		t.Errorf("expected 4 at flat index 3, got %v", reshaped.AsFloat32()[3])
	}
}

func TestWithShapePanicsOnCountMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on element count mismatch")
		}
	}()
	arr := MustNewArray(Shape{2, 3}, Float32, CPU)
	arr.WithShape(Shape{4})
}

func TestWithDevice(t *testing.T) {
	arr := MustNewArray(Shape{2}, Float32, CPU)
	tagged := arr.WithDevice(WebGPU)

	if tagged.Device() != WebGPU {
		t.Errorf("expected WebGPU, got %v", tagged.Device())
	}
	if arr.Device() != CPU {
		t.Error("original device should be unchanged")
	}

	// The view still shares the buffer.
	tagged.AsFloat32()[0] = 9
	if arr.AsFloat32()[0] != 9 {
		t.Error("device view should share the buffer")
	}
}

func TestRefcounting(t *testing.T) {
	arr := MustNewArray(Shape{4}, Float32, CPU)
	view := arr.View()

	arr.Release()
	// Buffer still alive through view.
	view.AsFloat32()[0] = 1
	view.Release()
}

func TestStrides(t *testing.T) {
	arr := MustNewArray(Shape{2, 3, 4}, Float32, CPU)
	strides := arr.Strides()
	expected := []int{12, 4, 1}
	for i := range expected {
		if strides[i] != expected[i] {
			t.Errorf("expected strides %v, got %v", expected, strides)
			break
		}
	}
}
