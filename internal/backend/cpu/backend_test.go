package cpu

import (
	"math"
	"testing"

	"github.com/jacobjwood/Tricycle/internal/tensor"
)

func newFloat32(t *testing.T, shape tensor.Shape, data []float32) *tensor.Array {
	t.Helper()
	a := tensor.MustNewArray(shape, tensor.Float32, tensor.CPU)
	copy(a.AsFloat32(), data)
	return a
}

func TestAddSameShape(t *testing.T) {
	backend := New()
	a := newFloat32(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	b := newFloat32(t, tensor.Shape{2, 2}, []float32{10, 20, 30, 40})

	out := backend.Add(a, b)
	want := []float32{11, 22, 33, 44}
	for i, v := range out.AsFloat32() {
		if v != want[i] {
			t.Errorf("element %d: expected %v, got %v", i, want[i], v)
		}
	}
}

func TestAddBroadcastRow(t *testing.T) {
	backend := New()
	a := newFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	b := newFloat32(t, tensor.Shape{3}, []float32{10, 20, 30})

	out := backend.Add(a, b)
	if !out.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("expected shape [2, 3], got %v", out.Shape())
	}
	want := []float32{11, 22, 33, 14, 25, 36}
	for i, v := range out.AsFloat32() {
		if v != want[i] {
			t.Errorf("element %d: expected %v, got %v", i, want[i], v)
		}
	}
}

func TestMulBroadcastColumn(t *testing.T) {
	backend := New()
	a := newFloat32(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	b := newFloat32(t, tensor.Shape{2, 1}, []float32{10, 100})

	out := backend.Mul(a, b)
	want := []float32{10, 20, 300, 400}
	for i, v := range out.AsFloat32() {
		if v != want[i] {
			t.Errorf("element %d: expected %v, got %v", i, want[i], v)
		}
	}
}

func TestAddIncompatibleShapesPanics(t *testing.T) {
	backend := New()
	a := newFloat32(t, tensor.Shape{2, 3}, make([]float32, 6))
	b := newFloat32(t, tensor.Shape{2, 2}, make([]float32, 4))

	defer func() {
		if recover() == nil {
			t.Error("expected panic for incompatible shapes")
		}
	}()
	backend.Add(a, b)
}

func TestScalarOps(t *testing.T) {
	backend := New()
	x := newFloat32(t, tensor.Shape{3}, []float32{1, 2, 3})

	added := backend.AddScalar(x, 1)
	for i, v := range added.AsFloat32() {
		if v != float32(i+2) {
			t.Errorf("add scalar element %d: expected %v, got %v", i, i+2, v)
		}
	}

	scaled := backend.MulScalar(x, 2)
	for i, v := range scaled.AsFloat32() {
		if v != float32(2*(i+1)) {
			t.Errorf("mul scalar element %d: expected %v, got %v", i, 2*(i+1), v)
		}
	}

	squared := backend.PowScalar(x, 2)
	for i, v := range squared.AsFloat32() {
		want := float32((i + 1) * (i + 1))
		if v != want {
			t.Errorf("pow scalar element %d: expected %v, got %v", i, want, v)
		}
	}
}

func TestMatMul(t *testing.T) {
	backend := New()
	a := newFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	b := newFloat32(t, tensor.Shape{3, 2}, []float32{7, 8, 9, 10, 11, 12})

	out := backend.MatMul(a, b)
	if !out.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("expected shape [2, 2], got %v", out.Shape())
	}
	want := []float32{58, 64, 139, 154}
	for i, v := range out.AsFloat32() {
		if v != want[i] {
			t.Errorf("element %d: expected %v, got %v", i, want[i], v)
		}
	}
}

func TestBatchMatMul(t *testing.T) {
	backend := New()
	a := newFloat32(t, tensor.Shape{2, 1, 2}, []float32{1, 2, 3, 4})
	b := newFloat32(t, tensor.Shape{2, 2, 1}, []float32{5, 6, 7, 8})

	out := backend.BatchMatMul(a, b)
	if !out.Shape().Equal(tensor.Shape{2, 1, 1}) {
		t.Fatalf("expected shape [2, 1, 1], got %v", out.Shape())
	}
	want := []float32{17, 53}
	for i, v := range out.AsFloat32() {
		if v != want[i] {
			t.Errorf("batch %d: expected %v, got %v", i, want[i], v)
		}
	}
}

func TestMatMulFloat64(t *testing.T) {
	backend := New()
	a := tensor.MustNewArray(tensor.Shape{2, 2}, tensor.Float64, tensor.CPU)
	b := tensor.MustNewArray(tensor.Shape{2, 2}, tensor.Float64, tensor.CPU)
	copy(a.AsFloat64(), []float64{1, 2, 3, 4})
	copy(b.AsFloat64(), []float64{5, 6, 7, 8})

	out := backend.MatMul(a, b)
	want := []float64{19, 22, 43, 50}
	for i, v := range out.AsFloat64() {
		if v != want[i] {
			t.Errorf("element %d: expected %v, got %v", i, want[i], v)
		}
	}
}

func TestSum(t *testing.T) {
	backend := New()
	x := newFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	out := backend.Sum(x)
	if len(out.Shape()) != 0 {
		t.Fatalf("expected scalar shape, got %v", out.Shape())
	}
	if got := out.AsFloat32()[0]; got != 21 {
		t.Errorf("expected 21, got %v", got)
	}
}

func TestSumAxis(t *testing.T) {
	backend := New()
	x := newFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	rows := backend.SumAxis(x, 1, false)
	if !rows.Shape().Equal(tensor.Shape{2}) {
		t.Fatalf("expected shape [2], got %v", rows.Shape())
	}
	if d := rows.AsFloat32(); d[0] != 6 || d[1] != 15 {
		t.Errorf("expected [6 15], got %v", d)
	}

	cols := backend.SumAxis(x, 0, true)
	if !cols.Shape().Equal(tensor.Shape{1, 3}) {
		t.Fatalf("expected shape [1, 3], got %v", cols.Shape())
	}
	if d := cols.AsFloat32(); d[0] != 5 || d[1] != 7 || d[2] != 9 {
		t.Errorf("expected [5 7 9], got %v", d)
	}
}

func TestMaxAxis(t *testing.T) {
	backend := New()
	x := newFloat32(t, tensor.Shape{2, 3}, []float32{1, 5, 3, 4, 2, 6})

	out := backend.MaxAxis(x, 1, true)
	if !out.Shape().Equal(tensor.Shape{2, 1}) {
		t.Fatalf("expected shape [2, 1], got %v", out.Shape())
	}
	if d := out.AsFloat32(); d[0] != 5 || d[1] != 6 {
		t.Errorf("expected [5 6], got %v", d)
	}
}

func TestTranspose2D(t *testing.T) {
	backend := New()
	x := newFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	out := backend.Transpose(x)
	if !out.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("expected shape [3, 2], got %v", out.Shape())
	}
	want := []float32{1, 4, 2, 5, 3, 6}
	for i, v := range out.AsFloat32() {
		if v != want[i] {
			t.Errorf("element %d: expected %v, got %v", i, want[i], v)
		}
	}
}

func TestTransposeAxes3D(t *testing.T) {
	backend := New()
	x := newFloat32(t, tensor.Shape{2, 2, 2}, []float32{0, 1, 2, 3, 4, 5, 6, 7})

	// Swap the last two axes: out[i][k][j] = x[i][j][k].
	out := backend.Transpose(x, 0, 2, 1)
	if !out.Shape().Equal(tensor.Shape{2, 2, 2}) {
		t.Fatalf("expected shape [2, 2, 2], got %v", out.Shape())
	}
	want := []float32{0, 2, 1, 3, 4, 6, 5, 7}
	for i, v := range out.AsFloat32() {
		if v != want[i] {
			t.Errorf("element %d: expected %v, got %v", i, want[i], v)
		}
	}
}

func TestBroadcastTo(t *testing.T) {
	backend := New()
	x := newFloat32(t, tensor.Shape{1, 3}, []float32{1, 2, 3})

	out := backend.BroadcastTo(x, tensor.Shape{2, 3})
	want := []float32{1, 2, 3, 1, 2, 3}
	for i, v := range out.AsFloat32() {
		if v != want[i] {
			t.Errorf("element %d: expected %v, got %v", i, want[i], v)
		}
	}
}

func TestConcatAndNarrow(t *testing.T) {
	backend := New()
	a := newFloat32(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	b := newFloat32(t, tensor.Shape{2, 1}, []float32{5, 6})

	joined := backend.Concat([]*tensor.Array{a, b}, 1)
	if !joined.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("expected shape [2, 3], got %v", joined.Shape())
	}
	want := []float32{1, 2, 5, 3, 4, 6}
	for i, v := range joined.AsFloat32() {
		if v != want[i] {
			t.Errorf("concat element %d: expected %v, got %v", i, want[i], v)
		}
	}

	back := backend.Narrow(joined, 1, 2, 1)
	if !back.Shape().Equal(tensor.Shape{2, 1}) {
		t.Fatalf("expected shape [2, 1], got %v", back.Shape())
	}
	if d := back.AsFloat32(); d[0] != 5 || d[1] != 6 {
		t.Errorf("expected [5 6], got %v", d)
	}
}

func TestGreaterEqualTies(t *testing.T) {
	backend := New()
	a := newFloat32(t, tensor.Shape{4}, []float32{1, 2, 2, 3})
	b := newFloat32(t, tensor.Shape{4}, []float32{2, 2, 1, 4})

	out := backend.GreaterEqual(a, b)
	if out.DType() != tensor.Bool {
		t.Fatalf("expected bool dtype, got %s", out.DType())
	}
	want := []bool{false, true, true, false}
	for i, v := range out.AsBool() {
		if v != want[i] {
			t.Errorf("element %d: expected %v, got %v", i, want[i], v)
		}
	}
}

func TestWhere(t *testing.T) {
	backend := New()
	cond := tensor.MustNewArray(tensor.Shape{4}, tensor.Bool, tensor.CPU)
	copy(cond.AsBool(), []bool{true, false, true, false})
	x := newFloat32(t, tensor.Shape{4}, []float32{1, 2, 3, 4})
	y := newFloat32(t, tensor.Shape{4}, []float32{10, 20, 30, 40})

	out := backend.Where(cond, x, y)
	want := []float32{1, 20, 3, 40}
	for i, v := range out.AsFloat32() {
		if v != want[i] {
			t.Errorf("element %d: expected %v, got %v", i, want[i], v)
		}
	}
}

func TestSoftmaxRowsSumToOne(t *testing.T) {
	backend := New()
	x := newFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 1, 1, 1})

	out := backend.Softmax(x)
	data := out.AsFloat32()
	for r := 0; r < 2; r++ {
		var sum float32
		for c := 0; c < 3; c++ {
			sum += data[r*3+c]
		}
		if math.Abs(float64(sum-1)) > 1e-6 {
			t.Errorf("row %d: expected sum 1, got %v", r, sum)
		}
	}
	// Uniform logits give uniform probabilities.
	for c := 0; c < 3; c++ {
		if math.Abs(float64(data[3+c]-1.0/3.0)) > 1e-6 {
			t.Errorf("uniform row element %d: expected 1/3, got %v", c, data[3+c])
		}
	}
}

func TestSoftmaxExtremeLogits(t *testing.T) {
	backend := New()
	x := newFloat32(t, tensor.Shape{1, 3}, []float32{1000, 999, 998})

	out := backend.Softmax(x)
	data := out.AsFloat32()
	var sum float32
	for _, v := range data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("non-finite softmax output: %v", data)
		}
		sum += v
	}
	if math.Abs(float64(sum-1)) > 1e-5 {
		t.Errorf("expected sum 1, got %v", sum)
	}
	if data[0] <= data[1] || data[1] <= data[2] {
		t.Errorf("expected decreasing probabilities, got %v", data)
	}
}

func TestExpLog(t *testing.T) {
	backend := New()
	x := newFloat32(t, tensor.Shape{3}, []float32{0.5, 1, 2})

	roundTrip := backend.Log(backend.Exp(x))
	for i, v := range roundTrip.AsFloat32() {
		if math.Abs(float64(v-x.AsFloat32()[i])) > 1e-6 {
			t.Errorf("element %d: expected %v, got %v", i, x.AsFloat32()[i], v)
		}
	}
}
