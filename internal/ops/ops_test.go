package ops

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobjwood/Tricycle/internal/autodiff"
	"github.com/jacobjwood/Tricycle/internal/backend/cpu"
	"github.com/jacobjwood/Tricycle/internal/tensor"
)

func TestAddRejectsIncompatibleShapes(t *testing.T) {
	backend := cpu.New()
	a := tensor.New(tensor.MustNewArray(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU), backend)
	b := tensor.New(tensor.MustNewArray(tensor.Shape{2, 4}, tensor.Float32, tensor.CPU), backend)

	_, err := Add(a, b)
	var shapeErr *tensor.ShapeError
	require.ErrorAs(t, err, &shapeErr)
}

func TestBinaryRejectsMixedDTypes(t *testing.T) {
	backend := cpu.New()
	a := tensor.New(tensor.MustNewArray(tensor.Shape{2}, tensor.Float32, tensor.CPU), backend)
	b := tensor.New(tensor.MustNewArray(tensor.Shape{2}, tensor.Float64, tensor.CPU), backend)

	_, err := Mul(a, b)
	require.Error(t, err)
}

func TestOpsRejectMixedDevices(t *testing.T) {
	backend := cpu.New()
	a := tensor.New(tensor.MustNewArray(tensor.Shape{2}, tensor.Float32, tensor.CPU), backend)
	// Same buffer layout, tagged for another device.
	b := tensor.New(tensor.MustNewArray(tensor.Shape{2}, tensor.Float32, tensor.CPU).WithDevice(tensor.WebGPU), backend)

	_, err := Add(a, b)
	var mismatch *tensor.DeviceMismatchError
	require.ErrorAs(t, err, &mismatch)

	_, err = Einsum("i,i->", a, b)
	require.ErrorAs(t, err, &mismatch)

	_, err = CrossEntropy(
		tensor.New(tensor.MustNewArray(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU), backend),
		tensor.New(tensor.MustNewArray(tensor.Shape{2}, tensor.Int32, tensor.CPU).WithDevice(tensor.WebGPU), backend),
	)
	require.ErrorAs(t, err, &mismatch)
}

func TestEinsumRejectsDiagonalSignature(t *testing.T) {
	backend := cpu.New()
	x := tensor.New(tensor.MustNewArray(tensor.Shape{3, 3}, tensor.Float32, tensor.CPU), backend)

	_, err := Einsum("ii->i", x)
	var unsupported *tensor.UnsupportedSignatureError
	require.ErrorAs(t, err, &unsupported)
}

func TestCrossEntropyRejectsOutOfRangeLabel(t *testing.T) {
	backend := cpu.New()
	logits := tensor.New(tensor.MustNewArray(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU), backend)
	labelArr := tensor.MustNewArray(tensor.Shape{2}, tensor.Int32, tensor.CPU)
	copy(labelArr.AsInt32(), []int32{0, 3})
	labels := tensor.New(labelArr, backend)

	_, err := CrossEntropy(logits, labels)
	require.Error(t, err)
}

func TestUntrackedOpsBuildNoGraph(t *testing.T) {
	backend := cpu.New()
	a := tensor.New(tensor.MustNewArray(tensor.Shape{2}, tensor.Float32, tensor.CPU), backend)
	b := tensor.New(tensor.MustNewArray(tensor.Shape{2}, tensor.Float32, tensor.CPU), backend)

	y, err := Mul(a, b)
	require.NoError(t, err)
	assert.True(t, y.IsLeaf())
	assert.False(t, y.Tracked())
}

func TestMatMulBatchedFlagSelectsBatchedSignature(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(11))

	batchArr := tensor.MustNewArray(tensor.Shape{2, 3, 4}, tensor.Float32, tensor.CPU)
	weightArr := tensor.MustNewArray(tensor.Shape{4, 5}, tensor.Float32, tensor.CPU)
	for i := range batchArr.AsFloat32() {
		batchArr.AsFloat32()[i] = rng.Float32()
	}
	for i := range weightArr.AsFloat32() {
		weightArr.AsFloat32()[i] = rng.Float32()
	}

	x := tensor.New(batchArr, backend).ToBatched().RequireGrad()
	w := tensor.New(weightArr, backend).RequireGrad()

	// The call site is identical to the unbatched case; the batch axis
	// comes from the tensor marking.
	y, err := MatMul(x, w)
	require.NoError(t, err)
	require.True(t, y.Shape().Equal(tensor.Shape{2, 3, 5}))
	assert.True(t, y.IsBatched(), "batch marking propagates to outputs")

	loss, err := Sum(y)
	require.NoError(t, err)
	require.NoError(t, autodiff.Backward(loss))

	require.True(t, x.Grad().Shape().Equal(x.Shape()))
	require.True(t, w.Grad().Shape().Equal(w.Shape()))
}

func TestMatMulExplicitRank3(t *testing.T) {
	backend := cpu.New()
	a := tensor.New(tensor.MustNewArray(tensor.Shape{2, 1, 2}, tensor.Float32, tensor.CPU), backend)
	copy(a.Array().AsFloat32(), []float32{1, 2, 3, 4})
	b := tensor.New(tensor.MustNewArray(tensor.Shape{2, 2, 1}, tensor.Float32, tensor.CPU), backend)
	copy(b.Array().AsFloat32(), []float32{5, 6, 7, 8})

	y, err := MatMul(a, b)
	require.NoError(t, err)
	require.True(t, y.Shape().Equal(tensor.Shape{2, 1, 1}))
	assert.Equal(t, []float32{17, 53}, y.Array().AsFloat32())
}

func TestMatMulRejectsHighRank(t *testing.T) {
	backend := cpu.New()
	a := tensor.New(tensor.MustNewArray(tensor.Shape{2, 2, 2, 2}, tensor.Float32, tensor.CPU), backend)
	b := tensor.New(tensor.MustNewArray(tensor.Shape{2, 2}, tensor.Float32, tensor.CPU), backend)

	_, err := MatMul(a, b)
	var shapeErr *tensor.ShapeError
	require.ErrorAs(t, err, &shapeErr)
}

func TestSplitRejectsBadSizes(t *testing.T) {
	backend := cpu.New()
	x := tensor.New(tensor.MustNewArray(tensor.Shape{2, 5}, tensor.Float32, tensor.CPU), backend)

	_, err := Split(x, 1, []int{2, 2})
	require.Error(t, err)

	_, err = Split(x, 3, []int{5})
	require.Error(t, err)
}

func TestSoftmaxRowsSumToOne(t *testing.T) {
	backend := cpu.New()
	arr := tensor.MustNewArray(tensor.Shape{2, 2, 3}, tensor.Float32, tensor.CPU)
	for i := range arr.AsFloat32() {
		arr.AsFloat32()[i] = float32(i) - 5
	}
	x := tensor.New(arr, backend)

	y, err := Softmax(x)
	require.NoError(t, err)
	require.True(t, y.Shape().Equal(tensor.Shape{2, 2, 3}))

	data := y.Array().AsFloat32()
	for r := 0; r < 4; r++ {
		var sum float32
		for c := 0; c < 3; c++ {
			sum += data[r*3+c]
		}
		assert.InDelta(t, 1.0, float64(sum), 1e-5)
	}
}
