package einsum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobjwood/Tricycle/internal/backend/cpu"
	"github.com/jacobjwood/Tricycle/internal/tensor"
)

func newFloat32(t *testing.T, shape tensor.Shape, data []float32) *tensor.Array {
	t.Helper()
	a := tensor.MustNewArray(shape, tensor.Float32, tensor.CPU)
	copy(a.AsFloat32(), data)
	return a
}

func TestParseRejectsMalformedSignatures(t *testing.T) {
	cases := []struct {
		name string
		sig  string
	}{
		{"missing arrow", "ij,jk"},
		{"no inputs", "->ij"},
		{"repeated symbol within input", "ii->i"},
		{"repeated output symbol", "ij->ii"},
		{"invalid symbol", "i1->i"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.sig)
			require.Error(t, err)
			var unsupported *tensor.UnsupportedSignatureError
			require.ErrorAs(t, err, &unsupported)
			assert.Equal(t, tc.sig, unsupported.Signature)
		})
	}
}

func TestValidateRejectsUnboundOutputSymbol(t *testing.T) {
	sig, err := Parse("i->ij")
	require.NoError(t, err)

	var unsupported *tensor.UnsupportedSignatureError
	require.ErrorAs(t, sig.Validate(), &unsupported)
}

func TestContractMatMul(t *testing.T) {
	backend := cpu.New()
	a := newFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	b := newFloat32(t, tensor.Shape{3, 2}, []float32{7, 8, 9, 10, 11, 12})

	out, err := Contract(backend, MustParse("ij,jk->ik"), a, b)
	require.NoError(t, err)
	require.True(t, out.Shape().Equal(tensor.Shape{2, 2}))
	assert.Equal(t, []float32{58, 64, 139, 154}, out.AsFloat32())
}

func TestContractTranspose(t *testing.T) {
	backend := cpu.New()
	a := newFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	out, err := Contract(backend, MustParse("ij->ji"), a)
	require.NoError(t, err)
	require.True(t, out.Shape().Equal(tensor.Shape{3, 2}))
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, out.AsFloat32())
}

func TestContractSumAll(t *testing.T) {
	backend := cpu.New()
	a := newFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	out, err := Contract(backend, MustParse("ij->"), a)
	require.NoError(t, err)
	require.Len(t, out.Shape(), 0)
	assert.Equal(t, float32(21), out.AsFloat32()[0])
}

func TestContractRowSum(t *testing.T) {
	backend := cpu.New()
	a := newFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	out, err := Contract(backend, MustParse("ij->i"), a)
	require.NoError(t, err)
	require.True(t, out.Shape().Equal(tensor.Shape{2}))
	assert.Equal(t, []float32{6, 15}, out.AsFloat32())
}

func TestContractOuterProduct(t *testing.T) {
	backend := cpu.New()
	a := newFloat32(t, tensor.Shape{2}, []float32{1, 2})
	b := newFloat32(t, tensor.Shape{3}, []float32{10, 20, 30})

	out, err := Contract(backend, MustParse("i,j->ij"), a, b)
	require.NoError(t, err)
	require.True(t, out.Shape().Equal(tensor.Shape{2, 3}))
	assert.Equal(t, []float32{10, 20, 30, 20, 40, 60}, out.AsFloat32())
}

func TestContractElementwise(t *testing.T) {
	backend := cpu.New()
	a := newFloat32(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	b := newFloat32(t, tensor.Shape{2, 2}, []float32{5, 6, 7, 8})

	out, err := Contract(backend, MustParse("ij,ij->ij"), a, b)
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 12, 21, 32}, out.AsFloat32())
}

func TestContractBatchMatMul(t *testing.T) {
	backend := cpu.New()
	a := newFloat32(t, tensor.Shape{2, 1, 2}, []float32{1, 2, 3, 4})
	b := newFloat32(t, tensor.Shape{2, 2, 1}, []float32{5, 6, 7, 8})

	out, err := Contract(backend, MustParse("bij,bjk->bik"), a, b)
	require.NoError(t, err)
	require.True(t, out.Shape().Equal(tensor.Shape{2, 1, 1}))
	assert.Equal(t, []float32{17, 53}, out.AsFloat32())
}

func TestContractInnerProduct(t *testing.T) {
	backend := cpu.New()
	a := newFloat32(t, tensor.Shape{3}, []float32{1, 2, 3})
	b := newFloat32(t, tensor.Shape{3}, []float32{4, 5, 6})

	out, err := Contract(backend, MustParse("i,i->"), a, b)
	require.NoError(t, err)
	assert.Equal(t, float32(32), out.AsFloat32()[0])
}

func TestContractBroadcastSizeOne(t *testing.T) {
	backend := cpu.New()
	a := newFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	b := newFloat32(t, tensor.Shape{1, 3}, []float32{10, 20, 30})

	out, err := Contract(backend, MustParse("ij,ij->ij"), a, b)
	require.NoError(t, err)
	require.True(t, out.Shape().Equal(tensor.Shape{2, 3}))
	assert.Equal(t, []float32{10, 40, 90, 40, 100, 180}, out.AsFloat32())
}

func TestContractDimensionMismatch(t *testing.T) {
	backend := cpu.New()
	a := newFloat32(t, tensor.Shape{2, 3}, make([]float32, 6))
	b := newFloat32(t, tensor.Shape{4, 2}, make([]float32, 8))

	_, err := Contract(backend, MustParse("ij,jk->ik"), a, b)
	require.Error(t, err)
	var shapeErr *tensor.ShapeError
	require.ErrorAs(t, err, &shapeErr)
}

func TestContractRankMismatch(t *testing.T) {
	backend := cpu.New()
	a := newFloat32(t, tensor.Shape{2, 3}, make([]float32, 6))

	_, err := Contract(backend, MustParse("ijk->i"), a)
	require.Error(t, err)
	var shapeErr *tensor.ShapeError
	require.ErrorAs(t, err, &shapeErr)
}

func TestDerivativeSignatureSwapsLabels(t *testing.T) {
	sig := MustParse("ij,jk->ik")

	assert.Equal(t, "ik,jk->ij", sig.Derivative(0).String())
	assert.Equal(t, "ij,ik->jk", sig.Derivative(1).String())
}

func TestDerivativeReinflatesSummedAxis(t *testing.T) {
	backend := cpu.New()

	// Forward: row sum "ij->i" over a [2, 3] operand. The derivative
	// signature "i->ij" broadcasts the upstream gradient across the
	// summed-away j axis.
	grad := newFloat32(t, tensor.Shape{2}, []float32{10, 20})
	d := MustParse("ij->i").Derivative(0)
	dims := map[rune]int{'i': 2, 'j': 3}

	out, err := ContractWithDims(backend, d, dims, grad)
	require.NoError(t, err)
	require.True(t, out.Shape().Equal(tensor.Shape{2, 3}))
	assert.Equal(t, []float32{10, 10, 10, 20, 20, 20}, out.AsFloat32())
}

// The fast paths are optimizations over the general loop; they must agree
// with it on the signatures they claim.
func TestFastPathMatchesGeneralContraction(t *testing.T) {
	backend := cpu.New()
	a := newFloat32(t, tensor.Shape{3, 4}, nil)
	b := newFloat32(t, tensor.Shape{4, 2}, nil)
	for i := range a.AsFloat32() {
		a.AsFloat32()[i] = float32(math.Sin(float64(i)))
	}
	for i := range b.AsFloat32() {
		b.AsFloat32()[i] = float32(math.Cos(float64(i)))
	}

	fast, err := Contract(backend, MustParse("ij,jk->ik"), a, b)
	require.NoError(t, err)

	// "kj" on the second operand blocks the matmul pattern, so this runs
	// through the general loop on transposed data.
	bT := backend.Transpose(b)
	general, err := Contract(backend, MustParse("ij,kj->ik"), a, bT)
	require.NoError(t, err)

	require.True(t, fast.Shape().Equal(general.Shape()))
	for i := range fast.AsFloat32() {
		assert.InDelta(t, general.AsFloat32()[i], fast.AsFloat32()[i], 1e-4)
	}
}
