package optim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobjwood/Tricycle/internal/autodiff"
	"github.com/jacobjwood/Tricycle/internal/backend/cpu"
	"github.com/jacobjwood/Tricycle/internal/ops"
	"github.com/jacobjwood/Tricycle/internal/tensor"
)

func param(t *testing.T, b tensor.Backend, vals []float64) *tensor.Tensor {
	t.Helper()
	arr := tensor.MustNewArray(tensor.Shape{len(vals)}, tensor.Float64, tensor.CPU)
	copy(arr.AsFloat64(), vals)
	return tensor.New(arr, b).RequireGrad()
}

// quadraticStep runs one forward/backward of loss = sum(p^2), whose
// minimum is at zero.
func quadraticStep(t *testing.T, p *tensor.Tensor) {
	t.Helper()
	sq, err := ops.Mul(p, p)
	require.NoError(t, err)
	loss, err := ops.Sum(sq)
	require.NoError(t, err)
	require.NoError(t, autodiff.Backward(loss))
}

func TestSGDStep(t *testing.T) {
	backend := cpu.New()
	p := param(t, backend, []float64{2, -4})
	opt := NewSGD([]*tensor.Tensor{p}, SGDConfig{LearningRate: 0.1})

	quadraticStep(t, p)
	require.NoError(t, opt.Step())

	// p - lr * 2p.
	assert.InDelta(t, 1.6, p.Array().Float(0), 1e-9)
	assert.InDelta(t, -3.2, p.Array().Float(1), 1e-9)
}

func TestSGDMomentumAccumulates(t *testing.T) {
	backend := cpu.New()
	p := param(t, backend, []float64{1})
	opt := NewSGD([]*tensor.Tensor{p}, SGDConfig{LearningRate: 0.1, Momentum: 0.9})

	// Constant gradient of 1 both steps.
	setGrad := func() {
		g := tensor.MustNewArray(tensor.Shape{1}, tensor.Float64, tensor.CPU)
		g.SetFloat(0, 1)
		p.AccumulateGrad(g)
	}

	setGrad()
	require.NoError(t, opt.Step())
	assert.InDelta(t, 0.9, p.Array().Float(0), 1e-9)

	opt.ZeroGrad()
	setGrad()
	require.NoError(t, opt.Step())
	// Velocity: 0.9*1 + 1 = 1.9; p = 0.9 - 0.19.
	assert.InDelta(t, 0.71, p.Array().Float(0), 1e-9)
}

func TestSGDConvergesOnQuadratic(t *testing.T) {
	backend := cpu.New()
	p := param(t, backend, []float64{3, -2, 5})
	opt := NewSGD([]*tensor.Tensor{p}, SGDConfig{LearningRate: 0.1})

	for i := 0; i < 100; i++ {
		opt.ZeroGrad()
		quadraticStep(t, p)
		require.NoError(t, opt.Step())
	}

	for i := 0; i < 3; i++ {
		assert.InDelta(t, 0.0, p.Array().Float(i), 1e-6)
	}
}

func TestSGDSkipsParamsWithoutGrad(t *testing.T) {
	backend := cpu.New()
	p := param(t, backend, []float64{1, 2})
	untouched := param(t, backend, []float64{7})
	opt := NewSGD([]*tensor.Tensor{p, untouched}, SGDConfig{LearningRate: 0.5})

	quadraticStep(t, p)
	require.NoError(t, opt.Step())

	assert.InDelta(t, 7.0, untouched.Array().Float(0), 1e-12)
}

func TestAdamWFirstStepMagnitude(t *testing.T) {
	backend := cpu.New()
	p := param(t, backend, []float64{10})
	opt := NewAdamW([]*tensor.Tensor{p}, AdamWConfig{LearningRate: 0.001})

	quadraticStep(t, p)
	require.NoError(t, opt.Step())

	// After bias correction the first Adam step is roughly lr-sized
	// against the gradient's sign.
	assert.InDelta(t, 10-0.001, p.Array().Float(0), 1e-6)
}

func TestAdamWConvergesOnQuadratic(t *testing.T) {
	backend := cpu.New()
	p := param(t, backend, []float64{1.5, -0.5})
	opt := NewAdamW([]*tensor.Tensor{p}, AdamWConfig{LearningRate: 0.05})

	for i := 0; i < 300; i++ {
		opt.ZeroGrad()
		quadraticStep(t, p)
		require.NoError(t, opt.Step())
	}

	for i := 0; i < 2; i++ {
		assert.InDelta(t, 0.0, p.Array().Float(i), 1e-3)
	}
}

func TestAdamWWeightDecayShrinksParams(t *testing.T) {
	backend := cpu.New()
	p := param(t, backend, []float64{100})
	opt := NewAdamW([]*tensor.Tensor{p}, AdamWConfig{LearningRate: 0.1, WeightDecay: 0.1})

	// Gradient of zero: only decay acts.
	g := tensor.MustNewArray(tensor.Shape{1}, tensor.Float64, tensor.CPU)
	p.AccumulateGrad(g)
	require.NoError(t, opt.Step())

	assert.Less(t, p.Array().Float(0), 100.0)
}
