package optim

import (
	"math"

	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// AdamW is Adam with decoupled weight decay.
type AdamW struct {
	params       []*tensor.Tensor
	learningRate float64
	beta1        float64
	beta2        float64
	epsilon      float64
	weightDecay  float64

	step int
	m    map[uint64]*tensor.Array // first-moment estimates
	v    map[uint64]*tensor.Array // second-moment estimates
}

// AdamWConfig configures an AdamW optimizer. Zero-valued fields take the
// usual defaults.
type AdamWConfig struct {
	LearningRate float64
	Beta1        float64 // default 0.9
	Beta2        float64 // default 0.999
	Epsilon      float64 // default 1e-8
	WeightDecay  float64
}

// NewAdamW creates an AdamW optimizer over the parameter tensors.
func NewAdamW(params []*tensor.Tensor, cfg AdamWConfig) *AdamW {
	if cfg.Beta1 == 0 {
		cfg.Beta1 = 0.9
	}
	if cfg.Beta2 == 0 {
		cfg.Beta2 = 0.999
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = 1e-8
	}
	return &AdamW{
		params:       params,
		learningRate: cfg.LearningRate,
		beta1:        cfg.Beta1,
		beta2:        cfg.Beta2,
		epsilon:      cfg.Epsilon,
		weightDecay:  cfg.WeightDecay,
		m:            make(map[uint64]*tensor.Array),
		v:            make(map[uint64]*tensor.Array),
	}
}

// Step applies one AdamW update:
//
//	m = beta1 * m + (1 - beta1) * grad
//	v = beta2 * v + (1 - beta2) * grad^2
//	p = p - lr * mhat / (sqrt(vhat) + eps) - lr * weight_decay * p
//
// with mhat and vhat the bias-corrected moments.
func (a *AdamW) Step() error {
	a.step++
	correction1 := 1 - math.Pow(a.beta1, float64(a.step))
	correction2 := 1 - math.Pow(a.beta2, float64(a.step))

	for _, p := range a.params {
		grad := p.Grad()
		if grad == nil {
			continue
		}
		be := p.Backend()

		m, ok := a.m[p.ID()]
		if !ok {
			m = be.MulScalar(grad, 1-a.beta1)
		} else {
			m = be.Add(be.MulScalar(m, a.beta1), be.MulScalar(grad, 1-a.beta1))
		}
		a.m[p.ID()] = m

		gradSq := be.Mul(grad, grad)
		v, ok := a.v[p.ID()]
		if !ok {
			v = be.MulScalar(gradSq, 1-a.beta2)
		} else {
			v = be.Add(be.MulScalar(v, a.beta2), be.MulScalar(gradSq, 1-a.beta2))
		}
		a.v[p.ID()] = v

		mhat := be.MulScalar(m, 1/correction1)
		vhat := be.MulScalar(v, 1/correction2)

		denom := be.AddScalar(be.Sqrt(vhat), a.epsilon)
		delta := be.MulScalar(be.Div(mhat, denom), -a.learningRate)
		if a.weightDecay != 0 {
			decay := be.MulScalar(p.Array(), -a.learningRate*a.weightDecay)
			delta = be.Add(delta, decay)
		}
		if err := p.ApplyDelta(delta); err != nil {
			return err
		}
	}
	return nil
}

// ZeroGrad clears all parameter gradients.
func (a *AdamW) ZeroGrad() {
	zeroGrads(a.params)
}
