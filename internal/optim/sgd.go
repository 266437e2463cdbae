package optim

import (
	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// SGD is stochastic gradient descent with optional momentum and decoupled
// weight decay.
type SGD struct {
	params       []*tensor.Tensor
	learningRate float64
	momentum     float64
	weightDecay  float64

	velocity map[uint64]*tensor.Array
}

// SGDConfig configures an SGD optimizer.
type SGDConfig struct {
	LearningRate float64
	Momentum     float64 // 0 disables the velocity buffer
	WeightDecay  float64 // decoupled, applied directly to parameters
}

// NewSGD creates an SGD optimizer over the parameter tensors.
func NewSGD(params []*tensor.Tensor, cfg SGDConfig) *SGD {
	return &SGD{
		params:       params,
		learningRate: cfg.LearningRate,
		momentum:     cfg.Momentum,
		weightDecay:  cfg.WeightDecay,
		velocity:     make(map[uint64]*tensor.Array),
	}
}

// Step applies one SGD update:
//
//	v = momentum * v + grad
//	p = p - lr * v - lr * weight_decay * p
func (s *SGD) Step() error {
	for _, p := range s.params {
		grad := p.Grad()
		if grad == nil {
			continue
		}
		be := p.Backend()

		update := grad
		if s.momentum != 0 {
			v, ok := s.velocity[p.ID()]
			if !ok {
				v = grad.Clone()
			} else {
				v = be.Add(be.MulScalar(v, s.momentum), grad)
			}
			s.velocity[p.ID()] = v
			update = v
		}

		delta := be.MulScalar(update, -s.learningRate)
		if s.weightDecay != 0 {
			decay := be.MulScalar(p.Array(), -s.learningRate*s.weightDecay)
			delta = be.Add(delta, decay)
		}
		if err := p.ApplyDelta(delta); err != nil {
			return err
		}
	}
	return nil
}

// ZeroGrad clears all parameter gradients.
func (s *SGD) ZeroGrad() {
	zeroGrads(s.params)
}
