// Package optim implements gradient-descent optimizers over graph leaves.
//
// An optimizer holds the trainable parameter tensors and, on each Step,
// turns their accumulated gradients into in-place deltas. It never touches
// the graph: parameters are leaves, gradients were produced by a completed
// backward pass, and updates run strictly between backward and the next
// forward.
package optim

import (
	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// Optimizer updates parameters from their accumulated gradients.
type Optimizer interface {
	// Step applies one update from the current gradients. Parameters with
	// no gradient contribution are skipped.
	Step() error

	// ZeroGrad clears all parameter gradients, marking the step boundary.
	ZeroGrad()
}

// zeroGrads clears gradients on every parameter.
func zeroGrads(params []*tensor.Tensor) {
	for _, p := range params {
		p.ZeroGrad()
	}
}
