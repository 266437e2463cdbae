// Package optim provides the public API for gradient-descent optimizers.
package optim

import (
	"github.com/jacobjwood/Tricycle/internal/optim"
)

// Optimizer updates parameters from their accumulated gradients.
type Optimizer = optim.Optimizer

// SGD is stochastic gradient descent with optional momentum and weight
// decay.
type SGD = optim.SGD

// SGDConfig configures an SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
var NewSGD = optim.NewSGD

// AdamW is Adam with decoupled weight decay.
type AdamW = optim.AdamW

// AdamWConfig configures an AdamW optimizer.
type AdamWConfig = optim.AdamWConfig

// NewAdamW creates a new AdamW optimizer.
var NewAdamW = optim.NewAdamW
