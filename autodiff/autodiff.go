// Package autodiff provides the public API for reverse-mode
// differentiation.
//
// Example:
//
//	y, _ := ops.Mul(x, x)
//	if err := autodiff.Backward(y); err != nil {
//	    return err
//	}
//	grad := x.Grad()
package autodiff

import (
	"github.com/jacobjwood/Tricycle/internal/autodiff"
)

// Backward runs reverse-mode differentiation from root with a ones seed.
var Backward = autodiff.Backward

// BackwardWithSeed is Backward with an explicit seed gradient.
var BackwardWithSeed = autodiff.BackwardWithSeed
