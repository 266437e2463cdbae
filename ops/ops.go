// Package ops provides the public API for differentiable tensor operations.
//
// Every operation validates its operands, computes through the operands'
// backend, and records the backward closures needed by autodiff.Backward.
package ops

import (
	"github.com/jacobjwood/Tricycle/internal/ops"
	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// Element-wise binary operations with broadcasting.
var (
	Add     = ops.Add
	Sub     = ops.Sub
	Mul     = ops.Mul
	Div     = ops.Div
	Maximum = ops.Maximum
	Minimum = ops.Minimum
	Mask    = ops.Mask
)

// Element-wise unary operations.
var (
	AddScalar = ops.AddScalar
	MulScalar = ops.MulScalar
	Neg       = ops.Neg
	Pow       = ops.Pow
	Exp       = ops.Exp
	Log       = ops.Log
	Sqrt      = ops.Sqrt
	Sin       = ops.Sin
	Cos       = ops.Cos
)

// Activations.
var (
	ReLU    = ops.ReLU
	Sigmoid = ops.Sigmoid
	Tanh    = ops.Tanh
	GeLU    = ops.GeLU
)

// Reductions.
var (
	Sum     = ops.Sum
	Mean    = ops.Mean
	SumAxis = ops.SumAxis
	MaxAxis = ops.MaxAxis
)

// Shape operations.
var (
	Reshape   = ops.Reshape
	Transpose = ops.Transpose
	Concat    = ops.Concat
	Split     = ops.Split
)

// Contraction and fused operations.
var (
	Einsum       = ops.Einsum
	MatMul       = ops.MatMul
	Softmax      = ops.Softmax
	CrossEntropy = ops.CrossEntropy
)

// MSE computes the mean squared error between a prediction and a target,
// composed from primitive ops so the graph handles the backward pass.
func MSE(pred, target *tensor.Tensor) (*tensor.Tensor, error) {
	diff, err := ops.Sub(pred, target)
	if err != nil {
		return nil, err
	}
	sq, err := ops.Mul(diff, diff)
	if err != nil {
		return nil, err
	}
	return ops.Mean(sq)
}
