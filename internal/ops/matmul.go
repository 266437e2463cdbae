package ops

import (
	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// MatMul multiplies matrices by dispatching to the einsum engine with the
// signature selected from operand rank and batch marking:
//
//	[M, K]    @ [K, N]    -> "ij,jk->ik"
//	[B, M, K] @ [B, K, N] -> "bij,bjk->bik"
//	[B, M, K] @ [K, N]    -> "bij,jk->bik"  (shared weights across a batch)
//
// Tensors marked batched use the plain 2D signature and pick up their batch
// axis through Einsum's batch handling, so batching never changes the call.
func MatMul(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	ra, rb := rankFor(a), rankFor(b)

	var signature string
	switch {
	case ra == 2 && rb == 2:
		signature = "ij,jk->ik"
	case ra == 3 && rb == 3:
		signature = "bij,bjk->bik"
	case ra == 3 && rb == 2:
		signature = "bij,jk->bik"
	case ra == 2 && rb == 3:
		signature = "ij,bjk->bik"
	default:
		return nil, &tensor.ShapeError{
			Op:     "matmul",
			Detail: "operands must be rank 2 or 3",
			Shapes: []tensor.Shape{a.Shape(), b.Shape()},
			Axis:   -1,
		}
	}

	return Einsum(signature, a, b)
}

// rankFor is the operand rank MatMul dispatches on: a batched tensor's
// leading batch axis is handled by Einsum, not by signature selection.
func rankFor(t *tensor.Tensor) int {
	r := len(t.Shape())
	if t.IsBatched() {
		r--
	}
	return r
}
