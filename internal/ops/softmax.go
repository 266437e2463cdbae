package ops

import (
	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// Softmax normalizes the last axis into a probability distribution. The
// computation is fused: the backend kernel subtracts the per-row maximum
// before exponentiating, and the backward closure is the closed-form
// Jacobian product rather than a composition of exp/sum/div nodes.
//
// Backward: dx = out * (up - sum(up * out, last axis)).
func Softmax(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkFloat("softmax", x); err != nil {
		return nil, err
	}
	shape := x.Shape()
	if len(shape) == 0 {
		return nil, &tensor.ShapeError{
			Op:     "softmax",
			Detail: "requires at least one axis",
			Shapes: []tensor.Shape{shape},
			Axis:   -1,
		}
	}

	be := x.Backend()

	// The kernel is 2D; higher ranks flatten the leading axes into rows.
	cols := shape[len(shape)-1]
	rows := x.Array().NumElements() / cols
	flat := tensor.Shape{rows, cols}

	out2 := be.Softmax(be.Reshape(x.Array(), flat))
	out := be.Reshape(out2, shape)

	return tensor.FromOp(out, be, "softmax", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			up2 := be.Reshape(up, flat)
			inner := be.SumAxis(be.Mul(up2, out2), 1, true)
			g2 := be.Mul(out2, be.Sub(up2, inner))
			return be.Reshape(g2, shape), nil
		},
	}), nil
}
