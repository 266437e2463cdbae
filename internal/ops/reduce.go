package ops

import (
	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// Sum reduces the whole tensor to a scalar.
//
// Backward: every input element contributed with weight 1, so the upstream
// scalar broadcasts back over the input shape.
func Sum(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkFloat("sum", x); err != nil {
		return nil, err
	}
	be := x.Backend()
	out := be.Sum(x.Array())

	return tensor.FromOp(out, be, "sum", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			return be.BroadcastTo(up, x.Shape()), nil
		},
	}), nil
}

// Mean reduces the whole tensor to its scalar mean.
func Mean(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkFloat("mean", x); err != nil {
		return nil, err
	}
	be := x.Backend()
	n := float64(x.Array().NumElements())
	out := be.MulScalar(be.Sum(x.Array()), 1/n)

	return tensor.FromOp(out, be, "mean", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			return be.BroadcastTo(be.MulScalar(up, 1/n), x.Shape()), nil
		},
	}), nil
}

// SumAxis sums along one axis. With keep, the reduced axis stays as size 1.
func SumAxis(x *tensor.Tensor, axis int, keep bool) (*tensor.Tensor, error) {
	if err := checkFloat("sum_axis", x); err != nil {
		return nil, err
	}
	if err := checkAxis("sum_axis", x, axis); err != nil {
		return nil, err
	}
	be := x.Backend()
	out := be.SumAxis(x.Array(), axis, keep)

	return tensor.FromOp(out, be, "sum_axis", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			if !keep {
				up = restoreAxis(be, up, x.Shape(), axis)
			}
			return be.BroadcastTo(up, x.Shape()), nil
		},
	}), nil
}

// MaxAxis takes the maximum along one axis.
//
// Backward: the gradient flows to every position attaining the maximum; on
// ties all attaining positions receive the full upstream gradient.
func MaxAxis(x *tensor.Tensor, axis int, keep bool) (*tensor.Tensor, error) {
	if err := checkFloat("max_axis", x); err != nil {
		return nil, err
	}
	if err := checkAxis("max_axis", x, axis); err != nil {
		return nil, err
	}
	be := x.Backend()
	out := be.MaxAxis(x.Array(), axis, keep)

	// The keep-axis form broadcasts against the input for the tie mask.
	outKeep := out
	if !keep {
		keepShape := x.Shape().Clone()
		keepShape[axis] = 1
		outKeep = be.Reshape(out, keepShape)
	}

	return tensor.FromOp(out, be, "max_axis", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			mask := boolToFloat(be, be.GreaterEqual(x.Array(), be.BroadcastTo(outKeep, x.Shape())), x.DType())
			if !keep {
				up = restoreAxis(be, up, x.Shape(), axis)
			}
			return be.Mul(be.BroadcastTo(up, x.Shape()), mask), nil
		},
	}), nil
}

func checkAxis(op string, x *tensor.Tensor, axis int) error {
	if axis < 0 || axis >= len(x.Shape()) {
		return &tensor.ShapeError{
			Op:     op,
			Detail: "axis out of range",
			Shapes: []tensor.Shape{x.Shape()},
			Axis:   axis,
		}
	}
	return nil
}

// restoreAxis reinserts a dropped reduction axis as size 1 so the gradient
// broadcasts back over the input shape.
func restoreAxis(be tensor.Backend, g *tensor.Array, inShape tensor.Shape, axis int) *tensor.Array {
	keepShape := inShape.Clone()
	keepShape[axis] = 1
	return be.Reshape(g, keepShape)
}
