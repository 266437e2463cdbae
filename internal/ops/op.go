// Package ops implements the differentiable operations.
//
// Each Op validates its operands, computes the forward result through the
// operands' backend, and returns the output wrapped as a graph node carrying
// one backward closure per operand. Backends panic on violated internal
// preconditions; this layer is where user input is checked and rejected with
// typed errors.
package ops

import (
	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// checkSameDevice rejects operands placed on different devices. Ops never
// transfer data implicitly; the caller moves tensors with To.
func checkSameDevice(op string, ts ...*tensor.Tensor) error {
	for _, t := range ts[1:] {
		if t.Device() != ts[0].Device() {
			devices := make([]tensor.Device, len(ts))
			for i, x := range ts {
				devices[i] = x.Device()
			}
			return &tensor.DeviceMismatchError{Op: op, Devices: devices}
		}
	}
	return nil
}

// checkFloat rejects non-float operands for ops whose derivative only makes
// sense over the reals.
func checkFloat(op string, ts ...*tensor.Tensor) error {
	for _, t := range ts {
		if !t.DType().IsFloat() {
			return &tensor.ShapeError{
				Op:     op,
				Detail: "requires a float tensor, got " + t.DType().String(),
				Shapes: []tensor.Shape{t.Shape()},
				Axis:   -1,
			}
		}
	}
	return nil
}

// checkSameDType rejects mixed-dtype operands.
func checkSameDType(op string, ts ...*tensor.Tensor) error {
	for _, t := range ts[1:] {
		if t.DType() != ts[0].DType() {
			return &tensor.ShapeError{
				Op:     op,
				Detail: "operand dtypes disagree: " + ts[0].DType().String() + " vs " + t.DType().String(),
				Shapes: []tensor.Shape{ts[0].Shape(), t.Shape()},
				Axis:   -1,
			}
		}
	}
	return nil
}

// sumToShape reduces a gradient computed at broadcast size back down to the
// operand's shape: leading broadcast axes are summed away and size-1 axes
// are summed with the axis kept.
func sumToShape(b tensor.Backend, g *tensor.Array, shape tensor.Shape) *tensor.Array {
	for len(g.Shape()) > len(shape) {
		g = b.SumAxis(g, 0, false)
	}
	for d := range shape {
		if shape[d] == 1 && g.Shape()[d] > 1 {
			g = b.SumAxis(g, d, true)
		}
	}
	return g
}

// zerosLike allocates a zero array matching the given one.
func zerosLike(a *tensor.Array) *tensor.Array {
	return tensor.MustNewArray(a.Shape(), a.DType(), a.Device())
}

// boolToFloat converts a Bool mask into a 0/1 float array of the given
// dtype, so masks can participate in arithmetic.
func boolToFloat(b tensor.Backend, mask *tensor.Array, dtype tensor.DataType) *tensor.Array {
	ones := tensor.OnesArray(mask.Shape(), dtype, b.Device())
	zeros := tensor.MustNewArray(mask.Shape(), dtype, b.Device())
	return b.Where(mask, ones, zeros)
}
