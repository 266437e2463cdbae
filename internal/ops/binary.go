package ops

import (
	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// binaryForward runs the shared validation for an element-wise binary op and
// returns the broadcast output shape.
func binaryForward(op string, a, b *tensor.Tensor) error {
	if err := checkSameDevice(op, a, b); err != nil {
		return err
	}
	if err := checkSameDType(op, a, b); err != nil {
		return err
	}
	if err := checkFloat(op, a, b); err != nil {
		return err
	}
	_, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	return err
}

// Add computes a + b with broadcasting.
//
// Backward: the upstream gradient passes through unchanged, summed back to
// each operand's shape where broadcasting expanded it.
func Add(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	if err := binaryForward("add", a, b); err != nil {
		return nil, err
	}
	be := a.Backend()
	out := be.Add(a.Array(), b.Array())

	return tensor.FromOp(out, be, "add", []*tensor.Tensor{a, b}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			return sumToShape(be, up, a.Shape()), nil
		},
		func(up *tensor.Array) (*tensor.Array, error) {
			return sumToShape(be, up, b.Shape()), nil
		},
	}), nil
}

// Sub computes a - b with broadcasting.
//
// Backward: da = up, db = -up.
func Sub(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	if err := binaryForward("sub", a, b); err != nil {
		return nil, err
	}
	be := a.Backend()
	out := be.Sub(a.Array(), b.Array())

	return tensor.FromOp(out, be, "sub", []*tensor.Tensor{a, b}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			return sumToShape(be, up, a.Shape()), nil
		},
		func(up *tensor.Array) (*tensor.Array, error) {
			return sumToShape(be, be.MulScalar(up, -1), b.Shape()), nil
		},
	}), nil
}

// Mul computes the element-wise product a * b with broadcasting.
//
// Backward: da = up * b, db = up * a.
func Mul(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	if err := binaryForward("mul", a, b); err != nil {
		return nil, err
	}
	be := a.Backend()
	out := be.Mul(a.Array(), b.Array())

	return tensor.FromOp(out, be, "mul", []*tensor.Tensor{a, b}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			return sumToShape(be, be.Mul(up, b.Array()), a.Shape()), nil
		},
		func(up *tensor.Array) (*tensor.Array, error) {
			return sumToShape(be, be.Mul(up, a.Array()), b.Shape()), nil
		},
	}), nil
}

// Div computes the element-wise quotient a / b with broadcasting.
//
// Backward: da = up / b, db = -up * a / b^2.
func Div(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	if err := binaryForward("div", a, b); err != nil {
		return nil, err
	}
	be := a.Backend()
	out := be.Div(a.Array(), b.Array())

	return tensor.FromOp(out, be, "div", []*tensor.Tensor{a, b}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			return sumToShape(be, be.Div(up, b.Array()), a.Shape()), nil
		},
		func(up *tensor.Array) (*tensor.Array, error) {
			bsq := be.Mul(b.Array(), b.Array())
			g := be.MulScalar(be.Div(be.Mul(up, a.Array()), bsq), -1)
			return sumToShape(be, g, b.Shape()), nil
		},
	}), nil
}

// Maximum computes the element-wise maximum of a and b.
//
// Backward: the gradient flows to every operand attaining the maximum, so on
// ties both sides receive the full upstream gradient.
func Maximum(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return extremum("maximum", a, b, func(be tensor.Backend) *tensor.Array {
		return be.Maximum(a.Array(), b.Array())
	})
}

// Minimum computes the element-wise minimum of a and b, with the same tie
// policy as Maximum.
func Minimum(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return extremum("minimum", a, b, func(be tensor.Backend) *tensor.Array {
		return be.Minimum(a.Array(), b.Array())
	})
}

func extremum(op string, a, b *tensor.Tensor, forward func(be tensor.Backend) *tensor.Array) (*tensor.Tensor, error) {
	if err := binaryForward(op, a, b); err != nil {
		return nil, err
	}
	be := a.Backend()
	out := forward(be)

	attains := func(x *tensor.Tensor) *tensor.Array {
		// x attains the extremum wherever it equals the output.
		ge := be.GreaterEqual(x.Array(), out)
		le := be.GreaterEqual(out, x.Array())
		// Equality as ge AND le, expressed through the float masks.
		return be.Mul(boolToFloat(be, ge, x.DType()), boolToFloat(be, le, x.DType()))
	}

	backFor := func(x *tensor.Tensor) tensor.BackFn {
		return func(up *tensor.Array) (*tensor.Array, error) {
			return sumToShape(be, be.Mul(up, attains(x)), x.Shape()), nil
		}
	}

	return tensor.FromOp(out, be, op, []*tensor.Tensor{a, b},
		[]tensor.BackFn{backFor(a), backFor(b)}), nil
}

// Mask multiplies x by a 0/1 float mask. The mask is a constant: no gradient
// flows to it, and masked-out positions contribute zero gradient to x.
func Mask(x, mask *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkSameDevice("mask", x, mask); err != nil {
		return nil, err
	}
	if err := checkSameDType("mask", x, mask); err != nil {
		return nil, err
	}
	if err := checkFloat("mask", x); err != nil {
		return nil, err
	}
	if _, _, err := tensor.BroadcastShapes(x.Shape(), mask.Shape()); err != nil {
		return nil, err
	}

	be := x.Backend()
	out := be.Mul(x.Array(), mask.Array())

	return tensor.FromOp(out, be, "mask", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			return sumToShape(be, be.Mul(up, mask.Array()), x.Shape()), nil
		},
	}), nil
}
