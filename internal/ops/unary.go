package ops

import (
	"math"

	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// unaryForward runs the shared validation for an element-wise unary op.
func unaryForward(op string, x *tensor.Tensor) error {
	return checkFloat(op, x)
}

// AddScalar computes x + s.
func AddScalar(x *tensor.Tensor, s float64) (*tensor.Tensor, error) {
	if err := unaryForward("add_scalar", x); err != nil {
		return nil, err
	}
	be := x.Backend()
	out := be.AddScalar(x.Array(), s)

	return tensor.FromOp(out, be, "add_scalar", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) { return up, nil },
	}), nil
}

// MulScalar computes x * s.
func MulScalar(x *tensor.Tensor, s float64) (*tensor.Tensor, error) {
	if err := unaryForward("mul_scalar", x); err != nil {
		return nil, err
	}
	be := x.Backend()
	out := be.MulScalar(x.Array(), s)

	return tensor.FromOp(out, be, "mul_scalar", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) { return be.MulScalar(up, s), nil },
	}), nil
}

// Neg computes -x.
func Neg(x *tensor.Tensor) (*tensor.Tensor, error) {
	return MulScalar(x, -1)
}

// Pow raises every element to a constant power.
//
// Backward: d/dx x^p = p * x^(p-1).
func Pow(x *tensor.Tensor, p float64) (*tensor.Tensor, error) {
	if err := unaryForward("pow", x); err != nil {
		return nil, err
	}
	be := x.Backend()
	out := be.PowScalar(x.Array(), p)

	return tensor.FromOp(out, be, "pow", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			d := be.MulScalar(be.PowScalar(x.Array(), p-1), p)
			return be.Mul(up, d), nil
		},
	}), nil
}

// Exp computes e^x.
//
// Backward reuses the forward output: d/dx e^x = e^x.
func Exp(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := unaryForward("exp", x); err != nil {
		return nil, err
	}
	be := x.Backend()
	out := be.Exp(x.Array())

	return tensor.FromOp(out, be, "exp", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) { return be.Mul(up, out), nil },
	}), nil
}

// Log computes the natural logarithm.
//
// Backward: d/dx ln x = 1/x.
func Log(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := unaryForward("log", x); err != nil {
		return nil, err
	}
	be := x.Backend()
	out := be.Log(x.Array())

	return tensor.FromOp(out, be, "log", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) { return be.Div(up, x.Array()), nil },
	}), nil
}

// Sqrt computes the element-wise square root.
//
// Backward: d/dx sqrt(x) = 1 / (2 sqrt(x)), reusing the forward output.
func Sqrt(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := unaryForward("sqrt", x); err != nil {
		return nil, err
	}
	be := x.Backend()
	out := be.Sqrt(x.Array())

	return tensor.FromOp(out, be, "sqrt", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			return be.Div(be.MulScalar(up, 0.5), out), nil
		},
	}), nil
}

// Sin computes the element-wise sine.
func Sin(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := unaryForward("sin", x); err != nil {
		return nil, err
	}
	be := x.Backend()
	out := be.Sin(x.Array())

	return tensor.FromOp(out, be, "sin", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			return be.Mul(up, be.Cos(x.Array())), nil
		},
	}), nil
}

// Cos computes the element-wise cosine.
func Cos(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := unaryForward("cos", x); err != nil {
		return nil, err
	}
	be := x.Backend()
	out := be.Cos(x.Array())

	return tensor.FromOp(out, be, "cos", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			return be.MulScalar(be.Mul(up, be.Sin(x.Array())), -1), nil
		},
	}), nil
}

// ReLU computes max(x, 0).
//
// Backward: the gradient passes where x > 0 and is zero elsewhere,
// including at exactly zero.
func ReLU(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := unaryForward("relu", x); err != nil {
		return nil, err
	}
	be := x.Backend()
	out := be.Maximum(x.Array(), zerosLike(x.Array()))

	return tensor.FromOp(out, be, "relu", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			mask := boolToFloat(be, be.Greater(x.Array(), zerosLike(x.Array())), x.DType())
			return be.Mul(up, mask), nil
		},
	}), nil
}

// Sigmoid computes 1 / (1 + e^-x).
//
// Backward reuses the forward output: d/dx sigmoid = out * (1 - out).
func Sigmoid(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := unaryForward("sigmoid", x); err != nil {
		return nil, err
	}
	be := x.Backend()
	negExp := be.Exp(be.MulScalar(x.Array(), -1))
	out := be.Div(tensor.OnesArray(x.Shape(), x.DType(), x.Device()), be.AddScalar(negExp, 1))

	return tensor.FromOp(out, be, "sigmoid", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			oneMinus := be.Sub(tensor.OnesArray(out.Shape(), out.DType(), out.Device()), out)
			return be.Mul(up, be.Mul(out, oneMinus)), nil
		},
	}), nil
}

// Tanh computes the hyperbolic tangent.
//
// Backward: d/dx tanh = 1 - tanh^2.
func Tanh(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := unaryForward("tanh", x); err != nil {
		return nil, err
	}
	be := x.Backend()
	out := tanhArray(be, x.Array())

	return tensor.FromOp(out, be, "tanh", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			sq := be.Mul(out, out)
			return be.Mul(up, be.Sub(tensor.OnesArray(out.Shape(), out.DType(), out.Device()), sq)), nil
		},
	}), nil
}

// tanhArray computes tanh via exp: (e^2x - 1) / (e^2x + 1).
func tanhArray(be tensor.Backend, x *tensor.Array) *tensor.Array {
	e2x := be.Exp(be.MulScalar(x, 2))
	return be.Div(be.AddScalar(e2x, -1), be.AddScalar(e2x, 1))
}

// geluCoeff is sqrt(2/pi) for the tanh approximation of GeLU.
var geluCoeff = math.Sqrt(2 / math.Pi)

// GeLU computes the Gaussian Error Linear Unit, tanh approximation:
//
//	0.5 * x * (1 + tanh(sqrt(2/pi) * (x + 0.044715 x^3)))
func GeLU(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := unaryForward("gelu", x); err != nil {
		return nil, err
	}
	be := x.Backend()

	inner := func(xa *tensor.Array) *tensor.Array {
		cubed := be.Mul(xa, be.Mul(xa, xa))
		return be.MulScalar(be.Add(xa, be.MulScalar(cubed, 0.044715)), geluCoeff)
	}

	th := tanhArray(be, inner(x.Array()))
	out := be.Mul(be.MulScalar(x.Array(), 0.5), be.AddScalar(th, 1))

	return tensor.FromOp(out, be, "gelu", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			// d/dx [0.5 x (1 + tanh(u))] with u = c (x + 0.044715 x^3):
			//   0.5 (1 + tanh(u)) + 0.5 x sech^2(u) * u'
			xa := x.Array()
			sech2 := be.Sub(tensor.OnesArray(th.Shape(), th.DType(), th.Device()), be.Mul(th, th))
			du := be.MulScalar(be.AddScalar(be.MulScalar(be.Mul(xa, xa), 3*0.044715), 1), geluCoeff)
			d := be.Add(
				be.MulScalar(be.AddScalar(th, 1), 0.5),
				be.Mul(be.MulScalar(xa, 0.5), be.Mul(sech2, du)),
			)
			return be.Mul(up, d), nil
		},
	}), nil
}
