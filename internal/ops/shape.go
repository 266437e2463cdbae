package ops

import (
	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// Reshape returns x with a new shape over the same elements.
//
// Backward: the upstream gradient reshapes back to the input shape.
func Reshape(x *tensor.Tensor, shape tensor.Shape) (*tensor.Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != x.Array().NumElements() {
		return nil, &tensor.ShapeError{
			Op:     "reshape",
			Detail: "element count mismatch",
			Shapes: []tensor.Shape{x.Shape(), shape},
			Axis:   -1,
		}
	}

	be := x.Backend()
	out := be.Reshape(x.Array(), shape)

	return tensor.FromOp(out, be, "reshape", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			return be.Reshape(up, x.Shape()), nil
		},
	}), nil
}

// Transpose permutes the tensor's axes; with no axes given all axes are
// reversed.
//
// Backward: the upstream gradient is permuted by the inverse permutation.
func Transpose(x *tensor.Tensor, axes ...int) (*tensor.Tensor, error) {
	ndim := len(x.Shape())
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		return nil, &tensor.ShapeError{
			Op:     "transpose",
			Detail: "axes count does not match rank",
			Shapes: []tensor.Shape{x.Shape()},
			Axis:   -1,
		}
	}
	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim || seen[ax] {
			return nil, &tensor.ShapeError{
				Op:     "transpose",
				Detail: "invalid axis permutation",
				Shapes: []tensor.Shape{x.Shape()},
				Axis:   ax,
			}
		}
		seen[ax] = true
	}

	inverse := make([]int, ndim)
	for i, ax := range axes {
		inverse[ax] = i
	}

	be := x.Backend()
	out := be.Transpose(x.Array(), axes...)

	return tensor.FromOp(out, be, "transpose", []*tensor.Tensor{x}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			return be.Transpose(up, inverse...), nil
		},
	}), nil
}

// Concat joins tensors along the given axis.
//
// Backward: each operand receives its own slice of the upstream gradient.
func Concat(xs []*tensor.Tensor, axis int) (*tensor.Tensor, error) {
	if len(xs) == 0 {
		return nil, &tensor.ShapeError{Op: "concat", Detail: "no operands", Axis: -1}
	}
	if err := checkSameDevice("concat", xs...); err != nil {
		return nil, err
	}
	if err := checkSameDType("concat", xs...); err != nil {
		return nil, err
	}
	first := xs[0].Shape()
	if axis < 0 || axis >= len(first) {
		return nil, &tensor.ShapeError{
			Op:     "concat",
			Detail: "axis out of range",
			Shapes: []tensor.Shape{first},
			Axis:   axis,
		}
	}
	for _, x := range xs[1:] {
		s := x.Shape()
		if len(s) != len(first) {
			return nil, &tensor.ShapeError{
				Op:     "concat",
				Detail: "operand ranks disagree",
				Shapes: []tensor.Shape{first, s},
				Axis:   -1,
			}
		}
		for d := range s {
			if d != axis && s[d] != first[d] {
				return nil, &tensor.ShapeError{
					Op:     "concat",
					Detail: "operand shapes disagree off the concat axis",
					Shapes: []tensor.Shape{first, s},
					Axis:   d,
				}
			}
		}
	}

	be := xs[0].Backend()
	arrays := make([]*tensor.Array, len(xs))
	for i, x := range xs {
		arrays[i] = x.Array()
	}
	out := be.Concat(arrays, axis)

	backFns := make([]tensor.BackFn, len(xs))
	offset := 0
	for i, x := range xs {
		start, length := offset, x.Shape()[axis]
		offset += length
		backFns[i] = func(up *tensor.Array) (*tensor.Array, error) {
			return be.Narrow(up, axis, start, length), nil
		}
	}

	return tensor.FromOp(out, be, "concat", xs, backFns), nil
}

// Split cuts x into pieces of the given sizes along an axis. The sizes must
// cover the axis exactly.
//
// Backward: each piece's gradient is padded with zeros back to the input
// shape, so the contributions concatenate into the full input gradient.
func Split(x *tensor.Tensor, axis int, sizes []int) ([]*tensor.Tensor, error) {
	shape := x.Shape()
	if axis < 0 || axis >= len(shape) {
		return nil, &tensor.ShapeError{
			Op:     "split",
			Detail: "axis out of range",
			Shapes: []tensor.Shape{shape},
			Axis:   axis,
		}
	}
	total := 0
	for _, s := range sizes {
		if s <= 0 {
			return nil, &tensor.ShapeError{
				Op:     "split",
				Detail: "piece sizes must be positive",
				Shapes: []tensor.Shape{shape},
				Axis:   axis,
			}
		}
		total += s
	}
	if total != shape[axis] {
		return nil, &tensor.ShapeError{
			Op:     "split",
			Detail: "piece sizes do not cover the axis",
			Shapes: []tensor.Shape{shape},
			Axis:   axis,
		}
	}

	be := x.Backend()
	outs := make([]*tensor.Tensor, len(sizes))
	offset := 0
	for i, size := range sizes {
		start := offset
		offset += size

		piece := be.Narrow(x.Array(), axis, start, size)
		outs[i] = tensor.FromOp(piece, be, "split", []*tensor.Tensor{x}, []tensor.BackFn{
			func(up *tensor.Array) (*tensor.Array, error) {
				return padAxis(be, up, x.Shape(), axis, start), nil
			},
		})
	}
	return outs, nil
}

// padAxis embeds g into a zero array of the full shape at the given offset
// along the axis, expressed as a concat of zero blocks around g.
func padAxis(be tensor.Backend, g *tensor.Array, full tensor.Shape, axis, start int) *tensor.Array {
	parts := make([]*tensor.Array, 0, 3)
	if start > 0 {
		before := full.Clone()
		before[axis] = start
		parts = append(parts, tensor.MustNewArray(before, g.DType(), g.Device()))
	}
	parts = append(parts, g)
	if end := start + g.Shape()[axis]; end < full[axis] {
		after := full.Clone()
		after[axis] = full[axis] - end
		parts = append(parts, tensor.MustNewArray(after, g.DType(), g.Device()))
	}
	if len(parts) == 1 {
		return g
	}
	return be.Concat(parts, axis)
}
