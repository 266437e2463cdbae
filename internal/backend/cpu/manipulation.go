package cpu

import (
	"fmt"

	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// Reshape returns an array with the same data and a new shape.
// The data buffer is shared, not copied.
func (cpu *Backend) Reshape(x *tensor.Array, shape tensor.Shape) *tensor.Array {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	if x.NumElements() != shape.NumElements() {
		panic(fmt.Sprintf("reshape: element count mismatch: %v -> %v", x.Shape(), shape))
	}
	return x.WithShape(shape)
}

// Transpose permutes the array's axes. With no axes given, all axes are
// reversed.
func (cpu *Backend) Transpose(x *tensor.Array, axes ...int) *tensor.Array {
	shape := x.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: %d axes for %dD array", len(axes), ndim))
	}
	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim || seen[ax] {
			panic(fmt.Sprintf("transpose: bad axes %v for shape %v", axes, shape))
		}
		seen[ax] = true
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}

	out := tensor.MustNewArray(newShape, x.DType(), cpu.device)

	// Gather: out[coords] = x[coords permuted back through axes].
	srcStrides := shape.ComputeStrides()
	outStrides := newShape.ComputeStrides()
	es := x.DType().Size()
	src, dst := x.Data(), out.Data()

	n := out.NumElements()
	for i := 0; i < n; i++ {
		srcIdx := 0
		rem := i
		for d := 0; d < ndim; d++ {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			srcIdx += coord * srcStrides[axes[d]]
		}
		copy(dst[i*es:(i+1)*es], src[srcIdx*es:(srcIdx+1)*es])
	}
	return out
}

// BroadcastTo materializes x broadcast up to the given shape.
func (cpu *Backend) BroadcastTo(x *tensor.Array, shape tensor.Shape) *tensor.Array {
	outShape, _, err := tensor.BroadcastShapes(x.Shape(), shape)
	if err != nil || !outShape.Equal(shape) {
		panic(fmt.Sprintf("broadcast to: cannot broadcast %v to %v", x.Shape(), shape))
	}

	out := tensor.MustNewArray(shape, x.DType(), cpu.device)
	srcStrides := broadcastStrides(x.Shape(), shape)
	outStrides := shape.ComputeStrides()
	es := x.DType().Size()
	src, dst := x.Data(), out.Data()

	n := out.NumElements()
	for i := 0; i < n; i++ {
		j := broadcastOffset(i, outStrides, srcStrides)
		copy(dst[i*es:(i+1)*es], src[j*es:(j+1)*es])
	}
	return out
}

// Concat concatenates arrays along the given axis.
func (cpu *Backend) Concat(xs []*tensor.Array, axis int) *tensor.Array {
	if len(xs) == 0 {
		panic("concat: no arrays")
	}
	first := xs[0].Shape()
	if axis < 0 || axis >= len(first) {
		panic(fmt.Sprintf("concat: axis %d out of range for shape %v", axis, first))
	}

	outShape := first.Clone()
	outShape[axis] = 0
	for _, x := range xs {
		s := x.Shape()
		if len(s) != len(first) {
			panic(fmt.Sprintf("concat: rank mismatch: %v vs %v", first, s))
		}
		for d := range s {
			if d != axis && s[d] != first[d] {
				panic(fmt.Sprintf("concat: shape mismatch on axis %d: %v vs %v", d, first, s))
			}
		}
		outShape[axis] += s[axis]
	}

	out := tensor.MustNewArray(outShape, xs[0].DType(), cpu.device)
	es := xs[0].DType().Size()

	// Copy row-major blocks: for each prefix index, one contiguous chunk
	// per input.
	outer := 1
	for d := 0; d < axis; d++ {
		outer *= outShape[d]
	}
	inner := 1
	for d := axis + 1; d < len(outShape); d++ {
		inner *= outShape[d]
	}

	dst := out.Data()
	outRow := outShape[axis] * inner * es
	offset := 0
	for _, x := range xs {
		src := x.Data()
		chunk := x.Shape()[axis] * inner * es
		for o := 0; o < outer; o++ {
			copy(dst[o*outRow+offset:o*outRow+offset+chunk], src[o*chunk:(o+1)*chunk])
		}
		offset += chunk
	}
	return out
}

// Narrow returns the slice [start, start+length) of x along the given axis.
func (cpu *Backend) Narrow(x *tensor.Array, axis, start, length int) *tensor.Array {
	shape := x.Shape()
	if axis < 0 || axis >= len(shape) {
		panic(fmt.Sprintf("narrow: axis %d out of range for shape %v", axis, shape))
	}
	if start < 0 || length <= 0 || start+length > shape[axis] {
		panic(fmt.Sprintf("narrow: range [%d, %d) out of bounds for axis %d of %v",
			start, start+length, axis, shape))
	}

	outShape := shape.Clone()
	outShape[axis] = length
	out := tensor.MustNewArray(outShape, x.DType(), cpu.device)

	es := x.DType().Size()
	outer := 1
	for d := 0; d < axis; d++ {
		outer *= shape[d]
	}
	inner := 1
	for d := axis + 1; d < len(shape); d++ {
		inner *= shape[d]
	}

	src, dst := x.Data(), out.Data()
	srcRow := shape[axis] * inner * es
	dstRow := length * inner * es
	for o := 0; o < outer; o++ {
		from := o*srcRow + start*inner*es
		copy(dst[o*dstRow:(o+1)*dstRow], src[from:from+dstRow])
	}
	return out
}
