package cpu

import (
	"fmt"

	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// binaryOp dispatches an element-wise binary operation, broadcasting the
// inputs to a common shape where needed. Shape compatibility is validated by
// the ops layer, so an incompatible pair here is a programmer error.
func binaryOp(name string, a, b *tensor.Array, device tensor.Device,
	f32 func(x, y float32) float32, f64 func(x, y float64) float64) *tensor.Array {

	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: %s vs %s", name, a.DType(), b.DType()))
	}

	out := tensor.MustNewArray(outShape, a.DType(), device)

	if !needsBroadcast {
		switch a.DType() {
		case tensor.Float32:
			x, y, dst := a.AsFloat32(), b.AsFloat32(), out.AsFloat32()
			for i := range dst {
				dst[i] = f32(x[i], y[i])
			}
		case tensor.Float64:
			x, y, dst := a.AsFloat64(), b.AsFloat64(), out.AsFloat64()
			for i := range dst {
				dst[i] = f64(x[i], y[i])
			}
		default:
			panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
		}
		return out
	}

	aStrides := broadcastStrides(a.Shape(), outShape)
	bStrides := broadcastStrides(b.Shape(), outShape)
	outStrides := outShape.ComputeStrides()
	n := outShape.NumElements()

	switch a.DType() {
	case tensor.Float32:
		x, y, dst := a.AsFloat32(), b.AsFloat32(), out.AsFloat32()
		for i := 0; i < n; i++ {
			ai, bi := broadcastOffsets(i, outStrides, aStrides, bStrides)
			dst[i] = f32(x[ai], y[bi])
		}
	case tensor.Float64:
		x, y, dst := a.AsFloat64(), b.AsFloat64(), out.AsFloat64()
		for i := 0; i < n; i++ {
			ai, bi := broadcastOffsets(i, outStrides, aStrides, bStrides)
			dst[i] = f64(x[ai], y[bi])
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
	}
	return out
}

// broadcastStrides aligns an input shape to the output shape from the right
// and returns per-output-axis strides, with 0 on broadcast axes.
func broadcastStrides(in, out tensor.Shape) []int {
	inStrides := in.ComputeStrides()
	aligned := make([]int, len(out))
	offset := len(out) - len(in)
	for i := range out {
		j := i - offset
		if j < 0 || in[j] == 1 {
			aligned[i] = 0
		} else {
			aligned[i] = inStrides[j]
		}
	}
	return aligned
}

// broadcastOffsets decomposes a flat output index into coordinates and dots
// them with two aligned stride vectors.
func broadcastOffsets(idx int, outStrides, aStrides, bStrides []int) (int, int) {
	ai, bi := 0, 0
	rem := idx
	for d := 0; d < len(outStrides); d++ {
		coord := rem / outStrides[d]
		rem %= outStrides[d]
		ai += coord * aStrides[d]
		bi += coord * bStrides[d]
	}
	return ai, bi
}

// broadcastOffset is broadcastOffsets for a single input.
func broadcastOffset(idx int, outStrides, strides []int) int {
	off := 0
	rem := idx
	for d := 0; d < len(outStrides); d++ {
		coord := rem / outStrides[d]
		rem %= outStrides[d]
		off += coord * strides[d]
	}
	return off
}

// unaryOp dispatches an element-wise unary operation.
func unaryOp(name string, x *tensor.Array, device tensor.Device,
	f32 func(v float32) float32, f64 func(v float64) float64) *tensor.Array {

	out := tensor.MustNewArray(x.Shape(), x.DType(), device)
	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), out.AsFloat32()
		for i := range dst {
			dst[i] = f32(src[i])
		}
	case tensor.Float64:
		src, dst := x.AsFloat64(), out.AsFloat64()
		for i := range dst {
			dst[i] = f64(src[i])
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}
	return out
}
