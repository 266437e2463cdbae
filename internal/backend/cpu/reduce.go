package cpu

import (
	"fmt"

	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// Sum reduces the whole array to a scalar.
func (cpu *Backend) Sum(x *tensor.Array) *tensor.Array {
	out := tensor.MustNewArray(tensor.Shape{}, x.DType(), cpu.device)
	n := x.NumElements()

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		var sum float32
		for i := 0; i < n; i++ {
			sum += src[i]
		}
		out.AsFloat32()[0] = sum
	case tensor.Float64:
		src := x.AsFloat64()
		var sum float64
		for i := 0; i < n; i++ {
			sum += src[i]
		}
		out.AsFloat64()[0] = sum
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}
	return out
}

// SumAxis sums along one axis. With keep, the reduced axis stays as size 1;
// otherwise it is dropped.
func (cpu *Backend) SumAxis(x *tensor.Array, axis int, keep bool) *tensor.Array {
	outer, size, inner := reduceExtents("sum axis", x.Shape(), axis)
	out := tensor.MustNewArray(reducedShape(x.Shape(), axis, keep), x.DType(), cpu.device)

	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), out.AsFloat32()
		for o := 0; o < outer; o++ {
			for in := 0; in < inner; in++ {
				var sum float32
				for s := 0; s < size; s++ {
					sum += src[(o*size+s)*inner+in]
				}
				dst[o*inner+in] = sum
			}
		}
	case tensor.Float64:
		src, dst := x.AsFloat64(), out.AsFloat64()
		for o := 0; o < outer; o++ {
			for in := 0; in < inner; in++ {
				var sum float64
				for s := 0; s < size; s++ {
					sum += src[(o*size+s)*inner+in]
				}
				dst[o*inner+in] = sum
			}
		}
	default:
		panic(fmt.Sprintf("sum axis: unsupported dtype %s", x.DType()))
	}
	return out
}

// MaxAxis takes the maximum along one axis.
func (cpu *Backend) MaxAxis(x *tensor.Array, axis int, keep bool) *tensor.Array {
	outer, size, inner := reduceExtents("max axis", x.Shape(), axis)
	out := tensor.MustNewArray(reducedShape(x.Shape(), axis, keep), x.DType(), cpu.device)

	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), out.AsFloat32()
		for o := 0; o < outer; o++ {
			for in := 0; in < inner; in++ {
				best := src[o*size*inner+in]
				for s := 1; s < size; s++ {
					if v := src[(o*size+s)*inner+in]; v > best {
						best = v
					}
				}
				dst[o*inner+in] = best
			}
		}
	case tensor.Float64:
		src, dst := x.AsFloat64(), out.AsFloat64()
		for o := 0; o < outer; o++ {
			for in := 0; in < inner; in++ {
				best := src[o*size*inner+in]
				for s := 1; s < size; s++ {
					if v := src[(o*size+s)*inner+in]; v > best {
						best = v
					}
				}
				dst[o*inner+in] = best
			}
		}
	default:
		panic(fmt.Sprintf("max axis: unsupported dtype %s", x.DType()))
	}
	return out
}

// reduceExtents splits a shape around the reduced axis into
// (outer, axis size, inner) extents.
func reduceExtents(name string, shape tensor.Shape, axis int) (int, int, int) {
	if axis < 0 || axis >= len(shape) {
		panic(fmt.Sprintf("%s: axis %d out of range for shape %v", name, axis, shape))
	}
	outer, inner := 1, 1
	for d := 0; d < axis; d++ {
		outer *= shape[d]
	}
	for d := axis + 1; d < len(shape); d++ {
		inner *= shape[d]
	}
	return outer, shape[axis], inner
}

func reducedShape(shape tensor.Shape, axis int, keep bool) tensor.Shape {
	out := shape.Clone()
	if keep {
		out[axis] = 1
		return out
	}
	return append(out[:axis], out[axis+1:]...)
}
