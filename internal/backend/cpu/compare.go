package cpu

import (
	"fmt"

	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// Greater compares a > b element-wise with broadcasting, returning a Bool
// array.
func (cpu *Backend) Greater(a, b *tensor.Array) *tensor.Array {
	return compareOp("greater", a, b, cpu.device,
		func(x, y float64) bool { return x > y })
}

// GreaterEqual compares a >= b element-wise with broadcasting, returning a
// Bool array.
func (cpu *Backend) GreaterEqual(a, b *tensor.Array) *tensor.Array {
	return compareOp("greater equal", a, b, cpu.device,
		func(x, y float64) bool { return x >= y })
}

// Where selects x where cond is true and y elsewhere. All three arrays
// broadcast to a common shape.
func (cpu *Backend) Where(cond, x, y *tensor.Array) *tensor.Array {
	if cond.DType() != tensor.Bool {
		panic(fmt.Sprintf("where: condition dtype is %s, not bool", cond.DType()))
	}
	if x.DType() != y.DType() {
		panic(fmt.Sprintf("where: dtype mismatch: %s vs %s", x.DType(), y.DType()))
	}

	xyShape, _, err := tensor.BroadcastShapes(x.Shape(), y.Shape())
	if err != nil {
		panic(fmt.Sprintf("where: %v", err))
	}
	outShape, _, err := tensor.BroadcastShapes(cond.Shape(), xyShape)
	if err != nil {
		panic(fmt.Sprintf("where: %v", err))
	}

	out := tensor.MustNewArray(outShape, x.DType(), cpu.device)
	outStrides := outShape.ComputeStrides()
	cStrides := broadcastStrides(cond.Shape(), outShape)
	xStrides := broadcastStrides(x.Shape(), outShape)
	yStrides := broadcastStrides(y.Shape(), outShape)

	c := cond.AsBool()
	es := x.DType().Size()
	src1, src2, dst := x.Data(), y.Data(), out.Data()

	n := outShape.NumElements()
	for i := 0; i < n; i++ {
		ci := broadcastOffset(i, outStrides, cStrides)
		if c[ci] {
			j := broadcastOffset(i, outStrides, xStrides)
			copy(dst[i*es:(i+1)*es], src1[j*es:(j+1)*es])
		} else {
			j := broadcastOffset(i, outStrides, yStrides)
			copy(dst[i*es:(i+1)*es], src2[j*es:(j+1)*es])
		}
	}
	return out
}

// compareOp evaluates a float comparison element-wise with broadcasting.
func compareOp(name string, a, b *tensor.Array, device tensor.Device,
	cmp func(x, y float64) bool) *tensor.Array {

	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: %s vs %s", name, a.DType(), b.DType()))
	}
	if !a.DType().IsFloat() {
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
	}

	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	out := tensor.MustNewArray(outShape, tensor.Bool, device)
	outStrides := outShape.ComputeStrides()
	aStrides := broadcastStrides(a.Shape(), outShape)
	bStrides := broadcastStrides(b.Shape(), outShape)
	dst := out.AsBool()

	n := outShape.NumElements()
	for i := 0; i < n; i++ {
		ai, bi := broadcastOffsets(i, outStrides, aStrides, bStrides)
		dst[i] = cmp(a.Float(ai), b.Float(bi))
	}
	return out
}
