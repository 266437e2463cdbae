package einsum

import (
	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// Contract evaluates the signature over the operand arrays.
//
// Recognized patterns (pure axis permutation, matrix multiplication, batched
// matrix multiplication) dispatch to the corresponding backend kernel; every
// other signature runs through the general contraction loop, which defines
// the semantics the fast paths must match.
func Contract(b tensor.Backend, sig *Signature, arrays ...*tensor.Array) (*tensor.Array, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	dims, err := sig.BindDims(shapesOf(arrays))
	if err != nil {
		return nil, err
	}
	return ContractWithDims(b, sig, dims, arrays...)
}

// ContractWithDims evaluates the signature with an explicit symbol-dimension
// binding. Output symbols bound by no input broadcast to the dimension given
// in dims; derivative signatures rely on this to reinflate summed-away axes.
func ContractWithDims(b tensor.Backend, sig *Signature, dims map[rune]int, arrays ...*tensor.Array) (*tensor.Array, error) {
	if len(arrays) != sig.NumInputs() {
		return nil, &tensor.ShapeError{
			Op:     "einsum " + sig.raw,
			Detail: "operand count does not match signature",
			Shapes: shapesOf(arrays),
		}
	}
	for _, r := range sig.output {
		if _, ok := dims[r]; !ok {
			return nil, &tensor.UnsupportedSignatureError{
				Signature: sig.raw,
				Reason:    "no dimension bound for output symbol " + string(r),
			}
		}
	}
	dtype := arrays[0].DType()
	if !dtype.IsFloat() {
		return nil, &tensor.ShapeError{
			Op:     "einsum " + sig.raw,
			Detail: "operands must be float arrays",
			Shapes: shapesOf(arrays),
		}
	}
	for _, a := range arrays[1:] {
		if a.DType() != dtype {
			return nil, &tensor.ShapeError{
				Op:     "einsum " + sig.raw,
				Detail: "operand dtypes disagree",
				Shapes: shapesOf(arrays),
			}
		}
	}

	if out, ok := fastPath(b, sig, dims, arrays); ok {
		return out, nil
	}
	return contractGeneric(b, sig, dims, arrays)
}

func shapesOf(arrays []*tensor.Array) []tensor.Shape {
	shapes := make([]tensor.Shape, len(arrays))
	for i, a := range arrays {
		shapes[i] = a.Shape()
	}
	return shapes
}

// fastPath dispatches recognized signatures to backend kernels. It declines
// whenever an operand relies on size-1 broadcasting, since the kernels
// expect exact shapes.
func fastPath(b tensor.Backend, sig *Signature, dims map[rune]int, arrays []*tensor.Array) (*tensor.Array, bool) {
	for i, labels := range sig.inputs {
		for d, r := range labels {
			if arrays[i].Shape()[d] != dims[r] {
				return nil, false
			}
		}
	}

	// Pure permutation: one input, output reorders its labels.
	if len(sig.inputs) == 1 && len(sig.output) == len(sig.inputs[0]) {
		axes := make([]int, len(sig.output))
		for i, r := range sig.output {
			pos := runeIndex(sig.inputs[0], r)
			if pos < 0 {
				return nil, false
			}
			axes[i] = pos
		}
		if isIdentity(axes) {
			return arrays[0].Clone(), true
		}
		return b.Transpose(arrays[0], axes...), true
	}

	if len(sig.inputs) != 2 {
		return nil, false
	}
	lhs, rhs := sig.inputs[0], sig.inputs[1]

	// Matrix multiply: "xy,yz->xz".
	if len(lhs) == 2 && len(rhs) == 2 && len(sig.output) == 2 &&
		lhs[1] == rhs[0] &&
		sig.output[0] == lhs[0] && sig.output[1] == rhs[1] &&
		distinct(lhs[0], lhs[1], rhs[1]) {
		return b.MatMul(arrays[0], arrays[1]), true
	}

	// Batched matrix multiply: "wxy,wyz->wxz".
	if len(lhs) == 3 && len(rhs) == 3 && len(sig.output) == 3 &&
		lhs[0] == rhs[0] && lhs[2] == rhs[1] &&
		sig.output[0] == lhs[0] && sig.output[1] == lhs[1] && sig.output[2] == rhs[2] &&
		distinct(lhs[0], lhs[1], lhs[2], rhs[2]) {
		return b.BatchMatMul(arrays[0], arrays[1]), true
	}

	return nil, false
}

func runeIndex(labels []rune, r rune) int {
	for i, c := range labels {
		if c == r {
			return i
		}
	}
	return -1
}

func isIdentity(axes []int) bool {
	for i, ax := range axes {
		if ax != i {
			return false
		}
	}
	return true
}

func distinct(rs ...rune) bool {
	seen := map[rune]bool{}
	for _, r := range rs {
		if seen[r] {
			return false
		}
		seen[r] = true
	}
	return true
}

// contractGeneric is the reference contraction: iterate every combination of
// output and summed coordinates, multiply the operand entries, and
// accumulate. Size-1 operand axes index with stride 0 so they broadcast.
func contractGeneric(b tensor.Backend, sig *Signature, dims map[rune]int, arrays []*tensor.Array) (*tensor.Array, error) {
	// Coordinate space: output symbols first, then summed symbols in
	// first-appearance order.
	symbols := append([]rune(nil), sig.output...)
	inOutput := map[rune]bool{}
	for _, r := range sig.output {
		inOutput[r] = true
	}
	seen := map[rune]bool{}
	for _, labels := range sig.inputs {
		for _, r := range labels {
			if !inOutput[r] && !seen[r] {
				seen[r] = true
				symbols = append(symbols, r)
			}
		}
	}

	symPos := map[rune]int{}
	for i, r := range symbols {
		symPos[r] = i
	}

	outShape := make(tensor.Shape, len(sig.output))
	outN := 1
	for i, r := range sig.output {
		outShape[i] = dims[r]
		outN *= dims[r]
	}
	sumN := 1
	for _, r := range symbols[len(sig.output):] {
		sumN *= dims[r]
	}

	// Per-input strides aligned to the full coordinate vector, with 0 on
	// broadcast (size-1) axes and on symbols the input lacks.
	strides := make([][]int, len(arrays))
	for i, labels := range sig.inputs {
		st := make([]int, len(symbols))
		arrStrides := arrays[i].Shape().ComputeStrides()
		for d, r := range labels {
			if arrays[i].Shape()[d] == 1 && dims[r] > 1 {
				continue
			}
			st[symPos[r]] = arrStrides[d]
		}
		strides[i] = st
	}

	out := tensor.MustNewArray(outShape, arrays[0].DType(), b.Device())

	coords := make([]int, len(symbols))
	for outIdx := 0; outIdx < outN; outIdx++ {
		// Decompose outIdx into the output coordinates.
		rem := outIdx
		for i := len(sig.output) - 1; i >= 0; i-- {
			coords[i] = rem % dims[sig.output[i]]
			rem /= dims[sig.output[i]]
		}
		for i := len(sig.output); i < len(coords); i++ {
			coords[i] = 0
		}

		var acc float64
		for s := 0; s < sumN; s++ {
			prod := 1.0
			for i := range arrays {
				off := 0
				for d, c := range coords {
					off += c * strides[i][d]
				}
				prod *= arrays[i].Float(off)
			}
			acc += prod

			// Advance the summed coordinates.
			for i := len(coords) - 1; i >= len(sig.output); i-- {
				coords[i]++
				if coords[i] < dims[symbols[i]] {
					break
				}
				coords[i] = 0
			}
		}
		out.SetFloat(outIdx, acc)
	}

	return out, nil
}
