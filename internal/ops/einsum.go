package ops

import (
	"strings"

	"github.com/jacobjwood/Tricycle/internal/einsum"
	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// Einsum contracts the operands under an Einstein-summation signature like
// "ij,jk->ik".
//
// Backward follows the one uniform einsum derivative rule: the gradient with
// respect to operand k is the einsum whose signature exchanges operand k's
// labels with the output labels, evaluated with the upstream gradient in
// operand k's slot. Axes summed away in the forward pass come back by
// broadcasting, using the dimensions bound during the forward.
//
// Operands marked batched get a fresh leading batch symbol prepended to
// their labels (and to the output), so one signature serves both the single
// and the batched case.
func Einsum(signature string, xs ...*tensor.Tensor) (*tensor.Tensor, error) {
	sig, err := einsum.Parse(signature)
	if err != nil {
		return nil, err
	}

	batched := false
	for _, x := range xs {
		if x.IsBatched() {
			batched = true
			break
		}
	}
	if batched {
		sig, err = batchSignature(sig, xs)
		if err != nil {
			return nil, err
		}
	}

	return einsumContract(sig, xs)
}

// einsumContract applies a parsed signature: forward contraction plus the
// derivative-rule backward closures.
func einsumContract(sig *einsum.Signature, xs []*tensor.Tensor) (*tensor.Tensor, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	if err := checkSameDevice("einsum "+sig.String(), xs...); err != nil {
		return nil, err
	}
	if err := checkSameDType("einsum "+sig.String(), xs...); err != nil {
		return nil, err
	}
	if err := checkFloat("einsum "+sig.String(), xs...); err != nil {
		return nil, err
	}

	shapes := make([]tensor.Shape, len(xs))
	arrays := make([]*tensor.Array, len(xs))
	for i, x := range xs {
		shapes[i] = x.Shape()
		arrays[i] = x.Array()
	}

	dims, err := sig.BindDims(shapes)
	if err != nil {
		return nil, err
	}

	be := xs[0].Backend()
	out, err := einsum.ContractWithDims(be, sig, dims, arrays...)
	if err != nil {
		return nil, err
	}

	backFns := make([]tensor.BackFn, len(xs))
	for k := range xs {
		deriv := sig.Derivative(k)
		operandShape := shapes[k]
		backFns[k] = func(up *tensor.Array) (*tensor.Array, error) {
			operands := make([]*tensor.Array, len(arrays))
			copy(operands, arrays)
			operands[k] = up

			g, err := einsum.ContractWithDims(be, deriv, dims, operands...)
			if err != nil {
				return nil, err
			}
			// Size-1 operand axes were broadcast in the forward; their
			// gradient sums back down.
			return sumToShape(be, g, operandShape), nil
		}
	}

	return tensor.FromOp(out, be, "einsum "+sig.String(), xs, backFns), nil
}

// batchSignature prepends a fresh batch symbol to the labels of every
// batched operand and to the output.
func batchSignature(sig *einsum.Signature, xs []*tensor.Tensor) (*einsum.Signature, error) {
	batch, err := freshSymbol(sig)
	if err != nil {
		return nil, err
	}

	terms := make([]string, sig.NumInputs())
	for i := 0; i < sig.NumInputs(); i++ {
		labels := string(sig.Input(i))
		if xs[i].IsBatched() {
			labels = string(batch) + labels
		}
		terms[i] = labels
	}
	raw := strings.Join(terms, ",") + "->" + string(batch) + string(sig.Output())
	return einsum.Parse(raw)
}

// freshSymbol picks a letter the signature does not use yet.
func freshSymbol(sig *einsum.Signature) (rune, error) {
	used := map[rune]bool{}
	for i := 0; i < sig.NumInputs(); i++ {
		for _, r := range sig.Input(i) {
			used[r] = true
		}
	}
	for _, r := range sig.Output() {
		used[r] = true
	}
	for r := 'z'; r >= 'a'; r-- {
		if !used[r] {
			return r, nil
		}
	}
	return 0, &tensor.UnsupportedSignatureError{
		Signature: sig.String(),
		Reason:    "no free symbol left for the batch axis",
	}
}
