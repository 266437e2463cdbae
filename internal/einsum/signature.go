// Package einsum implements Einstein-summation contraction over arrays.
//
// A signature like "ij,jk->ik" names the axes of each input and of the
// output; symbols shared between inputs are multiplied and symbols absent
// from the output are summed away. One uniform derivative rule covers every
// operation expressed this way: the gradient with respect to input k is
// itself an einsum, with the upstream gradient standing in for input k.
package einsum

import (
	"strings"

	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// Signature is a parsed einsum specification.
type Signature struct {
	raw    string
	inputs [][]rune
	output []rune
}

// Parse validates and parses an einsum signature.
//
// Rejected signatures return a *tensor.UnsupportedSignatureError:
// repeated symbols within a single input (diagonal extraction), repeated
// output symbols, and output symbols that appear in no input and so have no
// dimension to take. The derivative rule reintroduces summed-away symbols on
// the output side, so that last case is only rejected for user-facing
// signatures; see ContractWithDims.
func Parse(raw string) (*Signature, error) {
	parts := strings.Split(raw, "->")
	if len(parts) != 2 {
		return nil, &tensor.UnsupportedSignatureError{
			Signature: raw,
			Reason:    "missing '->' separator",
		}
	}

	inputPart, outputPart := parts[0], parts[1]
	if inputPart == "" {
		return nil, &tensor.UnsupportedSignatureError{
			Signature: raw,
			Reason:    "no inputs",
		}
	}

	var inputs [][]rune
	inputSymbols := map[rune]bool{}
	for _, term := range strings.Split(inputPart, ",") {
		labels := []rune(term)
		seen := map[rune]bool{}
		for _, r := range labels {
			if !isSymbol(r) {
				return nil, &tensor.UnsupportedSignatureError{
					Signature: raw,
					Reason:    "invalid symbol " + string(r),
				}
			}
			if seen[r] {
				return nil, &tensor.UnsupportedSignatureError{
					Signature: raw,
					Reason:    "repeated symbol " + string(r) + " within one input",
				}
			}
			seen[r] = true
			inputSymbols[r] = true
		}
		inputs = append(inputs, labels)
	}

	output := []rune(outputPart)
	outSeen := map[rune]bool{}
	for _, r := range output {
		if !isSymbol(r) {
			return nil, &tensor.UnsupportedSignatureError{
				Signature: raw,
				Reason:    "invalid symbol " + string(r),
			}
		}
		if outSeen[r] {
			return nil, &tensor.UnsupportedSignatureError{
				Signature: raw,
				Reason:    "repeated output symbol " + string(r),
			}
		}
		outSeen[r] = true
	}

	return &Signature{raw: raw, inputs: inputs, output: output}, nil
}

func isSymbol(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// MustParse is Parse panicking on error, for signatures known at compile
// time.
func MustParse(raw string) *Signature {
	sig, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return sig
}

// String returns the canonical signature text.
func (s *Signature) String() string {
	terms := make([]string, len(s.inputs))
	for i, in := range s.inputs {
		terms[i] = string(in)
	}
	return strings.Join(terms, ",") + "->" + string(s.output)
}

// NumInputs returns the number of input terms.
func (s *Signature) NumInputs() int {
	return len(s.inputs)
}

// Input returns the axis labels of input k.
func (s *Signature) Input(k int) []rune {
	return s.inputs[k]
}

// Output returns the output axis labels.
func (s *Signature) Output() []rune {
	return s.output
}

// hasInputSymbol reports whether any input carries the symbol.
func (s *Signature) hasInputSymbol(r rune) bool {
	for _, in := range s.inputs {
		for _, c := range in {
			if c == r {
				return true
			}
		}
	}
	return false
}

// Validate checks that every output symbol is bound by some input.
// Derivative signatures skip this; their free output symbols broadcast.
func (s *Signature) Validate() error {
	for _, r := range s.output {
		if !s.hasInputSymbol(r) {
			return &tensor.UnsupportedSignatureError{
				Signature: s.raw,
				Reason:    "output symbol " + string(r) + " appears in no input",
			}
		}
	}
	return nil
}

// BindDims maps every symbol to its dimension given the input shapes.
// A size-1 axis broadcasts against a larger binding of the same symbol;
// any other disagreement is a *tensor.ShapeError.
func (s *Signature) BindDims(shapes []tensor.Shape) (map[rune]int, error) {
	if len(shapes) != len(s.inputs) {
		return nil, &tensor.ShapeError{
			Op:     "einsum " + s.raw,
			Detail: "operand count does not match signature",
			Shapes: shapes,
		}
	}

	dims := map[rune]int{}
	for i, labels := range s.inputs {
		if len(shapes[i]) != len(labels) {
			return nil, &tensor.ShapeError{
				Op:     "einsum " + s.raw,
				Detail: "operand rank does not match its labels",
				Shapes: []tensor.Shape{shapes[i]},
			}
		}
		for d, r := range labels {
			dim := shapes[i][d]
			bound, ok := dims[r]
			switch {
			case !ok:
				dims[r] = dim
			case bound == dim:
			case bound == 1:
				dims[r] = dim
			case dim == 1:
				// Broadcast axis; the bound dimension stands.
			default:
				return nil, &tensor.ShapeError{
					Op:     "einsum " + s.raw,
					Detail: "symbol " + string(r) + " bound to conflicting dimensions",
					Shapes: shapes,
					Axis:   d,
				}
			}
		}
	}
	return dims, nil
}

// Derivative returns the signature computing the gradient with respect to
// input k: input k's labels are exchanged with the output labels, so the
// upstream gradient takes input k's slot and the result has input k's shape.
func (s *Signature) Derivative(k int) *Signature {
	inputs := make([][]rune, len(s.inputs))
	for i, in := range s.inputs {
		if i == k {
			inputs[i] = append([]rune(nil), s.output...)
		} else {
			inputs[i] = append([]rune(nil), in...)
		}
	}
	d := &Signature{inputs: inputs, output: append([]rune(nil), s.inputs[k]...)}
	d.raw = d.String()
	return d
}
