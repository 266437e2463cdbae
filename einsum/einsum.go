// Package einsum provides the public API for Einstein-summation contraction
// over raw arrays. For the differentiable graph operation, use ops.Einsum.
package einsum

import (
	"github.com/jacobjwood/Tricycle/internal/einsum"
)

// Signature is a parsed einsum specification like "ij,jk->ik".
type Signature = einsum.Signature

// Parse validates and parses an einsum signature.
var Parse = einsum.Parse

// MustParse is Parse panicking on error.
var MustParse = einsum.MustParse

// Contract evaluates a signature over operand arrays, dispatching
// recognized patterns to backend kernels.
var Contract = einsum.Contract

// ContractWithDims evaluates with an explicit symbol-dimension binding,
// allowing unbound output symbols to broadcast.
var ContractWithDims = einsum.ContractWithDims
