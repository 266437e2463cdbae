package tensor

import (
	"fmt"
	"sync/atomic"
)

// BackFn is a backward closure: it maps the gradient flowing into a node's
// output to the gradient of one of its operands. Closures capture whatever
// forward-pass state they need (operand arrays or fused intermediates).
type BackFn func(upstream *Array) (*Array, error)

// nextID hands out identity markers for graph traversal.
var nextID atomic.Uint64

// Tensor is a node in the computation graph: a numeric array plus the
// operands and backward closures that produced it, and a gradient buffer
// accumulated by the differentiation engine.
//
// A Tensor is finalized at construction: an Op's forward call builds the
// complete node (array, operand list, backward closures) atomically and the
// graph edges are never mutated afterwards. The only in-place mutations are
// ApplyDelta (optimiser updates), gradient accumulation, and device
// transfer — none of which touch the operand graph.
type Tensor struct {
	id      uint64
	name    string // op name that produced this node, "" for leaves
	array   *Array
	backend Backend
	grad    *Array // lazily allocated on first contribution

	args    []*Tensor
	backFns []BackFn

	requiresGrad bool
	batched      bool // axis 0 is a batch axis; changes Op dispatch only
	consumed     bool // a backward pass has already run through this node
}

// New wraps an array as a leaf tensor (no operands, no backward closures).
func New(arr *Array, b Backend) *Tensor {
	return &Tensor{
		id:      nextID.Add(1),
		array:   arr,
		backend: b,
	}
}

// FromOp constructs the output node of an Op application. backFns[i] must
// produce a gradient shaped like args[i]'s array (after any batch/broadcast
// reduction); the lengths of args and backFns must match.
//
// If no operand is gradient-tracked the operand list is dropped entirely, so
// untracked computation builds no graph.
func FromOp(arr *Array, b Backend, name string, args []*Tensor, backFns []BackFn) *Tensor {
	if len(args) != len(backFns) {
		panic(fmt.Sprintf("%s: %d operands but %d backward closures", name, len(args), len(backFns)))
	}

	tracked := false
	batched := false
	for _, arg := range args {
		if arg.Tracked() {
			tracked = true
		}
		if arg.batched {
			batched = true
		}
	}

	t := &Tensor{
		id:           nextID.Add(1),
		name:         name,
		array:        arr,
		backend:      b,
		requiresGrad: tracked,
		batched:      batched,
	}
	if tracked {
		t.args = args
		t.backFns = backFns
	}
	return t
}

// ID returns the node's identity marker, used to detect already-visited
// nodes during traversal.
func (t *Tensor) ID() uint64 { return t.id }

// Name returns the op name that produced this node ("" for leaves).
func (t *Tensor) Name() string { return t.name }

// Array returns the underlying numeric array.
func (t *Tensor) Array() *Array { return t.array }

// Backend returns the computation backend this tensor dispatches through.
func (t *Tensor) Backend() Backend { return t.backend }

// Shape returns the array's shape.
func (t *Tensor) Shape() Shape { return t.array.Shape() }

// DType returns the array's data type.
func (t *Tensor) DType() DataType { return t.array.DType() }

// Device returns the array's compute device.
func (t *Tensor) Device() Device { return t.array.Device() }

// Args returns the operand tensors this node depends on (nil for leaves
// and untracked nodes).
func (t *Tensor) Args() []*Tensor { return t.args }

// BackFns returns the node's backward closures, one per operand.
func (t *Tensor) BackFns() []BackFn { return t.backFns }

// IsLeaf reports whether the node has no operands.
func (t *Tensor) IsLeaf() bool { return len(t.args) == 0 }

// RequireGrad marks this tensor for gradient computation and returns it
// for chaining.
func (t *Tensor) RequireGrad() *Tensor {
	t.requiresGrad = true
	return t
}

// RequiresGrad reports whether gradients are computed for this tensor.
func (t *Tensor) RequiresGrad() bool { return t.requiresGrad }

// Tracked reports whether this node participates in graph recording:
// either it requires gradients itself or it was produced from tracked
// operands.
func (t *Tensor) Tracked() bool {
	return t.requiresGrad || len(t.backFns) > 0
}

// IsBatched reports whether axis 0 is treated as a batch axis by
// batch-aware Ops.
func (t *Tensor) IsBatched() bool { return t.batched }

// ToBatched marks axis 0 as a batch axis. The underlying array is
// unchanged; only future Op dispatch is affected.
func (t *Tensor) ToBatched() *Tensor {
	t.batched = true
	return t
}

// FromBatched clears the batch marking.
func (t *Tensor) FromBatched() *Tensor {
	t.batched = false
	return t
}

// Grad returns the accumulated gradient buffer, or nil if no backward pass
// has contributed to this node yet.
func (t *Tensor) Grad() *Array { return t.grad }

// AccumulateGrad adds a contribution into the gradient buffer, materializing
// it on first write. Contributions from multiple downstream paths sum.
func (t *Tensor) AccumulateGrad(g *Array) {
	if t.grad == nil {
		t.grad = g.Clone()
		return
	}
	t.grad = t.backend.Add(t.grad, g)
}

// ZeroGrad resets the gradient buffer. The training loop must call this at
// each step boundary before the next backward pass; gradients are never
// cleared automatically.
func (t *Tensor) ZeroGrad() {
	t.grad = nil
	t.consumed = false
}

// Consumed reports whether a backward pass has already run through this
// node since the last ZeroGrad or fresh forward.
func (t *Tensor) Consumed() bool { return t.consumed }

// MarkConsumed is set by the differentiation engine after propagation.
func (t *Tensor) MarkConsumed() { t.consumed = true }

// ApplyDelta adds a delta array to the underlying array in place. Used by
// optimisers; bypasses graph recording entirely.
//
// Mutating a tensor that pending backward closures still reference is
// undefined: callers must only apply deltas between a completed backward
// pass and the next forward pass.
func (t *Tensor) ApplyDelta(delta *Array) error {
	if !t.array.Shape().Equal(delta.Shape()) {
		return &ShapeError{Op: "apply delta", Detail: "delta shape mismatch", Shapes: []Shape{t.array.Shape(), delta.Shape()}, Axis: -1}
	}
	if t.array.DType() != delta.DType() {
		return &ShapeError{Op: "apply delta", Detail: "delta dtype mismatch: " + delta.DType().String(), Shapes: []Shape{t.array.Shape()}, Axis: -1}
	}

	n := t.array.NumElements()
	switch t.array.DType() {
	case Float32:
		dst, src := t.array.AsFloat32(), delta.AsFloat32()
		for i := 0; i < n; i++ {
			dst[i] += src[i]
		}
	case Float64:
		dst, src := t.array.AsFloat64(), delta.AsFloat64()
		for i := 0; i < n; i++ {
			dst[i] += src[i]
		}
	default:
		return &ShapeError{Op: "apply delta", Detail: "non-float tensor", Shapes: []Shape{t.array.Shape()}, Axis: -1}
	}
	return nil
}

// To transfers the tensor (and, recursively, any materialized operands) to
// the given backend. Transfer is a data-placement operation, not a
// differentiable Op: it is never recorded on the graph. Like ApplyDelta it
// must not race a pending backward pass.
func (t *Tensor) To(b Backend) *Tensor {
	visited := make(map[uint64]bool)
	t.transfer(b, visited)
	return t
}

func (t *Tensor) transfer(b Backend, visited map[uint64]bool) {
	if visited[t.id] {
		return
	}
	visited[t.id] = true

	t.array = t.array.Clone().WithDevice(b.Device())
	if t.grad != nil {
		t.grad = t.grad.Clone().WithDevice(b.Device())
	}
	t.backend = b
	for _, arg := range t.args {
		arg.transfer(b, visited)
	}
}

// Item returns the value of a single-element float tensor as float64.
// Panics if the tensor has more than one element.
func (t *Tensor) Item() float64 {
	if t.array.NumElements() != 1 {
		panic(fmt.Sprintf("Item: tensor has shape %v, not a scalar", t.Shape()))
	}
	return t.array.Float(0)
}

// String returns a short description of the tensor.
func (t *Tensor) String() string {
	name := t.name
	if name == "" {
		name = "leaf"
	}
	return fmt.Sprintf("Tensor(%s)[%s]%v on %s", name, t.DType(), t.Shape(), t.Device())
}
