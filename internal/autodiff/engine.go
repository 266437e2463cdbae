// Package autodiff implements the reverse-mode differentiation engine.
//
// The computation graph is carried by the tensors themselves: each non-leaf
// tensor records its operands and one backward closure per operand. Backward
// linearizes the graph rooted at the result with an iterative depth-first
// topological sort, then propagates gradients output-to-input, summing
// contributions where paths reconverge.
package autodiff

import (
	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// Backward runs reverse-mode differentiation from root, seeding the root
// gradient with ones. After it returns, every tracked tensor reachable from
// root holds its accumulated gradient.
//
// A graph can be differentiated once per forward pass: running Backward
// through any already-consumed node, whether the root itself or an
// intermediate shared with an earlier pass, returns a
// *tensor.StaleGraphError.
func Backward(root *tensor.Tensor) error {
	return BackwardWithSeed(root, nil)
}

// BackwardWithSeed is Backward with an explicit seed gradient, for
// differentiating from a non-scalar root or chaining external gradients.
// A nil seed means ones shaped like the root.
func BackwardWithSeed(root *tensor.Tensor, seed *tensor.Array) error {
	if root.Consumed() {
		return &tensor.StaleGraphError{Root: root.Name()}
	}

	if seed == nil {
		seed = tensor.OnesArray(root.Shape(), root.DType(), root.Device())
	} else {
		if !seed.Shape().Equal(root.Shape()) {
			return &tensor.ShapeError{
				Op:     "backward",
				Detail: "seed gradient shape does not match root",
				Shapes: []tensor.Shape{root.Shape(), seed.Shape()},
				Axis:   -1,
			}
		}
		if seed.DType() != root.DType() {
			return &tensor.ShapeError{
				Op:     "backward",
				Detail: "seed gradient dtype does not match root: " + seed.DType().String(),
				Shapes: []tensor.Shape{root.Shape()},
				Axis:   -1,
			}
		}
	}

	order := topoSort(root)

	// Staleness covers the whole reachable graph, not just the root: a
	// second head over a shared trunk would otherwise re-propagate the
	// gradient still parked on the trunk from the first pass.
	for _, node := range order {
		if !node.IsLeaf() && node.Consumed() {
			return &tensor.StaleGraphError{Root: node.Name()}
		}
	}

	root.AccumulateGrad(seed)

	// Nodes come out output-before-input, so by the time a node is
	// processed every downstream contribution to its gradient has landed.
	for _, node := range order {
		node.MarkConsumed()
		if node.IsLeaf() {
			continue
		}

		upstream := node.Grad()
		if upstream == nil {
			return &tensor.UninitializedGradientError{NodeID: node.ID(), Name: node.Name()}
		}

		args := node.Args()
		for i, backFn := range node.BackFns() {
			g, err := backFn(upstream)
			if err != nil {
				return err
			}
			args[i].AccumulateGrad(g)
		}
	}

	return nil
}

// topoSort returns the tensors reachable from root in topological order,
// outputs before inputs. The traversal is an explicit-stack depth-first
// post-order, so graph depth is bounded by memory, not goroutine stack.
// Shared operands (diamond dependencies) are visited exactly once.
func topoSort(root *tensor.Tensor) []*tensor.Tensor {
	type frame struct {
		node     *tensor.Tensor
		expanded bool
	}

	var order []*tensor.Tensor
	visited := make(map[uint64]bool)
	stack := []frame{{node: root}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if top.expanded {
			order = append(order, top.node)
			stack = stack[:len(stack)-1]
			continue
		}
		top.expanded = true

		if visited[top.node.ID()] {
			stack = stack[:len(stack)-1]
			continue
		}
		visited[top.node.ID()] = true

		for _, arg := range top.node.Args() {
			if !visited[arg.ID()] {
				stack = append(stack, frame{node: arg})
			}
		}
	}

	// Post-order leaves inputs first; reverse for output-to-input.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}
