package tensor

import (
	"fmt"
	"strings"
)

// ShapeError reports operand shapes that are incompatible for the requested
// operation: not broadcastable, mismatched binary operands, or contraction
// index length disagreement. It is always surfaced to the caller and never
// silently fixed.
type ShapeError struct {
	Op     string  // operation that rejected the shapes
	Detail string  // what exactly is wrong
	Shapes []Shape // offending shapes, in operand order
	Axis   int     // axis at fault, or -1 if not axis-specific
}

func (e *ShapeError) Error() string {
	parts := make([]string, len(e.Shapes))
	for i, s := range e.Shapes {
		parts[i] = fmt.Sprintf("%v", s)
	}
	msg := fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, strings.Join(parts, " vs "))
	if e.Axis >= 0 {
		msg += fmt.Sprintf(" (axis %d)", e.Axis)
	}
	return msg
}

// UnsupportedSignatureError reports a malformed or unsupported einsum
// signature, such as an index symbol repeated within a single input's label.
// It is surfaced at signature construction, never deferred to backward.
type UnsupportedSignatureError struct {
	Signature string
	Reason    string
}

func (e *UnsupportedSignatureError) Error() string {
	return fmt.Sprintf("unsupported einsum signature %q: %s", e.Signature, e.Reason)
}

// StaleGraphError reports a backward invocation on a graph that has already
// been consumed by a previous backward pass. Intermediate fused state may
// have been discarded, so the engine fails fast rather than recompute.
type StaleGraphError struct {
	Root string // name of the root node, for diagnostics
}

func (e *StaleGraphError) Error() string {
	return fmt.Sprintf("backward called on stale graph (root %q): run a fresh forward pass first", e.Root)
}

// DeviceMismatchError reports operand arrays on different backends passed to
// a single operation.
type DeviceMismatchError struct {
	Op      string
	Devices []Device
}

func (e *DeviceMismatchError) Error() string {
	names := make([]string, len(e.Devices))
	for i, d := range e.Devices {
		names[i] = d.String()
	}
	return fmt.Sprintf("%s: operands on mismatched devices: %s", e.Op, strings.Join(names, " vs "))
}

// UninitializedGradientError reports a backward closure invoked on a node
// that received no gradient contribution. This indicates a broken topological
// order inside the engine, not a user error, and is treated as fatal.
type UninitializedGradientError struct {
	NodeID uint64
	Name   string
}

func (e *UninitializedGradientError) Error() string {
	return fmt.Sprintf("engine bug: node %d (%s) scheduled for backward with no gradient contribution", e.NodeID, e.Name)
}
