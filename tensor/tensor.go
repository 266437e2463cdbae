// Package tensor provides the public API for tensors and arrays.
//
// A Tensor is a node in the computation graph: a numeric Array together
// with the operands and backward closures that produced it. Leaves are
// created from Go slices or fill constructors; everything else comes out of
// the ops package.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.MustFromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend).RequireGrad()
//	y, _ := ops.Mul(x, x)
package tensor

import (
	"math/rand"

	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// DType is a constraint for tensor element types.
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Bool    DataType = tensor.Bool
)

// Device represents the device where tensor data resides.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	WebGPU Device = tensor.WebGPU
)

// Shape represents the dimensions of a tensor.
type Shape = tensor.Shape

// BroadcastShapes implements NumPy-style broadcasting over two shapes.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}

// Array is the low-level numeric array a Tensor wraps.
type Array = tensor.Array

// Tensor is a graph node: an Array plus autodiff metadata.
type Tensor = tensor.Tensor

// BackFn is a backward closure mapping an upstream gradient to an operand
// gradient.
type BackFn = tensor.BackFn

// Backend is the uniform array-computation interface implemented per device.
type Backend = tensor.Backend

// Typed errors surfaced by the ops layer and the engine.
type (
	ShapeError                 = tensor.ShapeError
	UnsupportedSignatureError  = tensor.UnsupportedSignatureError
	StaleGraphError            = tensor.StaleGraphError
	DeviceMismatchError        = tensor.DeviceMismatchError
	UninitializedGradientError = tensor.UninitializedGradientError
)

// New wraps an array as a leaf tensor.
func New(arr *Array, b Backend) *Tensor {
	return tensor.New(arr, b)
}

// FromOp constructs the output node of an Op application.
func FromOp(arr *Array, b Backend, name string, args []*Tensor, backFns []BackFn) *Tensor {
	return tensor.FromOp(arr, b, name, args, backFns)
}

// NewArray allocates a zero-initialized Array.
func NewArray(shape Shape, dtype DataType, device Device) (*Array, error) {
	return tensor.NewArray(shape, dtype, device)
}

// MustNewArray is NewArray panicking on error.
func MustNewArray(shape Shape, dtype DataType, device Device) *Array {
	return tensor.MustNewArray(shape, dtype, device)
}

// FromSlice builds a leaf tensor from a Go slice in row-major order.
func FromSlice[T DType](data []T, shape Shape, b Backend) (*Tensor, error) {
	return tensor.FromSlice(data, shape, b)
}

// MustFromSlice is FromSlice panicking on error.
func MustFromSlice[T DType](data []T, shape Shape, b Backend) *Tensor {
	return tensor.MustFromSlice(data, shape, b)
}

// Zeros creates a zero-filled leaf tensor.
func Zeros[T DType](shape Shape, b Backend) *Tensor {
	return tensor.Zeros[T](shape, b)
}

// Ones creates a one-filled leaf tensor.
func Ones[T DType](shape Shape, b Backend) *Tensor {
	return tensor.Ones[T](shape, b)
}

// Full creates a leaf tensor filled with a constant.
func Full[T DType](shape Shape, value float64, b Backend) *Tensor {
	return tensor.Full[T](shape, value, b)
}

// Rand creates a leaf tensor with uniform values in [-1, 1).
func Rand[T DType](shape Shape, rng *rand.Rand, b Backend) *Tensor {
	return tensor.Rand[T](shape, rng, b)
}

// OnesArray allocates a one-filled Array, the backward seed shape.
func OnesArray(shape Shape, dtype DataType, device Device) *Array {
	return tensor.OnesArray(shape, dtype, device)
}
