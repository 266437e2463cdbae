// Package cpu implements the host backend: pure Go kernels with a gonum
// BLAS GEMM fast path for float matrix multiplication.
package cpu

import (
	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// Backend implements tensor.Backend on the host CPU.
type Backend struct {
	device tensor.Device
}

// New creates a new CPU backend.
func New() *Backend {
	return &Backend{device: tensor.CPU}
}

// Name returns the backend name.
func (cpu *Backend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *Backend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *Backend) Add(a, b *tensor.Array) *tensor.Array {
	return binaryOp("add", a, b, cpu.device,
		func(x, y float32) float32 { return x + y },
		func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *Backend) Sub(a, b *tensor.Array) *tensor.Array {
	return binaryOp("sub", a, b, cpu.device,
		func(x, y float32) float32 { return x - y },
		func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *Backend) Mul(a, b *tensor.Array) *tensor.Array {
	return binaryOp("mul", a, b, cpu.device,
		func(x, y float32) float32 { return x * y },
		func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (cpu *Backend) Div(a, b *tensor.Array) *tensor.Array {
	return binaryOp("div", a, b, cpu.device,
		func(x, y float32) float32 { return x / y },
		func(x, y float64) float64 { return x / y })
}

// Maximum returns the element-wise maximum of two arrays.
func (cpu *Backend) Maximum(a, b *tensor.Array) *tensor.Array {
	return binaryOp("maximum", a, b, cpu.device,
		func(x, y float32) float32 { return max(x, y) },
		func(x, y float64) float64 { return max(x, y) })
}

// Minimum returns the element-wise minimum of two arrays.
func (cpu *Backend) Minimum(a, b *tensor.Array) *tensor.Array {
	return binaryOp("minimum", a, b, cpu.device,
		func(x, y float32) float32 { return min(x, y) },
		func(x, y float64) float64 { return min(x, y) })
}
