package cpu

import (
	"fmt"
	"math"

	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// AddScalar adds a scalar to every element.
func (cpu *Backend) AddScalar(x *tensor.Array, s float64) *tensor.Array {
	return unaryOp("add scalar", x, cpu.device,
		func(v float32) float32 { return v + float32(s) },
		func(v float64) float64 { return v + s })
}

// MulScalar multiplies every element by a scalar.
func (cpu *Backend) MulScalar(x *tensor.Array, s float64) *tensor.Array {
	return unaryOp("mul scalar", x, cpu.device,
		func(v float32) float32 { return v * float32(s) },
		func(v float64) float64 { return v * s })
}

// PowScalar raises every element to a scalar power.
func (cpu *Backend) PowScalar(x *tensor.Array, p float64) *tensor.Array {
	return unaryOp("pow scalar", x, cpu.device,
		func(v float32) float32 { return float32(math.Pow(float64(v), p)) },
		func(v float64) float64 { return math.Pow(v, p) })
}

// Exp computes the element-wise exponential.
func (cpu *Backend) Exp(x *tensor.Array) *tensor.Array {
	return unaryOp("exp", x, cpu.device,
		func(v float32) float32 { return float32(math.Exp(float64(v))) },
		math.Exp)
}

// Log computes the element-wise natural logarithm.
func (cpu *Backend) Log(x *tensor.Array) *tensor.Array {
	return unaryOp("log", x, cpu.device,
		func(v float32) float32 { return float32(math.Log(float64(v))) },
		math.Log)
}

// Sqrt computes the element-wise square root.
func (cpu *Backend) Sqrt(x *tensor.Array) *tensor.Array {
	return unaryOp("sqrt", x, cpu.device,
		func(v float32) float32 { return float32(math.Sqrt(float64(v))) },
		math.Sqrt)
}

// Sin computes the element-wise sine.
func (cpu *Backend) Sin(x *tensor.Array) *tensor.Array {
	return unaryOp("sin", x, cpu.device,
		func(v float32) float32 { return float32(math.Sin(float64(v))) },
		math.Sin)
}

// Cos computes the element-wise cosine.
func (cpu *Backend) Cos(x *tensor.Array) *tensor.Array {
	return unaryOp("cos", x, cpu.device,
		func(v float32) float32 { return float32(math.Cos(float64(v))) },
		math.Cos)
}

// Softmax computes softmax along the last axis of a 2D array, subtracting
// the per-row maximum before exponentiating for numerical stability.
func (cpu *Backend) Softmax(x *tensor.Array) *tensor.Array {
	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("softmax: expected 2D array, got %v", shape))
	}

	out := tensor.MustNewArray(shape, x.DType(), cpu.device)
	rows, cols := shape[0], shape[1]

	switch x.DType() {
	case tensor.Float32:
		softmaxRows32(x.AsFloat32(), out.AsFloat32(), rows, cols)
	case tensor.Float64:
		softmaxRows64(x.AsFloat64(), out.AsFloat64(), rows, cols)
	default:
		panic(fmt.Sprintf("softmax: unsupported dtype %s", x.DType()))
	}
	return out
}

func softmaxRows32(src, dst []float32, rows, cols int) {
	for r := 0; r < rows; r++ {
		row := src[r*cols : (r+1)*cols]
		out := dst[r*cols : (r+1)*cols]

		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}

		var sum float32
		for i, v := range row {
			out[i] = float32(math.Exp(float64(v - maxVal)))
			sum += out[i]
		}
		for i := range out {
			out[i] /= sum
		}
	}
}

func softmaxRows64(src, dst []float64, rows, cols int) {
	for r := 0; r < rows; r++ {
		row := src[r*cols : (r+1)*cols]
		out := dst[r*cols : (r+1)*cols]

		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}

		var sum float64
		for i, v := range row {
			out[i] = math.Exp(v - maxVal)
			sum += out[i]
		}
		for i := range out {
			out[i] /= sum
		}
	}
}
