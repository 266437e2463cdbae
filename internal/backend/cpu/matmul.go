package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// MatMul performs matrix multiplication: [M, K] @ [K, N] -> [M, N].
// Float arrays go through gonum BLAS GEMM; other dtypes use the naive loop.
func (cpu *Backend) MatMul(a, b *tensor.Array) *tensor.Array {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: expected 2D arrays, got %v and %v", aShape, bShape))
	}

	m, k := aShape[0], aShape[1]
	if bShape[0] != k {
		panic(fmt.Sprintf("matmul: inner dimension mismatch: %v @ %v", aShape, bShape))
	}
	n := bShape[1]

	out := tensor.MustNewArray(tensor.Shape{m, n}, a.DType(), cpu.device)
	matmulInto(out, a, b, m, k, n)
	return out
}

// BatchMatMul performs batched matrix multiplication:
// [B, M, K] @ [B, K, N] -> [B, M, N].
func (cpu *Backend) BatchMatMul(a, b *tensor.Array) *tensor.Array {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 3 || len(bShape) != 3 {
		panic(fmt.Sprintf("batch matmul: expected 3D arrays, got %v and %v", aShape, bShape))
	}
	if aShape[0] != bShape[0] {
		panic(fmt.Sprintf("batch matmul: batch dimension mismatch: %v @ %v", aShape, bShape))
	}

	batch, m, k := aShape[0], aShape[1], aShape[2]
	if bShape[1] != k {
		panic(fmt.Sprintf("batch matmul: inner dimension mismatch: %v @ %v", aShape, bShape))
	}
	n := bShape[2]

	out := tensor.MustNewArray(tensor.Shape{batch, m, n}, a.DType(), cpu.device)
	for i := 0; i < batch; i++ {
		matmulSlice(out, a, b, i, m, k, n)
	}
	return out
}

// matmulInto computes out = a @ b for whole arrays.
func matmulInto(out, a, b *tensor.Array, m, k, n int) {
	switch a.DType() {
	case tensor.Float32:
		gemm32(out.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n)
	case tensor.Float64:
		gemm64(out.AsFloat64(), a.AsFloat64(), b.AsFloat64(), m, k, n)
	case tensor.Int32:
		matmulInt32(out.AsInt32(), a.AsInt32(), b.AsInt32(), m, k, n)
	case tensor.Int64:
		matmulInt64(out.AsInt64(), a.AsInt64(), b.AsInt64(), m, k, n)
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %s", a.DType()))
	}
}

// matmulSlice computes out[i] = a[i] @ b[i] for one batch element.
func matmulSlice(out, a, b *tensor.Array, i, m, k, n int) {
	switch a.DType() {
	case tensor.Float32:
		gemm32(out.AsFloat32()[i*m*n:(i+1)*m*n],
			a.AsFloat32()[i*m*k:(i+1)*m*k],
			b.AsFloat32()[i*k*n:(i+1)*k*n], m, k, n)
	case tensor.Float64:
		gemm64(out.AsFloat64()[i*m*n:(i+1)*m*n],
			a.AsFloat64()[i*m*k:(i+1)*m*k],
			b.AsFloat64()[i*k*n:(i+1)*k*n], m, k, n)
	default:
		panic(fmt.Sprintf("batch matmul: unsupported dtype %s", a.DType()))
	}
}

// gemm32 computes c = a @ b via BLAS SGEMM.
func gemm32(c, a, b []float32, m, k, n int) {
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
		blas32.General{Rows: m, Cols: k, Stride: k, Data: a},
		blas32.General{Rows: k, Cols: n, Stride: n, Data: b},
		0,
		blas32.General{Rows: m, Cols: n, Stride: n, Data: c})
}

// gemm64 computes c = a @ b via BLAS DGEMM.
func gemm64(c, a, b []float64, m, k, n int) {
	blas64.Gemm(blas.NoTrans, blas.NoTrans, 1,
		blas64.General{Rows: m, Cols: k, Stride: k, Data: a},
		blas64.General{Rows: k, Cols: n, Stride: n, Data: b},
		0,
		blas64.General{Rows: m, Cols: n, Stride: n, Data: c})
}

func matmulInt32(c, a, b []int32, m, k, n int) {
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum int32
			for p := 0; p < k; p++ {
				sum += a[i*k+p] * b[p*n+j]
			}
			c[i*n+j] = sum
		}
	}
}

func matmulInt64(c, a, b []int64, m, k, n int) {
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum int64
			for p := 0; p < k; p++ {
				sum += a[i*k+p] * b[p*n+j]
			}
			c[i*n+j] = sum
		}
	}
}
