package tensor

// Backend is the uniform array-computation interface implemented once per
// compute device. Ops dispatch through a Backend handle held by their
// operand tensors rather than inspecting array types at runtime.
//
// Backend methods compute on raw Arrays and know nothing about the
// computation graph; graph construction happens in the ops layer.
// Preconditions (shape compatibility, matching devices and dtypes) are
// checked by the caller, so backends panic on violations instead of
// returning errors.
//
// Implementations:
//   - cpu: pure Go kernels with a gonum BLAS GEMM fast path
//   - webgpu: WGSL compute shaders via go-webgpu, host fallback elsewhere
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *Array) *Array
	Sub(a, b *Array) *Array
	Mul(a, b *Array) *Array
	Div(a, b *Array) *Array
	Maximum(a, b *Array) *Array
	Minimum(a, b *Array) *Array

	// Element-wise operations against a scalar.
	AddScalar(x *Array, s float64) *Array
	MulScalar(x *Array, s float64) *Array
	PowScalar(x *Array, p float64) *Array

	// Element-wise math.
	Exp(x *Array) *Array
	Log(x *Array) *Array
	Sqrt(x *Array) *Array
	Sin(x *Array) *Array
	Cos(x *Array) *Array

	// Matrix operations.
	// MatMul: [M, K] @ [K, N] -> [M, N].
	// BatchMatMul: [B, M, K] @ [B, K, N] -> [B, M, N].
	MatMul(a, b *Array) *Array
	BatchMatMul(a, b *Array) *Array

	// Shape operations.
	Reshape(x *Array, shape Shape) *Array
	Transpose(x *Array, axes ...int) *Array
	BroadcastTo(x *Array, shape Shape) *Array
	Concat(xs []*Array, axis int) *Array
	Narrow(x *Array, axis, start, length int) *Array

	// Reductions.
	Sum(x *Array) *Array
	SumAxis(x *Array, axis int, keep bool) *Array
	MaxAxis(x *Array, axis int, keep bool) *Array

	// Comparisons and selection (comparison results are Bool arrays).
	Greater(a, b *Array) *Array
	GreaterEqual(a, b *Array) *Array
	Where(cond, x, y *Array) *Array

	// Softmax along the last axis of a 2D array, with the per-row maximum
	// subtracted before exponentiating.
	Softmax(x *Array) *Array

	// Metadata.
	Name() string
	Device() Device
}
