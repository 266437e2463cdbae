package tensor

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
)

// arrayBuffer is a reference-counted shared byte buffer. The same leaf
// parameter is typically operand to many graph nodes across many training
// steps, so buffers are shared, not copied, and live until the last
// reference is released.
type arrayBuffer struct {
	data     []byte
	refCount atomic.Int32
}

func newArrayBuffer(size int) *arrayBuffer {
	buf := &arrayBuffer{data: make([]byte, size)}
	buf.refCount.Store(1)
	return buf
}

func (ab *arrayBuffer) addRef() {
	ab.refCount.Add(1)
}

func (ab *arrayBuffer) release() {
	if ab.refCount.Add(-1) == 0 {
		ab.data = nil
	}
}

// Array is the low-level numeric array: a contiguous row-major buffer plus
// shape, dtype, and device placement. It is the value type the Backend
// interface computes on; Tensors wrap an Array with graph metadata.
type Array struct {
	buffer *arrayBuffer
	shape  Shape
	stride []int
	dtype  DataType
	device Device
}

// NewArray allocates a zero-initialized Array with the given shape and type.
func NewArray(shape Shape, dtype DataType, device Device) (*Array, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrap(err, "new array")
	}

	byteSize := shape.NumElements() * dtype.Size()
	return &Array{
		buffer: newArrayBuffer(byteSize),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// MustNewArray is NewArray panicking on error. Backends use it where the
// shape has already been validated.
func MustNewArray(shape Shape, dtype DataType, device Device) *Array {
	a, err := NewArray(shape, dtype, device)
	if err != nil {
		panic(err)
	}
	return a
}

// Shape returns the array's shape.
func (a *Array) Shape() Shape {
	return a.shape
}

// Strides returns the array's row-major memory strides.
func (a *Array) Strides() []int {
	return a.stride
}

// DType returns the array's data type.
func (a *Array) DType() DataType {
	return a.dtype
}

// Device returns the array's compute device.
func (a *Array) Device() Device {
	return a.device
}

// NumElements returns the total number of elements.
func (a *Array) NumElements() int {
	return a.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (a *Array) ByteSize() int {
	return a.NumElements() * a.dtype.Size()
}

// Data returns the raw byte slice backing the array.
func (a *Array) Data() []byte {
	return a.buffer.data
}

// AsFloat32 interprets the data as []float32. Panics on dtype mismatch.
func (a *Array) AsFloat32() []float32 {
	if a.dtype != Float32 {
		panic(fmt.Sprintf("array dtype is %s, not float32", a.dtype))
	}
	if len(a.buffer.data) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&a.buffer.data[0])), a.NumElements())
}

// AsFloat64 interprets the data as []float64. Panics on dtype mismatch.
func (a *Array) AsFloat64() []float64 {
	if a.dtype != Float64 {
		panic(fmt.Sprintf("array dtype is %s, not float64", a.dtype))
	}
	if len(a.buffer.data) == 0 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&a.buffer.data[0])), a.NumElements())
}

// AsInt32 interprets the data as []int32. Panics on dtype mismatch.
func (a *Array) AsInt32() []int32 {
	if a.dtype != Int32 {
		panic(fmt.Sprintf("array dtype is %s, not int32", a.dtype))
	}
	if len(a.buffer.data) == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&a.buffer.data[0])), a.NumElements())
}

// AsInt64 interprets the data as []int64. Panics on dtype mismatch.
func (a *Array) AsInt64() []int64 {
	if a.dtype != Int64 {
		panic(fmt.Sprintf("array dtype is %s, not int64", a.dtype))
	}
	if len(a.buffer.data) == 0 {
		return nil
	}
	return unsafe.Slice((*int64)(unsafe.Pointer(&a.buffer.data[0])), a.NumElements())
}

// AsBool interprets the data as []bool. Panics on dtype mismatch.
func (a *Array) AsBool() []bool {
	if a.dtype != Bool {
		panic(fmt.Sprintf("array dtype is %s, not bool", a.dtype))
	}
	if len(a.buffer.data) == 0 {
		return nil
	}
	return unsafe.Slice((*bool)(unsafe.Pointer(&a.buffer.data[0])), a.NumElements())
}

// Float returns element i as float64 regardless of float dtype.
// Panics for non-float arrays.
func (a *Array) Float(i int) float64 {
	switch a.dtype {
	case Float32:
		return float64(a.AsFloat32()[i])
	case Float64:
		return a.AsFloat64()[i]
	default:
		panic(fmt.Sprintf("Float: array dtype is %s, not a float type", a.dtype))
	}
}

// SetFloat stores v into element i, converting to the array's float dtype.
// Panics for non-float arrays.
func (a *Array) SetFloat(i int, v float64) {
	switch a.dtype {
	case Float32:
		a.AsFloat32()[i] = float32(v)
	case Float64:
		a.AsFloat64()[i] = v
	default:
		panic(fmt.Sprintf("SetFloat: array dtype is %s, not a float type", a.dtype))
	}
}

// View returns a shallow copy sharing the same buffer (refcounted).
func (a *Array) View() *Array {
	a.buffer.addRef()
	return &Array{
		buffer: a.buffer,
		shape:  a.shape.Clone(),
		stride: append([]int(nil), a.stride...),
		dtype:  a.dtype,
		device: a.device,
	}
}

// Clone returns a deep copy of the array.
func (a *Array) Clone() *Array {
	out := MustNewArray(a.shape, a.dtype, a.device)
	copy(out.Data(), a.Data())
	return out
}

// WithShape returns a view of the same buffer reinterpreted under a new
// shape. The element counts must match.
func (a *Array) WithShape(shape Shape) *Array {
	if shape.NumElements() != a.NumElements() {
		panic(fmt.Sprintf("with shape: element count mismatch: %v -> %v", a.shape, shape))
	}
	v := a.View()
	v.shape = shape.Clone()
	v.stride = shape.ComputeStrides()
	return v
}

// WithDevice returns a view of the same buffer tagged for another device.
// Used by device transfer and by backends that mirror results on the host.
func (a *Array) WithDevice(device Device) *Array {
	v := a.View()
	v.device = device
	return v
}

// Release decrements the buffer reference count, deallocating at zero.
func (a *Array) Release() {
	a.buffer.release()
}

// String returns a short description of the array.
func (a *Array) String() string {
	return fmt.Sprintf("Array[%s]%v on %s", a.dtype, a.shape, a.device)
}
