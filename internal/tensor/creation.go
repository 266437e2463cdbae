package tensor

import (
	"math/rand"

	"github.com/pkg/errors"
)

// FromSlice creates a leaf tensor from a Go slice, copying the data.
func FromSlice[T DType](data []T, shape Shape, b Backend) (*Tensor, error) {
	if shape.NumElements() != len(data) {
		return nil, errors.Errorf("from slice: shape %v requires %d elements, got %d",
			shape, shape.NumElements(), len(data))
	}

	var dummy T
	arr, err := NewArray(shape, inferDataType(dummy), b.Device())
	if err != nil {
		return nil, err
	}

	t := New(arr, b)
	copy(sliceOf[T](arr), data)
	return t, nil
}

// MustFromSlice is FromSlice panicking on error, for tests and examples.
func MustFromSlice[T DType](data []T, shape Shape, b Backend) *Tensor {
	t, err := FromSlice(data, shape, b)
	if err != nil {
		panic(err)
	}
	return t
}

// Zeros creates a zero-filled leaf tensor.
func Zeros[T DType](shape Shape, b Backend) *Tensor {
	var dummy T
	return New(MustNewArray(shape, inferDataType(dummy), b.Device()), b)
}

// Ones creates a one-filled leaf tensor.
func Ones[T DType](shape Shape, b Backend) *Tensor {
	return Full[T](shape, 1, b)
}

// Full creates a leaf tensor filled with a constant.
func Full[T DType](shape Shape, value float64, b Backend) *Tensor {
	var dummy T
	dtype := inferDataType(dummy)
	arr := MustNewArray(shape, dtype, b.Device())
	fillFloat(arr, value)
	return New(arr, b)
}

// Rand creates a leaf tensor of uniform values in [-1, 1), using the given
// source for reproducibility.
func Rand[T DType](shape Shape, rng *rand.Rand, b Backend) *Tensor {
	var dummy T
	arr := MustNewArray(shape, inferDataType(dummy), b.Device())
	for i := 0; i < arr.NumElements(); i++ {
		arr.SetFloat(i, rng.Float64()*2-1)
	}
	return New(arr, b)
}

// OnesArray allocates a one-filled array, the default backward seed.
func OnesArray(shape Shape, dtype DataType, device Device) *Array {
	arr := MustNewArray(shape, dtype, device)
	fillFloat(arr, 1)
	return arr
}

func fillFloat(arr *Array, value float64) {
	switch arr.DType() {
	case Float32:
		data := arr.AsFloat32()
		for i := range data {
			data[i] = float32(value)
		}
	case Float64:
		data := arr.AsFloat64()
		for i := range data {
			data[i] = value
		}
	case Int32:
		data := arr.AsInt32()
		for i := range data {
			data[i] = int32(value)
		}
	case Int64:
		data := arr.AsInt64()
		for i := range data {
			data[i] = int64(value)
		}
	case Bool:
		data := arr.AsBool()
		for i := range data {
			data[i] = value != 0
		}
	}
}

// sliceOf returns the typed view of an array for the generic creation
// helpers.
func sliceOf[T DType](arr *Array) []T {
	var dummy T
	switch any(dummy).(type) {
	case float32:
		return any(arr.AsFloat32()).([]T)
	case float64:
		return any(arr.AsFloat64()).([]T)
	case int32:
		return any(arr.AsInt32()).([]T)
	case int64:
		return any(arr.AsInt64()).([]T)
	case bool:
		return any(arr.AsBool()).([]T)
	default:
		panic("unsupported type")
	}
}
