// Package tensor holds the dense float32 tensors that fixtures, kernels and
// engines exchange.
package tensor

import (
	"errors"
	"fmt"
	"math"
)

// Tensor is a dense, row-major float32 tensor.
type Tensor struct {
	shape []int64
	data  []float32
}

// New creates a tensor from data and shape. Both slices are copied.
func New(data []float32, shape []int64) (*Tensor, error) {
	total, err := elemCount(shape)
	if err != nil {
		return nil, err
	}

	if len(data) != total {
		return nil, fmt.Errorf("tensor: data length %d does not match shape %v (%d elements)", len(data), shape, total)
	}

	return &Tensor{
		shape: append([]int64(nil), shape...),
		data:  append([]float32(nil), data...),
	}, nil
}

// Adopt creates a tensor that takes ownership of data without copying it.
// The caller must not modify data afterwards.
func Adopt(data []float32, shape []int64) (*Tensor, error) {
	total, err := elemCount(shape)
	if err != nil {
		return nil, err
	}

	if len(data) != total {
		return nil, fmt.Errorf("tensor: data length %d does not match shape %v (%d elements)", len(data), shape, total)
	}

	return &Tensor{shape: append([]int64(nil), shape...), data: data}, nil
}

func (t *Tensor) Shape() []int64 {
	if t == nil {
		return nil
	}

	return append([]int64(nil), t.shape...)
}

// Data returns a copy of the underlying tensor data.
func (t *Tensor) Data() []float32 {
	if t == nil {
		return nil
	}

	return append([]float32(nil), t.data...)
}

// RawData returns the underlying data slice.
// Callers must treat it as read-only.
func (t *Tensor) RawData() []float32 {
	if t == nil {
		return nil
	}

	return t.data
}

func (t *Tensor) ElemCount() int {
	if t == nil {
		return 0
	}

	return len(t.data)
}

func (t *Tensor) Rank() int {
	if t == nil {
		return 0
	}

	return len(t.shape)
}

// Row returns a read-only view of the values of index i along the leading
// dimension. The view shares storage with t.
func (t *Tensor) Row(i int) ([]float32, error) {
	if t == nil {
		return nil, errors.New("tensor: row on nil tensor")
	}

	if len(t.shape) == 0 {
		return nil, errors.New("tensor: row requires rank >= 1")
	}

	n := int(t.shape[0])
	if i < 0 || i >= n {
		return nil, fmt.Errorf("tensor: row %d out of range [0, %d)", i, n)
	}

	stride := len(t.data) / n

	return t.data[i*stride : (i+1)*stride : (i+1)*stride], nil
}

// EqualShape reports whether a and b have identical dimensions.
func EqualShape(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// ElemCount returns the number of elements described by shape.
func ElemCount(shape []int64) (int, error) {
	return elemCount(shape)
}

func elemCount(shape []int64) (int, error) {
	total := int64(1)

	for i, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("tensor: shape %v has negative dimension at %d", shape, i)
		}

		if d != 0 && total > math.MaxInt64/d {
			return 0, fmt.Errorf("tensor: shape %v too large", shape)
		}

		total *= d
	}

	if total > int64(^uint(0)>>1) {
		return 0, fmt.Errorf("tensor: shape %v exceeds platform int size", shape)
	}

	return int(total), nil
}
