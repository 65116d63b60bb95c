// Package tensor provides the dense float32 tensors and strided views that
// graph nodes read and write during forward and backward evaluation.
//
// Storage is row-major. By convention the minibatch frame axis is the last
// axis, so a window of frames is addressed by offsetting along the innermost
// (contiguous) stride.
package tensor

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch indicates two views with incompatible shapes were combined
// in an elementwise operation.
var ErrShapeMismatch = errors.New("tensor: shape mismatch")

// Tensor is a dense float32 tensor.
type Tensor struct {
	shape Shape
	data  []float32
}

// New creates a zero-filled tensor with the given shape.
func New(shape Shape) *Tensor {
	return &Tensor{
		shape: shape.Clone(),
		data:  make([]float32, shape.NumElements()),
	}
}

// FromSlice creates a tensor that copies the given data.
func FromSlice(data []float32, shape Shape) *Tensor {
	if len(data) != shape.NumElements() {
		panic(fmt.Sprintf("tensor: data length %d != shape numel %d", len(data), shape.NumElements()))
	}
	d := make([]float32, len(data))
	copy(d, data)
	return &Tensor{shape: shape.Clone(), data: d}
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Data returns a copy of the underlying data.
func (t *Tensor) Data() []float32 {
	d := make([]float32, len(t.data))
	copy(d, t.data)
	return d
}

// DataPtr returns the underlying data slice (use with caution).
func (t *Tensor) DataPtr() []float32 {
	return t.data
}

// At returns the value at the given indices.
func (t *Tensor) At(indices ...int) float32 {
	return t.data[t.index(indices)]
}

// Set sets the value at the given indices.
func (t *Tensor) Set(value float32, indices ...int) {
	t.data[t.index(indices)] = value
}

func (t *Tensor) index(indices []int) int {
	if len(indices) != t.shape.Rank() {
		panic(fmt.Sprintf("tensor: expected %d indices, got %d", t.shape.Rank(), len(indices)))
	}
	strides := ContiguousStrides(t.shape)
	idx := 0
	for i, index := range indices {
		if index < 0 || index >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of bounds for dim %d with size %d", index, i, t.shape[i]))
		}
		idx += index * strides[i]
	}
	return idx
}

// Fill sets every element to the given value.
func (t *Tensor) Fill(value float32) {
	for i := range t.data {
		t.data[i] = value
	}
}

// Zero resets every element to zero.
func (t *Tensor) Zero() {
	t.Fill(0)
}

// Clone creates a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	return FromSlice(t.data, t.shape)
}

// View builds a strided window over the tensor's storage. The caller is
// responsible for supplying strides consistent with the underlying layout;
// singleton axes may carry stride 0.
func (t *Tensor) View(offset int, shape Shape, strides []int) View {
	if len(strides) != len(shape) {
		panic(fmt.Sprintf("tensor: %d strides for rank-%d view", len(strides), len(shape)))
	}
	return View{
		data:    t.data,
		offset:  offset,
		shape:   shape.Clone(),
		strides: append([]int(nil), strides...),
	}
}

// Whole returns a view covering the entire tensor.
func (t *Tensor) Whole() View {
	return t.View(0, t.shape, ContiguousStrides(t.shape))
}
