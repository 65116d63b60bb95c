package tensor

import (
	"fmt"
	"strings"
)

// Shape is the dimension sizes of a tensor, e.g. [3, 5].
type Shape []int

// Rank returns the number of axes.
func (s Shape) Rank() int {
	return len(s)
}

// NumElements returns the total number of elements (product of dimensions).
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for _, d := range s {
		if d <= 0 {
			return 0
		}
		n *= d
	}
	return n
}

// Equal reports whether two shapes have identical rank and dimensions.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i, d := range s {
		if o[i] != d {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the shape.
func (s Shape) Clone() Shape {
	c := make(Shape, len(s))
	copy(c, s)
	return c
}

// Padded returns the shape extended with trailing singleton axes up to the
// given rank. Padding never drops axes; a rank at or below the current one
// returns a plain clone.
func (s Shape) Padded(rank int) Shape {
	if rank <= len(s) {
		return s.Clone()
	}
	c := make(Shape, rank)
	copy(c, s)
	for i := len(s); i < rank; i++ {
		c[i] = 1
	}
	return c
}

// String renders the shape in the form "[3 x 5]".
func (s Shape) String() string {
	if len(s) == 0 {
		return "[]"
	}
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return "[" + strings.Join(parts, " x ") + "]"
}

// ContiguousStrides computes row-major element strides for a shape.
// The last axis is contiguous; strides[i] = strides[i+1] * shape[i+1].
func ContiguousStrides(s Shape) []int {
	if len(s) == 0 {
		return nil
	}
	strides := make([]int, len(s))
	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}
