package tensor

import "fmt"

// View is a strided read/write window over a tensor's storage. Views are
// cheap values: copying one never copies elements, and mutations through a
// view land in the owning tensor.
type View struct {
	data    []float32
	offset  int
	shape   Shape
	strides []int
}

// Shape returns the view's shape.
func (v View) Shape() Shape {
	return v.shape
}

// Rank returns the number of axes of the view.
func (v View) Rank() int {
	return len(v.shape)
}

// NumElements returns the number of elements addressed by the view.
func (v View) NumElements() int {
	return v.shape.NumElements()
}

// At returns the element at the given indices.
func (v View) At(indices ...int) float32 {
	return v.data[v.index(indices)]
}

// Set stores a value at the given indices.
func (v View) Set(value float32, indices ...int) {
	v.data[v.index(indices)] = value
}

func (v View) index(indices []int) int {
	if len(indices) != len(v.shape) {
		panic(fmt.Sprintf("tensor: expected %d indices, got %d", len(v.shape), len(indices)))
	}
	idx := v.offset
	for i, index := range indices {
		if index < 0 || index >= v.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of bounds for dim %d with size %d", index, i, v.shape[i]))
		}
		idx += index * v.strides[i]
	}
	return idx
}

// Slice fixes one axis at the given index and returns the lower-rank view.
func (v View) Slice(axis, at int) View {
	if axis < 0 || axis >= len(v.shape) {
		panic(fmt.Sprintf("tensor: slice axis %d out of range for rank %d", axis, len(v.shape)))
	}
	if at < 0 || at >= v.shape[axis] {
		panic(fmt.Sprintf("tensor: slice index %d out of bounds for axis %d with size %d", at, axis, v.shape[axis]))
	}
	shape := make(Shape, 0, len(v.shape)-1)
	strides := make([]int, 0, len(v.shape)-1)
	for i := range v.shape {
		if i == axis {
			continue
		}
		shape = append(shape, v.shape[i])
		strides = append(strides, v.strides[i])
	}
	return View{
		data:    v.data,
		offset:  v.offset + at*v.strides[axis],
		shape:   shape,
		strides: strides,
	}
}

// Values materializes the view's elements in row-major order.
func (v View) Values() []float32 {
	out := make([]float32, 0, v.NumElements())
	v.each(func(off int) {
		out = append(out, v.data[off])
	})
	return out
}

// Apply replaces every element x with f(x), in place.
func (v View) Apply(f func(float32) float32) {
	v.each(func(off int) {
		v.data[off] = f(v.data[off])
	})
}

// AssignFrom copies src into the view elementwise. Shapes must be identical.
func (v View) AssignFrom(src View) error {
	return v.zip(src, func(dst, s int) {
		v.data[dst] = src.data[s]
	})
}

// AddFrom accumulates src into the view elementwise. Shapes must be identical.
func (v View) AddFrom(src View) error {
	return v.zip(src, func(dst, s int) {
		v.data[dst] += src.data[s]
	})
}

// Combine replaces every element x with f(x, y), where y is the matching
// element of src. Shapes must be identical.
func (v View) Combine(src View, f func(x, y float32) float32) error {
	return v.zip(src, func(dst, s int) {
		v.data[dst] = f(v.data[dst], src.data[s])
	})
}

// each invokes fn with the linear storage offset of every element, walking
// the view in row-major order.
func (v View) each(fn func(off int)) {
	if v.NumElements() == 0 {
		return
	}
	idx := make([]int, len(v.shape))
	off := v.offset
	for {
		fn(off)
		axis := len(v.shape) - 1
		for axis >= 0 {
			idx[axis]++
			off += v.strides[axis]
			if idx[axis] < v.shape[axis] {
				break
			}
			off -= v.strides[axis] * v.shape[axis]
			idx[axis] = 0
			axis--
		}
		if axis < 0 {
			return
		}
	}
}

// zip walks two equally shaped views in lockstep.
func (v View) zip(src View, fn func(dst, src int)) error {
	if !v.shape.Equal(src.shape) {
		return fmt.Errorf("%w: %v vs %v", ErrShapeMismatch, v.shape, src.shape)
	}
	if v.NumElements() == 0 {
		return nil
	}
	idx := make([]int, len(v.shape))
	dstOff, srcOff := v.offset, src.offset
	for {
		fn(dstOff, srcOff)
		axis := len(v.shape) - 1
		for axis >= 0 {
			idx[axis]++
			dstOff += v.strides[axis]
			srcOff += src.strides[axis]
			if idx[axis] < v.shape[axis] {
				break
			}
			dstOff -= v.strides[axis] * v.shape[axis]
			srcOff -= src.strides[axis] * src.shape[axis]
			idx[axis] = 0
			axis--
		}
		if axis < 0 {
			return nil
		}
	}
}
