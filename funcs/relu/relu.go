// Package relu provides the built-in `relu` external function.
package relu

import (
	"github.com/vk/tensorgrid/internal/extfunc"
	"github.com/vk/tensorgrid/internal/tensor"
)

// Module implements the extfunc.Module interface for this package.
type Module struct{}

// Apply clamps negative elements to zero in place.
func Apply(v tensor.View) error {
	v.Apply(func(x float32) float32 {
		if x < 0 {
			return 0
		}
		return x
	})
	return nil
}

// Grad masks the incoming gradient with the activation: positions the
// forward pass clamped to zero contribute nothing. The rectified output is
// enough to recover the mask, so the pre-activation input is not kept.
func Grad(grad, value tensor.View) error {
	return grad.Combine(value, func(g, y float32) float32 {
		if y > 0 {
			return g
		}
		return 0
	})
}

// Register registers the function with the given registry.
func (m *Module) Register(r *extfunc.Registry) {
	r.Register("relu", extfunc.Callable{Apply: Apply, Grad: Grad})
}
