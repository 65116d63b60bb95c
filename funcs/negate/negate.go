// Package negate provides the built-in `negate` external function.
package negate

import (
	"github.com/vk/tensorgrid/internal/extfunc"
	"github.com/vk/tensorgrid/internal/tensor"
)

// Module implements the extfunc.Module interface for this package.
type Module struct{}

// Apply flips the sign of every element in place.
func Apply(v tensor.View) error {
	v.Apply(func(x float32) float32 { return -x })
	return nil
}

// Grad flips the sign of the incoming gradient. The forward value is not
// consulted.
func Grad(grad, _ tensor.View) error {
	grad.Apply(func(g float32) float32 { return -g })
	return nil
}

// Register registers the function with the given registry.
func (m *Module) Register(r *extfunc.Registry) {
	r.Register("negate", extfunc.Callable{Apply: Apply, Grad: Grad})
}
