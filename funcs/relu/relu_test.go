package relu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/tensorgrid/internal/extfunc"
	"github.com/vk/tensorgrid/internal/tensor"
)

func TestApply(t *testing.T) {
	v := tensor.FromSlice([]float32{1, -2, 0, 3.5}, tensor.Shape{4})
	require.NoError(t, Apply(v.Whole()))
	require.Equal(t, []float32{1, 0, 0, 3.5}, v.Data())
}

func TestGradMasksClampedPositions(t *testing.T) {
	// value is the rectified output, so zeros mark clamped positions.
	value := tensor.FromSlice([]float32{2, 0, 1, 0}, tensor.Shape{4})
	grad := tensor.FromSlice([]float32{10, 20, 30, 40}, tensor.Shape{4})

	require.NoError(t, Grad(grad.Whole(), value.Whole()))
	require.Equal(t, []float32{10, 0, 30, 0}, grad.Data())
}

func TestRegister(t *testing.T) {
	r := extfunc.New()
	(&Module{}).Register(r)

	c, err := r.Resolve("relu")
	require.NoError(t, err)
	require.NotNil(t, c.Apply)
	require.NotNil(t, c.Grad)
}
