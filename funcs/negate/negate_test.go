package negate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/tensorgrid/internal/extfunc"
	"github.com/vk/tensorgrid/internal/tensor"
)

func TestApply(t *testing.T) {
	v := tensor.FromSlice([]float32{1, -2, 0, 3.5}, tensor.Shape{4})
	require.NoError(t, Apply(v.Whole()))
	require.Equal(t, []float32{-1, 2, 0, -3.5}, v.Data())
}

func TestGrad(t *testing.T) {
	grad := tensor.FromSlice([]float32{1, 2, -3}, tensor.Shape{3})
	value := tensor.New(tensor.Shape{3})
	require.NoError(t, Grad(grad.Whole(), value.Whole()))
	require.Equal(t, []float32{-1, -2, 3}, grad.Data())
}

func TestRegister(t *testing.T) {
	r := extfunc.New()
	(&Module{}).Register(r)

	c, err := r.Resolve("negate")
	require.NoError(t, err)
	require.NotNil(t, c.Apply)
	require.NotNil(t, c.Grad)
}
