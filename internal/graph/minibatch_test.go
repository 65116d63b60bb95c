package graph

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/tensorgrid/internal/tensor"
)

// fedInput builds an allocated input node with the given sample shape,
// minibatch width and values.
func fedInput(t *testing.T, shape tensor.Shape, frames int, values []float32) *InputNode {
	t.Helper()
	n := NewInputNode("x", shape)
	require.NoError(t, n.Validate(true))
	n.allocate(frames)
	require.NoError(t, n.Feed(values))
	return n
}

func denseFormat() MinibatchFormat {
	return MinibatchFormat{
		MaxRows:          Unbounded,
		MaxTimesteps:     Unbounded,
		Transpose:        true,
		SequenceEpilogue: "\n",
		ElementSeparator: " ",
		SampleSeparator:  "\n",
		ValueFormat:      "%.1f",
	}
}

func writeTo(t *testing.T, n *InputNode, fr FrameRange, f MinibatchFormat) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, n.WriteMinibatch(&buf, fr, f))
	return buf.String()
}

func TestWriteMinibatchTransposed(t *testing.T) {
	n := fedInput(t, tensor.Shape{2}, 3, []float32{
		1, 2, 3,
		4, 5, 6,
	})
	got := writeTo(t, n, AllFrames(), denseFormat())
	assert.Equal(t, "1.0 4.0\n2.0 5.0\n3.0 6.0\n", got)
}

func TestWriteMinibatchRowMajor(t *testing.T) {
	n := fedInput(t, tensor.Shape{2}, 3, []float32{
		1, 2, 3,
		4, 5, 6,
	})
	f := denseFormat()
	f.Transpose = false
	got := writeTo(t, n, AllFrames(), f)
	assert.Equal(t, "1.0 2.0 3.0\n4.0 5.0 6.0\n", got)
}

func TestWriteMinibatchFrameWindow(t *testing.T) {
	n := fedInput(t, tensor.Shape{2}, 3, []float32{
		1, 2, 3,
		4, 5, 6,
	})
	got := writeTo(t, n, FrameAt(1), denseFormat())
	assert.Equal(t, "2.0 5.0\n", got)
}

func TestWriteMinibatchTruncatesRows(t *testing.T) {
	n := fedInput(t, tensor.Shape{3}, 2, []float32{
		1, 2,
		3, 4,
		5, 6,
	})
	f := denseFormat()
	f.MaxRows = 2
	got := writeTo(t, n, AllFrames(), f)
	assert.Equal(t, "1.0 3.0 ...\n2.0 4.0 ...\n", got)
}

func TestWriteMinibatchTruncatesTimesteps(t *testing.T) {
	n := fedInput(t, tensor.Shape{2}, 3, []float32{
		1, 2, 3,
		4, 5, 6,
	})
	f := denseFormat()
	f.MaxTimesteps = 2
	got := writeTo(t, n, AllFrames(), f)
	assert.Equal(t, "1.0 4.0\n2.0 5.0\n...\n", got)
}

func TestWriteMinibatchCategory(t *testing.T) {
	n := fedInput(t, tensor.Shape{3}, 2, []float32{
		0.1, 0.9,
		0.7, 0.05,
		0.2, 0.05,
	})

	f := denseFormat()
	f.CategoryLabel = true
	f.ValueFormat = "%d"
	got := writeTo(t, n, AllFrames(), f)
	assert.Equal(t, "1\n0\n", got)

	f.Labels = []string{"cat", "dog", "bird"}
	f.ValueFormat = "%s"
	got = writeTo(t, n, AllFrames(), f)
	assert.Equal(t, "dog\ncat\n", got)
}

func TestWriteMinibatchCategoryShortMapping(t *testing.T) {
	n := fedInput(t, tensor.Shape{3}, 1, []float32{0, 0, 1})

	f := denseFormat()
	f.CategoryLabel = true
	f.Labels = []string{"zero"}
	f.ValueFormat = "%s"
	got := writeTo(t, n, AllFrames(), f)
	assert.Equal(t, "2\n", got)
}

func TestWriteMinibatchSparse(t *testing.T) {
	n := fedInput(t, tensor.Shape{3}, 3, []float32{
		1, 0, 0,
		0, 5, 0,
		0, 2, 0,
	})

	f := denseFormat()
	f.Sparse = true
	got := writeTo(t, n, AllFrames(), f)
	assert.Equal(t, "0:1.0\n1:5.0 2:2.0\n\n", got)
}

func TestWriteMinibatchSequenceFraming(t *testing.T) {
	n := fedInput(t, tensor.Shape{1}, 2, []float32{7, 8})

	f := denseFormat()
	f.SequencePrologue = "<"
	f.SequenceEpilogue = ">"
	f.SampleSeparator = "|"
	got := writeTo(t, n, AllFrames(), f)
	assert.Equal(t, "<7.0|8.0>", got)
}

func TestWriteMinibatchGradientInstead(t *testing.T) {
	n := fedInput(t, tensor.Shape{1}, 2, []float32{1, 2})
	n.gradient.Fill(3)

	f := denseFormat()
	f.GradientInstead = true
	got := writeTo(t, n, AllFrames(), f)
	assert.Equal(t, "3.0\n3.0\n", got)
}

func TestWriteMinibatchUnallocated(t *testing.T) {
	n := NewInputNode("x", tensor.Shape{1})
	var buf bytes.Buffer
	require.Error(t, n.WriteMinibatch(&buf, AllFrames(), denseFormat()))
}
