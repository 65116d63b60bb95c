package graph

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/tensorgrid/internal/binfile"
	"github.com/vk/tensorgrid/internal/tensor"
)

func TestAttachInputsArity(t *testing.T) {
	x := NewInputNode("x", tensor.Shape{3})
	tr := NewTraceNode("t", DefaultTraceConfig(), &bytes.Buffer{})

	require.NoError(t, tr.AttachInputs(x))
	require.ErrorIs(t, tr.AttachInputs(), ErrArity)
	require.ErrorIs(t, tr.AttachInputs(x, x), ErrArity)
}

func TestValidateAdoptsInputShape(t *testing.T) {
	x := NewInputNode("x", tensor.Shape{3, 2})
	tr := NewTraceNode("t", DefaultTraceConfig(), &bytes.Buffer{})
	require.NoError(t, tr.AttachInputs(x))

	require.NoError(t, tr.Validate(false))
	assert.Equal(t, tensor.Shape{3, 2}, tr.SampleShape())
	require.NoError(t, tr.Validate(true))
	assert.Equal(t, tensor.Shape{3, 2}, tr.SampleShape())
}

func TestValidateFinalPassRejectsConflictingShape(t *testing.T) {
	x := NewInputNode("x", tensor.Shape{3})
	tr := NewTraceNode("t", DefaultTraceConfig(), &bytes.Buffer{})
	require.NoError(t, tr.AttachInputs(x))

	// A persisted shape that disagrees with the wiring must be caught.
	tr.sampleShape = tensor.Shape{5}
	require.ErrorIs(t, tr.Validate(true), ErrShapeMismatch)
}

func TestValidateRequiresOneInput(t *testing.T) {
	tr := NewTraceNode("t", DefaultTraceConfig(), &bytes.Buffer{})
	require.ErrorIs(t, tr.Validate(false), ErrArity)
}

func TestPrototype(t *testing.T) {
	x := NewInputNode("x", tensor.Shape{3})
	assert.Equal(t, "x = Input () [3 x *]", x.Prototype())

	tr := NewTraceNode("t", DefaultTraceConfig(), &bytes.Buffer{})
	require.NoError(t, tr.AttachInputs(x))
	require.NoError(t, tr.Validate(true))
	assert.Equal(t, "t = Trace (x) [3 x *]", tr.Prototype())
}

func TestWindowAddressesFrameAxis(t *testing.T) {
	x := NewInputNode("x", tensor.Shape{2})
	require.NoError(t, x.Validate(true))
	x.allocate(4)

	// Layout is [2 x 4] row-major: row r, frame t at offset r*4+t.
	require.NoError(t, x.Feed([]float32{
		0, 1, 2, 3,
		10, 11, 12, 13,
	}))

	v := x.ValueTensorFor(1, FrameAt(2))
	assert.Equal(t, tensor.Shape{2, 1}, v.Shape())
	assert.Equal(t, []float32{2, 12}, v.Values())

	v = x.ValueTensorFor(1, NewFrameRange(1, 3))
	assert.Equal(t, tensor.Shape{2, 2}, v.Shape())
	assert.Equal(t, []float32{1, 2, 11, 12}, v.Values())
}

func TestWindowPadsToBroadcastRank(t *testing.T) {
	x := NewInputNode("x", tensor.Shape{2})
	require.NoError(t, x.Validate(true))
	x.allocate(3)
	require.NoError(t, x.Feed([]float32{1, 2, 3, 4, 5, 6}))

	v := x.ValueTensorFor(3, AllFrames())
	assert.Equal(t, tensor.Shape{2, 1, 1, 3}, v.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, v.Values())
}

func TestFeedRejectsWrongSize(t *testing.T) {
	x := NewInputNode("x", tensor.Shape{2})
	require.NoError(t, x.Validate(true))

	require.Error(t, x.Feed([]float32{1, 2})) // not allocated yet

	x.allocate(2)
	require.ErrorIs(t, x.Feed([]float32{1, 2, 3}), ErrShapeMismatch)
	require.NoError(t, x.Feed([]float32{1, 2, 3, 4}))
}

func TestBaseRecordRoundTrip(t *testing.T) {
	x := NewInputNode("x", tensor.Shape{3, 5})

	var buf bytes.Buffer
	w := binfile.NewWriter(&buf)
	x.Save(w)
	require.NoError(t, w.Flush())

	loaded := NewInputNode("x", nil)
	require.NoError(t, loaded.Load(binfile.NewReader(&buf)))
	assert.Equal(t, tensor.Shape{3, 5}, loaded.SampleShape())
}

func TestLoadBaseRejectsAbsurdRank(t *testing.T) {
	var buf bytes.Buffer
	w := binfile.NewWriter(&buf)
	w.WriteInt(1 << 20)
	require.NoError(t, w.Flush())

	loaded := NewInputNode("x", nil)
	require.ErrorIs(t, loaded.Load(binfile.NewReader(&buf)), binfile.ErrCorrupt)
}
