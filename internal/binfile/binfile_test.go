package binfile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteHeader("TEST", 3)
	w.WriteString("hello")
	w.WriteString("")
	w.WriteInt(-42)
	w.WriteInt(100000000)
	w.WriteBool(true)
	w.WriteBool(false)
	require.NoError(t, w.Flush())

	r := NewReader(&buf)
	require.Equal(t, 3, r.ReadHeader("TEST"))
	require.Equal(t, "hello", r.ReadString())
	require.Equal(t, "", r.ReadString())
	require.Equal(t, -42, r.ReadInt())
	require.Equal(t, 100000000, r.ReadInt())
	require.True(t, r.ReadBool())
	require.False(t, r.ReadBool())
	require.NoError(t, r.Err())
}

func TestBadMagic(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteHeader("AAAA", 1)
	require.NoError(t, w.Flush())

	r := NewReader(&buf)
	r.ReadHeader("BBBB")
	require.ErrorIs(t, r.Err(), ErrBadMagic)
}

func TestTruncatedField(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteHeader("TEST", 1)
	require.NoError(t, w.Flush())

	r := NewReader(&buf)
	r.ReadHeader("TEST")
	r.ReadString() // nothing left in the stream
	require.ErrorIs(t, r.Err(), ErrCorrupt)
}

func TestOversizedStringLength(t *testing.T) {
	var buf bytes.Buffer
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], 1<<30)
	buf.Write(lenBuf[:])

	r := NewReader(&buf)
	r.ReadString()
	require.ErrorIs(t, r.Err(), ErrCorrupt)
}

func TestInvalidBoolByte(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{7}))
	r.ReadBool()
	require.ErrorIs(t, r.Err(), ErrCorrupt)
}

func TestErrorSticks(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	r.ReadInt()
	first := r.Err()
	require.Error(t, first)

	// Later reads keep returning zero values without replacing the error.
	require.Equal(t, "", r.ReadString())
	require.False(t, r.ReadBool())
	require.Same(t, first, r.Err())
}
