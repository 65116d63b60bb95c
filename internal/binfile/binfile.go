// Package binfile implements the sequential binary encoding used by model
// files: little-endian fixed-width scalars and length-prefixed UTF-8 strings,
// preceded by a four-byte magic tag and a format version.
//
// Writer and Reader carry a sticky error: after the first failure every
// subsequent call is a no-op and Err returns that first failure. This keeps
// call sites as linear as the field order they serialize.
package binfile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// maxStringLen bounds the length prefix accepted for a string field, so a
// corrupt record fails fast instead of allocating gigabytes.
const maxStringLen = 1 << 20

var (
	// ErrBadMagic indicates the stream does not start with the expected tag.
	ErrBadMagic = errors.New("binfile: bad magic")

	// ErrUnsupportedVersion indicates a record written by a newer format.
	ErrUnsupportedVersion = errors.New("binfile: unsupported format version")

	// ErrCorrupt indicates a field that cannot be decoded (bad length prefix,
	// invalid boolean, short payload).
	ErrCorrupt = errors.New("binfile: corrupt record")
)

// Writer serializes fields sequentially to an underlying stream.
type Writer struct {
	w   *bufio.Writer
	err error
}

// NewWriter wraps w in a buffered field writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteHeader writes the four-byte magic tag and the format version.
func (w *Writer) WriteHeader(magic string, version int) {
	if w.err != nil {
		return
	}
	if len(magic) != 4 {
		w.err = fmt.Errorf("binfile: magic %q must be 4 bytes", magic)
		return
	}
	if _, err := w.w.WriteString(magic); err != nil {
		w.err = err
		return
	}
	w.WriteInt(version)
}

// WriteString writes a length-prefixed UTF-8 string.
func (w *Writer) WriteString(s string) {
	if w.err != nil {
		return
	}
	if len(s) > maxStringLen {
		w.err = fmt.Errorf("binfile: string field of %d bytes exceeds limit", len(s))
		return
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(len(s)))
	if _, err := w.w.Write(buf[:]); err != nil {
		w.err = err
		return
	}
	if _, err := w.w.WriteString(s); err != nil {
		w.err = err
	}
}

// WriteInt writes a signed integer as a little-endian int64.
func (w *Writer) WriteInt(v int) {
	if w.err != nil {
		return
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
	if _, err := w.w.Write(buf[:]); err != nil {
		w.err = err
	}
}

// WriteBool writes a boolean as a single byte.
func (w *Writer) WriteBool(b bool) {
	if w.err != nil {
		return
	}
	var v byte
	if b {
		v = 1
	}
	if err := w.w.WriteByte(v); err != nil {
		w.err = err
	}
}

// Err returns the first error encountered, if any.
func (w *Writer) Err() error {
	return w.err
}

// Flush writes buffered data to the underlying stream and returns the first
// error encountered over the writer's lifetime.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.w.Flush()
	return w.err
}

// Reader deserializes fields sequentially from an underlying stream.
type Reader struct {
	r   *bufio.Reader
	err error
}

// NewReader wraps r in a buffered field reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadHeader consumes the magic tag and returns the format version. A tag
// mismatch sets ErrBadMagic.
func (r *Reader) ReadHeader(magic string) int {
	if r.err != nil {
		return 0
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		r.err = fmt.Errorf("%w: %v", ErrBadMagic, err)
		return 0
	}
	if string(buf) != magic {
		r.err = fmt.Errorf("%w: got %q, want %q", ErrBadMagic, string(buf), magic)
		return 0
	}
	return r.ReadInt()
}

// ReadString reads a length-prefixed UTF-8 string.
func (r *Reader) ReadString() string {
	if r.err != nil {
		return ""
	}
	var buf [4]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		r.err = fmt.Errorf("%w: string length: %v", ErrCorrupt, err)
		return ""
	}
	n := binary.LittleEndian.Uint32(buf[:])
	if n > maxStringLen {
		r.err = fmt.Errorf("%w: string length %d exceeds limit", ErrCorrupt, n)
		return ""
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		r.err = fmt.Errorf("%w: string payload: %v", ErrCorrupt, err)
		return ""
	}
	return string(payload)
}

// ReadInt reads a little-endian int64.
func (r *Reader) ReadInt() int {
	if r.err != nil {
		return 0
	}
	var buf [8]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		r.err = fmt.Errorf("%w: int field: %v", ErrCorrupt, err)
		return 0
	}
	return int(int64(binary.LittleEndian.Uint64(buf[:])))
}

// ReadBool reads a single-byte boolean.
func (r *Reader) ReadBool() bool {
	if r.err != nil {
		return false
	}
	b, err := r.r.ReadByte()
	if err != nil {
		r.err = fmt.Errorf("%w: bool field: %v", ErrCorrupt, err)
		return false
	}
	switch b {
	case 0:
		return false
	case 1:
		return true
	default:
		r.err = fmt.Errorf("%w: bool field byte 0x%02x", ErrCorrupt, b)
		return false
	}
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error {
	return r.err
}
