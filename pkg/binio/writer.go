package binio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer builds a byte buffer with a fixed byte order. It grows on demand and
// supports patching values at earlier positions once later layout is known.
type Writer struct {
	buf   []byte
	order binary.ByteOrder
}

// NewWriter returns an empty Writer using the given byte order.
func NewWriter(order binary.ByteOrder) *Writer {
	return &Writer{order: order}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the written bytes. The slice aliases the Writer's storage.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// WriteUint8 appends one byte.
func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteUint16 appends an unsigned 16-bit integer.
func (w *Writer) WriteUint16(v uint16) {
	var b [2]byte
	w.order.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteInt16 appends a signed 16-bit integer.
func (w *Writer) WriteInt16(v int16) {
	w.WriteUint16(uint16(v))
}

// WriteUint32 appends an unsigned 32-bit integer.
func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteInt32 appends a signed 32-bit integer.
func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

// WriteFloat32 appends an IEEE 754 binary32 value.
func (w *Writer) WriteFloat32(v float32) {
	w.WriteUint32(math.Float32bits(v))
}

// WriteHalf appends v narrowed to IEEE 754 binary16.
func (w *Writer) WriteHalf(v float32) {
	w.WriteUint16(Float32ToHalf(v))
}

// WriteZeros appends n zero bytes.
func (w *Writer) WriteZeros(n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}

// WriteCString appends b followed by a null terminator.
func (w *Writer) WriteCString(b []byte) {
	w.buf = append(w.buf, b...)
	w.buf = append(w.buf, 0)
}

// Align pads with zero bytes up to the next multiple of n.
func (w *Writer) Align(n int) {
	if n <= 1 {
		return
	}
	if rem := len(w.buf) % n; rem != 0 {
		w.WriteZeros(n - rem)
	}
}

// Append copies the contents of other onto the end of w.
func (w *Writer) Append(other *Writer) {
	w.buf = append(w.buf, other.buf...)
}

// PutInt32At overwrites four bytes at an absolute position.
func (w *Writer) PutInt32At(pos int, v int32) error {
	if pos < 0 || pos+4 > len(w.buf) {
		return fmt.Errorf("%w: patch int32 at 0x%x (len 0x%x)", ErrOutOfRange, pos, len(w.buf))
	}
	w.order.PutUint32(w.buf[pos:], uint32(v))
	return nil
}

// PutInt16At overwrites two bytes at an absolute position.
func (w *Writer) PutInt16At(pos int, v int16) error {
	if pos < 0 || pos+2 > len(w.buf) {
		return fmt.Errorf("%w: patch int16 at 0x%x (len 0x%x)", ErrOutOfRange, pos, len(w.buf))
	}
	w.order.PutUint16(w.buf[pos:], uint16(v))
	return nil
}
