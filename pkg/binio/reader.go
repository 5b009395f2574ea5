// Package binio provides a seekable, endianness-aware byte cursor over
// in-memory buffers, used by the model container codecs.
package binio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is returned when a read or seek would leave the buffer.
var ErrOutOfRange = errors.New("out of range")

// Reader reads primitives from an immutable byte slice.
//
// Read methods never panic. The first read that runs past the end of the
// buffer records ErrOutOfRange, after which every read returns a zero value;
// check Err once a record has been consumed.
type Reader struct {
	data  []byte
	pos   int
	order binary.ByteOrder
	err   error
}

// NewReader returns a Reader over data using the given byte order.
func NewReader(data []byte, order binary.ByteOrder) *Reader {
	return &Reader{data: data, order: order}
}

// Err returns the first out-of-range error encountered by a read.
func (r *Reader) Err() error {
	return r.err
}

// Pos returns the current absolute position.
func (r *Reader) Pos() int {
	return r.pos
}

// Len returns the total buffer length.
func (r *Reader) Len() int {
	return len(r.data)
}

// Remaining returns the number of bytes after the cursor.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Seek moves the cursor to an absolute position in [0, Len()].
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return fmt.Errorf("%w: seek to %d (len %d)", ErrOutOfRange, pos, len(r.data))
	}
	r.pos = pos
	return nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) {
	r.take(n)
}

// Align advances the cursor to the next multiple of n.
func (r *Reader) Align(n int) {
	if n <= 1 {
		return
	}
	if rem := r.pos % n; rem != 0 {
		r.take(n - rem)
	}
}

// take returns the next n bytes or nil if the buffer is exhausted.
func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = fmt.Errorf("%w: read %d bytes at 0x%x (len 0x%x)", ErrOutOfRange, n, r.pos, len(r.data))
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

// ReadUint8 reads an unsigned byte.
func (r *Reader) ReadUint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// ReadUint16 reads an unsigned 16-bit integer.
func (r *Reader) ReadUint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return r.order.Uint16(b)
}

// ReadInt16 reads a signed 16-bit integer.
func (r *Reader) ReadInt16() int16 {
	return int16(r.ReadUint16())
}

// ReadUint32 reads an unsigned 32-bit integer.
func (r *Reader) ReadUint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return r.order.Uint32(b)
}

// ReadInt32 reads a signed 32-bit integer.
func (r *Reader) ReadInt32() int32 {
	return int32(r.ReadUint32())
}

// ReadFloat32 reads an IEEE 754 binary32 value.
func (r *Reader) ReadFloat32() float32 {
	return math.Float32frombits(r.ReadUint32())
}

// ReadHalf reads an IEEE 754 binary16 value widened to float32.
func (r *Reader) ReadHalf() float32 {
	return HalfToFloat32(r.ReadUint16())
}

// ReadString reads a fixed-length field and trims trailing null bytes.
func (r *Reader) ReadString(n int) string {
	b := r.take(n)
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// ReadCString reads a null-terminated string and leaves the cursor after the
// terminator.
func (r *Reader) ReadCString() string {
	b, err := r.cstringAt(r.pos)
	if err != nil {
		if r.err == nil {
			r.err = err
		}
		return ""
	}
	r.pos += len(b) + 1
	return string(b)
}

// CStringAt returns the raw bytes of the null-terminated string at an absolute
// offset without moving the cursor.
func (r *Reader) CStringAt(offset int) ([]byte, error) {
	b, err := r.cstringAt(offset)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// StringAt reads the null-terminated string at an absolute offset without
// moving the cursor.
func (r *Reader) StringAt(offset int) (string, error) {
	b, err := r.cstringAt(offset)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) cstringAt(offset int) ([]byte, error) {
	if offset < 0 || offset >= len(r.data) {
		return nil, fmt.Errorf("%w: string at 0x%x (len 0x%x)", ErrOutOfRange, offset, len(r.data))
	}
	end := bytes.IndexByte(r.data[offset:], 0)
	if end < 0 {
		return nil, fmt.Errorf("%w: unterminated string at 0x%x", ErrOutOfRange, offset)
	}
	return r.data[offset : offset+end], nil
}
