package binio

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestReaderPrimitives_BigEndian(t *testing.T) {
	data := []byte{
		0x7F,       // uint8
		0xFF, 0xFE, // int16 -2
		0x00, 0x00, 0x01, 0x00, // int32 256
		0x3F, 0x80, 0x00, 0x00, // float32 1.0
		0x3C, 0x00, // half 1.0
	}
	r := NewReader(data, binary.BigEndian)

	if got := r.ReadUint8(); got != 0x7F {
		t.Errorf("ReadUint8 = 0x%x, want 0x7f", got)
	}
	if got := r.ReadInt16(); got != -2 {
		t.Errorf("ReadInt16 = %d, want -2", got)
	}
	if got := r.ReadInt32(); got != 256 {
		t.Errorf("ReadInt32 = %d, want 256", got)
	}
	if got := r.ReadFloat32(); got != 1.0 {
		t.Errorf("ReadFloat32 = %v, want 1", got)
	}
	if got := r.ReadHalf(); got != 1.0 {
		t.Errorf("ReadHalf = %v, want 1", got)
	}
	if err := r.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", r.Remaining())
	}
}

func TestReaderPrimitives_LittleEndian(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03, 0x04}, binary.LittleEndian)
	if got := r.ReadUint32(); got != 0x04030201 {
		t.Errorf("ReadUint32 = 0x%x, want 0x04030201", got)
	}
}

func TestReaderOutOfRangeIsSticky(t *testing.T) {
	r := NewReader([]byte{0x00, 0x01, 0x02}, binary.BigEndian)

	if got := r.ReadInt32(); got != 0 {
		t.Errorf("truncated ReadInt32 = %d, want 0", got)
	}
	if !errors.Is(r.Err(), ErrOutOfRange) {
		t.Fatalf("Err() = %v, want ErrOutOfRange", r.Err())
	}
	// Subsequent reads that would fit still report zero.
	if got := r.ReadUint8(); got != 0 {
		t.Errorf("ReadUint8 after failure = %d, want 0", got)
	}
}

func TestReaderSeek(t *testing.T) {
	r := NewReader(make([]byte, 8), binary.BigEndian)

	tests := []struct {
		name    string
		pos     int
		wantErr bool
	}{
		{"start", 0, false},
		{"middle", 4, false},
		{"end", 8, false},
		{"past end", 9, true},
		{"negative", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Seek(tt.pos)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Seek(%d) error = %v, wantErr %v", tt.pos, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrOutOfRange) {
				t.Errorf("Seek(%d) error = %v, want ErrOutOfRange", tt.pos, err)
			}
		})
	}
}

func TestReaderAlign(t *testing.T) {
	r := NewReader(make([]byte, 32), binary.BigEndian)
	r.Skip(3)
	r.Align(16)
	if r.Pos() != 16 {
		t.Errorf("Pos after Align(16) = %d, want 16", r.Pos())
	}
	r.Align(16)
	if r.Pos() != 16 {
		t.Errorf("Align on boundary moved cursor to %d", r.Pos())
	}
}

func TestReaderStringAtKeepsPosition(t *testing.T) {
	data := []byte("abc\x00mesh_01\x00\x00\x00")
	r := NewReader(data, binary.BigEndian)
	r.Skip(2)

	s, err := r.StringAt(4)
	if err != nil {
		t.Fatalf("StringAt: %v", err)
	}
	if s != "mesh_01" {
		t.Errorf("StringAt = %q, want %q", s, "mesh_01")
	}
	if r.Pos() != 2 {
		t.Errorf("Pos = %d after StringAt, want 2", r.Pos())
	}

	if _, err := r.StringAt(len(data)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("StringAt past end error = %v, want ErrOutOfRange", err)
	}
	if _, err := NewReader([]byte("open"), binary.BigEndian).StringAt(0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("unterminated StringAt error = %v, want ErrOutOfRange", err)
	}
}

func TestReaderCString(t *testing.T) {
	r := NewReader([]byte("NDP3\x00rest"), binary.BigEndian)
	if got := r.ReadCString(); got != "NDP3" {
		t.Errorf("ReadCString = %q, want NDP3", got)
	}
	if r.Pos() != 5 {
		t.Errorf("Pos = %d, want 5", r.Pos())
	}
	if got := r.ReadString(4); got != "rest" {
		t.Errorf("ReadString = %q, want rest", got)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	w := NewWriter(binary.BigEndian)
	w.WriteUint8(0xAB)
	w.WriteInt16(-300)
	w.WriteInt32(-70000)
	w.WriteFloat32(3.5)
	w.WriteHalf(-0.5)
	w.WriteCString([]byte("name"))

	r := NewReader(w.Bytes(), binary.BigEndian)
	if got := r.ReadUint8(); got != 0xAB {
		t.Errorf("byte = 0x%x", got)
	}
	if got := r.ReadInt16(); got != -300 {
		t.Errorf("int16 = %d", got)
	}
	if got := r.ReadInt32(); got != -70000 {
		t.Errorf("int32 = %d", got)
	}
	if got := r.ReadFloat32(); got != 3.5 {
		t.Errorf("float32 = %v", got)
	}
	if got := r.ReadHalf(); got != -0.5 {
		t.Errorf("half = %v", got)
	}
	if got := r.ReadCString(); got != "name" {
		t.Errorf("cstring = %q", got)
	}
	if err := r.Err(); err != nil {
		t.Fatal(err)
	}
}

func TestWriterAlignPadsWithZeros(t *testing.T) {
	w := NewWriter(binary.BigEndian)
	w.WriteBytes([]byte{1, 2, 3})
	w.Align(16)
	if w.Len() != 16 {
		t.Fatalf("Len after Align = %d, want 16", w.Len())
	}
	for i, b := range w.Bytes()[3:] {
		if b != 0 {
			t.Errorf("pad byte %d = 0x%x, want 0", i+3, b)
		}
	}
	w.Align(16)
	if w.Len() != 16 {
		t.Errorf("Align on boundary grew buffer to %d", w.Len())
	}
}

func TestWriterPatch(t *testing.T) {
	w := NewWriter(binary.BigEndian)
	w.WriteInt32(0)
	w.WriteInt16(0)

	if err := w.PutInt32At(0, 0x01020304); err != nil {
		t.Fatal(err)
	}
	if err := w.PutInt16At(4, -1); err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 2, 3, 4, 0xFF, 0xFF}
	for i := range want {
		if w.Bytes()[i] != want[i] {
			t.Fatalf("bytes = %x, want %x", w.Bytes(), want)
		}
	}
	if err := w.PutInt32At(4, 1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("PutInt32At past end error = %v, want ErrOutOfRange", err)
	}
}

func TestWriterAppend(t *testing.T) {
	a := NewWriter(binary.BigEndian)
	a.WriteUint8(1)
	b := NewWriter(binary.BigEndian)
	b.WriteUint8(2)
	b.WriteUint8(3)
	a.Append(b)
	if a.Len() != 3 || a.Bytes()[2] != 3 {
		t.Errorf("Append result = %x", a.Bytes())
	}
}

func TestHalfFloatRoundTrip(t *testing.T) {
	values := []float32{
		0, 1, -1, 0.5, 0.25, 2, 1024, 65504, -65504,
		0.333251953125,       // nearest binary16 to 1/3
		6.103515625e-05,      // smallest normal
		float32(math.Inf(1)), // infinities survive
		float32(math.Inf(-1)),
	}
	for _, v := range values {
		got := HalfToFloat32(Float32ToHalf(v))
		if got != v {
			t.Errorf("half round trip of %v = %v", v, got)
		}
	}
}

func TestHalfFloatAllNormals(t *testing.T) {
	// Every finite normal binary16 pattern must survive widen-then-narrow.
	for bits := uint32(0x0400); bits < 0x7C00; bits++ {
		for _, sign := range []uint16{0, 0x8000} {
			h := uint16(bits) | sign
			if got := Float32ToHalf(HalfToFloat32(h)); got != h {
				t.Fatalf("bits 0x%04x round trip to 0x%04x", h, got)
			}
		}
	}
}

func TestHalfFloatKnownPatterns(t *testing.T) {
	tests := []struct {
		bits uint16
		want float32
	}{
		{0x0000, 0},
		{0x3C00, 1},
		{0xC000, -2},
		{0x3800, 0.5},
		{0x7BFF, 65504},
		{0x3555, 0.333251953125},
	}
	for _, tt := range tests {
		if got := HalfToFloat32(tt.bits); got != tt.want {
			t.Errorf("HalfToFloat32(0x%04x) = %v, want %v", tt.bits, got, tt.want)
		}
	}
}
