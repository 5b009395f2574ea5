package formats

import "fmt"

// BoneFormat is the high nibble of a polygon's vertex format code.
type BoneFormat uint8

const (
	BoneFormatNone BoneFormat = 0 // single-bind: no per-vertex bone data
	BoneFormatByte BoneFormat = 4 // four byte indices + four byte weights
)

// NormalFormat is the low nibble of a polygon's vertex format code.
type NormalFormat uint8

const (
	NormalFormatNone        NormalFormat = 0 // 4 bytes of padding
	NormalFormatHalf        NormalFormat = 6 // half normal triple + 2 byte pad
	NormalFormatHalfTangent NormalFormat = 7 // as 6, then half bitangent and tangent
)

// ColorFormatByteRGBA is the only supported low nibble of a UV format code.
const ColorFormatByteRGBA = 2

// VertexLayout is the resolved per-vertex byte layout of one polygon. It is
// computed once from the format codes and reused for every vertex, in both
// directions.
type VertexLayout struct {
	Bones    BoneFormat
	Normals  NormalFormat
	UVLayers int
	HasColor bool
}

// ResolveVertexLayout validates a polygon's format codes and returns its layout.
func ResolveVertexLayout(vertexFormat, uvFormat byte) (VertexLayout, error) {
	var l VertexLayout

	switch b := BoneFormat(vertexFormat >> 4); b {
	case BoneFormatNone, BoneFormatByte:
		l.Bones = b
	default:
		return VertexLayout{}, fmt.Errorf("%w: bone variant %d in code 0x%02x", ErrUnsupportedVertexFormat, b, vertexFormat)
	}

	switch n := NormalFormat(vertexFormat & 0xF); n {
	case NormalFormatNone, NormalFormatHalf, NormalFormatHalfTangent:
		l.Normals = n
	default:
		return VertexLayout{}, fmt.Errorf("%w: normal variant %d in code 0x%02x", ErrUnsupportedVertexFormat, n, vertexFormat)
	}

	if c := uvFormat & 0xF; c != ColorFormatByteRGBA {
		return VertexLayout{}, fmt.Errorf("%w: color variant %d in code 0x%02x", ErrUnsupportedUVFormat, c, uvFormat)
	}
	l.UVLayers = int(uvFormat >> 4)

	// Weighted vertices always lead their UV block with a color. Single-bind
	// vertices only carry one when at least one UV layer is present.
	l.HasColor = l.Weighted() || uvFormat >= 0x12

	return l, nil
}

// Weighted reports whether vertices carry their own bone indices and weights.
func (l VertexLayout) Weighted() bool {
	return l.Bones == BoneFormatByte
}

// Codes returns the vertex and UV format codes describing this layout.
func (l VertexLayout) Codes() (vertexFormat, uvFormat byte) {
	return byte(l.Bones)<<4 | byte(l.Normals), byte(l.UVLayers)<<4 | ColorFormatByteRGBA
}

// UVStride is the size of one vertex in the separate color+UV block of a
// weighted polygon. It is zero for single-bind layouts.
func (l VertexLayout) UVStride() int {
	if !l.Weighted() {
		return 0
	}
	return 4 + 4*l.UVLayers
}

// PositionStride is the size of one vertex in the position block.
func (l VertexLayout) PositionStride() int {
	size := 12 + 4
	if l.Normals == NormalFormatHalfTangent {
		size += 16
	}
	if l.Weighted() {
		return size + 8
	}
	if l.HasColor {
		size += 4
	}
	return size + 4*l.UVLayers
}

func (l VertexLayout) String() string {
	vf, uf := l.Codes()
	return fmt.Sprintf("vertex=0x%02x uv=0x%02x (bones=%d normals=%d uvs=%d color=%t)",
		vf, uf, l.Bones, l.Normals, l.UVLayers, l.HasColor)
}
