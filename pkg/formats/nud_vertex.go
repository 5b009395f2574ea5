package formats

import (
	"fmt"
	"math"

	"github.com/Faultbox/nudkit/pkg/binio"
)

// decodeVertices reads a polygon's vertex arrays.
//
// Weighted polygons keep color+UV at the vertex offset and position, normal
// and bone data at the vertex-extra offset. Single-bind polygons keep
// everything at the vertex offset.
func (d *nudDecoder) decodeVertices(desc nudPolygonDesc, l VertexLayout, singleBind int16) ([]NUDVertex, error) {
	n := int(desc.vertCount)
	verts := make([]NUDVertex, n)

	mainStart := d.sections.Vertices + int(desc.vertOffset)
	if l.Weighted() {
		if err := d.seekRecord(mainStart, n*l.UVStride(), "vertex UV block"); err != nil {
			return nil, err
		}
		for i := range verts {
			l.decodeUVBlock(d.r, &verts[i])
		}
		if err := d.check("vertex UV block"); err != nil {
			return nil, err
		}
		mainStart = d.sections.VertexExtra + int(desc.vertAddOffset)
	}

	if err := d.seekRecord(mainStart, n*l.PositionStride(), "vertex block"); err != nil {
		return nil, err
	}
	for i := range verts {
		l.decodeMainBlock(d.r, &verts[i], singleBind)
	}
	if err := d.check("vertex block"); err != nil {
		return nil, err
	}
	return verts, nil
}

// decodeUVBlock reads the color+UV entry of a weighted vertex.
func (l VertexLayout) decodeUVBlock(r *binio.Reader, v *NUDVertex) {
	for i := range v.Color {
		v.Color[i] = r.ReadUint8()
	}
	v.UV = readUVs(r, l.UVLayers)
}

// decodeMainBlock reads position, normal and either bone data or the inline
// color+UV of a single-bind vertex.
func (l VertexLayout) decodeMainBlock(r *binio.Reader, v *NUDVertex, singleBind int16) {
	for i := range v.Position {
		v.Position[i] = r.ReadFloat32()
	}

	if l.Normals == NormalFormatNone {
		r.Skip(4)
	} else {
		for i := range v.Normal {
			v.Normal[i] = r.ReadHalf()
		}
		r.Skip(2)
	}
	if l.Normals == NormalFormatHalfTangent {
		for i := range v.Bitangent {
			v.Bitangent[i] = r.ReadHalf()
		}
		for i := range v.Tangent {
			v.Tangent[i] = r.ReadHalf()
		}
	}

	if l.Weighted() {
		for i := range v.BoneIndices {
			v.BoneIndices[i] = int16(r.ReadUint8())
		}
		for i := range v.BoneWeights {
			v.BoneWeights[i] = float32(r.ReadUint8()) / 255
		}
		return
	}

	if l.HasColor {
		for i := range v.Color {
			v.Color[i] = r.ReadUint8()
		}
	}
	v.UV = readUVs(r, l.UVLayers)
	v.BoneIndices = [4]int16{singleBind, 0, 0, 0}
	v.BoneWeights = [4]float32{1, 0, 0, 0}
}

func readUVs(r *binio.Reader, layers int) [][2]float32 {
	if layers == 0 {
		return nil
	}
	uvs := make([][2]float32, layers)
	for i := range uvs {
		uvs[i][0] = r.ReadHalf()
		uvs[i][1] = r.ReadHalf()
	}
	return uvs
}

// encodeUVBlock writes the color+UV entry of a weighted vertex.
func (l VertexLayout) encodeUVBlock(w *binio.Writer, v *NUDVertex) {
	for _, c := range v.Color {
		w.WriteUint8(c)
	}
	writeUVs(w, v.UV, l.UVLayers)
}

// encodeMainBlock mirrors decodeMainBlock.
func (l VertexLayout) encodeMainBlock(w *binio.Writer, v *NUDVertex) {
	for _, p := range v.Position {
		w.WriteFloat32(p)
	}

	if l.Normals == NormalFormatNone {
		w.WriteInt32(0)
	} else {
		for _, n := range v.Normal {
			w.WriteHalf(n)
		}
		w.WriteHalf(1)
	}
	if l.Normals == NormalFormatHalfTangent {
		for _, b := range v.Bitangent {
			w.WriteHalf(b)
		}
		for _, t := range v.Tangent {
			w.WriteHalf(t)
		}
	}

	if l.Weighted() {
		for _, b := range v.BoneIndices {
			w.WriteUint8(uint8(b))
		}
		for _, wt := range v.BoneWeights {
			w.WriteUint8(QuantizeWeight(wt))
		}
		return
	}

	if l.HasColor {
		for _, c := range v.Color {
			w.WriteUint8(c)
		}
	}
	writeUVs(w, v.UV, l.UVLayers)
}

func writeUVs(w *binio.Writer, uvs [][2]float32, layers int) {
	for i := 0; i < layers; i++ {
		w.WriteHalf(uvs[i][0])
		w.WriteHalf(uvs[i][1])
	}
}

// QuantizeWeight stores a bone weight as round(w*255), clamping to [0,1].
func QuantizeWeight(w float32) uint8 {
	if math.IsNaN(float64(w)) || w <= 0 {
		return 0
	}
	if w >= 1 {
		return 255
	}
	return uint8(math.Round(float64(w) * 255))
}

// validateVertices checks that every vertex fits the layout.
func (l VertexLayout) validateVertices(verts []NUDVertex) error {
	for i := range verts {
		v := &verts[i]
		if len(v.UV) != l.UVLayers {
			return fmt.Errorf("%w: vertex %d has %d UV layers, layout needs %d", ErrFormat, i, len(v.UV), l.UVLayers)
		}
		if !l.Weighted() {
			continue
		}
		for j, b := range v.BoneIndices {
			if b < 0 || b > math.MaxUint8 {
				return fmt.Errorf("%w: vertex %d bone index %d is %d, weighted formats store bytes", ErrFormat, i, j, b)
			}
		}
	}
	return nil
}
