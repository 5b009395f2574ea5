// Package render flattens a parsed model container into globally indexed
// vertex streams and per-polygon draw calls.
package render

import (
	"github.com/Faultbox/nudkit/pkg/formats"
	"github.com/Faultbox/nudkit/pkg/math"
)

// DrawCall describes one polygon's slice of the scene index buffer.
type DrawCall struct {
	Mesh       string
	MeshIndex  int // position of the mesh in the container
	Polygon    int // index within the mesh
	Primitive  byte
	IndexStart int
	IndexCount int
	Visible    bool
	Materials  []*formats.NUDMaterial
	Texture    uint32
	HasTexture bool
}

// Scene holds vertex streams shared by every draw call. Indices are global:
// each polygon's local face indices are offset by the number of vertices
// emitted before it.
type Scene struct {
	Positions   [][3]float32
	Normals     [][3]float32
	Colors      [][4]float32
	UVs         [][2]float32 // first UV layer, zero when absent
	BoneIndices [][4]uint16
	BoneWeights [][4]float32
	Indices     []uint32
	Draws       []DrawCall
	Bounds      math.AABB
}

// VertexCount returns the number of vertices in the scene.
func (s *Scene) VertexCount() int {
	return len(s.Positions)
}

// VisibleDraws returns the draw calls that should be rendered.
func (s *Scene) VisibleDraws() []DrawCall {
	var out []DrawCall
	for _, d := range s.Draws {
		if d.Visible {
			out = append(out, d)
		}
	}
	return out
}

// Flatten builds a Scene from n. res may be nil, in which case no draw call
// carries a texture.
func Flatten(n *formats.NUD, res TextureResolver) *Scene {
	s := &Scene{}
	for mi, mesh := range n.Meshes {
		for pi, poly := range mesh.Polygons {
			base := uint32(len(s.Positions))
			for i := range poly.Vertices {
				s.addVertex(&poly.Vertices[i])
			}

			d := DrawCall{
				Mesh:       mesh.Name,
				MeshIndex:  mi,
				Polygon:    pi,
				Primitive:  poly.PrimitiveMode,
				IndexStart: len(s.Indices),
				IndexCount: len(poly.Faces),
				Visible:    mesh.Visible && poly.Visible,
				Materials:  poly.Materials,
			}
			for _, f := range poly.Faces {
				s.Indices = append(s.Indices, base+f)
			}
			d.Texture, d.HasTexture = resolveTexture(poly, res)
			s.Draws = append(s.Draws, d)
		}
	}
	return s
}

func (s *Scene) addVertex(v *formats.NUDVertex) {
	s.Positions = append(s.Positions, v.Position)
	s.Bounds.Extend(math.V3(v.Position))
	s.Normals = append(s.Normals, v.Normal)

	var c [4]float32
	for i, b := range v.Color {
		c[i] = float32(b) / 255
	}
	s.Colors = append(s.Colors, c)

	var uv [2]float32
	if len(v.UV) > 0 {
		uv = v.UV[0]
	}
	s.UVs = append(s.UVs, uv)

	var joints [4]uint16
	for i, b := range v.BoneIndices {
		// -1 marks a mesh without a single-bind bone.
		if b > 0 {
			joints[i] = uint16(b)
		}
	}
	s.BoneIndices = append(s.BoneIndices, joints)
	s.BoneWeights = append(s.BoneWeights, v.BoneWeights)
}

// resolveTexture uses the first texture of the first material.
func resolveTexture(p *formats.NUDPolygon, res TextureResolver) (uint32, bool) {
	if res == nil || len(p.Materials) == 0 || len(p.Materials[0].Textures) == 0 {
		return 0, false
	}
	return res.Resolve(p.Materials[0].Textures[0].Hash)
}
